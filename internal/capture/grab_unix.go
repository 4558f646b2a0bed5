//go:build !windows

package capture

import (
	"os"
	"os/exec"
	"syscall"
)

// grabArgs returns the x11grab input arguments for src.
func grabArgs(src Source) []string {
	display := os.Getenv("DISPLAY")
	if display == "" {
		display = ":0.0"
	}
	return []string{"-f", "x11grab", "-framerate", "30", "-i", display}
}

// interruptProcess sends SIGINT so ffmpeg finalizes the container cleanly.
func interruptProcess(cmd *exec.Cmd) error {
	return cmd.Process.Signal(syscall.SIGINT)
}
