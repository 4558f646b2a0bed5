//go:build windows

package capture

import "os/exec"

// grabArgs returns the gdigrab input arguments for src. Window sources are
// grabbed by title; everything else falls back to the whole desktop.
func grabArgs(src Source) []string {
	input := "desktop"
	if !src.Fullscreen && src.Title != "" {
		input = "title=" + src.Title
	}
	return []string{"-f", "gdigrab", "-framerate", "30", "-i", input}
}

// interruptProcess asks ffmpeg to finish the output file. Windows has no
// SIGINT for non-console children, so the recorder falls through to the
// kill path after the wait.
func interruptProcess(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
