//go:build !windows

package watcher

import (
	"context"
	"os/exec"
	"strings"
)

// NewPlatformLister returns the ps-backed process lister.
func NewPlatformLister() ProcessLister {
	return &psLister{}
}

// psLister shells out to ps and returns one command name per running
// process.
type psLister struct{}

func (l *psLister) List(ctx context.Context) ([]string, error) {
	cmd := exec.CommandContext(ctx, "ps", "-e", "-o", "comm=")
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			names = append(names, line)
		}
	}
	return names, nil
}
