//go:build windows

package watcher

import (
	"context"
	"encoding/csv"
	"os/exec"
	"strings"
)

// NewPlatformLister returns the tasklist-backed process lister.
func NewPlatformLister() ProcessLister {
	return &tasklistLister{}
}

// tasklistLister shells out to tasklist in CSV mode and parses the image
// name column.
type tasklistLister struct{}

func (l *tasklistLister) List(ctx context.Context) ([]string, error) {
	cmd := exec.CommandContext(ctx, "tasklist", "/fo", "csv", "/nh")
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}
	return parseTasklistCSV(string(out)), nil
}

// parseTasklistCSV extracts image names from tasklist CSV output. Rows that
// fail to parse are skipped; tasklist occasionally emits informational
// lines that are not CSV.
func parseTasklistCSV(out string) []string {
	var names []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		rec, err := csv.NewReader(strings.NewReader(line)).Read()
		if err != nil || len(rec) == 0 {
			continue
		}
		names = append(names, rec[0])
	}
	return names
}
