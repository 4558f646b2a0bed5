// Package frames samples representative still frames from an extracted clip
// for downstream visual analysis.
package frames

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/yannisouraghi/nexra-vision/internal/logging"
	"github.com/yannisouraghi/nexra-vision/internal/probe"
)

// Sample is one still frame: its offset into the clip and the JPEG bytes
// base64-encoded for the upload payload. Ephemeral, discarded after upload.
type Sample struct {
	TimestampSeconds float64
	Base64Data       string
}

type runFunc func(ctx context.Context, name string, args ...string) (string, error)

func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf
	err := cmd.Run()
	return stderrBuf.String(), err
}

// Extractor samples evenly spaced frames from clips. Individual sample
// failures are skipped; only a failed duration probe fails the whole call.
type Extractor struct {
	log *logging.Logger

	run   runFunc
	probe func(ctx context.Context, path string) (float64, error)
}

// NewExtractor returns a frame extractor.
func NewExtractor(log *logging.Logger) *Extractor {
	return &Extractor{
		log:   log,
		run:   runCommand,
		probe: probe.Duration,
	}
}

// Sample extracts count frames from clipPath into outDir, spaced at
// duration/(count+1) intervals so the very start and end are excluded.
// The returned set may be shorter than count; the call only fails when the
// duration probe does (a *probe.ProbeError).
func (e *Extractor) Sample(ctx context.Context, clipPath, outDir string, count int) ([]Sample, error) {
	duration, err := e.probe(ctx, clipPath)
	if err != nil {
		return nil, err
	}

	interval := duration / float64(count+1)
	samples := make([]Sample, 0, count)

	for i := 1; i <= count; i++ {
		ts := interval * float64(i)
		data, err := e.sampleOne(ctx, clipPath, outDir, ts)
		if err != nil {
			e.log.Warn("Frame at %.2fs skipped: %v", ts, err)
			continue
		}
		samples = append(samples, Sample{
			TimestampSeconds: ts,
			Base64Data:       base64.StdEncoding.EncodeToString(data),
		})
	}

	e.log.Debug("Sampled %d/%d frames from %s", len(samples), count, filepath.Base(clipPath))
	return samples, nil
}

// sampleOne grabs the frame at ts into a uuid-named JPEG and reads it back.
// The file is removed immediately; only the bytes travel on.
func (e *Extractor) sampleOne(ctx context.Context, clipPath, outDir string, ts float64) ([]byte, error) {
	outPath := filepath.Join(outDir, uuid.New().String()+".jpg")
	defer os.Remove(outPath)

	stderr, err := e.run(ctx, "ffmpeg",
		"-hide_banner", "-nostdin", "-y",
		"-ss", fmt.Sprintf("%.3f", ts),
		"-i", clipPath,
		"-frames:v", "1",
		"-q:v", "5",
		outPath,
	)
	if err != nil {
		if stderr != "" {
			return nil, fmt.Errorf("%w (%s)", err, lastLine(stderr))
		}
		return nil, err
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty frame at %.3fs", ts)
	}
	return data, nil
}

func lastLine(s string) string {
	lines := bytes.Split(bytes.TrimSpace([]byte(s)), []byte("\n"))
	return string(bytes.TrimSpace(lines[len(lines)-1]))
}
