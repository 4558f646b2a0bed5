package clips

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/yannisouraghi/nexra-vision/internal/logging"
	"github.com/yannisouraghi/nexra-vision/internal/probe"
)

// runFunc executes one external transcode command and returns captured
// stderr. Swapped for a fake in tests.
type runFunc func(ctx context.Context, name string, args ...string) (string, error)

func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf
	err := cmd.Run()
	return stderrBuf.String(), err
}

// Pipeline extracts prioritized sub-clips from a full recording in
// fixed-size batches. Batches run sequentially; within a batch every clip
// transcodes concurrently. A clip whose extraction fails is dropped and
// logged, never fatal.
type Pipeline struct {
	log          *logging.Logger
	batchSize    int
	clipDuration time.Duration

	run   runFunc
	probe func(ctx context.Context, path string) (float64, error)
}

// NewPipeline returns a Pipeline with the given batch size and default
// clip duration (applied when a spec carries none).
func NewPipeline(log *logging.Logger, batchSize int, clipDuration time.Duration) *Pipeline {
	return &Pipeline{
		log:          log,
		batchSize:    batchSize,
		clipDuration: clipDuration,
		run:          runCommand,
		probe:        probe.Duration,
	}
}

// Extract transcodes every spec into an independent file under outDir and
// returns the clips that succeeded, in priority order. The full sorted list
// is processed; partial failure shrinks the result, it never aborts.
func (p *Pipeline) Extract(ctx context.Context, fullVideo string, specs []Spec, outDir string) []Extracted {
	if len(specs) == 0 {
		return nil
	}

	totalDuration, err := p.probe(ctx, fullVideo)
	if err != nil {
		p.log.Warn("Cannot probe recording duration, clip bounds unclamped: %v", err)
		totalDuration = 0
	}

	sorted := make([]Spec, len(specs))
	copy(sorted, specs)
	SortByPriority(sorted)

	p.log.Info("Extracting %d clips in batches of %d", len(sorted), p.batchSize)

	results := make([]*Extracted, len(sorted))
	for start := 0; start < len(sorted); start += p.batchSize {
		if ctx.Err() != nil {
			p.log.Warn("Interrupted, %d clips not extracted", len(sorted)-start)
			break
		}

		end := start + p.batchSize
		if end > len(sorted) {
			end = len(sorted)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = p.extractOne(ctx, fullVideo, sorted[i], i, totalDuration, outDir)
			}(i)
		}
		wg.Wait()
	}

	var out []Extracted
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}

	if dropped := len(sorted) - len(out); dropped > 0 {
		p.log.Warn("Extracted %d/%d clips (%d dropped)", len(out), len(sorted), dropped)
	} else {
		p.log.Success("Extracted %d clips", len(out))
	}
	return out
}

// extractOne transcodes a single clip. Returns nil on failure; the reason
// is classified from stderr and logged.
func (p *Pipeline) extractOne(ctx context.Context, fullVideo string, spec Spec, index int, totalDuration float64, outDir string) *Extracted {
	if spec.Duration <= 0 {
		spec.Duration = p.clipDuration.Seconds()
	}
	duration := spec.Duration

	outPath := filepath.Join(outDir, fmt.Sprintf("clip_%03d_%s.mp4", index, spec.Type))
	args := BuildArgs(fullVideo, spec.StartTime, duration, totalDuration, outPath)

	stderr, err := p.run(ctx, "ffmpeg", args...)
	if err != nil {
		p.log.Warn("Clip %d (%s/%s at %.1fs) dropped: %s failure: %v",
			index, spec.Type, spec.Severity, spec.StartTime,
			ClassifyTranscodeFailure(stderr), err)
		return nil
	}

	p.log.Debug("Clip %d extracted: %s", index, filepath.Base(outPath))
	return &Extracted{Spec: spec, Index: index, LocalPath: outPath}
}
