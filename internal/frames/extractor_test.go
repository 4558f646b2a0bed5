package frames

import (
	"context"
	"encoding/base64"
	"errors"
	"math"
	"os"
	"testing"

	"github.com/yannisouraghi/nexra-vision/internal/config"
	"github.com/yannisouraghi/nexra-vision/internal/logging"
	"github.com/yannisouraghi/nexra-vision/internal/probe"
)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.ColorMode = config.ColorNever
	l, err := logging.NewLogger(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	return NewExtractor(l)
}

// fakeRun writes payload to the output path (last arg) to simulate ffmpeg
// producing a frame.
func fakeRun(payload []byte, failAt map[int]bool) runFunc {
	call := 0
	return func(ctx context.Context, name string, args ...string) (string, error) {
		call++
		if failAt[call] {
			return "some ffmpeg noise", errors.New("exit status 1")
		}
		return "", os.WriteFile(args[len(args)-1], payload, 0644)
	}
}

func TestSample_EvenSpacing(t *testing.T) {
	e := newTestExtractor(t)
	e.probe = func(ctx context.Context, path string) (float64, error) { return 20, nil }

	var timestamps []string
	e.run = func(ctx context.Context, name string, args ...string) (string, error) {
		for i, a := range args {
			if a == "-ss" {
				timestamps = append(timestamps, args[i+1])
			}
		}
		return "", os.WriteFile(args[len(args)-1], []byte("jpeg"), 0644)
	}

	samples, err := e.Sample(context.Background(), "/clips/clip_000.mp4", t.TempDir(), 3)
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("got %d samples, want 3", len(samples))
	}

	// duration 20, count 3: interval 5, samples at 5, 10, 15.
	want := []float64{5, 10, 15}
	for i, w := range want {
		if math.Abs(samples[i].TimestampSeconds-w) > 1e-9 {
			t.Errorf("samples[%d].TimestampSeconds = %v, want %v", i, samples[i].TimestampSeconds, w)
		}
	}
	wantSS := []string{"5.000", "10.000", "15.000"}
	for i, w := range wantSS {
		if timestamps[i] != w {
			t.Errorf("ffmpeg -ss[%d] = %q, want %q", i, timestamps[i], w)
		}
	}
}

func TestSample_SkipsFailedFrames(t *testing.T) {
	e := newTestExtractor(t)
	e.probe = func(ctx context.Context, path string) (float64, error) { return 20, nil }
	e.run = fakeRun([]byte("jpeg"), map[int]bool{2: true})

	samples, err := e.Sample(context.Background(), "/clips/clip_000.mp4", t.TempDir(), 3)
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	if len(samples) != 2 {
		t.Errorf("got %d samples, want 2 (middle frame skipped)", len(samples))
	}
}

func TestSample_ProbeFailureIsFatal(t *testing.T) {
	e := newTestExtractor(t)
	e.probe = func(ctx context.Context, path string) (float64, error) {
		return 0, &probe.ProbeError{Path: path, Err: errors.New("bad container")}
	}

	_, err := e.Sample(context.Background(), "/clips/broken.mp4", t.TempDir(), 3)
	var perr *probe.ProbeError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *probe.ProbeError", err)
	}
}

func TestSample_Base64Payload(t *testing.T) {
	e := newTestExtractor(t)
	e.probe = func(ctx context.Context, path string) (float64, error) { return 10, nil }
	e.run = fakeRun([]byte{0xFF, 0xD8, 0xFF}, nil)

	samples, err := e.Sample(context.Background(), "/clips/clip_000.mp4", t.TempDir(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 1 {
		t.Fatalf("got %d samples, want 1", len(samples))
	}
	decoded, err := base64.StdEncoding.DecodeString(samples[0].Base64Data)
	if err != nil {
		t.Fatalf("payload is not valid base64: %v", err)
	}
	if len(decoded) != 3 || decoded[0] != 0xFF {
		t.Errorf("decoded payload = %v, want the jpeg bytes", decoded)
	}
}
