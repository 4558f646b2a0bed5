package capture

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FFmpegRecorder is the default Recorder adapter: an ffmpeg display grab
// writing VP9/WebM to a temp file that is read back and removed on Stop.
// The grab input device is platform-specific (gdigrab / x11grab).
type FFmpegRecorder struct {
	mu       sync.Mutex
	cmd      *exec.Cmd
	outPath  string
	stderr   bytes.Buffer
	tempDir  string
	stopWait time.Duration
}

// NewFFmpegRecorder returns a recorder writing its in-flight file under
// tempDir (os.TempDir() when empty).
func NewFFmpegRecorder(tempDir string) *FFmpegRecorder {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &FFmpegRecorder{tempDir: tempDir, stopWait: 10 * time.Second}
}

func (r *FFmpegRecorder) Start(ctx context.Context, src Source) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd != nil {
		return &CaptureError{Op: "start", Err: errors.New("recorder already running")}
	}

	r.outPath = filepath.Join(r.tempDir, uuid.New().String()+".webm")
	args := append(grabArgs(src), "-c:v", "libvpx-vp9", "-deadline", "realtime", "-cpu-used", "8", "-an", r.outPath)

	cmd := exec.Command("ffmpeg", append([]string{"-hide_banner", "-nostdin", "-y"}, args...)...)
	r.stderr.Reset()
	cmd.Stderr = &r.stderr

	if err := cmd.Start(); err != nil {
		r.outPath = ""
		return &CaptureError{Op: "start", Err: err}
	}
	r.cmd = cmd
	return nil
}

func (r *FFmpegRecorder) Stop(ctx context.Context) ([]byte, error) {
	r.mu.Lock()
	cmd := r.cmd
	outPath := r.outPath
	r.cmd = nil
	r.outPath = ""
	r.mu.Unlock()

	if cmd == nil {
		return nil, &CaptureError{Op: "stop", Err: errors.New("recorder not running")}
	}
	defer os.Remove(outPath)

	// Graceful stop so ffmpeg finalizes the container; hard kill only if
	// it refuses to exit.
	_ = interruptProcess(cmd)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(r.stopWait):
		_ = cmd.Process.Kill()
		<-done
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, &CaptureError{Op: "stop", Err: err}
	}
	if len(data) == 0 {
		return nil, &CaptureError{Op: "stop", Err: errors.New("empty capture stream")}
	}
	return data, nil
}
