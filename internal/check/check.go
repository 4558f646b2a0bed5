// Package check provides system diagnostics (the check command) and
// pre-run dependency validation for ffmpeg, ffprobe, the recording and
// clip encoders, and the recordings directory.
package check

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/yannisouraghi/nexra-vision/internal/config"
	"github.com/yannisouraghi/nexra-vision/internal/watcher"
)

// Sentinel errors returned by CheckDeps when a required tool or encoder is
// missing.
var (
	ErrFfmpegNotFound   = errors.New("ffmpeg not found on PATH")
	ErrFfprobeNotFound  = errors.New("ffprobe not found on PATH")
	ErrVP9EncodeFailed  = errors.New("libvpx-vp9 test encode failed (recording codec unusable)")
	ErrX264EncodeFailed = errors.New("libx264 test encode failed (clip codec unusable)")
	ErrDirNotWritable   = errors.New("recordings directory is not writable")
)

// Logger is the minimal logging interface needed by RunCheck. Defined here
// rather than importing the logging package so that check stays
// dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
}

// RunCheck runs the interactive check flow: prints availability of ffmpeg,
// ffprobe, the VP9 and x264 encoders, the process lister, and the
// recordings directory. Informational only; it does not stop on failure.
func RunCheck(cfg *config.Config, log Logger) {
	log.Info("=== System Check ===")

	checkFfmpeg(log)
	checkFfprobe(log)
	checkEncoder(log, "libvpx-vp9", "recording")
	checkEncoder(log, "libx264", "clip")
	checkProcessLister(cfg, log)
	checkRecordingsDir(cfg, log)
	checkRemoteAPIs(cfg, log)
}

func checkFfmpeg(log Logger) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		log.Error("ffmpeg not found")
		return
	}
	cmd := exec.Command("ffmpeg", "-version")
	out, err := cmd.Output()
	if err != nil {
		log.Warn("ffmpeg found but -version failed: %v", err)
		return
	}
	firstLine := strings.TrimSpace(string(out))
	if idx := strings.Index(firstLine, "\n"); idx > 0 {
		firstLine = firstLine[:idx]
	}
	log.Success("ffmpeg: %s", firstLine)
}

func checkFfprobe(log Logger) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		log.Error("ffprobe not found")
		return
	}
	log.Success("ffprobe found")
}

// checkEncoder runs a minimal test encode with the given video codec.
func checkEncoder(log Logger, codec, role string) {
	log.Info("Testing %s (%s codec)...", codec, role)
	if runSilent("ffmpeg", encoderTestArgs(codec)...) {
		log.Success("%s works", codec)
	} else {
		log.Error("%s test encode failed", codec)
	}
}

// checkProcessLister verifies the platform process enumeration works by
// running one poll against it.
func checkProcessLister(cfg *config.Config, log Logger) {
	procs, err := watcher.NewPlatformLister().List(context.Background())
	if err != nil {
		log.Error("Process listing failed: %v", err)
		return
	}
	log.Success("Process listing works (%d processes)", len(procs))
	if watcher.Matches(procs, cfg.TargetProcess) {
		log.Info("  %s is running right now", cfg.TargetProcess)
	}
}

// checkRecordingsDir verifies the recordings directory exists and accepts
// writes.
func checkRecordingsDir(cfg *config.Config, log Logger) {
	if err := writableDir(cfg.RecordingsDir); err != nil {
		log.Error("Recordings dir %s: %v", cfg.RecordingsDir, err)
		return
	}
	log.Success("Recordings dir writable: %s", cfg.RecordingsDir)
}

// checkRemoteAPIs probes the analysis and match API endpoints. Skipped for
// unlinked accounts, where neither endpoint is ever called.
func checkRemoteAPIs(cfg *config.Config, log Logger) {
	if !cfg.Linked() {
		log.Info("No account linked, skipping remote API checks")
		return
	}
	checkEndpoint(log, "analysis API", cfg.APIBaseURL)
	checkEndpoint(log, "match API", cfg.MatchAPIBaseURL)
}

func checkEndpoint(log Logger, name, baseURL string) {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(baseURL)
	if err != nil {
		log.Warn("%s unreachable (%s): %v", name, baseURL, err)
		return
	}
	resp.Body.Close()
	log.Success("%s reachable: %s", name, baseURL)
}

// CheckDeps is the pre-run validation: ffmpeg and ffprobe must be on PATH,
// both encoders must pass a short test encode, and the recordings
// directory must accept writes. Returns a sentinel error on failure.
func CheckDeps(cfg *config.Config) error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return ErrFfmpegNotFound
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return ErrFfprobeNotFound
	}
	if !runSilent("ffmpeg", encoderTestArgs("libvpx-vp9")...) {
		return ErrVP9EncodeFailed
	}
	if !runSilent("ffmpeg", encoderTestArgs("libx264")...) {
		return ErrX264EncodeFailed
	}
	if err := writableDir(cfg.RecordingsDir); err != nil {
		return ErrDirNotWritable
	}
	return nil
}

// encoderTestArgs returns the ffmpeg arguments for a minimal test encode
// with the given codec. Shared by RunCheck and CheckDeps.
func encoderTestArgs(codec string) []string {
	return []string{
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-f", "lavfi", "-i", "color=black:s=256x256:d=0.1",
		"-c:v", codec,
		"-f", "null", "-",
	}
}

// writableDir creates dir if needed and verifies a file can be written in
// it.
func writableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	probe := filepath.Join(dir, ".write-check")
	if err := os.WriteFile(probe, nil, 0o644); err != nil {
		return err
	}
	return os.Remove(probe)
}

// runSilent runs a command and returns true if it exits with status 0.
func runSilent(name string, args ...string) bool {
	cmd := exec.Command(name, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Run() == nil
}
