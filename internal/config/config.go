// Package config holds runtime configuration: defaults, environment loading,
// and validation.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Config holds all runtime settings. It is populated by [DefaultConfig],
// then overlaid by [FromEnv] and CLI flags before being passed (by pointer)
// to packages that need it. Fields are grouped by concern with inline
// documentation of defaults.
type Config struct {
	// Paths.
	RecordingsDir string // Persisted recordings + index db.
	ScratchDir    string // Per-upload scratch workspaces.

	// Process detection.
	TargetProcess string        // Executable display name, substring matched. Default: "League of Legends.exe".
	GameName      string        // Human game name, used for capture-source selection.
	CheckInterval time.Duration // Process poll interval. Default: 3s.

	// Session behavior.
	AutoRecord     bool          // Default: true. Skip the consent prompt.
	GraceDelay     time.Duration // Wait after detection before capture starts. Default: 5s.
	ConsentTimeout time.Duration // Auto-decline window for the consent prompt. Default: 15s.

	// Linked account.
	AccountID string // Remote account id; empty means unlinked.
	Region    string // Default: "na".

	// Match reconciliation.
	MatchSettleDelay time.Duration // Wait after capture end before the match fetch. Default: 30s.
	MatchTolerance   time.Duration // Backward timestamp tolerance. Default: 5m.

	// Retention.
	MinGameDuration    time.Duration // Sessions shorter than this are remakes. Default: 15m.
	MaxLocalRecordings int           // Default: 3.

	// Clip extraction.
	ClipBatchSize int           // Clips transcoded concurrently per batch. Default: 4.
	ClipDuration  time.Duration // Default clip length when a spec omits one. Default: 20s.
	FrameCount    int           // Frames sampled per clip for upload. Default: 3.

	// Upload.
	APIBaseURL      string        // Remote analysis API base URL.
	MatchAPIBaseURL string        // Remote match stats API base URL.
	UploadWorkers   int           // Bounded clip-upload pool size. Default: 3.
	CleanupDelay    time.Duration // Deferred scratch-workspace teardown. Default: 60s.
	HTTPTimeout     time.Duration // Per-request timeout. Default: 30s.

	// Display and logging.
	Verbose     bool
	ColorMode   ColorMode // Default: "auto".
	LogFile     string    // Optional log file path.
	MetricsAddr string    // Serve /metrics and /healthz when non-empty (e.g. "127.0.0.1:9621").
}

// DefaultConfig returns a Config with all defaults. Used as the base before
// [FromEnv] and CLI flags apply overrides.
func DefaultConfig() Config {
	return Config{
		TargetProcess:      "League of Legends.exe",
		GameName:           "League of Legends",
		CheckInterval:      3 * time.Second,
		AutoRecord:         true,
		GraceDelay:         5 * time.Second,
		ConsentTimeout:     15 * time.Second,
		Region:             "na",
		MatchSettleDelay:   30 * time.Second,
		MatchTolerance:     5 * time.Minute,
		MinGameDuration:    15 * time.Minute,
		MaxLocalRecordings: 3,
		ClipBatchSize:      4,
		ClipDuration:       20 * time.Second,
		FrameCount:         3,
		APIBaseURL:         "https://api.nexravision.gg",
		MatchAPIBaseURL:    "https://api.nexravision.gg",
		UploadWorkers:      3,
		CleanupDelay:       60 * time.Second,
		HTTPTimeout:        30 * time.Second,
		ColorMode:          ColorAuto,
	}
}

// FromEnv overlays environment variables onto cfg. Call after [Load] so a
// .env file is visible. Unset variables leave the current values intact.
func FromEnv(cfg *Config) {
	cfg.RecordingsDir = GetEnv("RECORDINGS_DIR", cfg.RecordingsDir)
	cfg.ScratchDir = GetEnv("SCRATCH_DIR", cfg.ScratchDir)
	cfg.TargetProcess = GetEnv("TARGET_PROCESS", cfg.TargetProcess)
	cfg.GameName = GetEnv("GAME_NAME", cfg.GameName)
	cfg.CheckInterval = GetEnvDuration("CHECK_INTERVAL", cfg.CheckInterval)
	cfg.AutoRecord = GetEnvBool("AUTO_RECORD", cfg.AutoRecord)
	cfg.GraceDelay = GetEnvDuration("GRACE_DELAY", cfg.GraceDelay)
	cfg.ConsentTimeout = GetEnvDuration("CONSENT_TIMEOUT", cfg.ConsentTimeout)
	cfg.AccountID = GetEnv("ACCOUNT_ID", cfg.AccountID)
	cfg.Region = GetEnv("REGION", cfg.Region)
	cfg.MatchSettleDelay = GetEnvDuration("MATCH_SETTLE_DELAY", cfg.MatchSettleDelay)
	cfg.MatchTolerance = GetEnvDuration("MATCH_TOLERANCE", cfg.MatchTolerance)
	cfg.MinGameDuration = GetEnvDuration("MIN_GAME_DURATION", cfg.MinGameDuration)
	cfg.MaxLocalRecordings = GetEnvInt("MAX_LOCAL_RECORDINGS", cfg.MaxLocalRecordings)
	cfg.ClipBatchSize = GetEnvInt("CLIP_BATCH_SIZE", cfg.ClipBatchSize)
	cfg.ClipDuration = GetEnvDuration("CLIP_DURATION", cfg.ClipDuration)
	cfg.FrameCount = GetEnvInt("FRAME_COUNT", cfg.FrameCount)
	cfg.APIBaseURL = GetEnv("API_BASE_URL", cfg.APIBaseURL)
	cfg.MatchAPIBaseURL = GetEnv("MATCH_API_BASE_URL", cfg.MatchAPIBaseURL)
	cfg.UploadWorkers = GetEnvInt("UPLOAD_WORKERS", cfg.UploadWorkers)
	cfg.CleanupDelay = GetEnvDuration("CLEANUP_DELAY", cfg.CleanupDelay)
	cfg.MetricsAddr = GetEnv("METRICS_ADDR", cfg.MetricsAddr)
	cfg.LogFile = GetEnv("LOG_FILE", cfg.LogFile)
}

// Validate checks enum fields and numeric bounds. RecordingsDir is required;
// the CLI fills it with a home-relative default before calling Validate.
func (c *Config) Validate() error {
	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return errors.New("invalid color mode (use 'auto', 'always' or 'never')")
	}

	if strings.TrimSpace(c.TargetProcess) == "" {
		return errors.New("target process name must not be empty")
	}
	if c.RecordingsDir == "" {
		return errors.New("recordings directory must not be empty")
	}
	if c.CheckInterval <= 0 {
		return errors.New("check interval must be positive")
	}
	if c.MaxLocalRecordings < 1 {
		return fmt.Errorf("max local recordings must be at least 1, got %d", c.MaxLocalRecordings)
	}
	if c.ClipBatchSize < 1 {
		return fmt.Errorf("clip batch size must be at least 1, got %d", c.ClipBatchSize)
	}
	if c.UploadWorkers < 1 {
		return fmt.Errorf("upload workers must be at least 1, got %d", c.UploadWorkers)
	}
	if c.FrameCount < 1 {
		return fmt.Errorf("frame count must be at least 1, got %d", c.FrameCount)
	}
	if c.ClipDuration <= 0 {
		return errors.New("clip duration must be positive")
	}
	return nil
}

// Linked reports whether a remote account is configured. An unlinked
// account disables match reconciliation but not recording.
func (c *Config) Linked() bool {
	return strings.TrimSpace(c.AccountID) != ""
}
