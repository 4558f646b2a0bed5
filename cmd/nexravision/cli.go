package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/urfave/cli/v2"

	"github.com/yannisouraghi/nexra-vision/internal/capture"
	"github.com/yannisouraghi/nexra-vision/internal/check"
	"github.com/yannisouraghi/nexra-vision/internal/clips"
	"github.com/yannisouraghi/nexra-vision/internal/config"
	"github.com/yannisouraghi/nexra-vision/internal/display"
	"github.com/yannisouraghi/nexra-vision/internal/frames"
	"github.com/yannisouraghi/nexra-vision/internal/logging"
	"github.com/yannisouraghi/nexra-vision/internal/matchapi"
	"github.com/yannisouraghi/nexra-vision/internal/metrics"
	"github.com/yannisouraghi/nexra-vision/internal/retention"
	"github.com/yannisouraghi/nexra-vision/internal/session"
	"github.com/yannisouraghi/nexra-vision/internal/store"
	"github.com/yannisouraghi/nexra-vision/internal/upload"
	"github.com/yannisouraghi/nexra-vision/internal/watcher"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp() *cli.App {
	return &cli.App{
		Name:    "nexravision",
		Usage:   "Game session recorder and analysis uploader",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env-file", Usage: "Path to a .env file (default: ./.env if present)"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Enable debug logging"},
			&cli.StringFlag{Name: "log-file", Usage: "Also write logs to this file"},
			&cli.StringFlag{Name: "color", Usage: "Color output: auto|always|never"},
			&cli.StringFlag{Name: "recordings-dir", Usage: "Where recordings and the index live"},
			&cli.StringFlag{Name: "account", Usage: "Linked account id (empty keeps recordings local)"},
			&cli.StringFlag{Name: "region", Usage: "Account region"},
			&cli.StringFlag{Name: "metrics-addr", Usage: "Serve /metrics and /healthz on this address"},
		},
		Commands: []*cli.Command{
			runCmd(),
			checkCmd(),
			listCmd(),
			reanalyzeCmd(),
		},
	}
}

// loadConfig layers defaults, the .env file, environment variables, and
// CLI flag overrides, then validates.
func loadConfig(c *cli.Context) (config.Config, error) {
	if f := c.String("env-file"); f != "" {
		if err := config.Load(f); err != nil {
			return config.Config{}, fmt.Errorf("env file %s: %w", f, err)
		}
	} else {
		config.Load() // optional ./.env
	}

	cfg := config.DefaultConfig()
	config.FromEnv(&cfg)

	if c.Bool("verbose") {
		cfg.Verbose = true
	}
	if s := c.String("log-file"); s != "" {
		cfg.LogFile = s
	}
	if s := c.String("color"); s != "" {
		cfg.ColorMode = config.ColorMode(s)
	}
	if s := c.String("recordings-dir"); s != "" {
		cfg.RecordingsDir = s
	}
	if s := c.String("account"); s != "" {
		cfg.AccountID = s
	}
	if s := c.String("region"); s != "" {
		cfg.Region = s
	}
	if s := c.String("metrics-addr"); s != "" {
		cfg.MetricsAddr = s
	}

	if cfg.RecordingsDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return config.Config{}, fmt.Errorf("resolve home dir: %w", err)
		}
		cfg.RecordingsDir = filepath.Join(home, ".nexravision", "recordings")
	}
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = filepath.Join(os.TempDir(), "nexravision")
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func runCmd() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Watch for the game process and record sessions",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			log, err := logging.NewLogger(&cfg)
			if err != nil {
				return err
			}
			defer log.Close()

			display.PrintBanner()
			log.Info("=== NexraVision v%s ===", version)

			if err := check.CheckDeps(&cfg); err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.ScratchDir, 0o755); err != nil {
				return fmt.Errorf("scratch dir: %w", err)
			}

			db, err := store.Init(cfg.RecordingsDir)
			if err != nil {
				return err
			}
			defer db.Close()

			met := metrics.New()
			if cfg.MetricsAddr != "" {
				go serveMetrics(cfg.MetricsAddr, met, log)
			}

			ret := retention.NewManager(cfg.RecordingsDir, cfg.MaxLocalRecordings, db, log)
			extractor := clips.NewPipeline(log, cfg.ClipBatchSize, cfg.ClipDuration)

			var fetcher session.MatchFetcher
			var timelines session.TimelineFetcher
			var uploader session.Uploader
			if cfg.Linked() {
				mc := matchapi.NewClient(cfg.MatchAPIBaseURL, cfg.HTTPTimeout)
				fetcher = matchapi.NewFetcher(mc, cfg.MatchSettleDelay, cfg.MatchTolerance, log)
				timelines = mc
				uploader = upload.NewCoordinator(
					upload.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout),
					frames.NewExtractor(log), log,
					cfg.AccountID, cfg.Region,
					cfg.UploadWorkers, cfg.FrameCount, cfg.CleanupDelay,
				)
				log.Info("Linked account: %s (%s)", cfg.AccountID, cfg.Region)
			} else {
				log.Warn("No account linked; recordings stay local")
			}

			pipe := session.NewPipeline(&cfg, log, met, db, fetcher, timelines, extractor, uploader, ret, nil)
			mgr := session.NewManager(session.Options{
				Config:   &cfg,
				Log:      log,
				Metrics:  met,
				DB:       db,
				Recorder: capture.NewFFmpegRecorder(cfg.ScratchDir),
				Sources:  capture.ScreenLister{},
				Pipeline: pipe,
			})

			w := watcher.New(watcher.NewPlatformLister(), cfg.TargetProcess, cfg.CheckInterval, log)
			w.OnStarted = mgr.HandleStarted
			w.OnEnded = mgr.HandleEnded

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info("Watching for %q every %s", cfg.TargetProcess, cfg.CheckInterval)
			w.Run(ctx)

			// Flush an in-flight capture before exiting.
			mgr.StopManual()
			log.Info("Shutting down")
			return nil
		},
	}
}

func checkCmd() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Verify ffmpeg, encoders, process listing and the recordings dir",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			log, err := logging.NewLogger(&cfg)
			if err != nil {
				return err
			}
			defer log.Close()
			check.RunCheck(&cfg, log)
			return nil
		},
	}
}

func listCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List local recordings, newest first",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			db, err := store.Init(cfg.RecordingsDir)
			if err != nil {
				return err
			}
			defer db.Close()

			rows, err := store.List(db)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Println("no recordings")
				return nil
			}
			for _, r := range rows {
				status := "local"
				if !r.UploadedAt.IsZero() {
					status = "uploaded"
				}
				match := r.MatchID
				if match == "" {
					match = "-"
				}
				fmt.Printf("%s  %8s  %9s  match=%s  %s\n",
					r.ID,
					display.FormatDuration(time.Duration(r.DurationSeconds*float64(time.Second))),
					display.FormatBytes(r.SizeBytes),
					match,
					status,
				)
			}
			return nil
		},
	}
}

func reanalyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "reanalyze",
		Usage:     "Re-run analysis for a recording by id or file path",
		ArgsUsage: "<recording-id | path>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected a recording id or path")
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if !cfg.Linked() {
				return fmt.Errorf("no account linked, set NEXRA_ACCOUNT_ID or --account")
			}
			log, err := logging.NewLogger(&cfg)
			if err != nil {
				return err
			}
			defer log.Close()

			db, err := store.Init(cfg.RecordingsDir)
			if err != nil {
				return err
			}
			defer db.Close()

			rec, err := store.GetByID(db, c.Args().First())
			if err != nil {
				rec, err = store.GetByPath(db, c.Args().First())
			}
			if err != nil {
				return fmt.Errorf("recording %s: %w", c.Args().First(), err)
			}
			if rec.MatchID == "" {
				return fmt.Errorf("recording %s was never reconciled to a match", rec.ID)
			}

			var timeline *matchapi.Timeline
			mc := matchapi.NewClient(cfg.MatchAPIBaseURL, cfg.HTTPTimeout)
			timeline, err = mc.Timeline(c.Context, rec.MatchID, cfg.AccountID, cfg.Region)
			if err != nil {
				log.Warn("Timeline fetch failed, reanalyzing without events: %v", err)
			}

			coord := upload.NewCoordinator(
				upload.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout),
				frames.NewExtractor(log), log,
				cfg.AccountID, cfg.Region,
				cfg.UploadWorkers, cfg.FrameCount, cfg.CleanupDelay,
			)
			return coord.Reanalyze(c.Context, rec.MatchID, rec.Path, nil, timeline)
		},
	}
}

// serveMetrics exposes the prometheus registry and a liveness endpoint.
func serveMetrics(addr string, met *metrics.Metrics, log *logging.Logger) {
	r := chi.NewRouter()
	r.Handle("/metrics", met.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	log.Info("Metrics listening on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Error("Metrics server: %v", err)
	}
}
