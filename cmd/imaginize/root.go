package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tribixbite/imaginize/internal/aiclient"
	"github.com/tribixbite/imaginize/internal/config"
	"github.com/tribixbite/imaginize/internal/events"
	"github.com/tribixbite/imaginize/internal/ierrors"
	"github.com/tribixbite/imaginize/internal/scheduler"
	"github.com/tribixbite/imaginize/version"
)

var (
	cfgFile  string
	homeDir  string
	logLevel string
)

// ParseLogLevel converts a string log level to slog.Level. Supports
// debug/info/warn/error, case-insensitively.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: must be debug, info, warn, or error", level)
	}
}

// GetLogLevel resolves the configured log level: the --log-level flag,
// then IMAGINIZE_LOG_LEVEL, then "info".
func GetLogLevel() slog.Level {
	level := logLevel
	if level == "" {
		level = os.Getenv("IMAGINIZE_LOG_LEVEL")
	}
	if level == "" {
		level = "info"
	}
	parsed, err := ParseLogLevel(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using info\n", err)
		return slog.LevelInfo
	}
	return parsed
}

var rootCmd = &cobra.Command{
	Use:   "imaginize",
	Short: "Turns a long-form book into a scene catalog, entity catalog, and generated illustrations",
	Long: `imaginize is a book-illustration pipeline: it reads a parsed book chapter by
chapter, asks a model for illustration-worthy scenes and the story objects
that appear in them, reconciles those objects into a single Elements
Catalog, then generates one image per scene.

The pipeline runs in three phases:
  - analyze:    per-chapter scene/entity extraction
  - extract:    catalog consolidation and markdown emission
  - illustrate: per-scene image generation`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.imaginize/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "imaginize home directory (default: ~/.imaginize)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default: info, env: IMAGINIZE_LOG_LEVEL)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(illustrateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(seriesCmd)
	rootCmd.AddCommand(compileCmd)
}

// logger builds the process-wide slog.Logger from the resolved log level
// and the loaded config's format.
func logger(cfg *config.Config) *slog.Logger {
	level := GetLogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if cfg != nil && cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// loadConfig builds a config.Manager from --config, watching for changes.
func loadConfig() (*config.Manager, error) {
	mgr, err := config.NewManager(cfgFile)
	if err != nil {
		return nil, ierrors.New(ierrors.KindAuthOrConfig, "main.loadConfig", err).WithPath(cfgFile)
	}
	mgr.WatchConfig()
	return mgr, nil
}

// buildClient constructs the single AI client a book run needs from cfg,
// registered under its provider name. No OnChange callback is installed,
// so a config reload does not replace the client.
func buildClient(cfg *config.Config, log *slog.Logger) (*aiclient.Registry, aiclient.Client, error) {
	reg := aiclient.NewRegistry()
	reg.SetLogger(log)

	client := aiclient.NewOpenAIClient(cfg.AI.Provider, aiclient.OpenAIConfig{
		APIKey:     cfg.ResolvedAPIKey(),
		BaseURL:    cfg.AI.BaseURL,
		ChatModel:  cfg.AI.Model,
		ImageModel: cfg.AI.ImageModel,
		MaxRetries: cfg.Scheduler.MaxRetries,
	})
	reg.Register(client)

	return reg, client, nil
}

// buildScheduler constructs the rate-limit scheduler from cfg, falling
// back to scheduler.DetectTier when no tier is configured. bus receives
// the scheduler's rate-limit events so they reach progress.md alongside
// every other phase event.
func buildScheduler(cfg *config.Config, log *slog.Logger, bus *events.Bus) *scheduler.Scheduler {
	tier := scheduler.Tier(cfg.Scheduler.Tier)
	if tier == "" {
		tier = scheduler.DetectTier(cfg.AI.Model, cfg.AI.BaseURL)
	}
	return scheduler.New(scheduler.Config{
		MaxConcurrency: cfg.Scheduler.MaxConcurrency,
		Tier:           tier,
		MaxRetries:     cfg.Scheduler.MaxRetries,
		RateLimitFloor: time.Duration(cfg.Scheduler.RateLimitFloorSeconds * float64(time.Second)),
		Logger:         log,
		Bus:            bus,
	})
}

// bookEventLog wires a Bus to this book dir's progress.md, returning the
// Recorder so the caller can Stop it once the phase invocation returns.
func bookEventLog(bookDir string, bus *events.Bus) *events.Recorder {
	return events.NewRecorder(bus, events.NewLog(filepath.Join(bookDir, "progress.md")))
}

// exitCodeFor maps a command's returned error to a process exit code. A
// bare cobra usage error (flag parsing, unknown command) that never
// reached ierrors-tagged application logic falls back to 2.
func exitCodeFor(err error) int {
	if kind := ierrors.KindOf(err); kind != "" {
		return ierrors.ExitCode(kind)
	}
	return 2
}
