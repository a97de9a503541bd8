package config

// Config is imaginize's process configuration: the AI provider it talks
// to, the scheduler's rate-limit tier, the pipeline's per-phase tuning
// knobs, series-memory sharing, and logging. Loaded and hot-reloaded by
// Manager (config.go); DefaultConfig (defaults.go) supplies every field's
// zero-run value.
type Config struct {
	AI        AIConfig        `mapstructure:"ai"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Series    SeriesSettings  `mapstructure:"series"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AIConfig configures the aiclient.Client used for analysis, entity
// resolution, and image generation.
type AIConfig struct {
	Provider       string  `mapstructure:"provider"`
	Model          string  `mapstructure:"model"`
	ImageModel     string  `mapstructure:"image_model"`
	ImageSize      string  `mapstructure:"image_size"`
	APIKey         string  `mapstructure:"api_key"`
	BaseURL        string  `mapstructure:"base_url"`
	Temperature    float64 `mapstructure:"temperature"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// SchedulerConfig configures internal/scheduler's rate-limit behavior.
// Tier is the authoritative source for free-tier floor/concurrency; a
// blank Tier falls back to scheduler.DetectTier's ":free"-substring
// heuristic at scheduler construction time.
type SchedulerConfig struct {
	Tier                  string  `mapstructure:"tier"`
	MaxConcurrency        int     `mapstructure:"max_concurrency"`
	MaxRetries            int     `mapstructure:"max_retries"`
	RateLimitFloorSeconds float64 `mapstructure:"rate_limit_floor_seconds"`
}

// PipelineConfig configures the three phase drivers.
type PipelineConfig struct {
	PagesPerImage           int     `mapstructure:"pages_per_image"`
	NumScenesTarget         int     `mapstructure:"num_scenes_target"`
	MatchConfidence         float64 `mapstructure:"match_confidence"`
	MergeStrategy           string  `mapstructure:"merge_strategy"`
	AIDescriptionEnrichment bool    `mapstructure:"ai_description_enrichment"`
	ChapterTitleSlug        bool    `mapstructure:"chapter_title_slug"`
	ContinueOnFailure       bool    `mapstructure:"continue_on_failure"`
}

// SeriesSettings toggles the series catalog bridge and
// names the shared series root directory. Distinct from
// internal/seriesconfig.SeriesConfig, which is the per-series JSON
// document this feature reads and writes.
type SeriesSettings struct {
	Enabled bool   `mapstructure:"enabled"`
	Root    string `mapstructure:"root"`
}

// LoggingConfig configures the process-wide slog.Logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "text" or "json"
}
