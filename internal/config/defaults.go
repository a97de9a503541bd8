package config

// DefaultConfig returns imaginize's zero-run configuration: the values
// every field takes when no config file and no environment variable
// override it.
func DefaultConfig() *Config {
	return &Config{
		AI: AIConfig{
			Provider:       "openai",
			Model:          "gpt-5",
			ImageModel:     "gpt-image-1",
			ImageSize:      "1024x1024",
			APIKey:         "${OPENAI_API_KEY}",
			Temperature:    0.7,
			MaxTokens:      4096,
			TimeoutSeconds: 120,
		},
		Scheduler: SchedulerConfig{
			Tier:                  "paid",
			MaxConcurrency:        4,
			MaxRetries:            10,
			RateLimitFloorSeconds: 65,
		},
		Pipeline: PipelineConfig{
			PagesPerImage:           1,
			NumScenesTarget:         3,
			MatchConfidence:         0.7,
			MergeStrategy:           "enrich",
			AIDescriptionEnrichment: false,
			ChapterTitleSlug:        true,
			ContinueOnFailure:       false,
		},
		Series: SeriesSettings{
			Enabled: false,
			Root:    "",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
