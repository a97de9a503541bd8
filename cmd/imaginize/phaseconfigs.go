package main

import (
	"github.com/tribixbite/imaginize/internal/catalog"
	"github.com/tribixbite/imaginize/internal/phase/analyze"
	"github.com/tribixbite/imaginize/internal/phase/extract"
	"github.com/tribixbite/imaginize/internal/phase/illustrate"
	"github.com/tribixbite/imaginize/internal/scheduler"
)

// analyzeConfigFor builds the per-phase Config the "run" command hands to
// pipeline.RunAll; BookDir/BookID/Bus/Logger/Metrics are filled in by the
// pipeline controller itself.
func analyzeConfigFor(rt *bookRuntime, chapters []int) analyze.Config {
	return analyze.Config{
		Scheduler:         rt.Scheduler,
		Client:            rt.Client,
		ClientCfg:         rt.clientConfig(),
		PagesPerImage:     rt.Config.Pipeline.PagesPerImage,
		Chapters:          chapters,
		Limit:             runFlags.limit,
		Force:             runFlags.force,
		ContinueOnFailure: runFlags.cont,
		MatchConfidence:   rt.Config.Pipeline.MatchConfidence,
	}
}

func extractConfigFor(rt *bookRuntime, enrich bool, strategy catalog.Strategy) extract.Config {
	return extract.Config{
		Client:                  rt.Client,
		ClientCfg:               rt.clientConfig(),
		Scheduler:               rt.Scheduler,
		AIDescriptionEnrichment: enrich || rt.Config.Pipeline.AIDescriptionEnrichment,
		MergeStrategy:           strategy,
		MatchConfidence:         rt.Config.Pipeline.MatchConfidence,
	}
}

func illustrateConfigFor(rt *bookRuntime, chapters []int, pool *scheduler.LocalPool) illustrate.Config {
	// Image generation uses the configured image model, not the chat model.
	clientCfg := rt.clientConfig()
	clientCfg.Model = rt.Config.AI.ImageModel
	return illustrate.Config{
		Scheduler:         rt.Scheduler,
		Client:            rt.Client,
		ClientCfg:         clientCfg,
		ImageSize:         rt.Config.AI.ImageSize,
		ChapterTitleSlug:  rt.Config.Pipeline.ChapterTitleSlug,
		Chapters:          chapters,
		Limit:             runFlags.limit,
		Force:             runFlags.force,
		ContinueOnFailure: runFlags.cont,
		LocalPool:         pool,
	}
}
