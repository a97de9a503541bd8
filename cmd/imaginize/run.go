package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tribixbite/imaginize/internal/catalog"
	"github.com/tribixbite/imaginize/internal/chapterselect"
	"github.com/tribixbite/imaginize/internal/pipeline"
	"github.com/tribixbite/imaginize/internal/scheduler"
)

var runFlags struct {
	bookDir  string
	bookID   string
	source   string
	chapters string
	limit    int
	force    bool
	cont     bool
	enrich   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run analyze, extract, and illustrate in order",
	RunE: func(cmd *cobra.Command, args []string) error {
		book, err := loadBookFromSource(runFlags.source)
		if err != nil {
			return err
		}

		chapters, err := chapterselect.Parse(runFlags.chapters)
		if err != nil {
			return err
		}

		rt, err := newBookRuntime(runFlags.bookDir)
		if err != nil {
			return err
		}
		defer rt.Close()

		bookID := resolveBookID(runFlags.bookID, runFlags.bookDir)
		mergeStrategy := catalog.Strategy(rt.Config.Pipeline.MergeStrategy)

		result, err := pipeline.RunAll(cmd.Context(), book, pipeline.Config{
			BookDir:       runFlags.bookDir,
			BookID:        bookID,
			SeriesRoot:    rt.Config.Series.Root,
			SeriesEnabled: rt.Config.Series.Enabled,
			MergeStrategy: mergeStrategy,
			Bus:           rt.Bus,
			Logger:        rt.Logger,
			Metrics:       rt.Metrics,
			Analyze:       analyzeConfigFor(rt, chapters),
			Extract:       extractConfigFor(rt, runFlags.enrich, mergeStrategy),
			Illustrate:    illustrateConfigFor(rt, chapters, scheduler.NewLocalPool(0)),
		})
		if err != nil {
			return err
		}

		fmt.Printf("analyze: %d processed, %d failed\n", result.Analyze.ChaptersProcessed, result.Analyze.ChaptersFailed)
		fmt.Printf("extract: %d entities reconciled\n", result.Extract.EntitiesReconciled)
		fmt.Printf("illustrate: %d scenes processed, %d failed\n", result.Illustrate.ScenesProcessed, result.Illustrate.ScenesFailed)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runFlags.bookDir, "book", "", "book output directory (required)")
	runCmd.Flags().StringVar(&runFlags.bookID, "book-id", "", "book identifier (default: book dir base name)")
	runCmd.Flags().StringVar(&runFlags.source, "source", "", "path to a parsed JSON book manifest (required)")
	runCmd.Flags().StringVar(&runFlags.chapters, "chapters", "", "chapter selection expression, e.g. 1-3,5 (default: all)")
	runCmd.Flags().IntVar(&runFlags.limit, "limit", 0, "stop after this many chapters (0 = no limit)")
	runCmd.Flags().BoolVar(&runFlags.force, "force", false, "reprocess even if already completed")
	runCmd.Flags().BoolVar(&runFlags.cont, "continue", false, "keep going past a chapter/scene failure")
	runCmd.Flags().BoolVar(&runFlags.enrich, "ai-enrich", false, "use the AI client to collapse conflicting descriptions during extract")
	_ = runCmd.MarkFlagRequired("book")
	_ = runCmd.MarkFlagRequired("source")
}
