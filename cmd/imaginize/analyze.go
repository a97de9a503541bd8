package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tribixbite/imaginize/internal/chapterselect"
	"github.com/tribixbite/imaginize/internal/phase/analyze"
)

var analyzeFlags struct {
	bookDir  string
	bookID   string
	source   string
	chapters string
	limit    int
	force    bool
	cont     bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Extract scenes and entities chapter by chapter",
	RunE: func(cmd *cobra.Command, args []string) error {
		book, err := loadBookFromSource(analyzeFlags.source)
		if err != nil {
			return err
		}

		chapters, err := chapterselect.Parse(analyzeFlags.chapters)
		if err != nil {
			return err
		}

		rt, err := newBookRuntime(analyzeFlags.bookDir)
		if err != nil {
			return err
		}
		defer rt.Close()

		summary, err := analyze.Run(cmd.Context(), book, analyze.Config{
			BookDir:           analyzeFlags.bookDir,
			BookID:            resolveBookID(analyzeFlags.bookID, analyzeFlags.bookDir),
			Scheduler:         rt.Scheduler,
			Client:            rt.Client,
			ClientCfg:         rt.clientConfig(),
			Bus:               rt.Bus,
			Logger:            rt.Logger,
			Metrics:           rt.Metrics,
			PagesPerImage:     rt.Config.Pipeline.PagesPerImage,
			Chapters:          chapters,
			Limit:             analyzeFlags.limit,
			Force:             analyzeFlags.force,
			ContinueOnFailure: analyzeFlags.cont,
			MatchConfidence:   rt.Config.Pipeline.MatchConfidence,
		})
		if err != nil {
			return err
		}

		fmt.Printf("analyze: %d processed, %d failed, %d skipped, %d tokens\n",
			summary.ChaptersProcessed, summary.ChaptersFailed, summary.ChaptersSkipped, summary.TokensUsed)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFlags.bookDir, "book", "", "book output directory (required)")
	analyzeCmd.Flags().StringVar(&analyzeFlags.bookID, "book-id", "", "book identifier (default: book dir base name)")
	analyzeCmd.Flags().StringVar(&analyzeFlags.source, "source", "", "path to a parsed JSON book manifest (required)")
	analyzeCmd.Flags().StringVar(&analyzeFlags.chapters, "chapters", "", "chapter selection expression, e.g. 1-3,5 (default: all)")
	analyzeCmd.Flags().IntVar(&analyzeFlags.limit, "limit", 0, "stop after this many chapters (0 = no limit)")
	analyzeCmd.Flags().BoolVar(&analyzeFlags.force, "force", false, "reprocess chapters even if already completed")
	analyzeCmd.Flags().BoolVar(&analyzeFlags.cont, "continue", false, "keep going past a chapter failure")
	_ = analyzeCmd.MarkFlagRequired("book")
	_ = analyzeCmd.MarkFlagRequired("source")
}
