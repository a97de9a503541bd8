package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tribixbite/imaginize/internal/chapterselect"
	"github.com/tribixbite/imaginize/internal/phase/illustrate"
	"github.com/tribixbite/imaginize/internal/scheduler"
)

var illustrateFlags struct {
	bookDir  string
	bookID   string
	source   string
	chapters string
	limit    int
	force    bool
	cont     bool
}

var illustrateCmd = &cobra.Command{
	Use:   "illustrate",
	Short: "Generate one image per scene",
	RunE: func(cmd *cobra.Command, args []string) error {
		book, err := loadBookFromSource(illustrateFlags.source)
		if err != nil {
			return err
		}

		chapters, err := chapterselect.Parse(illustrateFlags.chapters)
		if err != nil {
			return err
		}

		rt, err := newBookRuntime(illustrateFlags.bookDir)
		if err != nil {
			return err
		}
		defer rt.Close()

		// Image generation uses the configured image model, not the chat model.
		clientCfg := rt.clientConfig()
		clientCfg.Model = rt.Config.AI.ImageModel

		summary, err := illustrate.Run(cmd.Context(), book, illustrate.Config{
			BookDir:           illustrateFlags.bookDir,
			BookID:            resolveBookID(illustrateFlags.bookID, illustrateFlags.bookDir),
			Scheduler:         rt.Scheduler,
			Client:            rt.Client,
			ClientCfg:         clientCfg,
			Bus:               rt.Bus,
			Logger:            rt.Logger,
			Metrics:           rt.Metrics,
			ImageSize:         rt.Config.AI.ImageSize,
			ChapterTitleSlug:  rt.Config.Pipeline.ChapterTitleSlug,
			Chapters:          chapters,
			Limit:             illustrateFlags.limit,
			Force:             illustrateFlags.force,
			ContinueOnFailure: illustrateFlags.cont,
			LocalPool:         scheduler.NewLocalPool(0),
		})
		if err != nil {
			return err
		}

		fmt.Printf("illustrate: %d processed, %d failed, %d skipped, status=%s\n",
			summary.ScenesProcessed, summary.ScenesFailed, summary.ScenesSkipped, summary.Status)
		return nil
	},
}

func init() {
	illustrateCmd.Flags().StringVar(&illustrateFlags.bookDir, "book", "", "book output directory (required)")
	illustrateCmd.Flags().StringVar(&illustrateFlags.bookID, "book-id", "", "book identifier (default: book dir base name)")
	illustrateCmd.Flags().StringVar(&illustrateFlags.source, "source", "", "path to a parsed JSON book manifest (required)")
	illustrateCmd.Flags().StringVar(&illustrateFlags.chapters, "chapters", "", "chapter selection expression, e.g. 1-3,5 (default: all)")
	illustrateCmd.Flags().IntVar(&illustrateFlags.limit, "limit", 0, "stop after this many scenes' chapters (0 = no limit)")
	illustrateCmd.Flags().BoolVar(&illustrateFlags.force, "force", false, "regenerate images even if already completed")
	illustrateCmd.Flags().BoolVar(&illustrateFlags.cont, "continue", false, "keep going past a scene failure")
	_ = illustrateCmd.MarkFlagRequired("book")
	_ = illustrateCmd.MarkFlagRequired("source")
}
