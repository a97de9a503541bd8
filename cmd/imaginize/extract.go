package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tribixbite/imaginize/internal/catalog"
	"github.com/tribixbite/imaginize/internal/phase/extract"
)

var extractFlags struct {
	bookDir       string
	bookID        string
	mergeStrategy string
	enrich        bool
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Consolidate chapter shards into the Elements Catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newBookRuntime(extractFlags.bookDir)
		if err != nil {
			return err
		}
		defer rt.Close()

		strategy := catalog.Strategy(extractFlags.mergeStrategy)
		if strategy == "" {
			strategy = catalog.Strategy(rt.Config.Pipeline.MergeStrategy)
		}

		summary, err := extract.Run(cmd.Context(), extract.Config{
			BookDir:                 extractFlags.bookDir,
			BookID:                  resolveBookID(extractFlags.bookID, extractFlags.bookDir),
			Client:                  rt.Client,
			ClientCfg:               rt.clientConfig(),
			Scheduler:               rt.Scheduler,
			AIDescriptionEnrichment: extractFlags.enrich || rt.Config.Pipeline.AIDescriptionEnrichment,
			MergeStrategy:           strategy,
			MatchConfidence:         rt.Config.Pipeline.MatchConfidence,
			Bus:                     rt.Bus,
			Logger:                  rt.Logger,
			Metrics:                 rt.Metrics,
		})
		if err != nil {
			return err
		}

		fmt.Printf("extract: %d entities (%d reconciled, %d enriched), status=%s\n",
			summary.EntitiesTotal, summary.EntitiesReconciled, summary.EntitiesEnriched, summary.Status)
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractFlags.bookDir, "book", "", "book output directory (required)")
	extractCmd.Flags().StringVar(&extractFlags.bookID, "book-id", "", "book identifier (default: book dir base name)")
	extractCmd.Flags().StringVar(&extractFlags.mergeStrategy, "merge-strategy", "", "entity merge strategy: enrich, union, or override (default: config)")
	extractCmd.Flags().BoolVar(&extractFlags.enrich, "ai-enrich", false, "use the AI client to collapse conflicting descriptions")
	_ = extractCmd.MarkFlagRequired("book")
}
