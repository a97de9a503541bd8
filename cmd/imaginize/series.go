package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tribixbite/imaginize/internal/catalog"
	"github.com/tribixbite/imaginize/internal/series"
	"github.com/tribixbite/imaginize/internal/state"
)

var seriesFlags struct {
	root          string
	bookDir       string
	bookID        string
	mergeStrategy string
}

var seriesCmd = &cobra.Command{
	Use:   "series",
	Short: "Bridge a book's catalog with its series-level shared memory",
}

var seriesImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Pull series-level entities into this book's catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		return seriesOp(cmd.Context(), "import", (*series.Bridge).Import)
	},
}

var seriesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Push this book's catalog into series-level shared memory",
	RunE: func(cmd *cobra.Command, args []string) error {
		return seriesOp(cmd.Context(), "export", (*series.Bridge).Export)
	},
}

// seriesOp loads the book's catalog under its cross-process lock, runs op
// (Bridge.Import or Bridge.Export) against it, and persists the catalog
// back when op reports a change.
func seriesOp(ctx context.Context, label string, op func(*series.Bridge, context.Context, *catalog.Catalog, catalog.Strategy) (bool, error)) error {
	mgr, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := mgr.Get()
	log := logger(cfg)

	strategy := catalog.Strategy(seriesFlags.mergeStrategy)
	if strategy == "" {
		strategy = catalog.Strategy(cfg.Pipeline.MergeStrategy)
	}
	bookID := resolveBookID(seriesFlags.bookID, seriesFlags.bookDir)

	handle, err := state.LockCatalog(seriesFlags.bookDir, state.DefaultLockTimeout)
	if err != nil {
		return err
	}
	defer handle.Release()

	cat, err := state.LoadElements(seriesFlags.bookDir)
	if err != nil {
		return err
	}

	bridge := series.New(seriesFlags.root, bookID, log)
	changed, err := op(bridge, ctx, cat, strategy)
	if err != nil {
		return err
	}

	if changed {
		if err := state.SetElements(seriesFlags.bookDir, cat); err != nil {
			return err
		}
	}

	fmt.Printf("series %s: changed=%v\n", label, changed)
	return nil
}

func init() {
	seriesCmd.PersistentFlags().StringVar(&seriesFlags.root, "series-root", "", "series root directory (required)")
	seriesCmd.PersistentFlags().StringVar(&seriesFlags.bookDir, "book", "", "book output directory (required)")
	seriesCmd.PersistentFlags().StringVar(&seriesFlags.bookID, "book-id", "", "book identifier (default: book dir base name)")
	seriesCmd.PersistentFlags().StringVar(&seriesFlags.mergeStrategy, "merge-strategy", "", "entity merge strategy: enrich, union, or override (default: config)")
	_ = seriesCmd.MarkPersistentFlagRequired("series-root")
	_ = seriesCmd.MarkPersistentFlagRequired("book")

	seriesCmd.AddCommand(seriesImportCmd)
	seriesCmd.AddCommand(seriesExportCmd)
}
