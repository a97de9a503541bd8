package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tribixbite/imaginize/internal/pdfreport"
)

var compileFlags struct {
	bookDir string
	source  string
}

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile a book's generated illustrations and text into a PDF",
	RunE: func(cmd *cobra.Command, args []string) error {
		book, err := loadBookFromSource(compileFlags.source)
		if err != nil {
			return err
		}

		path, err := pdfreport.Compile(compileFlags.bookDir, book)
		if err != nil {
			return err
		}

		fmt.Printf("compile: wrote %s\n", path)
		return nil
	},
}

func init() {
	compileCmd.Flags().StringVar(&compileFlags.bookDir, "book", "", "book output directory (required)")
	compileCmd.Flags().StringVar(&compileFlags.source, "source", "", "path to a parsed JSON book manifest (required)")
	_ = compileCmd.MarkFlagRequired("book")
	_ = compileCmd.MarkFlagRequired("source")
}
