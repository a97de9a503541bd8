package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tribixbite/imaginize/internal/config"
)

var configOutPath string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config.yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.WriteDefault(configOutPath); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", configOutPath)
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVar(&configOutPath, "out", "config.yaml", "path to write the default config to")
	configCmd.AddCommand(configInitCmd)
}
