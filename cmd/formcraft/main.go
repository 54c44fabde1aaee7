package main

import (
	"fmt"
	"os"

	"github.com/formcraft-io/formcraft/internal/config"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "formcraft",
	Short: "formcraft form builder API",
	Long: `formcraft serves the form builder API: authoring forms, publishing them to a
coordinator and collecting public submissions.

Configuration is read from config.yaml (or --config) and FORMCRAFT_* environment variables.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a config file")
	rootCmd.AddCommand(serveCmd, migrateCmd, tokenCmd)
}

func loadConfig() (*config.Config, error) {
	return config.LoadFrom(configPath)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
