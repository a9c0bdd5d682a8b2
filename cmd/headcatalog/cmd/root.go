// Package cmd provides the CLI commands for the head catalog server.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openheads/headcatalog/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "headcatalog",
	Short: "Head catalog - browse, favorite and buy decorative heads",
	Long: `headcatalog serves a paginated catalog of decorative heads over HTTP.

Players browse categories, search by name or tag, keep a favorites list
and buy heads with their balance. The game front-end renders the grids
returned by the API.

Quick start:
  1. Create categories.yml and a heads/ directory with one JSON file per category
  2. Run: headcatalog catalog validate
  3. Run: headcatalog start

Configuration:
  Config is loaded from headcatalog.yaml in the current directory,
  $HOME/.headcatalog/, or /etc/headcatalog/. A .env file in the working
  directory is loaded first.

  Environment variables override config values with the HEADCATALOG_ prefix.
  Example: HEADCATALOG_SERVER_HTTP_ADDR=:9090`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./headcatalog.yaml)")
}

func initConfig() {
	if err := config.InitViper(cfgFile); err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
	}
}
