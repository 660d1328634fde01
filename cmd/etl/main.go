// Command etl downloads a chess.com player's monthly game archives, builds
// the normalized per-player dataset and serves it over HTTP.
//
// Usage:
//
//	etl extract <player>
//	etl transform <player>
//	etl run <player>
//	etl serve
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "etl",
	Short: "chess.com game history ETL",
	Long: `etl downloads every monthly game archive of a chess.com player into the raw
store, normalizes the games to the player's perspective and writes one CSV
dataset per player. The serve command exposes the datasets over HTTP.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(extractCmd, transformCmd, runCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
