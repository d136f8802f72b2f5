// Package cli implements the reconx command tree.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvalt/reconx/internal/store"
)

// Version information (set by build flags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "reconx",
	Short: "Reconnaissance job orchestrator",
	Long: `reconx - reconnaissance job orchestrator

Runs subdomain enumeration, TCP port probing, and HTTP directory
brute-forcing as managed jobs with persistent findings.

WARNING: Use this tool only against systems you have explicit permission to
test. Every scan command requires the --authorized flag as confirmation.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetInt("verbose")
		setupLogging(verbose)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("db", "reconx.db", "Findings database path (SQLite)")
	rootCmd.PersistentFlags().IntP("verbose", "v", 0, "Verbosity level (0-3)")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("reconx %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

// setupLogging maps -v to slog levels: 0=error, 1=warn, 2=info, 3=debug.
func setupLogging(verbose int) {
	level := slog.LevelError
	switch {
	case verbose >= 3:
		level = slog.LevelDebug
	case verbose >= 2:
		level = slog.LevelInfo
	case verbose >= 1:
		level = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// openStore opens the findings database named by the --db flag.
func openStore(cmd *cobra.Command) (*store.SQLiteStore, error) {
	dbPath, _ := cmd.Flags().GetString("db")
	st, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %q: %w", dbPath, err)
	}
	return st, nil
}
