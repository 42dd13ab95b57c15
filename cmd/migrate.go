package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ai-godfather/rec-conv-transcriptor/internal/database"
	"github.com/ai-godfather/rec-conv-transcriptor/pkg/config"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
	Long: `Manage the recording database schema.

Available subcommands:
  up      - Apply the schema to the configured database
  status  - Show which tables exist`,
}

// migrateUpCmd applies the schema
var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply the schema",
	Long: `Create or update all tables to match the current model
definitions. Safe to run repeatedly.`,
	RunE: runMigrateUp,
}

// migrateStatusCmd shows which tables exist
var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show schema status",
	RunE:  runMigrateStatus,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}

func openDatabase() (*database.DB, error) {
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, err
	}
	return database.Initialize(cfg.Database.Path, cfg.Database.Verbose)
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Database Schema Status")
	fmt.Fprintln(out, strings.Repeat("-", 40))

	for _, table := range []string{"recordings", "transcripts", "segments", "speakers"} {
		state := "missing"
		if db.Migrator().HasTable(table) {
			state = "present"
		}
		fmt.Fprintf(out, "%-12s %s\n", table, state)
	}
	return nil
}
