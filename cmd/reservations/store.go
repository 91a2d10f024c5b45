package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/example/reservation-availability/internal/logging"
	"github.com/example/reservation-availability/internal/persistence"
	"github.com/example/reservation-availability/internal/snapshot"
)

func newMigrateCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := cliLogger(cmd)
			store, err := openStore(cmd.Context(), dbPath, logger, true)
			if err != nil {
				return err
			}
			defer store.Close()

			versions, err := store.AppliedVersions(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{"applied": versions})
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "data/reservations.db", "SQLite database path")
	return cmd
}

func newImportCmd() *cobra.Command {
	var (
		dbPath       string
		snapshotPath string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a unit snapshot document into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := snapshot.LoadFile(snapshotPath)
			if err != nil {
				return err
			}

			logger := cliLogger(cmd)
			store, err := openStore(cmd.Context(), dbPath, logger, true)
			if err != nil {
				return err
			}
			defer store.Close()

			importer := persistence.Importer{Units: store, OpenSpans: store, Reservations: store, Blackouts: store}
			stats, err := importer.Import(cmd.Context(), doc)
			if err != nil {
				return fmt.Errorf("import %s: %w", snapshotPath, err)
			}
			logger.Info("snapshot imported", "unit_id", doc.Unit.ID, "reservations", stats.Reservations, "skipped", stats.Skipped)
			return writeJSON(cmd.OutOrStdout(), stats)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "data/reservations.db", "SQLite database path")
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "snapshot document (YAML or JSON)")
	_ = cmd.MarkFlagRequired("snapshot")
	return cmd
}

func cliLogger(cmd *cobra.Command) *slog.Logger {
	return logging.New(cmd.ErrOrStderr(), slog.LevelWarn, "text")
}
