package main

import (
	"fmt"

	"github.com/phrazzld/reverie-api/internal/platform/postgres"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|reset|status|version]",
	Short:     "Runs Postgres schema migrations",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "reset", "status", "version"},
	RunE: func(cmd *cobra.Command, args []string) error {
		command := "up"
		if len(args) == 1 {
			command = args[0]
		}

		db, err := openPostgres(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		if err := postgres.Migrate(cmd.Context(), db, command, log); err != nil {
			return fmt.Errorf("migrate %s: %w", command, err)
		}
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	rootCmd.AddCommand(migrateCmd)
}
