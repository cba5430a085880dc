package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sealdrop/internal/config"
	"sealdrop/internal/store"
)

func newMigrateCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database schema migrations and report the version",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Open applies pending migrations.
			st, err := store.Open(cfg().DBPath)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			defer st.Close()

			status, err := st.Status()
			if err != nil {
				return err
			}
			fmt.Printf("schema version %d of %d\n", status.CurrentVersion, status.AvailableVersion)
			return nil
		},
	}
}
