package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"sealdrop/internal/artifact"
	"sealdrop/internal/config"
	"sealdrop/internal/server"
	"sealdrop/internal/store"
)

func newSweepCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired file records and their stored ciphertext",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cfg()

			st, err := store.Open(c.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			artifacts, err := artifact.NewLocalStore(c.ArtifactRoot)
			if err != nil {
				return err
			}

			sweeper := server.NewSweepService(st, artifacts, c.TTL(), slog.Default().With("component", "sweep"))
			result, err := sweeper.Sweep(cmd.Context(), time.Now().UTC())
			if err != nil {
				return err
			}

			fmt.Printf("removed %d records and %d artifacts (%d failures)\n",
				result.RemovedRecords, result.RemovedArtifacts, result.Failures)
			for _, id := range result.StuckRecords {
				fmt.Printf("stuck claimed record: %s\n", id)
			}
			return nil
		},
	}
}
