package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"sealdrop/internal/artifact"
	"sealdrop/internal/config"
	"sealdrop/internal/crypto"
	"sealdrop/internal/notify"
	"sealdrop/internal/server"
	"sealdrop/internal/store"
)

func newSrvCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the sealdrop API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cfg()
			if err := c.Validate(); err != nil {
				return err
			}

			logger := slog.Default().With("component", "server")

			masterKey, err := crypto.ParseMasterKey(c.MasterKey)
			if err != nil {
				return fmt.Errorf("master_key: %w", err)
			}
			engine, err := crypto.NewEngine(masterKey, nil)
			if err != nil {
				return err
			}

			logger.Info("opening database", "path", c.DBPath)
			st, err := store.Open(c.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			artifacts, err := artifact.NewLocalStore(c.ArtifactRoot)
			if err != nil {
				return err
			}

			var notifier notify.Notifier = notify.Noop{}
			if c.SMTP.Enabled() {
				notifier = notify.NewSMTPNotifier(c.SMTP.Host, c.SMTP.Port, c.SMTP.Username, c.SMTP.Password, c.SMTP.From)
			} else {
				logger.Warn("smtp not configured, secrets will not be mailed")
			}

			srv := server.New(c, st, artifacts, engine, notifier, logger)
			return srv.ListenAndServe()
		},
	}
}
