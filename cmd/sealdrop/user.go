package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sealdrop/internal/auth"
	"sealdrop/internal/config"
	"sealdrop/internal/store"
)

func newUserCmd(cfg func() *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage sealdrop accounts",
	}
	cmd.AddCommand(newUserAddCmd(cfg))
	return cmd
}

func newUserAddCmd(cfg func() *config.Config) *cobra.Command {
	var email string
	var password string

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create an account directly in the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := auth.NormalizeUsername(args[0])
			if err != nil {
				return err
			}
			normalizedEmail, err := auth.NormalizeEmail(email)
			if err != nil {
				return err
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}

			st, err := store.Open(cfg().DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			user, err := st.CreateUser(cmd.Context(), username, normalizedEmail, hash, time.Now().UTC())
			if err != nil {
				return err
			}

			fmt.Printf("created user %s (%s)\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "notification address for received files")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
