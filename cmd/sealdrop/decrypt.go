package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sealdrop/internal/config"
	"sealdrop/internal/crypto"
)

// decrypt recovers a downloaded .enc file locally. The mailed secret
// authorizes the exchange socially; decryption itself needs only the
// master key.
func newDecryptCmd(cfg func() *config.Config) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "decrypt <file.enc>",
		Short: "Decrypt a downloaded file with the master key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cfg()
			if strings.TrimSpace(c.MasterKey) == "" {
				return fmt.Errorf("master_key is required")
			}
			key, err := crypto.ParseMasterKey(c.MasterKey)
			if err != nil {
				return fmt.Errorf("master_key: %w", err)
			}
			engine, err := crypto.NewEngine(key, nil)
			if err != nil {
				return err
			}

			ciphertext, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			plaintext, err := engine.Decrypt(ciphertext)
			if err != nil {
				return err
			}

			if output == "" {
				output = strings.TrimSuffix(args[0], ".enc")
				if output == args[0] {
					output = args[0] + ".out"
				}
			}
			if err := os.WriteFile(output, plaintext, 0o600); err != nil {
				return err
			}

			fmt.Printf("decrypted %s -> %s (%d bytes)\n", args[0], output, len(plaintext))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default: input without .enc)")

	return cmd
}
