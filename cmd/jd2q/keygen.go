package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/jd2q/internal/vault"
)

var keygenCommand = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a new vault secret",
	Long: `Prints a freshly generated vault secret suitable for VAULT_SECRET_KEY.

Rotating the secret invalidates every credential already stored; stored keys
must be re-entered after a rotation.`,
	RunE: runKeygen,
}

func init() {
	rootCmd.AddCommand(keygenCommand)
}

func runKeygen(cmd *cobra.Command, _ []string) error {
	secret, err := vault.NewSecret()
	if err != nil {
		return fmt.Errorf("failed to generate secret: %w", err)
	}
	cmd.Println(secret)
	return nil
}
