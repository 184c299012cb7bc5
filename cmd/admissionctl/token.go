package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	helperAuth "admissions_backend/internals/helpers/auth"
)

var revokeTTL time.Duration

var revokeTokenCmd = &cobra.Command{
	Use:   "revoke-token [access-token]",
	Short: "Blacklist an access token until it would have expired",
	Args:  cobra.ExactArgs(1),
	RunE:  runRevokeToken,
}

func init() {
	revokeTokenCmd.Flags().DurationVar(&revokeTTL, "ttl", 24*time.Hour, "how long the token stays blacklisted")
	rootCmd.AddCommand(revokeTokenCmd)
}

func runRevokeToken(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	until := time.Now().UTC().Add(revokeTTL)
	if err := helperAuth.Revoke(cmd.Context(), e.db, args[0], e.cfg.JWTSecret, until); err != nil {
		return fmt.Errorf("revoke: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "token revoked until %s\n", until.Format(time.RFC3339))
	return nil
}
