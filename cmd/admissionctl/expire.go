package main

import (
	"fmt"

	"github.com/spf13/cobra"

	offerService "admissions_backend/internals/features/admissions/offers/service"
)

var expireCmd = &cobra.Command{
	Use:   "expire-offers",
	Short: "Expire admission offers whose acceptance deadline has passed",
	RunE:  runExpire,
}

func init() {
	rootCmd.AddCommand(expireCmd)
}

func runExpire(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	svc := offerService.New(e.db, e.log, e.cfg.OfferDeadlineDaysDefault)
	n, err := svc.ExpireOverdue(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "expired %d offer(s)\n", n)
	return nil
}
