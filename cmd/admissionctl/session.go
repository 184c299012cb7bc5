package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	sessionService "admissions_backend/internals/features/admissions/sessions/service"
)

var activateSessionCmd = &cobra.Command{
	Use:   "activate-session [session-id]",
	Short: "Make a session the single active admission session",
	Args:  cobra.ExactArgs(1),
	RunE:  runActivateSession,
}

func init() {
	rootCmd.AddCommand(activateSessionCmd)
}

func runActivateSession(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid session id: %w", err)
	}
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	m, err := sessionService.New(e.db, e.log).Activate(cmd.Context(), id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "session %s (%s) is now active\n", m.AdmissionSessionName, m.AdmissionSessionID)
	return nil
}
