package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"admissions_backend/internals/constants"
	"admissions_backend/internals/features/admissions/offers/dto"
	offerService "admissions_backend/internals/features/admissions/offers/service"
	helperAuth "admissions_backend/internals/helpers/auth"
)

var (
	ingestFile  string
	ingestActor string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest-offers",
	Short: "Create admission offers from a YAML rows file",
	Long: `Create admission offers in bulk. Rows are independent: a bad row is
reported and skipped, the others are committed.

File format:
  session_id: 6f1c...
  department_id: 0b8a...
  acceptance_fee_amount: "25000"
  deadline_days: 14
  rows:
    - application_number: APP202610150481207
      email: ada@example.com
    - application_number: APP202610151930408
      acceptance_fee_amount: "30000"`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "YAML rows file")
	ingestCmd.Flags().StringVar(&ingestActor, "actor", "", "staff user id recorded as the offer creator")
	_ = ingestCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(ingestCmd)
}

type offerFile struct {
	SessionID           string         `yaml:"session_id"`
	DepartmentID        string         `yaml:"department_id"`
	AcceptanceFeeAmount string         `yaml:"acceptance_fee_amount"`
	AcceptanceDeadline  string         `yaml:"acceptance_deadline"`
	DeadlineDays        int            `yaml:"deadline_days"`
	Rows                []offerFileRow `yaml:"rows"`
}

type offerFileRow struct {
	ApplicationNumber   string `yaml:"application_number"`
	Email               string `yaml:"email"`
	DepartmentID        string `yaml:"department_id"`
	AcceptanceFeeAmount string `yaml:"acceptance_fee_amount"`
	Notes               string `yaml:"notes"`
}

// parseOfferFile turns a rows file into a batch request. Row numbers in
// errors are 1-based, matching the batch result.
func parseOfferFile(r io.Reader) (dto.BatchOfferRequest, error) {
	var f offerFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return dto.BatchOfferRequest{}, fmt.Errorf("parse rows file: %w", err)
	}

	var req dto.BatchOfferRequest
	id, err := uuid.Parse(strings.TrimSpace(f.SessionID))
	if err != nil {
		return req, fmt.Errorf("session_id: %w", err)
	}
	req.SessionID = id
	if req.DepartmentID, err = uuid.Parse(strings.TrimSpace(f.DepartmentID)); err != nil {
		return req, fmt.Errorf("department_id: %w", err)
	}
	req.DeadlineDays = f.DeadlineDays
	if s := strings.TrimSpace(f.AcceptanceFeeAmount); s != "" {
		if req.AcceptanceFeeAmount, err = decimal.NewFromString(s); err != nil {
			return req, fmt.Errorf("acceptance_fee_amount: %w", err)
		}
	}
	if s := strings.TrimSpace(f.AcceptanceDeadline); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return req, fmt.Errorf("acceptance_deadline: %w", err)
		}
		req.AcceptanceDeadline = &t
	}

	req.Rows = make([]dto.BatchOfferRow, 0, len(f.Rows))
	for i, fr := range f.Rows {
		row := dto.BatchOfferRow{
			ApplicationNumber: strings.TrimSpace(fr.ApplicationNumber),
			Email:             strings.TrimSpace(fr.Email),
		}
		if s := strings.TrimSpace(fr.DepartmentID); s != "" {
			dep, err := uuid.Parse(s)
			if err != nil {
				return req, fmt.Errorf("row %d department_id: %w", i+1, err)
			}
			row.DepartmentID = &dep
		}
		if s := strings.TrimSpace(fr.AcceptanceFeeAmount); s != "" {
			fee, err := decimal.NewFromString(s)
			if err != nil {
				return req, fmt.Errorf("row %d acceptance_fee_amount: %w", i+1, err)
			}
			row.AcceptanceFeeAmount = &fee
		}
		if s := strings.TrimSpace(fr.Notes); s != "" {
			row.Notes = &s
		}
		req.Rows = append(req.Rows, row)
	}
	return req, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	fh, err := os.Open(ingestFile)
	if err != nil {
		return err
	}
	defer fh.Close()

	req, err := parseOfferFile(fh)
	if err != nil {
		return err
	}
	actor := helperAuth.Actor{Role: constants.RoleAdmin}
	if ingestActor != "" {
		if actor.ID, err = uuid.Parse(ingestActor); err != nil {
			return fmt.Errorf("invalid --actor: %w", err)
		}
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	svc := offerService.New(e.db, e.log, e.cfg.OfferDeadlineDaysDefault)
	res, err := svc.Ingest(cmd.Context(), actor, req)
	if err != nil {
		return err
	}
	b, err := sonic.ConfigDefault.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}
