package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm/clause"

	"admissions_backend/internals/features/admissions/registry"
)

var programFile string

var seedProgramCmd = &cobra.Command{
	Use:   "seed-program",
	Short: "Upsert programs from a YAML file, keyed by program code",
	Long: `Upsert programs used by application submission.

File format:
  programs:
    - code: CSC
      name: Computer Science
      department_id: 0b8a...
      form_fee: "5000"
      opens_at: 2026-09-01T00:00:00Z
      closes_at: 2026-12-31T23:59:59Z
      active: true`,
	RunE: runSeedProgram,
}

func init() {
	seedProgramCmd.Flags().StringVarP(&programFile, "file", "f", "", "YAML programs file")
	_ = seedProgramCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(seedProgramCmd)
}

type programFileEntry struct {
	Code         string `yaml:"code"`
	Name         string `yaml:"name"`
	DepartmentID string `yaml:"department_id"`
	FormFee      string `yaml:"form_fee"`
	OpensAt      string `yaml:"opens_at"`
	ClosesAt     string `yaml:"closes_at"`
	Active       *bool  `yaml:"active"`
}

func parseProgramFile(r io.Reader) ([]registry.ProgramModel, error) {
	var f struct {
		Programs []programFileEntry `yaml:"programs"`
	}
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("parse programs file: %w", err)
	}

	out := make([]registry.ProgramModel, 0, len(f.Programs))
	for i, p := range f.Programs {
		code := strings.ToUpper(strings.TrimSpace(p.Code))
		name := strings.TrimSpace(p.Name)
		if code == "" || name == "" {
			return nil, fmt.Errorf("program %d: code and name are required", i+1)
		}
		dep, err := uuid.Parse(strings.TrimSpace(p.DepartmentID))
		if err != nil {
			return nil, fmt.Errorf("program %s department_id: %w", code, err)
		}
		m := registry.ProgramModel{
			ProgramDepartmentID: dep,
			ProgramCode:         code,
			ProgramName:         name,
			ProgramIsActive:     p.Active == nil || *p.Active,
		}
		if s := strings.TrimSpace(p.FormFee); s != "" {
			fee, err := decimal.NewFromString(s)
			if err != nil || fee.IsNegative() {
				return nil, fmt.Errorf("program %s form_fee: invalid amount %q", code, s)
			}
			m.ProgramFormFee = &fee
		}
		if m.ProgramApplicationOpensAt, err = optionalTime(p.OpensAt); err != nil {
			return nil, fmt.Errorf("program %s opens_at: %w", code, err)
		}
		if m.ProgramApplicationClosesAt, err = optionalTime(p.ClosesAt); err != nil {
			return nil, fmt.Errorf("program %s closes_at: %w", code, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func optionalTime(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

func runSeedProgram(cmd *cobra.Command, args []string) error {
	fh, err := os.Open(programFile)
	if err != nil {
		return err
	}
	defer fh.Close()

	programs, err := parseProgramFile(fh)
	if err != nil {
		return err
	}
	if len(programs) == 0 {
		return fmt.Errorf("no programs in %s", programFile)
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	err = e.db.WithContext(cmd.Context()).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "program_code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"program_department_id",
			"program_name",
			"program_form_fee",
			"program_application_opens_at",
			"program_application_closes_at",
			"program_is_active",
			"program_updated_at",
		}),
	}).Create(&programs).Error
	if err != nil {
		return fmt.Errorf("upsert programs: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "upserted %d program(s)\n", len(programs))
	return nil
}
