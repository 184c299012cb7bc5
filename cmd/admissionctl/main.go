package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"admissions_backend/internals/configs"
	database "admissions_backend/internals/databases"
)

var (
	Version = "dev"
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:     "admissionctl",
	Short:   "Operational commands for the admissions service",
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		configs.LoadEnv()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log SQL statements")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env opens the database the same way the server does.
type env struct {
	cfg configs.Config
	log *zap.Logger
	db  *gorm.DB
}

func openEnv() (*env, error) {
	cfg := configs.Load()
	appEnv := cfg.AppEnv
	if !verbose {
		appEnv = "production"
	}
	log, err := configs.NewLogger(appEnv)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	db, err := database.Connect(cfg, log)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, db: db}, nil
}

func (e *env) Close() {
	if sqlDB, err := e.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = e.log.Sync()
}
