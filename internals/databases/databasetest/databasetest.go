// Package databasetest opens a migrated in-memory SQLite database for
// package tests.
package databasetest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"admissions_backend/internals/configs"
	database "admissions_backend/internals/databases"
)

// Open returns a fresh database per call. The pool is pinned to a single
// connection, so code under test must use the transaction handle inside
// Transaction callbacks.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), database.Config(configs.NewGormLogger(zaptest.NewLogger(t), gormLogger.Warn)))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
