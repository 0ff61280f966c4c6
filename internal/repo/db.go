// Package repo implements the reaction audit ledger on GORM and the pure-Go
// SQLite driver.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/noticeboard/internal/domain"
)

// DefaultDSN keeps the ledger in process memory, shared across pool
// connections.
const DefaultDSN = "file:noticeboard?mode=memory&cache=shared"

const (
	maxConns       = 10
	busyTimeoutMS  = 5000
	slowQueryAfter = 200 * time.Millisecond
)

// OpenSQLite opens or creates the ledger database at dsn, a file path or a
// sqlite URI. File databases run in WAL mode. The OpenTelemetry plugin
// traces every statement, and GORM's own warnings go to the zerolog logger.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	mem := isMemoryDSN(dsn)

	// sqlite reports a missing directory as "out of memory (14)" on some
	// platforms.
	if !mem && !strings.HasPrefix(dsn, "file:") {
		if dir := filepath.Dir(dsn); dir != "." {
			if _, err := os.Stat(dir); err != nil {
				return nil, fmt.Errorf("ledger directory: %w", err)
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormLogger()})
	if err != nil {
		return nil, err
	}
	if err := configure(db, mem); err != nil {
		if sqlDB, derr := db.DB(); derr == nil {
			_ = sqlDB.Close()
		}
		return nil, err
	}
	return db, nil
}

func configure(db *gorm.DB, mem bool) error {
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return fmt.Errorf("tracing plugin: %w", err)
	}

	pragmas := []string{fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeoutMS)}
	if !mem {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL", "PRAGMA synchronous=NORMAL")
	}
	for _, p := range pragmas {
		if err := db.Exec(p).Error; err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxConns)
	if !mem {
		// A shared in-memory database vanishes with its last connection, so
		// only file databases recycle connections.
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return nil
}

// AutoMigrate creates or updates the ledger schema.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.ReactionEvent{})
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory") || strings.HasPrefix(dsn, "file::memory:")
}

// zerologPrinter adapts the global zerolog logger to GORM's Writer.
type zerologPrinter struct{}

func (zerologPrinter) Printf(format string, args ...any) {
	log.Warn().Str("component", "ledger").Msgf(format, args...)
}

func gormLogger() logger.Interface {
	return logger.New(zerologPrinter{}, logger.Config{
		SlowThreshold:             slowQueryAfter,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
