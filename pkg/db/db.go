// Package db opens the fleet registry database connection for the supported
// dialects: postgres, mysql and sqlite (pure-Go driver, used for local runs
// and tests).
package db

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config describes a database connection.
type Config struct {
	// Type selects the dialect: "postgres", "mysql" or "sqlite".
	Type string
	// DSN is the driver-specific connection string. For sqlite this is a
	// file path or ":memory:".
	DSN string
	// MaxOpenConns caps the connection pool; 0 keeps the driver default.
	MaxOpenConns int
}

// Connect opens the database and configures the pool.
//
// Foreign key constraint generation is disabled during migration: driver and
// vehicle associations share the resource_id column with two model-level
// relations, and only one of them is valid per row. Referential integrity for
// associations is enforced by the lifecycle layer instead.
func Connect(cfg Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Type {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Warn),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Type, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("access connection pool: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}
