// Package db opens the backing store and keeps its schema current.
package db

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/verdantlab/floralog/internal/models"
)

// Open connects to the configured database. Supported drivers are "postgres"
// and "mysql" (production, DSN required) and "sqlite" (development; an empty
// DSN means in-memory).
func Open(driver, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	switch driver {
	case "postgres":
		if dsn == "" {
			return nil, fmt.Errorf("postgres driver requires a DSN")
		}
		db, err := gorm.Open(postgres.Open(dsn), cfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return db, nil
	case "mysql":
		if dsn == "" {
			return nil, fmt.Errorf("mysql driver requires a DSN")
		}
		db, err := gorm.Open(mysql.Open(dsn), cfg)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		return db, nil
	case "sqlite":
		if dsn == "" {
			dsn = ":memory:"
		}
		db, err := gorm.Open(sqlite.Open(dsn), cfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q (expected postgres, mysql, or sqlite)", driver)
	}
}

// AutoMigrate creates or updates every table of the domain schema.
func AutoMigrate(db *gorm.DB) error {
	for _, model := range models.All() {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("auto-migrate %T: %w", model, err)
		}
	}
	return nil
}
