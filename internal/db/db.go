package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"machine-ledger-backend/config"
	"machine-ledger-backend/internal/logging"
	"machine-ledger-backend/internal/model"
)

var lDB = logging.Subsystem("Database")

// Dialector picks the gorm driver from the DSN: "sqlite:" / "file:" prefixes
// and ":memory:" select sqlite, anything else is handed to postgres.
func Dialector(dsn string) gorm.Dialector {
	switch {
	case strings.HasPrefix(dsn, "sqlite:"):
		return sqlite.Open(strings.TrimPrefix(dsn, "sqlite:"))
	case strings.HasPrefix(dsn, "file:"), dsn == ":memory:":
		return sqlite.Open(dsn)
	}
	return postgres.Open(dsn)
}

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(Dialector(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	lDB.WithFields(logrus.Fields{"dialect": db.Dialector.Name()}).Info("database initialization complete")
	return db, nil
}

// Migrate creates the cell table used by the SQL range store.
func Migrate(db *gorm.DB) error {
	lDB.Debug("running database migrations")
	if err := db.AutoMigrate(&model.Cell{}); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}
