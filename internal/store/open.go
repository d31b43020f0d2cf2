package store

import (
	"context"
	"fmt"

	"machine-ledger-backend/config"
	"machine-ledger-backend/internal/db"
)

const (
	DriverSheets = "sheets"
	DriverSQL    = "sql"
	DriverMemory = "memory"
)

// Open builds the configured backend and wraps it with Instrument.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	var backend Store
	switch cfg.Store.Driver {
	case DriverSheets:
		s, err := NewSheetsStore(ctx, &cfg.Sheets)
		if err != nil {
			return nil, err
		}
		backend = s
	case DriverSQL:
		gormDB, err := db.Init(&cfg.Database)
		if err != nil {
			return nil, err
		}
		backend = NewGormStore(gormDB)
	case DriverMemory:
		backend = NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	return Instrument(backend, NewLimiter(cfg.Store.RateLimitPerSec, cfg.Store.RateLimitBurst)), nil
}
