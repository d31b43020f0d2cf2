// Package ledger keeps the machine roster and its movement history on top of
// a range store: a short-lived roster cache, a read model, the transition
// rules and the writer of history rows and roster patches.
package ledger

import (
	"time"

	"machine-ledger-backend/config"
	"machine-ledger-backend/internal/parse"
	"machine-ledger-backend/internal/store"
)

// Ledger wires the cache, registry, recorder and engine over one store.
type Ledger struct {
	Cache    *Cache
	Registry *Registry
	Recorder *Recorder
	Engine   *Engine
	Location *time.Location
	Now      func() time.Time
}

// New builds a Ledger from the ledger configuration. A nil clock uses
// time.Now.
func New(s store.Store, cfg *config.LedgerConfig, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	layout := LayoutFromConfig(cfg)
	loc := parse.LoadLocation(cfg.Timezone)
	c := NewCache(cfg.CacheTTL, now)
	registry := NewRegistry(s, c, layout, cfg.EventCacheTTL)
	recorder := NewRecorder(s, c, layout)
	return &Ledger{
		Cache:    c,
		Registry: registry,
		Recorder: recorder,
		Engine:   NewEngine(registry, recorder, loc, now),
		Location: loc,
		Now:      now,
	}
}
