package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"machine-ledger-backend/internal/logging"
	"machine-ledger-backend/internal/model"
	"machine-ledger-backend/internal/observe"
	"machine-ledger-backend/internal/parse"
	"machine-ledger-backend/internal/store"
)

// DefaultEventTTL is how long event lookups, including misses, are cached.
const DefaultEventTTL = 5 * time.Minute

var lRegistry = logging.Subsystem("Registry")

// Registry is the read model over the range store. Read failures are logged
// and surface as empty results; callers must treat empty as unknown.
type Registry struct {
	store  store.Store
	cache  *Cache
	events *cache.Cache
	layout Layout
}

// NewRegistry creates a registry reading through c.
func NewRegistry(s store.Store, c *Cache, layout Layout, eventTTL time.Duration) *Registry {
	if eventTTL <= 0 {
		eventTTL = DefaultEventTTL
	}
	return &Registry{
		store:  s,
		cache:  c,
		events: cache.New(eventTTL, 2*eventTTL),
		layout: layout,
	}
}

// Cache returns the ledger cache the registry reads through.
func (r *Registry) Cache() *Cache {
	return r.cache
}

// GetRoster returns the roster, from cache unless force is set or the
// snapshot is stale. The returned slice is shared and must not be modified.
func (r *Registry) GetRoster(ctx context.Context, force bool) []model.MachineRecord {
	roster, _ := r.roster(ctx, force)
	return roster
}

func (r *Registry) roster(ctx context.Context, force bool) ([]model.MachineRecord, uint64) {
	if !force {
		if roster, gen, ok := r.cache.Roster(); ok {
			observe.CacheLookups.WithLabelValues("roster", "hit").Inc()
			return roster, gen
		}
	}
	observe.CacheLookups.WithLabelValues("roster", "miss").Inc()

	rng := r.layout.rosterRange()
	rows, err := r.store.Read(ctx, rng)
	if err != nil {
		logging.FromContext(ctx, lRegistry).WithError(err).WithField("range", rng.A1()).Error("could not read roster")
		rows = nil
	}

	roster := make([]model.MachineRecord, 0, len(rows))
	for i, row := range rows {
		if isEmptyRow(row) {
			continue
		}
		roster = append(roster, machineFromRow(row, rng.FirstRow()+i))
	}
	gen := r.cache.StoreRoster(roster)
	logging.FromContext(ctx, lRegistry).WithFields(logrus.Fields{"machines": len(roster), "generation": gen}).Debug("roster reloaded")
	return roster, gen
}

// GetIndex returns the serial index derived from the roster. When a serial
// appears on several rows the last one wins.
func (r *Registry) GetIndex(ctx context.Context, force bool) map[string]model.MachineRecord {
	if !force {
		if index, ok := r.cache.Index(); ok {
			observe.CacheLookups.WithLabelValues("index", "hit").Inc()
			return index
		}
	}
	observe.CacheLookups.WithLabelValues("index", "miss").Inc()

	roster, gen := r.roster(ctx, force)
	index := make(map[string]model.MachineRecord, len(roster))
	for _, m := range roster {
		if m.Serial != "" {
			index[m.Serial] = m
		}
	}
	if !r.cache.StoreIndex(gen, index) {
		logging.FromContext(ctx, lRegistry).WithField("generation", gen).Debug("roster moved on, index not cached")
	}
	return index
}

// EventInfo looks up an event by id. It returns nil for unknown ids; a
// confirmed miss is cached like a hit, a read failure is not cached.
func (r *Registry) EventInfo(ctx context.Context, id string) *model.EventInfo {
	id = strings.TrimSpace(id)
	if parse.IsBlank(id) {
		return nil
	}
	if v, found := r.events.Get(id); found {
		observe.CacheLookups.WithLabelValues("event", "hit").Inc()
		info, _ := v.(*model.EventInfo)
		return info
	}
	observe.CacheLookups.WithLabelValues("event", "miss").Inc()

	rows, err := r.store.Read(ctx, r.layout.eventsRange())
	if err != nil {
		logging.FromContext(ctx, lRegistry).WithError(err).WithField("event", id).Error("could not read events")
		return nil
	}

	var info *model.EventInfo
	for _, row := range rows {
		if col(row, evID) == id {
			ev := eventFromRow(row)
			info = &ev
			break
		}
	}
	r.events.Set(id, info, cache.DefaultExpiration)
	return info
}

// History returns every movement row as stored, oldest first. It is never
// cached.
func (r *Registry) History(ctx context.Context) []model.MovementRecord {
	rng := r.layout.historyRange()
	rows, err := r.store.Read(ctx, rng)
	if err != nil {
		logging.FromContext(ctx, lRegistry).WithError(err).WithField("range", rng.A1()).Error("could not read history")
		return []model.MovementRecord{}
	}

	history := make([]model.MovementRecord, 0, len(rows))
	for _, row := range rows {
		if isEmptyRow(row) {
			continue
		}
		history = append(history, movementFromRow(row))
	}
	return history
}

// HistoryFor returns the movements of one serial, oldest first.
func (r *Registry) HistoryFor(ctx context.Context, serial string) []model.MovementRecord {
	serial = strings.TrimSpace(serial)
	all := r.History(ctx)
	if serial == "" {
		return all
	}
	filtered := make([]model.MovementRecord, 0)
	for _, m := range all {
		if m.Serial == serial {
			filtered = append(filtered, m)
		}
	}
	return filtered
}
