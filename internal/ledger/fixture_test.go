package ledger

import (
	"context"
	"testing"
	"time"

	"machine-ledger-backend/config"
	"machine-ledger-backend/internal/model"
	"machine-ledger-backend/internal/store"
)

const (
	rosterSheet  = "Roster"
	historySheet = "History"
	eventsSheet  = "Events"
)

var testConfig = config.LedgerConfig{
	RosterSheet:    rosterSheet,
	HistorySheet:   historySheet,
	EventsSheet:    eventsSheet,
	RosterLastRow:  2000,
	HistoryLastRow: 20000,
	CacheTTL:       15 * time.Second,
	EventCacheTTL:  5 * time.Minute,
	Timezone:       "UTC",
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	mem    *store.MemoryStore
	clock  *fakeClock
	ledger *Ledger
}

// newFixture seeds a memory store with a header row per sheet followed by
// the given machines, movements and events. Today is 10/03/2024.
func newFixture(t *testing.T, machines []model.MachineRecord, history []model.MovementRecord, events []model.EventInfo) *fixture {
	t.Helper()
	return seedFixture(machines, history, events)
}

func seedFixture(machines []model.MachineRecord, history []model.MovementRecord, events []model.EventInfo) *fixture {
	mem := store.NewMemoryStore()

	roster := [][]string{{"Code", "Model", "Serial"}}
	for _, m := range machines {
		roster = append(roster, rosterRow(m))
	}
	mem.Seed(rosterSheet, 1, roster)

	hist := [][]string{{"Date", "Serial", "Action"}}
	for _, m := range history {
		hist = append(hist, movementToRow(m))
	}
	mem.Seed(historySheet, 1, hist)

	evs := [][]string{{"ID", "Name", "Producer", "Commercial"}}
	for _, e := range events {
		evs = append(evs, []string{e.ID, e.Name, e.Producer, e.Commercial})
	}
	mem.Seed(eventsSheet, 1, evs)

	clock := &fakeClock{now: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
	return &fixture{mem: mem, clock: clock, ledger: New(mem, &testConfig, clock.Now)}
}

func rosterRow(m model.MachineRecord) []string {
	row := make([]string, rosterWidth)
	row[colCode] = m.Code
	row[colModel] = m.Model
	row[colSerial] = m.Serial
	row[colCarrier] = m.Carrier
	row[colChip] = m.Chip
	row[colNotes] = m.Notes
	row[colStatus] = m.Status
	row[colLocation] = m.Location
	row[colCompany] = m.Company
	row[colEventID] = m.EventID
	row[colEventName] = m.EventName
	row[colProducer] = m.Producer
	row[colCommercial] = m.Commercial
	row[colDepartureDate] = m.DepartureDate
	row[colReturnDate] = m.ReturnDate
	row[colUpdatedAt] = m.UpdatedAt
	row[colUpdatedBy] = m.UpdatedBy
	return row
}

// rosterCell returns the raw value of a roster column for the n-th seeded
// machine (0-based).
func (f *fixture) rosterCell(n, col int) string {
	return f.mem.Cell(rosterSheet, firstDataRow+n, col)
}

func (f *fixture) historyRows(t *testing.T) []model.MovementRecord {
	t.Helper()
	return f.ledger.Registry.History(context.Background())
}

func strPtr(s string) *string { return &s }

var sampleEvents = []model.EventInfo{
	{ID: "1024", Name: "Festival de Verão", Producer: "Prod A", Commercial: "Ana"},
	{ID: "2048", Name: "Rock Night", Producer: "Prod B", Commercial: "Bruno"},
}
