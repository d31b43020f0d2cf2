package ledger

import (
	"strings"
	"time"

	"machine-ledger-backend/internal/model"
	"machine-ledger-backend/internal/parse"
)

// Origin is the event and departure a returning machine came from.
type Origin struct {
	EventID       string
	EventName     string
	Producer      string
	Commercial    string
	DepartureDate string
	Location      string
}

// OriginSource tells where an Origin was resolved from.
type OriginSource int

const (
	OriginNone OriginSource = iota
	OriginCurrent
	OriginHistory
)

func originFromRecord(m model.MachineRecord) Origin {
	return Origin{
		EventID:       m.EventID,
		EventName:     m.EventName,
		Producer:      m.Producer,
		Commercial:    m.Commercial,
		DepartureDate: m.DepartureDate,
		Location:      m.Location,
	}
}

func originFromMovement(m model.MovementRecord) Origin {
	return Origin{
		EventID:       m.EventID,
		EventName:     m.EventName,
		Producer:      m.Producer,
		Commercial:    m.Commercial,
		DepartureDate: m.DepartureDate,
		Location:      m.Location,
	}
}

// ResolveOrigin prefers the record's own event fields and falls back to the
// latest outbound movement of the serial in history.
func ResolveOrigin(rec model.MachineRecord, history []model.MovementRecord, loc *time.Location) (Origin, OriginSource) {
	if !parse.IsPlaceholderID(rec.EventID) {
		return originFromRecord(rec), OriginCurrent
	}
	if m, ok := LatestSend(history, rec.Serial, loc); ok {
		return originFromMovement(m), OriginHistory
	}
	return Origin{}, OriginNone
}

// LatestSend returns the outbound movement of serial with the latest
// departure date. On equal dates the first one seen wins; rows whose date
// does not parse rank below any parsed date.
func LatestSend(history []model.MovementRecord, serial string, loc *time.Location) (model.MovementRecord, bool) {
	var (
		best     model.MovementRecord
		bestAt   time.Time
		bestOK   bool
		haveBest bool
	)
	for _, m := range history {
		if m.Serial != serial || !m.Action.Outbound() {
			continue
		}
		at, ok := parse.ParseDate(m.DepartureDate, loc)
		switch {
		case !haveBest:
		case ok && (!bestOK || at.After(bestAt)):
		default:
			continue
		}
		best, bestAt, bestOK, haveBest = m, at, ok, true
	}
	return best, haveBest
}

// joinNotes combines non-blank notes with " | ".
func joinNotes(notes ...string) string {
	var parts []string
	for _, n := range notes {
		if n = strings.TrimSpace(n); n != "" {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, " | ")
}
