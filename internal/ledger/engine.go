package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"machine-ledger-backend/internal/logging"
	"machine-ledger-backend/internal/model"
	"machine-ledger-backend/internal/observe"
	"machine-ledger-backend/internal/parse"
)

var lEngine = logging.Subsystem("Engine")

// SerialRef names a machine of a batch. RowHint is the row the client saw;
// the index row takes precedence.
type SerialRef struct {
	Serial  string
	RowHint int
}

// Request is one transition over a batch of machines. EventID and Location
// are pointers so an omitted field can be told apart from an empty one.
type Request struct {
	Action        model.Action
	Qualifier     string // location parsed from the action text, e.g. "Retorno SP"
	Serials       []SerialRef
	EventID       *string
	Location      *string
	DepartureDate string
	ReturnDate    string
	Note          string
	OriginNote    string
	Status        string // STATUS_ADJUST only
	Actor         string
}

// Result is the structured outcome of Apply.
type Result struct {
	Applied     []string    `json:"applied"`
	NeedsOrigin []string    `json:"needsOrigin,omitempty"`
	Errors      []ItemError `json:"errors,omitempty"`
}

// OK reports whether every serial of the batch was applied.
func (r Result) OK() bool {
	return len(r.NeedsOrigin) == 0 && len(r.Errors) == 0
}

// Engine computes and applies the effects of a transition.
type Engine struct {
	registry *Registry
	recorder *Recorder
	loc      *time.Location
	now      func() time.Time
}

// NewEngine creates an engine. Dates are rendered in loc; a nil clock uses
// time.Now.
func NewEngine(registry *Registry, recorder *Recorder, loc *time.Location, now func() time.Time) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{registry: registry, recorder: recorder, loc: loc, now: now}
}

// batch is a validated Request plus the values shared by all its machines.
type batch struct {
	req       Request
	serials   []SerialRef
	departure string
	ret       string
	status    string
	event     *model.EventInfo
	actor     string
	today     string
	stamp     string

	history       []model.MovementRecord
	historyLoaded bool
}

// Apply validates req, computes one patch and one movement per machine and
// writes them: patches first, then the history rows. Validation failures
// are returned as errors before anything is written; everything else is
// reported in the Result.
func (e *Engine) Apply(ctx context.Context, req Request) (Result, error) {
	log := logging.FromContext(ctx, lEngine).WithField("action", req.Action)

	b, err := e.validate(ctx, req)
	if err != nil {
		observe.Transitions.WithLabelValues(string(req.Action), "rejected").Inc()
		log.WithError(err).Info("transition rejected")
		return Result{}, err
	}

	index := e.registry.GetIndex(ctx, true)

	res := Result{Applied: []string{}}
	var (
		accepted  []string
		patches   []Patch
		movements []model.MovementRecord
	)
	for _, ref := range b.serials {
		rec, ok := index[ref.Serial]
		if !ok {
			res.Errors = append(res.Errors, ItemError{Serial: ref.Serial, Step: StepNotFound, Message: "serial not found in roster"})
			continue
		}
		row := rec.Row
		if row <= 0 {
			row = ref.RowHint
		}
		if row <= 0 {
			res.Errors = append(res.Errors, ItemError{Serial: ref.Serial, Step: StepNoRow, Message: "roster row unknown"})
			continue
		}
		if ref.RowHint > 0 && ref.RowHint != row {
			log.WithFields(logrus.Fields{"serial": ref.Serial, "hint": ref.RowHint, "row": row}).Warn("row hint is stale, using roster row")
		}

		next, mv, needsOrigin := e.transition(ctx, b, rec)
		if needsOrigin {
			res.NeedsOrigin = append(res.NeedsOrigin, rec.Serial)
			continue
		}
		patches = append(patches, patchFor(next, row, b))
		movements = append(movements, mv)
		accepted = append(accepted, rec.Serial)
	}

	if len(res.NeedsOrigin) > 0 {
		observe.Transitions.WithLabelValues(string(req.Action), "needs_origin").Inc()
		log.WithField("serials", res.NeedsOrigin).Info("return needs a manual origin, nothing written")
		return res, nil
	}

	if len(patches) > 0 {
		if !e.recorder.ApplyPatches(ctx, patches) {
			for _, s := range accepted {
				res.Errors = append(res.Errors, ItemError{Serial: s, Step: StepRosterUpdate, Message: "could not update roster"})
			}
			observe.Transitions.WithLabelValues(string(req.Action), "failed").Inc()
			return res, nil
		}
		res.Applied = accepted
		if !e.recorder.AppendMovements(ctx, movements...) {
			res.Errors = append(res.Errors, ItemError{Step: StepHistoryAppend, Message: "roster updated but history append failed"})
		}
	}

	outcome := "applied"
	switch {
	case len(res.Applied) == 0:
		outcome = "failed"
	case len(res.Errors) > 0:
		outcome = "partial"
	}
	observe.Transitions.WithLabelValues(string(req.Action), outcome).Inc()
	log.WithFields(logrus.Fields{"applied": len(res.Applied), "errors": len(res.Errors)}).Info("transition processed")
	return res, nil
}

func (e *Engine) validate(ctx context.Context, req Request) (*batch, error) {
	if !req.Action.Valid() {
		return nil, ErrInvalidAction
	}

	b := &batch{req: req}
	seen := make(map[string]bool)
	for _, ref := range req.Serials {
		s := strings.TrimSpace(ref.Serial)
		if parse.IsBlank(s) || seen[s] {
			continue
		}
		seen[s] = true
		b.serials = append(b.serials, SerialRef{Serial: s, RowHint: ref.RowHint})
	}
	if len(b.serials) == 0 {
		return nil, ErrNoSerials
	}

	if req.Action == model.ActionStatusAdjust {
		b.status = strings.TrimSpace(req.Status)
		if parse.IsBlank(b.status) {
			return nil, ErrStatusRequired
		}
	}

	var err error
	if b.departure, err = parse.NormalizeDate(req.DepartureDate); err != nil {
		return nil, fmt.Errorf("%w: departure date %q", ErrInvalidDate, req.DepartureDate)
	}
	if b.ret, err = parse.NormalizeDate(req.ReturnDate); err != nil {
		return nil, fmt.Errorf("%w: return date %q", ErrInvalidDate, req.ReturnDate)
	}

	eventID := ""
	if req.EventID != nil {
		eventID = strings.TrimSpace(*req.EventID)
	}
	if req.Action.Outbound() {
		if parse.IsBlank(eventID) {
			return nil, ErrEventRequired
		}
		if b.departure == "" {
			return nil, ErrDepartureRequired
		}
		if req.Action == model.ActionSend && b.ret == "" {
			return nil, ErrReturnRequired
		}
		if b.event = e.registry.EventInfo(ctx, eventID); b.event == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, eventID)
		}
	} else if !parse.IsBlank(eventID) {
		b.event = e.registry.EventInfo(ctx, eventID)
	}

	b.actor = strings.TrimSpace(req.Actor)
	if b.actor == "" {
		b.actor = model.DefaultActor
	}
	now := e.now()
	b.today = parse.FormatDate(now, e.loc)
	b.stamp = parse.FormatTimestamp(now, e.loc)
	return b, nil
}

func (e *Engine) loadHistory(ctx context.Context, b *batch) []model.MovementRecord {
	if !b.historyLoaded {
		b.history = e.registry.History(ctx)
		b.historyLoaded = true
	}
	return b.history
}

// transition returns the next state of rec and its movement row. The bool is
// true when a return has no origin and no origin note.
func (e *Engine) transition(ctx context.Context, b *batch, rec model.MachineRecord) (model.MachineRecord, model.MovementRecord, bool) {
	next := rec
	req := b.req

	switch req.Action {
	case model.ActionSend, model.ActionSendFixed:
		next.Status = model.StatusInUse
		next.ReturnDate = b.ret
		if req.Action == model.ActionSendFixed {
			next.Status = model.StatusFixed
			next.ReturnDate = ""
		}
		setEvent(&next, b.event)
		next.DepartureDate = b.departure
		if loc := explicitLocation(req); loc != "" {
			next.Location = loc
		} else if req.Qualifier != "" {
			next.Location = req.Qualifier
		}
		return next, movementFor(next, b), false

	case model.ActionReturn:
		var history []model.MovementRecord
		if parse.IsPlaceholderID(rec.EventID) {
			history = e.loadHistory(ctx, b)
		}
		origin, source := ResolveOrigin(rec, history, e.loc)
		if source == OriginNone && strings.TrimSpace(req.OriginNote) == "" {
			return next, model.MovementRecord{}, true
		}

		loc := explicitLocation(req)
		if loc == "" {
			loc = req.Qualifier
		}
		next.Status = model.StockStatus(loc)
		next.Location = loc
		clearEvent(&next)
		next.DepartureDate = ""
		next.ReturnDate = ""

		mv := movementFor(next, b)
		mv.EventID = origin.EventID
		mv.EventName = origin.EventName
		mv.Producer = origin.Producer
		mv.Commercial = origin.Commercial
		mv.DepartureDate = origin.DepartureDate
		mv.ReturnDate = b.today
		if source == OriginNone {
			mv.Note = joinNotes(req.Note, req.OriginNote)
		}
		return next, mv, false

	case model.ActionMaintenance:
		next.Status = model.StatusMaintenance
		passthrough(&next, rec, b)
		return next, movementFor(next, b), false

	case model.ActionStatusAdjust:
		next.Status = b.status
		passthrough(&next, rec, b)
		switch kind, _ := model.ClassifyStatus(b.status); kind {
		case model.KindFixed:
			next.ReturnDate = ""
		case model.KindInStock:
			clearEvent(&next)
			next.ReturnDate = ""
		}
		return next, movementFor(next, b), false
	}
	return next, movementFor(next, b), false
}

func explicitLocation(req Request) string {
	if req.Location == nil {
		return ""
	}
	return parse.Cell(*req.Location)
}

// passthrough applies the optional event id and location of req.
func passthrough(next *model.MachineRecord, rec model.MachineRecord, b *batch) {
	req := b.req
	if req.EventID != nil {
		id := parse.Cell(*req.EventID)
		switch {
		case id == "":
			clearEvent(next)
		case b.event != nil:
			setEvent(next, b.event)
		case id != rec.EventID:
			clearEvent(next)
			next.EventID = id
		}
	}
	if req.Location != nil {
		next.Location = parse.Cell(*req.Location)
	}
}

func setEvent(m *model.MachineRecord, ev *model.EventInfo) {
	m.EventID = ev.ID
	m.EventName = ev.Name
	m.Producer = ev.Producer
	m.Commercial = ev.Commercial
}

func clearEvent(m *model.MachineRecord) {
	m.EventID = ""
	m.EventName = ""
	m.Producer = ""
	m.Commercial = ""
}

func movementFor(next model.MachineRecord, b *batch) model.MovementRecord {
	return model.MovementRecord{
		Date:          b.today,
		Serial:        next.Serial,
		Action:        b.req.Action,
		EventID:       next.EventID,
		DepartureDate: next.DepartureDate,
		ReturnDate:    next.ReturnDate,
		StatusAfter:   next.Status,
		Actor:         b.actor,
		EventName:     next.EventName,
		Producer:      next.Producer,
		Commercial:    next.Commercial,
		Location:      next.Location,
		Note:          strings.TrimSpace(b.req.Note),
	}
}

// patchFor writes every mutable roster column of next plus the audit
// columns.
func patchFor(next model.MachineRecord, row int, b *batch) Patch {
	p := Patch{Serial: next.Serial, Row: row}
	p.set(colStatus, next.Status)
	p.set(colLocation, next.Location)
	p.set(colEventID, next.EventID)
	p.set(colEventName, next.EventName)
	p.set(colProducer, next.Producer)
	p.set(colCommercial, next.Commercial)
	p.set(colDepartureDate, next.DepartureDate)
	p.set(colReturnDate, next.ReturnDate)
	p.set(colUpdatedAt, b.stamp)
	p.set(colUpdatedBy, b.actor)
	return p
}
