package ledger

import "errors"

// Validation errors. They are returned before any write happens.
var (
	ErrInvalidAction     = errors.New("select a valid action")
	ErrNoSerials         = errors.New("no machines selected")
	ErrEventRequired     = errors.New("event id is required")
	ErrDepartureRequired = errors.New("departure date is required")
	ErrReturnRequired    = errors.New("return date is required")
	ErrInvalidDate       = errors.New("invalid date")
	ErrUnknownEvent      = errors.New("unknown event id")
	ErrStatusRequired    = errors.New("status is required")
)

// Per-item steps reported in ItemError.
const (
	StepNotFound      = "not-found"
	StepNoRow         = "no-row"
	StepRosterUpdate  = "roster-update"
	StepHistoryAppend = "history-append"
)

// ItemError is a per-serial (or per-step) failure inside an otherwise
// processed batch.
type ItemError struct {
	Serial  string `json:"serial,omitempty"`
	Step    string `json:"step"`
	Message string `json:"message,omitempty"`
}
