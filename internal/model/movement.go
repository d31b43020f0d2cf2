package model

// Action is the closed set of transitions the ledger knows how to apply.
type Action string

const (
	ActionSend         Action = "SEND"
	ActionSendFixed    Action = "SEND_FIXED"
	ActionReturn       Action = "RETURN"
	ActionMaintenance  Action = "MAINTENANCE"
	ActionStatusAdjust Action = "STATUS_ADJUST"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionSend, ActionSendFixed, ActionReturn, ActionMaintenance, ActionStatusAdjust:
		return true
	}
	return false
}

// Outbound reports whether the action sends a machine to an event.
func (a Action) Outbound() bool {
	return a == ActionSend || a == ActionSendFixed
}

// DefaultActor is recorded when no authenticated user is known.
const DefaultActor = "System"

// MovementRecord is one immutable row of the history sheet.
type MovementRecord struct {
	Date          string `json:"date"`
	Serial        string `json:"serial"`
	Action        Action `json:"action"` // raw text for rows this service did not write
	EventID       string `json:"eventId"`
	DepartureDate string `json:"departureDate"`
	ReturnDate    string `json:"returnDate"`
	StatusAfter   string `json:"statusAfter"`
	Actor         string `json:"actor"`
	EventName     string `json:"eventName"`
	Producer      string `json:"producer"`
	Commercial    string `json:"commercial"`
	Location      string `json:"location"`
	Note          string `json:"note"`
}
