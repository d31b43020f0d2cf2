package model

// EventInfo is the master data of an event, keyed by its id.
type EventInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Producer   string `json:"producer"`
	Commercial string `json:"commercial"`
}
