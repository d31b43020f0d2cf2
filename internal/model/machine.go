package model

// MachineRecord is one row of the roster sheet. Empty strings mean "no value";
// the "-" sentinel only exists in the sheet itself.
type MachineRecord struct {
	Row           int    `json:"row"` // 1-based sheet row, stable until the roster is reloaded
	Code          string `json:"code"`
	Model         string `json:"model"`
	Serial        string `json:"serial"`
	Carrier       string `json:"carrier"`
	Chip          string `json:"chip"`
	Notes         string `json:"notes"`
	Status        string `json:"status"`
	Location      string `json:"location"`
	Company       string `json:"company"`
	EventID       string `json:"eventId"`
	EventName     string `json:"eventName"`
	Producer      string `json:"producer"`
	Commercial    string `json:"commercial"`
	DepartureDate string `json:"departureDate"`
	ReturnDate    string `json:"returnDate"`
	UpdatedAt     string `json:"updatedAt"`
	UpdatedBy     string `json:"updatedBy"`
}

// Kind classifies the record's status tag.
func (m MachineRecord) Kind() StatusKind {
	kind, _ := ClassifyStatus(m.Status)
	return kind
}
