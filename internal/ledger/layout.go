package ledger

import (
	"machine-ledger-backend/config"
	"machine-ledger-backend/internal/model"
	"machine-ledger-backend/internal/parse"
	"machine-ledger-backend/internal/store"
)

// Roster columns, A through Q. The order is a contract with the sheet.
const (
	colCode = iota
	colModel
	colSerial
	colCarrier
	colChip
	colNotes
	colStatus
	colLocation
	colCompany
	colEventID
	colEventName
	colProducer
	colCommercial
	colDepartureDate
	colReturnDate
	colUpdatedAt
	colUpdatedBy

	rosterWidth
)

// History columns, A through M.
const (
	histDate = iota
	histSerial
	histAction
	histEventID
	histDepartureDate
	histReturnDate
	histStatusAfter
	histActor
	histEventName
	histProducer
	histCommercial
	histLocation
	histNote

	historyWidth
)

// Events columns, A through D.
const (
	evID = iota
	evName
	evProducer
	evCommercial

	eventsWidth
)

// firstDataRow skips the header row of every sheet.
const firstDataRow = 2

// Layout names the sheets of the ledger and the extent of their data.
type Layout struct {
	RosterSheet    string
	HistorySheet   string
	EventsSheet    string
	RosterLastRow  int
	HistoryLastRow int
}

// LayoutFromConfig builds a Layout from the ledger configuration.
func LayoutFromConfig(cfg *config.LedgerConfig) Layout {
	return Layout{
		RosterSheet:    cfg.RosterSheet,
		HistorySheet:   cfg.HistorySheet,
		EventsSheet:    cfg.EventsSheet,
		RosterLastRow:  cfg.RosterLastRow,
		HistoryLastRow: cfg.HistoryLastRow,
	}
}

func (l Layout) rosterRange() store.Range {
	return store.Range{Sheet: l.RosterSheet, FromCol: colCode, ToCol: rosterWidth - 1, FromRow: firstDataRow, ToRow: l.RosterLastRow}
}

func (l Layout) historyRange() store.Range {
	return store.Range{Sheet: l.HistorySheet, FromCol: histDate, ToCol: historyWidth - 1, FromRow: firstDataRow, ToRow: l.HistoryLastRow}
}

func (l Layout) historyAppendRange() store.Range {
	return store.Range{Sheet: l.HistorySheet, FromCol: histDate, ToCol: historyWidth - 1}
}

func (l Layout) eventsRange() store.Range {
	return store.Range{Sheet: l.EventsSheet, FromCol: evID, ToCol: eventsWidth - 1, FromRow: firstDataRow}
}

func col(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return parse.Cell(row[i])
}

func machineFromRow(row []string, rowNum int) model.MachineRecord {
	return model.MachineRecord{
		Row:           rowNum,
		Code:          col(row, colCode),
		Model:         col(row, colModel),
		Serial:        col(row, colSerial),
		Carrier:       col(row, colCarrier),
		Chip:          col(row, colChip),
		Notes:         col(row, colNotes),
		Status:        col(row, colStatus),
		Location:      col(row, colLocation),
		Company:       col(row, colCompany),
		EventID:       col(row, colEventID),
		EventName:     col(row, colEventName),
		Producer:      col(row, colProducer),
		Commercial:    col(row, colCommercial),
		DepartureDate: col(row, colDepartureDate),
		ReturnDate:    col(row, colReturnDate),
		UpdatedAt:     col(row, colUpdatedAt),
		UpdatedBy:     col(row, colUpdatedBy),
	}
}

func movementFromRow(row []string) model.MovementRecord {
	return model.MovementRecord{
		Date:          col(row, histDate),
		Serial:        col(row, histSerial),
		Action:        parse.ParseRecordedAction(col(row, histAction)),
		EventID:       col(row, histEventID),
		DepartureDate: col(row, histDepartureDate),
		ReturnDate:    col(row, histReturnDate),
		StatusAfter:   col(row, histStatusAfter),
		Actor:         col(row, histActor),
		EventName:     col(row, histEventName),
		Producer:      col(row, histProducer),
		Commercial:    col(row, histCommercial),
		Location:      col(row, histLocation),
		Note:          col(row, histNote),
	}
}

func movementToRow(m model.MovementRecord) []string {
	row := make([]string, historyWidth)
	row[histDate] = m.Date
	row[histSerial] = m.Serial
	row[histAction] = string(m.Action)
	row[histEventID] = m.EventID
	row[histDepartureDate] = m.DepartureDate
	row[histReturnDate] = m.ReturnDate
	row[histStatusAfter] = m.StatusAfter
	row[histActor] = m.Actor
	row[histEventName] = m.EventName
	row[histProducer] = m.Producer
	row[histCommercial] = m.Commercial
	row[histLocation] = m.Location
	row[histNote] = m.Note
	for i := range row {
		row[i] = parse.Dash(row[i])
	}
	return row
}

func eventFromRow(row []string) model.EventInfo {
	return model.EventInfo{
		ID:         col(row, evID),
		Name:       col(row, evName),
		Producer:   col(row, evProducer),
		Commercial: col(row, evCommercial),
	}
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if !parse.IsBlank(v) {
			return false
		}
	}
	return true
}
