package ledger

import (
	"sort"
	"time"

	"machine-ledger-backend/internal/model"
	"machine-ledger-backend/internal/parse"
)

// FlowDays is the window of the sends/returns series.
const FlowDays = 30

// Summary holds the headline counts of the roster.
type Summary struct {
	Total               int            `json:"total"`
	Available           int            `json:"available"`
	AvailableByLocation map[string]int `json:"availableByLocation"`
	InUse               int            `json:"inUse"` // in use plus fixed
	Fixed               int            `json:"fixed"`
	Overdue             int            `json:"overdue"`
}

// Count is one bucket of a breakdown.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Flow is the number of sends and returns per day.
type Flow struct {
	Labels  []string `json:"labels"`
	Sends   []int    `json:"sends"`
	Returns []int    `json:"returns"`
}

// TopEvent is an event with the number of machines assigned to it.
type TopEvent struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Dashboard aggregates the roster and the history.
type Dashboard struct {
	Summary    Summary        `json:"summary"`
	ByStatus   map[string]int `json:"byStatus"`
	ByCompany  []Count        `json:"byCompany"`
	ByLocation []Count        `json:"byLocation"`
	Flow       Flow           `json:"flow"`
	TopEvents  []TopEvent     `json:"topEvents"`
}

// BuildDashboard computes every dashboard figure as of now.
func BuildDashboard(roster []model.MachineRecord, history []model.MovementRecord, now time.Time, loc *time.Location) Dashboard {
	return Dashboard{
		Summary:    Summarize(roster, now, loc),
		ByStatus:   countByStatus(roster),
		ByCompany:  countBy(roster, func(m model.MachineRecord) string { return m.Company }),
		ByLocation: countBy(roster, machineLocation),
		Flow:       FlowOf(history, now, loc),
		TopEvents:  topEvents(roster),
	}
}

// Summarize counts stock, use and overdue machines. A machine is overdue when
// it is in use and its return date is before today.
func Summarize(roster []model.MachineRecord, now time.Time, loc *time.Location) Summary {
	y, m, d := now.In(loc).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)

	s := Summary{Total: len(roster), AvailableByLocation: map[string]int{}}
	for _, rec := range roster {
		kind, where := model.ClassifyStatus(rec.Status)
		switch kind {
		case model.KindInStock:
			s.Available++
			if where != "" {
				s.AvailableByLocation[where]++
			}
		case model.KindInUse:
			s.InUse++
			if ret, ok := parse.ParseDate(rec.ReturnDate, loc); ok && ret.Before(today) {
				s.Overdue++
			}
		case model.KindFixed:
			s.InUse++
			s.Fixed++
		}
	}
	return s
}

func countByStatus(roster []model.MachineRecord) map[string]int {
	counts := map[string]int{}
	for _, rec := range roster {
		counts[parse.Dash(rec.Status)]++
	}
	return counts
}

func machineLocation(m model.MachineRecord) string {
	if _, where := model.ClassifyStatus(m.Status); where != "" {
		return where
	}
	return m.Location
}

// countBy buckets the roster by key, largest bucket first.
func countBy(roster []model.MachineRecord, key func(model.MachineRecord) string) []Count {
	idx := map[string]int{}
	var counts []Count
	for _, rec := range roster {
		name := parse.Dash(key(rec))
		i, ok := idx[name]
		if !ok {
			i = len(counts)
			idx[name] = i
			counts = append(counts, Count{Name: name})
		}
		counts[i].Count++
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	if counts == nil {
		counts = []Count{}
	}
	return counts
}

// FlowOf counts outbound movements by departure date and returns by return
// date over the last FlowDays days, today included.
func FlowOf(history []model.MovementRecord, now time.Time, loc *time.Location) Flow {
	f := Flow{
		Labels:  make([]string, FlowDays),
		Sends:   make([]int, FlowDays),
		Returns: make([]int, FlowDays),
	}
	day := map[string]int{}
	for i := 0; i < FlowDays; i++ {
		label := parse.FormatDate(now.AddDate(0, 0, i-FlowDays+1), loc)
		f.Labels[i] = label
		day[label] = i
	}

	for _, m := range history {
		switch {
		case m.Action.Outbound():
			if i, ok := day[m.DepartureDate]; ok {
				f.Sends[i]++
			}
		case m.Action == model.ActionReturn:
			if i, ok := day[m.ReturnDate]; ok {
				f.Returns[i]++
			}
		}
	}
	return f
}

func topEvents(roster []model.MachineRecord) []TopEvent {
	idx := map[string]int{}
	events := []TopEvent{}
	for _, rec := range roster {
		if parse.IsPlaceholderID(rec.EventID) {
			continue
		}
		i, ok := idx[rec.EventID]
		if !ok {
			i = len(events)
			idx[rec.EventID] = i
			events = append(events, TopEvent{ID: rec.EventID, Name: parse.Dash(rec.EventName)})
		}
		events[i].Count++
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Count > events[j].Count })
	return events
}
