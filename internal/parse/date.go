package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is how dates are persisted in the sheet.
const DateLayout = "02/01/2006"

// TimestampLayout is used for the roster's audit column.
const TimestampLayout = "02/01/2006 15:04:05"

var (
	isoDateRe = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})(?:[T ].*)?$`)
	brDateRe  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
)

// NormalizeDate converts ISO-like ("2024-03-05", "2024-03-05T10:00:00Z") and
// local ("5/3/2024") dates into the persisted dd/mm/yyyy form. Empty input and
// the "-" sentinel normalise to the empty string.
func NormalizeDate(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if IsBlank(s) {
		return "", nil
	}

	var y, m, d string
	if match := isoDateRe.FindStringSubmatch(s); match != nil {
		y, m, d = match[1], match[2], match[3]
	} else if match := brDateRe.FindStringSubmatch(s); match != nil {
		d, m, y = match[1], match[2], match[3]
	} else {
		return "", fmt.Errorf("unrecognised date %q", raw)
	}

	year, _ := strconv.Atoi(y)
	month, _ := strconv.Atoi(m)
	day, _ := strconv.Atoi(d)

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalises 31/02 into March; reject instead of silently shifting.
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return "", fmt.Errorf("invalid calendar date %q", raw)
	}
	return t.Format(DateLayout), nil
}

// ParseDate reads a persisted (or ISO-like) date into a time at midnight in loc.
func ParseDate(raw string, loc *time.Location) (time.Time, bool) {
	normalized, err := NormalizeDate(raw)
	if err != nil || normalized == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(DateLayout, normalized, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatDate renders t in the persisted form, in loc.
func FormatDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// FormatTimestamp renders t for the audit column, in loc.
func FormatTimestamp(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(TimestampLayout)
}

// LoadLocation resolves a timezone name, defaulting to UTC when the name is
// empty or unknown.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
