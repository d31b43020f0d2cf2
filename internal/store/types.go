package store

import (
	"fmt"
	"strings"
)

// Range addresses a rectangular block of a sheet. Columns are 0-based
// (0 = "A"); rows are 1-based as in the spreadsheet. A zero FromRow or ToRow
// leaves that bound open ("A:M", "A2:D").
type Range struct {
	Sheet   string
	FromCol int
	ToCol   int
	FromRow int
	ToRow   int
}

// FirstRow is the row the first element returned by Read corresponds to.
func (r Range) FirstRow() int {
	if r.FromRow <= 0 {
		return 1
	}
	return r.FromRow
}

// A1 renders the range in A1 notation, e.g. 'Roster'!A2:Q2000.
func (r Range) A1() string {
	from := ColumnName(r.FromCol)
	to := ColumnName(r.ToCol)
	if r.FromRow > 0 {
		from += fmt.Sprint(r.FromRow)
	}
	if r.ToRow > 0 {
		to += fmt.Sprint(r.ToRow)
	}
	return quoteSheet(r.Sheet) + "!" + from + ":" + to
}

// CellWrite is a single-cell write within a batch.
type CellWrite struct {
	Sheet string
	Row   int // 1-based
	Col   int // 0-based
	Value string
}

// A1 renders the cell address, e.g. 'Roster'!G5.
func (c CellWrite) A1() string {
	return fmt.Sprintf("%s!%s%d", quoteSheet(c.Sheet), ColumnName(c.Col), c.Row)
}

// ColumnName converts a 0-based column index into its letter name
// (0 -> A, 25 -> Z, 26 -> AA).
func ColumnName(col int) string {
	if col < 0 {
		col = 0
	}
	var b []byte
	for n := col + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
