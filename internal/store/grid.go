package store

import (
	"sort"
	"strings"
)

// cellValue is a positioned cell used to assemble Read results.
type cellValue struct {
	Row   int
	Col   int
	Value string
}

// assembleRows lays cells out the way the Sheets API returns values: one slice
// per row starting at r.FirstRow(), trailing empty cells and rows trimmed,
// empty rows in the middle kept as empty slices.
func assembleRows(cells []cellValue, r Range) [][]string {
	inRange := make([]cellValue, 0, len(cells))
	lastRow := 0
	for _, c := range cells {
		if c.Col < r.FromCol || c.Col > r.ToCol || c.Row < r.FirstRow() {
			continue
		}
		if r.ToRow > 0 && c.Row > r.ToRow {
			continue
		}
		if strings.TrimSpace(c.Value) == "" {
			continue
		}
		inRange = append(inRange, c)
		if c.Row > lastRow {
			lastRow = c.Row
		}
	}
	if len(inRange) == 0 {
		return [][]string{}
	}

	sort.Slice(inRange, func(i, j int) bool {
		if inRange[i].Row != inRange[j].Row {
			return inRange[i].Row < inRange[j].Row
		}
		return inRange[i].Col < inRange[j].Col
	})

	rows := make([][]string, lastRow-r.FirstRow()+1)
	for _, c := range inRange {
		idx := c.Row - r.FirstRow()
		width := c.Col - r.FromCol + 1
		for len(rows[idx]) < width {
			rows[idx] = append(rows[idx], "")
		}
		rows[idx][width-1] = strings.TrimSpace(c.Value)
	}
	for i := range rows {
		if rows[i] == nil {
			rows[i] = []string{}
		}
	}
	return rows
}

// cellsFromRows flattens appended rows into positioned cells starting at row
// start and column fromCol.
func cellsFromRows(rows [][]string, start, fromCol int) []cellValue {
	var cells []cellValue
	for i, row := range rows {
		for j, v := range row {
			cells = append(cells, cellValue{Row: start + i, Col: fromCol + j, Value: v})
		}
	}
	return cells
}
