package store

import (
	"context"
	"errors"
	"sync"
)

type cellKey struct {
	sheet    string
	row, col int
}

// MemoryStore is an in-process Store backed by a map of cells. It counts
// calls and can be told to fail, which makes it useful for demos and tests.
type MemoryStore struct {
	mu    sync.Mutex
	cells map[cellKey]string
	last  map[string]int

	Reads   int
	Appends int
	Writes  int

	// Fail, when set, is returned by the matching operation.
	FailRead   error
	FailAppend error
	FailWrite  error
}

// ErrInjected is a convenience error for MemoryStore failure injection.
var ErrInjected = errors.New("injected store failure")

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cells: make(map[cellKey]string), last: make(map[string]int)}
}

// Seed writes rows into sheet starting at row start, column 0.
func (m *MemoryStore) Seed(sheet string, start int, rows [][]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range cellsFromRows(rows, start, 0) {
		m.set(sheet, c.Row, c.Col, c.Value)
	}
}

// Cell returns the raw value of a single cell.
func (m *MemoryStore) Cell(sheet string, row, col int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cells[cellKey{sheet, row, col}]
}

// Calls returns the read, append and write counters.
func (m *MemoryStore) Calls() (reads, appends, writes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Reads, m.Appends, m.Writes
}

func (m *MemoryStore) Read(ctx context.Context, r Range) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reads++
	if m.FailRead != nil {
		return nil, m.FailRead
	}

	var cells []cellValue
	for k, v := range m.cells {
		if k.sheet == r.Sheet {
			cells = append(cells, cellValue{Row: k.row, Col: k.col, Value: v})
		}
	}
	return assembleRows(cells, r), nil
}

func (m *MemoryStore) Append(ctx context.Context, r Range, rows [][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Appends++
	if m.FailAppend != nil {
		return m.FailAppend
	}

	start := m.last[r.Sheet] + 1
	for _, c := range cellsFromRows(rows, start, r.FromCol) {
		m.set(r.Sheet, c.Row, c.Col, c.Value)
	}
	// Rows made only of empty cells still occupy a row.
	if end := start + len(rows) - 1; end > m.last[r.Sheet] {
		m.last[r.Sheet] = end
	}
	return nil
}

func (m *MemoryStore) BatchWrite(ctx context.Context, writes []CellWrite) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Writes++
	if m.FailWrite != nil {
		return m.FailWrite
	}
	for _, w := range writes {
		m.set(w.Sheet, w.Row, w.Col, w.Value)
	}
	return nil
}

func (m *MemoryStore) set(sheet string, row, col int, value string) {
	m.cells[cellKey{sheet, row, col}] = value
	if row > m.last[sheet] {
		m.last[sheet] = row
	}
}
