package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"machine-ledger-backend/internal/model"
)

// Store is the rectangular-range interface to the spreadsheet that holds
// the ledger. Implementations must be safe for concurrent use.
type Store interface {
	// Read returns the trimmed cell text of r. Element 0 is row r.FirstRow();
	// trailing empty cells and rows are omitted.
	Read(ctx context.Context, r Range) ([][]string, error)
	// Append writes rows after the last used row of r.Sheet, starting at
	// column r.FromCol.
	Append(ctx context.Context, r Range, rows [][]string) error
	// BatchWrite applies discontiguous single-cell writes in one call.
	BatchWrite(ctx context.Context, writes []CellWrite) error
}

// batchSize keeps multi-row inserts under the sqlite bind variable limit.
const batchSize = 100

// gormStore implements Store on a SQL table of cells.
type gormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db, now: time.Now}
}

func (s *gormStore) Read(ctx context.Context, r Range) ([][]string, error) {
	q := s.db.WithContext(ctx).
		Where("sheet = ?", r.Sheet).
		Where("col_num BETWEEN ? AND ?", r.FromCol, r.ToCol).
		Where("row_num >= ?", r.FirstRow())
	if r.ToRow > 0 {
		q = q.Where("row_num <= ?", r.ToRow)
	}

	var cells []model.Cell
	if err := q.Order("row_num, col_num").Find(&cells).Error; err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.A1(), err)
	}

	values := make([]cellValue, len(cells))
	for i, c := range cells {
		values[i] = cellValue{Row: c.Row, Col: c.Col, Value: c.Value}
	}
	return assembleRows(values, r), nil
}

func (s *gormStore) Append(ctx context.Context, r Range, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	now := s.now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last int
		if err := tx.Model(&model.Cell{}).
			Where("sheet = ?", r.Sheet).
			Select("COALESCE(MAX(row_num), 0)").
			Scan(&last).Error; err != nil {
			return fmt.Errorf("failed to find last row of %q: %w", r.Sheet, err)
		}

		var cells []model.Cell
		for _, c := range cellsFromRows(rows, last+1, r.FromCol) {
			cells = append(cells, model.Cell{Sheet: r.Sheet, Row: c.Row, Col: c.Col, Value: c.Value, UpdatedAt: now})
		}
		if len(cells) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(&cells, batchSize).Error; err != nil {
			return fmt.Errorf("failed to append %d rows to %q: %w", len(rows), r.Sheet, err)
		}
		return nil
	})
}

func (s *gormStore) BatchWrite(ctx context.Context, writes []CellWrite) error {
	if len(writes) == 0 {
		return nil
	}
	now := s.now()
	// A cell may appear only once per upsert statement; the last write wins.
	pos := make(map[CellWrite]int, len(writes))
	var cells []model.Cell
	for _, w := range writes {
		key := CellWrite{Sheet: w.Sheet, Row: w.Row, Col: w.Col}
		cell := model.Cell{Sheet: w.Sheet, Row: w.Row, Col: w.Col, Value: w.Value, UpdatedAt: now}
		if i, ok := pos[key]; ok {
			cells[i] = cell
			continue
		}
		pos[key] = len(cells)
		cells = append(cells, cell)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return batchUpsertCells(tx, cells)
	})
}

func batchUpsertCells(tx *gorm.DB, cells []model.Cell) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sheet"}, {Name: "row_num"}, {Name: "col_num"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).CreateInBatches(&cells, batchSize).Error
}
