package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"machine-ledger-backend/internal/db"
)

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: sqlDB,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

// newSQLiteStore returns a store on a private in-memory sqlite database.
func newSQLiteStore(t *testing.T) Store {
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))
	return NewGormStore(gormDB)
}

// stores returns every Store backend that runs without external services.
func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"sql":    newSQLiteStore(t),
		"memory": NewMemoryStore(),
	}
}

func TestStore_AppendAndRead(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			header := Range{Sheet: "History", FromCol: 0, ToCol: 2}
			require.NoError(t, s.Append(ctx, header, [][]string{{"Date", "Serial", "Action"}}))
			require.NoError(t, s.Append(ctx, header, [][]string{
				{"05/03/2024", "SN1", "SEND"},
				{"06/03/2024", "SN2", ""},
			}))
			require.NoError(t, s.Append(ctx, header, [][]string{{"07/03/2024", "SN1", "RETURN"}}))

			rows, err := s.Read(ctx, Range{Sheet: "History", FromCol: 0, ToCol: 2, FromRow: 2})
			require.NoError(t, err)
			assert.Equal(t, [][]string{
				{"05/03/2024", "SN1", "SEND"},
				{"06/03/2024", "SN2"},
				{"07/03/2024", "SN1", "RETURN"},
			}, rows)

			other, err := s.Read(ctx, Range{Sheet: "Other", FromCol: 0, ToCol: 2})
			require.NoError(t, err)
			assert.Empty(t, other)
		})
	}
}

func TestStore_BatchWrite(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.BatchWrite(ctx, []CellWrite{
				{Sheet: "Roster", Row: 2, Col: 2, Value: "SN1"},
				{Sheet: "Roster", Row: 2, Col: 6, Value: "Estoque"},
				{Sheet: "Roster", Row: 3, Col: 2, Value: "SN2"},
			}))
			require.NoError(t, s.BatchWrite(ctx, []CellWrite{
				{Sheet: "Roster", Row: 2, Col: 6, Value: "Em Uso"},
				{Sheet: "Roster", Row: 3, Col: 6, Value: "Fixo"},
				{Sheet: "Roster", Row: 3, Col: 6, Value: "Manutenção"},
			}))

			rows, err := s.Read(ctx, Range{Sheet: "Roster", FromCol: 0, ToCol: 16, FromRow: 2, ToRow: 2000})
			require.NoError(t, err)
			require.Len(t, rows, 2)
			assert.Equal(t, []string{"", "", "SN1", "", "", "", "Em Uso"}, rows[0])
			assert.Equal(t, []string{"", "", "SN2", "", "", "", "Manutenção"}, rows[1])
		})
	}
}

func TestGormStore_BatchWriteUpsert(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "cells"`) + `.*` +
		regexp.QuoteMeta(`ON CONFLICT ("sheet","row_num","col_num") DO UPDATE SET`)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := s.BatchWrite(context.Background(), []CellWrite{
		{Sheet: "Roster", Row: 2, Col: 6, Value: "Em Uso"},
		{Sheet: "Roster", Row: 2, Col: 9, Value: "1024"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_BatchWriteRollback(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "cells"`)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := s.BatchWrite(context.Background(), []CellWrite{{Sheet: "Roster", Row: 2, Col: 6, Value: "Fixo"}})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryStore_FailureInjection(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.FailRead = ErrInjected
	s.FailWrite = ErrInjected

	_, err := s.Read(ctx, Range{Sheet: "Roster", ToCol: 3})
	assert.ErrorIs(t, err, ErrInjected)
	assert.ErrorIs(t, s.BatchWrite(ctx, []CellWrite{{Sheet: "Roster", Row: 2}}), ErrInjected)
	assert.NoError(t, s.Append(ctx, Range{Sheet: "History", ToCol: 3}, [][]string{{"x"}}))

	reads, appends, writes := s.Calls()
	assert.Equal(t, 1, reads)
	assert.Equal(t, 1, appends)
	assert.Equal(t, 1, writes)
	assert.Equal(t, "x", s.Cell("History", 1, 0))
}

func TestInstrument_PassesThrough(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	s := Instrument(mem, NewLimiter(1000, 10))

	require.NoError(t, s.Append(ctx, Range{Sheet: "History", ToCol: 1}, [][]string{{"a", "b"}}))
	rows, err := s.Read(ctx, Range{Sheet: "History", ToCol: 1})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}}, rows)

	mem.FailWrite = ErrInjected
	assert.ErrorIs(t, s.BatchWrite(ctx, []CellWrite{{Sheet: "History", Row: 1}}), ErrInjected)
}

func TestInstrument_CancelledWhileThrottled(t *testing.T) {
	s := Instrument(NewMemoryStore(), NewLimiter(0.001, 1))
	ctx, cancel := context.WithCancel(context.Background())

	_, err := s.Read(ctx, Range{Sheet: "S", ToCol: 1})
	require.NoError(t, err)

	cancel()
	_, err = s.Read(ctx, Range{Sheet: "S", ToCol: 1})
	assert.Error(t, err)
}

func TestNewLimiter(t *testing.T) {
	assert.Nil(t, NewLimiter(0, 5))
	l := NewLimiter(2, 0)
	require.NotNil(t, l)
	assert.Equal(t, 1, l.Burst())
}
