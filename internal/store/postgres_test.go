package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return &PostgresStore{pool: mock}, mock
}

var uploadRowColumns = []string{"id", "filename", "row_count", "mapping", "final_columns", "insights", "imputation", "total_revenue", "created_at"}

func TestPostgres_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS uploads`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveUpload(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	u := sampleUpload(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO uploads`).
		WithArgs(u.ID.String(), u.Filename, u.Rows, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			u.Imputation, u.TotalRevenue, u.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"sales_rows"}, rowColumns).WillReturnResult(2)
	mock.ExpectCommit()

	require.NoError(t, s.SaveUpload(context.Background(), u, sampleRows()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveUpload_NoRowsSkipsCopy(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	u := sampleUpload(time.Now().UTC())

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO uploads`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, s.SaveUpload(context.Background(), u, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveUpload_CopyFailsRollsBack(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	u := sampleUpload(time.Now().UTC())

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO uploads`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"sales_rows"}, rowColumns).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.SaveUpload(context.Background(), u, sampleRows())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: copy rows")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetUpload(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	id := uuid.New()
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, filename, row_count, .* FROM uploads WHERE id = \$1`).
		WithArgs(id.String()).
		WillReturnRows(pgxmock.NewRows(uploadRowColumns).AddRow(
			id.String(), "sales.csv", 3, []byte(`{"qty":"Quantity"}`), []byte(`["Quantity"]`),
			[]byte(`["ok"]`), "none", 600.0, created))

	u, err := s.GetUpload(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, 3, u.Rows)
	assert.Equal(t, []string{"Quantity"}, u.Columns)
	assert.Equal(t, []string{"ok"}, u.Insights)
	assert.JSONEq(t, `{"qty":"Quantity"}`, string(u.Mapping))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetUpload_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	id := uuid.New()

	mock.ExpectQuery(`FROM uploads WHERE id = \$1`).
		WithArgs(id.String()).
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetUpload(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListUploads(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	a, b := uuid.New(), uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(`ORDER BY created_at DESC LIMIT \$1`).
		WithArgs(DefaultListLimit).
		WillReturnRows(pgxmock.NewRows(uploadRowColumns).
			AddRow(a.String(), "b.csv", 1, []byte(`{}`), []byte(`[]`), []byte(`[]`), "none", 1.0, now).
			AddRow(b.String(), "a.csv", 2, []byte(`{}`), []byte(`[]`), []byte(`[]`), "none", 2.0, now.Add(-time.Hour)))

	list, err := s.ListUploads(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a, list[0].ID)
	assert.Equal(t, b, list[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
