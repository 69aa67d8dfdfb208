package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/sales-insights/internal/dataset"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, eris.Wrap(err, "sqlite: create dir")
		}
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS uploads (
	id            TEXT PRIMARY KEY,
	filename      TEXT NOT NULL,
	row_count     INTEGER NOT NULL,
	mapping       TEXT NOT NULL,
	final_columns TEXT NOT NULL,
	insights      TEXT NOT NULL,
	imputation    TEXT NOT NULL,
	total_revenue REAL NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS sales_rows (
	upload_id        TEXT NOT NULL REFERENCES uploads(id) ON DELETE CASCADE,
	row_num          INTEGER NOT NULL,
	transaction_date DATETIME,
	transaction_id   TEXT,
	product_category TEXT,
	quantity         REAL,
	price_per_unit   REAL,
	cost_per_unit    REAL,
	client_region    TEXT,
	revenue          REAL,
	profit           REAL,
	PRIMARY KEY (upload_id, row_num)
);

CREATE INDEX IF NOT EXISTS idx_uploads_created_at ON uploads(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveUpload(ctx context.Context, u *Upload, rows []dataset.Row) error {
	mapping, columns, insights, err := encodeLists(u)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO uploads (id, filename, row_count, mapping, final_columns, insights, imputation, total_revenue, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID.String(), u.Filename, u.Rows, string(mapping), string(columns), string(insights),
		u.Imputation, u.TotalRevenue, u.CreatedAt.UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert upload %s", u.ID)
	}

	if len(rows) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO sales_rows (`+joinColumns()+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return eris.Wrap(err, "sqlite: prepare row insert")
		}
		defer stmt.Close() //nolint:errcheck

		for i, r := range rows {
			if _, err := stmt.ExecContext(ctx, rowValues(u.ID.String(), i+1, r)...); err != nil {
				return eris.Wrapf(err, "sqlite: insert row %d", i+1)
			}
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit upload")
}

const uploadColumns = `id, filename, row_count, mapping, final_columns, insights, imputation, total_revenue, created_at`

func (s *SQLiteStore) GetUpload(ctx context.Context, id uuid.UUID) (*Upload, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+uploadColumns+` FROM uploads WHERE id = ?`, id.String())
	u, err := scanUpload(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get upload %s", id)
	}
	return u, nil
}

func (s *SQLiteStore) ListUploads(ctx context.Context, limit int) ([]Upload, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+uploadColumns+` FROM uploads ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limitOrDefault(limit))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list uploads")
	}
	defer rows.Close() //nolint:errcheck

	var out []Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan upload")
		}
		out = append(out, *u)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list uploads iterate")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanUpload(row scannable) (*Upload, error) {
	var (
		u                          Upload
		id                         string
		mapping, columns, insights string
	)
	err := row.Scan(&id, &u.Filename, &u.Rows, &mapping, &columns, &insights,
		&u.Imputation, &u.TotalRevenue, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	if u.ID, err = uuid.Parse(id); err != nil {
		return nil, eris.Wrapf(err, "sqlite: parse upload id %q", id)
	}
	if err := decodeLists(&u, []byte(mapping), []byte(columns), []byte(insights)); err != nil {
		return nil, err
	}
	return &u, nil
}
