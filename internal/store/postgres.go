package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/sales-insights/internal/dataset"
	"github.com/sells-group/sales-insights/internal/db"
)

// PostgresStore implements Store using pgxpool. Canonical rows are loaded
// with COPY.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 1
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			pgxCfg.MaxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			pgxCfg.MinConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS uploads (
	id            TEXT PRIMARY KEY,
	filename      TEXT NOT NULL,
	row_count     INTEGER NOT NULL,
	mapping       JSONB NOT NULL,
	final_columns JSONB NOT NULL,
	insights      JSONB NOT NULL,
	imputation    TEXT NOT NULL,
	total_revenue DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sales_rows (
	upload_id        TEXT NOT NULL REFERENCES uploads(id) ON DELETE CASCADE,
	row_num          INTEGER NOT NULL,
	transaction_date TIMESTAMPTZ,
	transaction_id   TEXT,
	product_category TEXT,
	quantity         DOUBLE PRECISION,
	price_per_unit   DOUBLE PRECISION,
	cost_per_unit    DOUBLE PRECISION,
	client_region    TEXT,
	revenue          DOUBLE PRECISION,
	profit           DOUBLE PRECISION,
	PRIMARY KEY (upload_id, row_num)
);

CREATE INDEX IF NOT EXISTS idx_uploads_created_at ON uploads(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_sales_rows_category ON sales_rows(product_category);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveUpload(ctx context.Context, u *Upload, rows []dataset.Row) error {
	mapping, columns, insights, err := encodeLists(u)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO uploads (`+uploadColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID.String(), u.Filename, u.Rows, mapping, columns, insights,
		u.Imputation, u.TotalRevenue, u.CreatedAt.UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert upload %s", u.ID)
	}

	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = rowValues(u.ID.String(), i+1, r)
	}
	if _, err := db.CopyFrom(ctx, tx, "sales_rows", rowColumns, values); err != nil {
		return eris.Wrapf(err, "postgres: copy rows for upload %s", u.ID)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit upload")
}

func (s *PostgresStore) GetUpload(ctx context.Context, id uuid.UUID) (*Upload, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+uploadColumns+` FROM uploads WHERE id = $1`, id.String())
	u, err := scanPgUpload(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get upload %s", id)
	}
	return u, nil
}

func (s *PostgresStore) ListUploads(ctx context.Context, limit int) ([]Upload, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+uploadColumns+` FROM uploads ORDER BY created_at DESC LIMIT $1`,
		limitOrDefault(limit))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list uploads")
	}
	defer rows.Close()

	var out []Upload
	for rows.Next() {
		u, err := scanPgUpload(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan upload")
		}
		out = append(out, *u)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list uploads iterate")
}

func scanPgUpload(row pgx.Row) (*Upload, error) {
	var (
		u                          Upload
		id                         string
		mapping, columns, insights []byte
	)
	err := row.Scan(&id, &u.Filename, &u.Rows, &mapping, &columns, &insights,
		&u.Imputation, &u.TotalRevenue, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	if u.ID, err = uuid.Parse(id); err != nil {
		return nil, eris.Wrapf(err, "postgres: parse upload id %q", id)
	}
	if err := decodeLists(&u, mapping, columns, insights); err != nil {
		return nil, err
	}
	return &u, nil
}
