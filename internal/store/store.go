// Package store persists the history of processed uploads.
package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/sales-insights/internal/dataset"
)

// ErrNotFound is returned when an upload does not exist.
var ErrNotFound = eris.New("store: upload not found")

// DefaultListLimit caps ListUploads when no limit is given.
const DefaultListLimit = 20

// Upload is one processed file.
type Upload struct {
	ID           uuid.UUID       `json:"id"`
	Filename     string          `json:"filename"`
	Rows         int             `json:"rows"`
	Mapping      json.RawMessage `json:"mapped_columns"`
	Columns      []string        `json:"final_columns"`
	Insights     []string        `json:"insights"`
	Imputation   string          `json:"imputation"`
	TotalRevenue float64         `json:"total_revenue"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Store defines upload history persistence.
type Store interface {
	// SaveUpload records u and its canonical rows in one transaction.
	SaveUpload(ctx context.Context, u *Upload, rows []dataset.Row) error
	GetUpload(ctx context.Context, id uuid.UUID) (*Upload, error)
	// ListUploads returns the most recent uploads first.
	ListUploads(ctx context.Context, limit int) ([]Upload, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open creates the store for driver ("sqlite" or "postgres").
func Open(ctx context.Context, driver, dsn string, pool *PoolConfig) (Store, error) {
	switch driver {
	case "sqlite":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn, pool)
	default:
		return nil, eris.Errorf("store: unsupported driver %q", driver)
	}
}

var rowColumns = []string{
	"upload_id", "row_num",
	"transaction_date", "transaction_id", "product_category",
	"quantity", "price_per_unit", "cost_per_unit", "client_region",
	"revenue", "profit",
}

// rowValues flattens r for insertion. Nil fields become NULL.
func rowValues(uploadID string, n int, r dataset.Row) []any {
	return []any{
		uploadID, n,
		deref(r.Date), deref(r.ID), deref(r.Category),
		deref(r.Quantity), deref(r.Price), deref(r.Cost), deref(r.Region),
		deref(r.Revenue), deref(r.Profit),
	}
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

func encodeLists(u *Upload) (mapping, columns, insights []byte, err error) {
	mapping = u.Mapping
	if len(mapping) == 0 {
		mapping = []byte("{}")
	}
	if columns, err = json.Marshal(nonNil(u.Columns)); err != nil {
		return nil, nil, nil, eris.Wrap(err, "store: marshal columns")
	}
	if insights, err = json.Marshal(nonNil(u.Insights)); err != nil {
		return nil, nil, nil, eris.Wrap(err, "store: marshal insights")
	}
	return mapping, columns, insights, nil
}

func decodeLists(u *Upload, mapping, columns, insights []byte) error {
	u.Mapping = json.RawMessage(mapping)
	if err := json.Unmarshal(columns, &u.Columns); err != nil {
		return eris.Wrap(err, "store: unmarshal columns")
	}
	if err := json.Unmarshal(insights, &u.Insights); err != nil {
		return eris.Wrap(err, "store: unmarshal insights")
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func joinColumns() string {
	return strings.Join(rowColumns, ", ")
}
