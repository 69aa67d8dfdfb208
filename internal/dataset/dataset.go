// Package dataset reads uploaded spreadsheets and converts them into typed,
// canonical transaction rows.
package dataset

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sells-group/sales-insights/internal/reconcile"
	"github.com/sells-group/sales-insights/internal/schema"
)

// Row is one canonical transaction. A nil field means the value was missing
// or could not be parsed.
type Row struct {
	Date     *time.Time
	ID       *string
	Category *string
	Quantity *float64
	Price    *float64
	Cost     *float64
	Region   *string

	Revenue *float64
	Profit  *float64
}

// Dataset is a set of canonical rows plus the canonical columns that were
// present in the upload.
type Dataset struct {
	Rows    []Row
	present map[schema.Field]bool
}

// New creates a Dataset with the given present columns.
func New(rows []Row, present ...schema.Field) *Dataset {
	d := &Dataset{Rows: rows, present: make(map[schema.Field]bool, len(present))}
	for _, f := range present {
		d.present[f] = true
	}
	return d
}

// Has reports whether the upload supplied column f.
func (d *Dataset) Has(f schema.Field) bool {
	return d.present[f]
}

// Clone returns a copy of d whose row slice can be modified independently.
func (d *Dataset) Clone() *Dataset {
	c := &Dataset{
		Rows:    append([]Row(nil), d.Rows...),
		present: make(map[schema.Field]bool, len(d.present)),
	}
	for f, ok := range d.present {
		c.present[f] = ok
	}
	return c
}

// Columns returns the present canonical columns in registry order.
func (d *Dataset) Columns(reg *schema.Registry) []string {
	var out []string
	for _, f := range reg.Fields() {
		if d.present[f] {
			out = append(out, string(f))
		}
	}
	return out
}

// Build converts a raw table into canonical rows using m. Unmapped columns
// are dropped; unparseable values become nil.
func Build(t *Table, m *reconcile.Mapping, reg *schema.Registry) *Dataset {
	idx := make(map[schema.Field]int)
	for _, f := range reg.Fields() {
		src, ok := m.Source(f)
		if !ok {
			continue
		}
		for i, h := range t.Header {
			if h == src {
				idx[f] = i
				break
			}
		}
	}

	present := make([]schema.Field, 0, len(idx))
	for f := range idx {
		present = append(present, f)
	}
	ds := New(make([]Row, 0, len(t.Records)), present...)

	cell := func(row int, f schema.Field) (string, bool) {
		i, ok := idx[f]
		if !ok {
			return "", false
		}
		return t.Value(row, i), true
	}

	for r := range t.Records {
		var row Row
		if v, ok := cell(r, schema.TransactionDate); ok {
			row.Date = ParseDate(v)
		}
		if v, ok := cell(r, schema.TransactionID); ok {
			row.ID = ParseText(v)
		}
		if v, ok := cell(r, schema.ProductCategory); ok {
			row.Category = ParseText(v)
		}
		if v, ok := cell(r, schema.Quantity); ok {
			row.Quantity = ParseNumber(v)
		}
		if v, ok := cell(r, schema.PricePerUnit); ok {
			row.Price = ParseNumber(v)
		}
		if v, ok := cell(r, schema.CostPerUnit); ok {
			row.Cost = ParseNumber(v)
		}
		if v, ok := cell(r, schema.ClientRegion); ok {
			row.Region = ParseText(v)
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds
}

// ParseText trims s and returns nil for blank values.
func ParseText(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

var (
	numberCleaner = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", "'", "")

	// 1,200 / 1,200,000 / 1,200.50
	commaGrouped = regexp.MustCompile(`^[+-]?[1-9]\d{0,2}(,\d{3})+(\.\d+)?$`)
	// 1.200,50 / 1.200.000,5
	dotGrouped = regexp.MustCompile(`^[+-]?[1-9]\d{0,2}(\.\d{3})+,\d+$`)
	// 12,5 / 1234,50 / 0,125
	decimalComma = regexp.MustCompile(`^[+-]?\d*,\d+$`)
)

// ParseNumber parses a decimal number, tolerating thousands separators and a
// decimal comma ("1 234,50", "1.234,50"). Comma groups of exactly three
// digits after a non-zero lead are thousands separators, so "1,200" is 1200
// while "12,5" and "0,125" use a decimal comma. It returns nil for blank or
// invalid input.
func ParseNumber(s string) *float64 {
	s = numberCleaner.Replace(strings.TrimSpace(s))
	if s == "" {
		return nil
	}
	switch {
	case commaGrouped.MatchString(s):
		s = strings.ReplaceAll(s, ",", "")
	case dotGrouped.MatchString(s):
		s = strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1)
	case decimalComma.MatchString(s):
		s = strings.Replace(s, ",", ".", 1)
	case strings.Contains(s, ","):
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"02.01.2006 15:04",
	"02.01.2006",
	"01/02/2006",
	"1/2/2006",
	"02-01-2006",
}

// ParseDate tries the supported layouts in order and returns nil when none fit.
// Slash dates are read month-first; dotted dates day-first.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
