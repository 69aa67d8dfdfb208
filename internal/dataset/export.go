package dataset

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/sales-insights/internal/schema"
)

// WriteCSV writes ds with the full output schema of reg. Columns the upload
// did not supply are written as empty values, never omitted.
func WriteCSV(w io.Writer, ds *Dataset, reg *schema.Registry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(reg.OutputColumns()); err != nil {
		return eris.Wrap(err, "dataset: write csv header")
	}

	cols := reg.OutputColumns()
	rec := make([]string, len(cols))
	for _, r := range ds.Rows {
		for i, c := range cols {
			rec[i] = formatField(r, schema.Field(c))
		}
		if err := cw.Write(rec); err != nil {
			return eris.Wrap(err, "dataset: write csv row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "dataset: flush csv")
}

func formatField(r Row, f schema.Field) string {
	switch f {
	case schema.TransactionDate:
		return formatDate(r)
	case schema.TransactionID:
		return formatText(r.ID)
	case schema.ProductCategory:
		return formatText(r.Category)
	case schema.Quantity:
		return formatNumber(r.Quantity)
	case schema.PricePerUnit:
		return formatNumber(r.Price)
	case schema.CostPerUnit:
		return formatNumber(r.Cost)
	case schema.ClientRegion:
		return formatText(r.Region)
	case schema.Revenue:
		return formatNumber(r.Revenue)
	case schema.Profit:
		return formatNumber(r.Profit)
	default:
		return ""
	}
}

func formatDate(r Row) string {
	if r.Date == nil {
		return ""
	}
	if r.Date.Hour() == 0 && r.Date.Minute() == 0 && r.Date.Second() == 0 {
		return r.Date.Format("2006-01-02")
	}
	return r.Date.Format("2006-01-02 15:04:05")
}

func formatText(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatNumber(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
