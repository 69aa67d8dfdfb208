package dataset

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/sales-insights/internal/reconcile"
	"github.com/sells-group/sales-insights/internal/schema"
)

func TestReadCSV(t *testing.T) {
	input := "\xEF\xBB\xBFдата,ID,Ціна\n2024-01-05,A1,100\n\n,,\n2024-01-06,A2\n"

	tbl, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"дата", "ID", "Ціна"}, tbl.Header)
	require.Len(t, tbl.Records, 2)
	assert.Equal(t, "100", tbl.Value(0, 2))
	assert.Equal(t, "", tbl.Value(1, 2)) // short record
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.True(t, errors.Is(err, ErrEmptyFile))
}

func TestReadXLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sales")
	require.NoError(t, err)
	for _, rec := range [][]string{{"date", "qty", "price"}, {"2024-02-01", "2", "9.5"}} {
		row := sheet.AddRow()
		for _, v := range rec {
			row.AddCell().SetString(v)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	tbl, err := Read(&buf, FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, []string{"date", "qty", "price"}, tbl.Header)
	require.Len(t, tbl.Records, 1)
	assert.Equal(t, "9.5", tbl.Value(0, 2))
}

func TestDetectFormat(t *testing.T) {
	f, err := DetectFormat("sales.CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = DetectFormat("report.xlsx")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = DetectFormat("notes.txt")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		input string
		want  *float64
	}{
		{"100", f64(100)},
		{" 12.5 ", f64(12.5)},
		{"12,5", f64(12.5)},
		{"1 234,50", f64(1234.5)},
		{"1 234,50", f64(1234.5)},
		{"1,234.50", f64(1234.5)},
		{"1,200", f64(1200)},
		{"1,200,000", f64(1200000)},
		{"1,200.50", f64(1200.5)},
		{"-2,500", f64(-2500)},
		{"1.234,50", f64(1234.5)},
		{"1.200.000,5", f64(1200000.5)},
		{"0,125", f64(0.125)},
		{"12,50", f64(12.5)},
		{"1.5", f64(1.5)},
		{"1,2,3", nil},
		{"1,20,000", nil},
		{"-3", f64(-3)},
		{"", nil},
		{"n/a", nil},
		{"NaN", nil},
		{"Inf", nil},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseNumber(tt.input)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2024-03-15", "2024-03-15"},
		{"2024-03-15 10:30:00", "2024-03-15"},
		{"15.03.2024", "2024-03-15"},
		{"03/15/2024", "2024-03-15"},
		{"2024-03-15T10:30:00Z", "2024-03-15"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseDate(tt.input)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Format("2006-01-02"))
		})
	}

	assert.Nil(t, ParseDate(""))
	assert.Nil(t, ParseDate("yesterday"))
}

func TestBuild(t *testing.T) {
	reg := schema.Default()
	tbl := &Table{
		Header: []string{"Дата", "Номер чека", "Категорія", "Кількість", "Ціна", "Notes", "Ціна за од"},
		Records: [][]string{
			{"2024-01-05", "A1", "Electronics", "2", "100", "x", "999"},
			{"bad", "", "  ", "abc", "50,5", "y", "1"},
		},
	}
	m := reconcile.New(reg, reconcile.DefaultThreshold).Reconcile(tbl.Header)

	ds := Build(tbl, m, reg)
	require.Len(t, ds.Rows, 2)

	assert.True(t, ds.Has(schema.PricePerUnit))
	assert.False(t, ds.Has(schema.CostPerUnit))
	assert.False(t, ds.Has(schema.ClientRegion))
	assert.Equal(t, []string{"Transaction_Date", "Transaction_ID", "Product_Category", "Quantity", "Price_Per_Unit"}, ds.Columns(reg))

	r0 := ds.Rows[0]
	require.NotNil(t, r0.Date)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), *r0.Date)
	assert.Equal(t, "A1", *r0.ID)
	assert.Equal(t, "Electronics", *r0.Category)
	assert.InDelta(t, 2, *r0.Quantity, 1e-9)
	// The first price-like column claims the field.
	assert.InDelta(t, 100, *r0.Price, 1e-9)
	assert.Nil(t, r0.Cost)
	assert.Nil(t, r0.Region)

	r1 := ds.Rows[1]
	assert.Nil(t, r1.Date)
	assert.Nil(t, r1.ID)
	assert.Nil(t, r1.Category)
	assert.Nil(t, r1.Quantity)
	assert.InDelta(t, 50.5, *r1.Price, 1e-9)
}

func TestWriteCSV_FullSchema(t *testing.T) {
	reg := schema.Default()
	d := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	ds := New([]Row{
		{Date: &d, ID: str("A1"), Quantity: f64(2), Price: f64(10), Cost: f64(8), Revenue: f64(20), Profit: f64(4)},
		{ID: str("A2")},
	}, schema.TransactionDate, schema.TransactionID, schema.Quantity, schema.PricePerUnit)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, ds, reg))

	want := "Transaction_Date,Transaction_ID,Product_Category,Quantity,Price_Per_Unit,Cost_Per_Unit,Client_Region,Revenue,Profit\n" +
		"2024-01-05,A1,,2,10,8,,20,4\n" +
		",A2,,,,,,,\n"
	assert.Equal(t, want, buf.String())
}

func f64(v float64) *float64 { return &v }
func str(s string) *string   { return &s }
