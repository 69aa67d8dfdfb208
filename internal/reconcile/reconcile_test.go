package reconcile

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/sales-insights/internal/schema"
)

func newDefault() *Reconciler {
	return New(schema.Default(), DefaultThreshold)
}

func TestReconcile_UkrainianHeaders(t *testing.T) {
	m := newDefault().Reconcile([]string{"дата", "ID", "Категорія", "Кількість", "Ціна"})

	want := map[string]schema.Field{
		"дата":      schema.TransactionDate,
		"ID":        schema.TransactionID,
		"Категорія": schema.ProductCategory,
		"Кількість": schema.Quantity,
		"Ціна":      schema.PricePerUnit,
	}
	require.Equal(t, len(want), m.Len())
	for col, field := range want {
		got, ok := m.Lookup(col)
		require.True(t, ok, col)
		assert.Equal(t, field, got, col)
	}

	_, ok := m.Source(schema.CostPerUnit)
	assert.False(t, ok)
	_, ok = m.Source(schema.ClientRegion)
	assert.False(t, ok)
}

func TestReconcile_FirstClaimWins(t *testing.T) {
	m := newDefault().Reconcile([]string{"date", "time"})

	got, ok := m.Lookup("date")
	require.True(t, ok)
	assert.Equal(t, schema.TransactionDate, got)

	_, ok = m.Lookup("time")
	assert.False(t, ok)
	assert.Equal(t, []string{"time"}, m.Unmapped())

	d := m.Decisions()
	require.Len(t, d, 2)
	assert.Equal(t, ReasonAlreadyTaken, d[1].Reason)
	assert.Equal(t, schema.TransactionDate, d[1].Candidate)
	assert.Equal(t, 100, d[1].Score)
}

func TestReconcile_EveryAliasMapsToItsField(t *testing.T) {
	r := newDefault()
	for _, p := range schema.Default().Pairs() {
		variants := []string{
			p.Alias,
			strings.ToUpper(p.Alias),
			"  " + strings.ReplaceAll(p.Alias, " ", "_") + " ",
		}
		for _, v := range variants {
			m := r.Reconcile([]string{v})
			got, ok := m.Lookup(v)
			require.True(t, ok, "alias %q (variant %q) unmapped", p.Alias, v)
			assert.Equal(t, p.Field, got, "alias %q (variant %q)", p.Alias, v)
		}
	}
}

func TestReconcile_Injective(t *testing.T) {
	var all []string
	for _, p := range schema.Default().Pairs() {
		all = append(all, p.Alias)
	}

	m := newDefault().Reconcile(all)

	seen := map[schema.Field]string{}
	for _, col := range m.Columns() {
		f, _ := m.Lookup(col)
		if prev, dup := seen[f]; dup {
			t.Fatalf("field %s claimed by both %q and %q", f, prev, col)
		}
		seen[f] = col
	}
	assert.Len(t, seen, len(schema.Default().Fields()))
	assert.Equal(t, len(all)-m.Len(), len(m.Unmapped()))
}

func TestReconcile_NearMatches(t *testing.T) {
	m := newDefault().Reconcile([]string{"Order_Date", "Номер_Чека", "Unit Cost", "Client_Region", "Comment"})

	for col, field := range map[string]schema.Field{
		"Order_Date":    schema.TransactionDate,
		"Номер_Чека":    schema.TransactionID,
		"Unit Cost":     schema.CostPerUnit,
		"Client_Region": schema.ClientRegion,
	} {
		got, ok := m.Lookup(col)
		require.True(t, ok, col)
		assert.Equal(t, field, got)
	}
	_, ok := m.Lookup("Comment")
	assert.False(t, ok)
}

func TestReconcile_BlankHeadersSkipped(t *testing.T) {
	m := newDefault().Reconcile([]string{"", "   ", "price"})

	assert.Equal(t, 1, m.Len())
	d := m.Decisions()
	require.Len(t, d, 3)
	assert.Equal(t, ReasonBlank, d[0].Reason)
	assert.Equal(t, ReasonBlank, d[1].Reason)
	assert.True(t, d[2].Mapped)
}

func TestReconcile_ThresholdBoundary(t *testing.T) {
	reg, err := schema.NewRegistry([]schema.Definition{
		{Field: schema.Quantity, Type: schema.TypeQuantity, Aliases: []string{"abcde"}},
	})
	require.NoError(t, err)
	r := New(reg, 60)

	// One substitution in five: 80.
	m := r.Reconcile([]string{"abcdx"})
	_, ok := m.Lookup("abcdx")
	assert.True(t, ok)

	// Two substitutions in five: exactly 60, not above.
	m = r.Reconcile([]string{"abcxy"})
	_, ok = m.Lookup("abcxy")
	assert.False(t, ok)
	assert.Equal(t, 60, m.Decisions()[0].Score)
	assert.Equal(t, ReasonBelowCutoff, m.Decisions()[0].Reason)
}

func TestReconcile_Deterministic(t *testing.T) {
	cols := []string{"Дата замовлення", "Order ID", "category", "qty", "price", "cost", "city", "region"}
	a := newDefault().Reconcile(cols)
	b := newDefault().Reconcile(cols)
	assert.Equal(t, a.Columns(), b.Columns())
	assert.Equal(t, a.Fields(), b.Fields())
	assert.Equal(t, []string{"region"}, a.Unmapped())
}

func TestMapping_MarshalJSON(t *testing.T) {
	m := newDefault().Reconcile([]string{"Ціна", "qty", "notes"})

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"Ціна":"Price_Per_Unit","qty":"Quantity"}`, string(data))
}

func TestMapping_MarshalYAML(t *testing.T) {
	m := newDefault().Reconcile([]string{"qty", "Ціна"})

	data, err := yaml.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, "qty: Quantity\nЦіна: Price_Per_Unit\n", string(data))
}
