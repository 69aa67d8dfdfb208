package analysis

import "github.com/sells-group/sales-insights/internal/dataset"

// Tier identifies which cost imputation strategy was applied.
type Tier string

const (
	TierNone            Tier = "none"
	TierCategoryMargin  Tier = "category_margin"
	TierFlatMargin      Tier = "flat_margin"
	TierAverageMargin   Tier = "average_margin"
	TierAverageFallback Tier = "average_fallback"
)

// Imputation describes the cost backfill performed for one dataset.
type Imputation struct {
	Tier    Tier    `json:"tier" yaml:"tier"`
	Missing int     `json:"missing" yaml:"missing"`
	Filled  int     `json:"filled" yaml:"filled"`
	Margin  float64 `json:"margin,omitempty" yaml:"margin,omitempty"` // average or flat margin; zero for category tier
}

// impute fills nil Cost values in rows according to the tier rules:
//   - all missing, category column present: per-category margin
//   - all missing, no category column: flat fallback margin
//   - partially missing: average margin of complete rows, flat if degenerate
//   - none missing: untouched
func (e *Engine) impute(rows []dataset.Row, hasCategory bool) Imputation {
	missing := 0
	for _, r := range rows {
		if r.Cost == nil {
			missing++
		}
	}

	switch {
	case len(rows) == 0 || missing == 0:
		return Imputation{Tier: TierNone}
	case missing == len(rows) && hasCategory:
		return Imputation{Tier: TierCategoryMargin, Missing: missing, Filled: e.fillByCategory(rows)}
	case missing == len(rows):
		filled := fillFlat(rows, e.cfg.FallbackMargin)
		return Imputation{Tier: TierFlatMargin, Missing: missing, Filled: filled, Margin: e.cfg.FallbackMargin}
	}

	if m, ok := averageMargin(rows); ok {
		return Imputation{Tier: TierAverageMargin, Missing: missing, Filled: fillFlat(rows, m), Margin: m}
	}
	filled := fillFlat(rows, e.cfg.FallbackMargin)
	return Imputation{Tier: TierAverageFallback, Missing: missing, Filled: filled, Margin: e.cfg.FallbackMargin}
}

// fillByCategory resolves each distinct raw category once and broadcasts the
// resulting cost multiplier to every row sharing that raw value.
func (e *Engine) fillByCategory(rows []dataset.Row) int {
	type key struct {
		value string
		null  bool
	}
	multipliers := make(map[key]float64)

	filled := 0
	for i := range rows {
		r := &rows[i]
		if r.Cost != nil || r.Price == nil {
			continue
		}

		k := key{null: r.Category == nil}
		if r.Category != nil {
			k.value = *r.Category
		}
		mul, ok := multipliers[k]
		if !ok {
			canonical := e.normalizer.Normalize(r.Category)
			mul = 1 - e.margins.Margin(canonical)
			multipliers[k] = mul
		}

		cost := *r.Price * mul
		r.Cost = &cost
		filled++
	}
	return filled
}

// fillFlat sets cost = price * (1 - margin) on rows missing cost.
func fillFlat(rows []dataset.Row, margin float64) int {
	filled := 0
	for i := range rows {
		r := &rows[i]
		if r.Cost != nil || r.Price == nil {
			continue
		}
		cost := *r.Price * (1 - margin)
		r.Cost = &cost
		filled++
	}
	return filled
}

// averageMargin returns Σ(price−cost)/Σ(price) over rows that have both
// values. ok is false when no such rows exist or the ratio is outside (0, 1).
func averageMargin(rows []dataset.Row) (float64, bool) {
	var sumPrice, sumDiff float64
	n := 0
	for _, r := range rows {
		if r.Price == nil || r.Cost == nil {
			continue
		}
		sumPrice += *r.Price
		sumDiff += *r.Price - *r.Cost
		n++
	}
	if n == 0 || sumPrice == 0 {
		return 0, false
	}
	m := sumDiff / sumPrice
	if m <= 0 || m >= 1 {
		return 0, false
	}
	return m, true
}

// computeRevenue sets Revenue = price × quantity, nil when either is nil.
func computeRevenue(rows []dataset.Row) {
	for i := range rows {
		r := &rows[i]
		r.Revenue = nil
		if r.Price == nil || r.Quantity == nil {
			continue
		}
		v := *r.Price * *r.Quantity
		r.Revenue = &v
	}
}

// computeProfit sets Profit = revenue − quantity × cost, nil when any input is nil.
func computeProfit(rows []dataset.Row) {
	for i := range rows {
		r := &rows[i]
		r.Profit = nil
		if r.Revenue == nil || r.Quantity == nil || r.Cost == nil {
			continue
		}
		v := *r.Revenue - (*r.Quantity)*(*r.Cost)
		r.Profit = &v
	}
}
