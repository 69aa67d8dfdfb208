// Package analysis imputes missing costs, computes revenue and profit, and
// turns the aggregates into ordered, human-readable insights.
package analysis

import (
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/sales-insights/internal/category"
	"github.com/sells-group/sales-insights/internal/dataset"
	"github.com/sells-group/sales-insights/internal/schema"
)

// Config holds the engine's tunables.
type Config struct {
	FallbackMargin float64 // flat margin used when no better estimate exists
	AOVUplift      float64 // multiplier for the suggested AOV target
	Currency       string  // label appended to money amounts
}

// DefaultConfig returns the stock tunables.
func DefaultConfig() Config {
	return Config{FallbackMargin: 0.30, AOVUplift: 1.15, Currency: "грн"}
}

// Engine runs cost imputation and metrics over canonical datasets. It keeps
// no per-call state and is safe for concurrent use.
type Engine struct {
	margins    *category.MarginTable
	normalizer *category.Normalizer
	cfg        Config
	fmt        *formatter
}

// NewEngine creates an Engine.
func NewEngine(margins *category.MarginTable, normalizer *category.Normalizer, cfg Config) *Engine {
	return &Engine{
		margins:    margins,
		normalizer: normalizer,
		cfg:        cfg,
		fmt:        newFormatter(cfg.Currency),
	}
}

// Group is a revenue total for one category or region.
type Group struct {
	Name    string  `json:"name" yaml:"name"`
	Revenue float64 `json:"revenue" yaml:"revenue"`
}

// Summary holds the aggregate statistics over rows with a valid revenue.
type Summary struct {
	Rows           int     `json:"rows" yaml:"rows"`
	TotalRevenue   float64 `json:"total_revenue" yaml:"total_revenue"`
	TotalProfit    float64 `json:"total_profit" yaml:"total_profit"`
	Transactions   int     `json:"transactions" yaml:"transactions"`
	AOV            float64 `json:"aov" yaml:"aov"`
	TopCategory    *Group  `json:"top_category,omitempty" yaml:"top_category,omitempty"`
	BottomCategory *Group  `json:"bottom_category,omitempty" yaml:"bottom_category,omitempty"`
	TopRegion      *Group  `json:"top_region,omitempty" yaml:"top_region,omitempty"`
	Categories     int     `json:"categories" yaml:"categories"`
}

// Result is the outcome of processing one dataset.
type Result struct {
	Dataset    *dataset.Dataset `json:"-" yaml:"-"`
	Insights   []string         `json:"insights" yaml:"insights"`
	Summary    *Summary         `json:"summary,omitempty" yaml:"summary,omitempty"`
	Imputation Imputation       `json:"imputation" yaml:"imputation"`
	Failed     bool             `json:"failed" yaml:"failed"`
}

// Process enriches ds with imputed costs, Revenue and Profit, and derives the
// insight list. The input dataset is not modified. Process never panics or
// errors; an internal failure yields a single failure insight.
func (e *Engine) Process(ds *dataset.Dataset) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("analysis: processing failed", zap.Any("panic", r))
			res = Result{Dataset: ds, Insights: []string{msgFailed}, Failed: true}
		}
	}()

	if ds == nil {
		panic("analysis: nil dataset")
	}

	var missing []string
	for _, f := range []schema.Field{schema.PricePerUnit, schema.Quantity} {
		if !ds.Has(f) {
			missing = append(missing, string(f))
		}
	}
	if len(missing) > 0 {
		zap.L().Warn("analysis: required columns absent", zap.Strings("missing", missing))
		return Result{Dataset: ds, Insights: []string{msgMissingColumns}, Failed: true}
	}

	out := ds.Clone()
	rows := out.Rows

	computeRevenue(rows)
	imp := e.impute(rows, ds.Has(schema.ProductCategory))
	computeProfit(rows)

	zap.L().Info("analysis: cost imputation",
		zap.String("tier", string(imp.Tier)),
		zap.Int("missing", imp.Missing),
		zap.Int("filled", imp.Filled),
		zap.Float64("margin", imp.Margin),
	)

	sum := e.summarize(out)

	var insights []string
	if msg := e.fmt.imputation(imp); msg != "" {
		insights = append(insights, msg)
	}
	insights = append(insights, e.fmt.summary(sum, e.cfg.AOVUplift)...)

	return Result{Dataset: out, Insights: insights, Summary: sum, Imputation: imp}
}

// summarize aggregates rows with a non-nil Revenue.
func (e *Engine) summarize(ds *dataset.Dataset) *Summary {
	s := &Summary{}
	ids := make(map[string]struct{})
	byCategory := make(map[string]float64)
	byRegion := make(map[string]float64)

	for _, r := range ds.Rows {
		if r.Revenue == nil {
			continue
		}
		s.Rows++
		s.TotalRevenue += *r.Revenue
		if r.Profit != nil {
			s.TotalProfit += *r.Profit
		}
		if r.ID != nil {
			ids[*r.ID] = struct{}{}
		}
		if r.Category != nil {
			byCategory[*r.Category] += *r.Revenue
		}
		if r.Region != nil {
			byRegion[*r.Region] += *r.Revenue
		}
	}

	// Rows without an identifier are not transactions; an absent ID column
	// counts as all-null.
	s.Transactions = len(ids)
	if s.Transactions > 0 {
		s.AOV = s.TotalRevenue / float64(s.Transactions)
	}

	cats := rank(byCategory)
	s.Categories = len(cats)
	if len(cats) > 0 {
		s.TopCategory = &cats[0]
	}
	if len(cats) > 1 {
		s.BottomCategory = &cats[len(cats)-1]
	}
	if regions := rank(byRegion); len(regions) > 0 {
		s.TopRegion = &regions[0]
	}
	return s
}

// rank orders groups by revenue descending, ties by name ascending.
func rank(totals map[string]float64) []Group {
	groups := make([]Group, 0, len(totals))
	for name, rev := range totals {
		groups = append(groups, Group{Name: name, Revenue: rev})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Revenue != groups[j].Revenue {
			return groups[i].Revenue > groups[j].Revenue
		}
		return groups[i].Name < groups[j].Name
	})
	return groups
}
