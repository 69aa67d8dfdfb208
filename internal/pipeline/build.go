package pipeline

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/sales-insights/internal/analysis"
	"github.com/sells-group/sales-insights/internal/category"
	"github.com/sells-group/sales-insights/internal/config"
	"github.com/sells-group/sales-insights/internal/reconcile"
	"github.com/sells-group/sales-insights/internal/schema"
)

// FromConfig assembles a Pipeline over the default schema using the analysis
// settings in cfg.
func FromConfig(cfg config.AnalysisConfig, opts ...Option) (*Pipeline, error) {
	entries := make([]category.Entry, len(cfg.Margins))
	for i, m := range cfg.Margins {
		entries[i] = category.Entry{Category: m.Category, Margin: m.Margin, Keywords: m.Keywords}
	}
	table, err := category.NewMarginTable(entries)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: margin table")
	}

	reg := schema.Default()
	engine := analysis.NewEngine(table, category.NewNormalizer(table, cfg.SimilarityThreshold), analysis.Config{
		FallbackMargin: cfg.FallbackMargin,
		AOVUplift:      cfg.AOVUplift,
		Currency:       cfg.Currency,
	})
	return New(reg, reconcile.New(reg, cfg.SimilarityThreshold), engine, opts...), nil
}
