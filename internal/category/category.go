// Package category maps free-text product categories onto the canonical
// categories of the margin table.
package category

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/sales-insights/internal/fuzzy"
)

// Default is the catch-all category every unmatched value resolves to.
const Default = "default"

// Entry is one row of a margin table.
type Entry struct {
	Category string
	Margin   float64
	Keywords []string
}

// MarginTable maps canonical categories to gross margins. It is immutable
// once built and safe for concurrent reads.
type MarginTable struct {
	entries []Entry
	margins map[string]float64
}

// NewMarginTable validates entries and builds a table. Every margin must lie
// strictly between 0 and 1, categories must be unique, and a "default" entry
// is required.
func NewMarginTable(entries []Entry) (*MarginTable, error) {
	t := &MarginTable{margins: make(map[string]float64, len(entries))}
	for _, e := range entries {
		name := strings.TrimSpace(e.Category)
		if name == "" {
			return nil, eris.New("category: empty category name in margin table")
		}
		if e.Margin <= 0 || e.Margin >= 1 {
			return nil, eris.Errorf("category: margin for %q must be within (0, 1), got %g", name, e.Margin)
		}
		if _, dup := t.margins[name]; dup {
			return nil, eris.Errorf("category: duplicate category %q", name)
		}
		t.margins[name] = e.Margin
		t.entries = append(t.entries, Entry{
			Category: name,
			Margin:   e.Margin,
			Keywords: append([]string(nil), e.Keywords...),
		})
	}
	if _, ok := t.margins[Default]; !ok {
		return nil, eris.New(`category: margin table requires a "default" entry`)
	}
	return t, nil
}

// Margin returns the margin for category, falling back to the default entry.
func (t *MarginTable) Margin(category string) float64 {
	if m, ok := t.margins[category]; ok {
		return m
	}
	return t.margins[Default]
}

// Categories returns the canonical category names in table order.
func (t *MarginTable) Categories() []string {
	out := make([]string, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Category
	}
	return out
}

// Normalizer resolves raw category text to a canonical category.
type Normalizer struct {
	table     *MarginTable
	threshold int
}

// NewNormalizer creates a Normalizer over table. A similarity score must
// exceed threshold to count as a match.
func NewNormalizer(table *MarginTable, threshold int) *Normalizer {
	return &Normalizer{table: table, threshold: threshold}
}

// Normalize returns the canonical category for raw. It never fails: blank or
// unrecognised input yields Default.
func (n *Normalizer) Normalize(raw *string) string {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return Default
	}
	if _, ok := n.table.margins[*raw]; ok {
		return *raw
	}

	text := strings.ToLower(*raw)
	best, bestScore := Default, -1
	for _, e := range n.table.entries {
		if e.Category == Default {
			continue
		}
		score := fuzzy.TokenSetRatio(text, strings.ToLower(e.Category))
		for _, kw := range e.Keywords {
			score = max(score, fuzzy.TokenSetRatio(text, kw))
		}
		if score > bestScore {
			best, bestScore = e.Category, score
		}
	}

	if bestScore > n.threshold {
		return best
	}
	return Default
}
