// Package reconcile maps free-form upload headers onto canonical schema fields.
package reconcile

import (
	"bytes"
	"encoding/json"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/sales-insights/internal/fuzzy"
	"github.com/sells-group/sales-insights/internal/schema"
)

// DefaultThreshold is the minimum score (exclusive) a header needs to be mapped.
const DefaultThreshold = 60

// Decision records how one uploaded header was resolved.
type Decision struct {
	Column    string       `json:"column"`
	BestAlias string       `json:"best_alias,omitempty"`
	Candidate schema.Field `json:"candidate,omitempty"`
	Score     int          `json:"score"`
	Mapped    bool         `json:"mapped"`
	Reason    string       `json:"reason,omitempty"`
}

// Skip reasons reported in Decision.Reason.
const (
	ReasonBlank        = "blank"
	ReasonBelowCutoff  = "below_threshold"
	ReasonAlreadyTaken = "field_already_claimed"
)

// Mapping is an injective, insertion-ordered map from uploaded column name to
// canonical field.
type Mapping struct {
	columns   []string
	byColumn  map[string]schema.Field
	byField   map[schema.Field]string
	decisions []Decision
}

func newMapping() *Mapping {
	return &Mapping{
		byColumn: make(map[string]schema.Field),
		byField:  make(map[schema.Field]string),
	}
}

// Lookup returns the canonical field an uploaded column was mapped to.
func (m *Mapping) Lookup(column string) (schema.Field, bool) {
	f, ok := m.byColumn[column]
	return f, ok
}

// Source returns the uploaded column that claimed f.
func (m *Mapping) Source(f schema.Field) (string, bool) {
	c, ok := m.byField[f]
	return c, ok
}

// Columns returns the mapped uploaded columns in upload order.
func (m *Mapping) Columns() []string {
	return append([]string(nil), m.columns...)
}

// Fields returns the claimed canonical fields in upload order.
func (m *Mapping) Fields() []schema.Field {
	out := make([]schema.Field, len(m.columns))
	for i, c := range m.columns {
		out[i] = m.byColumn[c]
	}
	return out
}

// Len returns the number of mapped columns.
func (m *Mapping) Len() int { return len(m.columns) }

// Decisions returns the per-column resolution trace, including skipped columns.
func (m *Mapping) Decisions() []Decision {
	return append([]Decision(nil), m.decisions...)
}

// Unmapped returns uploaded columns that were not mapped, in upload order.
func (m *Mapping) Unmapped() []string {
	var out []string
	for _, d := range m.decisions {
		if !d.Mapped {
			out = append(out, d.Column)
		}
	}
	return out
}

// MarshalJSON renders the mapping as a JSON object in upload order.
func (m *Mapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range m.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(string(m.byColumn[c]))
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML renders the mapping as a YAML mapping in upload order.
func (m *Mapping) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, c := range m.columns {
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: c},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(m.byColumn[c])},
		)
	}
	return n, nil
}

func (m *Mapping) claim(column string, f schema.Field) {
	m.columns = append(m.columns, column)
	m.byColumn[column] = f
	m.byField[f] = column
}

// Reconciler matches headers against a schema registry. It holds no per-call
// state and is safe for concurrent use.
type Reconciler struct {
	threshold int
	aliases   []scoredAlias
}

type scoredAlias struct {
	alias string
	norm  string
	field schema.Field
}

// New creates a Reconciler over reg. A score must exceed threshold to match.
func New(reg *schema.Registry, threshold int) *Reconciler {
	pairs := reg.Pairs()
	aliases := make([]scoredAlias, len(pairs))
	for i, p := range pairs {
		aliases[i] = scoredAlias{alias: p.Alias, norm: fuzzy.Normalize(p.Alias), field: p.Field}
	}
	return &Reconciler{threshold: threshold, aliases: aliases}
}

// Reconcile maps uploaded column names to canonical fields. Columns are
// considered in order; the first column to claim a field keeps it and later
// candidates for that field stay unmapped.
func (r *Reconciler) Reconcile(uploaded []string) *Mapping {
	m := newMapping()

	for _, col := range uploaded {
		clean := fuzzy.Normalize(col)
		if clean == "" {
			m.decisions = append(m.decisions, Decision{Column: col, Reason: ReasonBlank})
			continue
		}

		best, score := r.bestAlias(clean)
		d := Decision{Column: col, BestAlias: best.alias, Candidate: best.field, Score: score}

		switch {
		case score <= r.threshold:
			d.Reason = ReasonBelowCutoff
			zap.L().Debug("reconcile: no match",
				zap.String("column", col),
				zap.String("best_alias", best.alias),
				zap.Int("score", score),
			)
		case hasField(m, best.field):
			d.Reason = ReasonAlreadyTaken
			prev, _ := m.Source(best.field)
			zap.L().Debug("reconcile: field already claimed",
				zap.String("column", col),
				zap.String("field", string(best.field)),
				zap.String("claimed_by", prev),
			)
		default:
			d.Mapped = true
			m.claim(col, best.field)
			zap.L().Debug("reconcile: matched",
				zap.String("column", col),
				zap.String("field", string(best.field)),
				zap.Int("score", score),
			)
		}
		m.decisions = append(m.decisions, d)
	}

	return m
}

// bestAlias returns the highest-scoring alias; ties keep the earliest.
func (r *Reconciler) bestAlias(clean string) (scoredAlias, int) {
	var best scoredAlias
	bestScore := -1
	for _, a := range r.aliases {
		s := fuzzy.TokenSortRatio(clean, a.norm)
		if s > bestScore {
			best, bestScore = a, s
		}
		if s == 100 {
			break
		}
	}
	return best, max(bestScore, 0)
}

func hasField(m *Mapping, f schema.Field) bool {
	_, ok := m.byField[f]
	return ok
}
