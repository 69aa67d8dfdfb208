// Package schema defines the canonical sales-transaction columns every upload
// is reconciled against.
package schema

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// Field identifies a canonical column.
type Field string

const (
	TransactionDate Field = "Transaction_Date"
	TransactionID   Field = "Transaction_ID"
	ProductCategory Field = "Product_Category"
	Quantity        Field = "Quantity"
	PricePerUnit    Field = "Price_Per_Unit"
	CostPerUnit     Field = "Cost_Per_Unit"
	ClientRegion    Field = "Client_Region"

	// Derived columns; never matched against uploads.
	Revenue Field = "Revenue"
	Profit  Field = "Profit"
)

// ValueType is the expected type of a canonical column's values.
type ValueType string

const (
	TypeDate       ValueType = "date"
	TypeIdentifier ValueType = "identifier"
	TypeCategory   ValueType = "category"
	TypeQuantity   ValueType = "quantity"
	TypeAmount     ValueType = "amount"
)

// Definition describes one canonical field.
type Definition struct {
	Field   Field
	Type    ValueType
	Aliases []string
}

// AliasPair links one alias string to the field it names.
type AliasPair struct {
	Alias string
	Field Field
}

// Registry is an immutable, ordered set of canonical field definitions.
// It is safe for concurrent use.
type Registry struct {
	defs  []Definition
	index map[Field]int
	pairs []AliasPair
}

// NewRegistry builds a Registry from defs, preserving their order. Fields
// must be unique.
func NewRegistry(defs []Definition) (*Registry, error) {
	r := &Registry{
		defs:  make([]Definition, 0, len(defs)),
		index: make(map[Field]int, len(defs)),
	}
	for _, d := range defs {
		if _, dup := r.index[d.Field]; dup {
			return nil, eris.Errorf("schema: duplicate field %s", d.Field)
		}
		aliases := append([]string(nil), d.Aliases...)
		r.index[d.Field] = len(r.defs)
		r.defs = append(r.defs, Definition{Field: d.Field, Type: d.Type, Aliases: aliases})
		for _, a := range aliases {
			r.pairs = append(r.pairs, AliasPair{Alias: a, Field: d.Field})
		}
	}
	return r, nil
}

var defaultRegistry = mustRegistry(defaultDefinitions)

// Default returns the built-in sales registry.
func Default() *Registry {
	return defaultRegistry
}

func mustRegistry(defs []Definition) *Registry {
	r, err := NewRegistry(defs)
	if err != nil {
		panic(err)
	}
	return r
}

// Fields returns the canonical fields in declaration order.
func (r *Registry) Fields() []Field {
	out := make([]Field, len(r.defs))
	for i, d := range r.defs {
		out[i] = d.Field
	}
	return out
}

// Has reports whether f is a canonical field of this registry.
func (r *Registry) Has(f Field) bool {
	_, ok := r.index[f]
	return ok
}

// Aliases returns a copy of the alias set for f. It panics for unknown fields.
func (r *Registry) Aliases(f Field) []string {
	return append([]string(nil), r.def(f).Aliases...)
}

// Type returns the expected value type of f. It panics for unknown fields.
func (r *Registry) Type(f Field) ValueType {
	return r.def(f).Type
}

// Pairs returns every (alias, field) pair, fields in declaration order and
// aliases in their listed order.
func (r *Registry) Pairs() []AliasPair {
	return append([]AliasPair(nil), r.pairs...)
}

// OutputColumns returns the column order of a cleaned extract: every
// canonical field followed by Revenue and Profit.
func (r *Registry) OutputColumns() []string {
	cols := make([]string, 0, len(r.defs)+2)
	for _, d := range r.defs {
		cols = append(cols, string(d.Field))
	}
	return append(cols, string(Revenue), string(Profit))
}

func (r *Registry) def(f Field) Definition {
	i, ok := r.index[f]
	if !ok {
		panic(fmt.Sprintf("schema: unknown field %q", f))
	}
	return r.defs[i]
}
