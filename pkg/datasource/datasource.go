// Package datasource defines the row fetch primitive entity resolution is built on.
package datasource

import (
	"context"

	"github.com/wundergraph/pgfederation/pkg/catalog"
)

// Row is a fetched record keyed by response field name.
type Row map[string]any

// Condition is one equality predicate of a fetch. Conditions of a fetch are combined with AND.
type Condition struct {
	Column catalog.Attribute
	Value  any
}

// Field is a requested output field. Column is empty for fields that are not
// backed by an attribute of the relation, such as __typename or nodeId.
type Field struct {
	Name     string
	Alias    string
	Column   string
	Children []Field
}

// ResponseKey is the key the field is reported under.
func (f Field) ResponseKey() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// Fetcher loads rows of a relation.
type Fetcher interface {
	FetchRows(ctx context.Context, relation *catalog.Relation, where []Condition, fields []Field) ([]Row, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, relation *catalog.Relation, where []Condition, fields []Field) ([]Row, error)

func (f FetcherFunc) FetchRows(ctx context.Context, relation *catalog.Relation, where []Condition, fields []Field) ([]Row, error) {
	return f(ctx, relation, where, fields)
}
