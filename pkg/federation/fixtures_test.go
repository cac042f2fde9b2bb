package federation

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/wundergraph/pgfederation/pkg/catalog"
	"github.com/wundergraph/pgfederation/pkg/datasource/memory"
	"github.com/wundergraph/pgfederation/pkg/nodeid"
	"github.com/wundergraph/pgfederation/pkg/schemabuilder"
)

const productTypeDefs = `
type Product @key(fields: "upc") {
  upc: String!
  name: String
  price: Int
}

extend type Query {
  topProducts: [Product!]
}
`

func forumCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Load("../catalog/testdata/forum.yaml")
	require.NoError(t, err)
	return c
}

func relation(t *testing.T, c *catalog.Catalog, name string) *catalog.Relation {
	t.Helper()
	rel, ok := c.Relation(name)
	require.True(t, ok, name)
	return rel
}

func buildForum(t *testing.T, opts ...schemabuilder.Option) *Schema {
	t.Helper()
	schema, err := NewBuilder(forumCatalog(t), opts...).Build()
	require.NoError(t, err)
	return schema
}

func seedForum(t *testing.T, c *catalog.Catalog, opts ...memory.Option) *memory.Store {
	t.Helper()
	store := memory.New(opts...)
	require.NoError(t, store.Insert(relation(t, c, "users"),
		map[string]any{"id": 1, "first_name": "alicia", "last_name": "keys"},
		map[string]any{"id": 2, "first_name": "bob", "last_name": "marley"},
		map[string]any{"id": 3, "first_name": "carole", "last_name": "king"},
	))
	require.NoError(t, store.Insert(relation(t, c, "emails"),
		map[string]any{"id": 1, "email": "alicia@example.com"},
		map[string]any{"id": 2, "email": "a.keys@example.com"},
	))
	require.NoError(t, store.Insert(relation(t, c, "users_emails"),
		map[string]any{"user_id": 1, "email_id": 2},
	))
	return store
}

// entitiesSelection returns the selection set of an _entities field written as
// the body of the field.
func entitiesSelection(t *testing.T, schema *ast.Schema, selection string) ast.SelectionSet {
	t.Helper()
	doc, errs := gqlparser.LoadQuery(schema, `{ _entities(representations: []) `+selection+` }`)
	require.Empty(t, errs)
	return doc.Operations[0].SelectionSet[0].(*ast.Field).SelectionSet
}

func mustNodeID(t *testing.T, identifier string, values ...any) string {
	t.Helper()
	id, err := nodeid.Encode(identifier, values...)
	require.NoError(t, err)
	return id
}
