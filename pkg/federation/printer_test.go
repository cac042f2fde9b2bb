package federation

import (
	"errors"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

func TestPrinter_Print(t *testing.T) {
	schema := buildForum(t)
	printer, err := NewPrinter(1)
	require.NoError(t, err)

	sdl, err := printer.Print(schema.Schema)
	require.NoError(t, err)

	t.Run("federated schema", func(t *testing.T) {
		g := goldie.New(t, goldie.WithFixtureDir("testdata"), goldie.WithNameSuffix(".golden"))
		g.Assert(t, "federated_schema", []byte(sdl))
	})

	t.Run("drops federation plumbing", func(t *testing.T) {
		for _, fragment := range []string{
			"_entities", "_service", "_Any", "_FieldSet", "_Service", "_Entity",
			"directive @key", "directive @external", "directive @skip", "__schema", "__type",
		} {
			assert.NotContains(t, sdl, fragment)
		}
	})

	t.Run("is valid SDL once the federation definitions are added", func(t *testing.T) {
		_, err := gqlparser.LoadSchema(federationTypeDefs(), &ast.Source{Name: "printed.graphql", Input: sdl})
		assert.NoError(t, err)
	})
}

func TestPrinter_Memoization(t *testing.T) {
	builder := NewBuilder(forumCatalog(t))
	first, err := builder.Build()
	require.NoError(t, err)
	second, err := builder.Build()
	require.NoError(t, err)

	printer, err := NewPrinter(1)
	require.NoError(t, err)

	a, err := printer.Print(first.Schema)
	require.NoError(t, err)
	b, err := printer.Print(first.Schema)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, uint32(1), printer.Renders())

	c, err := printer.Print(second.Schema)
	require.NoError(t, err)
	assert.Equal(t, a, c, "equal schemas print byte identical SDL")
	assert.Equal(t, uint32(2), printer.Renders())

	_, err = printer.Print(first.Schema)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), printer.Renders(), "a size one cache only remembers the last schema")

	larger, err := NewPrinter(2)
	require.NoError(t, err)
	for _, schema := range []*Schema{first, second, first, second} {
		_, err := larger.Print(schema.Schema)
		require.NoError(t, err)
	}
	assert.Equal(t, uint32(2), larger.Renders())
}

func TestPrinter_Errors(t *testing.T) {
	printer, err := NewPrinter(0)
	require.NoError(t, err)
	_, err = printer.Print(nil)
	assert.Error(t, err)
}

func TestPrintFederatedSchema(t *testing.T) {
	schema := buildForum(t)
	sdl, err := PrintFederatedSchema(schema.Schema)
	require.NoError(t, err)
	again, err := PrintFederatedSchema(schema.Schema)
	require.NoError(t, err)
	assert.Equal(t, sdl, again)
	assert.NotEmpty(t, sdl)
}

func TestMustPrinter(t *testing.T) {
	printer, err := NewPrinter(1)
	require.NoError(t, err)
	assert.Same(t, printer, mustPrinter(printer, nil))
	assert.Panics(t, func() { mustPrinter(nil, errors.New("no cache")) })
}

func TestNonDefaultRoots(t *testing.T) {
	assert.Nil(t, nonDefaultRoots(&ast.Schema{Query: &ast.Definition{Name: "Query"}}))

	root := nonDefaultRoots(&ast.Schema{
		Query:    &ast.Definition{Name: "Root"},
		Mutation: &ast.Definition{Name: "Mutation"},
	})
	require.NotNil(t, root)
	require.Len(t, root.OperationTypes, 2)
	assert.Equal(t, ast.Query, root.OperationTypes[0].Operation)
	assert.Equal(t, "Root", root.OperationTypes[0].Type)
	assert.Equal(t, ast.Mutation, root.OperationTypes[1].Operation)
}
