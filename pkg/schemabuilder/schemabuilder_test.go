package schemabuilder

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/wundergraph/pgfederation/pkg/astbuilder"
	"github.com/wundergraph/pgfederation/pkg/catalog"
)

func forumCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Load("../catalog/testdata/forum.yaml")
	require.NoError(t, err)
	return c
}

type recordingPlugin struct {
	name     string
	typeDefs []*ast.Source
	finalize *ast.Source
	onObject func(def *ast.Definition, scope TypeScope) (*ast.Definition, error)

	passes []*recordingPass
}

func (p *recordingPlugin) Name() string { return p.name }

func (p *recordingPlugin) Begin(b *Build) (Pass, error) {
	pass := &recordingPass{plugin: p, build: b, scopes: map[string]TypeScope{}}
	p.passes = append(p.passes, pass)
	return pass, nil
}

type recordingPass struct {
	plugin  *recordingPlugin
	build   *Build
	visited []string
	scopes  map[string]TypeScope
}

func (p *recordingPass) TypeDefs() ([]*ast.Source, error) { return p.plugin.typeDefs, nil }

func (p *recordingPass) ObjectType(def *ast.Definition, scope TypeScope) (*ast.Definition, error) {
	p.visited = append(p.visited, def.Name)
	p.scopes[def.Name] = scope
	if p.plugin.onObject != nil {
		return p.plugin.onObject(def, scope)
	}
	return def, nil
}

func (p *recordingPass) Finalize() (*ast.Source, error) { return p.plugin.finalize, nil }

func TestBuilder_Build(t *testing.T) {
	t.Run("generates types from the catalog", func(t *testing.T) {
		result, err := New(forumCatalog(t)).Build()
		require.NoError(t, err)
		schema := result.Schema

		require.NotNil(t, schema.Query)
		assert.Equal(t, QueryTypeName, schema.Query.Name)
		assert.Equal(t, []string{NodeInterfaceName}, schema.Query.Interfaces)
		for _, name := range []string{"query", "nodeId", "node", "allUsersList", "userById", "user", "usersEmailByUserIdAndEmailId", "allAuditEntriesList"} {
			assert.NotNil(t, schema.Query.Fields.ForName(name), name)
		}

		user := schema.Types["User"]
		require.NotNil(t, user)
		assert.Equal(t, "A user who can log in to the forum.", user.Description)
		assert.Equal(t, []string{NodeInterfaceName}, user.Interfaces)
		assert.Equal(t, "ID!", user.Fields.ForName("nodeId").Type.String())
		assert.Equal(t, "Int!", user.Fields.ForName("id").Type.String())
		assert.Equal(t, "String!", user.Fields.ForName("firstName").Type.String())
		assert.Equal(t, "String", user.Fields.ForName("lastName").Type.String())

		junction := schema.Types["UsersEmail"]
		require.NotNil(t, junction)
		assert.NotNil(t, junction.Fields.ForName("userId"))
		assert.NotNil(t, junction.Fields.ForName("emailId"))

		audit := schema.Types["AuditEntry"]
		require.NotNil(t, audit)
		assert.Empty(t, audit.Interfaces)
		assert.Nil(t, audit.Fields.ForName("nodeId"))
		assert.Equal(t, "Datetime", audit.Fields.ForName("createdAt").Type.String())

		require.NotNil(t, schema.Types["Datetime"])
		assert.Equal(t, ast.Scalar, schema.Types["Datetime"].Kind)

		byKey := schema.Query.Fields.ForName("usersEmailByUserIdAndEmailId")
		require.Len(t, byKey.Arguments, 2)
		assert.Equal(t, "userId", byKey.Arguments[0].Name)
		assert.Equal(t, "emailId", byKey.Arguments[1].Name)
	})

	t.Run("hooks see every object type with its scope", func(t *testing.T) {
		plugin := &recordingPlugin{
			name: "recorder",
			typeDefs: []*ast.Source{{Name: "extra.graphql", Input: `
				type Product { upc: String! }
				extend type Product { name: String }
			`}},
		}
		result, err := New(forumCatalog(t), WithPlugins(plugin)).Build()
		require.NoError(t, err)
		require.Len(t, plugin.passes, 1)
		pass := plugin.passes[0]

		assert.ElementsMatch(t, []string{"Query", "User", "Email", "UsersEmail", "AuditEntry", "Product"}, pass.visited)
		assert.True(t, pass.scopes["Query"].IsRootQuery)
		assert.False(t, pass.scopes["User"].IsRootQuery)
		require.NotNil(t, pass.scopes["User"].Relation)
		assert.Equal(t, "users", pass.scopes["User"].Relation.Name)
		assert.Nil(t, pass.scopes["Product"].Relation)
		require.Len(t, pass.scopes["Product"].Extensions, 1)
		assert.NotNil(t, pass.scopes["Product"].Extensions[0].Fields.ForName("name"))

		found, ok := result.Pass("recorder")
		require.True(t, ok)
		assert.Same(t, pass, found)
		_, ok = result.Pass("other")
		assert.False(t, ok)

		rel, ok := pass.build.RelationForType("UsersEmail")
		require.True(t, ok)
		assert.Equal(t, "users_emails", rel.Name)
	})

	t.Run("replacements are kept and finalize sources are merged", func(t *testing.T) {
		plugin := &recordingPlugin{
			name:     "annotate",
			typeDefs: []*ast.Source{{Name: "directives.graphql", Input: `directive @key(fields: String!) repeatable on OBJECT`}},
			onObject: func(def *ast.Definition, scope TypeScope) (*ast.Definition, error) {
				if scope.Relation == nil || !scope.Relation.HasPrimaryKey() {
					return def, nil
				}
				return astbuilder.WithDirectives(def, astbuilder.Directive("key", map[string]*ast.Value{
					"fields": astbuilder.StringValue("id", false),
				})), nil
			},
			finalize: &ast.Source{Name: "finalize.graphql", Input: `extend type Query { ping: Boolean }`},
		}
		result, err := New(forumCatalog(t), WithPlugins(plugin)).Build()
		require.NoError(t, err)

		assert.NotNil(t, result.Schema.Types["User"].Directives.ForName("key"))
		assert.Nil(t, result.Schema.Types["AuditEntry"].Directives.ForName("key"))
		assert.NotNil(t, result.Schema.Query.Fields.ForName("ping"))
	})

	t.Run("each build gets a fresh pass", func(t *testing.T) {
		plugin := &recordingPlugin{name: "recorder"}
		builder := New(forumCatalog(t), WithPlugins(plugin))
		first, err := builder.Build()
		require.NoError(t, err)
		second, err := builder.Build()
		require.NoError(t, err)

		require.Len(t, plugin.passes, 2)
		assert.NotSame(t, plugin.passes[0], plugin.passes[1])
		assert.NotSame(t, first.Schema, second.Schema)
	})
}

func TestBuilder_BuildErrors(t *testing.T) {
	t.Run("hook error aborts the build", func(t *testing.T) {
		boom := errors.New("boom")
		plugin := &recordingPlugin{
			name: "failing",
			onObject: func(def *ast.Definition, scope TypeScope) (*ast.Definition, error) {
				if def.Name == "Email" {
					return nil, boom
				}
				return def, nil
			},
		}
		_, err := New(forumCatalog(t), WithPlugins(plugin)).Build()
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "plugin failing on type Email")
	})

	t.Run("hook must not rename the type", func(t *testing.T) {
		plugin := &recordingPlugin{
			name: "renaming",
			onObject: func(def *ast.Definition, scope TypeScope) (*ast.Definition, error) {
				return astbuilder.ObjectTypeDefinition("Other", ""), nil
			},
		}
		_, err := New(forumCatalog(t), WithPlugins(plugin)).Build()
		assert.ErrorContains(t, err, "replaced type")
	})

	t.Run("invalid user type defs", func(t *testing.T) {
		_, err := New(forumCatalog(t), WithTypeDefs(&ast.Source{Name: "user.graphql", Input: `type {`})).Build()
		assert.ErrorContains(t, err, "schemabuilder: parse")
	})

	t.Run("schema validation", func(t *testing.T) {
		_, err := New(forumCatalog(t), WithTypeDefs(&ast.Source{Name: "user.graphql", Input: `type Product { owner: Customer }`})).Build()
		assert.ErrorContains(t, err, "schemabuilder: validate")
	})

	t.Run("relations mapping to the same type", func(t *testing.T) {
		c := &catalog.Catalog{Relations: []*catalog.Relation{
			{Name: "user", Attributes: []catalog.Attribute{{Name: "id", Type: "integer"}}},
			{Name: "users", Attributes: []catalog.Attribute{{Name: "id", Type: "integer"}}},
		}}
		_, err := New(c).Build()
		assert.ErrorContains(t, err, "both map to type User")
	})

	t.Run("invalid catalog", func(t *testing.T) {
		_, err := New(&catalog.Catalog{Relations: []*catalog.Relation{{Name: "users"}}}).Build()
		assert.ErrorContains(t, err, "has no attributes")
	})
}
