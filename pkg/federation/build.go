package federation

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/wundergraph/pgfederation/pkg/catalog"
	"github.com/wundergraph/pgfederation/pkg/nodeid"
	"github.com/wundergraph/pgfederation/pkg/schemabuilder"
)

// Builder builds federated schemas from a catalog.
type Builder struct {
	catalog *catalog.Catalog
	plugin  *Plugin
	options []schemabuilder.Option
}

func NewBuilder(c *catalog.Catalog, opts ...schemabuilder.Option) *Builder {
	return &Builder{
		catalog: c,
		plugin:  NewPlugin(),
		options: opts,
	}
}

// RegisterReferenceResolver resolves entities of typeName with fn instead of
// the structural strategies. Types without a primary key or node id must
// declare their keys with @key in the type defs passed to the builder.
func (b *Builder) RegisterReferenceResolver(typeName string, fn ReferenceResolver) {
	b.plugin.RegisterReferenceResolver(typeName, fn)
}

// Build runs one schema build. Every call returns a Schema with its own registry.
func (b *Builder) Build() (*Schema, error) {
	opts := make([]schemabuilder.Option, 0, len(b.options)+1)
	opts = append(opts, b.options...)
	opts = append(opts, schemabuilder.WithPlugins(b.plugin))

	result, err := schemabuilder.New(b.catalog, opts...).Build()
	if err != nil {
		return nil, err
	}
	pass, ok := result.Pass(PluginName)
	if !ok {
		return nil, fmt.Errorf("federation: annotation pass missing from build")
	}
	state := pass.(*annotation)

	schema := &Schema{
		Schema:    result.Schema,
		Registry:  state.registry,
		Inflector: result.Build.Inflector,
		entities:  append([]string(nil), state.entities...),
		nodeTypes: make(map[string]string, len(state.nodeTypes)),
		columns:   map[string]map[string]catalog.Attribute{},
		relations: map[string]*catalog.Relation{},
	}
	for identifier, typeName := range state.nodeTypes {
		schema.nodeTypes[identifier] = typeName
	}
	for _, rel := range b.catalog.Relations {
		typeName := result.Build.Inflector.TableType(rel)
		schema.relations[typeName] = rel
		schema.columns[typeName] = relationColumns(result.Build.Inflector, rel)
	}
	return schema, nil
}

// Schema is a built federated schema. It is immutable.
type Schema struct {
	Schema    *ast.Schema
	Registry  *Registry
	Inflector catalog.Inflector

	entities  []string
	nodeTypes map[string]string
	columns   map[string]map[string]catalog.Attribute
	relations map[string]*catalog.Relation
}

// Entities returns the members of the _Entity union in the order they were annotated.
func (s *Schema) Entities() []string {
	return append([]string(nil), s.entities...)
}

// IsEntity reports whether typeName is a member of the _Entity union.
func (s *Schema) IsEntity(typeName string) bool {
	for _, name := range s.entities {
		if name == typeName {
			return true
		}
	}
	return false
}

// TypeForNodeIdentifier returns the type whose node ids start with identifier.
// The query identifier names the root query type.
func (s *Schema) TypeForNodeIdentifier(identifier string) (string, bool) {
	if identifier == nodeid.QueryIdentifier && s.Schema.Query != nil {
		return s.Schema.Query.Name, true
	}
	typeName, ok := s.nodeTypes[identifier]
	return typeName, ok
}

// Column returns the attribute backing a field of a relation backed type.
func (s *Schema) Column(typeName, fieldName string) (catalog.Attribute, bool) {
	attr, ok := s.columns[typeName][fieldName]
	return attr, ok
}

// Relation returns the relation a type was generated from.
func (s *Schema) Relation(typeName string) (*catalog.Relation, bool) {
	rel, ok := s.relations[typeName]
	return rel, ok
}

// ResolveType returns the object type of a resolved _Entity value.
func (s *Schema) ResolveType(value any) (*ast.Definition, error) {
	switch v := value.(type) {
	case queryRoot:
		return s.Schema.Query, nil
	case *Entity:
		if v == nil {
			break
		}
		if _, ok := v.Value.(queryRoot); ok {
			return s.Schema.Query, nil
		}
		if def, ok := s.Schema.Types[v.TypeName]; ok && def.Kind == ast.Object {
			return def, nil
		}
	}
	return nil, fmt.Errorf("%w: %T", ErrUnresolvableEntityType, value)
}
