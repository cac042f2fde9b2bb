// Package schemabuilder assembles a GraphQL schema from a relational catalog.
//
// Plugins take part in every build. Each build asks every plugin for a Pass,
// a value that lives exactly as long as the build and receives the hooks:
//
//	TypeDefs   extra SDL parsed together with the generated schema
//	ObjectType called for every object type, may return a replacement definition
//	Finalize   extra SDL parsed after all object types were visited
//
// Passes run in plugin registration order.
package schemabuilder

import (
	"fmt"
	"strings"

	log "github.com/jensneuse/abstractlogger"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"

	"github.com/wundergraph/pgfederation/pkg/catalog"
)

const (
	QueryTypeName     = "Query"
	NodeInterfaceName = "Node"
	NodeIDFieldName   = "nodeId"
)

// TypeScope describes where an object type came from.
type TypeScope struct {
	IsRootQuery bool
	// Relation is set for types generated from a catalog relation.
	Relation *catalog.Relation
	// Extensions are the `extend type` blocks targeting the same type.
	Extensions []*ast.Definition
}

type Plugin interface {
	Name() string
	Begin(b *Build) (Pass, error)
}

type Pass interface {
	TypeDefs() ([]*ast.Source, error)
	ObjectType(def *ast.Definition, scope TypeScope) (*ast.Definition, error)
	Finalize() (*ast.Source, error)
}

// Build is the state of one Builder.Build call.
type Build struct {
	Catalog   *catalog.Catalog
	Inflector catalog.Inflector
	Logger    log.Logger

	typeRelations map[string]*catalog.Relation
	document      *ast.SchemaDocument
}

// RelationForType returns the relation a generated type was built from.
func (b *Build) RelationForType(typeName string) (*catalog.Relation, bool) {
	rel, ok := b.typeRelations[typeName]
	return rel, ok
}

// Definition returns the current definition of a named type. During ObjectType
// hooks, types already visited are returned as replaced by the passes.
func (b *Build) Definition(name string) (*ast.Definition, bool) {
	if b.document == nil {
		return nil, false
	}
	def := b.document.Definitions.ForName(name)
	return def, def != nil
}

type Option func(*Builder)

func WithInflector(inflector catalog.Inflector) Option {
	return func(b *Builder) {
		b.inflector = inflector
	}
}

// WithTypeDefs adds user SDL, for example entity types that are not backed by the catalog.
func WithTypeDefs(sources ...*ast.Source) Option {
	return func(b *Builder) {
		b.typeDefs = append(b.typeDefs, sources...)
	}
}

func WithPlugins(plugins ...Plugin) Option {
	return func(b *Builder) {
		b.plugins = append(b.plugins, plugins...)
	}
}

func WithLogger(logger log.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

type Builder struct {
	catalog   *catalog.Catalog
	inflector catalog.Inflector
	typeDefs  []*ast.Source
	plugins   []Plugin
	logger    log.Logger
}

func New(c *catalog.Catalog, opts ...Option) *Builder {
	b := &Builder{
		catalog:   c,
		inflector: catalog.DefaultInflector{},
		logger:    log.NoopLogger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Result is a built schema together with the passes that took part in the build.
type Result struct {
	Schema   *ast.Schema
	Document *ast.SchemaDocument
	Build    *Build
	passes   map[string]Pass
}

// Pass returns the pass created by the named plugin.
func (r *Result) Pass(name string) (Pass, bool) {
	pass, ok := r.passes[name]
	return pass, ok
}

func (b *Builder) Build() (*Result, error) {
	if err := b.catalog.Validate(); err != nil {
		return nil, err
	}

	build := &Build{
		Catalog:       b.catalog,
		Inflector:     b.inflector,
		Logger:        b.logger,
		typeRelations: make(map[string]*catalog.Relation, len(b.catalog.Relations)),
	}
	for _, rel := range b.catalog.Relations {
		typeName := b.inflector.TableType(rel)
		if other, ok := build.typeRelations[typeName]; ok {
			return nil, fmt.Errorf("schemabuilder: relations %s and %s both map to type %s", other.QualifiedName(), rel.QualifiedName(), typeName)
		}
		build.typeRelations[typeName] = rel
	}

	type namedPass struct {
		name string
		pass Pass
	}
	passes := make([]namedPass, 0, len(b.plugins))
	sources := []*ast.Source{validator.Prelude, generate(b.catalog, b.inflector)}
	for _, plugin := range b.plugins {
		pass, err := plugin.Begin(build)
		if err != nil {
			return nil, fmt.Errorf("schemabuilder: plugin %s: %w", plugin.Name(), err)
		}
		extra, err := pass.TypeDefs()
		if err != nil {
			return nil, fmt.Errorf("schemabuilder: plugin %s: %w", plugin.Name(), err)
		}
		sources = append(sources, extra...)
		passes = append(passes, namedPass{name: plugin.Name(), pass: pass})
	}
	sources = append(sources, b.typeDefs...)

	doc, parseErr := parser.ParseSchemas(sources...)
	if parseErr != nil {
		return nil, fmt.Errorf("schemabuilder: parse: %w", parseErr)
	}
	build.document = doc

	visited := 0
	for i, def := range doc.Definitions {
		if def.Kind != ast.Object || def.BuiltIn || strings.HasPrefix(def.Name, "__") {
			continue
		}
		scope := TypeScope{
			IsRootQuery: def.Name == QueryTypeName,
			Extensions:  extensionsOf(doc, def.Name),
		}
		if rel, ok := build.typeRelations[def.Name]; ok {
			scope.Relation = rel
		}
		for _, p := range passes {
			next, err := p.pass.ObjectType(def, scope)
			if err != nil {
				return nil, fmt.Errorf("schemabuilder: plugin %s on type %s: %w", p.name, def.Name, err)
			}
			if next == nil || next.Name != def.Name || next.Kind != ast.Object {
				return nil, fmt.Errorf("schemabuilder: plugin %s replaced type %s with a different type", p.name, def.Name)
			}
			def = next
		}
		doc.Definitions[i] = def
		visited++
	}

	for _, p := range passes {
		src, err := p.pass.Finalize()
		if err != nil {
			return nil, fmt.Errorf("schemabuilder: plugin %s: %w", p.name, err)
		}
		if src == nil {
			continue
		}
		extra, parseErr := parser.ParseSchema(src)
		if parseErr != nil {
			return nil, fmt.Errorf("schemabuilder: plugin %s: parse: %w", p.name, parseErr)
		}
		doc.Merge(extra)
	}

	schema, validateErr := validator.ValidateSchemaDocument(doc)
	if validateErr != nil {
		return nil, fmt.Errorf("schemabuilder: validate: %w", validateErr)
	}

	b.logger.Debug("schemabuilder.Builder.Build",
		log.Int("relations", len(b.catalog.Relations)),
		log.Int("object_types", visited),
		log.Int("plugins", len(passes)),
	)

	result := &Result{
		Schema:   schema,
		Document: doc,
		Build:    build,
		passes:   make(map[string]Pass, len(passes)),
	}
	for _, p := range passes {
		result.passes[p.name] = p.pass
	}
	return result, nil
}

func extensionsOf(doc *ast.SchemaDocument, name string) []*ast.Definition {
	var out []*ast.Definition
	for _, ext := range doc.Extensions {
		if ext.Name == name {
			out = append(out, ext)
		}
	}
	return out
}
