package federation

import (
	"fmt"
	"sort"
	"sync"

	log "github.com/jensneuse/abstractlogger"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/wundergraph/pgfederation/pkg/astbuilder"
	"github.com/wundergraph/pgfederation/pkg/catalog"
	"github.com/wundergraph/pgfederation/pkg/nodeid"
	"github.com/wundergraph/pgfederation/pkg/schemabuilder"
)

// PluginName is the name the annotation pass is registered under.
const PluginName = "federation"

// Plugin adds the federation protocol to every schema it takes part in.
type Plugin struct {
	mu        sync.Mutex
	resolvers map[string]ReferenceResolver
}

var _ schemabuilder.Plugin = (*Plugin)(nil)

func NewPlugin() *Plugin {
	return &Plugin{
		resolvers: map[string]ReferenceResolver{},
	}
}

func (p *Plugin) Name() string {
	return PluginName
}

// RegisterReferenceResolver makes typeName an entity resolved by fn. It takes
// precedence over the structural strategies of the type and applies to builds
// started afterwards.
func (p *Plugin) RegisterReferenceResolver(typeName string, fn ReferenceResolver) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resolvers[typeName] = fn
}

func (p *Plugin) Begin(b *schemabuilder.Build) (schemabuilder.Pass, error) {
	p.mu.Lock()
	resolvers := make(map[string]ReferenceResolver, len(p.resolvers))
	for typeName, fn := range p.resolvers {
		if fn == nil {
			p.mu.Unlock()
			return nil, fmt.Errorf("reference resolver for %s is nil", typeName)
		}
		resolvers[typeName] = fn
	}
	p.mu.Unlock()

	logger := b.Logger
	if logger == nil {
		logger = log.NoopLogger
	}
	return &annotation{
		build:     b,
		logger:    logger,
		registry:  NewRegistry(),
		nodeTypes: map[string]string{},
		resolvers: resolvers,
		applied:   map[string]struct{}{},
	}, nil
}

// annotation is the state of one schema build.
type annotation struct {
	build    *schemabuilder.Build
	logger   log.Logger
	registry *Registry
	entities []string
	// nodeTypes maps node identifiers to type names.
	nodeTypes map[string]string
	resolvers map[string]ReferenceResolver
	applied   map[string]struct{}
}

// typeAnnotation is the work item the steps of the pipeline pass along.
type typeAnnotation struct {
	def   *ast.Definition
	scope schemabuilder.TypeScope
	keyed bool
	// done stops the pipeline for this type.
	done bool
}

type annotationStep struct {
	name string
	run  func(a *annotation, t *typeAnnotation) error
}

var annotationSteps = []annotationStep{
	{name: "root-query", run: (*annotation).rootQuery},
	{name: "global-identifier", run: (*annotation).globalIdentifier},
	{name: "primary-key", run: (*annotation).primaryKey},
	{name: "custom-resolver", run: (*annotation).customResolver},
	{name: "entity-union", run: (*annotation).entityUnion},
}

func (a *annotation) TypeDefs() ([]*ast.Source, error) {
	return []*ast.Source{federationTypeDefs()}, nil
}

func (a *annotation) ObjectType(def *ast.Definition, scope schemabuilder.TypeScope) (*ast.Definition, error) {
	t := &typeAnnotation{def: def, scope: scope}
	for _, step := range annotationSteps {
		if t.done {
			break
		}
		if err := step.run(a, t); err != nil {
			return nil, fmt.Errorf("%s: %w", step.name, err)
		}
	}
	return t.def, nil
}

func (a *annotation) Finalize() (*ast.Source, error) {
	missing := make([]string, 0)
	for typeName := range a.resolvers {
		if _, ok := a.applied[typeName]; !ok {
			missing = append(missing, typeName)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("reference resolver registered for unknown object type %s", missing[0])
	}
	a.registry.Freeze()

	a.logger.Debug("federation.annotation.Finalize",
		log.Strings("entities", a.entities),
	)
	return composeEntryPoints(a.entities), nil
}

// rootQuery keeps the root query type out of the entity union and removes the
// node lookup scaffolding every service generated from a catalog would otherwise declare.
func (a *annotation) rootQuery(t *typeAnnotation) error {
	if !t.scope.IsRootQuery {
		return nil
	}
	if _, ok := a.resolvers[t.def.Name]; ok {
		return fmt.Errorf("the root query type cannot have a reference resolver")
	}
	def := astbuilder.WithoutFields(t.def, "node", schemabuilder.NodeIDFieldName)
	t.def = astbuilder.WithoutInterfaces(def, schemabuilder.NodeInterfaceName)
	t.done = true
	return nil
}

func (a *annotation) globalIdentifier(t *typeAnnotation) error {
	rel := t.scope.Relation
	if rel == nil || !rel.HasPrimaryKey() || !implements(t.def, schemabuilder.NodeInterfaceName) {
		return nil
	}
	field := t.def.Fields.ForName(schemabuilder.NodeIDFieldName)
	if field == nil {
		return nil
	}

	identifier := a.build.Inflector.NodeIdentifier(rel)
	if identifier == nodeid.QueryIdentifier {
		return fmt.Errorf("node identifier %s of %s is reserved for the root query", identifier, t.def.Name)
	}
	if other, ok := a.nodeTypes[identifier]; ok {
		return fmt.Errorf("node identifier %s is used by %s and %s", identifier, other, t.def.Name)
	}
	descriptor := KeyDescriptor{{FieldName: field.Name, IsGlobalIdentifier: true}}
	err := a.registry.Register(t.def.Name, descriptor, GlobalIDLookup{
		FieldName:  field.Name,
		Identifier: identifier,
		Relation:   rel,
	})
	if err != nil {
		return err
	}
	a.nodeTypes[identifier] = t.def.Name
	t.def = astbuilder.WithDirectives(t.def, keyDirective(descriptor))
	t.keyed = true
	return nil
}

func (a *annotation) primaryKey(t *typeAnnotation) error {
	rel := t.scope.Relation
	if rel == nil || !rel.HasPrimaryKey() {
		return nil
	}

	attrs := rel.PrimaryKeyAttributes()
	descriptor := make(KeyDescriptor, 0, len(attrs))
	columns := make([]KeyColumn, 0, len(attrs))
	for _, attr := range attrs {
		fieldName := a.build.Inflector.Column(attr)
		if t.def.Fields.ForName(fieldName) == nil {
			return fmt.Errorf("type %s has no field %s for primary key column %s", t.def.Name, fieldName, attr.Name)
		}
		descriptor = append(descriptor, KeyField{FieldName: fieldName})
		columns = append(columns, KeyColumn{FieldName: fieldName, Attribute: attr})
	}

	if err := a.registry.Register(t.def.Name, descriptor, PrimaryKeyLookup{Relation: rel, Columns: columns}); err != nil {
		return err
	}
	t.def = astbuilder.WithDirectives(t.def, keyDirective(descriptor))
	t.keyed = true
	return nil
}

func (a *annotation) customResolver(t *typeAnnotation) error {
	fn, ok := a.resolvers[t.def.Name]
	if !ok {
		return nil
	}
	a.applied[t.def.Name] = struct{}{}
	strategy := CustomFunction{Resolve: fn}

	if t.keyed {
		_, err := a.registry.ReplaceStrategies(t.def.Name, strategy)
		return err
	}

	declared := keyDirectives(t.def, t.scope.Extensions)
	if len(declared) == 0 {
		return fmt.Errorf("type %s has a reference resolver but declares no @key", t.def.Name)
	}
	for _, fields := range declared {
		descriptor, err := ParseKeyDescriptor(fields, schemabuilder.NodeIDFieldName)
		if err != nil {
			return fmt.Errorf("type %s: %w", t.def.Name, err)
		}
		if err := a.registry.Register(t.def.Name, descriptor, strategy); err != nil {
			return err
		}
	}
	t.keyed = true
	return nil
}

func (a *annotation) entityUnion(t *typeAnnotation) error {
	if !t.keyed {
		if len(keyDirectives(t.def, t.scope.Extensions)) > 0 {
			a.logger.Warn("federation: type declares @key but has no reference resolver, excluding it from _Entity",
				log.String("type", t.def.Name),
			)
		}
		return nil
	}
	a.entities = append(a.entities, t.def.Name)
	return nil
}

func keyDirective(descriptor KeyDescriptor) *ast.Directive {
	return astbuilder.Directive("key", map[string]*ast.Value{
		"fields": astbuilder.StringValue(descriptor.String(), false),
	})
}

// keyDirectives returns the fields arguments of the @key directives on def and its extensions.
func keyDirectives(def *ast.Definition, extensions []*ast.Definition) []string {
	var out []string
	collect := func(directives ast.DirectiveList) {
		for _, directive := range directives {
			if directive.Name != "key" {
				continue
			}
			if fields, ok := astbuilder.StringArgument(directive, "fields"); ok {
				out = append(out, fields)
			}
		}
	}
	collect(def.Directives)
	for _, ext := range extensions {
		collect(ext.Directives)
	}
	return out
}

func implements(def *ast.Definition, iface string) bool {
	for _, name := range def.Interfaces {
		if name == iface {
			return true
		}
	}
	return false
}

// relationColumns maps the field names of a relation backed type to its column names.
func relationColumns(inflector catalog.Inflector, rel *catalog.Relation) map[string]catalog.Attribute {
	out := make(map[string]catalog.Attribute, len(rel.Attributes))
	for _, attr := range rel.Attributes {
		out[inflector.Column(attr)] = attr
	}
	return out
}
