package federation

import (
	"context"
	"fmt"

	log "github.com/jensneuse/abstractlogger"
	pkgerrors "github.com/pkg/errors"
	"github.com/vektah/gqlparser/v2/ast"
	"golang.org/x/sync/errgroup"

	"github.com/wundergraph/pgfederation/pkg/catalog"
	"github.com/wundergraph/pgfederation/pkg/datasource"
	"github.com/wundergraph/pgfederation/pkg/nodeid"
	"github.com/wundergraph/pgfederation/pkg/schemabuilder"
)

// Entity is a resolved _Entity value tagged with its type.
type Entity struct {
	TypeName string
	// Value is a datasource.Row for structural strategies and whatever the
	// reference resolver returned otherwise.
	Value    any
	Strategy StrategyKind
}

type queryRoot struct{}

// QueryRoot stands for the root query object when returned by a reference resolver.
var QueryRoot = queryRoot{}

// Deferred is a value a reference resolver produces asynchronously.
type Deferred interface {
	Await(ctx context.Context) (any, error)
}

// DeferredFunc adapts a function to Deferred.
type DeferredFunc func(ctx context.Context) (any, error)

func (f DeferredFunc) Await(ctx context.Context) (any, error) {
	return f(ctx)
}

// Promise is a Deferred completed by calling Resolve once.
type Promise struct {
	done  chan struct{}
	value any
	err   error
}

func NewPromise() *Promise {
	return &Promise{done: make(chan struct{})}
}

func (p *Promise) Resolve(value any, err error) {
	p.value, p.err = value, err
	close(p.done)
}

func (p *Promise) Await(ctx context.Context) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.done:
		return p.value, p.err
	}
}

// ResolveInfo describes the _entities field being resolved.
type ResolveInfo struct {
	Schema *ast.Schema
	// SelectionSet is the selection of the _entities field.
	SelectionSet ast.SelectionSet
	Variables    map[string]any
}

// EntityResult is the outcome for one representation. Entity is nil for
// representations that matched no row or failed.
type EntityResult struct {
	Entity *Entity
	Err    error
}

// DefaultConcurrency bounds the fetches of a single _entities call.
const DefaultConcurrency = 16

type Engine struct {
	schema      *Schema
	fetcher     datasource.Fetcher
	codec       nodeid.Codec
	concurrency int
	logger      log.Logger
	metrics     *Metrics
}

func NewEngine(schema *Schema, fetcher datasource.Fetcher, config Config) *Engine {
	config = config.withDefaults()
	return &Engine{
		schema:      schema,
		fetcher:     fetcher,
		codec:       config.Codec,
		concurrency: config.Concurrency,
		logger:      config.Logger,
		metrics:     config.Metrics,
	}
}

// ResolveEntities resolves every representation independently. Results are
// aligned with the input. Failures of single representations are reported as
// *RepresentationError in their result; only cancellation of ctx fails the call.
func (e *Engine) ResolveEntities(ctx context.Context, representations []any, info ResolveInfo) ([]EntityResult, error) {
	if info.Schema == nil {
		info.Schema = e.schema.Schema
	}
	e.metrics.observeBatch(len(representations))

	results := make([]EntityResult, len(representations))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, raw := range representations {
		i, raw := i, raw
		g.Go(func() error {
			entity, err := e.resolveSafe(gctx, raw, info)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				typeName := representationTypeName(raw)
				e.metrics.failed(e.typeLabel(typeName))
				results[i] = EntityResult{Err: &RepresentationError{Index: i, TypeName: typeName, Err: err}}
				return nil
			}
			if entity != nil {
				e.metrics.resolved(entity.TypeName, entity.Strategy)
			}
			results[i] = EntityResult{Entity: entity}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, pkgerrors.WithStack(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.WithStack(err)
	}
	return results, nil
}

func (e *Engine) resolveSafe(ctx context.Context, raw any, info ResolveInfo) (entity *Entity, err error) {
	defer func() {
		if r := recover(); r != nil {
			entity, err = nil, pkgerrors.Errorf("reference resolver panicked: %v", r)
		}
	}()
	return e.resolve(ctx, raw, info)
}

func (e *Engine) resolve(ctx context.Context, raw any, info ResolveInfo) (*Entity, error) {
	representation, err := ParseRepresentation(raw, SchemaTypes{Schema: e.schema.Schema})
	if err != nil {
		return nil, err
	}
	entries, err := e.schema.Registry.Lookup(representation.TypeName)
	if err != nil {
		return nil, err
	}
	entry, ok := Select(entries, representation)
	if !ok {
		return nil, fmt.Errorf("%w: %s representation contains no complete key", ErrInvalidRepresentation, representation.TypeName)
	}

	switch strategy := entry.Strategy.(type) {
	case GlobalIDLookup:
		return e.byGlobalID(ctx, representation, strategy, info)
	case PrimaryKeyLookup:
		return e.byPrimaryKey(ctx, representation, strategy, info)
	case CustomFunction:
		return e.byCustomFunction(ctx, representation, strategy, info)
	default:
		return nil, fmt.Errorf("unsupported strategy %T", entry.Strategy)
	}
}

func (e *Engine) byGlobalID(ctx context.Context, representation Representation, strategy GlobalIDLookup, info ResolveInfo) (*Entity, error) {
	id, ok := representation.Keys[strategy.FieldName].(string)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a string", ErrInvalidRepresentation, strategy.FieldName)
	}
	identifier, values, err := e.codec.Decode(id)
	if err != nil {
		return nil, err
	}
	if identifier != strategy.Identifier {
		if typeName, known := e.schema.TypeForNodeIdentifier(identifier); known {
			return nil, fmt.Errorf("%w: node id of %s used as %s", ErrTypeMismatch, typeName, representation.TypeName)
		}
		return nil, fmt.Errorf("%w: unknown node type %s", nodeid.ErrInvalidIdentifier, identifier)
	}

	attrs := strategy.Relation.PrimaryKeyAttributes()
	if len(values) != len(attrs) {
		return nil, fmt.Errorf("%w: %s expects %d key values, got %d", nodeid.ErrInvalidIdentifier, identifier, len(attrs), len(values))
	}
	where := make([]datasource.Condition, 0, len(attrs))
	for i, attr := range attrs {
		value, err := coerce(e.schema.Inflector, attr, values[i])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", nodeid.ErrInvalidIdentifier, err)
		}
		where = append(where, datasource.Condition{Column: attr, Value: value})
	}
	return e.fetchEntity(ctx, representation.TypeName, strategy.Relation, where, StrategyGlobalID, info)
}

func (e *Engine) byPrimaryKey(ctx context.Context, representation Representation, strategy PrimaryKeyLookup, info ResolveInfo) (*Entity, error) {
	where := make([]datasource.Condition, 0, len(strategy.Columns))
	for _, column := range strategy.Columns {
		value, err := coerce(e.schema.Inflector, column.Attribute, representation.Keys[column.FieldName])
		if err != nil {
			return nil, err
		}
		where = append(where, datasource.Condition{Column: column.Attribute, Value: value})
	}
	return e.fetchEntity(ctx, representation.TypeName, strategy.Relation, where, StrategyPrimaryKey, info)
}

func (e *Engine) byCustomFunction(ctx context.Context, representation Representation, strategy CustomFunction, info ResolveInfo) (*Entity, error) {
	value, err := strategy.Resolve(ctx, representation, info)
	if err != nil {
		return nil, err
	}
	if deferred, ok := value.(Deferred); ok {
		if value, err = deferred.Await(ctx); err != nil {
			return nil, err
		}
	}
	if value == nil {
		return nil, nil
	}
	if entity, ok := value.(*Entity); ok {
		tagged := *entity
		if tagged.TypeName == "" {
			tagged.TypeName = representation.TypeName
		}
		tagged.Strategy = StrategyCustom
		return &tagged, nil
	}
	return &Entity{TypeName: representation.TypeName, Value: value, Strategy: StrategyCustom}, nil
}

// fetchEntity fetches the row matching where. where must hold the primary key in declaration order.
func (e *Engine) fetchEntity(ctx context.Context, typeName string, rel *catalog.Relation, where []datasource.Condition, kind StrategyKind, info ResolveInfo) (*Entity, error) {
	fields := e.schema.ScopeSelection(info.SelectionSet, typeName, info.Variables)
	rows, err := e.fetcher.FetchRows(ctx, rel, where, fields)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
	default:
		return nil, fmt.Errorf("%w: %s matched %d rows", ErrAmbiguousRepresentation, typeName, len(rows))
	}

	row := rows[0]
	if row == nil {
		row = datasource.Row{}
	}
	for _, field := range fields {
		key := field.ResponseKey()
		switch field.Name {
		case typenameField:
			row[key] = typeName
		case schemabuilder.NodeIDFieldName:
			if _, ok := row[key]; ok || field.Column != "" {
				continue
			}
			id, err := e.encodeNodeID(rel, where)
			if err != nil {
				return nil, err
			}
			row[key] = id
		}
	}
	return &Entity{TypeName: typeName, Value: row, Strategy: kind}, nil
}

func (e *Engine) encodeNodeID(rel *catalog.Relation, where []datasource.Condition) (string, error) {
	values := make([]any, 0, len(where))
	for _, cond := range where {
		values = append(values, cond.Value)
	}
	return e.codec.Encode(e.schema.Inflector.NodeIdentifier(rel), values...)
}

// typeLabel keeps metric label values bounded to the types of the schema.
func (e *Engine) typeLabel(typeName string) string {
	if _, ok := (SchemaTypes{Schema: e.schema.Schema}).ObjectType(typeName); ok {
		return typeName
	}
	return "unknown"
}

func representationTypeName(raw any) string {
	if fields, ok := raw.(map[string]any); ok {
		if typeName, ok := fields[typenameField].(string); ok {
			return typeName
		}
	}
	return ""
}
