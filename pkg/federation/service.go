package federation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	log "github.com/jensneuse/abstractlogger"
	jsoniter "github.com/json-iterator/go"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/validator"

	"github.com/wundergraph/pgfederation/pkg/datasource"
	"github.com/wundergraph/pgfederation/pkg/graphqlerrors"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Request is a GraphQL request sent by the gateway.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Response holds the rendered data and the errors raised while executing.
type Response struct {
	Data   json.RawMessage
	Errors graphqlerrors.RequestErrors
}

// Marshal renders the response in the GraphQL wire format.
func (r *Response) Marshal() ([]byte, error) {
	out := graphqlerrors.Response{}
	if len(r.Errors) > 0 {
		out.Errors = r.Errors
	}
	if r.Data != nil {
		out.Data = r.Data
	}
	return out.Marshal()
}

// Service executes the federation entry points of a schema: _entities,
// _service and __typename on the root query type.
type Service struct {
	schema  *Schema
	engine  *Engine
	printer *Printer
	logger  log.Logger
}

func NewService(schema *Schema, fetcher datasource.Fetcher, config Config) (*Service, error) {
	config = config.withDefaults()
	printer, err := NewPrinter(config.PrintCacheSize)
	if err != nil {
		return nil, err
	}
	return &Service{
		schema:  schema,
		engine:  NewEngine(schema, fetcher, config),
		printer: printer,
		logger:  config.Logger,
	}, nil
}

func (s *Service) Schema() *Schema {
	return s.schema
}

// SDL returns the schema as advertised to the gateway.
func (s *Service) SDL() (string, error) {
	return s.printer.Print(s.schema.Schema)
}

// Execute runs request. Invalid requests and failing representations are
// reported in the response; the returned error is reserved for failures of the
// whole request such as cancellation.
func (s *Service) Execute(ctx context.Context, request Request) (*Response, error) {
	doc, gqlErrs := gqlparser.LoadQuery(s.schema.Schema, request.Query)
	if len(gqlErrs) > 0 {
		return &Response{Errors: graphqlerrors.RequestErrorsFromList(gqlErrs)}, nil
	}

	op := doc.Operations.ForName(request.OperationName)
	if op == nil {
		if request.OperationName == "" {
			return errorResponse("operation name is required when the document contains several operations"), nil
		}
		return errorResponse(fmt.Sprintf("unknown operation %q", request.OperationName)), nil
	}
	if op.Operation != ast.Query {
		return errorResponse(fmt.Sprintf("%s operations are not supported", op.Operation)), nil
	}

	vars, varErr := validator.VariableValues(s.schema.Schema, op, request.Variables)
	if varErr != nil {
		return &Response{Errors: graphqlerrors.RequestErrorsFromError(varErr)}, nil
	}

	fields := CollectFields(op.SelectionSet, s.schema.Schema.Query.Name, s.schema.Schema, vars)
	var unsupported graphqlerrors.RequestErrors
	for _, field := range fields {
		switch field.Name {
		case typenameField, serviceFieldName, entitiesFieldName:
		default:
			unsupported = append(unsupported, graphqlerrors.RequestError{
				Message:   fmt.Sprintf("field %s is not served by this federation endpoint", field.Name),
				Locations: locations(field),
				Path:      graphqlerrors.NewErrorPath(responseKey(field)),
			})
		}
	}
	if len(unsupported) > 0 {
		return &Response{Errors: unsupported}, nil
	}

	stream := jsonAPI.BorrowStream(nil)
	defer jsonAPI.ReturnStream(stream)
	exec := &execution{service: s, vars: vars, stream: stream}

	stream.WriteObjectStart()
	for i, field := range fields {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(responseKey(field))
		switch field.Name {
		case typenameField:
			stream.WriteString(s.schema.Schema.Query.Name)
		case serviceFieldName:
			if err := exec.serviceField(field); err != nil {
				return nil, err
			}
		case entitiesFieldName:
			if err := exec.entitiesField(ctx, field); err != nil {
				return nil, err
			}
		}
	}
	stream.WriteObjectEnd()
	if stream.Error != nil {
		return nil, stream.Error
	}

	data := make([]byte, len(stream.Buffer()))
	copy(data, stream.Buffer())
	return &Response{Data: data, Errors: exec.errors}, nil
}

type execution struct {
	service *Service
	vars    map[string]any
	stream  *jsoniter.Stream
	errors  graphqlerrors.RequestErrors
}

func (e *execution) serviceField(field *ast.Field) error {
	sdl, err := e.service.SDL()
	if err != nil {
		return err
	}
	e.stream.WriteObjectStart()
	for i, child := range CollectFields(field.SelectionSet, serviceTypeName, e.service.schema.Schema, e.vars) {
		if i > 0 {
			e.stream.WriteMore()
		}
		e.stream.WriteObjectField(responseKey(child))
		switch child.Name {
		case "sdl":
			e.stream.WriteString(sdl)
		case typenameField:
			e.stream.WriteString(serviceTypeName)
		default:
			e.stream.WriteNil()
		}
	}
	e.stream.WriteObjectEnd()
	return nil
}

func (e *execution) entitiesField(ctx context.Context, field *ast.Field) error {
	key := responseKey(field)
	representations, ok := field.ArgumentMap(e.vars)["representations"].([]any)
	if !ok {
		e.stream.WriteNil()
		e.errors = append(e.errors, graphqlerrors.RequestError{
			Message:   "representations must be a list",
			Locations: locations(field),
			Path:      graphqlerrors.NewErrorPath(key),
		})
		return nil
	}

	results, err := e.service.engine.ResolveEntities(ctx, representations, ResolveInfo{
		Schema:       e.service.schema.Schema,
		SelectionSet: field.SelectionSet,
		Variables:    e.vars,
	})
	if err != nil {
		return err
	}

	e.stream.WriteArrayStart()
	for i, result := range results {
		if i > 0 {
			e.stream.WriteMore()
		}
		if result.Err != nil {
			e.stream.WriteNil()
			e.fail(result.Err, field, key, i)
			continue
		}
		if result.Entity == nil {
			e.stream.WriteNil()
			continue
		}
		def, err := e.service.schema.ResolveType(result.Entity)
		if err != nil {
			e.stream.WriteNil()
			e.fail(err, field, key, i)
			continue
		}
		e.object(def, result.Entity.Value, field.SelectionSet)
	}
	e.stream.WriteArrayEnd()
	return nil
}

func (e *execution) fail(err error, field *ast.Field, path ...any) {
	var repErr *RepresentationError
	if errors.As(err, &repErr) {
		e.service.logger.Debug("federation.Service.Execute",
			log.Int("index", repErr.Index),
			log.String("type", repErr.TypeName),
			log.Error(repErr.Err),
		)
	}
	e.errors = append(e.errors, graphqlerrors.RequestError{
		Message:   err.Error(),
		Locations: locations(field),
		Path:      graphqlerrors.NewErrorPath(path...),
	})
}

func (e *execution) object(def *ast.Definition, value any, set ast.SelectionSet) {
	if _, ok := value.(queryRoot); ok {
		def = e.service.schema.Schema.Query
	}
	e.stream.WriteObjectStart()
	for i, field := range CollectFields(set, def.Name, e.service.schema.Schema, e.vars) {
		if i > 0 {
			e.stream.WriteMore()
		}
		e.stream.WriteObjectField(responseKey(field))
		if field.Name == typenameField {
			e.stream.WriteString(def.Name)
			continue
		}
		e.value(field, lookup(value, field))
	}
	e.stream.WriteObjectEnd()
}

func (e *execution) value(field *ast.Field, value any) {
	if value == nil {
		e.stream.WriteNil()
		return
	}
	if len(field.SelectionSet) == 0 || field.Definition == nil {
		e.stream.WriteVal(value)
		return
	}
	if list, ok := value.([]any); ok {
		e.stream.WriteArrayStart()
		for i, item := range list {
			if i > 0 {
				e.stream.WriteMore()
			}
			e.value(field, item)
		}
		e.stream.WriteArrayEnd()
		return
	}
	child := e.service.schema.Schema.Types[field.Definition.Type.Name()]
	if child == nil {
		e.stream.WriteNil()
		return
	}
	if child.Kind != ast.Object {
		if typeName, ok := lookup(value, &ast.Field{Name: typenameField, Alias: typenameField}).(string); ok {
			if concrete := e.service.schema.Schema.Types[typeName]; concrete != nil {
				child = concrete
			}
		}
	}
	e.object(child, value, field.SelectionSet)
}

// lookup reads a field of a resolved value. Fetched rows are keyed by response
// key, values returned by reference resolvers by field name.
func lookup(value any, field *ast.Field) any {
	var fields map[string]any
	switch v := value.(type) {
	case datasource.Row:
		fields = v
	case map[string]any:
		fields = v
	default:
		return nil
	}
	if out, ok := fields[responseKey(field)]; ok {
		return out
	}
	return fields[field.Name]
}

func locations(field *ast.Field) []graphqlerrors.Location {
	if field.Position == nil {
		return nil
	}
	return []graphqlerrors.Location{{Line: field.Position.Line, Column: field.Position.Column}}
}

func errorResponse(message string) *Response {
	return &Response{Errors: graphqlerrors.RequestErrors{{Message: message}}}
}
