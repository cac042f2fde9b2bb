package federation

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
)

const typenameField = "__typename"

// Representation is one entry of the representations argument of _entities.
// Keys hold the values exactly as sent by the gateway.
type Representation struct {
	TypeName string
	Keys     map[string]any
}

// Has reports whether key is present with a non-null value.
func (r Representation) Has(key string) bool {
	value, ok := r.Keys[key]
	return ok && value != nil
}

// TypeLookup resolves type names of the live schema.
type TypeLookup interface {
	ObjectType(name string) (*ast.Definition, bool)
}

// SchemaTypes adapts a schema to TypeLookup.
type SchemaTypes struct {
	Schema *ast.Schema
}

func (s SchemaTypes) ObjectType(name string) (*ast.Definition, bool) {
	def, ok := s.Schema.Types[name]
	if !ok || def.Kind != ast.Object {
		return nil, false
	}
	return def, true
}

// ParseRepresentation validates a raw representation.
func ParseRepresentation(raw any, types TypeLookup) (Representation, error) {
	fields, ok := raw.(map[string]any)
	if !ok {
		return Representation{}, fmt.Errorf("%w: expected an object, got %T", ErrInvalidRepresentation, raw)
	}
	typeName, ok := fields[typenameField].(string)
	if !ok || typeName == "" {
		return Representation{}, fmt.Errorf("%w: missing %s", ErrInvalidRepresentation, typenameField)
	}
	if _, ok := types.ObjectType(typeName); !ok {
		return Representation{}, fmt.Errorf("%w: %s", ErrUnknownType, typeName)
	}

	keys := make(map[string]any, len(fields)-1)
	for name, value := range fields {
		if name == typenameField {
			continue
		}
		keys[name] = value
	}
	if len(keys) == 0 {
		return Representation{}, fmt.Errorf("%w: %s representation has no key fields", ErrInvalidRepresentation, typeName)
	}
	return Representation{TypeName: typeName, Keys: keys}, nil
}
