package federation

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRepresentation   = errors.New("invalid representation")
	ErrUnknownType             = errors.New("unknown type")
	ErrNoResolverForType       = errors.New("no resolver for type")
	ErrTypeMismatch            = errors.New("node identifier does not belong to the declared type")
	ErrDuplicateKeyDescriptor  = errors.New("duplicate key descriptor")
	ErrAmbiguousRepresentation = errors.New("representation matches more than one row")
	ErrUnresolvableEntityType  = errors.New("could not resolve the entity type of value")
	ErrRegistryFrozen          = errors.New("registry is frozen")
)

// RepresentationError is the failure of a single representation of an _entities batch.
type RepresentationError struct {
	Index    int
	TypeName string
	Err      error
}

func (e *RepresentationError) Error() string {
	if e.TypeName == "" {
		return fmt.Sprintf("representation %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("representation %d (%s): %v", e.Index, e.TypeName, e.Err)
}

func (e *RepresentationError) Unwrap() error {
	return e.Err
}
