package federation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/wundergraph/pgfederation/pkg/catalog"
)

// KeyField is one field of a key descriptor.
type KeyField struct {
	FieldName          string
	IsGlobalIdentifier bool
}

// KeyDescriptor is an ordered set of fields that together identify an entity.
type KeyDescriptor []KeyField

// String returns the canonical field set, as used in @key(fields: ...).
func (d KeyDescriptor) String() string {
	names := make([]string, len(d))
	for i, field := range d {
		names[i] = field.FieldName
	}
	return strings.Join(names, " ")
}

func (d KeyDescriptor) Validate() error {
	if len(d) == 0 {
		return fmt.Errorf("key descriptor has no fields")
	}
	seen := make(map[string]struct{}, len(d))
	for _, field := range d {
		if field.FieldName == "" {
			return fmt.Errorf("key descriptor %q has an empty field name", d.String())
		}
		if _, ok := seen[field.FieldName]; ok {
			return fmt.Errorf("key descriptor %q lists %s twice", d.String(), field.FieldName)
		}
		seen[field.FieldName] = struct{}{}
	}
	return nil
}

// SatisfiedBy reports whether every field of the descriptor is present and not null in r.
func (d KeyDescriptor) SatisfiedBy(r Representation) bool {
	for _, field := range d {
		if !r.Has(field.FieldName) {
			return false
		}
	}
	return true
}

func (d KeyDescriptor) sameFieldSet(other KeyDescriptor) bool {
	if len(d) != len(other) {
		return false
	}
	a, b := fieldNames(d), fieldNames(other)
	sort.Strings(a)
	sort.Strings(b)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func fieldNames(d KeyDescriptor) []string {
	out := make([]string, len(d))
	for i, field := range d {
		out[i] = field.FieldName
	}
	return out
}

// ParseKeyDescriptor reads the fields argument of a @key directive.
// Nested selections are not supported.
func ParseKeyDescriptor(fields string, globalIDField string) (KeyDescriptor, error) {
	if strings.ContainsAny(fields, "{}()") {
		return nil, fmt.Errorf("key %q: nested field sets are not supported", fields)
	}
	var d KeyDescriptor
	for _, name := range strings.Fields(fields) {
		d = append(d, KeyField{FieldName: name, IsGlobalIdentifier: name == globalIDField})
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

type StrategyKind string

const (
	StrategyGlobalID   StrategyKind = "global_id"
	StrategyPrimaryKey StrategyKind = "primary_key"
	StrategyCustom     StrategyKind = "custom"
)

// Strategy retrieves an entity once a key descriptor was selected.
type Strategy interface {
	Kind() StrategyKind
}

// GlobalIDLookup decodes the node id held in FieldName and fetches the row it addresses.
type GlobalIDLookup struct {
	FieldName  string
	Identifier string
	Relation   *catalog.Relation
}

func (GlobalIDLookup) Kind() StrategyKind { return StrategyGlobalID }

// KeyColumn maps a representation field to a primary key attribute.
type KeyColumn struct {
	FieldName string
	Attribute catalog.Attribute
}

// PrimaryKeyLookup fetches the row whose primary key equals the representation's key fields.
type PrimaryKeyLookup struct {
	Relation *catalog.Relation
	Columns  []KeyColumn
}

func (PrimaryKeyLookup) Kind() StrategyKind { return StrategyPrimaryKey }

// ReferenceResolver resolves an entity with user code. It may return a Deferred.
type ReferenceResolver func(ctx context.Context, representation Representation, info ResolveInfo) (any, error)

// CustomFunction delegates to a user registered ReferenceResolver.
type CustomFunction struct {
	Resolve ReferenceResolver
}

func (CustomFunction) Kind() StrategyKind { return StrategyCustom }

type ResolverEntry struct {
	TypeName   string
	Descriptor KeyDescriptor
	Strategy   Strategy
}

// Registry maps entity types to their key descriptors and strategies.
// It is written while a schema is built and read only once frozen.
type Registry struct {
	mu      sync.RWMutex
	entries map[string][]ResolverEntry
	types   []string
	frozen  bool
}

func NewRegistry() *Registry {
	return &Registry{
		entries: map[string][]ResolverEntry{},
	}
}

// Register appends an entry for typeName. Descriptors with the same field set
// as an already registered one are rejected with ErrDuplicateKeyDescriptor.
func (r *Registry) Register(typeName string, descriptor KeyDescriptor, strategy Strategy) error {
	if err := descriptor.Validate(); err != nil {
		return fmt.Errorf("type %s: %w", typeName, err)
	}
	if strategy == nil {
		return fmt.Errorf("type %s: key %q has no strategy", typeName, descriptor.String())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrRegistryFrozen
	}
	for _, entry := range r.entries[typeName] {
		if entry.Descriptor.sameFieldSet(descriptor) {
			return fmt.Errorf("%w: type %s key %q", ErrDuplicateKeyDescriptor, typeName, descriptor.String())
		}
	}
	if _, ok := r.entries[typeName]; !ok {
		r.types = append(r.types, typeName)
	}
	r.entries[typeName] = append(r.entries[typeName], ResolverEntry{
		TypeName:   typeName,
		Descriptor: append(KeyDescriptor(nil), descriptor...),
		Strategy:   strategy,
	})
	return nil
}

// ReplaceStrategies swaps the strategy of every entry of typeName and returns how many were replaced.
func (r *Registry) ReplaceStrategies(typeName string, strategy Strategy) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return 0, ErrRegistryFrozen
	}
	entries := r.entries[typeName]
	for i := range entries {
		entries[i].Strategy = strategy
	}
	return len(entries), nil
}

// Lookup returns the entries of typeName in registration order.
func (r *Registry) Lookup(typeName string) ([]ResolverEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries, ok := r.entries[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoResolverForType, typeName)
	}
	return append([]ResolverEntry(nil), entries...), nil
}

// Types returns the registered type names in registration order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.types...)
}

func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Select returns the first entry, in registration order, whose descriptor is satisfied by representation.
func Select(entries []ResolverEntry, representation Representation) (ResolverEntry, bool) {
	for _, entry := range entries {
		if entry.Descriptor.SatisfiedBy(representation) {
			return entry, true
		}
	}
	return ResolverEntry{}, false
}
