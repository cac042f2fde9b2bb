package federation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyDescriptor(t *testing.T) {
	descriptor := KeyDescriptor{{FieldName: "userId"}, {FieldName: "emailId"}}
	assert.Equal(t, "userId emailId", descriptor.String())
	assert.NoError(t, descriptor.Validate())

	assert.Error(t, KeyDescriptor{}.Validate())
	assert.Error(t, KeyDescriptor{{FieldName: ""}}.Validate())
	assert.Error(t, KeyDescriptor{{FieldName: "id"}, {FieldName: "id"}}.Validate())

	assert.True(t, descriptor.SatisfiedBy(Representation{Keys: map[string]any{"userId": 1, "emailId": 2, "extra": 3}}))
	assert.False(t, descriptor.SatisfiedBy(Representation{Keys: map[string]any{"userId": 1}}))
	assert.False(t, descriptor.SatisfiedBy(Representation{Keys: map[string]any{"userId": 1, "emailId": nil}}))
}

func TestParseKeyDescriptor(t *testing.T) {
	descriptor, err := ParseKeyDescriptor("  upc   sku ", "nodeId")
	require.NoError(t, err)
	assert.Equal(t, KeyDescriptor{{FieldName: "upc"}, {FieldName: "sku"}}, descriptor)

	descriptor, err = ParseKeyDescriptor("nodeId", "nodeId")
	require.NoError(t, err)
	assert.Equal(t, KeyDescriptor{{FieldName: "nodeId", IsGlobalIdentifier: true}}, descriptor)

	_, err = ParseKeyDescriptor("id organization { id }", "nodeId")
	assert.ErrorContains(t, err, "nested field sets")

	_, err = ParseKeyDescriptor(" ", "nodeId")
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	custom := CustomFunction{Resolve: func(context.Context, Representation, ResolveInfo) (any, error) { return nil, nil }}

	t.Run("lookup preserves registration order", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register("User", KeyDescriptor{{FieldName: "nodeId", IsGlobalIdentifier: true}}, GlobalIDLookup{FieldName: "nodeId"}))
		require.NoError(t, registry.Register("User", KeyDescriptor{{FieldName: "id"}}, PrimaryKeyLookup{}))
		require.NoError(t, registry.Register("Email", KeyDescriptor{{FieldName: "id"}}, PrimaryKeyLookup{}))

		entries, err := registry.Lookup("User")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "nodeId", entries[0].Descriptor.String())
		assert.Equal(t, StrategyGlobalID, entries[0].Strategy.Kind())
		assert.Equal(t, "id", entries[1].Descriptor.String())
		assert.Equal(t, StrategyPrimaryKey, entries[1].Strategy.Kind())
		assert.Equal(t, []string{"User", "Email"}, registry.Types())
	})

	t.Run("duplicate field sets are rejected regardless of order", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register("UsersEmail", KeyDescriptor{{FieldName: "userId"}, {FieldName: "emailId"}}, PrimaryKeyLookup{}))
		err := registry.Register("UsersEmail", KeyDescriptor{{FieldName: "emailId"}, {FieldName: "userId"}}, custom)
		assert.ErrorIs(t, err, ErrDuplicateKeyDescriptor)

		require.NoError(t, registry.Register("UsersEmail", KeyDescriptor{{FieldName: "userId"}}, custom))
		require.NoError(t, registry.Register("Email", KeyDescriptor{{FieldName: "userId"}, {FieldName: "emailId"}}, custom))
	})

	t.Run("invalid registrations", func(t *testing.T) {
		registry := NewRegistry()
		assert.Error(t, registry.Register("User", nil, custom))
		assert.Error(t, registry.Register("User", KeyDescriptor{{FieldName: "id"}, {FieldName: "id"}}, custom))
		assert.Error(t, registry.Register("User", KeyDescriptor{{FieldName: "id"}}, nil))
		_, err := registry.Lookup("User")
		assert.ErrorIs(t, err, ErrNoResolverForType)
	})

	t.Run("frozen", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register("User", KeyDescriptor{{FieldName: "id"}}, PrimaryKeyLookup{}))
		registry.Freeze()
		assert.ErrorIs(t, registry.Register("User", KeyDescriptor{{FieldName: "email"}}, custom), ErrRegistryFrozen)
		_, err := registry.ReplaceStrategies("User", custom)
		assert.ErrorIs(t, err, ErrRegistryFrozen)

		entries, err := registry.Lookup("User")
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("replace strategies", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register("User", KeyDescriptor{{FieldName: "nodeId"}}, GlobalIDLookup{}))
		require.NoError(t, registry.Register("User", KeyDescriptor{{FieldName: "id"}}, PrimaryKeyLookup{}))
		replaced, err := registry.ReplaceStrategies("User", custom)
		require.NoError(t, err)
		assert.Equal(t, 2, replaced)

		entries, err := registry.Lookup("User")
		require.NoError(t, err)
		for _, entry := range entries {
			assert.Equal(t, StrategyCustom, entry.Strategy.Kind())
		}
	})

	t.Run("lookup returns a copy", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register("User", KeyDescriptor{{FieldName: "id"}}, PrimaryKeyLookup{}))
		entries, _ := registry.Lookup("User")
		entries[0].Strategy = custom
		again, _ := registry.Lookup("User")
		assert.Equal(t, StrategyPrimaryKey, again[0].Strategy.Kind())
	})
}

func TestSelect(t *testing.T) {
	entries := []ResolverEntry{
		{TypeName: "User", Descriptor: KeyDescriptor{{FieldName: "nodeId", IsGlobalIdentifier: true}}, Strategy: GlobalIDLookup{}},
		{TypeName: "User", Descriptor: KeyDescriptor{{FieldName: "id"}}, Strategy: PrimaryKeyLookup{}},
	}

	testCases := []struct {
		name     string
		keys     map[string]any
		wantKind StrategyKind
		wantOK   bool
	}{
		{name: "first registered wins", keys: map[string]any{"nodeId": "WyJ1c2VycyIsMV0=", "id": 1}, wantKind: StrategyGlobalID, wantOK: true},
		{name: "only primary key", keys: map[string]any{"id": 1}, wantKind: StrategyPrimaryKey, wantOK: true},
		{name: "null global id falls through", keys: map[string]any{"nodeId": nil, "id": 1}, wantKind: StrategyPrimaryKey, wantOK: true},
		{name: "no complete key", keys: map[string]any{"firstName": "alicia"}, wantOK: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			entry, ok := Select(entries, Representation{TypeName: "User", Keys: tc.keys})
			require.Equal(t, tc.wantOK, ok)
			if ok {
				assert.Equal(t, tc.wantKind, entry.Strategy.Kind())
			}
		})
	}
}
