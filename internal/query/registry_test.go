package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	registry, err := NewDefaultRegistry()
	require.NoError(t, err)
	return registry
}

func TestRegistryLookupBaseAndRelationFields(t *testing.T) {
	registry := newTestRegistry(t)

	entry, ok := registry.Lookup(EntityOrder, "status")
	require.True(t, ok)
	assert.Equal(t, "", entry.Relation)
	assert.Equal(t, "status", entry.Column)

	entry, ok = registry.Lookup(EntityOrder, "item_product_id")
	require.True(t, ok)
	assert.Equal(t, "items", entry.Relation)
	assert.Equal(t, "product_id", entry.Column)

	_, ok = registry.Lookup(EntityOrder, "password")
	assert.False(t, ok)
	_, ok = registry.Lookup(EntityKind("invoice"), "id")
	assert.False(t, ok)
}

func TestRegistryLookupAcceptsCamelCase(t *testing.T) {
	registry := newTestRegistry(t)
	entry, ok := registry.Lookup(EntityOrder, "totalAmount")
	require.True(t, ok)
	assert.Equal(t, "total_amount", entry.Field)

	_, ok = registry.Lookup(EntityOrder, "orderNo")
	assert.True(t, ok)
}

func TestRegistryLookupRejectsNonIdentifiers(t *testing.T) {
	registry := newTestRegistry(t)
	for _, field := range []string{"status;drop", "status--", "1id", "orders.status", "total amount"} {
		_, ok := registry.Lookup(EntityOrder, field)
		assert.False(t, ok, field)
	}
}

func TestRegistryOperatorAllowList(t *testing.T) {
	registry := newTestRegistry(t)
	assert.True(t, registry.IsOperatorAllowed(EntityOrder, OpLike))
	assert.False(t, registry.IsOperatorAllowed(EntityOrderItem, OpLike))
	assert.True(t, registry.IsOperatorAllowed(EntityShop, OpBetween))
	assert.False(t, registry.IsOperatorAllowed(EntityShop, OpGt))
	assert.False(t, registry.IsOperatorAllowed(EntityKind("invoice"), OpEq))
}

func TestNewRegistryRejectsInvalidRules(t *testing.T) {
	cases := map[string]EntityRules{
		"missing table": {Kind: "a"},
		"duplicate field": {
			Kind: "a", Table: "a",
			Entries: []AllowListEntry{{Field: "id"}, {Field: "id"}},
		},
		"undeclared relation": {
			Kind: "a", Table: "a",
			Entries: []AllowListEntry{{Field: "x", Relation: "ghost"}},
		},
		"unknown operator": {
			Kind: "a", Table: "a",
			Operators: []Operator{"regex"},
		},
		"incomplete relation": {
			Kind: "a", Table: "a",
			Relations: []Relation{{Name: "items", Table: "items"}},
		},
	}
	for name, rules := range cases {
		_, err := NewRegistry(rules)
		assert.ErrorIs(t, err, ErrInvalidRules, name)
	}

	_, err := NewRegistry(EntityRules{Kind: "a", Table: "a"}, EntityRules{Kind: "a", Table: "b"})
	assert.ErrorIs(t, err, ErrInvalidRules)
}

func TestDefaultRulesAreIndependentCopies(t *testing.T) {
	first := DefaultRules()
	first[0].Operators[0] = OpLike
	first[0].Entries[0].Field = "hacked"

	second := DefaultRules()
	assert.Equal(t, OpEq, second[0].Operators[0])
	assert.Equal(t, "id", second[0].Entries[0].Field)
	assert.Equal(t, OpEq, AllOperators[0])
}

func TestMustNewRegistryPanicsOnInvalidRules(t *testing.T) {
	assert.Panics(t, func() {
		MustNewRegistry(EntityRules{Kind: "a"})
	})
}
