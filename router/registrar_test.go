package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strada-framework/strada/types"
)

func TestRegistrar_Load(t *testing.T) {
	registrar := NewRegistrar(nil)

	trie, err := registrar.Load([]types.Declaration{
		{Method: "GET", Pattern: "/users", Handler: testHandler("list")},
		{Method: "post", Pattern: "/users", Handler: testHandler("create")},
		{Method: "GET", Pattern: "/users/[id]", Handler: testHandler("get")},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, trie.Len())

	// Method names normalize to upper case.
	assert.Equal(t, MatchFound, trie.Match("POST", "/users").Kind)
}

func TestRegistrar_LoadCollectsAllErrors(t *testing.T) {
	registrar := NewRegistrar(nil)

	_, err := registrar.Load([]types.Declaration{
		{Method: "GET", Pattern: "/files/[name]", Handler: testHandler("a")},
		{Method: "GET", Pattern: "/files/[...]", Handler: testHandler("b")},
		{Method: "GET", Pattern: "/users", Handler: nil},
		{Method: "GET", Pattern: "/x/[...]/y", Handler: testHandler("c")},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrRouteLoadFailed)
	assert.ErrorIs(t, err, types.ErrConflictingSegmentKind)
	assert.ErrorIs(t, err, types.ErrHandlerIsNil)
	assert.ErrorIs(t, err, types.ErrWildcardNotTerminal)
}

func TestRegistrar_LoadEmpty(t *testing.T) {
	registrar := NewRegistrar(nil)

	trie, err := registrar.Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, trie.Len())
}
