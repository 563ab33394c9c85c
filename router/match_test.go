package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strada-framework/strada/types"
)

func TestMatch_StaticExact(t *testing.T) {
	trie := NewTrie()
	mustInsert(t, trie, "GET", "/users/profile")

	m := trie.Match("GET", "/users/profile")
	require.Equal(t, MatchFound, m.Kind)
	assert.Equal(t, "/users/profile", m.Entry.Pattern)
	assert.Empty(t, m.Params)
	assert.Empty(t, m.Wildcard)
}

func TestMatch_StaticBeatsDynamic(t *testing.T) {
	trie := NewTrie()
	mustInsert(t, trie, "GET", "/admin/settings")
	mustInsert(t, trie, "GET", "/admin/[section]")

	m := trie.Match("GET", "/admin/settings")
	require.Equal(t, MatchFound, m.Kind)
	assert.Equal(t, "/admin/settings", m.Entry.Pattern)
	assert.Empty(t, m.Params)
}

func TestMatch_DynamicBindsLiteral(t *testing.T) {
	trie := NewTrie()
	mustInsert(t, trie, "GET", "/admin/settings")
	mustInsert(t, trie, "GET", "/admin/[section]")

	m := trie.Match("GET", "/admin/billing")
	require.Equal(t, MatchFound, m.Kind)
	assert.Equal(t, "/admin/[section]", m.Entry.Pattern)
	v, ok := m.Params.Get("section")
	require.True(t, ok)
	assert.Equal(t, "billing", v)
}

func TestMatch_DynamicParam(t *testing.T) {
	trie := NewTrie()
	mustInsert(t, trie, "GET", "/users/[id]")

	m := trie.Match("GET", "/users/42")
	require.Equal(t, MatchFound, m.Kind)
	assert.Equal(t, types.Params{{Name: "id", Value: "42"}}, m.Params)
}

func TestMatch_ParamsKeepPathOrder(t *testing.T) {
	trie := NewTrie()
	mustInsert(t, trie, "GET", "/orgs/[org]/repos/[repo]")

	m := trie.Match("GET", "/orgs/acme/repos/site")
	require.Equal(t, MatchFound, m.Kind)
	assert.Equal(t, types.Params{{Name: "org", Value: "acme"}, {Name: "repo", Value: "site"}}, m.Params)
}

func TestMatch_WildcardCapturesRemaining(t *testing.T) {
	trie := NewTrie()
	mustInsert(t, trie, "GET", "/files/[...]")

	m := trie.Match("GET", "/files/a/b/c.txt")
	require.Equal(t, MatchFound, m.Kind)
	assert.Equal(t, []string{"a", "b", "c.txt"}, m.Wildcard)
}

func TestMatch_WildcardZeroSegments(t *testing.T) {
	trie := NewTrie()
	mustInsert(t, trie, "GET", "/files/[...]")

	m := trie.Match("GET", "/files")
	require.Equal(t, MatchFound, m.Kind)
	assert.NotNil(t, m.Wildcard)
	assert.Empty(t, m.Wildcard)
}

func TestMatch_StaticBeatsWildcard(t *testing.T) {
	trie := NewTrie()
	mustInsert(t, trie, "GET", "/files/readme")
	mustInsert(t, trie, "GET", "/files/[...]")

	m := trie.Match("GET", "/files/readme")
	require.Equal(t, MatchFound, m.Kind)
	assert.Equal(t, "/files/readme", m.Entry.Pattern)
}

func TestMatch_NotFound(t *testing.T) {
	trie := NewTrie()
	mustInsert(t, trie, "GET", "/users")

	assert.Equal(t, MatchNotFound, trie.Match("GET", "/posts").Kind)
	assert.Equal(t, MatchNotFound, trie.Match("GET", "/users/42").Kind)
}

func TestMatch_MethodNotAllowed(t *testing.T) {
	trie := NewTrie()
	mustInsert(t, trie, "GET", "/users")
	mustInsert(t, trie, "POST", "/users")

	m := trie.Match("DELETE", "/users")
	require.Equal(t, MatchMethodNotAllowed, m.Kind)
	assert.Equal(t, []string{"GET", "POST"}, m.Allowed)
}

func TestMatch_MethodNotAllowedDistinctFromNotFound(t *testing.T) {
	trie := NewTrie()
	mustInsert(t, trie, "GET", "/users")

	assert.Equal(t, MatchMethodNotAllowed, trie.Match("POST", "/users").Kind)
	assert.Equal(t, MatchNotFound, trie.Match("POST", "/nothing").Kind)
}

func TestMatch_UnknownMethodIsNotFound(t *testing.T) {
	trie := NewTrie()
	mustInsert(t, trie, "GET", "/users")

	assert.Equal(t, MatchNotFound, trie.Match("FETCH", "/users").Kind)
}

// The first successful child at each depth commits: a static branch that
// dead-ends deeper does not fall back to a dynamic sibling.
func TestMatch_NoBacktracking(t *testing.T) {
	trie := NewTrie()
	mustInsert(t, trie, "GET", "/a/static/deep")
	mustInsert(t, trie, "GET", "/a/[x]/other")

	m := trie.Match("GET", "/a/static/other")
	assert.Equal(t, MatchNotFound, m.Kind)
}

func TestMatch_RootRoute(t *testing.T) {
	trie := NewTrie()
	mustInsert(t, trie, "GET", "/")

	m := trie.Match("GET", "/")
	require.Equal(t, MatchFound, m.Kind)
	assert.Equal(t, "/", m.Entry.Pattern)
}

func TestMatch_GroupedPatternMatchesBareURL(t *testing.T) {
	trie := NewTrie()
	mustInsert(t, trie, "GET", "/(api)/users/[id]")

	m := trie.Match("GET", "/users/7")
	require.Equal(t, MatchFound, m.Kind)
	assert.Equal(t, types.Params{{Name: "id", Value: "7"}}, m.Params)

	// The group name itself never appears in the URL.
	assert.Equal(t, MatchNotFound, trie.Match("GET", "/api/users/7").Kind)
}

func TestMatch_TrailingAndDuplicateSlashes(t *testing.T) {
	trie := NewTrie()
	mustInsert(t, trie, "GET", "/users/[id]")

	m := trie.Match("GET", "/users//42/")
	require.Equal(t, MatchFound, m.Kind)
	assert.Equal(t, "42", m.Params[0].Value)
}
