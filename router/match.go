package router

import (
	"github.com/strada-framework/strada/types"
)

type MatchKind uint8

const (
	MatchFound MatchKind = iota
	MatchNotFound
	MatchMethodNotAllowed
)

// Match is the transient per-request result of resolving method and path
// against the trie.
type Match struct {
	Kind     MatchKind
	Entry    *Entry
	Params   types.Params
	Wildcard []string
	// Allowed lists registered methods when Kind is MatchMethodNotAllowed.
	Allowed []string
}

// Match resolves method and path with strict static > dynamic > wildcard
// precedence. The first successful child at each depth commits: a static
// branch that dead-ends deeper in the tree does not fall back to a dynamic
// or wildcard sibling.
func (t *Trie) Match(method, path string) Match {
	methodIdx, ok := methodIndex[method]
	if !ok {
		return Match{Kind: MatchNotFound}
	}

	segments := splitPath(path)
	n := t.root
	var params types.Params
	var wildcard []string

	for i, segment := range segments {
		if child := n.staticChild(segment); child != nil {
			n = child
			continue
		}
		if n.dynamicChild != nil {
			params = append(params, types.Param{Name: n.paramName, Value: segment})
			n = n.dynamicChild
			continue
		}
		if n.wildcardChild != nil {
			wildcard = append(wildcard, segments[i:]...)
			n = n.wildcardChild
			break
		}
		return Match{Kind: MatchNotFound}
	}

	if entry := n.entries[methodIdx]; entry != nil {
		return Match{Kind: MatchFound, Entry: entry, Params: params, Wildcard: wildcard}
	}

	// A wildcard consumes all remaining segments including zero, so a path
	// that exhausts exactly at the wildcard's parent still reaches it.
	if wc := n.wildcardChild; wc != nil && wildcard == nil {
		if entry := wc.entries[methodIdx]; entry != nil {
			return Match{Kind: MatchFound, Entry: entry, Params: params, Wildcard: []string{}}
		}
		if n.methodMask == 0 && wc.methodMask != 0 {
			return Match{Kind: MatchMethodNotAllowed, Allowed: wc.allowedMethods()}
		}
	}

	if n.methodMask != 0 {
		return Match{Kind: MatchMethodNotAllowed, Allowed: n.allowedMethods()}
	}

	return Match{Kind: MatchNotFound}
}
