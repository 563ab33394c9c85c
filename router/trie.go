package router

import (
	"sort"

	"github.com/strada-framework/strada/types"
)

var methodIndex = map[string]uint8{
	"GET":     0,
	"POST":    1,
	"PUT":     2,
	"DELETE":  3,
	"PATCH":   4,
	"HEAD":    5,
	"OPTIONS": 6,
	"TRACE":   7,
}

var methodNames = [8]string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS", "TRACE"}

// Entry is one registered endpoint. Created at registration, immutable
// afterwards; its lifetime is the lifetime of the trie.
type Entry struct {
	Method     string
	Pattern    string
	Handler    types.Handler
	Schema     *types.Schema
	Middleware []types.Middleware
	Metadata   map[string]interface{}
}

type node struct {
	staticChildren map[string]*node
	dynamicChild   *node
	paramName      string
	wildcardChild  *node
	entries        [8]*Entry
	methodMask     uint8
}

func newNode() *node {
	return &node{}
}

func (n *node) staticChild(segment string) *node {
	if n.staticChildren == nil {
		return nil
	}
	return n.staticChildren[segment]
}

// Trie stores routes keyed by path shape and method. It is mutable only
// during registration; once the registrar hands it to the dispatcher it is
// read-only and safe for unsynchronized concurrent matching.
type Trie struct {
	root   *node
	routes int
}

func NewTrie() *Trie {
	return &Trie{root: newNode()}
}

func (t *Trie) Len() int {
	return t.routes
}

// Insert registers an entry under method and pattern. Structural invariants
// are enforced here so a misconfigured route set fails at startup, never at
// match time.
func (t *Trie) Insert(method, pattern string, entry *Entry) error {
	methodIdx, ok := methodIndex[method]
	if !ok {
		return types.Errorf(types.ErrUnknownMethod, "%q for pattern %q", method, pattern)
	}
	if entry == nil || entry.Handler == nil {
		return types.Errorf(types.ErrHandlerIsNil, "%s %s", method, pattern)
	}

	segments, err := ParsePattern(pattern)
	if err != nil {
		return err
	}

	n := t.root
	for _, segment := range segments {
		switch segment.Kind {
		case SegmentStatic:
			child := n.staticChild(segment.Literal)
			if child == nil {
				child = newNode()
				if n.staticChildren == nil {
					n.staticChildren = make(map[string]*node, 4)
				}
				n.staticChildren[segment.Literal] = child
			}
			n = child

		case SegmentDynamic:
			if n.wildcardChild != nil {
				return types.Errorf(types.ErrConflictingSegmentKind,
					"dynamic segment [%s] conflicts with wildcard sibling in pattern %q", segment.Literal, pattern)
			}
			if n.dynamicChild == nil {
				n.dynamicChild = newNode()
				n.paramName = segment.Literal
			} else if n.paramName != segment.Literal {
				return types.Errorf(types.ErrConflictingSegmentKind,
					"dynamic segment [%s] conflicts with existing [%s] in pattern %q", segment.Literal, n.paramName, pattern)
			}
			n = n.dynamicChild

		case SegmentWildcard:
			if n.dynamicChild != nil {
				return types.Errorf(types.ErrConflictingSegmentKind,
					"wildcard segment conflicts with dynamic sibling [%s] in pattern %q", n.paramName, pattern)
			}
			if n.wildcardChild == nil {
				n.wildcardChild = newNode()
			}
			n = n.wildcardChild
		}
	}

	if n.entries[methodIdx] != nil {
		return types.Errorf(types.ErrDuplicateRoute, "%s %s already registered as %q", method, pattern, n.entries[methodIdx].Pattern)
	}

	n.entries[methodIdx] = entry
	n.methodMask |= 1 << methodIdx
	t.routes++

	return nil
}

func (n *node) allowedMethods() []string {
	if n.methodMask == 0 {
		return nil
	}
	allowed := make([]string, 0, 4)
	for idx, name := range methodNames {
		if n.methodMask&(1<<uint(idx)) != 0 {
			allowed = append(allowed, name)
		}
	}
	return allowed
}

// Routes returns every registered entry keyed by "METHOD pattern", for
// startup logging and diagnostics.
func (t *Trie) Routes() map[string]*Entry {
	routes := make(map[string]*Entry, t.routes)
	collectRoutes(t.root, routes)
	return routes
}

// RouteKeys returns the sorted key set of Routes.
func (t *Trie) RouteKeys() []string {
	routes := t.Routes()
	keys := make([]string, 0, len(routes))
	for key := range routes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func collectRoutes(n *node, routes map[string]*Entry) {
	for idx := range n.entries {
		if entry := n.entries[idx]; entry != nil {
			routes[methodNames[idx]+" "+entry.Pattern] = entry
		}
	}
	for _, child := range n.staticChildren {
		collectRoutes(child, routes)
	}
	if n.dynamicChild != nil {
		collectRoutes(n.dynamicChild, routes)
	}
	if n.wildcardChild != nil {
		collectRoutes(n.wildcardChild, routes)
	}
}
