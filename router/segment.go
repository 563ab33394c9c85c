package router

import (
	"strings"

	"github.com/strada-framework/strada/types"
)

type SegmentKind uint8

const (
	SegmentStatic SegmentKind = iota
	SegmentDynamic
	SegmentWildcard
)

func (k SegmentKind) String() string {
	switch k {
	case SegmentStatic:
		return "static"
	case SegmentDynamic:
		return "dynamic"
	case SegmentWildcard:
		return "wildcard"
	}
	return "unknown"
}

// Segment is one parsed pattern segment. Literal holds the static literal
// for static segments and the parameter name for dynamic ones.
type Segment struct {
	Kind    SegmentKind
	Literal string
}

// ParsePattern splits a route pattern into segments. Dynamic segments use
// "[name]", the wildcard is "[...]" and must be terminal, "(name)" grouping
// segments organize declarations only and are elided here. The root pattern
// "/" yields zero segments.
func ParsePattern(pattern string) ([]Segment, error) {
	if pattern == "" {
		return nil, types.ErrEmptyPattern
	}

	raw := splitPath(pattern)
	segments := make([]Segment, 0, len(raw))

	for i, part := range raw {
		switch {
		case part == "[...]":
			if i != len(raw)-1 {
				return nil, types.Errorf(types.ErrWildcardNotTerminal, "pattern %q", pattern)
			}
			segments = append(segments, Segment{Kind: SegmentWildcard})

		case strings.HasPrefix(part, "[") && strings.HasSuffix(part, "]"):
			name := part[1 : len(part)-1]
			if name == "" || strings.ContainsAny(name, "[]()") {
				return nil, types.Errorf(types.ErrInvalidSegment, "dynamic segment %q in pattern %q", part, pattern)
			}
			segments = append(segments, Segment{Kind: SegmentDynamic, Literal: name})

		case strings.HasPrefix(part, "(") && strings.HasSuffix(part, ")"):
			if len(part) == 2 {
				return nil, types.Errorf(types.ErrInvalidSegment, "empty group segment in pattern %q", pattern)
			}
			// Grouping segments never produce a trie edge.

		case strings.ContainsAny(part, "[]()"):
			return nil, types.Errorf(types.ErrInvalidSegment, "segment %q in pattern %q", part, pattern)

		default:
			segments = append(segments, Segment{Kind: SegmentStatic, Literal: part})
		}
	}

	return segments, nil
}

// splitPath splits a slash-delimited path into non-empty segments, so
// duplicate and trailing slashes normalize away.
func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}

	n := 1
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			n++
		}
	}

	segments := make([]string, 0, n)
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '/' {
			if i > start {
				segments = append(segments, path[start:i])
			}
			start = i + 1
		}
	}

	return segments
}
