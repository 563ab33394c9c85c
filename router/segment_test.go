package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strada-framework/strada/types"
)

func TestParsePattern_Static(t *testing.T) {
	segments, err := ParsePattern("/users/profile")
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, Segment{Kind: SegmentStatic, Literal: "users"}, segments[0])
	assert.Equal(t, Segment{Kind: SegmentStatic, Literal: "profile"}, segments[1])
}

func TestParsePattern_Dynamic(t *testing.T) {
	segments, err := ParsePattern("/users/[id]/posts/[postId]")
	require.NoError(t, err)
	require.Len(t, segments, 4)
	assert.Equal(t, Segment{Kind: SegmentDynamic, Literal: "id"}, segments[1])
	assert.Equal(t, Segment{Kind: SegmentDynamic, Literal: "postId"}, segments[3])
}

func TestParsePattern_WildcardTerminal(t *testing.T) {
	segments, err := ParsePattern("/files/[...]")
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, SegmentWildcard, segments[1].Kind)
}

func TestParsePattern_WildcardNotTerminal(t *testing.T) {
	_, err := ParsePattern("/files/[...]/meta")
	require.ErrorIs(t, err, types.ErrWildcardNotTerminal)
}

func TestParsePattern_GroupsElided(t *testing.T) {
	segments, err := ParsePattern("/(api)/users/[id]")
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, Segment{Kind: SegmentStatic, Literal: "users"}, segments[0])
	assert.Equal(t, Segment{Kind: SegmentDynamic, Literal: "id"}, segments[1])
}

func TestParsePattern_GroupOnlyPatternIsRoot(t *testing.T) {
	segments, err := ParsePattern("/(marketing)")
	require.NoError(t, err)
	assert.Empty(t, segments)
}

func TestParsePattern_Root(t *testing.T) {
	segments, err := ParsePattern("/")
	require.NoError(t, err)
	assert.Empty(t, segments)
}

func TestParsePattern_Empty(t *testing.T) {
	_, err := ParsePattern("")
	require.ErrorIs(t, err, types.ErrEmptyPattern)
}

func TestParsePattern_InvalidSegments(t *testing.T) {
	for _, pattern := range []string{"/users/[]", "/users/()", "/users/x[id]", "/users/[a[b]]"} {
		_, err := ParsePattern(pattern)
		assert.ErrorIs(t, err, types.ErrInvalidSegment, "pattern %q", pattern)
	}
}

func TestSplitPath_NormalizesSlashes(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitPath("/a//b/"))
	assert.Nil(t, splitPath("/"))
	assert.Nil(t, splitPath("///"))
}
