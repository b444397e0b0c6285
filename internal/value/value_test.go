package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/m2t/internal/value"
)

func TestCanonicalStringPrimitives(t *testing.T) {
	s, err := value.CanonicalString(value.String("hi"))
	require.NoError(t, err)
	assert.Equal(t, "hi", s)

	s, err = value.CanonicalString(value.Int(42))
	require.NoError(t, err)
	assert.Equal(t, "42", s)

	s, err = value.CanonicalString(value.Bool(true))
	require.NoError(t, err)
	assert.Equal(t, "true", s)

	s, err = value.CanonicalString(value.Null)
	require.NoError(t, err)
	assert.Equal(t, "", s)
}

func TestElementsCoercion(t *testing.T) {
	els, err := value.Elements(value.Null)
	require.NoError(t, err)
	assert.Empty(t, els)

	els, err = value.Elements(value.Int(5))
	require.NoError(t, err)
	require.Len(t, els, 1)

	seq := value.Sequence([]cty.Value{value.String("a"), value.String("b")})
	els, err = value.Elements(seq)
	require.NoError(t, err)
	assert.Len(t, els, 2)
}

func TestTruthy(t *testing.T) {
	result, ok := value.Truthy(value.Bool(true))
	assert.True(t, ok)
	assert.True(t, result)

	_, ok = value.Truthy(value.Null)
	assert.False(t, ok)

	_, ok = value.Truthy(value.String("true"))
	assert.False(t, ok)
}

func TestModelObjectRoundTrip(t *testing.T) {
	type ref struct{ ID string }
	v := value.ModelObject(&ref{ID: "x"})
	got, ok := value.AsModelObject(v)
	require.True(t, ok)
	assert.Equal(t, &ref{ID: "x"}, got)
}

func TestFromNativeConvertsScalarsAndSequences(t *testing.T) {
	s, err := value.CanonicalString(value.FromNative("x"))
	require.NoError(t, err)
	assert.Equal(t, "x", s)

	s, err = value.CanonicalString(value.FromNative(3.5))
	require.NoError(t, err)
	assert.Equal(t, "3.5", s)

	seq := value.FromNative([]any{"a", "b"})
	els, err := value.Elements(seq)
	require.NoError(t, err)
	require.Len(t, els, 2)
}

func TestFromNativeMapIsNavigable(t *testing.T) {
	v := value.FromNative(map[string]any{"name": "Ada", "age": 42.0})
	obj, ok := value.AsModelObject(v)
	require.True(t, ok)
	nav, ok := obj.(value.Navigable)
	require.True(t, ok)

	name, found := nav.Property("name")
	require.True(t, found)
	assert.Equal(t, "Ada", name)

	_, found = nav.Property("missing")
	assert.False(t, found)
}
