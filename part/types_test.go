package part

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestType_StringRoundTrip(t *testing.T) {
	cases := []Type{
		Primitive(KindUInt8),
		Primitive(KindInt64),
		Primitive(KindFloat64),
		Primitive(KindString),
		Nullable(Primitive(KindUInt32)),
		Array(Primitive(KindString)),
		Array(Array(Primitive(KindUInt8))),
		Nullable(Array(Primitive(KindUInt8))),
		Nested(
			NestedField{Name: "x", Type: Primitive(KindUInt8)},
			NestedField{Name: "y", Type: Primitive(KindUInt8)},
		),
	}
	for _, typ := range cases {
		s := typ.String()
		parsed, err := ParseType(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, parsed.String())
	}
}

func TestParseType_Errors(t *testing.T) {
	_, err := ParseType("Bogus")
	assert.Error(t, err)

	_, err = ParseType("Array(UInt8")
	assert.Error(t, err)

	_, err = ParseType("UInt8 trailing")
	assert.Error(t, err)
}

func TestNestedRoot(t *testing.T) {
	assert.Equal(t, "a.b", nestedRoot("a.b.c"))
	assert.Equal(t, "a", nestedRoot("a.b"))
	assert.Equal(t, "a", nestedRoot("a"))
}
