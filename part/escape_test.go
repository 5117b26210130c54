package part

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeForFileName_RoundTrip(t *testing.T) {
	cases := []string{
		"n",
		"a.b",
		"weird name!",
		"100%done",
		"",
		"a.b.c%size0",
	}
	for _, name := range cases {
		escaped := EscapeForFileName(name)
		unescaped, err := UnescapeFileName(escaped)
		require.NoError(t, err, name)
		assert.Equal(t, name, unescaped)
	}
}

func TestEscapeForFileName_LeavesSafeBytesAlone(t *testing.T) {
	assert.Equal(t, "abc_123", EscapeForFileName("abc_123"))
}

func TestEscapeForFileName_EscapesDot(t *testing.T) {
	assert.Equal(t, "a%2Eb", EscapeForFileName("a.b"))
}

func TestUnescapeFileName_TruncatedSequence(t *testing.T) {
	_, err := UnescapeFileName("a%2")
	assert.Error(t, err)
}

func TestUnescapeFileName_InvalidHex(t *testing.T) {
	_, err := UnescapeFileName("a%ZZ")
	assert.Error(t, err)
}
