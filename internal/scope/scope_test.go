package scope

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeReservedRegexChars(t *testing.T) {
	for _, c := range reservedChars {
		got := EscapeReservedRegexChars(string(c))
		assert.Equal(t, "\\"+string(c), got)
	}
}

func TestEscapeRoundTrip(t *testing.T) {
	for _, c := range reservedChars {
		escaped := EscapeReservedRegexChars(string(c))
		re, err := regexp.Compile(escaped)
		require.NoError(t, err)
		assert.True(t, re.MatchString(string(c)))
		assert.Equal(t, string(c), re.FindString(string(c)+"x"))
	}
}

func TestNew(t *testing.T) {
	s, err := New("test", `^/t/\d$`, []string{"/t/1", "/t/2"})
	require.NoError(t, err)
	assert.Equal(t, "test", s.Name)
	assert.Equal(t, `^/t/\d$`, s.Expression)
	assert.Equal(t, []string{"/t/1", "/t/2"}, s.Values)
}

func TestNewBadExpression(t *testing.T) {
	_, err := New("test", `(unclosed`, nil)
	require.Error(t, err)
}
