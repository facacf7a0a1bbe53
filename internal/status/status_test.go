package status

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.nexec")
	s, err := Load(path)
	require.NoError(t, err)
	_, ok := s.Get("a.txt")
	assert.False(t, ok)
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.nexec")
	s, err := Load(path)
	require.NoError(t, err)

	s.Set("a.txt", Record{
		ExecutionDate: Now(),
		Status:        Success,
		Context:       ContextExecuted,
		Cmd:           "touch a.txt",
		Message:       "done\n",
	})
	require.NoError(t, s.Save())

	reloaded, err := Load(path)
	require.NoError(t, err)
	r, ok := reloaded.Get("a.txt")
	require.True(t, ok)
	assert.True(t, r.Succeeded())
	assert.Equal(t, ContextExecuted, r.Context)
}

func TestFailedScopeValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.nexec")
	s, err := Load(path)
	require.NoError(t, err)

	s.Set("a.txt", Record{Status: Success})
	s.Set("b.txt", Record{Status: Failure, Context: ContextError})
	s.Set("c.txt", Record{Status: Failure, Context: ContextCommandNotFound})

	assert.Equal(t, []string{"b.txt", "c.txt"}, s.FailedScopeValues())
}

func TestStripTrailingSpace(t *testing.T) {
	in := "line one  \nline two\t\n"
	assert.Equal(t, "line one\nline two\n", StripTrailingSpace(in))
}
