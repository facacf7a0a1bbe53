package datamodel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	paths := []string{
		"scope_1/a",
		"scope_1_other/b",
		"scope_2_3/c",
		"scope_2_x/d",
	}
	for _, p := range paths {
		full := filepath.Join(root, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("x"), 0o644))
	}
	return root
}

func TestBuildScopeValues(t *testing.T) {
	root := writeTestTree(t)
	doc := map[string]any{
		"__ROOT__": root,
		"__SCOPES__": map[string]any{
			"SCOPE_1": "scope_1.*?/",
		},
	}
	dm, err := Build(doc, nil)
	require.NoError(t, err)

	s, ok := dm.Scopes["SCOPE_1"]
	require.True(t, ok)
	assert.Equal(t, []string{"scope_1/", "scope_1_other/"}, s.Values)
}

func TestBuildMissingRoot(t *testing.T) {
	doc := map[string]any{
		"__SCOPES__": map[string]any{},
	}
	_, err := Build(doc, nil)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestBuildRootNotFound(t *testing.T) {
	doc := map[string]any{
		"__ROOT__":   filepath.Join(t.TempDir(), "does-not-exist"),
		"__SCOPES__": map[string]any{},
	}
	_, err := Build(doc, nil)
	require.ErrorIs(t, err, ErrRootNotFound)
}

func TestBuildUnknownScopeOverride(t *testing.T) {
	root := writeTestTree(t)
	doc := map[string]any{
		"__ROOT__":   root,
		"__SCOPES__": map[string]any{"SCOPE_1": "scope_1.*?/"},
	}
	_, err := Build(doc, map[string]string{"NOT_A_SCOPE": ".*"})
	require.ErrorIs(t, err, ErrUnknownScopeOverride)
}

func TestBuildScopeOverrideWins(t *testing.T) {
	root := writeTestTree(t)
	doc := map[string]any{
		"__ROOT__":   root,
		"__SCOPES__": map[string]any{"SCOPE_1": "scope_1.*?/"},
	}
	dm, err := Build(doc, map[string]string{"SCOPE_1": "scope_2.*?/"})
	require.NoError(t, err)
	assert.Equal(t, "scope_2.*?/", dm.Scopes["SCOPE_1"].Expression)
}

func TestBuildNestedSymbolReference(t *testing.T) {
	root := writeTestTree(t)
	doc := map[string]any{
		"__ROOT__":       root,
		"SCOPE_2_DIGIT":  "scope_2_[0-9]/",
		"SCOPE_2_LETTER": "scope_2_[a-zA-Z]/",
		"SCOPE_2":        "(${SCOPE_2_DIGIT}|${SCOPE_2_LETTER})",
		"__SCOPES__": map[string]any{
			"SCOPE_2": "${SCOPE_2}",
		},
	}
	dm, err := Build(doc, nil)
	require.NoError(t, err)
	assert.Equal(t, "(scope_2_[0-9]/|scope_2_[a-zA-Z]/)", dm.Scopes["SCOPE_2"].Expression)
	assert.ElementsMatch(t, []string{"scope_2_3/", "scope_2_x/"}, dm.Scopes["SCOPE_2"].Values)
}
