package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOverridesSplitsOnFirstColon(t *testing.T) {
	overrides, err := parseOverrides([]string{"SCOPE:a:b"})
	require.NoError(t, err)
	assert.Equal(t, "a:b", overrides["SCOPE"])
}

func TestParseOverridesRejectsMissingColon(t *testing.T) {
	_, err := parseOverrides([]string{"NOCOLON"})
	assert.Error(t, err)
}

func TestParseOverridesEmpty(t *testing.T) {
	overrides, err := parseOverrides(nil)
	require.NoError(t, err)
	assert.Empty(t, overrides)
}

func writePipeline(t *testing.T, dir string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a", "1.txt"), []byte("x"), 0o644))

	pipe := filepath.Join(dir, "pipe.yaml")
	content := "__ROOT__: " + dir + "\n" +
		"__SCOPES__:\n" +
		"  ALL: \".*\"\n" +
		"---\n" +
		"__NAME__: build\n" +
		"__DESCRIPTION__: build\n" +
		"__SCOPE__: ALL\n" +
		"__CMD__: [\"echo\", \"hi\"]\n"
	require.NoError(t, os.WriteFile(pipe, []byte(content), 0o644))
	return pipe
}

func TestRunExecutesPipelineSuccessfully(t *testing.T) {
	dir := t.TempDir()
	pipe := writePipeline(t, dir)

	code := run([]string{"--workers", "1", pipe})
	assert.Equal(t, 0, code)

	_, err := os.Stat(filepath.Join(dir, ".presto", "build.nexec"))
	require.NoError(t, err)
}

func TestRunEmptyPipelineExitsOne(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	pipe := filepath.Join(dir, "pipe.yaml")
	content := "__ROOT__: " + dir + "\n__SCOPES__: {}\n"
	require.NoError(t, os.WriteFile(pipe, []byte(content), 0o644))

	code := run([]string{pipe})
	assert.Equal(t, 1, code)
}

func TestRunShowsVersion(t *testing.T) {
	code := run([]string{"--version"})
	assert.Equal(t, 0, code)
}
