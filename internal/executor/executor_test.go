package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdebroiz/presto/internal/logger"
	"github.com/rdebroiz/presto/internal/pipeline"
	"github.com/rdebroiz/presto/internal/settings"
	"github.com/rdebroiz/presto/internal/status"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	return &Executor{
		pipelineDir: t.TempDir(),
		maxWorkers:  2,
		log:         logger.NewLogger(logger.WithQuiet()),
	}
}

func TestRunOneScopeValueSuccess(t *testing.T) {
	e := newTestExecutor(t)
	rec := e.runOneScopeValue(context.Background(), []string{"echo", "hello"}, status.Record{})
	assert.True(t, rec.Succeeded())
	assert.Equal(t, status.ContextExecuted, rec.Context)
	assert.Contains(t, rec.Message, "hello")
}

func TestRunOneScopeValueCommandNotFound(t *testing.T) {
	e := newTestExecutor(t)
	rec := e.runOneScopeValue(context.Background(), []string{"this-command-does-not-exist-anywhere"}, status.Record{})
	assert.False(t, rec.Succeeded())
	assert.Equal(t, status.ContextCommandNotFound, rec.Context)
}

func TestRunOneScopeValueNonZeroExit(t *testing.T) {
	e := newTestExecutor(t)
	rec := e.runOneScopeValue(context.Background(), []string{"false"}, status.Record{})
	assert.False(t, rec.Succeeded())
	assert.Equal(t, status.ContextError, rec.Context)
}

func TestRunOneScopeValueSkipsPreviousSuccess(t *testing.T) {
	e := newTestExecutor(t)
	prev := status.Record{Status: status.Success, Message: "cached\n"}
	rec := e.runOneScopeValue(context.Background(), []string{"echo", "should not run"}, prev)
	assert.Equal(t, status.ContextNoWorkToDo, rec.Context)
	assert.Equal(t, "cached\n", rec.Message)
}

func TestRunOneScopeValueForceReruns(t *testing.T) {
	e := newTestExecutor(t)
	e.SetForce(true)
	prev := status.Record{Status: status.Success, Message: "cached\n"}
	rec := e.runOneScopeValue(context.Background(), []string{"echo", "fresh"}, prev)
	assert.Equal(t, status.ContextExecuted, rec.Context)
	assert.Contains(t, rec.Message, "fresh")
}

func TestRunOneScopeValueEmptyCommand(t *testing.T) {
	e := newTestExecutor(t)
	rec := e.runOneScopeValue(context.Background(), nil, status.Record{})
	assert.False(t, rec.Succeeded())
	assert.Equal(t, status.ContextBadFormat, rec.Context)
}

func TestRunNodePersistsStatusFile(t *testing.T) {
	e := newTestExecutor(t)
	require.NoError(t, os.MkdirAll(settings.PrestoDir(e.pipelineDir), 0o755))

	n := &pipeline.Node{
		Name:            "build",
		Description:     "build",
		WorkersModifier: 1,
		Argvs: map[string][]string{
			"a": {"echo", "a"},
			"b": {"echo", "b"},
		},
	}

	require.NoError(t, e.runNode(context.Background(), n))

	path := filepath.Join(e.pipelineDir, ".presto", "build.nexec")
	store, err := status.Load(path)
	require.NoError(t, err)
	ra, ok := store.Get("a")
	require.True(t, ok)
	assert.True(t, ra.Succeeded())
}
