// Package executor runs a pipeline: walking the DAG from a start node,
// fanning each node's command out across its scope's values with a
// bounded worker pool, and persisting per-scope-value status so a
// rerun can skip what already succeeded (executor.py).
package executor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"

	"github.com/rdebroiz/presto/internal/datamodel"
	"github.com/rdebroiz/presto/internal/logger"
	"github.com/rdebroiz/presto/internal/pipeline"
	"github.com/rdebroiz/presto/internal/settings"
	"github.com/rdebroiz/presto/internal/status"
)

// ErrNodeNotFound is returned by Execute when the requested start node
// does not exist in the pipeline.
var ErrNodeNotFound = fmt.Errorf("node not found")

// Executor walks a pipeline.Graph from a chosen start node and, for
// every node encountered, either prints or runs its command across
// every value of its bound scope.
type Executor struct {
	graph       *pipeline.Graph
	dm          *datamodel.DataModel
	pipelineDir string
	maxWorkers  int
	printOnly   bool
	force       bool
	log         logger.Logger

	progressMu sync.Mutex
}

// New builds an Executor. maxWorkers is the global worker budget; each
// node scales it by its own WorkersModifier.
func New(g *pipeline.Graph, dm *datamodel.DataModel, pipelineDir string, maxWorkers int, log logger.Logger) *Executor {
	return &Executor{
		graph:       g,
		dm:          dm,
		pipelineDir: pipelineDir,
		maxWorkers:  maxWorkers,
		log:         log,
	}
}

// SetPrintOnly toggles dry-run mode: commands are printed, never run.
func (e *Executor) SetPrintOnly(v bool) { e.printOnly = v }

// SetForce toggles re-execution of scope values that already succeeded.
func (e *Executor) SetForce(v bool) { e.force = v }

// Execute runs (or prints) nodeName and every one of its descendants in
// topological order. An empty nodeName or pipeline.RootName starts from
// the synthetic root.
func (e *Executor) Execute(ctx context.Context, nodeName string) error {
	start := e.graph.Root
	if nodeName != "" && nodeName != pipeline.RootName {
		n, ok := e.graph.Nodes[nodeName]
		if !ok {
			return fmt.Errorf("%w: %q", ErrNodeNotFound, nodeName)
		}
		start = n
		if err := e.handleOne(ctx, start); err != nil {
			return err
		}
	}

	for _, n := range e.graph.Walk(start) {
		if err := e.handleOne(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) handleOne(ctx context.Context, n *pipeline.Node) error {
	if e.printOnly {
		e.printNode(n)
		return nil
	}
	return e.runNode(ctx, n)
}

// printNode renders n's fully evaluated command line for every value of
// its scope, without running anything.
func (e *Executor) printNode(n *pipeline.Node) {
	fmt.Printf("%s\nExecuting: %s%s\n", settings.Bold, n.Name, settings.Endc)
	values := make([]string, 0, len(n.Argvs))
	for v := range n.Argvs {
		values = append(values, v)
	}
	sort.Strings(values)
	for _, v := range values {
		fmt.Println(strings.Join(n.Argvs[v], " "))
	}
}

// runNode fans n's command out over every value of its scope with a
// worker pool bounded by the node's WorkersModifier, persisting status
// after every completed run so an interrupted run loses no progress.
func (e *Executor) runNode(ctx context.Context, n *pipeline.Node) error {
	path := settings.NodeExecFile(e.pipelineDir, n.Name)
	store, err := status.Load(path)
	if err != nil {
		return fmt.Errorf("unable to load status for node %q: %w", n.Name, err)
	}

	workers := int(math.Floor(float64(e.maxWorkers) * n.WorkersModifier))
	if workers < 1 {
		workers = 1
	}

	values := make([]string, 0, len(n.Argvs))
	for v := range n.Argvs {
		values = append(values, v)
	}
	sort.Strings(values)

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var completed int
	var anyFailed bool

	for _, scopeValue := range values {
		wg.Add(1)
		go func(scopeValue string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			prev, _ := store.Get(scopeValue)
			rec := e.runOneScopeValue(ctx, n.Argvs[scopeValue], prev)
			store.Set(scopeValue, rec)

			e.progressMu.Lock()
			completed++
			if !rec.Succeeded() {
				anyFailed = true
			}
			frac := float64(completed) / float64(len(values))
			e.printProgress(n.Description, frac, !anyFailed)
			saveErr := store.Save()
			e.progressMu.Unlock()
			if saveErr != nil {
				e.log.Errorf("unable to persist status for node %q: %v", n.Name, saveErr)
			}
		}(scopeValue)
	}
	wg.Wait()
	fmt.Println()

	if failed := store.FailedScopeValues(); len(failed) > 0 {
		e.log.Errorf("node %q: failed scope values: %v", n.Name, failed)
	}
	return nil
}

// runOneScopeValue runs (or skips, if prev already succeeded and force
// is off) a single scope value's command, returning its new status
// record (executor.py's _execute_one_scope_value).
func (e *Executor) runOneScopeValue(ctx context.Context, argv []string, prev status.Record) status.Record {
	rec := status.Record{
		Cmd: strings.Join(argv, " "),
	}

	if prev.Succeeded() && !e.force {
		rec = prev
		rec.Context = status.ContextNoWorkToDo
		rec.Cmd = strings.Join(argv, " ")
		return rec
	}

	if len(argv) == 0 {
		rec.Status = status.Failure
		rec.Context = status.ContextBadFormat
		rec.Message = "command is empty\n"
		return rec
	}

	// #nosec G204 -- argv comes from the pipeline's own command template,
	// evaluated against the data model; it is not external input.
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	output, err := cmd.CombinedOutput()
	rec.ExecutionDate = status.Now()

	if err == nil {
		rec.Status = status.Success
		rec.Context = status.ContextExecuted
		rec.Message = status.StripTrailingSpace(string(output)) + "\n"
		return rec
	}

	rec.Status = status.Failure
	switch {
	case errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist):
		rec.Context = status.ContextCommandNotFound
		rec.Message = status.StripTrailingSpace(err.Error()) + "\n"
	case errors.Is(err, fs.ErrPermission):
		rec.Context = status.ContextPermissionDenied
		rec.Message = status.StripTrailingSpace(err.Error()) + "\n"
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			rec.Context = status.ContextError
			rec.Message = status.StripTrailingSpace(string(output)) + "\n"
		} else {
			rec.Context = status.ContextError
			rec.Message = status.StripTrailingSpace(err.Error()) + "\n"
		}
	}
	return rec
}

// printProgress renders a single-line, carriage-return-driven progress
// indicator, green while every completion so far succeeded, red once
// one has failed (settings.py's color palette).
func (e *Executor) printProgress(desc string, frac float64, ok bool) {
	color := settings.Fail
	if ok {
		color = settings.OKGreen
	}
	os.Stdout.WriteString(fmt.Sprintf("%s%s: %.0f%%%s%s", color, desc, frac*100, settings.Endc, settings.Return))
}
