// Package report renders a human-readable summary of a pipeline's last
// execution by reading every node's persisted status file, in the order
// the nodes were last run (original presto.py's print_report, redesigned
// as a real table report — see SPEC_FULL.md's REPORT module).
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/rdebroiz/presto/internal/settings"
	"github.com/rdebroiz/presto/internal/status"
)

// nodeExecution is one node's status file, paired with its modification
// time so the report can be ordered by execution sequence.
type nodeExecution struct {
	nodeName string
	path     string
	modTime  int64
}

// Render builds the full textual report for the pipeline whose working
// directory is pipelineDir: a summary table (one row per node) followed
// by one detail table per node (one row per scope value).
func Render(pipelineDir string) (string, error) {
	executions, err := listExecutions(pipelineDir)
	if err != nil {
		return "", err
	}
	if len(executions) == 0 {
		return "no execution recorded yet.\n", nil
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "report %s\n\n", uuid.NewString())
	fmt.Fprintln(&buf, renderSummary(executions))
	for _, ex := range executions {
		fmt.Fprintf(&buf, "\n%s:\n", ex.nodeName)
		detail, err := renderDetail(ex)
		if err != nil {
			return "", err
		}
		fmt.Fprintln(&buf, detail)
	}
	return buf.String(), nil
}

func listExecutions(pipelineDir string) ([]nodeExecution, error) {
	dir := settings.PrestoDir(pipelineDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("report: unable to read %s: %w", dir, err)
	}

	var executions []nodeExecution
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), settings.NodeExecSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("report: unable to stat %s: %w", e.Name(), err)
		}
		executions = append(executions, nodeExecution{
			nodeName: strings.TrimSuffix(e.Name(), settings.NodeExecSuffix),
			path:     filepath.Join(dir, e.Name()),
			modTime:  info.ModTime().UnixNano(),
		})
	}
	sort.Slice(executions, func(i, j int) bool { return executions[i].modTime < executions[j].modTime })
	return executions, nil
}

func renderSummary(executions []nodeExecution) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Node", "Total", "Succeeded", "Failed", "Not yet run"})
	for i, ex := range executions {
		store, err := status.Load(ex.path)
		if err != nil {
			t.AppendRow(table.Row{i + 1, ex.nodeName, "?", "?", "?", "?"})
			continue
		}
		total, succeeded, failed, notYetRun := summarize(store)
		t.AppendRow(table.Row{i + 1, ex.nodeName, total, succeeded, failed, notYetRun})
	}
	return t.Render()
}

// summarize classifies every scope value's record by its status field:
// SUCCESS, FAILURE, or "" (not yet run), per spec.md §3's
// ScopeValueStatus and SPEC_FULL.md's [REPORT] module.
func summarize(store *status.Store) (total, succeeded, failed, notYetRun int) {
	for _, v := range store.ScopeValues() {
		rec, _ := store.Get(v)
		total++
		switch rec.Status {
		case status.Success:
			succeeded++
		case status.Failure:
			failed++
		default:
			notYetRun++
		}
	}
	return total, succeeded, failed, notYetRun
}

func renderDetail(ex nodeExecution) (string, error) {
	store, err := status.Load(ex.path)
	if err != nil {
		return "", fmt.Errorf("report: unable to load %s: %w", ex.path, err)
	}
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Scope value", "Status", "Context", "Execution date", "Cmd"})
	values := store.ScopeValues()
	sort.Strings(values)
	for _, v := range values {
		rec, _ := store.Get(v)
		t.AppendRow(table.Row{v, rec.Status, rec.Context, rec.ExecutionDate, rec.Cmd})
	}
	return t.Render(), nil
}
