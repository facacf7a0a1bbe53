// Package status persists and reloads the per-node, per-scope-value
// execution record presto writes after every command run, so reruns
// can skip scope values that already succeeded (executor.py's
// ScopeValueStatus / scope_values_status dict).
package status

import (
	"sort"
	"strings"
	"sync"
	"time"

	yaml "github.com/goccy/go-yaml"

	"github.com/rdebroiz/presto/internal/yamlio"
)

// Outcome values, per spec.md §4.5.
const (
	Success = "SUCCESS"
	Failure = "FAILURE"
)

// Context values classify why a scope value landed in its outcome,
// per spec.md §4.5/§7.
const (
	ContextNoWorkToDo       = "NO_WORK_TO_DO"
	ContextExecuted         = "EXECUTED"
	ContextError            = "ERROR"
	ContextPermissionDenied = "PERMISSION_DENIED"
	ContextCommandNotFound  = "COMMAND_NOT_FOUND"
	ContextBadFormat        = "BAD_FORMAT"
)

// Record is one scope value's execution outcome. Field order matches
// the original's OrderedDict construction and is preserved on dump.
type Record struct {
	ExecutionDate string `yaml:"execution_date"`
	Status        string `yaml:"status"`
	Context       string `yaml:"context"`
	Cmd           string `yaml:"cmd"`
	Message       string `yaml:"message"`
}

// Succeeded reports whether a previous run of this scope value
// completed successfully.
func (r Record) Succeeded() bool {
	return r.Status == Success
}

// Store is the status file for a single node: one Record per scope
// value. It is safe for concurrent use by the worker pool that executes
// a node's scope values in parallel.
type Store struct {
	mu      sync.Mutex
	path    string
	records map[string]Record
}

// Load reads the status file at path, or returns an empty Store if it
// does not exist yet.
func Load(path string) (*Store, error) {
	var raw map[string]Record
	if err := yamlio.LoadStatus(path, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		raw = map[string]Record{}
	}
	return &Store{path: path, records: raw}, nil
}

// Get returns the previously recorded status for scopeValue, if any.
func (s *Store) Get(scopeValue string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[scopeValue]
	return r, ok
}

// Set records scopeValue's outcome.
func (s *Store) Set(scopeValue string, r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[scopeValue] = r
}

// Save dumps the current records to disk, sorted by scope value so
// reruns produce a stable diff.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	doc := make(yaml.MapSlice, 0, len(keys))
	for _, k := range keys {
		doc = append(doc, yaml.MapItem{Key: k, Value: s.records[k]})
	}
	return yamlio.SaveStatus(s.path, doc)
}

// ScopeValues returns every scope value this Store holds a record for.
func (s *Store) ScopeValues() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := make([]string, 0, len(s.records))
	for k := range s.records {
		values = append(values, k)
	}
	return values
}

// FailedScopeValues returns the scope values whose last recorded
// outcome was not a success, sorted for deterministic logging.
func (s *Store) FailedScopeValues() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var failed []string
	for k, r := range s.records {
		if r.Status != Success {
			failed = append(failed, k)
		}
	}
	sort.Strings(failed)
	return failed
}

// StripTrailingSpace removes trailing whitespace from every line of s,
// since a literal-style YAML scalar cannot contain trailing spaces
// before a newline (executor.py's remove_space_before_new_line).
func StripTrailingSpace(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t\r")
	}
	return strings.Join(lines, "\n")
}

// Now is the execution_date format used in persisted records.
func Now() string {
	return time.Now().Format(time.RFC3339)
}
