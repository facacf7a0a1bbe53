// Package datamodel builds the DataModel described in spec.md §3/§4.2: the
// symbol table, the file index enumerated under __ROOT__, and the set of
// compiled Scopes.
package datamodel

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"dario.cat/mergo"

	"github.com/rdebroiz/presto/internal/evaluator"
	"github.com/rdebroiz/presto/internal/scope"
)

// Errors, per spec.md §7.
var (
	ErrRootNotFound         = fmt.Errorf("root directory not found")
	ErrUnknownScopeOverride = fmt.Errorf("unknown scope override")
	ErrMalformed            = fmt.Errorf("malformed data model")
)

const (
	keyRoot   = "__ROOT__"
	keyScopes = "__SCOPES__"
)

// DataModel holds the evaluation context for one pipeline run: the merged
// symbol table, the enumerated file index, and the compiled scopes.
// All fields are immutable after Build returns, per spec.md §3's
// lifecycle note.
type DataModel struct {
	Root    string
	Files   []string
	Scopes  map[string]*scope.Scope
	Symbols evaluator.Symbols
}

// Build constructs a DataModel from the first parsed YAML document and a
// set of CLI scope overrides. The file index holds every regular file
// under __ROOT__ as a path relative to that root.
func Build(doc map[string]any, overrides map[string]string) (*DataModel, error) {
	merged, err := mergeOverrides(doc, overrides)
	if err != nil {
		return nil, err
	}

	symbols := toSymbols(merged)

	rootTemplate, ok := stringValue(merged, keyRoot)
	if !ok {
		return nil, fmt.Errorf("%w: configuration file must have a %q attribute", ErrMalformed, keyRoot)
	}

	dm := &DataModel{Symbols: symbols, Scopes: map[string]*scope.Scope{}}

	root, err := dm.newEvaluator("").Evaluate(rootTemplate)
	if err != nil {
		return nil, fmt.Errorf("unable to evaluate %s: %w", keyRoot, err)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, root)
	}
	info, err := os.Stat(absRoot)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, absRoot)
	}
	dm.Root = absRoot

	files, err := walkFiles(absRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRootNotFound, absRoot, err)
	}
	dm.Files = files

	scopesRaw, ok := merged[keyScopes]
	if !ok {
		return nil, fmt.Errorf("%w: configuration file must have a %q attribute", ErrMalformed, keyScopes)
	}
	scopeTemplates, err := toStringMap(scopesRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q must be a mapping: %w", ErrMalformed, keyScopes, err)
	}

	for name := range overrides {
		if _, ok := scopeTemplates[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownScopeOverride, name)
		}
	}
	for name, expr := range overrides {
		scopeTemplates[name] = expr
	}

	if err := dm.buildScopes(scopeTemplates); err != nil {
		return nil, err
	}

	return dm, nil
}

// newEvaluator returns an Evaluator bound to this DataModel's symbol table
// and scope lookup, carrying curScopeValue. Scope lookups are late (the
// returned closure reads dm.Scopes at call time), so scopes compiled later
// in buildScopes are still visible, matching the original's incremental
// construction without needing a mutable global.
func (dm *DataModel) newEvaluator(curScopeValue string) *evaluator.Evaluator {
	lookup := func(name string) (string, bool) {
		s, ok := dm.Scopes[name]
		if !ok {
			return "", false
		}
		return s.Expression, true
	}
	return evaluator.New(dm.Symbols, lookup, dm.Files, curScopeValue)
}

// NewEvaluator exposes newEvaluator to other packages (pipeline, executor)
// that need to resolve node command templates against this data model.
func (dm *DataModel) NewEvaluator(curScopeValue string) *evaluator.Evaluator {
	return dm.newEvaluator(curScopeValue)
}

func (dm *DataModel) buildScopes(templates map[string]string) error {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		expression, err := dm.newEvaluator("").Evaluate(templates[name])
		if err != nil {
			return fmt.Errorf("error in %s definition for %s: %w", keyScopes, name, err)
		}
		re, err := regexp.Compile(".*?" + expression)
		if err != nil {
			return fmt.Errorf("bad regular expression for scope %s: %q: %w", name, expression, err)
		}
		values := make(map[string]struct{})
		for _, f := range dm.Files {
			if loc := re.FindStringIndex(f); loc != nil {
				values[scope.EscapeReservedRegexChars(f[loc[0]:loc[1]])] = struct{}{}
			}
		}
		sorted := make([]string, 0, len(values))
		for v := range values {
			sorted = append(sorted, v)
		}
		sort.Strings(sorted)

		sc, err := scope.New(name, expression, sorted)
		if err != nil {
			return err
		}
		dm.Scopes[name] = sc
	}
	return nil
}

func walkFiles(root string) ([]string, error) {
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func mergeOverrides(doc map[string]any, overrides map[string]string) (map[string]any, error) {
	merged := make(map[string]any, len(doc))
	for k, v := range doc {
		merged[k] = v
	}
	overlay := make(map[string]any, len(overrides))
	for k, v := range overrides {
		overlay[k] = v
	}
	if err := mergo.Merge(&merged, overlay, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("%w: unable to merge overrides: %w", ErrMalformed, err)
	}
	return merged, nil
}

func toSymbols(doc map[string]any) evaluator.Symbols {
	symbols := make(evaluator.Symbols, len(doc))
	for k, v := range doc {
		if s, ok := v.(string); ok {
			symbols[k] = s
		}
	}
	return symbols
}

func stringValue(doc map[string]any, key string) (string, bool) {
	v, ok := doc[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func toStringMap(v any) (map[string]string, error) {
	raw, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a mapping, got %T", v)
	}
	out := make(map[string]string, len(raw))
	for k, val := range raw {
		s, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("scope %q: expected a string expression, got %T", k, val)
		}
		out[k] = s
	}
	return out, nil
}
