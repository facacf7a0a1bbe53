// Package evaluator resolves static (${name}) and dynamic (?{name},
// ?{name->scope}) references against a symbol table and a filesystem-
// derived file index, per spec.md §4.1.
package evaluator

import (
	"fmt"
	"regexp"
	"sort"
)

var (
	staticRefRE  = regexp.MustCompile(`\$\{(.*?)\}`)
	dynamicRefRE = regexp.MustCompile(`\?\{(.*?)\}`)
	redirectRE   = regexp.MustCompile(`^(.*?)->(.*)$`)
)

// ScopeLookup resolves a scope by name to its (already evaluated) regular
// expression. The evaluator package does not depend on the scope or
// datamodel packages directly (per spec.md §9's design note against
// global bidirectional references); callers inject this as a closure.
type ScopeLookup func(name string) (expression string, ok bool)

// Symbols maps identifiers to literal strings or further template
// expressions, per spec.md §3's SymbolTable.
type Symbols map[string]string

// Error kinds, per spec.md §4.1/§7.
var (
	ErrUnknownSymbol  = fmt.Errorf("unknown symbol")
	ErrAmbiguousMatch = fmt.Errorf("ambiguous match")
	ErrBadRegex       = fmt.Errorf("bad regular expression")
)

// Evaluator resolves references within a single string. A fresh Evaluator
// carries the current scope value for one evaluation and is never shared
// across goroutines (spec.md §5: "Evaluator instances are created per
// task... and are not shared across threads").
type Evaluator struct {
	symbols       Symbols
	scopes        ScopeLookup
	files         []string
	curScopeValue string
}

// New builds an Evaluator. curScopeValue is the scope value in effect for
// dynamic-reference resolution; pass "" at the top level.
func New(symbols Symbols, scopes ScopeLookup, files []string, curScopeValue string) *Evaluator {
	return &Evaluator{
		symbols:       symbols,
		scopes:        scopes,
		files:         files,
		curScopeValue: curScopeValue,
	}
}

// Evaluate resolves every ${...} and ?{...} reference in s, transitively,
// until none remain.
func (e *Evaluator) Evaluate(s string) (string, error) {
	for {
		dollMatch := staticRefRE.FindStringSubmatchIndex(s)
		questMatch := dynamicRefRE.FindStringSubmatchIndex(s)
		if dollMatch == nil && questMatch == nil {
			return s, nil
		}
		if dollMatch != nil {
			name := s[dollMatch[2]:dollMatch[3]]
			resolved, err := e.evaluateStatic(name)
			if err != nil {
				return "", err
			}
			s = s[:dollMatch[0]] + resolved + s[dollMatch[1]:]
			continue
		}
		if questMatch != nil {
			name := s[questMatch[2]:questMatch[3]]
			resolved, err := e.evaluateDynamic(name)
			if err != nil {
				return "", err
			}
			s = s[:questMatch[0]] + resolved + s[questMatch[1]:]
			continue
		}
	}
}

func (e *Evaluator) evaluateStatic(name string) (string, error) {
	v, ok := e.symbols[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSymbol, name)
	}
	return v, nil
}

func (e *Evaluator) evaluateDynamic(toEvaluate string) (string, error) {
	scopeValue := e.curScopeValue
	if m := redirectRE.FindStringSubmatch(toEvaluate); m != nil {
		toEvaluate = m[1]
		scopeName := m[2]
		scopeExpr, ok := e.scopes(scopeName)
		if !ok {
			return "", fmt.Errorf("%w: scope %q", ErrUnknownSymbol, scopeName)
		}
		evaluated, err := New(e.symbols, e.scopes, e.files, e.curScopeValue).Evaluate(scopeExpr)
		if err != nil {
			return "", err
		}
		// re.match semantics: anchor at the start of curScopeValue.
		re, err := regexp.Compile(`\A(?:` + evaluated + `)`)
		if err != nil {
			return "", fmt.Errorf("%w: %q: %w", ErrBadRegex, evaluated, err)
		}
		loc := re.FindStringIndex(e.curScopeValue)
		if loc == nil {
			return "", fmt.Errorf("%w: scope %q does not match %q", ErrAmbiguousMatch, scopeName, e.curScopeValue)
		}
		scopeValue = e.curScopeValue[loc[0]:loc[1]]
	}

	filterRE, err := regexp.Compile(scopeValue)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrBadRegex, scopeValue, err)
	}
	var candidates []string
	for _, f := range e.files {
		if filterRE.MatchString(f) {
			candidates = append(candidates, f)
		}
	}

	symbolValue, err := e.evaluateStatic(toEvaluate)
	if err != nil {
		return "", err
	}
	reg, err := New(e.symbols, e.scopes, e.files, scopeValue).Evaluate(symbolValue)
	if err != nil {
		return "", err
	}
	re, err := regexp.Compile(reg)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrBadRegex, reg, err)
	}

	matches := make(map[string]struct{})
	for _, f := range candidates {
		if loc := re.FindStringIndex(f); loc != nil {
			matches[f[loc[0]:loc[1]]] = struct{}{}
		}
	}

	if len(matches) != 1 {
		keys := make([]string, 0, len(matches))
		for k := range matches {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return "", fmt.Errorf("%w: evaluating %q within scope %q, matches: %v",
			ErrAmbiguousMatch, toEvaluate, scopeValue, keys)
	}
	for k := range matches {
		return k, nil
	}
	panic("unreachable")
}
