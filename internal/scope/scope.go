// Package scope implements the Scope value object: a named regular
// expression together with the finite, sorted set of substrings it matches
// against a file index.
package scope

import (
	"fmt"
	"regexp"
	"strings"
)

// reservedChars is the set of characters reserved by Go's regexp syntax
// that must be escaped for a matched substring to be usable as a literal
// pattern matching only itself.
const reservedChars = `()[]{}*+?|.^$\`

// EscapeReservedRegexChars backslash-escapes every character in s that is
// reserved by regular expression syntax, so that regexp.Compile(result)
// matches exactly the literal string s.
func EscapeReservedRegexChars(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 2)
	for _, r := range s {
		if strings.ContainsRune(reservedChars, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Scope is an immutable record of a name, the regular expression it was
// compiled from, and the sorted, distinct, regex-escaped substrings it
// matched against a file index.
type Scope struct {
	Name       string
	Expression string
	Values     []string
}

// New validates that every value is itself a match of expression before
// returning the Scope. It never fails in practice since values are derived
// from expression by construction, but the check documents the invariant
// from spec.md §3 and catches programmer error early.
func New(name, expression string, values []string) (*Scope, error) {
	re, err := regexp.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("scope %q: bad expression %q: %w", name, expression, err)
	}
	for _, v := range values {
		unescaped := unescapeForCheck(v)
		if !re.MatchString(unescaped) {
			return nil, fmt.Errorf("scope %q: value %q does not match expression %q", name, v, expression)
		}
	}
	return &Scope{Name: name, Expression: expression, Values: values}, nil
}

// unescapeForCheck reverses EscapeReservedRegexChars well enough to verify
// the invariant in New; it is not used on any other path.
func unescapeForCheck(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	escaped := false
	for _, r := range s {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Scope) String() string {
	return fmt.Sprintf("name: %s\nreg-exp: %s\nvalues:\n%v", s.Name, s.Expression, s.Values)
}
