package pipeline

import (
	"fmt"

	"github.com/rdebroiz/presto/internal/datamodel"
)

// RootName is the distinguished synthetic root node's name, per spec.md §3.
const RootName = "root"

// Errors, per spec.md §7.
var (
	ErrMalformedNode = fmt.Errorf("malformed node")
	ErrUnknownScope  = fmt.Errorf("unknown scope")
)

// Node is one unit of the pipeline DAG: a command template bound to a
// scope, executed once per scope value. Cmd and Parents are set at
// construction and never mutated afterward.
type Node struct {
	Name            string
	Description     string
	ScopeName       string
	Cmd             []string
	Parents         map[string]struct{}
	WorkersModifier float64
	// Argvs maps each of the scope's values to its pre-evaluated argv,
	// built at construction so broken command templates are caught
	// before execution (spec.md §4.3).
	Argvs map[string][]string
}

// NewRoot builds the synthetic root node.
func NewRoot() *Node {
	return &Node{
		Name:            RootName,
		Description:     RootName,
		Parents:         map[string]struct{}{},
		WorkersModifier: 1,
		Argvs:           map[string][]string{},
	}
}

// NewNode parses a node from a YAML document mapping, validating every
// required key and pre-evaluating the command template against every
// value of the bound scope (spec.md §4.3).
func NewNode(doc map[string]any, dm *datamodel.DataModel) (*Node, error) {
	name, ok := stringField(doc, "__NAME__")
	if !ok {
		return nil, fmt.Errorf("%w: missing __NAME__ key", ErrMalformedNode)
	}
	description, ok := stringField(doc, "__DESCRIPTION__")
	if !ok {
		return nil, fmt.Errorf("%w: node %q: missing __DESCRIPTION__ key", ErrMalformedNode, name)
	}
	scopeName, ok := stringField(doc, "__SCOPE__")
	if !ok {
		return nil, fmt.Errorf("%w: node %q: missing __SCOPE__ key", ErrMalformedNode, name)
	}
	sc, ok := dm.Scopes[scopeName]
	if !ok {
		return nil, fmt.Errorf("%w: node %q: scope %q is not declared", ErrUnknownScope, name, scopeName)
	}
	cmd, err := stringSliceField(doc, "__CMD__")
	if err != nil {
		return nil, fmt.Errorf("%w: node %q: __CMD__: %w", ErrMalformedNode, name, err)
	}
	if cmd == nil {
		return nil, fmt.Errorf("%w: node %q: missing __CMD__ key", ErrMalformedNode, name)
	}

	parents := map[string]struct{}{RootName: {}}
	if raw, present := doc["__DEPEND_ON__"]; present {
		depends, err := toStringSlice(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: node %q: __DEPEND_ON__: %w", ErrMalformedNode, name, err)
		}
		if len(depends) > 0 {
			parents = map[string]struct{}{}
			for _, p := range depends {
				parents[p] = struct{}{}
			}
		}
	}

	modifier := 1.0
	if raw, present := doc["__WORKERS_MODIFIER__"]; present {
		modifier, err = toFloat(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: node %q: __WORKERS_MODIFIER__ must be a number: %w", ErrMalformedNode, name, err)
		}
		if modifier <= 0 {
			return nil, fmt.Errorf("%w: node %q: __WORKERS_MODIFIER__ must be positive", ErrMalformedNode, name)
		}
	}

	node := &Node{
		Name:            name,
		Description:     description,
		ScopeName:       scopeName,
		Cmd:             cmd,
		Parents:         parents,
		WorkersModifier: modifier,
		Argvs:           map[string][]string{},
	}

	for _, v := range sc.Values {
		argv := make([]string, 0, len(cmd))
		for _, arg := range cmd {
			resolved, err := dm.NewEvaluator(v).Evaluate(arg)
			if err != nil {
				return nil, fmt.Errorf("error in node %q: %w", name, err)
			}
			argv = append(argv, resolved)
		}
		node.Argvs[v] = argv
	}

	return node, nil
}

func stringField(doc map[string]any, key string) (string, bool) {
	v, ok := doc[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func stringSliceField(doc map[string]any, key string) ([]string, error) {
	raw, ok := doc[key]
	if !ok {
		return nil, nil
	}
	return toStringSlice(raw)
}

func toStringSlice(raw any) ([]string, error) {
	if raw == nil {
		return []string{}, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list, got %T", raw)
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string element, got %T", v)
		}
		out = append(out, s)
	}
	return out, nil
}

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", raw)
	}
}
