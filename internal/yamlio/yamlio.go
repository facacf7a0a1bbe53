// Package yamlio wraps github.com/goccy/go-yaml for the two document
// shapes presto reads and writes: the multi-document pipeline description
// (data model + node fragments) and the single-document per-node status
// map. All access goes through a package-level mutex so concurrent writers
// from different executor goroutines never interleave, mirroring the
// teacher's pattern of serializing shared-resource I/O behind one lock.
package yamlio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-yaml"
)

var ioMu sync.Mutex

// LoadAll parses every YAML document in filename into a slice of generic
// maps, preserving document order.
func LoadAll(filename string) ([]map[string]any, error) {
	ioMu.Lock()
	defer ioMu.Unlock()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("yamlio: unable to open %s: %w", filename, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	var docs []map[string]any
	for {
		var doc map[string]any
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("yamlio: error parsing %s: %w", filename, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// LoadStatus reads a single status document (a mapping keyed by scope
// value) into dst. A missing file is not an error: dst is left as its
// zero value, matching spec.md §4.6's "file-absent is empty prior".
func LoadStatus(filename string, dst any) error {
	ioMu.Lock()
	defer ioMu.Unlock()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("yamlio: unable to open %s: %w", filename, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("yamlio: error parsing %s: %w", filename, err)
	}
	return nil
}

// SaveStatus marshals src (the status map, or any value) to filename,
// using literal block style for multiline strings so captured process
// output stays human-readable, and writes via write-to-temp-then-rename
// so a concurrent reader or a killed process never observes a partially
// written file (spec.md §7).
func SaveStatus(filename string, src any) error {
	ioMu.Lock()
	defer ioMu.Unlock()

	out, err := yaml.MarshalWithOptions(src, yaml.UseLiteralStyleIfMultiline(true))
	if err != nil {
		return fmt.Errorf("yamlio: unable to dump %s: %w", filename, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(filename), ".tmp-*")
	if err != nil {
		return fmt.Errorf("yamlio: unable to create temp file for %s: %w", filename, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(out); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("yamlio: unable to write %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("yamlio: unable to close %s: %w", filename, err)
	}
	if err := os.Rename(tmpName, filename); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("yamlio: unable to rename into %s: %w", filename, err)
	}
	return nil
}
