// Package labels loads and queries the class index to label table.
//
// The file format is plain text, one record per line:
//
//	<label>,<index>
//
// Blank lines are skipped. The last comma separates the index, so labels may
// themselves contain commas. When an index repeats, the later line wins.
package labels

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Unknown is returned for class indices that have no label.
const Unknown = "Unknown"

// ErrMalformedLine is returned when a record cannot be parsed.
var ErrMalformedLine = errors.New("malformed label line")

// sparseFactor controls when the table falls back to a map: if the highest
// index exceeds sparseFactor times the number of labels (plus slack), a
// dense slice would be mostly empty.
const (
	sparseFactor = 4
	sparseSlack  = 64
)

// Entry is one label record.
type Entry struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}

// Table is an immutable class index to label mapping. Lookups are O(1).
type Table struct {
	dense  []string
	has    []bool
	sparse map[int]string
	count  int
}

// New builds a Table from entries. Later entries override earlier ones with
// the same index. Negative indices are rejected.
func New(entries []Entry) (*Table, error) {
	merged := make(map[int]string, len(entries))
	maxIndex := -1
	for _, e := range entries {
		if e.Index < 0 {
			return nil, fmt.Errorf("negative index %d for %q", e.Index, e.Label)
		}
		merged[e.Index] = e.Label
		if e.Index > maxIndex {
			maxIndex = e.Index
		}
	}

	t := &Table{count: len(merged)}
	if maxIndex >= sparseFactor*len(merged)+sparseSlack {
		t.sparse = merged
		return t, nil
	}

	t.dense = make([]string, maxIndex+1)
	t.has = make([]bool, maxIndex+1)
	for idx, label := range merged {
		t.dense[idx] = label
		t.has[idx] = true
	}
	return t, nil
}

// Parse reads records from r.
func Parse(r io.Reader) (*Table, error) {
	entries, err := ParseEntries(r)
	if err != nil {
		return nil, err
	}
	return New(entries)
}

// ParseEntries reads records from r without building a table, keeping
// file order (duplicates included).
func ParseEntries(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		comma := strings.LastIndex(line, ",")
		if comma <= 0 {
			return nil, fmt.Errorf("line %d: %w: %q", lineNo, ErrMalformedLine, line)
		}

		label := strings.TrimSpace(line[:comma])
		idx, err := strconv.Atoi(strings.TrimSpace(line[comma+1:]))
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("line %d: %w: bad index in %q", lineNo, ErrMalformedLine, line)
		}

		entries = append(entries, Entry{Index: idx, Label: label})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	return entries, nil
}

// Load reads the label file at path.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open label file: %w", err)
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Lookup returns the label for idx, or Unknown when idx is unmapped.
func (t *Table) Lookup(idx int) string {
	if label, ok := t.Get(idx); ok {
		return label
	}
	return Unknown
}

// Get returns the label for idx and whether it is mapped.
func (t *Table) Get(idx int) (string, bool) {
	if t == nil || idx < 0 {
		return "", false
	}
	if t.sparse != nil {
		label, ok := t.sparse[idx]
		return label, ok
	}
	if idx >= len(t.dense) || !t.has[idx] {
		return "", false
	}
	return t.dense[idx], true
}

// Len returns the number of mapped indices.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return t.count
}

// Entries returns all mappings ordered by index.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	out := make([]Entry, 0, t.count)
	if t.sparse != nil {
		for idx, label := range t.sparse {
			out = append(out, Entry{Index: idx, Label: label})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
		return out
	}
	for idx, ok := range t.has {
		if ok {
			out = append(out, Entry{Index: idx, Label: t.dense[idx]})
		}
	}
	return out
}
