// Package csvfmt implements the CSV/TSV translation format handler (spec.md
// §4.1 "CSV/TSV"): first column is the key, subsequent columns are locale
// codes. It is a "structured format" in the spec's sense (§3, §9): the
// original row/column layout plus per-row Opaque data lets WriteInPlace
// update a single locale column while leaving every other column's bytes
// unchanged (invariant P9).
package csvfmt

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/algebras-go/algebras/internal/logging"
	"github.com/algebras-go/algebras/internal/registry"
)

// Handler implements registry.Format for CSV/TSV resource files.
// Locale names the target locale's column (exact or fuzzy match, spec.md
// §4.1); Delimiter is ',' for CSV and '\t' for TSV.
type Handler struct {
	Locale    string
	Delimiter rune
}

func (Handler) Name() string { return "csv" }

type rowOpaque struct {
	key string
	row []string // full original row, by original column index
}

// matchColumn finds the column index for locale, trying an exact header
// match first then the fuzzy "Name (code)" suffix form (spec.md §4.1).
func matchColumn(headers []string, locale string) int {
	for i, h := range headers {
		if h == locale {
			return i
		}
	}
	suffix := regexp.MustCompile(`\(([a-zA-Z0-9_-]+)\)\s*$`)
	for i, h := range headers {
		if m := suffix.FindStringSubmatch(strings.TrimSpace(h)); m != nil && m[1] == locale {
			return i
		}
	}
	return -1
}

func (h Handler) delim() rune {
	if h.Delimiter == 0 {
		return ','
	}
	return h.Delimiter
}

func (h Handler) Read(path string) (*registry.ResourceMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = h.delim()
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	rm := registry.NewResourceMap()
	if len(records) == 0 {
		return rm, nil
	}
	headers := records[0]
	col := matchColumn(headers, h.Locale)

	seen := map[string]bool{}
	for _, row := range records[1:] {
		if len(row) == 0 {
			continue
		}
		key := row[0]
		if seen[key] {
			logging.Warning("%s: duplicate key %q, last occurrence wins", path, key)
		}
		seen[key] = true
		value := ""
		if col >= 0 && col < len(row) {
			value = row[col]
		}
		node := &registry.Node{Value: value, IsLeaf: true, Opaque: rowOpaque{key: key, row: append([]string(nil), row...)}}
		rm.Root.Set(key, node)
	}
	if rm.Root.Len() > 0 {
		// Stash headers on a sentinel so WriteInPlace/WriteFull can rebuild
		// the full table without re-deriving column layout from scratch.
		rm.Root.Set("\x00headers", &registry.Node{Opaque: headers})
	}
	return rm, nil
}

func (h Handler) headers(m *registry.ResourceMap) []string {
	if n := m.Root.Get("\x00headers"); n != nil {
		if hdrs, ok := n.Opaque.([]string); ok {
			return hdrs
		}
	}
	return []string{"key", h.Locale}
}

func (h Handler) WriteFull(path string, m *registry.ResourceMap) error {
	headers := h.headers(m)
	col := matchColumn(headers, h.Locale)
	if col < 0 {
		headers = append(append([]string(nil), headers...), h.Locale)
		col = len(headers) - 1
	}

	var buf strings.Builder
	w := csv.NewWriter(&buf)
	w.Comma = h.delim()
	_ = w.Write(headers)
	for _, k := range m.Root.Keys() {
		if k == "\x00headers" {
			continue
		}
		n := m.Root.Get(k)
		row := make([]string, len(headers))
		row[0] = k
		if op, ok := n.Opaque.(rowOpaque); ok {
			copy(row, op.row)
		}
		if col < len(row) {
			row[col] = n.Value
		}
		_ = w.Write(row)
	}
	w.Flush()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	return os.WriteFile(path, []byte(buf.String()), 0644)
}

func (Handler) InPlaceCapable() bool { return true }

// WriteInPlace updates (or adds) only the target locale's column, leaving
// every other column's bytes unchanged (P9), and appends rows for keys
// present in merged but absent from the file (spec.md §4.1: "append as new
// rows").
func (h Handler) WriteInPlace(path string, original, merged *registry.ResourceMap, keysToUpdate registry.KeySet) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	r := csv.NewReader(f)
	r.Comma = h.delim()
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	f.Close()
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(records) == 0 {
		return h.WriteFull(path, merged)
	}
	headers := records[0]
	col := matchColumn(headers, h.Locale)
	if col < 0 {
		headers = append(headers, h.Locale)
		col = len(headers) - 1
	}

	rowIndex := map[string]int{}
	rows := records[1:]
	for i, row := range rows {
		if len(row) > 0 {
			rowIndex[row[0]] = i // last occurrence wins (spec.md §4.1)
		}
	}

	for _, k := range keysToUpdate.SortedSlice() {
		v, ok := merged.GetPath(k)
		if !ok {
			continue
		}
		if idx, exists := rowIndex[k]; exists {
			row := rows[idx]
			for len(row) <= col {
				row = append(row, "")
			}
			row[col] = v
			rows[idx] = row
			continue
		}
		newRow := make([]string, len(headers))
		newRow[0] = k
		newRow[col] = v
		rows = append(rows, newRow)
		rowIndex[k] = len(rows) - 1
	}

	var buf strings.Builder
	w := csv.NewWriter(&buf)
	w.Comma = h.delim()
	_ = w.Write(headers)
	for _, row := range rows {
		for len(row) < len(headers) {
			row = append(row, "")
		}
		_ = w.Write(row)
	}
	w.Flush()
	return os.WriteFile(path, []byte(buf.String()), 0644)
}
