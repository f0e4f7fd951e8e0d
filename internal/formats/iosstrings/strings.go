// Package iosstrings implements the iOS/macOS .strings format handler
// (spec.md §4.1 ".strings"), a flat `"key" = "value";` format with `//`
// line comments. There is no teacher precedent for this exact syntax, so
// the line-preserving model is adapted directly from propfmt's propFile
// (same flat-file, in-place-update-or-append shape) rather than a new
// design from scratch.
package iosstrings

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/algebras-go/algebras/internal/registry"
)

type lineKind int

const (
	lineOther lineKind = iota
	lineEntry
)

type strLine struct {
	kind  lineKind
	raw   string
	key   string
	value string
}

type strFile struct {
	lines []strLine
	index map[string]int
}

var entryRe = regexp.MustCompile(`^"((?:[^"\\]|\\.)*)"\s*=\s*"((?:[^"\\]|\\.)*)"\s*;\s*$`)

func parse(data []byte) *strFile {
	f := &strFile{index: make(map[string]int)}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	rawLines := strings.Split(text, "\n")
	if len(rawLines) > 0 && rawLines[len(rawLines)-1] == "" {
		rawLines = rawLines[:len(rawLines)-1]
	}
	for _, raw := range rawLines {
		if m := entryRe.FindStringSubmatch(strings.TrimSpace(raw)); m != nil {
			key := unescape(m[1])
			value := unescape(m[2])
			if idx, exists := f.index[key]; exists {
				f.lines[idx].value = value
				continue
			}
			idx := len(f.lines)
			f.lines = append(f.lines, strLine{kind: lineEntry, key: key, value: value})
			f.index[key] = idx
			continue
		}
		f.lines = append(f.lines, strLine{kind: lineOther, raw: raw})
	}
	return f
}

func unescape(s string) string {
	return strings.NewReplacer(`\\`, `\`, `\"`, `"`, `\n`, "\n").Replace(s)
}

func escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}

func marshal(f *strFile) []byte {
	var buf bytes.Buffer
	for _, ln := range f.lines {
		switch ln.kind {
		case lineEntry:
			fmt.Fprintf(&buf, "\"%s\" = \"%s\";\n", escape(ln.key), escape(ln.value))
		default:
			buf.WriteString(ln.raw)
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes()
}

func toResourceMap(f *strFile) *registry.ResourceMap {
	rm := registry.NewResourceMap()
	for _, ln := range f.lines {
		if ln.kind == lineEntry {
			rm.Root.SetLeaf(ln.key, ln.value)
		}
	}
	return rm
}

// Handler implements registry.Format for .strings files.
type Handler struct{}

func (Handler) Name() string { return "ios-strings" }

func (Handler) Read(path string) (*registry.ResourceMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return toResourceMap(parse(data)), nil
}

func (Handler) WriteFull(path string, m *registry.ResourceMap) error {
	f := &strFile{index: make(map[string]int)}
	for _, k := range m.Root.Keys() {
		n := m.Root.Get(k)
		if !n.IsLeaf {
			continue
		}
		idx := len(f.lines)
		f.lines = append(f.lines, strLine{kind: lineEntry, key: k, value: n.Value})
		f.index[k] = idx
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	return os.WriteFile(path, marshal(f), 0644)
}

func (Handler) InPlaceCapable() bool { return true }

func (Handler) WriteInPlace(path string, original, merged *registry.ResourceMap, keysToUpdate registry.KeySet) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	f := parse(data)
	for _, k := range keysToUpdate.SortedSlice() {
		v, ok := merged.GetPath(k)
		if !ok {
			continue
		}
		if idx, exists := f.index[k]; exists {
			f.lines[idx].value = v
			continue
		}
		idx := len(f.lines)
		f.lines = append(f.lines, strLine{kind: lineEntry, key: k, value: v})
		f.index[k] = idx
	}
	return os.WriteFile(path, marshal(f), 0644)
}
