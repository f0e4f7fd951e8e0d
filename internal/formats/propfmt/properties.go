// Package propfmt implements the Java .properties format handler
// (spec.md §4.1 "Java .properties"), adapted from the teacher's
// propfile.File line-preserving model. Non-ASCII characters are decoded
// from \uXXXX escapes on read and re-encoded on write, per spec.
package propfmt

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/algebras-go/algebras/internal/registry"
)

type lineKind int

const (
	lineBlank lineKind = iota
	lineComment
	lineEntry
)

type propLine struct {
	kind  lineKind
	raw   string
	key   string
	value string
}

type propFile struct {
	lines []propLine
	index map[string]int
}

func parse(data []byte) *propFile {
	f := &propFile{index: make(map[string]int)}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	rawLines := strings.Split(text, "\n")
	if len(rawLines) > 0 && rawLines[len(rawLines)-1] == "" {
		rawLines = rawLines[:len(rawLines)-1]
	}

	for _, raw := range rawLines {
		trimmed := strings.TrimSpace(raw)
		switch {
		case trimmed == "":
			f.lines = append(f.lines, propLine{kind: lineBlank, raw: raw})
		case strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "!"):
			f.lines = append(f.lines, propLine{kind: lineComment, raw: raw})
		default:
			k, v := splitKeyValue(trimmed)
			if k == "" {
				f.lines = append(f.lines, propLine{kind: lineComment, raw: raw})
				continue
			}
			v = decodeUnicodeEscapes(v)
			if idx, exists := f.index[k]; exists {
				f.lines[idx].value = v
				continue
			}
			idx := len(f.lines)
			f.lines = append(f.lines, propLine{kind: lineEntry, key: k, value: v})
			f.index[k] = idx
		}
	}
	return f
}

func splitKeyValue(s string) (key, value string) {
	for i, ch := range s {
		if ch == '=' || ch == ':' {
			return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])
		}
	}
	return strings.TrimSpace(s), ""
}

func decodeUnicodeEscapes(s string) string {
	var buf strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '\\' && i+5 < len(runes) && runes[i+1] == 'u' {
			hex := string(runes[i+2 : i+6])
			if n, err := strconv.ParseUint(hex, 16, 32); err == nil {
				buf.WriteRune(rune(n))
				i += 5
				continue
			}
		}
		buf.WriteRune(runes[i])
	}
	return buf.String()
}

func encodeUnicodeEscapes(s string) string {
	var buf strings.Builder
	for _, r := range s {
		if r < utf8.RuneSelf {
			buf.WriteRune(r)
			continue
		}
		fmt.Fprintf(&buf, "\\u%04x", r)
	}
	return buf.String()
}

func marshal(f *propFile) []byte {
	var buf bytes.Buffer
	for _, ln := range f.lines {
		switch ln.kind {
		case lineBlank:
			buf.WriteByte('\n')
		case lineComment:
			buf.WriteString(ln.raw)
			buf.WriteByte('\n')
		case lineEntry:
			buf.WriteString(ln.key)
			buf.WriteByte('=')
			buf.WriteString(encodeUnicodeEscapes(ln.value))
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes()
}

func toResourceMap(f *propFile) *registry.ResourceMap {
	rm := registry.NewResourceMap()
	for _, ln := range f.lines {
		if ln.kind == lineEntry {
			rm.Root.SetLeaf(ln.key, ln.value)
		}
	}
	return rm
}

// Handler implements registry.Format for Java .properties files.
type Handler struct{}

func (Handler) Name() string { return "properties" }

func (Handler) Read(path string) (*registry.ResourceMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return toResourceMap(parse(data)), nil
}

func (Handler) WriteFull(path string, m *registry.ResourceMap) error {
	f := &propFile{index: make(map[string]int)}
	for _, k := range m.Root.Keys() {
		n := m.Root.Get(k)
		if !n.IsLeaf {
			continue
		}
		idx := len(f.lines)
		f.lines = append(f.lines, propLine{kind: lineEntry, key: k, value: n.Value})
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
		f.lines = append(f.lines, propLine{kind: lineEntry, key: k, value: v})
		f.index[k] = idx
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	return os.WriteFile(path, marshal(f), 0644)
}
