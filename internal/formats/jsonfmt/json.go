// Package jsonfmt implements the JSON translation format handler (spec.md
// §4.1 "JSON (.json)"), adapted from the teacher's i18next package's
// order-preserving json.Decoder token walk, generalized from a single flat
// object to arbitrarily nested objects.
package jsonfmt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/algebras-go/algebras/internal/registry"
)

// Handler implements registry.Format for JSON resource files. It has no
// options: output style is detected from the existing file, so a file with
// no newlines is written back minified (spec.md §4.1: "minified files stay
// minified").
type Handler struct{}

func (Handler) Name() string { return "json" }

// ---------------------------------------------------------------------------
// Reading
// ---------------------------------------------------------------------------

func (Handler) Read(path string) (*registry.ResourceMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	rm := registry.NewResourceMap()
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := decodeObject(dec, rm.Root); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return rm, nil
}

// decodeObject consumes a '{' ... '}' from dec, recording string leaves and
// recursing into nested objects, preserving key order in m.
func decodeObject(dec *json.Decoder, m *registry.Map) error {
	t, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := t.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected '{', got %v", t)
	}
	return decodeObjectBody(dec, m)
}

// decodeObjectBody reads key/value pairs up to (and consuming) the closing
// '}', assuming the opening '{' was already consumed by the caller.
func decodeObjectBody(dec *json.Decoder, m *registry.Map) error {
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := kt.(string)
		if !ok {
			return fmt.Errorf("expected string key, got %T", kt)
		}

		vt, err := dec.Token()
		if err != nil {
			return err
		}
		if delim, ok := vt.(json.Delim); ok {
			switch delim {
			case '{':
				child := registry.NewMap()
				if err := decodeObjectBody(dec, child); err != nil {
					return err
				}
				m.SetContainer(key, child)
			case '[':
				// Arrays aren't part of the translatable key surface
				// (spec.md §4.1 only defines nested objects), so skip them.
				if err := skipArray(dec); err != nil {
					return err
				}
			}
			continue
		}
		switch v := vt.(type) {
		case string:
			m.SetLeaf(key, v)
		case float64:
			m.SetLeaf(key, jsonNumberLiteral(v))
		case bool:
			m.SetLeaf(key, fmt.Sprintf("%t", v))
		case nil:
			m.SetLeaf(key, "")
		}
	}
	_, err := dec.Token() // consume closing '}'
	return err
}

func skipArray(dec *json.Decoder) error {
	depth := 1
	for depth > 0 {
		t, err := dec.Token()
		if err != nil {
			return err
		}
		if delim, ok := t.(json.Delim); ok {
			switch delim {
			case '[', '{':
				depth++
			case ']', '}':
				depth--
			}
		}
	}
	return nil
}

func jsonNumberLiteral(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

func (Handler) InPlaceCapable() bool { return true }

// detectStyle inspects the source file to decide whether WriteFull/
// WriteInPlace should emit pretty-printed (indented, trailing newline) or
// minified output (spec.md §4.1: "minified files stay minified").
type style struct {
	indent     string
	trailingNL bool
	minified   bool
}

func detectStyle(data []byte) style {
	text := string(data)
	if !strings.Contains(text, "\n") {
		return style{minified: true}
	}
	indent := "  "
	lines := strings.Split(text, "\n")
	for _, l := range lines[1:] {
		trimmed := strings.TrimLeft(l, " \t")
		if trimmed != l && trimmed != "" {
			indent = l[:len(l)-len(trimmed)]
			break
		}
	}
	return style{indent: indent, trailingNL: strings.HasSuffix(text, "\n")}
}

func (Handler) WriteFull(path string, m *registry.ResourceMap) error {
	var st style = style{indent: "  ", trailingNL: true}
	if existing, err := os.ReadFile(path); err == nil {
		st = detectStyle(existing)
	}
	var buf bytes.Buffer
	writeObject(&buf, m.Root, st, 0)
	if st.trailingNL || !st.minified {
		buf.WriteByte('\n')
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

func writeObject(buf *bytes.Buffer, m *registry.Map, st style, depth int) {
	if st.minified {
		buf.WriteByte('{')
		keys := m.Keys()
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeKeyValue(buf, k, m.Get(k), st, depth)
		}
		buf.WriteByte('}')
		return
	}
	pad := strings.Repeat(st.indent, depth+1)
	closePad := strings.Repeat(st.indent, depth)
	buf.WriteString("{\n")
	keys := m.Keys()
	for i, k := range keys {
		buf.WriteString(pad)
		writeKeyValue(buf, k, m.Get(k), st, depth+1)
		if i < len(keys)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString(closePad)
	buf.WriteByte('}')
}

func writeKeyValue(buf *bytes.Buffer, key string, n *registry.Node, st style, depth int) {
	kb, _ := json.Marshal(key)
	buf.Write(kb)
	if st.minified {
		buf.WriteByte(':')
	} else {
		buf.WriteString(": ")
	}
	if n.Children != nil {
		writeObject(buf, n.Children, st, depth)
		return
	}
	vb, _ := json.Marshal(n.Value)
	buf.Write(vb)
}

// WriteInPlace rebuilds the full JSON structure from merged, preserving the
// original file's indentation/minification style and inserting values for
// keysToUpdate; unreferenced keys retain their previous values since merged
// already carries the full pre-existing tree (spec.md §4.5: WriteInPlace
// receives the merged ResourceMap, not just the delta).
func (h Handler) WriteInPlace(path string, original, merged *registry.ResourceMap, keysToUpdate registry.KeySet) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	st := detectStyle(data)
	var buf bytes.Buffer
	writeObject(&buf, merged.Root, st, 0)
	if st.trailingNL || !st.minified {
		buf.WriteByte('\n')
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
