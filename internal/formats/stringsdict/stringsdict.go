// Package stringsdict implements the iOS .stringsdict format handler
// (spec.md §4.1 "iOS .stringsdict"): a property list of nested
// pluralization dicts. This is a "structured format" (spec.md §3, §9):
// the Registry extracts a flat projection of translatable leaves (the
// plural-quantity strings: zero/one/two/few/many/other), translates, then
// re-injects into the preserved original plist tree rather than
// regenerating the whole document from the flat map. There is no
// in-place writer (spec.md §4.5 fallback list), so every write is
// write_full, driven off the Opaque original tree captured at Read time.
package stringsdict

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"

	"github.com/algebras-go/algebras/internal/registry"
)

var quantityKeys = map[string]bool{
	"zero": true, "one": true, "two": true, "few": true, "many": true, "other": true,
}

// plistNode is a generic plist element tree: either a <dict> (ordered
// key/value pairs), a <string> (leaf text), or a passthrough node for any
// other plist value type (<integer>, <true/>, <array>, ...), kept verbatim.
type plistNode struct {
	tag      string // "dict", "string", or the verbatim tag for anything else
	text     string
	keys     []string // dict: ordered key names
	children []*plistNode
	raw      string // non-dict, non-string: the raw inner XML to replay verbatim
}

func (Handler) Name() string { return "stringsdict" }

type Handler struct{}

func (Handler) Read(path string) (*registry.ResourceMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	var root *plistNode
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "dict" {
			root, err = parseDict(dec)
			if err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
			break
		}
	}
	if root == nil {
		return nil, fmt.Errorf("stringsdict: no top-level <dict> in %s", path)
	}

	rm := registry.NewResourceMap()
	rm.Root.Set("\x00tree", &registry.Node{Opaque: root})
	collectLeaves(root, "", rm)
	return rm, nil
}

// parseDict reads alternating <key>/<value> pairs up to (and consuming)
// </dict>, assuming the opening <dict> start tag was already consumed.
func parseDict(dec *xml.Decoder) (*plistNode, error) {
	n := &plistNode{tag: "dict"}
	var pendingKey string
	haveKey := false
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "key":
				var key string
				if err := dec.DecodeElement(&key, &t); err != nil {
					return nil, err
				}
				pendingKey = key
				haveKey = true
			case "dict":
				child, err := parseDict(dec)
				if err != nil {
					return nil, err
				}
				appendChild(n, pendingKey, haveKey, child)
				haveKey = false
			case "string":
				var text string
				if err := dec.DecodeElement(&text, &t); err != nil {
					return nil, err
				}
				appendChild(n, pendingKey, haveKey, &plistNode{tag: "string", text: text})
				haveKey = false
			default:
				raw, err := captureRaw(dec, t)
				if err != nil {
					return nil, err
				}
				appendChild(n, pendingKey, haveKey, &plistNode{tag: t.Name.Local, raw: raw})
				haveKey = false
			}
		case xml.EndElement:
			if t.Name.Local == "dict" {
				return n, nil
			}
		}
	}
}

func appendChild(n *plistNode, key string, haveKey bool, child *plistNode) {
	if haveKey {
		n.keys = append(n.keys, key)
	} else {
		n.keys = append(n.keys, "")
	}
	n.children = append(n.children, child)
}

// captureRaw re-encodes an arbitrary element (and its subtree) verbatim, for
// plist value types this package doesn't need to understand (array, true,
// false, integer, real, date, data).
func captureRaw(dec *xml.Decoder, start xml.StartElement) (string, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	depth := 1
	if err := enc.EncodeToken(start); err != nil {
		return "", err
	}
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if err := enc.EncodeToken(t); err != nil {
				return "", err
			}
		case xml.EndElement:
			depth--
			if err := enc.EncodeToken(t); err != nil {
				return "", err
			}
		default:
			if err := enc.EncodeToken(tok); err != nil {
				return "", err
			}
		}
	}
	enc.Flush()
	return buf.String(), nil
}

// collectLeaves records a flat leaf for every <string> whose key is a
// plural-quantity name (spec.md §4.1), dotted under its path.
func collectLeaves(n *plistNode, prefix string, rm *registry.ResourceMap) {
	if n.tag != "dict" {
		return
	}
	for i, child := range n.children {
		key := n.keys[i]
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		switch child.tag {
		case "dict":
			collectLeaves(child, path, rm)
		case "string":
			if quantityKeys[key] {
				rm.SetPath(path, child.text)
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Writing (always full; driven off the Opaque original tree)
// ---------------------------------------------------------------------------

func (Handler) InPlaceCapable() bool { return false }

func (Handler) WriteInPlace(path string, original, merged *registry.ResourceMap, keysToUpdate registry.KeySet) error {
	return fmt.Errorf("stringsdict: in-place writing not supported, use WriteFull")
}

func (h Handler) WriteFull(path string, m *registry.ResourceMap) error {
	root := treeFrom(m)
	if root == nil {
		root = &plistNode{tag: "dict"}
	}
	applyLeaves(root, "", m)

	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	buf.WriteString(`<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">` + "\n")
	buf.WriteString(`<plist version="1.0">` + "\n")
	writeDict(&buf, root, 0)
	buf.WriteString("\n</plist>\n")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

func treeFrom(m *registry.ResourceMap) *plistNode {
	if n := m.Root.Get("\x00tree"); n != nil {
		if tree, ok := n.Opaque.(*plistNode); ok {
			return tree
		}
	}
	return nil
}

func applyLeaves(n *plistNode, prefix string, m *registry.ResourceMap) {
	if n.tag != "dict" {
		return
	}
	for i, child := range n.children {
		key := n.keys[i]
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		switch child.tag {
		case "dict":
			applyLeaves(child, path, m)
		case "string":
			if quantityKeys[key] {
				if v, ok := m.GetPath(path); ok {
					child.text = v
				}
			}
		}
	}
}

func writeDict(buf *bytes.Buffer, n *plistNode, depth int) {
	pad := indentOf(depth)
	fmt.Fprintf(buf, "%s<dict>", pad)
	for i, child := range n.children {
		key := n.keys[i]
		fmt.Fprintf(buf, "\n%s  <key>%s</key>", pad, xmlEscapeText(key))
		switch child.tag {
		case "dict":
			buf.WriteByte('\n')
			writeDict(buf, child, depth+1)
		case "string":
			fmt.Fprintf(buf, "\n%s  <string>%s</string>", pad, xmlEscapeText(child.text))
		default:
			fmt.Fprintf(buf, "\n%s  %s", pad, child.raw)
		}
	}
	fmt.Fprintf(buf, "\n%s</dict>", pad)
}

func indentOf(depth int) string {
	out := make([]byte, depth)
	for i := range out {
		out[i] = '\t'
	}
	return string(out)
}

func xmlEscapeText(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
