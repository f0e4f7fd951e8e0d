// Package androidxml implements the Android strings.xml format handler
// (spec.md §4.1 "Android XML"), adapted from the teacher's android package.
//
// Two element kinds are supported, per spec: <string name="..."> (leaf) and
// <plurals name="..."><item quantity="..."> (flattened as "<name>.__plurals__.
// <quantity>"). WriteInPlace operates on the raw source text directly
// (regex-located element spans) rather than round-tripping through
// encoding/xml, so that every byte outside a touched span, including the
// root <resources> tag's original namespace declarations, survives
// unchanged (spec.md §4.1, invariant P7).
package androidxml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/algebras-go/algebras/internal/registry"
)

const pluralsKey = "__plurals__"

// Handler implements registry.Format for Android strings.xml files.
// NormalizeStrings mirrors api.normalize_strings (spec.md §6): when false,
// quotes and apostrophes are escaped; \n and \t are always escaped either way.
type Handler struct {
	NormalizeStrings bool
}

func (Handler) Name() string { return "android-xml" }

// ---------------------------------------------------------------------------
// Reading (full encoding/xml parse; used for Read/WriteFull, not in-place)
// ---------------------------------------------------------------------------

type xmlStringElem struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type xmlItemElem struct {
	Quantity string `xml:"quantity,attr"`
	Value    string `xml:",chardata"`
}

type xmlPluralsElem struct {
	Name  string        `xml:"name,attr"`
	Items []xmlItemElem `xml:"item"`
}

type xmlResourcesElem struct {
	XMLName xml.Name         `xml:"resources"`
	Strings []xmlStringElem  `xml:"string"`
	Plurals []xmlPluralsElem `xml:"plurals"`
}

// nbspTag marks, via Node.Opaque, that a leaf's original text used &#160;
// entities rather than literal spaces, tracked per key so WriteFull and
// WriteInPlace reproduce the style the source file used (spec.md §4.1:
// "preserve &#160; entities for keys that originally used them").
type nbspTag struct{ use bool }

func usesNbsp(n *registry.Node) bool {
	if n == nil || n.Opaque == nil {
		return false
	}
	t, ok := n.Opaque.(nbspTag)
	return ok && t.use
}

func (h Handler) Read(path string) (*registry.ResourceMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var res xmlResourcesElem
	if err := xml.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	text := string(data)
	strSpans := indexStringSpans(text)
	plSpans := indexPluralsSpans(text)

	rm := registry.NewResourceMap()
	for _, s := range res.Strings {
		leaf := &registry.Node{Value: unescapeApostrophe(strings.TrimSpace(s.Value)), IsLeaf: true}
		if span, ok := strSpans[s.Name]; ok && strings.Contains(text[span[0]:span[1]], "&#160;") {
			leaf.Opaque = nbspTag{use: true}
		}
		rm.Root.Set(s.Name, leaf)
	}
	for _, p := range res.Plurals {
		container := registry.NewMap()
		quant := registry.NewMap()
		blockNbsp := false
		if span, ok := plSpans[p.Name]; ok {
			blockNbsp = strings.Contains(text[span[0]:span[1]], "&#160;")
		}
		for _, it := range p.Items {
			leaf := &registry.Node{Value: unescapeApostrophe(strings.TrimSpace(it.Value)), IsLeaf: true}
			if blockNbsp {
				leaf.Opaque = nbspTag{use: true}
			}
			quant.Set(it.Quantity, leaf)
		}
		container.SetContainer(pluralsKey, quant)
		rm.Root.SetContainer(p.Name, container)
	}
	return rm, nil
}

func unescapeApostrophe(s string) string {
	return strings.ReplaceAll(s, `\'`, "'")
}

// ---------------------------------------------------------------------------
// Escaping (spec.md §4.1)
// ---------------------------------------------------------------------------

func (h Handler) escape(s string, useNbsp bool) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	if useNbsp {
		s = strings.ReplaceAll(s, " ", "&#160;")
	}
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\t", "\\t")
	if !h.NormalizeStrings {
		s = strings.ReplaceAll(s, "'", "\\'")
		s = strings.ReplaceAll(s, `"`, `\"`)
	}
	return s
}

// ---------------------------------------------------------------------------
// WriteFull
// ---------------------------------------------------------------------------

func (h Handler) WriteFull(path string, m *registry.ResourceMap) error {
	var buf bytes.Buffer
	buf.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n<resources>\n")
	for _, k := range m.Root.Keys() {
		n := m.Root.Get(k)
		if n.IsLeaf {
			fmt.Fprintf(&buf, "    <string name=\"%s\">%s</string>\n", k, h.escape(n.Value, usesNbsp(n)))
			continue
		}
		if n.Children == nil {
			continue
		}
		pl := n.Children.Get(pluralsKey)
		if pl == nil || pl.Children == nil {
			continue
		}
		fmt.Fprintf(&buf, "    <plurals name=\"%s\">\n", k)
		for _, q := range pl.Children.Keys() {
			qn := pl.Children.Get(q)
			fmt.Fprintf(&buf, "        <item quantity=\"%s\">%s</item>\n", q, h.escape(qn.Value, usesNbsp(qn)))
		}
		buf.WriteString("    </plurals>\n")
	}
	buf.WriteString("</resources>\n")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

func (Handler) InPlaceCapable() bool { return true }

// ---------------------------------------------------------------------------
// WriteInPlace: textual splicing of the original file (P7)
// ---------------------------------------------------------------------------

var stringElemRe = regexp.MustCompile(`(?s)<string\s+name="([^"]+)"[^>]*>(.*?)</string>`)
var pluralsBlockRe = regexp.MustCompile(`(?s)<plurals\s+name="([^"]+)"[^>]*>(.*?)</plurals>`)
var itemElemRe = regexp.MustCompile(`(?s)<item\s+quantity="([^"]+)"[^>]*>(.*?)</item>`)
var resourcesCloseRe = regexp.MustCompile(`</resources>`)

func indexStringSpans(text string) map[string][]int {
	out := map[string][]int{}
	for _, m := range stringElemRe.FindAllStringSubmatchIndex(text, -1) {
		out[text[m[2]:m[3]]] = m
	}
	return out
}

func indexPluralsSpans(text string) map[string][]int {
	out := map[string][]int{}
	for _, m := range pluralsBlockRe.FindAllStringSubmatchIndex(text, -1) {
		out[text[m[2]:m[3]]] = m
	}
	return out
}

func (h Handler) WriteInPlace(path string, original, merged *registry.ResourceMap, keysToUpdate registry.KeySet) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	text := string(data)

	stringSpans := indexStringSpans(text)
	pluralsSpans := indexPluralsSpans(text)

	type edit struct {
		start, end int
		repl       string
	}
	var edits []edit
	var newKeys []string

	for _, k := range keysToUpdate.SortedSlice() {
		// Plural key form: "<name>.__plurals__.<quantity>"
		if idx := strings.Index(k, "."+pluralsKey+"."); idx >= 0 {
			name := k[:idx]
			quantity := k[idx+len(pluralsKey)+2:]
			v, ok := merged.GetPath(k)
			if !ok {
				continue
			}
			span, exists := pluralsSpans[name]
			if !exists {
				newKeys = append(newKeys, k)
				continue
			}
			block := text[span[0]:span[1]]
			nbsp := strings.Contains(block, "&#160;")
			newBlock, changed := replaceItem(block, quantity, h.escape(v, nbsp))
			if changed {
				edits = append(edits, edit{span[0], span[1], newBlock})
			} else {
				newKeys = append(newKeys, k)
			}
			continue
		}

		v, ok := merged.GetPath(k)
		if !ok {
			continue
		}
		span, exists := stringSpans[k]
		if !exists {
			newKeys = append(newKeys, k)
			continue
		}
		full := text[span[0]:span[1]]
		nbsp := strings.Contains(full, "&#160;")
		newFull := stringElemRe.ReplaceAllString(full, fmt.Sprintf(`<string name="%s">%s</string>`, k, h.escape(v, nbsp)))
		edits = append(edits, edit{span[0], span[1], newFull})
	}

	// Apply edits right-to-left so earlier offsets stay valid.
	for i := len(edits) - 1; i >= 0; i-- {
		e := edits[i]
		text = text[:e.start] + e.repl + text[e.end:]
	}

	if len(newKeys) > 0 {
		loc := resourcesCloseRe.FindStringIndex(text)
		if loc == nil {
			return fmt.Errorf("android xml: no </resources> in %s", path)
		}
		var appended strings.Builder
		for _, k := range newKeys {
			v, _ := merged.GetPath(k)
			if idx := strings.Index(k, "."+pluralsKey+"."); idx >= 0 {
				name := k[:idx]
				quantity := k[idx+len(pluralsKey)+2:]
				fmt.Fprintf(&appended, "    <plurals name=\"%s\">\n        <item quantity=\"%s\">%s</item>\n    </plurals>\n", name, quantity, h.escape(v, false))
				continue
			}
			fmt.Fprintf(&appended, "    <string name=\"%s\">%s</string>\n", k, h.escape(v, false))
		}
		text = text[:loc[0]] + appended.String() + text[loc[0]:]
	}

	return os.WriteFile(path, []byte(text), 0644)
}

// replaceItem replaces the <item quantity="q">...</item> text for quantity
// inside block, returning the new block and whether the quantity was found.
func replaceItem(block, quantity, escapedValue string) (string, bool) {
	matches := itemElemRe.FindAllStringSubmatchIndex(block, -1)
	for _, m := range matches {
		if block[m[2]:m[3]] == quantity {
			newItem := fmt.Sprintf(`<item quantity="%s">%s</item>`, quantity, escapedValue)
			return block[:m[0]] + newItem + block[m[1]:], true
		}
	}
	return block, false
}
