// Package xliff implements the XLIFF translation format handler (spec.md
// §4.1 "XLIFF"): trans-units keyed by id, with <source> and <target>
// elements. In-place writes splice only the <target> text nodes, the same
// textual-edit technique used by androidxml's WriteInPlace, since XLIFF's
// byte-preservation requirement (spec.md §4.5) rules out a full
// encoding/xml marshal round-trip.
package xliff

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/algebras-go/algebras/internal/registry"
)

// Handler implements registry.Format for .xlf/.xliff files.
// DefaultTargetState is written on the <target> element's state attribute
// (xlf.default_target_state, default "translated").
type Handler struct {
	DefaultTargetState string
}

func (h Handler) state() string {
	if h.DefaultTargetState == "" {
		return "translated"
	}
	return h.DefaultTargetState
}

func (Handler) Name() string { return "xliff" }

var unitRe = regexp.MustCompile(`(?s)<trans-unit\s+id="([^"]+)"[^>]*>(.*?)</trans-unit>`)
var sourceRe = regexp.MustCompile(`(?s)<source[^>]*>(.*?)</source>`)
var targetRe = regexp.MustCompile(`(?s)<target[^>]*>(.*?)</target>`)
var fileCloseRe = regexp.MustCompile(`</body>`)

func (Handler) Read(path string) (*registry.ResourceMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	text := string(data)
	rm := registry.NewResourceMap()
	for _, m := range unitRe.FindAllStringSubmatch(text, -1) {
		id, body := m[1], m[2]
		value := ""
		if tm := targetRe.FindStringSubmatch(body); tm != nil {
			value = unescape(tm[1])
		} else if sm := sourceRe.FindStringSubmatch(body); sm != nil {
			value = unescape(sm[1])
		}
		rm.Root.SetLeaf(id, value)
	}
	return rm, nil
}

func escape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

func unescape(s string) string {
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&amp;", "&")
	return s
}

func (h Handler) WriteFull(path string, m *registry.ResourceMap) error {
	var buf bytes.Buffer
	buf.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n")
	buf.WriteString("<xliff version=\"1.2\">\n  <file>\n    <body>\n")
	for _, k := range m.Root.Keys() {
		n := m.Root.Get(k)
		if !n.IsLeaf {
			continue
		}
		fmt.Fprintf(&buf, "      <trans-unit id=\"%s\">\n", k)
		fmt.Fprintf(&buf, "        <source>%s</source>\n", escape(n.Value))
		fmt.Fprintf(&buf, "        <target state=\"%s\">%s</target>\n", h.state(), escape(n.Value))
		buf.WriteString("      </trans-unit>\n")
	}
	buf.WriteString("    </body>\n  </file>\n</xliff>\n")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

func (Handler) InPlaceCapable() bool { return true }

// WriteInPlace updates the <target> of each touched unit (creating one from
// <source> if absent) and appends new trans-units for keys missing
// entirely, leaving every other unit's bytes unchanged (spec.md §4.5).
func (h Handler) WriteInPlace(path string, original, merged *registry.ResourceMap, keysToUpdate registry.KeySet) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	text := string(data)

	unitSpans := map[string][]int{}
	for _, m := range unitRe.FindAllStringSubmatchIndex(text, -1) {
		unitSpans[text[m[2]:m[3]]] = m
	}

	type edit struct {
		start, end int
		repl       string
	}
	var edits []edit
	var newKeys []string

	for _, k := range keysToUpdate.SortedSlice() {
		v, ok := merged.GetPath(k)
		if !ok {
			continue
		}
		span, exists := unitSpans[k]
		if !exists {
			newKeys = append(newKeys, k)
			continue
		}
		full := text[span[0]:span[1]]
		newTarget := fmt.Sprintf(`<target state="%s">%s</target>`, h.state(), escape(v))
		var newFull string
		if targetRe.MatchString(full) {
			newFull = targetRe.ReplaceAllString(full, newTarget)
		} else {
			newFull = sourceRe.ReplaceAllStringFunc(full, func(s string) string {
				return s + "\n        " + newTarget
			})
		}
		edits = append(edits, edit{span[0], span[1], newFull})
	}

	for i := len(edits) - 1; i >= 0; i-- {
		e := edits[i]
		text = text[:e.start] + e.repl + text[e.end:]
	}

	if len(newKeys) > 0 {
		loc := fileCloseRe.FindStringIndex(text)
		if loc == nil {
			return fmt.Errorf("xliff: no </body> in %s", path)
		}
		var appended strings.Builder
		for _, k := range newKeys {
			v, _ := merged.GetPath(k)
			fmt.Fprintf(&appended, "      <trans-unit id=\"%s\">\n        <source>%s</source>\n        <target state=\"%s\">%s</target>\n      </trans-unit>\n", k, escape(v), h.state(), escape(v))
		}
		text = text[:loc[0]] + appended.String() + text[loc[0]:]
	}

	return os.WriteFile(path, []byte(text), 0644)
}
