// Package htmlfmt implements the HTML translation format handler (spec.md
// §4.1 "HTML"): BeautifulSoup-style DOM traversal via goquery (the same
// jQuery-flavored API the other_examples pack's web-scraping repos use
// golang.org/x/net/html for), extracting visible text from a fixed tag
// set plus alt/title/placeholder attributes, keyed by a content hash.
//
// Unlike a BeautifulSoup round-trip (parse -> mutate DOM -> reserialize),
// which must then special-case DOCTYPE casing, meta-tag order, attribute
// order and conditional-comment escaping to undo what reserialization
// breaks, this handler never reserializes: it keeps the original file's
// raw bytes as a template (captured at Read time) and splices translated
// text directly into the matched spans, the same textual-edit technique
// androidxml and xliff use for their in-place writers. Every byte outside
// a matched span — DOCTYPE, meta order, attribute order, conditional
// comments, VML tags — is untouched by construction, so the separate
// normalization pass spec.md describes is unnecessary here.
package htmlfmt

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/algebras-go/algebras/internal/registry"
)

// rawTemplateKey stashes the source file's original bytes in the root Map
// so WriteFull can splice into them without a second file read; it's
// skipped by Flatten the same way csvfmt's "\x00headers" sentinel is
// (neither IsLeaf nor Children set).
const rawTemplateKey = "\x00template"

// textTags is the fixed set of elements whose direct text content is
// translatable (spec.md §4.1).
var textTags = []string{
	"p", "span", "div", "td", "th", "li", "a",
	"h1", "h2", "h3", "h4", "h5", "h6",
	"button", "label", "strong", "em", "b", "i", "u", "small", "big",
	"caption", "title", "option", "textarea", "legend", "figcaption",
	"summary", "details",
}

var attrNames = []string{"alt", "title", "placeholder"}

type Handler struct{}

func (Handler) Name() string { return "html" }

func (Handler) Read(path string) (*registry.ResourceMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	rm := registry.NewResourceMap()
	rm.Root.Set(rawTemplateKey, &registry.Node{Opaque: data})

	seen := map[string]bool{}
	addLeaf := func(text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		key := hashKey(text)
		if seen[key] {
			return
		}
		seen[key] = true
		rm.Root.Set(key, &registry.Node{Value: text, IsLeaf: true, Opaque: text})
	}

	doc.Find(strings.Join(textTags, ",")).Each(func(_ int, s *goquery.Selection) {
		addLeaf(directText(s))
	})
	for _, attr := range attrNames {
		doc.Find("[" + attr + "]").Each(func(_ int, s *goquery.Selection) {
			if v, ok := s.Attr(attr); ok {
				addLeaf(v)
			}
		})
	}

	return rm, nil
}

// directText concatenates only the text-node children of s, so a <p>
// wrapping a <span> doesn't double-count the span's own text.
func directText(s *goquery.Selection) string {
	var buf strings.Builder
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if len(c.Nodes) > 0 && c.Nodes[0].Type == html.TextNode {
			buf.WriteString(c.Nodes[0].Data)
		}
	})
	return buf.String()
}

func hashKey(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

func (Handler) InPlaceCapable() bool { return false }

func (Handler) WriteInPlace(path string, original, merged *registry.ResourceMap, keysToUpdate registry.KeySet) error {
	return fmt.Errorf("htmlfmt: in-place writing not supported, use WriteFull")
}

// WriteFull splices every leaf whose value changed from its Read-time
// original into the raw template bytes captured at Read, so regenerating
// a locale file never touches bytes outside the translated spans.
func (h Handler) WriteFull(path string, m *registry.ResourceMap) error {
	tn := m.Root.Get(rawTemplateKey)
	if tn == nil {
		return fmt.Errorf("htmlfmt: %s has no captured source template; read the source file before writing", path)
	}
	raw, ok := tn.Opaque.([]byte)
	if !ok {
		return fmt.Errorf("htmlfmt: invalid template data for %s", path)
	}

	text := string(raw)
	for _, k := range m.Root.Keys() {
		if k == rawTemplateKey {
			continue
		}
		leaf := m.Root.Get(k)
		if leaf == nil || !leaf.IsLeaf {
			continue
		}
		original, _ := leaf.Opaque.(string)
		if original == "" || original == leaf.Value {
			continue
		}
		text = substitute(text, original, leaf.Value)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	return os.WriteFile(path, []byte(text), 0644)
}

// substitute replaces every occurrence of original with translated inside
// doc, scoped to the two contexts the Registry extracts from: bounded
// text-node content (between '>' and '<') and quoted attribute values
// (double or single). Bounding the match avoids touching unrelated text
// that happens to share the same literal substring elsewhere in the file.
func substitute(doc, original, translated string) string {
	oldText, newText := escapeText(original), escapeText(translated)
	doc = strings.ReplaceAll(doc, ">"+oldText+"<", ">"+newText+"<")

	oldDQ, newDQ := escapeAttr(original, '"'), escapeAttr(translated, '"')
	doc = strings.ReplaceAll(doc, `"`+oldDQ+`"`, `"`+newDQ+`"`)

	oldSQ, newSQ := escapeAttr(original, '\''), escapeAttr(translated, '\'')
	doc = strings.ReplaceAll(doc, "'"+oldSQ+"'", "'"+newSQ+"'")

	return doc
}

func escapeText(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

func escapeAttr(s string, quote byte) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	if quote == '"' {
		return strings.ReplaceAll(s, `"`, "&quot;")
	}
	return strings.ReplaceAll(s, "'", "&#39;")
}
