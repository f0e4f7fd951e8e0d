// Package tsfmt implements the TypeScript export-object translation format
// handler (spec.md §4.1 "TypeScript export objects"): a nested object
// literal assigned to a default or named export, e.g.
//
//	export default {
//	  greeting: 'Hi',
//	  nav: { home: 'Home' },
//	}
//
// There is no teacher precedent for JS/TS object-literal parsing; the
// quote-style tracking technique is generalized from androidxml's
// per-key style tracking (there: &#160; usage; here: single vs double
// quotes) so WriteFull can reproduce the source's quoting convention.
// This format is write_full only (spec.md §4.5 fallback list).
package tsfmt

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/algebras-go/algebras/internal/registry"
)

// Handler implements registry.Format for .ts translation files.
// Quote selects the default quote style used for newly written string
// literals when the source style can't be inferred (defaults to single).
type Handler struct {
	Quote byte
}

func (h Handler) quote() byte {
	if h.Quote == 0 {
		return '\''
	}
	return h.Quote
}

func (Handler) Name() string { return "typescript" }

func (Handler) Read(path string) (*registry.ResourceMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	p := &parser{src: string(data)}
	if !p.seekObjectStart() {
		return nil, fmt.Errorf("tsfmt: no object literal found in %s", path)
	}
	rm := registry.NewResourceMap()
	if err := p.parseObject(rm.Root); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return rm, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) seekObjectStart() bool {
	idx := strings.IndexByte(p.src, '{')
	if idx < 0 {
		return false
	}
	p.pos = idx + 1
	return true
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			p.pos++
			continue
		}
		if strings.HasPrefix(p.src[p.pos:], "//") {
			if nl := strings.IndexByte(p.src[p.pos:], '\n'); nl >= 0 {
				p.pos += nl
				continue
			}
			p.pos = len(p.src)
			continue
		}
		break
	}
}

func (p *parser) parseObject(m *registry.Map) error {
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return fmt.Errorf("unexpected end of input in object literal")
		}
		if p.src[p.pos] == '}' {
			p.pos++
			return nil
		}
		key, err := p.parseKey()
		if err != nil {
			return err
		}
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != ':' {
			return fmt.Errorf("expected ':' after key %q", key)
		}
		p.pos++
		p.skipSpace()
		if p.pos < len(p.src) && p.src[p.pos] == '{' {
			p.pos++
			child := registry.NewMap()
			if err := p.parseObject(child); err != nil {
				return err
			}
			m.SetContainer(key, child)
		} else {
			value, q, err := p.parseString()
			if err != nil {
				return err
			}
			m.Set(key, &registry.Node{Value: value, IsLeaf: true, Opaque: q})
		}
		p.skipSpace()
		if p.pos < len(p.src) && (p.src[p.pos] == ',' || p.src[p.pos] == ';') {
			p.pos++
		}
	}
}

func (p *parser) parseKey() (string, error) {
	p.skipSpace()
	if p.pos < len(p.src) && (p.src[p.pos] == '\'' || p.src[p.pos] == '"') {
		s, _, err := p.parseString()
		return s, err
	}
	start := p.pos
	for p.pos < len(p.src) {
		c := rune(p.src[p.pos])
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '$' {
			p.pos++
			continue
		}
		break
	}
	if start == p.pos {
		return "", fmt.Errorf("expected identifier or quoted key at offset %d", p.pos)
	}
	return p.src[start:p.pos], nil
}

func (p *parser) parseString() (string, byte, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return "", 0, fmt.Errorf("expected string literal")
	}
	q := p.src[p.pos]
	if q != '\'' && q != '"' && q != '`' {
		return "", 0, fmt.Errorf("expected quote at offset %d", p.pos)
	}
	p.pos++
	var buf strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '\\' && p.pos+1 < len(p.src) {
			buf.WriteByte(unescapeOne(p.src[p.pos+1]))
			p.pos += 2
			continue
		}
		if c == q {
			p.pos++
			return buf.String(), q, nil
		}
		buf.WriteByte(c)
		p.pos++
	}
	return "", 0, fmt.Errorf("unterminated string literal")
}

// unescapeOne decodes the character following a backslash in a JS string
// literal. Unrecognized escapes (e.g. \$ inside a template literal) pass
// the escaped character through unchanged, matching JS's own behavior.
func unescapeOne(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return c
	}
}

func (Handler) InPlaceCapable() bool { return false }

func (Handler) WriteInPlace(path string, original, merged *registry.ResourceMap, keysToUpdate registry.KeySet) error {
	return fmt.Errorf("tsfmt: in-place writing not supported, use WriteFull")
}

func (h Handler) WriteFull(path string, m *registry.ResourceMap) error {
	var buf bytes.Buffer
	buf.WriteString("export default {\n")
	writeObject(&buf, m.Root, h.quote(), 1)
	buf.WriteString("};\n")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

func writeObject(buf *bytes.Buffer, m *registry.Map, defaultQuote byte, depth int) {
	pad := strings.Repeat("  ", depth)
	for _, k := range m.Keys() {
		n := m.Get(k)
		fmt.Fprintf(buf, "%s%s: ", pad, keyLiteral(k))
		if n.Children != nil {
			buf.WriteString("{\n")
			writeObject(buf, n.Children, defaultQuote, depth+1)
			fmt.Fprintf(buf, "%s},\n", pad)
			continue
		}
		q := defaultQuote
		if stored, ok := n.Opaque.(byte); ok && stored != 0 {
			q = stored
		}
		fmt.Fprintf(buf, "%s,\n", quoteString(n.Value, q))
	}
}

func keyLiteral(k string) string {
	if isIdentifier(k) {
		return k
	}
	return "'" + strings.ReplaceAll(k, "'", "\\'") + "'"
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 && !unicode.IsLetter(r) && r != '_' && r != '$' {
			return false
		}
		if i > 0 && !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '$' {
			return false
		}
	}
	return true
}

func quoteString(s string, q byte) string {
	escaped := strings.ReplaceAll(s, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, string(q), `\`+string(q))
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	return string(q) + escaped + string(q)
}
