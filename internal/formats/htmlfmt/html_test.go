package htmlfmt

import (
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.html")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	return path
}

const sampleHTML = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Welcome</title></head>
<body>
<!--[if mso]><table><tr><td><![endif]-->
<p>Hello there</p>
<img src="x.png" alt="A picture" title="Tooltip text">
<input placeholder="Type here">
</body>
</html>
`

func keyFor(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

func TestReadExtractsTextAndAttributes(t *testing.T) {
	path := writeTemp(t, sampleHTML)
	h := Handler{}
	m, err := h.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	for _, text := range []string{"Welcome", "Hello there", "A picture", "Tooltip text", "Type here"} {
		v, ok := m.GetPath(keyFor(text))
		if !ok || v != text {
			t.Fatalf("expected key for %q = %q, got %q ok=%v", text, text, v, ok)
		}
	}
}

func TestWriteFullSubstitutesOnlyMatchedSpans(t *testing.T) {
	path := writeTemp(t, sampleHTML)
	h := Handler{}
	m, err := h.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	m.SetPath(keyFor("Hello there"), "Bonjour")
	m.SetPath(keyFor("A picture"), "Une image")

	out := filepath.Join(t.TempDir(), "fr.html")
	if err := h.WriteFull(out, m); err != nil {
		t.Fatalf("WriteFull: %v", err)
	}
	got, _ := os.ReadFile(out)
	s := string(got)

	if !strings.Contains(s, "<p>Bonjour</p>") {
		t.Fatalf("text node not substituted:\n%s", s)
	}
	if !strings.Contains(s, `alt="Une image"`) {
		t.Fatalf("attribute not substituted:\n%s", s)
	}
	if !strings.Contains(s, `title="Tooltip text"`) {
		t.Fatalf("untouched attribute changed:\n%s", s)
	}
	if !strings.Contains(s, "<!--[if mso]><table><tr><td><![endif]-->") {
		t.Fatalf("conditional comment was mangled:\n%s", s)
	}
	if !strings.Contains(s, `<meta charset="UTF-8">`) {
		t.Fatalf("meta charset casing changed:\n%s", s)
	}
	if !strings.Contains(s, `<html lang="en">`) {
		t.Fatalf("html root attribute order changed:\n%s", s)
	}
}

func TestInPlaceNotCapable(t *testing.T) {
	h := Handler{}
	if h.InPlaceCapable() {
		t.Fatalf("htmlfmt must not claim in-place capability")
	}
	if err := h.WriteInPlace("x.html", nil, nil, nil); err == nil {
		t.Fatalf("expected WriteInPlace to error")
	}
}
