package tsfmt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fr.ts")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	return path
}

const sampleTS = `export default {
  greeting: 'Bonjour',
  farewell: "Au revoir",
  nav: {
    home: 'Accueil',
    about: 'A propos',
  },
};
`

func TestReadNestedObjectLiteral(t *testing.T) {
	path := writeTemp(t, sampleTS)
	h := Handler{}
	m, err := h.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if v, ok := m.GetPath("greeting"); !ok || v != "Bonjour" {
		t.Fatalf("greeting = %q, %v", v, ok)
	}
	if v, ok := m.GetPath("farewell"); !ok || v != "Au revoir" {
		t.Fatalf("farewell = %q, %v", v, ok)
	}
	if v, ok := m.GetPath("nav.home"); !ok || v != "Accueil" {
		t.Fatalf("nav.home = %q, %v", v, ok)
	}
	if v, ok := m.GetPath("nav.about"); !ok || v != "A propos" {
		t.Fatalf("nav.about = %q, %v", v, ok)
	}
}

func TestWriteFullPreservesQuoteStylePerKey(t *testing.T) {
	path := writeTemp(t, sampleTS)
	h := Handler{}
	m, err := h.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	m.SetPath("greeting", "Salut")

	out := filepath.Join(t.TempDir(), "out.ts")
	if err := h.WriteFull(out, m); err != nil {
		t.Fatalf("WriteFull: %v", err)
	}
	got, _ := os.ReadFile(out)
	s := string(got)
	if !strings.Contains(s, "greeting: 'Salut',") {
		t.Fatalf("single-quote style not preserved for updated key:\n%s", s)
	}
	if !strings.Contains(s, `farewell: "Au revoir",`) {
		t.Fatalf("double-quote style not preserved for untouched key:\n%s", s)
	}
	if !strings.Contains(s, "nav: {") {
		t.Fatalf("nested object not emitted:\n%s", s)
	}
}

func TestWriteFullNewKeyUsesDefaultQuote(t *testing.T) {
	m, err := Handler{}.Read(writeTemp(t, sampleTS))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	m.SetPath("new_key", "Nouveau")

	out := filepath.Join(t.TempDir(), "out.ts")
	if err := (Handler{}).WriteFull(out, m); err != nil {
		t.Fatalf("WriteFull: %v", err)
	}
	got, _ := os.ReadFile(out)
	if !strings.Contains(string(got), "new_key: 'Nouveau',") {
		t.Fatalf("new key not written with default single quote:\n%s", got)
	}
}

func TestInPlaceNotCapable(t *testing.T) {
	h := Handler{}
	if h.InPlaceCapable() {
		t.Fatalf("tsfmt must not claim in-place capability")
	}
	if err := h.WriteInPlace("x.ts", nil, nil, nil); err == nil {
		t.Fatalf("expected WriteInPlace to error")
	}
}
