package gettext

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/algebras-go/algebras/internal/registry"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fr.po")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	return path
}

const sampleBody = `msgid "a"
msgstr "Hola"

msgid "b"
msgstr "Ha"
`

func TestP1InPlaceEmptyKeysByteIdentical(t *testing.T) {
	path := writeTemp(t, sampleBody)
	h := Handler{}
	orig, err := h.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if err := h.WriteInPlace(path, orig, orig, registry.NewKeySet()); err != nil {
		t.Fatalf("WriteInPlace: %v", err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != sampleBody {
		t.Fatalf("file changed:\nwant %q\ngot  %q", sampleBody, string(got))
	}
}

// TestP8PreservesUnchangedEntryLayout checks that an entry whose msgstr
// wasn't touched keeps its original single/multi-line layout even though
// another entry in the same file changes (spec.md §8 P8).
func TestP8PreservesUnchangedEntryLayout(t *testing.T) {
	body := "msgid \"a\"\n" +
		"msgstr \"\"\n" +
		"\"line one\\n\"\n" +
		"\"line two\"\n" +
		"\n" +
		"msgid \"b\"\n" +
		"msgstr \"Ha\"\n"
	path := writeTemp(t, body)

	h := Handler{}
	orig, err := h.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	merged := orig.Clone()
	merged.Root.SetLeaf("b", "Salut")

	if err := h.WriteInPlace(path, orig, merged, registry.NewKeySet("b")); err != nil {
		t.Fatalf("WriteInPlace: %v", err)
	}

	got, _ := os.ReadFile(path)
	s := string(got)
	if !containsLine(s, "\"line one\\n\"") || !containsLine(s, "\"line two\"") {
		t.Fatalf("unchanged multi-line entry lost its layout:\n%s", s)
	}
	if !containsLine(s, `msgstr "Salut"`) {
		t.Fatalf("changed entry not updated:\n%s", s)
	}
}

func containsLine(haystack, needle string) bool {
	for _, l := range splitLines(haystack) {
		if l == needle {
			return true
		}
	}
	return false
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return out
}

func TestP2RoundTripFlatten(t *testing.T) {
	src := registry.NewResourceMap()
	src.Root.SetLeaf("greeting", "Hi")
	flat := src.Flatten()

	h := Handler{}
	path := filepath.Join(t.TempDir(), "out.po")
	if err := h.WriteFull(path, src); err != nil {
		t.Fatalf("WriteFull: %v", err)
	}
	readBack, err := h.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	flat2 := readBack.Flatten()
	v1, _ := flat.Get("greeting")
	v2, _ := flat2.Get("greeting")
	if v1 != v2 {
		t.Fatalf("got %q want %q", v2, v1)
	}
}

func TestMsgCtxtRoundTrip(t *testing.T) {
	body := "msgctxt \"menu\"\nmsgid \"Open\"\nmsgstr \"Ouvrir\"\n"
	path := writeTemp(t, body)
	h := Handler{}
	m, err := h.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	v, ok := m.GetPath("menu\x04Open")
	if !ok || v != "Ouvrir" {
		t.Fatalf("GetPath(menu\\x04Open) = %q, %v", v, ok)
	}
}

func TestMarkFuzzyOnChangedEntry(t *testing.T) {
	path := writeTemp(t, sampleBody)
	h := Handler{MarkFuzzy: true}
	orig, _ := h.Read(path)
	merged := orig.Clone()
	merged.Root.SetLeaf("a", "Salut")

	if err := h.WriteInPlace(path, orig, merged, registry.NewKeySet("a")); err != nil {
		t.Fatalf("WriteInPlace: %v", err)
	}
	got, _ := os.ReadFile(path)
	if !containsLine(string(got), "#, fuzzy") {
		t.Fatalf("expected #, fuzzy marker:\n%s", string(got))
	}
}
