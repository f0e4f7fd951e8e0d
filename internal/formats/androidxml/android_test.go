package androidxml

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/algebras-go/algebras/internal/registry"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	return path
}

const sampleXML = `<?xml version="1.0" encoding="utf-8"?>
<resources xmlns:tools="http://schemas.android.com/tools">
    <string name="a">Hola</string>
    <string name="b">Ha</string>
    <string name="e">Un&#160;mot</string>
    <plurals name="c">
        <item quantity="one">un elemento</item>
        <item quantity="other">%d elementos</item>
    </plurals>
</resources>
`

func TestP1InPlaceEmptyKeysByteIdentical(t *testing.T) {
	path := writeTemp(t, "fr.xml", sampleXML)
	h := Handler{}
	orig, err := h.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if err := h.WriteInPlace(path, orig, orig, registry.NewKeySet()); err != nil {
		t.Fatalf("WriteInPlace: %v", err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != sampleXML {
		t.Fatalf("file changed:\nwant %q\ngot  %q", sampleXML, string(got))
	}
}

func TestP2RoundTripFlatten(t *testing.T) {
	src := registry.NewResourceMap()
	src.Root.SetLeaf("greeting", "Hi")
	flat := src.Flatten()

	h := Handler{}
	path := filepath.Join(t.TempDir(), "out.xml")
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

// TestP7PreservesOtherKeysAndNamespaces verifies invariant P7: updating one
// key leaves every other key's byte representation, the <plurals> block's
// untouched items, and the <resources> root's namespace declaration intact.
func TestP7PreservesOtherKeysAndNamespaces(t *testing.T) {
	path := writeTemp(t, "fr.xml", sampleXML)
	h := Handler{}
	orig, err := h.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	merged := orig.Clone()
	merged.Root.SetLeaf("a", "Salut")
	merged.Root.SetLeaf("d", "Nouveau")

	if err := h.WriteInPlace(path, orig, merged, registry.NewKeySet("a", "d")); err != nil {
		t.Fatalf("WriteInPlace: %v", err)
	}

	got, _ := os.ReadFile(path)
	s := string(got)

	if !strings.Contains(s, `xmlns:tools="http://schemas.android.com/tools"`) {
		t.Fatalf("lost root namespace declaration:\n%s", s)
	}
	if !strings.Contains(s, `<string name="b">Ha</string>`) {
		t.Fatalf("untouched key b changed:\n%s", s)
	}
	if !strings.Contains(s, `<item quantity="one">un elemento</item>`) {
		t.Fatalf("untouched plural item changed:\n%s", s)
	}
	if !strings.Contains(s, `<item quantity="other">%d elementos</item>`) {
		t.Fatalf("untouched plural item changed:\n%s", s)
	}
	if !strings.Contains(s, `<string name="a">Salut</string>`) {
		t.Fatalf("updated key a not written:\n%s", s)
	}
	if !strings.Contains(s, `<string name="d">Nouveau</string>`) {
		t.Fatalf("new key d not appended:\n%s", s)
	}
}

func TestWriteInPlacePluralItemUpdate(t *testing.T) {
	path := writeTemp(t, "fr.xml", sampleXML)
	h := Handler{}
	orig, err := h.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	merged := orig.Clone()
	merged.SetPath("c.__plurals__.one", "un elemento nuevo")

	if err := h.WriteInPlace(path, orig, merged, registry.NewKeySet("c.__plurals__.one")); err != nil {
		t.Fatalf("WriteInPlace: %v", err)
	}
	got, _ := os.ReadFile(path)
	s := string(got)
	if !strings.Contains(s, `<item quantity="one">un elemento nuevo</item>`) {
		t.Fatalf("plural item not updated:\n%s", s)
	}
	if !strings.Contains(s, `<item quantity="other">%d elementos</item>`) {
		t.Fatalf("sibling plural item changed:\n%s", s)
	}
}

// TestNbspPreservedPerKey checks that a key originally written with &#160;
// keeps using it when retranslated, while a key that never used it gets a
// literal space instead (spec.md §4.1, P7 "tracked per-key").
func TestNbspPreservedPerKey(t *testing.T) {
	path := writeTemp(t, "fr.xml", sampleXML)
	h := Handler{}
	orig, err := h.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	merged := orig.Clone()
	merged.Root.SetLeaf("e", "Un autre mot")
	merged.Root.SetLeaf("b", "Deux mots")

	if err := h.WriteInPlace(path, orig, merged, registry.NewKeySet("e", "b")); err != nil {
		t.Fatalf("WriteInPlace: %v", err)
	}
	got, _ := os.ReadFile(path)
	s := string(got)
	if !strings.Contains(s, `<string name="e">Un&#160;autre&#160;mot</string>`) {
		t.Fatalf("expected &#160; entities preserved for key e, got:\n%s", s)
	}
	if !strings.Contains(s, `<string name="b">Deux mots</string>`) {
		t.Fatalf("expected literal space for key b (no prior nbsp), got:\n%s", s)
	}
}
