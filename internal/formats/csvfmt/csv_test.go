package csvfmt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/algebras-go/algebras/internal/registry"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "strings.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	return path
}

const sampleCSV = "key,en\ngreeting,Hi\nfarewell,Bye\n"

// TestS4AddLocaleColumn verifies spec.md S4: adding a new locale column to
// an existing CSV preserves the existing column's values untouched.
func TestS4AddLocaleColumn(t *testing.T) {
	path := writeTemp(t, sampleCSV)
	h := Handler{Locale: "en"}
	orig, err := h.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	de := Handler{Locale: "de"}
	merged := orig.Clone()
	merged.Root.SetLeaf("greeting", "Hallo")
	merged.Root.SetLeaf("farewell", "Tschuss")

	if err := de.WriteInPlace(path, orig, merged, registry.NewKeySet("greeting", "farewell")); err != nil {
		t.Fatalf("WriteInPlace: %v", err)
	}
	got, _ := os.ReadFile(path)
	want := "key,en,de\ngreeting,Hi,Hallo\nfarewell,Bye,Tschuss\n"
	if string(got) != want {
		t.Fatalf("got %q want %q", string(got), want)
	}
}

func TestFuzzyColumnMatch(t *testing.T) {
	path := writeTemp(t, "key,Chinese (Simplified)(zh)\ngreeting,Ni hao\n")
	h := Handler{Locale: "zh"}
	m, err := h.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	v, ok := m.GetPath("greeting")
	if !ok || v != "Ni hao" {
		t.Fatalf("greeting = %q, %v", v, ok)
	}
}

func TestP9OnlyTargetColumnChanges(t *testing.T) {
	path := writeTemp(t, sampleCSV)
	h := Handler{Locale: "en"}
	orig, err := h.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	merged := orig.Clone()
	merged.Root.SetLeaf("greeting", "Hiya")

	if err := h.WriteInPlace(path, orig, merged, registry.NewKeySet("greeting")); err != nil {
		t.Fatalf("WriteInPlace: %v", err)
	}
	got, _ := os.ReadFile(path)
	want := "key,en\ngreeting,Hiya\nfarewell,Bye\n"
	if string(got) != want {
		t.Fatalf("got %q want %q", string(got), want)
	}
}
