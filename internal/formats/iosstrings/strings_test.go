package iosstrings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/algebras-go/algebras/internal/registry"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fr.strings")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	return path
}

const sampleStrings = "/* greeting */\n\"greeting\" = \"Bonjour\";\n\"farewell\" = \"Au revoir\";\n"

func TestP1InPlaceEmptyKeysByteIdentical(t *testing.T) {
	path := writeTemp(t, sampleStrings)
	h := Handler{}
	orig, err := h.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if err := h.WriteInPlace(path, orig, orig, registry.NewKeySet()); err != nil {
		t.Fatalf("WriteInPlace: %v", err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != sampleStrings {
		t.Fatalf("file changed:\nwant %q\ngot  %q", sampleStrings, string(got))
	}
}

func TestInPlaceUpdatesOnlyTargetKeyAndAppendsNew(t *testing.T) {
	path := writeTemp(t, sampleStrings)
	h := Handler{}
	orig, _ := h.Read(path)
	merged := orig.Clone()
	merged.Root.SetLeaf("greeting", "Salut")
	merged.Root.SetLeaf("welcome", "Bienvenue")

	if err := h.WriteInPlace(path, orig, merged, registry.NewKeySet("greeting", "welcome")); err != nil {
		t.Fatalf("WriteInPlace: %v", err)
	}
	got, _ := os.ReadFile(path)
	want := "/* greeting */\n\"greeting\" = \"Salut\";\n\"farewell\" = \"Au revoir\";\n\"welcome\" = \"Bienvenue\";\n"
	if string(got) != want {
		t.Fatalf("got %q want %q", string(got), want)
	}
}
