package xliff

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/algebras-go/algebras/internal/registry"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fr.xlf")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	return path
}

const sampleXLIFF = `<?xml version="1.0" encoding="utf-8"?>
<xliff version="1.2">
  <file>
    <body>
      <trans-unit id="greeting">
        <source>Hi</source>
        <target state="translated">Salut</target>
      </trans-unit>
      <trans-unit id="farewell">
        <source>Bye</source>
        <target state="translated">Au revoir</target>
      </trans-unit>
    </body>
  </file>
</xliff>
`

func TestP2RoundTripFlatten(t *testing.T) {
	path := writeTemp(t, sampleXLIFF)
	h := Handler{}
	m, err := h.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	v, ok := m.GetPath("greeting")
	if !ok || v != "Salut" {
		t.Fatalf("greeting = %q, %v", v, ok)
	}

	out := filepath.Join(t.TempDir(), "out.xlf")
	if err := h.WriteFull(out, m); err != nil {
		t.Fatalf("WriteFull: %v", err)
	}
	back, err := h.Read(out)
	if err != nil {
		t.Fatalf("Read back: %v", err)
	}
	want, got := m.Flatten(), back.Flatten()
	for _, k := range want.Keys() {
		wv, _ := want.Get(k)
		if gv, ok := got.Get(k); !ok || gv != wv {
			t.Fatalf("%s after round trip = %q, %v; want %q", k, gv, ok, wv)
		}
	}
	if got.Len() != want.Len() {
		t.Fatalf("round trip has %d keys, want %d", got.Len(), want.Len())
	}
}

func TestWriteInPlacePreservesOtherUnit(t *testing.T) {
	path := writeTemp(t, sampleXLIFF)
	h := Handler{}
	orig, err := h.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	merged := orig.Clone()
	merged.Root.SetLeaf("greeting", "Bonjour")
	merged.Root.SetLeaf("new_unit", "Nouveau")

	if err := h.WriteInPlace(path, orig, merged, registry.NewKeySet("greeting", "new_unit")); err != nil {
		t.Fatalf("WriteInPlace: %v", err)
	}
	got, _ := os.ReadFile(path)
	s := string(got)
	if !strings.Contains(s, `<target state="translated">Bonjour</target>`) {
		t.Fatalf("greeting not updated:\n%s", s)
	}
	if !strings.Contains(s, `<target state="translated">Au revoir</target>`) {
		t.Fatalf("untouched unit changed:\n%s", s)
	}
	if !strings.Contains(s, `<trans-unit id="new_unit">`) {
		t.Fatalf("new unit not appended:\n%s", s)
	}
}
