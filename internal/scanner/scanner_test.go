package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/algebras-go/algebras/internal/config"
	"github.com/algebras-go/algebras/internal/formats/jsonfmt"
	"github.com/algebras-go/algebras/internal/locale"
	"github.com/algebras-go/algebras/internal/registry"
)

func testLocales(t *testing.T) *locale.Set {
	t.Helper()
	set, err := locale.NewSet([]locale.Entry{{Internal: "en", Destination: "en"}, {Internal: "fr", Destination: "fr"}}, "en")
	if err != nil {
		t.Fatalf("locale.NewSet: %v", err)
	}
	return set
}

func TestDiscoverPrefersSourceFiles(t *testing.T) {
	reg := registry.New()
	reg.Register(jsonfmt.Handler{}, ".json")
	s := New(reg, testLocales(t))

	cfg := &config.Config{
		SourceFiles: map[string]config.SourceFileBinding{
			"locales/en.json": {DestinationPath: "locales/%algebras_locale_code%.json"},
		},
		PathRules: []config.PathRule{{Glob: "*.json"}},
	}

	files, err := s.Discover("/unused", cfg)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(files) != 1 || files[0].Path != "locales/en.json" {
		t.Fatalf("files = %v, want exactly the source_files entry", files)
	}
}

func TestDiscoverWalksPathRulesWhenNoSourceFiles(t *testing.T) {
	dir := t.TempDir()
	enDir := filepath.Join(dir, "locales")
	os.MkdirAll(enDir, 0755)
	enPath := filepath.Join(enDir, "en.json")
	os.WriteFile(enPath, []byte(`{"a":"A"}`), 0644)
	frPath := filepath.Join(enDir, "fr.json")
	os.WriteFile(frPath, []byte(`{"a":"B"}`), 0644)

	reg := registry.New()
	reg.Register(jsonfmt.Handler{}, ".json")
	s := New(reg, testLocales(t))

	cfg := &config.Config{}
	files, err := s.Discover(dir, cfg)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0].Path) != "en.json" {
		t.Fatalf("files = %v, want only en.json (source locale)", files)
	}
}

func TestClassifyPathAndroidValuesDirectory(t *testing.T) {
	s := New(registry.New(), testLocales(t))

	if loc, ok := s.ClassifyPath("/proj/res/values/strings.xml"); !ok || loc != "en" {
		t.Fatalf("values/ -> %q,%v want en,true", loc, ok)
	}
	if loc, ok := s.ClassifyPath("/proj/res/values-fr/strings.xml"); !ok || loc != "fr" {
		t.Fatalf("values-fr/ -> %q,%v want fr,true", loc, ok)
	}
}

func TestClassifyPathLocaleMarkerInFilename(t *testing.T) {
	s := New(registry.New(), testLocales(t))
	if loc, ok := s.ClassifyPath("/proj/strings.fr.json"); !ok || loc != "fr" {
		t.Fatalf("strings.fr.json -> %q,%v want fr,true", loc, ok)
	}
}

func TestTargetPathUsesExplicitPattern(t *testing.T) {
	s := New(registry.New(), testLocales(t))
	sf := SourceFile{Path: "locales/en.json", DestinationPattern: "locales/%algebras_locale_code%.json"}
	if got := s.TargetPath(sf, "fr"); got != "locales/fr.json" {
		t.Fatalf("TargetPath = %q, want locales/fr.json", got)
	}
}

func TestTargetPathDerivesWhenNoPattern(t *testing.T) {
	s := New(registry.New(), testLocales(t))
	sf := SourceFile{Path: "res/values/strings.xml"}
	if got := s.TargetPath(sf, "fr"); got != "res/values-fr/strings.xml" {
		t.Fatalf("TargetPath = %q, want res/values-fr/strings.xml", got)
	}
}
