package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/algebras-go/algebras/internal/config"
	"github.com/algebras-go/algebras/internal/diff"
	"github.com/algebras-go/algebras/internal/formats/jsonfmt"
	"github.com/algebras-go/algebras/internal/gitblame"
	"github.com/algebras-go/algebras/internal/locale"
	"github.com/algebras-go/algebras/internal/registry"
	"github.com/algebras-go/algebras/internal/scanner"
	"github.com/algebras-go/algebras/internal/translator"
)

type prefixProvider struct{}

func (prefixProvider) TranslateBatch(ctx context.Context, strs []string, targetLocale string, opts translator.Options) ([]string, error) {
	out := make([]string, len(strs))
	for i, s := range strs {
		out[i] = "t:" + s
	}
	return out, nil
}

func newTestOrchestrator(t *testing.T, rootDir string, sourceFiles map[string]config.SourceFileBinding) *Orchestrator {
	t.Helper()
	reg := registry.New()
	reg.Register(jsonfmt.Handler{}, ".json")

	locales, err := locale.NewSet([]locale.Entry{{Internal: "en", Destination: "en"}, {Internal: "fr", Destination: "fr"}}, "en")
	if err != nil {
		t.Fatalf("locale.NewSet: %v", err)
	}

	cfg := &config.Config{
		Locales:            locales,
		SourceFiles:        sourceFiles,
		BatchSize:          20,
		MaxParallelBatches: 4,
	}

	sc := scanner.New(reg, locales)
	diffEngine := diff.NewEngine(reg, gitblame.NewCache())
	drv := translator.New(prefixProvider{}, cfg.BatchSize, cfg.MaxParallelBatches)

	return New(cfg, reg, sc, diffEngine, drv, rootDir)
}

// TestTranslateJSONNestedWhenTargetAbsent matches spec.md's S1 scenario.
func TestTranslateJSONNestedWhenTargetAbsent(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "en.json")
	os.WriteFile(srcPath, []byte(`{"greeting":"Hi","user":{"title":"Hello"}}`), 0644)
	dstPath := filepath.Join(dir, "fr.json")

	o := newTestOrchestrator(t, dir, map[string]config.SourceFileBinding{
		srcPath: {DestinationPath: dstPath},
	})

	summary, err := o.Translate(context.Background(), TranslateOptions{Locales: []string{"fr"}})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if summary.KeysFailed != 0 {
		t.Fatalf("KeysFailed = %d, want 0", summary.KeysFailed)
	}

	data, err := os.ReadFile(dstPath)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"t:Hi"`) || !strings.Contains(out, `"t:Hello"`) {
		t.Fatalf("output = %s, want translated greeting and nested title", out)
	}
}

// TestTranslateOnlyMissingUpdatesJustMissingKeys matches spec.md's S2 scenario.
func TestTranslateOnlyMissingUpdatesJustMissingKeys(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "en.json")
	os.WriteFile(srcPath, []byte(`{"a":"A","b":"B"}`), 0644)
	dstPath := filepath.Join(dir, "fr.json")
	os.WriteFile(dstPath, []byte(`{"a":"x"}`), 0644)

	o := newTestOrchestrator(t, dir, map[string]config.SourceFileBinding{
		srcPath: {DestinationPath: dstPath},
	})

	summary, err := o.Translate(context.Background(), TranslateOptions{Locales: []string{"fr"}, OnlyMissing: true})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if summary.KeysTranslated != 1 {
		t.Fatalf("KeysTranslated = %d, want 1", summary.KeysTranslated)
	}

	data, _ := os.ReadFile(dstPath)
	out := string(data)
	if !strings.Contains(out, `"a": "x"`) && !strings.Contains(out, `"a":"x"`) {
		t.Fatalf("output = %s, want 'a' untouched", out)
	}
	if !strings.Contains(out, `t:B`) {
		t.Fatalf("output = %s, want 'b' translated", out)
	}
}

func TestCIReportsIssuesWithoutTranslating(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "en.json")
	os.WriteFile(srcPath, []byte(`{"a":"A","b":"B"}`), 0644)
	dstPath := filepath.Join(dir, "fr.json")
	os.WriteFile(dstPath, []byte(`{"a":"x"}`), 0644)

	o := newTestOrchestrator(t, dir, map[string]config.SourceFileBinding{
		srcPath: {DestinationPath: dstPath},
	})

	summary, err := o.CI(context.Background(), []string{"fr"})
	if err != nil {
		t.Fatalf("CI: %v", err)
	}
	if len(summary.Issues) != 1 {
		t.Fatalf("Issues = %v, want 1 entry", summary.Issues)
	}
	if len(summary.Issues[0].Missing) != 1 || summary.Issues[0].Missing[0] != "b" {
		t.Fatalf("Missing = %v, want [b]", summary.Issues[0].Missing)
	}

	data, _ := os.ReadFile(dstPath)
	if string(data) != `{"a":"x"}` {
		t.Fatalf("ci flow must never write: got %s", data)
	}
}
