// Package formats wires every concrete format handler into a
// registry.Registry (spec.md §4.1). It is the only package that imports
// every format subpackage, keeping the individual handlers free of any
// dependency on each other or on config.
package formats

import (
	"github.com/algebras-go/algebras/internal/config"
	"github.com/algebras-go/algebras/internal/formats/androidxml"
	"github.com/algebras-go/algebras/internal/formats/csvfmt"
	"github.com/algebras-go/algebras/internal/formats/gettext"
	"github.com/algebras-go/algebras/internal/formats/htmlfmt"
	"github.com/algebras-go/algebras/internal/formats/iosstrings"
	"github.com/algebras-go/algebras/internal/formats/jsonfmt"
	"github.com/algebras-go/algebras/internal/formats/propfmt"
	"github.com/algebras-go/algebras/internal/formats/stringsdict"
	"github.com/algebras-go/algebras/internal/formats/tsfmt"
	"github.com/algebras-go/algebras/internal/formats/xliff"
	"github.com/algebras-go/algebras/internal/formats/yamlfmt"
	"github.com/algebras-go/algebras/internal/registry"
)

// CSVHandlerFor builds a csvfmt.Handler scoped to one destination locale.
// Unlike every other format, a CSV/TSV file holds every locale as a
// column in the same file rather than one file per locale, so the
// Registry's extension-keyed Lookup can't carry the locale context a
// read/write needs; callers that know the destination locale (the Sync
// Orchestrator) must build their own Handler via this constructor instead
// of going through the shared Registry for .csv/.tsv targets.
func CSVHandlerFor(delimiter rune, localeCode string) csvfmt.Handler {
	return csvfmt.Handler{Locale: localeCode, Delimiter: delimiter}
}

// NewDefault builds the Registry used by the rest of the engine, wiring
// each handler's config-dependent options from cfg (api.normalize_strings,
// xlf.default_target_state, po.mark_fuzzy). The .csv/.tsv entries are
// registered with an empty Locale for format-detection callers (the File
// Scanner); locale-bearing reads/writes go through CSVHandlerFor instead.
func NewDefault(cfg *config.Config) *registry.Registry {
	r := registry.New()

	r.Register(androidxml.Handler{NormalizeStrings: cfg.API.NormalizeStringsOr()}, ".xml")
	r.Register(iosstrings.Handler{}, ".strings")
	r.Register(stringsdict.Handler{}, ".stringsdict")
	r.Register(gettext.Handler{MarkFuzzy: cfg.POMarkFuzzy}, ".po", ".pot")
	r.Register(xliff.Handler{DefaultTargetState: cfg.XLFDefaultTargetState}, ".xlf", ".xliff")
	r.Register(htmlfmt.Handler{}, ".html", ".htm")
	r.Register(csvfmt.Handler{Delimiter: ','}, ".csv")
	r.Register(csvfmt.Handler{Delimiter: '\t'}, ".tsv")
	r.Register(propfmt.Handler{}, ".properties")
	r.Register(jsonfmt.Handler{}, ".json")
	r.Register(yamlfmt.Handler{}, ".yml", ".yaml")
	r.Register(tsfmt.Handler{}, ".ts")

	return r
}
