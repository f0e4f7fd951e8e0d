// Package scanner implements the File Scanner (spec.md §4.2/§4.6,
// component C): enumerating resource files and grouping them by locale.
// Grounded on the teacher's directory walk in main.go (the CLI's
// "discover .po files under a root" pass) generalized from gettext-only
// to every registered format, plus Android's values/values-<qualifier>
// directory convention from android/android.go.
package scanner

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/algebras-go/algebras/internal/config"
	"github.com/algebras-go/algebras/internal/locale"
	"github.com/algebras-go/algebras/internal/pathresolver"
	"github.com/algebras-go/algebras/internal/registry"
)

// SourceFile is one discovered (or configured) source resource, bound to
// its explicit destination pattern when one was configured via
// `source_files` (spec.md §3 SourceFileBinding).
type SourceFile struct {
	Path               string
	DestinationPattern string // "" when no explicit binding; derive_target_path applies
}

// Scanner discovers source files either from the `source_files` config
// map (preferred, spec.md SPEC_FULL.md §4 "source_files wins") or by
// walking `path_rules` globs (deprecated fallback).
type Scanner struct {
	Registry *registry.Registry
	Locales  *locale.Set
}

func New(reg *registry.Registry, locales *locale.Set) *Scanner {
	return &Scanner{Registry: reg, Locales: locales}
}

// valuesQualifierRe recognizes Android's values-<code> and BCP-47-style
// values-b+sr+Latn qualifier directories (SPEC_FULL.md §4 "recognizes
// values-b+sr+Latn BCP-47-style qualifiers").
var valuesQualifierRe = regexp.MustCompile(`^values(?:-(.+))?$`)

// Discover resolves the project's source files, preferring cfg.SourceFiles
// (source_files) when present; falling back to a path_rules glob walk
// rooted at rootDir otherwise. source_files always wins when both are
// configured (SPEC_FULL.md §5 Open Question Decision 4).
func (s *Scanner) Discover(rootDir string, cfg *config.Config) ([]SourceFile, error) {
	if len(cfg.SourceFiles) > 0 {
		out := make([]SourceFile, 0, len(cfg.SourceFiles))
		for path, binding := range cfg.SourceFiles {
			out = append(out, SourceFile{Path: path, DestinationPattern: binding.DestinationPath})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
		return out, nil
	}
	return s.walkPathRules(rootDir, cfg.PathRules)
}

// walkPathRules walks rootDir, keeping files that match at least one
// include glob (or all files, if none given) and no exclude glob, and
// that the Registry recognizes by extension. Only files sitting in the
// source locale's directory/filename convention are returned; locale
// classification reuses ClassifyPath.
func (s *Scanner) walkPathRules(rootDir string, rules []config.PathRule) ([]SourceFile, error) {
	var includes, excludes []string
	for _, r := range rules {
		if r.Exclude {
			excludes = append(excludes, r.Glob)
		} else {
			includes = append(includes, r.Glob)
		}
	}

	var out []SourceFile
	err := filepath.Walk(rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if _, lookupErr := s.Registry.Lookup(path); lookupErr != nil {
			return nil
		}
		rel, relErr := filepath.Rel(rootDir, path)
		if relErr != nil {
			rel = path
		}
		if len(includes) > 0 && !matchesAny(includes, rel) {
			return nil
		}
		if matchesAny(excludes, rel) {
			return nil
		}
		if loc, ok := s.ClassifyPath(path); !ok || loc != s.Locales.Source() {
			return nil
		}
		out = append(out, SourceFile{Path: path})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func matchesAny(globs []string, rel string) bool {
	for _, g := range globs {
		if ok, _ := filepath.Match(g, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(g, filepath.ToSlash(rel)); ok {
			return true
		}
	}
	return false
}

// ClassifyPath determines which configured internal locale a file on
// disk belongs to, recognizing Android's values/values-<qualifier>
// convention (reverse_locale_lookup, spec.md §4.2) in addition to plain
// path-segment and filename-marker conventions (pathresolver's own
// derive_target_path rules, applied in reverse).
func (s *Scanner) ClassifyPath(path string) (string, bool) {
	dir := filepath.Base(filepath.Dir(path))
	if m := valuesQualifierRe.FindStringSubmatch(dir); m != nil {
		qualifier := m[1]
		if qualifier == "" {
			return s.Locales.Source(), true
		}
		if internal, ok := s.Locales.ReverseLookup(qualifier); ok {
			return internal, true
		}
		return qualifier, true
	}

	for _, internal := range s.Locales.All() {
		dest := s.Locales.Destination(internal)
		if pathHasLocaleSegment(path, dest) || pathHasLocaleMarker(path, dest) {
			return internal, true
		}
	}
	return "", false
}

func pathHasLocaleSegment(path, code string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(filepath.Dir(path)), "/") {
		if seg == code {
			return true
		}
	}
	return false
}

func pathHasLocaleMarker(path, code string) bool {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == code {
		return true
	}
	for _, sep := range []string{".", "-", "_"} {
		if strings.HasSuffix(stem, sep+code) {
			return true
		}
	}
	return false
}

// TargetPath resolves sf's destination path for targetLocale: the
// explicit destination pattern when bound, else derive_target_path
// (spec.md §4.2).
func (s *Scanner) TargetPath(sf SourceFile, targetLocale string) string {
	dest := s.Locales.Destination(targetLocale)
	if sf.DestinationPattern != "" {
		return pathresolver.ResolveDestination(sf.DestinationPattern, dest)
	}
	return pathresolver.DeriveTargetPath(sf.Path, s.Locales.Destination(s.Locales.Source()), dest)
}
