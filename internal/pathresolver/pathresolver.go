// Package pathresolver implements the Path Resolver (spec.md §4.2): source
// to destination path derivation and locale-code-in-path detection.
package pathresolver

import (
	"path/filepath"
	"regexp"
	"strings"
)

// LocaleToken is the literal token substituted with the destination locale
// code when resolving an explicit destination pattern (spec.md §3).
const LocaleToken = "%algebras_locale_code%"

// ResolveDestination substitutes every occurrence of LocaleToken in pattern
// with destinationLocale.
func ResolveDestination(pattern, destinationLocale string) string {
	return strings.ReplaceAll(pattern, LocaleToken, destinationLocale)
}

var valuesDirRe = regexp.MustCompile(`(^|[\\/])values(-[A-Za-z0-9+]+)?([\\/])`)

// localeSegmentRe matches a path segment that is exactly the locale code,
// surrounded by path separators.
func localeSegmentRe(code string) *regexp.Regexp {
	return regexp.MustCompile(`(^|[\\/])` + regexp.QuoteMeta(code) + `([\\/])`)
}

// localePrefixRe matches a path segment starting with "<code>-" or "<code>_".
func localePrefixRe(code string) *regexp.Regexp {
	return regexp.MustCompile(`([\\/])` + regexp.QuoteMeta(code) + `([_-])`)
}

// DeriveTargetPath implements derive_target_path (spec.md §4.2), applied in
// priority order when no explicit destination pattern exists.
func DeriveTargetPath(sourcePath, sourceLocale, targetLocale string) string {
	// 1. Android values directory.
	if loc := valuesDirRe.FindStringSubmatchIndex(sourcePath); loc != nil {
		dir, file := filepath.Split(sourcePath)
		base := filepath.Base(strings.TrimRight(dir, string(filepath.Separator)))
		if base == "values" || strings.HasPrefix(base, "values-") {
			parent := filepath.Dir(strings.TrimRight(dir, string(filepath.Separator)))
			newDir := filepath.Join(parent, "values-"+targetLocale)
			return filepath.Join(newDir, file)
		}
	}

	// 2. Locale segment in path: /<src>/ -> /<target>/.
	if re := localeSegmentRe(sourceLocale); re.MatchString(sourcePath) {
		return re.ReplaceAllString(sourcePath, "${1}"+targetLocale+"${2}")
	}

	// 3. Locale-prefixed segment: <src>-... or <src>_... -> <target>...
	if re := localePrefixRe(sourceLocale); re.MatchString(sourcePath) {
		return re.ReplaceAllString(sourcePath, "${1}"+targetLocale+"${2}")
	}

	// 4. Locale marker in filename: name.<src>.ext -> name.<target>.ext (also - and _).
	base := filepath.Base(sourcePath)
	dir := filepath.Dir(sourcePath)
	for _, sep := range []string{".", "-", "_"} {
		marker := sep + sourceLocale + sep
		if idx := strings.Index(base, marker); idx >= 0 {
			newBase := base[:idx] + sep + targetLocale + sep + base[idx+len(marker):]
			return filepath.Join(dir, newBase)
		}
		// also support marker at end before extension: name.<src>.ext where
		// sep=="." is the only valid trailing case; "-"/"_" as suffix before ext
		// handled generically below via extension split.
	}

	// Filename-marker fallback for a file named exactly by the locale
	// ("en.json") or a trailing "name.<src>" immediately before the final
	// extension, e.g. "strings.fr.json".
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == sourceLocale {
		return filepath.Join(dir, targetLocale+ext)
	}
	for _, sep := range []string{".", "-", "_"} {
		suffix := sep + sourceLocale
		if strings.HasSuffix(stem, suffix) {
			newStem := strings.TrimSuffix(stem, suffix) + sep + targetLocale
			return filepath.Join(dir, newStem+ext)
		}
	}

	// 5. Fallback: append .<target> before the extension, except when the
	// source path already sits in a locale-specific directory or Android
	// values/ directory (preserve filename in that case).
	if inLocaleDir(sourcePath, sourceLocale) || inValuesDir(sourcePath) {
		return sourcePath
	}
	return filepath.Join(dir, stem+"."+targetLocale+ext)
}

func inLocaleDir(p, locale string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(filepath.Dir(p)), "/") {
		if seg == locale {
			return true
		}
	}
	return false
}

func inValuesDir(p string) bool {
	dir := filepath.Base(filepath.Dir(p))
	return dir == "values" || strings.HasPrefix(dir, "values-")
}
