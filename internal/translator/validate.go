package translator

import (
	"fmt"
	"regexp"
)

// ValidationWarning flags a successfully translated string whose shape is
// suspicious enough to be worth a human glance, without blocking the write
// (spec.md §7 "ValidationWarning … informational only"; SPEC_FULL.md §4
// "Validation warnings on length ratio", recovered from
// original_source/algebras/utils/translation_validator.py).
type ValidationWarning struct {
	Key     string
	Message string
}

// printfPlaceholderRe matches printf-style placeholders (%s, %d, %1$s, …),
// the narrow slice of translation_validator.py's placeholder extraction
// this Driver checks (length ratio + placeholder count, per SPEC_FULL.md §4).
// The original's HTML-tag/ICU/token checks are a file/format-level concern
// already covered by each format's own structure, not the Driver's.
var printfPlaceholderRe = regexp.MustCompile(`%(\d+\$)?[0-9]*\.?[0-9]*[sdioxXucfFeEgGaAnp%]`)

// validateTranslation flags a translated string when its length is wildly
// out of proportion to its source, or when it dropped/gained printf-style
// placeholders the source had — the two checks SPEC_FULL.md §4 calls out.
func validateTranslation(key, source, target string) (ValidationWarning, bool) {
	if target == "" {
		return ValidationWarning{}, false
	}

	if msg, ok := lengthRatioIssue(source, target); ok {
		return ValidationWarning{Key: key, Message: msg}, true
	}
	if msg, ok := placeholderIssue(source, target); ok {
		return ValidationWarning{Key: key, Message: msg}, true
	}
	return ValidationWarning{}, false
}

// lengthRatioIssue flags a translation longer than 3x its source plus 10
// bytes, or shorter than a third of a source longer than 10 bytes, mirroring translation_validator.py's length-based checks
// without the original's strict char-for-char whitespace accounting.
func lengthRatioIssue(source, target string) (string, bool) {
	sl, tl := len(source), len(target)
	if sl == 0 {
		return "", false
	}
	switch {
	case tl > sl*3+10:
		return fmt.Sprintf("translation is %dx longer than source (%d vs %d chars)", tl/sl, tl, sl), true
	case tl*3 < sl && sl > 10:
		return fmt.Sprintf("translation is much shorter than source (%d vs %d chars)", tl, sl), true
	}
	return "", false
}

// placeholderIssue flags a printf-style placeholder count mismatch (e.g. a
// source "Hi %s" losing its %s), per translation_validator.py's
// check_placeholders.
func placeholderIssue(source, target string) (string, bool) {
	sourceCount := len(printfPlaceholderRe.FindAllString(source, -1))
	targetCount := len(printfPlaceholderRe.FindAllString(target, -1))
	if sourceCount == 0 {
		return "", false
	}
	if sourceCount != targetCount {
		return fmt.Sprintf("placeholder count mismatch: source has %d, translation has %d", sourceCount, targetCount), true
	}
	return "", false
}
