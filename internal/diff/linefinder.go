package diff

import (
	"bufio"
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
)

// FindLine resolves dotKey's 1-based line number inside data (the raw
// contents of path), dispatching on path's extension to the format-
// specific strategies spec.md §4.3 describes: JSON walks bracket depth
// and a path stack, YAML reconstructs the path stack from indentation,
// and every flat format does a linear scan for the quoted key (or
// `msgid "key"` for gettext).
func FindLine(path string, data []byte, dotKey string) (int, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return findLineJSON(data, dotKey)
	case ".yml", ".yaml":
		return findLineYAML(data, dotKey)
	case ".po", ".pot":
		return findLineFlat(data, dotKey, true)
	default:
		return findLineFlat(data, dotKey, false)
	}
}

// findLineJSON walks data line by line, tracking a stack of keys implied
// by brace depth, looking for the line whose innermost key path equals
// dotKey.
func findLineJSON(data []byte, dotKey string) (int, bool) {
	var stack []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if key, hasKey, opensBrace := jsonLineKey(trimmed); hasKey {
			path := strings.Join(append(append([]string{}, stack...), key), ".")
			if path == dotKey {
				return lineNo, true
			}
			if opensBrace {
				stack = append(stack, key)
			}
		}

		if strings.Count(trimmed, "}") > strings.Count(trimmed, "{") && len(stack) > 0 {
			stack = stack[:len(stack)-1]
		}
	}
	return 0, false
}

// jsonLineKey extracts a `"key":` prefix from a trimmed JSON line and
// reports whether the value side opens a nested object on the same line.
func jsonLineKey(trimmed string) (key string, ok bool, opensBrace bool) {
	if !strings.HasPrefix(trimmed, `"`) {
		return "", false, false
	}
	end := strings.Index(trimmed[1:], `"`)
	if end < 0 {
		return "", false, false
	}
	key = trimmed[1 : end+1]
	rest := strings.TrimSpace(trimmed[end+2:])
	if !strings.HasPrefix(rest, ":") {
		return "", false, false
	}
	rest = strings.TrimSpace(rest[1:])
	return key, true, strings.HasPrefix(rest, "{")
}

// findLineYAML reconstructs the key path from indentation: each line's
// leading-space count divided by two (2-space indentation) gives its depth,
// and the path stack is truncated/extended to that depth on every key.
func findLineYAML(data []byte, dotKey string) (int, bool) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	var stack []string
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimLeft(line, " ")
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		indent := len(line) - len(trimmed)
		depth := indent / 2 // assumes 2-space YAML indentation (SPEC_FULL.md open question)

		idx := strings.Index(trimmed, ":")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(trimmed[:idx])
		key = strings.Trim(key, `"'`)
		if key == "" {
			continue
		}

		if depth < len(stack) {
			stack = stack[:depth]
		}
		path := strings.Join(append(append([]string{}, stack...), key), ".")
		if path == dotKey {
			return lineNo, true
		}
		stack = append(stack[:depth], key)
	}
	return 0, false
}

// findLineFlat linearly scans for a flat-format key: `"key" = ...` /
// `key = ...` / `key=...` style entries, or `msgid "key"` for gettext.
func findLineFlat(data []byte, dotKey string, isGettext bool) (int, bool) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	needle := fmt.Sprintf("%q", dotKey)
	msgidNeedle := "msgid " + needle
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if isGettext {
			if strings.HasPrefix(strings.TrimSpace(line), msgidNeedle) {
				return lineNo, true
			}
			continue
		}
		if strings.Contains(line, needle) {
			return lineNo, true
		}
		if unquotedFlatKeyMatches(line, dotKey) {
			return lineNo, true
		}
	}
	return 0, false
}

// unquotedFlatKeyMatches handles key=value (.properties) lines, where the
// key isn't quoted at all.
func unquotedFlatKeyMatches(line, dotKey string) bool {
	trimmed := strings.TrimSpace(line)
	eq := strings.IndexAny(trimmed, "=:")
	if eq < 0 {
		return false
	}
	key := strings.TrimSpace(trimmed[:eq])
	return key == dotKey
}
