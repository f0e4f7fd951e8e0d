// Package locale implements the LocaleCode data model (spec.md §3): the
// internal/destination projection and the tagged-variant parsing of the
// `languages` config list described in spec.md §9 "Locale code mapping".
package locale

import "fmt"

// Entry is one configured language. Bare entries have internal == destination;
// Mapped entries come from a single-key `{internal: destination}` YAML map.
type Entry struct {
	Internal    string
	Destination string
}

// Set holds the full locale mapping built once at config load, in both
// directions, as recommended by spec.md §9.
type Set struct {
	order    []string          // internal codes, in configured order
	forward  map[string]string // internal -> destination
	reverse  map[string]string // destination -> internal
	sourceID string            // internal code of the source locale
}

// NewSet builds a Set from the raw `languages` list entries (already
// decoded from YAML as either a bare string or a one-entry map) and the
// configured (or default) source locale.
func NewSet(entries []Entry, sourceLocale string) (*Set, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("locale: languages list is empty")
	}
	s := &Set{
		forward: make(map[string]string, len(entries)),
		reverse: make(map[string]string, len(entries)),
	}
	for _, e := range entries {
		internal := e.Internal
		dest := e.Destination
		if dest == "" {
			dest = internal
		}
		if internal == "" {
			return nil, fmt.Errorf("locale: entry with empty internal code")
		}
		if _, exists := s.forward[internal]; exists {
			return nil, fmt.Errorf("locale: duplicate internal code %q", internal)
		}
		s.forward[internal] = dest
		s.reverse[dest] = internal
		s.order = append(s.order, internal)
	}

	if sourceLocale == "" {
		sourceLocale = s.order[0]
	}
	if _, ok := s.forward[sourceLocale]; !ok {
		return nil, fmt.Errorf("locale: source_language %q not present in languages", sourceLocale)
	}
	s.sourceID = sourceLocale
	return s, nil
}

// Source returns the internal code of the source locale.
func (s *Set) Source() string { return s.sourceID }

// Targets returns every configured locale except the source, in configured order.
func (s *Set) Targets() []string {
	out := make([]string, 0, len(s.order))
	for _, l := range s.order {
		if l != s.sourceID {
			out = append(out, l)
		}
	}
	return out
}

// All returns every configured internal locale code, in configured order
// (including the source).
func (s *Set) All() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Destination returns the destination (filename/directory) code for an
// internal locale code. Returns the input unchanged if it is not configured,
// so callers can pass through ad hoc locales encountered while scanning.
func (s *Set) Destination(internal string) string {
	if d, ok := s.forward[internal]; ok {
		return d
	}
	return internal
}

// ReverseLookup implements reverse_locale_lookup: given a destination code
// observed on disk (e.g. a `values-fr` directory suffix), returns the
// internal code it maps to, or ok=false if no configured locale uses it.
func (s *Set) ReverseLookup(destination string) (string, bool) {
	internal, ok := s.reverse[destination]
	return internal, ok
}
