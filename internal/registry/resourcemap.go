// Package registry implements the Format Registry (spec.md §4.1): the
// capability-based dispatch table keyed by file extension, plus the shared
// ResourceMap data model (spec.md §3) used by every format handler.
//
// Generalized from the teacher's per-format File structs (pofile.File,
// android.File, yamlfile.File): rather than one bespoke struct per format,
// every handler converts to/from a single order-preserving nested map and
// derives its flat dot-notation projection by DFS (spec.md §9 "Nested vs
// flat duality").
package registry

import (
	"sort"
	"strings"
)

// Node is one entry in an order-preserving nested map. A Node is either a
// leaf (Value set, Children nil) or a container (Children set).
type Node struct {
	Value    string
	IsLeaf   bool
	Children *Map
	// Opaque carries a format-specific original representation for
	// structured formats (stringsdict, XLIFF units, CSV rows) so the
	// writer can re-inject translations without reparsing from disk
	// (spec.md §9 "Structured format").
	Opaque any
}

// Map is an order-preserving string-keyed map: a slice of keys plus a
// lookup index, so insertion order survives round-trips (spec.md §3
// ResourceMap invariant, and the in-place writers' "preserve original
// insertion order" requirements).
type Map struct {
	keys  []string
	index map[string]int
	nodes map[string]*Node
}

// NewMap creates an empty order-preserving map.
func NewMap() *Map {
	return &Map{index: make(map[string]int), nodes: make(map[string]*Node)}
}

// Keys returns keys in insertion order.
func (m *Map) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Get returns the node for key, or nil if absent.
func (m *Map) Get(key string) *Node {
	return m.nodes[key]
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.nodes[key]
	return ok
}

// Set inserts or replaces the node at key, preserving original position on
// replace and appending on insert (the in-place writers' "append new keys
// at the end" rule, spec.md §4.1).
func (m *Map) Set(key string, n *Node) {
	if _, exists := m.nodes[key]; !exists {
		m.index[key] = len(m.keys)
		m.keys = append(m.keys, key)
	}
	m.nodes[key] = n
}

// SetLeaf is a convenience for Set(key, &Node{Value: v, IsLeaf: true}).
func (m *Map) SetLeaf(key, value string) {
	m.Set(key, &Node{Value: value, IsLeaf: true})
}

// SetContainer is a convenience for Set(key, &Node{Children: child}).
func (m *Map) SetContainer(key string, child *Map) {
	m.Set(key, &Node{Children: child})
}

// Len returns the number of direct keys.
func (m *Map) Len() int { return len(m.keys) }

// ResourceMap is the in-memory representation of one resource file
// (spec.md §3), polymorphic over format via the root nested Map.
type ResourceMap struct {
	Root *Map
	// SourceOrderIsAuthoritative records whether Root's insertion order is
	// the file's own order (true for every map NewResourceMap builds; Clone
	// copies it). No writer in this module reads it: every writer emits
	// keys in Root's insertion order.
	SourceOrderIsAuthoritative bool
}

// NewResourceMap creates an empty ResourceMap.
func NewResourceMap() *ResourceMap {
	return &ResourceMap{Root: NewMap(), SourceOrderIsAuthoritative: true}
}

// Flatten performs the DFS dot-notation flattening described in spec.md §3
// and §9: every leaf becomes one `path -> value` pair. Non-leaf, non-
// container nodes (e.g. a structured node carrying only Opaque) are
// skipped; callers needing the structured data read Opaque directly.
func (r *ResourceMap) Flatten() *OrderedStrings {
	out := NewOrderedStrings()
	flattenInto(r.Root, "", out)
	return out
}

func flattenInto(m *Map, prefix string, out *OrderedStrings) {
	if m == nil {
		return
	}
	for _, k := range m.Keys() {
		n := m.Get(k)
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		switch {
		case n.Children != nil:
			flattenInto(n.Children, path, out)
		case n.IsLeaf:
			out.Set(path, n.Value)
		}
	}
}

// SetPath writes value at a dot-notation path, creating intermediate
// containers as needed (spec.md §4.4: "creating intermediate nested
// containers as needed").
func (r *ResourceMap) SetPath(path, value string) {
	setPathInto(r.Root, strings.Split(path, "."), value)
}

func setPathInto(m *Map, segments []string, value string) {
	if len(segments) == 1 {
		if existing := m.Get(segments[0]); existing != nil && existing.Children != nil {
			// A container already lives at this exact path; the SetLeaf below
			// replaces it. Well-formed dot-paths derived from Flatten never
			// reach this case.
		}
		m.SetLeaf(segments[0], value)
		return
	}
	head, rest := segments[0], segments[1:]
	n := m.Get(head)
	if n == nil || n.Children == nil {
		child := NewMap()
		m.SetContainer(head, child)
		n = m.Get(head)
	}
	setPathInto(n.Children, rest, value)
}

// GetPath reads the string value at a dot-notation path.
func (r *ResourceMap) GetPath(path string) (string, bool) {
	return getPathFrom(r.Root, strings.Split(path, "."))
}

func getPathFrom(m *Map, segments []string) (string, bool) {
	if m == nil {
		return "", false
	}
	n := m.Get(segments[0])
	if n == nil {
		return "", false
	}
	if len(segments) == 1 {
		if n.IsLeaf {
			return n.Value, true
		}
		return "", false
	}
	return getPathFrom(n.Children, segments[1:])
}

// Clone performs a deep copy, used by the Translator Driver to write
// translations into "a copy of the target ResourceMap" (spec.md §4.4).
func (r *ResourceMap) Clone() *ResourceMap {
	return &ResourceMap{Root: cloneMap(r.Root), SourceOrderIsAuthoritative: r.SourceOrderIsAuthoritative}
}

func cloneMap(m *Map) *Map {
	if m == nil {
		return nil
	}
	out := NewMap()
	for _, k := range m.Keys() {
		n := m.Get(k)
		nc := &Node{Value: n.Value, IsLeaf: n.IsLeaf, Opaque: n.Opaque}
		if n.Children != nil {
			nc.Children = cloneMap(n.Children)
		}
		out.Set(k, nc)
	}
	return out
}

// OrderedStrings is an insertion-ordered string->string map: the flat
// projection type (KeySet's carrier, spec.md §3).
type OrderedStrings struct {
	keys   []string
	index  map[string]int
	values map[string]string
}

func NewOrderedStrings() *OrderedStrings {
	return &OrderedStrings{index: make(map[string]int), values: make(map[string]string)}
}

func (o *OrderedStrings) Set(key, value string) {
	if _, exists := o.values[key]; !exists {
		o.index[key] = len(o.keys)
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

func (o *OrderedStrings) Get(key string) (string, bool) {
	v, ok := o.values[key]
	return v, ok
}

func (o *OrderedStrings) Has(key string) bool {
	_, ok := o.values[key]
	return ok
}

func (o *OrderedStrings) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

func (o *OrderedStrings) Len() int { return len(o.keys) }

// SortedKeys returns Keys() sorted lexicographically, used by flat-format
// writers that don't preserve an existing file's order (spec.md §5:
// "sorted for flat formats unless preserving existing order").
func (o *OrderedStrings) SortedKeys() []string {
	out := o.Keys()
	sort.Strings(out)
	return out
}

// KeySet is an unordered set of dot-notation key paths (spec.md §3).
type KeySet map[string]struct{}

func NewKeySet(keys ...string) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

func (s KeySet) Add(k string)      { s[k] = struct{}{} }
func (s KeySet) Has(k string) bool { _, ok := s[k]; return ok }
func (s KeySet) Len() int          { return len(s) }

// Slice returns the set's members in unspecified order.
func (s KeySet) Slice() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}

// SortedSlice returns the set's members sorted lexicographically, for
// deterministic iteration (batching, logging).
func (s KeySet) SortedSlice() []string {
	out := s.Slice()
	sort.Strings(out)
	return out
}

// Union returns a new set containing the members of both sets.
func Union(a, b KeySet) KeySet {
	out := make(KeySet, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}

// Difference returns the members of a not present in b (a \ b).
func Difference(a, b KeySet) KeySet {
	out := make(KeySet)
	for k := range a {
		if _, ok := b[k]; !ok {
			out[k] = struct{}{}
		}
	}
	return out
}

// Intersect returns the members present in both a and b.
func Intersect(a, b KeySet) KeySet {
	out := make(KeySet)
	for k := range a {
		if _, ok := b[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out
}
