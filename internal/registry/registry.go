package registry

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format is the capability set a file-format handler must provide
// (spec.md §4.1). WriteInPlace is optional; handlers that cannot support
// it leave InPlaceCapable false and Writer Selection (§4.5) falls back to
// WriteFull.
type Format interface {
	// Name identifies the format for logging (e.g. "json", "android-xml").
	Name() string
	// Read parses path into a ResourceMap.
	Read(path string) (*ResourceMap, error)
	// WriteFull overwrites path from scratch using m.
	WriteFull(path string, m *ResourceMap) error
	// InPlaceCapable reports whether WriteInPlace is implemented.
	InPlaceCapable() bool
	// WriteInPlace updates only keysToUpdate in the file at path, leaving
	// every other byte identical to the pre-write file (spec.md §4.5). Only
	// called when InPlaceCapable() is true. original is the ResourceMap
	// read from path before merging (needed to diff what actually changed);
	// merged is the post-translation map to write from.
	WriteInPlace(path string, original, merged *ResourceMap, keysToUpdate KeySet) error
}

// Registry dispatches to a Format by file extension.
type Registry struct {
	byExt map[string]Format
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{byExt: make(map[string]Format)}
}

// Register associates one or more extensions (including the leading dot,
// lowercase, e.g. ".json") with a Format.
func (r *Registry) Register(f Format, exts ...string) {
	for _, e := range exts {
		r.byExt[strings.ToLower(e)] = f
	}
}

// Lookup returns the Format registered for path's extension.
func (r *Registry) Lookup(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	f, ok := r.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("registry: no format handler registered for extension %q (path %s)", ext, path)
	}
	return f, nil
}
