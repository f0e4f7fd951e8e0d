// Package yamlfmt implements the YAML translation format handler (spec.md
// §4.1 "YAML (.yml/.yaml)"), adapted from the teacher's yamlfile package's
// yaml.Node-based style-preserving parse/marshal, generalized from a flat
// Entry list to the shared nested ResourceMap.
//
// Rails-i18n style (a single top-level locale key wrapping the real tree,
// e.g. "en:\n  greeting: Hi") is handled when Handler.RailsStyle is set:
// the tree is unwrapped on read and re-wrapped on write under
// Handler.RootKey.
package yamlfmt

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/algebras-go/algebras/internal/registry"
)

// Handler implements registry.Format for YAML resource files.
// RailsStyle, when true, wraps/unwraps the tree under a single top-level
// locale key named by RootKey on read/write (spec.md §4.1).
type Handler struct {
	RailsStyle bool
	RootKey    string
}

func (Handler) Name() string { return "yaml" }

func (h Handler) Read(path string) (*registry.ResourceMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	rm := registry.NewResourceMap()
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return rm, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("YAML root must be a mapping in %s", path)
	}
	if h.RailsStyle && len(root.Content) == 2 && root.Content[0].Kind == yaml.ScalarNode && root.Content[1].Kind == yaml.MappingNode {
		collectNode(root.Content[1], rm.Root)
		return rm, nil
	}
	collectNode(root, rm.Root)
	return rm, nil
}

func collectNode(node *yaml.Node, m *registry.Map) {
	if node.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		switch valNode.Kind {
		case yaml.MappingNode:
			child := registry.NewMap()
			collectNode(valNode, child)
			m.SetContainer(keyNode.Value, child)
		case yaml.ScalarNode:
			switch valNode.Tag {
			case "!!bool", "!!int", "!!float", "!!null":
				continue
			}
			m.Set(keyNode.Value, &registry.Node{Value: valNode.Value, IsLeaf: true, Opaque: valNode.Style})
		}
	}
}

func (h Handler) InPlaceCapable() bool { return true }

// WriteFull builds a fresh node tree from m and marshals it — used when no
// prior file exists to preserve style from (spec.md §4.5 full-write path).
func (h Handler) WriteFull(path string, m *registry.ResourceMap) error {
	root := buildNode(m.Root)
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}
	if h.RailsStyle {
		wrapped := &yaml.Node{
			Kind: yaml.MappingNode,
			Content: []*yaml.Node{
				{Kind: yaml.ScalarNode, Value: h.RootKey},
				root,
			},
		}
		doc.Content = []*yaml.Node{wrapped}
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	return os.WriteFile(path, data, 0644)
}

func buildNode(m *registry.Map) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range m.Keys() {
		node := m.Get(k)
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: k}
		if node.Children != nil {
			n.Content = append(n.Content, keyNode, buildNode(node.Children))
			continue
		}
		valNode := &yaml.Node{Kind: yaml.ScalarNode, Value: node.Value}
		if style, ok := node.Opaque.(yaml.Style); ok {
			valNode.Style = style
		} else if node.Value == "" {
			valNode.Style = yaml.DoubleQuotedStyle
		}
		n.Content = append(n.Content, keyNode, valNode)
	}
	return n
}

// WriteInPlace re-parses the file fresh (for full style/comment fidelity,
// per the teacher's Marshal-mutates-the-parsed-node approach) and updates
// only the scalar nodes named in keysToUpdate, leaving untouched nodes (and
// their styles/comments) exactly as yaml.v3 re-emits them.
func (h Handler) WriteInPlace(path string, original, merged *registry.ResourceMap, keysToUpdate registry.KeySet) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(doc.Content) == 0 {
		return h.WriteFull(path, merged)
	}
	root := doc.Content[0]
	target := root
	if h.RailsStyle && len(root.Content) == 2 && root.Content[1].Kind == yaml.MappingNode {
		target = root.Content[1]
	}

	for _, k := range keysToUpdate.SortedSlice() {
		v, ok := merged.GetPath(k)
		if !ok {
			continue
		}
		applyPath(target, k, v)
	}

	outData, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	return os.WriteFile(path, outData, 0644)
}

// applyPath finds (or creates) the scalar node at dot-path and sets its value.
func applyPath(node *yaml.Node, path string, value string) {
	segs := splitPath(path)
	cur := node
	for i, seg := range segs {
		last := i == len(segs)-1
		idx := findKey(cur, seg)
		if idx < 0 {
			keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: seg}
			var valNode *yaml.Node
			if last {
				valNode = &yaml.Node{Kind: yaml.ScalarNode, Value: value}
			} else {
				valNode = &yaml.Node{Kind: yaml.MappingNode}
			}
			cur.Content = append(cur.Content, keyNode, valNode)
			cur = valNode
			continue
		}
		valNode := cur.Content[idx+1]
		if last {
			valNode.Value = value
			if valNode.Value == "" {
				valNode.Style = yaml.DoubleQuotedStyle
			}
			return
		}
		if valNode.Kind != yaml.MappingNode {
			valNode.Kind = yaml.MappingNode
			valNode.Value = ""
			valNode.Content = nil
		}
		cur = valNode
	}
}

func findKey(node *yaml.Node, key string) int {
	if node.Kind != yaml.MappingNode {
		return -1
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return i
		}
	}
	return -1
}

func splitPath(path string) []string {
	var segs []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			segs = append(segs, path[start:i])
			start = i + 1
		}
	}
	segs = append(segs, path[start:])
	return segs
}
