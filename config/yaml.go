package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseYAML builds a Node tree from a YAML document: a structured
// text tree used for batch-loading config from a file. Only mapping
// nodes recurse; scalars and sequences become leaves, serialized back
// to their literal source text (scalars) or a re-marshaled YAML block
// sequence (sequences), so a round-trip through LoadYAML -> ToText matches
// what a hand-written FromText call would have produced.
func ParseYAML(data []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if len(doc.Content) == 0 {
		return &Node{Mapping: map[string]*Node{}}, nil
	}
	return nodeFromYAML(doc.Content[0])
}

func nodeFromYAML(n *yaml.Node) (*Node, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return &Node{Mapping: map[string]*Node{}}, nil
		}
		return nodeFromYAML(n.Content[0])
	case yaml.MappingNode:
		m := make(map[string]*Node, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := strings.ToLower(strings.TrimSpace(n.Content[i].Value))
			child, err := nodeFromYAML(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m[key] = child
		}
		return &Node{Mapping: m}, nil
	case yaml.ScalarNode:
		return &Node{IsLeaf: true, Leaf: n.Value}, nil
	case yaml.SequenceNode, yaml.AliasNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("config: decode leaf: %w", err)
		}
		b, err := yaml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("config: remarshal leaf: %w", err)
		}
		return &Node{IsLeaf: true, Leaf: strings.TrimSpace(string(b))}, nil
	default:
		return &Node{IsLeaf: true, Leaf: n.Value}, nil
	}
}

// LoadYAML parses data as YAML and applies it to the default registry
// via LoadFromTree.
func LoadYAML(data []byte) error {
	return LoadYAMLInto(defaultRegistry, data)
}

// LoadYAMLInto parses data as YAML and applies it to r via
// LoadFromTree.
func LoadYAMLInto(r *Registry, data []byte) error {
	root, err := ParseYAML(data)
	if err != nil {
		return err
	}
	return LoadFromTree(r, root)
}

// LoadFromTree walks root and, for every leaf whose path matches an
// already-registered variable, applies the leaf text via FromText.
// Leaves with no matching registered variable are ignored: only names
// that were previously looked up/registered can be driven by config,
// so an unknown leaf in the file is silently inert rather than an
// error.
func LoadFromTree(r *Registry, root *Node) error {
	var firstErr error
	Walk(root, func(path, text string) {
		r.mu.RLock()
		v, ok := r.entries[path]
		r.mu.RUnlock()
		if !ok {
			return
		}
		if err := v.FromText(text); err != nil && firstErr == nil {
			firstErr = err
		}
	}, func(path string) {
		if firstErr == nil {
			firstErr = fmt.Errorf("%w: %s", ErrInvalidName, path)
		}
	})
	return firstErr
}
