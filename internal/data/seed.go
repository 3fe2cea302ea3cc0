package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadStateSeed loads a yaml mapping to use as the initial state tree.
func LoadStateSeed(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read state seed: %w", err)
	}
	tree, err := ParseStateSeed(raw)
	if err != nil {
		return nil, fmt.Errorf("parse state seed %s: %w", path, err)
	}
	return tree, nil
}

// ParseStateSeed decodes a yaml mapping. Nested mappings come back as
// map[string]any and sequences as []any; an empty document is an empty tree.
func ParseStateSeed(raw []byte) (map[string]any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return map[string]any{}, nil
	}
	if doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: state seed must be a mapping", doc.Content[0].Line)
	}
	var tree map[string]any
	if err := doc.Content[0].Decode(&tree); err != nil {
		return nil, err
	}
	if tree == nil {
		tree = map[string]any{}
	}
	return tree, nil
}
