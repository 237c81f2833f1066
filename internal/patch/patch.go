// Package patch provides generic key search and rewriting over YAML node
// trees. The template's Job/container/env structure is irregular
// (lists-of-maps nested inside maps nested inside lists), so locating
// fields by name anywhere in the tree is done with a recursive walk rather
// than hard-coded paths. Nodes are used instead of map[string]interface{}
// so traversal follows document order.
package patch

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Match is one occurrence of a searched key inside a mapping node.
// Value is the entry's value node and Owner the mapping that contains the
// entry, so call sites can inspect sibling fields or rewrite in place.
type Match struct {
	Key   string
	Value *yaml.Node
	Owner *yaml.Node
}

// Find walks the tree rooted at node and returns every mapping entry whose
// key equals one of keys, in document order. It recurses into every mapping
// value and into every mapping element of a sequence value; non-mapping
// sequence elements are skipped. Find never mutates the tree.
func Find(node *yaml.Node, keys ...string) []Match {
	if node == nil || len(keys) == 0 {
		return nil
	}

	keySet := make(map[string]bool, len(keys))
	for _, k := range keys {
		keySet[k] = true
	}

	var matches []Match
	walk(node, keySet, &matches)
	return matches
}

func walk(node *yaml.Node, keys map[string]bool, matches *[]Match) {
	switch node.Kind {
	case yaml.DocumentNode:
		for _, child := range node.Content {
			walk(child, keys, matches)
		}

	case yaml.SequenceNode:
		for _, item := range node.Content {
			if item.Kind == yaml.MappingNode {
				walk(item, keys, matches)
			}
		}

	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode := node.Content[i]
			valueNode := node.Content[i+1]

			if keyNode.Kind == yaml.ScalarNode && keys[keyNode.Value] {
				*matches = append(*matches, Match{
					Key:   keyNode.Value,
					Value: valueNode,
					Owner: node,
				})
			}

			switch valueNode.Kind {
			case yaml.MappingNode:
				walk(valueNode, keys, matches)
			case yaml.SequenceNode:
				for _, item := range valueNode.Content {
					if item.Kind == yaml.MappingNode {
						walk(item, keys, matches)
					}
				}
			}
		}
	}
}

// Clone returns a structurally independent deep copy of node.
// Alias nodes are resolved into plain copies of their target.
func Clone(node *yaml.Node) *yaml.Node {
	if node == nil {
		return nil
	}
	if node.Kind == yaml.AliasNode {
		return Clone(node.Alias)
	}

	out := &yaml.Node{
		Kind:        node.Kind,
		Style:       node.Style,
		Tag:         node.Tag,
		Value:       node.Value,
		HeadComment: node.HeadComment,
		LineComment: node.LineComment,
		FootComment: node.FootComment,
	}
	if len(node.Content) > 0 {
		out.Content = make([]*yaml.Node, len(node.Content))
		for i, child := range node.Content {
			out.Content[i] = Clone(child)
		}
	}
	return out
}

// MapGet returns the value node for key in a mapping node, or nil
func MapGet(mapping *yaml.Node, key string) *yaml.Node {
	if mapping == nil || mapping.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Kind == yaml.ScalarNode && mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

// MapSet sets key to value in a mapping node, replacing an existing entry
// or appending a new one
func MapSet(mapping *yaml.Node, key string, value *yaml.Node) {
	if mapping == nil || mapping.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Kind == yaml.ScalarNode && mapping.Content[i].Value == key {
			mapping.Content[i+1] = value
			return
		}
	}
	mapping.Content = append(mapping.Content, Scalar(key), value)
}

// Append adds items to the end of a sequence node
func Append(seq *yaml.Node, items ...*yaml.Node) {
	if seq == nil || seq.Kind != yaml.SequenceNode {
		return
	}
	seq.Content = append(seq.Content, items...)
}

// Scalar builds a string scalar node
func Scalar(value string) *yaml.Node {
	return &yaml.Node{
		Kind:  yaml.ScalarNode,
		Tag:   "!!str",
		Value: value,
	}
}

// Mapping builds a mapping node from alternating string keys and value nodes
func Mapping(pairs ...interface{}) *yaml.Node {
	node := &yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  "!!map",
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		key, _ := pairs[i].(string)
		switch v := pairs[i+1].(type) {
		case *yaml.Node:
			node.Content = append(node.Content, Scalar(key), v)
		case string:
			node.Content = append(node.Content, Scalar(key), Scalar(v))
		}
	}
	return node
}

// Sequence builds a sequence node from the given items
func Sequence(items ...*yaml.Node) *yaml.Node {
	return &yaml.Node{
		Kind:    yaml.SequenceNode,
		Tag:     "!!seq",
		Content: items,
	}
}

// ToMap decodes a node tree into a plain nested map, for boundaries that
// speak JSON rather than YAML nodes
func ToMap(node *yaml.Node) (map[string]interface{}, error) {
	if node == nil {
		return nil, fmt.Errorf("decode nil node")
	}
	var out map[string]interface{}
	if err := node.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode node tree: %w", err)
	}
	return out, nil
}
