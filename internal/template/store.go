// Package template loads the Job manifest blueprint used for every suite
// start. The blueprint is parsed once at startup and never mutated; each
// render works on an independent deep copy.
package template

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lei/suite-starter/internal/patch"
)

// LoadError indicates the template file is missing or not a usable mapping
// document. It is fatal at startup: without a template no event can be
// processed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load job template %q: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Template is the immutable Job manifest blueprint
type Template struct {
	path string
	root *yaml.Node
}

// Load reads and parses the template file. The document root must be a
// mapping; anything else cannot describe a Job manifest.
func Load(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("parse template: %w", err)}
	}

	root := documentRoot(&doc)
	if root == nil || root.Kind != yaml.MappingNode {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("template root is not a mapping")}
	}

	return &Template{path: path, root: root}, nil
}

// Path returns the file path the template was loaded from
func (t *Template) Path() string {
	return t.path
}

// Clone returns an independent working copy of the blueprint
func (t *Template) Clone() *yaml.Node {
	return patch.Clone(t.root)
}

// Find searches the blueprint without copying it. The returned matches
// reference the shared blueprint and must be treated as read-only.
func (t *Template) Find(keys ...string) []patch.Match {
	return patch.Find(t.root, keys...)
}

func documentRoot(doc *yaml.Node) *yaml.Node {
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return doc.Content[0]
	}
	return nil
}
