// Package render turns the Job template blueprint into a per-event manifest:
// TERCC payload and correlation id injected into every container env,
// external configmap references appended, suite-runner image overridden.
// Rendering is all-or-nothing: a failed render returns nothing to submit.
package render

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/lei/suite-starter/internal/models"
	"github.com/lei/suite-starter/internal/patch"
	"github.com/lei/suite-starter/internal/template"
)

// Env variable names injected into every container
const (
	EnvTERCC         = "TERCC"
	EnvCorrelationID = "ETOS_CORRELATION_ID"
)

// Error indicates the template cannot be rendered into a valid manifest,
// e.g. the suite-runner container the image override targets is missing.
// An un-patched runner image would execute the wrong test binary, so this
// is surfaced rather than skipped.
type Error struct {
	Msg string
}

func (e *Error) Error() string {
	return "render manifest: " + e.Msg
}

// Input carries the per-event values injected into the template
type Input struct {
	Event         models.Event
	CorrelationID string
	ConfigMaps    []string
	RunnerImage   string
}

// Renderer patches template clones into rendered manifests
type Renderer struct {
	runnerContainer string
}

// New creates a renderer targeting the container with the given name for
// the suite-runner image override
func New(runnerContainer string) *Renderer {
	return &Renderer{runnerContainer: runnerContainer}
}

// Render deep-copies the template and patches it for one event.
// The template itself is never mutated.
func (r *Renderer) Render(tmpl *template.Template, in Input) (*Manifest, error) {
	root := tmpl.Clone()

	tercc, err := json.Marshal(in.Event)
	if err != nil {
		return nil, &Error{Msg: fmt.Sprintf("serialize TERCC: %v", err)}
	}

	envLists := 0
	for _, m := range patch.Find(root, "env") {
		if m.Value.Kind != yaml.SequenceNode {
			continue
		}
		upsertEnv(m.Value, EnvTERCC, string(tercc))
		upsertEnv(m.Value, EnvCorrelationID, in.CorrelationID)
		envLists++
	}
	if envLists == 0 {
		return nil, &Error{Msg: "template has no container env list to receive the TERCC payload"}
	}

	for _, m := range patch.Find(root, "envFrom") {
		if m.Value.Kind != yaml.SequenceNode {
			continue
		}
		appendConfigMaps(m.Value, in.ConfigMaps)
	}

	if !r.overrideRunnerImage(root, in.RunnerImage) {
		return nil, &Error{Msg: fmt.Sprintf("no container named %q to receive the suite runner image", r.runnerContainer)}
	}

	return &Manifest{root: root}, nil
}

// upsertEnv sets name=value in a container env sequence. Names are unique
// per container: an existing entry is updated in place, never duplicated.
func upsertEnv(env *yaml.Node, name, value string) {
	for _, item := range env.Content {
		if item.Kind != yaml.MappingNode {
			continue
		}
		existing := patch.MapGet(item, "name")
		if existing != nil && existing.Value == name {
			patch.MapSet(item, "value", patch.Scalar(value))
			return
		}
	}
	patch.Append(env, patch.Mapping("name", name, "value", value))
}

// appendConfigMaps adds one configMapRef entry per external name not
// already present in the collection. Template-defined references are kept.
func appendConfigMaps(envFrom *yaml.Node, names []string) {
	existing := make(map[string]bool)
	for _, m := range patch.Find(envFrom, "configMapRef") {
		if name := patch.MapGet(m.Value, "name"); name != nil {
			existing[name.Value] = true
		}
	}

	for _, name := range names {
		if name == "" || existing[name] {
			continue
		}
		patch.Append(envFrom, patch.Mapping(
			"configMapRef", patch.Mapping("name", name),
		))
		existing[name] = true
	}
}

// overrideRunnerImage rewrites exactly the image of the suite-runner
// container, leaving every other image field untouched
func (r *Renderer) overrideRunnerImage(root *yaml.Node, image string) bool {
	overridden := false
	for _, m := range patch.Find(root, "image") {
		name := patch.MapGet(m.Owner, "name")
		if name == nil || name.Value != r.runnerContainer {
			continue
		}
		m.Value.Value = image
		m.Value.Tag = "!!str"
		overridden = true
	}
	return overridden
}

// Manifest is a fully rendered Job manifest, created fresh per event and
// never reused after submission
type Manifest struct {
	root *yaml.Node
}

// Root exposes the underlying node tree
func (m *Manifest) Root() *yaml.Node {
	return m.root
}

// AsMap decodes the manifest into a plain nested map
func (m *Manifest) AsMap() (map[string]interface{}, error) {
	return patch.ToMap(m.root)
}

// JSON serializes the manifest for cluster-API submission
func (m *Manifest) JSON() ([]byte, error) {
	tree, err := m.AsMap()
	if err != nil {
		return nil, err
	}
	return json.Marshal(tree)
}

// YAML serializes the manifest as a YAML document
func (m *Manifest) YAML() ([]byte, error) {
	return yaml.Marshal(m.root)
}
