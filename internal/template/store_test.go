package template

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lei/suite-starter/internal/patch"
)

func writeTemplate(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "template.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ValidTemplate(t *testing.T) {
	path := writeTemplate(t, `
metadata:
  name: etos-suite-runner
spec:
  template:
    spec:
      containers:
        - name: etos-suite-runner
          image: registry/suite-runner:1.0.0
`)

	tmpl, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, tmpl.Path())

	images := tmpl.Find("image")
	require.Len(t, images, 1)
	assert.Equal(t, "registry/suite-runner:1.0.0", images[0].Value.Value)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)

	var loadErr *LoadError
	assert.True(t, errors.As(err, &loadErr))
}

func TestLoad_UnparseableDocument(t *testing.T) {
	path := writeTemplate(t, "metadata: [unclosed")

	_, err := Load(path)
	require.Error(t, err)

	var loadErr *LoadError
	assert.True(t, errors.As(err, &loadErr))
}

func TestLoad_NonMappingRoot(t *testing.T) {
	path := writeTemplate(t, "- just\n- a\n- list\n")

	_, err := Load(path)
	require.Error(t, err)

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Contains(t, loadErr.Error(), "not a mapping")
}

func TestClone_DoesNotShareStructure(t *testing.T) {
	path := writeTemplate(t, `
spec:
  containers:
    - name: runner
      image: original
`)

	tmpl, err := Load(path)
	require.NoError(t, err)

	clone := tmpl.Clone()
	matches := patch.Find(clone, "image")
	require.Len(t, matches, 1)
	matches[0].Value.Value = "mutated"

	blueprint := tmpl.Find("image")
	require.Len(t, blueprint, 1)
	assert.Equal(t, "original", blueprint[0].Value.Value)
}
