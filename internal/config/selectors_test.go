package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSelectorsAreValid(t *testing.T) {
	selectors := DefaultSelectors()
	require.NoError(t, selectors.Validate())
	assert.NotEmpty(t, selectors.Steps)

	// The final step must land on the full product table.
	last := selectors.Steps[len(selectors.Steps)-1]
	assert.Equal(t, "show full product table", last.Name)
	assert.False(t, last.Optional)
}

func TestLoadSelectorsMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "selectors.yaml")
	profile := `
table:
  next_match: "Siguiente"
login:
  email: "#login-email"
`
	require.NoError(t, os.WriteFile(path, []byte(profile), 0o644))

	selectors, err := LoadSelectors(path)
	require.NoError(t, err)

	defaults := DefaultSelectors()
	assert.Equal(t, "Siguiente", selectors.Table.NextMatch)
	assert.Equal(t, "#login-email", selectors.Login.Email)
	// Untouched fields keep their defaults.
	assert.Equal(t, defaults.Table.Rows, selectors.Table.Rows)
	assert.Equal(t, defaults.Login.Password, selectors.Login.Password)
	assert.Equal(t, defaults.Steps, selectors.Steps)
}

func TestLoadSelectorsReplacesSteps(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "selectors.yaml")
	profile := `
steps:
  - name: open listing
    selector: "a.listing"
`
	require.NoError(t, os.WriteFile(path, []byte(profile), 0o644))

	selectors, err := LoadSelectors(path)
	require.NoError(t, err)
	require.Len(t, selectors.Steps, 1)
	assert.Equal(t, "open listing", selectors.Steps[0].Name)
}

func TestLoadSelectorsRejectsBrokenProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "selectors.yaml")
	profile := `
login:
  email: ""
`
	require.NoError(t, os.WriteFile(path, []byte(profile), 0o644))

	_, err := LoadSelectors(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login selectors")
}

func TestLoadSelectorsMissingFile(t *testing.T) {
	_, err := LoadSelectors(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestStepValidation(t *testing.T) {
	selectors := DefaultSelectors()
	selectors.Steps = []Step{{Name: "", Selector: "button"}}
	err := selectors.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no name")

	selectors.Steps = []Step{{Name: "broken", Selector: ""}}
	err = selectors.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no selector")
}
