package seed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
workflows:
  - name: Equipment purchase
    type: Equipment
    steps:
      - name: Manager approval
        required_role: manager
        action: approve
      - name: Intake
        required_role: it_staff
        action: review
        auto_progress: true
  - name: Retired flow
    active: false
    steps:
      - order: 2
        name: Second
        required_role: it_staff
        action: approve
      - order: 1
        name: First
        required_role: manager
        action: approve
`

func TestParseWorkflows(t *testing.T) {
	workflows, err := ParseWorkflows(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, workflows, 2)

	eq := workflows[0]
	assert.Equal(t, "Equipment", eq.Type)
	assert.True(t, eq.IsActive)
	require.Len(t, eq.Steps, 2)
	assert.Equal(t, 1, eq.Steps[0].StepOrder)
	assert.Equal(t, 2, eq.Steps[1].StepOrder)
	assert.True(t, eq.Steps[1].AutoProgress)

	retired := workflows[1]
	assert.False(t, retired.IsActive)
	assert.Equal(t, 2, retired.Steps[0].StepOrder)
	assert.Equal(t, "First", retired.Steps[1].Name)
}

func TestParseWorkflows_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", "workflows:\n  - name: x\n    colour: red\n"},
		{"missing name", "workflows:\n  - type: x\n"},
		{"not yaml", "workflows: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWorkflows(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadWorkflows_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflows.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	workflows, err := LoadWorkflows(path)
	require.NoError(t, err)
	assert.Len(t, workflows, 2)

	_, err = LoadWorkflows(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseWorkflows_EmptyDocument(t *testing.T) {
	workflows, err := ParseWorkflows(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, workflows)
}
