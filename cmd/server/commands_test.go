package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const workflowsYAML = `
workflows:
  - name: Software install
    type: software
    steps:
      - name: Manager approval
        required_role: manager
        action: approve
      - name: IT review
        required_role: it_staff
        action: approve
  - name: Network access
    type: network
    steps:
      - name: Security review
        required_role: it_staff
        action: review
`

// run executes the CLI against a temporary database
func run(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ITSM_DATABASE_PATH", dbPath)
	t.Setenv("ITSM_LOGGER_OUTPUT_PATH", "stderr")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", ""}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestMigrateCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "itsm.db")

	out, err := run(t, dbPath, "migrate")
	require.NoError(t, err)
	assert.NotContains(t, out, "applied 0")

	out, err = run(t, dbPath, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "applied 0 migration(s)", "second run is a no-op")
}

func TestSeedCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "itsm.db")
	file := writeFile(t, "workflows.yaml", workflowsYAML)

	out, err := run(t, dbPath, "seed", "--file", file)
	require.NoError(t, err)
	assert.Contains(t, out, "created 2 workflow(s), skipped 0 existing")

	out, err = run(t, dbPath, "seed", "--file", file)
	require.NoError(t, err)
	assert.Contains(t, out, "created 0 workflow(s), skipped 2 existing")
}

func TestSeedCommand_RejectsGaps(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "itsm.db")
	file := writeFile(t, "gaps.yaml", `
workflows:
  - name: Broken
    steps:
      - order: 1
        name: First
        required_role: manager
        action: approve
      - order: 3
        name: Third
        required_role: it_staff
        action: approve
`)

	_, err := run(t, dbPath, "seed", "--file", file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `workflow "Broken"`)
}

func TestSeedCommand_MissingFile(t *testing.T) {
	_, err := run(t, filepath.Join(t.TempDir(), "itsm.db"), "seed", "--file", "/nonexistent/workflows.yaml")
	require.Error(t, err)
}
