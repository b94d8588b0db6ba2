package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const boilerRoomScenario = `name: boiler_room
description: "One inspection is saved and counted"
flow:
  - submit:
      location: "Boiler room"
      equipment: ["Sprinkler"]
    expect:
      outcome: success
      id: 1
assertions:
  - type: count
    count: 1
`

const wrongCountScenario = `name: wrong_count
description: "Asserts a count the flow cannot produce"
flow:
  - submit:
      location: "Lobby"
assertions:
  - type: count
    count: 3
`

// writeScenarios lays out dir/scenarios/<file> and returns the scenarios
// directory.
func writeScenarios(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "scenarios")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestTest_HarnessScenariosPass(t *testing.T) {
	stdout, _, err := execute(t, nil, "test", filepath.Join("..", "harness", "testdata", "scenarios"))
	require.NoError(t, err, stdout)

	assert.Contains(t, stdout, "✓ two_inspections")
	assert.Contains(t, stdout, "✓ storage_fault")
	assert.Contains(t, stdout, "Test Summary: 4 passed, 0 failed, 4 total")
	assert.Contains(t, stdout, "✓ All scenarios passed")
}

func TestTest_UpdateThenCompare(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"boiler_room.yaml": boilerRoomScenario})
	goldenPath := filepath.Join(filepath.Dir(dir), "golden", "boiler_room.golden")

	stdout, _, err := execute(t, nil, "test", dir, "--update")
	require.NoError(t, err, stdout)
	assert.Contains(t, stdout, "✓ boiler_room (golden updated)")

	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name": "boiler_room"`)
	assert.Contains(t, string(golden), `"location": "Boiler room"`)

	stdout, _, err = execute(t, nil, "test", dir)
	require.NoError(t, err, stdout)
	assert.Contains(t, stdout, "Test Summary: 1 passed, 0 failed, 1 total")

	require.NoError(t, os.WriteFile(goldenPath, []byte("{}\n"), 0o644))
	stdout, _, err = execute(t, nil, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ boiler_room")
	assert.Contains(t, stdout, "trace does not match golden file")
}

func TestTest_GoldenDirFlag(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"boiler_room.yaml": boilerRoomScenario})
	goldenDir := filepath.Join(t.TempDir(), "elsewhere")

	_, _, err := execute(t, nil, "test", dir, "--update", "--golden", goldenDir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(goldenDir, "boiler_room.golden"))
	assert.NoDirExists(t, filepath.Join(filepath.Dir(dir), "golden"))
}

func TestTest_FailedAssertionJSON(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"boiler_room.yaml": boilerRoomScenario,
		"wrong_count.yaml": wrongCountScenario,
	})

	stdout, _, err := execute(t, nil, "test", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, 1, resp.Data.Failed)

	require.Len(t, resp.Data.Scenarios, 2)
	failed := resp.Data.Scenarios[1]
	assert.Equal(t, "wrong_count", failed.Name)
	assert.False(t, failed.Pass)
	assert.NotEmpty(t, failed.Errors)
}

func TestTest_Filter(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"boiler_room.yaml": boilerRoomScenario,
		"wrong_count.yaml": wrongCountScenario,
	})

	stdout, _, err := execute(t, nil, "test", dir, "--filter", "boiler_*")
	require.NoError(t, err, stdout)
	assert.Contains(t, stdout, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.NotContains(t, stdout, "wrong_count")

	stdout, _, err = execute(t, nil, "test", dir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E001]")
}

func TestTest_CommandErrors(t *testing.T) {
	stdout, _, err := execute(t, nil, "test", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "scenarios directory not found")

	dir := writeScenarios(t, map[string]string{"broken.yaml": "name: broken\nunknown_key: 1\n"})
	stdout, _, err = execute(t, nil, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E004]: failed to load scenarios")
}
