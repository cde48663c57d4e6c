package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverScenarios(t *testing.T) {
	files, err := DiscoverScenarios("testdata/scenarios", "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("testdata", "scenarios", "fail_fast.yaml"),
		filepath.Join("testdata", "scenarios", "load_csv.yaml"),
		filepath.Join("testdata", "scenarios", "set_properties.yaml"),
	}, files)

	files, err = DiscoverScenarios("testdata/scenarios", "load_*")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("testdata", "scenarios", "load_csv.yaml")}, files)

	_, err = DiscoverScenarios("testdata/scenarios", "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func TestRunSuite_ExampleScenarios(t *testing.T) {
	files, err := DiscoverScenarios("testdata/scenarios", "")
	require.NoError(t, err)

	result := RunSuite(context.Background(), files, SuiteOptions{})
	for _, sr := range result.Scenarios {
		assert.True(t, sr.Pass, "%s: %v", sr.Name, sr.Errors)
	}
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 3, result.Passed)
	assert.Equal(t, 0, result.Failed)

	// Only fail_fast has a golden file.
	assert.Equal(t, "matched", result.Scenarios[0].Golden)
	assert.Empty(t, result.Scenarios[1].Golden)
}

func TestRunSuite_Failures(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: [unclosed"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong.yaml"), []byte(`
name: wrong
description: "expects the wrong row"
steps:
  - query: "SELECT 1"
    expect: ["2"]
`), 0644))

	files, err := DiscoverScenarios(dir, "")
	require.NoError(t, err)

	result := RunSuite(context.Background(), files, SuiteOptions{})
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, "broken.yaml", result.Scenarios[0].Name)
	assert.Contains(t, result.Scenarios[0].Errors[0], "failed to load scenario")
	assert.Equal(t, "wrong", result.Scenarios[1].Name)
}

func TestRunSuite_UpdateThenMatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "one.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: one
description: "single query"
steps:
  - query: "SELECT 1"
`), 0644))

	result := RunSuite(context.Background(), []string{path}, SuiteOptions{Update: true})
	require.Equal(t, 1, result.Passed)
	assert.Equal(t, "updated", result.Scenarios[0].Golden)
	assert.FileExists(t, GoldenPath(path))

	result = RunSuite(context.Background(), []string{path}, SuiteOptions{})
	require.Equal(t, 1, result.Passed)
	assert.Equal(t, "matched", result.Scenarios[0].Golden)

	// A changed scenario no longer matches.
	require.NoError(t, os.WriteFile(path, []byte(`
name: one
description: "single query"
steps:
  - query: "SELECT 2"
`), 0644))
	result = RunSuite(context.Background(), []string{path}, SuiteOptions{})
	assert.Equal(t, 1, result.Failed)
	assert.Contains(t, result.Scenarios[0].Errors[0], "does not match golden file")
}
