package testing_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rebar/internal/environment"
	"rebar/internal/interp"
	rtesting "rebar/internal/testing"
)

func newEnv() *environment.Environment {
	env := environment.New()
	env.Interp = interp.New()
	env.ActiveProvider = env.Interp
	return env
}

func writeFixture(t *testing.T, dir, name, src string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
}

func TestRunSuitePassingAndFailingFiles(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "pass.rbr", `
		assert_equal(2 + 2, 4, "arithmetic");
		assert_true(true);
	`)
	writeFixture(t, dir, "fail.rbr", `
		assert_equal(1, 2, "should not match");
	`)

	stats, err := rtesting.RunSuite(dir, newEnv)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Passed)
	assert.Equal(t, 1, stats.Failed)

	var failMsg []string
	for _, r := range stats.Results {
		if filepath.Base(r.File) == "fail.rbr" {
			failMsg = r.Failures
		}
	}
	require.Len(t, failMsg, 1)
	assert.Contains(t, failMsg[0], "should not match")
}

func TestRunSuiteSurfacesThrownExceptionAsError(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "throws.rbr", `
		local a = [1];
		return a[5];
	`)

	stats, err := rtesting.RunSuite(dir, newEnv)
	require.NoError(t, err)
	require.Len(t, stats.Results, 1)
	assert.False(t, stats.Results[0].Passed)
	assert.Error(t, stats.Results[0].Err)
	assert.Contains(t, stats.Results[0].Err.Error(), "RangeError")
}

func TestDiscoverFindsOnlyRbrFiles(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "a.rbr", "assert(true);")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644))

	files, err := rtesting.Discover(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.rbr", filepath.Base(files[0]))
}
