package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kspify/kspify/internal/core/report"
)

func writeScript(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

// run executes the root command with args and returns stdout plus the error.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAnalyze_CleanFile(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "build.gradle",
		"plugins {\n    id 'kotlin-kapt'\n}\n\ndependencies {\n    kapt 'g:a:1.0'\n}\n")

	out, err := run(t, "analyze", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "migrate")
	assert.Contains(t, out, "ksp 'g:a:1.0'")

	// Analyze never writes.
	got, readErr := os.ReadFile(filepath.Join(dir, "build.gradle"))
	require.NoError(t, readErr)
	assert.Contains(t, string(got), "kapt 'g:a:1.0'")
}

func TestAnalyze_ConflictExitCode(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "build.gradle",
		"dependencies {\n    kapt 'androidx.room:room-compiler:2.5.0'\n    ksp 'androidx.room:room-compiler:2.5.0'\n}\n")

	_, err := run(t, "analyze", dir)
	var ee *ExitError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, report.ExitConflicts, ee.Code)
	assert.Contains(t, ee.Msg, "conflict")
}

func TestAnalyze_ParseFailureExitCode(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "build.gradle", "dependencies {\n    kapt 'g:a:1.0'\n")

	_, err := run(t, "analyze", dir)
	var ee *ExitError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, report.ExitParseFailure, ee.Code)
}

func TestAnalyze_JSONFormat(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "build.gradle", "dependencies {\n    kapt 'g:a:1.0'\n}\n")

	out, err := run(t, "--format", "json", "analyze", dir)
	require.NoError(t, err)

	var batch report.Batch
	require.NoError(t, json.Unmarshal([]byte(out), &batch))
	assert.Equal(t, 1, batch.Summary.Files)
	assert.Equal(t, 1, batch.Summary.Changes)
}

func TestAnalyze_NoScriptsFound(t *testing.T) {
	_, err := run(t, "analyze", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no build scripts found")
}

func TestMigrate_DryRunWritesNothing(t *testing.T) {
	dir := t.TempDir()
	src := "dependencies {\n    kapt 'g:a:1.0'\n}\n"
	path := writeScript(t, dir, "build.gradle", src)

	out, err := run(t, "migrate", "--dry-run", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "ksp 'g:a:1.0'")

	got, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, src, string(got))
}

func TestMigrate_WritesInPlace(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "build.gradle", "dependencies {\n    kapt 'g:a:1.0'\n}\n")

	_, err := run(t, "migrate", dir)
	require.NoError(t, err)

	got, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Contains(t, string(got), "ksp 'g:a:1.0'")
}

func TestMigrate_OutputDir(t *testing.T) {
	dir := t.TempDir()
	out := t.TempDir()
	src := "dependencies {\n    kapt 'g:a:1.0'\n}\n"
	path := writeScript(t, dir, "build.gradle", src)

	_, err := run(t, "migrate", "--output", out, dir)
	require.NoError(t, err)

	orig, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, src, string(orig), "original untouched when --output is set")
}

func TestRules_PrintsUsableTable(t *testing.T) {
	out, err := run(t, "rules")
	require.NoError(t, err)
	assert.Contains(t, out, "kotlin-kapt")
	assert.Contains(t, out, "com.google.devtools.ksp")

	// The printed table is itself a valid --rules override.
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(out), 0o644))
	dir := t.TempDir()
	writeScript(t, dir, "build.gradle", "dependencies {\n    kapt 'g:a:1.0'\n}\n")
	res, err := run(t, "--rules", path, "analyze", dir)
	require.NoError(t, err)
	assert.Contains(t, res, "ksp 'g:a:1.0'")
}

func TestRoot_RejectsUnknownFormat(t *testing.T) {
	_, err := run(t, "--format", "xml", "rules")
	require.Error(t, err)
	assert.False(t, errors.As(err, new(*ExitError)))
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestRoot_RejectsMissingRulesFile(t *testing.T) {
	_, err := run(t, "--rules", filepath.Join(t.TempDir(), "nope.yaml"), "rules")
	require.Error(t, err)
}
