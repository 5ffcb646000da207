package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kspify/kspify/internal/core/report"
	"github.com/kspify/kspify/internal/core/rules"
)

const migratable = `plugins {
    id 'kotlin-kapt'
}

dependencies {
    kapt 'g:a:1.0'
}
`

const conflicted = `dependencies {
    kapt 'androidx.room:room-compiler:2.5.0'
    ksp 'androidx.room:room-compiler:2.5.0'
}
`

const unbalanced = `dependencies {
    kapt 'g:a:1.0'
`

func writeScript(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func newRunner(t *testing.T) *Runner {
	t.Helper()
	return NewRunner(rules.Default(), 2)
}

func TestRun_WriteMode_RewritesInPlace(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "build.gradle", migratable)

	batch, err := newRunner(t).Run(context.Background(), []string{path}, RunOptions{Mode: ModeWrite})
	require.NoError(t, err)
	assert.Equal(t, report.ExitOK, batch.ExitCode())
	require.Len(t, batch.Files, 1)
	assert.True(t, batch.Files[0].Rewritten)
	assert.Len(t, batch.Files[0].Changes, 2)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(got), "id 'com.google.devtools.ksp'")
	assert.Contains(t, string(got), "ksp 'g:a:1.0'")
	assert.NotContains(t, string(got), "kapt")
}

func TestRun_DryRun_WritesNothing(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "build.gradle", migratable)

	batch, err := newRunner(t).Run(context.Background(), []string{path}, RunOptions{Mode: ModeDryRun})
	require.NoError(t, err)
	assert.Len(t, batch.Files[0].Changes, 2, "dry run still computes the rewrite")
	assert.False(t, batch.Files[0].Rewritten)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, migratable, string(got))
}

func TestRun_ConflictLeavesFileUntouched(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "build.gradle", conflicted)

	batch, err := newRunner(t).Run(context.Background(), []string{path}, RunOptions{Mode: ModeWrite})
	require.NoError(t, err)
	assert.Equal(t, report.ExitConflicts, batch.ExitCode())
	assert.True(t, batch.Files[0].HasConflict())
	assert.False(t, batch.Files[0].Rewritten)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, conflicted, string(got))
}

func TestRun_ParseFailureScopedPerFile(t *testing.T) {
	dir := t.TempDir()
	broken := writeScript(t, dir, "broken/build.gradle", unbalanced)
	good := writeScript(t, dir, "good/build.gradle", migratable)

	batch, err := newRunner(t).Run(context.Background(), []string{broken, good}, RunOptions{Mode: ModeWrite})
	require.NoError(t, err)
	assert.Equal(t, report.ExitParseFailure, batch.ExitCode())
	assert.Equal(t, 1, batch.Summary.ParseFailures)

	// Reports are path-sorted, so locate by path.
	byPath := map[string]report.FileReport{}
	for _, f := range batch.Files {
		byPath[f.Path] = f
	}
	assert.Contains(t, byPath[broken].Error, "unclosed '{'")
	assert.True(t, byPath[good].Rewritten, "one broken file never blocks the rest")

	got, err := os.ReadFile(good)
	require.NoError(t, err)
	assert.Contains(t, string(got), "ksp 'g:a:1.0'")
}

func TestRun_UnreadableFileReported(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "gone", "build.gradle")

	batch, err := newRunner(t).Run(context.Background(), []string{missing}, RunOptions{Mode: ModeAnalyze})
	require.NoError(t, err)
	assert.NotEmpty(t, batch.Files[0].Error)
}

func TestRun_OutDirMirrorsPaths(t *testing.T) {
	dir := t.TempDir()
	out := t.TempDir()
	path := writeScript(t, dir, "app/build.gradle", migratable)

	batch, err := newRunner(t).Run(context.Background(), []string{path},
		RunOptions{Mode: ModeWrite, OutDir: out})
	require.NoError(t, err)
	assert.True(t, batch.Files[0].Rewritten)

	// Original stays untouched, the rewrite lands under the output root.
	orig, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, migratable, string(orig))

	dest := filepath.Join(out, cleanRel(path))
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(got), "ksp 'g:a:1.0'")
}

func TestRun_ParallelBatchIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		src := migratable
		if name == "c" {
			src = conflicted
		}
		paths = append(paths, writeScript(t, dir, filepath.Join(name, "build.gradle"), src))
	}

	r := NewRunner(rules.Default(), 4)
	first, err := r.Run(context.Background(), paths, RunOptions{Mode: ModeAnalyze})
	require.NoError(t, err)
	again, err := r.Run(context.Background(), paths, RunOptions{Mode: ModeAnalyze})
	require.NoError(t, err)
	assert.Equal(t, first, again)

	assert.Equal(t, 6, first.Summary.Files)
	assert.Equal(t, 1, first.Summary.Conflicts)
}

func TestCleanRel(t *testing.T) {
	assert.Equal(t, filepath.FromSlash("a/build.gradle"), cleanRel("a/build.gradle"))
	assert.Equal(t, filepath.FromSlash("etc/build.gradle"), cleanRel("/etc/build.gradle"))
	assert.False(t, strings.HasPrefix(cleanRel("../../x/build.gradle"), ".."))
}
