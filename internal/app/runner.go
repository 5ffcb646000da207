// Package app wires the pipeline together and drives it over a batch of
// files: Parse -> Classify -> Rewrite -> Report, strictly in that order per
// file, files processed independently.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kspify/kspify/internal/core/classify"
	"github.com/kspify/kspify/internal/core/descriptor"
	"github.com/kspify/kspify/internal/core/report"
	"github.com/kspify/kspify/internal/core/rewrite"
	"github.com/kspify/kspify/internal/core/rules"
	"github.com/kspify/kspify/internal/ctxlog"
)

// Mode selects what the runner does with rewritten content.
type Mode int

const (
	// ModeAnalyze reports, never writes.
	ModeAnalyze Mode = iota
	// ModeDryRun computes rewrites and reports them, never writes.
	ModeDryRun
	// ModeWrite writes rewritten files back (in place or under OutDir).
	ModeWrite
)

// RunOptions configures one batch run.
type RunOptions struct {
	Mode Mode
	// OutDir, when set, receives rewritten files mirroring the input paths
	// instead of overwriting the originals.
	OutDir string
}

// Runner processes batches of build scripts against one immutable rule
// table. It keeps no state across runs; a Runner is safe for concurrent use.
type Runner struct {
	table *rules.Table
	jobs  int
}

// NewRunner creates a runner. jobs bounds per-batch parallelism; values
// below 1 mean sequential.
func NewRunner(table *rules.Table, jobs int) *Runner {
	if jobs < 1 {
		jobs = 1
	}
	return &Runner{table: table, jobs: jobs}
}

// Run processes every path and returns the aggregated report. Per-file
// failures are collected into the report, never aborting the batch; the
// returned error covers infrastructure problems only (e.g. an unwritable
// output directory).
func (r *Runner) Run(ctx context.Context, paths []string, opts RunOptions) (*report.Batch, error) {
	files := make([]report.FileReport, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.jobs)
	for i, path := range paths {
		g.Go(func() error {
			files[i] = r.runFile(ctx, path, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return report.NewBatch(r.table.Version, files), nil
}

// runFile runs the four pipeline stages for one file. Any stage failure
// stops that file and is reported; other files are unaffected.
func (r *Runner) runFile(ctx context.Context, path string, opts RunOptions) report.FileReport {
	log := ctxlog.FromContext(ctx)
	fr := report.FileReport{Path: path}

	src, err := os.ReadFile(path)
	if err != nil {
		fr.Error = err.Error()
		return fr
	}

	parseOpts := descriptor.DefaultOptions()
	if names := r.table.ArgumentBlockNames(); len(names) > 0 {
		parseOpts.ArgumentBlocks = names
	}
	d, err := descriptor.Parse(path, src, parseOpts)
	if err != nil {
		fr.Error = err.Error()
		return fr
	}
	log.Debug("parsed descriptor", "path", path,
		"plugins", len(d.Plugins), "dependencies", len(d.Dependencies), "blocks", len(d.Blocks))

	res := classify.Classify(d, r.table)
	fr.Issues = res.Issues

	out, err := rewrite.Apply(d, res)
	if err != nil {
		fr.Error = err.Error()
		return fr
	}
	fr.Changes = out.Changes

	if opts.Mode != ModeWrite || !out.Rewritten {
		return fr
	}

	dest := path
	if opts.OutDir != "" {
		dest = filepath.Join(opts.OutDir, cleanRel(path))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			fr.Error = fmt.Sprintf("write %s: %v", dest, err)
			return fr
		}
	}
	if err := os.WriteFile(dest, out.Text, 0o644); err != nil {
		fr.Error = fmt.Sprintf("write %s: %v", dest, err)
		return fr
	}
	fr.Rewritten = true
	log.Info("rewrote descriptor", "path", path, "dest", dest, "changes", len(out.Changes))
	return fr
}

// cleanRel strips path roots and parent references so a mirrored output
// path can never escape the output directory.
func cleanRel(path string) string {
	p := filepath.ToSlash(filepath.Clean(path))
	p = strings.TrimPrefix(p, "/")
	for strings.HasPrefix(p, "../") {
		p = strings.TrimPrefix(p, "../")
	}
	return filepath.FromSlash(p)
}
