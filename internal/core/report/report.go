// Package report assembles and renders the outcome of a migration run: one
// record per changed declaration, one per manual-review step, one per
// conflict, aggregated across the files of a batch.
package report

import (
	"sort"

	"github.com/kspify/kspify/internal/core/classify"
	"github.com/kspify/kspify/internal/core/rewrite"
)

// FileReport is the outcome for one input file. A file either failed to
// parse (Error set, everything else empty) or carries its changes and
// issues in declaration order.
type FileReport struct {
	Path      string           `json:"path"`
	Error     string           `json:"error,omitempty"`
	Changes   []rewrite.Change `json:"changes,omitempty"`
	Issues    []classify.Issue `json:"issues,omitempty"`
	Rewritten bool             `json:"rewritten"`
}

// HasConflict reports whether the file carries a conflict issue.
func (f *FileReport) HasConflict() bool {
	for _, is := range f.Issues {
		if is.Severity == classify.SeverityConflict {
			return true
		}
	}
	return false
}

// Summary aggregates counts across a batch.
type Summary struct {
	Files         int `json:"files"`
	Changed       int `json:"changed"`
	Changes       int `json:"changes"`
	Conflicts     int `json:"conflicts"`
	ManualReviews int `json:"manual_reviews"`
	ParseFailures int `json:"parse_failures"`
}

// Batch is the full report for one run.
type Batch struct {
	RulesVersion string       `json:"rules_version"`
	Files        []FileReport `json:"files"`
	Summary      Summary      `json:"summary"`
}

// NewBatch orders the per-file reports by path and computes the summary,
// so the same inputs always render the same report.
func NewBatch(rulesVersion string, files []FileReport) *Batch {
	sorted := make([]FileReport, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	b := &Batch{RulesVersion: rulesVersion, Files: sorted}
	b.Summary.Files = len(sorted)
	for _, f := range sorted {
		if f.Error != "" {
			b.Summary.ParseFailures++
			continue
		}
		if len(f.Changes) > 0 {
			b.Summary.Changed++
		}
		b.Summary.Changes += len(f.Changes)
		for _, is := range f.Issues {
			switch is.Severity {
			case classify.SeverityConflict:
				b.Summary.Conflicts++
			case classify.SeverityManualReview:
				b.Summary.ManualReviews++
			}
		}
	}
	return b
}

// Exit codes: parse failures dominate conflicts; manual-review issues never
// affect the exit status.
const (
	ExitOK           = 0
	ExitConflicts    = 1
	ExitParseFailure = 2
)

// ExitCode returns the process exit status the batch maps to.
func (b *Batch) ExitCode() int {
	if b.Summary.ParseFailures > 0 {
		return ExitParseFailure
	}
	if b.Summary.Conflicts > 0 {
		return ExitConflicts
	}
	return ExitOK
}
