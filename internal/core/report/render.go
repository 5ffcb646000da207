package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kspify/kspify/internal/core/classify"
)

var (
	pathStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	migrateStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	manualStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	conflictStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	infoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	beforeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	afterStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("83"))
)

// RenderJSON writes the batch as a structured document for downstream
// tooling.
func RenderJSON(w io.Writer, b *Batch) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(b)
}

// RenderText writes the human-readable report.
func RenderText(w io.Writer, b *Batch) error {
	for i := range b.Files {
		if err := RenderFile(w, &b.Files[i]); err != nil {
			return err
		}
	}
	return renderSummary(w, b)
}

// RenderFile writes the human-readable report for a single file.
func RenderFile(w io.Writer, f *FileReport) error {
	fmt.Fprintln(w, pathStyle.Render(f.Path))

	if f.Error != "" {
		fmt.Fprintf(w, "  %s %s\n\n", conflictStyle.Render("parse error:"), f.Error)
		return nil
	}
	if len(f.Changes) == 0 && len(f.Issues) == 0 {
		fmt.Fprintf(w, "  %s\n\n", infoStyle.Render("nothing to migrate"))
		return nil
	}

	for _, ch := range f.Changes {
		if ch.After == "" {
			fmt.Fprintf(w, "  %s line %d (%s): removed\n", migrateStyle.Render("migrate"), ch.Line, ch.Kind)
			fmt.Fprintf(w, "    %s %s\n", beforeStyle.Render("-"), firstLine(ch.Before))
			continue
		}
		fmt.Fprintf(w, "  %s line %d (%s)\n", migrateStyle.Render("migrate"), ch.Line, ch.Kind)
		for _, l := range strings.Split(ch.Before, "\n") {
			fmt.Fprintf(w, "    %s %s\n", beforeStyle.Render("-"), l)
		}
		for _, l := range strings.Split(ch.After, "\n") {
			fmt.Fprintf(w, "    %s %s\n", afterStyle.Render("+"), l)
		}
	}

	for _, is := range f.Issues {
		switch is.Severity {
		case classify.SeverityConflict:
			fmt.Fprintf(w, "  %s line %d: %s\n", conflictStyle.Render("conflict"), is.Line, is.Message)
		case classify.SeverityManualReview:
			fmt.Fprintf(w, "  %s line %d: %s\n", manualStyle.Render("manual-review"), is.Line, is.Message)
		default:
			fmt.Fprintf(w, "  %s line %d: %s\n", infoStyle.Render("info"), is.Line, is.Message)
		}
	}
	fmt.Fprintln(w)
	return nil
}

func renderSummary(w io.Writer, b *Batch) error {
	s := b.Summary
	parts := []string{
		fmt.Sprintf("%d file(s)", s.Files),
		fmt.Sprintf("%d change(s) in %d file(s)", s.Changes, s.Changed),
	}
	if s.Conflicts > 0 {
		parts = append(parts, conflictStyle.Render(fmt.Sprintf("%d conflict(s)", s.Conflicts)))
	}
	if s.ManualReviews > 0 {
		parts = append(parts, manualStyle.Render(fmt.Sprintf("%d manual review(s)", s.ManualReviews)))
	}
	if s.ParseFailures > 0 {
		parts = append(parts, conflictStyle.Render(fmt.Sprintf("%d parse failure(s)", s.ParseFailures)))
	}
	fmt.Fprintln(w, strings.Join(parts, ", "))
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
