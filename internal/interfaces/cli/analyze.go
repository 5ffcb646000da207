package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kspify/kspify/internal/app"
	"github.com/kspify/kspify/internal/core/report"
	"github.com/kspify/kspify/internal/ctxlog"
	"github.com/kspify/kspify/internal/infrastructure/scan"
)

// NewAnalyzeCommand creates the analyze command: report only, no rewrite.
func NewAnalyzeCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <path>...",
		Short: "Report kapt declarations and migration issues without rewriting",
		Long: `Analyze one or more Gradle build scripts (or directories, scanned
recursively for build.gradle and build.gradle.kts) and report every
declaration the rule table matches: what would migrate, what needs manual
review, and any kapt/KSP conflicts.

The exit status is 0 when the inputs are clean, 1 when conflicts were
detected, and 2 when at least one input failed to parse.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batch, err := runBatch(cmd, container, args, app.RunOptions{Mode: app.ModeAnalyze})
			if err != nil {
				return err
			}
			return finishBatch(cmd.OutOrStdout(), container, batch)
		},
	}
}

// runBatch discovers the input files and runs the pipeline over them.
func runBatch(cmd *cobra.Command, container *CLIContainer, args []string, opts app.RunOptions) (*report.Batch, error) {
	paths, err := scan.Discover(args)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no build scripts found under %v", args)
	}

	ctx := ctxlog.WithLogger(cmd.Context(), container.App.Logger)
	return container.App.Runner.Run(ctx, paths, opts)
}

// finishBatch renders the report and maps the batch outcome onto the exit
// status.
func finishBatch(w io.Writer, container *CLIContainer, batch *report.Batch) error {
	var err error
	if container.Format == "json" {
		err = report.RenderJSON(w, batch)
	} else {
		err = report.RenderText(w, batch)
	}
	if err != nil {
		return err
	}

	switch batch.ExitCode() {
	case report.ExitParseFailure:
		return &ExitError{Code: report.ExitParseFailure,
			Msg: fmt.Sprintf("%d file(s) failed to parse", batch.Summary.ParseFailures)}
	case report.ExitConflicts:
		return &ExitError{Code: report.ExitConflicts,
			Msg: fmt.Sprintf("%d conflict(s) detected; nothing was rewritten", batch.Summary.Conflicts)}
	}
	return nil
}
