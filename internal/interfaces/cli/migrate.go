package cli

import (
	"github.com/spf13/cobra"

	"github.com/kspify/kspify/internal/app"
)

// MigrateFlags holds command-line flags for the migrate command.
type MigrateFlags struct {
	DryRun bool
	OutDir string
}

// NewMigrateCommand creates the migrate command: rewrite with optional
// no-write preview.
func NewMigrateCommand(container *CLIContainer) *cobra.Command {
	flags := &MigrateFlags{}

	cmd := &cobra.Command{
		Use:   "migrate <path>...",
		Short: "Rewrite kapt declarations to their KSP equivalents",
		Long: `Migrate one or more Gradle build scripts from kapt to KSP. Matched
declarations are rewritten per the rule table; everything else is
preserved byte-for-byte. Files with conflicts or parse errors are left
untouched and reported.

Examples:
  kspify migrate app/build.gradle           # rewrite in place
  kspify migrate . --dry-run                # preview, write nothing
  kspify migrate . -o migrated/             # write under migrated/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := app.ModeWrite
			if flags.DryRun {
				mode = app.ModeDryRun
			}
			batch, err := runBatch(cmd, container, args, app.RunOptions{Mode: mode, OutDir: flags.OutDir})
			if err != nil {
				return err
			}
			return finishBatch(cmd.OutOrStdout(), container, batch)
		},
	}

	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "Compute and report rewrites without writing any file")
	cmd.Flags().StringVarP(&flags.OutDir, "output", "o", "", "Write rewritten files under this directory instead of in place")

	return cmd
}
