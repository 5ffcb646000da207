// Package cli is the cobra command surface of kspify.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/kspify/kspify/internal/app"
)

var (
	Version   = "dev"     // Overridden by ldflags
	BuildTime = "unknown" // Overridden by ldflags
)

// CLIContainer holds the dependencies CLI commands share. App is populated
// in PersistentPreRunE, once the global flags are known.
type CLIContainer struct {
	App    *app.Container
	Format string // text | json
}

// ExitError maps a completed run onto a non-zero process exit status
// (conflicts or parse failures) without treating it as a usage error.
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string { return e.Msg }

// NewRootCommand builds the root command and its subcommands.
func NewRootCommand() *cobra.Command {
	container := &CLIContainer{}

	var (
		rulesPath string
		logLevel  string
		logFormat string
		jobs      int
	)

	rootCmd := &cobra.Command{
		Use:   "kspify",
		Short: "kspify - kapt to KSP build migration",
		Long: `kspify analyzes Gradle build scripts for kapt annotation-processing
declarations and rewrites them to their KSP equivalents: the kapt plugin,
kapt dependency configurations, and kapt argument blocks.

Content the rule table does not match is preserved byte-for-byte. Mixing
kapt and KSP declarations for the same processor in one module is reported
as a conflict and never rewritten.`,
		Version:      Version,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.NewContainer(app.Options{
				RulesPath: rulesPath,
				LogLevel:  logLevel,
				LogFormat: logFormat,
				Jobs:      jobs,
			})
			if err != nil {
				return err
			}
			container.App = a
			if container.Format != "text" && container.Format != "json" {
				return fmt.Errorf("unknown output format %q (want text or json)", container.Format)
			}
			return nil
		},
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} version {{.Version}}\nBuild time: %s\nGo version: %s\nPlatform: %s/%s\n",
		BuildTime, goVersion(), runtime.GOOS, runtime.GOARCH))

	rootCmd.PersistentFlags().StringVar(&rulesPath, "rules", "", "Rule table override (YAML path; default is the embedded table)")
	rootCmd.PersistentFlags().StringVar(&container.Format, "format", "text", "Report format: text or json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")
	rootCmd.PersistentFlags().IntVar(&jobs, "jobs", runtime.NumCPU(), "Maximum number of files processed in parallel")

	rootCmd.AddCommand(NewAnalyzeCommand(container))
	rootCmd.AddCommand(NewMigrateCommand(container))
	rootCmd.AddCommand(NewReviewCommand(container))
	rootCmd.AddCommand(NewRulesCommand(container))

	return rootCmd
}

// goVersion returns the Go version used to build the binary
func goVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.GoVersion
	}
	return "unknown"
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	rootCmd := NewRootCommand()
	rootCmd.SilenceErrors = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var ee *ExitError
		if errors.As(err, &ee) {
			if ee.Msg != "" {
				fmt.Fprintf(os.Stderr, "%s\n", ee.Msg)
			}
			return ee.Code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
