package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewRulesCommand creates the rules command, which prints the active rule
// table so an override file can be started from the embedded one.
func NewRulesCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the active migration rule table",
		Long: `Print the rule table the tool is running with, as YAML. With --rules
this is the override table after validation; otherwise it is the embedded
default. The output is itself a valid --rules file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := yaml.Marshal(container.App.Rules)
			if err != nil {
				return fmt.Errorf("marshal rule table: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
