package app

import (
	"log/slog"
	"os"

	"github.com/kspify/kspify/internal/core/rules"
	"github.com/kspify/kspify/internal/logging"
)

// Options configures the container from command-line flags.
type Options struct {
	RulesPath string // override for the embedded rule table
	LogLevel  string
	LogFormat string
	Jobs      int
}

// Container holds the dependencies CLI commands share: the loaded rule
// table, the process logger, and the batch runner.
type Container struct {
	Rules  *rules.Table
	Logger *slog.Logger
	Runner *Runner
}

// NewContainer loads the rule table (embedded or from the override path)
// and wires the runner.
func NewContainer(opts Options) (*Container, error) {
	table := rules.Default()
	if opts.RulesPath != "" {
		t, err := rules.LoadFile(opts.RulesPath)
		if err != nil {
			return nil, err
		}
		table = t
	}

	return &Container{
		Rules:  table,
		Logger: logging.New(opts.LogLevel, opts.LogFormat, os.Stderr),
		Runner: NewRunner(table, opts.Jobs),
	}, nil
}
