package rules

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var embeddedRules []byte

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Load parses and validates a rule table from YAML.
func Load(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("rule table: %w", err)
	}
	if err := t.index(); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadFile loads a rule table from an override file.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rule table: %w", err)
	}
	t, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Default returns the embedded rule table. The embedded data is part of the
// build, so a failure to load it is a programming error.
func Default() *Table {
	defaultOnce.Do(func() {
		t, err := Load(embeddedRules)
		if err != nil {
			panic(fmt.Sprintf("embedded rule table invalid: %v", err))
		}
		defaultTable = t
	})
	return defaultTable
}
