// Package rules holds the migration rule table: the mapping from kapt-side
// build-script tokens to their KSP-side replacements. The table is plain
// data, embedded as YAML and overridable from a file, so new processor
// libraries can be supported without touching the engine.
package rules

import (
	"fmt"
)

// PluginMapping rewrites any of the Sources plugin IDs to the Target ID.
type PluginMapping struct {
	Sources []string `yaml:"sources"`
	Target  string   `yaml:"target"`
	// Note, when set, is surfaced as an informational issue alongside the
	// rewrite (e.g. a version-alignment reminder).
	Note string `yaml:"note,omitempty"`
}

// KeywordMapping rewrites a dependency-configuration keyword.
type KeywordMapping struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

// CoordinateRule refines how a dependency on a specific processor artifact
// migrates. Absent any rule, a source-keyword dependency migrates with its
// coordinate untouched.
type CoordinateRule struct {
	// Source is the "group:artifact" pair, without version.
	Source string `yaml:"source"`
	// Target, when set, replaces the group:artifact pair (version kept).
	Target string `yaml:"target,omitempty"`
	// Manual, when set, blocks the structural rewrite; the text describes
	// the human step required.
	Manual string `yaml:"manual,omitempty"`
	// Note is advisory only; the rewrite still applies.
	Note string `yaml:"note,omitempty"`
}

// BlockMapping rewrites a processor argument block into the target syntax.
type BlockMapping struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

// Table is one versioned rule set. It is immutable after Load and safe to
// share across concurrently processed files.
type Table struct {
	Version string `yaml:"version"`

	// SourcePrefix and TargetPrefix identify which toolchain a dependency
	// keyword belongs to when it isn't listed explicitly, e.g. a build-
	// variant keyword like kaptDebug.
	SourcePrefix string `yaml:"source_keyword_prefix"`
	TargetPrefix string `yaml:"target_keyword_prefix"`

	Plugins     []PluginMapping  `yaml:"plugins"`
	Keywords    []KeywordMapping `yaml:"keywords"`
	Coordinates []CoordinateRule `yaml:"coordinates"`
	Blocks      []BlockMapping   `yaml:"blocks"`

	pluginBySource  map[string]*PluginMapping
	pluginTargets   map[string]bool
	keywordBySource map[string]string
	keywordTargets  map[string]bool
	coordBySource   map[string]*CoordinateRule
	blockBySource   map[string]string
	blockTargets    map[string]bool
}

// index builds the lookup maps and validates the table. Duplicate source
// tokens are rejected: two rules for one token would make the rewrite
// ambiguous, and ambiguity is treated as an error at load time rather than
// a runtime conflict.
func (t *Table) index() error {
	if t.Version == "" {
		return fmt.Errorf("rule table: missing version")
	}
	t.pluginBySource = make(map[string]*PluginMapping)
	t.pluginTargets = make(map[string]bool)
	t.keywordBySource = make(map[string]string)
	t.keywordTargets = make(map[string]bool)
	t.coordBySource = make(map[string]*CoordinateRule)
	t.blockBySource = make(map[string]string)
	t.blockTargets = make(map[string]bool)

	for i := range t.Plugins {
		m := &t.Plugins[i]
		if m.Target == "" || len(m.Sources) == 0 {
			return fmt.Errorf("rule table: plugin mapping %d: sources and target are required", i)
		}
		for _, src := range m.Sources {
			if _, dup := t.pluginBySource[src]; dup {
				return fmt.Errorf("rule table: duplicate plugin source %q", src)
			}
			t.pluginBySource[src] = m
		}
		t.pluginTargets[m.Target] = true
	}
	for i, m := range t.Keywords {
		if m.Source == "" || m.Target == "" {
			return fmt.Errorf("rule table: keyword mapping %d: source and target are required", i)
		}
		if _, dup := t.keywordBySource[m.Source]; dup {
			return fmt.Errorf("rule table: duplicate keyword source %q", m.Source)
		}
		t.keywordBySource[m.Source] = m.Target
		t.keywordTargets[m.Target] = true
	}
	for i := range t.Coordinates {
		r := &t.Coordinates[i]
		if r.Source == "" {
			return fmt.Errorf("rule table: coordinate rule %d: source is required", i)
		}
		if r.Target != "" && r.Manual != "" {
			return fmt.Errorf("rule table: coordinate rule %q: target and manual are mutually exclusive", r.Source)
		}
		if _, dup := t.coordBySource[r.Source]; dup {
			return fmt.Errorf("rule table: duplicate coordinate source %q", r.Source)
		}
		t.coordBySource[r.Source] = r
	}
	for i, m := range t.Blocks {
		if m.Source == "" || m.Target == "" {
			return fmt.Errorf("rule table: block mapping %d: source and target are required", i)
		}
		if _, dup := t.blockBySource[m.Source]; dup {
			return fmt.Errorf("rule table: duplicate block source %q", m.Source)
		}
		t.blockBySource[m.Source] = m.Target
		t.blockTargets[m.Target] = true
	}
	return nil
}

// PluginTarget returns the mapping for a source-toolchain plugin ID.
func (t *Table) PluginTarget(id string) (*PluginMapping, bool) {
	m, ok := t.pluginBySource[id]
	return m, ok
}

// IsTargetPlugin reports whether id is a target-toolchain plugin ID.
func (t *Table) IsTargetPlugin(id string) bool { return t.pluginTargets[id] }

// KeywordTarget returns the target keyword for a mapped source keyword.
func (t *Table) KeywordTarget(kw string) (string, bool) {
	target, ok := t.keywordBySource[kw]
	return target, ok
}

// IsTargetKeyword reports whether kw belongs to the target toolchain, either
// by explicit mapping or by prefix.
func (t *Table) IsTargetKeyword(kw string) bool {
	if t.keywordTargets[kw] {
		return true
	}
	return t.TargetPrefix != "" && hasPrefix(kw, t.TargetPrefix)
}

// IsSourceKeyword reports whether kw belongs to the source toolchain, even
// when no explicit mapping exists (e.g. build-variant keywords).
func (t *Table) IsSourceKeyword(kw string) bool {
	if _, ok := t.keywordBySource[kw]; ok {
		return true
	}
	return t.SourcePrefix != "" && hasPrefix(kw, t.SourcePrefix)
}

// Coordinate returns the refinement rule for a "group:artifact" pair.
func (t *Table) Coordinate(ga string) (*CoordinateRule, bool) {
	r, ok := t.coordBySource[ga]
	return r, ok
}

// TargetArtifact maps a source "group:artifact" to its target-toolchain
// equivalent: the coordinate rule's target when one exists, otherwise the
// pair itself. This identity is what conflict detection compares.
func (t *Table) TargetArtifact(ga string) string {
	if r, ok := t.coordBySource[ga]; ok && r.Target != "" {
		return r.Target
	}
	return ga
}

// BlockTarget returns the target block name for a source argument block.
func (t *Table) BlockTarget(name string) (string, bool) {
	target, ok := t.blockBySource[name]
	return target, ok
}

// IsTargetBlock reports whether name is a target-toolchain argument block.
func (t *Table) IsTargetBlock(name string) bool { return t.blockTargets[name] }

// ArgumentBlockNames returns every block name the parser should model:
// all source and target block names.
func (t *Table) ArgumentBlockNames() []string {
	var names []string
	for _, m := range t.Blocks {
		names = append(names, m.Source, m.Target)
	}
	return names
}

func hasPrefix(s, prefix string) bool {
	return len(s) > len(prefix) && s[:len(prefix)] == prefix
}
