// Package classify walks a parsed descriptor against the rule table and tags
// every matched declaration with the action the rewriter should take.
// Classification depends only on the descriptor's content and the table;
// the same input always yields the same action list.
package classify

import (
	"fmt"

	"github.com/kspify/kspify/internal/core/descriptor"
	"github.com/kspify/kspify/internal/core/rules"
)

// ActionKind is the closed set of classifications a declaration can receive.
type ActionKind int

const (
	// Migrate: a direct structural rewrite exists.
	Migrate ActionKind = iota
	// ManualReview: a rewrite exists but needs human judgment; the
	// declaration is left untouched.
	ManualReview
	// Conflict: mutually exclusive declarations coexist; blocks the rewrite
	// of the whole file.
	Conflict
)

func (k ActionKind) String() string {
	switch k {
	case Migrate:
		return "migrate"
	case ManualReview:
		return "manual-review"
	case Conflict:
		return "conflict"
	}
	return fmt.Sprintf("ActionKind(%d)", int(k))
}

// Severity of a MigrationIssue.
type Severity string

const (
	SeverityInfo         Severity = "info"
	SeverityManualReview Severity = "manual-review"
	SeverityConflict     Severity = "conflict"
)

// Action ties one declaration to its classification and, for Migrate, the
// concrete replacement the rewriter applies. Exactly one of Plugin,
// Dependency, Block is set.
type Action struct {
	Kind ActionKind
	Line int

	Plugin     *descriptor.PluginDeclaration
	Dependency *descriptor.DependencyDeclaration
	Block      *descriptor.ConfigurationBlock

	// Migrate prescriptions.
	TargetPluginID    string
	RemoveDeclaration bool // drop the declaration (target already present)
	TargetKeyword     string
	TargetCoordinate  string // full coordinate when the artifact is rewritten
	TargetBlockName   string

	// Reason describes a ManualReview or Conflict classification.
	Reason string
}

// Issue is one report-visible finding produced during classification.
type Issue struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Line     int      `json:"line"`
	Offset   int      `json:"offset"`
}

// Result is the ordered outcome of classifying one descriptor.
type Result struct {
	Actions []Action
	Issues  []Issue
}

// HasConflict reports whether any conflict was detected. A conflicted file
// is never rewritten.
func (r *Result) HasConflict() bool {
	for _, is := range r.Issues {
		if is.Severity == SeverityConflict {
			return true
		}
	}
	return false
}

// MigrateCount returns the number of Migrate actions.
func (r *Result) MigrateCount() int {
	n := 0
	for _, a := range r.Actions {
		if a.Kind == Migrate {
			n++
		}
	}
	return n
}

// Classify produces the ordered action list for one descriptor. Order
// follows the descriptor: plugins, then dependencies, then argument blocks,
// each in original declaration order.
func Classify(d *descriptor.Descriptor, table *rules.Table) *Result {
	c := &classifier{d: d, table: table, res: &Result{}}
	c.plugins()
	c.dependencies()
	c.blocks()
	return c.res
}

type classifier struct {
	d     *descriptor.Descriptor
	table *rules.Table
	res   *Result
}

func (c *classifier) issue(sev Severity, line, offset int, format string, args ...any) {
	c.res.Issues = append(c.res.Issues, Issue{
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
		Line:     line,
		Offset:   offset,
	})
}

func (c *classifier) plugins() {
	targetPresent := false
	for _, p := range c.d.Plugins {
		if c.table.IsTargetPlugin(p.ID) {
			targetPresent = true
		}
	}
	// Two source spellings of the same plugin must not migrate into two
	// copies of the target declaration; only the first rewrite survives.
	migrated := make(map[string]bool)
	for i := range c.d.Plugins {
		p := &c.d.Plugins[i]
		mapping, ok := c.table.PluginTarget(p.ID)
		if !ok {
			continue
		}
		act := Action{Kind: Migrate, Line: p.Line, Plugin: p, TargetPluginID: mapping.Target}
		if targetPresent || migrated[mapping.Target] {
			act.RemoveDeclaration = true
			c.issue(SeverityInfo, p.Line, p.Span.Start,
				"plugin %s is already applied; removing the %s declaration", mapping.Target, p.ID)
		} else {
			if mapping.Note != "" {
				c.issue(SeverityInfo, p.Line, p.Span.Start, "%s", mapping.Note)
			}
			migrated[mapping.Target] = true
		}
		c.res.Actions = append(c.res.Actions, act)
	}
}

func (c *classifier) dependencies() {
	// Conflict detection compares declarations by their target-toolchain
	// artifact identity: a kapt dependency whose migrated artifact is
	// already declared under a ksp keyword is a blocking conflict.
	targetArtifacts := make(map[string]*descriptor.DependencyDeclaration)
	for i := range c.d.Dependencies {
		dep := &c.d.Dependencies[i]
		if !c.table.IsTargetKeyword(dep.Keyword) {
			continue
		}
		if ga := dep.GroupArtifact(); ga != "" {
			targetArtifacts[ga] = dep
		}
	}

	for i := range c.d.Dependencies {
		dep := &c.d.Dependencies[i]
		if !c.table.IsSourceKeyword(dep.Keyword) {
			continue
		}

		if ga := dep.GroupArtifact(); ga != "" {
			if other, clash := targetArtifacts[c.table.TargetArtifact(ga)]; clash {
				reason := fmt.Sprintf(
					"%s is declared under both %s (line %d) and %s (line %d); a module must use one mechanism per processor",
					c.table.TargetArtifact(ga), dep.Keyword, dep.Line, other.Keyword, other.Line)
				c.res.Actions = append(c.res.Actions, Action{
					Kind: Conflict, Line: dep.Line, Dependency: dep, Reason: reason,
				})
				c.issue(SeverityConflict, dep.Line, dep.Span.Start, "%s", reason)
				continue
			}

			if rule, ok := c.table.Coordinate(ga); ok && rule.Manual != "" {
				c.res.Actions = append(c.res.Actions, Action{
					Kind: ManualReview, Line: dep.Line, Dependency: dep, Reason: rule.Manual,
				})
				c.issue(SeverityManualReview, dep.Line, dep.Span.Start, "%s: %s", ga, rule.Manual)
				continue
			}
		}

		target, ok := c.table.KeywordTarget(dep.Keyword)
		if !ok {
			// Matches the source-toolchain pattern but has no mapping
			// (e.g. a build-variant keyword); never silently dropped.
			reason := fmt.Sprintf("no keyword mapping for %q; migrate this configuration by hand", dep.Keyword)
			c.res.Actions = append(c.res.Actions, Action{
				Kind: ManualReview, Line: dep.Line, Dependency: dep, Reason: reason,
			})
			c.issue(SeverityManualReview, dep.Line, dep.Span.Start, "%s", reason)
			continue
		}

		act := Action{Kind: Migrate, Line: dep.Line, Dependency: dep, TargetKeyword: target}
		if ga := dep.GroupArtifact(); ga != "" {
			if rule, ok := c.table.Coordinate(ga); ok {
				if rule.Target != "" {
					_, version := descriptor.SplitCoordinate(dep.Coordinate)
					act.TargetCoordinate = rule.Target
					if version != "" {
						act.TargetCoordinate += ":" + version
					}
				}
				if rule.Note != "" {
					c.issue(SeverityInfo, dep.Line, dep.Span.Start, "%s: %s", ga, rule.Note)
				}
			}
		} else if dep.CoordinateRef != "" {
			c.issue(SeverityInfo, dep.Line, dep.Span.Start,
				"dependency %s references %s; KSP support of the referenced artifact was not checked",
				dep.Keyword, dep.CoordinateRef)
		}
		c.res.Actions = append(c.res.Actions, act)
	}
}

func (c *classifier) blocks() {
	targetBlock := false
	for _, b := range c.d.Blocks {
		if c.table.IsTargetBlock(b.Name) {
			targetBlock = true
		}
	}
	for i := range c.d.Blocks {
		b := &c.d.Blocks[i]
		target, ok := c.table.BlockTarget(b.Name)
		if !ok {
			continue
		}
		switch {
		case b.HasExtra:
			reason := fmt.Sprintf(
				"the %s block contains statements without a %s equivalent; translate them by hand", b.Name, target)
			c.res.Actions = append(c.res.Actions, Action{
				Kind: ManualReview, Line: b.Line, Block: b, Reason: reason,
			})
			c.issue(SeverityManualReview, b.Line, b.Span.Start, "%s", reason)
		case targetBlock:
			reason := fmt.Sprintf(
				"both %s and %s argument blocks are present; merge the arguments by hand", b.Name, target)
			c.res.Actions = append(c.res.Actions, Action{
				Kind: ManualReview, Line: b.Line, Block: b, Reason: reason,
			})
			c.issue(SeverityManualReview, b.Line, b.Span.Start, "%s", reason)
		default:
			c.res.Actions = append(c.res.Actions, Action{
				Kind: Migrate, Line: b.Line, Block: b, TargetBlockName: target,
			})
		}
	}
}
