// Package descriptor parses Gradle build scripts into a structural model of
// the declarations the migration engine cares about: applied plugins,
// dependency declarations, and named argument blocks. Everything else in the
// file is residue, addressed only through byte spans into the original
// source so a rewrite can reproduce it untouched.
package descriptor

import "fmt"

// Span is a half-open byte range [Start, End) into a descriptor's source.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int { return s.End - s.Start }

// Text returns the bytes the span covers in src.
func (s Span) Text(src []byte) string { return string(src[s.Start:s.End]) }

// PluginForm identifies the syntactic shape a plugin declaration uses.
// The rewriter needs it because the replacement text differs per form.
type PluginForm int

const (
	// PluginFormID is `id 'x'` or `id("x")` inside a plugins block.
	PluginFormID PluginForm = iota
	// PluginFormKotlin is the `kotlin("kapt")` shorthand inside a plugins
	// block, where the string is the suffix after "org.jetbrains.kotlin.".
	PluginFormKotlin
	// PluginFormApply is the legacy `apply plugin: 'x'` statement.
	PluginFormApply
)

func (f PluginForm) String() string {
	switch f {
	case PluginFormID:
		return "id"
	case PluginFormKotlin:
		return "kotlin"
	case PluginFormApply:
		return "apply"
	}
	return fmt.Sprintf("PluginForm(%d)", int(f))
}

// PluginDeclaration is one applied plugin. ID is always the full plugin
// identifier; for PluginFormKotlin the source text only carries the suffix.
type PluginDeclaration struct {
	ID      string     `json:"id"`
	Version string     `json:"version,omitempty"`
	Form    PluginForm `json:"-"`
	Line    int        `json:"line"`

	// Span covers the whole declaration statement. IDSpan covers only the
	// quoted identifier's contents (between the quotes), which is what a
	// plugin-ID rewrite replaces.
	Span   Span `json:"-"`
	IDSpan Span `json:"-"`
}

// DependencyDeclaration is one `<keyword> "<coordinate>"` statement inside a
// dependencies block, in either Groovy or Kotlin-script notation. When the
// dependency is referenced through a version catalog or variable rather than
// a string literal, Coordinate is empty and CoordinateRef holds the
// referenced expression text.
type DependencyDeclaration struct {
	Keyword       string `json:"keyword"`
	Coordinate    string `json:"coordinate,omitempty"`
	CoordinateRef string `json:"coordinate_ref,omitempty"`
	Line          int    `json:"line"`

	Span        Span `json:"-"`
	KeywordSpan Span `json:"-"`
	// CoordSpan covers the coordinate string's contents (no quotes). Zero
	// when CoordinateRef is set.
	CoordSpan Span `json:"-"`
}

// GroupArtifact returns the "group:artifact" prefix of the coordinate, or ""
// when the coordinate is not a literal or has no colon.
func (d DependencyDeclaration) GroupArtifact() string {
	ga, _ := SplitCoordinate(d.Coordinate)
	return ga
}

// SplitCoordinate splits "group:artifact:version" into "group:artifact" and
// the version (which may be empty). It returns "", "" for a coordinate
// without at least one colon.
func SplitCoordinate(coord string) (ga, version string) {
	first := -1
	second := -1
	for i := 0; i < len(coord); i++ {
		if coord[i] != ':' {
			continue
		}
		if first < 0 {
			first = i
		} else {
			second = i
			break
		}
	}
	if first < 0 {
		return "", ""
	}
	if second < 0 {
		return coord, ""
	}
	return coord[:second], coord[second+1:]
}

// Argument is one key/value pair inside an annotation-processor argument
// block. Order within the block is preserved.
type Argument struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Span  Span   `json:"-"`
}

// ConfigurationBlock is a named top-level block holding processor arguments,
// e.g. `kapt { arguments { arg("k", "v") } }` or `ksp { arg("k", "v") }`.
type ConfigurationBlock struct {
	Name      string     `json:"name"`
	Arguments []Argument `json:"arguments"`
	Line      int        `json:"line"`

	// Span covers the whole block from its name through the closing brace.
	Span Span `json:"-"`
	// HasExtra is set when the block contains statements beyond plain
	// argument declarations (e.g. `correctErrorTypes = true`). Such blocks
	// cannot be rewritten structurally.
	HasExtra bool `json:"has_extra,omitempty"`
}

// Descriptor is the parsed representation of one build script. Src is the
// exact input; declarations reference it by span. A Descriptor is immutable
// after parsing; rewrites produce new source text, never mutate this one.
type Descriptor struct {
	Path         string
	Src          []byte
	Plugins      []PluginDeclaration
	Dependencies []DependencyDeclaration
	Blocks       []ConfigurationBlock
}

// LineAt returns the 1-based line number containing byte offset off.
func (d *Descriptor) LineAt(off int) int {
	if off > len(d.Src) {
		off = len(d.Src)
	}
	line := 1
	for _, b := range d.Src[:off] {
		if b == '\n' {
			line++
		}
	}
	return line
}
