package rewrite

import (
	"fmt"
	"strings"

	"github.com/kspify/kspify/internal/core/classify"
	"github.com/kspify/kspify/internal/core/descriptor"
)

// DeclKind names the kind of declaration a change touched.
type DeclKind string

const (
	KindPlugin     DeclKind = "plugin"
	KindDependency DeclKind = "dependency"
	KindBlock      DeclKind = "block"
)

// Change is one applied rewrite, as a before/after pair over the
// declaration's original text.
type Change struct {
	Kind   DeclKind `json:"kind"`
	Line   int      `json:"line"`
	Before string   `json:"before"`
	After  string   `json:"after"`
}

// Output is the result of rewriting one descriptor.
type Output struct {
	// Text is the rewritten source. When nothing was rewritten (no migrate
	// actions, or the file is conflicted) it equals the input byte-for-byte.
	Text      []byte
	Changes   []Change
	Rewritten bool
}

// Apply produces the rewritten text for one descriptor given its
// classification. Conflicted files are returned untouched: mixing the two
// mechanisms is invalid and must be resolved by hand, never by the tool.
func Apply(d *descriptor.Descriptor, res *classify.Result) (*Output, error) {
	if res.HasConflict() || res.MigrateCount() == 0 {
		return &Output{Text: append([]byte(nil), d.Src...)}, nil
	}

	buf := NewBuffer(d.Src)
	kts := strings.HasSuffix(d.Path, ".kts")
	var changes []Change

	for _, act := range res.Actions {
		if act.Kind != classify.Migrate {
			continue
		}
		switch {
		case act.Plugin != nil:
			changes = append(changes, rewritePlugin(d, buf, act, kts))
		case act.Dependency != nil:
			changes = append(changes, rewriteDependency(d, buf, act))
		case act.Block != nil:
			changes = append(changes, rewriteBlock(d, buf, act))
		default:
			return nil, fmt.Errorf("rewrite: migrate action at line %d references no declaration", act.Line)
		}
	}

	text, err := buf.Bytes()
	if err != nil {
		return nil, err
	}
	return &Output{Text: text, Changes: changes, Rewritten: true}, nil
}

func rewritePlugin(d *descriptor.Descriptor, buf *Buffer, act classify.Action, kts bool) Change {
	p := act.Plugin
	before := p.Span.Text(d.Src)

	if act.RemoveDeclaration {
		start, end := lineBounds(d.Src, p.Span)
		buf.Delete(start, end)
		return Change{Kind: KindPlugin, Line: p.Line, Before: before, After: ""}
	}

	if p.Form == descriptor.PluginFormKotlin {
		// The kotlin("...") shorthand only spells org.jetbrains.kotlin
		// plugins, so the whole declaration is rebuilt in id() form.
		after := pluginDecl(act.TargetPluginID, p.Version, kts)
		buf.Replace(p.Span.Start, p.Span.End, after)
		return Change{Kind: KindPlugin, Line: p.Line, Before: before, After: after}
	}

	buf.Replace(p.IDSpan.Start, p.IDSpan.End, act.TargetPluginID)
	after := splice(d.Src, p.Span, p.IDSpan, act.TargetPluginID)
	return Change{Kind: KindPlugin, Line: p.Line, Before: before, After: after}
}

func pluginDecl(id, version string, kts bool) string {
	if kts {
		s := fmt.Sprintf("id(%q)", id)
		if version != "" {
			s += fmt.Sprintf(" version %q", version)
		}
		return s
	}
	s := fmt.Sprintf("id '%s'", id)
	if version != "" {
		s += fmt.Sprintf(" version '%s'", version)
	}
	return s
}

func rewriteDependency(d *descriptor.Descriptor, buf *Buffer, act classify.Action) Change {
	dep := act.Dependency
	before := dep.Span.Text(d.Src)

	buf.Replace(dep.KeywordSpan.Start, dep.KeywordSpan.End, act.TargetKeyword)
	after := splice(d.Src, dep.Span, dep.KeywordSpan, act.TargetKeyword)
	if act.TargetCoordinate != "" {
		buf.Replace(dep.CoordSpan.Start, dep.CoordSpan.End, act.TargetCoordinate)
		// Recompute the after text with both splices, keyword first.
		shifted := descriptor.Span{
			Start: dep.CoordSpan.Start - dep.KeywordSpan.Len() + len(act.TargetKeyword),
			End:   dep.CoordSpan.End - dep.KeywordSpan.Len() + len(act.TargetKeyword),
		}
		after = after[:shifted.Start-dep.Span.Start] + act.TargetCoordinate + after[shifted.End-dep.Span.Start:]
	}
	return Change{Kind: KindDependency, Line: dep.Line, Before: before, After: after}
}

func rewriteBlock(d *descriptor.Descriptor, buf *Buffer, act classify.Action) Change {
	b := act.Block
	before := b.Span.Text(d.Src)
	indent := lineIndent(d.Src, b.Span.Start)

	var sb strings.Builder
	sb.WriteString(act.TargetBlockName)
	sb.WriteString(" {\n")
	for _, arg := range b.Arguments {
		sb.WriteString(indent)
		sb.WriteString("    ")
		sb.WriteString(fmt.Sprintf("arg(%q, %q)", arg.Key, arg.Value))
		sb.WriteString("\n")
	}
	sb.WriteString(indent)
	sb.WriteString("}")
	after := sb.String()

	buf.Replace(b.Span.Start, b.Span.End, after)
	return Change{Kind: KindBlock, Line: b.Line, Before: before, After: after}
}

// splice returns the text of outer with inner replaced by repl. inner must
// lie within outer.
func splice(src []byte, outer, inner descriptor.Span, repl string) string {
	return string(src[outer.Start:inner.Start]) + repl + string(src[inner.End:outer.End])
}

// lineBounds widens a span to the whole line, trailing newline included,
// when nothing but whitespace shares the line with it. Declarations that
// share a line with other content are removed span-only.
func lineBounds(src []byte, span descriptor.Span) (int, int) {
	start := span.Start
	for start > 0 && src[start-1] != '\n' {
		start--
	}
	end := span.End
	for end < len(src) && src[end] != '\n' {
		end++
	}
	for i := start; i < span.Start; i++ {
		if src[i] != ' ' && src[i] != '\t' {
			return span.Start, span.End
		}
	}
	for i := span.End; i < end; i++ {
		if src[i] != ' ' && src[i] != '\t' && src[i] != ';' {
			return span.Start, span.End
		}
	}
	if end < len(src) {
		end++ // swallow the newline
	}
	return start, end
}

// lineIndent returns the leading whitespace of the line containing off.
func lineIndent(src []byte, off int) string {
	start := off
	for start > 0 && src[start-1] != '\n' {
		start--
	}
	end := start
	for end < len(src) && (src[end] == ' ' || src[end] == '\t') {
		end++
	}
	return string(src[start:end])
}
