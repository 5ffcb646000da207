package descriptor

import (
	"fmt"
)

// ParseError reports a structural problem in a build script. Offset is the
// byte offset of the problem; Near is the nearby token text, when one exists.
type ParseError struct {
	Path   string
	Offset int
	Line   int
	Col    int
	Near   string
	Msg    string
}

func (e *ParseError) Error() string {
	loc := fmt.Sprintf("%s:%d:%d (offset %d)", e.Path, e.Line, e.Col, e.Offset)
	if e.Near != "" {
		return fmt.Sprintf("%s: %s near %q", loc, e.Msg, e.Near)
	}
	return fmt.Sprintf("%s: %s", loc, e.Msg)
}

// Options controls which block names the parser models as configuration
// blocks. The parser itself knows nothing about toolchains; callers pass the
// block names their rule table tracks.
type Options struct {
	ArgumentBlocks []string
}

// DefaultOptions tracks the kapt and ksp argument blocks.
func DefaultOptions() Options {
	return Options{ArgumentBlocks: []string{"kapt", "ksp"}}
}

// Parse builds a Descriptor from one build script. It never modifies src and
// has no side effects; on a grammar violation it returns a *ParseError and a
// nil Descriptor.
func Parse(path string, src []byte, opts Options) (*Descriptor, error) {
	toks, err := tokenize(path, src)
	if err != nil {
		return nil, err
	}
	p := &parser{
		path: path,
		src:  src,
		toks: toks,
		opts: opts,
		d:    &Descriptor{Path: path, Src: src},
	}
	if err := p.run(); err != nil {
		return nil, err
	}
	return p.d, nil
}

// ---------------------------------------------------------------------------
// Tokenizer
// ---------------------------------------------------------------------------

type tokKind int

const (
	tokIdent tokKind = iota
	tokString
	tokLBrace
	tokRBrace
	tokLParen
	tokRParen
	tokColon
	tokComma
	tokDot
	tokEq
	tokNewline
	tokOther
	tokEOF
)

type token struct {
	kind tokKind
	span Span
	// text is the identifier or the decoded string value. For tokString,
	// inner covers the contents between the quotes.
	text  string
	inner Span
	line  int
}

func tokenize(path string, src []byte) ([]token, error) {
	var toks []token
	line := 1
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == '\n':
			toks = append(toks, token{kind: tokNewline, span: Span{i, i + 1}, line: line})
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			i += 2
			for i+1 < len(src) && !(src[i] == '*' && src[i+1] == '/') {
				if src[i] == '\n' {
					line++
				}
				i++
			}
			if i+1 < len(src) {
				i += 2
			} else {
				i = len(src)
			}
		case c == '\'' || c == '"':
			start := i
			startLine := line
			quote := c
			i++
			innerStart := i
			for i < len(src) && src[i] != quote {
				if src[i] == '\\' && i+1 < len(src) {
					i++
				}
				if src[i] == '\n' {
					return nil, parseErrAt(path, src, start, "", "unterminated string literal")
				}
				i++
			}
			if i >= len(src) {
				return nil, parseErrAt(path, src, start, "", "unterminated string literal")
			}
			toks = append(toks, token{
				kind:  tokString,
				span:  Span{start, i + 1},
				text:  string(src[innerStart:i]),
				inner: Span{innerStart, i},
				line:  startLine,
			})
			i++
		case isIdentStart(c):
			start := i
			for i < len(src) && isIdentPart(src[i]) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, span: Span{start, i}, text: string(src[start:i]), line: line})
		default:
			kind := tokOther
			switch c {
			case '{':
				kind = tokLBrace
			case '}':
				kind = tokRBrace
			case '(':
				kind = tokLParen
			case ')':
				kind = tokRParen
			case ':':
				kind = tokColon
			case ',':
				kind = tokComma
			case '.':
				kind = tokDot
			case '=':
				kind = tokEq
			}
			toks = append(toks, token{kind: kind, span: Span{i, i + 1}, text: string(src[i : i+1]), line: line})
			i++
		}
	}
	toks = append(toks, token{kind: tokEOF, span: Span{len(src), len(src)}, line: line})
	return toks, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || ('0' <= c && c <= '9') || c == '-'
}

func parseErrAt(path string, src []byte, off int, near, msg string) *ParseError {
	line, col := 1, 1
	for _, b := range src[:off] {
		if b == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return &ParseError{Path: path, Offset: off, Line: line, Col: col, Near: near, Msg: msg}
}

// ---------------------------------------------------------------------------
// Structural scan
// ---------------------------------------------------------------------------

type blockFrame struct {
	name    string              // "" for anonymous closures and untracked blocks
	openOff int                 // offset of the opening brace
	line    int
	tracked bool                // one of opts.ArgumentBlocks
	inArgs  bool                // inside a nested `arguments { ... }` wrapper
	cb      *ConfigurationBlock
}

type parser struct {
	path string
	src  []byte
	toks []token
	i    int
	opts Options
	d    *Descriptor

	stack []blockFrame
}

func (p *parser) cur() token { return p.toks[p.i] }
func (p *parser) at(k tokKind) bool { return p.toks[p.i].kind == k }

func (p *parser) top() *blockFrame {
	if len(p.stack) == 0 {
		return nil
	}
	return &p.stack[len(p.stack)-1]
}

func (p *parser) errHere(msg string) *ParseError {
	t := p.cur()
	return parseErrAt(p.path, p.src, t.span.Start, t.text, msg)
}

func (p *parser) run() error {
	for !p.at(tokEOF) {
		t := p.cur()
		switch t.kind {
		case tokNewline:
			p.i++
		case tokRBrace:
			if len(p.stack) == 0 {
				return p.errHere("unbalanced block: unexpected '}'")
			}
			p.closeBlock(t.span.End)
			p.i++
		case tokLBrace:
			// Anonymous closure (trailing lambda, untracked block opened
			// without a recognized name statement).
			p.pushAnon(t.span.Start, t.line)
			p.i++
		case tokIdent:
			if err := p.statement(); err != nil {
				return err
			}
		default:
			p.i++
		}
	}
	if len(p.stack) > 0 {
		f := p.stack[len(p.stack)-1]
		return parseErrAt(p.path, p.src, f.openOff, "{", "unbalanced block: unclosed '{'")
	}
	return nil
}

func (p *parser) pushAnon(openOff, line int) {
	p.stack = append(p.stack, blockFrame{openOff: openOff, line: line})
}

func (p *parser) closeBlock(end int) {
	f := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	if f.cb != nil {
		f.cb.Span.End = end
		p.d.Blocks = append(p.d.Blocks, *f.cb)
	}
}

// statement dispatches on the identifier starting a statement. Context comes
// from the top of the block stack only: statements inside an anonymous
// closure never inherit the surrounding named block's grammar.
func (p *parser) statement() error {
	top := p.top()
	t := p.cur()

	// Block opener: IDENT '{'
	if p.toks[p.i+1].kind == tokLBrace {
		name := t.text
		open := p.toks[p.i+1]
		frame := blockFrame{name: name, openOff: open.span.Start, line: t.line}
		switch {
		case top != nil && top.tracked && name == "arguments":
			frame.name = ""
			frame.inArgs = true
		case top != nil && (top.tracked || top.inArgs):
			// Unexpected nested block inside an argument block; the block
			// can no longer be rewritten structurally.
			if tf := p.trackedFrame(); tf != nil && tf.cb != nil {
				tf.cb.HasExtra = true
			}
		case p.isTrackedBlock(name) && (top == nil || (top.name != "dependencies" && top.name != "plugins")):
			frame.tracked = true
			frame.cb = &ConfigurationBlock{
				Name: name,
				Line: t.line,
				Span: Span{t.span.Start, 0},
			}
		}
		p.stack = append(p.stack, frame)
		p.i += 2
		return nil
	}

	switch {
	case top != nil && top.name == "plugins":
		return p.pluginStatement()
	case top != nil && top.name == "dependencies":
		return p.dependencyStatement()
	case top != nil && (top.tracked || top.inArgs):
		return p.argBlockStatement()
	case t.text == "apply":
		return p.applyStatement()
	}
	p.skipStatement()
	return nil
}

func (p *parser) isTrackedBlock(name string) bool {
	for _, n := range p.opts.ArgumentBlocks {
		if n == name {
			return true
		}
	}
	return false
}

// trackedFrame returns the innermost tracked configuration-block frame.
func (p *parser) trackedFrame() *blockFrame {
	for j := len(p.stack) - 1; j >= 0; j-- {
		if p.stack[j].tracked {
			return &p.stack[j]
		}
	}
	return nil
}

// skipStatement advances past the current statement: everything up to the
// next newline, brace, or EOF, balancing any parentheses on the way.
func (p *parser) skipStatement() {
	depth := 0
	for {
		switch p.cur().kind {
		case tokEOF:
			return
		case tokLParen:
			depth++
		case tokRParen:
			if depth > 0 {
				depth--
			}
		case tokNewline:
			if depth == 0 {
				return
			}
		case tokLBrace, tokRBrace:
			if depth == 0 {
				return
			}
		}
		p.i++
	}
}

// pluginStatement parses one statement inside a plugins block.
func (p *parser) pluginStatement() error {
	start := p.cur()
	switch start.text {
	case "id":
		return p.pluginID(start, PluginFormID)
	case "kotlin":
		return p.pluginID(start, PluginFormKotlin)
	case "alias":
		// Version-catalog plugin aliases carry no literal ID to match.
		p.skipStatement()
		return nil
	default:
		p.skipStatement()
		return nil
	}
}

// pluginID parses `id 'x'`, `id("x")` and `kotlin("kapt")` with optional
// `version`/`apply` trailers.
func (p *parser) pluginID(start token, form PluginForm) error {
	p.i++
	paren := false
	if p.at(tokLParen) {
		paren = true
		p.i++
	}
	if !p.at(tokString) {
		// Not a literal plugin ID; leave as residue.
		p.skipStatement()
		return nil
	}
	str := p.cur()
	p.i++
	if paren {
		if !p.at(tokRParen) {
			return p.errHere("expected ')' after plugin id")
		}
		p.i++
	}

	id := str.text
	if form == PluginFormKotlin {
		id = "org.jetbrains.kotlin." + str.text
	}
	decl := PluginDeclaration{
		ID:     id,
		Form:   form,
		Line:   start.line,
		Span:   Span{start.span.Start, p.toks[p.i-1].span.End},
		IDSpan: str.inner,
	}

	// Optional trailers: version "x" / version("x") / apply false.
	for p.at(tokIdent) {
		switch p.cur().text {
		case "version":
			p.i++
			vparen := false
			if p.at(tokLParen) {
				vparen = true
				p.i++
			}
			if p.at(tokString) {
				decl.Version = p.cur().text
				p.i++
			}
			if vparen && p.at(tokRParen) {
				p.i++
			}
		case "apply":
			p.i++
			if p.at(tokIdent) {
				p.i++
			}
		default:
			p.skipStatement()
			decl.Span.End = p.toks[p.i-1].span.End
			p.d.Plugins = append(p.d.Plugins, decl)
			return nil
		}
	}
	decl.Span.End = p.toks[p.i-1].span.End
	p.d.Plugins = append(p.d.Plugins, decl)
	return nil
}

// applyStatement parses the legacy `apply plugin: 'x'` form.
func (p *parser) applyStatement() error {
	start := p.cur()
	if p.toks[p.i+1].kind != tokIdent || p.toks[p.i+1].text != "plugin" {
		p.skipStatement()
		return nil
	}
	if p.toks[p.i+2].kind != tokColon || p.toks[p.i+3].kind != tokString {
		p.skipStatement()
		return nil
	}
	str := p.toks[p.i+3]
	p.d.Plugins = append(p.d.Plugins, PluginDeclaration{
		ID:     str.text,
		Form:   PluginFormApply,
		Line:   start.line,
		Span:   Span{start.span.Start, str.span.End},
		IDSpan: str.inner,
	})
	p.i += 4
	return nil
}

// dependencyStatement parses one statement inside a dependencies block.
func (p *parser) dependencyStatement() error {
	kw := p.cur()
	p.i++

	decl := DependencyDeclaration{
		Keyword:     kw.text,
		Line:        kw.line,
		KeywordSpan: kw.span,
		Span:        Span{kw.span.Start, kw.span.End},
	}

	paren := false
	if p.at(tokLParen) {
		paren = true
		p.i++
	}

	switch {
	case p.at(tokString):
		str := p.cur()
		decl.Coordinate = str.text
		decl.CoordSpan = str.inner
		p.i++
	case p.at(tokIdent):
		// Version-catalog or variable reference, possibly dotted, possibly a
		// call like project(":core").
		refStart := p.cur().span.Start
		p.i++
		for p.at(tokDot) && p.toks[p.i+1].kind == tokIdent {
			p.i += 2
		}
		if p.at(tokLParen) {
			depth := 0
			for {
				if p.at(tokEOF) {
					return p.errHere("unterminated dependency argument list")
				}
				if p.at(tokLParen) {
					depth++
				}
				if p.at(tokRParen) {
					depth--
					if depth == 0 {
						p.i++
						break
					}
				}
				p.i++
			}
		}
		decl.CoordinateRef = string(p.src[refStart:p.toks[p.i-1].span.End])
	default:
		// Not a dependency notation we model (maps, closures); residue.
		p.skipStatement()
		return nil
	}

	if paren {
		if !p.at(tokRParen) {
			// Extra arguments (classifier strings, maps); residue.
			p.skipStatement()
			return nil
		}
		p.i++
	}
	decl.Span.End = p.toks[p.i-1].span.End
	p.d.Dependencies = append(p.d.Dependencies, decl)

	// A trailing configuration closure or extra literals belong to the
	// statement but not to the declaration span.
	return nil
}

// argBlockStatement parses one statement inside a tracked configuration
// block (or its `arguments` wrapper): `arg("key", "value")`, with or without
// parentheses. Anything else marks the block as having extra content.
func (p *parser) argBlockStatement() error {
	frame := p.trackedFrame()
	start := p.cur()
	if start.text != "arg" {
		if frame != nil && frame.cb != nil {
			frame.cb.HasExtra = true
		}
		p.skipStatement()
		return nil
	}
	p.i++
	paren := false
	if p.at(tokLParen) {
		paren = true
		p.i++
	}
	if !p.at(tokString) {
		if frame != nil && frame.cb != nil {
			frame.cb.HasExtra = true
		}
		p.skipStatement()
		return nil
	}
	key := p.cur()
	p.i++
	if !p.at(tokComma) {
		if frame != nil && frame.cb != nil {
			frame.cb.HasExtra = true
		}
		p.skipStatement()
		return nil
	}
	p.i++
	if !p.at(tokString) {
		if frame != nil && frame.cb != nil {
			frame.cb.HasExtra = true
		}
		p.skipStatement()
		return nil
	}
	val := p.cur()
	p.i++
	if paren {
		if !p.at(tokRParen) {
			return p.errHere("expected ')' after argument value")
		}
		p.i++
	}
	if frame != nil && frame.cb != nil {
		frame.cb.Arguments = append(frame.cb.Arguments, Argument{
			Key:   key.text,
			Value: val.text,
			Span:  Span{start.span.Start, p.toks[p.i-1].span.End},
		})
	}
	return nil
}
