// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package latex

import (
	"fmt"
	"strings"
)

// macroArgSpecs maps macro names to their argument specs. Each byte of a
// spec is one argument: '*' an optional star, '[' an optional bracketed
// argument, '{' a mandatory argument. Macros not listed take no arguments.
var macroArgSpecs = map[string]string{
	"part":          "*[{",
	"chapter":       "*[{",
	"section":       "*[{",
	"subsection":    "*[{",
	"subsubsection": "*[{",
	"paragraph":     "*[{",
	"subparagraph":  "*[{",

	"cite":       "*[[{",
	"citep":      "*[[{",
	"citet":      "*[[{",
	"citealp":    "*[[{",
	"citeauthor": "*[[{",
	"citeyear":   "*[[{",
	"parencite":  "*[[{",
	"textcite":   "*[[{",
	"autocite":   "*[[{",
	"nocite":     "{",

	"ref":     "*{",
	"eqref":   "{",
	"pageref": "*{",
	"autoref": "*{",
	"cref":    "*{",
	"Cref":    "*{",
	"nameref": "*{",
	"label":   "{",

	"emph":      "{",
	"textbf":    "{",
	"textit":    "{",
	"texttt":    "{",
	"textsc":    "{",
	"textrm":    "{",
	"textsf":    "{",
	"underline": "{",
	"footnote":  "[{",
	"url":       "{",
	"href":      "{{",

	"caption":         "*[{",
	"includegraphics": "*[{",
	"input":           "{",
	"include":         "{",
	"documentclass":   "[{",
	"usepackage":      "[{",
	"title":           "[{",
	"author":          "[{",
	"date":            "{",
	"item":            "[",
	"hspace":          "*{",
	"vspace":          "*{",

	"\\": "*[",

	// Accents take their argument either as a group or as a single letter.
	"'":  "{",
	"`":  "{",
	"^":  "{",
	"\"": "{",
	"~":  "{",
	"=":  "{",
	".":  "{",
	"c":  "{",
	"v":  "{",
	"u":  "{",
	"H":  "{",
}

// envArgSpecs maps environment names to the argument spec parsed right
// after \begin{name}.
var envArgSpecs = map[string]string{
	"figure":          "[",
	"figure*":         "[",
	"table":           "[",
	"table*":          "[",
	"tabular":         "[{",
	"minipage":        "[{",
	"thebibliography": "{",
	"wrapfigure":      "[{{",
	"subfigure":       "[{",
}

// rawEnvironments keep their body as one uninterpreted character run.
var rawEnvironments = map[string]bool{
	"verbatim":     true,
	"verbatim*":    true,
	"lstlisting":   true,
	"minted":       true,
	"comment":      true,
	"filecontents": true,
}

// ParseError reports input the parser cannot turn into a node tree.
type ParseError struct {
	Pos  int
	Line int
	Col  int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("latex: %s at line %d, column %d", e.Msg, e.Line, e.Col)
}

// Parse tokenizes src and returns its top-level nodes in document order.
func Parse(src string) ([]Node, error) {
	p := &parser{src: src}
	nodes, err := p.parseNodes(atEOF)
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

type parser struct {
	src string
	pos int
}

// stopFunc reports whether the node list being parsed ends at the parser's
// current position.
type stopFunc func(p *parser) bool

func atEOF(p *parser) bool { return false }

func atByte(b byte) stopFunc {
	return func(p *parser) bool { return p.src[p.pos] == b }
}

func atPrefix(s string) stopFunc {
	return func(p *parser) bool { return strings.HasPrefix(p.src[p.pos:], s) }
}

func (p *parser) errorf(pos int, format string, args ...any) *ParseError {
	line := 1 + strings.Count(p.src[:pos], "\n")
	col := pos - strings.LastIndex(p.src[:pos], "\n")
	return &ParseError{Pos: pos, Line: line, Col: col, Msg: fmt.Sprintf(format, args...)}
}

// parseNodes consumes nodes until stop fires or the input ends. It leaves
// the closing delimiter for the caller.
func (p *parser) parseNodes(stop stopFunc) ([]Node, error) {
	var (
		nodes     []Node
		text      strings.Builder
		textStart = -1
	)
	flush := func() {
		if textStart < 0 {
			return
		}
		nodes = append(nodes, &CharsNode{
			span:  span{Pos: textStart, Len: p.pos - textStart},
			Chars: text.String(),
		})
		text.Reset()
		textStart = -1
	}
	addText := func(s string, width int) {
		if textStart < 0 {
			textStart = p.pos
		}
		text.WriteString(s)
		p.pos += width
	}

	for p.pos < len(p.src) {
		if stop(p) {
			break
		}
		c := p.src[p.pos]
		switch {
		case c == '%':
			flush()
			nodes = append(nodes, p.parseComment())

		case c == '\\':
			if strings.HasPrefix(p.src[p.pos:], `\end`) && !isLetterAt(p.src, p.pos+4) {
				return nil, p.errorf(p.pos, "unexpected \\end")
			}
			flush()
			n, err := p.parseBackslash()
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)

		case c == '{':
			flush()
			n, err := p.parseGroup()
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)

		case c == '}':
			return nil, p.errorf(p.pos, "unmatched '}'")

		case c == '$':
			flush()
			n, err := p.parseDollarMath()
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)

		case c == '`':
			flush()
			nodes = append(nodes, p.parseRepeatSpecial('`'))

		case c == '\'':
			if p.pos > 0 && isLetterAt(p.src, p.pos-1) && isLetterAt(p.src, p.pos+1) {
				addText("'", 1)
				continue
			}
			flush()
			nodes = append(nodes, p.parseRepeatSpecial('\''))

		case c == '&':
			flush()
			nodes = append(nodes, &SpecialsNode{span: span{Pos: p.pos, Len: 1}, Chars: "&"})
			p.pos++

		case c == '~':
			addText(" ", 1)

		default:
			addText(p.src[p.pos:p.pos+1], 1)
		}
	}
	flush()
	return nodes, nil
}

func (p *parser) parseComment() *CommentNode {
	start := p.pos
	end := strings.IndexByte(p.src[start:], '\n')
	if end < 0 {
		p.pos = len(p.src)
	} else {
		p.pos = start + end + 1
	}
	return &CommentNode{
		span:    span{Pos: start, Len: p.pos - start},
		Comment: strings.TrimRight(p.src[start+1:p.pos], "\r\n"),
	}
}

// parseRepeatSpecial reads a quote special of one or two identical chars.
func (p *parser) parseRepeatSpecial(c byte) *SpecialsNode {
	start := p.pos
	n := 1
	if p.pos+1 < len(p.src) && p.src[p.pos+1] == c {
		n = 2
	}
	p.pos += n
	return &SpecialsNode{span: span{Pos: start, Len: n}, Chars: p.src[start:p.pos]}
}

func (p *parser) parseGroup() (*GroupNode, error) {
	start := p.pos
	children, err := p.parseBraced()
	if err != nil {
		return nil, err
	}
	return &GroupNode{span: span{Pos: start, Len: p.pos - start}, Children: children}, nil
}

// parseBraced parses {...} starting at an opening brace and returns the
// content nodes.
func (p *parser) parseBraced() ([]Node, error) {
	open := p.pos
	p.pos++
	children, err := p.parseNodes(atByte('}'))
	if err != nil {
		return nil, err
	}
	if p.pos >= len(p.src) {
		return nil, p.errorf(open, "unclosed '{'")
	}
	p.pos++
	return children, nil
}

func (p *parser) parseDollarMath() (*MathNode, error) {
	if strings.HasPrefix(p.src[p.pos:], "$$") {
		return p.parseMath("$$", "$$", MathDisplayBlock)
	}
	return p.parseMath("$", "$", MathInline)
}

func (p *parser) parseMath(open, close string, display MathDisplay) (*MathNode, error) {
	start := p.pos
	p.pos += len(open)
	children, err := p.parseNodes(atPrefix(close))
	if err != nil {
		return nil, err
	}
	if p.pos >= len(p.src) {
		return nil, p.errorf(start, "unterminated math %s", open)
	}
	p.pos += len(close)
	return &MathNode{
		span:      span{Pos: start, Len: p.pos - start},
		Display:   display,
		Delimiter: open,
		Children:  children,
	}, nil
}

// parseBackslash handles everything that starts with a backslash: math
// delimiters, environments and macros.
func (p *parser) parseBackslash() (Node, error) {
	start := p.pos
	if p.pos+1 >= len(p.src) {
		return nil, p.errorf(start, "trailing backslash")
	}
	switch p.src[p.pos+1] {
	case '(':
		return p.parseMath(`\(`, `\)`, MathInline)
	case '[':
		return p.parseMath(`\[`, `\]`, MathDisplayBlock)
	}

	name := p.readMacroName()
	if name == "begin" {
		return p.parseEnvironment(start)
	}

	m := &MacroNode{Name: name}
	if spec, ok := macroArgSpecs[name]; ok {
		args, err := p.parseArgs(spec)
		if err != nil {
			return nil, err
		}
		m.Args = args
	} else if isLetter(name[0]) {
		p.skipInlineSpace()
	}
	m.span = span{Pos: start, Len: p.pos - start}
	return m, nil
}

// readMacroName consumes the backslash and the macro name: a run of letters
// or a single other character.
func (p *parser) readMacroName() string {
	p.pos++
	begin := p.pos
	for p.pos < len(p.src) && isLetter(p.src[p.pos]) {
		p.pos++
	}
	if p.pos == begin {
		p.pos++
	}
	return p.src[begin:p.pos]
}

func (p *parser) parseEnvironment(start int) (*EnvironmentNode, error) {
	p.skipInlineSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '{' {
		return nil, p.errorf(start, "\\begin without environment name")
	}
	name, err := p.readEnvName()
	if err != nil {
		return nil, err
	}

	env := &EnvironmentNode{Name: name}
	if spec, ok := envArgSpecs[name]; ok {
		if env.Args, err = p.parseArgs(spec); err != nil {
			return nil, err
		}
	}

	end := `\end{` + name + `}`
	if rawEnvironments[name] {
		idx := strings.Index(p.src[p.pos:], end)
		if idx < 0 {
			return nil, p.errorf(start, "environment %q is never closed", name)
		}
		body := p.src[p.pos : p.pos+idx]
		env.Children = []Node{&CharsNode{span: span{Pos: p.pos, Len: len(body)}, Chars: body}}
		p.pos += idx + len(end)
		env.span = span{Pos: start, Len: p.pos - start}
		return env, nil
	}

	children, err := p.parseNodes(atEnd)
	if err != nil {
		return nil, err
	}
	if p.pos >= len(p.src) {
		return nil, p.errorf(start, "environment %q is never closed", name)
	}
	endPos := p.pos
	p.pos += len(`\end`)
	p.skipInlineSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '{' {
		return nil, p.errorf(endPos, "\\end without environment name")
	}
	closing, err := p.readEnvName()
	if err != nil {
		return nil, err
	}
	if closing != name {
		return nil, p.errorf(endPos, "\\begin{%s} closed by \\end{%s}", name, closing)
	}
	env.Children = children
	env.span = span{Pos: start, Len: p.pos - start}
	return env, nil
}

func atEnd(p *parser) bool {
	return strings.HasPrefix(p.src[p.pos:], `\end`) && !isLetterAt(p.src, p.pos+4)
}

// readEnvName reads {name} and returns name.
func (p *parser) readEnvName() (string, error) {
	open := p.pos
	idx := strings.IndexByte(p.src[open:], '}')
	if idx < 0 {
		return "", p.errorf(open, "unclosed environment name")
	}
	name := strings.TrimSpace(p.src[open+1 : open+idx])
	if name == "" {
		return "", p.errorf(open, "empty environment name")
	}
	p.pos = open + idx + 1
	return name, nil
}

// parseArgs reads arguments according to spec. Absent optional arguments
// are returned as nil entries so that argument indexes stay fixed.
func (p *parser) parseArgs(spec string) ([]*Argument, error) {
	args := make([]*Argument, len(spec))
	for i := 0; i < len(spec); i++ {
		switch spec[i] {
		case '*':
			if p.pos < len(p.src) && p.src[p.pos] == '*' {
				args[i] = &Argument{Open: '*', Children: []Node{
					&CharsNode{span: span{Pos: p.pos, Len: 1}, Chars: "*"},
				}}
				p.pos++
			}

		case '[':
			save := p.pos
			p.skipInlineSpace()
			if p.pos >= len(p.src) || p.src[p.pos] != '[' {
				p.pos = save
				continue
			}
			open := p.pos
			p.pos++
			children, err := p.parseNodes(atByte(']'))
			if err != nil {
				return nil, err
			}
			if p.pos >= len(p.src) {
				return nil, p.errorf(open, "unclosed '['")
			}
			p.pos++
			args[i] = &Argument{Open: '[', Children: children}

		case '{':
			save := p.pos
			p.skipSpace()
			if p.pos >= len(p.src) {
				p.pos = save
				continue
			}
			switch c := p.src[p.pos]; {
			case c == '{':
				children, err := p.parseBraced()
				if err != nil {
					return nil, err
				}
				args[i] = &Argument{Open: '{', Children: children}
			case isLetter(c) || (c >= '0' && c <= '9'):
				args[i] = &Argument{Children: []Node{
					&CharsNode{span: span{Pos: p.pos, Len: 1}, Chars: string(c)},
				}}
				p.pos++
			default:
				p.pos = save
			}
		}
	}
	return args, nil
}

// skipInlineSpace skips spaces and tabs but never a newline.
func (p *parser) skipInlineSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

// skipSpace skips whitespace including at most one newline; a blank line
// ends the search for an argument.
func (p *parser) skipSpace() {
	p.skipInlineSpace()
	if p.pos < len(p.src) && p.src[p.pos] == '\n' {
		next := p.pos + 1
		for next < len(p.src) && (p.src[next] == ' ' || p.src[next] == '\t') {
			next++
		}
		if next < len(p.src) && p.src[next] == '\n' {
			return
		}
		p.pos = next
	}
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isLetterAt(s string, i int) bool {
	return i >= 0 && i < len(s) && isLetter(s[i])
}
