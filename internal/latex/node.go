// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package latex parses LaTeX source into a flat-then-nested tree of typed
// nodes. The tree is a tagged union: every value implementing Node is one of
// the pointer types declared in this file, and consumers switch over them
// exhaustively.
package latex

// Node is one parsed unit of a LaTeX document.
type Node interface {
	// Span returns the byte offset and byte length of the node in the source.
	Span() (pos, length int)

	isNode()
}

// span records where a node came from in the source text.
type span struct {
	Pos int
	Len int
}

func (s span) Span() (int, int) { return s.Pos, s.Len }
func (span) isNode()            {}

// CommentNode is a % comment, running up to and including the end of line.
type CommentNode struct {
	span
	Comment string
}

// EnvironmentNode is a \begin{Name} ... \end{Name} block.
type EnvironmentNode struct {
	span
	Name     string
	Args     []*Argument
	Children []Node
}

// CharsNode is a run of ordinary text. Chars keeps the source whitespace,
// including newlines.
type CharsNode struct {
	span
	Chars string
}

// MacroNode is a macro invocation such as \section*{Intro}. Args follows the
// macro's argument spec; a nil entry is an optional argument that was not
// given.
type MacroNode struct {
	span
	Name string
	Args []*Argument
}

// Arg returns the i-th argument or nil when it is absent or out of range.
func (m *MacroNode) Arg(i int) *Argument {
	if i < 0 || i >= len(m.Args) {
		return nil
	}
	return m.Args[i]
}

// MathDisplay distinguishes inline math from displayed math.
type MathDisplay int

const (
	MathInline MathDisplay = iota
	MathDisplayBlock
)

func (d MathDisplay) String() string {
	switch d {
	case MathInline:
		return "inline"
	case MathDisplayBlock:
		return "display"
	}
	return "unknown"
}

// MathNode is a math span delimited by $...$, $$...$$, \(...\) or \[...\].
type MathNode struct {
	span
	Display   MathDisplay
	Delimiter string
	Children  []Node
}

// SpecialsNode is a run of characters with typographic meaning: quote
// ligatures and alignment markers.
type SpecialsNode struct {
	span
	Chars string
}

// GroupNode is a brace-delimited {...} group.
type GroupNode struct {
	span
	Children []Node
}

// Argument is one parsed macro or environment argument. Open is the opening
// delimiter: '*', '[' or '{'. A mandatory argument given as a bare token
// (\'e) has Open == 0.
type Argument struct {
	Open     byte
	Children []Node
}
