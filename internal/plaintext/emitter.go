// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package plaintext flattens a parsed LaTeX node tree into plain text for
// the academic writing assistant. Paragraphs are joined onto one line,
// section titles are kept as their own paragraphs, and citations, references
// and inline math are dropped.
//
// Output scheme: every paragraph starts with "\n", every title with "\n\n",
// and text that continues a paragraph after an elided node starts with a
// single space. Nothing is written after the last node.
package plaintext

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/pdiddy/latex2awa/internal/latex"
)

var (
	// sectionRe matches sectioning macros. Like a prefix match, it also
	// accepts names that merely start with a sectioning command.
	sectionRe = regexp.MustCompile(`^(?:(?:sub)*section|chapter)`)

	// citeRe matches citation and cross-reference macros. Citation names
	// match as a prefix (citep, citeauthor); reference names must match
	// exactly so that \reflectbox and \refstepcounter are not references.
	citeRe = regexp.MustCompile(`^(?:[a-z]*cite|(?:eq|page|auto|c|C|name)?ref$)`)

	// newParagraphRe matches a chars run that begins with a blank line.
	newParagraphRe = regexp.MustCompile(`^\n{2,}`)

	// newlineRe matches a line break together with its surrounding whitespace.
	newlineRe = regexp.MustCompile(`\s*\n\s*`)
)

const (
	envFigure = "figure"
	envNoAWA  = "no-awa"

	// titleArg is the index of the title among a sectioning macro's
	// arguments (star, optional short title, title).
	titleArg = 2
)

// ErrMalformedTitleArgument is returned when a sectioning macro has no
// plain-text title argument.
var ErrMalformedTitleArgument = errors.New("malformed title argument")

// MalformedTitleArgumentError identifies the sectioning macro whose title
// could not be extracted.
type MalformedTitleArgumentError struct {
	Macro  string
	Pos    int
	Reason string
}

func (e *MalformedTitleArgumentError) Error() string {
	return fmt.Sprintf("%v: \\%s at offset %d: %s", ErrMalformedTitleArgument, e.Macro, e.Pos, e.Reason)
}

func (e *MalformedTitleArgumentError) Unwrap() error { return ErrMalformedTitleArgument }

// Options controls a single emitter run.
type Options struct {
	// SuppressTitles drops sectioning macros entirely: no output, no count.
	SuppressTitles bool `json:"suppress_titles" yaml:"suppress_titles"`

	// Recursive descends into groups and environments other than the
	// skipped ones, using the same rules and state.
	Recursive bool `json:"recursive" yaml:"recursive"`
}

// Result summarizes an emitter run.
type Result struct {
	// Titles counts emitted section and chapter titles. It stays zero when
	// titles are suppressed.
	Titles int `json:"titles" yaml:"titles"`

	// Citations counts elided citation and reference macros.
	Citations int `json:"citations" yaml:"citations"`

	// Diagnostics lists the constructs that were skipped or not understood.
	Diagnostics []Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// Emitter writes the plain-text rendering of a node sequence to a sink.
// Successive Emit calls continue the same run. An Emitter is not safe for
// concurrent use.
type Emitter struct {
	w    io.Writer
	diag io.Writer
	opts Options

	titles                 int
	citations              int
	suppressParagraphBreak bool
	diagnostics            []Diagnostic
}

// New returns an Emitter that writes to w.
func New(w io.Writer, opts Options) *Emitter {
	return &Emitter{w: w, opts: opts}
}

// SetDiagnostics directs one line per diagnostic to w as they occur. A nil w
// keeps diagnostics in the Result only.
func (e *Emitter) SetDiagnostics(w io.Writer) {
	e.diag = w
}

// Emit processes nodes in document order. It stops at the first write error
// or malformed title; the Result reflects everything emitted up to then.
func (e *Emitter) Emit(nodes []latex.Node) (Result, error) {
	err := e.emitNodes(nodes)
	return Result{
		Titles:      e.titles,
		Citations:   e.citations,
		Diagnostics: e.diagnostics,
	}, err
}

func (e *Emitter) emitNodes(nodes []latex.Node) error {
	for _, n := range nodes {
		if err := e.emitNode(n); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) emitNode(n latex.Node) error {
	switch n := n.(type) {
	case *latex.CommentNode:
		return nil
	case *latex.EnvironmentNode:
		return e.emitEnvironment(n)
	case *latex.CharsNode:
		return e.emitChars(n)
	case *latex.MacroNode:
		return e.emitMacro(n)
	case *latex.MathNode:
		return e.emitMath(n)
	case *latex.SpecialsNode:
		return e.emitSpecials(n)
	case *latex.GroupNode:
		if e.opts.Recursive {
			return e.emitNodes(n.Children)
		}
		e.report(n, KindUnknownNode, "group")
		return nil
	default:
		e.report(n, KindUnknownNode, fmt.Sprintf("%T", n))
		return nil
	}
}

func (e *Emitter) emitEnvironment(n *latex.EnvironmentNode) error {
	switch n.Name {
	case envFigure:
		return nil
	case envNoAWA:
		e.report(n, KindSkippedEnvironment, n.Name)
		return nil
	}
	if e.opts.Recursive {
		return e.emitNodes(n.Children)
	}
	e.report(n, KindUnknownEnvironment, n.Name)
	return nil
}

func (e *Emitter) emitChars(n *latex.CharsNode) error {
	newParagraph := true
	if e.suppressParagraphBreak {
		e.suppressParagraphBreak = false
		newParagraph = newParagraphRe.MatchString(n.Chars)
	}

	text := strings.TrimSpace(n.Chars)
	if text == "" {
		return nil
	}
	text = newlineRe.ReplaceAllString(text, " ")

	sep := " "
	if newParagraph {
		sep = "\n"
	}
	return e.write(sep + text)
}

func (e *Emitter) emitMacro(n *latex.MacroNode) error {
	switch {
	case sectionRe.MatchString(n.Name):
		if e.opts.SuppressTitles {
			return nil
		}
		title, err := sectionTitle(n)
		if err != nil {
			return err
		}
		e.titles++
		return e.write("\n\n" + title)

	case citeRe.MatchString(n.Name):
		e.citations++
		e.suppressParagraphBreak = true
		e.report(n, KindCitation, n.Name)
		return nil

	case len(n.Name) == 1:
		e.suppressParagraphBreak = true
		return e.write(" " + n.Name)
	}

	e.report(n, KindUnknownMacro, n.Name)
	return nil
}

// sectionTitle returns the text of the title argument of a sectioning macro.
func sectionTitle(n *latex.MacroNode) (string, error) {
	pos, _ := n.Span()
	fail := func(reason string) error {
		return &MalformedTitleArgumentError{Macro: n.Name, Pos: pos, Reason: reason}
	}
	arg := n.Arg(titleArg)
	if arg == nil {
		return "", fail("title argument is missing")
	}
	if len(arg.Children) == 0 {
		return "", fail("title argument is empty")
	}
	chars, ok := arg.Children[0].(*latex.CharsNode)
	if !ok {
		return "", fail(fmt.Sprintf("title starts with %s, not text", nodeKind(arg.Children[0])))
	}
	return chars.Chars, nil
}

func (e *Emitter) emitMath(n *latex.MathNode) error {
	if n.Display == latex.MathInline {
		e.suppressParagraphBreak = true
		return nil
	}
	e.report(n, KindUnknownDisplay, n.Display.String())
	return nil
}

func (e *Emitter) emitSpecials(n *latex.SpecialsNode) error {
	switch n.Chars {
	case "``", "''":
		e.suppressParagraphBreak = true
		return e.write(` "`)
	case "`", "'":
		e.suppressParagraphBreak = true
		return e.write(" '")
	}
	e.report(n, KindUnknownSpecials, n.Chars)
	return nil
}

func (e *Emitter) write(s string) error {
	if _, err := io.WriteString(e.w, s); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
