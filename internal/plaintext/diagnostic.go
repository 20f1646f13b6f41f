// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package plaintext

import (
	"fmt"

	"github.com/pdiddy/latex2awa/internal/latex"
)

// DiagnosticKind classifies a construct the emitter skipped.
type DiagnosticKind string

const (
	KindSkippedEnvironment DiagnosticKind = "skipped environment"
	KindUnknownEnvironment DiagnosticKind = "unknown environment"
	KindCitation           DiagnosticKind = "citation"
	KindUnknownMacro       DiagnosticKind = "unknown macro"
	KindUnknownDisplay     DiagnosticKind = "unknown display type"
	KindUnknownSpecials    DiagnosticKind = "unknown specials"
	KindUnknownNode        DiagnosticKind = "unknown node"
)

// Diagnostic is an informational note about one node. Diagnostics never
// stop a run.
type Diagnostic struct {
	Kind   DiagnosticKind `json:"kind" yaml:"kind"`
	Detail string         `json:"detail" yaml:"detail"`
	Pos    int            `json:"pos" yaml:"pos"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s (offset %d)", d.Kind, d.Detail, d.Pos)
}

func (e *Emitter) report(n latex.Node, kind DiagnosticKind, detail string) {
	pos, _ := n.Span()
	d := Diagnostic{Kind: kind, Detail: detail, Pos: pos}
	e.diagnostics = append(e.diagnostics, d)
	if e.diag != nil {
		fmt.Fprintln(e.diag, d.String())
	}
}

// nodeKind names a node variant for error messages.
func nodeKind(n latex.Node) string {
	switch n.(type) {
	case *latex.CommentNode:
		return "comment"
	case *latex.EnvironmentNode:
		return "environment"
	case *latex.CharsNode:
		return "text"
	case *latex.MacroNode:
		return "macro"
	case *latex.MathNode:
		return "math"
	case *latex.SpecialsNode:
		return "specials"
	case *latex.GroupNode:
		return "group"
	}
	return fmt.Sprintf("%T", n)
}
