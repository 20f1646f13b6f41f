//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// sampleDoc is a small document exercising titles, citations, math,
// quotes and the no-awa escape hatch.
const sampleDoc = `\section{Introduction}
Academic writing benefits from feedback \cite{swales2004}.
We define $x$ as the input and ` + "``quote''" + ` it.

\begin{no-awa}
This paragraph is never sent.
\end{no-awa}

\subsection{Scope}
A second paragraph, wrapped
over two lines.
`

// Sample builds the CLI and converts a generated sample document into
// tmp/sample.txt.
func Sample() error {
	mg.Deps(Build)

	dir := "tmp"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	src := filepath.Join(dir, "sample.tex")
	if err := os.WriteFile(src, []byte(sampleDoc), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", src, err)
	}
	return sh.RunV(filepath.Join(binDir, binName), "convert", "--report", src)
}
