// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ConversionStatus indicates the outcome of converting one document.
type ConversionStatus string

const (
	ConversionDone   ConversionStatus = "converted"
	ConversionFailed ConversionStatus = "failed"
)

// Note is one informational diagnostic about a skipped LaTeX construct.
type Note struct {
	Kind   string `json:"kind" yaml:"kind"`
	Detail string `json:"detail" yaml:"detail"`
	Offset int    `json:"offset" yaml:"offset"`
}

// Report describes a single conversion. It is written as the YAML sidecar
// next to the output file and returned to callers.
type Report struct {
	// Source is the path of the LaTeX input.
	Source string `json:"source" yaml:"source"`

	// Output is the path of the plain-text output.
	Output string `json:"output" yaml:"output"`

	// SHA256 is the hex digest of the source contents.
	SHA256 string `json:"sha256" yaml:"sha256"`

	// Status is the conversion outcome.
	Status ConversionStatus `json:"status" yaml:"status"`

	// Titles is the number of section and chapter titles emitted. Zero
	// when titles are suppressed.
	Titles int `json:"titles" yaml:"titles"`

	// TitlesSuppressed records whether titles were dropped.
	TitlesSuppressed bool `json:"titles_suppressed" yaml:"titles_suppressed"`

	// Citations is the number of citation and reference macros elided.
	Citations int `json:"citations" yaml:"citations"`

	// Bytes is the size of the written output.
	Bytes int `json:"bytes" yaml:"bytes"`

	// Notes lists the constructs that were skipped.
	Notes []Note `json:"notes,omitempty" yaml:"notes,omitempty"`

	// ConvertedAt is when the conversion finished.
	ConvertedAt time.Time `json:"converted_at" yaml:"converted_at"`
}
