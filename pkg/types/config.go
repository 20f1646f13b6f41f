// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ConversionConfig holds settings for converting LaTeX documents to plain text.
type ConversionConfig struct {
	// SuppressTitles drops section and chapter titles from the output and
	// leaves them uncounted.
	SuppressTitles bool `json:"suppress_titles" yaml:"suppress_titles" mapstructure:"suppress_titles"`

	// Recursive descends into groups and environments other than figure
	// and no-awa.
	Recursive bool `json:"recursive" yaml:"recursive" mapstructure:"recursive"`

	// OutputDir is where batch conversions write their .txt files. Empty
	// means next to each source file.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// WriteReport writes a <output>.report.yaml sidecar for every conversion.
	WriteReport bool `json:"write_report" yaml:"write_report" mapstructure:"write_report"`

	// HistoryDB is the SQLite database recording past conversions. Empty
	// disables history.
	HistoryDB string `json:"history_db" yaml:"history_db" mapstructure:"history_db"`

	// Quiet suppresses per-node diagnostics on the console.
	Quiet bool `json:"quiet" yaml:"quiet" mapstructure:"quiet"`
}

// ServeConfig holds settings for the HTTP conversion server.
type ServeConfig struct {
	// Addr is the listen address (default ":8090").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// MaxBodyBytes caps the size of a submitted LaTeX document (default 4 MiB).
	MaxBodyBytes int64 `json:"max_body_bytes" yaml:"max_body_bytes" mapstructure:"max_body_bytes"`

	// APIKey, when set, is required as a bearer token on /api routes.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// ShutdownTimeout bounds graceful shutdown (default 10s).
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}
