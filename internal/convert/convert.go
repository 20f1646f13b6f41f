// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns LaTeX files into plain-text files for the academic
// writing assistant, one file at a time or in batches.
package convert

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/latex2awa/internal/latex"
	"github.com/pdiddy/latex2awa/internal/plaintext"
	"github.com/pdiddy/latex2awa/pkg/types"
)

const (
	// textExt is the extension of converted output files.
	textExt = ".txt"
	// reportSuffix is appended to the output path for the YAML report.
	reportSuffix = ".report.yaml"
	// sourceExt is the extension batch mode looks for.
	sourceExt = ".tex"
)

// Recorder remembers past conversions so that batch runs can skip sources
// that have not changed. history.Store implements it.
type Recorder interface {
	// Unchanged reports whether source was last converted successfully with
	// the same content digest and options.
	Unchanged(ctx context.Context, source, sha string, optsKey string) (bool, error)

	// Record stores the outcome of one conversion.
	Record(ctx context.Context, report types.Report, optsKey string) error
}

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Converted int
	Skipped   int
	Failed    int
	Titles    int
}

// Total returns the total number of documents processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Skipped + r.Failed
}

// HasFailures reports whether any document failed conversion.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// Options maps a conversion config onto emitter options.
func Options(cfg types.ConversionConfig) plaintext.Options {
	return plaintext.Options{
		SuppressTitles: cfg.SuppressTitles,
		Recursive:      cfg.Recursive,
	}
}

// OptionsKey is a stable string for the settings that change the output.
func OptionsKey(cfg types.ConversionConfig) string {
	return fmt.Sprintf("suppress_titles=%t,recursive=%t", cfg.SuppressTitles, cfg.Recursive)
}

// lineEndings folds CRLF and lone CR line endings into LF.
var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Convert parses the LaTeX source and writes its plain-text rendering to dst.
// Line endings are normalized to LF first, so offsets in errors and
// diagnostics refer to the normalized text. Diagnostics go to diag when it
// is non-nil.
func Convert(src string, dst io.Writer, cfg types.ConversionConfig, diag io.Writer) (plaintext.Result, error) {
	nodes, err := latex.Parse(lineEndings.Replace(src))
	if err != nil {
		return plaintext.Result{}, fmt.Errorf("parsing: %w", err)
	}
	e := plaintext.New(dst, Options(cfg))
	e.SetDiagnostics(diag)
	return e.Emit(nodes)
}

// OutputPath returns the .txt path for a source file: next to the source
// when outDir is empty, otherwise inside outDir.
func OutputPath(inPath, outDir string) string {
	base := strings.TrimSuffix(filepath.Base(inPath), filepath.Ext(inPath)) + textExt
	if outDir == "" {
		return filepath.Join(filepath.Dir(inPath), base)
	}
	return filepath.Join(outDir, base)
}

// ReportPath returns the sidecar report path for an output file.
func ReportPath(outPath string) string {
	return outPath + reportSuffix
}

// ConvertFile reads inPath, converts it, and writes the result to outPath.
// The output file is only created once the whole document has converted,
// so input, parse and malformed-title errors leave no partial output.
func ConvertFile(inPath, outPath string, cfg types.ConversionConfig, log io.Writer) (types.Report, error) {
	report := types.Report{
		Source:           inPath,
		Output:           outPath,
		Status:           types.ConversionFailed,
		TitlesSuppressed: cfg.SuppressTitles,
	}

	data, err := os.ReadFile(inPath)
	if err != nil {
		return report, fmt.Errorf("reading %s: %w", inPath, err)
	}
	report.SHA256 = digest(data)

	var diag io.Writer
	if !cfg.Quiet {
		diag = log
	}
	var out bytes.Buffer
	res, err := Convert(string(data), &out, cfg, diag)
	if err != nil {
		return report, fmt.Errorf("converting %s: %w", inPath, err)
	}

	if dir := filepath.Dir(outPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return report, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(outPath, out.Bytes(), 0o644); err != nil {
		return report, fmt.Errorf("writing %s: %w", outPath, err)
	}

	report.Status = types.ConversionDone
	report.Titles = res.Titles
	report.Citations = res.Citations
	report.Bytes = out.Len()
	report.Notes = notes(res.Diagnostics)
	report.ConvertedAt = time.Now().UTC()

	if cfg.WriteReport {
		if err := WriteReport(report); err != nil {
			return report, err
		}
	}
	return report, nil
}

// WriteReport writes report as YAML next to its output file.
func WriteReport(report types.Report) error {
	data, err := yaml.Marshal(&report)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	path := ReportPath(report.Output)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	return nil
}

// ConvertBatch converts each source in turn, printing per-file status to w
// and returning a summary. A failure affects only its own file. With a
// non-nil Recorder, sources unchanged since their last successful
// conversion are skipped when their output still exists.
func ConvertBatch(ctx context.Context, paths []string, cfg types.ConversionConfig, rec Recorder, w io.Writer) BatchResult {
	var result BatchResult
	optsKey := OptionsKey(cfg)

	for _, in := range paths {
		if err := ctx.Err(); err != nil {
			fmt.Fprintf(w, "stopped: %v\n", err)
			break
		}
		out := OutputPath(in, cfg.OutputDir)
		name := filepath.Base(in)

		if rec != nil && upToDate(ctx, rec, in, out, optsKey) {
			fmt.Fprintf(w, "skipped: %s (unchanged)\n", name)
			result.Skipped++
			continue
		}

		report, err := ConvertFile(in, out, cfg, w)
		if err != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", name, err)
			result.Failed++
		} else {
			fmt.Fprintf(w, "converted: %s -> %s\n", name, out)
			result.Converted++
			result.Titles += report.Titles
		}

		if rec != nil {
			if err := rec.Record(ctx, report, optsKey); err != nil {
				fmt.Fprintf(w, "warning: could not record %s: %v\n", name, err)
			}
		}
	}

	fmt.Fprintf(w, "\nBatch summary: %d converted, %d skipped, %d failed (total: %d)\n",
		result.Converted, result.Skipped, result.Failed, result.Total())
	return result
}

// upToDate reports whether in can be skipped. Lookup errors count as
// "changed" so the file is converted again.
func upToDate(ctx context.Context, rec Recorder, in, out, optsKey string) bool {
	if _, err := os.Stat(out); err != nil {
		return false
	}
	data, err := os.ReadFile(in)
	if err != nil {
		return false
	}
	same, err := rec.Unchanged(ctx, in, digest(data), optsKey)
	return err == nil && same
}

// FindSources walks dir and returns every .tex file in lexical order.
func FindSources(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == sourceExt {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func notes(diags []plaintext.Diagnostic) []types.Note {
	if len(diags) == 0 {
		return nil
	}
	out := make([]types.Note, len(diags))
	for i, d := range diags {
		out[i] = types.Note{Kind: string(d.Kind), Detail: d.Detail, Offset: d.Pos}
	}
	return out
}
