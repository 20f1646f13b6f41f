// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/latex2awa/internal/plaintext"
	"github.com/pdiddy/latex2awa/pkg/types"
)

const sampleTeX = "\\section{Intro}\nHello world \\cite{k}.\n\n\\section{Methods}\nMore text here."

// fakeRecorder implements Recorder for testing. It treats every source in
// unchanged as up to date and remembers what was recorded.
type fakeRecorder struct {
	unchanged map[string]bool
	recorded  []types.Report
	err       error
}

func (f *fakeRecorder) Unchanged(ctx context.Context, source, sha, optsKey string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.unchanged[source], nil
}

func (f *fakeRecorder) Record(ctx context.Context, report types.Report, optsKey string) error {
	f.recorded = append(f.recorded, report)
	return nil
}

// writeSource creates a .tex file in dir and returns its path.
func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestConvert(t *testing.T) {
	var out, diag bytes.Buffer
	res, err := Convert(sampleTeX, &out, types.ConversionConfig{}, &diag)
	require.NoError(t, err)
	assert.Equal(t, "\n\nIntro\nHello world .\n\nMethods\nMore text here.", out.String())
	assert.Equal(t, 2, res.Titles)
	assert.Equal(t, 1, res.Citations)
	assert.Contains(t, diag.String(), "citation: cite")
}

func TestConvertParseError(t *testing.T) {
	var out bytes.Buffer
	_, err := Convert("{unbalanced", &out, types.ConversionConfig{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing")
	assert.Empty(t, out.String())
}

func TestConvertNormalizesLineEndings(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{name: "CRLF", src: "See \\cite{x}\r\n\r\nNew paragraph.\r\nSame one."},
		{name: "CR", src: "See \\cite{x}\r\rNew paragraph.\rSame one."},
		{name: "LF", src: "See \\cite{x}\n\nNew paragraph.\nSame one."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			_, err := Convert(tt.src, &out, types.ConversionConfig{}, nil)
			require.NoError(t, err)
			assert.Equal(t, "\nSee\nNew paragraph. Same one.", out.String())
		})
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		outDir string
		want   string
	}{
		{name: "next to source", in: filepath.Join("docs", "thesis.tex"), want: filepath.Join("docs", "thesis.txt")},
		{name: "output dir", in: filepath.Join("docs", "thesis.tex"), outDir: "out", want: filepath.Join("out", "thesis.txt")},
		{name: "no extension", in: "notes", want: "notes.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OutputPath(tt.in, tt.outDir))
		})
	}
}

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	in := writeSource(t, dir, "paper.tex", sampleTeX)
	out := filepath.Join(dir, "out", "paper.txt")

	var log bytes.Buffer
	report, err := ConvertFile(in, out, types.ConversionConfig{WriteReport: true}, &log)
	require.NoError(t, err)

	assert.Equal(t, types.ConversionDone, report.Status)
	assert.Equal(t, 2, report.Titles)
	assert.Equal(t, 1, report.Citations)
	assert.Len(t, report.SHA256, 64)
	assert.False(t, report.ConvertedAt.IsZero())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, report.Bytes, len(data))
	assert.Contains(t, string(data), "Methods")

	raw, err := os.ReadFile(ReportPath(out))
	require.NoError(t, err)
	var onDisk types.Report
	require.NoError(t, yaml.Unmarshal(raw, &onDisk))
	assert.Equal(t, in, onDisk.Source)
	assert.Equal(t, 2, onDisk.Titles)
	require.Len(t, onDisk.Notes, 1)
	assert.Equal(t, string(plaintext.KindCitation), onDisk.Notes[0].Kind)
}

func TestConvertFileQuiet(t *testing.T) {
	dir := t.TempDir()
	in := writeSource(t, dir, "paper.tex", sampleTeX)

	var log bytes.Buffer
	report, err := ConvertFile(in, filepath.Join(dir, "paper.txt"), types.ConversionConfig{Quiet: true}, &log)
	require.NoError(t, err)
	assert.Empty(t, log.String())
	assert.Len(t, report.Notes, 1, "quiet only silences the console")
}

func TestConvertFileSuppressTitles(t *testing.T) {
	dir := t.TempDir()
	in := writeSource(t, dir, "paper.tex", sampleTeX)
	out := filepath.Join(dir, "paper.txt")

	report, err := ConvertFile(in, out, types.ConversionConfig{SuppressTitles: true}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Titles)
	assert.True(t, report.TitlesSuppressed)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Intro")
	_, err = os.Stat(ReportPath(out))
	assert.True(t, os.IsNotExist(err), "no report unless requested")
}

func TestConvertFileFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		missing bool
		wantErr string
		wantIs  error
	}{
		{name: "missing input", missing: true, wantErr: "reading"},
		{name: "parse error", content: `\begin{itemize}`, wantErr: "parsing"},
		{name: "malformed title", content: "Text\n\n\\section{}", wantErr: "malformed title", wantIs: plaintext.ErrMalformedTitleArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			in := filepath.Join(dir, "paper.tex")
			if !tt.missing {
				writeSource(t, dir, "paper.tex", tt.content)
			}
			out := filepath.Join(dir, "paper.txt")

			report, err := ConvertFile(in, out, types.ConversionConfig{}, &bytes.Buffer{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			if tt.wantIs != nil {
				assert.True(t, errors.Is(err, tt.wantIs))
			}
			assert.Equal(t, types.ConversionFailed, report.Status)

			_, statErr := os.Stat(out)
			assert.True(t, os.IsNotExist(statErr), "failed conversion must not create output")
		})
	}
}

func TestConvertFileUnwritableOutput(t *testing.T) {
	dir := t.TempDir()
	in := writeSource(t, dir, "paper.tex", sampleTeX)
	blocker := writeSource(t, dir, "blocker", "not a directory")

	_, err := ConvertFile(in, filepath.Join(blocker, "paper.txt"), types.ConversionConfig{}, &bytes.Buffer{})
	require.Error(t, err)
}

func TestConvertBatch(t *testing.T) {
	dir := t.TempDir()
	good := writeSource(t, dir, "a.tex", sampleTeX)
	bad := writeSource(t, dir, "b.tex", `\section`)
	same := writeSource(t, dir, "c.tex", "Unchanged text.")
	outDir := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(outDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(outDir, "c.txt"), []byte("old"), 0o644))

	rec := &fakeRecorder{unchanged: map[string]bool{same: true}}
	var log bytes.Buffer
	cfg := types.ConversionConfig{OutputDir: outDir, Quiet: true}

	result := ConvertBatch(context.Background(), []string{good, bad, same}, cfg, rec, &log)

	assert.Equal(t, 1, result.Converted)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 3, result.Total())
	assert.Equal(t, 2, result.Titles)
	assert.True(t, result.HasFailures())

	output := log.String()
	assert.Contains(t, output, "converted: a.tex")
	assert.Contains(t, output, "failed:  b.tex")
	assert.Contains(t, output, "skipped: c.tex (unchanged)")
	assert.Contains(t, output, "Batch summary: 1 converted, 1 skipped, 1 failed (total: 3)")

	require.Len(t, rec.recorded, 2)
	assert.Equal(t, types.ConversionDone, rec.recorded[0].Status)
	assert.Equal(t, types.ConversionFailed, rec.recorded[1].Status)

	old, err := os.ReadFile(filepath.Join(outDir, "c.txt"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(old), "skipped output is left alone")
}

func TestConvertBatchReconvertsWhenOutputMissing(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "a.tex", "Text.")
	rec := &fakeRecorder{unchanged: map[string]bool{src: true}}

	result := ConvertBatch(context.Background(), []string{src}, types.ConversionConfig{}, rec, &bytes.Buffer{})
	assert.Equal(t, 1, result.Converted)
	assert.Equal(t, 0, result.Skipped)
}

func TestConvertBatchRecorderError(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "a.tex", "Text.")
	require.NoError(t, os.WriteFile(OutputPath(src, ""), []byte("old"), 0o644))
	rec := &fakeRecorder{err: errors.New("database locked")}

	result := ConvertBatch(context.Background(), []string{src}, types.ConversionConfig{}, rec, &bytes.Buffer{})
	assert.Equal(t, 1, result.Converted, "lookup errors fall back to converting")
}

func TestConvertBatchCanceled(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "a.tex", "Text.")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var log bytes.Buffer
	result := ConvertBatch(ctx, []string{src}, types.ConversionConfig{}, nil, &log)
	assert.Equal(t, 0, result.Total())
	assert.Contains(t, log.String(), "stopped:")
}

func TestFindSources(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "b.tex", "")
	writeSource(t, dir, "a.tex", "")
	writeSource(t, dir, filepath.Join("chapters", "c.tex"), "")
	writeSource(t, dir, "notes.txt", "")
	writeSource(t, dir, filepath.Join(".git", "x.tex"), "")

	got, err := FindSources(dir)
	require.NoError(t, err)

	rel := make([]string, len(got))
	for i, p := range got {
		r, err := filepath.Rel(dir, p)
		require.NoError(t, err)
		rel[i] = filepath.ToSlash(r)
	}
	assert.Equal(t, []string{"a.tex", "b.tex", "chapters/c.tex"}, rel)
}

func TestFindSourcesMissingDir(t *testing.T) {
	_, err := FindSources(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "scanning"))
}
