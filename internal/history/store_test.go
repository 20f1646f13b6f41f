// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/latex2awa/pkg/types"
)

const optsKey = "suppress_titles=false,recursive=false"

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "index", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, dir
}

func doneReport(dir, name, sha string) types.Report {
	return types.Report{
		Source:      filepath.Join(dir, name),
		Output:      filepath.Join(dir, "out.txt"),
		SHA256:      sha,
		Status:      types.ConversionDone,
		Titles:      3,
		Citations:   2,
		Bytes:       120,
		Notes:       []types.Note{{Kind: "citation", Detail: "cite", Offset: 10}},
		ConvertedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	store, _ := testStore(t)
	runs, err := store.List(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestOpenReusesExistingDatabase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")
	ctx := context.Background()

	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Record(ctx, doneReport(dir, "a.tex", "aaa"), optsKey))
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()
	runs, err := second.List(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestUnchanged(t *testing.T) {
	store, dir := testStore(t)
	ctx := context.Background()
	source := filepath.Join(dir, "a.tex")

	same, err := store.Unchanged(ctx, source, "aaa", optsKey)
	require.NoError(t, err)
	assert.False(t, same, "never converted")

	require.NoError(t, store.Record(ctx, doneReport(dir, "a.tex", "aaa"), optsKey))

	tests := []struct {
		name string
		sha  string
		opts string
		want bool
	}{
		{name: "same content and options", sha: "aaa", opts: optsKey, want: true},
		{name: "content changed", sha: "bbb", opts: optsKey, want: false},
		{name: "options changed", sha: "aaa", opts: "suppress_titles=true,recursive=false", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Unchanged(ctx, source, tt.sha, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnchangedAfterFailure(t *testing.T) {
	store, dir := testStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, doneReport(dir, "a.tex", "aaa"), optsKey))
	failed := doneReport(dir, "a.tex", "aaa")
	failed.Status = types.ConversionFailed
	require.NoError(t, store.Record(ctx, failed, optsKey))

	same, err := store.Unchanged(ctx, filepath.Join(dir, "a.tex"), "aaa", optsKey)
	require.NoError(t, err)
	assert.False(t, same, "latest run failed")
}

func TestList(t *testing.T) {
	store, dir := testStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, doneReport(dir, "a.tex", "aaa"), optsKey))
	require.NoError(t, store.Record(ctx, doneReport(dir, "b.tex", "bbb"), optsKey))
	require.NoError(t, store.Record(ctx, doneReport(dir, "a.tex", "ccc"), optsKey))

	runs, err := store.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "ccc", runs[0].SHA256, "newest first")
	assert.Equal(t, optsKey, runs[0].OptionsKey)
	assert.Equal(t, types.ConversionDone, runs[0].Status)
	assert.Equal(t, 3, runs[0].Titles)
	assert.Equal(t, 2, runs[0].Citations)
	assert.Equal(t, []types.Note{{Kind: "citation", Detail: "cite", Offset: 10}}, runs[0].Notes)
	assert.True(t, runs[0].ConvertedAt.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))

	onlyA, err := store.List(ctx, filepath.Join(dir, "a.tex"), 0)
	require.NoError(t, err)
	assert.Len(t, onlyA, 2)

	limited, err := store.List(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestExport(t *testing.T) {
	runs := []Run{{ID: 7, OptionsKey: optsKey, Report: types.Report{Source: "a.tex", Titles: 2, Status: types.ConversionDone}}}

	var yamlOut bytes.Buffer
	require.NoError(t, Export(runs, "yaml", &yamlOut))
	var fromYAML []map[string]any
	require.NoError(t, yaml.Unmarshal(yamlOut.Bytes(), &fromYAML))
	require.Len(t, fromYAML, 1)
	assert.Equal(t, "a.tex", fromYAML[0]["source"])
	assert.Equal(t, 7, fromYAML[0]["id"])

	var jsonOut bytes.Buffer
	require.NoError(t, Export(runs, "json", &jsonOut))
	var fromJSON []map[string]any
	require.NoError(t, json.Unmarshal(jsonOut.Bytes(), &fromJSON))
	assert.Equal(t, "converted", fromJSON[0]["status"])
	assert.Equal(t, float64(2), fromJSON[0]["titles"])

	err := Export(runs, "csv", &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}
