package app

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"coffeegraph/internal/core/errors"
	"coffeegraph/internal/data/history"
	"coffeegraph/internal/engine/dependency"
	"coffeegraph/internal/engine/graph"
	"coffeegraph/internal/engine/lexer"
	"coffeegraph/internal/shared/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureExporter struct {
	builds []*Build
	err    error
}

func (c *captureExporter) Export(_ context.Context, b *Build) error {
	c.builds = append(c.builds, b)
	return c.err
}

type memoryHistory struct {
	mu      sync.Mutex
	records []history.Record
}

func (m *memoryHistory) Record(_ context.Context, rec history.Record) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return rec.ID, nil
}

func writeSources(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	return resolved
}

func newBuilder(exp Exporter) *Builder {
	return NewBuilder(Options{Extensions: []string{".coffee"}, Workers: 2}).
		WithLexer(lexer.NewScanner()).
		WithExporter(exp)
}

func TestBuild_MissingComponents(t *testing.T) {
	_, err := NewBuilder(Options{}).WithExporter(&captureExporter{}).Build(context.Background(), []string{"."})
	assert.True(t, errors.IsCode(err, errors.CodeMissingComponent))

	_, err = NewBuilder(Options{}).WithLexer(lexer.NewScanner()).Build(context.Background(), []string{"."})
	assert.True(t, errors.IsCode(err, errors.CodeMissingComponent))
}

func TestBuild_NoInput(t *testing.T) {
	dir := writeSources(t, map[string]string{"readme.md": "# nothing"})
	exp := &captureExporter{}

	_, err := newBuilder(exp).Build(context.Background(), []string{dir})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNoInput))

	var de *errors.DomainError
	require.True(t, stderrors.As(err, &de))
	assert.Equal(t, []string{dir}, de.Context[errors.CtxPaths])
	assert.Empty(t, exp.builds, "exporter must not run without input")
}

func TestBuild_OrdersFilesByDependency(t *testing.T) {
	dir := writeSources(t, map[string]string{
		"Bar.coffee":       "bar = new Foo\n",
		"Foo.coffee":       "class @Foo\n  constructor: ->\n",
		"lib/Baz.coffee":   "class @Baz extends Foo\n",
		"lib/skip.js":      "ignored()",
		"App.coffee":       "app = new Baz\nbar.run()\n",
		"Unrelated.coffee": "# comment only\n",
	})
	exp := &captureExporter{}
	hist := &memoryHistory{}
	health := observability.NewHealth()

	build, err := newBuilder(exp).WithHistory(hist).WithHealth(health).Build(context.Background(), []string{dir})
	require.NoError(t, err)
	require.Len(t, exp.builds, 1)
	assert.Same(t, build, exp.builds[0])

	foo := filepath.Join(dir, "Foo.coffee")
	bar := filepath.Join(dir, "Bar.coffee")
	baz := filepath.Join(dir, "lib", "Baz.coffee")
	app := filepath.Join(dir, "App.coffee")

	assert.Len(t, build.Files, 5)
	assert.Len(t, build.FileOrder, 5)
	pos := map[string]int{}
	for i, f := range build.FileOrder {
		pos[f] = i
	}
	assert.Less(t, pos[foo], pos[bar])
	assert.Less(t, pos[foo], pos[baz])
	assert.Less(t, pos[baz], pos[app])

	chain, ok := build.Why(app, foo)
	require.True(t, ok)
	assert.Equal(t, []string{app, baz, foo}, chain)

	require.Len(t, hist.records, 1)
	assert.Equal(t, build.ID, hist.records[0].ID)
	assert.Equal(t, history.StatusOK, hist.records[0].Status)
	assert.Equal(t, 5, hist.records[0].Files)
	assert.Equal(t, "up", health.Check().Status)
}

func TestBuild_Cycle(t *testing.T) {
	dir := writeSources(t, map[string]string{
		"X.coffee": "class @X\n  y: -> new Y\n",
		"Y.coffee": "class @Y\n  z: -> new Z\n",
		"Z.coffee": "class @Z\n  x: -> new X\n",
	})
	exp := &captureExporter{}
	hist := &memoryHistory{}

	_, err := newBuilder(exp).WithHistory(hist).Build(context.Background(), []string{dir})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeCyclicDependency))

	var cyc *graph.CyclicDependencyError[dependency.Identifier]
	require.True(t, stderrors.As(err, &cyc))
	assert.Len(t, cyc.Edges, 3)

	var de *errors.DomainError
	require.True(t, stderrors.As(err, &de))
	cycles, ok := de.Context[errors.CtxCycles].([][]string)
	require.True(t, ok)
	require.Len(t, cycles, 1)
	assert.Len(t, cycles[0], 3)

	assert.Empty(t, exp.builds)
	require.Len(t, hist.records, 1)
	assert.Equal(t, history.StatusFailed, hist.records[0].Status)
}

func TestBuild_TokenizeFailureIsFatal(t *testing.T) {
	dir := writeSources(t, map[string]string{
		"good.coffee": "class @Good\n",
		"bad.coffee":  "x = 'unterminated\n",
	})
	_, err := newBuilder(&captureExporter{}).Build(context.Background(), []string{dir})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeTokenize))

	var lexErr *lexer.Error
	assert.True(t, stderrors.As(err, &lexErr))
}

func TestBuild_ExportFailure(t *testing.T) {
	dir := writeSources(t, map[string]string{"a.coffee": "class @A\n"})
	_, err := newBuilder(&captureExporter{err: stderrors.New("disk full")}).Build(context.Background(), []string{dir})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeExportFailed))
	assert.Contains(t, err.Error(), "disk full")
}

func TestBuild_Snapshot(t *testing.T) {
	dir := writeSources(t, map[string]string{
		"Bar.coffee": "bar = new Foo\n",
		"Foo.coffee": "class @Foo\n",
	})
	build, err := newBuilder(&captureExporter{}).Build(context.Background(), []string{dir})
	require.NoError(t, err)

	snap := build.Snapshot()
	for _, e := range snap.Graph.Edges() {
		snap.Graph.RemoveEdge(e.From, e.To)
	}
	snap.FileOrder[0] = "changed"

	assert.NotZero(t, build.Graph.EdgeCount())
	assert.NotEqual(t, "changed", build.FileOrder[0])
}
