// # internal/core/app/app.go
package app

import (
	"context"
	"log/slog"
	"time"

	"coffeegraph/internal/core/config"
	"coffeegraph/internal/data/history"
	"coffeegraph/internal/engine/dependency"
	"coffeegraph/internal/engine/graph"
	"coffeegraph/internal/engine/lexer"
	"coffeegraph/internal/shared/observability"
)

// Exporter consumes a finished build.
type Exporter interface {
	Export(ctx context.Context, b *Build) error
}

// ExporterFunc adapts a function to Exporter.
type ExporterFunc func(ctx context.Context, b *Build) error

func (f ExporterFunc) Export(ctx context.Context, b *Build) error {
	return f(ctx, b)
}

// HistoryRecorder persists build outcomes. *history.Store satisfies it.
type HistoryRecorder interface {
	Record(ctx context.Context, rec history.Record) (string, error)
}

// Build is the result of one successful run.
type Build struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	// Files are the canonical input files in collection order.
	Files []string
	Graph *graph.Graph[dependency.Identifier]
	// Order lists identifiers so that every dependency precedes its dependents.
	Order []dependency.Identifier
	// FileOrder is Order reduced to files, first occurrence kept.
	FileOrder []string
	Stats     dependency.Stats
}

// FileGraph collapses the identifier graph onto files.
func (b *Build) FileGraph() *graph.Graph[string] {
	return dependency.FileGraph(b.Graph, b.Files)
}

// Why returns the shortest chain of files from -> ... -> to.
func (b *Build) Why(from, to string) ([]string, bool) {
	return graph.Path(b.FileGraph(), from, to)
}

// Snapshot returns a copy of b with an independent graph, so one consumer
// cannot disturb the next.
func (b *Build) Snapshot() *Build {
	c := *b
	c.Graph = b.Graph.Copy()
	c.Files = append([]string(nil), b.Files...)
	c.Order = append([]dependency.Identifier(nil), b.Order...)
	c.FileOrder = append([]string(nil), b.FileOrder...)
	return &c
}

type Options struct {
	Extensions     []string
	ExcludeDirs    []string
	ExcludeFiles   []string
	Workers        int
	StrictAliasing bool
	Project        string
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Extensions:     cfg.Source.Extensions,
		ExcludeDirs:    cfg.Source.ExcludeDirs,
		ExcludeFiles:   cfg.Source.ExcludeFiles,
		Workers:        cfg.Analysis.Workers,
		StrictAliasing: cfg.Analysis.StrictAliasing,
		Project:        cfg.History.Project,
	}
}

// Builder runs lexer, scope tree, dependency inference, sort and export.
type Builder struct {
	opts     Options
	lexer    lexer.Lexer
	exporter Exporter
	history  HistoryRecorder
	health   *observability.Health
	logger   *slog.Logger

	// last observed token cache counters, for metric deltas
	cacheHits, cacheMisses uint64
}

func NewBuilder(opts Options) *Builder {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &Builder{opts: opts, logger: slog.Default()}
}

func (b *Builder) WithLexer(l lexer.Lexer) *Builder {
	b.lexer = l
	return b
}

func (b *Builder) WithExporter(e Exporter) *Builder {
	b.exporter = e
	return b
}

func (b *Builder) WithHistory(h HistoryRecorder) *Builder {
	b.history = h
	return b
}

func (b *Builder) WithHealth(h *observability.Health) *Builder {
	b.health = h
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	if logger != nil {
		b.logger = logger
	}
	return b
}
