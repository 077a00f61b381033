package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"coffeegraph/internal/core/errors"
	"coffeegraph/internal/core/source"
	"coffeegraph/internal/data/history"
	"coffeegraph/internal/engine/dependency"
	"coffeegraph/internal/engine/graph"
	"coffeegraph/internal/engine/lexer"
	"coffeegraph/internal/engine/scope"
	"coffeegraph/internal/shared/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Build analyzes the files and directories in paths and hands the result to
// the configured exporter.
func (b *Builder) Build(ctx context.Context, paths []string) (*Build, error) {
	if b.lexer == nil {
		return nil, errors.AddContext(errors.New(errors.CodeMissingComponent, "no lexer supplied"), errors.CtxComponent, "lexer")
	}
	if b.exporter == nil {
		return nil, errors.AddContext(errors.New(errors.CodeMissingComponent, "no exporter supplied"), errors.CtxComponent, "exporter")
	}

	ctx, span := observability.Tracer.Start(ctx, "coffeegraph.Build", trace.WithAttributes(
		attribute.Int("paths", len(paths)),
	))
	defer span.End()

	run := &Build{ID: uuid.NewString(), StartedAt: time.Now().UTC()}
	build, err := b.run(ctx, run, paths)
	run.Duration = time.Since(run.StartedAt)

	status := history.StatusOK
	if err != nil {
		status = history.StatusFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	observability.BuildDuration.WithLabelValues(status).Observe(run.Duration.Seconds())
	b.record(ctx, run, err)
	if b.health != nil {
		b.health.Record(err)
	}
	return build, err
}

func (b *Builder) run(ctx context.Context, run *Build, paths []string) (*Build, error) {
	filter, err := source.NewFilter(b.opts.Extensions, b.opts.ExcludeDirs, b.opts.ExcludeFiles)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "invalid source filter")
	}
	files, err := source.Collect(paths, filter)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "collect sources"), errors.CtxPaths, paths)
	}
	if len(files) == 0 {
		return nil, errors.AddContext(errors.New(errors.CodeNoInput, "no source files found"), errors.CtxPaths, paths)
	}
	run.Files = files
	observability.SourceFiles.Set(float64(len(files)))

	streams, err := b.tokenize(ctx, files)
	if err != nil {
		return nil, err
	}

	tree, err := phase(ctx, "scope", func() (*scope.Tree, error) {
		tree := scope.NewTree()
		for i, file := range files {
			if err := tree.AddFile(file); err != nil {
				return nil, err
			}
			if err := tree.AddTokens(streams[i]); err != nil {
				return nil, errors.AddContext(err, errors.CtxPath, file)
			}
		}
		return tree, tree.Close()
	})
	if err != nil {
		return nil, err
	}

	builder := dependency.NewBuilder(tree, dependency.Options{StrictAliasing: b.opts.StrictAliasing}).WithLogger(b.logger)
	g, _ := phase(ctx, "graph", func() (*graph.Graph[dependency.Identifier], error) {
		return builder.Generate(), nil
	})
	run.Graph = g
	run.Stats = builder.Stats()
	observability.GraphNodes.Set(float64(run.Stats.Nodes))
	observability.GraphEdges.Set(float64(run.Stats.Edges))
	observability.GlobalsRegistered.Set(float64(run.Stats.Globals))
	observability.UnresolvedReferences.Add(float64(run.Stats.Unresolved))

	order, err := phase(ctx, "sort", func() ([]dependency.Identifier, error) {
		return graph.Sort(g)
	})
	if err != nil {
		observability.CyclesDetected.Inc()
		return nil, b.cyclic(err, run)
	}
	run.Order = order
	run.FileOrder = dependency.FileOrder(order, files)

	b.logger.Info("dependency order resolved",
		"files", len(files),
		"nodes", run.Stats.Nodes,
		"edges", run.Stats.Edges,
		"globals", run.Stats.Globals,
	)

	_, err = phase(ctx, "export", func() (struct{}, error) {
		return struct{}{}, b.exporter.Export(ctx, run)
	})
	if err != nil {
		if errors.IsCode(err, errors.CodeExportFailed) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.CodeExportFailed, "export failed")
	}
	return run, nil
}

type cacheCounter interface {
	Lookups() (hits, misses uint64)
}

// tokenize scans files concurrently; streams[i] belongs to files[i]. Every
// failing file is reported.
func (b *Builder) tokenize(ctx context.Context, files []string) ([][]lexer.Token, error) {
	return phase(ctx, "lex", func() ([][]lexer.Token, error) {
		streams := make([][]lexer.Token, len(files))
		failures := make([]error, len(files))

		jobs := make(chan int)
		var wg sync.WaitGroup
		workers := min(b.opts.Workers, len(files))
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					start := time.Now()
					streams[i], failures[i] = b.lexer.Tokenize(files[i])
					observability.LexDuration.Observe(time.Since(start).Seconds())
				}
			}()
		}

	feed:
		for i := range files {
			select {
			case jobs <- i:
			case <-ctx.Done():
				break feed
			}
		}
		close(jobs)
		wg.Wait()

		if c, ok := b.lexer.(cacheCounter); ok {
			hits, misses := c.Lookups()
			observability.TokenCacheLookups.WithLabelValues("hit").Add(float64(hits - b.cacheHits))
			observability.TokenCacheLookups.WithLabelValues("miss").Add(float64(misses - b.cacheMisses))
			b.cacheHits, b.cacheMisses = hits, misses
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := errors.Join(failures...); err != nil {
			return nil, errors.Wrap(err, errors.CodeTokenize, "tokenize sources")
		}
		return streams, nil
	})
}

func (b *Builder) cyclic(err error, run *Build) error {
	var cyc *graph.CyclicDependencyError[dependency.Identifier]
	if !stderrors.As(err, &cyc) {
		return errors.Wrap(err, errors.CodeInternal, "sort failed")
	}

	pairs := make([]string, 0, len(cyc.Edges))
	seen := make(map[[2]string]bool)
	for _, e := range cyc.Edges {
		key := [2]string{e.From.File, e.To.File}
		if seen[key] {
			continue
		}
		seen[key] = true
		pairs = append(pairs, fmt.Sprintf("%s -> %s", e.From.File, e.To.File))
	}

	wrapped := errors.Wrap(err, errors.CodeCyclicDependency, "cyclic dependency between source files")
	wrapped = errors.AddContext(wrapped, errors.CtxPaths, pairs)
	return errors.AddContext(wrapped, errors.CtxCycles, graph.Cycles(run.FileGraph()))
}

func (b *Builder) record(ctx context.Context, run *Build, buildErr error) {
	if b.history == nil {
		return
	}
	rec := history.Record{
		ID:        run.ID,
		Project:   b.opts.Project,
		StartedAt: run.StartedAt,
		Duration:  run.Duration,
		Files:     len(run.Files),
		Nodes:     run.Stats.Nodes,
		Edges:     run.Stats.Edges,
		Status:    history.StatusOK,
	}
	if buildErr != nil {
		rec.Status = history.StatusFailed
		rec.Error = buildErr.Error()
	}
	if _, err := b.history.Record(ctx, rec); err != nil {
		b.logger.Warn("failed to record build history", "id", run.ID, "error", err)
	}
}

// phase times fn under a child span and the phase histogram.
func phase[T any](ctx context.Context, name string, fn func() (T, error)) (T, error) {
	_, span := observability.Tracer.Start(ctx, "coffeegraph."+name)
	defer span.End()

	start := time.Now()
	out, err := fn()
	observability.PhaseDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
	}
	return out, err
}
