// # cmd/coffeegraph/watch.go
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"coffeegraph/internal/core/source"
	"coffeegraph/internal/core/watcher"
	"coffeegraph/internal/shared/util"
)

// watchLoop rebuilds on every debounced batch of source changes until ctx
// is cancelled. Failed rebuilds are reported and the loop keeps going.
func watchLoop(ctx context.Context, rt *runtime, stderr io.Writer) error {
	src := rt.cfg.Source
	filter, err := source.NewFilter(src.Extensions, src.ExcludeDirs, src.ExcludeFiles)
	if err != nil {
		return err
	}

	w, err := watcher.NewWatcher(rt.cfg.Watch.Debounce, filter, func(paths []string) {
		slog.Debug("sources changed", "count", len(paths), "paths", paths)
		build, err := rt.builder.Build(ctx, rt.cfg.Sources)
		if err != nil {
			printError(stderr, err)
			return
		}
		fmt.Fprintln(stderr, formatSummary(build))
	})
	if err != nil {
		return err
	}
	defer w.Close()
	w.SetLimiter(util.NewLimiter(rt.cfg.Watch.RebuildsPerSecond, 1))

	if err := w.Watch(rt.cfg.Sources); err != nil {
		return err
	}
	fmt.Fprintln(stderr, statusStyle.Render("watching for changes, press Ctrl+C to stop"))

	<-ctx.Done()
	return nil
}
