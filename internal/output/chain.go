package output

import (
	"context"
	"fmt"

	"coffeegraph/internal/core/app"
	"coffeegraph/internal/core/errors"
)

// Named labels an exporter in aggregated failures.
type Named struct {
	Name     string
	Exporter app.Exporter
}

// Chain runs every exporter in order, each on its own snapshot of the build.
// A failing exporter does not stop the others; all failures are returned
// together.
type Chain struct {
	exporters []Named
}

func NewChain(exporters ...Named) *Chain {
	return &Chain{exporters: exporters}
}

func (c *Chain) Add(name string, e app.Exporter) *Chain {
	c.exporters = append(c.exporters, Named{Name: name, Exporter: e})
	return c
}

func (c *Chain) Len() int {
	return len(c.exporters)
}

func (c *Chain) Export(ctx context.Context, b *app.Build) error {
	var failures []error
	for _, n := range c.exporters {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := n.Exporter.Export(ctx, b.Snapshot()); err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", n.Name, err))
		}
	}
	if err := errors.Join(failures...); err != nil {
		return errors.Wrap(err, errors.CodeExportFailed, fmt.Sprintf("%d exporter(s) failed", len(failures)))
	}
	return nil
}
