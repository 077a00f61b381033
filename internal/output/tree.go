package output

import (
	"context"
	"fmt"
	"io"
	"strings"

	"coffeegraph/internal/core/app"
	"coffeegraph/internal/engine/graph"
)

// TreeExporter prints, for every file nothing depends on, the tree of files
// it depends on.
type TreeExporter struct {
	W io.Writer
}

func (t *TreeExporter) Export(_ context.Context, b *app.Build) error {
	var buf strings.Builder
	buf.WriteString("\nDependency Tree\n")
	buf.WriteString("===============\n")

	fg := b.FileGraph()
	base := commonDir(b.Files)
	graph.WalkTree(fg, b.FileOrder, func(file string, depth int) {
		fmt.Fprintf(&buf, "%s%s\n", strings.Repeat("  ", depth), relativeTo(base, file))
	})

	buf.WriteString("===============\n")
	_, err := io.WriteString(t.W, buf.String())
	return err
}
