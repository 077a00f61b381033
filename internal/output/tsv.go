// # internal/output/tsv.go
package output

import (
	"context"
	"fmt"
	"strings"

	"coffeegraph/internal/core/app"
	"coffeegraph/internal/shared/util"
)

// TSVExporter writes one row per identifier edge.
type TSVExporter struct {
	Path string
}

func (t *TSVExporter) Export(_ context.Context, b *app.Build) error {
	return util.WriteStringWithDirs(t.Path, GenerateTSV(b), 0o644)
}

func GenerateTSV(b *app.Build) string {
	var buf strings.Builder

	buf.WriteString("From\tFromFile\tTo\tToFile\n")
	for _, e := range b.Graph.Edges() {
		fmt.Fprintf(&buf, "%s\t%s\t%s\t%s\n", e.From.Name, e.From.File, e.To.Name, e.To.File)
	}
	return buf.String()
}
