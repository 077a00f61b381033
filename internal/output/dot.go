// # internal/output/dot.go
package output

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"coffeegraph/internal/core/app"
	"coffeegraph/internal/engine/dependency"
	"coffeegraph/internal/shared/util"
)

// DOTExporter writes the file-level dependency graph in Graphviz format.
type DOTExporter struct {
	Path string
}

func (d *DOTExporter) Export(_ context.Context, b *app.Build) error {
	return util.WriteStringWithDirs(d.Path, GenerateDOT(b), 0o644)
}

// GenerateDOT renders files as nodes grouped by directory. Files that
// declare globals are highlighted.
func GenerateDOT(b *app.Build) string {
	var buf strings.Builder

	buf.WriteString("digraph dependencies {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=8, penwidth=1.2];\n")
	buf.WriteString("  ranksep=1.5;\n")
	buf.WriteString("  nodesep=0.6;\n")
	buf.WriteString("  overlap=false;\n\n")

	base := commonDir(b.Files)
	globals := globalsByFile(b)
	fg := b.FileGraph()

	clusters := make(map[string][]string)
	var dirs []string
	for _, file := range b.FileOrder {
		dir := filepath.ToSlash(filepath.Dir(relativeTo(base, file)))
		if _, ok := clusters[dir]; !ok {
			dirs = append(dirs, dir)
		}
		clusters[dir] = append(clusters[dir], file)
	}

	for i, dir := range dirs {
		fmt.Fprintf(&buf, "  subgraph cluster_%d {\n", i)
		fmt.Fprintf(&buf, "    label=%q;\n", dir)
		buf.WriteString("    style=filled;\n")
		buf.WriteString("    color=\"whitesmoke\";\n")
		buf.WriteString("    node [fillcolor=\"white\", style=\"rounded,filled\"];\n")
		for _, file := range clusters[dir] {
			id := relativeTo(base, file)
			label := fmt.Sprintf("%s\\n(%d globals)", filepath.Base(file), globals[file])
			if globals[file] > 0 {
				fmt.Fprintf(&buf, "    %q [label=\"%s\", color=\"darkslategrey\", penwidth=1.6];\n", id, label)
			} else {
				fmt.Fprintf(&buf, "    %q [label=\"%s\", color=\"grey\"];\n", id, label)
			}
		}
		buf.WriteString("  }\n\n")
	}

	for _, e := range fg.Edges() {
		fmt.Fprintf(&buf, "  %q -> %q [color=\"forestgreen\"];\n", relativeTo(base, e.From), relativeTo(base, e.To))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func globalsByFile(b *app.Build) map[string]int {
	counts := make(map[string]int)
	seen := make(map[dependency.Key]bool)
	for _, e := range b.Graph.Edges() {
		key := e.To.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		counts[e.To.File]++
	}
	return counts
}
