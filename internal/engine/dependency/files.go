package dependency

import "coffeegraph/internal/engine/graph"

// FileOrder reduces a sorted identifier sequence to files, keeping the first
// occurrence of each. Files that produced no nodes depend on nothing
// visible and are appended in input order.
func FileOrder(order []Identifier, files []string) []string {
	seen := make(map[string]bool, len(files))
	out := make([]string, 0, len(files))
	for _, id := range order {
		if seen[id.File] {
			continue
		}
		seen[id.File] = true
		out = append(out, id.File)
	}
	for _, f := range files {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// FileGraph collapses identifier edges onto their defining files.
func FileGraph(g *graph.Graph[Identifier], files []string) *graph.Graph[string] {
	fg := graph.New[string]()
	for _, f := range files {
		fg.AddNode(f)
	}
	for _, n := range g.Nodes() {
		fg.AddNode(n.File)
	}
	for _, e := range g.Edges() {
		if e.From.File == e.To.File {
			continue
		}
		fg.AddEdge(e.From.File, e.To.File)
	}
	return fg
}
