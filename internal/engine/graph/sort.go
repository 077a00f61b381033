// # internal/engine/graph/sort.go
package graph

import (
	"fmt"
	"strings"
)

// CyclicDependencyError carries the edges left in the working graph once
// no more nodes could be peeled off.
type CyclicDependencyError[T comparable] struct {
	Edges []Edge[T]
}

func (e *CyclicDependencyError[T]) Error() string {
	parts := make([]string, 0, len(e.Edges))
	for _, edge := range e.Edges {
		parts = append(parts, fmt.Sprintf("%v -> %v", edge.From, edge.To))
	}
	return fmt.Sprintf("cyclic dependency across %d edge(s): %s", len(e.Edges), strings.Join(parts, ", "))
}

// Sort orders g so that for every edge from -> to, to comes before from.
// The input graph is left untouched. Ties are broken by insertion order.
//
// Peeling a node retires its outgoing edges by decrementing the in-degree
// of each target, so a sort costs O(nodes + edges).
func Sort[T comparable](g *Graph[T]) ([]T, error) {
	nodes := g.Nodes()
	inDegree := make(map[T]int, len(nodes))
	var ready []T
	for _, n := range nodes {
		d := g.InDegree(n)
		inDegree[n] = d
		if d == 0 {
			ready = append(ready, n)
		}
	}

	// Collected in peel order and reversed at the end, which is the same as
	// prepending every peeled node.
	peeled := make([]T, 0, len(nodes))
	done := make(map[T]bool, len(nodes))
	for head := 0; head < len(ready); head++ {
		n := ready[head]
		peeled = append(peeled, n)
		done[n] = true

		for _, m := range g.Outgoing(n) {
			inDegree[m]--
			if inDegree[m] == 0 {
				ready = append(ready, m)
			}
		}
	}

	if len(peeled) < len(nodes) {
		var residual []Edge[T]
		for _, e := range g.Edges() {
			if !done[e.From] {
				residual = append(residual, e)
			}
		}
		return nil, &CyclicDependencyError[T]{Edges: residual}
	}

	for i, j := 0, len(peeled)-1; i < j; i, j = i+1, j-1 {
		peeled[i], peeled[j] = peeled[j], peeled[i]
	}
	return peeled, nil
}

// WalkTree visits the dependency tree below every node of order that has
// no dependents in g, depth first over outgoing edges. Self edges are
// skipped and a node already on the current path is not re-entered.
func WalkTree[T comparable](g *Graph[T], order []T, visit func(n T, depth int)) {
	for _, n := range order {
		if g.InDegree(n) > 0 {
			continue
		}
		walk(g, n, 0, map[T]bool{}, visit)
	}
}

func walk[T comparable](g *Graph[T], n T, depth int, onPath map[T]bool, visit func(T, int)) {
	visit(n, depth)
	onPath[n] = true
	for _, m := range g.Outgoing(n) {
		if m == n || onPath[m] {
			continue
		}
		walk(g, m, depth+1, onPath, visit)
	}
	delete(onPath, n)
}
