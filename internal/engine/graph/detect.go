// # internal/engine/graph/detect.go
package graph

import "slices"

// Path returns the shortest dependency chain from -> ... -> to, following
// outgoing edges breadth first in insertion order.
func Path[T comparable](g *Graph[T], from, to T) ([]T, bool) {
	if !g.HasNode(from) || !g.HasNode(to) {
		return nil, false
	}
	if from == to {
		return []T{from}, true
	}

	queue := []T{from}
	visited := map[T]bool{from: true}
	prev := make(map[T]T)

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		for _, next := range g.Outgoing(curr) {
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = curr

			if next == to {
				path := []T{to}
				for node := to; node != from; {
					p := prev[node]
					path = append(path, p)
					node = p
				}
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path, true
			}

			queue = append(queue, next)
		}
	}

	return nil, false
}

// Cycles groups the nodes of g into strongly connected components and
// returns those that form a cycle: more than one node, or a self edge.
func Cycles[T comparable](g *Graph[T]) [][]T {
	var cycles [][]T
	for _, component := range StronglyConnected(g) {
		if len(component) > 1 || g.HasEdge(component[0], component[0]) {
			cycles = append(cycles, component)
		}
	}
	return cycles
}

// StronglyConnected runs Tarjan's algorithm. Components come out in
// reverse topological order; members keep node insertion order.
func StronglyConnected[T comparable](g *Graph[T]) [][]T {
	nodes := g.Nodes()
	position := make(map[T]int, len(nodes))
	for i, n := range nodes {
		position[n] = i
	}

	index := 0
	stack := make([]T, 0, len(nodes))
	onStack := make(map[T]bool, len(nodes))
	indexByNode := make(map[T]int, len(nodes))
	lowLink := make(map[T]int, len(nodes))
	var components [][]T

	var strongConnect func(T)
	strongConnect = func(v T) {
		indexByNode[v] = index
		lowLink[v] = index
		index++

		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.Outgoing(v) {
			if _, seen := indexByNode[w]; !seen {
				strongConnect(w)
				if lowLink[w] < lowLink[v] {
					lowLink[v] = lowLink[w]
				}
			} else if onStack[w] && indexByNode[w] < lowLink[v] {
				lowLink[v] = indexByNode[w]
			}
		}

		if lowLink[v] != indexByNode[v] {
			return
		}

		var component []T
		for {
			last := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[last] = false
			component = append(component, last)
			if last == v {
				break
			}
		}
		slices.SortFunc(component, func(a, b T) int { return position[a] - position[b] })
		components = append(components, component)
	}

	for _, node := range nodes {
		if _, seen := indexByNode[node]; !seen {
			strongConnect(node)
		}
	}

	return components
}
