// # internal/engine/graph/graph.go
package graph

import "sync"

// Edge is a directed pair: From depends on To.
type Edge[T comparable] struct {
	From T
	To   T
}

// Graph is a directed graph with insertion-ordered nodes, adjacency and
// edges, so every traversal over it is deterministic.
type Graph[T comparable] struct {
	mu sync.RWMutex

	nodes    *orderedSet[T]
	outgoing map[T]*orderedSet[T] // from -> to
	incoming map[T]*orderedSet[T] // to -> from
	edges    *orderedSet[Edge[T]]
}

func New[T comparable]() *Graph[T] {
	return &Graph[T]{
		nodes:    newOrderedSet[T](),
		outgoing: make(map[T]*orderedSet[T]),
		incoming: make(map[T]*orderedSet[T]),
		edges:    newOrderedSet[Edge[T]](),
	}
}

func (g *Graph[T]) AddNode(n T) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addNodeLocked(n)
}

func (g *Graph[T]) addNodeLocked(n T) {
	if !g.nodes.add(n) {
		return
	}
	g.outgoing[n] = newOrderedSet[T]()
	g.incoming[n] = newOrderedSet[T]()
}

// AddEdge adds from -> to, adding missing endpoints. Repeated calls are
// no-ops.
func (g *Graph[T]) AddEdge(from, to T) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addNodeLocked(from)
	g.addNodeLocked(to)
	if !g.edges.add(Edge[T]{From: from, To: to}) {
		return
	}
	g.outgoing[from].add(to)
	g.incoming[to].add(from)
}

// RemoveEdge deletes from -> to from the edge set and both adjacency maps.
func (g *Graph[T]) RemoveEdge(from, to T) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.removeEdgeLocked(from, to)
}

func (g *Graph[T]) removeEdgeLocked(from, to T) bool {
	if !g.edges.remove(Edge[T]{From: from, To: to}) {
		return false
	}
	g.outgoing[from].remove(to)
	g.incoming[to].remove(from)
	return true
}

func (g *Graph[T]) HasNode(n T) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes.has(n)
}

func (g *Graph[T]) HasEdge(from, to T) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edges.has(Edge[T]{From: from, To: to})
}

// InDegree reports how many nodes depend on n.
func (g *Graph[T]) InDegree(n T) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if set, ok := g.incoming[n]; ok {
		return set.len()
	}
	return 0
}

// Outgoing returns the nodes n depends on. Unknown nodes yield nil.
func (g *Graph[T]) Outgoing(n T) []T {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if set, ok := g.outgoing[n]; ok {
		return set.list()
	}
	return nil
}

// Incoming returns the nodes depending on n. Unknown nodes yield nil.
func (g *Graph[T]) Incoming(n T) []T {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if set, ok := g.incoming[n]; ok {
		return set.list()
	}
	return nil
}

func (g *Graph[T]) Nodes() []T {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes.list()
}

func (g *Graph[T]) Edges() []Edge[T] {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edges.list()
}

// Roots returns the nodes nothing depends on.
func (g *Graph[T]) Roots() []T {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var roots []T
	for _, n := range g.nodes.list() {
		if g.incoming[n].len() == 0 {
			roots = append(roots, n)
		}
	}
	return roots
}

func (g *Graph[T]) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes.len()
}

func (g *Graph[T]) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edges.len()
}

// Copy returns a graph sharing no structure with g.
func (g *Graph[T]) Copy() *Graph[T] {
	g.mu.RLock()
	defer g.mu.RUnlock()

	c := &Graph[T]{
		nodes:    g.nodes.clone(),
		outgoing: make(map[T]*orderedSet[T], len(g.outgoing)),
		incoming: make(map[T]*orderedSet[T], len(g.incoming)),
		edges:    g.edges.clone(),
	}
	for n, set := range g.outgoing {
		c.outgoing[n] = set.clone()
	}
	for n, set := range g.incoming {
		c.incoming[n] = set.clone()
	}
	return c
}

// orderedSet keeps insertion order with O(1) amortized removal: removed
// slots are tombstoned and compacted once they outnumber live ones.
type orderedSet[T comparable] struct {
	items []slot[T]
	index map[T]int
	live  int
}

type slot[T comparable] struct {
	v    T
	dead bool
}

func newOrderedSet[T comparable]() *orderedSet[T] {
	return &orderedSet[T]{index: make(map[T]int)}
}

func (s *orderedSet[T]) add(v T) bool {
	if _, ok := s.index[v]; ok {
		return false
	}
	s.index[v] = len(s.items)
	s.items = append(s.items, slot[T]{v: v})
	s.live++
	return true
}

func (s *orderedSet[T]) remove(v T) bool {
	i, ok := s.index[v]
	if !ok {
		return false
	}
	delete(s.index, v)
	var zero T
	s.items[i] = slot[T]{v: zero, dead: true}
	s.live--
	if len(s.items) > 16 && s.live < len(s.items)/2 {
		s.compact()
	}
	return true
}

func (s *orderedSet[T]) compact() {
	kept := make([]slot[T], 0, s.live)
	for _, it := range s.items {
		if it.dead {
			continue
		}
		s.index[it.v] = len(kept)
		kept = append(kept, it)
	}
	s.items = kept
}

func (s *orderedSet[T]) has(v T) bool {
	_, ok := s.index[v]
	return ok
}

func (s *orderedSet[T]) len() int {
	return s.live
}

func (s *orderedSet[T]) list() []T {
	out := make([]T, 0, s.live)
	for _, it := range s.items {
		if !it.dead {
			out = append(out, it.v)
		}
	}
	return out
}

func (s *orderedSet[T]) clone() *orderedSet[T] {
	c := &orderedSet[T]{
		items: make([]slot[T], 0, s.live),
		index: make(map[T]int, s.live),
		live:  s.live,
	}
	for _, it := range s.items {
		if it.dead {
			continue
		}
		c.index[it.v] = len(c.items)
		c.items = append(c.items, it)
	}
	return c
}
