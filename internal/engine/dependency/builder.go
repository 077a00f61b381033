// # internal/engine/dependency/builder.go
package dependency

import (
	"log/slog"

	"coffeegraph/internal/engine/graph"
	"coffeegraph/internal/engine/lexer"
	"coffeegraph/internal/engine/scope"
)

// Names whose presence on the right of an assignment marks a module export.
var exportMarkers = map[string]bool{
	"exports": true,
	"module":  true,
}

type Options struct {
	// StrictAliasing records an assignment target as a global alias only
	// when its right-hand side names a global marker. When false every
	// assigned name is recorded, which over-classifies.
	StrictAliasing bool
}

// Stats summarizes one Generate run.
type Stats struct {
	Files      int
	Nodes      int
	Globals    int
	Candidates int
	Edges      int
	Unresolved int
	SameFile   int
}

type pending struct {
	file  string
	nodes []Identifier
	refs  []Reference
}

// Builder infers cross-file dependencies from a populated scope tree. It
// registers every global of every file before resolving any reference.
type Builder struct {
	tree      *scope.Tree
	index     *Index
	opts      Options
	logger    *slog.Logger
	canonical map[Key]Identifier
	stats     Stats
}

func NewBuilder(tree *scope.Tree, opts Options) *Builder {
	return &Builder{
		tree:      tree,
		index:     NewIndex(),
		opts:      opts,
		logger:    slog.Default(),
		canonical: make(map[Key]Identifier),
	}
}

// WithLogger replaces the default logger.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	if logger != nil {
		b.logger = logger
	}
	return b
}

func (b *Builder) Index() *Index {
	return b.index
}

func (b *Builder) Stats() Stats {
	return b.stats
}

// node returns the canonical identifier for (name, file) so the first
// recorded depth sticks and struct equality matches identity.
func (b *Builder) node(name, file string, depth int) Identifier {
	key := Key{Name: name, File: file}
	if id, ok := b.canonical[key]; ok {
		return id
	}
	id := Identifier{Name: name, File: file, Depth: depth}
	b.canonical[key] = id
	return id
}

// Generate builds the dependency graph. Heuristic misses never fail; they
// only leave an edge out.
func (b *Builder) Generate() *graph.Graph[Identifier] {
	g := graph.New[Identifier]()
	files := b.tree.Files()
	b.stats = Stats{Files: len(files)}

	// Pass 1: nodes, global registration and alias bookkeeping.
	nodesByFile := make(map[string][]Identifier, len(files))
	for _, file := range files {
		sid, ok := b.tree.ScopeFor(file)
		if !ok {
			continue
		}
		depth := b.tree.Depth(sid)
		seen := make(map[string]bool)
		for _, tok := range b.tree.TokensOfType(sid, lexer.Identifier) {
			id := b.node(tok.Value, file, depth)
			g.AddNode(id)
			if !seen[tok.Value] {
				seen[tok.Value] = true
				nodesByFile[file] = append(nodesByFile[file], id)
			}

			if b.isGlobalScoped(sid, tok) && b.index.Register(id) {
				b.logger.Debug("registered global", "name", id.Name, "file", file)
			}
			if b.isGlobalAssignment(sid, tok) {
				b.tree.RecordAssignment(sid, tok.Value)
			}
		}
	}

	// Candidates are collected once the index is complete so shadowing
	// decisions do not depend on file order.
	pendings := make([]pending, 0, len(files))
	for _, file := range files {
		sid, ok := b.tree.ScopeFor(file)
		if !ok {
			continue
		}
		var refs []Reference
		b.referencesIn(sid, nil, make(map[string]bool), &refs)
		b.stats.Candidates += len(refs)
		pendings = append(pendings, pending{file: file, nodes: nodesByFile[file], refs: refs})
	}

	// Pass 2: resolution.
	for _, p := range pendings {
		for _, ref := range p.refs {
			target, ok := ref.Resolve()
			if !ok {
				b.stats.Unresolved++
				continue
			}
			if target.File == p.file {
				b.stats.SameFile++
				continue
			}
			for _, n := range p.nodes {
				g.AddEdge(n, target)
			}
		}
	}

	b.stats.Nodes = g.NodeCount()
	b.stats.Edges = g.EdgeCount()
	b.stats.Globals = b.index.Len()
	b.logger.Debug("dependency graph generated",
		"files", b.stats.Files,
		"nodes", b.stats.Nodes,
		"edges", b.stats.Edges,
		"unresolved", b.stats.Unresolved,
	)
	return g
}

// referencesIn walks a scope and its descendants in source order, emitting
// a deferred reference per candidate name. A known global that is assigned
// locally is shadowed for the rest of the scope and its descendants only.
func (b *Builder) referencesIn(id scope.ID, inherited map[string]bool, emitted map[string]bool, out *[]Reference) {
	overrides := inherited
	owned := false
	children := b.tree.Children(id)
	next := 0

	for _, tok := range b.tree.Tokens(id) {
		for next < len(children) && b.tree.Token(children[next]).Seq < tok.Seq {
			b.referencesIn(children[next], overrides, emitted, out)
			next++
		}
		if tok.Kind != lexer.Identifier || overrides[tok.Value] {
			continue
		}
		if b.index.CanResolve(tok.Value) && b.isLocalAssignment(id, tok) {
			if !owned {
				overrides = cloneSet(overrides)
				owned = true
			}
			overrides[tok.Value] = true
			continue
		}
		if b.isReference(id, tok) && !emitted[tok.Value] {
			emitted[tok.Value] = true
			*out = append(*out, b.index.ReferenceTo(tok.Value))
		}
	}
	for ; next < len(children); next++ {
		b.referencesIn(children[next], overrides, emitted, out)
	}
}

func cloneSet(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}

// isGlobalScoped: @name, this.name, window.name, or alias.name where alias
// was recorded as a global assignment in this scope.
func (b *Builder) isGlobalScoped(id scope.ID, tok lexer.Token) bool {
	before, ok := b.tree.Before(id, tok)
	if !ok {
		return false
	}
	switch before.Kind {
	case lexer.At:
		return true
	case lexer.Dot:
		if before.Value != "." {
			return false
		}
		owner, ok := b.tree.Before(id, before)
		if !ok {
			return false
		}
		switch owner.Kind {
		case lexer.This, lexer.Global:
			return true
		case lexer.Identifier:
			return b.tree.HasAssignment(id, owner.Value)
		}
	}
	return false
}

// isGlobalAssignment reports whether tok is assigned a value that touches a
// global marker. Unless StrictAliasing is set the scan result is ignored
// and every assignment target qualifies.
func (b *Builder) isGlobalAssignment(id scope.ID, tok lexer.Token) bool {
	op, ok := b.tree.After(id, tok)
	if !ok || (op.Kind != lexer.Assign && op.Kind != lexer.CompoundAssign) {
		return false
	}

	found := false
	for _, rhs := range b.tree.Following(id, op) {
		if rhs.Kind == lexer.Terminator {
			break
		}
		if b.isGlobalMarker(id, rhs) {
			found = true
			break
		}
	}
	if b.opts.StrictAliasing {
		return found
	}
	return true
}

func (b *Builder) isGlobalMarker(id scope.ID, tok lexer.Token) bool {
	switch tok.Kind {
	case lexer.At, lexer.This, lexer.Global:
		return true
	case lexer.Identifier:
		return exportMarkers[tok.Value] || b.tree.HasAssignment(id, tok.Value)
	}
	return false
}

// isLocalAssignment: a bare name on the left of an assignment.
func (b *Builder) isLocalAssignment(id scope.ID, tok lexer.Token) bool {
	op, ok := b.tree.After(id, tok)
	if !ok || (op.Kind != lexer.Assign && op.Kind != lexer.CompoundAssign) {
		return false
	}
	before, ok := b.tree.Before(id, tok)
	return !ok || (before.Kind != lexer.Dot && before.Kind != lexer.At)
}

// isReference accepts the leftmost name of a member chain, a called name
// and a constructed or extended name.
func (b *Builder) isReference(id scope.ID, tok lexer.Token) bool {
	before, hasBefore := b.tree.Before(id, tok)
	after, hasAfter := b.tree.After(id, tok)

	if hasAfter && after.Kind == lexer.Dot && (!hasBefore || before.Kind != lexer.Dot) {
		return true
	}
	if hasAfter && after.Kind == lexer.CallStart && b.closesCall(id, after) {
		return true
	}
	return hasBefore && (before.Kind == lexer.New || before.Kind == lexer.Extends)
}

// closesCall scans forward for any call end in the same scope without
// tracking nesting, so an unrelated later call can satisfy it.
func (b *Builder) closesCall(id scope.ID, start lexer.Token) bool {
	for _, tok := range b.tree.Following(id, start) {
		if tok.Kind == lexer.CallEnd {
			return true
		}
	}
	return false
}
