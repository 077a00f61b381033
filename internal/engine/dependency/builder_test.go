package dependency

import (
	"errors"
	"testing"

	"coffeegraph/internal/engine/graph"
	"coffeegraph/internal/engine/lexer"
	"coffeegraph/internal/engine/scope"
)

type source struct {
	name string
	src  string
}

func analyze(t *testing.T, opts Options, sources ...source) (*graph.Graph[Identifier], *Builder) {
	t.Helper()
	tree := scope.NewTree()
	scanner := lexer.NewScanner()
	for _, s := range sources {
		tokens, err := scanner.TokenizeSource([]byte(s.src))
		if err != nil {
			t.Fatalf("scan %s: %v", s.name, err)
		}
		if err := tree.AddFile(s.name); err != nil {
			t.Fatalf("AddFile(%s): %v", s.name, err)
		}
		if err := tree.AddTokens(tokens); err != nil {
			t.Fatalf("AddTokens(%s): %v", s.name, err)
		}
	}
	if err := tree.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	b := NewBuilder(tree, opts)
	return b.Generate(), b
}

func fileNames(sources []source) []string {
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		out = append(out, s.name)
	}
	return out
}

func sortedFiles(t *testing.T, g *graph.Graph[Identifier], sources []source) []string {
	t.Helper()
	order, err := graph.Sort(g)
	if err != nil {
		t.Fatalf("Sort: %v", err)
	}
	assertOrderInvariant(t, g, order)
	return FileOrder(order, fileNames(sources))
}

func assertOrderInvariant(t *testing.T, g *graph.Graph[Identifier], order []Identifier) {
	t.Helper()
	pos := make(map[Identifier]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	for _, e := range g.Edges() {
		if pos[e.To] >= pos[e.From] {
			t.Errorf("%v must precede %v", e.To, e.From)
		}
	}
}

func assertNoSelfFileEdges(t *testing.T, g *graph.Graph[Identifier]) {
	t.Helper()
	for _, e := range g.Edges() {
		if e.From.File == e.To.File {
			t.Errorf("unexpected same-file edge %v -> %v", e.From, e.To)
		}
	}
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}

func hasFileEdge(g *graph.Graph[Identifier], from, to string) bool {
	for _, e := range g.Edges() {
		if e.From.File == from && e.To.File == to {
			return true
		}
	}
	return false
}

func TestBuilder_ConstructionReference(t *testing.T) {
	sources := []source{
		{"Bar.coffee", "bar = new Foo\n"},
		{"Foo.coffee", "class @Foo\n  constructor: ->\n"},
	}
	g, _ := analyze(t, Options{}, sources...)
	assertNoSelfFileEdges(t, g)

	files := sortedFiles(t, g, sources)
	if len(files) != 2 || files[0] != "Foo.coffee" || files[1] != "Bar.coffee" {
		t.Fatalf("expected [Foo.coffee Bar.coffee], got %v", files)
	}
}

func TestBuilder_SharedDependency(t *testing.T) {
	sources := []source{
		{"A.coffee", "Logger.log 'a'\n"},
		{"C.coffee", "c = new Logger\n"},
		{"B.coffee", "class @Logger\n  log: (msg) ->\n    console.log msg\n"},
	}
	g, _ := analyze(t, Options{}, sources...)
	assertNoSelfFileEdges(t, g)

	files := sortedFiles(t, g, sources)
	b := indexOf(files, "B.coffee")
	if b > indexOf(files, "A.coffee") || b > indexOf(files, "C.coffee") {
		t.Fatalf("expected B.coffee before A.coffee and C.coffee, got %v", files)
	}
}

func TestBuilder_Cycle(t *testing.T) {
	sources := []source{
		{"X.coffee", "class @X\n  y: -> new Y\n"},
		{"Y.coffee", "class @Y\n  z: -> new Z\n"},
		{"Z.coffee", "class @Z\n  x: -> new X\n"},
	}
	g, _ := analyze(t, Options{}, sources...)

	_, err := graph.Sort(g)
	var cyclic *graph.CyclicDependencyError[Identifier]
	if !errors.As(err, &cyclic) {
		t.Fatalf("expected cyclic dependency error, got %v", err)
	}
	if len(cyclic.Edges) != 3 {
		t.Fatalf("expected 3 residual edges, got %v", cyclic.Edges)
	}
	for _, pair := range [][2]string{{"X.coffee", "Y.coffee"}, {"Y.coffee", "Z.coffee"}, {"Z.coffee", "X.coffee"}} {
		found := false
		for _, e := range cyclic.Edges {
			if e.From.File == pair[0] && e.To.File == pair[1] {
				found = true
			}
		}
		if !found {
			t.Errorf("expected residual edge %s -> %s", pair[0], pair[1])
		}
	}
}

func TestBuilder_LocalShadowing(t *testing.T) {
	foo := source{"Foo.coffee", "class @Foo\n"}

	t.Run("nested block", func(t *testing.T) {
		bar := source{"Bar.coffee", "helper = ->\n  inner = ->\n    Foo = 'local'\n    Foo.bar()\n    new Foo\n  inner()\n"}
		g, _ := analyze(t, Options{}, foo, bar)
		if hasFileEdge(g, "Bar.coffee", "Foo.coffee") {
			t.Fatal("shadowed Foo must not reference the global")
		}
	})

	t.Run("outside the shadowing block", func(t *testing.T) {
		bar := source{"Bar.coffee", "helper = ->\n  Foo = 'local'\n  Foo.bar()\nx = new Foo\n"}
		g, _ := analyze(t, Options{}, foo, bar)
		if !hasFileEdge(g, "Bar.coffee", "Foo.coffee") {
			t.Fatal("expected reference outside the block to resolve")
		}
	})

	t.Run("sibling block", func(t *testing.T) {
		bar := source{"Bar.coffee", "a = ->\n  Foo = 1\nb = ->\n  Foo.bar()\n"}
		g, _ := analyze(t, Options{}, foo, bar)
		if !hasFileEdge(g, "Bar.coffee", "Foo.coffee") {
			t.Fatal("shadowing must not leak into sibling blocks")
		}
	})

	t.Run("use before local assignment", func(t *testing.T) {
		bar := source{"Bar.coffee", "helper = ->\n  Foo.bar()\n  Foo = 'local'\n"}
		g, _ := analyze(t, Options{}, foo, bar)
		if !hasFileEdge(g, "Bar.coffee", "Foo.coffee") {
			t.Fatal("expected reference preceding the assignment to resolve")
		}
	})

	t.Run("descendant of shadowing block", func(t *testing.T) {
		bar := source{"Bar.coffee", "helper = ->\n  Foo = 'local'\n  inner = ->\n    new Foo\n"}
		g, _ := analyze(t, Options{}, foo, bar)
		if hasFileEdge(g, "Bar.coffee", "Foo.coffee") {
			t.Fatal("shadowing must reach nested blocks")
		}
	})
}

func TestBuilder_SelfFileExclusion(t *testing.T) {
	g, b := analyze(t, Options{}, source{"Foo.coffee", "class @Foo\nf = new Foo\nFoo.create()\n"})
	if g.EdgeCount() != 0 {
		t.Fatalf("expected no edges, got %v", g.Edges())
	}
	if b.Stats().SameFile == 0 {
		t.Error("expected same-file candidates to be counted")
	}
}

func TestBuilder_GlobalForms(t *testing.T) {
	src := "@At = 1\nthis.This = 2\nwindow.Window = 3\nroot = exports ? this\nroot.Aliased = 4\nexports.Exported = 5\n"
	_, b := analyze(t, Options{StrictAliasing: true}, source{"g.coffee", src})
	for _, name := range []string{"At", "This", "Window", "Aliased"} {
		if !b.Index().CanResolve(name) {
			t.Errorf("expected %s to be registered", name)
		}
	}
	if b.Index().CanResolve("Exported") {
		t.Error("exports.Exported is not a global declaration")
	}
	if b.Index().CanResolve("root") {
		t.Error("alias itself is not a global")
	}
}

func TestBuilder_AliasingDefaultOverClassifies(t *testing.T) {
	src := "local = 5\nlocal.Prop = 1\n"

	_, strict := analyze(t, Options{StrictAliasing: true}, source{"a.coffee", src})
	if strict.Index().CanResolve("Prop") {
		t.Error("strict aliasing must ignore assignments without a global marker")
	}

	_, loose := analyze(t, Options{}, source{"a.coffee", src})
	if !loose.Index().CanResolve("Prop") {
		t.Error("default aliasing treats every assignment target as a global alias")
	}
}

func TestBuilder_FirstRegistrationWins(t *testing.T) {
	_, b := analyze(t, Options{},
		source{"one.coffee", "class @Dup\n"},
		source{"two.coffee", "class @Dup\n"},
	)
	id, ok := b.Index().Resolve("Dup")
	if !ok || id.File != "one.coffee" {
		t.Fatalf("expected Dup from one.coffee, got %v", id)
	}
	if id.Depth != 1 {
		t.Errorf("expected file-scope depth 1, got %d", id.Depth)
	}
}

func TestBuilder_FlatCallMatching(t *testing.T) {
	helper := source{"Helper.coffee", "@helper = ->\n  1\n"}

	t.Run("call end in nested block only", func(t *testing.T) {
		g, _ := analyze(t, Options{}, helper, source{"Use.coffee", "helper(\n    1)\n"})
		if hasFileEdge(g, "Use.coffee", "Helper.coffee") {
			t.Fatal("a call closed in a nested block is not matched")
		}
	})

	t.Run("unrelated later call end matches", func(t *testing.T) {
		g, _ := analyze(t, Options{}, helper, source{"Use.coffee", "helper(\n    1)\nother()\n"})
		if !hasFileEdge(g, "Use.coffee", "Helper.coffee") {
			t.Fatal("flat matching accepts any later call end in the scope")
		}
	})
}

func TestBuilder_FieldReferenceCountsLeftmostOnly(t *testing.T) {
	g, b := analyze(t, Options{},
		source{"ns.coffee", "@App = {}\n@Views = {}\n"},
		source{"use.coffee", "App.Views.render()\n"},
	)
	if !hasFileEdge(g, "use.coffee", "ns.coffee") {
		t.Fatal("expected App reference")
	}
	for _, e := range g.Edges() {
		if e.To.Name == "Views" {
			t.Errorf("Views is preceded by a dot and must not be a reference: %v", e)
		}
	}
	if b.Stats().Globals != 2 {
		t.Errorf("expected 2 globals, got %d", b.Stats().Globals)
	}
}

func TestFileGraph(t *testing.T) {
	sources := []source{
		{"Bar.coffee", "bar = new Foo\n"},
		{"Foo.coffee", "class @Foo\n"},
		{"Empty.coffee", "# nothing\n"},
	}
	g, _ := analyze(t, Options{}, sources...)
	fg := FileGraph(g, fileNames(sources))
	if fg.NodeCount() != 3 {
		t.Fatalf("expected 3 file nodes, got %v", fg.Nodes())
	}
	if fg.EdgeCount() != 1 || !fg.HasEdge("Bar.coffee", "Foo.coffee") {
		t.Fatalf("expected single Bar -> Foo edge, got %v", fg.Edges())
	}

	files := sortedFiles(t, g, sources)
	if len(files) != 3 || files[2] != "Empty.coffee" {
		t.Fatalf("expected files without nodes last, got %v", files)
	}
}
