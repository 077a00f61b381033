package lexer

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func kinds(tokens []Token) []Kind {
	out := make([]Kind, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, tok.Kind)
	}
	return out
}

func equalKinds(a, b []Kind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func mustScan(t *testing.T, src string) []Token {
	t.Helper()
	tokens, err := NewScanner().TokenizeSource([]byte(src))
	if err != nil {
		t.Fatalf("TokenizeSource failed: %v", err)
	}
	return tokens
}

func TestScanner_Kinds(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []Kind
	}{
		{
			name: "class at global",
			src:  "class @Foo\n",
			want: []Kind{Class, At, Identifier, Terminator},
		},
		{
			name: "window assignment",
			src:  "window.Foo = 1",
			want: []Kind{Global, Dot, Identifier, Assign, Number, Terminator},
		},
		{
			name: "explicit call",
			src:  "foo(a, b)",
			want: []Kind{Identifier, CallStart, Identifier, Comma, Identifier, CallEnd, Terminator},
		},
		{
			name: "parenthesized expression",
			src:  "x = (a)",
			want: []Kind{Identifier, Assign, ParenOpen, Identifier, ParenClose, Terminator},
		},
		{
			name: "implicit call closed at line end",
			src:  "alert Foo\nx = 1",
			want: []Kind{Identifier, CallStart, Identifier, CallEnd, Terminator, Identifier, Assign, Number, Terminator},
		},
		{
			name: "new and extends",
			src:  "class Bar extends Foo\nb = new Foo",
			want: []Kind{Class, Identifier, Extends, Identifier, Terminator, Identifier, Assign, New, Identifier, Terminator},
		},
		{
			name: "compound assignment",
			src:  "a += 1\nb or= c\nd ?= e",
			want: []Kind{
				Identifier, CompoundAssign, Number, Terminator,
				Identifier, CompoundAssign, Identifier, Terminator,
				Identifier, CompoundAssign, Identifier, Terminator,
			},
		},
		{
			name: "prototype and soak access",
			src:  "Foo::bar\na?.b",
			want: []Kind{Identifier, Dot, Identifier, Terminator, Identifier, Dot, Identifier, Terminator},
		},
		{
			name: "comments are skipped",
			src:  "# leading\na = 1 # trailing\n###\nblock\n###\nb = 2",
			want: []Kind{Identifier, Assign, Number, Terminator, Identifier, Assign, Number, Terminator},
		},
		{
			name: "keyword after dot is a property",
			src:  "a.class",
			want: []Kind{Identifier, Dot, Identifier, Terminator},
		},
		{
			name: "division is not a regex",
			src:  "a = b / c",
			want: []Kind{Identifier, Assign, Identifier, Operator, Identifier, Terminator},
		},
		{
			name: "regex literal",
			src:  "a = /fo+/g",
			want: []Kind{Identifier, Assign, Regex, Terminator},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := kinds(mustScan(t, tt.src))
			if !equalKinds(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestScanner_IndentationBlocks(t *testing.T) {
	src := "class @Foo\n  bar: ->\n    baz()\n\n  qux: 1\nFoo.x = 2\n"
	got := kinds(mustScan(t, src))
	want := []Kind{
		Class, At, Identifier,
		Indent,
		Identifier, Colon, Arrow,
		Indent,
		Identifier, CallStart, CallEnd,
		Outdent, Terminator,
		Identifier, Colon, Number,
		Outdent, Terminator,
		Identifier, Dot, Identifier, Assign, Number, Terminator,
	}
	if !equalKinds(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestScanner_BalancedAtEOF(t *testing.T) {
	tokens := mustScan(t, "a = ->\n  b = ->\n    c")
	depth := 0
	for _, tok := range tokens {
		switch tok.Kind {
		case Indent:
			depth++
		case Outdent:
			depth--
		}
		if depth < 0 {
			t.Fatalf("outdent without indent at %s", tok)
		}
	}
	if depth != 0 {
		t.Fatalf("expected balanced blocks, depth %d", depth)
	}
}

func TestScanner_ImplicitCallWithBlockArgument(t *testing.T) {
	src := "describe 'x', ->\n  it()\nnext()"
	got := kinds(mustScan(t, src))
	want := []Kind{
		Identifier, CallStart, String, Comma, Arrow,
		Indent,
		Identifier, CallStart, CallEnd,
		Outdent, CallEnd, Terminator,
		Identifier, CallStart, CallEnd, Terminator,
	}
	if !equalKinds(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestScanner_TokensAreDistinct(t *testing.T) {
	tokens := mustScan(t, "a ->\n  b ->\n    c d\n")
	seen := make(map[Token]bool, len(tokens))
	for _, tok := range tokens {
		if seen[tok] {
			t.Fatalf("duplicate token %s", tok)
		}
		seen[tok] = true
	}
}

func TestScanner_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{name: "unterminated string", src: "a = 'abc"},
		{name: "unmatched close", src: "a)"},
		{name: "unclosed paren", src: "foo(a"},
		{name: "unterminated block comment", src: "###\nabc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScanner().TokenizeSource([]byte(tt.src))
			if err == nil {
				t.Fatal("expected error")
			}
			var lexErr *Error
			if !errors.As(err, &lexErr) {
				t.Fatalf("expected *Error, got %T", err)
			}
		})
	}
}

func TestScanner_UnicodeSpacing(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []Kind
	}{
		{
			name: "leading byte order mark",
			src:  "\uFEFFclass @Foo\n",
			want: []Kind{Class, At, Identifier, Terminator},
		},
		{
			name: "no-break space between tokens",
			src:  "x =\u00a01\n",
			want: []Kind{Identifier, Assign, Number, Terminator},
		},
		{
			name: "no-break space indentation",
			src:  "f = ->\n\u00a0\u00a0g()\n",
			want: []Kind{Identifier, Assign, Arrow, Indent, Identifier, CallStart, CallEnd, Outdent, Terminator},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := kinds(mustScan(t, tt.src))
			if !equalKinds(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}

	tokens := mustScan(t, "\uFEFFclass @Foo\n")
	if tokens[0].Span.Column != 1 {
		t.Errorf("byte order mark must not shift columns, got %+v", tokens[0].Span)
	}
}

func TestScanner_TokenizeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Foo.coffee")
	if err := os.WriteFile(path, []byte("class @Foo\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tokens, err := NewScanner().Tokenize(path)
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	if len(tokens) != 4 || tokens[2].Value != "Foo" {
		t.Fatalf("unexpected tokens %v", tokens)
	}
	if tokens[2].Span.Line != 1 || tokens[2].Span.Column != 8 {
		t.Errorf("unexpected span %+v", tokens[2].Span)
	}
}

func TestCachingLexer(t *testing.T) {
	c, err := NewCachingLexer(NewScanner(), 8)
	if err != nil {
		t.Fatal(err)
	}
	first, err := c.TokenizeSource([]byte("a = 1"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.TokenizeSource([]byte("a = 1"))
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != 1 {
		t.Errorf("expected one cached stream, got %d", c.Len())
	}
	if &first[0] != &second[0] {
		t.Error("expected cached slice to be reused")
	}
	if _, err := c.TokenizeSource([]byte("a = 'x")); err == nil {
		t.Error("expected scan error to propagate")
	}
	if c.Len() != 1 {
		t.Errorf("failed scans must not be cached, got %d entries", c.Len())
	}
	if hits, misses := c.Lookups(); hits != 1 || misses != 2 {
		t.Errorf("expected 1 hit and 2 misses, got %d and %d", hits, misses)
	}
}
