// # internal/engine/scope/tree.go
package scope

import (
	"fmt"

	"coffeegraph/internal/core/errors"
	"coffeegraph/internal/engine/lexer"
)

// ID addresses a scope in the tree's arena.
type ID int

// Root is the implicit global scope that parents every file scope.
const Root ID = 0

type record struct {
	token    lexer.Token
	depth    int
	parent   ID
	file     string
	tokens   []lexer.Token
	position map[lexer.Token]int
	byKind   map[lexer.Kind][]lexer.Token
	children []ID
	assigned map[string]struct{}
}

// Tree rebuilds nested lexical scopes from flat per-file token streams.
// Indent tokens open a block scope and Outdent tokens close it.
type Tree struct {
	scopes []*record
	byFile map[string]ID
	files  []string
	stack  []ID
	open   bool
}

func NewTree() *Tree {
	t := &Tree{byFile: make(map[string]ID)}
	t.scopes = append(t.scopes, newRecord(lexer.Token{Kind: lexer.Identifier, Value: "ROOT"}, 0, Root, ""))
	t.stack = []ID{Root}
	return t
}

func newRecord(tok lexer.Token, depth int, parent ID, file string) *record {
	return &record{
		token:    tok,
		depth:    depth,
		parent:   parent,
		file:     file,
		position: make(map[lexer.Token]int),
		byKind:   make(map[lexer.Kind][]lexer.Token),
		assigned: make(map[string]struct{}),
	}
}

func unbalanced(file, msg string) error {
	return errors.AddContext(errors.New(errors.CodeUnbalancedScope, msg), errors.CtxPath, file)
}

// AddFile opens a top-level scope for file, closing the previously open file
// scope first. Fails when blocks of the previous file are still open.
func (t *Tree) AddFile(file string) error {
	if _, exists := t.byFile[file]; exists {
		return errors.AddContext(errors.New(errors.CodeConflict, "file already added"), errors.CtxPath, file)
	}
	if err := t.closeFile(); err != nil {
		return err
	}

	id := ID(len(t.scopes))
	t.scopes = append(t.scopes, newRecord(lexer.Token{Kind: lexer.Identifier, Value: file}, len(t.stack), Root, file))
	t.byFile[file] = id
	t.files = append(t.files, file)
	t.stack = append(t.stack, id)
	t.open = true
	return nil
}

// AddToken routes tok into the current scope, pushing a block scope on
// Indent and retiring it to its parent on Outdent.
func (t *Tree) AddToken(tok lexer.Token) error {
	if !t.open {
		return unbalanced("", "token added outside of a file scope")
	}
	current := t.stack[len(t.stack)-1]
	file := t.scopes[current].file

	switch tok.Kind {
	case lexer.Indent:
		id := ID(len(t.scopes))
		t.scopes = append(t.scopes, newRecord(tok, len(t.stack), current, file))
		t.stack = append(t.stack, id)
	case lexer.Outdent:
		if len(t.stack) <= 2 {
			return unbalanced(file, fmt.Sprintf("outdent at line %d closes the file scope", tok.Span.Line))
		}
		t.stack = t.stack[:len(t.stack)-1]
		parent := t.stack[len(t.stack)-1]
		t.scopes[parent].children = append(t.scopes[parent].children, current)
	default:
		rec := t.scopes[current]
		rec.position[tok] = len(rec.tokens)
		rec.tokens = append(rec.tokens, tok)
		rec.byKind[tok.Kind] = append(rec.byKind[tok.Kind], tok)
	}
	return nil
}

// AddTokens adds a whole stream.
func (t *Tree) AddTokens(tokens []lexer.Token) error {
	for _, tok := range tokens {
		if err := t.AddToken(tok); err != nil {
			return err
		}
	}
	return nil
}

// Close retires the last open file scope.
func (t *Tree) Close() error {
	return t.closeFile()
}

func (t *Tree) closeFile() error {
	if !t.open {
		if len(t.stack) != 1 {
			return unbalanced("", "scope stack is not at root")
		}
		return nil
	}
	current := t.stack[len(t.stack)-1]
	rec := t.scopes[current]
	if len(t.stack) != 2 || rec.parent != Root || rec.file == "" || t.byFile[rec.file] != current {
		return unbalanced(rec.file, fmt.Sprintf("%d block scope(s) left open", len(t.stack)-2))
	}
	t.stack = t.stack[:1]
	t.scopes[Root].children = append(t.scopes[Root].children, current)
	t.open = false
	return nil
}

// Files returns the files in the order they were added.
func (t *Tree) Files() []string {
	out := make([]string, len(t.files))
	copy(out, t.files)
	return out
}

func (t *Tree) ScopeFor(file string) (ID, bool) {
	id, ok := t.byFile[file]
	return id, ok
}

func (t *Tree) valid(id ID) bool {
	return id >= 0 && int(id) < len(t.scopes)
}

// Depth is the nesting level: 0 for root, 1 for a file scope.
func (t *Tree) Depth(id ID) int {
	if !t.valid(id) {
		return -1
	}
	return t.scopes[id].depth
}

func (t *Tree) Parent(id ID) ID {
	if !t.valid(id) {
		return Root
	}
	return t.scopes[id].parent
}

// File returns the file owning the scope, or "" for root.
func (t *Tree) File(id ID) string {
	if !t.valid(id) {
		return ""
	}
	return t.scopes[id].file
}

// Token returns the scope's defining token.
func (t *Tree) Token(id ID) lexer.Token {
	if !t.valid(id) {
		return lexer.Token{}
	}
	return t.scopes[id].token
}

// Children returns the retired child scopes in the order they closed.
func (t *Tree) Children(id ID) []ID {
	if !t.valid(id) {
		return nil
	}
	return append([]ID(nil), t.scopes[id].children...)
}

// Tokens returns the scope's own tokens, excluding descendants.
func (t *Tree) Tokens(id ID) []lexer.Token {
	if !t.valid(id) {
		return nil
	}
	return append([]lexer.Token(nil), t.scopes[id].tokens...)
}

// TokensOfType returns the scope's own tokens of kind, in order.
func (t *Tree) TokensOfType(id ID, kind lexer.Kind) []lexer.Token {
	if !t.valid(id) {
		return nil
	}
	return append([]lexer.Token(nil), t.scopes[id].byKind[kind]...)
}

func (t *Tree) Before(id ID, tok lexer.Token) (lexer.Token, bool) {
	return t.offset(id, tok, -1)
}

func (t *Tree) After(id ID, tok lexer.Token) (lexer.Token, bool) {
	return t.offset(id, tok, 1)
}

func (t *Tree) offset(id ID, tok lexer.Token, delta int) (lexer.Token, bool) {
	if !t.valid(id) {
		return lexer.Token{}, false
	}
	rec := t.scopes[id]
	i, ok := rec.position[tok]
	if !ok {
		return lexer.Token{}, false
	}
	j := i + delta
	if j < 0 || j >= len(rec.tokens) {
		return lexer.Token{}, false
	}
	return rec.tokens[j], true
}

// Following returns the own tokens of the scope that come after tok.
func (t *Tree) Following(id ID, tok lexer.Token) []lexer.Token {
	if !t.valid(id) {
		return nil
	}
	rec := t.scopes[id]
	i, ok := rec.position[tok]
	if !ok {
		return nil
	}
	return rec.tokens[i+1:]
}

func (t *Tree) RecordAssignment(id ID, name string) {
	if !t.valid(id) {
		return
	}
	t.scopes[id].assigned[name] = struct{}{}
}

func (t *Tree) HasAssignment(id ID, name string) bool {
	if !t.valid(id) {
		return false
	}
	_, ok := t.scopes[id].assigned[name]
	return ok
}

// Len reports the number of scopes including root.
func (t *Tree) Len() int {
	return len(t.scopes)
}
