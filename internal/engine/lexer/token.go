// # internal/engine/lexer/token.go
package lexer

import "fmt"

// Kind classifies a token. Only a handful of kinds drive dependency
// inference; the rest exist so statement boundaries and call shapes
// survive tokenization.
type Kind int

const (
	Illegal Kind = iota
	Identifier
	Number
	String
	Regex
	JS
	Dot
	At
	This
	Global
	New
	Extends
	Class
	Keyword
	Assign
	CompoundAssign
	CallStart
	CallEnd
	ParenOpen
	ParenClose
	BracketOpen
	BracketClose
	BraceOpen
	BraceClose
	Colon
	Comma
	Arrow
	Operator
	Indent
	Outdent
	Terminator
)

var kindNames = map[Kind]string{
	Illegal:        "ILLEGAL",
	Identifier:     "IDENTIFIER",
	Number:         "NUMBER",
	String:         "STRING",
	Regex:          "REGEX",
	JS:             "JS",
	Dot:            "DOT",
	At:             "AT",
	This:           "THIS",
	Global:         "GLOBAL",
	New:            "NEW",
	Extends:        "EXTENDS",
	Class:          "CLASS",
	Keyword:        "KEYWORD",
	Assign:         "ASSIGN",
	CompoundAssign: "COMPOUND_ASSIGN",
	CallStart:      "CALL_START",
	CallEnd:        "CALL_END",
	ParenOpen:      "PAREN_OPEN",
	ParenClose:     "PAREN_CLOSE",
	BracketOpen:    "BRACKET_OPEN",
	BracketClose:   "BRACKET_CLOSE",
	BraceOpen:      "BRACE_OPEN",
	BraceClose:     "BRACE_CLOSE",
	Colon:          "COLON",
	Comma:          "COMMA",
	Arrow:          "ARROW",
	Operator:       "OPERATOR",
	Indent:         "INDENT",
	Outdent:        "OUTDENT",
	Terminator:     "TERMINATOR",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Span is a 1-based source range.
type Span struct {
	Line      int
	Column    int
	EndLine   int
	EndColumn int
}

// Token is comparable; Seq is the token's ordinal in its stream, which keeps
// structurally identical synthetic tokens (stacked outdents, implicit call
// ends) distinct when used as map keys.
type Token struct {
	Kind      Kind
	Value     string
	Span      Span
	Seq       int
	Generated bool
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d:%d", t.Kind, t.Value, t.Span.Line, t.Span.Column)
}

// Lexer turns a file into a token stream.
type Lexer interface {
	Tokenize(path string) ([]Token, error)
}

// SourceLexer tokenizes raw source text.
type SourceLexer interface {
	TokenizeSource(src []byte) ([]Token, error)
}

// Error reports a scan failure at a position.
type Error struct {
	Line    int
	Column  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}
