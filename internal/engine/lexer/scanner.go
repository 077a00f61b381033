// # internal/engine/lexer/scanner.go
package lexer

import (
	"fmt"
	"os"
	"strings"
	"unicode"
)

var wordKinds = map[string]Kind{
	"this":    This,
	"window":  Global,
	"global":  Global,
	"new":     New,
	"extends": Extends,
	"class":   Class,
}

var keywords = map[string]bool{
	"if": true, "else": true, "unless": true, "then": true, "return": true,
	"for": true, "in": true, "of": true, "while": true, "until": true,
	"loop": true, "when": true, "switch": true, "case": true, "default": true,
	"try": true, "catch": true, "finally": true, "throw": true, "break": true,
	"continue": true, "super": true, "true": true, "false": true, "null": true,
	"undefined": true, "yes": true, "no": true, "on": true, "off": true,
	"by": true, "do": true, "delete": true, "typeof": true, "instanceof": true,
	"own": true, "is": true, "isnt": true, "not": true, "and": true, "or": true,
	"import": true, "export": true, "await": true, "yield": true, "debugger": true,
}

// Literal keywords that may open an implicit call argument list.
var argumentKeywords = map[string]bool{
	"true": true, "false": true, "null": true, "undefined": true,
	"yes": true, "no": true, "on": true, "off": true,
	"typeof": true, "super": true, "do": true,
}

// Postfix keywords that end an implicit call on the same line.
var postfixKeywords = map[string]bool{
	"if": true, "unless": true, "then": true, "while": true,
	"until": true, "for": true, "when": true, "else": true,
}

var compoundOperators = []string{
	">>>=", "<<=", ">>=", "**=", "//=", "%%=", "&&=", "||=",
	"?=", "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=",
}

var operators = []string{
	"...", ">>>", "==", "!=", "<=", ">=", "&&", "||", "++", "--",
	"**", "//", "%%", "<<", ">>", "..",
}

// Scanner is a CoffeeScript tokenizer producing the token kinds the
// dependency engine consumes: indentation blocks become Indent/Outdent
// pairs and implicit calls get generated CallStart/CallEnd markers.
type Scanner struct{}

func NewScanner() *Scanner {
	return &Scanner{}
}

func (s *Scanner) Tokenize(path string) ([]Token, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tokens, err := s.TokenizeSource(src)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", path, err)
	}
	return tokens, nil
}

func (s *Scanner) TokenizeSource(src []byte) ([]Token, error) {
	sc := &scan{
		src:  []rune(strings.ReplaceAll(strings.TrimPrefix(string(src), byteOrderMark), "\r\n", "\n")),
		line: 1,
		col:  1,
	}
	return sc.run()
}

const byteOrderMark = "\uFEFF"

type implicitCall struct {
	indent int
	parens int
}

type scan struct {
	src  []rune
	pos  int
	line int
	col  int

	tokens  []Token
	indents []int
	parens  []Kind
	calls   []implicitCall
	spaced  bool
}

func (s *scan) run() ([]Token, error) {
	first, ok, err := s.measureLine()
	if err != nil || !ok {
		return nil, err
	}
	s.indents = []int{first}

	for !s.eof() {
		r := s.peek(0)
		switch {
		case r == '\n':
			s.advance()
			if err := s.newline(); err != nil {
				return nil, err
			}
		case isSpace(r):
			s.advance()
			s.spaced = true
		case r == '\\' && s.peek(1) == '\n':
			s.advance()
			s.advance()
			s.spaced = true
		case r == '#':
			if err := s.comment(); err != nil {
				return nil, err
			}
		case isIdentStart(r):
			s.word()
		case isDigit(r) || (r == '.' && isDigit(s.peek(1))):
			s.number()
		case r == '"' || r == '\'':
			if err := s.str(); err != nil {
				return nil, err
			}
		case r == '`':
			if err := s.js(); err != nil {
				return nil, err
			}
		case r == '/' && s.regexAllowed():
			if !s.regex() {
				if err := s.symbol(); err != nil {
					return nil, err
				}
			}
		default:
			if err := s.symbol(); err != nil {
				return nil, err
			}
		}
	}

	if err := s.finish(); err != nil {
		return nil, err
	}
	return s.tokens, nil
}

func (s *scan) eof() bool {
	return s.pos >= len(s.src)
}

func (s *scan) peek(n int) rune {
	if s.pos+n >= len(s.src) {
		return 0
	}
	return s.src[s.pos+n]
}

func (s *scan) hasPrefix(p string) bool {
	for i, r := range []rune(p) {
		if s.peek(i) != r {
			return false
		}
	}
	return true
}

func (s *scan) advance() rune {
	r := s.src[s.pos]
	s.pos++
	if r == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return r
}

func (s *scan) errorf(line, col int, format string, args ...any) error {
	return &Error{Line: line, Column: col, Message: fmt.Sprintf(format, args...)}
}

func (s *scan) last() (Token, bool) {
	if len(s.tokens) == 0 {
		return Token{}, false
	}
	return s.tokens[len(s.tokens)-1], true
}

func (s *scan) push(k Kind, v string, line, col int, generated bool) {
	endLine, endCol := s.line, s.col-1
	if generated || endCol < col && endLine == line {
		endLine, endCol = line, col
	}
	s.tokens = append(s.tokens, Token{
		Kind:      k,
		Value:     v,
		Span:      Span{Line: line, Column: col, EndLine: endLine, EndColumn: endCol},
		Seq:       len(s.tokens),
		Generated: generated,
	})
}

// emit appends a scanned token, opening an implicit call first when the
// token is a spaced argument following an identifier.
func (s *scan) emit(k Kind, v string, line, col int) {
	if s.opensImplicitCall(k, v) {
		s.calls = append(s.calls, implicitCall{indent: len(s.indents), parens: len(s.parens)})
		s.push(CallStart, "", line, col, true)
	}
	s.push(k, v, line, col, false)
	s.spaced = false
}

func (s *scan) opensImplicitCall(k Kind, v string) bool {
	if !s.spaced {
		return false
	}
	last, ok := s.last()
	if !ok || last.Kind != Identifier {
		return false
	}
	switch k {
	case Identifier, Number, String, JS, At, This, Global, New, Arrow,
		BracketOpen, BraceOpen, ParenOpen:
		return true
	case Keyword:
		return argumentKeywords[v]
	}
	return false
}

// closeCalls ends implicit calls opened at or below the given indentation
// level that are not nested inside a still-open bracket.
func (s *scan) closeCalls(level int) {
	for len(s.calls) > 0 {
		top := s.calls[len(s.calls)-1]
		if top.indent < level || top.parens != len(s.parens) {
			return
		}
		s.calls = s.calls[:len(s.calls)-1]
		s.push(CallEnd, "", s.line, s.col, true)
	}
}

func (s *scan) terminate() {
	last, ok := s.last()
	if !ok || last.Kind == Terminator || last.Kind == Indent {
		return
	}
	s.push(Terminator, "\n", s.line, s.col, true)
}

// measureLine skips blank and comment-only lines and consumes the leading
// whitespace of the next line, returning its width.
func (s *scan) measureLine() (int, bool, error) {
	for {
		width := 0
		for !s.eof() && isSpace(s.peek(0)) {
			s.advance()
			width++
		}
		if s.eof() {
			return 0, false, nil
		}
		switch {
		case s.peek(0) == '\n':
			s.advance()
			continue
		case s.peek(0) == '#':
			if err := s.comment(); err != nil {
				return 0, false, err
			}
			for !s.eof() && s.peek(0) != '\n' {
				s.advance()
			}
			continue
		}
		return width, true, nil
	}
}

func (s *scan) newline() error {
	width, ok, err := s.measureLine()
	if err != nil || !ok {
		return err
	}
	s.spaced = false
	s.indentTo(width)
	return nil
}

func (s *scan) indentTo(width int) {
	top := s.indents[len(s.indents)-1]
	if width > top {
		if last, ok := s.last(); !ok || (last.Kind != Arrow && last.Kind != Comma) {
			s.closeCalls(len(s.indents))
		}
		s.indents = append(s.indents, width)
		s.push(Indent, "", s.line, s.col, true)
		return
	}

	s.closeCalls(len(s.indents))
	for len(s.indents) > 1 && width < s.indents[len(s.indents)-1] {
		s.indents = s.indents[:len(s.indents)-1]
		s.push(Outdent, "", s.line, s.col, true)
		s.closeCalls(len(s.indents))
	}
	if width > s.indents[len(s.indents)-1] {
		s.indents = append(s.indents, width)
		s.push(Indent, "", s.line, s.col, true)
		return
	}
	s.terminate()
}

func (s *scan) finish() error {
	s.closeCalls(len(s.indents))
	for len(s.indents) > 1 {
		s.indents = s.indents[:len(s.indents)-1]
		s.push(Outdent, "", s.line, s.col, true)
		s.closeCalls(len(s.indents))
	}
	if len(s.parens) > 0 {
		return s.errorf(s.line, s.col, "unclosed %s", s.parens[len(s.parens)-1])
	}
	s.closeCalls(0)
	s.terminate()
	return nil
}

func (s *scan) comment() error {
	line, col := s.line, s.col
	if s.hasPrefix("###") && !s.hasPrefix("####") {
		for i := 0; i < 3; i++ {
			s.advance()
		}
		for !s.eof() {
			if s.hasPrefix("###") {
				for i := 0; i < 3; i++ {
					s.advance()
				}
				return nil
			}
			s.advance()
		}
		return s.errorf(line, col, "unterminated block comment")
	}
	for !s.eof() && s.peek(0) != '\n' {
		s.advance()
	}
	return nil
}

func (s *scan) word() {
	line, col := s.line, s.col
	start := s.pos
	for !s.eof() && isIdentPart(s.peek(0)) {
		s.advance()
	}
	w := string(s.src[start:s.pos])

	if last, ok := s.last(); ok && (last.Kind == Dot || (last.Kind == At && !s.spaced)) {
		s.emit(Identifier, w, line, col)
		return
	}
	if s.peek(0) == ':' && s.peek(1) != ':' && (keywords[w] || wordKinds[w] != Illegal) {
		s.emit(Identifier, w, line, col)
		return
	}
	if (w == "or" || w == "and") && s.peekAfterSpaces() == "=" {
		s.skipSpaces()
		s.advance()
		s.emit(CompoundAssign, w+"=", line, col)
		return
	}
	if k, ok := wordKinds[w]; ok {
		s.emit(k, w, line, col)
		return
	}
	if keywords[w] {
		if postfixKeywords[w] {
			s.closeCalls(len(s.indents))
		}
		s.emit(Keyword, w, line, col)
		return
	}
	s.emit(Identifier, w, line, col)
}

// peekAfterSpaces returns the single-rune operator following inline
// whitespace, or "" when it is part of a longer operator.
func (s *scan) peekAfterSpaces() string {
	i := 0
	for isSpace(s.peek(i)) {
		i++
	}
	if s.peek(i) == '=' && s.peek(i+1) != '=' && s.peek(i+1) != '>' {
		return "="
	}
	return ""
}

func (s *scan) skipSpaces() {
	for isSpace(s.peek(0)) {
		s.advance()
	}
}

func (s *scan) number() {
	line, col := s.line, s.col
	start := s.pos
	if s.peek(0) == '0' && strings.ContainsRune("xXbBoO", s.peek(1)) {
		s.advance()
		s.advance()
		for isIdentPart(s.peek(0)) {
			s.advance()
		}
		s.emit(Number, string(s.src[start:s.pos]), line, col)
		return
	}
	for isDigit(s.peek(0)) || s.peek(0) == '_' {
		s.advance()
	}
	if s.peek(0) == '.' && isDigit(s.peek(1)) {
		s.advance()
		for isDigit(s.peek(0)) {
			s.advance()
		}
	}
	if (s.peek(0) == 'e' || s.peek(0) == 'E') &&
		(isDigit(s.peek(1)) || ((s.peek(1) == '+' || s.peek(1) == '-') && isDigit(s.peek(2)))) {
		s.advance()
		s.advance()
		for isDigit(s.peek(0)) {
			s.advance()
		}
	}
	s.emit(Number, string(s.src[start:s.pos]), line, col)
}

func (s *scan) str() error {
	line, col := s.line, s.col
	start := s.pos
	quote := s.peek(0)
	delim := string(quote)
	if s.peek(1) == quote && s.peek(2) == quote {
		delim = strings.Repeat(string(quote), 3)
	}
	for range []rune(delim) {
		s.advance()
	}

	depth := 0
	for !s.eof() {
		switch {
		case s.peek(0) == '\\':
			s.advance()
			if !s.eof() {
				s.advance()
			}
			continue
		case quote == '"' && s.hasPrefix("#{"):
			depth++
			s.advance()
		case depth > 0 && s.peek(0) == '{':
			depth++
		case depth > 0 && s.peek(0) == '}':
			depth--
		case depth == 0 && s.hasPrefix(delim):
			for range []rune(delim) {
				s.advance()
			}
			s.emit(String, string(s.src[start:s.pos]), line, col)
			return nil
		}
		s.advance()
	}
	return s.errorf(line, col, "unterminated string")
}

func (s *scan) js() error {
	line, col := s.line, s.col
	start := s.pos
	delim := "`"
	if s.hasPrefix("```") {
		delim = "```"
	}
	for range []rune(delim) {
		s.advance()
	}
	for !s.eof() {
		if s.peek(0) == '\\' {
			s.advance()
			if !s.eof() {
				s.advance()
			}
			continue
		}
		if s.hasPrefix(delim) {
			for range []rune(delim) {
				s.advance()
			}
			s.emit(JS, string(s.src[start:s.pos]), line, col)
			return nil
		}
		s.advance()
	}
	return s.errorf(line, col, "unterminated embedded javascript")
}

func (s *scan) regexAllowed() bool {
	last, ok := s.last()
	if !ok {
		return true
	}
	switch last.Kind {
	case Number, String, Regex, JS, ParenClose, BracketClose, BraceClose, CallEnd, This, Global:
		return false
	case Identifier:
		next := s.peek(1)
		return s.spaced && next != ' ' && next != '=' && next != '\n'
	}
	return true
}

// regex consumes a regular expression literal. It restores the position and
// reports false when the slash does not begin one.
func (s *scan) regex() bool {
	line, col := s.line, s.col
	start, saveLine, saveCol := s.pos, s.line, s.col

	if s.hasPrefix("///") {
		for i := 0; i < 3; i++ {
			s.advance()
		}
		for !s.eof() {
			if s.hasPrefix("///") {
				for i := 0; i < 3; i++ {
					s.advance()
				}
				s.regexFlags()
				s.emit(Regex, string(s.src[start:s.pos]), line, col)
				return true
			}
			s.advance()
		}
		s.pos, s.line, s.col = start, saveLine, saveCol
		return false
	}

	s.advance()
	inClass := false
	for !s.eof() && s.peek(0) != '\n' {
		r := s.advance()
		switch {
		case r == '\\':
			if !s.eof() && s.peek(0) != '\n' {
				s.advance()
			}
		case r == '[':
			inClass = true
		case r == ']':
			inClass = false
		case r == '/' && !inClass:
			s.regexFlags()
			s.emit(Regex, string(s.src[start:s.pos]), line, col)
			return true
		}
	}
	s.pos, s.line, s.col = start, saveLine, saveCol
	return false
}

func (s *scan) regexFlags() {
	for unicode.IsLetter(s.peek(0)) {
		s.advance()
	}
}

func (s *scan) symbol() error {
	line, col := s.line, s.col

	for _, p := range []string{"?::", "::", "?."} {
		if s.hasPrefix(p) {
			s.take(len(p))
			s.emit(Dot, p, line, col)
			return nil
		}
	}
	for _, p := range compoundOperators {
		if s.hasPrefix(p) {
			s.take(len(p))
			s.emit(CompoundAssign, p, line, col)
			return nil
		}
	}
	if s.hasPrefix("->") || s.hasPrefix("=>") {
		s.take(2)
		s.emit(Arrow, string(s.src[s.pos-2:s.pos]), line, col)
		return nil
	}
	for _, p := range operators {
		if s.hasPrefix(p) {
			s.take(len(p))
			s.emit(Operator, p, line, col)
			return nil
		}
	}

	r := s.advance()
	switch r {
	case '.':
		s.emit(Dot, ".", line, col)
	case '@':
		s.emit(At, "@", line, col)
	case '=':
		s.emit(Assign, "=", line, col)
	case ':':
		s.emit(Colon, ":", line, col)
	case ',':
		s.emit(Comma, ",", line, col)
	case ';':
		s.closeCalls(len(s.indents))
		s.push(Terminator, ";", line, col, false)
		s.spaced = false
	case '(':
		kind := ParenOpen
		if s.callable() {
			kind = CallStart
		}
		s.emit(kind, "(", line, col)
		s.parens = append(s.parens, kind)
	case '[':
		s.emit(BracketOpen, "[", line, col)
		s.parens = append(s.parens, BracketOpen)
	case '{':
		s.emit(BraceOpen, "{", line, col)
		s.parens = append(s.parens, BraceOpen)
	case ')', ']', '}':
		return s.closeBracket(r, line, col)
	case '+', '-', '*', '/', '%', '<', '>', '!', '?', '&', '|', '^', '~':
		s.emit(Operator, string(r), line, col)
	default:
		return s.errorf(line, col, "unexpected character %q", r)
	}
	return nil
}

func (s *scan) take(n int) {
	for i := 0; i < n; i++ {
		s.advance()
	}
}

// callable reports whether an unspaced "(" at this point starts an
// explicit call.
func (s *scan) callable() bool {
	if s.spaced {
		return false
	}
	last, ok := s.last()
	if !ok {
		return false
	}
	switch last.Kind {
	case Identifier, CallEnd, ParenClose, BracketClose, This, At:
		return true
	case Keyword:
		return last.Value == "super"
	}
	return false
}

func (s *scan) closeBracket(r rune, line, col int) error {
	for len(s.calls) > 0 && s.calls[len(s.calls)-1].parens >= len(s.parens) {
		s.calls = s.calls[:len(s.calls)-1]
		s.push(CallEnd, "", line, col, true)
	}
	if len(s.parens) == 0 {
		return s.errorf(line, col, "unmatched %q", r)
	}
	open := s.parens[len(s.parens)-1]
	s.parens = s.parens[:len(s.parens)-1]

	var kind Kind
	switch {
	case r == ')' && open == CallStart:
		kind = CallEnd
	case r == ')' && open == ParenOpen:
		kind = ParenClose
	case r == ']' && open == BracketOpen:
		kind = BracketClose
	case r == '}' && open == BraceOpen:
		kind = BraceClose
	default:
		return s.errorf(line, col, "mismatched %q closing %s", r, open)
	}
	s.push(kind, string(r), line, col, false)
	s.spaced = false
	return nil
}

// isSpace covers inline whitespace, including non-ASCII spacing such as
// U+00A0. Newlines are structural and never count.
func isSpace(r rune) bool {
	return r != '\n' && unicode.IsSpace(r)
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
