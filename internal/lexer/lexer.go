// Package lexer tokenizes the restricted Python grammar this engine
// evaluates. It tracks leading whitespace to synthesize INDENT/DEDENT
// tokens the way Python's own tokenizer does, since the parser has no other
// way to recognize block structure.
package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cwbudde/go-pyembed/internal/token"
)

// Lexer scans source text into a flat token stream, including synthesized
// NEWLINE/INDENT/DEDENT tokens at logical line boundaries.
//
// Column positions are rune counts from the start of the line, matching the
// teacher's Unicode-column convention rather than byte offsets.
type Lexer struct {
	input        string
	position     int
	readPosition int
	ch           rune
	line         int
	column       int

	atLineStart bool
	parenDepth  int
	indents     []int
	pending     []token.Token
}

// New creates a Lexer for the given source text.
func New(input string) *Lexer {
	l := &Lexer{
		input:       input,
		line:        1,
		column:      0,
		atLineStart: true,
		indents:     []int{0},
	}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		return
	}
	r, width := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.position = l.readPosition
	l.readPosition += width
	l.ch = r
	if r == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) pos() token.Position {
	return token.Position{Line: l.line, Column: l.column}
}

// NextToken returns the next token in the stream.
func (l *Lexer) NextToken() token.Token {
	if len(l.pending) > 0 {
		t := l.pending[0]
		l.pending = l.pending[1:]
		return t
	}

	if l.atLineStart && l.parenDepth == 0 {
		if t, ok := l.handleIndentation(); ok {
			return t
		}
	}

	l.skipSpacesAndComments()

	if l.ch == 0 {
		return l.finalTokens()
	}

	if l.ch == '\n' {
		p := l.pos()
		l.readChar()
		if l.parenDepth > 0 {
			return l.NextToken()
		}
		l.atLineStart = true
		return token.Token{Kind: token.NEWLINE, Literal: "\n", Pos: p}
	}

	pos := l.pos()

	switch {
	case unicode.IsLetter(l.ch) || l.ch == '_':
		lit := l.readIdentifier()
		return token.Token{Kind: token.LookupIdent(lit), Literal: lit, Pos: pos}
	case unicode.IsDigit(l.ch):
		kind, lit := l.readNumber()
		return token.Token{Kind: kind, Literal: lit, Pos: pos}
	case l.ch == '\'' || l.ch == '"':
		// end is the position of the closing quote, the token's last
		// character — the only way to recover the raw source width once
		// Literal has been unescaped.
		lit, end := l.readString(l.ch)
		return token.Token{Kind: token.STRING, Literal: lit, Pos: pos, EndPos: end}
	}

	return l.readOperator(pos)
}

// handleIndentation is called only when at the start of a logical line
// outside brackets. It consumes leading whitespace, skips blank/comment
// lines entirely, and synthesizes INDENT/DEDENT tokens by comparing the new
// indent width against the indent stack.
func (l *Lexer) handleIndentation() (token.Token, bool) {
	for {
		width := 0
		for l.ch == ' ' || l.ch == '\t' {
			width++
			l.readChar()
		}
		if l.ch == '#' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		}
		if l.ch == '\n' {
			l.readChar()
			continue
		}
		if l.ch == 0 {
			l.atLineStart = false
			return token.Token{}, false
		}

		pos := l.pos()
		current := l.indents[len(l.indents)-1]
		switch {
		case width > current:
			l.indents = append(l.indents, width)
			l.atLineStart = false
			return token.Token{Kind: token.INDENT, Pos: pos}, true
		case width < current:
			for len(l.indents) > 1 && l.indents[len(l.indents)-1] > width {
				l.indents = l.indents[:len(l.indents)-1]
				l.pending = append(l.pending, token.Token{Kind: token.DEDENT, Pos: pos})
			}
			l.atLineStart = false
			t := l.pending[0]
			l.pending = l.pending[1:]
			return t, true
		default:
			l.atLineStart = false
			return token.Token{}, false
		}
	}
}

// finalTokens emits any outstanding DEDENTs followed by EOF once the input
// is exhausted.
func (l *Lexer) finalTokens() token.Token {
	pos := l.pos()
	if len(l.indents) > 1 {
		l.indents = l.indents[:len(l.indents)-1]
		return token.Token{Kind: token.DEDENT, Pos: pos}
	}
	return token.Token{Kind: token.EOF, Pos: pos}
}

func (l *Lexer) skipSpacesAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
			l.readChar()
		}
		if l.ch == '#' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		if l.ch == '\\' && l.peekChar() == '\n' {
			l.readChar()
			l.readChar()
			continue
		}
		break
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for unicode.IsLetter(l.ch) || unicode.IsDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[start:l.position]
}

func (l *Lexer) readNumber() (token.Kind, string) {
	start := l.position
	isFloat := false
	for unicode.IsDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && unicode.IsDigit(l.peekChar()) {
		isFloat = true
		l.readChar()
		for unicode.IsDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		isFloat = true
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for unicode.IsDigit(l.ch) {
			l.readChar()
		}
	}
	lit := l.input[start:l.position]
	if isFloat {
		return token.FLOAT, lit
	}
	return token.INT, lit
}

func (l *Lexer) readString(quote rune) (string, token.Position) {
	l.readChar() // consume opening quote
	var sb strings.Builder
	for l.ch != quote && l.ch != 0 {
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			case '\\', '\'', '"':
				sb.WriteRune(l.ch)
			default:
				sb.WriteRune('\\')
				sb.WriteRune(l.ch)
			}
			l.readChar()
			continue
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	end := l.pos()
	l.readChar() // consume closing quote
	return sb.String(), end
}

func (l *Lexer) readOperator(pos token.Position) token.Token {
	ch := l.ch
	switch ch {
	case '+':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return token.Token{Kind: token.PLUS_ASSIGN, Literal: "+=", Pos: pos}
		}
		l.readChar()
		return token.Token{Kind: token.PLUS, Literal: "+", Pos: pos}
	case '-':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return token.Token{Kind: token.MINUS_ASSIGN, Literal: "-=", Pos: pos}
		}
		l.readChar()
		return token.Token{Kind: token.MINUS, Literal: "-", Pos: pos}
	case '*':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return token.Token{Kind: token.STAR_ASSIGN, Literal: "*=", Pos: pos}
		}
		l.readChar()
		return token.Token{Kind: token.STAR, Literal: "*", Pos: pos}
	case '/':
		if l.peekChar() == '/' {
			l.readChar()
			l.readChar()
			return token.Token{Kind: token.SLASH_SLASH, Literal: "//", Pos: pos}
		}
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return token.Token{Kind: token.SLASH_ASSIGN, Literal: "/=", Pos: pos}
		}
		l.readChar()
		return token.Token{Kind: token.SLASH, Literal: "/", Pos: pos}
	case '%':
		l.readChar()
		return token.Token{Kind: token.PERCENT, Literal: "%", Pos: pos}
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return token.Token{Kind: token.EQ, Literal: "==", Pos: pos}
		}
		l.readChar()
		return token.Token{Kind: token.ASSIGN, Literal: "=", Pos: pos}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return token.Token{Kind: token.NEQ, Literal: "!=", Pos: pos}
		}
		l.readChar()
		return token.Token{Kind: token.ILLEGAL, Literal: "!", Pos: pos}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return token.Token{Kind: token.LTE, Literal: "<=", Pos: pos}
		}
		l.readChar()
		return token.Token{Kind: token.LT, Literal: "<", Pos: pos}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return token.Token{Kind: token.GTE, Literal: ">=", Pos: pos}
		}
		l.readChar()
		return token.Token{Kind: token.GT, Literal: ">", Pos: pos}
	case ':':
		l.readChar()
		return token.Token{Kind: token.COLON, Literal: ":", Pos: pos}
	case ',':
		l.readChar()
		return token.Token{Kind: token.COMMA, Literal: ",", Pos: pos}
	case '.':
		l.readChar()
		return token.Token{Kind: token.DOT, Literal: ".", Pos: pos}
	case '(':
		l.parenDepth++
		l.readChar()
		return token.Token{Kind: token.LPAREN, Literal: "(", Pos: pos}
	case ')':
		if l.parenDepth > 0 {
			l.parenDepth--
		}
		l.readChar()
		return token.Token{Kind: token.RPAREN, Literal: ")", Pos: pos}
	case '[':
		l.parenDepth++
		l.readChar()
		return token.Token{Kind: token.LBRACKET, Literal: "[", Pos: pos}
	case ']':
		if l.parenDepth > 0 {
			l.parenDepth--
		}
		l.readChar()
		return token.Token{Kind: token.RBRACKET, Literal: "]", Pos: pos}
	default:
		lit := string(ch)
		l.readChar()
		return token.Token{Kind: token.ILLEGAL, Literal: lit, Pos: pos}
	}
}
