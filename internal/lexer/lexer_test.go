package lexer

import (
	"testing"

	"github.com/cwbudde/go-pyembed/internal/token"
)

func TestNextTokenSimpleAssignment(t *testing.T) {
	input := "x = 5\n"

	tests := []struct {
		expectedKind    token.Kind
		expectedLiteral string
	}{
		{token.IDENT, "x"},
		{token.ASSIGN, "="},
		{token.INT, "5"},
		{token.NEWLINE, "\n"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Kind != tt.expectedKind {
			t.Fatalf("tests[%d] - kind wrong. expected=%q, got=%q (literal=%q)",
				i, tt.expectedKind, tok.Kind, tok.Literal)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestKeywords(t *testing.T) {
	input := "and or not if elif else for in pass True False None"

	tests := []token.Kind{
		token.AND, token.OR, token.NOT, token.IF, token.ELIF, token.ELSE,
		token.FOR, token.IN, token.PASS, token.TRUE, token.FALSE, token.NONE,
		token.EOF,
	}

	l := New(input)
	for i, want := range tests {
		tok := l.NextToken()
		if tok.Kind != want {
			t.Fatalf("tests[%d] - kind wrong. expected=%q, got=%q", i, want, tok.Kind)
		}
	}
}

func TestOperatorsAndAugmentedAssign(t *testing.T) {
	input := "+ - * / // % = += -= *= /= == != < <= > >= : , . ( ) [ ]"

	tests := []token.Kind{
		token.PLUS, token.MINUS, token.STAR, token.SLASH, token.SLASH_SLASH,
		token.PERCENT, token.ASSIGN, token.PLUS_ASSIGN, token.MINUS_ASSIGN,
		token.STAR_ASSIGN, token.SLASH_ASSIGN, token.EQ, token.NEQ, token.LT,
		token.LTE, token.GT, token.GTE, token.COLON, token.COMMA, token.DOT,
		token.LPAREN, token.RPAREN, token.LBRACKET, token.RBRACKET, token.EOF,
	}

	l := New(input)
	for i, want := range tests {
		tok := l.NextToken()
		if tok.Kind != want {
			t.Fatalf("tests[%d] - kind wrong. expected=%q, got=%q (literal=%q)", i, want, tok.Kind, tok.Literal)
		}
	}
}

func TestStringEscapes(t *testing.T) {
	input := `'a\nb\t"c"'`
	l := New(input)
	tok := l.NextToken()
	if tok.Kind != token.STRING {
		t.Fatalf("got kind %s, want STRING", tok.Kind)
	}
	want := "a\nb\t\"c\""
	if tok.Literal != want {
		t.Fatalf("got literal %q, want %q", tok.Literal, want)
	}
}

func TestNumberLiterals(t *testing.T) {
	input := "42 3.14 1e10 2.5e-3"
	tests := []struct {
		kind    token.Kind
		literal string
	}{
		{token.INT, "42"},
		{token.FLOAT, "3.14"},
		{token.FLOAT, "1e10"},
		{token.FLOAT, "2.5e-3"},
		{token.EOF, ""},
	}
	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Kind != tt.kind || tok.Literal != tt.literal {
			t.Fatalf("tests[%d] - got (%s, %q), want (%s, %q)", i, tok.Kind, tok.Literal, tt.kind, tt.literal)
		}
	}
}

// TestIndentDedent mirrors Python's own tokenizer behavior for a simple
// if/else block, checking that INDENT and DEDENT are synthesized at the
// right points and nowhere else.
func TestIndentDedent(t *testing.T) {
	input := "if x:\n    y = 1\nelse:\n    y = 2\n"

	var kinds []token.Kind
	l := New(input)
	for {
		tok := l.NextToken()
		kinds = append(kinds, tok.Kind)
		if tok.Kind == token.EOF {
			break
		}
	}

	want := []token.Kind{
		token.IF, token.IDENT, token.COLON, token.NEWLINE,
		token.INDENT, token.IDENT, token.ASSIGN, token.INT, token.NEWLINE,
		token.DEDENT, token.ELSE, token.COLON, token.NEWLINE,
		token.INDENT, token.IDENT, token.ASSIGN, token.INT, token.NEWLINE,
		token.DEDENT, token.EOF,
	}
	if len(kinds) != len(want) {
		t.Fatalf("got %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("at %d: got %s, want %s (full: %v)", i, kinds[i], want[i], kinds)
		}
	}
}

// TestNestedDedentsEmitMultipleDedentTokens checks that returning from a
// doubly-nested block in one line emits two consecutive DEDENT tokens.
func TestNestedDedentsEmitMultipleDedentTokens(t *testing.T) {
	input := "if a:\n    if b:\n        pass\nx = 1\n"

	var kinds []token.Kind
	l := New(input)
	for {
		tok := l.NextToken()
		kinds = append(kinds, tok.Kind)
		if tok.Kind == token.EOF {
			break
		}
	}

	dedentRun := 0
	maxRun := 0
	for _, k := range kinds {
		if k == token.DEDENT {
			dedentRun++
			if dedentRun > maxRun {
				maxRun = dedentRun
			}
		} else {
			dedentRun = 0
		}
	}
	if maxRun != 2 {
		t.Fatalf("got max consecutive DEDENT run %d, want 2 (full: %v)", maxRun, kinds)
	}
}

// TestParenDepthSuppressesNewlineAndIndent checks that logical lines
// spanning brackets don't emit NEWLINE/INDENT tokens for embedded newlines.
func TestParenDepthSuppressesNewlineAndIndent(t *testing.T) {
	input := "x = [1,\n     2,\n     3]\n"

	var kinds []token.Kind
	l := New(input)
	for {
		tok := l.NextToken()
		kinds = append(kinds, tok.Kind)
		if tok.Kind == token.EOF {
			break
		}
	}

	want := []token.Kind{
		token.IDENT, token.ASSIGN, token.LBRACKET, token.INT, token.COMMA,
		token.INT, token.COMMA, token.INT, token.RBRACKET, token.NEWLINE, token.EOF,
	}
	if len(kinds) != len(want) {
		t.Fatalf("got %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("at %d: got %s, want %s (full: %v)", i, kinds[i], want[i], kinds)
		}
	}
}

func TestCommentsAndBlankLinesAreSkipped(t *testing.T) {
	input := "x = 1  # a comment\n\n# full line comment\ny = 2\n"

	var kinds []token.Kind
	l := New(input)
	for {
		tok := l.NextToken()
		kinds = append(kinds, tok.Kind)
		if tok.Kind == token.EOF {
			break
		}
	}

	want := []token.Kind{
		token.IDENT, token.ASSIGN, token.INT, token.NEWLINE,
		token.IDENT, token.ASSIGN, token.INT, token.NEWLINE,
		token.EOF,
	}
	if len(kinds) != len(want) {
		t.Fatalf("got %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("at %d: got %s, want %s (full: %v)", i, kinds[i], want[i], kinds)
		}
	}
}

func TestIllegalCharacter(t *testing.T) {
	l := New("@")
	tok := l.NextToken()
	if tok.Kind != token.ILLEGAL || tok.Literal != "@" {
		t.Fatalf("got (%s, %q), want (ILLEGAL, \"@\")", tok.Kind, tok.Literal)
	}
}
