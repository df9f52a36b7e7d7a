// Package parser implements a small recursive-descent/Pratt parser over the
// restricted Python grammar internal/engine evaluates. It is not a general
// Python parser — spec.md treats the source-level parser as an external
// collaborator, but a host still needs something to turn text into an AST,
// so this package covers exactly the statement/expression forms spec.md
// section 4.3 lists, plus enough recognition of the rest of Python's
// statement grammar to produce an ast.UnsupportedStmt rather than a parse
// failure (the evaluator is what raises NotImplementedError for those, per
// spec.md 4.3's "emit NotImplementedError at evaluation" rule).
package parser

import (
	"fmt"

	"github.com/cwbudde/go-pyembed/internal/ast"
	"github.com/cwbudde/go-pyembed/internal/lexer"
	"github.com/cwbudde/go-pyembed/internal/syntaxerr"
	"github.com/cwbudde/go-pyembed/internal/token"
)

// Parser consumes a token stream from a Lexer and builds an *ast.Program.
type Parser struct {
	l *lexer.Lexer

	cur  token.Token
	peek token.Token

	filename string
	err      *syntaxerr.ParseError
}

// New creates a Parser for the given lexer.
func New(l *lexer.Lexer, filename string) *Parser {
	p := &Parser{l: l, filename: filename}
	p.advance()
	p.advance()
	return p
}

// ParseProgram parses the whole token stream. It returns the first syntax
// error encountered, if any; the engine never attempts partial recovery
// since spec.md treats parse failures as all-or-nothing.
func (p *Parser) ParseProgram() (*ast.Program, *syntaxerr.ParseError) {
	prog := &ast.Program{}
	p.skipNewlines()
	for p.cur.Kind != token.EOF && p.err == nil {
		stmt := p.parseStatement()
		if p.err != nil {
			return nil, p.err
		}
		if stmt != nil {
			prog.Statements = append(prog.Statements, stmt)
		}
		p.skipNewlines()
	}
	if p.err != nil {
		return nil, p.err
	}
	return prog, nil
}

func (p *Parser) advance() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

func (p *Parser) skipNewlines() {
	for p.cur.Kind == token.NEWLINE {
		p.advance()
	}
}

func (p *Parser) fail(pos token.Position, format string, args ...any) {
	if p.err == nil {
		p.err = syntaxerr.New("SyntaxError", pos.Line, pos.Column, pos.Line, pos.Column, format, args...)
	}
}

func (p *Parser) expect(kind token.Kind) token.Token {
	if p.cur.Kind != kind {
		p.fail(p.cur.Pos, "expected %s, got %s", kind, p.cur.Kind)
		return p.cur
	}
	t := p.cur
	p.advance()
	return t
}

// ---- statements ----

func (p *Parser) parseBlock() []ast.Stmt {
	p.expect(token.COLON)
	if p.cur.Kind == token.NEWLINE {
		p.advance()
		p.skipNewlines()
		p.expect(token.INDENT)
		var stmts []ast.Stmt
		for p.cur.Kind != token.DEDENT && p.cur.Kind != token.EOF && p.err == nil {
			s := p.parseStatement()
			if s != nil {
				stmts = append(stmts, s)
			}
			p.skipNewlines()
		}
		if p.cur.Kind == token.DEDENT {
			p.advance()
		}
		return stmts
	}
	// single-line suite: `if x: pass`
	s := p.parseSimpleStatement()
	return []ast.Stmt{s}
}

func (p *Parser) parseStatement() ast.Stmt {
	switch p.cur.Kind {
	case token.IF:
		return p.parseIf()
	case token.FOR:
		return p.parseFor()
	default:
		return p.parseSimpleStatement()
	}
}

func (p *Parser) parseSimpleStatement() ast.Stmt {
	start := p.cur.Pos

	switch p.cur.Kind {
	case token.PASS:
		p.advance()
		return &ast.PassStmt{}
	case token.IDENT:
		// could be a reserved-but-unimplemented keyword, an assignment, or
		// a plain expression statement.
		return p.parseIdentLeadStatement(start)
	default:
		expr := p.parseExpression(precLowest)
		return &ast.ExprStmt{X: expr}
	}
}

// reservedKeywordName recognizes Python statement keywords this grammar
// doesn't lex as their own tokens (the lexer only special-cases keywords the
// evaluator actually needs); anything else arrives as IDENT and is matched
// by name here so `while`, `return`, `def`, etc. still produce a clean
// UnsupportedStmt instead of a confusing parse error.
func reservedKeywordName(t token.Token) (string, bool) {
	if t.Kind != token.IDENT {
		return "", false
	}
	switch t.Literal {
	case "while", "with", "try", "def", "class", "return", "break", "continue",
		"import", "del", "global", "nonlocal", "assert", "raise", "from", "lambda", "yield":
		return t.Literal, true
	}
	return "", false
}

func (p *Parser) parseIdentLeadStatement(start token.Position) ast.Stmt {
	if kw, ok := reservedKeywordName(p.cur); ok {
		p.advance()
		for p.cur.Kind != token.NEWLINE && p.cur.Kind != token.EOF && p.cur.Kind != token.DEDENT {
			p.advance()
		}
		// A compound statement's indented body belongs to it; skip it whole.
		if p.cur.Kind == token.NEWLINE && p.peek.Kind == token.INDENT {
			p.advance()
			depth := 0
			for p.cur.Kind != token.EOF {
				if p.cur.Kind == token.INDENT {
					depth++
				} else if p.cur.Kind == token.DEDENT {
					depth--
					if depth == 0 {
						p.advance()
						break
					}
				}
				p.advance()
			}
		}
		return &ast.UnsupportedStmt{Keyword: kw}
	}

	expr := p.parseExpression(precLowest)

	switch p.cur.Kind {
	case token.COMMA:
		for p.cur.Kind != token.NEWLINE && p.cur.Kind != token.EOF && p.cur.Kind != token.DEDENT {
			p.advance()
		}
		return &ast.UnsupportedStmt{Keyword: "tuple unpacking"}
	case token.ASSIGN:
		p.advance()
		value := p.parseExpression(precLowest)
		return &ast.AssignStmt{Target: expr, Value: value}
	case token.PLUS_ASSIGN, token.MINUS_ASSIGN, token.STAR_ASSIGN, token.SLASH_ASSIGN:
		op := augOpFor(p.cur.Kind)
		p.advance()
		value := p.parseExpression(precLowest)
		return &ast.AssignStmt{Target: expr, Op: &op, Value: value}
	case token.COLON:
		p.advance()
		p.skipTypeExpression()
		if p.cur.Kind == token.ASSIGN {
			p.advance()
			value := p.parseExpression(precLowest)
			return &ast.AnnAssignStmt{Target: expr, Value: value}
		}
		return &ast.AnnAssignStmt{Target: expr}
	default:
		return &ast.ExprStmt{X: expr}
	}
}

// skipTypeExpression discards a type annotation. Annotations are
// parse-only, per spec.md 4.3 ("annotation ignored"), so we don't build an
// AST for them at all, just consume tokens up to `=`, NEWLINE, or EOF.
func (p *Parser) skipTypeExpression() {
	depth := 0
	for {
		switch p.cur.Kind {
		case token.LBRACKET, token.LPAREN:
			depth++
		case token.RBRACKET, token.RPAREN:
			depth--
		case token.ASSIGN:
			if depth == 0 {
				return
			}
		case token.NEWLINE, token.EOF, token.DEDENT:
			return
		}
		p.advance()
	}
}

func augOpFor(k token.Kind) ast.BinOp {
	switch k {
	case token.PLUS_ASSIGN:
		return ast.OpAdd
	case token.MINUS_ASSIGN:
		return ast.OpSub
	case token.STAR_ASSIGN:
		return ast.OpMul
	case token.SLASH_ASSIGN:
		return ast.OpDiv
	default:
		return ast.OpAdd
	}
}

func (p *Parser) parseIf() ast.Stmt {
	start := p.cur.Pos
	p.advance() // consume 'if'
	test := p.parseExpression(precLowest)
	body := p.parseBlock()

	node := &ast.IfStmt{Test: test, Body: body}
	node.SetSpan(ast.SpanOf(start, p.cur.Pos))

	if p.cur.Kind == token.ELIF {
		node.Else = []ast.Stmt{p.parseElif()}
	} else if p.cur.Kind == token.ELSE {
		p.advance()
		node.Else = p.parseBlock()
	}
	return node
}

func (p *Parser) parseElif() ast.Stmt {
	start := p.cur.Pos
	p.advance() // consume 'elif'
	test := p.parseExpression(precLowest)
	body := p.parseBlock()
	node := &ast.IfStmt{Test: test, Body: body}
	node.SetSpan(ast.SpanOf(start, p.cur.Pos))
	if p.cur.Kind == token.ELIF {
		node.Else = []ast.Stmt{p.parseElif()}
	} else if p.cur.Kind == token.ELSE {
		p.advance()
		node.Else = p.parseBlock()
	}
	return node
}

func (p *Parser) parseFor() ast.Stmt {
	start := p.cur.Pos
	p.advance() // 'for'
	name := p.expect(token.IDENT)
	p.expect(token.IN)
	iter := p.parseExpression(precLowest)
	body := p.parseBlock()
	node := &ast.ForStmt{Var: name.Literal, Iter: iter, Body: body}
	node.SetSpan(ast.SpanOf(start, p.cur.Pos))
	return node
}

// ---- expressions (Pratt parser) ----

type precedence int

const (
	precLowest precedence = iota
	precOr
	precAnd
	precNot
	precCompare
	precAdd
	precMul
	precUnary
	precPostfix
)

func (p *Parser) parseExpression(prec precedence) ast.Expr {
	left := p.parsePrefix()
	for p.err == nil {
		nextPrec, ok := binOpPrecedence(p.cur.Kind)
		if !ok || prec >= nextPrec {
			break
		}
		left = p.parseBinary(left)
	}
	return left
}

func binOpPrecedence(k token.Kind) (precedence, bool) {
	switch k {
	case token.OR:
		return precOr, true
	case token.AND:
		return precAnd, true
	case token.EQ, token.NEQ, token.LT, token.LTE, token.GT, token.GTE:
		return precCompare, true
	case token.PLUS, token.MINUS:
		return precAdd, true
	case token.STAR, token.SLASH, token.SLASH_SLASH, token.PERCENT:
		return precMul, true
	default:
		return precLowest, false
	}
}

func (p *Parser) parseBinary(left ast.Expr) ast.Expr {
	opTok := p.cur
	prec, _ := binOpPrecedence(opTok.Kind)
	p.advance()
	right := p.parseExpression(prec)
	op := binOpFor(opTok.Kind)
	e := &ast.BinaryExpr{Op: op, Left: left, Right: right}
	e.SetSpan(ast.Span{StartLine: left.Span().StartLine, StartCol: left.Span().StartCol, EndLine: right.Span().EndLine, EndCol: right.Span().EndCol})
	return e
}

func binOpFor(k token.Kind) ast.BinOp {
	switch k {
	case token.PLUS:
		return ast.OpAdd
	case token.MINUS:
		return ast.OpSub
	case token.STAR:
		return ast.OpMul
	case token.SLASH:
		return ast.OpDiv
	case token.SLASH_SLASH:
		return ast.OpFloorDiv
	case token.PERCENT:
		return ast.OpMod
	case token.EQ:
		return ast.OpEq
	case token.NEQ:
		return ast.OpNeq
	case token.LT:
		return ast.OpLt
	case token.LTE:
		return ast.OpLte
	case token.GT:
		return ast.OpGt
	case token.GTE:
		return ast.OpGte
	case token.AND:
		return ast.OpAnd
	case token.OR:
		return ast.OpOr
	default:
		return ast.OpAdd
	}
}

func (p *Parser) parsePrefix() ast.Expr {
	switch p.cur.Kind {
	case token.MINUS:
		start := p.cur.Pos
		p.advance()
		operand := p.parseExpression(precUnary)
		e := &ast.UnaryExpr{Op: ast.OpNeg, Operand: operand}
		e.SetSpan(ast.SpanOf(start, operand.Span().EndPos()))
		return p.parsePostfix(e)
	case token.NOT:
		start := p.cur.Pos
		p.advance()
		operand := p.parseExpression(precNot)
		e := &ast.UnaryExpr{Op: ast.OpNot, Operand: operand}
		e.SetSpan(ast.SpanOf(start, operand.Span().EndPos()))
		return e
	case token.INT:
		return p.parseIntLit()
	case token.FLOAT:
		return p.parseFloatLit()
	case token.STRING:
		return p.parseStringLit()
	case token.TRUE, token.FALSE:
		return p.parseBoolLit()
	case token.NONE:
		return p.parseNoneLit()
	case token.IDENT:
		name := p.cur
		p.advance()
		e := &ast.NameExpr{Name: name.Literal}
		e.SetSpan(leafSpan(name))
		return p.parsePostfix(e)
	case token.LPAREN:
		p.advance()
		inner := p.parseExpression(precLowest)
		p.expect(token.RPAREN)
		return p.parsePostfix(inner)
	case token.LBRACKET:
		return p.parseListLit()
	default:
		p.fail(p.cur.Pos, "unexpected token %s", p.cur.Kind)
		return &ast.ConstExpr{Kind: ast.ConstNone}
	}
}

func (p *Parser) parsePostfix(e ast.Expr) ast.Expr {
	for {
		switch p.cur.Kind {
		case token.DOT:
			p.advance()
			name := p.expect(token.IDENT)
			attr := &ast.AttributeExpr{Target: e, Name: name.Literal}
			attr.SetSpan(ast.Span{StartLine: e.Span().StartLine, StartCol: e.Span().StartCol, EndLine: name.Pos.Line, EndCol: name.Pos.Column + len(name.Literal) - 1})
			e = attr
		case token.LBRACKET:
			p.advance()
			idx := p.parseExpression(precLowest)
			end := p.expect(token.RBRACKET)
			sub := &ast.SubscriptExpr{Target: e, Index: idx}
			sub.SetSpan(ast.Span{StartLine: e.Span().StartLine, StartCol: e.Span().StartCol, EndLine: end.Pos.Line, EndCol: end.Pos.Column})
			e = sub
		case token.LPAREN:
			e = p.parseCall(e)
		default:
			return e
		}
	}
}

func (p *Parser) parseCall(fn ast.Expr) ast.Expr {
	p.advance() // consume '('
	var args []ast.Expr
	var kwargs []ast.KwArg
	for p.cur.Kind != token.RPAREN && p.err == nil {
		if p.cur.Kind == token.IDENT && p.peek.Kind == token.ASSIGN {
			name := p.cur.Literal
			p.advance()
			p.advance()
			val := p.parseExpression(precLowest)
			kwargs = append(kwargs, ast.KwArg{Name: name, Value: val})
		} else {
			args = append(args, p.parseExpression(precLowest))
		}
		if p.cur.Kind == token.COMMA {
			p.advance()
			continue
		}
		break
	}
	end := p.expect(token.RPAREN)
	call := &ast.CallExpr{Func: fn, Args: args, Kwargs: kwargs}
	call.SetSpan(ast.Span{StartLine: fn.Span().StartLine, StartCol: fn.Span().StartCol, EndLine: end.Pos.Line, EndCol: end.Pos.Column})
	return call
}

func (p *Parser) parseListLit() ast.Expr {
	start := p.cur.Pos
	p.advance() // '['
	var elems []ast.Expr
	for p.cur.Kind != token.RBRACKET && p.err == nil {
		elems = append(elems, p.parseExpression(precLowest))
		if p.cur.Kind == token.COMMA {
			p.advance()
			continue
		}
		break
	}
	end := p.expect(token.RBRACKET)
	e := &ast.ListExpr{Elements: elems}
	e.SetSpan(ast.SpanOf(start, end.Pos))
	return p.parsePostfix(e)
}

// leafSpan builds a leaf node's span from its single token, widening past
// t.Pos by the token's source width the same way parsePostfix's
// AttributeExpr case already does for attribute names. STRING is the one
// token kind whose Literal has been unescaped and so no longer reflects its
// raw source width; it carries the real width in EndPos instead.
func leafSpan(t token.Token) ast.Span {
	if t.Kind == token.STRING {
		return ast.Span{StartLine: t.Pos.Line, StartCol: t.Pos.Column, EndLine: t.EndPos.Line, EndCol: t.EndPos.Column}
	}
	return ast.Span{
		StartLine: t.Pos.Line, StartCol: t.Pos.Column,
		EndLine: t.Pos.Line, EndCol: t.Pos.Column + len(t.Literal) - 1,
	}
}

func (p *Parser) parseIntLit() ast.Expr {
	t := p.cur
	p.advance()
	var v int64
	_, err := fmt.Sscanf(t.Literal, "%d", &v)
	if err != nil {
		p.fail(t.Pos, "invalid integer literal %q", t.Literal)
	}
	e := &ast.ConstExpr{Kind: ast.ConstInt, Int: v}
	e.SetSpan(leafSpan(t))
	return p.parsePostfix(e)
}

func (p *Parser) parseFloatLit() ast.Expr {
	t := p.cur
	p.advance()
	var v float64
	_, err := fmt.Sscanf(t.Literal, "%g", &v)
	if err != nil {
		p.fail(t.Pos, "invalid float literal %q", t.Literal)
	}
	e := &ast.ConstExpr{Kind: ast.ConstFloat, Flt: v}
	e.SetSpan(leafSpan(t))
	return p.parsePostfix(e)
}

func (p *Parser) parseStringLit() ast.Expr {
	t := p.cur
	p.advance()
	e := &ast.ConstExpr{Kind: ast.ConstString, Str: t.Literal}
	e.SetSpan(leafSpan(t))
	return p.parsePostfix(e)
}

func (p *Parser) parseBoolLit() ast.Expr {
	t := p.cur
	p.advance()
	e := &ast.ConstExpr{Kind: ast.ConstBool, Bool: t.Kind == token.TRUE}
	e.SetSpan(leafSpan(t))
	return p.parsePostfix(e)
}

func (p *Parser) parseNoneLit() ast.Expr {
	t := p.cur
	p.advance()
	e := &ast.ConstExpr{Kind: ast.ConstNone}
	e.SetSpan(leafSpan(t))
	return p.parsePostfix(e)
}
