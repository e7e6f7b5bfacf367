// Package parser implements the front-end collaborator described in the
// compiler's external-interface contract: it turns source text into an
// ast.FunctionBody, or a human-readable parse-error string.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"tinylang/ast"
	"tinylang/lexer"
)

// Precedence levels, lowest to highest: or, and, ==/!=, relational,
// +/-, */÷/%, prefix not/-, atoms.
const (
	_ int = iota
	LOWEST
	OR
	AND
	EQUALS
	LESSGREATER
	SUM
	PRODUCT
	PREFIX
)

var precedences = map[lexer.TokenType]int{
	lexer.OR:       OR,
	lexer.AND:      AND,
	lexer.EQ:       EQUALS,
	lexer.NE:       EQUALS,
	lexer.LT:       LESSGREATER,
	lexer.GT:       LESSGREATER,
	lexer.LE:       LESSGREATER,
	lexer.GE:       LESSGREATER,
	lexer.PLUS:     SUM,
	lexer.MINUS:    SUM,
	lexer.ASTERISK: PRODUCT,
	lexer.SLASH:    PRODUCT,
	lexer.PERCENT:  PRODUCT,
}

var binaryOperators = map[lexer.TokenType]ast.BinaryOperator{
	lexer.OR:       ast.OpOr,
	lexer.AND:      ast.OpAnd,
	lexer.EQ:       ast.OpEqual,
	lexer.NE:       ast.OpNotEqual,
	lexer.LT:       ast.OpLessThan,
	lexer.LE:       ast.OpLessEq,
	lexer.GT:       ast.OpGreaterThan,
	lexer.GE:       ast.OpGreaterEq,
	lexer.PLUS:     ast.OpAdd,
	lexer.MINUS:    ast.OpSub,
	lexer.ASTERISK: ast.OpMul,
	lexer.SLASH:    ast.OpDiv,
	lexer.PERCENT:  ast.OpMod,
}

var assignOperators = map[lexer.TokenType]ast.AssignOperator{
	lexer.ASSIGN:     ast.AssignBasic,
	lexer.PLUS_EQ:    ast.AssignAdd,
	lexer.MINUS_EQ:   ast.AssignSub,
	lexer.STAR_EQ:    ast.AssignMul,
	lexer.SLASH_EQ:   ast.AssignDiv,
	lexer.PERCENT_EQ: ast.AssignMod,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// Parser is a Pratt (precedence-climbing) recursive-descent parser.
type Parser struct {
	l      *lexer.Lexer
	errors []string

	curToken  lexer.Token
	peekToken lexer.Token

	prefixParseFns map[lexer.TokenType]prefixParseFn
	infixParseFns  map[lexer.TokenType]infixParseFn
}

// New creates a new parser over l.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l, errors: []string{}}

	p.prefixParseFns = make(map[lexer.TokenType]prefixParseFn)
	p.registerPrefix(lexer.IDENT, p.parseIdentifier)
	p.registerPrefix(lexer.INT, p.parseNumberLiteral)
	p.registerPrefix(lexer.FLOAT, p.parseNumberLiteral)
	p.registerPrefix(lexer.STRING, p.parseStringLiteral)
	p.registerPrefix(lexer.CHAR, p.parseCharLiteral)
	p.registerPrefix(lexer.TRUE, p.parseBooleanLiteral)
	p.registerPrefix(lexer.FALSE, p.parseBooleanLiteral)
	p.registerPrefix(lexer.MINUS, p.parseUnaryExpression)
	p.registerPrefix(lexer.NOT, p.parseUnaryExpression)
	p.registerPrefix(lexer.LPAREN, p.parseGroupedExpression)

	p.infixParseFns = make(map[lexer.TokenType]infixParseFn)
	for tok := range binaryOperators {
		p.registerInfix(tok, p.parseBinaryExpression)
	}

	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) registerPrefix(t lexer.TokenType, fn prefixParseFn) { p.prefixParseFns[t] = fn }
func (p *Parser) registerInfix(t lexer.TokenType, fn infixParseFn)   { p.infixParseFns[t] = fn }

// Errors returns accumulated parse errors.
func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) peekError(t lexer.TokenType) {
	msg := fmt.Sprintf("expected next token to be %s, got %s instead at line %d, column %d",
		t, p.peekToken.Type, p.peekToken.Line, p.peekToken.Column)
	p.errors = append(p.errors, msg)
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t lexer.TokenType) bool { return p.peekToken.Type == t }

func (p *Parser) expectPeek(t lexer.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken.Type]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if pr, ok := precedences[p.curToken.Type]; ok {
		return pr
	}
	return LOWEST
}

// ParseFunctionBody parses the whole input into an ast.FunctionBody, or
// returns a human-readable error string per the parser contract.
func ParseFunctionBody(input string) (*ast.FunctionBody, string) {
	p := New(lexer.New(input))
	body := p.parseFunctionBody()
	if len(p.errors) > 0 {
		return nil, strings.Join(p.errors, "\n")
	}
	return body, ""
}

func (p *Parser) parseFunctionBody() *ast.FunctionBody {
	body := &ast.FunctionBody{}
	var block *ast.BasicBlock

	flushBlock := func() {
		if block != nil {
			body.Items = append(body.Items, block)
			block = nil
		}
	}

	for !p.curTokenIs(lexer.EOF) {
		if p.curTokenIs(lexer.WHILE) {
			flushBlock()
			body.Items = append(body.Items, p.parseWhileLoop())
			continue
		}
		if block == nil {
			block = &ast.BasicBlock{}
		}
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.nextToken()
	}
	flushBlock()

	rewriteTrailingExpressionAsReturn(body)
	return body
}

// rewriteTrailingExpressionAsReturn implements the REPL-like convenience
// of treating a program whose last statement is a bare expression as an
// implicit return of that expression's value.
func rewriteTrailingExpressionAsReturn(body *ast.FunctionBody) {
	if len(body.Items) == 0 {
		return
	}
	last, ok := body.Items[len(body.Items)-1].(*ast.BasicBlock)
	if !ok || len(last.Statements) == 0 {
		return
	}
	i := len(last.Statements) - 1
	exprStmt, ok := last.Statements[i].(*ast.ExpressionStatement)
	if !ok {
		return
	}
	last.Statements[i] = &ast.ReturnStatement{Sp: exprStmt.Span(), Expr: exprStmt.Expr}
}

func (p *Parser) parseWhileLoop() *ast.WhileLoop {
	start := p.curToken.Start
	p.nextToken() // consume 'while'
	condition := p.parseExpression(LOWEST)
	p.nextToken()
	if !p.curTokenIs(lexer.LBRACE) {
		p.errors = append(p.errors, fmt.Sprintf("expected '{' after while condition, got %s", p.curToken.Type))
		return &ast.WhileLoop{Sp: ast.NewSpan(start, p.curToken.End), Condition: condition, Body: &ast.BasicBlock{}}
	}
	p.nextToken() // consume '{'

	block := &ast.BasicBlock{}
	for !p.curTokenIs(lexer.RBRACE) && !p.curTokenIs(lexer.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.nextToken()
	}
	end := p.curToken.End
	p.nextToken() // consume '}'
	return &ast.WhileLoop{Sp: ast.NewSpan(start, end), Condition: condition, Body: block}
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case lexer.LET:
		return p.parseLetStatement()
	case lexer.RETURN:
		return p.parseReturnStatement()
	case lexer.IDENT:
		if _, ok := assignOperators[p.peekToken.Type]; ok {
			return p.parseAssignStatement()
		}
		return p.parseExpressionStatement()
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseLetStatement() ast.Statement {
	start := p.curToken.Start
	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	name := p.curToken.Literal
	nameSpan := ast.NewSpan(p.curToken.Start, p.curToken.End)

	if !p.expectPeek(lexer.ASSIGN) {
		return nil
	}
	opSpan := ast.NewSpan(p.curToken.Start, p.curToken.End)

	p.nextToken()
	expr := p.parseExpression(LOWEST)
	end := expr.Span().End
	if p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
		end = p.curToken.End
	}
	return &ast.LetStatement{Sp: ast.NewSpan(start, end), Name: name, NameSpan: nameSpan, OperatorSpan: opSpan, Expr: expr}
}

func (p *Parser) parseAssignStatement() ast.Statement {
	start := p.curToken.Start
	name := p.curToken.Literal
	nameSpan := ast.NewSpan(p.curToken.Start, p.curToken.End)

	p.nextToken() // move to operator
	op := assignOperators[p.curToken.Type]
	opSpan := ast.NewSpan(p.curToken.Start, p.curToken.End)

	p.nextToken()
	expr := p.parseExpression(LOWEST)
	end := expr.Span().End
	if p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
		end = p.curToken.End
	}
	return &ast.AssignStatement{Sp: ast.NewSpan(start, end), Name: name, NameSpan: nameSpan, Operator: op, OperatorSpan: opSpan, Expr: expr}
}

func (p *Parser) parseReturnStatement() ast.Statement {
	start := p.curToken.Start
	p.nextToken()
	expr := p.parseExpression(LOWEST)
	end := expr.Span().End
	if p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
		end = p.curToken.End
	}
	return &ast.ReturnStatement{Sp: ast.NewSpan(start, end), Expr: expr}
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	expr := p.parseExpression(LOWEST)
	if expr == nil {
		return nil
	}
	if p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
	}
	return &ast.ExpressionStatement{Expr: expr}
}

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.errors = append(p.errors, fmt.Sprintf("no prefix parse function for %s found at line %d, column %d",
			p.curToken.Type, p.curToken.Line, p.curToken.Column))
		return nil
	}
	left := prefix()

	for !p.peekTokenIs(lexer.SEMICOLON) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return left
		}
		p.nextToken()
		left = infix(left)
	}
	return left
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Sp: ast.NewSpan(p.curToken.Start, p.curToken.End), Name: p.curToken.Literal}
}

func (p *Parser) parseNumberLiteral() ast.Expression {
	sp := ast.NewSpan(p.curToken.Start, p.curToken.End)
	text := lexer.StripUnderscores(p.curToken.Literal)

	if i, err := strconv.ParseInt(text, 10, 64); err == nil && p.curToken.Type == lexer.INT {
		return &ast.Literal{Sp: sp, Kind: ast.LiteralInt, IntVal: i}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		p.errors = append(p.errors, fmt.Sprintf("could not parse %q as a number", p.curToken.Literal))
		return nil
	}
	return &ast.Literal{Sp: sp, Kind: ast.LiteralFloat, FloatVal: f}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.Literal{Sp: ast.NewSpan(p.curToken.Start, p.curToken.End), Kind: ast.LiteralStr, StrVal: p.curToken.Literal}
}

func (p *Parser) parseCharLiteral() ast.Expression {
	runes := []rune(p.curToken.Literal)
	var r rune
	if len(runes) > 0 {
		r = runes[0]
	}
	return &ast.Literal{Sp: ast.NewSpan(p.curToken.Start, p.curToken.End), Kind: ast.LiteralChar, CharVal: r}
}

func (p *Parser) parseBooleanLiteral() ast.Expression {
	return &ast.Literal{Sp: ast.NewSpan(p.curToken.Start, p.curToken.End), Kind: ast.LiteralBool, BoolVal: p.curTokenIs(lexer.TRUE)}
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	expr := p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	return expr
}

// parseUnaryExpression implements prefix `not`/`-` at a single shared
// precedence tier, recursing at the same level so chained unary
// operators stack right-to-left (e.g. `not not not false`).
func (p *Parser) parseUnaryExpression() ast.Expression {
	opTok := p.curToken
	opSpan := ast.NewSpan(opTok.Start, opTok.End)
	var op ast.UnaryOperator
	if opTok.Type == lexer.NOT {
		op = ast.OpNot
	} else {
		op = ast.OpNeg
	}

	p.nextToken()
	operand := p.parseExpression(PREFIX)
	if operand == nil {
		return nil
	}
	return &ast.UnaryOperation{
		Sp:           ast.NewSpan(opTok.Start, operand.Span().End),
		OperatorSpan: opSpan,
		Operator:     op,
		Operand:      operand,
	}
}

func (p *Parser) parseBinaryExpression(left ast.Expression) ast.Expression {
	opTok := p.curToken
	opSpan := ast.NewSpan(opTok.Start, opTok.End)
	op := binaryOperators[opTok.Type]
	precedence := p.curPrecedence()

	p.nextToken()
	right := p.parseExpression(precedence)
	if right == nil {
		return nil
	}
	return &ast.BinaryOperation{
		Sp:           ast.NewSpan(left.Span().Start, right.Span().End),
		OperatorSpan: opSpan,
		Left:         left,
		Operator:     op,
		Right:        right,
	}
}
