package lexer

import "testing"

func TestNextToken(t *testing.T) {
	input := `let x = 5;
let s = "hi";
let c = 'a';
while x < 10 {
	x = x + 1;
}
x += 1; x -= 1; x *= 2; x /= 2; x %= 2;
x == y
x != y
x <= y
x >= y
true and false or not true
1_000.5_0
return x;
`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{LET, "let"},
		{IDENT, "x"},
		{ASSIGN, "="},
		{INT, "5"},
		{SEMICOLON, ";"},
		{LET, "let"},
		{IDENT, "s"},
		{ASSIGN, "="},
		{STRING, "hi"},
		{SEMICOLON, ";"},
		{LET, "let"},
		{IDENT, "c"},
		{ASSIGN, "="},
		{CHAR, "a"},
		{SEMICOLON, ";"},
		{WHILE, "while"},
		{IDENT, "x"},
		{LT, "<"},
		{INT, "10"},
		{LBRACE, "{"},
		{IDENT, "x"},
		{ASSIGN, "="},
		{IDENT, "x"},
		{PLUS, "+"},
		{INT, "1"},
		{SEMICOLON, ";"},
		{RBRACE, "}"},
		{IDENT, "x"},
		{PLUS_EQ, "+="},
		{INT, "1"},
		{SEMICOLON, ";"},
		{IDENT, "x"},
		{MINUS_EQ, "-="},
		{INT, "1"},
		{SEMICOLON, ";"},
		{IDENT, "x"},
		{STAR_EQ, "*="},
		{INT, "2"},
		{SEMICOLON, ";"},
		{IDENT, "x"},
		{SLASH_EQ, "/="},
		{INT, "2"},
		{SEMICOLON, ";"},
		{IDENT, "x"},
		{PERCENT_EQ, "%="},
		{INT, "2"},
		{SEMICOLON, ";"},
		{IDENT, "x"},
		{EQ, "=="},
		{IDENT, "y"},
		{IDENT, "x"},
		{NE, "!="},
		{IDENT, "y"},
		{IDENT, "x"},
		{LE, "<="},
		{IDENT, "y"},
		{IDENT, "x"},
		{GE, ">="},
		{IDENT, "y"},
		{TRUE, "true"},
		{AND, "and"},
		{FALSE, "false"},
		{OR, "or"},
		{NOT, "not"},
		{TRUE, "true"},
		{FLOAT, "1_000.5_0"},
		{RETURN, "return"},
		{IDENT, "x"},
		{SEMICOLON, ";"},
		{EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%s, got=%s (literal %q)",
				i, tt.expectedType, tok.Type, tok.Literal)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestSpansAreByteOffsets(t *testing.T) {
	input := "let abc = 1;"
	l := New(input)
	l.NextToken() // let
	tok := l.NextToken()
	if tok.Literal != "abc" {
		t.Fatalf("expected identifier abc, got %q", tok.Literal)
	}
	if tok.Start != 4 || tok.End != 7 {
		t.Fatalf("expected span [4,7), got [%d,%d)", tok.Start, tok.End)
	}
}
