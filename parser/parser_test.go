package parser

import (
	"testing"

	"tinylang/ast"
)

func parseOk(t *testing.T, input string) *ast.FunctionBody {
	t.Helper()
	body, errs := ParseFunctionBody(input)
	if errs != "" {
		t.Fatalf("ParseFunctionBody(%q) returned errors: %s", input, errs)
	}
	return body
}

func soleStatement(t *testing.T, body *ast.FunctionBody) ast.Statement {
	t.Helper()
	if len(body.Items) != 1 {
		t.Fatalf("expected 1 control-flow item, got %d", len(body.Items))
	}
	block, ok := body.Items[0].(*ast.BasicBlock)
	if !ok {
		t.Fatalf("expected *ast.BasicBlock, got %T", body.Items[0])
	}
	if len(block.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(block.Statements))
	}
	return block.Statements[0]
}

func TestParseLetStatement(t *testing.T) {
	body := parseOk(t, "let x = 5;")
	stmt, ok := soleStatement(t, body).(*ast.LetStatement)
	if !ok {
		t.Fatalf("expected *ast.LetStatement, got %T", soleStatement(t, body))
	}
	if stmt.Name != "x" {
		t.Errorf("Name = %q, want x", stmt.Name)
	}
	lit, ok := stmt.Expr.(*ast.Literal)
	if !ok || lit.Kind != ast.LiteralInt || lit.IntVal != 5 {
		t.Errorf("Expr = %#v, want Literal Int 5", stmt.Expr)
	}
}

func TestTrailingBareExpressionBecomesReturn(t *testing.T) {
	body := parseOk(t, "5 == 5")
	stmt := soleStatement(t, body)
	ret, ok := stmt.(*ast.ReturnStatement)
	if !ok {
		t.Fatalf("expected trailing bare expression to become *ast.ReturnStatement, got %T", stmt)
	}
	bin, ok := ret.Expr.(*ast.BinaryOperation)
	if !ok || bin.Operator != ast.OpEqual {
		t.Fatalf("Expr = %#v, want BinaryOperation ==", ret.Expr)
	}
}

func TestNonTrailingExpressionStatementStaysDiscarded(t *testing.T) {
	body := parseOk(t, "5 == 5;\nlet x = 1;")
	block := body.Items[0].(*ast.BasicBlock)
	if len(block.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(block.Statements))
	}
	if _, ok := block.Statements[0].(*ast.ExpressionStatement); !ok {
		t.Errorf("first statement = %T, want *ast.ExpressionStatement (not rewritten)", block.Statements[0])
	}
}

func TestPrecedenceAndAssociativity(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"1 < 2 == 3 < 4", "((1 < 2) == (3 < 4))"},
		{"false or true and true", "(false or (true and true))"},
		{"-3 * 4", "((-3) * 4)"},
		{"not not not false", "(not (not (not false)))"},
	}
	for _, tt := range tests {
		body := parseOk(t, tt.input)
		stmt := soleStatement(t, body)
		ret, ok := stmt.(*ast.ReturnStatement)
		if !ok {
			t.Fatalf("%q: expected implicit return, got %T", tt.input, stmt)
		}
		if got := ret.Expr.String(); got != tt.want {
			t.Errorf("%q: got %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseWhileLoop(t *testing.T) {
	body := parseOk(t, "let x = 0;\nwhile x < 3 {\n  x += 1;\n}\n")
	if len(body.Items) != 2 {
		t.Fatalf("expected 2 control-flow items (block, while), got %d", len(body.Items))
	}
	loop, ok := body.Items[1].(*ast.WhileLoop)
	if !ok {
		t.Fatalf("expected *ast.WhileLoop, got %T", body.Items[1])
	}
	if len(loop.Body.Statements) != 1 {
		t.Fatalf("expected 1 statement in loop body, got %d", len(loop.Body.Statements))
	}
}

func TestParseCompoundAssignOperators(t *testing.T) {
	body := parseOk(t, "let x = 1;\nx += 2;\nx -= 1;\nx *= 3;\nx /= 2;\nx %= 2;\n")
	block := body.Items[0].(*ast.BasicBlock)
	wantOps := []ast.AssignOperator{ast.AssignAdd, ast.AssignSub, ast.AssignMul, ast.AssignDiv, ast.AssignMod}
	if len(block.Statements) != 1+len(wantOps) {
		t.Fatalf("expected %d statements, got %d", 1+len(wantOps), len(block.Statements))
	}
	for i, want := range wantOps {
		stmt, ok := block.Statements[i+1].(*ast.AssignStatement)
		if !ok {
			t.Fatalf("statement %d: expected *ast.AssignStatement, got %T", i+1, block.Statements[i+1])
		}
		if stmt.Operator != want {
			t.Errorf("statement %d: operator = %v, want %v", i+1, stmt.Operator, want)
		}
	}
}

func TestParseErrorOnMissingBrace(t *testing.T) {
	_, errs := ParseFunctionBody("while true\n  x = 1;\n}\n")
	if errs == "" {
		t.Fatalf("expected a parse error for missing '{', got none")
	}
}
