package lang

import (
	"testing"

	"roverc/ast"
)

func parseSource(t *testing.T, src string) *ast.Program {
	t.Helper()
	p, err := NewParser(src)
	assert(t, err == nil, "unexpected parser construction error: %v", err)
	prog, err := p.ParseProgram()
	assert(t, err == nil, "unexpected parse error: %v", err)
	return prog
}

func TestParserParsesVarDeclWithInitializer(t *testing.T) {
	prog := parseSource(t, "start int a = 1 + 2; end")
	assert(t, len(prog.Items) == 1, "expected 1 top-level item, got %d", len(prog.Items))
	block, ok := prog.Items[0].(*ast.Block)
	assert(t, ok, "expected top-level item to be a block")
	assert(t, len(block.Stmts) == 1, "expected 1 statement, got %d", len(block.Stmts))

	decl, ok := block.Stmts[0].(*ast.VarDecl)
	assert(t, ok, "expected a var decl")
	assert(t, decl.Name == "a", "expected name 'a', got %q", decl.Name)

	bin, ok := decl.Init.(*ast.BinOp)
	assert(t, ok, "expected initializer to be a binary op")
	assert(t, bin.Op == ast.ADD, "expected ADD, got %s", bin.Op)
}

func TestParserParsesArrayDeclAndIndexedAssign(t *testing.T) {
	prog := parseSource(t, "start int arr[4]; arr[0] = 9; end")
	block := prog.Items[0].(*ast.Block)
	assert(t, len(block.Stmts) == 2, "expected 2 statements, got %d", len(block.Stmts))

	decl, ok := block.Stmts[0].(*ast.ArrayDecl)
	assert(t, ok, "expected an array decl")
	assert(t, decl.Size == 4, "expected size 4, got %d", decl.Size)

	assign, ok := block.Stmts[1].(*ast.Assign)
	assert(t, ok, "expected an assignment")
	target, ok := assign.Target.(*ast.IndexedId)
	assert(t, ok, "expected an indexed target")
	assert(t, target.Name == "arr", "expected target name 'arr', got %q", target.Name)
}

func TestParserParsesArrayLiteralAssignment(t *testing.T) {
	prog := parseSource(t, "start int arr[3]; arr = [1, 2, 3]; end")
	block := prog.Items[0].(*ast.Block)
	assign := block.Stmts[1].(*ast.Assign)
	lit, ok := assign.Value.(*ast.ArrayLiteral)
	assert(t, ok, "expected an array literal value")
	assert(t, len(lit.Elements) == 3, "expected 3 elements, got %d", len(lit.Elements))
}

func TestParserParsesIfElse(t *testing.T) {
	prog := parseSource(t, "start if (1 < 2) start int a = 1; end else start int a = 2; end end")
	block := prog.Items[0].(*ast.Block)
	ifNode, ok := block.Stmts[0].(*ast.If)
	assert(t, ok, "expected an if statement")
	assert(t, ifNode.Else != nil, "expected an else block")
}

func TestParserParsesWhileLoop(t *testing.T) {
	prog := parseSource(t, "start int i = 0; while (i < 5) start i = i + 1; end end")
	block := prog.Items[0].(*ast.Block)
	while, ok := block.Stmts[1].(*ast.While)
	assert(t, ok, "expected a while statement")
	cond, ok := while.Cond.(*ast.BinOp)
	assert(t, ok, "expected the condition to be a binary op")
	assert(t, cond.Op == ast.LT, "expected LT, got %s", cond.Op)
}

func TestParserParsesForLoop(t *testing.T) {
	prog := parseSource(t, "start for (int i = 0; i < 10; i = i + 1) start end end")
	block := prog.Items[0].(*ast.Block)
	forNode, ok := block.Stmts[0].(*ast.For)
	assert(t, ok, "expected a for statement")
	assert(t, forNode.Init != nil, "expected a for-loop initializer")
	assert(t, forNode.Update != nil, "expected a for-loop update")
}

func TestParserParsesFunctionDeclaration(t *testing.T) {
	prog := parseSource(t, "int add(int x, int y) start return x + y; end")
	assert(t, len(prog.Items) == 1, "expected 1 top-level item, got %d", len(prog.Items))
	fn, ok := prog.Items[0].(*ast.Function)
	assert(t, ok, "expected a function declaration")
	assert(t, fn.Name == "add", "expected name 'add', got %q", fn.Name)
	assert(t, len(fn.Params) == 2, "expected 2 params, got %d", len(fn.Params))

	ret, ok := fn.Body.Stmts[0].(*ast.Return)
	assert(t, ok, "expected a return statement")
	assert(t, ret.Value != nil, "expected a non-void return value")
}

func TestParserParsesExecCallStatementAndExpression(t *testing.T) {
	prog := parseSource(t, "start exec pinMode(13, 1); int x = exec digitalRead(13); end")
	block := prog.Items[0].(*ast.Block)

	exec, ok := block.Stmts[0].(*ast.Exec)
	assert(t, ok, "expected an exec statement")
	assert(t, exec.Name == "pinMode", "expected name 'pinMode', got %q", exec.Name)
	assert(t, len(exec.Args) == 2, "expected 2 args, got %d", len(exec.Args))

	decl := block.Stmts[1].(*ast.VarDecl)
	_, ok = decl.Init.(*ast.Exec)
	assert(t, ok, "expected exec used as an expression")
}

func TestParserExpressionPrecedence(t *testing.T) {
	// 1 + 2 * 3 should parse as 1 + (2 * 3), not (1 + 2) * 3.
	prog := parseSource(t, "start int a = 1 + 2 * 3; end")
	block := prog.Items[0].(*ast.Block)
	decl := block.Stmts[0].(*ast.VarDecl)
	top, ok := decl.Init.(*ast.BinOp)
	assert(t, ok, "expected a binary op at the top")
	assert(t, top.Op == ast.ADD, "expected top-level op to be ADD, got %s", top.Op)

	right, ok := top.Right.(*ast.BinOp)
	assert(t, ok, "expected the right operand to be a nested binary op")
	assert(t, right.Op == ast.MUL, "expected the nested op to be MUL, got %s", right.Op)
}

func TestParserParsesUnaryNotAndNegation(t *testing.T) {
	prog := parseSource(t, "start bool a = !true; int b = -5; end")
	block := prog.Items[0].(*ast.Block)

	declA := block.Stmts[0].(*ast.VarDecl)
	notOp, ok := declA.Init.(*ast.UnOp)
	assert(t, ok, "expected a unary op")
	assert(t, notOp.Op == ast.NOT, "expected NOT, got %s", notOp.Op)

	declB := block.Stmts[1].(*ast.VarDecl)
	negOp, ok := declB.Init.(*ast.UnOp)
	assert(t, ok, "expected a unary op")
	assert(t, negOp.Op == ast.NEG, "expected NEG, got %s", negOp.Op)
}
