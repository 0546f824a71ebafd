package vm

import (
	"testing"

	"roverc/ast"
	"roverc/bytecode"
	"roverc/compiler"
	"roverc/semantic"
	"roverc/types"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func id(name string) *ast.Id     { return &ast.Id{Name: name} }
func intLit(v int64) *ast.IntLit { return &ast.IntLit{Value: v} }

func compileProgram(t *testing.T, prog *ast.Program) []byte {
	t.Helper()
	if _, err := semantic.Analyze(prog); err != nil {
		t.Fatalf("semantic analysis failed: %v", err)
	}
	code, err := compiler.Compile(prog)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	return code
}

func TestAdditionLeavesOperandRegistersIntact(t *testing.T) {
	// int a = 10; int b = 20; int c = a + b;
	prog := &ast.Program{Items: []ast.Node{
		&ast.Block{Stmts: []ast.Node{
			&ast.VarDecl{Name: "a", Type: types.Scalar(types.Int), Init: intLit(10)},
			&ast.VarDecl{Name: "b", Type: types.Scalar(types.Int), Init: intLit(20)},
			&ast.VarDecl{Name: "c", Type: types.Scalar(types.Int), Init: &ast.BinOp{Op: ast.ADD, Left: id("a"), Right: id("b")}},
		}},
	}}
	code := compileProgram(t, prog)

	machine := New(code)
	machine.Run()

	assert(t, machine.Err() == nil, "unexpected runtime error: %v", machine.Err())
	regs := machine.Registers()
	assert(t, regs[1] == 10, "expected R1 (a) to remain 10, got %d", regs[1])
	assert(t, regs[2] == 20, "expected R2 (b) to remain 20, got %d", regs[2])
	assert(t, regs[3] == 30, "expected R3 (c) to be 30, got %d", regs[3])
	assert(t, regs[0] == 30, "expected the accumulator to hold the last arithmetic result, got %d", regs[0])
}

func TestSubtractionOfEqualOperandsSetsZeroFlag(t *testing.T) {
	// int x = 5; int y = 5; int z = x - y;
	prog := &ast.Program{Items: []ast.Node{
		&ast.Block{Stmts: []ast.Node{
			&ast.VarDecl{Name: "x", Type: types.Scalar(types.Int), Init: intLit(5)},
			&ast.VarDecl{Name: "y", Type: types.Scalar(types.Int), Init: intLit(5)},
			&ast.VarDecl{Name: "z", Type: types.Scalar(types.Int), Init: &ast.BinOp{Op: ast.SUB, Left: id("x"), Right: id("y")}},
		}},
	}}
	code := compileProgram(t, prog)

	machine := New(code)
	machine.Run()

	assert(t, machine.Err() == nil, "unexpected runtime error: %v", machine.Err())
	regs := machine.Registers()
	assert(t, regs[3] == 0, "expected z to be 0, got %d", regs[3])
	assert(t, machine.Flags().Zero, "expected the zero flag set after subtracting equal operands")
}

func TestWhileLoopCountsToFive(t *testing.T) {
	// int i = 0; while (i < 5) { i = i + 1; }
	prog := &ast.Program{Items: []ast.Node{
		&ast.Block{Stmts: []ast.Node{
			&ast.VarDecl{Name: "i", Type: types.Scalar(types.Int), Init: intLit(0)},
			&ast.While{
				Cond: &ast.BinOp{Op: ast.LT, Left: id("i"), Right: intLit(5)},
				Body: &ast.Block{Stmts: []ast.Node{
					&ast.Assign{Target: id("i"), Value: &ast.BinOp{Op: ast.ADD, Left: id("i"), Right: intLit(1)}},
				}},
			},
		}},
	}}
	code := compileProgram(t, prog)

	machine := New(code)
	machine.Run()

	assert(t, machine.Err() == nil, "unexpected runtime error: %v", machine.Err())
	assert(t, machine.Registers()[1] == 5, "expected i (R1) to reach 5, got %d", machine.Registers()[1])
}

func TestArrayWriteThenRead(t *testing.T) {
	// int arr[4]; arr[2] = 42; int x = arr[2];
	prog := &ast.Program{Items: []ast.Node{
		&ast.Block{Stmts: []ast.Node{
			&ast.ArrayDecl{Name: "arr", Elem: types.Scalar(types.Int), Size: 4},
			&ast.Assign{Target: &ast.IndexedId{Name: "arr", Index: intLit(2)}, Value: intLit(42)},
			&ast.VarDecl{Name: "x", Type: types.Scalar(types.Int), Init: &ast.IndexedId{Name: "arr", Index: intLit(2)}},
		}},
	}}
	code := compileProgram(t, prog)

	machine := New(code)
	machine.Run()

	assert(t, machine.Err() == nil, "unexpected runtime error: %v", machine.Err())
	assert(t, machine.Registers()[1] == 42, "expected x to read back 42, got %d", machine.Registers()[1])
	assert(t, machine.Heap()[2] == 42, "expected heap[2] to hold 42, got %d", machine.Heap()[2])
}

func TestFunctionCallReturnsValue(t *testing.T) {
	// int add(int x, int y) { return x + y; }
	// int result = exec add(7, 8);
	add := &ast.Function{
		Name: "add",
		Params: []*ast.Param{
			{Name: "x", Type: types.Scalar(types.Int)},
			{Name: "y", Type: types.Scalar(types.Int)},
		},
		ReturnType: types.Scalar(types.Int),
		Body: &ast.Block{Stmts: []ast.Node{
			&ast.Return{Value: &ast.BinOp{Op: ast.ADD, Left: id("x"), Right: id("y")}},
		}},
	}
	caller := &ast.Block{Stmts: []ast.Node{
		&ast.VarDecl{Name: "result", Type: types.Scalar(types.Int), Init: &ast.Exec{Name: "add", Args: []ast.Node{intLit(7), intLit(8)}}},
	}}
	prog := &ast.Program{Items: []ast.Node{add, caller}}
	code := compileProgram(t, prog)

	machine := New(code)
	machine.Run()

	assert(t, machine.Err() == nil, "unexpected runtime error: %v", machine.Err())
	assert(t, machine.Registers()[1] == 15, "expected result to be 15, got %d", machine.Registers()[1])
}

func TestBuiltinExecDispatchesToPeripherals(t *testing.T) {
	// exec pinMode(13, 1); exec digitalWrite(13, 1);
	prog := &ast.Program{Items: []ast.Node{
		&ast.Block{Stmts: []ast.Node{
			&ast.Exec{Name: "pinMode", Args: []ast.Node{intLit(13), intLit(1)}},
			&ast.Exec{Name: "digitalWrite", Args: []ast.Node{intLit(13), intLit(1)}},
		}},
	}}
	code := compileProgram(t, prog)

	recorder := &RecordingPeripherals{}
	machine := New(code, WithPeripherals(recorder))
	machine.Run()

	assert(t, machine.Err() == nil, "unexpected runtime error: %v", machine.Err())
	assert(t, len(recorder.Calls) == 2, "expected 2 recorded calls, got %d: %v", len(recorder.Calls), recorder.Calls)
	assert(t, recorder.Calls[0] == "pinMode(13, 1)", "unexpected first call: %s", recorder.Calls[0])
	assert(t, recorder.Calls[1] == "digitalWrite(13, 1)", "unexpected second call: %s", recorder.Calls[1])
}

func TestDivisionByZeroHalts(t *testing.T) {
	// int a = 10; int b = 0; int c = a / b;
	prog := &ast.Program{Items: []ast.Node{
		&ast.Block{Stmts: []ast.Node{
			&ast.VarDecl{Name: "a", Type: types.Scalar(types.Int), Init: intLit(10)},
			&ast.VarDecl{Name: "b", Type: types.Scalar(types.Int), Init: intLit(0)},
			&ast.VarDecl{Name: "c", Type: types.Scalar(types.Int), Init: &ast.BinOp{Op: ast.DIV, Left: id("a"), Right: id("b")}},
		}},
	}}
	code := compileProgram(t, prog)

	machine := New(code)
	machine.Run()

	assert(t, machine.Halted(), "expected the machine to halt")
	assert(t, machine.Err() != nil, "expected a division-by-zero runtime error")
}

func TestStackOverflowIsReported(t *testing.T) {
	var code []byte
	code, _ = bytecode.Emit3(code, bytecode.PUSH, 1, 0)
	code, _ = bytecode.Emit3(code, bytecode.HALT, 0, 0)

	// A zero-byte stack means the very first PUSH overflows it.
	machine := New(code, WithStackSize(0))
	machine.Run()

	assert(t, machine.Err() != nil, "expected a stack overflow error")
}
