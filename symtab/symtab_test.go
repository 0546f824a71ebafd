package symtab

import (
	"strings"
	"testing"

	"roverc/types"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func TestGlobalScopeSeedsBuiltins(t *testing.T) {
	g := NewGlobalScope()

	sym, ok := g.LookupCurrent("digitalWrite")
	assert(t, ok, "expected digitalWrite to be seeded in the global scope")
	assert(t, sym.Kind == Function, "digitalWrite should be a Function symbol, got %s", sym.Kind)
	assert(t, sym.IsBuiltin, "digitalWrite should be marked builtin")
	assert(t, len(sym.ParamTypes) == 2, "digitalWrite takes 2 params, got %d", len(sym.ParamTypes))

	c, ok := g.LookupCurrent("HIGH")
	assert(t, ok, "expected HIGH constant to be seeded")
	assert(t, c.ConstValue == PinHigh, "HIGH should equal %d, got %d", PinHigh, c.ConstValue)
}

func TestInsertRejectsRedeclarationInSameScope(t *testing.T) {
	g := NewGlobalScope()
	sym := &Symbol{Name: "x", Type: types.Scalar(types.Int), Kind: Variable}
	assert(t, g.Insert(sym), "first insert of x should succeed")
	assert(t, !g.Insert(sym), "second insert of x in the same scope should fail")
}

func TestShadowingAcrossScopesIsAllowed(t *testing.T) {
	g := NewGlobalScope()
	assert(t, g.Insert(&Symbol{Name: "x", Type: types.Scalar(types.Int), Kind: Variable}), "insert global x")

	inner := g.Enter()
	assert(t, inner.Insert(&Symbol{Name: "x", Type: types.Scalar(types.Char), Kind: Variable}), "shadowing x in inner scope should succeed")

	sym, found := inner.LookupCurrent("x")
	assert(t, found, "x should be found in the inner scope directly")
	assert(t, sym.Type.Base == types.Char, "inner x should be char, got %s", sym.Type)

	sym, scope := inner.Lookup("x")
	assert(t, scope == inner, "lookup from inner scope should resolve to the inner binding")
	assert(t, sym.Type.Base == types.Char, "lookup should resolve the shadowing binding, got %s", sym.Type)
}

func TestLookupWalksOuterScopes(t *testing.T) {
	g := NewGlobalScope()
	assert(t, g.Insert(&Symbol{Name: "counter", Type: types.Scalar(types.Int), Kind: Variable}), "insert global counter")

	inner := g.Enter().Enter()
	sym, scope := inner.Lookup("counter")
	assert(t, sym != nil, "expected to find counter via outer scopes")
	assert(t, scope == g, "counter should resolve back to the global scope")
}

func TestExitReturnsParent(t *testing.T) {
	g := NewGlobalScope()
	inner := g.Enter()
	assert(t, inner.Exit() == g, "Exit should return the parent scope")
	assert(t, g.Exit() == nil, "Exit on the global scope should return nil")
}

func TestBuiltinLookupHelper(t *testing.T) {
	sym, ok := Builtin("stopMotors")
	assert(t, ok, "expected stopMotors to be a known builtin")
	assert(t, sym.Type.Base == types.Void, "stopMotors should return void, got %s", sym.Type)

	_, ok = Builtin("notARealBuiltin")
	assert(t, !ok, "notARealBuiltin should not resolve as a builtin")
}

func TestStringRendersScopeChain(t *testing.T) {
	g := NewGlobalScope()
	assert(t, g.Insert(&Symbol{Name: "led", Type: types.Scalar(types.Int), Kind: Variable}), "insert led")
	inner := g.Enter()
	assert(t, inner.Insert(&Symbol{Name: "i", Type: types.Scalar(types.Int), Kind: Variable}), "insert i")

	out := inner.String()
	assert(t, strings.Contains(out, "variable i:"), "expected inner scope dump to mention i, got %q", out)
	assert(t, strings.Contains(out, "variable led:"), "expected outer scope dump to mention led, got %q", out)
}
