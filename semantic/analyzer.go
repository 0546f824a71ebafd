// Package semantic implements the single-pass semantic analyzer: it
// walks a parsed Program, builds up the scope chain as it goes, and
// either accepts the program as well-typed and well-scoped or stops at
// the first violation. It never mutates the AST it is given.
package semantic

import (
	"errors"
	"fmt"

	"roverc/ast"
	"roverc/symtab"
	"roverc/types"
)

// Sentinel errors identify the category of the first violation found.
// Analyze wraps one of these with fmt.Errorf("%w: detail", ...) so
// callers can both match the category with errors.Is and print the
// detail.
var (
	ErrRedeclared    = errors.New("symbol redeclared in this scope")
	ErrUndeclared    = errors.New("undeclared identifier")
	ErrTypeMismatch  = errors.New("type mismatch")
	ErrVoidMisuse    = errors.New("void value used where a value is required")
	ErrInvalidReturn = errors.New("invalid return")
)

// Analyzer carries the state threaded through one analysis pass: the
// scope currently in scope, and the return type of the function body
// currently being walked (nil outside any function).
type Analyzer struct {
	global  *symtab.Scope
	scope   *symtab.Scope
	funcRet *types.Type
}

// Analyze runs the analyzer over prog and, on success, returns the
// global scope as analysis left it: the built-ins, every top-level
// function, and the variables declared by top-level blocks.
func Analyze(prog *ast.Program) (*symtab.Scope, error) {
	a := &Analyzer{global: symtab.NewGlobalScope()}
	a.scope = a.global

	if err := a.registerFunctions(prog); err != nil {
		return nil, err
	}
	for _, item := range prog.Items {
		if err := a.analyzeTopLevel(item); err != nil {
			return nil, err
		}
	}
	return a.global, nil
}

// registerFunctions is the pre-pass that inserts every top-level
// function's symbol into the global scope before any body is walked,
// so that two functions may call each other regardless of which is
// declared first.
func (a *Analyzer) registerFunctions(prog *ast.Program) error {
	for _, item := range prog.Items {
		fn, ok := item.(*ast.Function)
		if !ok {
			continue
		}
		if _, exists := a.global.LookupCurrent(fn.Name); exists {
			return fmt.Errorf("%w: function %q", ErrRedeclared, fn.Name)
		}
		paramTypes := make([]types.Type, len(fn.Params))
		for i, p := range fn.Params {
			paramTypes[i] = p.Type
		}
		a.global.Insert(&symtab.Symbol{
			Name:       fn.Name,
			Type:       fn.ReturnType,
			Kind:       symtab.Function,
			ParamTypes: paramTypes,
		})
	}
	return nil
}

// analyzeTopLevel walks one member of Program.Items: either a function
// definition or a block of "main" statements executed at the top
// level, in the global scope.
func (a *Analyzer) analyzeTopLevel(n ast.Node) error {
	switch v := n.(type) {
	case *ast.Function:
		return a.analyzeFunction(v)
	case *ast.Block:
		for _, stmt := range v.Stmts {
			if err := a.analyzeStatement(stmt); err != nil {
				return err
			}
		}
		return nil
	default:
		return a.analyzeStatement(n)
	}
}

func (a *Analyzer) analyzeFunction(fn *ast.Function) error {
	scope := a.scope.Enter()
	prevScope, prevRet := a.scope, a.funcRet
	a.scope = scope
	retType := fn.ReturnType
	a.funcRet = &retType

	for _, p := range fn.Params {
		if p.Type.Base == types.Void {
			a.scope, a.funcRet = prevScope, prevRet
			return fmt.Errorf("%w: parameter %q of function %q", ErrVoidMisuse, p.Name, fn.Name)
		}
		if _, exists := scope.LookupCurrent(p.Name); exists {
			a.scope, a.funcRet = prevScope, prevRet
			return fmt.Errorf("%w: parameter %q of function %q", ErrRedeclared, p.Name, fn.Name)
		}
		scope.Insert(&symtab.Symbol{Name: p.Name, Type: p.Type, Kind: symtab.Parameter})
	}

	for _, stmt := range fn.Body.Stmts {
		if err := a.analyzeStatement(stmt); err != nil {
			a.scope, a.funcRet = prevScope, prevRet
			return err
		}
	}

	a.scope, a.funcRet = prevScope, prevRet
	return nil
}

func (a *Analyzer) analyzeStatement(n ast.Node) error {
	switch v := n.(type) {
	case *ast.VarDecl:
		return a.analyzeVarDecl(v)
	case *ast.ArrayDecl:
		return a.analyzeArrayDecl(v)
	case *ast.Assign:
		return a.analyzeAssign(v)
	case *ast.Exec:
		_, err := a.analyzeExec(v)
		return err
	case *ast.Return:
		return a.analyzeReturn(v)
	case *ast.If:
		return a.analyzeIf(v)
	case *ast.While:
		return a.analyzeWhile(v)
	case *ast.For:
		return a.analyzeFor(v)
	case *ast.Block:
		for _, stmt := range v.Stmts {
			if err := a.analyzeStatement(stmt); err != nil {
				return err
			}
		}
		return nil
	default:
		_, err := a.inferExpr(n)
		return err
	}
}

func (a *Analyzer) analyzeVarDecl(d *ast.VarDecl) error {
	if d.Type.Base == types.Void {
		return fmt.Errorf("%w: variable %q", ErrVoidMisuse, d.Name)
	}
	if _, exists := a.scope.LookupCurrent(d.Name); exists {
		return fmt.Errorf("%w: variable %q", ErrRedeclared, d.Name)
	}
	if d.Init != nil {
		initExpr, err := unwrapScalarInit(d.Init)
		if err != nil {
			return err
		}
		initType, err := a.inferExpr(initExpr)
		if err != nil {
			return err
		}
		if !initType.BaseEquals(d.Type) {
			return fmt.Errorf("%w: variable %q declared %s, initializer is %s", ErrTypeMismatch, d.Name, d.Type, initType)
		}
	}
	a.scope.Insert(&symtab.Symbol{Name: d.Name, Type: d.Type, Kind: symtab.Variable})
	return nil
}

func (a *Analyzer) analyzeArrayDecl(d *ast.ArrayDecl) error {
	if d.Elem.Base == types.Void {
		return fmt.Errorf("%w: array %q", ErrVoidMisuse, d.Name)
	}
	if _, exists := a.scope.LookupCurrent(d.Name); exists {
		return fmt.Errorf("%w: array %q", ErrRedeclared, d.Name)
	}
	a.scope.Insert(&symtab.Symbol{Name: d.Name, Type: types.Array(d.Elem.Base, d.Size), Kind: symtab.Variable})
	return nil
}

func (a *Analyzer) analyzeAssign(asn *ast.Assign) error {
	switch target := asn.Target.(type) {
	case *ast.Id:
		sym, _ := a.scope.Lookup(target.Name)
		if sym == nil {
			return fmt.Errorf("%w: %q", ErrUndeclared, target.Name)
		}
		if sym.Type.IsArray {
			lit, ok := asn.Value.(*ast.ArrayLiteral)
			if !ok {
				return fmt.Errorf("%w: array %q assigned a non-array value", ErrTypeMismatch, target.Name)
			}
			return a.checkArrayLiteral(target.Name, sym.Type, lit)
		}
		valExpr, err := unwrapScalarInit(asn.Value)
		if err != nil {
			return err
		}
		valType, err := a.inferExpr(valExpr)
		if err != nil {
			return err
		}
		if !valType.BaseEquals(sym.Type) {
			return fmt.Errorf("%w: %q is %s, assigned %s", ErrTypeMismatch, target.Name, sym.Type, valType)
		}
		return nil
	case *ast.IndexedId:
		sym, _ := a.scope.Lookup(target.Name)
		if sym == nil {
			return fmt.Errorf("%w: %q", ErrUndeclared, target.Name)
		}
		if !sym.Type.IsArray {
			return fmt.Errorf("%w: %q is not an array", ErrTypeMismatch, target.Name)
		}
		idxType, err := a.inferExpr(target.Index)
		if err != nil {
			return err
		}
		if idxType.Base != types.Int {
			return fmt.Errorf("%w: array index must be int, got %s", ErrTypeMismatch, idxType)
		}
		valType, err := a.inferExpr(asn.Value)
		if err != nil {
			return err
		}
		if valType.Base != sym.Type.Base {
			return fmt.Errorf("%w: element of %q is %s, assigned %s", ErrTypeMismatch, target.Name, sym.Type.Base, valType)
		}
		return nil
	default:
		return fmt.Errorf("%w: assignment target is not an identifier", ErrTypeMismatch)
	}
}

func (a *Analyzer) checkArrayLiteral(name string, arrType types.Type, lit *ast.ArrayLiteral) error {
	if len(lit.Elements) > arrType.ArraySize {
		return fmt.Errorf("%w: array %q declared size %d, literal has %d elements", ErrTypeMismatch, name, arrType.ArraySize, len(lit.Elements))
	}
	for _, el := range lit.Elements {
		elType, err := a.inferExpr(el)
		if err != nil {
			return err
		}
		if elType.Base != arrType.Base {
			return fmt.Errorf("%w: element of array %q must be %s, got %s", ErrTypeMismatch, name, arrType.Base, elType)
		}
	}
	return nil
}

func (a *Analyzer) analyzeExec(e *ast.Exec) (types.Type, error) {
	sym, _ := a.scope.Lookup(e.Name)
	if sym == nil {
		return types.Type{}, fmt.Errorf("%w: function %q", ErrUndeclared, e.Name)
	}
	if sym.Kind != symtab.Function {
		return types.Type{}, fmt.Errorf("%w: %q is not a function", ErrTypeMismatch, e.Name)
	}
	for _, arg := range e.Args {
		if _, err := a.inferExpr(arg); err != nil {
			return types.Type{}, err
		}
	}
	return sym.Type, nil
}

func (a *Analyzer) analyzeReturn(r *ast.Return) error {
	if a.funcRet == nil {
		return fmt.Errorf("%w: return outside a function", ErrInvalidReturn)
	}
	if r.Value == nil {
		if a.funcRet.Base != types.Void {
			return fmt.Errorf("%w: function returning %s must return a value", ErrInvalidReturn, a.funcRet)
		}
		return nil
	}
	if a.funcRet.Base == types.Void {
		return fmt.Errorf("%w: void function returns a value", ErrVoidMisuse)
	}
	valType, err := a.inferExpr(r.Value)
	if err != nil {
		return err
	}
	if !valType.BaseEquals(*a.funcRet) {
		return fmt.Errorf("%w: function returns %s, return statement has %s", ErrTypeMismatch, a.funcRet, valType)
	}
	return nil
}

func (a *Analyzer) analyzeIf(n *ast.If) error {
	if err := a.requireBool(n.Cond); err != nil {
		return err
	}
	for _, stmt := range n.Then.Stmts {
		if err := a.analyzeStatement(stmt); err != nil {
			return err
		}
	}
	if n.Else != nil {
		for _, stmt := range n.Else.Stmts {
			if err := a.analyzeStatement(stmt); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *Analyzer) analyzeWhile(n *ast.While) error {
	if err := a.requireBool(n.Cond); err != nil {
		return err
	}
	for _, stmt := range n.Body.Stmts {
		if err := a.analyzeStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) analyzeFor(n *ast.For) error {
	if n.Init != nil {
		if err := a.analyzeStatement(n.Init); err != nil {
			return err
		}
	}
	if n.Cond != nil {
		if err := a.requireBool(n.Cond); err != nil {
			return err
		}
	}
	if n.Update != nil {
		if err := a.analyzeStatement(n.Update); err != nil {
			return err
		}
	}
	for _, stmt := range n.Body.Stmts {
		if err := a.analyzeStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) requireBool(cond ast.Node) error {
	t, err := a.inferExpr(cond)
	if err != nil {
		return err
	}
	if t.Base != types.Bool {
		return fmt.Errorf("%w: condition must be bool, got %s", ErrTypeMismatch, t)
	}
	return nil
}

// unwrapScalarInit accepts a one-element ArrayLiteral in place of a
// plain scalar expression, per the language's array-literal-as-scalar-
// initializer shorthand, and otherwise returns n unchanged.
func unwrapScalarInit(n ast.Node) (ast.Node, error) {
	lit, ok := n.(*ast.ArrayLiteral)
	if !ok {
		return n, nil
	}
	if len(lit.Elements) != 1 {
		return nil, fmt.Errorf("%w: array literal used as a scalar value must have exactly one element, has %d", ErrTypeMismatch, len(lit.Elements))
	}
	return lit.Elements[0], nil
}

// inferExpr computes the type of an expression node, rejecting void
// and bare-array operands along the way.
func (a *Analyzer) inferExpr(n ast.Node) (types.Type, error) {
	switch v := n.(type) {
	case *ast.IntLit:
		return types.Scalar(types.Int), nil
	case *ast.FloatLit:
		return types.Scalar(types.Double), nil
	case *ast.BoolLit:
		return types.Scalar(types.Bool), nil
	case *ast.CharLit:
		return types.Scalar(types.Char), nil
	case *ast.Id:
		sym, _ := a.scope.Lookup(v.Name)
		if sym == nil {
			return types.Type{}, fmt.Errorf("%w: %q", ErrUndeclared, v.Name)
		}
		if sym.Type.IsArray {
			return types.Type{}, fmt.Errorf("%w: array %q used without an index", ErrTypeMismatch, v.Name)
		}
		return sym.Type, nil
	case *ast.IndexedId:
		sym, _ := a.scope.Lookup(v.Name)
		if sym == nil {
			return types.Type{}, fmt.Errorf("%w: %q", ErrUndeclared, v.Name)
		}
		if !sym.Type.IsArray {
			return types.Type{}, fmt.Errorf("%w: %q is not an array", ErrTypeMismatch, v.Name)
		}
		idxType, err := a.inferExpr(v.Index)
		if err != nil {
			return types.Type{}, err
		}
		if idxType.Base != types.Int {
			return types.Type{}, fmt.Errorf("%w: array index must be int, got %s", ErrTypeMismatch, idxType)
		}
		return types.Scalar(sym.Type.Base), nil
	case *ast.UnOp:
		return a.inferUnOp(v)
	case *ast.BinOp:
		return a.inferBinOp(v)
	case *ast.Exec:
		return a.analyzeExec(v)
	case *ast.ArrayLiteral:
		unwrapped, err := unwrapScalarInit(v)
		if err != nil {
			return types.Type{}, err
		}
		return a.inferExpr(unwrapped)
	default:
		return types.Type{}, fmt.Errorf("%w: unsupported expression node", ErrTypeMismatch)
	}
}

func (a *Analyzer) inferUnOp(v *ast.UnOp) (types.Type, error) {
	t, err := a.inferExpr(v.Operand)
	if err != nil {
		return types.Type{}, err
	}
	if t.Base == types.Void {
		return types.Type{}, fmt.Errorf("%w: operand of %s", ErrVoidMisuse, v.Op)
	}
	switch v.Op {
	case ast.NOT:
		if t.Base != types.Bool {
			return types.Type{}, fmt.Errorf("%w: NOT requires bool, got %s", ErrTypeMismatch, t)
		}
		return types.Scalar(types.Bool), nil
	case ast.NEG:
		if !t.Base.Numeric() {
			return types.Type{}, fmt.Errorf("%w: NEG requires a numeric operand, got %s", ErrTypeMismatch, t)
		}
		return t, nil
	default:
		return types.Type{}, fmt.Errorf("%w: unsupported unary operator", ErrTypeMismatch)
	}
}

func (a *Analyzer) inferBinOp(v *ast.BinOp) (types.Type, error) {
	left, err := a.inferExpr(v.Left)
	if err != nil {
		return types.Type{}, err
	}
	right, err := a.inferExpr(v.Right)
	if err != nil {
		return types.Type{}, err
	}
	if left.Base == types.Void || right.Base == types.Void {
		return types.Type{}, fmt.Errorf("%w: operand of %s", ErrVoidMisuse, v.Op)
	}
	if left.IsArray || right.IsArray {
		return types.Type{}, fmt.Errorf("%w: array used without an index in %s", ErrTypeMismatch, v.Op)
	}

	switch v.Op {
	case ast.AND, ast.OR:
		if left.Base != types.Bool || right.Base != types.Bool {
			return types.Type{}, fmt.Errorf("%w: %s requires bool operands, got %s and %s", ErrTypeMismatch, v.Op, left, right)
		}
		return types.Scalar(types.Bool), nil
	case ast.EQ, ast.NE:
		if !left.BaseEquals(right) {
			return types.Type{}, fmt.Errorf("%w: %s requires matching operand types, got %s and %s", ErrTypeMismatch, v.Op, left, right)
		}
		return types.Scalar(types.Bool), nil
	case ast.LT, ast.LE, ast.GT, ast.GE:
		if !left.Base.Numeric() || !right.Base.Numeric() {
			return types.Type{}, fmt.Errorf("%w: %s requires numeric operands, got %s and %s", ErrTypeMismatch, v.Op, left, right)
		}
		if !left.BaseEquals(right) {
			return types.Type{}, fmt.Errorf("%w: %s requires matching operand types, got %s and %s", ErrTypeMismatch, v.Op, left, right)
		}
		return types.Scalar(types.Bool), nil
	case ast.ADD, ast.SUB, ast.MUL, ast.DIV, ast.MOD:
		if !left.Base.Numeric() || !right.Base.Numeric() {
			return types.Type{}, fmt.Errorf("%w: %s requires numeric operands, got %s and %s", ErrTypeMismatch, v.Op, left, right)
		}
		if !left.BaseEquals(right) {
			return types.Type{}, fmt.Errorf("%w: %s requires matching operand types, got %s and %s", ErrTypeMismatch, v.Op, left, right)
		}
		return types.Scalar(left.Base), nil
	default:
		return types.Type{}, fmt.Errorf("%w: unsupported binary operator", ErrTypeMismatch)
	}
}
