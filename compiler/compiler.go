// Package compiler translates a semantically valid Program into the
// register machine's bytecode stream, following this register/heap
// allocation discipline: named bindings (declared variables, function
// parameters) take registers from the low end (R1 upward); expression
// temporaries take registers from the high end (R7 downward); array
// storage is a flat per-function byte heap capped at 256 bytes, with no
// single array exceeding 255 elements.
//
// AND and OR are evaluated eagerly: both operands are always computed,
// with no short-circuit. Array elements are single heap bytes, so a
// STORE keeps only the low byte of the stored value; values outside
// 0..255 are silently truncated.
package compiler

import (
	"errors"
	"fmt"
	"math"

	"roverc/ast"
	"roverc/bytecode"
	"roverc/symtab"
)

// Sentinel errors identify the category of the first resource
// exhaustion or unsupported construct encountered. Compile wraps one
// of these with fmt.Errorf("%w: detail", ...).
var (
	ErrRegisterExhausted    = errors.New("register allocation exhausted")
	ErrHeapExhausted        = errors.New("heap allocation exhausted")
	ErrUnsupportedConstruct = errors.New("unsupported construct")
	ErrOutOfBounds          = errors.New("value out of bounds")
)

// maxUserRegisters is R1..R7; R0 is the reserved accumulator.
const maxUserRegisters = 7

// maxHeapBytes is the largest size a single array may declare.
const maxHeapBytes = 255

// maxCumulativeHeapBytes is the translator's hard cap on the total
// array storage of one function, or of the top-level code, matching the
// register machine's byte-addressable heap (addresses 0..255, 256 bytes
// total). Each of these environments lays its arrays out from address 0.
const maxCumulativeHeapBytes = 256

// maxArrays bounds the number of distinct arrays a single function
// (or the top-level environment) may declare.
const maxArrays = 32

type arrayBinding struct {
	base, length int
}

// regResult is the outcome of lowering an expression: the register
// holding its value, and whether that register is a temporary the
// caller must release once done with it.
type regResult struct {
	reg    int
	isTemp bool
}

// regFile tracks which of R1..R7 are currently bound, independent of
// whether the binding is a named variable/parameter or a scratch
// temporary. Named allocations scan from R1 upward; temporaries scan
// from R7 downward, so the two disciplines collide only when the
// register file is actually full.
type regFile struct {
	mask uint8
}

func (r *regFile) allocNamed() (int, bool) {
	for i := 1; i <= maxUserRegisters; i++ {
		if r.mask&(1<<uint(i)) == 0 {
			r.mask |= 1 << uint(i)
			return i, true
		}
	}
	return 0, false
}

func (r *regFile) allocTemp() (int, bool) {
	for i := maxUserRegisters; i >= 1; i-- {
		if r.mask&(1<<uint(i)) == 0 {
			r.mask |= 1 << uint(i)
			return i, true
		}
	}
	return 0, false
}

func (r *regFile) release(i int) {
	r.mask &^= 1 << uint(i)
}

func (r *regFile) reset() {
	r.mask = 0
}

// Translator holds the state threaded through one compilation: the
// bytes emitted so far, the current function's register and array
// bindings, and cross-function bookkeeping for resolving calls that
// target a function translated later in program order.
type Translator struct {
	code []byte

	vars   map[string]int
	arrays map[string]arrayBinding
	regs   regFile
	heapTop int

	inFunction bool

	functionStart       map[string]int
	functionParamCount  map[string]int
	pendingFuncPatches  map[string][]int
}

// Compile translates prog, which must already have passed semantic
// analysis, into a finished byte stream terminated by HALT.
func Compile(prog *ast.Program) ([]byte, error) {
	t := &Translator{
		vars:               make(map[string]int),
		arrays:             make(map[string]arrayBinding),
		functionStart:      make(map[string]int),
		functionParamCount: make(map[string]int),
		pendingFuncPatches: make(map[string][]int),
	}

	for _, item := range prog.Items {
		if fn, ok := item.(*ast.Function); ok {
			t.functionParamCount[fn.Name] = len(fn.Params)
		}
	}

	hasFunctions := len(t.functionParamCount) > 0
	var entryJump int
	if hasFunctions {
		entryJump = t.emit3(bytecode.JMP, 0, 0)
	}

	for _, item := range prog.Items {
		fn, ok := item.(*ast.Function)
		if !ok {
			continue
		}
		t.functionStart[fn.Name] = len(t.code)
		if err := t.translateFunction(fn); err != nil {
			return nil, err
		}
	}

	for name, offsets := range t.pendingFuncPatches {
		start, ok := t.functionStart[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown function %q", ErrUnsupportedConstruct, name)
		}
		for _, off := range offsets {
			t.patchJump(off, start)
		}
	}

	if hasFunctions {
		t.patchJump(entryJump, len(t.code))
	}

	t.vars = make(map[string]int)
	t.arrays = make(map[string]arrayBinding)
	t.regs.reset()
	t.heapTop = 0

	for _, item := range prog.Items {
		block, ok := item.(*ast.Block)
		if !ok {
			continue
		}
		for _, stmt := range block.Stmts {
			if err := t.translateStatement(stmt); err != nil {
				return nil, err
			}
		}
	}

	t.emit3(bytecode.HALT, 0, 0)
	return t.code, nil
}

func (t *Translator) emit3(op bytecode.Op, a1, a2 byte) int {
	var offset int
	t.code, offset = bytecode.Emit3(t.code, op, a1, a2)
	return offset
}

func (t *Translator) patchJump(offset, target int) {
	bytecode.PatchJumpTarget(t.code, offset, uint16(target))
}

func (t *Translator) emitMove(dst, src int) {
	if dst == src {
		return
	}
	t.emit3(bytecode.LOAD, byte(dst), byte(src))
}

func (t *Translator) emitLoadConst(reg int, value int64) error {
	if value < 0 || value > 255 {
		return fmt.Errorf("%w: immediate %d out of supported range (0..255)", ErrOutOfBounds, value)
	}
	t.emit3(bytecode.LOADI, byte(reg), byte(value))
	return nil
}

func (t *Translator) releaseIfTemp(r regResult) {
	if r.isTemp {
		t.regs.release(r.reg)
	}
}

// materializeAsTemp copies r into a fresh scratch register when r
// names a variable or parameter, so that the caller can safely use the
// result as the destructive left operand of an arithmetic/logic/NOT
// instruction without corrupting the source binding.
func (t *Translator) materializeAsTemp(r regResult) (regResult, error) {
	if r.isTemp {
		return r, nil
	}
	temp, ok := t.regs.allocTemp()
	if !ok {
		return regResult{}, fmt.Errorf("%w: register limit reached (max 7 user registers)", ErrRegisterExhausted)
	}
	t.emitMove(temp, r.reg)
	return regResult{reg: temp, isTemp: true}, nil
}

func (t *Translator) translateFunction(fn *ast.Function) error {
	t.vars = make(map[string]int)
	t.arrays = make(map[string]arrayBinding)
	t.regs.reset()
	t.heapTop = 0
	prevInFunction := t.inFunction
	t.inFunction = true

	for _, p := range fn.Params {
		reg, ok := t.regs.allocNamed()
		if !ok {
			t.inFunction = prevInFunction
			return fmt.Errorf("%w: too many parameters for function %q", ErrRegisterExhausted, fn.Name)
		}
		t.vars[p.Name] = reg
	}

	for _, stmt := range fn.Body.Stmts {
		if err := t.translateStatement(stmt); err != nil {
			t.inFunction = prevInFunction
			return err
		}
	}

	if len(t.code) < 3 || t.code[len(t.code)-3] != byte(bytecode.RET) {
		t.emit3(bytecode.RET, 0, 0)
	}
	t.inFunction = prevInFunction
	return nil
}

func (t *Translator) translateStatement(n ast.Node) error {
	switch v := n.(type) {
	case *ast.VarDecl:
		return t.translateVarDecl(v)
	case *ast.ArrayDecl:
		return t.translateArrayDecl(v)
	case *ast.Assign:
		return t.translateAssign(v)
	case *ast.Exec:
		res, err := t.translateExec(v)
		if err != nil {
			return err
		}
		t.releaseIfTemp(res)
		return nil
	case *ast.Return:
		return t.translateReturn(v)
	case *ast.If:
		return t.translateIf(v)
	case *ast.While:
		return t.translateWhile(v)
	case *ast.For:
		return t.translateFor(v)
	case *ast.Block:
		for _, stmt := range v.Stmts {
			if err := t.translateStatement(stmt); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: cannot translate statement node", ErrUnsupportedConstruct)
	}
}

func (t *Translator) translateVarDecl(d *ast.VarDecl) error {
	reg, ok := t.regs.allocNamed()
	if !ok {
		return fmt.Errorf("%w: too many variables for current translator backend", ErrRegisterExhausted)
	}
	t.vars[d.Name] = reg

	if d.Init == nil {
		return t.emitLoadConst(reg, 0)
	}
	initNode, err := unwrapScalarInit(d.Init)
	if err != nil {
		return err
	}
	val, err := t.translateExpr(initNode)
	if err != nil {
		return err
	}
	t.emitMove(reg, val.reg)
	t.releaseIfTemp(val)
	return nil
}

func (t *Translator) translateArrayDecl(d *ast.ArrayDecl) error {
	if d.Size <= 0 {
		return fmt.Errorf("%w: array %q must have a positive size", ErrUnsupportedConstruct, d.Name)
	}
	if d.Size > maxHeapBytes {
		return fmt.Errorf("%w: array %q size %d exceeds the maximum of %d elements", ErrHeapExhausted, d.Name, d.Size, maxHeapBytes)
	}
	if len(t.arrays) >= maxArrays {
		return fmt.Errorf("%w: too many arrays (max %d)", ErrHeapExhausted, maxArrays)
	}
	if t.heapTop+d.Size > maxCumulativeHeapBytes {
		return fmt.Errorf("%w: array %q would exceed the %d-byte heap", ErrHeapExhausted, d.Name, maxCumulativeHeapBytes)
	}
	t.arrays[d.Name] = arrayBinding{base: t.heapTop, length: d.Size}
	t.heapTop += d.Size
	return nil
}

func (t *Translator) translateAssign(asn *ast.Assign) error {
	switch target := asn.Target.(type) {
	case *ast.Id:
		if arr, isArray := t.arrays[target.Name]; isArray {
			lit, ok := asn.Value.(*ast.ArrayLiteral)
			if !ok {
				return fmt.Errorf("%w: array %q assigned a non-array-literal value", ErrUnsupportedConstruct, target.Name)
			}
			return t.translateArrayLiteralAssign(arr, lit)
		}
		reg, ok := t.vars[target.Name]
		if !ok {
			return fmt.Errorf("%w: unknown variable %q", ErrUnsupportedConstruct, target.Name)
		}
		valNode, err := unwrapScalarInit(asn.Value)
		if err != nil {
			return err
		}
		val, err := t.translateExpr(valNode)
		if err != nil {
			return err
		}
		t.emitMove(reg, val.reg)
		t.releaseIfTemp(val)
		return nil
	case *ast.IndexedId:
		arr, ok := t.arrays[target.Name]
		if !ok {
			return fmt.Errorf("%w: unknown array %q", ErrUnsupportedConstruct, target.Name)
		}
		idx, ok := target.Index.(*ast.IntLit)
		if !ok {
			return fmt.Errorf("%w: array index must be an integer literal", ErrUnsupportedConstruct)
		}
		if int(idx.Value) < 0 || int(idx.Value) >= arr.length {
			return fmt.Errorf("%w: index %d out of bounds for array %q of length %d", ErrOutOfBounds, idx.Value, target.Name, arr.length)
		}
		addrReg, ok := t.regs.allocTemp()
		if !ok {
			return fmt.Errorf("%w: register limit reached (max 7 user registers)", ErrRegisterExhausted)
		}
		if err := t.emitLoadConst(addrReg, int64(arr.base+int(idx.Value))); err != nil {
			return err
		}
		val, err := t.translateExpr(asn.Value)
		if err != nil {
			return err
		}
		t.emit3(bytecode.STORE, byte(addrReg), byte(val.reg))
		t.releaseIfTemp(val)
		t.regs.release(addrReg)
		return nil
	default:
		return fmt.Errorf("%w: assignment target is not an identifier", ErrUnsupportedConstruct)
	}
}

func (t *Translator) translateArrayLiteralAssign(arr arrayBinding, lit *ast.ArrayLiteral) error {
	if len(lit.Elements) > arr.length {
		return fmt.Errorf("%w: array literal has %d elements, array holds %d", ErrUnsupportedConstruct, len(lit.Elements), arr.length)
	}
	for i := 0; i < arr.length; i++ {
		addrReg, ok := t.regs.allocTemp()
		if !ok {
			return fmt.Errorf("%w: register limit reached (max 7 user registers)", ErrRegisterExhausted)
		}
		if err := t.emitLoadConst(addrReg, int64(arr.base+i)); err != nil {
			return err
		}
		var val regResult
		if i < len(lit.Elements) {
			v, err := t.translateExpr(lit.Elements[i])
			if err != nil {
				return err
			}
			val = v
		} else {
			zeroReg, ok := t.regs.allocTemp()
			if !ok {
				return fmt.Errorf("%w: register limit reached (max 7 user registers)", ErrRegisterExhausted)
			}
			if err := t.emitLoadConst(zeroReg, 0); err != nil {
				return err
			}
			val = regResult{reg: zeroReg, isTemp: true}
		}
		t.emit3(bytecode.STORE, byte(addrReg), byte(val.reg))
		t.releaseIfTemp(val)
		t.regs.release(addrReg)
	}
	return nil
}

func (t *Translator) translateReturn(r *ast.Return) error {
	if !t.inFunction {
		return fmt.Errorf("%w: return outside a function", ErrUnsupportedConstruct)
	}
	if r.Value == nil {
		if err := t.emitLoadConst(0, 0); err != nil {
			return err
		}
	} else {
		val, err := t.translateExpr(r.Value)
		if err != nil {
			return err
		}
		t.emitMove(0, val.reg)
		t.releaseIfTemp(val)
	}
	t.emit3(bytecode.RET, 0, 0)
	return nil
}

// emitConditionBranch lowers cond, compares it against zero, and
// emits a JZ with a placeholder target, returning the branch's offset
// so the caller can patch it once the false-branch address is known.
func (t *Translator) emitConditionBranch(cond ast.Node) (int, error) {
	val, err := t.translateExpr(cond)
	if err != nil {
		return 0, err
	}
	zeroReg, ok := t.regs.allocTemp()
	if !ok {
		return 0, fmt.Errorf("%w: register limit reached (max 7 user registers)", ErrRegisterExhausted)
	}
	if err := t.emitLoadConst(zeroReg, 0); err != nil {
		return 0, err
	}
	t.emit3(bytecode.CMP, byte(val.reg), byte(zeroReg))
	t.regs.release(zeroReg)
	t.releaseIfTemp(val)
	return t.emit3(bytecode.JZ, 0, 0), nil
}

func (t *Translator) translateIf(n *ast.If) error {
	falseJump, err := t.emitConditionBranch(n.Cond)
	if err != nil {
		return err
	}
	for _, stmt := range n.Then.Stmts {
		if err := t.translateStatement(stmt); err != nil {
			return err
		}
	}
	if n.Else == nil {
		t.patchJump(falseJump, len(t.code))
		return nil
	}
	endJump := t.emit3(bytecode.JMP, 0, 0)
	t.patchJump(falseJump, len(t.code))
	for _, stmt := range n.Else.Stmts {
		if err := t.translateStatement(stmt); err != nil {
			return err
		}
	}
	t.patchJump(endJump, len(t.code))
	return nil
}

func (t *Translator) translateWhile(n *ast.While) error {
	loopStart := len(t.code)
	exitJump, err := t.emitConditionBranch(n.Cond)
	if err != nil {
		return err
	}
	for _, stmt := range n.Body.Stmts {
		if err := t.translateStatement(stmt); err != nil {
			return err
		}
	}
	a1, a2 := bytecode.EmitJumpTarget(uint16(loopStart))
	t.emit3(bytecode.JMP, a1, a2)
	t.patchJump(exitJump, len(t.code))
	return nil
}

func (t *Translator) translateFor(n *ast.For) error {
	if n.Init != nil {
		if err := t.translateStatement(n.Init); err != nil {
			return err
		}
	}
	loopStart := len(t.code)
	var exitJump int
	hasExit := n.Cond != nil
	if hasExit {
		j, err := t.emitConditionBranch(n.Cond)
		if err != nil {
			return err
		}
		exitJump = j
	}
	for _, stmt := range n.Body.Stmts {
		if err := t.translateStatement(stmt); err != nil {
			return err
		}
	}
	if n.Update != nil {
		if err := t.translateStatement(n.Update); err != nil {
			return err
		}
	}
	a1, a2 := bytecode.EmitJumpTarget(uint16(loopStart))
	t.emit3(bytecode.JMP, a1, a2)
	if hasExit {
		t.patchJump(exitJump, len(t.code))
	}
	return nil
}

func (t *Translator) translateExec(e *ast.Exec) (regResult, error) {
	if builtin, ok := symtab.Builtin(e.Name); ok {
		_, res, err := t.translateCall(e.Args, builtin.BuiltinID, true)
		return res, err
	}
	paramCount, ok := t.functionParamCount[e.Name]
	if !ok {
		return regResult{}, fmt.Errorf("%w: unknown function %q", ErrUnsupportedConstruct, e.Name)
	}
	if len(e.Args) != paramCount {
		return regResult{}, fmt.Errorf("%w: %q expects %d argument(s), got %d", ErrUnsupportedConstruct, e.Name, paramCount, len(e.Args))
	}
	callOffset, res, err := t.translateCall(e.Args, 0, false)
	if err != nil {
		return regResult{}, err
	}
	if start, ok := t.functionStart[e.Name]; ok {
		t.patchJump(callOffset, start)
	} else {
		t.pendingFuncPatches[e.Name] = append(t.pendingFuncPatches[e.Name], callOffset)
	}
	return res, nil
}

// translateCall implements the caller-saves-all call site ABI shared
// by user-function CALLs and built-in TRAPs: lower each argument into
// its own register, push R1..R7 ascending, move arguments into the
// low parameter registers, emit the transfer instruction, pop R7..R1
// descending, then copy the result out of R0 into a fresh temp so
// later instructions can't clobber it by reusing R0. callOffset is the
// byte offset of the emitted CALL instruction (-1 for a TRAP, which
// has no separate target to patch).
func (t *Translator) translateCall(args []ast.Node, trapIDOrUnused int, isTrap bool) (callOffset int, result regResult, err error) {
	argRegs := make([]regResult, len(args))
	for i, arg := range args {
		v, err := t.translateExpr(arg)
		if err != nil {
			return -1, regResult{}, err
		}
		argRegs[i] = v
	}

	for i := 1; i <= maxUserRegisters; i++ {
		t.emit3(bytecode.PUSH, byte(i), 0)
	}
	for i, v := range argRegs {
		t.emitMove(i+1, v.reg)
	}
	for _, v := range argRegs {
		t.releaseIfTemp(v)
	}

	callOffset = -1
	if isTrap {
		t.emit3(bytecode.TRAP, byte(trapIDOrUnused), 0)
	} else {
		callOffset = t.emit3(bytecode.CALL, 0, 0)
	}

	for i := maxUserRegisters; i >= 1; i-- {
		t.emit3(bytecode.POP, byte(i), 0)
	}
	dst, ok := t.regs.allocTemp()
	if !ok {
		return callOffset, regResult{}, fmt.Errorf("%w: register limit reached (max 7 user registers)", ErrRegisterExhausted)
	}
	t.emitMove(dst, 0)
	return callOffset, regResult{reg: dst, isTemp: true}, nil
}

func (t *Translator) translateExpr(n ast.Node) (regResult, error) {
	switch v := n.(type) {
	case *ast.IntLit:
		return t.loadConstTemp(v.Value)
	case *ast.CharLit:
		return t.loadConstTemp(int64(v.Value))
	case *ast.BoolLit:
		if v.Value {
			return t.loadConstTemp(1)
		}
		return t.loadConstTemp(0)
	case *ast.FloatLit:
		if v.Value != math.Trunc(v.Value) || v.Value < 0 || v.Value > 255 {
			return regResult{}, fmt.Errorf("%w: double literal %v is not representable in the register backend (integral 0..255 only)", ErrOutOfBounds, v.Value)
		}
		return t.loadConstTemp(int64(v.Value))
	case *ast.Id:
		reg, ok := t.vars[v.Name]
		if !ok {
			if sym, found := symtab.NewGlobalScope().LookupCurrent(v.Name); found && sym.Kind == symtab.Constant {
				return t.loadConstTemp(sym.ConstValue)
			}
			return regResult{}, fmt.Errorf("%w: unknown variable %q", ErrUnsupportedConstruct, v.Name)
		}
		return regResult{reg: reg}, nil
	case *ast.IndexedId:
		return t.translateIndexedLoad(v)
	case *ast.UnOp:
		return t.translateUnOp(v)
	case *ast.BinOp:
		return t.translateBinOp(v)
	case *ast.Exec:
		return t.translateExec(v)
	case *ast.ArrayLiteral:
		unwrapped, err := unwrapScalarInit(v)
		if err != nil {
			return regResult{}, err
		}
		return t.translateExpr(unwrapped)
	default:
		return regResult{}, fmt.Errorf("%w: cannot translate expression node", ErrUnsupportedConstruct)
	}
}

func (t *Translator) loadConstTemp(value int64) (regResult, error) {
	reg, ok := t.regs.allocTemp()
	if !ok {
		return regResult{}, fmt.Errorf("%w: register limit reached (max 7 user registers)", ErrRegisterExhausted)
	}
	if err := t.emitLoadConst(reg, value); err != nil {
		t.regs.release(reg)
		return regResult{}, err
	}
	return regResult{reg: reg, isTemp: true}, nil
}

func (t *Translator) translateIndexedLoad(v *ast.IndexedId) (regResult, error) {
	arr, ok := t.arrays[v.Name]
	if !ok {
		return regResult{}, fmt.Errorf("%w: unknown array %q", ErrUnsupportedConstruct, v.Name)
	}
	idx, ok := v.Index.(*ast.IntLit)
	if !ok {
		return regResult{}, fmt.Errorf("%w: array index must be an integer literal", ErrUnsupportedConstruct)
	}
	if int(idx.Value) < 0 || int(idx.Value) >= arr.length {
		return regResult{}, fmt.Errorf("%w: index %d out of bounds for array %q of length %d", ErrOutOfBounds, idx.Value, v.Name, arr.length)
	}
	addrReg, ok := t.regs.allocTemp()
	if !ok {
		return regResult{}, fmt.Errorf("%w: register limit reached (max 7 user registers)", ErrRegisterExhausted)
	}
	if err := t.emitLoadConst(addrReg, int64(arr.base+int(idx.Value))); err != nil {
		return regResult{}, err
	}
	dst, ok := t.regs.allocTemp()
	if !ok {
		return regResult{}, fmt.Errorf("%w: register limit reached (max 7 user registers)", ErrRegisterExhausted)
	}
	t.emit3(bytecode.LOADM, byte(dst), byte(addrReg))
	t.regs.release(addrReg)
	return regResult{reg: dst, isTemp: true}, nil
}

func (t *Translator) translateUnOp(v *ast.UnOp) (regResult, error) {
	switch v.Op {
	case ast.NOT:
		operand, err := t.translateExpr(v.Operand)
		if err != nil {
			return regResult{}, err
		}
		operand, err = t.materializeAsTemp(operand)
		if err != nil {
			return regResult{}, err
		}
		t.emit3(bytecode.NOT, byte(operand.reg), 0)
		t.emitMove(operand.reg, 0)
		return operand, nil
	case ast.NEG:
		zeroReg, ok := t.regs.allocTemp()
		if !ok {
			return regResult{}, fmt.Errorf("%w: register limit reached (max 7 user registers)", ErrRegisterExhausted)
		}
		if err := t.emitLoadConst(zeroReg, 0); err != nil {
			return regResult{}, err
		}
		operand, err := t.translateExpr(v.Operand)
		if err != nil {
			return regResult{}, err
		}
		t.emit3(bytecode.SUB, byte(zeroReg), byte(operand.reg))
		t.emitMove(zeroReg, 0)
		t.releaseIfTemp(operand)
		return regResult{reg: zeroReg, isTemp: true}, nil
	default:
		return regResult{}, fmt.Errorf("%w: unsupported unary operator", ErrUnsupportedConstruct)
	}
}

var comparisonJump = map[ast.BinOpKind]bytecode.Op{
	ast.EQ: bytecode.JZ,
	ast.NE: bytecode.JNZ,
	ast.LT: bytecode.JLT,
	ast.LE: bytecode.JLE,
	ast.GT: bytecode.JGT,
	ast.GE: bytecode.JGE,
}

var arithOp = map[ast.BinOpKind]bytecode.Op{
	ast.ADD: bytecode.ADD,
	ast.SUB: bytecode.SUB,
	ast.MUL: bytecode.MUL,
	ast.DIV: bytecode.DIV,
	ast.MOD: bytecode.MOD,
}

var logicOp = map[ast.BinOpKind]bytecode.Op{
	ast.AND: bytecode.AND,
	ast.OR:  bytecode.OR,
}

func (t *Translator) translateBinOp(v *ast.BinOp) (regResult, error) {
	if op, ok := arithOp[v.Op]; ok {
		return t.translateBinaryDestructive(op, v.Left, v.Right)
	}
	if op, ok := logicOp[v.Op]; ok {
		return t.translateBinaryDestructive(op, v.Left, v.Right)
	}
	if jumpOp, ok := comparisonJump[v.Op]; ok {
		return t.translateComparison(jumpOp, v.Left, v.Right)
	}
	return regResult{}, fmt.Errorf("%w: unsupported binary operator", ErrUnsupportedConstruct)
}

// translateBinaryDestructive implements the shared lowering for
// arithmetic (ADD/SUB/MUL/DIV/MOD) and logical (AND/OR) binary
// operators: both lower left then right, but left must first be
// materialized into a disposable temp since the opcode overwrites its
// first operand register in place; a named variable's register would
// otherwise be corrupted by evaluating an expression that merely reads
// it.
func (t *Translator) translateBinaryDestructive(op bytecode.Op, left, right ast.Node) (regResult, error) {
	l, err := t.translateExpr(left)
	if err != nil {
		return regResult{}, err
	}
	l, err = t.materializeAsTemp(l)
	if err != nil {
		return regResult{}, err
	}
	r, err := t.translateExpr(right)
	if err != nil {
		return regResult{}, err
	}
	t.emit3(op, byte(l.reg), byte(r.reg))
	t.emitMove(l.reg, 0)
	t.releaseIfTemp(r)
	return l, nil
}

func (t *Translator) translateComparison(jumpOp bytecode.Op, left, right ast.Node) (regResult, error) {
	l, err := t.translateExpr(left)
	if err != nil {
		return regResult{}, err
	}
	r, err := t.translateExpr(right)
	if err != nil {
		return regResult{}, err
	}
	t.emit3(bytecode.CMP, byte(l.reg), byte(r.reg))
	t.releaseIfTemp(l)
	t.releaseIfTemp(r)

	dst, ok := t.regs.allocTemp()
	if !ok {
		return regResult{}, fmt.Errorf("%w: register limit reached (max 7 user registers)", ErrRegisterExhausted)
	}
	trueJump := t.emit3(jumpOp, 0, 0)
	if err := t.emitLoadConst(dst, 0); err != nil {
		return regResult{}, err
	}
	endJump := t.emit3(bytecode.JMP, 0, 0)
	t.patchJump(trueJump, len(t.code))
	if err := t.emitLoadConst(dst, 1); err != nil {
		return regResult{}, err
	}
	t.patchJump(endJump, len(t.code))
	return regResult{reg: dst, isTemp: true}, nil
}

// unwrapScalarInit accepts a one-element ArrayLiteral in place of a
// plain scalar expression and otherwise returns n unchanged; the
// semantic analyzer has already validated the element count.
func unwrapScalarInit(n ast.Node) (ast.Node, error) {
	lit, ok := n.(*ast.ArrayLiteral)
	if !ok {
		return n, nil
	}
	if len(lit.Elements) != 1 {
		return nil, fmt.Errorf("%w: array literal used as a scalar value must have exactly one element", ErrUnsupportedConstruct)
	}
	return lit.Elements[0], nil
}
