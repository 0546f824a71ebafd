// Package symtab implements the lexical scope chain used while
// analyzing and translating a program: a singly-linked stack of symbol
// tables, innermost scope first, with lookup walking outward to the
// global scope.
package symtab

import (
	"fmt"
	"io"
	"sort"

	"roverc/types"
)

// Kind distinguishes what a Symbol names.
type Kind int

const (
	Variable Kind = iota
	Parameter
	Function
	Constant
)

func (k Kind) String() string {
	switch k {
	case Variable:
		return "variable"
	case Parameter:
		return "parameter"
	case Function:
		return "function"
	case Constant:
		return "constant"
	default:
		return "?unknown-kind?"
	}
}

// Symbol is one entry in a scope: a variable, parameter, function, or
// built-in constant.
type Symbol struct {
	Name string
	Type types.Type
	Kind Kind

	// ParamTypes is populated for Kind == Function, in declaration
	// order. The analyzer records it but does not check exec call
	// arity or argument types against it.
	ParamTypes []types.Type

	// IsBuiltin marks a Function or Constant symbol seeded by
	// NewGlobalScope rather than declared in source.
	IsBuiltin bool

	// ConstValue holds the value of a Kind == Constant symbol.
	ConstValue int64

	// BuiltinID is the TRAP operand a Kind == Function, IsBuiltin
	// symbol lowers to; meaningless for any other symbol.
	BuiltinID int
}

// Scope is one link in the chain of symbol tables. The zero value is
// not usable; build one with NewGlobalScope or Enter.
type Scope struct {
	symbols map[string]*Symbol
	parent  *Scope
}

// NewGlobalScope returns a fresh top-level scope with the language's
// built-in actuator/sensor functions and pin-mode constants already
// inserted, exactly as analysis expects to find them before the first
// user declaration is processed.
func NewGlobalScope() *Scope {
	s := &Scope{symbols: make(map[string]*Symbol)}
	for _, b := range builtinFunctions {
		s.symbols[b.Name] = b
	}
	for _, c := range builtinConstants {
		s.symbols[c.Name] = c
	}
	return s
}

// Enter pushes a new, empty scope in front of s and returns it. The
// returned scope's Exit reference is s itself (its Parent).
func (s *Scope) Enter() *Scope {
	return &Scope{symbols: make(map[string]*Symbol), parent: s}
}

// Exit returns the enclosing scope, or nil if s is the global scope.
func (s *Scope) Exit() *Scope {
	return s.parent
}

// Parent exposes the enclosing scope without the "leaving" framing of
// Exit; the two are equivalent.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Insert adds sym to s. It reports false without modifying s if a
// symbol with the same name already exists in this scope specifically
// (shadowing a name from an enclosing scope is allowed and is not a
// redeclaration).
func (s *Scope) Insert(sym *Symbol) bool {
	if _, exists := s.symbols[sym.Name]; exists {
		return false
	}
	s.symbols[sym.Name] = sym
	return true
}

// Lookup searches s and then each enclosing scope in turn, returning
// the first match and the scope it was found in.
func (s *Scope) Lookup(name string) (*Symbol, *Scope) {
	for sc := s; sc != nil; sc = sc.parent {
		if sym, ok := sc.symbols[name]; ok {
			return sym, sc
		}
	}
	return nil, nil
}

// LookupCurrent searches only s, ignoring enclosing scopes. This is
// what redeclaration checks use.
func (s *Scope) LookupCurrent(name string) (*Symbol, bool) {
	sym, ok := s.symbols[name]
	return sym, ok
}

// Depth counts the scopes enclosing s, so the global scope is at depth 0.
func (s *Scope) Depth() int {
	d := 0
	for sc := s.parent; sc != nil; sc = sc.parent {
		d++
	}
	return d
}

// String renders the scope chain from s outward to the global scope,
// one line per symbol, indented by scope depth.
func (s *Scope) String() string {
	var b []byte
	depth := s.Depth()
	for sc := s; sc != nil; sc = sc.parent {
		names := make([]string, 0, len(sc.symbols))
		for n := range sc.symbols {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			sym := sc.symbols[n]
			for i := 0; i < depth; i++ {
				b = append(b, ' ', ' ')
			}
			b = append(b, fmt.Sprintf("%s %s: %s\n", sym.Kind, sym.Name, sym.Type)...)
		}
		depth--
	}
	return string(b)
}

// Dump writes the same rendering as String to w.
func (s *Scope) Dump(w io.Writer) error {
	_, err := io.WriteString(w, s.String())
	return err
}

// Pin-mode and digital-level constants seeded into the global scope,
// matching the values an Arduino-style board header defines them as.
const (
	PinInput  = 0
	PinOutput = 1
	PinLow    = 0
	PinHigh   = 1
)

var builtinConstants = []*Symbol{
	{Name: "INPUT", Type: types.Scalar(types.Int), Kind: Constant, IsBuiltin: true, ConstValue: PinInput},
	{Name: "OUTPUT", Type: types.Scalar(types.Int), Kind: Constant, IsBuiltin: true, ConstValue: PinOutput},
	{Name: "LOW", Type: types.Scalar(types.Int), Kind: Constant, IsBuiltin: true, ConstValue: PinLow},
	{Name: "HIGH", Type: types.Scalar(types.Int), Kind: Constant, IsBuiltin: true, ConstValue: PinHigh},
}

var nextBuiltinID int

func fn(name string, ret types.Base, params ...types.Base) *Symbol {
	pt := make([]types.Type, len(params))
	for i, p := range params {
		pt[i] = types.Scalar(p)
	}
	id := nextBuiltinID
	nextBuiltinID++
	return &Symbol{
		Name:       name,
		Type:       types.Scalar(ret),
		Kind:       Function,
		ParamTypes: pt,
		IsBuiltin:  true,
		BuiltinID:  id,
	}
}

// builtinFunctions are the actuator/sensor primitives every program
// may exec without an explicit declaration. Each lowers, at
// translation time, to a TRAP instruction rather than a CALL, with
// BuiltinID as the TRAP's operand.
var builtinFunctions = []*Symbol{
	fn("pinMode", types.Void, types.Int, types.Int),
	fn("digitalWrite", types.Void, types.Int, types.Int),
	fn("digitalRead", types.Int, types.Int),
	fn("analogRead", types.Int, types.Int),
	fn("pwmWrite", types.Void, types.Int, types.Int),
	fn("print", types.Void, types.Int),
	fn("delay", types.Void, types.Int),
	fn("forward_ms", types.Void, types.Int),
	fn("back_ms", types.Void, types.Int),
	fn("turnLeft_ms", types.Void, types.Int),
	fn("turnRight_ms", types.Void, types.Int),
	fn("readLeftSensor", types.Int),
	fn("readRightSensor", types.Int),
	fn("setSpeed", types.Void, types.Int),
	fn("stopMotors", types.Void),
}

// Builtin looks up a built-in function by name, used by the
// translator to decide whether an exec call lowers to TRAP or CALL.
func Builtin(name string) (*Symbol, bool) {
	for _, b := range builtinFunctions {
		if b.Name == name {
			return b, true
		}
	}
	return nil, false
}
