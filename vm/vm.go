// Package vm implements the fixed-register, fixed-memory virtual
// machine that executes the translator's bytecode: 8 general-purpose
// registers (R0 doubling as the accumulator), a byte-addressable heap
// for array storage, a downward-growing byte stack for call frames and
// caller-saved registers, and a flag register fed by CMP.
package vm

import (
	"errors"
	"fmt"

	"roverc/bytecode"
)

// Sentinel runtime faults, surfaced only through Err() once the
// machine halts.
var (
	errStackOverflow   = errors.New("stack overflow")
	errStackUnderflow  = errors.New("stack underflow")
	errHeapOutOfBounds = errors.New("heap access out of bounds")
	errUnknownOpcode   = errors.New("unknown opcode")
	errDivisionByZero  = errors.New("division by zero")
	errIllegalOperand  = errors.New("illegal register operand")
)

// NumRegisters is the size of the register file, R0..R7.
const NumRegisters = 8

// DefaultStackSize is the recommended stack capacity when none is
// given to New.
const DefaultStackSize = 64 * 1024

// HeapSize is the fixed capacity of the array heap.
const HeapSize = 256

// Flags holds the outcome of the most recently executed CMP
// instruction. Every other instruction leaves it untouched except for
// Zero, which every ALU-style instruction also updates from its own
// result.
type Flags struct {
	Zero, Carry bool
	Eq, Neq     bool
	Lt, Gt      bool
	Le, Ge      bool
}

// VM is one program's execution state.
type VM struct {
	registers [NumRegisters]int32
	flags     Flags
	pc        int
	halted    bool
	errcode   error

	stack []byte
	sp    int

	heap [HeapSize]byte

	program     []byte
	peripherals Peripherals
}

// Option configures a VM at construction time.
type Option func(*VM)

// WithStackSize overrides DefaultStackSize.
func WithStackSize(n int) Option {
	return func(vm *VM) { vm.stack = make([]byte, n) }
}

// WithPeripherals attaches the actuator/sensor backend TRAP
// instructions dispatch to. A New VM without this option uses
// NopPeripherals.
func WithPeripherals(p Peripherals) Option {
	return func(vm *VM) { vm.peripherals = p }
}

// New constructs a VM ready to execute program from PC 0. Registers,
// heap, and flags all start zeroed; the stack starts empty at its
// high-water mark.
func New(program []byte, opts ...Option) *VM {
	vm := &VM{program: program, peripherals: NopPeripherals{}}
	for _, opt := range opts {
		opt(vm)
	}
	if vm.stack == nil {
		vm.stack = make([]byte, DefaultStackSize)
	}
	vm.sp = len(vm.stack)
	return vm
}

// Registers returns a snapshot of the register file.
func (vm *VM) Registers() [NumRegisters]int32 { return vm.registers }

// Flags returns a snapshot of the flag register.
func (vm *VM) Flags() Flags { return vm.flags }

// PC returns the current program counter.
func (vm *VM) PC() int { return vm.pc }

// Halted reports whether the machine has stopped, either normally
// (HALT or running off the end of the program) or on a runtime fault.
func (vm *VM) Halted() bool { return vm.halted }

// Err returns the runtime fault that halted the machine, or nil on
// normal completion.
func (vm *VM) Err() error { return vm.errcode }

// Heap returns a copy of the array heap.
func (vm *VM) Heap() [HeapSize]byte { return vm.heap }

func (vm *VM) fail(err error) {
	if vm.errcode == nil {
		vm.errcode = err
	}
	vm.halted = true
}

func (vm *VM) reg(i byte) (int32, error) {
	if int(i) >= NumRegisters {
		return 0, fmt.Errorf("%w: R%d", errIllegalOperand, i)
	}
	return vm.registers[i], nil
}

func (vm *VM) setReg(i byte, v int32) error {
	if int(i) >= NumRegisters {
		return fmt.Errorf("%w: R%d", errIllegalOperand, i)
	}
	vm.registers[i] = v
	return nil
}

func (vm *VM) setZeroFlag(result int32) {
	vm.flags.Zero = result == 0
}

// push writes n little-endian bytes of value onto the stack, moving
// sp toward address 0.
func (vm *VM) push(n int, value uint32) error {
	if vm.sp-n < 0 {
		return errStackOverflow
	}
	vm.sp -= n
	for i := 0; i < n; i++ {
		vm.stack[vm.sp+i] = byte(value >> (8 * uint(i)))
	}
	return nil
}

func (vm *VM) pop(n int) (uint32, error) {
	if vm.sp+n > len(vm.stack) {
		return 0, errStackUnderflow
	}
	var value uint32
	for i := 0; i < n; i++ {
		value |= uint32(vm.stack[vm.sp+i]) << (8 * uint(i))
	}
	vm.sp += n
	return value, nil
}

// Step executes at most one instruction. It is a no-op once Halted.
func (vm *VM) Step() {
	if vm.halted {
		return
	}
	if vm.pc < 0 || vm.pc >= len(vm.program) {
		vm.halted = true
		return
	}

	instr, next, err := bytecode.Decode(vm.program, vm.pc)
	if err != nil || !instr.Op.Known() {
		vm.fail(errUnknownOpcode)
		return
	}
	vm.pc = next
	vm.execute(instr)
}

// Run steps the machine until it halts, normally or on a fault.
func (vm *VM) Run() {
	for !vm.halted {
		vm.Step()
	}
}

func jumpTarget(a1, a2 byte) int {
	return int(a1) | int(a2)<<8
}

func (vm *VM) execute(instr bytecode.Instr) {
	op, a1, a2 := instr.Op, instr.A1, instr.A2

	switch op {
	case bytecode.NOP:
		return

	case bytecode.ADD, bytecode.SUB, bytecode.MUL, bytecode.DIV, bytecode.MOD, bytecode.AND, bytecode.OR:
		vm.executeALU(op, a1, a2)

	case bytecode.NOT:
		lhs, err := vm.reg(a1)
		if err != nil {
			vm.fail(err)
			return
		}
		// Bool values on this machine are always exactly 0 or 1, so NOT
		// is a logical negation rather than a bitwise complement.
		result := int32(0)
		if lhs == 0 {
			result = 1
		}
		_ = vm.setReg(a1, result)
		vm.registers[0] = result
		vm.setZeroFlag(result)

	case bytecode.CMP:
		vm.executeCmp(a1, a2)

	case bytecode.LOAD:
		src, err := vm.reg(a2)
		if err != nil {
			vm.fail(err)
			return
		}
		if err := vm.setReg(a1, src); err != nil {
			vm.fail(err)
		}

	case bytecode.LOADI:
		if err := vm.setReg(a1, int32(a2)); err != nil {
			vm.fail(err)
		}

	case bytecode.LOADI16:
		if err := vm.setReg(a1, int32(instr.Imm)); err != nil {
			vm.fail(err)
		}

	case bytecode.STORE:
		addr, err := vm.reg(a1)
		if err != nil {
			vm.fail(err)
			return
		}
		val, err := vm.reg(a2)
		if err != nil {
			vm.fail(err)
			return
		}
		if addr < 0 || int(addr) >= HeapSize {
			vm.fail(fmt.Errorf("%w: address %d", errHeapOutOfBounds, addr))
			return
		}
		vm.heap[addr] = byte(val)

	case bytecode.LOADM:
		addr, err := vm.reg(a2)
		if err != nil {
			vm.fail(err)
			return
		}
		if addr < 0 || int(addr) >= HeapSize {
			vm.fail(fmt.Errorf("%w: address %d", errHeapOutOfBounds, addr))
			return
		}
		if err := vm.setReg(a1, int32(vm.heap[addr])); err != nil {
			vm.fail(err)
		}

	case bytecode.PUSH:
		v, err := vm.reg(a1)
		if err != nil {
			vm.fail(err)
			return
		}
		if err := vm.push(4, uint32(v)); err != nil {
			vm.fail(err)
		}

	case bytecode.POP:
		v, err := vm.pop(4)
		if err != nil {
			vm.fail(err)
			return
		}
		if err := vm.setReg(a1, int32(v)); err != nil {
			vm.fail(err)
		}

	case bytecode.JMP:
		vm.pc = jumpTarget(a1, a2)
	case bytecode.JZ:
		if vm.flags.Zero {
			vm.pc = jumpTarget(a1, a2)
		}
	case bytecode.JNZ:
		if !vm.flags.Zero {
			vm.pc = jumpTarget(a1, a2)
		}
	case bytecode.JLT:
		if vm.flags.Lt {
			vm.pc = jumpTarget(a1, a2)
		}
	case bytecode.JGT:
		if vm.flags.Gt {
			vm.pc = jumpTarget(a1, a2)
		}
	case bytecode.JLE:
		if vm.flags.Le {
			vm.pc = jumpTarget(a1, a2)
		}
	case bytecode.JGE:
		if vm.flags.Ge {
			vm.pc = jumpTarget(a1, a2)
		}

	case bytecode.CALL:
		if err := vm.push(2, uint32(vm.pc)); err != nil {
			vm.fail(err)
			return
		}
		vm.pc = jumpTarget(a1, a2)

	case bytecode.RET:
		addr, err := vm.pop(2)
		if err != nil {
			vm.fail(err)
			return
		}
		vm.pc = int(addr)

	case bytecode.HALT:
		vm.halted = true

	case bytecode.TRAP:
		vm.executeTrap(a1)

	default:
		vm.fail(errUnknownOpcode)
	}
}

func (vm *VM) executeALU(op bytecode.Op, a1, a2 byte) {
	lhs, err := vm.reg(a1)
	if err != nil {
		vm.fail(err)
		return
	}
	rhs, err := vm.reg(a2)
	if err != nil {
		vm.fail(err)
		return
	}

	var result int32
	switch op {
	case bytecode.ADD:
		result = lhs + rhs
	case bytecode.SUB:
		result = lhs - rhs
	case bytecode.MUL:
		result = lhs * rhs
	case bytecode.DIV:
		if rhs == 0 {
			vm.fail(errDivisionByZero)
			return
		}
		result = lhs / rhs
	case bytecode.MOD:
		if rhs == 0 {
			vm.fail(errDivisionByZero)
			return
		}
		result = lhs % rhs
	case bytecode.AND:
		result = lhs & rhs
	case bytecode.OR:
		result = lhs | rhs
	}

	if err := vm.setReg(a1, result); err != nil {
		vm.fail(err)
		return
	}
	vm.registers[0] = result
	vm.setZeroFlag(result)
}

func (vm *VM) executeCmp(a1, a2 byte) {
	lhs, err := vm.reg(a1)
	if err != nil {
		vm.fail(err)
		return
	}
	rhs, err := vm.reg(a2)
	if err != nil {
		vm.fail(err)
		return
	}
	vm.flags = Flags{
		Zero: lhs == rhs,
		Eq:   lhs == rhs,
		Neq:  lhs != rhs,
		Lt:   lhs < rhs,
		Gt:   lhs > rhs,
		Le:   lhs <= rhs,
		Ge:   lhs >= rhs,
	}
}
