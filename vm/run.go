package vm

import (
	"bufio"
	"fmt"
	"os"
	"runtime/debug"
	"strconv"
	"strings"

	"roverc/bytecode"
)

// recoverSegfault backstops the explicit bounds checks scattered
// through execute: anything that still manages to panic (a slice
// index we missed) is reported the same way as a normal runtime fault
// rather than crashing the host process.
func (vm *VM) recoverSegfault() func() {
	return func() {
		if r := recover(); r != nil {
			if vm.errcode == nil {
				vm.errcode = fmt.Errorf("segmentation fault at pc %d: %v", vm.pc, r)
			}
			vm.halted = true
		}
	}
}

func (vm *VM) printCurrentState() {
	if vm.pc >= 0 && vm.pc < len(vm.program) {
		lines := bytecode.Disassemble(vm.program[vm.pc:])
		if len(lines) > 0 {
			fmt.Printf("  next instruction> %04X: %s\n", vm.pc, strings.TrimPrefix(lines[0], "0000: "))
		}
	}
	fmt.Println("  registers>", vm.registers)
	fmt.Printf("  flags> %+v\n", vm.flags)
}

func (vm *VM) printProgram() {
	for _, line := range bytecode.Disassemble(vm.program) {
		fmt.Println(" " + line)
	}
}

// RunProgram executes the whole program to completion, disabling the
// garbage collector for the duration of the tight fetch/decode/execute
// loop — the machine allocates nothing during execution aside from the
// stack, which is preallocated, so GC only adds overhead here.
func (vm *VM) RunProgram() {
	key, ok := os.LookupEnv("GOGC")
	if !ok {
		key = "100"
	}
	gcPercent, err := strconv.ParseInt(key, 10, 32)
	if err != nil {
		gcPercent = 100
	}

	defer vm.recoverSegfault()()
	defer debug.SetGCPercent(int(gcPercent))

	debug.SetGCPercent(-1)
	vm.Run()

	if vm.errcode != nil {
		fmt.Fprintln(os.Stderr, vm.errcode)
	}
}

// RunProgramDebugMode runs the program under an interactive,
// breakpoint-aware single-step REPL.
func (vm *VM) RunProgramDebugMode() {
	defer vm.recoverSegfault()()

	fmt.Printf("Commands:\n\tn or next: execute next instruction\n\tr or run: run program\n\tb or break <offset>: break on byte offset (or remove break)\n\tprogram: disassemble\n\n")
	vm.printCurrentState()

	reader := bufio.NewReader(os.Stdin)
	waitForInput := true
	breakAtOffsets := make(map[int]struct{})
	lastBreakOffset := -1

	for {
		line := ""
		if waitForInput {
			fmt.Print("\n->")
			line, _ = reader.ReadString('\n')
			line = strings.ToLower(strings.TrimSpace(line))
		} else {
			curr := vm.pc
			if _, ok := breakAtOffsets[curr]; lastBreakOffset != curr && ok {
				fmt.Println("breakpoint")
				vm.printCurrentState()
				waitForInput = true
				lastBreakOffset = curr
				continue
			}
		}

		switch {
		case !waitForInput || line == "n" || line == "next":
			lastBreakOffset = -1
			vm.Step()
			if waitForInput {
				vm.printCurrentState()
			}
			if vm.halted {
				if vm.errcode != nil {
					fmt.Fprintln(os.Stderr, vm.errcode)
				}
				return
			}
		case line == "program":
			vm.printProgram()
		case line == "r" || line == "run":
			waitForInput = false
		case strings.HasPrefix(line, "b"):
			arg := strings.Join(strings.Split(line, " ")[1:], " ")
			offset, err := strconv.ParseInt(arg, 10, 32)
			if err != nil {
				fmt.Println("Unknown offset:", err)
				continue
			}
			if _, ok := breakAtOffsets[int(offset)]; ok {
				delete(breakAtOffsets, int(offset))
			} else {
				breakAtOffsets[int(offset)] = struct{}{}
			}
		}
	}
}
