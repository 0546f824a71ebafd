// Command rovervm loads a compiled bytecode file and executes it on
// the register virtual machine, optionally under an interactive
// single-step debugger.
package main

import (
	"flag"
	"fmt"
	"os"

	"roverc/vm"
)

var (
	debugVM    = flag.Bool("debug", false, "enter single-step debug mode")
	dumpFinal  = flag.Bool("dump", false, "after running, dump final register and flag state")
	stackBytes = flag.Int("stack", vm.DefaultStackSize, "stack size in bytes")
)

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		fmt.Println("Usage: rovervm [-debug] [-dump] [-stack bytes] <bytecode>")
		return
	}

	program, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	machine := vm.New(program, vm.WithStackSize(*stackBytes), vm.WithPeripherals(vm.ConsolePeripherals{}))

	if *debugVM {
		machine.RunProgramDebugMode()
	} else {
		machine.RunProgram()
	}

	if *dumpFinal {
		fmt.Println("registers>", machine.Registers())
		fmt.Printf("flags> %+v\n", machine.Flags())
	}

	if machine.Err() != nil {
		os.Exit(1)
	}
}
