// Command roverc translates a source file into the compact register
// bytecode the rovervm command executes.
package main

import (
	"flag"
	"fmt"
	"os"

	"roverc/bytecode"
	"roverc/compiler"
	"roverc/lang"
	"roverc/semantic"
)

var dumpAsm = flag.Bool("dump", false, "disassemble the compiled program to stdout instead of writing it")

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		fmt.Println("Usage: roverc [-dump] <input> [<output>]")
		return
	}

	input := args[0]
	output := "program.vmcode"
	if len(args) > 1 {
		output = args[1]
	}

	src, err := os.ReadFile(input)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	parser, err := lang.NewParser(string(src))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	prog, err := parser.ParseProgram()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if _, err := semantic.Analyze(prog); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	code, err := compiler.Compile(prog)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *dumpAsm {
		for _, line := range bytecode.Disassemble(code) {
			fmt.Println(line)
		}
		return
	}

	if err := os.WriteFile(output, code, 0644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
