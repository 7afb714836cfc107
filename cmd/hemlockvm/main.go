// Command hemlockvm is the spec's third external interface,
// `hemlockvm [--disasm|--trace] [file.hml]`. Its own bytecode execution
// model is out of scope (spec.md §1/§2 excludes the VM from the core
// budget), so this shell currently delegates execution to the tree-
// walking interpreter, per SPEC_FULL.md's "hemlockvm" supplement note.
// --disasm prints the generated C translation unit instead of running
// it, as the closest available stand-in for a bytecode listing; --trace
// turns on the interpreter's debug-level call tracing.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/hemlock-lang/hemlock/ccodegen"
	"github.com/hemlock-lang/hemlock/config"
	"github.com/hemlock-lang/hemlock/interp"
	"github.com/hemlock-lang/hemlock/optimizer"
	"github.com/hemlock-lang/hemlock/parser"
	"github.com/hemlock-lang/hemlock/types"
)

func main() {
	cfg := config.New()
	disasm := flag.Bool("disasm", false, "print the lowered C translation unit instead of running")
	trace := flag.Bool("trace", false, "enable debug-level execution tracing")
	noOptimize := flag.Bool("no-optimize", cfg.Compiler.Optimize == 0, "skip the AST optimizer pass")
	flag.Parse()

	if flag.NArg() < 1 {
		repl(*trace)
		return
	}
	file := flag.Arg(0)

	src, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}

	stmts, diags := parser.Parse(file, src)
	if diags.Count() > 0 {
		fmt.Fprint(os.Stderr, diags.String())
		os.Exit(1)
	}

	if !*noOptimize {
		stmts, _ = optimizer.New().OptimizeProgram(stmts)
	}

	if *disasm {
		program := types.Analyze(stmts)
		gen := ccodegen.NewCodegen(file, program)
		fmt.Print(gen.Generate(stmts))
		if gen.Diagnostics().Count() > 0 {
			fmt.Fprint(os.Stderr, gen.Diagnostics().String())
			os.Exit(1)
		}
		return
	}

	it := interp.New(file)
	if *trace {
		it.Log.SetLevel(logrus.DebugLevel)
	}
	if err := it.Run(stmts); err != nil {
		if exc, ok := err.(*interp.HemlockException); ok {
			fmt.Fprintf(os.Stderr, "error: %s: %s\n", file, exc.Error())
			fmt.Fprint(os.Stderr, it.FormatStackTrace())
			os.Exit(1)
		}
		it.Log.WithField("component", "hemlockvm").Error(err)
		os.Exit(2)
	}
}

func repl(trace bool) {
	it := interp.New("<repl>")
	if trace {
		it.Log.SetLevel(logrus.DebugLevel)
	}
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		line := scanner.Text()
		stmts, diags := parser.Parse("<repl>", []byte(line))
		if diags.Count() > 0 {
			fmt.Fprint(os.Stderr, diags.String())
			fmt.Print("> ")
			continue
		}
		if err := it.Run(stmts); err != nil {
			fmt.Fprintln(os.Stderr, "error: "+err.Error())
		}
		fmt.Print("> ")
	}
}
