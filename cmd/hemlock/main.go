// Command hemlock runs a hemlock source file with the tree-walking
// interpreter (Backend A). Grounded on cmd/langlang/main.go's flag-based
// CLI shape and exit-code conventions, adapted to the interpreter front
// end described by spec.md §6.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/hemlock-lang/hemlock/config"
	"github.com/hemlock-lang/hemlock/interp"
	"github.com/hemlock-lang/hemlock/optimizer"
	"github.com/hemlock-lang/hemlock/parser"
)

const version = "hemlock 0.1.0"

func main() {
	stackDepth := flag.Int("stack-depth", 0, "maximum call-stack depth (0 = use the default)")
	profile := flag.Bool("profile", false, "emit per-call-frame debug traces")
	noOptimize := flag.Bool("no-optimize", false, "skip the AST optimizer pass")
	showVersion := flag.Bool("version", false, "print version and exit")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: hemlock <file.hml> [--stack-depth N] [--profile] [--no-optimize]")
		os.Exit(2)
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

	cfg := config.New()
	if *noOptimize {
		cfg.Compiler.Optimize = 0
	}
	if *profile || *verbose {
		cfg.Interp.Profile = true
	}

	if cfg.Compiler.Optimize > 0 {
		stmts, _ = optimizer.New().OptimizeProgram(stmts)
	}

	it := interp.New(file)
	if *stackDepth > 0 {
		it.MaxStackDepth = *stackDepth
	} else {
		it.MaxStackDepth = cfg.Interp.MaxCallDepth
	}
	if cfg.Interp.Profile {
		it.Log.SetLevel(logrus.DebugLevel)
	}

	if err := it.Run(stmts); err != nil {
		if exc, ok := err.(*interp.HemlockException); ok {
			fmt.Fprintf(os.Stderr, "error: %s: %s\n", file, exc.Error())
			fmt.Fprint(os.Stderr, it.FormatStackTrace())
			os.Exit(1)
		}
		it.Log.WithField("component", "hemlock").Error(err)
		os.Exit(2)
	}
}
