// Command hemlockc lowers a hemlock source file to C (Backend B) and,
// unless -c is given, links it against the runtime with a
// platform C compiler. Grounded on cmd/langlang/main.go's flag-based CLI
// shape, adapted to the compiler front end described by spec.md §6 and
// SPEC_FULL.md's "hemlockc -k/--keep-c" supplement.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/hemlock-lang/hemlock/ccodegen"
	"github.com/hemlock-lang/hemlock/config"
	"github.com/hemlock-lang/hemlock/optimizer"
	"github.com/hemlock-lang/hemlock/parser"
	"github.com/hemlock-lang/hemlock/types"
)

const version = "hemlockc 0.1.0"

func main() {
	cfg := config.New()

	output := flag.String("o", "", "output binary path (default: input base name)")
	cOnly := flag.Bool("c", false, "emit C only, do not invoke the C compiler")
	emitC := flag.String("emit-c", "", "also write the generated C to this path")
	keepC := flag.Bool("k", false, "keep the generated .c file beside the output binary")
	flag.BoolVar(keepC, "keep-c", false, "alias of -k")
	astOptimize := flag.Bool("optimize", cfg.Compiler.Optimize > 0, "run the AST optimizer pass before codegen")
	optLevel := flag.Int("O", 1, "optimization level 0-3 passed to the C compiler")
	ccPath := flag.String("cc", cfg.Compiler.CC, "path to the platform C compiler")
	runtimePath := flag.String("runtime", "", "path to the runtime's include/lib directory")
	verbose := flag.Bool("v", false, "enable debug logging")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: hemlockc [options] <file.hml>")
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

	if *astOptimize {
		var stats optimizer.Stats
		stmts, stats = optimizer.New().OptimizeProgram(stmts)
		log.WithField("component", "hemlockc").Debugf(
			"optimizer: %d constants folded, %d booleans simplified, %d strength reductions",
			stats.ConstantsFolded, stats.BooleansSimplified, stats.StrengthReductions)
	}

	program := types.Analyze(stmts)
	gen := ccodegen.NewCodegen(file, program)
	cSource := gen.Generate(stmts)
	if gen.Diagnostics().Count() > 0 {
		fmt.Fprint(os.Stderr, gen.Diagnostics().String())
		os.Exit(1)
	}

	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	outPath := *output
	if outPath == "" {
		outPath = base
	}

	var cPath string
	var cleanup func()
	switch {
	case *emitC != "":
		cPath = *emitC
	case *keepC || *cOnly:
		cPath = outPath + ".c"
	default:
		f, err := os.CreateTemp("", base+"-*.c")
		if err != nil {
			log.WithField("component", "hemlockc").Fatal(err)
		}
		cPath = f.Name()
		f.Close()
		cleanup = func() { os.Remove(cPath) }
	}

	if err := os.WriteFile(cPath, []byte(cSource), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "error: can't write %s: %s\n", cPath, err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	if *cOnly {
		return
	}

	args := []string{"-O" + strconv.Itoa(*optLevel), "-o", outPath, cPath}
	if *runtimePath != "" {
		args = append(args, "-I"+filepath.Join(*runtimePath, "include"), "-L"+filepath.Join(*runtimePath, "lib"), "-lhemlock_runtime")
	}
	log.WithField("component", "hemlockc").Debugf("running %s %s", *ccPath, strings.Join(args, " "))

	cmd := exec.Command(*ccPath, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Exit(exitErr.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: can't run %s: %s\n", *ccPath, err)
		os.Exit(1)
	}
}

