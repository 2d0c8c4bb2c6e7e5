// Command spyre is the Spyre toolchain driver: compile, assemble, and
// execute, wired through urfave/cli/v2 the way the corpus's other
// VM-shaped projects (neo-go) build their CLI binary.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/DavidWilson4242/spyre/asmgen"
	"github.com/DavidWilson4242/spyre/codegen"
	"github.com/DavidWilson4242/spyre/internal/spyreerr"
	"github.com/DavidWilson4242/spyre/internal/spyrelog"
	"github.com/DavidWilson4242/spyre/parse"
	"github.com/DavidWilson4242/spyre/typecheck"
	"github.com/DavidWilson4242/spyre/vm"
)

func main() {
	app := &cli.App{
		Name:  "spyre",
		Usage: "Spyre language compiler, assembler, and VM",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "c", Usage: "compile source FILE to bytecode"},
			&cli.StringFlag{Name: "a", Usage: "assemble textual assembly FILE to bytecode"},
			&cli.StringFlag{Name: "r", Usage: "execute bytecode FILE"},
			&cli.StringFlag{Name: "o", Usage: "output FILE for -c or -a"},
			&cli.BoolFlag{Name: "debug", Usage: "run under the interactive single-stepper"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run dispatches the five invocation shapes spec.md 6 documents: -c, -a,
// -r, bare FILE (end-to-end), and --help (handled by cli itself).
func run(c *cli.Context) error {
	logger := spyrelog.New(c.Bool("debug"))
	defer logger.Sync()

	compileFile := c.String("c")
	assembleFile := c.String("a")
	runFile := c.String("r")
	out := c.String("o")

	modes := 0
	for _, f := range []string{compileFile, assembleFile, runFile} {
		if f != "" {
			modes++
		}
	}
	if modes > 1 {
		return spyreerr.New(spyreerr.IO, "", 0, "conflicting mode flags: only one of -c, -a, -r may be given")
	}

	switch {
	case compileFile != "":
		if out == "" {
			return spyreerr.New(spyreerr.IO, compileFile, 0, "-o is required with -c")
		}
		return compileToFile(compileFile, out, logger)

	case assembleFile != "":
		if out == "" {
			return spyreerr.New(spyreerr.IO, assembleFile, 0, "-o is required with -a")
		}
		return assembleToFile(assembleFile, out, logger)

	case runFile != "":
		code, err := os.ReadFile(runFile)
		if err != nil {
			return spyreerr.New(spyreerr.IO, runFile, 0, "%s", err)
		}
		return execute(runFile, code, c.Bool("debug"), logger)

	default:
		if c.Args().Len() == 0 {
			return cli.ShowAppHelp(c)
		}
		return runEndToEnd(c.Args().First(), c.Bool("debug"), logger)
	}
}

func compileToFile(srcFile, outFile string, logger *zap.Logger) error {
	code, err := compileSource(srcFile, logger)
	if err != nil {
		return err
	}
	return os.WriteFile(outFile, code, 0644)
}

func assembleToFile(asmFile, outFile string, logger *zap.Logger) error {
	src, err := os.ReadFile(asmFile)
	if err != nil {
		return spyreerr.New(spyreerr.IO, asmFile, 0, "%s", err)
	}
	code, err := asmgen.Assemble(asmFile, string(src))
	if err != nil {
		return err
	}
	logger.Debug("assembled", zap.String("file", asmFile), zap.Int("bytes", len(code)))
	return os.WriteFile(outFile, code, 0644)
}

// compileSource runs the full front end: lex (inside parse) -> parse ->
// typecheck -> emit -> assemble.
func compileSource(srcFile string, logger *zap.Logger) ([]byte, error) {
	src, err := os.ReadFile(srcFile)
	if err != nil {
		return nil, spyreerr.New(spyreerr.IO, srcFile, 0, "%s", err)
	}
	res, err := parse.Source(srcFile, string(src))
	if err != nil {
		return nil, err
	}
	if err := typecheck.Check(srcFile, res); err != nil {
		return nil, err
	}
	asm, err := codegen.Emit(srcFile, res)
	if err != nil {
		return nil, err
	}
	logger.Debug("emitted assembly", zap.String("file", srcFile), zap.Int("bytes", len(asm)))
	code, err := asmgen.Assemble(srcFile, asm)
	if err != nil {
		return nil, err
	}
	return code, nil
}

func runEndToEnd(srcFile string, debug bool, logger *zap.Logger) error {
	code, err := compileSource(srcFile, logger)
	if err != nil {
		return err
	}
	return execute(srcFile, code, debug, logger)
}

// execute runs a bytecode image, registering the driver's runtime bindings
// against vm.Registry. print and print_int are the two cfunc bindings the
// end-to-end scenarios exercise (SPEC_FULL.md's runtime-bindings decision).
func execute(file string, code []byte, debug bool, logger *zap.Logger) error {
	bindings := vm.NewRegistry()
	bindings.Register("print", func(m *vm.VM, nargs int) error {
		v, err := m.PopInt()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(m.Stdout(), v)
		return err
	})
	bindings.Register("print_int", func(m *vm.VM, nargs int) error {
		v, err := m.PopInt()
		if err != nil {
			return err
		}
		_, err = m.Stdout().Write([]byte(strconv.FormatInt(v, 10) + "\n"))
		return err
	})

	machine := vm.New(file, code, bindings, logger)
	if debug {
		return machine.RunDebugMode()
	}
	_, err := machine.Run()
	return err
}
