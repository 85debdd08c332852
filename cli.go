package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

func showUsage() {
	fmt.Fprintf(os.Stderr, `bmath - A tiny integer arithmetic compiler emitting NASM assembly

Usage:
    bmath <command> [arguments]

Commands:
    build <file>    Compile a .bm file to assembly
    run <file>      Compile, assemble, link and execute a .bm file
    eval <code>     Compile and execute inline code
    check <file>    Parse a .bm file and report problems
    help            Show this help message

Use "-" as the file to read standard input.

Examples:
    bmath build -o prog.asm prog.bm
    bmath build -arch x86-32 -platform windows prog.bm
    bmath eval 'a = 6 a * 7'
    bmath check prog.bm

Use "bmath <command> -h" for more information about a command.
`)
}

// targetFlags registers -arch and -platform on fs.
type targetFlags struct {
	arch     *string
	platform *string
}

func addTargetFlags(fs *flag.FlagSet) targetFlags {
	def := DefaultTarget()
	return targetFlags{
		arch:     fs.String("arch", def.Arch.String(), "Target architecture: x86-64 or x86-32"),
		platform: fs.String("platform", def.Platform.String(), "Target platform: linux or windows"),
	}
}

func (tf targetFlags) target() (Target, error) {
	arch, err := ParseArch(*tf.arch)
	if err != nil {
		return Target{}, err
	}
	platform, err := ParsePlatform(*tf.platform)
	if err != nil {
		return Target{}, err
	}
	return Target{Arch: arch, Platform: platform}, nil
}

func readSource(filename string) (string, error) {
	var src []byte
	var err error
	if filename == "-" {
		src, err = io.ReadAll(os.Stdin)
	} else {
		src, err = os.ReadFile(filename)
	}
	if err != nil {
		return "", errors.Wrapf(err, "reading %s", filename)
	}
	return string(src), nil
}

func verbosef(verbose bool) func(format string, args ...interface{}) {
	if !verbose {
		return nil
	}
	return func(format string, args ...interface{}) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

func buildCommand(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	output := fs.String("o", "", "Output file path (default: <filename>.asm, stdout for -)")
	verbose := fs.Bool("v", false, "Show verbose compilation details")
	strict := fs.Bool("strict", false, "Fail instead of substituting zero for malformed input")
	tf := addTargetFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: bmath build [-o output] [-arch a] [-platform p] [-strict] [-v] <file>\n")
		fmt.Fprintf(os.Stderr, "Compile a .bm file to NASM assembly\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		os.Exit(1)
	}

	filename := fs.Arg(0)
	target, err := tf.target()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Determine output filename
	outputFile := *output
	if outputFile == "" && filename != "-" {
		outputFile = strings.TrimSuffix(filename, ".bm") + ".asm"
	}

	src, err := readSource(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	asm, err := compileProgram(src, target, *strict, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compilation failed: %v\n", err)
		os.Exit(1)
	}

	if outputFile == "" || outputFile == "-" {
		os.Stdout.WriteString(asm)
		return
	}
	if err := os.WriteFile(outputFile, []byte(asm), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing assembly file %s: %v\n", outputFile, err)
		os.Exit(1)
	}

	fmt.Printf("Wrote assembly to %s\n", outputFile)
}

func runCommand(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Show verbose compilation details")
	strict := fs.Bool("strict", false, "Fail instead of substituting zero for malformed input")
	tf := addTargetFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: bmath run [-arch a] [-platform p] [-strict] [-v] <file>\n")
		fmt.Fprintf(os.Stderr, "Compile and execute a .bm file; the result is printed and used as exit status\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		os.Exit(1)
	}

	src, err := readSource(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(execute(src, tf, *strict, *verbose))
}

func evalCommand(args []string) {
	fs := flag.NewFlagSet("eval", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Show verbose compilation details")
	strict := fs.Bool("strict", false, "Fail instead of substituting zero for malformed input")
	tf := addTargetFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: bmath eval [-arch a] [-platform p] [-strict] [-v] <code>\n")
		fmt.Fprintf(os.Stderr, "Compile and execute inline code\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one code argument\n")
		fs.Usage()
		os.Exit(1)
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "Evaluating: %s\n", fs.Arg(0))
	}
	os.Exit(execute(fs.Arg(0), tf, *strict, *verbose))
}

// execute compiles and runs src, printing the result. It returns the
// process exit status for the command.
func execute(src string, tf targetFlags, strict, verbose bool) int {
	target, err := tf.target()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	asm, err := compileProgram(src, target, strict, verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compilation failed: %v\n", err)
		return 1
	}

	tc := &Toolchain{Verbose: verbosef(verbose)}
	if !tc.Available() {
		fmt.Fprintf(os.Stderr, "Error: nasm and gcc are required to run programs\n")
		return 1
	}

	status, err := tc.Run(context.Background(), asm, target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Execution failed: %v\n", err)
		return 1
	}
	if target.Platform == Windows {
		fmt.Println(int32(status))
	} else {
		// Only the low 8 bits of the status survive on Unix.
		fmt.Println(int8(status))
	}
	return status
}

func checkCommand(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Show verbose checking details")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: bmath check [-v] <file>\n")
		fmt.Fprintf(os.Stderr, "Parse a .bm file and report problems\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		os.Exit(1)
	}

	filename := fs.Arg(0)

	if *verbose {
		fmt.Printf("Checking %s...\n", filename)
	}

	src, err := readSource(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ast, _, errs := Compile(src, DefaultTarget())

	if *verbose {
		fmt.Printf("AST: %s\n", ToSExpr(ast))
		fmt.Printf("Variables: %s\n", strings.Join(CollectVariables(ast).Sorted(), " "))
	}

	if errs.HasErrors() {
		fmt.Printf("Problems in %s:\n%s\n", filename, errs.String())
		os.Exit(1)
	}

	fmt.Printf("%s: no errors found\n", filename)
}

// compileProgram runs the whole pipeline on src. Diagnostics only fail the
// compilation in strict mode; otherwise the neutral substitutions stand.
func compileProgram(src string, target Target, strict, verbose bool) (string, error) {
	ast, asm, errs := Compile(src, target)
	if verbose {
		fmt.Fprintf(os.Stderr, "AST: %s\n", ToSExpr(ast))
	}

	if errs.HasErrors() {
		if strict {
			return "", errors.Wrap(errs.Err(), "strict mode")
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "warnings:\n%s\n", errs.String())
		}
	}
	return asm, nil
}

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "build":
		buildCommand(args)
	case "run":
		runCommand(args)
	case "eval":
		evalCommand(args)
	case "check":
		checkCommand(args)
	case "help", "-h", "--help":
		showUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		showUsage()
		os.Exit(1)
	}
}
