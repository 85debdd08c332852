package main

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pkg/errors"
)

// Toolchain assembles and links emitted units with nasm and gcc.
type Toolchain struct {
	NASM string // assembler binary, default "nasm"
	CC   string // linker driver, default "gcc"

	// Verbose, when set, receives the commands being run.
	Verbose func(format string, args ...interface{})
}

func (tc *Toolchain) nasm() string {
	if tc.NASM != "" {
		return tc.NASM
	}
	return "nasm"
}

func (tc *Toolchain) cc() string {
	if tc.CC != "" {
		return tc.CC
	}
	return "gcc"
}

// Available reports whether both tools are on PATH.
func (tc *Toolchain) Available() bool {
	if _, err := exec.LookPath(tc.nasm()); err != nil {
		return false
	}
	_, err := exec.LookPath(tc.cc())
	return err == nil
}

// objectFormat is the nasm -f argument for target.
func objectFormat(target Target) string {
	switch {
	case target.Platform == Windows && target.Arch == X86_32:
		return "win32"
	case target.Platform == Windows:
		return "win64"
	case target.Arch == X86_32:
		return "elf32"
	default:
		return "elf64"
	}
}

func (tc *Toolchain) command(ctx context.Context, dir, name string, args ...string) error {
	if tc.Verbose != nil {
		tc.Verbose("%s %v", name, args)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "%s failed\n%s", name, out)
	}
	return nil
}

// Build assembles asm and links it into an executable inside dir, returning
// the executable's path.
func (tc *Toolchain) Build(ctx context.Context, asm string, target Target, dir string) (string, error) {
	src := filepath.Join(dir, "out.asm")
	obj := filepath.Join(dir, "out.o")
	exe := filepath.Join(dir, "a.out")
	if target.Platform == Windows {
		obj = filepath.Join(dir, "out.obj")
		exe = filepath.Join(dir, "a.exe")
	}

	if err := os.WriteFile(src, []byte(asm), 0644); err != nil {
		return "", errors.Wrap(err, "write assembly")
	}
	if err := tc.command(ctx, dir, tc.nasm(), "-f", objectFormat(target), src, "-o", obj); err != nil {
		return "", err
	}

	var ldflags []string
	if target.Platform == Linux {
		ldflags = append(ldflags, "-no-pie")
	}
	if target.Arch == X86_32 {
		ldflags = append(ldflags, "-m32")
	}
	args := append(ldflags, obj, "-o", exe)
	if err := tc.command(ctx, dir, tc.cc(), args...); err != nil {
		return "", err
	}
	return exe, nil
}

// Run builds asm in a temporary directory, executes it and returns the exit
// status, which is the program result truncated to the low 8 bits on Linux.
func (tc *Toolchain) Run(ctx context.Context, asm string, target Target) (int, error) {
	dir, err := os.MkdirTemp("", "bmath")
	if err != nil {
		return 0, errors.Wrap(err, "create build directory")
	}
	defer os.RemoveAll(dir)

	exe, err := tc.Build(ctx, asm, target, dir)
	if err != nil {
		return 0, err
	}

	if tc.Verbose != nil {
		tc.Verbose("running %s", exe)
	}
	err = exec.CommandContext(ctx, exe).Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.ExitCode() < 0 {
			// Killed by a signal, e.g. SIGFPE on division by zero.
			return 0, errors.Wrap(err, "program crashed")
		}
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "run program")
	}
	return 0, nil
}
