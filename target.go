package main

import (
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

// Arch selects the word width of the generated code.
type Arch int

const (
	X86_64 Arch = iota
	X86_32
)

// Platform selects the host environment. It only affects how the entry
// symbol is linked and which object format the toolchain driver asks for.
type Platform int

const (
	Linux Platform = iota
	Windows
)

// Target is the configuration for one emission.
type Target struct {
	Arch     Arch
	Platform Platform
}

func (a Arch) String() string {
	if a == X86_32 {
		return "x86-32"
	}
	return "x86-64"
}

// WordSize is the register and storage slot size in bytes.
func (a Arch) WordSize() int {
	if a == X86_32 {
		return 4
	}
	return 8
}

func (p Platform) String() string {
	if p == Windows {
		return "windows"
	}
	return "linux"
}

func (t Target) String() string {
	return t.Platform.String() + "/" + t.Arch.String()
}

// EntrySymbol is the name of the routine the C runtime calls. 32-bit
// Windows decorates cdecl names with a leading underscore.
func (t Target) EntrySymbol() string {
	if t.Platform == Windows && t.Arch == X86_32 {
		return "_main"
	}
	return "main"
}

// ParseArch accepts x86-64, amd64, 64, x86-32, 386, i386, 32.
func ParseArch(s string) (Arch, error) {
	switch strings.ToLower(s) {
	case "x86-64", "x86_64", "amd64", "x64", "64":
		return X86_64, nil
	case "x86-32", "x86_32", "x86", "386", "i386", "32":
		return X86_32, nil
	default:
		return X86_64, errors.Errorf("unknown architecture %q", s)
	}
}

// ParsePlatform accepts linux and windows.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(s) {
	case "linux":
		return Linux, nil
	case "windows", "win", "win32", "win64":
		return Windows, nil
	default:
		return Linux, errors.Errorf("unknown platform %q", s)
	}
}

// DefaultTarget describes the machine the compiler is running on.
func DefaultTarget() Target {
	t := Target{Arch: X86_64, Platform: Linux}
	if runtime.GOOS == "windows" {
		t.Platform = Windows
	}
	if runtime.GOARCH == "386" {
		t.Arch = X86_32
	}
	return t
}
