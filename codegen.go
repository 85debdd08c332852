package main

import (
	"fmt"
	"strings"
)

// registers names the machine registers for one word width.
type registers struct {
	acc     string // accumulator: value of the last evaluated subexpression
	sec     string // secondary: the saved left operand
	scratch string
	rem     string // high half of the dividend, remainder after idiv
	bp      string
	sp      string
	signExt string // sign-extends acc into rem:acc
	reserve string // NASM directive reserving one word
}

var registers64 = registers{
	acc: "rax", sec: "rbx", scratch: "rcx", rem: "rdx",
	bp: "rbp", sp: "rsp", signExt: "cqo", reserve: "resq",
}

var registers32 = registers{
	acc: "eax", sec: "ebx", scratch: "ecx", rem: "edx",
	bp: "ebp", sp: "esp", signExt: "cdq", reserve: "resd",
}

// Emitter generates NASM assembly for one translation unit. The result of
// every expression is left in the accumulator; the left operand of a binary
// operation is kept on the stack while the right operand is evaluated.
type Emitter struct {
	target   Target
	regs     registers
	text     strings.Builder
	bss      strings.Builder
	declared VarSet

	Errors ErrorList
}

// NewEmitter creates an emitter for target.
func NewEmitter(target Target) *Emitter {
	e := &Emitter{
		target:   target,
		regs:     registers64,
		declared: VarSet{},
	}
	if target.Arch == X86_32 {
		e.regs = registers32
	}
	return e
}

// Emit translates ast for target. It never fails; see EmitWithErrors for the
// substitutions it made on malformed trees.
func Emit(ast Node, target Target) string {
	asm, _ := EmitWithErrors(ast, target)
	return asm
}

// EmitWithErrors is Emit plus the diagnostics recorded while emitting.
func EmitWithErrors(ast Node, target Target) (string, *ErrorList) {
	e := NewEmitter(target)
	for _, name := range CollectVariables(ast).Sorted() {
		e.Declare(name)
	}
	e.Gen(ast)
	return e.String(), &e.Errors
}

func (e *Emitter) line(format string, args ...interface{}) {
	e.text.WriteString("  ")
	fmt.Fprintf(&e.text, format, args...)
	e.text.WriteByte('\n')
}

// storageLabel returns the assembler label for a variable. The $ prefix makes
// NASM read register names and mnemonics as plain symbols; only a clash with
// the entry symbol needs renaming.
func (e *Emitter) storageLabel(name string) string {
	if name == e.target.EntrySymbol() {
		name += "_"
	}
	return "$" + name
}

// Declare reserves one word of storage for name. Declaring a name twice is a
// no-op.
func (e *Emitter) Declare(name string) {
	if e.declared.Has(name) {
		return
	}
	e.declared.Add(name)
	fmt.Fprintf(&e.bss, "%s: %s 1\n", e.storageLabel(name), e.regs.reserve)
}

// Declared reports whether name has a storage slot.
func (e *Emitter) Declared(name string) bool {
	return e.declared.Has(name)
}

// zero is the neutral value substituted for anything that cannot be
// evaluated.
func (e *Emitter) zero() {
	e.line("xor %s, %s", e.regs.acc, e.regs.acc)
}

func (e *Emitter) fallback(pos Pos, format string, args ...interface{}) {
	e.Errors.Add(pos, format, args...)
	e.zero()
}

// Gen emits code that leaves the value of n in the accumulator.
func (e *Emitter) Gen(n Node) {
	r := e.regs
	switch t := n.(type) {
	case *Literal:
		if t.Token == nil {
			e.fallback(Pos{}, "missing operand")
			return
		}
		switch t.Token.Kind {
		case NumberLiteral:
			e.line("mov %s, %s", r.acc, t.Token.Text)
		case Identifier:
			// Storage normally comes from the pre-pass; a tree built by hand
			// may reference a name that was never collected.
			e.Declare(t.Token.Text)
			e.line("mov %s, [%s]", r.acc, e.storageLabel(t.Token.Text))
		default:
			e.fallback(t.Token.Pos, "%s literal %q has no integer value", t.Token.Kind, t.Token.Text)
		}

	case *BinaryOp:
		if t.Left == nil || t.Right == nil || t.Op.Kind != Symbol {
			e.fallback(t.Op.Pos, "malformed binary operation")
			return
		}
		e.genBinary(t)

	case *Assignment:
		if t.Target.Kind != Identifier || t.Value == nil {
			e.fallback(t.Target.Pos, "malformed assignment")
			return
		}
		e.Declare(t.Target.Text)
		e.Gen(t.Value)
		e.line("mov [%s], %s", e.storageLabel(t.Target.Text), r.acc)

	case *Program:
		if len(t.Statements) == 0 {
			e.zero()
			return
		}
		for _, stmt := range t.Statements {
			e.Gen(stmt)
		}

	default:
		e.fallback(Pos{}, "unknown node %T", n)
	}
}

func (e *Emitter) genBinary(t *BinaryOp) {
	r := e.regs

	e.Gen(t.Left)
	e.line("push %s", r.acc)
	e.Gen(t.Right)
	e.line("pop %s", r.sec) // sec = left, acc = right

	switch t.Op.Text {
	case "+":
		e.line("add %s, %s", r.acc, r.sec)
	case "-":
		e.line("mov %s, %s", r.scratch, r.acc)
		e.line("mov %s, %s", r.acc, r.sec)
		e.line("sub %s, %s", r.acc, r.scratch)
	case "*":
		e.line("imul %s, %s", r.acc, r.sec)
	case "/", "%":
		e.line("mov %s, %s", r.scratch, r.acc)
		e.line("mov %s, %s", r.acc, r.sec)
		e.line("%s", r.signExt)
		e.line("idiv %s", r.scratch)
		if t.Op.Text == "%" {
			e.line("mov %s, %s", r.acc, r.rem)
		}
	default:
		e.fallback(t.Op.Pos, "unknown operator %q", t.Op.Text)
	}
}

// String assembles the full translation unit: the entry routine followed by
// the data section when any variable was declared.
func (e *Emitter) String() string {
	r := e.regs
	entry := e.target.EntrySymbol()

	var out strings.Builder
	out.WriteString("section .text\n")
	if e.target.Arch == X86_64 {
		out.WriteString("default rel\n")
	}
	fmt.Fprintf(&out, "global %s\n", entry)
	fmt.Fprintf(&out, "%s:\n", entry)
	fmt.Fprintf(&out, "  push %s\n  mov %s, %s\n  push %s\n", r.bp, r.bp, r.sp, r.sec)

	out.WriteString(e.text.String())

	// The C ABI returns int in eax on every supported target.
	out.WriteString("  ; function epilogue\n")
	fmt.Fprintf(&out, "  pop %s\n  mov eax, eax\n  mov %s, %s\n  pop %s\n  ret\n", r.sec, r.sp, r.bp, r.bp)

	if e.bss.Len() > 0 {
		out.WriteString("section .bss\n")
		out.WriteString(e.bss.String())
	}
	return out.String()
}
