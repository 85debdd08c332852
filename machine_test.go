package main

import (
	"strconv"
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/pkg/errors"
)

// machine interprets the subset of NASM that the emitter produces, so tests
// can check what generated code computes without an assembler.
type machine struct {
	width int // 4 or 8

	regs  map[string]int64 // a, b, c, d, bp
	stack []int64          // rsp is len(stack)
	mem   map[string]int64

	entry string
	code  [][]string // mnemonic followed by operands
}

type register struct {
	name string
	size int
}

var machineRegisters = map[string]register{
	"rax": {"a", 8}, "eax": {"a", 4},
	"rbx": {"b", 8}, "ebx": {"b", 4},
	"rcx": {"c", 8}, "ecx": {"c", 4},
	"rdx": {"d", 8}, "edx": {"d", 4},
	"rbp": {"bp", 8}, "ebp": {"bp", 4},
	"rsp": {"sp", 8}, "esp": {"sp", 4},
}

// loadMachine parses asm. It rejects what an assembler would reject for our
// output: duplicate symbols, mismatched word sizes, missing entry label.
func loadMachine(asm string, width int) (*machine, error) {
	m := &machine{
		width: width,
		regs:  map[string]int64{},
		mem:   map[string]int64{},
	}
	reserve := "resq"
	if width == 4 {
		reserve = "resd"
	}

	section := ""
	global := ""
	labels := map[string]bool{}
	for i, raw := range strings.Split(asm, "\n") {
		line := raw
		if semi := strings.IndexByte(line, ';'); semi >= 0 {
			line = line[:semi]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "section":
			section = fields[1]
			continue
		case "default":
			continue
		case "global":
			global = fields[1]
			continue
		}

		if section == ".bss" {
			// name: resq 1
			if len(fields) != 3 || !strings.HasSuffix(fields[0], ":") || fields[2] != "1" {
				return nil, errors.Errorf("line %d: bad storage declaration %q", i+1, line)
			}
			if fields[1] != reserve {
				return nil, errors.Errorf("line %d: %s in %d-byte code", i+1, fields[1], width)
			}
			name := symbolName(strings.TrimSuffix(fields[0], ":"))
			if _, dup := m.mem[name]; dup {
				return nil, errors.Errorf("line %d: symbol `%s' redefined", i+1, name)
			}
			m.mem[name] = 0
			continue
		}

		if section != ".text" {
			return nil, errors.Errorf("line %d: %q outside any section", i+1, line)
		}
		if strings.HasSuffix(line, ":") {
			label := strings.TrimSuffix(line, ":")
			labels[label] = true
			if m.entry == "" {
				m.entry = label
			}
			continue
		}

		ins := []string{fields[0]}
		if rest := strings.TrimSpace(strings.TrimPrefix(line, fields[0])); rest != "" {
			for _, op := range strings.Split(rest, ",") {
				ins = append(ins, strings.TrimSpace(op))
			}
		}
		m.code = append(m.code, ins)
	}

	if global == "" || !labels[global] {
		return nil, errors.Errorf("entry symbol %q not defined", global)
	}
	return m, nil
}

func symbolName(s string) string {
	return strings.TrimPrefix(s, "$")
}

func (m *machine) reg(name string) (register, error) {
	r, ok := machineRegisters[name]
	if !ok {
		return register{}, errors.Errorf("unknown register %q", name)
	}
	if r.size > m.width {
		return register{}, errors.Errorf("%s used in %d-byte code", name, m.width)
	}
	return r, nil
}

func (m *machine) readReg(r register) int64 {
	if r.name == "sp" {
		return int64(len(m.stack))
	}
	v := m.regs[r.name]
	if r.size == 4 {
		return int64(int32(v))
	}
	return v
}

func (m *machine) writeReg(r register, v int64) error {
	if r.size == 4 {
		if m.width == 8 {
			// Writing a 32-bit register zero-extends into the 64-bit one.
			v = int64(uint32(v))
		} else {
			v = int64(int32(v))
		}
	}
	if r.name == "sp" {
		if v < 0 || v > int64(len(m.stack)) {
			return errors.Errorf("stack pointer out of range: %d", v)
		}
		m.stack = m.stack[:v]
		return nil
	}
	m.regs[r.name] = v
	return nil
}

func (m *machine) read(op string) (int64, error) {
	if strings.HasPrefix(op, "[") {
		name := symbolName(strings.Trim(op, "[]"))
		v, ok := m.mem[name]
		if !ok {
			return 0, errors.Errorf("symbol `%s' not defined", name)
		}
		return v, nil
	}
	if r, err := m.reg(op); err == nil {
		return m.readReg(r), nil
	} else if _, known := machineRegisters[op]; known {
		return 0, err
	}
	v, err := strconv.ParseInt(op, 10, 64)
	if err != nil {
		return 0, errors.Errorf("bad operand %q", op)
	}
	return v, nil
}

func (m *machine) write(op string, v int64) error {
	if strings.HasPrefix(op, "[") {
		name := symbolName(strings.Trim(op, "[]"))
		if _, ok := m.mem[name]; !ok {
			return errors.Errorf("symbol `%s' not defined", name)
		}
		if m.width == 4 {
			v = int64(int32(v))
		}
		m.mem[name] = v
		return nil
	}
	r, err := m.reg(op)
	if err != nil {
		return err
	}
	return m.writeReg(r, v)
}

// wrap truncates an arithmetic result to the machine word.
func (m *machine) wrap(v int64) int64 {
	if m.width == 4 {
		return int64(int32(v))
	}
	return v
}

// run executes from the entry label to ret and returns eax.
func (m *machine) run() (int32, error) {
	for pc, ins := range m.code {
		op := ins[0]
		args := ins[1:]
		fail := func(err error) (int32, error) {
			return 0, errors.Wrapf(err, "instruction %d (%s)", pc, strings.Join(ins, " "))
		}

		switch op {
		case "push":
			v, err := m.read(args[0])
			if err != nil {
				return fail(err)
			}
			m.stack = append(m.stack, v)
		case "pop":
			if len(m.stack) == 0 {
				return fail(errors.New("stack underflow"))
			}
			v := m.stack[len(m.stack)-1]
			m.stack = m.stack[:len(m.stack)-1]
			if err := m.write(args[0], v); err != nil {
				return fail(err)
			}
		case "mov":
			v, err := m.read(args[1])
			if err != nil {
				return fail(err)
			}
			if err := m.write(args[0], v); err != nil {
				return fail(err)
			}
		case "add", "sub", "imul", "xor":
			a, err := m.read(args[0])
			if err != nil {
				return fail(err)
			}
			b, err := m.read(args[1])
			if err != nil {
				return fail(err)
			}
			var v int64
			switch op {
			case "add":
				v = a + b
			case "sub":
				v = a - b
			case "imul":
				v = a * b
			case "xor":
				v = a ^ b
			}
			if err := m.write(args[0], m.wrap(v)); err != nil {
				return fail(err)
			}
		case "cqo", "cdq":
			if (op == "cqo") != (m.width == 8) {
				return fail(errors.Errorf("%s in %d-byte code", op, m.width))
			}
			m.regs["d"] = 0
			if m.wrap(m.regs["a"]) < 0 {
				m.regs["d"] = m.wrap(-1)
			}
		case "idiv":
			divisor, err := m.read(args[0])
			if err != nil {
				return fail(err)
			}
			dividend := m.wrap(m.regs["a"])
			if divisor == 0 {
				return fail(errors.New("division by zero"))
			}
			if divisor == -1 && m.wrap(dividend) == m.wrap(-dividend) && dividend != 0 {
				return fail(errors.New("division overflow"))
			}
			m.regs["a"] = m.wrap(dividend / divisor)
			m.regs["d"] = m.wrap(dividend % divisor)
		case "ret":
			if len(m.stack) != 0 {
				return fail(errors.Errorf("returning with %d words left on the stack", len(m.stack)))
			}
			return int32(m.regs["a"]), nil
		default:
			return fail(errors.Errorf("unsupported instruction %q", op))
		}
	}
	return 0, errors.New("fell off the end without ret")
}

// runAsm loads and runs asm for target.
func runAsm(asm string, target Target) (int32, error) {
	m, err := loadMachine(asm, target.Arch.WordSize())
	if err != nil {
		return 0, err
	}
	return m.run()
}

// evalSource compiles src for target and runs it on the test machine.
func evalSource(t *testing.T, src string, target Target) int32 {
	t.Helper()
	_, asm, _ := Compile(src, target)
	result, err := runAsm(asm, target)
	if err != nil {
		t.Logf("assembly:\n%s", asm)
	}
	be.Err(t, err, nil)
	return result
}

func TestMachineRejectsBadAssembly(t *testing.T) {
	tests := []struct {
		name string
		asm  string
		want string
	}{
		{"no entry", "section .text\nglobal main\n  ret\n", "entry symbol"},
		{"duplicate slot", "section .text\nglobal main\nmain:\n  ret\nsection .bss\na: resq 1\na: resq 1\n", "redefined"},
		{"wrong slot size", "section .text\nglobal main\nmain:\n  ret\nsection .bss\na: resd 1\n", "resd in 8-byte code"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := loadMachine(test.asm, 8)
			be.Err(t, err, test.want)
		})
	}
}

func TestMachineRuntimeFaults(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"undeclared", "  mov rax, [$x]\n  ret\n", "symbol `x' not defined"},
		{"underflow", "  pop rbx\n  ret\n", "stack underflow"},
		{"unbalanced", "  push rax\n  ret\n", "left on the stack"},
		{"divide by zero", "  mov rax, 1\n  mov rcx, 0\n  cqo\n  idiv rcx\n  ret\n", "division by zero"},
		{"no ret", "  mov rax, 1\n", "without ret"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := runAsm("section .text\nglobal main\nmain:\n"+test.body, Target{Arch: X86_64})
			be.Err(t, err, test.want)
		})
	}
}

func TestMachineRejectsWideRegistersIn32BitCode(t *testing.T) {
	asm := "section .text\nglobal main\nmain:\n  mov rax, 1\n  ret\n"
	_, err := runAsm(asm, Target{Arch: X86_32})
	be.Err(t, err, "rax used in 4-byte code")
}
