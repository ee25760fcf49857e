package intcode

import (
	"fmt"
	"strings"
)

// Opcode is the operation selector held in the low two decimal digits of an
// instruction word.
type Opcode int64

// Operation codes.
const (
	OpAdd         Opcode = 1  // dst = a + b
	OpMultiply    Opcode = 2  // dst = a * b
	OpInput       Opcode = 3  // dst = next input
	OpOutput      Opcode = 4  // emit a
	OpJumpIfTrue  Opcode = 5  // if a != 0 { ip = target }
	OpJumpIfFalse Opcode = 6  // if a == 0 { ip = target }
	OpLessThan    Opcode = 7  // dst = a < b
	OpEquals      Opcode = 8  // dst = a == b
	OpAdjustBase  Opcode = 9  // relative base += a
	OpHalt        Opcode = 99 // terminate
)

// Mode selects how a parameter is interpreted.
type Mode uint8

// Parameter modes.
const (
	ModePosition  Mode = 0 // Parameter is an address
	ModeImmediate Mode = 1 // Parameter is the value itself
	ModeRelative  Mode = 2 // Parameter is an offset from the relative base
)

// MaxParams is the largest number of parameters any instruction takes.
const MaxParams = 3

var opcodeNames = map[Opcode]string{
	OpAdd:         "add",
	OpMultiply:    "mul",
	OpInput:       "in",
	OpOutput:      "out",
	OpJumpIfTrue:  "jnz",
	OpJumpIfFalse: "jz",
	OpLessThan:    "lt",
	OpEquals:      "eq",
	OpAdjustBase:  "arb",
	OpHalt:        "halt",
}

// Params returns the number of parameters the opcode consumes.
func (op Opcode) Params() int {
	switch op {
	case OpAdd, OpMultiply, OpLessThan, OpEquals:
		return 3
	case OpJumpIfTrue, OpJumpIfFalse:
		return 2
	case OpInput, OpOutput, OpAdjustBase:
		return 1
	default:
		return 0
	}
}

// Width returns the number of words the instruction occupies.
func (op Opcode) Width() int64 {
	return int64(op.Params()) + 1
}

// Valid reports whether op is part of the instruction set.
func (op Opcode) Valid() bool {
	_, ok := opcodeNames[op]
	return ok
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", int64(op))
}

func (m Mode) String() string {
	switch m {
	case ModePosition:
		return "position"
	case ModeImmediate:
		return "immediate"
	case ModeRelative:
		return "relative"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// Instruction is a decoded instruction word.
type Instruction struct {
	Op    Opcode
	Modes [MaxParams]Mode
}

// Decode splits an instruction word into its opcode and parameter modes.
//
// Mode digits above the opcode default to position mode, so a bare one or
// two digit word decodes with every parameter in position mode. An opcode
// outside the instruction set yields ErrUnknownOpcode; a mode digit other
// than 0, 1 or 2 yields ErrUnknownMode.
func Decode(word int64) (Instruction, error) {
	var ins Instruction
	if word < 0 {
		return ins, fmt.Errorf("%w: negative instruction word %d", ErrUnknownOpcode, word)
	}

	ins.Op = Opcode(word % 100)
	if !ins.Op.Valid() {
		return ins, fmt.Errorf("%w: %d", ErrUnknownOpcode, word)
	}

	// Bare opcodes are the common case.
	if word < 100 {
		return ins, nil
	}

	modes := word / 100
	for i := 0; i < MaxParams; i++ {
		m := Mode(modes % 10)
		if m > ModeRelative {
			return ins, fmt.Errorf("%w: digit %d of word %d", ErrUnknownMode, m, word)
		}
		ins.Modes[i] = m
		modes /= 10
	}
	if modes != 0 {
		return ins, fmt.Errorf("%w: word %d has more than %d mode digits", ErrUnknownMode, word, MaxParams)
	}
	return ins, nil
}

// Encode builds an instruction word from an opcode and parameter modes.
func Encode(op Opcode, modes ...Mode) int64 {
	word := int64(op)
	scale := int64(100)
	for _, m := range modes {
		word += int64(m) * scale
		scale *= 10
	}
	return word
}

// Disassemble renders a listing of program, one instruction per line.
//
// Words that do not decode are printed as data. The listing is a linear
// sweep and cannot tell code from data that happens to decode.
func Disassemble(program []int64) string {
	var sb strings.Builder
	for pc := 0; pc < len(program); {
		ins, err := Decode(program[pc])
		if err != nil {
			fmt.Fprintf(&sb, "%04d  .word %d\n", pc, program[pc])
			pc++
			continue
		}

		fmt.Fprintf(&sb, "%04d  %s", pc, ins.Op)
		n := ins.Op.Params()
		for i := 0; i < n; i++ {
			if pc+1+i >= len(program) {
				sb.WriteString(" ?")
				continue
			}
			v := program[pc+1+i]
			switch ins.Modes[i] {
			case ModeImmediate:
				fmt.Fprintf(&sb, " #%d", v)
			case ModeRelative:
				fmt.Fprintf(&sb, " rb%+d", v)
			default:
				fmt.Fprintf(&sb, " [%d]", v)
			}
		}
		sb.WriteByte('\n')
		pc += 1 + n
	}
	return sb.String()
}
