// Package intcode implements the IntCode virtual machine.
//
// IntCode is a register-free machine whose only storage is a tape of signed
// 64-bit words. Instructions live on the same tape as data, so programs may
// rewrite themselves. Each instruction word packs an opcode in its low two
// decimal digits and one addressing mode digit per parameter above that:
//
//	ABCDE
//	  1002  ->  DE = 02 (multiply), C = 0 (position), B = 1 (immediate), A = 0
//
// Three addressing modes exist:
//   - Position (0): the parameter is an address
//   - Immediate (1): the parameter is the operand itself
//   - Relative (2): the parameter is an offset from the relative base
//
// Execution is cooperative. Resume runs instructions until the machine
// produces an output, needs an input it does not have, or stops, and then
// returns a Signal describing why. All state lives in the Machine, so a
// suspended machine can be resumed at any later time, or checkpointed with
// State and rebuilt with Restore.
package intcode

import (
	"errors"
	"fmt"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("intcode")

// Errors.
var (
	ErrUnknownOpcode      = errors.New("unknown opcode")
	ErrUnknownMode        = errors.New("unknown parameter mode")
	ErrNegativeAddress    = errors.New("negative address")
	ErrMemoryLimit        = errors.New("memory limit exceeded")
	ErrStepBudgetExceeded = errors.New("step budget exceeded")
	ErrMalformedProgram   = errors.New("malformed program")
	ErrAwaitingInput      = errors.New("machine awaiting input")
	ErrFault              = errors.New("machine fault")
)

// Status describes what a machine is doing, or why Resume returned.
type Status uint8

// Machine states. Only StatusRunning is never returned from Resume.
const (
	StatusRunning       Status = iota // Resumable
	StatusOutput                      // Produced a value, resumable
	StatusAwaitingInput               // Input queue exhausted, resumable
	StatusHalted                      // Executed halt, terminal
	StatusUnknownOpcode               // Decoded an undefined opcode, terminal
	StatusFault                       // Any other execution fault, terminal
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusOutput:
		return "output"
	case StatusAwaitingInput:
		return "awaiting-input"
	case StatusHalted:
		return "halted"
	case StatusUnknownOpcode:
		return "unknown-opcode"
	case StatusFault:
		return "fault"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Terminal reports whether no further progress is possible.
func (s Status) Terminal() bool {
	return s == StatusHalted || s == StatusUnknownOpcode || s == StatusFault
}

// Signal is the result of a single Resume call.
type Signal struct {
	Status Status
	Value  int64 // Set when Status is StatusOutput
}

func (s Signal) String() string {
	if s.Status == StatusOutput {
		return fmt.Sprintf("output(%d)", s.Value)
	}
	return s.Status.String()
}

// Options configures a machine.
type Options struct {
	// MaxSteps bounds the number of executed instructions over the machine's
	// lifetime. Zero means unlimited.
	MaxSteps uint64

	// MemoryLimit bounds the tape length in words.
	// Zero means DefaultMemoryLimit.
	MemoryLimit int64
}

// DefaultOptions returns options with no step budget and the default
// memory limit.
func DefaultOptions() Options {
	return Options{
		MaxSteps:    0,
		MemoryLimit: DefaultMemoryLimit,
	}
}

// Machine is an IntCode virtual machine.
//
// A Machine is not safe for concurrent use. Independent machines share
// nothing and may run on separate goroutines.
type Machine struct {
	mem *Memory
	ip  int64 // Instruction pointer
	rb  int64 // Relative base

	input  []int64 // Every value ever pushed
	cursor int     // Index of the next unconsumed input
	output []int64 // Every value ever emitted

	meter *StepMeter

	status Status // StatusRunning or a terminal status
	err    error  // Cause of a terminal status other than halt
}

// New creates a machine running a copy of program with an initial input
// queue.
func New(program []int64, input ...int64) *Machine {
	return NewWithOptions(program, DefaultOptions(), input...)
}

// NewWithOptions creates a machine with explicit options.
func NewWithOptions(program []int64, opts Options, input ...int64) *Machine {
	m := &Machine{
		mem:   NewMemory(program, opts.MemoryLimit),
		meter: NewStepMeter(opts.MaxSteps),
	}
	m.Push(input...)
	return m
}

// Push appends values to the input queue. It may be called at any time,
// including while the machine is suspended awaiting input.
func (m *Machine) Push(values ...int64) {
	m.input = append(m.input, values...)
}

// Resume runs the machine until it produces an output, runs out of input,
// or stops.
//
// On StatusAwaitingInput the pending input instruction is not consumed; it
// executes again on the next Resume after more input has been pushed.
// Terminal statuses are sticky: resuming a stopped machine returns the same
// signal and error again without touching any state. The error is non-nil
// only for StatusUnknownOpcode and StatusFault.
func (m *Machine) Resume() (sig Signal, err error) {
	if m.status.Terminal() {
		return Signal{Status: m.status}, m.err
	}

	defer func() {
		if rec := recover(); rec != nil {
			sig, err = m.stop(StatusFault, fmt.Errorf("%w: vm panic at %d: %v", ErrFault, m.ip, rec))
		}
	}()

	for {
		word, err := m.mem.Read(m.ip)
		if err != nil {
			return m.stop(StatusFault, err)
		}

		ins, err := Decode(word)
		if err != nil {
			if errors.Is(err, ErrUnknownOpcode) {
				return m.stop(StatusUnknownOpcode, fmt.Errorf("%w at %d", err, m.ip))
			}
			return m.stop(StatusFault, fmt.Errorf("%w at %d", err, m.ip))
		}

		// Starvation is checked before metering so that retries are free.
		if ins.Op == OpInput && m.cursor >= len(m.input) {
			return Signal{Status: StatusAwaitingInput}, nil
		}

		if err := m.meter.Consume(); err != nil {
			return m.stop(StatusFault, fmt.Errorf("%w: %d steps at %d", err, m.meter.Limit(), m.ip))
		}

		switch ins.Op {
		case OpAdd, OpMultiply, OpLessThan, OpEquals:
			a, err := m.param(ins, 0)
			if err != nil {
				return m.stop(StatusFault, err)
			}
			b, err := m.param(ins, 1)
			if err != nil {
				return m.stop(StatusFault, err)
			}
			dst, err := m.addr(ins, 2)
			if err != nil {
				return m.stop(StatusFault, err)
			}

			var v int64
			switch ins.Op {
			case OpAdd:
				v = a + b
			case OpMultiply:
				v = a * b
			case OpLessThan:
				if a < b {
					v = 1
				}
			case OpEquals:
				if a == b {
					v = 1
				}
			}
			if err := m.mem.Write(dst, v); err != nil {
				return m.stop(StatusFault, err)
			}
			m.ip += 4

		case OpInput:
			dst, err := m.addr(ins, 0)
			if err != nil {
				return m.stop(StatusFault, err)
			}
			if err := m.mem.Write(dst, m.input[m.cursor]); err != nil {
				return m.stop(StatusFault, err)
			}
			m.cursor++
			m.ip += 2

		case OpOutput:
			a, err := m.param(ins, 0)
			if err != nil {
				return m.stop(StatusFault, err)
			}
			m.output = append(m.output, a)
			m.ip += 2
			return Signal{Status: StatusOutput, Value: a}, nil

		case OpJumpIfTrue, OpJumpIfFalse:
			a, err := m.param(ins, 0)
			if err != nil {
				return m.stop(StatusFault, err)
			}
			if (a != 0) != (ins.Op == OpJumpIfTrue) {
				m.ip += 3
				continue
			}
			target, err := m.param(ins, 1)
			if err != nil {
				return m.stop(StatusFault, err)
			}
			if target < 0 {
				return m.stop(StatusFault, fmt.Errorf("%w: jump target %d at %d", ErrNegativeAddress, target, m.ip))
			}
			m.ip = target

		case OpAdjustBase:
			a, err := m.param(ins, 0)
			if err != nil {
				return m.stop(StatusFault, err)
			}
			m.rb += a
			m.ip += 2

		case OpHalt:
			return m.stop(StatusHalted, nil)

		default:
			// Decode only returns opcodes from the instruction set.
			return m.stop(StatusUnknownOpcode, fmt.Errorf("%w: %d at %d", ErrUnknownOpcode, word, m.ip))
		}
	}
}

// stop moves the machine into a terminal status.
func (m *Machine) stop(status Status, err error) (Signal, error) {
	m.status = status
	m.err = err
	if err != nil {
		log.Debugf("machine stopped: %s: %v", status, err)
	}
	return Signal{Status: status}, err
}

// param fetches the value of parameter i of the instruction at ip.
func (m *Machine) param(ins Instruction, i int) (int64, error) {
	raw, err := m.mem.Read(m.ip + 1 + int64(i))
	if err != nil {
		return 0, err
	}
	switch ins.Modes[i] {
	case ModeImmediate:
		return raw, nil
	case ModeRelative:
		return m.mem.Read(m.rb + raw)
	default:
		return m.mem.Read(raw)
	}
}

// addr resolves parameter i of the instruction at ip as a destination.
// Destinations are never immediate; immediate mode is treated as position.
func (m *Machine) addr(ins Instruction, i int) (int64, error) {
	raw, err := m.mem.Read(m.ip + 1 + int64(i))
	if err != nil {
		return 0, err
	}
	if ins.Modes[i] == ModeRelative {
		return m.rb + raw, nil
	}
	return raw, nil
}

// Status returns StatusRunning for a resumable machine, or the terminal
// status it stopped with.
func (m *Machine) Status() Status {
	return m.status
}

// Halted reports whether the machine executed a halt instruction.
func (m *Machine) Halted() bool {
	return m.status == StatusHalted
}

// Err returns the error that stopped the machine, if any.
func (m *Machine) Err() error {
	return m.err
}

// IP returns the instruction pointer.
func (m *Machine) IP() int64 {
	return m.ip
}

// RelativeBase returns the relative base register.
func (m *Machine) RelativeBase() int64 {
	return m.rb
}

// Steps returns the number of instructions executed so far.
func (m *Machine) Steps() uint64 {
	return m.meter.Consumed()
}

// StepsRemaining returns the instructions left in the step budget, or the
// largest uint64 when the machine has no budget.
func (m *Machine) StepsRemaining() uint64 {
	return m.meter.Remaining()
}

// ExtendBudget grants n more steps to a machine with a step budget. A
// machine already stopped by its budget stays stopped.
func (m *Machine) ExtendBudget(n uint64) {
	m.meter.Extend(n)
}

// Memory returns a copy of the tape.
func (m *Machine) Memory() []int64 {
	return m.mem.Snapshot()
}

// Peek returns the word at addr. Addresses past the end read as zero.
func (m *Machine) Peek(addr int64) (int64, error) {
	return m.mem.Read(addr)
}

// Poke stores v at addr, growing the tape if needed.
func (m *Machine) Poke(addr int64, v int64) error {
	return m.mem.Write(addr, v)
}

// Outputs returns a copy of every value the machine has emitted.
func (m *Machine) Outputs() []int64 {
	out := make([]int64, len(m.output))
	copy(out, m.output)
	return out
}

// LastOutput returns the most recent output.
func (m *Machine) LastOutput() (int64, bool) {
	if len(m.output) == 0 {
		return 0, false
	}
	return m.output[len(m.output)-1], true
}

// PendingInput returns the number of pushed values not yet consumed.
func (m *Machine) PendingInput() int {
	return len(m.input) - m.cursor
}
