package intcode

import (
	"fmt"
	"strings"
)

// State is a complete, self-contained copy of a machine. A machine rebuilt
// from a State with Restore behaves exactly like the original from the
// point the State was taken.
type State struct {
	Memory       []int64 `cbor:"1,keyasint"`
	IP           int64   `cbor:"2,keyasint"`
	RelativeBase int64   `cbor:"3,keyasint"`
	Input        []int64 `cbor:"4,keyasint"`
	InputCursor  int     `cbor:"5,keyasint"`
	Output       []int64 `cbor:"6,keyasint"`
	Steps        uint64  `cbor:"7,keyasint"`
	MaxSteps     uint64  `cbor:"8,keyasint"`
	MemoryLimit  int64   `cbor:"9,keyasint"`
	Status       Status  `cbor:"10,keyasint"`
	Err          string  `cbor:"11,keyasint,omitempty"`
}

// State captures the machine. The returned value shares no memory with it.
func (m *Machine) State() *State {
	s := &State{
		Memory:       m.mem.Snapshot(),
		IP:           m.ip,
		RelativeBase: m.rb,
		Input:        append([]int64(nil), m.input...),
		InputCursor:  m.cursor,
		Output:       append([]int64(nil), m.output...),
		Steps:        m.meter.Consumed(),
		MaxSteps:     m.meter.Limit(),
		MemoryLimit:  m.mem.Limit(),
		Status:       m.status,
	}
	if m.err != nil {
		s.Err = m.err.Error()
	}
	return s
}

// Validate checks that the state describes a machine that could exist.
func (s *State) Validate() error {
	switch {
	case s.IP < 0:
		return fmt.Errorf("%w: instruction pointer %d", ErrNegativeAddress, s.IP)
	case s.InputCursor < 0 || s.InputCursor > len(s.Input):
		return fmt.Errorf("input cursor %d outside queue of %d", s.InputCursor, len(s.Input))
	case s.MemoryLimit > 0 && int64(len(s.Memory)) > s.MemoryLimit:
		return fmt.Errorf("%w: %d words exceed limit of %d", ErrMemoryLimit, len(s.Memory), s.MemoryLimit)
	case s.Status > StatusFault:
		return fmt.Errorf("unknown status %d", s.Status)
	}
	return nil
}

// Restore rebuilds a machine from a state.
func Restore(s *State) (*Machine, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}

	m := &Machine{
		mem:    NewMemory(s.Memory, s.MemoryLimit),
		ip:     s.IP,
		rb:     s.RelativeBase,
		input:  append([]int64(nil), s.Input...),
		cursor: s.InputCursor,
		output: append([]int64(nil), s.Output...),
		meter:  &StepMeter{consumed: s.Steps, limit: s.MaxSteps},
	}

	// Suspension signals are transient; only terminal ones persist.
	if s.Status.Terminal() {
		m.status = s.Status
		if s.Err != "" {
			m.err = restoredError(s.Status, s.Err)
		}
	}
	return m, nil
}

// restoredError rebuilds a terminal error so that errors.Is keeps working
// against the package sentinels.
func restoredError(status Status, msg string) error {
	sentinel := ErrFault
	if status == StatusUnknownOpcode {
		sentinel = ErrUnknownOpcode
	}
	for _, e := range []error{ErrNegativeAddress, ErrMemoryLimit, ErrStepBudgetExceeded, ErrUnknownMode, ErrUnknownOpcode, ErrFault} {
		if strings.HasPrefix(msg, e.Error()) {
			sentinel = e
			break
		}
	}
	rest := strings.TrimPrefix(msg, sentinel.Error())
	if rest == msg {
		rest = ": " + msg
	}
	return fmt.Errorf("%w%s", sentinel, rest)
}

// Equal reports whether two states describe the same machine.
func (s *State) Equal(other *State) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.IP == other.IP &&
		s.RelativeBase == other.RelativeBase &&
		s.InputCursor == other.InputCursor &&
		s.Steps == other.Steps &&
		s.MaxSteps == other.MaxSteps &&
		s.MemoryLimit == other.MemoryLimit &&
		s.Status == other.Status &&
		s.Err == other.Err &&
		equalWords(s.Memory, other.Memory) &&
		equalWords(s.Input, other.Input) &&
		equalWords(s.Output, other.Output)
}

func equalWords(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
