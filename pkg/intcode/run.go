package intcode

import (
	"fmt"
)

// Run resumes m until it stops or starves for input, collecting the
// outputs produced along the way. The final signal is either StatusHalted or
// StatusAwaitingInput; any other terminal status is returned as an error.
func (m *Machine) Run() ([]int64, Signal, error) {
	var outputs []int64
	for {
		sig, err := m.Resume()
		if err != nil {
			return outputs, sig, err
		}
		switch sig.Status {
		case StatusOutput:
			outputs = append(outputs, sig.Value)
		case StatusAwaitingInput, StatusHalted:
			return outputs, sig, nil
		default:
			return outputs, sig, fmt.Errorf("%w: unexpected signal %s", ErrFault, sig)
		}
	}
}

// RunToHalt runs m to completion with the input it already holds.
// Input starvation is reported as ErrAwaitingInput.
func (m *Machine) RunToHalt() ([]int64, error) {
	outputs, sig, err := m.Run()
	if err != nil {
		return outputs, err
	}
	if sig.Status == StatusAwaitingInput {
		return outputs, fmt.Errorf("%w at %d after %d outputs", ErrAwaitingInput, m.ip, len(outputs))
	}
	return outputs, nil
}

// Execute runs program to completion on a fresh machine and returns its
// outputs and final memory.
func Execute(program []int64, input ...int64) (outputs []int64, memory []int64, err error) {
	m := New(program, input...)
	outputs, err = m.RunToHalt()
	return outputs, m.Memory(), err
}

// Next resumes m until it produces one output. It returns false when the
// machine halts or starves before producing one.
func (m *Machine) Next() (int64, bool, error) {
	sig, err := m.Resume()
	if err != nil {
		return 0, false, err
	}
	if sig.Status != StatusOutput {
		return 0, false, nil
	}
	return sig.Value, true, nil
}

// Take resumes m until it has produced n outputs. Fewer than n values are
// returned if the machine halts or starves first.
func (m *Machine) Take(n int) ([]int64, error) {
	out := make([]int64, 0, n)
	for len(out) < n {
		v, ok, err := m.Next()
		if err != nil {
			return out, err
		}
		if !ok {
			break
		}
		out = append(out, v)
	}
	return out, nil
}
