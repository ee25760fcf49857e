package intcode

import (
	"errors"
	"testing"
)

// runProgram executes program to halt and fails the test on any error.
func runProgram(t *testing.T, program string, input ...int64) (*Machine, []int64) {
	t.Helper()
	m := New(MustParse(program), input...)
	outputs, err := m.RunToHalt()
	if err != nil {
		t.Fatalf("RunToHalt() failed: %v", err)
	}
	if !m.Halted() {
		t.Fatalf("Status() = %s, want halted", m.Status())
	}
	return m, outputs
}

func equalSlices(a, b []int64) bool {
	return equalWords(a, b)
}

// TestFinalMemory tests programs whose result is the memory they leave behind.
func TestFinalMemory(t *testing.T) {
	tests := []struct {
		name    string
		program string
		want    string
	}{
		{"add", "1,0,0,0,99", "2,0,0,0,99"},
		{"multiply", "2,3,0,3,99", "2,3,0,6,99"},
		{"multiply past program", "2,4,4,5,99,0", "2,4,4,5,99,9801"},
		{"self modifying", "1,1,1,4,99,5,6,0,99", "30,1,1,4,2,5,6,0,99"},
		{"two instructions", "1,9,10,3,2,3,11,0,99,30,40,50", "3500,9,10,70,2,3,11,0,99,30,40,50"},
		{"immediate mode", "1002,4,3,4,33", "1002,4,3,4,99"},
		{"negative immediate", "1101,100,-1,4,0", "1101,100,-1,4,99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := runProgram(t, tt.program)
			if got, want := m.Memory(), MustParse(tt.want); !equalSlices(got, want) {
				t.Errorf("Memory() = %s, want %s", Format(got), Format(want))
			}
		})
	}
}

// TestComparisons tests equals and less-than in both position and immediate mode.
func TestComparisons(t *testing.T) {
	tests := []struct {
		name    string
		program string
		input   int64
		want    int64
	}{
		{"equals position hit", "3,9,8,9,10,9,4,9,99,-1,8", 8, 1},
		{"equals position miss", "3,9,8,9,10,9,4,9,99,-1,8", 0, 0},
		{"less position hit", "3,9,7,9,10,9,4,9,99,-1,8", 7, 1},
		{"less position miss", "3,9,7,9,10,9,4,9,99,-1,8", 9, 0},
		{"equals immediate hit", "3,3,1108,-1,8,3,4,3,99", 8, 1},
		{"equals immediate miss", "3,3,1108,-1,8,3,4,3,99", 5, 0},
		{"less immediate hit", "3,3,1107,-1,8,3,4,3,99", 7, 1},
		{"less immediate miss", "3,3,1107,-1,8,3,4,3,99", 8, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, outputs := runProgram(t, tt.program, tt.input)
			if len(outputs) != 1 || outputs[0] != tt.want {
				t.Errorf("outputs = %v, want [%d]", outputs, tt.want)
			}
		})
	}
}

// TestJumps tests the conditional jump instructions.
func TestJumps(t *testing.T) {
	const (
		jumpPosition  = "3,12,6,12,15,1,13,14,13,4,13,99,-1,0,1,9"
		jumpImmediate = "3,3,1105,-1,9,1101,0,0,12,4,12,99,1"
		compare8      = "3,21,1008,21,8,20,1005,20,22,107,8,21,20,1006,20,31," +
			"1106,0,36,98,0,0,1002,21,125,20,4,20,1105,1,46,104," +
			"999,1105,1,46,1101,1000,1,20,4,20,1105,1,46,98,99"
	)

	tests := []struct {
		name    string
		program string
		input   int64
		want    int64
	}{
		{"position zero", jumpPosition, 0, 0},
		{"position nonzero", jumpPosition, 5, 1},
		{"immediate zero", jumpImmediate, 0, 0},
		{"immediate nonzero", jumpImmediate, 3, 1},
		{"below eight", compare8, 7, 999},
		{"eight", compare8, 8, 1000},
		{"above eight", compare8, 9, 1001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, outputs := runProgram(t, tt.program, tt.input)
			if len(outputs) != 1 || outputs[0] != tt.want {
				t.Errorf("outputs = %v, want [%d]", outputs, tt.want)
			}
		})
	}
}

// TestLargeValues tests 64-bit arithmetic and literals.
func TestLargeValues(t *testing.T) {
	_, outputs := runProgram(t, "104,1125899906842624,99")
	if len(outputs) != 1 || outputs[0] != 1125899906842624 {
		t.Errorf("outputs = %v, want [1125899906842624]", outputs)
	}

	_, outputs = runProgram(t, "1102,34915192,34915192,7,4,7,99,0")
	if len(outputs) != 1 || outputs[0] != 1219070632396864 {
		t.Errorf("outputs = %v, want [1219070632396864]", outputs)
	}
}

// TestQuine tests a program that outputs a copy of itself using relative mode.
func TestQuine(t *testing.T) {
	const quine = "109,1,204,-1,1001,100,1,100,1008,100,16,101,1006,101,0,99"

	_, outputs := runProgram(t, quine)
	if got := Format(outputs); got != quine {
		t.Errorf("outputs = %s, want %s", got, quine)
	}
}

// TestRelativeBase tests relative mode for both reads and writes.
func TestRelativeBase(t *testing.T) {
	// arb #10; add #3 #4 -> rb+0; out rb+0; halt
	m, outputs := runProgram(t, "109,10,21101,3,4,0,204,0,99")

	if len(outputs) != 1 || outputs[0] != 7 {
		t.Errorf("outputs = %v, want [7]", outputs)
	}
	if m.RelativeBase() != 10 {
		t.Errorf("RelativeBase() = %d, want 10", m.RelativeBase())
	}
	if v, _ := m.Peek(10); v != 7 {
		t.Errorf("Peek(10) = %d, want 7", v)
	}
}

// TestHaltedIsSticky tests that resuming a halted machine has no effect.
func TestHaltedIsSticky(t *testing.T) {
	m, _ := runProgram(t, "1,0,0,0,4,0,99")

	memory := m.Memory()
	outputs := m.Outputs()
	steps := m.Steps()

	for i := 0; i < 3; i++ {
		sig, err := m.Resume()
		if err != nil {
			t.Fatalf("Resume() after halt failed: %v", err)
		}
		if sig.Status != StatusHalted {
			t.Errorf("Resume() after halt = %s, want halted", sig)
		}
	}

	if !equalSlices(m.Memory(), memory) {
		t.Error("memory changed after halt")
	}
	if !equalSlices(m.Outputs(), outputs) {
		t.Error("outputs changed after halt")
	}
	if m.Steps() != steps {
		t.Errorf("Steps() = %d after halt, want %d", m.Steps(), steps)
	}
}

// TestAwaitingInputRoundTrip tests suspension on an empty input queue and FIFO
// consumption once input arrives.
func TestAwaitingInputRoundTrip(t *testing.T) {
	// Echo forever: in [20]; out [20]; jnz #1 #0
	m := New(MustParse("3,20,4,20,1105,1,0"))

	sig, err := m.Resume()
	if err != nil {
		t.Fatalf("Resume() failed: %v", err)
	}
	if sig.Status != StatusAwaitingInput {
		t.Fatalf("Resume() = %s, want awaiting-input", sig)
	}
	if m.IP() != 0 || m.Steps() != 0 {
		t.Errorf("suspended at ip=%d steps=%d, want ip=0 steps=0", m.IP(), m.Steps())
	}

	// Starvation is repeatable without side effects.
	if sig, _ := m.Resume(); sig.Status != StatusAwaitingInput {
		t.Errorf("second Resume() = %s, want awaiting-input", sig)
	}

	m.Push(7)
	if sig, _ := m.Resume(); sig.Status != StatusOutput || sig.Value != 7 {
		t.Errorf("Resume() = %s, want output(7)", sig)
	}
	if sig, _ := m.Resume(); sig.Status != StatusAwaitingInput {
		t.Errorf("Resume() = %s, want awaiting-input", sig)
	}

	m.Push(1, 2, 3)
	for _, want := range []int64{1, 2, 3} {
		sig, err := m.Resume()
		if err != nil {
			t.Fatalf("Resume() failed: %v", err)
		}
		if sig.Status != StatusOutput || sig.Value != want {
			t.Errorf("Resume() = %s, want output(%d)", sig, want)
		}
	}
	if sig, _ := m.Resume(); sig.Status != StatusAwaitingInput {
		t.Errorf("Resume() = %s, want awaiting-input", sig)
	}

	if got := m.Outputs(); !equalSlices(got, []int64{7, 1, 2, 3}) {
		t.Errorf("Outputs() = %v, want [7 1 2 3]", got)
	}
	if m.PendingInput() != 0 {
		t.Errorf("PendingInput() = %d, want 0", m.PendingInput())
	}
	if last, ok := m.LastOutput(); !ok || last != 3 {
		t.Errorf("LastOutput() = %d, %v, want 3, true", last, ok)
	}
}

// TestFaults tests that execution faults stop the machine with a distinct
// status and a sentinel error.
func TestFaults(t *testing.T) {
	tests := []struct {
		name    string
		program string
		opts    Options
		status  Status
		err     error
	}{
		{"unknown opcode", "42", DefaultOptions(), StatusUnknownOpcode, ErrUnknownOpcode},
		{"unknown opcode after add", "1,0,0,0,98", DefaultOptions(), StatusUnknownOpcode, ErrUnknownOpcode},
		{"negative instruction", "-1", DefaultOptions(), StatusUnknownOpcode, ErrUnknownOpcode},
		{"unknown mode", "301,0,0,0,99", DefaultOptions(), StatusFault, ErrUnknownMode},
		{"negative read", "1,-1,0,0,99", DefaultOptions(), StatusFault, ErrNegativeAddress},
		{"negative write", "1101,1,1,-3,99", DefaultOptions(), StatusFault, ErrNegativeAddress},
		{"negative relative", "109,-5,204,0,99", DefaultOptions(), StatusFault, ErrNegativeAddress},
		{"negative jump", "1105,1,-3", DefaultOptions(), StatusFault, ErrNegativeAddress},
		{"memory limit", "1101,5,6,1000,99", Options{MemoryLimit: 100}, StatusFault, ErrMemoryLimit},
		{"step budget", "1105,1,0", Options{MaxSteps: 10}, StatusFault, ErrStepBudgetExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewWithOptions(MustParse(tt.program), tt.opts)

			sig, err := m.Resume()
			if sig.Status != tt.status {
				t.Errorf("Resume() = %s, want %s", sig, tt.status)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("Resume() error = %v, want %v", err, tt.err)
			}

			// Faults are as sticky as halt.
			sig2, err2 := m.Resume()
			if sig2 != sig || err2 != err {
				t.Errorf("second Resume() = %s, %v, want %s, %v", sig2, err2, sig, err)
			}
			if m.Status() != tt.status {
				t.Errorf("Status() = %s, want %s", m.Status(), tt.status)
			}
			if !errors.Is(m.Err(), tt.err) {
				t.Errorf("Err() = %v, want %v", m.Err(), tt.err)
			}
		})
	}
}

// TestStepBudgetCount tests that the budget counts every executed instruction.
func TestStepBudgetCount(t *testing.T) {
	m := NewWithOptions(MustParse("1105,1,0"), Options{MaxSteps: 10})
	if _, err := m.Resume(); !errors.Is(err, ErrStepBudgetExceeded) {
		t.Fatalf("Resume() error = %v, want ErrStepBudgetExceeded", err)
	}
	if m.Steps() != 10 {
		t.Errorf("Steps() = %d, want 10", m.Steps())
	}

	m2 := New(MustParse("1101,1,1,0,4,0,99"))
	if _, err := m2.RunToHalt(); err != nil {
		t.Fatalf("RunToHalt() failed: %v", err)
	}
	if m2.Steps() != 3 {
		t.Errorf("Steps() = %d, want 3", m2.Steps())
	}
}

// TestExtendBudget tests granting more steps to a suspended machine.
func TestExtendBudget(t *testing.T) {
	m := NewWithOptions(MustParse("3,20,4,20,1105,1,0"), Options{MaxSteps: 3}, 1)
	if got := m.StepsRemaining(); got != 3 {
		t.Errorf("StepsRemaining() = %d, want 3", got)
	}

	sig, err := m.Resume()
	if err != nil || sig.Status != StatusOutput || sig.Value != 1 {
		t.Fatalf("Resume() = %s, %v; want output(1)", sig, err)
	}
	sig, err = m.Resume()
	if err != nil || sig.Status != StatusAwaitingInput {
		t.Fatalf("Resume() = %s, %v; want awaiting-input", sig, err)
	}
	if got := m.StepsRemaining(); got != 0 {
		t.Errorf("StepsRemaining() = %d, want 0", got)
	}

	m.ExtendBudget(2)
	m.Push(2)
	sig, err = m.Resume()
	if err != nil || sig.Status != StatusOutput || sig.Value != 2 {
		t.Fatalf("Resume() after ExtendBudget = %s, %v; want output(2)", sig, err)
	}
	if _, err := m.Resume(); !errors.Is(err, ErrStepBudgetExceeded) {
		t.Errorf("Resume() error = %v, want ErrStepBudgetExceeded", err)
	}

	if got := New(MustParse("99")).StepsRemaining(); got != ^uint64(0) {
		t.Errorf("unlimited StepsRemaining() = %d", got)
	}
}

// TestMemoryGrowth tests reads and writes beyond the loaded program.
func TestMemoryGrowth(t *testing.T) {
	m, outputs := runProgram(t, "1101,5,6,1000,4,1000,99")
	if len(outputs) != 1 || outputs[0] != 11 {
		t.Errorf("outputs = %v, want [11]", outputs)
	}
	if got := len(m.Memory()); got != 1001 {
		t.Errorf("len(Memory()) = %d, want 1001", got)
	}

	// Reading far past the end yields zero and allocates nothing.
	m, outputs = runProgram(t, "4,500,99")
	if len(outputs) != 1 || outputs[0] != 0 {
		t.Errorf("outputs = %v, want [0]", outputs)
	}
	if got := len(m.Memory()); got != 3 {
		t.Errorf("len(Memory()) = %d, want 3", got)
	}
}

// TestPoke tests patching memory before execution.
func TestPoke(t *testing.T) {
	program := MustParse("1,0,0,0,99")
	m := New(program)
	if err := m.Poke(1, 4); err != nil {
		t.Fatalf("Poke() failed: %v", err)
	}
	if _, err := m.RunToHalt(); err != nil {
		t.Fatalf("RunToHalt() failed: %v", err)
	}
	if v, _ := m.Peek(0); v != 100 {
		t.Errorf("Peek(0) = %d, want 100", v)
	}

	// The caller's slice is never aliased.
	if program[0] != 1 || program[1] != 0 {
		t.Errorf("program modified: %v", program)
	}
}

// TestIndependentMachines tests that machines built from one program share
// no memory.
func TestIndependentMachines(t *testing.T) {
	program := MustParse("3,0,4,0,99")
	a := New(program, 11)
	b := New(program, 22)

	outA, err := a.RunToHalt()
	if err != nil {
		t.Fatalf("a.RunToHalt() failed: %v", err)
	}
	outB, err := b.RunToHalt()
	if err != nil {
		t.Fatalf("b.RunToHalt() failed: %v", err)
	}
	if outA[0] != 11 || outB[0] != 22 {
		t.Errorf("outputs = %v, %v, want [11], [22]", outA, outB)
	}
}
