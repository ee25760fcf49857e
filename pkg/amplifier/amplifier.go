// Package amplifier chains IntCode machines into amplifier circuits.
//
// Every amplifier runs its own copy of the same program and is seeded with
// a phase setting as its first input. In a pipeline, a signal enters the
// first amplifier and each output becomes the next amplifier's input. In a
// feedback loop, the last amplifier's output is routed back into the first
// and the circuit keeps cycling until the last amplifier halts.
//
// The machines never see each other. A Loop owns all of them and copies
// every value from one to the next.
package amplifier

import (
	"errors"
	"fmt"

	"github.com/fortiblox/intcode/pkg/intcode"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("intcode.amplifier")

// Errors.
var (
	ErrNoAmplifiers = errors.New("no amplifiers")
	ErrNoSignal     = errors.New("amplifier produced no signal")
	ErrStalled      = errors.New("circuit stalled")
)

// Mode selects how amplifiers are wired.
type Mode int

// Circuit modes.
const (
	ModePipeline Mode = iota // Signal passes through each amplifier once
	ModeFeedback             // Last output loops back into the first amplifier
)

func (m Mode) String() string {
	switch m {
	case ModePipeline:
		return "pipeline"
	case ModeFeedback:
		return "feedback"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "pipeline":
		return ModePipeline, nil
	case "feedback":
		return ModeFeedback, nil
	default:
		return 0, fmt.Errorf("unknown amplifier mode %q", s)
	}
}

// Phases returns the phase settings used by the mode.
func (m Mode) Phases() []int64 {
	if m == ModeFeedback {
		return []int64{5, 6, 7, 8, 9}
	}
	return []int64{0, 1, 2, 3, 4}
}

// Loop is a round-robin scheduler over a ring of machines.
type Loop struct {
	amps     []*intcode.Machine
	feedback bool
	signal   int64 // Last value passed along the ring
	pending  bool  // signal not yet delivered to the next amplifier
	rounds   int   // Trips around the ring, including the one that halted it
}

// NewLoop builds one machine per phase, each seeded with its phase setting.
func NewLoop(program []int64, phases []int64, mode Mode, opts intcode.Options) (*Loop, error) {
	if len(phases) == 0 {
		return nil, ErrNoAmplifiers
	}
	amps := make([]*intcode.Machine, len(phases))
	for i, p := range phases {
		amps[i] = intcode.NewWithOptions(program, opts, p)
	}
	return &Loop{
		amps:     amps,
		feedback: mode == ModeFeedback,
	}, nil
}

// Len returns the number of amplifiers.
func (l *Loop) Len() int {
	return len(l.amps)
}

// Amplifier returns the machine at position i.
func (l *Loop) Amplifier(i int) *intcode.Machine {
	return l.amps[i]
}

// Rounds returns the number of trips around the ring, counting the one in
// which the last amplifier halted.
func (l *Loop) Rounds() int {
	return l.rounds
}

// Run feeds seed into the first amplifier and drives the circuit until the
// last amplifier halts, returning the last signal it produced.
func (l *Loop) Run(seed int64) (int64, error) {
	l.signal = seed
	l.pending = true
	last := len(l.amps) - 1

	for {
		progressed := false
		for i, amp := range l.amps {
			out, halted, err := l.step(amp)
			if err != nil {
				return 0, fmt.Errorf("amplifier %d: %w", i, err)
			}
			if out {
				progressed = true
			}
			if halted && i == last {
				l.rounds++
				v, ok := amp.LastOutput()
				if !ok {
					return 0, fmt.Errorf("amplifier %d: %w", i, ErrNoSignal)
				}
				log.Debugf("circuit of %d finished after %d rounds: %d", len(l.amps), l.rounds, v)
				return v, nil
			}
		}
		l.rounds++

		if !l.feedback {
			// Without feedback the last amplifier has nothing more to read.
			v, ok := l.amps[last].LastOutput()
			if !ok {
				return 0, fmt.Errorf("amplifier %d: %w", last, ErrNoSignal)
			}
			return v, nil
		}
		if !progressed {
			return 0, fmt.Errorf("%w after %d rounds", ErrStalled, l.rounds)
		}
	}
}

// step hands the pending signal, if any, to amp and resumes it until it
// produces the next signal, halts, or starves. It reports whether a new
// signal was produced and whether amp has halted.
func (l *Loop) step(amp *intcode.Machine) (produced, halted bool, err error) {
	if amp.Halted() {
		return false, true, nil
	}
	if l.pending {
		amp.Push(l.signal)
		l.pending = false
	}

	for {
		sig, err := amp.Resume()
		if err != nil {
			return produced, false, err
		}
		switch sig.Status {
		case intcode.StatusOutput:
			l.signal = sig.Value
			l.pending = true
			produced = true
			if l.feedback {
				// Hand control on after each output so the ring stays in step.
				return true, false, nil
			}
		case intcode.StatusAwaitingInput:
			return produced, false, nil
		case intcode.StatusHalted:
			return produced, true, nil
		}
	}
}

// Pipeline runs the program once per phase, feeding 0 into the first
// amplifier and each output into the next.
func Pipeline(program []int64, phases []int64) (int64, error) {
	return run(program, phases, ModePipeline, intcode.DefaultOptions())
}

// Feedback runs the program in a feedback loop, feeding 0 into the first
// amplifier, until the last amplifier halts.
func Feedback(program []int64, phases []int64) (int64, error) {
	return run(program, phases, ModeFeedback, intcode.DefaultOptions())
}

func run(program []int64, phases []int64, mode Mode, opts intcode.Options) (int64, error) {
	loop, err := NewLoop(program, phases, mode, opts)
	if err != nil {
		return 0, err
	}
	return loop.Run(0)
}
