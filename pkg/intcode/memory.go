package intcode

import (
	"fmt"
)

// DefaultMemoryLimit bounds tape growth at 16M words (128 MiB).
const DefaultMemoryLimit = 1 << 24

// Memory is the machine's tape: a contiguous, zero-indexed sequence of words.
//
// Reads beyond the end return zero and leave the tape untouched. Writes beyond
// the end grow the tape with zero fill up to the written address. The tape
// never shrinks.
type Memory struct {
	words []int64
	limit int64
}

// NewMemory creates a tape holding a copy of program.
// A limit of zero or less means DefaultMemoryLimit.
func NewMemory(program []int64, limit int64) *Memory {
	if limit <= 0 {
		limit = DefaultMemoryLimit
	}
	words := make([]int64, len(program))
	copy(words, program)
	return &Memory{words: words, limit: limit}
}

// Len returns the physical length of the tape.
func (m *Memory) Len() int {
	return len(m.words)
}

// Limit returns the largest length the tape may grow to.
func (m *Memory) Limit() int64 {
	return m.limit
}

// Read returns the word at addr.
func (m *Memory) Read(addr int64) (int64, error) {
	if addr < 0 {
		return 0, fmt.Errorf("%w: read at %d", ErrNegativeAddress, addr)
	}
	if addr >= int64(len(m.words)) {
		return 0, nil
	}
	return m.words[addr], nil
}

// Write stores v at addr, growing the tape if needed.
func (m *Memory) Write(addr int64, v int64) error {
	if addr < 0 {
		return fmt.Errorf("%w: write at %d", ErrNegativeAddress, addr)
	}
	if addr >= int64(len(m.words)) {
		if err := m.grow(addr + 1); err != nil {
			return err
		}
	}
	m.words[addr] = v
	return nil
}

// grow extends the tape to n words.
func (m *Memory) grow(n int64) error {
	if n > m.limit {
		return fmt.Errorf("%w: address %d exceeds limit of %d words", ErrMemoryLimit, n-1, m.limit)
	}
	if n <= int64(cap(m.words)) {
		m.words = m.words[:n]
		return nil
	}

	// Amortize repeated scratch writes just past the end.
	newCap := int64(cap(m.words)) * 2
	if newCap < n {
		newCap = n
	}
	if newCap > m.limit {
		newCap = m.limit
	}
	words := make([]int64, n, newCap)
	copy(words, m.words)
	m.words = words
	return nil
}

// Snapshot returns a copy of the tape.
func (m *Memory) Snapshot() []int64 {
	out := make([]int64, len(m.words))
	copy(out, m.words)
	return out
}
