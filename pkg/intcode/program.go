package intcode

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Parse decodes the textual program encoding: base-10 signed integers
// separated by commas. Whitespace around each integer, including a trailing
// newline, is ignored. Any other token is ErrMalformedProgram.
func Parse(text string) ([]int64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty program", ErrMalformedProgram)
	}

	fields := strings.Split(text, ",")
	program := make([]int64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseInt(strings.TrimSpace(f), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: word %d: %q", ErrMalformedProgram, i, f)
		}
		program[i] = v
	}
	return program, nil
}

// MustParse is like Parse but panics on error. It is meant for programs
// embedded in source code.
func MustParse(text string) []int64 {
	program, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return program
}

// ReadProgram reads and parses a whole program from r.
func ReadProgram(r io.Reader) ([]int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}
	return Parse(string(data))
}

// Format renders a program in its textual encoding.
func Format(program []int64) string {
	var sb strings.Builder
	buf := make([]byte, 0, 24)
	for i, w := range program {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.Write(strconv.AppendInt(buf[:0], w, 10))
	}
	return sb.String()
}
