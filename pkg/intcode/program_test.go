package intcode

import (
	"errors"
	"strings"
	"testing"
)

// TestParse tests the textual program encoding.
func TestParse(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []int64
	}{
		{"simple", "1,0,0,0,99", []int64{1, 0, 0, 0, 99}},
		{"trailing newline", "1,0,0,0,99\n", []int64{1, 0, 0, 0, 99}},
		{"spaces", " 3, 9 ,8,9\r\n", []int64{3, 9, 8, 9}},
		{"negative", "1101,100,-1,4,0", []int64{1101, 100, -1, 4, 0}},
		{"large", "104,1125899906842624,99", []int64{104, 1125899906842624, 99}},
		{"single", "99", []int64{99}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.text)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.text, err)
			}
			if !equalWords(got, tt.want) {
				t.Errorf("Parse(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

// TestParseMalformed tests that bad tokens abort parsing.
func TestParseMalformed(t *testing.T) {
	for _, text := range []string{"", "  \n", "1,,2", "1,a,2", "1.5", "1;2", "99999999999999999999", "1,2,"} {
		if _, err := Parse(text); !errors.Is(err, ErrMalformedProgram) {
			t.Errorf("Parse(%q) error = %v, want ErrMalformedProgram", text, err)
		}
	}
}

// TestReadProgram tests reading a program from a stream.
func TestReadProgram(t *testing.T) {
	program, err := ReadProgram(strings.NewReader("109,1,204,-1,99\n"))
	if err != nil {
		t.Fatalf("ReadProgram() failed: %v", err)
	}
	if got := Format(program); got != "109,1,204,-1,99" {
		t.Errorf("Format(ReadProgram()) = %s, want 109,1,204,-1,99", got)
	}
}

// TestMustParsePanics tests that MustParse panics on malformed input.
func TestMustParsePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParse() did not panic")
		}
	}()
	MustParse("1,x")
}
