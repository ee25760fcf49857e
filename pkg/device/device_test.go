package device

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/fortiblox/intcode/pkg/intcode"
)

// robotProgram builds a program that reads a color before every move and
// then replies with the given (color, turn) pairs, ignoring what it read.
func robotProgram(pairs [][2]int64) []int64 {
	var parts []string
	for _, p := range pairs {
		parts = append(parts, fmt.Sprintf("3,100,104,%d,104,%d", p[0], p[1]))
	}
	parts = append(parts, "99")
	return intcode.MustParse(strings.Join(parts, ","))
}

// TestGrid tests sparse grid access.
func TestGrid(t *testing.T) {
	g := NewGrid()
	if g.Len() != 0 {
		t.Errorf("Len() = %d, want 0", g.Len())
	}
	if _, _, ok := g.Bounds(); ok {
		t.Error("Bounds() ok on empty grid")
	}
	if got := g.Render(HullGlyph); got != "" {
		t.Errorf("Render() = %q, want empty", got)
	}

	g.Set(Point{X: 2, Y: -1}, 1)
	g.Set(Point{X: -3, Y: 4}, 0)
	if g.Get(Point{X: 2, Y: -1}) != 1 {
		t.Error("Get() lost a value")
	}
	if g.Get(Point{X: 9, Y: 9}) != 0 {
		t.Error("Get() of unset cell not zero")
	}
	if !g.Has(Point{X: -3, Y: 4}) {
		t.Error("Has() = false for a cell set to zero")
	}
	if g.Len() != 2 {
		t.Errorf("Len() = %d, want 2", g.Len())
	}

	min, max, ok := g.Bounds()
	if !ok || min != (Point{X: -3, Y: -1}) || max != (Point{X: 2, Y: 4}) {
		t.Errorf("Bounds() = %v, %v, %v", min, max, ok)
	}
}

// TestRobotPaint tests painting with a scripted sequence of replies.
func TestRobotPaint(t *testing.T) {
	program := robotProgram([][2]int64{
		{1, 0}, {0, 0}, {1, 0}, {1, 0}, {0, 1}, {1, 0}, {1, 0},
	})

	r := NewRobot(program, intcode.DefaultOptions())
	hull, err := r.Run(Black)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if hull.Len() != 6 {
		t.Errorf("painted panels = %d, want 6", hull.Len())
	}
	if r.Moves() != 7 {
		t.Errorf("Moves() = %d, want 7", r.Moves())
	}
	if r.Position() != (Point{X: 0, Y: -1}) {
		t.Errorf("Position() = %v, want {0 -1}", r.Position())
	}
	if r.Direction() != Left {
		t.Errorf("Direction() = %s, want left", r.Direction())
	}

	want := "..#\n..#\n##.\n"
	if got := hull.Render(HullGlyph); got != want {
		t.Errorf("Render() =\n%s\nwant\n%s", got, want)
	}
}

// TestRobotReadsPanel tests that the robot answers with the panel color.
func TestRobotReadsPanel(t *testing.T) {
	// Paint whatever was read, turn left, and repeat once.
	program := intcode.MustParse("3,100,4,100,104,0,3,100,4,100,104,0,99")

	hull, err := Paint(program, White)
	if err != nil {
		t.Fatalf("Paint() failed: %v", err)
	}
	if got := hull.Get(Point{}); got != White {
		t.Errorf("origin = %d, want %d", got, White)
	}
	if got := hull.Get(Point{X: -1}); got != Black || !hull.Has(Point{X: -1}) {
		t.Errorf("panel left of origin = %d, want painted black", got)
	}
	if hull.Len() != 2 {
		t.Errorf("Len() = %d, want 2", hull.Len())
	}
}

// TestRobotProtocol tests rejection of malformed replies.
func TestRobotProtocol(t *testing.T) {
	tests := []struct {
		name    string
		program string
	}{
		{"missing turn", "3,100,104,1,99"},
		{"bad turn", "3,100,104,1,104,7,99"},
	}

	for _, tt := range tests {
		_, err := Paint(intcode.MustParse(tt.program), Black)
		if !errors.Is(err, ErrProtocol) {
			t.Errorf("%s: Paint() error = %v, want ErrProtocol", tt.name, err)
		}
	}
}

// TestDirectionTurn tests a full turn in both directions.
func TestDirectionTurn(t *testing.T) {
	d := Up
	for i := 0; i < 4; i++ {
		d, _ = d.Turn(TurnRight)
	}
	if d != Up {
		t.Errorf("four right turns = %s, want up", d)
	}
	d, _ = d.Turn(TurnLeft)
	if d != Left {
		t.Errorf("left of up = %s, want left", d)
	}
}

// TestArcadeScreen tests tile drawing and counting.
func TestArcadeScreen(t *testing.T) {
	program := intcode.MustParse("104,0,104,0,104,2,104,1,104,0,104,2,104,2,104,0,104,1,99")

	screen, err := Screen(program)
	if err != nil {
		t.Fatalf("Screen() failed: %v", err)
	}
	if got := screen.Count(int64(TileBlock)); got != 2 {
		t.Errorf("blocks = %d, want 2", got)
	}
	if got := screen.Render(TileGlyph); got != "==#\n" {
		t.Errorf("Render() = %q, want %q", got, "==#\n")
	}
}

// TestArcadeCountTiles tests that overdrawn tiles are not counted.
func TestArcadeCountTiles(t *testing.T) {
	program := intcode.MustParse("104,3,104,1,104,2,104,3,104,1,104,0,104,4,104,1,104,2,99")

	a, err := NewArcade(program, DefaultArcadeConfig())
	if err != nil {
		t.Fatalf("NewArcade() failed: %v", err)
	}
	if err := a.Run(); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if got := a.CountTiles(TileBlock); got != 1 {
		t.Errorf("CountTiles(block) = %d, want 1", got)
	}
	if got := a.CountTiles(TileEmpty); got != 1 {
		t.Errorf("CountTiles(empty) = %d, want 1", got)
	}
}

// arcadeProgram draws a paddle at (1,2) and a ball at (ballX,2), reads the
// joystick, and scores joystick*1000 plus whatever the first instruction
// left at address 50: 2 normally, 4 in free play.
func arcadeProgram(ballX int64) []int64 {
	return intcode.MustParse(fmt.Sprintf(
		"1,0,0,50,104,1,104,2,104,3,104,%d,104,2,104,4,3,51,1002,51,1000,52,1,52,50,52,104,-1,104,0,4,52,99",
		ballX))
}

// TestArcadePlay tests the joystick autopilot and score tracking.
func TestArcadePlay(t *testing.T) {
	tests := []struct {
		ballX int64
		want  int64
	}{
		{5, 1004},
		{1, 4},
		{0, -996},
	}

	for _, tt := range tests {
		got, err := Play(arcadeProgram(tt.ballX))
		if err != nil {
			t.Errorf("Play(ball at %d) failed: %v", tt.ballX, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Play(ball at %d) = %d, want %d", tt.ballX, got, tt.want)
		}
	}
}

// TestArcadeWithoutFreePlay tests that address 0 is left alone by default.
func TestArcadeWithoutFreePlay(t *testing.T) {
	a, err := NewArcade(arcadeProgram(5), DefaultArcadeConfig())
	if err != nil {
		t.Fatalf("NewArcade() failed: %v", err)
	}
	if err := a.Run(); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if a.Score() != 1002 {
		t.Errorf("Score() = %d, want 1002", a.Score())
	}
	if a.Ball() != (Point{X: 5, Y: 2}) || a.Paddle() != (Point{X: 1, Y: 2}) {
		t.Errorf("Ball() = %v, Paddle() = %v", a.Ball(), a.Paddle())
	}
}

// TestArcadeIncompleteTile tests a program halting mid-triple.
func TestArcadeIncompleteTile(t *testing.T) {
	_, err := Screen(intcode.MustParse("104,1,104,2,99"))
	if !errors.Is(err, ErrProtocol) {
		t.Errorf("Screen() error = %v, want ErrProtocol", err)
	}
}
