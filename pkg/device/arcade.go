package device

import (
	"fmt"

	"github.com/fortiblox/intcode/pkg/intcode"
)

// Tile is what an arcade screen cell shows.
type Tile int64

// Tile ids.
const (
	TileEmpty  Tile = 0
	TileWall   Tile = 1
	TileBlock  Tile = 2
	TilePaddle Tile = 3
	TileBall   Tile = 4
)

var tileGlyphs = [...]rune{' ', '#', '=', '-', 'o'}

func (t Tile) String() string {
	switch t {
	case TileEmpty:
		return "empty"
	case TileWall:
		return "wall"
	case TileBlock:
		return "block"
	case TilePaddle:
		return "paddle"
	case TileBall:
		return "ball"
	default:
		return fmt.Sprintf("tile(%d)", int64(t))
	}
}

// TileGlyph renders a screen cell.
func TileGlyph(v int64) rune {
	if v >= 0 && v < int64(len(tileGlyphs)) {
		return tileGlyphs[v]
	}
	return '?'
}

// scorePosition marks a score update instead of a tile.
var scorePosition = Point{X: -1, Y: 0}

// Joystick positions.
const (
	JoystickLeft    int64 = -1
	JoystickNeutral int64 = 0
	JoystickRight   int64 = 1
)

// ArcadeConfig configures an Arcade.
type ArcadeConfig struct {
	// FreePlay writes 2 to address 0 before the program starts.
	FreePlay bool

	// Machine configures the cabinet's machine.
	Machine intcode.Options
}

// DefaultArcadeConfig returns a configuration without free play.
func DefaultArcadeConfig() ArcadeConfig {
	return ArcadeConfig{
		Machine: intcode.DefaultOptions(),
	}
}

// Arcade is an arcade cabinet. Its program draws with triples of outputs
// (x, y, tile id); the triple (-1, 0, s) sets the score to s instead. When
// the program asks for input, the arcade moves the joystick towards the
// ball so the paddle keeps it in play.
type Arcade struct {
	m      *intcode.Machine
	screen *Grid
	score  int64
	ball   Point
	paddle Point
	inputs int
}

// NewArcade creates a cabinet running a copy of program.
func NewArcade(program []int64, cfg ArcadeConfig) (*Arcade, error) {
	m := intcode.NewWithOptions(program, cfg.Machine)
	if cfg.FreePlay {
		if err := m.Poke(0, 2); err != nil {
			return nil, fmt.Errorf("free play: %w", err)
		}
	}
	return &Arcade{
		m:      m,
		screen: NewGrid(),
	}, nil
}

// Run plays until the program halts.
func (a *Arcade) Run() error {
	var (
		triple [3]int64
		n      int
	)
	for {
		sig, err := a.m.Resume()
		if err != nil {
			return err
		}

		switch sig.Status {
		case intcode.StatusOutput:
			triple[n] = sig.Value
			n++
			if n == len(triple) {
				a.draw(triple)
				n = 0
			}

		case intcode.StatusAwaitingInput:
			a.m.Push(a.Joystick())
			a.inputs++

		case intcode.StatusHalted:
			if n != 0 {
				return fmt.Errorf("%w: program halted %d values into a tile", ErrProtocol, n)
			}
			log.Debugf("arcade halted after %d inputs: score %d, %d blocks left",
				a.inputs, a.score, a.CountTiles(TileBlock))
			return nil
		}
	}
}

func (a *Arcade) draw(t [3]int64) {
	p := Point{X: t[0], Y: t[1]}
	if p == scorePosition {
		a.score = t[2]
		return
	}
	a.screen.Set(p, t[2])
	switch Tile(t[2]) {
	case TilePaddle:
		a.paddle = p
	case TileBall:
		a.ball = p
	}
}

// Joystick returns the joystick position that moves the paddle towards the
// ball.
func (a *Arcade) Joystick() int64 {
	switch {
	case a.ball.X < a.paddle.X:
		return JoystickLeft
	case a.ball.X > a.paddle.X:
		return JoystickRight
	default:
		return JoystickNeutral
	}
}

// Screen returns the drawn screen.
func (a *Arcade) Screen() *Grid {
	return a.screen
}

// Score returns the last score displayed.
func (a *Arcade) Score() int64 {
	return a.score
}

// Ball returns the last drawn ball position.
func (a *Arcade) Ball() Point {
	return a.ball
}

// Paddle returns the last drawn paddle position.
func (a *Arcade) Paddle() Point {
	return a.paddle
}

// CountTiles returns how many screen cells currently show t.
func (a *Arcade) CountTiles(t Tile) int {
	return a.screen.Count(int64(t))
}

// Screen runs program without free play and returns what it drew.
func Screen(program []int64) (*Grid, error) {
	a, err := NewArcade(program, DefaultArcadeConfig())
	if err != nil {
		return nil, err
	}
	if err := a.Run(); err != nil {
		return a.screen, err
	}
	return a.screen, nil
}

// Play runs program in free play with the joystick on autopilot and
// returns the final score.
func Play(program []int64) (int64, error) {
	cfg := DefaultArcadeConfig()
	cfg.FreePlay = true
	a, err := NewArcade(program, cfg)
	if err != nil {
		return 0, err
	}
	if err := a.Run(); err != nil {
		return a.score, err
	}
	return a.score, nil
}
