package device

import (
	"fmt"

	"github.com/fortiblox/intcode/pkg/intcode"
)

// Panel colors.
const (
	Black int64 = 0
	White int64 = 1
)

// Direction is the way the robot faces.
type Direction uint8

// Directions in clockwise order.
const (
	Up Direction = iota
	Right
	Down
	Left
)

var directionNames = [...]string{"up", "right", "down", "left"}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return fmt.Sprintf("direction(%d)", uint8(d))
}

// Delta returns the unit step for d.
func (d Direction) Delta() Point {
	switch d {
	case Up:
		return Point{Y: -1}
	case Right:
		return Point{X: 1}
	case Down:
		return Point{Y: 1}
	default:
		return Point{X: -1}
	}
}

// Turn codes emitted by the robot program.
const (
	TurnLeft  int64 = 0
	TurnRight int64 = 1
)

// Turn returns the direction after turning by code.
func (d Direction) Turn(code int64) (Direction, error) {
	switch code {
	case TurnLeft:
		return (d + 3) % 4, nil
	case TurnRight:
		return (d + 1) % 4, nil
	default:
		return d, fmt.Errorf("%w: turn code %d", ErrProtocol, code)
	}
}

// HullGlyph renders white panels as '#' and everything else as '.'.
func HullGlyph(v int64) rune {
	if v == White {
		return '#'
	}
	return '.'
}

// Robot is a hull painting robot. Whenever its program asks for input the
// robot answers with the color of the panel under it. The program replies
// with pairs of outputs: the color to paint, then a turn code. After
// turning, the robot moves forward one panel.
type Robot struct {
	m     *intcode.Machine
	hull  *Grid
	pos   Point
	dir   Direction
	moves int
}

// NewRobot creates a robot standing on the origin facing up.
func NewRobot(program []int64, opts intcode.Options) *Robot {
	return &Robot{
		m:    intcode.NewWithOptions(program, opts),
		hull: NewGrid(),
		dir:  Up,
	}
}

// Run paints the hull, starting with the origin panel set to start, until
// the program halts.
func (r *Robot) Run(start int64) (*Grid, error) {
	r.hull.Set(r.pos, start)

	for {
		sig, err := r.m.Resume()
		if err != nil {
			return r.hull, err
		}

		switch sig.Status {
		case intcode.StatusAwaitingInput:
			r.m.Push(r.hull.Get(r.pos))

		case intcode.StatusOutput:
			turn, ok, err := r.m.Next()
			if err != nil {
				return r.hull, err
			}
			if !ok {
				return r.hull, fmt.Errorf("%w: paint %d at %v without a turn", ErrProtocol, sig.Value, r.pos)
			}
			if err := r.move(sig.Value, turn); err != nil {
				return r.hull, err
			}

		case intcode.StatusHalted:
			log.Debugf("robot halted after %d moves, %d panels painted", r.moves, r.hull.Len())
			return r.hull, nil
		}
	}
}

func (r *Robot) move(color, turn int64) error {
	dir, err := r.dir.Turn(turn)
	if err != nil {
		return err
	}
	r.hull.Set(r.pos, color)
	r.dir = dir
	r.pos = r.pos.Add(dir.Delta())
	r.moves++
	return nil
}

// Position returns where the robot stands.
func (r *Robot) Position() Point {
	return r.pos
}

// Direction returns the way the robot faces.
func (r *Robot) Direction() Direction {
	return r.dir
}

// Moves returns the number of paint-and-move steps taken.
func (r *Robot) Moves() int {
	return r.moves
}

// Hull returns the painted grid.
func (r *Robot) Hull() *Grid {
	return r.hull
}

// Paint runs program on a fresh robot starting on a panel of startColor and
// returns the painted hull. Every panel the robot painted at least once is
// counted by the hull's Len.
func Paint(program []int64, startColor int64) (*Grid, error) {
	return NewRobot(program, intcode.DefaultOptions()).Run(startColor)
}
