// Package device drives IntCode machines that talk to the outside world
// through a fixed output protocol: a hull painting robot and an arcade
// cabinet. Each device owns its machine, answers its input requests, and
// interprets its outputs onto a sparse grid.
package device

import (
	"errors"
	"strings"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("intcode.device")

// ErrProtocol is returned when a machine emits output a device cannot
// interpret.
var ErrProtocol = errors.New("device protocol violation")

// Point is a grid coordinate. Y grows downwards, so rows render top to
// bottom.
type Point struct {
	X, Y int64
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Grid is a sparse plane of values. Cells never set read as zero.
type Grid struct {
	cells map[Point]int64
}

// NewGrid creates an empty grid.
func NewGrid() *Grid {
	return &Grid{cells: make(map[Point]int64)}
}

// Get returns the value at p.
func (g *Grid) Get(p Point) int64 {
	return g.cells[p]
}

// Set stores v at p. Setting a cell to zero still counts it as visited.
func (g *Grid) Set(p Point, v int64) {
	g.cells[p] = v
}

// Has reports whether p was ever set.
func (g *Grid) Has(p Point) bool {
	_, ok := g.cells[p]
	return ok
}

// Len returns the number of cells ever set.
func (g *Grid) Len() int {
	return len(g.cells)
}

// Count returns the number of cells currently holding v.
func (g *Grid) Count(v int64) int {
	n := 0
	for _, c := range g.cells {
		if c == v {
			n++
		}
	}
	return n
}

// Bounds returns the smallest rectangle covering every set cell. ok is
// false for an empty grid.
func (g *Grid) Bounds() (min, max Point, ok bool) {
	for p := range g.cells {
		if !ok {
			min, max, ok = p, p, true
			continue
		}
		if p.X < min.X {
			min.X = p.X
		}
		if p.Y < min.Y {
			min.Y = p.Y
		}
		if p.X > max.X {
			max.X = p.X
		}
		if p.Y > max.Y {
			max.Y = p.Y
		}
	}
	return min, max, ok
}

// Render draws the grid row by row, mapping each cell through glyph.
// Every row ends in a newline.
func (g *Grid) Render(glyph func(v int64) rune) string {
	min, max, ok := g.Bounds()
	if !ok {
		return ""
	}

	var sb strings.Builder
	for y := min.Y; y <= max.Y; y++ {
		for x := min.X; x <= max.X; x++ {
			sb.WriteRune(glyph(g.cells[Point{X: x, Y: y}]))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
