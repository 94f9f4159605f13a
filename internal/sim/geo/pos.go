package geo

import (
	"fmt"
	"strconv"
	"strings"
)

// RoomSize is the edge length of a room grid.
const RoomSize = 50

type Pos struct {
	X    int
	Y    int
	Room string
}

func (p Pos) String() string { return Serialize(p) }

// Serialize encodes p as "x/y/room", e.g. "12/32/E1N2".
func Serialize(p Pos) string {
	return fmt.Sprintf("%d/%d/%s", p.X, p.Y, p.Room)
}

func Parse(s string) (Pos, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return Pos{}, fmt.Errorf("bad pos %q", s)
	}
	x, err := strconv.Atoi(parts[0])
	if err != nil {
		return Pos{}, fmt.Errorf("bad pos %q: %w", s, err)
	}
	y, err := strconv.Atoi(parts[1])
	if err != nil {
		return Pos{}, fmt.Errorf("bad pos %q: %w", s, err)
	}
	if parts[2] == "" {
		return Pos{}, fmt.Errorf("bad pos %q: empty room", s)
	}
	return Pos{X: x, Y: y, Room: parts[2]}, nil
}

func (p Pos) InBounds() bool {
	return p.X >= 0 && p.X < RoomSize && p.Y >= 0 && p.Y < RoomSize
}

// Range is the Chebyshev distance; rooms must match, otherwise it is effectively infinite.
func (p Pos) Range(o Pos) int {
	if p.Room != o.Room {
		return 1 << 30
	}
	return max(abs(p.X-o.X), abs(p.Y-o.Y))
}

func (p Pos) InRange(o Pos, r int) bool { return p.Range(o) <= r }

func (p Pos) IsNear(o Pos) bool { return p.InRange(o, 1) }

func (p Pos) Step(d Direction) Pos {
	dx, dy := d.Delta()
	return Pos{X: p.X + dx, Y: p.Y + dy, Room: p.Room}
}

// DirectionTo returns the direction of the first step from p toward o, or 0 when equal.
func (p Pos) DirectionTo(o Pos) Direction {
	dx := sign(o.X - p.X)
	dy := sign(o.Y - p.Y)
	for _, d := range All {
		ddx, ddy := d.Delta()
		if ddx == dx && ddy == dy {
			return d
		}
	}
	return 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
