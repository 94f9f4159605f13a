package geo

// Direction is one of the eight compass steps, numbered clockwise from Top (1).
type Direction int

const (
	Top Direction = iota + 1
	TopRight
	Right
	BottomRight
	Bottom
	BottomLeft
	Left
	TopLeft
)

var All = [8]Direction{Top, TopRight, Right, BottomRight, Bottom, BottomLeft, Left, TopLeft}

var deltas = [9][2]int{
	{0, 0},
	{0, -1},
	{1, -1},
	{1, 0},
	{1, 1},
	{0, 1},
	{-1, 1},
	{-1, 0},
	{-1, -1},
}

func (d Direction) Valid() bool { return d >= Top && d <= TopLeft }

func (d Direction) Delta() (int, int) {
	if !d.Valid() {
		return 0, 0
	}
	v := deltas[d]
	return v[0], v[1]
}

func (d Direction) Opposite() Direction {
	return Direction((int(d)+3)%8 + 1)
}
