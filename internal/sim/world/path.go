package world

import "github.com/Soulycoris/ts-screep/internal/sim/geo"

// FindPath searches for a path from start to any cell within rng of target in
// the same room. blocked, when set, marks extra cells the path must avoid;
// the target cell itself is exempt when rng is 0.
//
// The search is a breadth-first walk with a fixed neighbor order so equal
// inputs always give the same path. maxOps caps visited cells.
func (w *World) FindPath(start, target geo.Pos, rng int, blocked func(geo.Pos) bool, maxOps int) ([]geo.Direction, bool) {
	if start.Room != target.Room {
		return nil, false
	}
	if start.InRange(target, rng) {
		return nil, true
	}
	if maxOps <= 0 {
		maxOps = 2000
	}

	passable := func(p geo.Pos) bool {
		if !w.Walkable(p) {
			return rng == 0 && p == target && p.InBounds()
		}
		if blocked != nil && blocked(p) {
			return false
		}
		return true
	}

	visited := make(map[geo.Pos]bool, 256)
	visited[start] = true
	queue := make([]pathNode, 0, 256)
	queue = append(queue, pathNode{p: start, via: -1})

	for head := 0; head < len(queue) && len(visited) < maxOps; head++ {
		it := queue[head]
		for _, d := range geo.All {
			np := it.p.Step(d)
			if visited[np] || !np.InBounds() {
				continue
			}
			visited[np] = true
			if !passable(np) {
				continue
			}
			queue = append(queue, pathNode{p: np, via: head, dir: d})
			if np.InRange(target, rng) {
				return unwind(queue, len(queue)-1), true
			}
		}
	}
	return nil, false
}

type pathNode struct {
	p   geo.Pos
	via int
	dir geo.Direction
}

func unwind(queue []pathNode, at int) []geo.Direction {
	var rev []geo.Direction
	for at > 0 {
		rev = append(rev, queue[at].dir)
		at = queue[at].via
	}
	out := make([]geo.Direction, len(rev))
	for i, d := range rev {
		out[len(rev)-1-i] = d
	}
	return out
}
