package agent

import (
	"fmt"
	"strings"

	"github.com/Soulycoris/ts-screep/internal/sim/geo"
	"github.com/Soulycoris/ts-screep/internal/sim/memory"
	"github.com/Soulycoris/ts-screep/internal/sim/world"
)

// GoTo steps toward target until the unit is within rng of it. Paths ignore
// other units and avoid cells reserved by anyone else; they are cached in
// memory and replanned when the unit strays from them.
func (u *Unit) GoTo(target geo.Pos, rng int) world.Code {
	cur := u.Body.Pos
	if cur.InRange(target, rng) {
		u.Mem.Move = nil
		return world.OK
	}
	dest := geo.Serialize(target)
	dir, ok := u.cachedStep(dest)
	if !ok {
		path, found := u.env.World.FindPath(cur, target, rng, u.blocked, u.env.Settings.PathOps)
		if !found || len(path) == 0 {
			u.Mem.Move = nil
			return world.ErrNoPath
		}
		u.Mem.Move = &memory.MoveCache{Dest: dest, Pos: geo.Serialize(cur), Path: encodePath(path)}
		dir = path[0]
	}
	return u.MoveEx(dir)
}

func (u *Unit) blocked(p geo.Pos) bool {
	return u.Room.Reserve.Blocked(p, u.Name)
}

// cachedStep returns the next direction of the cached path to dest. A step
// that was taken since the last tick is consumed first.
func (u *Unit) cachedStep(dest string) (geo.Direction, bool) {
	c := u.Mem.Move
	if c == nil || c.Dest != dest || c.Path == "" {
		return 0, false
	}
	start, err := geo.Parse(c.Pos)
	if err != nil {
		return 0, false
	}
	cur := u.Body.Pos
	if cur != start {
		if cur != start.Step(decodeStep(c.Path[0])) {
			return 0, false
		}
		c.Path = c.Path[1:]
		c.Pos = geo.Serialize(cur)
		if c.Path == "" {
			return 0, false
		}
	}
	d := decodeStep(c.Path[0])
	if !d.Valid() {
		return 0, false
	}
	return d, true
}

// MoveEx records a one-step move. A unit in the way is asked to cross; a
// refusal, or a unit that has not moved since its last attempt, drops the
// cached path so the next GoTo replans.
func (u *Unit) MoveEx(dir geo.Direction) world.Code {
	if code := u.env.World.Move(u.Body, dir); code != world.OK {
		return code
	}
	cur := fmt.Sprintf("%d/%d", u.Body.Pos.X, u.Body.Pos.Y)
	front := u.env.World.UnitAt(u.Body.Pos.Step(dir))

	switch {
	case front != nil:
		res := CrossRefused
		if !u.Mem.DisableCross {
			res = u.MutualCross(dir)
		}
		if res == CrossRefused {
			u.Mem.Move = nil
			u.Mem.PrePos = cur
			return world.ErrInvalidTarget
		}
	case u.Mem.PrePos == cur:
		u.Mem.Move = nil
		u.Mem.PrePos = ""
		return world.ErrInvalidTarget
	}
	u.Mem.PrePos = cur
	return world.OK
}

func encodePath(path []geo.Direction) string {
	var b strings.Builder
	b.Grow(len(path))
	for _, d := range path {
		b.WriteByte(byte('0' + d))
	}
	return b.String()
}

func decodeStep(c byte) geo.Direction { return geo.Direction(c - '0') }
