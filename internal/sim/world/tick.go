package world

import (
	"sort"

	"github.com/Soulycoris/ts-screep/internal/sim/geo"
)

// EndTick applies everything deferred to the end of the tick: movement,
// spawning, source regeneration and aging. It then advances the tick counter.
func (w *World) EndTick() {
	w.resolveMoves()
	w.died = w.died[:0]

	for _, id := range sortedKeys(w.objects) {
		o := w.objects[id]
		switch o.Kind {
		case KindSource:
			if o.RegenAt != 0 && w.tick >= o.RegenAt {
				o.Store.Res = map[string]int{Energy: SourceCapacity}
				o.RegenAt = 0
			}
		case KindSpawn:
			if o.Spawning != "" && w.tick >= o.SpawnAt {
				if u := w.units[o.Spawning]; u != nil {
					u.Spawning = false
				}
				o.Spawning = ""
				o.SpawnAt = 0
			}
		}
	}

	for _, name := range w.UnitNames() {
		u := w.units[name]
		if !u.Spawning && !u.dead {
			u.TicksToLive--
		}
		if u.dead || u.TicksToLive <= 0 {
			w.removeUnit(u)
			continue
		}
		u.Said = ""
	}
	w.tick++
}

func (w *World) removeUnit(u *Unit) {
	delete(w.units, u.Name)
	delete(w.byID, u.ID)
	w.died = append(w.died, u.Name)
}

// resolveMoves applies this tick's intents. A unit moves when its destination
// is walkable and either empty or being vacated; two units stepping onto each
// other's cells swap. Contested cells go to the first mover by name.
func (w *World) resolveMoves() {
	defer clear(w.intents)
	if len(w.intents) == 0 {
		return
	}

	occupied := make(map[geo.Pos]string, len(w.units))
	for name, u := range w.units {
		occupied[u.Pos] = name
	}

	type move struct {
		name string
		from geo.Pos
		to   geo.Pos
	}
	pending := make([]move, 0, len(w.intents))
	for name, d := range w.intents {
		u := w.units[name]
		if u == nil || u.dead || u.Spawning {
			continue
		}
		to := u.Pos.Step(d)
		if !w.Walkable(to) {
			continue
		}
		pending = append(pending, move{name: name, from: u.Pos, to: to})
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].name < pending[j].name })

	dest := make(map[string]geo.Pos, len(pending))
	for _, m := range pending {
		dest[m.name] = m.to
	}
	done := make(map[string]bool, len(pending))

	apply := func(m move) {
		if occupied[m.from] == m.name {
			delete(occupied, m.from)
		}
		occupied[m.to] = m.name
		w.units[m.name].Pos = m.to
		done[m.name] = true
	}

	for progress := true; progress; {
		progress = false
		for _, m := range pending {
			if done[m.name] {
				continue
			}
			other, taken := occupied[m.to]
			switch {
			case !taken:
				apply(m)
				progress = true
			case !done[other]:
				if to, ok := dest[other]; ok && to == m.from {
					otherMove := move{name: other, from: m.to, to: m.from}
					delete(occupied, m.from)
					delete(occupied, m.to)
					apply(m)
					apply(otherMove)
					progress = true
				}
			}
		}
	}
}
