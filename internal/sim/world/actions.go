package world

import "github.com/Soulycoris/ts-screep/internal/sim/geo"

const (
	rangeAdjacent = 1
	rangeWork     = 3
)

// controllerProgress is the upgrade progress needed to leave each level.
var controllerProgress = map[int]int{1: 200, 2: 45000, 3: 135000, 4: 405000, 5: 1215000, 6: 3645000, 7: 10935000}

func (w *World) usable(u *Unit) Code {
	if u == nil || u.dead {
		return ErrInvalidTarget
	}
	if u.Spawning {
		return ErrBusy
	}
	return OK
}

// Harvest takes energy from a source or a mineral's resource.
func (w *World) Harvest(u *Unit, target *Object) Code {
	if c := w.usable(u); c != OK {
		return c
	}
	if target == nil || (target.Kind != KindSource && target.Kind != KindMineral) {
		return ErrInvalidTarget
	}
	work := u.Parts(Work)
	if work == 0 {
		return ErrNoBodypart
	}
	if !u.Pos.InRange(target.Pos, rangeAdjacent) {
		return ErrNotInRange
	}
	resource, power := Energy, HarvestPower
	if target.Kind == KindMineral {
		resource, power = target.MineralType, HarvestMineral
	}
	if target.Store.Get(resource) <= 0 {
		return ErrNotEnoughResources
	}
	got := target.Store.Take(resource, work*power)
	if target.Kind == KindSource && target.RegenAt == 0 {
		target.RegenAt = w.tick + SourceRegenTicks
	}
	if over := got - u.Store.Add(resource, got); over > 0 {
		w.spill(u.Pos, resource, over)
	}
	return OK
}

// spill puts resources that left a unit into a container on pos. Anything
// without a container to land in is lost.
func (w *World) spill(pos geo.Pos, resource string, n int) {
	for _, o := range w.LookAt(pos) {
		if o.Kind == KindContainer {
			o.Store.Add(resource, n)
			return
		}
	}
}

// Transfer moves amount of resource from the unit into target. amount <= 0 means as much as fits.
func (w *World) Transfer(u *Unit, target *Object, resource string, amount int) Code {
	if c := w.usable(u); c != OK {
		return c
	}
	if target == nil || target.Store == nil || target.Store.Capacity == 0 {
		return ErrInvalidTarget
	}
	if !u.Pos.InRange(target.Pos, rangeAdjacent) {
		return ErrNotInRange
	}
	have := u.Store.Get(resource)
	if have == 0 {
		return ErrNotEnoughResources
	}
	if target.Store.Free(resource) == 0 {
		return ErrFull
	}
	if amount <= 0 || amount > have {
		amount = have
	}
	moved := target.Store.Add(resource, amount)
	u.Store.Take(resource, moved)
	return OK
}

// Withdraw moves resource from target into the unit. amount <= 0 means as much as fits.
func (w *World) Withdraw(u *Unit, target *Object, resource string, amount int) Code {
	if c := w.usable(u); c != OK {
		return c
	}
	if target == nil || target.Store == nil || !target.IsStructure() {
		return ErrInvalidTarget
	}
	if !u.Pos.InRange(target.Pos, rangeAdjacent) {
		return ErrNotInRange
	}
	if target.Store.Get(resource) == 0 {
		return ErrNotEnoughResources
	}
	if u.Store.Free(resource) == 0 {
		return ErrFull
	}
	if amount <= 0 {
		amount = u.Store.Free(resource)
	}
	amount = min(amount, u.Store.Free(resource))
	got := target.Store.Take(resource, amount)
	u.Store.Add(resource, got)
	return OK
}

// Build spends energy on a construction site. A finished site becomes its structure.
func (w *World) Build(u *Unit, site *Object) Code {
	if c := w.usable(u); c != OK {
		return c
	}
	if site == nil || site.Kind != KindConstructionSite {
		return ErrInvalidTarget
	}
	work := u.Parts(Work)
	if work == 0 {
		return ErrNoBodypart
	}
	if !u.Pos.InRange(site.Pos, rangeWork) {
		return ErrNotInRange
	}
	energy := u.Store.Get(Energy)
	if energy == 0 {
		return ErrNotEnoughResources
	}
	spend := min(work*BuildPower, energy, site.ProgressTotal-site.Progress)
	u.Store.Take(Energy, spend)
	site.Progress += spend
	if site.Progress >= site.ProgressTotal {
		w.completeSite(site)
	}
	return OK
}

func (w *World) completeSite(site *Object) {
	delete(w.objects, site.ID)
	built := newObject(site.ID, site.StructureType, site.Pos)
	w.objects[built.ID] = built
}

// Repair restores hits on a structure.
func (w *World) Repair(u *Unit, target *Object) Code {
	if c := w.usable(u); c != OK {
		return c
	}
	if target == nil || !target.IsStructure() || target.HitsMax == 0 {
		return ErrInvalidTarget
	}
	work := u.Parts(Work)
	if work == 0 {
		return ErrNoBodypart
	}
	if !u.Pos.InRange(target.Pos, rangeWork) {
		return ErrNotInRange
	}
	if u.Store.Get(Energy) == 0 {
		return ErrNotEnoughResources
	}
	spend := min(work, u.Store.Get(Energy))
	u.Store.Take(Energy, spend)
	target.Hits = min(target.Hits+spend*RepairPower, target.HitsMax)
	return OK
}

func (w *World) UpgradeController(u *Unit, ctrl *Object) Code {
	if c := w.usable(u); c != OK {
		return c
	}
	if ctrl == nil || ctrl.Kind != KindController {
		return ErrInvalidTarget
	}
	work := u.Parts(Work)
	if work == 0 {
		return ErrNoBodypart
	}
	if !u.Pos.InRange(ctrl.Pos, rangeWork) {
		return ErrNotInRange
	}
	if u.Store.Get(Energy) == 0 {
		return ErrNotEnoughResources
	}
	spend := min(work*UpgradePower, u.Store.Get(Energy))
	u.Store.Take(Energy, spend)
	ctrl.Progress += spend
	if need, ok := controllerProgress[ctrl.Level]; ok && ctrl.Progress >= need {
		ctrl.Level++
		ctrl.Progress -= need
	}
	return OK
}

// Drop empties the unit's resource onto its cell.
func (w *World) Drop(u *Unit, resource string) Code {
	if c := w.usable(u); c != OK {
		return c
	}
	n := u.Store.Take(resource, u.Store.Get(resource))
	if n == 0 {
		return ErrNotEnoughResources
	}
	w.spill(u.Pos, resource, n)
	return OK
}

func (w *World) Say(u *Unit, text string) Code {
	if c := w.usable(u); c != OK {
		return c
	}
	u.Said = text
	return OK
}

// Suicide removes the unit at the end of the tick.
func (w *World) Suicide(u *Unit) Code {
	if c := w.usable(u); c != OK {
		return c
	}
	u.dead = true
	return OK
}

// Move records a one-step intent in dir, resolved at the end of the tick.
// A later intent in the same tick replaces an earlier one.
func (w *World) Move(u *Unit, dir geo.Direction) Code {
	if c := w.usable(u); c != OK {
		return c
	}
	if !dir.Valid() {
		return ErrInvalidArgs
	}
	if u.Parts(Move) == 0 {
		return ErrNoBodypart
	}
	w.intents[u.Name] = dir
	return OK
}

// Intent returns the move recorded for the unit this tick.
func (w *World) Intent(name string) (geo.Direction, bool) {
	d, ok := w.intents[name]
	return d, ok
}

// SpawnUnit starts growing a unit next to spawn. The body cost is paid from
// the room's spawns and extensions.
func (w *World) SpawnUnit(spawn *Object, name string, body []Part) Code {
	if spawn == nil || spawn.Kind != KindSpawn {
		return ErrInvalidTarget
	}
	if spawn.Spawning != "" {
		return ErrBusy
	}
	if len(body) == 0 {
		return ErrInvalidArgs
	}
	if _, ok := w.units[name]; ok {
		return ErrInvalidArgs
	}
	cost := BodyCost(body)
	pool := w.FindFunc(spawn.Pos.Room, func(o *Object) bool {
		return o.Kind == KindSpawn || o.Kind == KindExtension
	})
	total := 0
	for _, o := range pool {
		total += o.Store.Get(Energy)
	}
	if total < cost {
		return ErrNotEnoughResources
	}
	at, ok := w.freeAround(spawn.Pos)
	if !ok {
		return ErrBusy
	}
	for _, o := range pool {
		cost -= o.Store.Take(Energy, cost)
		if cost == 0 {
			break
		}
	}
	u, err := w.AddUnit(name, body, at)
	if err != nil {
		return ErrInvalidArgs
	}
	u.Spawning = true
	spawn.Spawning = name
	spawn.SpawnAt = w.tick + uint64(len(body)*SpawnTicksPerPart)
	return OK
}

func (w *World) freeAround(pos geo.Pos) (geo.Pos, bool) {
	for _, d := range geo.All {
		p := pos.Step(d)
		if w.Walkable(p) && w.UnitAt(p) == nil {
			return p, true
		}
	}
	return geo.Pos{}, false
}
