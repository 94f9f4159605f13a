package world

import "github.com/Soulycoris/ts-screep/internal/sim/geo"

type Kind string

const (
	KindSource           Kind = "source"
	KindMineral          Kind = "mineral"
	KindController       Kind = "controller"
	KindSpawn            Kind = "spawn"
	KindExtension        Kind = "extension"
	KindTower            Kind = "tower"
	KindContainer        Kind = "container"
	KindStorage          Kind = "storage"
	KindTerminal         Kind = "terminal"
	KindWall             Kind = "constructedWall"
	KindRampart          Kind = "rampart"
	KindRoad             Kind = "road"
	KindConstructionSite Kind = "constructionSite"
)

const Energy = "energy"

// Code is the result of a unit action, mirroring the host engine's return codes.
type Code string

const (
	OK                    Code = "OK"
	ErrNotInRange         Code = "ERR_NOT_IN_RANGE"
	ErrNotEnoughResources Code = "ERR_NOT_ENOUGH_RESOURCES"
	ErrFull               Code = "ERR_FULL"
	ErrInvalidTarget      Code = "ERR_INVALID_TARGET"
	ErrInvalidArgs        Code = "ERR_INVALID_ARGS"
	ErrBusy               Code = "ERR_BUSY"
	ErrNoBodypart         Code = "ERR_NO_BODYPART"
	ErrNoPath             Code = "ERR_NO_PATH"
	ErrNotFound           Code = "ERR_NOT_FOUND"
	ErrRCLNotEnough       Code = "ERR_RCL_NOT_ENOUGH"
)

type Part string

const (
	Work  Part = "work"
	Carry Part = "carry"
	Move  Part = "move"
)

var partCost = map[Part]int{Work: 100, Carry: 50, Move: 50}

func BodyCost(body []Part) int {
	n := 0
	for _, p := range body {
		n += partCost[p]
	}
	return n
}

const (
	CarryCapacity      = 50
	UnitLifetime       = 1500
	SpawnTicksPerPart  = 3
	SourceCapacity     = 3000
	SourceRegenTicks   = 300
	HarvestPower       = 2
	HarvestMineral     = 1
	BuildPower         = 5
	RepairPower        = 100
	UpgradePower       = 1
	WallHitsMax        = 300_000_000
	RampartHitsMax     = 300_000_000
	ContainerHitsMax   = 250_000
	StructureHitsBasic = 5000
)

// kindSpec holds the static per-kind numbers.
type kindSpec struct {
	capacity  int
	only      string
	hitsMax   int
	buildCost int
	walkable  bool
}

var kinds = map[Kind]kindSpec{
	KindSource:           {capacity: SourceCapacity, only: Energy},
	KindMineral:          {},
	KindController:       {},
	KindSpawn:            {capacity: 300, only: Energy, hitsMax: StructureHitsBasic, buildCost: 15000},
	KindExtension:        {capacity: 50, only: Energy, hitsMax: 1000, buildCost: 3000},
	KindTower:            {capacity: 1000, only: Energy, hitsMax: 3000, buildCost: 5000},
	KindContainer:        {capacity: 2000, hitsMax: ContainerHitsMax, buildCost: 5000, walkable: true},
	KindStorage:          {capacity: 1_000_000, hitsMax: 10000, buildCost: 30000},
	KindTerminal:         {capacity: 300_000, hitsMax: 3000, buildCost: 100000},
	KindWall:             {hitsMax: WallHitsMax, buildCost: 1},
	KindRampart:          {hitsMax: RampartHitsMax, buildCost: 1, walkable: true},
	KindRoad:             {hitsMax: 5000, buildCost: 300, walkable: true},
	KindConstructionSite: {walkable: true},
}

func KnownKind(kind Kind) bool {
	_, ok := kinds[kind]
	return ok
}

// Buildable reports whether a construction site may be placed for kind.
func Buildable(kind Kind) bool {
	return kinds[kind].buildCost > 0
}

// Store is a resource container with an optional total capacity.
type Store struct {
	Capacity int            `json:"capacity"`
	Only     string         `json:"only,omitempty"`
	Res      map[string]int `json:"res,omitempty"`
}

func (s *Store) Get(resource string) int {
	if s == nil {
		return 0
	}
	return s.Res[resource]
}

func (s *Store) Used() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, v := range s.Res {
		n += v
	}
	return n
}

// Free is how much more of resource the store can accept.
func (s *Store) Free(resource string) int {
	if s == nil || s.Capacity <= 0 {
		return 0
	}
	if s.Only != "" && resource != s.Only {
		return 0
	}
	return max(s.Capacity-s.Used(), 0)
}

// Add stores up to n of resource and returns how much fit.
func (s *Store) Add(resource string, n int) int {
	n = min(n, s.Free(resource))
	if n <= 0 {
		return 0
	}
	if s.Res == nil {
		s.Res = map[string]int{}
	}
	s.Res[resource] += n
	return n
}

// Take removes up to n of resource and returns how much was there.
func (s *Store) Take(resource string, n int) int {
	n = min(n, s.Get(resource))
	if n <= 0 {
		return 0
	}
	s.Res[resource] -= n
	if s.Res[resource] == 0 {
		delete(s.Res, resource)
	}
	return n
}

// Object is any non-unit room object: sources, minerals, structures and construction sites.
type Object struct {
	ID   string  `json:"id"`
	Kind Kind    `json:"kind"`
	Pos  geo.Pos `json:"pos"`

	Store *Store `json:"store,omitempty"`

	Hits    int `json:"hits,omitempty"`
	HitsMax int `json:"hitsMax,omitempty"`

	// Minerals.
	MineralType string `json:"mineralType,omitempty"`
	// Sources regenerate to full at RegenAt.
	RegenAt uint64 `json:"regenAt,omitempty"`

	// Construction sites.
	StructureType Kind `json:"structureType,omitempty"`
	Progress      int  `json:"progress,omitempty"`
	ProgressTotal int  `json:"progressTotal,omitempty"`

	// Controllers.
	Level        int  `json:"level,omitempty"`
	PowerEnabled bool `json:"powerEnabled,omitempty"`

	// Spawns.
	Spawning string `json:"spawning,omitempty"`
	SpawnAt  uint64 `json:"spawnAt,omitempty"`
}

// Walkable reports whether units may stand on the object.
func (o *Object) Walkable() bool { return kinds[o.Kind].walkable }

// IsStructure is true for everything a unit can repair.
func (o *Object) IsStructure() bool {
	switch o.Kind {
	case KindSource, KindMineral, KindController, KindConstructionSite:
		return false
	}
	return true
}

func newObject(id string, kind Kind, pos geo.Pos) *Object {
	spec := kinds[kind]
	o := &Object{ID: id, Kind: kind, Pos: pos}
	if spec.capacity > 0 {
		o.Store = &Store{Capacity: spec.capacity, Only: spec.only}
	}
	if spec.hitsMax > 0 {
		o.HitsMax = spec.hitsMax
		o.Hits = spec.hitsMax
		if kind == KindWall || kind == KindRampart {
			o.Hits = 1
		}
	}
	switch kind {
	case KindSource:
		o.Store.Res = map[string]int{Energy: SourceCapacity}
	case KindMineral:
		o.Store = &Store{}
	case KindController:
		o.Level = 1
	}
	return o
}

// Unit is a mobile worker.
type Unit struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Pos         geo.Pos `json:"pos"`
	Body        []Part  `json:"body"`
	Store       *Store  `json:"store"`
	TicksToLive int     `json:"ticksToLive"`
	Spawning    bool    `json:"spawning,omitempty"`
	Said        string  `json:"said,omitempty"`

	dead bool
}

func (u *Unit) Parts(p Part) int {
	n := 0
	for _, b := range u.Body {
		if b == p {
			n++
		}
	}
	return n
}

func (u *Unit) Room() string { return u.Pos.Room }
