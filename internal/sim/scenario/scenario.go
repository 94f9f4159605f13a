// Package scenario loads a yaml description of rooms, objects and standing
// unit requests, used to seed a fresh colony.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Soulycoris/ts-screep/internal/sim/agent"
	"github.com/Soulycoris/ts-screep/internal/sim/geo"
	"github.com/Soulycoris/ts-screep/internal/sim/memory"
	"github.com/Soulycoris/ts-screep/internal/sim/spawn"
	"github.com/Soulycoris/ts-screep/internal/sim/world"
)

type Scenario struct {
	Rooms    []Room    `yaml:"rooms"`
	Requests []Request `yaml:"requests"`
}

type Room struct {
	Name string `yaml:"name"`
	// Terrain rows top to bottom; '#' marks a wall cell.
	Terrain []string `yaml:"terrain"`
	Objects []Object `yaml:"objects"`
}

type Object struct {
	// Ref names the object so requests can point at it.
	Ref    string `yaml:"ref"`
	Kind   string `yaml:"kind"`
	At     [2]int `yaml:"at"`
	Energy int    `yaml:"energy"`
	// Minerals only.
	Mineral string `yaml:"mineral"`
	Amount  int    `yaml:"amount"`
	// Construction sites only.
	Structure string `yaml:"structure"`
}

// Request is a standing unit request. Source and Target are object refs.
type Request struct {
	Name   string `yaml:"name"`
	Role   string `yaml:"role"`
	Room   string `yaml:"room"`
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

func Load(path string) (Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}
	return Parse(raw)
}

func Parse(raw []byte) (Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("scenario: %w", err)
	}
	if len(s.Rooms) == 0 {
		return s, fmt.Errorf("scenario: no rooms")
	}
	return s, nil
}

// Build creates the world and returns it with the ref to object id mapping.
func (s Scenario) Build() (*world.World, map[string]string, error) {
	w := world.New()
	refs := map[string]string{}
	for _, r := range s.Rooms {
		if r.Name == "" {
			return nil, nil, fmt.Errorf("scenario: room without name")
		}
		w.AddRoom(r.Name, walls(r.Terrain))
		for i, o := range r.Objects {
			pos := geo.Pos{X: o.At[0], Y: o.At[1], Room: r.Name}
			if !pos.InBounds() {
				return nil, nil, fmt.Errorf("scenario: %s object %d out of bounds", r.Name, i)
			}
			obj, err := place(w, o, pos)
			if err != nil {
				return nil, nil, fmt.Errorf("scenario: %s object %d: %w", r.Name, i, err)
			}
			if o.Ref != "" {
				if _, dup := refs[o.Ref]; dup {
					return nil, nil, fmt.Errorf("scenario: duplicate ref %q", o.Ref)
				}
				refs[o.Ref] = obj.ID
			}
		}
	}
	return w, refs, nil
}

func place(w *world.World, o Object, pos geo.Pos) (*world.Object, error) {
	kind := world.Kind(o.Kind)
	if kind == world.KindConstructionSite {
		id, code := w.CreateConstructionSite(pos, world.Kind(o.Structure))
		if code != world.OK {
			return nil, fmt.Errorf("site for %q: %s", o.Structure, code)
		}
		return w.Object(id), nil
	}
	if !world.KnownKind(kind) {
		return nil, fmt.Errorf("unknown kind %q", o.Kind)
	}
	obj := w.AddObject(kind, pos)
	if o.Energy > 0 && obj.Store != nil {
		obj.Store.Res = map[string]int{world.Energy: o.Energy}
	}
	if kind == world.KindMineral {
		obj.MineralType = o.Mineral
		obj.Store.Res = map[string]int{o.Mineral: o.Amount}
	}
	return obj, nil
}

func walls(rows []string) [][2]int {
	var out [][2]int
	for y, row := range rows {
		for x, c := range row {
			if c == '#' {
				out = append(out, [2]int{x, y})
			}
		}
	}
	return out
}

// Submit files every request through the spawn API, resolving refs to ids.
func (s Scenario) Submit(e *agent.Env, refs map[string]string) error {
	for _, r := range s.Requests {
		if _, err := spawn.Add(e, r.Name, r.Role, r.RoleData(refs), r.Room); err != nil {
			return fmt.Errorf("scenario: request %q: %w", r.Name, err)
		}
	}
	return nil
}

// RoleData resolves the request's source and target refs to object ids.
func (r Request) RoleData(refs map[string]string) memory.RoleData {
	return memory.RoleData{SourceID: resolve(refs, r.Source), TargetID: resolve(refs, r.Target)}
}

// resolve maps a ref to its id; anything else is taken as a literal id.
func resolve(refs map[string]string, ref string) string {
	if id, ok := refs[ref]; ok {
		return id
	}
	return ref
}
