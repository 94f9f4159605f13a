package colony

import (
	"time"

	"github.com/Soulycoris/ts-screep/internal/sim/agent"
	"github.com/Soulycoris/ts-screep/internal/sim/memory"
)

// Summary describes one finished tick.
type Summary struct {
	Tick        uint64         `json:"tick"`
	Agents      int            `json:"agents"`
	Phases      map[string]int `json:"phases"`
	Transitions int            `json:"transitions"`
	Failures    []Failure      `json:"failures,omitempty"`
	Reaped      []string       `json:"reaped,omitempty"`
	Died        []string       `json:"died,omitempty"`
	Swept       int            `json:"swept"`
	Said        []Said         `json:"said,omitempty"`
	Rooms       []RoomSummary  `json:"rooms"`
	Writes      int            `json:"writes"`
	Digest      string         `json:"digest"`

	Duration time.Duration `json:"-"`
}

type Failure struct {
	Worker string `json:"worker"`
	Err    string `json:"err"`
}

type Said struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

type RoomSummary struct {
	Name         string `json:"name"`
	Reservations int    `json:"reservations"`
	SpawnQueue   int    `json:"spawnQueue"`
	CenterQueue  int    `json:"centerQueue"`
	PowerQueue   int    `json:"powerQueue"`
	TransferQ    int    `json:"transferQueue"`
}

func roomSummary(r *agent.Room) RoomSummary {
	return RoomSummary{
		Name:         r.Name,
		Reservations: r.Reserve.Len(),
		SpawnQueue:   r.Spawns.Len(),
		CenterQueue:  r.Center.Len(),
		PowerQueue:   r.Power.Len(),
		TransferQ:    r.Transfers.Len(),
	}
}

type TickLogEntry struct {
	Tick     uint64          `json:"tick"`
	Spawns   []RecordedSpawn `json:"spawns,omitempty"`
	Failures []Failure       `json:"failures,omitempty"`
	Reaped   []string        `json:"reaped,omitempty"`
	Digest   string          `json:"digest"`
}

type RecordedSpawn struct {
	Name      string          `json:"name"`
	Role      string          `json:"role"`
	Room      string          `json:"room"`
	Data      memory.RoleData `json:"data"`
	Index     int             `json:"index"`
	RequestID string          `json:"request_id,omitempty"`
}
