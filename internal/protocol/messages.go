package protocol

import (
	"encoding/json"

	"github.com/Soulycoris/ts-screep/internal/sim/colony"
	"github.com/Soulycoris/ts-screep/internal/sim/memory"
)

// SPAWN (client -> server): file a unit request with a room spawn queue.
type SpawnMsg struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	Name            string        `json:"name"`
	Role            string        `json:"role"`
	Room            string        `json:"room"`
	Data            SpawnRoleData `json:"data,omitempty"`
}

type SpawnRoleData struct {
	SourceID string `json:"source_id,omitempty"`
	TargetID string `json:"target_id,omitempty"`
}

func (m SpawnMsg) RoleData() memory.RoleData {
	return memory.RoleData{SourceID: m.Data.SourceID, TargetID: m.Data.TargetID}
}

// SPAWN_RESULT (server -> client). Index is the queue position, or -1 when
// the unit is alive and only its config was updated.
type SpawnResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Accepted        bool   `json:"accepted"`
	Name            string `json:"name,omitempty"`
	Index           int    `json:"index"`
	RequestID       string `json:"request_id,omitempty"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	ServerTick      uint64 `json:"server_tick,omitempty"`
}

// AGENT (server -> client): the durable memory record of one unit as of the
// last flushed tick.
type AgentMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	Name            string          `json:"name"`
	Agent           json.RawMessage `json:"agent,omitempty"`
	Code            string          `json:"code,omitempty"`
	Message         string          `json:"message,omitempty"`
}

// StateMsg is the body of GET /v1/state.
type StateMsg struct {
	ColonyID        string `json:"colony_id"`
	Tick            uint64 `json:"tick"`
	ProtocolVersion string `json:"protocol_version"`
	Observers       int    `json:"observers"`
}

// SUBSCRIBE (observer -> server). First message on the observer connection;
// it can be re-sent to change the filter.
type SubscribeMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	Rooms           []string `json:"rooms,omitempty"`
	EveryTicks      int      `json:"every_ticks,omitempty"`
}

// TICK (server -> observer). Sent after every finished tick.
type TickMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ColonyID        string `json:"colony_id"`

	colony.Summary
}

func NewTickMsg(colonyID string, s colony.Summary) TickMsg {
	return TickMsg{Type: TypeTick, ProtocolVersion: Version, ColonyID: colonyID, Summary: s}
}

// ForRooms returns a copy carrying only the named rooms. Empty keeps all.
func (m TickMsg) ForRooms(rooms []string) TickMsg {
	if len(rooms) == 0 {
		return m
	}
	keep := make(map[string]bool, len(rooms))
	for _, r := range rooms {
		keep[r] = true
	}
	out := m
	out.Rooms = nil
	for _, r := range m.Rooms {
		if keep[r.Name] {
			out.Rooms = append(out.Rooms, r)
		}
	}
	return out
}
