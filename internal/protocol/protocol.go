// Package protocol defines the JSON messages of the colony HTTP and observer
// surfaces, their error codes and the schemas inbound messages are checked
// against.
package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeSpawn       = "SPAWN"
	TypeSpawnResult = "SPAWN_RESULT"
	TypeSubscribe   = "SUBSCRIBE"
	TypeTick        = "TICK"
	TypeAgent       = "AGENT"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
