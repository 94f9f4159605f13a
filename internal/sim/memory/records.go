package memory

// RoleData is the opaque per-role parameter set supplied by whoever requested the unit.
// It is written once at spawn time and only read afterwards.
type RoleData struct {
	SourceID string `json:"sourceId,omitempty"`
	TargetID string `json:"targetId,omitempty"`
}

// Agent is the durable memory of one unit, keyed by unit name.
type Agent struct {
	Role string   `json:"role"`
	Room string   `json:"room"`
	Data RoleData `json:"data"`

	Ready   bool `json:"ready,omitempty"`
	Working bool `json:"working,omitempty"`
	Standed bool `json:"standed,omitempty"`

	// Inert is set when the role cannot be resolved; the unit is skipped from then on.
	Inert bool `json:"inert,omitempty"`
	// UnitID is the durable identity bound on the construction tick.
	UnitID string `json:"unitId,omitempty"`

	// Scratch fields. Each one is optional and recomputed when its target stops resolving.
	TargetID           string `json:"targetId,omitempty"`
	SourceID           string `json:"sourceId,omitempty"`
	ConstructionSiteID string `json:"constructionSiteId,omitempty"`
	FillWallID         string `json:"fillWallId,omitempty"`

	PrePos       string     `json:"prePos,omitempty"`
	DisableCross bool       `json:"disableCross,omitempty"`
	Move         *MoveCache `json:"_move,omitempty"`
}

// MoveCache is a cached path: Path holds one direction digit per step,
// starting from the serialized position Pos.
type MoveCache struct {
	Dest string `json:"dest"`
	Pos  string `json:"pos"`
	Path string `json:"path"`
}

// TransferTask is a center transfer request; one per submitting structure.
type TransferTask struct {
	Submit       string `json:"submit"`
	Target       string `json:"target"`
	ResourceType string `json:"resourceType"`
	Amount       int    `json:"amount"`
}

// RoomTransferTask is a room logistics request; one per task type.
type RoomTransferTask struct {
	Type         string `json:"type"`
	TargetID     string `json:"targetId,omitempty"`
	ResourceType string `json:"resourceType,omitempty"`
	Amount       int    `json:"amount,omitempty"`
}

// Room is the durable memory shared by every unit acting in one room.
type Room struct {
	// RestrictedPos maps reserving unit name to a serialized position.
	RestrictedPos map[string]string `json:"restrictedPos,omitempty"`

	CenterTransferTasks []TransferTask     `json:"centerTransferTasks,omitempty"`
	SpawnList           []string           `json:"spawnList,omitempty"`
	PowerTasks          []int              `json:"powerTasks,omitempty"`
	PowerSeeded         bool               `json:"powerSeeded,omitempty"`
	TransferTasks       []RoomTransferTask `json:"transferTasks,omitempty"`
	TaskStats           map[string]int     `json:"roomTaskNumber,omitempty"`

	SourceIDs          []string `json:"sourceIds,omitempty"`
	MineralID          string   `json:"mineralId,omitempty"`
	SourceContainerIDs []string `json:"sourceContainersIds,omitempty"`

	ConstructionSiteID   string  `json:"constructionSiteId,omitempty"`
	ConstructionSiteType string  `json:"constructionSiteType,omitempty"`
	ConstructionSitePos  *[2]int `json:"constructionSitePos,omitempty"`
}

// SpawnConfig is a pending or standing unit request, keyed by unit name.
type SpawnConfig struct {
	Role      string   `json:"role"`
	Data      RoleData `json:"data"`
	SpawnRoom string   `json:"spawnRoom"`
	RequestID string   `json:"requestId,omitempty"`
}
