package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Soulycoris/ts-screep/internal/sim/agent"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz         int `yaml:"tick_rate_hz"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`

	Colony Colony `yaml:"colony"`
}

// Colony holds the thresholds the unit roles work against.
type Colony struct {
	LowLifetime    int `yaml:"low_lifetime"`
	ContainerFloor int `yaml:"container_floor"`
	TerminalFloor  int `yaml:"terminal_floor"`
	StorageFloor   int `yaml:"storage_floor"`
	MinWallHits    int `yaml:"min_wall_hits"`
	PathOps        int `yaml:"path_ops"`
}

func Defaults() Tuning {
	s := agent.DefaultSettings()
	return Tuning{
		ProtocolVersion:    "1.0",
		TickRateHz:         5,
		SnapshotEveryTicks: 3000,
		Colony: Colony{
			LowLifetime:    s.LowLifetime,
			ContainerFloor: s.ContainerFloor,
			TerminalFloor:  s.TerminalFloor,
			StorageFloor:   s.StorageFloor,
			MinWallHits:    s.MinWallHits,
			PathOps:        s.PathOps,
		},
	}
}

// Load reads path over Defaults, so omitted keys keep their default.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be > 0")
	}
	if t.SnapshotEveryTicks < 0 {
		return fmt.Errorf("snapshot_every_ticks must be >= 0")
	}
	if t.Colony.LowLifetime < 0 || t.Colony.PathOps <= 0 {
		return fmt.Errorf("colony: low_lifetime must be >= 0 and path_ops > 0")
	}
	return nil
}

func (t Tuning) Settings() agent.Settings {
	return agent.Settings{
		LowLifetime:    t.Colony.LowLifetime,
		ContainerFloor: t.Colony.ContainerFloor,
		TerminalFloor:  t.Colony.TerminalFloor,
		StorageFloor:   t.Colony.StorageFloor,
		MinWallHits:    t.Colony.MinWallHits,
		PathOps:        t.Colony.PathOps,
	}
}
