package kernel

import (
	"os"

	yaml "github.com/goccy/go-yaml"
)

// Defaults mirror a typical Cortex-M deployment: a 1 kHz tick and a small
// fixed task table.
const (
	DefaultMaxTasks       = 32
	DefaultTickRateHz     = 1000
	DefaultPriorityLevels = 16
)

// Config fixes the kernel's sizing knobs. On a real target these are baked
// in at build time; the host simulator may override them from YAML.
type Config struct {
	MaxTasks       int    `yaml:"max_tasks"`       // task table capacity, including the idle task
	TickRateHz     uint32 `yaml:"tick_rate_hz"`    // tick source frequency published to applications
	PriorityLevels int    `yaml:"priority_levels"` // usable priorities are 0 .. PriorityLevels-2
}

func defaultConfig() Config {
	return Config{
		MaxTasks:       DefaultMaxTasks,
		TickRateHz:     DefaultTickRateHz,
		PriorityLevels: DefaultPriorityLevels,
	}
}

// Load reads YAML and overrides defaults; empty path = defaults only.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	_ = yaml.Unmarshal(data, &cfg)

	// sanity clamps
	if cfg.MaxTasks < 2 {
		cfg.MaxTasks = DefaultMaxTasks
	}
	if cfg.TickRateHz == 0 {
		cfg.TickRateHz = DefaultTickRateHz
	}
	if cfg.PriorityLevels < 2 {
		cfg.PriorityLevels = DefaultPriorityLevels
	}
	if cfg.PriorityLevels > 256 {
		cfg.PriorityLevels = 256
	}

	return cfg
}

// IdlePriority returns the reserved lowest-urgency priority level.
func (c Config) IdlePriority() Priority {
	return Priority(c.PriorityLevels - 1)
}
