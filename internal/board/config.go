package board

import (
	"os"

	yaml "github.com/goccy/go-yaml"
)

// Config mirrors board.yml. Priorities are numeric interrupt priorities,
// lower is more urgent.
type Config struct {
	TickUS          int    `yaml:"tick_us"`          // 1000 (by default)
	SysTickPriority int    `yaml:"systick_priority"` // 1 (by default)
	UARTPriority    int    `yaml:"uart_priority"`    // 2 (by default)
	SoftPriority    int    `yaml:"soft_priority"`    // 6 (by default)
	TraceCSV        string `yaml:"trace_csv"`        // empty = no CSV log
	TraceDump       string `yaml:"trace_dump"`       // empty = no msgpack dump
}

func defaultConfig() Config {
	return Config{
		TickUS:          1000,
		SysTickPriority: 1,
		UARTPriority:    2,
		SoftPriority:    6,
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
	if cfg.TickUS <= 0 {
		cfg.TickUS = 1000
	}
	cfg.SysTickPriority = clampPriority(cfg.SysTickPriority, 1)
	cfg.UARTPriority = clampPriority(cfg.UARTPriority, 2)
	cfg.SoftPriority = clampPriority(cfg.SoftPriority, 6)

	return cfg
}

func clampPriority(p, fallback int) int {
	if p < 0 || p > 254 {
		return fallback
	}
	return p
}
