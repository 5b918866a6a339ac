package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/creasty/defaults"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/npiscenarios/core/factory"
)

// DefaultSimulator is the simulator type used when none is configured.
const DefaultSimulator = "seir"

// Config is the root configuration of the npiscenarios CLI.
type Config struct {
	Analysis  AnalysisConfig         `json:"analysis"`
	Data      DataConfig             `json:"data"`
	Simulator factory.ModuleConfig   `json:"simulator"`
	Sinks     []factory.ModuleConfig `json:"sinks" validate:"dive"`
	Logging   LoggingConfig          `json:"logging"`
	Metrics   MetricsConfig          `json:"metrics"`
}

// Load reads the configuration file at path, applies K_ prefixed
// environment overrides and defaults, and validates the result. Relative
// file paths are resolved against the directory of path.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides. The callback already maps "__" to the
	// "." key delimiter.
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	if err := defaults.Set(&cfg); err != nil {
		return nil, err
	}
	if cfg.Simulator.Type == "" {
		cfg.Simulator.Type = DefaultSimulator
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	cfg.resolve(filepath.Dir(path))
	return &cfg, nil
}

func (c *Config) resolve(dir string) {
	rel := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	c.Analysis.Scenario = rel(c.Analysis.Scenario)
	c.Data.Cases = rel(c.Data.Cases)
	c.Metrics.Textfile = rel(c.Metrics.Textfile)
	for i, s := range c.Sinks {
		if p, ok := s.Conf["path"].(string); ok && !isDSN(p) {
			c.Sinks[i].Conf["path"] = rel(p)
		}
		if p, ok := s.Conf["fits_path"].(string); ok {
			c.Sinks[i].Conf["fits_path"] = rel(p)
		}
	}
}

// isDSN reports whether p is an in-memory or URI style sqlite source rather
// than a file path.
func isDSN(p string) bool {
	return p == ":memory:" || strings.HasPrefix(p, "file:")
}
