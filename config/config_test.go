package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/npiscenarios/core/model"
)

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

//nolint:gocyclo
func TestLoad(t *testing.T) {
	path := writeConfig(t, "config.yaml", `analysis:
  scenario: "metro.yaml"
  workers: 4
  ascertainment: 0.25
data:
  cases: "/data/cases.csv"
  csv:
    year: 2021
    columns: ["local_a", "local_b"]
simulator:
  type: "seir"
  conf:
    steps_per_day: 20
sinks:
  - type: "file"
    conf:
      path: "out/{mode}.csv"
  - type: "nop"
logging:
  level: "debug"
metrics:
  textfile: "npi.prom"
`)
	dir := filepath.Dir(path)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"analysis.scenario", cfg.Analysis.Scenario, filepath.Join(dir, "metro.yaml")},
		{"analysis.workers", cfg.Analysis.Workers, 4},
		{"analysis.ascertainment", cfg.Analysis.Ascertainment, 0.25},
		{"analysis.min_overlap", cfg.Analysis.MinOverlap, 7},
		{"data.cases", cfg.Data.Cases, "/data/cases.csv"},
		{"data.csv.year", cfg.Data.CSV.Year, 2021},
		{"data.csv.date_column", cfg.Data.CSV.DateColumn, "date"},
		{"data.csv.prefix", cfg.Data.CSV.Prefix, "local"},
		{"data.csv.columns", len(cfg.Data.CSV.Columns), 2},
		{"simulator.type", cfg.Simulator.Type, "seir"},
		{"sinks", len(cfg.Sinks), 2},
		{"sinks[0].path", cfg.Sinks[0].Conf["path"], filepath.Join(dir, "out", "{mode}.csv")},
		{"logging.level", cfg.Logging.Level, "debug"},
		{"metrics.textfile", cfg.Metrics.Textfile, filepath.Join(dir, "npi.prom")},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: got %v want %v", c.name, c.got, c.want)
		}
	}
	opts := cfg.Analysis.CalibrateOptions()
	if opts.Ascertainment != 0.25 || opts.MinOverlap != 7 {
		t.Errorf("unexpected calibrate options: %+v", opts)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "config.json", `{"analysis": {"scenario": "/abs/metro.yaml"}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/abs/metro.yaml", cfg.Analysis.Scenario)
	assert.Equal(t, 1, cfg.Analysis.Workers)
	assert.Equal(t, 1.0, cfg.Analysis.Ascertainment)
	assert.Equal(t, DefaultSimulator, cfg.Simulator.Type)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 2020, cfg.Data.CSV.Year)
	assert.Empty(t, cfg.Sinks)
	assert.Empty(t, cfg.Metrics.Textfile)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "config.yaml", "analysis:\n  scenario: metro.yaml\n  workers: 2\n")
	t.Setenv("K_ANALYSIS__WORKERS", "8")
	t.Setenv("K_ANALYSIS__MIN_OVERLAP", "14")
	t.Setenv("K_LOGGING__LEVEL", "warn")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Analysis.Workers)
	assert.Equal(t, 14, cfg.Analysis.MinOverlap)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadKeepsSQLiteDSNs(t *testing.T) {
	path := writeConfig(t, "config.yaml", `analysis:
  scenario: metro.yaml
sinks:
  - type: sqlite
    conf:
      path: ":memory:"
  - type: sqlite
    conf:
      path: "file:runs.db?cache=shared"
  - type: sqlite
    conf:
      path: "out/runs.db"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Sinks, 3)
	assert.Equal(t, ":memory:", cfg.Sinks[0].Conf["path"])
	assert.Equal(t, "file:runs.db?cache=shared", cfg.Sinks[1].Conf["path"])
	assert.Equal(t, filepath.Join(filepath.Dir(path), "out", "runs.db"), cfg.Sinks[2].Conf["path"])
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]string{
		"missing scenario":    "analysis:\n  workers: 2\n",
		"negative workers":    "analysis:\n  scenario: s.yaml\n  workers: -1\n",
		"ascertainment above": "analysis:\n  scenario: s.yaml\n  ascertainment: 1.5\n",
		"unknown level":       "analysis:\n  scenario: s.yaml\nlogging:\n  level: loud\n",
		"sink without type":   "analysis:\n  scenario: s.yaml\nsinks:\n  - conf:\n      path: x.csv\n",
		"ancient year":        "analysis:\n  scenario: s.yaml\ndata:\n  csv:\n    year: 1800\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, "config.yaml", data))
			assert.ErrorIs(t, err, model.ErrConfiguration)
		})
	}
}

func TestLoadValidationMessage(t *testing.T) {
	_, err := Load(writeConfig(t, "config.yaml", "analysis:\n  workers: -1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Analysis.Scenario is required")
	assert.Contains(t, err.Error(), "Analysis.Workers must be greater than or equal to 1")
}

func TestLoadUnsupportedFormat(t *testing.T) {
	_, err := Load(writeConfig(t, "config.toml", ""))
	assert.Error(t, err)
	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
