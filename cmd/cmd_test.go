package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testScenario = `name: village
start_date: "2020-06-01"
horizon: 20
population: 2000
age_distribution: [1]
contact_matrix: [[8]]
disease: {sigma: 0.25, gamma: 0.2}
seed: {exposed: 5, band: 0}
schedules:
  - name: halt
    trigger: "2020-06-11"
    breakpoints:
      - {date: "2020-06-11", level: 0.5}
  - name: masks
    trigger: "2020-06-05"
    breakpoints:
      - {date: "2020-06-05", level: 0.9}
scenarios:
  - name: none
  - name: halt
    contact: halt
projection:
  r0: 2
  scenarios: [none, halt]
`

const liftScenario = `name: village
start_date: "2020-06-01"
horizon: 20
population: 2000
age_distribution: [1]
contact_matrix: [[8]]
disease: {sigma: 0.25, gamma: 0.2}
seed: {exposed: 5, band: 0}
schedules:
  - name: halt
    trigger: "2020-06-11"
    breakpoints:
      - {date: "2020-06-11", level: 0.5}
  - name: masks
    trigger: "2020-06-05"
    breakpoints:
      - {date: "2020-06-05", level: 0.9}
  - name: reopen
    trigger: "2020-06-11"
    breakpoints:
      - {date: "2020-06-11", level: 0.5}
    lift: "2020-07-01"
scenarios:
  - name: none
  - name: halt
    contact: halt
  - name: reopen
    contact: reopen
calibration:
  r0: [2, 3]
  scenarios: [none, halt]
projection:
  r0: 2
  horizon: 40
  scenarios: [none, reopen]
`

func writeFixture(t *testing.T) string {
	t.Helper()
	return writeFixtureWith(t, testScenario)
}

func writeFixtureWith(t *testing.T, scenario string) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"village.yaml": scenario,
		"cases.csv":    "date,local\n1/6,1\n2/6,2\n3/6,3\n4/6,4\n5/6,5\n6/6,6\n7/6,7\n8/6,8\n",
		"config.yaml":  "analysis:\n  scenario: village.yaml\ndata:\n  cases: cases.csv\nlogging:\n  level: error\n",
	}
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644))
	}
	return filepath.Join(dir, "config.yaml")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestScheduleCommand(t *testing.T) {
	cfg := writeFixture(t)
	out, err := execute(t, "schedule", "-c", cfg, "-f", "csv", "--horizon", "0")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 21)
	assert.Equal(t, "day,date,halt,masks", lines[0])
	assert.Equal(t, "4,2020-06-04,1,1", lines[4])
	assert.Equal(t, "5,2020-06-05,1,0.9", lines[5])
	assert.Equal(t, "11,2020-06-11,0.5,0.9", lines[11])

	out, err = execute(t, "schedule", "halt", "-c", cfg, "-f", "json", "--horizon", "12")
	require.NoError(t, err)
	var levels map[string][]float64
	require.NoError(t, json.Unmarshal([]byte(out), &levels))
	require.Len(t, levels, 1)
	assert.Len(t, levels["halt"], 12)

	_, err = execute(t, "schedule", "curfew", "-c", cfg, "-f", "csv", "--horizon", "0")
	assert.Error(t, err)
}

func TestScheduleCommandUsesGridHorizons(t *testing.T) {
	cfg := writeFixtureWith(t, liftScenario)
	out, err := execute(t, "schedule", "-c", cfg, "-f", "csv", "--horizon", "0")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 41)
	assert.Equal(t, "day,date,halt,masks,reopen", lines[0])
	assert.Equal(t, "20,2020-06-20,0.5,0.9,0.5", lines[20])
	assert.Equal(t, "30,2020-06-30,,,0.5", lines[30])
	assert.Equal(t, "31,2020-07-01,,,1", lines[31])

	out, err = execute(t, "schedule", "reopen", "-c", cfg, "-f", "json", "--horizon", "0")
	require.NoError(t, err)
	var levels map[string][]float64
	require.NoError(t, json.Unmarshal([]byte(out), &levels))
	assert.Len(t, levels["reopen"], 40)

	_, err = execute(t, "schedule", "-c", cfg, "-f", "csv", "--horizon", "20")
	assert.ErrorContains(t, err, "reopen", "an explicit horizon applies to every schedule")
}

func TestCasesCommand(t *testing.T) {
	cfg := writeFixture(t)
	out, err := execute(t, "cases", "-c", cfg, "-f", "json")
	require.NoError(t, err)
	var days []caseDay
	require.NoError(t, json.Unmarshal([]byte(out), &days))
	require.Len(t, days, 8)
	assert.Nil(t, days[5].Rolling7)
	require.NotNil(t, days[6].Rolling7)
	assert.InDelta(t, 4.0, *days[6].Rolling7, 1e-12)
	assert.Equal(t, "2020-06-08", days[7].Date)
}

func TestProjectCommand(t *testing.T) {
	cfg := writeFixture(t)
	out, err := execute(t, "project", "-c", cfg, "-f", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "R0=2.0, none")
	assert.Contains(t, out, "R0=2.0, halt")
	assert.Contains(t, out, "40 rows")

	out, err = execute(t, "project", "-c", cfg, "-f", "csv")
	require.NoError(t, err)
	assert.Equal(t, 41, strings.Count(out, "\n"))
}

func TestCalibrateWithoutGrid(t *testing.T) {
	cfg := writeFixture(t)
	_, err := execute(t, "calibrate", "-c", cfg, "-f", "table")
	assert.ErrorContains(t, err, "defines no calibration")
}

func TestUnknownFormat(t *testing.T) {
	cfg := writeFixture(t)
	_, err := execute(t, "cases", "-c", cfg, "-f", "xml")
	assert.ErrorContains(t, err, "unknown output format")
}
