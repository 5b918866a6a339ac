package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/npiscenarios/config"
	"github.com/kilianp07/npiscenarios/core/model"
	"github.com/kilianp07/npiscenarios/core/scenario"
)

var scheduleHorizon int

var scheduleCmd = &cobra.Command{
	Use:   "schedule [name...]",
	Short: "Print the daily levels of the defined schedules",
	RunE:  runSchedule,
}

func init() {
	scheduleCmd.Flags().IntVar(&scheduleHorizon, "horizon", 0, "days to build every schedule (default: the longest horizon of the grids using it)")
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	def, err := scenario.LoadFile(cfg.Analysis.Scenario)
	if err != nil {
		return fmt.Errorf("scenario: %w", err)
	}
	if len(args) > 0 {
		keep := make(map[string]bool, len(args))
		for _, a := range args {
			keep[a] = true
		}
		var defs []scenario.ScheduleDef
		for _, sd := range def.Schedules {
			if keep[sd.Name] {
				defs = append(defs, sd)
				delete(keep, sd.Name)
			}
		}
		if len(keep) > 0 {
			missing := make([]string, 0, len(keep))
			for n := range keep {
				missing = append(missing, n)
			}
			sort.Strings(missing)
			return fmt.Errorf("unknown schedule %q", missing[0])
		}
		def.Schedules = defs
	}
	var built map[string]model.Schedule
	if scheduleHorizon > 0 {
		built, err = def.BuildSchedules(scheduleHorizon)
	} else {
		built, err = def.BuildGridSchedules()
	}
	if err != nil {
		return err
	}
	horizon := 0
	for _, s := range built {
		horizon = max(horizon, s.Len())
	}
	start, err := time.Parse(time.DateOnly, def.StartDate)
	if err != nil {
		return fmt.Errorf("start_date: %w", err)
	}

	names := make([]string, 0, len(built))
	for n := range built {
		names = append(names, n)
	}
	sort.Strings(names)

	w := cmd.OutOrStdout()
	if format == "json" {
		out := make(map[string][]float64, len(built))
		for n, s := range built {
			out[n] = s.Values()
		}
		return json.NewEncoder(w).Encode(out)
	}
	headers := append([]string{"day", "date"}, names...)
	rows := make([][]string, horizon)
	for d := 1; d <= horizon; d++ {
		row := []string{strconv.Itoa(d), start.AddDate(0, 0, d-1).Format(time.DateOnly)}
		for _, n := range names {
			cell := ""
			if d <= built[n].Len() {
				cell = strconv.FormatFloat(built[n].Day(d), 'f', -1, 64)
			}
			row = append(row, cell)
		}
		rows[d-1] = row
	}
	return renderRows(w, headers, rows)
}
