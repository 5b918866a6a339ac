package cmd

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/npiscenarios/app"
	"github.com/kilianp07/npiscenarios/config"
)

var casesCmd = &cobra.Command{
	Use:   "cases",
	Short: "Print daily case totals and their 7-day rolling mean",
	RunE:  runCases,
}

func init() {
	rootCmd.AddCommand(casesCmd)
}

type caseDay struct {
	Date     string   `json:"date"`
	Total    float64  `json:"total"`
	Rolling7 *float64 `json:"rolling7"`
}

func runCases(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	series, err := app.LoadCases(cfg)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if format == "json" {
		out := make([]caseDay, len(series))
		for i, d := range series {
			out[i] = caseDay{Date: d.Date.Format(time.DateOnly), Total: d.Total}
			if !math.IsNaN(d.Rolling7) {
				v := d.Rolling7
				out[i].Rolling7 = &v
			}
		}
		return json.NewEncoder(w).Encode(out)
	}
	rows := make([][]string, len(series))
	for i, d := range series {
		mean := ""
		if !math.IsNaN(d.Rolling7) {
			mean = strconv.FormatFloat(d.Rolling7, 'f', 2, 64)
		}
		rows[i] = []string{d.Date.Format(time.DateOnly), strconv.FormatFloat(d.Total, 'f', -1, 64), mean}
	}
	return renderRows(w, []string{"date", "total", "rolling7"}, rows)
}
