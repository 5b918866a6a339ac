package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kilianp07/npiscenarios/app"
	"github.com/kilianp07/npiscenarios/pkg/export"
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Evaluate the calibration grid and rank it against observed cases",
	RunE:  withService(runCalibrate),
}

func init() {
	rootCmd.AddCommand(calibrateCmd)
}

func runCalibrate(ctx context.Context, cmd *cobra.Command, svc *app.Service) error {
	rep, err := svc.Calibrate(ctx)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	switch format {
	case "json":
		return export.WriteFitsJSON(w, rep.Fits)
	case "csv":
		return export.WriteFitsCSV(w, rep.Fits)
	}
	rows := make([][]string, len(rep.Fits))
	for i, f := range rep.Fits {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			string(f.Label),
			strconv.FormatFloat(f.RMSE, 'f', 2, 64),
			strconv.Itoa(f.Days),
		}
	}
	if err := renderRows(w, []string{"rank", "label", "rmse", "days"}, rows); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "run %s: %d rows\n", rep.Run.ID, rep.Table.Len())
	return err
}
