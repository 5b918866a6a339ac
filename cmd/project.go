package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/npiscenarios/app"
	"github.com/kilianp07/npiscenarios/pkg/export"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Evaluate the projection grid at a fixed R0",
	RunE:  withService(runProject),
}

func init() {
	rootCmd.AddCommand(projectCmd)
}

func runProject(ctx context.Context, cmd *cobra.Command, svc *app.Service) error {
	rep, err := svc.Project(ctx)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	switch format {
	case "json":
		return export.WriteJSON(w, rep.Table)
	case "csv":
		return export.WriteCSV(w, rep.Table)
	}
	if err := renderRows(w, []string{"label", "total", "peak day", "peak date", "peak"}, summaryRows(rep.Table)); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "run %s: %d rows\n", rep.Run.ID, rep.Table.Len())
	return err
}
