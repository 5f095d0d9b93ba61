package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tec-dashboard/internal/config"
	"github.com/sells-group/tec-dashboard/internal/export"
	"github.com/sells-group/tec-dashboard/internal/tec"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the filtered register and its aggregates to an Excel workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out, _ := cmd.Flags().GetString("out")
		filters, _ := cmd.Flags().GetString("filters")
		return runExport(cmd.Context(), cfg, out, filters, os.Stderr)
	},
}

func runExport(ctx context.Context, c *config.Config, outPath, filtersPath string, log io.Writer) error {
	var preset tec.Preset
	if filtersPath != "" {
		p, err := export.LoadSelection(filtersPath)
		if err != nil {
			return err
		}
		preset = p
	}

	snap, err := newLoader(c).Load(ctx, c.Source.Params())
	if err != nil {
		return eris.Wrap(err, "export")
	}
	if snap.Degraded {
		zap.L().Warn("exporting degraded snapshot", zap.String("reason", snap.Reason))
	}

	view := tec.Filter(snap.Dataset, preset.Resolve(snap.Dataset))
	if err := export.SaveWorkbook(outPath, view); err != nil {
		return err
	}

	fmt.Fprintf(log, "Wrote %d of %d records to %s\n", view.Len(), snap.Dataset.Len(), outPath)
	return nil
}

func init() {
	exportCmd.Flags().String("out", "tec-register.xlsx", "output workbook path")
	exportCmd.Flags().String("filters", "", "YAML filter preset (owners, statuses, agreements)")
	rootCmd.AddCommand(exportCmd)
}
