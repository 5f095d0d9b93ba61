package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/tec-dashboard/internal/config"
	"github.com/sells-group/tec-dashboard/internal/tec"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the register once and report what was loaded",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runFetch(cmd.Context(), cfg, os.Stdout)
	},
}

func runFetch(ctx context.Context, c *config.Config, out io.Writer) error {
	snap, err := newLoader(c).Load(ctx, c.Source.Params())
	if err != nil {
		return eris.Wrap(err, "fetch")
	}

	s := tec.Summarize(snap.Dataset)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Cache file:\t%s\n", c.Source.CachePath())
	fmt.Fprintf(w, "Fetched at:\t%s\n", snap.FetchedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Last updated:\t%s\n", snap.Freshness)
	fmt.Fprintf(w, "Rows:\t%d\n", snap.Dataset.Len())
	fmt.Fprintf(w, "Network owners:\t%d\n", s.Owners)
	fmt.Fprintf(w, "Total capacity (MW):\t%.1f\n", s.Capacity)
	fmt.Fprintf(w, "Connection dates:\t%s\n", s.DateRange)
	if snap.Degraded {
		fmt.Fprintf(w, "Degraded:\t%s\n", snap.Reason)
	}
	return w.Flush()
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
