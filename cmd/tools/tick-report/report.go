package main

import (
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/banshee-data/lane.driver/internal/config"
	"github.com/banshee-data/lane.driver/internal/db"
	"github.com/banshee-data/lane.driver/internal/report"
)

// Options selects what Run reports.
type Options struct {
	SessionID   string
	Sessions    int
	Limit       int
	OutDir      string
	OffsetScale float64
}

// OffsetScale converts a lane offset in pixels to the unclamped steering it
// produces, so offset and steering share the plot's axis.
func OffsetScale(cfg *config.DriverConfig) float64 {
	return cfg.GetSteeringGain() / float64(cfg.GetFrameWidth()/2)
}

// Run writes a summary table to out and, when OutDir is set, one plot per
// session with ticks.
func Run(journal *db.DB, opts Options, out io.Writer) error {
	var ids []string
	if opts.SessionID != "" {
		ids = []string{opts.SessionID}
	} else {
		sessions, err := journal.Sessions(opts.Sessions)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			return db.ErrNoSessions
		}
		for _, s := range sessions {
			ids = append(ids, s.ID)
		}
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tTICKS\tLOST\tSTEER MEAN\tSTEER SD\tOFFSET MEAN\tOFFSET SD\tPLOT")
	for _, id := range ids {
		sum, err := journal.SessionSummary(id)
		if err != nil {
			return err
		}

		plotPath := "-"
		if opts.OutDir != "" && sum.Ticks > 0 {
			if plotPath, err = plotSession(journal, id, opts); err != nil {
				return err
			}
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.4f\t%.4f\t%.1f\t%.1f\t%s\n",
			id, sum.Ticks, sum.LostTicks,
			sum.MeanSteering, sum.StdDevSteering,
			sum.MeanOffset, sum.StdDevOffset,
			plotPath)
	}
	return tw.Flush()
}

func plotSession(journal *db.DB, id string, opts Options) (string, error) {
	path := filepath.Join(opts.OutDir, report.PlotFilename(id))
	if err := report.ValidateOutputPath(path, opts.OutDir); err != nil {
		return "", err
	}
	ticks, err := journal.Ticks(id, opts.Limit)
	if err != nil {
		return "", err
	}
	if err := report.SaveTickPlot(path, id, ticks, opts.OffsetScale); err != nil {
		return "", err
	}
	return path, nil
}
