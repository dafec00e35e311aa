package report

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/lane.driver/internal/db"
)

// Plot dimensions for PNG output.
const (
	PlotWidth  = 12 * vg.Inch
	PlotHeight = 5 * vg.Inch
)

var (
	steeringColor = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
	offsetColor   = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
)

// TickPlot builds a plot of steering against tick. Lane offset is drawn on
// the same axes scaled into radians by offsetScale; pass 0 to omit it.
func TickPlot(sessionID string, ticks []db.TickRecord, offsetScale float64) (*plot.Plot, error) {
	if len(ticks) == 0 {
		return nil, ErrNoTicks
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Session %s", sessionID)
	p.X.Label.Text = "Tick"
	p.Y.Label.Text = "Steering (rad)"

	steeringPts := make(plotter.XYs, len(ticks))
	offsetPts := make(plotter.XYs, len(ticks))
	for i, t := range ticks {
		steeringPts[i] = plotter.XY{X: float64(t.Tick), Y: t.Steering}
		offsetPts[i] = plotter.XY{X: float64(t.Tick), Y: float64(t.Offset) * offsetScale}
	}

	steeringLine, err := plotter.NewLine(steeringPts)
	if err != nil {
		return nil, err
	}
	steeringLine.Color = steeringColor
	steeringLine.Width = vg.Points(1)
	p.Add(steeringLine)
	p.Legend.Add("steering", steeringLine)

	if offsetScale != 0 {
		offsetLine, err := plotter.NewLine(offsetPts)
		if err != nil {
			return nil, err
		}
		offsetLine.Color = offsetColor
		offsetLine.Width = vg.Points(1)
		offsetLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(offsetLine)
		p.Legend.Add("offset (scaled)", offsetLine)
	}

	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// WriteTickPlot renders the tick plot as PNG into w.
func WriteTickPlot(w io.Writer, sessionID string, ticks []db.TickRecord, offsetScale float64) error {
	p, err := TickPlot(sessionID, ticks, offsetScale)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(PlotWidth, PlotHeight, "png")
	if err != nil {
		return fmt.Errorf("failed to create plot writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write plot: %w", err)
	}
	return nil
}

// SaveTickPlot writes the tick plot to path. The format follows the file
// extension.
func SaveTickPlot(path, sessionID string, ticks []db.TickRecord, offsetScale float64) error {
	p, err := TickPlot(sessionID, ticks, offsetScale)
	if err != nil {
		return err
	}
	if err := p.Save(PlotWidth, PlotHeight, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", path, err)
	}
	return nil
}
