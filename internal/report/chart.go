// Package report renders journalled ticks as charts for debugging runs.
package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/lane.driver/internal/db"
)

// ErrNoTicks is returned when there is nothing to chart.
var ErrNoTicks = errors.New("no ticks to report")

// RenderTickPage writes an HTML page with the steering and lane offset of
// each tick of a session.
func RenderTickPage(w io.Writer, sessionID string, ticks []db.TickRecord) error {
	if len(ticks) == 0 {
		return ErrNoTicks
	}

	x := make([]uint64, len(ticks))
	steering := make([]opts.LineData, len(ticks))
	speed := make([]opts.LineData, len(ticks))
	offset := make([]opts.LineData, len(ticks))
	score := make([]opts.LineData, len(ticks))
	for i, t := range ticks {
		x[i] = t.Tick
		steering[i] = opts.LineData{Value: t.Steering}
		speed[i] = opts.LineData{Value: t.Speed}
		offset[i] = opts.LineData{Value: t.Offset}
		score[i] = opts.LineData{Value: t.Score}
	}
	subtitle := fmt.Sprintf("session=%s ticks=%d..%d", sessionID, ticks[0].Tick, ticks[len(ticks)-1].Tick)

	command := charts.NewLine()
	command.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Lane driver ticks", Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Command", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Tick"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "rad / speed"}),
	)
	command.SetXAxis(x).
		AddSeries("steering", steering).
		AddSeries("speed", speed).
		SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))

	lane := charts.NewLine()
	lane.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Lane", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Tick"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "px"}),
	)
	lane.SetXAxis(x).
		AddSeries("offset", offset).
		AddSeries("score", score).
		SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))

	page := components.NewPage()
	page.PageTitle = "Lane driver ticks"
	page.AddCharts(command, lane)
	return page.Render(w)
}
