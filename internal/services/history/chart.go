package history

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/stockreplay/internal/models"
)

const smaPeriod = 20

// RenderChart renders the close price of symbol as a PNG line chart
func (s *Service) RenderChart(ctx context.Context, symbol string, query models.HistoryQuery) ([]byte, error) {
	history, err := s.GetHistory(ctx, symbol, query)
	if err != nil {
		return nil, err
	}
	return RenderCloseChart(history)
}

// RenderCloseChart draws close prices (blue) with a 20-day moving average
// (gray dashed) once there are enough bars. Returns raw PNG bytes.
func RenderCloseChart(history *models.StockHistory) ([]byte, error) {
	if len(history.Data) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 candles, got %d", ErrNoData, len(history.Data))
	}

	xValues := make([]time.Time, 0, len(history.Data))
	yValues := make([]float64, 0, len(history.Data))
	for _, c := range history.Data {
		t, err := time.Parse(dateLayout, c.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("bad candle date %q: %w", c.Timestamp, err)
		}
		xValues = append(xValues, t)
		yValues = append(yValues, c.Close)
	}

	closeSeries := chart.TimeSeries{
		Name: "Close",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
			StrokeWidth: 2,
		},
		XValues: xValues,
		YValues: yValues,
	}

	series := []chart.Series{closeSeries}
	if len(yValues) >= smaPeriod {
		series = append(series, &chart.SMASeries{
			Name: fmt.Sprintf("SMA %d", smaPeriod),
			Style: chart.Style{
				StrokeColor:     drawing.ColorFromHex("9ca3af"), // gray-400
				StrokeWidth:     1.5,
				StrokeDashArray: []float64{5.0, 3.0},
			},
			InnerSeries: closeSeries,
			Period:      smaPeriod,
		})
	}

	graph := chart.Chart{
		Title:  history.Symbol,
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("01/02")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.2f", f)
				}
				return ""
			},
		},
		Series: series,
	}

	// Pin the axis to the traded range; a flat range is left to auto-scaling
	if history.PriceRange.MaxPrice > history.PriceRange.MinPrice {
		graph.YAxis.Range = &chart.ContinuousRange{
			Min: history.PriceRange.MinPrice,
			Max: history.PriceRange.MaxPrice,
		}
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}
