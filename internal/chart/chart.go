package chart

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"time"

	"crypto-telegram-bot/internal/types"
	"crypto-telegram-bot/lib/helpers"
	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/draw"
)

// DefaultWindows are the day ranges stacked into one composite, longest first.
var DefaultWindows = []int{90, 7, 1}

var (
	lineColor = drawing.Color{R: 0, G: 122, B: 255, A: 255}
	fillColor = drawing.Color{R: 0, G: 122, B: 255, A: 25}
	gridColor = drawing.Color{R: 200, G: 200, B: 200, A: 255}
)

// SeriesSource provides historical prices.
type SeriesSource interface {
	HistoricalSeries(ctx context.Context, asset types.AssetID, days int) ([]types.PricePoint, error)
}

// Renderer draws one chart per window and stacks them vertically. Nothing is cached.
type Renderer struct {
	source   SeriesSource
	windows  []int
	currency string
	width    int
	height   int
	font     *truetype.Font
	logger   *log.Entry
}

type RendererConfig struct {
	Currency string
	Windows  []int
	Width    int
	Height   int
}

// Window summarises one rendered series.
type Window struct {
	Days  int
	First float64
	Last  float64
}

// Result is a composite PNG plus the per-window summaries in render order.
type Result struct {
	PNG     []byte
	Windows []Window
}

func NewRenderer(source SeriesSource, c RendererConfig) *Renderer {
	if len(c.Windows) == 0 {
		c.Windows = DefaultWindows
	}
	if c.Width <= 0 {
		c.Width = 1000
	}
	if c.Height <= 0 {
		c.Height = 600
	}
	if c.Currency == "" {
		c.Currency = "eur"
	}

	logger := log.WithField("component", "chart")
	font, err := gochart.GetDefaultFont()
	if err != nil {
		logger.WithError(err).Warn("could not load chart font, using renderer default")
	}

	return &Renderer{
		source:   source,
		windows:  c.Windows,
		currency: c.Currency,
		width:    c.Width,
		height:   c.Height,
		font:     font,
		logger:   logger,
	}
}

// Render fetches every window of asset and returns the stacked charts.
// Any failed window fails the whole render.
func (r *Renderer) Render(ctx context.Context, asset types.AssetID) (*Result, error) {
	result := &Result{}
	images := make([][]byte, 0, len(r.windows))

	for _, days := range r.windows {
		series, err := r.source.HistoricalSeries(ctx, asset, days)
		if err != nil {
			return nil, errors.Wrapf(err, "could not fetch %d day history", days)
		}

		title := fmt.Sprintf("%s (%d days)", helpers.Capitalize(string(asset)), days)
		img, err := r.RenderSeries(title, series)
		if err != nil {
			return nil, errors.Wrapf(err, "could not render %s", title)
		}

		images = append(images, img)
		result.Windows = append(result.Windows, Window{
			Days:  days,
			First: series[0].Price,
			Last:  series[len(series)-1].Price,
		})
	}

	composite, err := ComposeVertical(images)
	if err != nil {
		return nil, err
	}
	result.PNG = composite

	r.logger.WithFields(log.Fields{"asset": asset, "bytes": len(composite)}).Debug("rendered charts")
	return result, nil
}

// RenderSeries draws a single time/price line chart as PNG.
func (r *Renderer) RenderSeries(title string, series []types.PricePoint) ([]byte, error) {
	if len(series) < 2 {
		return nil, errors.Errorf("need at least 2 price points, got %d", len(series))
	}

	times := make([]time.Time, len(series))
	prices := make([]float64, len(series))
	for i, point := range series {
		times[i] = point.Time
		prices[i] = point.Price
	}

	minValue, maxValue := paddedRange(prices)
	timeFormat := "02 Jan"
	if series[len(series)-1].Time.Sub(series[0].Time) <= 48*time.Hour {
		timeFormat = "02 Jan 15:04"
	}

	graph := gochart.Chart{
		Title:  title,
		Width:  r.width,
		Height: r.height,
		Font:   r.font,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: gochart.XAxis{
			Name:           "Time",
			ValueFormatter: gochart.TimeValueFormatterWithFormat(timeFormat),
			GridMajorStyle: gochart.Style{StrokeColor: gridColor, StrokeWidth: 1},
		},
		YAxis: gochart.YAxis{
			Name:           fmt.Sprintf("Price (%s)", helpers.CurrencySymbol(r.currency)),
			Range:          &gochart.ContinuousRange{Min: minValue, Max: maxValue},
			GridMajorStyle: gochart.Style{StrokeColor: gridColor, StrokeWidth: 1},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return helpers.FormatAxisPrice(f)
				}
				return ""
			},
		},
		Series: []gochart.Series{
			gochart.TimeSeries{
				Name:    title,
				XValues: times,
				YValues: prices,
				Style: gochart.Style{
					StrokeColor: lineColor,
					StrokeWidth: 2,
					FillColor:   fillColor,
				},
			},
		},
	}

	buf := &bytes.Buffer{}
	if err := graph.Render(gochart.PNG, buf); err != nil {
		return nil, errors.Wrap(err, "chart render failed")
	}
	return buf.Bytes(), nil
}

// ComposeVertical stacks PNG images top to bottom on a white canvas as wide as the widest image.
func ComposeVertical(images [][]byte) ([]byte, error) {
	if len(images) == 0 {
		return nil, errors.New("no images to compose")
	}

	decoded := make([]image.Image, 0, len(images))
	width, height := 0, 0
	for i, data := range images {
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, errors.Wrapf(err, "could not decode image %d", i)
		}
		b := img.Bounds()
		if b.Dx() > width {
			width = b.Dx()
		}
		height += b.Dy()
		decoded = append(decoded, img)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	offset := 0
	for _, img := range decoded {
		b := img.Bounds()
		draw.Draw(canvas, image.Rect(0, offset, b.Dx(), offset+b.Dy()), img, b.Min, draw.Over)
		offset += b.Dy()
	}

	buf := &bytes.Buffer{}
	if err := png.Encode(buf, canvas); err != nil {
		return nil, errors.Wrap(err, "could not encode composite")
	}
	return buf.Bytes(), nil
}

// paddedRange adds 10% head room; flat series get 1% (or 1) so the range is never zero.
func paddedRange(prices []float64) (float64, float64) {
	minPrice, maxPrice := prices[0], prices[0]
	for _, p := range prices {
		if p < minPrice {
			minPrice = p
		}
		if p > maxPrice {
			maxPrice = p
		}
	}

	padding := (maxPrice - minPrice) * 0.1
	if padding == 0 {
		padding = maxPrice * 0.01
		if padding == 0 {
			padding = 1
		}
	}
	if padding < 0 {
		padding = -padding
	}
	return minPrice - padding, maxPrice + padding
}
