// Package chart renders the 7-day forecast as a PNG line chart with the
// good/moderate bands drawn as reference lines.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"air-quality-stack/internal/models"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	Width  = 720
	Height = 360

	marginLeft   = 56.0
	marginRight  = 24.0
	marginTop    = 48.0
	marginBottom = 44.0
)

var ErrNoForecast = errors.New("chart: report has no forecast points")

// CategoryColor is the hex colour each category is drawn with
func CategoryColor(c models.Category) string {
	switch c {
	case models.CategoryGood:
		return "#4CAF50"
	case models.CategoryModerate:
		return "#FF9800"
	case models.CategoryUnhealthy:
		return "#F44336"
	default:
		return "#9E9E9E"
	}
}

// RenderPNG draws report.Forecast and returns the encoded image
func RenderPNG(report *models.AirQualityReport) ([]byte, error) {
	if report == nil || len(report.Forecast) == 0 {
		return nil, ErrNoForecast
	}

	dc := gg.NewContext(Width, Height)
	dc.SetHexColor("#FFFFFF")
	dc.Clear()

	if err := loadFont(dc, 13); err != nil {
		return nil, err
	}

	points := report.Forecast
	yMax := axisMax(points, report.Thresholds)
	plotW := Width - marginLeft - marginRight
	plotH := Height - marginTop - marginBottom

	x := func(i int) float64 {
		if len(points) == 1 {
			return marginLeft + plotW/2
		}
		return marginLeft + plotW*float64(i)/float64(len(points)-1)
	}
	y := func(v float64) float64 {
		return marginTop + plotH*(1-v/yMax)
	}

	// Axes
	dc.SetHexColor("#BDBDBD")
	dc.SetLineWidth(1)
	dc.DrawLine(marginLeft, marginTop, marginLeft, marginTop+plotH)
	dc.DrawLine(marginLeft, marginTop+plotH, marginLeft+plotW, marginTop+plotH)
	dc.Stroke()

	dc.SetHexColor("#666666")
	for _, tick := range []float64{0, yMax / 2, yMax} {
		dc.DrawStringAnchored(fmt.Sprintf("%.0f", tick), marginLeft-8, y(tick), 1, 0.5)
	}

	// Band limits
	dc.SetDash(6, 4)
	for _, line := range []struct {
		value float64
		color string
	}{
		{report.Thresholds.Good, CategoryColor(models.CategoryGood)},
		{report.Thresholds.Moderate, CategoryColor(models.CategoryModerate)},
	} {
		if line.value <= 0 || line.value > yMax {
			continue
		}
		dc.SetHexColor(line.color)
		dc.DrawLine(marginLeft, y(line.value), marginLeft+plotW, y(line.value))
		dc.Stroke()
	}
	dc.SetDash()

	// Forecast line
	dc.SetHexColor("#2196F3")
	dc.SetLineWidth(2.5)
	for i, p := range points {
		if i == 0 {
			dc.MoveTo(x(i), y(p.Value))
			continue
		}
		dc.LineTo(x(i), y(p.Value))
	}
	dc.Stroke()

	for i, p := range points {
		dc.SetHexColor(CategoryColor(p.Category))
		dc.DrawCircle(x(i), y(p.Value), 6)
		dc.Fill()

		dc.SetHexColor("#333333")
		dc.DrawStringAnchored(fmt.Sprintf("%.1f", p.Value), x(i), y(p.Value)-14, 0.5, 0.5)
		dc.DrawStringAnchored(p.DisplayDate, x(i), marginTop+plotH+18, 0.5, 0.5)
	}

	dc.SetHexColor("#333333")
	title := fmt.Sprintf("%s 7-day forecast (%s, %s)", report.LocationName, report.Measurement, report.Unit)
	dc.DrawStringAnchored(title, Width/2, marginTop/2, 0.5, 0.5)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode chart: %w", err)
	}
	return buf.Bytes(), nil
}

// axisMax leaves headroom above the highest value or the moderate limit
func axisMax(points []models.ForecastPoint, thresholds models.Thresholds) float64 {
	top := thresholds.Moderate
	for _, p := range points {
		top = math.Max(top, p.Value)
	}
	if top <= 0 {
		return 1
	}
	return math.Ceil(top*1.2/10) * 10
}

func loadFont(dc *gg.Context, size float64) error {
	font, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return fmt.Errorf("failed to parse font: %w", err)
	}
	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: size}))
	return nil
}
