package email

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"air-quality-stack/internal/models"
	"air-quality-stack/shared/chart"
)

const chartContentID = "forecast-chart"

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"health": func(c models.Category) models.HealthMessage { return c.Health() },
	"color":  categoryColor,
}).Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Air Quality Forecast</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 800px; margin: 0 auto; padding: 20px; }
        .header { background-color: #2196F3; color: white; padding: 20px; border-radius: 8px; margin-bottom: 20px; text-align: center; }
        .summary { background-color: #f8f9fa; padding: 15px; border-radius: 8px; margin-bottom: 20px; }
        .advisory { background-color: #E3F2FD; padding: 15px; border-radius: 8px; margin-bottom: 20px; border-left: 4px solid #2196F3; }
        table { width: 100%; border-collapse: collapse; margin-bottom: 20px; }
        th, td { padding: 8px; text-align: center; border-bottom: 1px solid #ddd; }
        .badge { color: white; padding: 2px 8px; border-radius: 4px; font-weight: bold; }
        .footer { text-align: center; color: #666; font-size: 12px; margin-top: 30px; border-top: 1px solid #ddd; padding-top: 15px; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{(health .Worst).Icon}} {{.Report.LocationName}} Air Quality</h1>
        <p>{{.Report.GeneratedAt.Format "Monday, January 2, 2006 at 15:04 MST"}}</p>
    </div>

    <div class="summary" style="border-left: 4px solid {{color .Report.Current.Category}};">
        {{with health .Report.Current.Category}}
        <h2>{{.Icon}} {{.Title}}</h2>
        <p><strong>{{.Subtitle}}</strong> - {{.Message}}</p>
        <p>{{.Recommendation}}</p>
        {{end}}
        <p><strong>Now:</strong> {{printf "%.1f" .Report.Current.Reading.Value}} {{.Report.Unit}} {{.Report.Measurement}}
           <span class="badge" style="background-color: {{color .Report.Current.Category}};">{{.Report.Current.Category}}</span></p>
    </div>

    {{if .Report.Advisory}}
    <div class="advisory">
        <h3>💡 Advisory</h3>
        <p>{{.Report.Advisory}}</p>
    </div>
    {{end}}

    <h3>📅 7-Day Forecast</h3>
    {{if .HasChart}}<p><img src="cid:{{.ChartID}}" alt="Forecast chart" width="100%"></p>{{end}}
    <table>
        <tr><th>Day</th><th>{{.Report.Measurement}} ({{.Report.Unit}})</th><th>Category</th></tr>
        {{range .Report.Forecast}}
        <tr>
            <td>{{.DisplayDate}}</td>
            <td>{{printf "%.1f" .Value}}</td>
            <td><span class="badge" style="background-color: {{color .Category}};">{{.Category}}</span></td>
        </tr>
        {{end}}
    </table>
    <p>Bands: good up to {{printf "%.0f" .Report.Thresholds.Good}}, moderate up to {{printf "%.0f" .Report.Thresholds.Moderate}}, unhealthy above. Based on {{.Report.ReadingsUsed}} readings.</p>

    <div class="footer">
        <p>Generated by Air Quality Agent • Sensor data from pulse.eco</p>
        <p style="font-style: italic; color: #888;">Forecasts are statistical estimates from recent readings, not official warnings.</p>
    </div>
</body>
</html>
`))

func categoryColor(c models.Category) template.CSS {
	return template.CSS(chart.CategoryColor(c))
}

// ReportSubject names the worst category and the first day it is expected
func ReportSubject(report *models.AirQualityReport) string {
	worst := report.Worst()
	icon := worst.Health().Icon

	if report.Current.Category == worst {
		return fmt.Sprintf("%s %s air quality is %s now", icon, report.LocationName, worst)
	}
	for _, p := range report.Forecast {
		if p.Category == worst {
			return fmt.Sprintf("%s %s air quality: %s expected %s", icon, report.LocationName, worst, p.DisplayDate)
		}
	}
	return fmt.Sprintf("%s %s air quality forecast", icon, report.LocationName)
}

// NewReportMessage renders report as an HTML email. chartPNG may be nil.
func NewReportMessage(report *models.AirQualityReport, chartPNG []byte, from string, to []string) (*Message, error) {
	if report == nil {
		return nil, fmt.Errorf("report cannot be nil")
	}

	data := struct {
		Report   *models.AirQualityReport
		Worst    models.Category
		HasChart bool
		ChartID  string
	}{
		Report:   report,
		Worst:    report.Worst(),
		HasChart: len(chartPNG) > 0,
		ChartID:  chartContentID,
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to generate email body: %w", err)
	}

	msg := &Message{
		From:    from,
		To:      to,
		Subject: ReportSubject(report),
		HTML:    buf.String(),
		Date:    time.Now(),
	}
	if data.HasChart {
		msg.Inline = append(msg.Inline, Inline{
			ContentID:   chartContentID,
			ContentType: "image/png",
			Filename:    "forecast.png",
			Data:        chartPNG,
		})
	}
	return msg, nil
}
