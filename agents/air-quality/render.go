package airquality

import (
	"fmt"

	"air-quality-stack/internal/models"
	"air-quality-stack/shared/chart"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	colorPrimary = lipgloss.Color("#00BFFF")
	colorMuted   = lipgloss.Color("240")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	healthStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

func categoryStyle(c models.Category) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(chart.CategoryColor(c)))
}

// RenderTerminal formats report for the --once console output
func RenderTerminal(report *models.AirQualityReport) string {
	current := report.Current
	health := current.Category.Health()

	header := titleStyle.Render(fmt.Sprintf("%s air quality (%s)", report.LocationName, report.Measurement))
	generated := mutedStyle.Render(report.GeneratedAt.Format("Mon Jan 2 15:04 MST") +
		fmt.Sprintf(" • %d readings", report.ReadingsUsed))

	now := fmt.Sprintf("Now: %.1f %s %s", current.Reading.Value, report.Unit,
		categoryStyle(current.Category).Render(string(current.Category)))

	box := healthStyle.
		BorderForeground(lipgloss.Color(chart.CategoryColor(current.Category))).
		Render(lipgloss.JoinVertical(lipgloss.Left,
			fmt.Sprintf("%s %s", health.Icon, health.Title),
			health.Subtitle,
			mutedStyle.Render(health.Recommendation),
		))

	rows := make([][]string, 0, len(report.Forecast))
	for _, p := range report.Forecast {
		rows = append(rows, []string{p.DisplayDate, fmt.Sprintf("%.1f", p.Value), string(p.Category)})
	}

	forecastTable := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers("Day", report.Unit, "Category").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return style.Bold(true).Foreground(colorPrimary)
			}
			if col == 2 && row >= 0 && row < len(report.Forecast) {
				return style.Inherit(categoryStyle(report.Forecast[row].Category))
			}
			return style
		})

	sections := []string{header, generated, "", now, box, forecastTable.Render()}
	if report.Advisory != "" {
		sections = append(sections, "", report.Advisory)
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
