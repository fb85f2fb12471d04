package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"regexp"
	"strconv"
	"strings"

	"air-quality-stack/internal/models"
	"air-quality-stack/shared/config"

	"google.golang.org/genai"
)

const maxAdviceLength = 600

// Advisory is the model's plain-language reading of a forecast
type Advisory struct {
	Headline string `json:"headline"`
	Advice   string `json:"advice"`
	Risk     int    `json:"risk"` // 1-10
}

// String renders the advisory as it appears in emails and reports
func (a *Advisory) String() string {
	return fmt.Sprintf("%s %s (risk %d/10)", a.Headline, a.Advice, a.Risk)
}

type Advisor struct {
	generate func(ctx context.Context, prompt string) (string, error)
}

func NewAdvisor(cfg *config.AIConfig) (*Advisor, error) {
	ctx := context.Background()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.GeminiAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := cfg.Model
	return &Advisor{
		generate: func(ctx context.Context, prompt string) (string, error) {
			contents := []*genai.Content{
				genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(prompt)}, genai.RoleUser),
			}
			result, err := client.Models.GenerateContent(ctx, model, contents, nil)
			if err != nil {
				return "", err
			}
			return result.Text(), nil
		},
	}, nil
}

// Advise asks the model to explain report for residents
func (a *Advisor) Advise(ctx context.Context, report *models.AirQualityReport) (*Advisory, error) {
	if report == nil || len(report.Forecast) == 0 {
		return nil, fmt.Errorf("report with forecast is required")
	}

	responseText, err := a.generate(ctx, buildAdvisoryPrompt(report))
	if err != nil {
		return nil, fmt.Errorf("failed to generate advisory for %s: %w", report.LocationName, err)
	}
	if responseText == "" {
		return nil, fmt.Errorf("empty advisory response for %s (content filtering or API issue)", report.LocationName)
	}

	return parseAdvisoryResponse(responseText)
}

func buildAdvisoryPrompt(report *models.AirQualityReport) string {
	var days strings.Builder
	for _, p := range report.Forecast {
		fmt.Fprintf(&days, "- %s: %.1f %s (%s)\n", p.DisplayDate, p.Value, report.Unit, p.Category)
	}

	worst := report.Worst()
	health := worst.Health()

	return fmt.Sprintf(`You are an air quality assistant writing a short advisory for residents of %s.

MEASUREMENT: %s in %s
BANDS: good up to %.0f, moderate up to %.0f, unhealthy above

CURRENT READING: %.1f %s (%s) at %s

7-DAY FORECAST:
%s
WORST CATEGORY: %s
STANDARD GUIDANCE: %s %s

INSTRUCTIONS:
1. Explain the outlook in plain language, naming the worst days
2. Give practical advice for outdoor activity, ventilation and sensitive groups
3. Do not invent numbers that are not listed above
4. Keep the advice under 80 words

Please provide your advisory in the following JSON format:
{
  "headline": "One sentence summary of the week",
  "advice": "Practical recommendations",
  "risk": number (1-10, where 10 is the most severe exposure risk)
}`,
		report.LocationName,
		report.Measurement,
		report.Unit,
		report.Thresholds.Good,
		report.Thresholds.Moderate,
		report.Current.Reading.Value,
		report.Unit,
		report.Current.Category,
		report.Current.Reading.Timestamp.Format("2006-01-02 15:04"),
		days.String(),
		worst,
		health.Message,
		health.Recommendation,
	)
}

func parseAdvisoryResponse(response string) (*Advisory, error) {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("no JSON found in response: %s", response)
	}

	jsonStr := response[startIdx : endIdx+1]

	var result Advisory
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		sanitizedJSON := sanitizeJSON(jsonStr)
		if sanitizedErr := json.Unmarshal([]byte(sanitizedJSON), &result); sanitizedErr != nil {
			return nil, fmt.Errorf("failed to unmarshal JSON '%s': %w (sanitized version also failed: %v)", jsonStr, err, sanitizedErr)
		}
		log.Printf("Warning: Had to sanitize malformed advisory JSON")
	}

	if result.Headline == "" && result.Advice == "" {
		return nil, fmt.Errorf("advisory headline and advice were both empty")
	}

	if result.Risk < 1 {
		result.Risk = 1
	} else if result.Risk > 10 {
		result.Risk = 10
	}
	result.Advice = truncateString(result.Advice, maxAdviceLength)

	return &result, nil
}

var (
	advisoryFieldPattern = regexp.MustCompile(`^"(headline|advice|risk)"\s*:\s*(.*?)\s*(,?)$`)
	riskNumberPattern    = regexp.MustCompile(`\d+(\.\d+)?`)
)

// sanitizeJSON repairs the advisory fields one line at a time: stray quotes
// in headline and advice are escaped, and a risk written as "7", "7/10" or
// 6.5 becomes a bare integer. A comma left before the closing brace is
// dropped.
func sanitizeJSON(jsonStr string) string {
	var lines []string

	for _, line := range strings.Split(jsonStr, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if line == "}" && len(lines) > 0 {
			lines[len(lines)-1] = strings.TrimSuffix(lines[len(lines)-1], ",")
		}

		if m := advisoryFieldPattern.FindStringSubmatch(line); m != nil {
			key, value, comma := m[1], m[2], m[3]
			if key == "risk" {
				value = sanitizeRisk(value)
			} else {
				value = sanitizeText(value)
			}
			line = fmt.Sprintf("%q: %s%s", key, value, comma)
		}

		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

func sanitizeText(value string) string {
	if len(value) < 2 || !strings.HasPrefix(value, "\"") || !strings.HasSuffix(value, "\"") {
		return value
	}
	content := value[1 : len(value)-1]
	content = strings.ReplaceAll(content, `\"`, `"`)
	content = strings.ReplaceAll(content, `"`, `\"`)
	return `"` + content + `"`
}

func sanitizeRisk(value string) string {
	number := riskNumberPattern.FindString(value)
	if number == "" {
		return "0"
	}
	risk, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return "0"
	}
	return strconv.Itoa(int(math.Round(risk)))
}

func truncateString(s string, maxLength int) string {
	r := []rune(s)
	if len(r) <= maxLength {
		return s
	}
	return string(r[:maxLength]) + "..."
}
