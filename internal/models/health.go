package models

// HealthMessage is the human-facing guidance for a category
type HealthMessage struct {
	Title          string `json:"title"`
	Subtitle       string `json:"subtitle"`
	Message        string `json:"message"`
	Recommendation string `json:"recommendation"`
	Icon           string `json:"icon"`
}

var healthMessages = map[Category]HealthMessage{
	CategoryGood: {
		Title:          "Воздухот е чист!",
		Subtitle:       "Air is Clean!",
		Message:        "Perfect for outdoor activities",
		Recommendation: "Enjoy your time outside",
		Icon:           "😊",
	},
	CategoryModerate: {
		Title:          "Воздухот е загаден!",
		Subtitle:       "Air quality is moderate",
		Message:        "Acceptable for most people",
		Recommendation: "Sensitive individuals should limit prolonged outdoor activities",
		Icon:           "😐",
	},
	CategoryUnhealthy: {
		Title:          "Воздухот е многу загаден!",
		Subtitle:       "Air quality is poor",
		Message:        "May cause breathing discomfort",
		Recommendation: "Consider reducing outdoor activities",
		Icon:           "😷",
	},
}

// Health returns the guidance for c; unknown categories get the moderate text
func (c Category) Health() HealthMessage {
	if msg, ok := healthMessages[c]; ok {
		return msg
	}
	return healthMessages[CategoryModerate]
}
