package newsapi

import (
	"bytes"
	"encoding/json"
)

// Article is a summarized news item as returned by the service. Read-only.
type Article struct {
	Title              string      `json:"title"`
	Summary            string      `json:"summary"`
	Category           string      `json:"category"`
	Sentiment          string      `json:"sentiment"`
	Source             string      `json:"source"`
	URL                string      `json:"url"`
	PublishedAt        string      `json:"publishedAt"`
	Keywords           []string    `json:"keywords"`
	Importance         string      `json:"importance"`
	AISummary          string      `json:"aiSummary,omitempty"`
	AnalysisConfidence Passthrough `json:"analysisConfidence,omitzero"`
}

// Sentiment and importance labels used by the service.
const (
	SentimentPositive = "Positive"
	SentimentNegative = "Negative"
	SentimentNeutral  = "Neutral"

	ImportanceHigh   = "High"
	ImportanceMedium = "Medium"
	ImportanceLow    = "Low"
)

// NewsResponse is the envelope of /api/news and /api/summarize.
type NewsResponse struct {
	Success bool     `json:"success"`
	Data    NewsData `json:"data"`
}

type NewsData struct {
	Summaries     []Article `json:"summaries"`
	TotalArticles int       `json:"totalArticles"`
	Timestamp     string    `json:"timestamp"`
	Sources       []string  `json:"sources"`
	Insights      *Insights `json:"insights,omitempty"`
	AIInsights    string    `json:"aiInsights,omitempty"`
}

// Insights holds the server-computed aggregates of an analysis.
type Insights struct {
	CategoriesFound    []string       `json:"categoriesFound"`
	SentimentBreakdown map[string]int `json:"sentimentBreakdown"`
	HighImportanceNews int            `json:"highImportanceNews"`
	AverageConfidence  Passthrough    `json:"averageConfidence,omitzero"`
}

// HealthStatus is the /health payload.
type HealthStatus struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Passthrough keeps a JSON scalar whose type and units the service does not pin down.
// Strings are unquoted for display, anything else is kept as its JSON text.
type Passthrough struct {
	raw json.RawMessage
}

func (p *Passthrough) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		p.raw = nil
		return nil
	}
	p.raw = append(p.raw[:0], data...)
	return nil
}

func (p Passthrough) MarshalJSON() ([]byte, error) {
	if len(p.raw) == 0 {
		return []byte("null"), nil
	}
	return p.raw, nil
}

// IsZero reports whether the value was absent or null.
func (p Passthrough) IsZero() bool {
	return len(p.raw) == 0
}

// String renders the value for display.
func (p Passthrough) String() string {
	if len(p.raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(p.raw, &s); err == nil {
		return s
	}
	return string(p.raw)
}
