package newsapi

import (
	"context"
)

// NewsProvider defines the request/response operations of the news service.
type NewsProvider interface {
	QuickNews(ctx context.Context, req QuickNewsRequest) (*NewsResponse, error)
	DetailedAnalysis(ctx context.Context, req AnalysisRequest) (*NewsResponse, error)
}

// StatusProvider is what the connectivity monitor needs.
type StatusProvider interface {
	Health(ctx context.Context) (*HealthStatus, error)
	Docs(ctx context.Context) (map[string]any, error)
}

// AgentProvider defines the agent-style operations of the news service.
type AgentProvider interface {
	Generate(ctx context.Context, req AgentRequest) (*AgentResult, error)
	// Stream returns a channel closed after the last event. The error channel
	// receives at most one value and is closed with the event channel.
	Stream(ctx context.Context, req AgentRequest) (<-chan AgentEvent, <-chan error, error)
}

// QuickNewsRequest maps to GET /api/news.
type QuickNewsRequest struct {
	Category    string
	MaxArticles int
}

// AnalysisRequest maps to POST /api/summarize.
type AnalysisRequest struct {
	Category      string   `json:"category"`
	MaxArticles   int      `json:"maxArticles"`
	SummaryLength string   `json:"summaryLength"`
	FocusAreas    []string `json:"focusAreas"`
}

// AgentMessage is one entry of the agent conversation.
type AgentMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AgentContext carries the classified intent alongside the raw message.
type AgentContext struct {
	Intent      string   `json:"intent"`
	Category    string   `json:"category"`
	MaxArticles int      `json:"maxArticles"`
	FocusAreas  []string `json:"focusAreas"`
}

// AgentRequest is the body of the agent generate and stream endpoints.
type AgentRequest struct {
	Messages []AgentMessage `json:"messages"`
	Context  AgentContext   `json:"context"`
}

// AgentResult is the agent generate response.
type AgentResult struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"toolCalls,omitempty"`
}

// ToolCall is a tool invocation reported by the agent.
type ToolCall struct {
	ToolName string      `json:"toolName"`
	Result   *ToolResult `json:"result,omitempty"`
}

type ToolResult struct {
	Articles []Article `json:"articles,omitempty"`
}

// Agent stream event types.
const (
	EventText     = "text"
	EventToolCall = "tool-call"
)

// AgentEvent is one increment of an agent stream.
type AgentEvent struct {
	Type     string      `json:"type"`
	Content  string      `json:"content,omitempty"`
	ToolName string      `json:"toolName,omitempty"`
	Result   *ToolResult `json:"result,omitempty"`
}

// NewsToolName is the agent tool whose result carries articles.
const NewsToolName = "fetchNewsFromRss"

// ArticlesFromToolCalls returns the articles of the first news tool call.
func (r *AgentResult) ArticlesFromToolCalls() []Article {
	for _, call := range r.ToolCalls {
		if call.ToolName == NewsToolName && call.Result != nil && len(call.Result.Articles) > 0 {
			return call.Result.Articles
		}
	}
	return nil
}
