package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/avvvet/newsbuddy/internal/intent"
	"github.com/avvvet/newsbuddy/internal/metrics"
	"github.com/avvvet/newsbuddy/internal/newsapi"
	"github.com/avvvet/newsbuddy/internal/prompts"
)

// Article counts used when the message does not ask for a number.
const (
	DefaultNewsArticles     = 5
	DefaultAnalysisArticles = 8
	GeneralArticles         = 3
)

// Reply is one assistant turn produced for a user message.
type Reply struct {
	Text        string            `json:"reply"`
	Articles    []newsapi.Article `json:"articles,omitempty"`
	Suggestions []string          `json:"suggested_questions"`
	Kind        intent.Kind       `json:"kind"`
	// Fallback is set when a failure was replaced by the apology reply.
	Fallback bool `json:"fallback,omitempty"`
}

// StreamChunk is one element of a streamed reply. Only the last chunk has Done set;
// it carries the complete content together with articles and suggestions.
type StreamChunk struct {
	Delta       string            `json:"delta,omitempty"`
	Done        bool              `json:"done"`
	Content     string            `json:"content,omitempty"`
	Articles    []newsapi.Article `json:"articles,omitempty"`
	Suggestions []string          `json:"suggested_questions,omitempty"`
	Kind        intent.Kind       `json:"kind,omitempty"`
	Fallback    bool              `json:"fallback,omitempty"`
}

// ChatHandler classifies user messages and answers them from the news service.
// With an agent provider configured, non-canned kinds go to the agent instead of
// the REST endpoints.
type ChatHandler struct {
	news        newsapi.NewsProvider
	agent       newsapi.AgentProvider
	maxArticles int
	logger      *slog.Logger
}

func NewChatHandler(news newsapi.NewsProvider, agent newsapi.AgentProvider, maxArticles int, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		news:        news,
		agent:       agent,
		maxArticles: maxArticles,
		logger:      logger.With("component", "chat"),
	}
}

// ChatWithNews never returns an error: remote failures become the fallback reply.
func (h *ChatHandler) ChatWithNews(ctx context.Context, text string) *Reply {
	desc := intent.Classify(text)
	h.logger.Debug("classified message",
		"kind", desc.Kind, "category", desc.Category, "article_count", desc.ArticleCount, "keywords", desc.Keywords)

	reply, err := h.dispatch(ctx, desc, text)
	if err != nil {
		h.logFallback(desc.Kind, err)
		reply = fallbackReply(desc.Kind)
	}

	metrics.RecordReply(string(desc.Kind), reply.Fallback)
	return reply
}

// ChatStream answers like ChatWithNews but delivers the text incrementally. The channel
// is closed after the final chunk, or early when ctx is cancelled. Callers must either
// drain the channel or cancel ctx.
func (h *ChatHandler) ChatStream(ctx context.Context, text string) <-chan StreamChunk {
	out := make(chan StreamChunk)

	go func() {
		defer close(out)

		desc := intent.Classify(text)
		if h.agent == nil || isCanned(desc.Kind) {
			reply := h.ChatWithNews(ctx, text)
			if !sendChunk(ctx, out, StreamChunk{Delta: reply.Text}) {
				return
			}
			sendChunk(ctx, out, finalChunk(reply))
			return
		}

		h.streamAgent(ctx, desc, text, out)
	}()

	return out
}

func (h *ChatHandler) dispatch(ctx context.Context, desc intent.Descriptor, text string) (*Reply, error) {
	switch desc.Kind {
	case intent.KindGreeting:
		return cannedReply(desc.Kind, prompts.GreetingReply), nil
	case intent.KindHelp:
		return cannedReply(desc.Kind, prompts.HelpReply), nil
	}

	if h.agent != nil {
		return h.agentReply(ctx, desc, text)
	}

	switch desc.Kind {
	case intent.KindNewsRequest:
		resp, err := h.news.QuickNews(ctx, newsapi.QuickNewsRequest{
			Category:    string(desc.Category),
			MaxArticles: h.articleCount(desc),
		})
		if err != nil {
			return nil, fmt.Errorf("quick news: %w", err)
		}
		articles := resp.Data.Summaries
		return newsReply(desc.Kind, prompts.NewsReply(desc.Category, len(articles)), articles), nil

	case intent.KindDetailedAnalysis:
		summaryLength := desc.SummaryLength
		if summaryLength == intent.SummaryUnset {
			summaryLength = intent.SummaryMedium
		}
		resp, err := h.news.DetailedAnalysis(ctx, newsapi.AnalysisRequest{
			Category:      string(desc.Category),
			MaxArticles:   h.articleCount(desc),
			SummaryLength: string(summaryLength),
			FocusAreas:    desc.FocusAreas,
		})
		if err != nil {
			return nil, fmt.Errorf("detailed analysis: %w", err)
		}
		return newsReply(desc.Kind, prompts.AnalysisReport(desc.Category, resp.Data), resp.Data.Summaries), nil

	default:
		// Unrecognised messages are retried as a keyword search.
		resp, err := h.news.QuickNews(ctx, newsapi.QuickNewsRequest{
			Category:    strings.Join(desc.Keywords, " "),
			MaxArticles: h.articleCount(desc),
		})
		if err != nil {
			return nil, fmt.Errorf("keyword search: %w", err)
		}
		return newsReply(desc.Kind, prompts.GeneralReply, resp.Data.Summaries), nil
	}
}

func (h *ChatHandler) agentReply(ctx context.Context, desc intent.Descriptor, text string) (*Reply, error) {
	result, err := h.agent.Generate(ctx, h.agentRequest(desc, text))
	if err != nil {
		return nil, fmt.Errorf("agent generate: %w", err)
	}

	return newsReply(desc.Kind, agentContent(result.Content), result.ArticlesFromToolCalls()), nil
}

func (h *ChatHandler) streamAgent(ctx context.Context, desc intent.Descriptor, text string, out chan<- StreamChunk) {
	fail := func(err error) {
		h.logFallback(desc.Kind, err)
		metrics.RecordReply(string(desc.Kind), true)
		sendChunk(ctx, out, finalChunk(fallbackReply(desc.Kind)))
	}

	events, errs, err := h.agent.Stream(ctx, h.agentRequest(desc, text))
	if err != nil {
		fail(fmt.Errorf("agent stream: %w", err))
		return
	}

	var content strings.Builder
	var articles []newsapi.Article
	for events != nil {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			switch ev.Type {
			case newsapi.EventText:
				if ev.Content == "" {
					continue
				}
				content.WriteString(ev.Content)
				if !sendChunk(ctx, out, StreamChunk{Delta: ev.Content}) {
					return
				}
			case newsapi.EventToolCall:
				if articles == nil && ev.ToolName == newsapi.NewsToolName && ev.Result != nil && len(ev.Result.Articles) > 0 {
					articles = ev.Result.Articles
				}
			}
		}
	}

	if err := <-errs; err != nil {
		fail(fmt.Errorf("agent stream: %w", err))
		return
	}

	metrics.RecordReply(string(desc.Kind), false)
	sendChunk(ctx, out, finalChunk(newsReply(desc.Kind, agentContent(content.String()), articles)))
}

// agentContent keeps the agent text byte for byte so that it matches the
// concatenated deltas. Blank text is replaced.
func agentContent(content string) string {
	if strings.TrimSpace(content) == "" {
		return prompts.EmptyAgentReply
	}
	return content
}

func (h *ChatHandler) agentRequest(desc intent.Descriptor, text string) newsapi.AgentRequest {
	return newsapi.AgentRequest{
		Messages: []newsapi.AgentMessage{{Role: "user", Content: text}},
		Context: newsapi.AgentContext{
			Intent:      string(desc.Kind),
			Category:    string(desc.Category),
			MaxArticles: h.articleCount(desc),
			FocusAreas:  desc.FocusAreas,
		},
	}
}

// articleCount applies the per-kind default and the configured ceiling.
func (h *ChatHandler) articleCount(desc intent.Descriptor) int {
	var n int
	switch desc.Kind {
	case intent.KindNewsRequest:
		n = DefaultNewsArticles
		if desc.ArticleCount > 0 {
			n = desc.ArticleCount
		}
	case intent.KindDetailedAnalysis:
		n = DefaultAnalysisArticles
		if desc.ArticleCount > 0 {
			n = desc.ArticleCount
		}
	default:
		n = GeneralArticles
	}

	if h.maxArticles > 0 && n > h.maxArticles {
		h.logger.Debug("clamping requested article count", "requested", n, "max", h.maxArticles)
		n = h.maxArticles
	}
	return n
}

func (h *ChatHandler) logFallback(kind intent.Kind, err error) {
	kindAttr := "unknown"
	if k := newsapi.KindOf(err); k != "" {
		kindAttr = string(k)
	}
	h.logger.Warn("chat request failed, sending fallback reply",
		"kind", kind, "error_kind", kindAttr, "error", err)
}

func isCanned(kind intent.Kind) bool {
	return kind == intent.KindGreeting || kind == intent.KindHelp
}

func cannedReply(kind intent.Kind, text string) *Reply {
	return &Reply{
		Text:        text,
		Suggestions: prompts.SuggestedQuestions(nil),
		Kind:        kind,
	}
}

func newsReply(kind intent.Kind, text string, articles []newsapi.Article) *Reply {
	return &Reply{
		Text:        text,
		Articles:    articles,
		Suggestions: prompts.SuggestedQuestions(articles),
		Kind:        kind,
	}
}

func fallbackReply(kind intent.Kind) *Reply {
	return &Reply{
		Text:        prompts.FallbackReply,
		Suggestions: prompts.FallbackSuggestions(),
		Kind:        kind,
		Fallback:    true,
	}
}

func finalChunk(reply *Reply) StreamChunk {
	return StreamChunk{
		Done:        true,
		Content:     reply.Text,
		Articles:    reply.Articles,
		Suggestions: reply.Suggestions,
		Kind:        reply.Kind,
		Fallback:    reply.Fallback,
	}
}

func sendChunk(ctx context.Context, out chan<- StreamChunk, chunk StreamChunk) bool {
	select {
	case out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}
