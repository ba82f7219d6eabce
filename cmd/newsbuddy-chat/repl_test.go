package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/newsbuddy/internal/handlers"
	"github.com/avvvet/newsbuddy/internal/logger"
	"github.com/avvvet/newsbuddy/internal/memory"
	"github.com/avvvet/newsbuddy/internal/newsapi"
	"github.com/avvvet/newsbuddy/internal/prompts"
)

type stubNews struct {
	requests []newsapi.QuickNewsRequest
}

func (s *stubNews) QuickNews(ctx context.Context, req newsapi.QuickNewsRequest) (*newsapi.NewsResponse, error) {
	s.requests = append(s.requests, req)
	return &newsapi.NewsResponse{Success: true, Data: newsapi.NewsData{
		Summaries: []newsapi.Article{{Title: "Chip launch", Source: "Wire", Summary: "A new chip", URL: "https://example.com/chip"}},
	}}, nil
}

func (s *stubNews) DetailedAnalysis(ctx context.Context, req newsapi.AnalysisRequest) (*newsapi.NewsResponse, error) {
	return &newsapi.NewsResponse{Success: true, Data: newsapi.NewsData{AIInsights: "Calm markets."}}, nil
}

type connectivity bool

func (c connectivity) Connected() bool { return bool(c) }

func runREPL(t *testing.T, news *stubNews, connected bool, stream bool, input string) (string, *memory.Session) {
	t.Helper()
	chat := handlers.NewChatHandler(news, nil, 20, logger.Discard())
	sessions := memory.NewManager(chat, nil, connectivity(connected), logger.Discard())
	session := sessions.NewSession(context.Background())

	var out bytes.Buffer
	r := newREPL(session, connectivity(connected), strings.NewReader(input), &out, "http://news.test", stream)
	require.NoError(t, r.run(context.Background()))
	return out.String(), session
}

func TestREPL_WelcomeAndQuit(t *testing.T) {
	out, _ := runREPL(t, &stubNews{}, true, false, "/quit\n")

	assert.Contains(t, out, prompts.WelcomeMessage)
	assert.Contains(t, out, "[1] "+prompts.InitialSuggestions()[0])
	assert.Contains(t, out, "● connected (http://news.test)")
	assert.Contains(t, out, "Bye!")
}

func TestREPL_AskAndPrintArticles(t *testing.T) {
	news := &stubNews{}
	out, session := runREPL(t, news, true, false, "Any tech news?\n")

	require.Len(t, news.requests, 1)
	assert.Equal(t, "technology", news.requests[0].Category)
	assert.Contains(t, out, "Found 1 latest technology news article for you:")
	assert.Contains(t, out, "1. Chip launch (Wire)")
	assert.Contains(t, out, "https://example.com/chip")
	assert.Len(t, session.Turns(), 3)
}

func TestREPL_NumberPicksSuggestion(t *testing.T) {
	news := &stubNews{}
	out, _ := runREPL(t, news, true, false, "2\n")

	second := prompts.InitialSuggestions()[1]
	assert.Contains(t, out, "> "+second)
	require.Len(t, news.requests, 1)
	assert.Equal(t, "technology", news.requests[0].Category)
}

func TestREPL_Streaming(t *testing.T) {
	out, _ := runREPL(t, &stubNews{}, true, true, "hello\n")
	assert.Contains(t, out, prompts.GreetingReply)
	assert.Equal(t, 1, strings.Count(out, prompts.GreetingReply))
}

func TestREPL_Disconnected(t *testing.T) {
	news := &stubNews{}
	out, session := runREPL(t, news, false, false, "Any tech news?\n/status\n")

	assert.Contains(t, out, "The news service is unreachable")
	assert.Contains(t, out, "● disconnected")
	assert.Empty(t, news.requests)
	assert.Len(t, session.Turns(), 1)
}

func TestREPL_History(t *testing.T) {
	out, _ := runREPL(t, &stubNews{}, true, false, "hello\n/history\n")
	assert.Contains(t, out, "User: hello\nAssistant: "+prompts.GreetingReply)
}
