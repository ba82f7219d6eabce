package transport

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/avvvet/newsbuddy/internal/config"
	"github.com/avvvet/newsbuddy/internal/handlers"
	"github.com/avvvet/newsbuddy/internal/logger"
	"github.com/avvvet/newsbuddy/internal/memory"
	"github.com/avvvet/newsbuddy/internal/newsapi"
)

type stubNews struct {
	// block, when set, holds QuickNews until closed.
	block chan struct{}
	calls atomic.Int32
}

func (s *stubNews) QuickNews(ctx context.Context, req newsapi.QuickNewsRequest) (*newsapi.NewsResponse, error) {
	s.calls.Add(1)
	if s.block != nil {
		<-s.block
	}
	return &newsapi.NewsResponse{Success: true, Data: newsapi.NewsData{
		Summaries: []newsapi.Article{{Title: "Chip launch", Category: "technology"}},
	}}, nil
}

func (s *stubNews) DetailedAnalysis(ctx context.Context, req newsapi.AnalysisRequest) (*newsapi.NewsResponse, error) {
	s.calls.Add(1)
	return &newsapi.NewsResponse{Success: true}, nil
}

type stubStatus struct {
	mu        sync.Mutex
	connected bool
	docs      map[string]any
}

func (s *stubStatus) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *stubStatus) Docs() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs
}

func (s *stubStatus) set(connected bool) {
	s.mu.Lock()
	s.connected = connected
	s.mu.Unlock()
}

func newTestManager(news newsapi.NewsProvider, status *stubStatus) *memory.Manager {
	chat := handlers.NewChatHandler(news, nil, 20, logger.Discard())
	return memory.NewManager(chat, nil, status, logger.Discard())
}

func testConfig() *config.Config {
	return &config.Config{
		ServiceName:        "newsbuddy-test",
		NatsRequestSubject: "news.chat",
		NatsStatusSubject:  "news.status",
	}
}
