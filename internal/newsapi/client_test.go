package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

const newsPayload = `{
  "success": true,
  "data": {
    "summaries": [
      {"title": "Chip launch", "summary": "A new chip", "category": "technology", "sentiment": "Positive",
       "source": "Wire", "url": "https://example.com/chip", "publishedAt": "2025-01-02T03:04:05Z",
       "keywords": ["chip"], "importance": "High", "analysisConfidence": "0.92"}
    ],
    "totalArticles": 1,
    "timestamp": "2025-01-02T03:05:00Z",
    "sources": ["Wire"]
  }
}`

func TestClient_QuickNews(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/news", r.URL.Path)
		assert.Equal(t, "technology", r.URL.Query().Get("category"))
		assert.Equal(t, "5", r.URL.Query().Get("maxArticles"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, newsPayload)
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", time.Second, testLogger())
	resp, err := client.QuickNews(context.Background(), QuickNewsRequest{Category: "technology", MaxArticles: 5})
	require.NoError(t, err)

	require.Len(t, resp.Data.Summaries, 1)
	article := resp.Data.Summaries[0]
	assert.Equal(t, "Chip launch", article.Title)
	assert.Equal(t, SentimentPositive, article.Sentiment)
	assert.Equal(t, "0.92", article.AnalysisConfidence.String())
	assert.Nil(t, resp.Data.Insights)
}

func TestClient_QuickNewsOmitsEmptyCategory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.URL.Query()["category"]
		assert.False(t, present)
		_, _ = io.WriteString(w, newsPayload)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, time.Second, testLogger()).
		QuickNews(context.Background(), QuickNewsRequest{MaxArticles: 3})
	require.NoError(t, err)
}

func TestClient_DetailedAnalysis(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/summarize", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "business", body["category"])
		assert.Equal(t, float64(8), body["maxArticles"])
		assert.Equal(t, "medium", body["summaryLength"])
		assert.Equal(t, []any{}, body["focusAreas"])

		_, _ = io.WriteString(w, `{"success":true,"data":{"summaries":[],"totalArticles":4,
			"insights":{"categoriesFound":["business"],"sentimentBreakdown":{"Positive":3,"Negative":1},
			"highImportanceNews":2,"averageConfidence":0.81},"aiInsights":"Markets steady."}}`)
	}))
	defer server.Close()

	resp, err := NewClient(server.URL, time.Second, testLogger()).DetailedAnalysis(context.Background(), AnalysisRequest{
		Category:      "business",
		MaxArticles:   8,
		SummaryLength: "medium",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Data.Insights)
	assert.Equal(t, map[string]int{"Positive": 3, "Negative": 1}, resp.Data.Insights.SentimentBreakdown)
	assert.Equal(t, "0.81", resp.Data.Insights.AverageConfidence.String())
	assert.Equal(t, "Markets steady.", resp.Data.AIInsights)
}

func TestClient_ErrorKinds(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		sentinel error
		kind     ErrorKind
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusBadGateway)
			},
			sentinel: ErrRemote,
			kind:     KindRemote,
		},
		{
			name: "client error is the same condition",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", http.StatusNotFound)
			},
			sentinel: ErrRemote,
			kind:     KindRemote,
		},
		{
			name: "success false",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"success":false,"data":{}}`)
			},
			sentinel: ErrRemote,
			kind:     KindRemote,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `<html>not json</html>`)
			},
			sentinel: ErrMalformedResponse,
			kind:     KindMalformed,
		},
		{
			name: "wrong shape",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"success":true,"data":{"summaries":"none"}}`)
			},
			sentinel: ErrMalformedResponse,
			kind:     KindMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := NewClient(server.URL, time.Second, testLogger()).
				QuickNews(context.Background(), QuickNewsRequest{MaxArticles: 5})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.ErrorIs(t, err, ErrRemoteUnavailable)
			assert.Equal(t, tt.kind, KindOf(err))
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	released := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		close(released)
	}))
	defer server.Close()

	client := NewClient(server.URL, 50*time.Millisecond, testLogger())
	_, err := client.QuickNews(context.Background(), QuickNewsRequest{MaxArticles: 5})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.NotErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, ErrRemoteUnavailable)

	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight request was not aborted after the timeout")
	}
}

func TestClient_CallerCancellationIsTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := NewClient(server.URL, 5*time.Second, testLogger()).
		QuickNews(ctx, QuickNewsRequest{MaxArticles: 5})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestClient_UnreachableHost(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(url, time.Second, testLogger()).Health(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)

	var callErr *CallError
	require.True(t, errors.As(err, &callErr))
	assert.Equal(t, "health", callErr.Op)
}

func TestClient_HealthAndDocs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			_, _ = io.WriteString(w, `{"status":"ok","timestamp":"2025-01-01T00:00:00Z"}`)
		case "/api/docs":
			_, _ = io.WriteString(w, `{"version":"1.2.0","model":"deepseek-chat","platform":"workers"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, testLogger())

	health, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)

	docs, err := client.Docs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", docs["version"])
}

func TestPassthrough(t *testing.T) {
	var in struct {
		A Passthrough `json:"a"`
		B Passthrough `json:"b"`
		C Passthrough `json:"c,omitzero"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"high","b":0.75,"c":null}`), &in))

	assert.Equal(t, "high", in.A.String())
	assert.Equal(t, "0.75", in.B.String())
	assert.True(t, in.C.IsZero())

	out, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"high","b":0.75}`, string(out))
}

func TestClient_BaseURLTrimsSlash(t *testing.T) {
	c := NewClient("http://news.test/", time.Second, testLogger())
	assert.Equal(t, "http://news.test", c.BaseURL())
}
