package newsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avvvet/newsbuddy/internal/metrics"
)

// DefaultTimeout applies when the caller passes a non-positive timeout.
const DefaultTimeout = 30 * time.Second

// Client talks to the news summarization service over its REST endpoints.
type Client struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

var (
	_ NewsProvider   = (*Client)(nil)
	_ StatusProvider = (*Client)(nil)
)

// NewClient builds a client. The per-call timeout is enforced through the request
// context, so the http.Client itself carries none.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		client:  &http.Client{},
		logger:  logger,
	}
}

// BaseURL returns the service root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var status HealthStatus
	if err := c.do(ctx, "health", http.MethodGet, "/health", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// QuickNews calls GET /api/news.
func (c *Client) QuickNews(ctx context.Context, req QuickNewsRequest) (*NewsResponse, error) {
	params := url.Values{}
	if req.Category != "" {
		params.Set("category", req.Category)
	}
	params.Set("maxArticles", strconv.Itoa(req.MaxArticles))

	var resp NewsResponse
	if err := c.do(ctx, "quick_news", http.MethodGet, "/api/news?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if err := c.checkEnvelope("quick_news", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DetailedAnalysis calls POST /api/summarize.
func (c *Client) DetailedAnalysis(ctx context.Context, req AnalysisRequest) (*NewsResponse, error) {
	if req.FocusAreas == nil {
		req.FocusAreas = []string{}
	}

	var resp NewsResponse
	if err := c.do(ctx, "detailed_analysis", http.MethodPost, "/api/summarize", req, &resp); err != nil {
		return nil, err
	}
	if err := c.checkEnvelope("detailed_analysis", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Docs calls GET /api/docs. The payload is informational and not interpreted.
func (c *Client) Docs(ctx context.Context) (map[string]any, error) {
	var docs map[string]any
	if err := c.do(ctx, "docs", http.MethodGet, "/api/docs", nil, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) (err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.RecordRemoteCall(op, time.Since(start).Seconds())
		if err != nil {
			logCallFailure(c.logger, op, c.timeout, err)
		}
	}()

	var reader io.Reader
	if body != nil {
		payload, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			return fmt.Errorf("%s: failed to marshal request: %w", op, marshalErr)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return newCallError(op, KindTransport, 0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("news service request", "op", op, "method", method, "path", path)

	resp, err := c.client.Do(req)
	if err != nil {
		return transportError(ctx, op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return newCallError(op, KindRemote, resp.StatusCode,
			fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(snippet))))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return transportError(ctx, op, err)
		}
		return newCallError(op, KindMalformed, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}

	c.logger.Debug("news service response", "op", op, "status", resp.StatusCode, "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}

// checkEnvelope rejects 2xx responses that report success=false.
func (c *Client) checkEnvelope(op string, resp *NewsResponse) error {
	if resp.Success {
		return nil
	}
	err := newCallError(op, KindRemote, http.StatusOK, errors.New("envelope reported success=false"))
	logCallFailure(c.logger, op, c.timeout, err)
	return err
}

// transportError separates our own deadline from every other network failure.
func transportError(ctx context.Context, op string, err error) *CallError {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return newCallError(op, KindTimeout, 0, err)
	}
	return newCallError(op, KindTransport, 0, err)
}

func logCallFailure(logger *slog.Logger, op string, timeout time.Duration, err error) {
	kind := KindOf(err)
	if kind == "" {
		logger.Error("news service call failed", "op", op, "error", err)
		return
	}
	metrics.RecordRemoteError(op, string(kind))
	if kind == KindTimeout {
		logger.Warn("news service call timed out", "op", op, "timeout", timeout.String(), "error_kind", kind)
		return
	}
	logger.Error("news service call failed", "op", op, "error_kind", kind, "error", err)
}
