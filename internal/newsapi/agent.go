package newsapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avvvet/newsbuddy/internal/metrics"
)

const maxStreamLine = 1 << 20

// AgentClient calls the news agent's generate and stream endpoints.
type AgentClient struct {
	baseURL string
	agentID string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

var _ AgentProvider = (*AgentClient)(nil)

func NewAgentClient(baseURL, agentID string, timeout time.Duration, logger *slog.Logger) *AgentClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &AgentClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		agentID: agentID,
		timeout: timeout,
		client:  &http.Client{},
		logger:  logger,
	}
}

// Generate runs the agent to completion and returns its reply and tool calls.
func (a *AgentClient) Generate(ctx context.Context, req AgentRequest) (result *AgentResult, err error) {
	const op = "agent_generate"

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.RecordRemoteCall(op, time.Since(start).Seconds())
		if err != nil {
			logCallFailure(a.logger, op, a.timeout, err)
		}
	}()

	resp, err := a.post(ctx, op, "generate", req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var out AgentResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if ctx.Err() != nil {
			return nil, transportError(ctx, op, err)
		}
		return nil, newCallError(op, KindMalformed, resp.StatusCode, fmt.Errorf("failed to decode agent result: %w", err))
	}

	a.logger.Debug("agent generate finished", "tool_calls", len(out.ToolCalls), "elapsed_ms", time.Since(start).Milliseconds())
	return &out, nil
}

// Stream opens the agent stream. The timeout covers the whole stream; the response
// body is closed when the stream ends, fails, or ctx is cancelled.
func (a *AgentClient) Stream(ctx context.Context, req AgentRequest) (<-chan AgentEvent, <-chan error, error) {
	const op = "agent_stream"

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	start := time.Now()

	resp, err := a.post(ctx, op, "stream", req)
	if err != nil {
		cancel()
		logCallFailure(a.logger, op, a.timeout, err)
		return nil, nil, err
	}

	events := make(chan AgentEvent, 8)
	errs := make(chan error, 1)

	go func() {
		defer cancel()
		defer func() { _ = resp.Body.Close() }()
		defer close(errs)
		defer close(events)

		err := a.readStream(ctx, op, resp.Body, events)
		metrics.RecordRemoteCall(op, time.Since(start).Seconds())
		if err != nil {
			logCallFailure(a.logger, op, a.timeout, err)
			errs <- err
		}
	}()

	return events, errs, nil
}

func (a *AgentClient) readStream(ctx context.Context, op string, body io.Reader, events chan<- AgentEvent) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStreamLine)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "data:") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if line == "[DONE]" {
			return nil
		}

		var ev AgentEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			return newCallError(op, KindMalformed, http.StatusOK, fmt.Errorf("failed to decode stream event: %w", err))
		}

		select {
		case events <- ev:
		case <-ctx.Done():
			return transportError(ctx, op, ctx.Err())
		}
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return newCallError(op, KindMalformed, http.StatusOK, fmt.Errorf("stream event exceeds %d bytes: %w", maxStreamLine, err))
		}
		return transportError(ctx, op, err)
	}
	if ctx.Err() != nil {
		return transportError(ctx, op, ctx.Err())
	}
	return nil
}

func (a *AgentClient) post(ctx context.Context, op, action string, body AgentRequest) (*http.Response, error) {
	if body.Context.FocusAreas == nil {
		body.Context.FocusAreas = []string{}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to marshal request: %w", op, err)
	}

	endpoint := fmt.Sprintf("%s/api/agents/%s/%s", a.baseURL, url.PathEscape(a.agentID), action)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, newCallError(op, KindTransport, 0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	a.logger.Debug("agent request", "op", op, "agent", a.agentID, "intent", body.Context.Intent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, transportError(ctx, op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		return nil, newCallError(op, KindRemote, resp.StatusCode,
			fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(snippet))))
	}
	return resp, nil
}
