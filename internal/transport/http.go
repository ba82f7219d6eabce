package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avvvet/newsbuddy/internal/memory"
	"github.com/avvvet/newsbuddy/internal/models"
)

// StatusSource is what the status endpoint reports. *health.Monitor implements it.
type StatusSource interface {
	Connected() bool
	Docs() map[string]any
}

// StatusResponse is the body of GET /v1/status.
type StatusResponse struct {
	Connected      bool           `json:"connected"`
	GateHealthy    bool           `json:"gate_healthy"`
	ActiveSessions int            `json:"active_sessions"`
	APIDocs        map[string]any `json:"api_docs,omitempty"`
}

// TurnsResponse is the body of GET /v1/sessions/:id/turns.
type TurnsResponse struct {
	SessionID string        `json:"session_id"`
	Turns     []memory.Turn `json:"turns"`
}

type HTTPServer struct {
	echo     *echo.Echo
	addr     string
	sessions *memory.Manager
	status   StatusSource
	logger   *slog.Logger
}

func NewHTTPServer(addr string, sessions *memory.Manager, status StatusSource, logger *slog.Logger) *HTTPServer {
	s := &HTTPServer{
		echo:     echo.New(),
		addr:     addr,
		sessions: sessions,
		status:   status,
		logger:   logger.With("component", "http"),
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogMethod:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error == nil {
				s.logger.Info("request completed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds())
			} else {
				s.logger.Error("request failed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds(),
					"error", v.Error.Error())
			}
			return nil
		},
	}))
	s.echo.Use(middleware.Recover())

	v1 := s.echo.Group("/v1")
	v1.POST("/chat", s.handleChat)
	v1.POST("/chat/stream", s.handleChatStream)
	v1.GET("/status", s.handleStatus)
	v1.GET("/sessions/:id/turns", s.handleTurns)
	v1.DELETE("/sessions/:id", s.handleDeleteSession)

	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.echo
}

// Start blocks until the server stops. A graceful shutdown is not an error.
func (s *HTTPServer) Start() error {
	s.logger.Info("starting http server", "address", s.addr)
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *HTTPServer) handleChat(c echo.Context) error {
	request, resp := s.bindRequest(c)
	if resp != nil {
		return c.JSON(http.StatusBadRequest, resp)
	}

	ctx := c.Request().Context()
	session := s.sessions.GetOrCreateSession(ctx, request.SessionID)

	turn, err := session.Submit(ctx, request.Message)
	if err != nil {
		return c.JSON(submitErrorStatus(err), submitErrorResponse(request.SessionID, err))
	}

	return c.JSON(http.StatusOK, &models.ChatResponse{
		SessionID:          request.SessionID,
		Status:             models.StatusOK,
		Kind:               string(turn.Kind),
		Reply:              turn.Content,
		Articles:           turn.Articles,
		SuggestedQuestions: turn.Suggestions,
	})
}

// handleChatStream writes one SSE data event per chunk. Rejections are reported as
// plain JSON before the stream starts.
func (s *HTTPServer) handleChatStream(c echo.Context) error {
	request, resp := s.bindRequest(c)
	if resp != nil {
		return c.JSON(http.StatusBadRequest, resp)
	}

	ctx := c.Request().Context()
	session := s.sessions.GetOrCreateSession(ctx, request.SessionID)

	chunks, err := session.SubmitStream(ctx, request.Message)
	if err != nil {
		return c.JSON(submitErrorStatus(err), submitErrorResponse(request.SessionID, err))
	}

	w := c.Response().Writer
	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		s.logger.Error("response writer doesn't support flushing")
		return c.String(http.StatusInternalServerError, "Streaming not supported")
	}

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	for chunk := range chunks {
		data, err := json.Marshal(chunk)
		if err != nil {
			s.logger.Error("error marshaling chunk", "error", err)
			continue
		}

		if _, err := fmt.Fprintf(c.Response(), "data: %s\n\n", data); err != nil {
			s.logger.Info("client disconnected", "session_id", request.SessionID, "error", err)
			return nil
		}
		flusher.Flush()
	}

	return nil
}

func (s *HTTPServer) handleStatus(c echo.Context) error {
	gateErr := s.sessions.PingGate(c.Request().Context())
	if gateErr != nil {
		s.logger.Warn("busy gate unreachable", "error", gateErr)
	}

	return c.JSON(http.StatusOK, StatusResponse{
		Connected:      s.status.Connected(),
		GateHealthy:    gateErr == nil,
		ActiveSessions: s.sessions.GetActiveSessionCount(),
		APIDocs:        s.status.Docs(),
	})
}

func (s *HTTPServer) handleTurns(c echo.Context) error {
	sessionID := c.Param("id")

	session, ok := s.sessions.GetSession(sessionID)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}

	return c.JSON(http.StatusOK, TurnsResponse{
		SessionID: sessionID,
		Turns:     session.Turns(),
	})
}

func (s *HTTPServer) handleDeleteSession(c echo.Context) error {
	if !s.sessions.ClearSession(c.Param("id")) {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) bindRequest(c echo.Context) (*models.ChatRequest, *models.ChatResponse) {
	var request models.ChatRequest
	if err := c.Bind(&request); err != nil {
		s.logger.Warn("error parsing request", "error", err)
		return nil, errorResponse(request.SessionID, models.StatusError, models.ErrorParseError, "Invalid request format")
	}

	if err := validateRequest(&request); err != nil {
		return nil, errorResponse(request.SessionID, models.StatusError, models.ErrorParseError, err.Error())
	}
	return &request, nil
}

func submitErrorStatus(err error) int {
	switch {
	case errors.Is(err, memory.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, memory.ErrDisconnected):
		return http.StatusServiceUnavailable
	case errors.Is(err, memory.ErrEmptyMessage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
