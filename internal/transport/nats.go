package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/avvvet/newsbuddy/internal/config"
	"github.com/avvvet/newsbuddy/internal/memory"
	"github.com/avvvet/newsbuddy/internal/models"
	"github.com/avvvet/newsbuddy/internal/prompts"
)

type NATSTransport struct {
	conn     *nats.Conn
	sub      *nats.Subscription
	config   *config.Config
	sessions *memory.Manager
	logger   *slog.Logger

	// handlers run outside the subscription callback; closed stops new ones
	mu       sync.Mutex
	closed   bool
	handlers sync.WaitGroup
}

func NewNATSTransport(cfg *config.Config, sessions *memory.Manager, logger *slog.Logger) (*NATSTransport, error) {
	logger = logger.With("component", "nats")

	// Connect to NATS
	conn, err := nats.Connect(cfg.NatsURL,
		nats.Name(cfg.ServiceName),
		nats.Timeout(cfg.NatsTimeout),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1), // Infinite reconnects
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("disconnected from NATS", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("reconnected to NATS", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("connected to NATS server", "url", cfg.NatsURL)

	return &NATSTransport{
		conn:     conn,
		config:   cfg,
		sessions: sessions,
		logger:   logger,
	}, nil
}

// Start subscribes to chat requests. Replicas share the subject through a queue
// group named after the service. Each request is handled on its own goroutine so
// a slow session does not hold up the others; the session busy gate still
// serialises messages of one session.
func (nt *NATSTransport) Start() error {
	sub, err := nt.conn.QueueSubscribe(nt.config.NatsRequestSubject, nt.config.ServiceName, func(msg *nats.Msg) {
		if !nt.spawn(func() { nt.handleChatRequest(msg) }) {
			nt.logger.Warn("dropping chat request during shutdown", "subject", msg.Subject)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", nt.config.NatsRequestSubject, err)
	}
	nt.sub = sub

	nt.logger.Info("subscribed to subject", "subject", nt.config.NatsRequestSubject, "queue", nt.config.ServiceName)
	return nil
}

// PublishStatus announces a connectivity change of the news service.
func (nt *NATSTransport) PublishStatus(connected bool) error {
	data, err := json.Marshal(models.StatusEvent{Connected: connected, Timestamp: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal status event: %w", err)
	}

	if err := nt.conn.Publish(nt.config.NatsStatusSubject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", nt.config.NatsStatusSubject, err)
	}

	nt.logger.Info("published status", "subject", nt.config.NatsStatusSubject, "connected", connected)
	return nil
}

// spawn runs fn on a tracked goroutine. It reports false once the transport is closing.
func (nt *NATSTransport) spawn(fn func()) bool {
	nt.mu.Lock()
	defer nt.mu.Unlock()
	if nt.closed {
		return false
	}

	nt.handlers.Add(1)
	go func() {
		defer nt.handlers.Done()
		fn()
	}()
	return true
}

// waitHandlers refuses new handlers and waits for the running ones.
func (nt *NATSTransport) waitHandlers() {
	nt.mu.Lock()
	nt.closed = true
	nt.mu.Unlock()

	nt.handlers.Wait()
}

func (nt *NATSTransport) handleChatRequest(msg *nats.Msg) {
	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), nt.config.NatsTimeout)
	defer cancel()

	response := nt.process(ctx, msg.Data)

	// Send response
	if err := nt.sendResponse(msg, response); err != nil {
		nt.logger.Error("error sending response", "session_id", response.SessionID, "error", err)
	}
}

// process turns one raw request into a response. It never fails: every problem is
// reported in the response body.
func (nt *NATSTransport) process(ctx context.Context, data []byte) *models.ChatResponse {
	// Parse the request
	var request models.ChatRequest
	if err := json.Unmarshal(data, &request); err != nil {
		nt.logger.Warn("error parsing request", "error", err)
		return errorResponse(request.SessionID, models.StatusError, models.ErrorParseError, "Invalid request format")
	}

	// Validate request
	if err := validateRequest(&request); err != nil {
		return errorResponse(request.SessionID, models.StatusError, models.ErrorParseError, err.Error())
	}

	nt.logger.Info("processing chat request", "session_id", request.SessionID)

	session := nt.sessions.GetOrCreateSession(ctx, request.SessionID)
	turn, err := session.Submit(ctx, request.Message)
	if err != nil {
		return submitErrorResponse(request.SessionID, err)
	}

	return &models.ChatResponse{
		SessionID:          request.SessionID,
		Status:             models.StatusOK,
		Kind:               string(turn.Kind),
		Reply:              turn.Content,
		Articles:           turn.Articles,
		SuggestedQuestions: turn.Suggestions,
	}
}

func validateRequest(request *models.ChatRequest) error {
	if request.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if strings.TrimSpace(request.Message) == "" {
		return fmt.Errorf("message is required")
	}
	return nil
}

func submitErrorResponse(sessionID string, err error) *models.ChatResponse {
	switch {
	case errors.Is(err, memory.ErrBusy):
		return errorResponse(sessionID, models.StatusBusy, models.ErrorBusy, err.Error())
	case errors.Is(err, memory.ErrDisconnected):
		return errorResponse(sessionID, models.StatusOffline, models.ErrorOffline, err.Error())
	case errors.Is(err, memory.ErrEmptyMessage):
		return errorResponse(sessionID, models.StatusError, models.ErrorParseError, err.Error())
	default:
		return errorResponse(sessionID, models.StatusError, models.ErrorInternal, err.Error())
	}
}

func errorResponse(sessionID, status, errorCode, errorMessage string) *models.ChatResponse {
	return &models.ChatResponse{
		SessionID:          sessionID,
		Status:             status,
		Reply:              prompts.FallbackReply,
		SuggestedQuestions: prompts.FallbackSuggestions(),
		ErrorCode:          &errorCode,
		ErrorMessage:       &errorMessage,
	}
}

func (nt *NATSTransport) sendResponse(msg *nats.Msg, response *models.ChatResponse) error {
	responseData, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	if err := msg.Respond(responseData); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	nt.logger.Info("response sent", "session_id", response.SessionID, "status", response.Status)
	return nil
}

func (nt *NATSTransport) Close() error {
	if nt.sub != nil {
		if err := nt.sub.Unsubscribe(); err != nil {
			nt.logger.Warn("error unsubscribing", "error", err)
		}
	}

	// In-flight handlers still need the connection to respond.
	nt.waitHandlers()

	if nt.conn != nil {
		if err := nt.conn.Drain(); err != nil {
			nt.conn.Close()
		}
		nt.logger.Info("NATS connection closed")
	}
	return nil
}
