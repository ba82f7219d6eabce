package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/memory"

	"github.com/avvvet/newsbuddy/internal/handlers"
	"github.com/avvvet/newsbuddy/internal/metrics"
	"github.com/avvvet/newsbuddy/internal/prompts"
)

// Session is one chat conversation. Turns are append-only and live in process memory.
type Session struct {
	id     string
	chat   Chatter
	gate   Gate
	conn   Connectivity
	logger *slog.Logger

	mu     sync.Mutex
	turns  []Turn
	buffer *memory.ConversationBuffer

	inflight   atomic.Int32
	lastActive atomic.Int64 // unix nanos
}

func newSession(ctx context.Context, id string, chat Chatter, gate Gate, conn Connectivity, logger *slog.Logger) *Session {
	s := &Session{
		id:     id,
		chat:   chat,
		gate:   gate,
		conn:   conn,
		logger: logger.With("session_id", id),
		buffer: memory.NewConversationBuffer(),
	}
	s.appendTurn(ctx, Turn{Role: RoleAssistant, Content: prompts.WelcomeMessage, Suggestions: prompts.InitialSuggestions()})
	return s
}

func (s *Session) ID() string {
	return s.id
}

// Submit records the user message, asks the chatter for a reply and records it.
// It fails fast with ErrDisconnected or ErrBusy without calling the chatter.
func (s *Session) Submit(ctx context.Context, text string) (*Turn, error) {
	text = strings.TrimSpace(text)
	release, err := s.begin(ctx, text)
	if err != nil {
		return nil, err
	}
	defer release()

	reply := s.chat.ChatWithNews(ctx, text)
	turn := s.appendTurn(ctx, Turn{
		Role:        RoleAssistant,
		Content:     reply.Text,
		Articles:    reply.Articles,
		Kind:        reply.Kind,
		Suggestions: reply.Suggestions,
	})
	return &turn, nil
}

// SubmitStream is the streaming form of Submit. The session stays busy until the
// returned channel is closed.
func (s *Session) SubmitStream(ctx context.Context, text string) (<-chan handlers.StreamChunk, error) {
	text = strings.TrimSpace(text)
	release, err := s.begin(ctx, text)
	if err != nil {
		return nil, err
	}

	in := s.chat.ChatStream(ctx, text)
	out := make(chan handlers.StreamChunk)

	go func() {
		defer close(out)
		defer release()

		for chunk := range in {
			if chunk.Done {
				s.appendTurn(ctx, Turn{
					Role:        RoleAssistant,
					Content:     chunk.Content,
					Articles:    chunk.Articles,
					Kind:        chunk.Kind,
					Suggestions: chunk.Suggestions,
				})
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (s *Session) begin(ctx context.Context, text string) (func(), error) {
	if text == "" {
		return nil, ErrEmptyMessage
	}

	if s.conn != nil && !s.conn.Connected() {
		metrics.RecordRejected("offline")
		return nil, ErrDisconnected
	}

	ok, err := s.gate.Acquire(ctx, s.id)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire busy flag: %w", err)
	}
	if !ok {
		metrics.RecordRejected("busy")
		return nil, ErrBusy
	}

	s.inflight.Add(1)
	s.appendTurn(ctx, Turn{Role: RoleUser, Content: text})

	return func() {
		s.touch()
		s.inflight.Add(-1)
		if err := s.gate.Release(context.WithoutCancel(ctx), s.id); err != nil {
			s.logger.Warn("failed to release busy flag", "error", err)
		}
	}, nil
}

// appendTurn assigns the id and timestamp and records the turn in both the
// turn list and the conversation buffer.
func (s *Session) appendTurn(ctx context.Context, turn Turn) Turn {
	turn.ID = uuid.NewString()
	turn.CreatedAt = time.Now()
	s.lastActive.Store(turn.CreatedAt.UnixNano())

	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = append(s.turns, turn)

	var err error
	switch turn.Role {
	case RoleUser:
		err = s.buffer.ChatHistory.AddUserMessage(ctx, turn.Content)
	case RoleAssistant:
		err = s.buffer.ChatHistory.AddAIMessage(ctx, turn.Content)
	default:
		err = s.buffer.ChatHistory.AddMessage(ctx, llms.SystemChatMessage{Content: turn.Content})
	}
	if err != nil {
		s.logger.Warn("failed to add turn to conversation buffer", "role", turn.Role, "error", err)
	}

	s.logger.Debug("appended turn", "role", turn.Role, "turns", len(s.turns))
	return turn
}

func (s *Session) touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

// idleSince reports when the session was last used. A session with a message in
// flight is never idle.
func (s *Session) idleSince() (time.Time, bool) {
	if s.inflight.Load() > 0 {
		return time.Time{}, false
	}
	return time.Unix(0, s.lastActive.Load()), true
}

// Turns returns a copy of the conversation so far.
func (s *Session) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn(nil), s.turns...)
}

// Transcript returns conversation history as a formatted string
func (s *Session) Transcript(ctx context.Context) (string, error) {
	s.mu.Lock()
	messages, err := s.buffer.ChatHistory.Messages(ctx)
	s.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("failed to get messages: %w", err)
	}

	if len(messages) == 0 {
		return "No previous conversation.", nil
	}

	var b strings.Builder
	for _, msg := range messages {
		switch m := msg.(type) {
		case llms.HumanChatMessage:
			fmt.Fprintf(&b, "User: %s\n", m.Content)
		case llms.AIChatMessage:
			fmt.Fprintf(&b, "Assistant: %s\n", m.Content)
		case llms.SystemChatMessage:
			fmt.Fprintf(&b, "System: %s\n", m.Content)
		}
	}

	return b.String(), nil
}
