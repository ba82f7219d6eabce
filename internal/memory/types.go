package memory

import (
	"context"
	"errors"
	"time"

	"github.com/avvvet/newsbuddy/internal/handlers"
	"github.com/avvvet/newsbuddy/internal/intent"
	"github.com/avvvet/newsbuddy/internal/newsapi"
)

var (
	// ErrBusy is returned while another message of the same session is in flight.
	ErrBusy = errors.New("session is busy with another message")
	// ErrDisconnected is returned while the news service is marked unreachable.
	ErrDisconnected = errors.New("news service is disconnected")
	ErrEmptyMessage = errors.New("message is empty")
)

// Role of a chat turn
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Turn represents a single message in a conversation
type Turn struct {
	ID        string            `json:"id"`
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	CreatedAt time.Time         `json:"created_at"`
	Articles  []newsapi.Article `json:"articles,omitempty"`
	// Kind and Suggestions are only set on assistant replies.
	Kind        intent.Kind `json:"kind,omitempty"`
	Suggestions []string    `json:"suggested_questions,omitempty"`
}

// Chatter produces assistant replies. *handlers.ChatHandler implements it.
type Chatter interface {
	ChatWithNews(ctx context.Context, text string) *handlers.Reply
	ChatStream(ctx context.Context, text string) <-chan handlers.StreamChunk
}

// Connectivity reports whether the news service is currently reachable.
type Connectivity interface {
	Connected() bool
}

// Gate defines the busy flag of a session.
// This allows us to swap between an in-process flag and Redis.
type Gate interface {
	// Acquire reports false without blocking when the session is already busy.
	Acquire(ctx context.Context, sessionID string) (bool, error)

	// Release clears the flag set by a successful Acquire.
	Release(ctx context.Context, sessionID string) error
}

// pinger is implemented by gates backed by a remote store.
type pinger interface {
	Ping(ctx context.Context) error
}

// forgetter is implemented by gates that hold per-session state in process.
type forgetter interface {
	Forget(sessionID string)
}
