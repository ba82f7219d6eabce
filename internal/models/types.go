package models

import (
	"time"

	"github.com/avvvet/newsbuddy/internal/newsapi"
)

// NATS Request from backend
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// NATS Response to backend
type ChatResponse struct {
	SessionID          string            `json:"session_id"`
	Status             string            `json:"status"` // "OK", "BUSY", "OFFLINE", "ERROR"
	Kind               string            `json:"kind,omitempty"`
	Reply              string            `json:"reply"`
	Articles           []newsapi.Article `json:"articles,omitempty"`
	SuggestedQuestions []string          `json:"suggested_questions"`
	ErrorCode          *string           `json:"error_code,omitempty"`
	ErrorMessage       *string           `json:"error_message,omitempty"`
}

// StatusEvent is published whenever news service connectivity changes.
type StatusEvent struct {
	Connected bool      `json:"connected"`
	Timestamp time.Time `json:"timestamp"`
}

// Status constants
const (
	StatusOK      = "OK"
	StatusBusy    = "BUSY"
	StatusOffline = "OFFLINE"
	StatusError   = "ERROR"
)

// Error codes
const (
	ErrorParseError = "PARSE_ERROR"
	ErrorBusy       = "BUSY"
	ErrorOffline    = "OFFLINE"
	ErrorInternal   = "INTERNAL_ERROR"
)
