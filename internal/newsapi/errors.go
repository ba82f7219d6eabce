package newsapi

import (
	"errors"
	"fmt"
)

// ErrRemoteUnavailable matches every failed call, whatever its kind.
var ErrRemoteUnavailable = errors.New("news service unavailable")

var (
	ErrTimeout           = errors.New("news service call timed out")
	ErrTransport         = errors.New("news service transport failure")
	ErrRemote            = errors.New("news service returned an error status")
	ErrMalformedResponse = errors.New("news service returned a malformed response")
)

// ErrorKind labels a failed call for logs and metrics.
type ErrorKind string

const (
	KindTimeout   ErrorKind = "timeout"
	KindTransport ErrorKind = "transport"
	KindRemote    ErrorKind = "remote"
	KindMalformed ErrorKind = "malformed"
)

// CallError describes a failed call to the news service.
type CallError struct {
	Op         string
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *CallError) Error() string {
	if e.Kind == KindRemote {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match both the kind sentinel and ErrRemoteUnavailable.
func (e *CallError) Is(target error) bool {
	if target == ErrRemoteUnavailable {
		return true
	}
	return target == e.Kind.sentinel()
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindTimeout:
		return ErrTimeout
	case KindTransport:
		return ErrTransport
	case KindRemote:
		return ErrRemote
	case KindMalformed:
		return ErrMalformedResponse
	default:
		return nil
	}
}

// KindOf returns the kind of a failed call, or "" for errors not produced by this package.
func KindOf(err error) ErrorKind {
	var callErr *CallError
	if errors.As(err, &callErr) {
		return callErr.Kind
	}
	return ""
}

func newCallError(op string, kind ErrorKind, status int, err error) *CallError {
	return &CallError{Op: op, Kind: kind, StatusCode: status, Err: err}
}
