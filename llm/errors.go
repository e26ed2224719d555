package llm

import (
	"context"
	"errors"
	"net"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ErrorKind classifies a failed generation into one of seven stable kinds.
type ErrorKind string

const (
	ErrTimeout        ErrorKind = "timeout"
	ErrAuthFailure    ErrorKind = "auth_failure"
	ErrRateLimit      ErrorKind = "rate_limit"
	ErrServerError    ErrorKind = "server_error"
	ErrNetworkError   ErrorKind = "network_error"
	ErrContextTooLong ErrorKind = "context_too_long"
	ErrUnknown        ErrorKind = "unknown"
)

// ErrorInfo is the classified form of a transport error: a stable triple
// the rest of the system manipulates instead of raw errors. It is surfaced
// per node, never globally.
type ErrorInfo struct {
	Kind        ErrorKind `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description"`

	// CanRetry is false for failures that need user action first
	// (fixing credentials, shrinking the context).
	CanRetry bool `json:"can_retry"`
}

func (e *ErrorInfo) Error() string {
	return e.Title + ": " + e.Description
}

// Classify maps a raw transport error onto the taxonomy. It is meant to be
// called exactly once, at the boundary where the raw error is caught.
// context.Canceled is user-initiated cancellation, not a failure, and
// yields nil.
func Classify(err error) *ErrorInfo {
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}

	detail := err.Error()
	lower := strings.ToLower(detail)

	// Provider errors carry an HTTP status; prefer it over text matching.
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403:
			return authFailure(detail)
		case apiErr.HTTPStatusCode == 429:
			return rateLimit(detail)
		case apiErr.HTTPStatusCode >= 500:
			return serverError(detail)
		}
		if strings.Contains(lower, "context length") || strings.Contains(lower, "maximum context") {
			return contextTooLong(detail)
		}
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout(),
		strings.Contains(lower, "timeout"),
		strings.Contains(lower, "timed out"):
		return &ErrorInfo{
			Kind:        ErrTimeout,
			Title:       "Request timed out",
			Description: detail,
			CanRetry:    true,
		}

	case strings.Contains(lower, "unauthorized"),
		strings.Contains(lower, "invalid api key"),
		strings.Contains(lower, "incorrect api key"),
		strings.Contains(lower, "authentication"),
		strings.Contains(lower, "401"), strings.Contains(lower, "403"):
		return authFailure(detail)

	case strings.Contains(lower, "rate limit"),
		strings.Contains(lower, "too many requests"),
		strings.Contains(lower, "429"):
		return rateLimit(detail)

	case strings.Contains(lower, "context length"),
		strings.Contains(lower, "maximum context"),
		strings.Contains(lower, "too many tokens"),
		strings.Contains(lower, "prompt is too long"):
		return contextTooLong(detail)

	case strings.Contains(lower, "internal server error"),
		strings.Contains(lower, "service unavailable"),
		strings.Contains(lower, "overloaded"),
		strings.Contains(lower, "bad gateway"),
		strings.Contains(lower, "500"), strings.Contains(lower, "502"),
		strings.Contains(lower, "503"), strings.Contains(lower, "529"):
		return serverError(detail)

	case errors.As(err, &netErr),
		strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "connection reset"),
		strings.Contains(lower, "no such host"),
		strings.Contains(lower, "network"),
		strings.Contains(lower, "eof"):
		return &ErrorInfo{
			Kind:        ErrNetworkError,
			Title:       "Network error",
			Description: detail,
			CanRetry:    true,
		}
	}

	return &ErrorInfo{
		Kind:        ErrUnknown,
		Title:       "Generation failed",
		Description: detail,
		CanRetry:    true,
	}
}

func authFailure(detail string) *ErrorInfo {
	return &ErrorInfo{
		Kind:        ErrAuthFailure,
		Title:       "Authentication failed",
		Description: detail,
		CanRetry:    false,
	}
}

func rateLimit(detail string) *ErrorInfo {
	return &ErrorInfo{
		Kind:        ErrRateLimit,
		Title:       "Rate limited",
		Description: detail,
		CanRetry:    true,
	}
}

func serverError(detail string) *ErrorInfo {
	return &ErrorInfo{
		Kind:        ErrServerError,
		Title:       "Provider error",
		Description: detail,
		CanRetry:    true,
	}
}

func contextTooLong(detail string) *ErrorInfo {
	return &ErrorInfo{
		Kind:        ErrContextTooLong,
		Title:       "Context too long",
		Description: detail,
		CanRetry:    false,
	}
}
