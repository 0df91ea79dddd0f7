package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNetwork wraps transport failures where no response was received.
	ErrNetwork = errors.New("network error")
	// ErrTimeout wraps requests that exceeded the client timeout.
	ErrTimeout = errors.New("request timed out")
)

// Error is a non-2xx response from the backend.
type Error struct {
	Method  string
	Path    string
	Status  int
	Message string
	Body    []byte
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
}

// StatusOf returns the HTTP status carried by err, or 0 when err is not an
// API response error.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// ServerMessage returns the message the server put in the error body.
func ServerMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

// UserMessage turns err into text suitable for an inline error banner.
// Server supplied messages win; transport failures get a generic line;
// anything else yields fallback.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if msg := ServerMessage(err); msg != "" {
		return msg
	}
	switch {
	case errors.Is(err, ErrTimeout):
		return "The server took too long to respond"
	case errors.Is(err, ErrNetwork):
		return "Unable to reach the server"
	}
	return fallback
}

// errorMessage extracts a human message from an error body. The backend
// answers either with a bare string (plain text or a JSON string) or with an
// object carrying message or error.
func errorMessage(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}
	if !json.Valid(trimmed) {
		if trimmed[0] == '<' {
			return ""
		}
		return string(trimmed)
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		for _, key := range []string{"message", "error"} {
			if s, ok := t[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}
