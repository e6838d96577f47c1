package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// StatusError reports a non-success HTTP status together with the raw
// response body, keeping failed exchanges diagnosable end to end.
type StatusError struct {
	StatusCode int
	Body       string
}

// Error formats the status line and body text.
func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, body)
}

// NewStatusError drains the response body into a StatusError. The body is
// consumed; callers must not read it again.
func NewStatusError(resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
}

const maxErrorBody = 64 * 1024

// ServerMessage extracts the human-readable message the backend places in
// error payloads, trying the "error" key first and "message" second. It
// returns an empty string when the body is not a recognizable JSON error.
func ServerMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Error != "" {
		return payload.Error
	}
	return payload.Message
}
