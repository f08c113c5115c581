package relay

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"

	"relaychat/internal/models"
)

// JSON shapes exchanged with the relay backend.

type conversationJSON struct {
	ConversationID string  `json:"conversation_id"`
	CreatedAt      string  `json:"created_at"`
	LastMessageAt  *string `json:"last_message_at"`
	MessageCount   int     `json:"message_count"`
}

type listResponse struct {
	Conversations []conversationJSON `json:"conversations"`
	Error         string             `json:"error,omitempty"`
}

type askRequest struct {
	Prompt         string `json:"prompt"`
	Model          string `json:"model"`
	ConversationID string `json:"conversation_id"`
}

type historyEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type askResponse struct {
	Response string         `json:"response"`
	Model    string         `json:"model"`
	History  []historyEntry `json:"history"`
	Error    string         `json:"error,omitempty"`
}

type compareRequest struct {
	Message        string   `json:"message"`
	Models         []string `json:"models"`
	ConversationID string   `json:"conversation_id"`
}

// ModelResponse is one model's answer from /compare.
type ModelResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
}

type compareResponse struct {
	Responses []ModelResponse `json:"responses"`
	Error     string          `json:"error,omitempty"`
}

type deleteResponse struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// errorEnvelope captures both {"error": "..."} and FastAPI's {"detail": ...}.
type errorEnvelope struct {
	Error  string          `json:"error"`
	Model  string          `json:"model"`
	Detail json.RawMessage `json:"detail"`
}

func (e errorEnvelope) message() string {
	if e.Error != "" {
		return e.Error
	}
	if len(e.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Detail, &s); err == nil {
		return s
	}
	return string(e.Detail)
}

const sqliteTimestamp = "2006-01-02 15:04:05"

// parseTimestamp accepts RFC3339, ISO-8601 local time (with or without
// fractional seconds) and the SQLite "YYYY-MM-DD HH:MM:SS" form. Stamps
// without a zone are read as UTC.
func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if dt, err := strfmt.ParseDateTime(s); err == nil {
		return time.Time(dt), true
	}
	if t, err := time.ParseInLocation(sqliteTimestamp, s, time.UTC); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func (c conversationJSON) toSummary() (models.ConversationSummary, bool) {
	created, ok := parseTimestamp(c.CreatedAt)
	s := models.ConversationSummary{
		ID:           c.ConversationID,
		CreatedAt:    created,
		MessageCount: c.MessageCount,
	}
	if c.LastMessageAt != nil {
		if last, ok := parseTimestamp(*c.LastMessageAt); ok {
			s.LastMessageAt = &last
		}
	}
	return s, ok
}

func (h historyEntry) toMessage() models.Message {
	return models.Message{Role: h.Role, Content: h.Content}
}
