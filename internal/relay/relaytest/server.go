// Package relaytest runs an in-memory relay backend for tests.
package relaytest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

const stampLayout = "2006-01-02T15:04:05.000000"

type message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	Model   string    `json:"-"`
	At      time.Time `json:"-"`
}

type conversation struct {
	ID       string
	Created  time.Time
	Messages []message
}

// Server is a fake relay speaking the same JSON contract as the real one.
// Answers are deterministic: "<model>: <prompt>".
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	conversations map[string]*conversation
	calls         map[string]int

	// Failure injection. A non-empty string makes the endpoint answer with
	// {"error": ...}; Hang blocks handlers until the channel is closed.
	ListError    string
	AskError     string
	CompareError string
	DeleteError  string
	Hang         chan struct{}

	Now func() time.Time
}

// NewServer starts a fake relay. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		conversations: map[string]*conversation{},
		calls:         map[string]int{},
		Now:           time.Now,
	}
	r := mux.NewRouter()
	r.HandleFunc("/conversations", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{id}", s.handleDelete).Methods(http.MethodDelete)
	r.HandleFunc("/ask", s.handleAsk).Methods(http.MethodPost)
	r.HandleFunc("/compare", s.handleCompare).Methods(http.MethodPost)
	s.Server = httptest.NewServer(r)
	return s
}

// Seed stores a conversation with the given messages, alternating user and
// assistant roles, the last one at lastAt.
func (s *Server) Seed(id string, created time.Time, lastAt time.Time, contents ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &conversation{ID: id, Created: created}
	for i, content := range contents {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		at := lastAt.Add(-time.Duration(len(contents)-1-i) * time.Second)
		c.Messages = append(c.Messages, message{Role: role, Content: content, At: at})
	}
	s.conversations[id] = c
}

// Calls returns how many requests reached the named endpoint
// ("list", "ask", "history", "compare", "delete").
func (s *Server) Calls(endpoint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[endpoint]
}

// Has reports whether the conversation exists.
func (s *Server) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.conversations[id]
	return ok
}

func (s *Server) hit(endpoint string) {
	s.mu.Lock()
	s.calls[endpoint]++
	hang := s.Hang
	s.mu.Unlock()
	if hang != nil {
		<-hang
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.hit("list")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListError != "" {
		writeJSON(w, http.StatusOK, map[string]string{"error": s.ListError})
		return
	}

	type row struct {
		ConversationID string  `json:"conversation_id"`
		CreatedAt      string  `json:"created_at"`
		MessageCount   int     `json:"message_count"`
		LastMessageAt  *string `json:"last_message_at"`
	}
	rows := make([]row, 0, len(s.conversations))
	for _, c := range s.conversations {
		rw := row{
			ConversationID: c.ID,
			CreatedAt:      c.Created.UTC().Format("2006-01-02 15:04:05"),
			MessageCount:   len(c.Messages),
		}
		if n := len(c.Messages); n > 0 {
			last := c.Messages[n-1].At.UTC().Format(stampLayout)
			rw.LastMessageAt = &last
		}
		rows = append(rows, rw)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ConversationID < rows[j].ConversationID })
	writeJSON(w, http.StatusOK, map[string]any{"conversations": rows})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.hit("delete")
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DeleteError != "" {
		writeJSON(w, http.StatusOK, map[string]string{"error": s.DeleteError})
		return
	}
	if _, ok := s.conversations[id]; !ok {
		writeJSON(w, http.StatusOK, map[string]string{"error": "Conversation not found"})
		return
	}
	delete(s.conversations, id)
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Conversation %s deleted", id)})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt         string `json:"prompt"`
		Model          string `json:"model"`
		ConversationID string `json:"conversation_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}

	if strings.TrimSpace(req.Prompt) == "" {
		s.hit("history")
		s.mu.Lock()
		defer s.mu.Unlock()
		history := []message{}
		if c, ok := s.conversations[req.ConversationID]; ok {
			history = append(history, c.Messages...)
		}
		writeJSON(w, http.StatusOK, map[string]any{"model": req.Model, "response": "", "history": history})
		return
	}

	s.hit("ask")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.AskError != "" {
		writeJSON(w, http.StatusOK, map[string]string{"error": s.AskError, "model": req.Model})
		return
	}
	answer := req.Model + ": " + req.Prompt
	s.record(req.ConversationID, message{Role: "user", Content: req.Prompt})
	s.record(req.ConversationID, message{Role: "assistant", Content: answer, Model: req.Model})
	writeJSON(w, http.StatusOK, map[string]any{"model": req.Model, "response": answer})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	s.hit("compare")
	var req struct {
		Message        string   `json:"message"`
		Models         []string `json:"models"`
		ConversationID string   `json:"conversation_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Message is required"})
		return
	}
	if len(req.Models) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "At least one model must be specified"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CompareError != "" {
		writeJSON(w, http.StatusOK, map[string]string{"error": s.CompareError})
		return
	}
	s.record(req.ConversationID, message{Role: "user", Content: req.Message})
	responses := make([]map[string]string, 0, len(req.Models))
	for _, m := range req.Models {
		answer := m + ": " + req.Message
		s.record(req.ConversationID, message{Role: "assistant", Content: answer, Model: m})
		responses = append(responses, map[string]string{"model": m, "response": answer})
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversation_id": req.ConversationID, "responses": responses})
}

// record appends msg; callers hold s.mu.
func (s *Server) record(id string, msg message) {
	c, ok := s.conversations[id]
	if !ok {
		c = &conversation{ID: id, Created: s.Now()}
		s.conversations[id] = c
	}
	msg.At = s.Now()
	c.Messages = append(c.Messages, msg)
}
