// Package session holds the active conversation transcript and drives
// sends against the relay.
package session

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"relaychat/internal/models"
	"relaychat/internal/relay"
)

var (
	// ErrNoModelSelected is returned when a send names no model to ask.
	ErrNoModelSelected = fmt.Errorf("%w: no model selected", models.ErrInvalidInput)
	// ErrEmptyPrompt is returned for a prompt that is blank after trimming.
	ErrEmptyPrompt = fmt.Errorf("%w: empty prompt", models.ErrInvalidInput)
	// ErrBusy is returned while a send for the active conversation is in flight.
	ErrBusy = errors.New("a request is already in flight")
)

// Backend is the subset of the relay client a session needs.
type Backend interface {
	Ask(ctx context.Context, prompt, model, conversationID string) (answer, label string, err error)
	History(ctx context.Context, conversationID, model string) ([]models.Message, error)
	Compare(ctx context.Context, message string, modelIDs []string, conversationID string) ([]relay.ModelResponse, error)
}

// SendRequest describes one user turn.
type SendRequest struct {
	Prompt string
	Model  string   // single mode
	Models []string // comparison mode
	Mode   models.Mode
}

// Session is safe for concurrent use. Each StartNew or LoadHistory opens a
// new generation; completions issued under an older generation are dropped.
type Session struct {
	backend Backend
	log     zerolog.Logger
	now     func() time.Time

	mu         sync.Mutex
	activeID   string
	transcript []models.Message
	gen        uint64
	sendingGen uint64 // 0 when idle
	lastGroup  int
	model      string
}

// New returns a session with a fresh conversation id. model is used for
// history fetches until a send selects another one.
func New(backend Backend, model string, log zerolog.Logger) *Session {
	s := &Session{backend: backend, log: log, now: time.Now, model: model}
	s.StartNew()
	return s
}

// StartNew clears the transcript and switches to a new conversation id.
func (s *Session) StartNew() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.activeID = NewConversationID(s.now())
	s.transcript = nil
	return s.activeID
}

// ActiveID returns the conversation new sends are appended to.
func (s *Session) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Transcript returns a copy of the active conversation's messages.
func (s *Session) Transcript() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Sending reports whether a send or history load for the active conversation
// is in flight.
func (s *Session) Sending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendingLocked()
}

func (s *Session) sendingLocked() bool {
	return s.sendingGen != 0 && s.sendingGen == s.gen
}

// SetModel changes the model used for history fetches.
func (s *Session) SetModel(model string) {
	s.mu.Lock()
	s.model = model
	s.mu.Unlock()
}

// Send appends the user turn and asks the relay. Relay failures are turned
// into system messages in the transcript and Send returns nil; only input
// validation and ErrBusy are reported as errors.
func (s *Session) Send(ctx context.Context, req SendRequest) error {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return ErrEmptyPrompt
	}
	var modelIDs []string
	switch req.Mode {
	case models.ModeComparison:
		for _, m := range req.Models {
			if m = strings.TrimSpace(m); m != "" {
				modelIDs = append(modelIDs, m)
			}
		}
		if len(modelIDs) == 0 {
			return ErrNoModelSelected
		}
	default:
		if strings.TrimSpace(req.Model) == "" {
			return ErrNoModelSelected
		}
	}

	s.mu.Lock()
	if s.sendingLocked() {
		s.mu.Unlock()
		return ErrBusy
	}
	gen, convID := s.gen, s.activeID
	s.sendingGen = gen
	if req.Mode == models.ModeSingle {
		s.model = req.Model
	}
	s.transcript = append(s.transcript, models.Message{Role: models.RoleUser, Content: prompt})
	s.mu.Unlock()

	var replies []models.Message
	if req.Mode == models.ModeComparison {
		replies = s.compare(ctx, prompt, modelIDs, convID)
	} else {
		replies = s.ask(ctx, prompt, req.Model, convID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendingGen == gen {
		s.sendingGen = 0
	}
	if gen != s.gen || convID != s.activeID {
		s.log.Debug().Str("conversation_id", convID).Msg("dropping stale response")
		return nil
	}
	if req.Mode == models.ModeComparison && len(replies) > 0 && !replies[0].IsSystem() {
		s.lastGroup++
		for i := range replies {
			replies[i].Group = s.lastGroup
		}
	}
	s.transcript = append(s.transcript, replies...)
	return nil
}

func (s *Session) ask(ctx context.Context, prompt, model, convID string) []models.Message {
	answer, label, err := s.backend.Ask(ctx, prompt, model, convID)
	if err != nil {
		s.log.Error().Err(err).Str("model", model).Str("conversation_id", convID).Msg("ask failed")
		label := models.SystemLabel
		var re *relay.Error
		if errors.As(err, &re) && re.Kind == relay.BackendError && re.Model != "" {
			label = re.Model
		}
		return []models.Message{{Role: models.RoleAssistant, Content: relay.Describe(err), ModelLabel: label, Failed: true}}
	}
	return []models.Message{{Role: models.RoleAssistant, Content: answer, ModelLabel: label}}
}

func (s *Session) compare(ctx context.Context, prompt string, modelIDs []string, convID string) []models.Message {
	responses, err := s.backend.Compare(ctx, prompt, modelIDs, convID)
	if err != nil {
		s.log.Error().Err(err).Strs("models", modelIDs).Str("conversation_id", convID).Msg("compare failed")
		return []models.Message{systemMessage(err)}
	}
	out := make([]models.Message, 0, len(responses))
	for _, r := range responses {
		out = append(out, models.Message{Role: models.RoleAssistant, Content: r.Response, ModelLabel: r.Model})
	}
	return out
}

// LoadHistory makes id the active conversation and replaces the transcript
// with its stored messages. The session counts as sending until the history
// arrives. On failure a system message is shown and the error returned.
func (s *Session) LoadHistory(ctx context.Context, id string) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.activeID = id
	s.transcript = nil
	s.sendingGen = gen
	model := s.model
	s.mu.Unlock()

	msgs, err := s.backend.History(ctx, id, model)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendingGen == gen {
		s.sendingGen = 0
	}
	if gen != s.gen {
		s.log.Debug().Str("conversation_id", id).Msg("dropping stale history")
		return nil
	}
	if err != nil {
		s.log.Error().Err(err).Str("conversation_id", id).Msg("history fetch failed")
		s.transcript = append(s.transcript, systemMessage(err))
		return err
	}
	s.transcript = msgs
	return nil
}

func systemMessage(err error) models.Message {
	return models.Message{Role: models.RoleAssistant, Content: relay.Describe(err), ModelLabel: models.SystemLabel, Failed: true}
}

// NewConversationID returns "conv_<unix millis>_<9 random base36 chars>".
func NewConversationID(now time.Time) string {
	u := uuid.New()
	r := strconv.FormatUint(binary.BigEndian.Uint64(u[8:]), 36)
	if len(r) < 9 {
		r = strings.Repeat("0", 9-len(r)) + r
	}
	return fmt.Sprintf("conv_%d_%s", now.UnixMilli(), r[len(r)-9:])
}
