// Package app wires the conversation store, the chat session and the relay
// client together. The UI and the CLI commands only talk to an *App.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"relaychat/internal/filter"
	"relaychat/internal/models"
	"relaychat/internal/relay"
	"relaychat/internal/session"
	"relaychat/internal/store"
)

// Relay is everything the app needs from the backend client.
type Relay interface {
	store.Lister
	store.Deleter
	session.Backend
}

var _ Relay = (*relay.Client)(nil)

type App struct {
	relay   Relay
	store   *store.Store
	session *session.Session
	log     zerolog.Logger

	mu       sync.RWMutex
	criteria models.FilterCriteria
}

// New builds an App with a fresh conversation active.
func New(r Relay, defaultModel string, log zerolog.Logger) *App {
	a := &App{
		relay:    r,
		store:    store.New(),
		session:  session.New(r, defaultModel, log),
		log:      log,
		criteria: models.DefaultCriteria(),
	}
	a.store.SetActive(a.session.ActiveID())
	return a
}

func (a *App) Store() *store.Store       { return a.store }
func (a *App) Session() *session.Session { return a.session }

// Refresh reloads the conversation list. The previous list is kept on error.
func (a *App) Refresh(ctx context.Context) error {
	if err := a.store.Refresh(ctx, a.relay); err != nil {
		a.log.Warn().Err(err).Msg("conversation list refresh failed")
		return err
	}
	return nil
}

// Visible returns the list as the current criteria present it.
func (a *App) Visible(now time.Time) ([]models.ConversationSummary, error) {
	return filter.Apply(a.store.Get(), a.Criteria(), now)
}

func (a *App) Criteria() models.FilterCriteria {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.criteria
}

// SetCriteria replaces the filter criteria after validating them.
func (a *App) SetCriteria(c models.FilterCriteria) error {
	if err := filter.Validate(c); err != nil {
		return err
	}
	a.mu.Lock()
	a.criteria = c
	a.mu.Unlock()
	return nil
}

// ClearFilters restores the default criteria.
func (a *App) ClearFilters() {
	a.mu.Lock()
	a.criteria = models.DefaultCriteria()
	a.mu.Unlock()
}

// Select makes id the active conversation and loads its history.
func (a *App) Select(ctx context.Context, id string) error {
	a.store.SetActive(id)
	return a.session.LoadHistory(ctx, id)
}

// NewChat starts a fresh conversation and returns its id.
func (a *App) NewChat() string {
	id := a.session.StartNew()
	a.store.SetActive(id)
	return id
}

// Send forwards req to the session. Once the relay has answered, the list is
// refreshed so the conversation's count and activity are current.
func (a *App) Send(ctx context.Context, req session.SendRequest) error {
	if err := a.session.Send(ctx, req); err != nil {
		return err
	}
	_ = a.Refresh(ctx)
	return nil
}

// Delete removes a conversation. Deleting the active one starts a new chat.
func (a *App) Delete(ctx context.Context, id string) error {
	wasActive, err := a.store.Delete(ctx, a.relay, id)
	if err != nil {
		a.log.Error().Err(err).Str("conversation_id", id).Msg("delete failed")
		return err
	}
	a.log.Info().Str("conversation_id", id).Bool("was_active", wasActive).Msg("conversation deleted")
	if wasActive {
		a.NewChat()
	}
	return nil
}
