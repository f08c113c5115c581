// Package store caches the relay's conversation list for the UI.
package store

import (
	"context"
	"slices"
	"sync"

	"relaychat/internal/models"
)

// Lister fetches the full conversation list.
type Lister interface {
	ListConversations(ctx context.Context) ([]models.ConversationSummary, error)
}

// Deleter removes one conversation on the backend.
type Deleter interface {
	DeleteConversation(ctx context.Context, id string) error
}

// Store holds the last known-good conversation list and the active id.
// Every ReplaceAll supersedes the previous list; nothing is merged.
type Store struct {
	mu       sync.RWMutex
	list     []models.ConversationSummary
	activeID string
	pending  map[string]bool
	loaded   bool
}

func New() *Store {
	return &Store{pending: map[string]bool{}}
}

// ReplaceAll swaps in list wholesale.
func (s *Store) ReplaceAll(list []models.ConversationSummary) {
	cp := slices.Clone(list)
	s.mu.Lock()
	s.list = cp
	s.loaded = true
	s.mu.Unlock()
}

// Get returns a copy of the current list.
func (s *Store) Get() []models.ConversationSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.list)
}

// Loaded reports whether any list fetch has succeeded yet.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

func (s *Store) SetActive(id string) {
	s.mu.Lock()
	s.activeID = id
	s.mu.Unlock()
}

// Pending reports whether a delete of id is in flight.
func (s *Store) Pending(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending[id]
}

// Refresh fetches the list and replaces the cache. On failure the previous
// list stays in place and the error is returned.
func (s *Store) Refresh(ctx context.Context, l Lister) error {
	list, err := l.ListConversations(ctx)
	if err != nil {
		return err
	}
	s.ReplaceAll(list)
	return nil
}

// MarkPending flags id as being deleted so the renderer can dim it.
func (s *Store) MarkPending(id string) {
	s.mu.Lock()
	s.pending[id] = true
	s.mu.Unlock()
}

// Delete marks id pending and asks the backend to delete it. On success the
// entry is removed and wasActive reports whether it was the active
// conversation; the caller is expected to start a new one. On failure the
// entry returns to normal and the error is returned. There is no retry.
func (s *Store) Delete(ctx context.Context, d Deleter, id string) (wasActive bool, err error) {
	s.MarkPending(id)

	err = d.DeleteConversation(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
	if err != nil {
		return false, err
	}
	s.list = slices.DeleteFunc(s.list, func(c models.ConversationSummary) bool { return c.ID == id })
	return s.activeID == id, nil
}
