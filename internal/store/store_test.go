package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaychat/internal/models"
)

type fakeBackend struct {
	list      []models.ConversationSummary
	listErr   error
	deleteErr error
	deleted   []string
	// observed is the pending state seen while the delete call is in flight
	observed bool
	store    *Store
}

func (f *fakeBackend) ListConversations(context.Context) ([]models.ConversationSummary, error) {
	return f.list, f.listErr
}

func (f *fakeBackend) DeleteConversation(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	if f.store != nil {
		f.observed = f.store.Pending(id)
	}
	return f.deleteErr
}

func sample() []models.ConversationSummary {
	now := time.Now()
	return []models.ConversationSummary{
		{ID: "conv_1", CreatedAt: now, MessageCount: 2},
		{ID: "conv_2", CreatedAt: now, MessageCount: 4},
		{ID: "conv_3", CreatedAt: now, MessageCount: 1},
	}
}

func TestReplaceAllSupersedes(t *testing.T) {
	s := New()
	assert.False(t, s.Loaded())
	s.ReplaceAll(sample())
	s.ReplaceAll(sample()[:1])
	assert.True(t, s.Loaded())
	assert.Len(t, s.Get(), 1)
}

func TestGetReturnsCopy(t *testing.T) {
	s := New()
	s.ReplaceAll(sample())
	got := s.Get()
	got[0].ID = "mutated"
	assert.Equal(t, "conv_1", s.Get()[0].ID)
}

func TestRefresh_FailureKeepsStaleList(t *testing.T) {
	s := New()
	b := &fakeBackend{list: sample()}
	require.NoError(t, s.Refresh(context.Background(), b))

	b.listErr = errors.New("unreachable")
	err := s.Refresh(context.Background(), b)
	require.Error(t, err)
	assert.Equal(t, sample()[0].ID, s.Get()[0].ID)
	assert.Len(t, s.Get(), 3)
}

func TestDelete_Success(t *testing.T) {
	s := New()
	s.ReplaceAll(sample())
	s.SetActive("conv_9")
	b := &fakeBackend{store: s}

	wasActive, err := s.Delete(context.Background(), b, "conv_2")
	require.NoError(t, err)
	assert.False(t, wasActive)
	assert.True(t, b.observed, "entry should be pending while the request is in flight")
	assert.False(t, s.Pending("conv_2"))
	for _, c := range s.Get() {
		assert.NotEqual(t, "conv_2", c.ID)
	}
}

func TestDelete_ActiveConversation(t *testing.T) {
	s := New()
	s.ReplaceAll(sample())
	s.SetActive("conv_1")

	wasActive, err := s.Delete(context.Background(), &fakeBackend{}, "conv_1")
	require.NoError(t, err)
	assert.True(t, wasActive)
}

func TestDelete_FailureRestoresList(t *testing.T) {
	s := New()
	s.ReplaceAll(sample())
	before := s.Get()
	b := &fakeBackend{deleteErr: errors.New("Conversation not found"), store: s}

	wasActive, err := s.Delete(context.Background(), b, "conv_2")
	require.Error(t, err)
	assert.False(t, wasActive)
	assert.True(t, b.observed)
	assert.False(t, s.Pending("conv_2"))
	assert.Equal(t, before, s.Get())
	assert.Equal(t, []string{"conv_2"}, b.deleted, "no retry")
}
