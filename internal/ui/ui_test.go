package ui

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaychat/internal/app"
	"relaychat/internal/db"
	"relaychat/internal/models"
	"relaychat/internal/relay"
	"relaychat/internal/relay/relaytest"
)

func newTestModel(t *testing.T) (*Model, *relaytest.Server) {
	t.Helper()
	srv := relaytest.NewServer()
	t.Cleanup(srv.Close)
	c, err := relay.New(srv.URL, relay.WithHTTPClient(srv.Client()), relay.WithListRetries(0))
	require.NoError(t, err)

	m := InitialModel(Options{
		App:   app.New(c, "gpt-4.1-mini", zerolog.Nop()),
		Log:   zerolog.Nop(),
		Prefs: models.Prefs{Criteria: models.DefaultCriteria(), Model: "gpt-4.1-mini"},
	})
	return &m, srv
}

func key(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "ctrl+t":
		return tea.KeyMsg{Type: tea.KeyCtrlT}
	case "ctrl+k":
		return tea.KeyMsg{Type: tea.KeyCtrlK}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// run executes cmd and feeds its message back into the model.
func run(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd)
	m.Update(cmd())
}

func TestInitialModel_UsesPrefs(t *testing.T) {
	srv := relaytest.NewServer()
	defer srv.Close()
	c, err := relay.New(srv.URL)
	require.NoError(t, err)

	m := InitialModel(Options{
		App: app.New(c, "gpt-4.1-mini", zerolog.Nop()),
		Log: zerolog.Nop(),
		Prefs: models.Prefs{
			Criteria:      models.FilterCriteria{SearchText: "abc", DateBucket: models.DateWeek, SortKey: models.SortOldest},
			Model:         "claude-3-5",
			CompareModels: []string{"gpt-4.1"},
			Mode:          models.ModeComparison,
		},
	})
	assert.Equal(t, "claude-3-5", m.CurrentModel.ID)
	assert.Equal(t, models.ModeComparison, m.Mode)
	assert.Equal(t, "abc", m.HistorySearch.Value())
	assert.Equal(t, models.DateWeek, m.App.Criteria().DateBucket)

	unknown, _ := lookupModel("my-relay-model")
	assert.Equal(t, "my-relay-model", unknown.ID)
}

func TestSubmit_Single(t *testing.T) {
	m, _ := newTestModel(t)
	m.TextInput.SetValue("hello")

	cmd := m.submit()
	assert.True(t, m.Loading)
	assert.Empty(t, m.TextInput.Value())
	run(t, m, cmd)

	assert.False(t, m.Loading)
	transcript := m.App.Session().Transcript()
	require.Len(t, transcript, 2)
	out := strings.Join(m.renderTranscript(m.App.Session().ActiveID(), transcript), "\n")
	assert.Contains(t, out, "gpt-4.1-mini: hello")
	assert.Contains(t, out, "GPT-4.1-MINI")
	assert.Len(t, m.App.Store().Get(), 1, "list refreshed after send")
}

func TestSubmit_IgnoredWhenEmptyOrSending(t *testing.T) {
	m, _ := newTestModel(t)
	m.TextInput.SetValue("   ")
	assert.Nil(t, m.submit())

	m.TextInput.SetValue("hi")
	m.Loading = true
	assert.Nil(t, m.submit())
	assert.Equal(t, "hi", m.TextInput.Value())
}

func TestSubmit_ComparisonNeedsModels(t *testing.T) {
	m, srv := newTestModel(t)
	m.Update(key("ctrl+t"))
	require.Equal(t, models.ModeComparison, m.Mode)

	m.TextInput.SetValue("hi")
	assert.Nil(t, m.submit())
	assert.Contains(t, m.Notice, "select at least one model")
	assert.Empty(t, m.App.Session().Transcript())
	assert.Zero(t, srv.Calls("compare"))
}

func TestSubmit_Comparison(t *testing.T) {
	m, _ := newTestModel(t)
	m.Mode = models.ModeComparison
	m.toggleCompareModel("gpt-4.1")
	m.toggleCompareModel("claude-3-5")
	m.TextInput.SetValue("capital?")
	run(t, m, m.submit())

	transcript := m.App.Session().Transcript()
	require.Len(t, transcript, 3)
	assert.Equal(t, transcript[1].Group, transcript[2].Group)
	assert.NotZero(t, transcript[1].Group)
}

func TestStaleSendDoesNotUnlockNewChat(t *testing.T) {
	m, _ := newTestModel(t)
	m.TextInput.SetValue("hello")
	cmd := m.submit()
	require.NotNil(t, cmd)

	m.Update(key("ctrl+k"))
	assert.False(t, m.Loading)

	m.Loading = true
	m.SendSeq++
	m.Update(cmd())
	assert.True(t, m.Loading, "completion of the abandoned send must not clear the new one")
}

func TestSlashNewStartsChat(t *testing.T) {
	m, _ := newTestModel(t)
	before := m.App.Session().ActiveID()
	m.TextInput.SetValue("/new")
	assert.Nil(t, m.submit())
	assert.NotEqual(t, before, m.App.Session().ActiveID())
}

func TestHistoryModal_SearchClearAndDelete(t *testing.T) {
	m, srv := newTestModel(t)
	now := time.Now().UTC()
	srv.Seed("conv_alpha", now.Add(-3*time.Hour), now.Add(-time.Hour), "a", "b")
	srv.Seed("conv_beta", now.Add(-4*time.Hour), now.Add(-2*time.Hour), "c")

	run(t, m, m.openHistory(false))
	require.True(t, m.HistoryOpen)
	assert.Len(t, m.pageItems(), 2)

	m.Update(key("/"))
	require.True(t, m.HistorySearch.Focused())
	m.Update(key("BETA"))
	assert.Equal(t, "BETA", m.App.Criteria().SearchText)
	require.Len(t, m.pageItems(), 1)
	assert.Equal(t, "conv_beta", m.pageItems()[0].ID)

	m.Update(key("esc"))
	assert.False(t, m.HistorySearch.Focused())
	m.Update(key("esc"))
	assert.True(t, m.App.Criteria().IsDefault())
	assert.True(t, m.HistoryOpen)
	require.Len(t, m.pageItems(), 2)

	m.Update(key("d"))
	assert.Equal(t, "conv_alpha", m.ConfirmDeleteID)
	m.Update(key("n"))
	assert.Empty(t, m.ConfirmDeleteID)

	m.Update(key("d"))
	_, cmd := m.Update(key("y"))
	assert.True(t, m.App.Store().Pending("conv_alpha"))
	run(t, m, cmd)

	assert.False(t, srv.Has("conv_alpha"))
	assert.Len(t, m.App.Store().Get(), 1)
	assert.Contains(t, m.Notice, "Deleted conv_alpha")

	m.Update(key("esc"))
	assert.False(t, m.HistoryOpen)
}

func TestHistoryModal_EmptyMessages(t *testing.T) {
	m, srv := newTestModel(t)
	run(t, m, m.openHistory(false))
	assert.Contains(t, m.RenderHistorySelector(), "No conversations yet")

	srv.Seed("conv_one", time.Now(), time.Now(), "x")
	run(t, m, m.refreshCmd())
	m.Update(key("/"))
	m.Update(key("zzz"))
	assert.Contains(t, m.RenderHistorySelector(), "No conversations match your filters")
}

func TestHistoryModal_OpenConversation(t *testing.T) {
	m, srv := newTestModel(t)
	srv.Seed("conv_old", time.Now(), time.Now(), "question", "answer")
	run(t, m, m.openHistory(false))

	_, cmd := m.Update(key("enter"))
	assert.False(t, m.HistoryOpen)
	assert.True(t, m.Loading, "input stays locked until the history arrives")
	m.UpdateViewport()
	assert.Contains(t, m.Viewport.View(), "Loading conv_old...")
	m.TextInput.SetValue("too early")
	assert.Nil(t, m.submit())
	run(t, m, cmd)

	assert.False(t, m.Loading)
	assert.Empty(t, m.OpeningID)
	assert.Equal(t, "conv_old", m.App.Session().ActiveID())
	assert.Len(t, m.App.Session().Transcript(), 2)
	assert.Empty(t, m.Notice)
}

func TestHistoryModal_StaleHistoryKeepsNewChatUnlocked(t *testing.T) {
	m, srv := newTestModel(t)
	srv.Seed("conv_old", time.Now(), time.Now(), "question", "answer")
	run(t, m, m.openHistory(false))

	srv.Hang = make(chan struct{})
	_, cmd := m.Update(key("enter"))
	require.NotNil(t, cmd)
	msgs := make(chan tea.Msg, 1)
	go func() { msgs <- cmd() }()
	require.Eventually(t, func() bool { return srv.Calls("history") == 1 }, time.Second, 5*time.Millisecond)

	m.Update(key("ctrl+k"))
	assert.False(t, m.Loading)
	fresh := m.App.Session().ActiveID()

	close(srv.Hang)
	m.Update(<-msgs)
	assert.False(t, m.Loading)
	assert.Equal(t, fresh, m.App.Session().ActiveID())
	assert.Empty(t, m.App.Session().Transcript())
}

func TestHistoryModal_ListShrinksUnderCursor(t *testing.T) {
	m, srv := newTestModel(t)
	now := time.Now()
	srv.Seed("conv_a", now, now.Add(-time.Minute), "x")
	srv.Seed("conv_b", now, now.Add(-2*time.Minute), "y")
	run(t, m, m.openHistory(false))
	require.Len(t, m.pageItems(), 2)

	m.Update(key("j"))
	require.Equal(t, 1, m.HistorySelectedIdx)

	// A refresh after a send drops conv_b.
	m.App.Store().ReplaceAll(m.App.Store().Get()[:1])
	m.Update(SendDoneMsg{Seq: m.SendSeq})
	assert.Equal(t, 0, m.HistorySelectedIdx)

	var cmd tea.Cmd
	assert.NotPanics(t, func() { _, cmd = m.Update(key("enter")) })
	require.NotNil(t, cmd)
	assert.Equal(t, "Loading conv_a...", m.Notice)
}

func TestHistoryModal_ShrinkWithoutMessage(t *testing.T) {
	m, srv := newTestModel(t)
	now := time.Now()
	srv.Seed("conv_a", now, now.Add(-time.Minute), "x")
	srv.Seed("conv_b", now, now.Add(-2*time.Minute), "y")
	run(t, m, m.openHistory(false))
	m.Update(key("j"))

	m.App.Store().ReplaceAll(nil)
	assert.NotPanics(t, func() { m.Update(key("d")) })
	assert.Empty(t, m.ConfirmDeleteID)
	assert.NotPanics(t, func() { m.Update(key("enter")) })
	assert.True(t, m.HistoryOpen)
}

func TestHistoryModal_CycleFilters(t *testing.T) {
	m, _ := newTestModel(t)
	m.HistoryOpen = true
	m.Update(key("t"))
	m.Update(key("s"))
	c := m.App.Criteria()
	assert.Equal(t, models.DateToday, c.DateBucket)
	assert.Equal(t, models.SortOldest, c.SortKey)
	assert.Equal(t, "today · oldest", FilterSummary(c))

	m.Update(key("c"))
	assert.True(t, m.App.Criteria().IsDefault())
}

func TestModeToggleSavesPrefs(t *testing.T) {
	m, _ := newTestModel(t)
	conn, err := db.OpenPrefsDB(filepath.Join(t.TempDir(), "prefs.db"))
	require.NoError(t, err)
	defer conn.Close()
	m.DB = conn

	m.Update(key("ctrl+t"))
	p, err := db.LoadPrefs(conn, models.Prefs{})
	require.NoError(t, err)
	assert.Equal(t, models.ModeComparison, p.Mode)
	assert.Equal(t, "gpt-4.1-mini", p.Model)
}

func TestFormatComparisonLayout(t *testing.T) {
	m, _ := newTestModel(t)
	group := []models.Message{
		{Role: models.RoleAssistant, Content: "Paris", ModelLabel: "gpt-4.1", Group: 1},
		{Role: models.RoleAssistant, Content: "Paris.", ModelLabel: "claude-3-5", Group: 1},
	}

	m.Viewport.Width = 140
	wide := m.FormatComparison(group)
	assert.Contains(t, wide, "╭")
	assert.Contains(t, wide, "gpt-4.1")
	assert.Contains(t, wide, "claude-3-5")

	m.Viewport.Width = 50
	narrow := m.FormatComparison(group)
	assert.NotContains(t, narrow, "╭")
	assert.Contains(t, narrow, "GPT-4.1")
	assert.Contains(t, narrow, "CLAUDE-3-5")
}

func TestRenderHighlighted(t *testing.T) {
	plain := lipgloss.NewStyle()
	out := RenderHighlighted("conv_abc_ABC", "abc", plain, plain)
	assert.Contains(t, out, "conv_")
	assert.Contains(t, out, "abc")
	assert.Contains(t, out, "ABC")
	assert.Equal(t, "conv_x", RenderHighlighted("conv_x", "", plain, plain))
}

func TestPageBounds(t *testing.T) {
	cases := []struct{ n, page, start, end int }{
		{0, 0, 0, 0},
		{5, 0, 0, 5},
		{25, 1, 10, 20},
		{25, 2, 20, 25},
		{25, 7, 25, 25},
	}
	for _, c := range cases {
		s, e := pageBounds(c.n, c.page, 10)
		assert.Equal(t, c.start, s, "%+v", c)
		assert.Equal(t, c.end, e, "%+v", c)
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "just now", relativeTimeAt(now.Add(-10*time.Second), now))
	assert.Equal(t, "5 mins ago", relativeTimeAt(now.Add(-5*time.Minute), now))
	assert.Equal(t, "1 hr ago", relativeTimeAt(now.Add(-time.Hour), now))
	assert.Equal(t, "3 days ago", relativeTimeAt(now.Add(-72*time.Hour), now))
	assert.Equal(t, "3 weeks ago", relativeTimeAt(now.Add(-21*24*time.Hour), now))
	assert.Equal(t, "unknown", relativeTimeAt(time.Time{}, now))
}

func TestTruncateAndWrap(t *testing.T) {
	assert.Equal(t, "abc", TruncateRunes("abc", 5))
	assert.Equal(t, "ab…", TruncateRunes("abcdef", 3))
	assert.Equal(t, "", TruncateRunes("abc", 0))
	assert.Equal(t, 1, WrappedLineCount("", 10))
	assert.Equal(t, 3, WrappedLineCount("aaaaaaaaaaaa\nb", 10))
}
