package ui

import (
	"context"
	"slices"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"relaychat/internal/filter"
	"relaychat/internal/models"
	"relaychat/internal/styles"
)

func InitialModel(opts Options) Model {
	ti := textarea.New()
	ti.Placeholder = "Type a message..."
	ti.Prompt = "❯ "
	ti.ShowLineNumbers = false
	ti.CharLimit = 0
	ti.MaxHeight = 6
	ti.SetHeight(2)
	ti.SetWidth(80)
	ti.FocusedStyle.Prompt = lipgloss.NewStyle().Foreground(lipgloss.Color("#B39DDB")).Bold(true)
	ti.BlurredStyle.Prompt = lipgloss.NewStyle().Foreground(lipgloss.Color("#545454")).Bold(true)
	ti.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(lipgloss.Color("#545454"))
	ti.BlurredStyle.Placeholder = lipgloss.NewStyle().Foreground(lipgloss.Color("#545454"))
	ti.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ti.BlurredStyle.CursorLine = lipgloss.NewStyle()
	ti.Focus()

	search := textinput.New()
	search.Placeholder = "Search conversations..."
	search.Prompt = "🔍 "
	search.CharLimit = 200

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#B39DDB"))

	m := Model{
		App:           opts.App,
		DB:            opts.DB,
		Log:           opts.Log,
		TextInput:     ti,
		HistorySearch: search,
		Spinner:       sp,
		Viewport:      viewport.New(60, 15),
		ModelViewport: viewport.New(ModalWidth-4, 15),
		Mode:          opts.Prefs.Mode,
		CompareModels: slices.Clone(opts.Prefs.CompareModels),
	}

	m.CurrentModel, m.SelectedModelIndex = lookupModel(opts.Prefs.Model)
	if err := m.App.SetCriteria(opts.Prefs.Criteria); err != nil {
		m.Log.Warn().Err(err).Msg("ignoring stored filter criteria")
	}
	m.HistorySearch.SetValue(m.App.Criteria().SearchText)
	return m
}

// lookupModel resolves a model id against AvailableModels. Unknown ids are
// kept as-is so a relay-only model can still be used.
func lookupModel(id string) (models.AIModel, int) {
	if mdl, idx, ok := FindModelByID(id); ok {
		return mdl, idx
	}
	if id == "" {
		return AvailableModels[0], 0
	}
	return models.AIModel{ID: id, Name: id, Provider: "Relay"}, 0
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.Spinner.Tick,
		m.refreshCmd(),
	)
}

func (m *Model) refreshCmd() tea.Cmd {
	a := m.App
	return func() tea.Msg {
		return ListMsg{Err: a.Refresh(context.Background())}
	}
}

// criteriaFromSearch pushes the search box into the app's criteria.
func (m *Model) criteriaFromSearch() {
	c := m.App.Criteria()
	c.SearchText = m.HistorySearch.Value()
	if err := m.App.SetCriteria(c); err != nil {
		m.HistoryErr = err
		return
	}
	m.HistoryPage = 0
	m.HistorySelectedIdx = 0
}

func (m *Model) cycleDateBucket() {
	c := m.App.Criteria()
	c.DateBucket = filter.NextDateBucket(c.DateBucket)
	_ = m.App.SetCriteria(c)
	m.HistoryPage, m.HistorySelectedIdx = 0, 0
	m.savePrefs()
}

func (m *Model) cycleSortKey() {
	c := m.App.Criteria()
	c.SortKey = filter.NextSortKey(c.SortKey)
	_ = m.App.SetCriteria(c)
	m.HistoryPage, m.HistorySelectedIdx = 0, 0
	m.savePrefs()
}

func (m *Model) clearFilters() {
	m.App.ClearFilters()
	m.HistorySearch.SetValue("")
	m.HistoryPage, m.HistorySelectedIdx = 0, 0
	m.savePrefs()
}

func NewProgram(opts Options) *tea.Program {
	styles.InitTheme()
	m := InitialModel(opts)
	return tea.NewProgram(&m, tea.WithAltScreen())
}
