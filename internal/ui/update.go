package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"relaychat/internal/db"
	"relaychat/internal/models"
	"relaychat/internal/relay"
	"relaychat/internal/session"
	"relaychat/internal/styles"
)

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case spinner.TickMsg:
		m.Spinner, spCmd = m.Spinner.Update(msg)
		if m.isSending() {
			m.UpdateViewport()
		}
		return m, spCmd

	case tea.KeyMsg:
		if m.HistoryOpen {
			return m, m.updateHistory(msg)
		}

		if m.ModelSelectorOpen {
			switch msg.String() {
			case "ctrl+c":
				return m, m.quit()
			case "esc", "ctrl+b":
				m.ModelSelectorOpen = false
				return m, nil
			case "up", "k":
				m.SelectedModelIndex--
				if m.SelectedModelIndex < 0 {
					m.SelectedModelIndex = len(AvailableModels) - 1
				}
				m.SyncModelViewportScroll()
				m.UpdateModelSelectorContent()
				return m, nil
			case "down", "j":
				m.SelectedModelIndex++
				if m.SelectedModelIndex >= len(AvailableModels) {
					m.SelectedModelIndex = 0
				}
				m.SyncModelViewportScroll()
				m.UpdateModelSelectorContent()
				return m, nil
			case " ", "space":
				if m.Mode == models.ModeComparison {
					m.toggleCompareModel(AvailableModels[m.SelectedModelIndex].ID)
					m.UpdateModelSelectorContent()
					m.savePrefs()
				}
				return m, nil
			case "enter":
				if m.Mode == models.ModeComparison {
					m.ModelSelectorOpen = false
					return m, nil
				}
				m.CurrentModel = AvailableModels[m.SelectedModelIndex]
				m.App.Session().SetModel(m.CurrentModel.ID)
				m.ModelSelectorOpen = false
				m.savePrefs()
				return m, nil
			}
			return m, nil
		}

		if m.ShortcutsOpen {
			switch msg.String() {
			case "ctrl+c":
				return m, m.quit()
			case "esc", "enter", "?", "ctrl+s":
				m.ShortcutsOpen = false
				return m, nil
			}
			return m, nil
		}

		if isNewlineShortcut(msg) {
			if !m.isSending() {
				m.TextInput.InsertString("\n")
				m.updateInputLayout()
			}
			return m, nil
		}

		switch msg.Type {
		case tea.KeyCtrlC:
			return m, m.quit()

		case tea.KeyEsc:
			m.TextInput.Reset()
			m.Notice = ""
			m.updateInputLayout()
			return m, nil

		case tea.KeyCtrlK, tea.KeyCtrlN:
			m.newChat()
			return m, nil

		case tea.KeyCtrlT:
			if m.Mode == models.ModeSingle {
				m.Mode = models.ModeComparison
			} else {
				m.Mode = models.ModeSingle
			}
			m.savePrefs()
			return m, nil

		case tea.KeyCtrlB:
			m.ModelSelectorOpen = true
			m.HistoryOpen = false
			m.ShortcutsOpen = false
			m.UpdateModelSelectorContent()
			m.SyncModelViewportScroll()
			return m, nil

		case tea.KeyCtrlS:
			m.ShortcutsOpen = true
			m.ModelSelectorOpen = false
			m.HistoryOpen = false
			return m, nil

		case tea.KeyCtrlH:
			return m, m.openHistory(false)

		case tea.KeyCtrlF:
			return m, m.openHistory(true)

		case tea.KeyEnter:
			return m, m.submit()
		}

	case SendDoneMsg:
		if msg.Seq == m.SendSeq {
			m.Loading = false
			m.TextInput.Focus()
		}
		if msg.Err != nil {
			m.Notice = noticeFor(msg.Err)
		}
		m.clampHistorySelection()
		m.UpdateViewport()
		return m, nil

	case ListMsg:
		m.HistoryLoading = false
		m.HistoryErr = msg.Err
		m.clampHistorySelection()
		return m, nil

	case HistoryLoadedMsg:
		m.clampHistorySelection()
		if msg.Seq != m.SendSeq || msg.ID != m.App.Session().ActiveID() {
			return m, nil
		}
		m.Loading = false
		m.OpeningID = ""
		m.TextInput.Focus()
		m.Notice = ""
		if msg.Err != nil {
			m.Notice = "Could not load conversation: " + relay.Describe(msg.Err)
		}
		m.UpdateViewport()
		return m, nil

	case DeletedMsg:
		if msg.Err != nil {
			m.Notice = "Failed to delete conversation: " + relay.Describe(msg.Err)
		} else {
			m.Notice = fmt.Sprintf("Deleted %s", msg.ID)
		}
		m.clampHistorySelection()
		m.UpdateViewport()
		return m, nil

	case tea.WindowSizeMsg:
		m.WindowWidth = msg.Width
		m.WindowHeight = msg.Height

		ModalWidth = msg.Width - 10
		if ModalWidth > 72 {
			ModalWidth = 72
		}
		if ModalWidth < 30 {
			ModalWidth = 30
		}
		styles.ContentWidth = ModalWidth - 6
		m.HistorySearch.Width = styles.ContentWidth - 8

		m.ModelViewport.Width = styles.ContentWidth
		m.ModelViewport.Height = msg.Height - 15
		if m.ModelViewport.Height > 20 {
			m.ModelViewport.Height = 20
		}
		if m.ModelViewport.Height < 5 {
			m.ModelViewport.Height = 5
		}

		chatWidth := msg.Width - 2
		m.Viewport.Width = chatWidth - 2

		m.updateInputLayout()
		m.Renderer, _ = glamour.NewTermRenderer(
			glamour.WithStylePath(glamourStyle()),
			glamour.WithWordWrap(chatWidth-6),
		)
		m.UpdateViewport()
		return m, nil
	}

	if !m.isSending() {
		m.TextInput, tiCmd = m.TextInput.Update(msg)
		m.updateInputLayout()

		// Filter out terminal background color queries and cursor reference codes that leak into the input
		val := m.TextInput.Value()
		if strings.Contains(val, "]11;rgb:") || strings.Contains(val, "1;rgb:") || strings.Contains(val, "[1;1R") {
			m.TextInput.Reset()
		}
	}

	m.Viewport, vpCmd = m.Viewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd)
}

// updateHistory handles keys while the conversation list is open.
func (m *Model) updateHistory(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}

	if m.ConfirmDeleteID != "" {
		switch msg.String() {
		case "y", "Y", "enter":
			id := m.ConfirmDeleteID
			m.ConfirmDeleteID = ""
			return m.deleteCmd(id)
		case "n", "N", "esc":
			m.ConfirmDeleteID = ""
		}
		return nil
	}

	if m.HistorySearch.Focused() {
		switch msg.String() {
		case "esc", "enter", "down", "tab":
			m.HistorySearch.Blur()
			m.savePrefs()
			return nil
		}
		var cmd tea.Cmd
		before := m.HistorySearch.Value()
		m.HistorySearch, cmd = m.HistorySearch.Update(msg)
		if m.HistorySearch.Value() != before {
			m.criteriaFromSearch()
		}
		return cmd
	}

	// Refresh and moving date cutoffs can shrink the list under the cursor.
	m.clampHistorySelection()
	items := m.pageItems()
	selected := func() (string, bool) {
		if m.HistorySelectedIdx < 0 || m.HistorySelectedIdx >= len(items) {
			return "", false
		}
		return items[m.HistorySelectedIdx].ID, true
	}
	switch msg.String() {
	case "esc":
		if !m.App.Criteria().IsDefault() {
			m.clearFilters()
			return nil
		}
		m.HistoryOpen = false
		m.HistoryErr = nil
		return nil
	case "ctrl+h":
		m.HistoryOpen = false
		m.HistoryErr = nil
		return nil
	case "up", "k":
		if len(items) == 0 {
			return nil
		}
		m.HistorySelectedIdx--
		if m.HistorySelectedIdx < 0 {
			m.HistorySelectedIdx = len(items) - 1
		}
		return nil
	case "down", "j":
		if len(items) == 0 {
			return nil
		}
		m.HistorySelectedIdx++
		if m.HistorySelectedIdx >= len(items) {
			m.HistorySelectedIdx = 0
		}
		return nil
	case "left", "h":
		if m.HistoryPage > 0 {
			m.HistoryPage--
			m.HistorySelectedIdx = 0
		}
		return nil
	case "right", "l":
		if m.HistoryPage < m.totalPages()-1 {
			m.HistoryPage++
			m.HistorySelectedIdx = 0
		}
		return nil
	case "/", "ctrl+f":
		m.HistorySearch.Focus()
		return textinput.Blink
	case "t":
		m.cycleDateBucket()
		return nil
	case "s":
		m.cycleSortKey()
		return nil
	case "c":
		m.clearFilters()
		return nil
	case "r":
		m.HistoryLoading = true
		return m.refreshCmd()
	case "d", "delete", "ctrl+d":
		id, ok := selected()
		if !ok {
			return nil
		}
		if !m.App.Store().Pending(id) {
			m.ConfirmDeleteID = id
		}
		return nil
	case "enter":
		id, ok := selected()
		if !ok {
			return nil
		}
		return m.openConversation(id)
	}
	return nil
}

func (m *Model) openHistory(focusSearch bool) tea.Cmd {
	m.ModelSelectorOpen = false
	m.ShortcutsOpen = false
	m.HistoryOpen = true
	m.HistoryPage = 0
	m.HistorySelectedIdx = 0
	m.HistoryErr = nil
	m.ConfirmDeleteID = ""
	m.HistoryLoading = true
	m.HistorySearch.SetValue(m.App.Criteria().SearchText)
	if focusSearch {
		m.HistorySearch.Focus()
		return tea.Batch(m.refreshCmd(), textinput.Blink)
	}
	m.HistorySearch.Blur()
	return m.refreshCmd()
}

// submit validates the input and starts a send. It returns nil when there is
// nothing to send.
func (m *Model) submit() tea.Cmd {
	if m.isSending() {
		return nil
	}
	input := m.TextInput.Value()
	if strings.TrimSpace(input) == "" {
		return nil
	}

	switch strings.TrimSpace(input) {
	case "/clear", "/reset", "/new":
		m.newChat()
		return nil
	}

	req := session.SendRequest{
		Prompt: input,
		Model:  m.CurrentModel.ID,
		Models: m.CompareModels,
		Mode:   m.Mode,
	}
	if m.Mode == models.ModeComparison && len(m.CompareModels) == 0 {
		m.Notice = "Please select at least one model (Ctrl+B, space to toggle)"
		return nil
	}

	m.TextInput.Reset()
	m.TextInput.Blur()
	m.updateInputLayout()
	m.Notice = ""
	m.Loading = true
	m.SendSeq++
	seq := m.SendSeq
	m.UpdateViewport()

	a := m.App
	return func() tea.Msg {
		return SendDoneMsg{Seq: seq, Err: a.Send(context.Background(), req)}
	}
}

func (m *Model) newChat() {
	m.App.NewChat()
	m.SendSeq++
	m.Loading = false
	m.OpeningID = ""
	m.Notice = ""
	m.HistoryOpen = false
	m.HistoryErr = nil
	m.Viewport.GotoTop()
	m.TextInput.Reset()
	m.TextInput.Focus()
	m.updateInputLayout()
	m.UpdateViewport()
}

func (m *Model) openConversation(id string) tea.Cmd {
	m.HistoryOpen = false
	m.HistoryErr = nil
	m.SendSeq++
	seq := m.SendSeq
	m.Loading = true
	m.OpeningID = id
	m.TextInput.Blur()
	m.Notice = "Loading " + id + "..."

	a := m.App
	return func() tea.Msg {
		return HistoryLoadedMsg{ID: id, Seq: seq, Err: a.Select(context.Background(), id)}
	}
}

func (m *Model) deleteCmd(id string) tea.Cmd {
	m.App.Store().MarkPending(id)
	a := m.App
	return func() tea.Msg {
		return DeletedMsg{ID: id, Err: a.Delete(context.Background(), id)}
	}
}

func (m *Model) quit() tea.Cmd {
	m.savePrefs()
	return tea.Quit
}

func (m *Model) isSending() bool {
	return m.Loading || m.App.Session().Sending()
}

func (m *Model) prefs() models.Prefs {
	return models.Prefs{
		Criteria:      m.App.Criteria(),
		Model:         m.CurrentModel.ID,
		CompareModels: m.CompareModels,
		Mode:          m.Mode,
	}
}

func (m *Model) savePrefs() {
	if m.DB == nil {
		return
	}
	if err := db.SavePrefs(m.DB, m.prefs(), time.Now().Unix()); err != nil {
		m.Log.Warn().Err(err).Msg("saving preferences failed")
	}
}

func noticeFor(err error) string {
	switch {
	case errors.Is(err, session.ErrBusy):
		return "Still waiting for the previous answer"
	case errors.Is(err, session.ErrNoModelSelected):
		return "Please select at least one model (Ctrl+B)"
	case errors.Is(err, models.ErrInvalidInput):
		return "Nothing to send"
	default:
		return relay.Describe(err)
	}
}

func glamourStyle() string {
	if !lipgloss.HasDarkBackground() {
		return "light"
	}
	return "dark"
}

func isNewlineShortcut(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "shift+enter", "shift+return", "ctrl+j", "ctrl+enter", "alt+enter":
		return true
	default:
		return false
	}
}

func (m *Model) updateInputLayout() {
	if m.WindowWidth == 0 || m.WindowHeight == 0 {
		return
	}

	inputWidth := m.WindowWidth - 6
	if inputWidth < 20 {
		inputWidth = 20
	}
	contentWidth := inputWidth - 2
	if contentWidth < 1 {
		contentWidth = 1
	}

	maxInputHeight := 6
	lineCount := WrappedLineCount(m.TextInput.Value(), contentWidth)
	if lineCount < 1 {
		lineCount = 1
	}
	if lineCount > maxInputHeight {
		lineCount = maxInputHeight
	}

	m.TextInput.MaxHeight = maxInputHeight
	m.TextInput.SetWidth(inputWidth)
	m.TextInput.SetHeight(lineCount)

	inputBoxHeight := m.TextInput.Height() + 2
	reserved := inputBoxHeight + 5
	viewportHeight := m.WindowHeight - reserved
	if viewportHeight < 5 {
		viewportHeight = 5
	}
	m.Viewport.Height = viewportHeight
}
