package ui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"relaychat/internal/models"
	"relaychat/internal/styles"
)

func (m *Model) UpdateModelSelectorContent() {
	var items []string
	var lastProvider string
	compare := m.Mode == models.ModeComparison
	for i, mdl := range AvailableModels {
		if mdl.Provider != lastProvider {
			if lastProvider != "" {
				items = append(items, "")
			}
			header := styles.ModalHeaderStyle.
				Foreground(styles.GetProviderColor(mdl.Provider)).
				Render(mdl.Provider)
			items = append(items, header)
			lastProvider = mdl.Provider
		}

		isSelected := i == m.SelectedModelIndex
		var isCurrent bool
		displayName := mdl.Name
		if compare {
			isCurrent = slices.Contains(m.CompareModels, mdl.ID)
			box := "[ ] "
			if isCurrent {
				box = "[x] "
			}
			displayName = box + displayName
		} else {
			isCurrent = m.CurrentModel.ID == mdl.ID
			if isCurrent {
				displayName = "● " + displayName
			} else {
				displayName = "  " + displayName
			}
		}

		var styledItem string
		if isSelected {
			styledItem = styles.ModalSelectedStyle.
				Width(styles.ContentWidth).
				Render(displayName)
		} else {
			style := styles.ModalItemStyle.Width(styles.ContentWidth)
			if isCurrent {
				style = style.Foreground(lipgloss.Color("#90CAF9"))
			} else {
				style = style.Foreground(lipgloss.AdaptiveColor{Light: "#1a1a2e", Dark: "#FFFFFF"})
			}
			styledItem = style.Render(displayName)
		}

		items = append(items, styledItem)
	}

	m.ModelViewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, items...))
}

func (m *Model) RenderModelSelector() string {
	titleText := "Select Model"
	hintText := "↑/↓: navigate • Enter: select • Esc: close"
	if m.Mode == models.ModeComparison {
		titleText = fmt.Sprintf("Compare Models (%d selected)", len(m.CompareModels))
		hintText = "↑/↓: navigate • Space: toggle • Enter/Esc: close"
	}
	title := styles.ModalTitleStyle.Render(titleText)
	content := lipgloss.JoinVertical(lipgloss.Left, title, m.ModelViewport.View())

	hint := lipgloss.NewStyle().
		Foreground(styles.HintColor).
		Width(styles.ContentWidth).
		PaddingTop(1).
		Render(hintText)

	return lipgloss.JoinVertical(lipgloss.Left, content, hint)
}

func (m *Model) RenderHistorySelector() string {
	all := m.App.Store().Get()
	visible := m.visibleConversations()
	criteria := m.App.Criteria()

	totalPages := m.totalPages()
	titleText := fmt.Sprintf("Conversations (%d) - Page %d/%d", len(visible), m.HistoryPage+1, totalPages)
	if len(visible) != len(all) {
		titleText = fmt.Sprintf("Conversations (%d of %d) - Page %d/%d", len(visible), len(all), m.HistoryPage+1, totalPages)
	}
	if m.HistoryLoading {
		titleText += " ⟳"
	}
	title := styles.ModalTitleStyle.Render(titleText)

	search := styles.SearchBoxStyle.Width(styles.ContentWidth - 2).Render(m.HistorySearch.View())
	chips := lipgloss.JoinHorizontal(lipgloss.Left,
		styles.FilterChipStyle.Render("date: "+string(criteria.DateBucket)),
		styles.FilterChipStyle.Render("sort: "+strings.ReplaceAll(string(criteria.SortKey), "_", " ")),
	)

	var lines []string
	if m.HistoryErr != nil {
		lines = append(lines, lipgloss.NewStyle().Width(styles.ContentWidth).Render(
			styles.ErrorStyle.Render(fmt.Sprintf("Could not refresh: %v", m.HistoryErr))))
	}

	hintStyle := lipgloss.NewStyle().Foreground(styles.HintColor)
	switch {
	case len(all) == 0 && m.HistoryLoading:
		lines = append(lines, styles.ModalItemStyle.Render(hintStyle.Render("Loading...")))
	case len(all) == 0:
		lines = append(lines, styles.ModalItemStyle.Render(hintStyle.Render("No conversations yet")))
	case len(visible) == 0:
		lines = append(lines,
			styles.ModalItemStyle.Render(hintStyle.Render("No conversations match your filters")),
			styles.ModalItemStyle.Render(hintStyle.Render("Press c to clear filters")),
		)
	default:
		activeID := m.App.Store().ActiveID()
		for i, conv := range m.pageItems() {
			lines = append(lines, m.renderConversationRow(conv, i == m.HistorySelectedIdx, conv.ID == activeID, criteria.SearchText))
		}
	}

	if m.ConfirmDeleteID != "" {
		lines = append(lines, "", styles.ModalItemStyle.Render(
			styles.ErrorStyle.Render(fmt.Sprintf("Delete %s? (y/n)", m.ConfirmDeleteID))))
	}

	body := lipgloss.JoinVertical(lipgloss.Left, lines...)
	content := lipgloss.JoinVertical(lipgloss.Left, title, search, chips, "", body)
	hint := hintStyle.
		Width(styles.ContentWidth).
		PaddingTop(1).
		Render("↑/↓ navigate • ←/→ page • Enter open • / search • t date • s sort • c clear • d delete • r refresh • Esc close")

	return lipgloss.JoinVertical(lipgloss.Left, content, hint)
}

func (m *Model) renderConversationRow(conv models.ConversationSummary, selected, active bool, search string) string {
	cursor := "  "
	if selected {
		cursor = "> "
	}
	marker := "  "
	if active {
		marker = "● "
	}

	pending := m.App.Store().Pending(conv.ID)
	base := lipgloss.NewStyle()
	if pending {
		base = styles.PendingStyle
	}

	meta := fmt.Sprintf("%d msgs · %s", conv.MessageCount, RelativeTime(conv.Activity()))
	if pending {
		meta = "deleting..."
	}
	id := RenderHighlighted(conv.ID, search, base, styles.HighlightStyle())

	row := fmt.Sprintf("%s%s%s %s", cursor, marker, id, lipgloss.NewStyle().Foreground(styles.HintColor).Render(meta))
	if selected {
		return styles.ModalSelectedStyle.Render(row)
	}
	return styles.ModalItemStyle.Render(row)
}

func (m *Model) RenderShortcutsModal() string {
	title := styles.ModalTitleStyle.Render("Keyboard Shortcuts")

	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Ctrl+C", "Quit"},
		{"Ctrl+K", "New Conversation"},
		{"Ctrl+T", "Toggle Compare Mode"},
		{"Ctrl+B", "Select Model(s)"},
		{"Ctrl+H", "Conversation List"},
		{"Ctrl+F", "Search Conversations"},
		{"Esc", "Clear Input / Filters"},
		{"Ctrl+J", "New Line"},
		{"Ctrl+S", "Shortcuts (this menu)"},
	}

	var items []string
	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFCC80")).
		Bold(true).
		Width(12)

	descStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#E0E0E0"))

	for _, s := range shortcuts {
		line := fmt.Sprintf("%s %s", keyStyle.Render(s.key), descStyle.Render(s.desc))
		items = append(items, styles.ModalItemStyle.Render(line))
	}

	listContent := lipgloss.JoinVertical(lipgloss.Left, items...)
	content := lipgloss.JoinVertical(lipgloss.Left, title, listContent)

	hint := lipgloss.NewStyle().
		Foreground(styles.HintColor).
		Width(styles.ContentWidth).
		PaddingTop(1).
		Render("Esc/Enter: close")

	return lipgloss.JoinVertical(lipgloss.Left, content, hint)
}

func (m *Model) RenderBottomBar() string {
	compare := m.Mode == models.ModeComparison
	badge := "SINGLE"
	if compare {
		badge = "COMPARE"
	}
	mode := styles.ModeBadgeStyle(compare).Render(badge)

	model := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#B39DDB")).
		Render(TruncateRunes(m.modelLabel(), 40))

	conv := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Render(TruncateRunes(m.App.Session().ActiveID(), 30))

	var right []string
	if m.Notice != "" {
		right = append(right, styles.NoticeStyle.Render(TruncateRunes(m.Notice, 50)), "  ")
	}
	if f := FilterSummary(m.App.Criteria()); f != "" {
		right = append(right, lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")).Render("filter: "+TruncateRunes(f, 30)), "  ")
	}
	right = append(right, lipgloss.NewStyle().
		Foreground(lipgloss.Color("#555555")).
		Render("Help: ^S"))

	leftSide := lipgloss.JoinHorizontal(lipgloss.Center, mode, "  ", model, "  ", conv)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Center, right...)

	availableWidth := m.WindowWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide) - 2
	if availableWidth < 0 {
		availableWidth = 0
	}
	spacer := strings.Repeat(" ", availableWidth)

	bar := lipgloss.JoinHorizontal(lipgloss.Center, leftSide, spacer, rightSide)

	return lipgloss.NewStyle().
		Width(m.WindowWidth).
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#333333")).
		Padding(0, 1).
		Render(bar)
}

func GetWelcomeScreen(width, height int) string {
	art := `
 ╭──────────────────────────────────────────────╮
 │                                              │
 │   ┬─┐┌─┐┬  ┌─┐┬ ┬  ┌─┐┬ ┬┌─┐┌┬┐              │
 │   ├┬┘├┤ │  ├─┤└┬┘  │  ├─┤├─┤ │               │
 │   ┴└─└─┘┴─┘┴ ┴ ┴   └─┘┴ ┴┴ ┴ ┴               │
 │                                              │
 ╰──────────────────────────────────────────────╯
`
	subtitle := "Ask one model, or press Ctrl+T to compare several side by side."

	styledArt := styles.WelcomeArtStyle.Render(art)
	styledSubtitle := styles.WelcomeSubtitleStyle.Render(subtitle)

	content := lipgloss.JoinVertical(lipgloss.Center, styledArt, "", styledSubtitle)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

// renderTranscript turns the transcript into display blocks, one per
// message or per comparison group.
func (m *Model) renderTranscript(conv string, t []models.Message) []string {
	width := m.Viewport.Width
	if conv != m.renderConv || width != m.renderWidth || len(t) < m.renderCount {
		m.rendered = nil
		m.renderCount = 0
		m.renderConv = conv
		m.renderWidth = width
	}

	for i := m.renderCount; i < len(t); {
		msg := t[i]
		if msg.Group != 0 {
			j := i
			for j < len(t) && t[j].Group == msg.Group {
				j++
			}
			m.rendered = append(m.rendered, m.FormatComparison(t[i:j]))
			i = j
			continue
		}
		m.rendered = append(m.rendered, m.formatMessage(msg, i == 0))
		i++
	}
	m.renderCount = len(t)
	return m.rendered
}

func (m *Model) formatMessage(msg models.Message, first bool) string {
	switch {
	case msg.Role == models.RoleUser:
		return FormatUserMessage(msg.Content, m.Viewport.Width, first)
	case msg.IsSystem():
		return FormatSystemMessage(msg.ModelLabel, msg.Content)
	default:
		return FormatAIMessage(msg.ModelLabel, m.markdown(msg.Content, 0))
	}
}

// FormatComparison lays out one comparison group: columns side by side when
// each gets at least MinColumnWidth, stacked otherwise.
func (m *Model) FormatComparison(group []models.Message) string {
	width := m.Viewport.Width
	n := len(group)
	colWidth := 0
	if n > 0 {
		colWidth = (width - (n - 1)) / n
	}

	if n < 2 || colWidth < MinColumnWidth || width < CompactWidthThresh-MinColumnWidth {
		blocks := make([]string, 0, n)
		for _, msg := range group {
			blocks = append(blocks, FormatAIMessage(msg.ModelLabel, m.markdown(msg.Content, 0)))
		}
		return strings.Join(blocks, "\n\n")
	}

	cols := make([]string, 0, 2*n-1)
	for i, msg := range group {
		label := lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.GetProviderColor(providerOf(msg.ModelLabel))).
			Render(msg.ModelLabel)
		inner := colWidth - 4 // border + padding
		body := m.markdown(msg.Content, inner)
		col := styles.ColumnStyle.Width(colWidth - 2).Render(label + "\n\n" + body)
		if i > 0 {
			cols = append(cols, " ")
		}
		cols = append(cols, col)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func (m *Model) UpdateViewport() {
	session := m.App.Session()
	transcript := session.Transcript()
	sending := m.isSending()
	if len(transcript) == 0 && !sending {
		m.renderCount = 0
		m.rendered = nil
		m.Viewport.SetContent(GetWelcomeScreen(m.Viewport.Width, m.Viewport.Height))
		return
	}

	content := strings.Join(m.renderTranscript(session.ActiveID(), transcript), "\n\n")
	if sending && m.OpeningID != "" {
		content = fmt.Sprintf("%s Loading %s...", m.Spinner.View(), m.OpeningID)
	} else if sending {
		label := m.CurrentModel.ID
		if m.Mode == models.ModeComparison {
			label = "compare"
		}
		loadingMsg := strings.Join([]string{
			styles.AiLabelStyle.Render(strings.ToUpper(label)),
			fmt.Sprintf("%s Thinking...", m.Spinner.View()),
		}, "\n")
		if content != "" {
			content = content + "\n\n" + loadingMsg
		} else {
			content = loadingMsg
		}
	}
	m.Viewport.SetContent(content)
	m.Viewport.GotoBottom()
}

func (m *Model) View() string {
	inputWidth := m.WindowWidth - 4
	inputBox := styles.InputBoxStyle.Width(inputWidth).Render(m.TextInput.View())

	chatContent := lipgloss.JoinVertical(lipgloss.Center,
		styles.TitleStyle.Render("RELAYCHAT"),
		"",
		m.Viewport.View(),
		"",
		inputBox,
	)
	chatArea := lipgloss.PlaceHorizontal(m.WindowWidth, lipgloss.Center, chatContent)
	bottomBar := m.RenderBottomBar()

	content := lipgloss.JoinVertical(lipgloss.Left, chatArea, bottomBar)

	var modal string
	switch {
	case m.HistoryOpen:
		modal = m.RenderHistorySelector()
	case m.ModelSelectorOpen:
		modal = m.RenderModelSelector()
	case m.ShortcutsOpen:
		modal = m.RenderShortcutsModal()
	default:
		return content
	}

	modal = styles.ModalStyle.Width(ModalWidth).Render(modal)
	return lipgloss.Place(
		m.WindowWidth,
		m.WindowHeight,
		lipgloss.Center,
		lipgloss.Center,
		modal,
	)
}
