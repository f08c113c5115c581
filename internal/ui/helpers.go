package ui

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"relaychat/internal/filter"
	"relaychat/internal/models"
	"relaychat/internal/styles"
)

// visibleConversations is the filtered list; a criteria error yields nothing.
func (m *Model) visibleConversations() []models.ConversationSummary {
	list, err := m.App.Visible(time.Now())
	if err != nil {
		return nil
	}
	return list
}

func (m *Model) totalPages() int {
	n := len(m.visibleConversations())
	pages := (n + HistoryPageSize - 1) / HistoryPageSize
	if pages < 1 {
		pages = 1
	}
	return pages
}

// pageItems returns the conversations shown on the current page.
func (m *Model) pageItems() []models.ConversationSummary {
	list := m.visibleConversations()
	start, end := pageBounds(len(list), m.HistoryPage, HistoryPageSize)
	return list[start:end]
}

func pageBounds(n, page, size int) (start, end int) {
	start = page * size
	if start > n {
		start = n
	}
	end = start + size
	if end > n {
		end = n
	}
	return start, end
}

// clampHistorySelection keeps page and cursor inside the list after it
// shrank (delete, refresh, filter).
func (m *Model) clampHistorySelection() {
	if last := m.totalPages() - 1; m.HistoryPage > last {
		m.HistoryPage = last
	}
	if n := len(m.pageItems()); m.HistorySelectedIdx >= n {
		m.HistorySelectedIdx = n - 1
	}
	if m.HistorySelectedIdx < 0 {
		m.HistorySelectedIdx = 0
	}
}

func (m *Model) toggleCompareModel(id string) {
	if i := slices.Index(m.CompareModels, id); i >= 0 {
		m.CompareModels = slices.Delete(m.CompareModels, i, i+1)
		return
	}
	m.CompareModels = append(m.CompareModels, id)
}

// modelLabel is what the bottom bar shows for the current mode.
func (m *Model) modelLabel() string {
	if m.Mode == models.ModeComparison {
		if len(m.CompareModels) == 0 {
			return "no models selected"
		}
		return strings.Join(m.CompareModels, " + ")
	}
	return m.CurrentModel.Name
}

// FilterSummary describes non-default criteria, or "" when none apply.
func FilterSummary(c models.FilterCriteria) string {
	var parts []string
	if c.SearchText != "" {
		parts = append(parts, fmt.Sprintf("%q", c.SearchText))
	}
	if c.DateBucket != "" && c.DateBucket != models.DateAll {
		parts = append(parts, string(c.DateBucket))
	}
	if c.SortKey != "" && c.SortKey != models.SortNewest {
		parts = append(parts, strings.ReplaceAll(string(c.SortKey), "_", " "))
	}
	return strings.Join(parts, " · ")
}

// RenderHighlighted renders id with every case-insensitive match of search
// emphasised.
func RenderHighlighted(id, search string, base, hl lipgloss.Style) string {
	spans := filter.Highlight(id, search)
	if len(spans) == 0 {
		return base.Render(id)
	}
	var sb strings.Builder
	pos := 0
	for _, sp := range spans {
		if sp.Start > pos {
			sb.WriteString(base.Render(id[pos:sp.Start]))
		}
		sb.WriteString(hl.Inherit(base).Render(id[sp.Start:sp.End]))
		pos = sp.End
	}
	if pos < len(id) {
		sb.WriteString(base.Render(id[pos:]))
	}
	return sb.String()
}

// markdown renders content at the given wrap width. The main renderer is
// used when the width matches; column renderers are built on demand.
func (m *Model) markdown(content string, wrap int) string {
	r := m.Renderer
	if wrap > 0 && wrap != m.Viewport.Width-4 {
		r = m.columnRenderer(wrap)
	}
	if r == nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimSpace(out)
}

var columnRenderers = map[int]*glamour.TermRenderer{}

func (m *Model) columnRenderer(wrap int) *glamour.TermRenderer {
	if m.Renderer == nil {
		return nil
	}
	if r, ok := columnRenderers[wrap]; ok {
		return r
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(glamourStyle()),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return m.Renderer
	}
	columnRenderers[wrap] = r
	return r
}

func WrappedLineCount(value string, width int) int {
	if width <= 0 {
		return 1
	}
	lines := strings.Split(value, "\n")
	if len(lines) == 0 {
		return 1
	}
	count := 0
	for _, line := range lines {
		w := runewidth.StringWidth(line)
		if w == 0 {
			count++
			continue
		}
		count += (w-1)/width + 1
	}
	return count
}

func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= max {
		return s
	}
	if max <= 1 {
		return "…"
	}
	return runewidth.Truncate(s, max, "…")
}

func RelativeTime(t time.Time) string {
	return relativeTimeAt(t, time.Now())
}

func relativeTimeAt(t, now time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	d := now.Sub(t)
	if d < 0 {
		d = -d
	}
	if d < time.Minute {
		return "just now"
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 min ago"
		}
		return fmt.Sprintf("%d mins ago", mins)
	}
	if d < 24*time.Hour {
		hrs := int(d.Hours())
		if hrs == 1 {
			return "1 hr ago"
		}
		return fmt.Sprintf("%d hrs ago", hrs)
	}
	days := int(d.Hours() / 24)
	if days < 14 {
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
	weeks := days / 7
	if weeks == 1 {
		return "1 week ago"
	}
	return fmt.Sprintf("%d weeks ago", weeks)
}

func (m *Model) SyncModelViewportScroll() {
	const itemHeight = 1
	const headerHeight = 1

	var currentY int
	var lastProvider string
	for i, mdl := range AvailableModels {
		var itemStartY int

		if mdl.Provider != lastProvider {
			if lastProvider != "" {
				currentY++ // Spacer
			}
			itemStartY = currentY
			currentY += headerHeight
			lastProvider = mdl.Provider
		} else {
			itemStartY = currentY
		}

		if i == m.SelectedModelIndex {
			if currentY+itemHeight > m.ModelViewport.YOffset+m.ModelViewport.Height {
				m.ModelViewport.SetYOffset(currentY + itemHeight - m.ModelViewport.Height)
			}
			if itemStartY < m.ModelViewport.YOffset {
				m.ModelViewport.SetYOffset(itemStartY)
			}
			break
		}
		currentY += itemHeight
	}
}

func FindModelByID(id string) (models.AIModel, int, bool) {
	for i, mdl := range AvailableModels {
		if mdl.ID == id {
			return mdl, i, true
		}
	}
	return models.AIModel{}, 0, false
}

func FormatUserMessage(content string, width int, isFirst bool) string {
	label := styles.UserLabelStyle.Render("YOU")
	msg := styles.UserMsgStyle.Width(width - 4).Render(content)
	if isFirst {
		return fmt.Sprintf("\n%s\n%s", label, msg)
	}
	return fmt.Sprintf("%s\n%s", label, msg)
}

func FormatAIMessage(label, content string) string {
	if label == "" {
		label = models.RoleAssistant
	}
	l := styles.AiLabelStyle.Render(strings.ToUpper(label))
	msg := styles.AiMsgStyle.Render(content)
	return fmt.Sprintf("%s\n%s", l, msg)
}

func FormatSystemMessage(label, content string) string {
	l := styles.SystemLabelStyle.Render(strings.ToUpper(label))
	msg := styles.SystemMsgStyle.Render(content)
	return fmt.Sprintf("%s\n%s", l, msg)
}

// providerOf maps a model id back to its provider for coloring.
func providerOf(id string) string {
	if mdl, _, ok := FindModelByID(id); ok {
		return mdl.Provider
	}
	return ""
}
