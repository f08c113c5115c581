package styles

import "github.com/charmbracelet/lipgloss"

// ContentWidth is the inner width of modal rows.
var ContentWidth = 54

var (
	TitleStyle lipgloss.Style

	UserLabelStyle   lipgloss.Style
	UserMsgStyle     lipgloss.Style
	AiLabelStyle     lipgloss.Style
	AiMsgStyle       lipgloss.Style
	SystemLabelStyle lipgloss.Style
	SystemMsgStyle   lipgloss.Style

	// ColumnStyle frames one model's answer inside a comparison row.
	ColumnStyle lipgloss.Style

	ErrorStyle    lipgloss.Style
	NoticeStyle   lipgloss.Style
	InputBoxStyle lipgloss.Style

	WelcomeArtStyle      lipgloss.Style
	WelcomeSubtitleStyle lipgloss.Style

	ModalStyle         lipgloss.Style
	ModalTitleStyle    lipgloss.Style
	ModalItemStyle     lipgloss.Style
	ModalHeaderStyle   lipgloss.Style
	ModalSelectedStyle lipgloss.Style

	// PendingStyle dims a conversation whose delete is in flight.
	PendingStyle    lipgloss.Style
	FilterChipStyle lipgloss.Style
	SearchBoxStyle  lipgloss.Style

	HintColor lipgloss.Color
)

func init() {
	apply(CurrentTheme)
}

func label(bg lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(bg).
		Bold(true).
		Padding(0, 1).
		MarginRight(1)
}

func leftRule(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		BorderLeft(true).
		BorderStyle(lipgloss.ThickBorder()).
		BorderForeground(c)
}

// apply rebuilds every style from t.
func apply(t Theme) {
	HintColor = t.TextMuted

	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Padding(0, 1)

	UserLabelStyle = label(t.Secondary)
	UserMsgStyle = leftRule(t.Secondary).Foreground(t.TextPrimary).PaddingLeft(2)
	AiLabelStyle = label(t.Primary)
	AiMsgStyle = leftRule(t.Primary).Foreground(t.TextPrimary).PaddingTop(1)
	SystemLabelStyle = label(t.Error)
	SystemMsgStyle = leftRule(t.Error).Foreground(t.Error).PaddingLeft(2)

	ColumnStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.TextMuted).
		Padding(0, 1)

	ErrorStyle = lipgloss.NewStyle().Foreground(t.Error).Bold(true)
	NoticeStyle = lipgloss.NewStyle().Foreground(t.Warning)
	InputBoxStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(0, 1)

	WelcomeArtStyle = lipgloss.NewStyle().Foreground(t.TextPrimary).Bold(true)
	WelcomeSubtitleStyle = lipgloss.NewStyle().Foreground(t.TextMuted).Italic(true)

	ModalStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(1, 2)
	ModalTitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Primary).
		Width(ContentWidth).
		MarginBottom(1)
	ModalItemStyle = lipgloss.NewStyle().Padding(0, 1).Width(ContentWidth)
	ModalHeaderStyle = lipgloss.NewStyle().Bold(true).PaddingLeft(1).Width(ContentWidth)
	ModalSelectedStyle = ModalItemStyle.
		Background(t.TextMuted).
		Foreground(lipgloss.Color("#FFFFFF"))

	PendingStyle = lipgloss.NewStyle().Foreground(t.TextMuted).Strikethrough(true)
	FilterChipStyle = label(t.TextSecondary)
	SearchBoxStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.TextMuted).
		Padding(0, 1)
}

// HighlightStyle marks search matches in conversation ids.
func HighlightStyle() lipgloss.Style {
	return lipgloss.NewStyle().Background(CurrentTheme.Highlight).Bold(true)
}

// ModeBadgeStyle is the bottom bar badge for the current send mode.
func ModeBadgeStyle(compare bool) lipgloss.Style {
	bg := CurrentTheme.ModeSingle
	if compare {
		bg = CurrentTheme.ModeCompare
	}
	return label(bg).MarginRight(0)
}
