package styles

import "github.com/charmbracelet/lipgloss"

// Theme defines a complete color scheme for the application
type Theme struct {
	// Core colors
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color

	// Text colors
	TextPrimary   lipgloss.Color
	TextSecondary lipgloss.Color
	TextMuted     lipgloss.Color

	// Semantic colors
	Warning lipgloss.Color
	Error   lipgloss.Color

	Border lipgloss.Color

	// Mode badges
	ModeSingle  lipgloss.Color
	ModeCompare lipgloss.Color

	// Search match background in the conversation list
	Highlight lipgloss.Color
}

// DarkTheme is the dark mode color scheme
var DarkTheme = Theme{
	Primary:   lipgloss.Color("#818CF8"), // Indigo 400
	Secondary: lipgloss.Color("#22D3EE"), // Cyan 400
	Accent:    lipgloss.Color("#F472B6"), // Pink 400

	TextPrimary:   lipgloss.Color("#F1F5F9"),
	TextSecondary: lipgloss.Color("#94A3B8"),
	TextMuted:     lipgloss.Color("#64748B"),

	Warning: lipgloss.Color("#FBBF24"),
	Error:   lipgloss.Color("#FB7185"),

	Border: lipgloss.Color("#27272A"),

	ModeSingle:  lipgloss.Color("#81D4FA"),
	ModeCompare: lipgloss.Color("#CE93D8"),

	Highlight: lipgloss.Color("#8D6E00"),
}

// LightTheme is the light mode color scheme
var LightTheme = Theme{
	Primary:   lipgloss.Color("#4F46E5"), // Indigo 600
	Secondary: lipgloss.Color("#0891B2"), // Cyan 600
	Accent:    lipgloss.Color("#DB2777"), // Pink 600

	TextPrimary:   lipgloss.Color("#18181B"),
	TextSecondary: lipgloss.Color("#52525B"),
	TextMuted:     lipgloss.Color("#A1A1AA"),

	Warning: lipgloss.Color("#F59E0B"),
	Error:   lipgloss.Color("#EF4444"),

	Border: lipgloss.Color("#E4E4E7"),

	ModeSingle:  lipgloss.Color("#0288D1"),
	ModeCompare: lipgloss.Color("#7C3AED"),

	Highlight: lipgloss.Color("#FFF59D"),
}

// CurrentTheme holds the active theme (set at runtime based on terminal)
var CurrentTheme = DarkTheme

// ProviderColorMap colors the provider headers in the model selector and
// the per-model labels of comparison columns.
var ProviderColorMap = map[string]lipgloss.Color{
	"OpenAI":    lipgloss.Color("#A5D6A7"),
	"Anthropic": lipgloss.Color("#FFCC80"),
	"Google":    lipgloss.Color("#CE93D8"),
}

// GetProviderColor returns the color for a provider
func GetProviderColor(provider string) lipgloss.Color {
	if c, ok := ProviderColorMap[provider]; ok {
		return c
	}
	return CurrentTheme.Primary
}

// InitTheme picks the theme for the terminal background and rebuilds the
// styles from it.
func InitTheme() {
	if lipgloss.HasDarkBackground() {
		CurrentTheme = DarkTheme
	} else {
		CurrentTheme = LightTheme
	}
	apply(CurrentTheme)
}
