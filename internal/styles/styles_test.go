package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApply_FollowsTheme(t *testing.T) {
	t.Cleanup(func() {
		CurrentTheme = DarkTheme
		apply(DarkTheme)
	})

	apply(LightTheme)
	assert.Equal(t, LightTheme.TextMuted, HintColor)
	assert.Equal(t, LightTheme.Error, SystemMsgStyle.GetForeground())
	assert.Equal(t, LightTheme.Primary, ModalStyle.GetBorderTopForeground())

	apply(DarkTheme)
	assert.Equal(t, DarkTheme.Error, SystemMsgStyle.GetForeground())
}

func TestModeBadgeStyle(t *testing.T) {
	assert.Equal(t, CurrentTheme.ModeSingle, ModeBadgeStyle(false).GetBackground())
	assert.Equal(t, CurrentTheme.ModeCompare, ModeBadgeStyle(true).GetBackground())
}

func TestGetProviderColor(t *testing.T) {
	assert.Equal(t, ProviderColorMap["Anthropic"], GetProviderColor("Anthropic"))
	assert.Equal(t, CurrentTheme.Primary, GetProviderColor("Relay"))
}
