package ui

import (
	"database/sql"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog"

	"relaychat/internal/app"
	"relaychat/internal/models"
)

const (
	MaxChatWidth       = 100
	CompactWidthThresh = 100 // Below this, comparison answers stack instead of sitting side by side

	HistoryPageSize = 10

	// Narrowest a comparison column may get before falling back to stacking
	MinColumnWidth = 28
)

var ModalWidth = 60

// AvailableModels are the model names the relay routes.
var AvailableModels = []models.AIModel{
	{ID: "gpt-4.1-mini", Name: "GPT-4.1 mini", Provider: "OpenAI"},
	{ID: "gpt-4.1", Name: "GPT-4.1", Provider: "OpenAI"},
	{ID: "gpt-4.1-nano", Name: "GPT-4.1 nano", Provider: "OpenAI"},
	{ID: "gpt-4o", Name: "GPT-4o", Provider: "OpenAI"},
	{ID: "claude-3-5", Name: "Claude 3.5", Provider: "Anthropic"},
	{ID: "claude-3", Name: "Claude 3", Provider: "Anthropic"},
	{ID: "gemini", Name: "Gemini", Provider: "Google"},
}

type (
	// SendDoneMsg arrives when a send finished; Seq identifies which one.
	SendDoneMsg struct {
		Seq int
		Err error
	}

	// ListMsg carries the outcome of a conversation list refresh.
	ListMsg struct{ Err error }

	// HistoryLoadedMsg arrives after a conversation was opened; Seq is the
	// SendSeq the load was started with.
	HistoryLoadedMsg struct {
		ID  string
		Seq int
		Err error
	}

	// DeletedMsg reports a finished delete.
	DeletedMsg struct {
		ID  string
		Err error
	}
)

// Options are the startup settings handed to New.
type Options struct {
	App   *app.App
	DB    *sql.DB // preferences; nil runs with defaults only
	Log   zerolog.Logger
	Prefs models.Prefs
}

type Model struct {
	App *app.App
	DB  *sql.DB
	Log zerolog.Logger

	Viewport     viewport.Model
	TextInput    textarea.Model
	Spinner      spinner.Model
	Renderer     *glamour.TermRenderer
	WindowWidth  int
	WindowHeight int

	// Send state. Loading covers the gap between Enter and the session
	// marking itself busy; SendSeq invalidates completions of abandoned sends.
	Loading bool
	SendSeq int
	Notice  string

	// OpeningID is the conversation whose history is being fetched.
	OpeningID string

	Mode          models.Mode
	CurrentModel  models.AIModel
	CompareModels []string

	// Conversation list modal
	HistoryOpen        bool
	HistoryLoading     bool
	HistorySearch      textinput.Model
	HistorySelectedIdx int
	HistoryPage        int
	HistoryErr         error
	ConfirmDeleteID    string

	// Model selector modal
	ModelSelectorOpen  bool
	ModelViewport      viewport.Model
	SelectedModelIndex int

	ShortcutsOpen bool

	// Rendered transcript blocks, reused while the conversation and width
	// stay the same.
	renderConv  string
	renderWidth int
	renderCount int
	rendered    []string
}
