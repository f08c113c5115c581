package models

import (
	"errors"
	"time"
)

// Mode selects how a prompt is sent to the relay
type Mode int

const (
	ModeSingle     Mode = iota // One model answers via /ask
	ModeComparison             // Several models answer the same prompt via /compare
)

func (m Mode) String() string {
	if m == ModeComparison {
		return "compare"
	}
	return "single"
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// SystemLabel marks assistant messages synthesised locally from errors.
const SystemLabel = "system"

// ErrInvalidInput is the root of every caller-side validation failure.
var ErrInvalidInput = errors.New("invalid input")

type AIModel struct {
	ID       string
	Name     string
	Provider string
}

// ConversationSummary is one row of the relay's conversation list.
type ConversationSummary struct {
	ID            string
	CreatedAt     time.Time
	LastMessageAt *time.Time // nil when the conversation has no messages
	MessageCount  int
}

// Activity returns LastMessageAt, or CreatedAt when no message exists yet.
func (c ConversationSummary) Activity() time.Time {
	if c.LastMessageAt != nil {
		return *c.LastMessageAt
	}
	return c.CreatedAt
}

// Message is one transcript entry.
type Message struct {
	Role       string
	Content    string
	ModelLabel string // empty for user messages
	Group      int    // non-zero for comparison results sharing one request
	Failed     bool   // synthesised from a relay failure
}

// IsSystem reports whether the message was synthesised from a failure.
func (m Message) IsSystem() bool {
	return m.Role == RoleAssistant && m.ModelLabel == SystemLabel
}

// DateBucket limits the list to recent activity.
type DateBucket string

const (
	DateAll   DateBucket = "all"
	DateToday DateBucket = "today"
	DateWeek  DateBucket = "week"
	DateMonth DateBucket = "month"
)

// SortKey orders the conversation list.
type SortKey string

const (
	SortNewest       SortKey = "newest"
	SortOldest       SortKey = "oldest"
	SortMostMessages SortKey = "most_messages"
)

type FilterCriteria struct {
	SearchText string
	DateBucket DateBucket
	SortKey    SortKey
}

// DefaultCriteria matches everything, newest first.
func DefaultCriteria() FilterCriteria {
	return FilterCriteria{SearchText: "", DateBucket: DateAll, SortKey: SortNewest}
}

// IsDefault reports whether no filter is active.
func (c FilterCriteria) IsDefault() bool {
	return c == DefaultCriteria()
}

// Prefs are the UI choices remembered between runs.
type Prefs struct {
	Criteria      FilterCriteria
	Model         string
	CompareModels []string
	Mode          Mode
}
