// Package filter narrows and orders the cached conversation list.
package filter

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"relaychat/internal/models"
)

// ErrInvalidCriteria is returned for date buckets or sort keys outside the known set.
var ErrInvalidCriteria = fmt.Errorf("%w: invalid filter criteria", models.ErrInvalidInput)

// Apply returns the conversations matching criteria, in criteria.SortKey order.
// The input slice is never modified. Search runs first, then the date bucket,
// then a stable sort.
func Apply(conversations []models.ConversationSummary, criteria models.FilterCriteria, now time.Time) ([]models.ConversationSummary, error) {
	cutoff, bounded, err := Cutoff(criteria.DateBucket, now)
	if err != nil {
		return nil, err
	}
	less, err := comparator(criteria.SortKey)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(criteria.SearchText)
	out := make([]models.ConversationSummary, 0, len(conversations))
	for _, c := range conversations {
		if needle != "" && !strings.Contains(strings.ToLower(c.ID), needle) {
			continue
		}
		if bounded && c.Activity().Before(cutoff) {
			continue
		}
		out = append(out, c)
	}

	slices.SortStableFunc(out, less)
	return out, nil
}

// Cutoff returns the earliest activity time kept by bucket. bounded is false
// for DateAll.
func Cutoff(bucket models.DateBucket, now time.Time) (cutoff time.Time, bounded bool, err error) {
	switch bucket {
	case models.DateAll:
		return time.Time{}, false, nil
	case models.DateToday:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), true, nil
	case models.DateWeek:
		return now.AddDate(0, 0, -7), true, nil
	case models.DateMonth:
		return now.AddDate(0, -1, 0), true, nil
	default:
		return time.Time{}, false, fmt.Errorf("%w: date bucket %q", ErrInvalidCriteria, bucket)
	}
}

func comparator(key models.SortKey) (func(a, b models.ConversationSummary) int, error) {
	switch key {
	case models.SortNewest:
		return func(a, b models.ConversationSummary) int {
			return b.Activity().Compare(a.Activity())
		}, nil
	case models.SortOldest:
		return func(a, b models.ConversationSummary) int {
			return a.Activity().Compare(b.Activity())
		}, nil
	case models.SortMostMessages:
		return func(a, b models.ConversationSummary) int {
			return b.MessageCount - a.MessageCount
		}, nil
	default:
		return nil, fmt.Errorf("%w: sort key %q", ErrInvalidCriteria, key)
	}
}

// ParseDateBucket maps user input to a DateBucket.
func ParseDateBucket(s string) (models.DateBucket, error) {
	b := models.DateBucket(strings.ToLower(strings.TrimSpace(s)))
	switch b {
	case models.DateAll, models.DateToday, models.DateWeek, models.DateMonth:
		return b, nil
	}
	return "", fmt.Errorf("%w: date bucket %q", ErrInvalidCriteria, s)
}

// ParseSortKey maps user input to a SortKey. "mostMessages" and
// "most-messages" are accepted for most_messages.
func ParseSortKey(s string) (models.SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "newest":
		return models.SortNewest, nil
	case "oldest":
		return models.SortOldest, nil
	case "most_messages", "mostmessages", "most-messages":
		return models.SortMostMessages, nil
	}
	return "", fmt.Errorf("%w: sort key %q", ErrInvalidCriteria, s)
}

// Validate checks that both enums hold known values.
func Validate(c models.FilterCriteria) error {
	if _, _, err := Cutoff(c.DateBucket, time.Now()); err != nil {
		return err
	}
	_, err := comparator(c.SortKey)
	return err
}

var (
	dateCycle = []models.DateBucket{models.DateAll, models.DateToday, models.DateWeek, models.DateMonth}
	sortCycle = []models.SortKey{models.SortNewest, models.SortOldest, models.SortMostMessages}
)

// NextDateBucket returns the bucket after b, wrapping around.
func NextDateBucket(b models.DateBucket) models.DateBucket {
	i := slices.Index(dateCycle, b)
	return dateCycle[(i+1)%len(dateCycle)]
}

// NextSortKey returns the sort key after k, wrapping around.
func NextSortKey(k models.SortKey) models.SortKey {
	i := slices.Index(sortCycle, k)
	return sortCycle[(i+1)%len(sortCycle)]
}

// Span is a half-open byte range [Start, End) inside a string.
type Span struct {
	Start, End int
}

// Highlight returns the non-overlapping case-insensitive matches of search in id.
func Highlight(id, search string) []Span {
	if search == "" {
		return nil
	}
	lowerID := strings.ToLower(id)
	needle := strings.ToLower(search)
	// ToLower can change byte lengths for some scripts; fall back to no highlight.
	if len(lowerID) != len(id) {
		return nil
	}
	var spans []Span
	for from := 0; from <= len(lowerID)-len(needle); {
		i := strings.Index(lowerID[from:], needle)
		if i < 0 {
			break
		}
		start := from + i
		spans = append(spans, Span{Start: start, End: start + len(needle)})
		from = start + len(needle)
	}
	return spans
}
