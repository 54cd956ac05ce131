// Package citation defines citation identifiers attached to context pack facts
// and the per-build map that resolves them back to records.
package citation

import (
	"fmt"
	"regexp"
	"time"

	"github.com/rcliao/coach-context/internal/model"
)

// ID is a citation identifier such as "checkin:2026-10-13" or "why:2".
type ID string

// Streak is the singleton identifier for aggregate streak stats.
const Streak ID = "streak"

// Kind is the record family an identifier refers to.
type Kind string

const (
	KindCheckIn Kind = "checkin"
	KindJournal Kind = "journal"
	KindWhy     Kind = "why"
	KindStreak  Kind = "streak"
	KindUnknown Kind = ""
)

var (
	checkInPattern = regexp.MustCompile(`^checkin:(\d{4}-\d{2}-\d{2})$`)
	journalPattern = regexp.MustCompile(`^journal:(\d{4}-\d{2}-\d{2})-(\d+)$`)
	whyPattern     = regexp.MustCompile(`^why:(\d+)$`)
)

// ForCheckIn builds the identifier for a check-in dated date (YYYY-MM-DD).
func ForCheckIn(date string) ID {
	return ID("checkin:" + date)
}

// ForJournal builds the identifier for the index-th journal entry written on day.
func ForJournal(day time.Time, index int) ID {
	return ID(fmt.Sprintf("journal:%s-%d", day.Format(model.DateLayout), index))
}

// ForWhy builds the identifier for the index-th why entry.
func ForWhy(index int) ID {
	return ID(fmt.Sprintf("why:%d", index))
}

// KindOf reports which of the closed identifier forms id matches.
func KindOf(id ID) Kind {
	s := string(id)
	switch {
	case id == Streak:
		return KindStreak
	case checkInPattern.MatchString(s):
		return KindCheckIn
	case journalPattern.MatchString(s):
		return KindJournal
	case whyPattern.MatchString(s):
		return KindWhy
	}
	return KindUnknown
}

// Valid reports whether id has one of the four identifier shapes.
func Valid(id ID) bool {
	return KindOf(id) != KindUnknown
}

// Strings converts ids for storage on a chat message.
func Strings(ids []ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

// FromStrings is the inverse of Strings.
func FromStrings(ss []string) []ID {
	out := make([]ID, len(ss))
	for i, s := range ss {
		out[i] = ID(s)
	}
	return out
}
