// Package model defines the core coach data types.
package model

import "time"

// DateLayout is the calendar-day layout used for check-in dates and citation ids.
const DateLayout = "2006-01-02"

// CheckIn is one daily self-assessment. Ratings are 1-5.
type CheckIn struct {
	ID                 string    `json:"id"`
	Date               string    `json:"date"` // YYYY-MM-DD
	Mood               int       `json:"mood"`
	Energy             int       `json:"energy"`
	Focus              int       `json:"focus"`
	Urges              int       `json:"urges"`
	Faith              int       `json:"faith"`
	ProgressReflection string    `json:"progress_reflection,omitempty"`
	JourneyReflection  string    `json:"journey_reflection,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// JournalEntry is a free-form journal note.
type JournalEntry struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// WhyEntry records one of the user's reasons for change.
type WhyEntry struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// StreakStats is the aggregate streak view at query time.
type StreakStats struct {
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CurrentDays    int        `json:"current_days"`
	LongestDays    int        `json:"longest_days"`
	TotalCleanDays int        `json:"total_clean_days"`
	CommitmentDate *time.Time `json:"commitment_date,omitempty"`
}

// Milestone is a streak threshold worth celebrating.
type Milestone struct {
	Days  int    `json:"days"`
	Title string `json:"title"`
}

// Milestones is ordered by Days ascending.
var Milestones = []Milestone{
	{Days: 1, Title: "First Day"},
	{Days: 3, Title: "Three Days"},
	{Days: 7, Title: "One Week"},
	{Days: 14, Title: "Two Weeks"},
	{Days: 21, Title: "Three Weeks"},
	{Days: 30, Title: "One Month"},
	{Days: 60, Title: "Two Months"},
	{Days: 90, Title: "Three Months"},
	{Days: 120, Title: "Four Months"},
	{Days: 180, Title: "Six Months"},
	{Days: 270, Title: "Nine Months"},
	{Days: 365, Title: "One Year"},
}

// NextMilestone returns the first milestone strictly after day, or nil.
func NextMilestone(day int) *Milestone {
	for i := range Milestones {
		if Milestones[i].Days > day {
			m := Milestones[i]
			return &m
		}
	}
	return nil
}

// QuotaRecord is the persisted daily message counter.
type QuotaRecord struct {
	MessageCount int       `json:"message_count"`
	ResetDate    time.Time `json:"reset_date"`
}
