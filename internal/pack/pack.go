// Package pack assembles the context pack: a bounded, line-oriented summary of
// the user's records sent alongside each coach message, together with the
// citation map that resolves the identifiers embedded in it.
package pack

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/coach-context/internal/citation"
	"github.com/rcliao/coach-context/internal/model"
	"github.com/rcliao/coach-context/internal/store"
)

const (
	DefaultCheckInLimit = 7
	DefaultJournalLimit = 5

	reflectionExcerptLen = 100
	journalExcerptLen    = 200
	ellipsis             = "..."
)

// Section headers in emission order.
const (
	HeaderStreak   = "=== STREAK ==="
	HeaderCheckIns = "=== RECENT CHECK-INS ==="
	HeaderJournals = "=== RECENT JOURNAL ENTRIES ==="
	HeaderWhys     = "=== WHY ENTRIES ==="
	HeaderContext  = "=== CONTEXT ==="
)

// Usage is the quota view shown in the pack footer.
type Usage interface {
	Used(ctx context.Context) int
	Limit() int
}

// Pack is one build result.
type Pack struct {
	Text      string
	Citations *citation.Map
	BuiltAt   time.Time
}

// Config configures a Packer.
type Config struct {
	CheckInLimit int
	JournalLimit int
	Location     *time.Location
	Now          func() time.Time
}

// Packer builds context packs from the record store.
type Packer struct {
	records      store.RecordSource
	usage        Usage
	checkInLimit int
	journalLimit int
	loc          *time.Location
	now          func() time.Time
	logger       *zap.Logger
}

// New creates a Packer.
func New(records store.RecordSource, usage Usage, cfg Config, logger *zap.Logger) *Packer {
	if cfg.CheckInLimit <= 0 {
		cfg.CheckInLimit = DefaultCheckInLimit
	}
	if cfg.JournalLimit <= 0 {
		cfg.JournalLimit = DefaultJournalLimit
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Packer{
		records:      records,
		usage:        usage,
		checkInLimit: cfg.CheckInLimit,
		journalLimit: cfg.JournalLimit,
		loc:          cfg.Location,
		now:          cfg.Now,
		logger:       logger,
	}
}

// Build reads the current store state and assembles a fresh pack. Nothing is
// cached between builds, so identifiers may shift from one build to the next.
func (p *Packer) Build(ctx context.Context) (*Pack, error) {
	now := p.now().In(p.loc)
	cites := citation.NewMap()
	var b strings.Builder

	stats, err := p.records.CurrentStreakStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("streak stats: %w", err)
	}
	p.writeStreak(&b, stats, now)

	checkIns, err := p.records.RecentCheckIns(ctx, p.checkInLimit)
	if err != nil {
		return nil, fmt.Errorf("recent check-ins: %w", err)
	}
	p.writeCheckIns(&b, checkIns, cites)

	journals, err := p.records.RecentJournalEntries(ctx, p.journalLimit)
	if err != nil {
		return nil, fmt.Errorf("recent journal entries: %w", err)
	}
	p.writeJournals(&b, journals, cites)

	whys, err := p.records.AllWhyEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("why entries: %w", err)
	}
	writeWhys(&b, whys, cites)

	p.writeContext(ctx, &b, now)

	text := b.String()
	p.logger.Debug("context pack built",
		zap.Int("lines", strings.Count(text, "\n")),
		zap.Int("citations", cites.Len()))

	return &Pack{Text: text, Citations: cites, BuiltAt: now}, nil
}

func (p *Packer) writeStreak(b *strings.Builder, st model.StreakStats, now time.Time) {
	b.WriteString(HeaderStreak + "\n")
	line := func(format string, args ...interface{}) {
		fmt.Fprintf(b, "[%s] "+format+"\n", append([]interface{}{citation.Streak}, args...)...)
	}

	if st.StartedAt == nil {
		line("Current streak: not started")
	} else {
		line("Current streak: %s", days(st.CurrentDays))
	}
	line("Longest streak: %s", days(st.LongestDays))
	line("Total clean days: %d", st.TotalCleanDays)

	if m := p.records.NextMilestone(st.CurrentDays); m != nil {
		line("Next milestone: %s (%s), %s away", m.Title, days(m.Days), days(m.Days-st.CurrentDays))
	} else {
		line("Next milestone: all milestones reached")
	}

	if st.CommitmentDate != nil {
		if remaining := store.DaysBetween(now, st.CommitmentDate.In(p.loc)); remaining > 0 {
			line("Commitment: %s remaining until %s", days(remaining), st.CommitmentDate.In(p.loc).Format("Jan 2, 2006"))
		}
	}
	b.WriteString("\n")
}

func (p *Packer) writeCheckIns(b *strings.Builder, checkIns []model.CheckIn, cites *citation.Map) {
	fmt.Fprintf(b, "%s\n", HeaderCheckIns)
	if len(checkIns) == 0 {
		b.WriteString("No check-ins yet.\n\n")
		return
	}
	for _, c := range checkIns {
		id := citation.ForCheckIn(c.Date)
		cites.AddCheckIn(id, c)
		fmt.Fprintf(b, "[%s] Mood %d/5, Energy %d/5, Focus %d/5, Urges %d/5, Faith %d/5. Reflection: %q\n",
			id, c.Mood, c.Energy, c.Focus, c.Urges, c.Faith, reflectionExcerpt(c))
	}
	b.WriteString("\n")
}

func (p *Packer) writeJournals(b *strings.Builder, entries []model.JournalEntry, cites *citation.Map) {
	fmt.Fprintf(b, "%s\n", HeaderJournals)
	if len(entries) == 0 {
		b.WriteString("No journal entries yet.\n\n")
		return
	}
	for i, e := range entries {
		created := e.CreatedAt.In(p.loc)
		id := citation.ForJournal(created, i)
		cites.AddJournal(id, e)
		// The marker is appended even when nothing was cut.
		fmt.Fprintf(b, "[%s] %s: %s%s\n", id, created.Format("Jan 2, 2006"),
			flatten(prefix(e.Content, journalExcerptLen)), ellipsis)
	}
	b.WriteString("\n")
}

func writeWhys(b *strings.Builder, whys []model.WhyEntry, cites *citation.Map) {
	fmt.Fprintf(b, "%s\n", HeaderWhys)
	if len(whys) == 0 {
		b.WriteString("No why entries yet.\n\n")
		return
	}
	for i, w := range whys {
		id := citation.ForWhy(i)
		cites.AddWhy(id, w)
		category := w.Category
		if category == "" {
			category = "General"
		}
		fmt.Fprintf(b, "[%s] %s: %s\n", id, category, flatten(w.Content))
	}
	b.WriteString("\n")
}

func (p *Packer) writeContext(ctx context.Context, b *strings.Builder, now time.Time) {
	fmt.Fprintf(b, "%s\n", HeaderContext)
	fmt.Fprintf(b, "Local time: %s (%s)\n", now.Format("3:04 PM"), TimeOfDay(now.Hour()))
	if p.usage != nil {
		fmt.Fprintf(b, "Messages used today: %d/%d\n", p.usage.Used(ctx), p.usage.Limit())
	}
}

// TimeOfDay buckets an hour (0-23) into morning, afternoon, evening or night.
func TimeOfDay(hour int) string {
	switch {
	case hour >= 5 && hour <= 11:
		return "morning"
	case hour >= 12 && hour <= 16:
		return "afternoon"
	case hour >= 17 && hour <= 20:
		return "evening"
	}
	return "night"
}

func reflectionExcerpt(c model.CheckIn) string {
	text := strings.TrimSpace(c.ProgressReflection)
	if text == "" {
		text = strings.TrimSpace(c.JourneyReflection)
	}
	if text == "" {
		return "No reflection"
	}
	return flatten(prefix(text, reflectionExcerptLen))
}

// prefix returns at most n runes of s.
func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// flatten keeps each fact on one line.
func flatten(s string) string {
	return lineBreaks.Replace(s)
}

func days(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
