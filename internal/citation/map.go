package citation

import (
	"strings"
	"time"

	"github.com/rcliao/coach-context/internal/model"
)

// Source is the record a citation identifier points at. Exactly one of the
// record pointers is set.
type Source struct {
	Kind     Kind                `json:"kind"`
	RecordID string              `json:"record_id"`
	CheckIn  *model.CheckIn      `json:"checkin,omitempty"`
	Journal  *model.JournalEntry `json:"journal,omitempty"`
	Why      *model.WhyEntry     `json:"why,omitempty"`
}

// Map associates identifiers with their records for one pack build.
type Map struct {
	entries map[ID]Source
	order   []ID
}

// NewMap returns an empty map.
func NewMap() *Map {
	return &Map{entries: map[ID]Source{}}
}

// AddCheckIn records c under id. The first record added for an id wins.
func (m *Map) AddCheckIn(id ID, c model.CheckIn) {
	m.add(id, Source{Kind: KindCheckIn, RecordID: c.ID, CheckIn: &c})
}

// AddJournal records e under id.
func (m *Map) AddJournal(id ID, e model.JournalEntry) {
	m.add(id, Source{Kind: KindJournal, RecordID: e.ID, Journal: &e})
}

// AddWhy records w under id.
func (m *Map) AddWhy(id ID, w model.WhyEntry) {
	m.add(id, Source{Kind: KindWhy, RecordID: w.ID, Why: &w})
}

func (m *Map) add(id ID, src Source) {
	if _, ok := m.entries[id]; ok {
		return
	}
	m.entries[id] = src
	m.order = append(m.order, id)
}

// Lookup returns the source for id.
func (m *Map) Lookup(id ID) (Source, bool) {
	if m == nil {
		return Source{}, false
	}
	src, ok := m.entries[id]
	return src, ok
}

// Known reports whether id resolves. The streak literal always does.
func (m *Map) Known(id ID) bool {
	if id == Streak {
		return true
	}
	_, ok := m.Lookup(id)
	return ok
}

// IDs returns identifiers in insertion order.
func (m *Map) IDs() []ID {
	if m == nil {
		return nil
	}
	out := make([]ID, len(m.order))
	copy(out, m.order)
	return out
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.order)
}

// Validate returns the identifiers in ids that are malformed or unknown.
// Callers pass them through; they are reported, not rejected.
func (m *Map) Validate(ids []ID) []ID {
	var unknown []ID
	for _, id := range ids {
		if !Valid(id) || !m.Known(id) {
			unknown = append(unknown, id)
		}
	}
	return unknown
}

// Entries returns a copy of the map contents for serialization.
func (m *Map) Entries() map[ID]Source {
	out := make(map[ID]Source, m.Len())
	if m == nil {
		return out
	}
	for k, v := range m.entries {
		out[k] = v
	}
	return out
}

// LabelFor returns a human label for a citation chip.
func (m *Map) LabelFor(id ID) string {
	if id == Streak {
		return "Your streak"
	}
	src, ok := m.Lookup(id)
	if !ok {
		return "Your data"
	}
	switch src.Kind {
	case KindCheckIn:
		if d, err := time.Parse(model.DateLayout, src.CheckIn.Date); err == nil {
			return "Check-in · " + d.Format("Jan 2")
		}
		return "Check-in"
	case KindJournal:
		return "Journal · " + src.Journal.CreatedAt.Format("Jan 2")
	case KindWhy:
		if src.Why.Category != "" {
			return "Why · " + src.Why.Category
		}
		return "Your why"
	}
	return "Your data"
}

// IconFor returns the icon name for a citation chip. Only the identifier
// prefix matters.
func (m *Map) IconFor(id ID) string {
	s := string(id)
	switch {
	case id == Streak:
		return "flame"
	case strings.HasPrefix(s, "checkin:"):
		return "checkmark.circle"
	case strings.HasPrefix(s, "journal:"):
		return "book"
	case strings.HasPrefix(s, "why:"):
		return "heart"
	}
	return "doc.text"
}
