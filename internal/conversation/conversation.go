// Package conversation holds the session-scoped, append-only exchange log.
package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced an entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Entry is one immutable conversation turn.
type Entry struct {
	ID        string
	Role      Role
	Content   string
	CreatedAt time.Time
}

// Transcript is the ordered list of entries for one voice session.
type Transcript struct {
	mu      sync.RWMutex
	entries []Entry
	now     func() time.Time
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{now: time.Now}
}

// Append adds one entry at the end of the transcript and returns it.
func (t *Transcript) Append(role Role, content string) Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now
	if t.now != nil {
		now = t.now
	}
	entry := Entry{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: now(),
	}
	t.entries = append(t.entries, entry)
	return entry
}

// Entries returns a chronological copy of all entries.
func (t *Transcript) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the entry count.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Last returns the most recent entry, if any.
func (t *Transcript) Last() (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.entries) == 0 {
		return Entry{}, false
	}
	return t.entries[len(t.entries)-1], true
}

// Count returns how many entries have the given role.
func (t *Transcript) Count(role Role) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, e := range t.entries {
		if e.Role == role {
			n++
		}
	}
	return n
}
