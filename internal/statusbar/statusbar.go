// Package statusbar keeps the permanent, user-dismissed log of messages shown
// at the bottom of the screen.
package statusbar

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Severity classifies an entry.
type Severity int

const (
	Information Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Information:
		return "Information"
	case Warning:
		return "Warning"
	case Error:
		return "Error"
	}
	return "Severity(" + strconv.Itoa(int(s)) + ")"
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	switch name {
	case "Information":
		*s = Information
	case "Warning":
		*s = Warning
	case "Error":
		*s = Error
	default:
		return fmt.Errorf("statusbar: unknown severity %q", name)
	}
	return nil
}

// Entry is one logged message.
type Entry struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
}

// FormatTime renders the entry time as hours and zero-padded minutes ("9:05").
func FormatTime(ts time.Time) string {
	return fmt.Sprintf("%d:%02d", ts.Hour(), ts.Minute())
}

// View is a copy of the log. Entries are newest first, which is also the
// index space of RemoveAt.
type View struct {
	Entries   []Entry `json:"entries"`
	Collapsed bool    `json:"collapsed"`
}

// Log is an unbounded, ordered message log. It is safe for concurrent use.
type Log struct {
	mu        sync.Mutex
	now       func() time.Time
	entries   []Entry
	collapsed bool
}

// New creates an empty, collapsed log. now defaults to time.Now.
func New(now func() time.Time) *Log {
	if now == nil {
		now = time.Now
	}
	return &Log{now: now, collapsed: true}
}

// Push appends a message and returns the stored entry.
func (l *Log) Push(severity Severity, message string) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := Entry{
		ID:        uuid.New().String(),
		Message:   message,
		Severity:  severity,
		Timestamp: l.now(),
	}
	l.entries = append(l.entries, e)
	return e
}

// Info, Warn and Fail are shorthands for Push.
func (l *Log) Info(message string) Entry { return l.Push(Information, message) }
func (l *Log) Warn(message string) Entry { return l.Push(Warning, message) }
func (l *Log) Fail(message string) Entry { return l.Push(Error, message) }

// RemoveAt removes the entry at display position index, where 0 is the
// newest entry. Out-of-range indexes remove nothing. The log collapses when
// it becomes empty.
func (l *Log) RemoveAt(index int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos := len(l.entries) - 1 - index
	removed := false
	if index >= 0 && pos >= 0 {
		l.entries = append(l.entries[:pos], l.entries[pos+1:]...)
		removed = true
	}
	l.collapsed = len(l.entries) == 0
	return removed
}

// Clear empties and collapses the log.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.collapsed = true
}

// SetCollapsed expands or collapses the log without changing its entries.
func (l *Log) SetCollapsed(collapsed bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.collapsed = collapsed
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Entries returns the entries oldest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry{}, l.entries...)
}

// View returns the display copy of the log.
func (l *Log) View() View {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		out[len(l.entries)-1-i] = e
	}
	return View{Entries: out, Collapsed: l.collapsed}
}
