// Package banner implements a dismissable message banner that hides itself
// after a fixed delay.
package banner

import (
	"sync"
	"time"

	"github.com/matthewbaird/ioncon/internal/clock"
)

// Default display durations.
const (
	ErrorTTL = 30 * time.Second
	ShortTTL = 10 * time.Second
)

// View is a point-in-time copy of a banner.
type View struct {
	Name      string    `json:"name"`
	Visible   bool      `json:"visible"`
	Message   string    `json:"message"`
	Details   []string  `json:"details"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// Banner holds one visible message and its auto-hide timer. Showing a new
// message re-arms the timer.
//
// When an outer locker is given, the expiry callback acquires it before
// touching the banner and keeps it held while onExpire runs. Callers that
// share that locker must hold it when calling Show and Hide.
type Banner struct {
	name     string
	ttl      time.Duration
	clock    clock.Clock
	outer    sync.Locker
	onExpire func(name string)

	mu        sync.Mutex
	visible   bool
	message   string
	details   []string
	expiresAt time.Time
	timer     clock.Timer
	gen       uint64
}

// New creates a hidden banner. outer and onExpire may be nil.
func New(name string, ttl time.Duration, clk clock.Clock, outer sync.Locker, onExpire func(name string)) *Banner {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Banner{
		name:     name,
		ttl:      ttl,
		clock:    clk,
		outer:    outer,
		onExpire: onExpire,
	}
}

// Name returns the banner category.
func (b *Banner) Name() string { return b.name }

// TTL returns the display duration.
func (b *Banner) TTL() time.Duration { return b.ttl }

// Show displays message with details and arms the hide timer, cancelling any
// pending one.
func (b *Banner) Show(message string, details ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
	}
	b.gen++
	gen := b.gen
	b.visible = true
	b.message = message
	b.details = append([]string(nil), details...)
	b.expiresAt = b.clock.Now().Add(b.ttl)
	b.timer = b.clock.AfterFunc(b.ttl, func() { b.expire(gen) })
}

// Hide clears the banner and cancels its timer.
func (b *Banner) Hide() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hideLocked()
}

func (b *Banner) hideLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.gen++
	b.visible = false
	b.message = ""
	b.details = nil
	b.expiresAt = time.Time{}
}

// Visible reports whether the banner is shown.
func (b *Banner) Visible() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.visible
}

// View returns a copy of the banner.
func (b *Banner) View() View {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := View{
		Name:      b.name,
		Visible:   b.visible,
		Message:   b.message,
		Details:   append([]string{}, b.details...),
		ExpiresAt: b.expiresAt,
	}
	return v
}

func (b *Banner) expire(gen uint64) {
	if b.outer != nil {
		b.outer.Lock()
		defer b.outer.Unlock()
	}

	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		return
	}
	b.timer = nil
	b.hideLocked()
	b.mu.Unlock()

	if b.onExpire != nil {
		b.onExpire(b.name)
	}
}
