// Package eventbus provides an in-process pub/sub bus for screen events.
// Controllers publish after every state change; subscribers such as the
// WebSocket stream and the log consumer process them asynchronously.
package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event types.
const (
	StateChanged  = "state.changed"
	BannerExpired = "banner.expired"
	PhaseChanged  = "bootstrap.phase"
)

// Event is something that happened to one session's screen.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	SessionID  string    `json:"sessionId"`
	Version    uint64    `json:"version"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewEvent stamps an id and time onto a new event.
func NewEvent(eventType, sessionID string, version uint64, detail string) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		SessionID:  sessionID,
		Version:    version,
		Detail:     detail,
		OccurredAt: time.Now(),
	}
}

// Handler processes an event. Implementations must be safe for concurrent
// calls from different goroutines.
type Handler interface {
	HandleEvent(ctx context.Context, evt Event) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt Event) error

func (f HandlerFunc) HandleEvent(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}

// Publisher is the sending side of the bus.
type Publisher interface {
	Publish(ctx context.Context, evt Event)
}

// Bus is a simple in-process event bus. Events are published to a buffered
// channel and dispatched to all subscribers in a single consumer goroutine.
type Bus struct {
	mu          sync.RWMutex
	subscribers []namedHandler
	nextID      int
	closed      bool
	events      chan Event
	done        chan struct{}
	log         *zap.Logger
}

type namedHandler struct {
	id      int
	name    string
	handler Handler
}

// New creates a new Bus with the given channel buffer size.
func New(bufSize int, log *zap.Logger) *Bus {
	if bufSize < 1 {
		bufSize = 256
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		events: make(chan Event, bufSize),
		done:   make(chan struct{}),
		log:    log.Named("eventbus"),
	}
}

// Subscribe registers a named handler and returns a function that removes it.
func (b *Bus) Subscribe(name string, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subscribers = append(b.subscribers, namedHandler{id: id, name: name, handler: h})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subscribers {
			if s.id == id {
				b.subscribers = append(b.subscribers[:i:i], b.subscribers[i+1:]...)
				return
			}
		}
	}
}

// Publish sends an event to the bus. Non-blocking: if the buffer is full or
// the bus is stopped the event is dropped and a warning is logged.
func (b *Bus) Publish(_ context.Context, evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	select {
	case b.events <- evt:
	default:
		b.log.Warn("buffer full, dropping event", zap.String("type", evt.Type), zap.String("id", evt.ID))
	}
}

// Start begins the consumer goroutine. It processes events until the
// context is cancelled or Stop is called.
func (b *Bus) Start(ctx context.Context) {
	go func() {
		defer close(b.done)
		for {
			select {
			case evt, ok := <-b.events:
				if !ok {
					return
				}
				b.dispatch(ctx, evt)
			case <-ctx.Done():
				// Drain remaining events before exiting.
				for {
					select {
					case evt, ok := <-b.events:
						if !ok {
							return
						}
						b.dispatch(ctx, evt)
					default:
						return
					}
				}
			}
		}
	}()
}

// Stop closes the bus and waits for the consumer goroutine to finish.
func (b *Bus) Stop() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.events)
	b.mu.Unlock()
	<-b.done
}

func (b *Bus) dispatch(ctx context.Context, evt Event) {
	b.mu.RLock()
	subs := append([]namedHandler(nil), b.subscribers...)
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.handler.HandleEvent(ctx, evt); err != nil {
			b.log.Warn("handler error",
				zap.String("handler", s.name),
				zap.String("type", evt.Type),
				zap.Error(err))
		}
	}
}
