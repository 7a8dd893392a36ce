package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu   sync.Mutex
	evts []Event
}

func (c *collector) HandleEvent(_ context.Context, evt Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evts = append(c.evts, evt)
	return nil
}

func (c *collector) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, e := range c.evts {
		out = append(out, e.Type)
	}
	return out
}

func TestBus_DispatchesInOrder(t *testing.T) {
	b := New(16, nil)
	c := &collector{}
	b.Subscribe("collector", c)
	b.Subscribe("failing", HandlerFunc(func(context.Context, Event) error { return errors.New("boom") }))
	b.Subscribe("log", NewLogConsumer(nil))
	b.Start(context.Background())

	b.Publish(context.Background(), NewEvent(StateChanged, "s1", 1, ""))
	b.Publish(context.Background(), NewEvent(BannerExpired, "s1", 2, "error"))
	b.Stop()

	assert.Equal(t, []string{StateChanged, BannerExpired}, c.types())
}

func TestBus_Unsubscribe(t *testing.T) {
	b := New(16, nil)
	first, second := &collector{}, &collector{}
	unsubscribe := b.Subscribe("first", first)
	b.Subscribe("second", second)
	unsubscribe()
	unsubscribe()

	b.Start(context.Background())
	b.Publish(context.Background(), NewEvent(StateChanged, "s1", 1, ""))
	b.Stop()

	assert.Empty(t, first.types())
	assert.Equal(t, []string{StateChanged}, second.types())
}

func TestBus_PublishAfterStop(t *testing.T) {
	b := New(1, nil)
	b.Start(context.Background())
	b.Stop()
	b.Stop()
	assert.NotPanics(t, func() { b.Publish(context.Background(), NewEvent(StateChanged, "s1", 1, "")) })
}

func TestBus_DropsWhenFull(t *testing.T) {
	b := New(1, nil)
	c := &collector{}
	b.Subscribe("c", c)
	b.Publish(context.Background(), NewEvent(StateChanged, "s1", 1, ""))
	b.Publish(context.Background(), NewEvent(StateChanged, "s1", 2, ""))

	b.Start(context.Background())
	b.Stop()
	require.Len(t, c.types(), 1)
}

func TestNewEvent(t *testing.T) {
	e := NewEvent(PhaseChanged, "s1", 3, "ready")
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, uint64(3), e.Version)
	assert.False(t, e.OccurredAt.IsZero())
}
