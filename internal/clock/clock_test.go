package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFake_AdvanceFiresInOrder(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	c := NewFake(start)

	var fired []string
	c.AfterFunc(20*time.Second, func() { fired = append(fired, "b") })
	c.AfterFunc(10*time.Second, func() { fired = append(fired, "a") })
	c.AfterFunc(40*time.Second, func() { fired = append(fired, "c") })

	c.Advance(30 * time.Second)
	assert.Equal(t, []string{"a", "b"}, fired)
	assert.Equal(t, start.Add(30*time.Second), c.Now())
	assert.Equal(t, 1, c.Pending())

	c.Advance(10 * time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, fired)
}

func TestFake_Stop(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	called := false
	tm := c.AfterFunc(time.Second, func() { called = true })
	assert.True(t, tm.Stop())
	assert.False(t, tm.Stop())
	c.Advance(2 * time.Second)
	assert.False(t, called)
}

func TestFake_CallbackSeesDeadline(t *testing.T) {
	start := time.Unix(100, 0)
	c := NewFake(start)
	var at time.Time
	c.AfterFunc(5*time.Second, func() { at = c.Now() })
	c.Advance(time.Minute)
	assert.Equal(t, start.Add(5*time.Second), at)
}
