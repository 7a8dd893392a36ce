package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/ioncon/internal/clock"
)

type screen struct{ id string }

func newManager(clk clock.Clock, released *[]string) *Manager[*screen] {
	return NewManager(time.Hour, 10*time.Minute, clk,
		func(id string) *screen { return &screen{id: id} },
		func(s *screen) { *released = append(*released, s.id) })
}

func TestManager_CreateAndGet(t *testing.T) {
	var released []string
	m := newManager(clock.NewFake(time.Unix(0, 0)), &released)

	s := m.Create()
	require.NotEmpty(t, s.ID)
	assert.Equal(t, s.ID, s.Value.id)

	got := m.Get(s.ID)
	require.NotNil(t, got)
	assert.Same(t, s.Value, got.Value)
	assert.Nil(t, m.Get("missing"))
	assert.Equal(t, 1, m.Len())
}

func TestManager_IdleExpiry(t *testing.T) {
	var released []string
	clk := clock.NewFake(time.Unix(0, 0))
	m := newManager(clk, &released)
	s := m.Create()

	clk.Advance(9 * time.Minute)
	require.NotNil(t, m.Get(s.ID), "touch resets idle time")
	clk.Advance(9 * time.Minute)
	require.NotNil(t, m.Get(s.ID))

	clk.Advance(11 * time.Minute)
	assert.Nil(t, m.Get(s.ID))
	assert.Equal(t, []string{s.ID}, released)
}

func TestManager_MaxAge(t *testing.T) {
	var released []string
	clk := clock.NewFake(time.Unix(0, 0))
	m := newManager(clk, &released)
	s := m.Create()
	for i := 0; i < 6; i++ {
		clk.Advance(9 * time.Minute)
		require.NotNil(t, m.Get(s.ID))
	}
	clk.Advance(9 * time.Minute)
	assert.Nil(t, m.Get(s.ID))
}

func TestManager_Resolve(t *testing.T) {
	var released []string
	m := newManager(clock.NewFake(time.Unix(0, 0)), &released)

	s, created := m.Resolve("")
	assert.True(t, created)
	again, created := m.Resolve(s.ID)
	assert.False(t, created)
	assert.Same(t, s, again)

	other, created := m.Resolve("unknown")
	assert.True(t, created)
	assert.NotEqual(t, s.ID, other.ID)
}

func TestManager_Cleanup(t *testing.T) {
	var released []string
	clk := clock.NewFake(time.Unix(0, 0))
	m := newManager(clk, &released)
	old := m.Create()
	clk.Advance(11 * time.Minute)
	fresh := m.Create()

	assert.Equal(t, 1, m.Cleanup())
	assert.Equal(t, []string{old.ID}, released)
	assert.NotNil(t, m.Get(fresh.ID))

	m.Remove(fresh.ID)
	assert.Equal(t, 0, m.Len())
	assert.Len(t, released, 2)
}
