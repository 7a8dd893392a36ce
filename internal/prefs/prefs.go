// Package prefs persists the user's screen preferences (selected theme,
// texture, language, module and grid layouts) as JSON values under fixed
// string keys.
package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Key prefix of every preference written by the screen.
const Prefix = "h5.app.ioncon."

// Preference keys.
const (
	KeyTheme    = Prefix + "theme.selected"
	KeyTexture  = Prefix + "texture.selected"
	KeyLanguage = Prefix + "language.selected"
	KeyModule   = Prefix + "module.selected"
)

// GridKey is the key of a saved grid layout.
func GridKey(name string) string { return Prefix + "grid." + name }

// Store is a key/value preference store. Get reports false for absent keys.
type Store interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
	Set(ctx context.Context, key string, value any) error
}

// Int reads an integer preference. Absent or non-numeric values report false.
func Int(ctx context.Context, s Store, key string) (int, bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return 0, false, err
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false, nil
	}
	return n, true, nil
}

// String reads a string preference. Absent or non-string values report false.
func String(ctx context.Context, s Store, key string) (string, bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return "", false, err
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false, nil
	}
	return v, true, nil
}

// Decode reads a preference into v.
func Decode(ctx context.Context, s Store, key string, v any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

func encode(key string, value any) ([]byte, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", key, err)
	}
	return b, nil
}

// MemoryStore implements Store in memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]json.RawMessage
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]json.RawMessage)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (json.RawMessage, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return append(json.RawMessage(nil), v...), true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value any) error {
	b, err := encode(key, value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = b
	return nil
}
