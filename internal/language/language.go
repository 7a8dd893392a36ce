// Package language serves the UI text constants of the screen. Bundles are
// CUE documents embedded in the binary and validated against #Bundle when the
// service is created.
package language

import (
	"context"
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"golang.org/x/text/language"
)

// DefaultCode is the language every installation ships with.
const DefaultCode = "en-US"

//go:embed bundles/*.cue
var bundleFS embed.FS

// Constants maps a text key to its translation.
type Constants map[string]string

// Get returns the text of key, or key itself when it has no translation.
func (c Constants) Get(key string) string {
	if v, ok := c[key]; ok {
		return v
	}
	return key
}

// Bundle is one language's text.
type Bundle struct {
	Language  string    `json:"language"`
	Name      string    `json:"name"`
	Constants Constants `json:"constants"`
}

// Service holds the loaded bundles and the current language.
type Service struct {
	mu      sync.RWMutex
	bundles []Bundle
	matcher language.Matcher
	current int
}

// New loads and validates the embedded bundles.
func New() (*Service, error) {
	bundles, err := loadBundles()
	if err != nil {
		return nil, err
	}
	return newService(bundles)
}

func newService(bundles []Bundle) (*Service, error) {
	// The default bundle goes first so the matcher falls back to it.
	sort.SliceStable(bundles, func(i, j int) bool {
		return bundles[i].Language == DefaultCode && bundles[j].Language != DefaultCode
	})
	if len(bundles) == 0 || bundles[0].Language != DefaultCode {
		return nil, fmt.Errorf("language: missing %s bundle", DefaultCode)
	}
	tags := make([]language.Tag, len(bundles))
	for i, b := range bundles {
		tag, err := language.Parse(b.Language)
		if err != nil {
			return nil, fmt.Errorf("language: bundle %s: %w", b.Language, err)
		}
		tags[i] = tag
	}
	return &Service{bundles: bundles, matcher: language.NewMatcher(tags)}, nil
}

func loadBundles() ([]Bundle, error) {
	ctx := cuecontext.New()

	schemaSrc, err := bundleFS.ReadFile("bundles/schema.cue")
	if err != nil {
		return nil, fmt.Errorf("language: reading schema: %w", err)
	}
	schema := ctx.CompileBytes(schemaSrc, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Bundle"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("language: compiling schema: %w", err)
	}

	entries, err := bundleFS.ReadDir("bundles")
	if err != nil {
		return nil, fmt.Errorf("language: listing bundles: %w", err)
	}
	var out []Bundle
	for _, e := range entries {
		name := e.Name()
		if name == "schema.cue" || path.Ext(name) != ".cue" {
			continue
		}
		src, err := bundleFS.ReadFile("bundles/" + name)
		if err != nil {
			return nil, fmt.Errorf("language: reading %s: %w", name, err)
		}
		v := schema.Unify(ctx.CompileBytes(src, cue.Filename(name)))
		if err := v.Validate(cue.Concrete(true)); err != nil {
			return nil, fmt.Errorf("language: invalid bundle %s: %w", name, err)
		}
		var b Bundle
		if err := v.Decode(&b); err != nil {
			return nil, fmt.Errorf("language: decoding %s: %w", name, err)
		}
		if want := strings.TrimSuffix(name, ".cue"); b.Language != want {
			return nil, fmt.Errorf("language: %s declares language %q", name, b.Language)
		}
		out = append(out, b)
	}
	return out, nil
}

// Default resets the service to en-US and returns its constants.
func (s *Service) Default(_ context.Context) (Constants, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = 0
	return s.bundles[0].Constants, nil
}

// Change switches to the bundle closest to code. Codes without a close
// bundle fall back to en-US.
func (s *Service) Change(ctx context.Context, code string) (Constants, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tag, err := language.Parse(code)
	if err != nil {
		return nil, fmt.Errorf("language: %q: %w", code, err)
	}
	_, idx, _ := s.matcher.Match(tag)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = idx
	return s.bundles[idx].Constants, nil
}

// Current returns the active bundle.
func (s *Service) Current() Bundle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bundles[s.current]
}

// Codes lists the codes of the loaded bundles, default first.
func (s *Service) Codes() []string {
	out := make([]string, len(s.bundles))
	for i, b := range s.bundles {
		out[i] = b.Language
	}
	return out
}
