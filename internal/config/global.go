package config

import (
	"context"
	"embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed cue/*.cue
var cueFS embed.FS

// GlobalConfig is the installation-wide screen configuration: excluded
// options, defaults and the authority check settings.
type GlobalConfig struct {
	Environment       string    `json:"environment"`
	DefaultThemeID    *int      `json:"defaultThemeId,omitempty"`
	DefaultTextureID  *int      `json:"defaultTextureId,omitempty"`
	DefaultLanguage   string    `json:"defaultLanguage,omitempty"`
	ExcludeThemes     []int     `json:"excludeThemes"`
	ExcludeWallpapers []int     `json:"excludeWallpapers"`
	ExcludeLanguages  []string  `json:"excludeLanguages"`
	ExcludeModules    []int     `json:"excludeModules"`
	App               AppConfig `json:"appConfig"`
}

// AppConfig controls the authority check.
type AppConfig struct {
	EnableM3Authority bool   `json:"enableM3Authority"`
	AuthorityProgram  string `json:"authorityProgram"`
	AuthorityBit      int    `json:"authorityBit"`
}

// GlobalSource supplies the global configuration.
type GlobalSource interface {
	Load(ctx context.Context) (*GlobalConfig, error)
}

// GlobalSourceFunc adapts a function to GlobalSource.
type GlobalSourceFunc func(ctx context.Context) (*GlobalConfig, error)

func (f GlobalSourceFunc) Load(ctx context.Context) (*GlobalConfig, error) { return f(ctx) }

// FileGlobalSource reads a CUE document from Path, or the built-in defaults
// when Path is empty. The document is validated against #GlobalConfig.
type FileGlobalSource struct {
	Path string
}

func (s FileGlobalSource) Load(ctx context.Context) (*GlobalConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		src  []byte
		name string
		err  error
	)
	if s.Path == "" {
		name = "default.cue"
		src, err = cueFS.ReadFile("cue/default.cue")
	} else {
		name = s.Path
		src, err = os.ReadFile(s.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading global config %s: %w", name, err)
	}
	return ParseGlobal(name, src)
}

// ParseGlobal validates and decodes a global configuration document.
func ParseGlobal(name string, src []byte) (*GlobalConfig, error) {
	schemaSrc, err := cueFS.ReadFile("cue/schema.cue")
	if err != nil {
		return nil, fmt.Errorf("reading global config schema: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaSrc, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#GlobalConfig"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compiling global config schema: %w", err)
	}
	doc := ctx.CompileBytes(src, cue.Filename(name))
	if err := doc.Err(); err != nil {
		return nil, fmt.Errorf("compiling global config %s: %w", name, err)
	}
	v := schema.Unify(doc)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid global config %s: %w", name, err)
	}

	var gc GlobalConfig
	if err := v.Decode(&gc); err != nil {
		return nil, fmt.Errorf("decoding global config %s: %w", name, err)
	}
	return &gc, nil
}
