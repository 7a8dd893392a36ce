package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/matthewbaird/ioncon/internal/prefs"
)

func (c *Controller) setThemeLocked(id int) {
	c.state.ActiveTheme = id
	for i := range c.state.Themes {
		c.state.Themes[i].Active = c.state.Themes[i].ID == id
	}
}

func (c *Controller) setTextureLocked(id int) {
	c.state.ActiveTexture = id
	for i := range c.state.Textures {
		c.state.Textures[i].Active = c.state.Textures[i].ID == id
	}
}

func (c *Controller) setModuleLocked(id int) {
	c.state.ActiveModule = id
	for i := range c.state.Modules {
		c.state.Modules[i].Active = c.state.Modules[i].ID == id
	}
}

func (c *Controller) setLanguageLocked(code string) {
	c.state.CurrentLanguage = code
	for i := range c.state.Languages {
		c.state.Languages[i].Active = c.state.Languages[i].Code == code
	}
}

// SelectTheme activates and persists a theme.
func (c *Controller) SelectTheme(ctx context.Context, id int) error {
	c.mu.Lock()
	if err := checkOption(c.state.Themes, "theme", id, func(t Theme) (int, bool) { return t.ID, t.Available }); err != nil {
		c.mu.Unlock()
		return err
	}
	c.setThemeLocked(id)
	c.touchLocked()
	c.mu.Unlock()
	return c.persist(ctx, prefs.KeyTheme, id)
}

// SelectTexture activates and persists a wallpaper.
func (c *Controller) SelectTexture(ctx context.Context, id int) error {
	c.mu.Lock()
	if err := checkOption(c.state.Textures, "texture", id, func(t Texture) (int, bool) { return t.ID, t.Available }); err != nil {
		c.mu.Unlock()
		return err
	}
	c.setTextureLocked(id)
	c.touchLocked()
	c.mu.Unlock()
	return c.persist(ctx, prefs.KeyTexture, id)
}

// SelectModule activates and persists a module and loads it.
func (c *Controller) SelectModule(ctx context.Context, id int) error {
	c.mu.Lock()
	if err := checkOption(c.state.Modules, "module", id, func(m Module) (int, bool) { return m.ID, m.Available }); err != nil {
		c.mu.Unlock()
		return err
	}
	c.setModuleLocked(id)
	ready := c.state.Phase == PhaseReady
	c.touchLocked()
	c.mu.Unlock()

	if err := c.persist(ctx, prefs.KeyModule, id); err != nil {
		return err
	}
	if !ready {
		return nil
	}
	return c.loadModule(ctx)
}

// ChangeLanguage switches the text language, closes the open dialog and
// persists the choice. Codes without an official bundle use the closest one.
func (c *Controller) ChangeLanguage(ctx context.Context, code string) error {
	c.mu.Lock()
	if err := checkOption(c.state.Languages, "language", code, func(l Language) (string, bool) { return l.Code, l.Available }); err != nil {
		c.mu.Unlock()
		return err
	}
	c.setLanguageLocked(code)
	c.touchLocked()
	c.mu.Unlock()

	if c.switchLanguage(ctx, code) {
		if err := c.CloseModal(ctx); err != nil {
			c.log.Debug("reload after language change", zap.Error(err))
		}
	}
	return c.persist(ctx, prefs.KeyLanguage, code)
}

// switchLanguage loads the text of code. Failures are reported on the status
// bar.
func (c *Controller) switchLanguage(ctx context.Context, code string) bool {
	consts, err := c.lang.Change(ctx, code)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.failLocked("Error getting language ", err)
		c.touchLocked()
		return false
	}
	c.state.Constants = consts
	c.regridLocked()
	c.touchLocked()
	return true
}

func (c *Controller) persist(ctx context.Context, key string, value any) error {
	if err := c.prefs.Set(ctx, key, value); err != nil {
		c.log.Warn("persist preference", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}

func checkOption[T any, K comparable](items []T, kind string, id K, field func(T) (K, bool)) error {
	for _, item := range items {
		k, available := field(item)
		if k != id {
			continue
		}
		if !available {
			return fmt.Errorf("%w: %s %v", ErrUnavailable, kind, id)
		}
		return nil
	}
	return fmt.Errorf("%w: %s %v", ErrUnknownOption, kind, id)
}
