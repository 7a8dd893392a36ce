package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/duke-git/lancet/v2/slice"
	"go.uber.org/zap"

	"github.com/matthewbaird/ioncon/internal/config"
	"github.com/matthewbaird/ioncon/internal/eventbus"
	"github.com/matthewbaird/ioncon/internal/language"
	"github.com/matthewbaird/ioncon/internal/mi"
	"github.com/matthewbaird/ioncon/internal/prefs"
	"github.com/matthewbaird/ioncon/internal/service"
)

// Phase is a bootstrap step.
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseLanguageLoading Phase = "languageLoading"
	PhaseConfigLoading   Phase = "configLoading"
	PhaseAuthorizing     Phase = "authorizing"
	PhaseListLoading     Phase = "listLoading"
	PhaseReady           Phase = "ready"
	PhaseUnauthorized    Phase = "unauthorized"
	PhaseFailed          Phase = "failed"
)

// ErrTransition is returned when the bootstrap is started from a phase that
// does not allow it, typically because one is already running.
var ErrTransition = errors.New("app: phase transition not allowed")

var phaseTransitions = map[Phase][]Phase{
	PhaseIdle:            {PhaseLanguageLoading},
	PhaseLanguageLoading: {PhaseConfigLoading},
	PhaseConfigLoading:   {PhaseAuthorizing, PhaseFailed},
	PhaseAuthorizing:     {PhaseListLoading, PhaseUnauthorized},
	PhaseListLoading:     {PhaseReady},
	PhaseReady:           {PhaseLanguageLoading},
	PhaseUnauthorized:    {PhaseLanguageLoading},
	PhaseFailed:          {PhaseLanguageLoading},
}

// ValidateTransition checks whether moving from current to target is allowed
// according to the given transition map.
func ValidateTransition(transitions map[Phase][]Phase, current, target Phase) error {
	allowed, ok := transitions[current]
	if !ok {
		return fmt.Errorf("%w: unknown current phase %s", ErrTransition, current)
	}
	for _, p := range allowed {
		if p == target {
			return nil
		}
	}
	return fmt.Errorf("%w: %q to %q", ErrTransition, current, target)
}

func (c *Controller) enterLocked(p Phase) error {
	if err := ValidateTransition(phaseTransitions, c.state.Phase, p); err != nil {
		return err
	}
	c.log.Debug("phase", zap.String("from", string(c.state.Phase)), zap.String("to", string(p)))
	c.state.Phase = p
	c.changedLocked(eventbus.PhaseChanged, string(p))
	return nil
}

// Bootstrap runs the start-up sequence: language, global configuration and
// selections, user context, authority check and the first list load. query
// holds the page parameters (divi, whlo, faci override the user context).
//
// A failed configuration load ends in PhaseFailed; a denied authority check
// ends in PhaseUnauthorized and returns ErrUnauthorized. List failures are
// reported on the screen and still end in PhaseReady.
func (c *Controller) Bootstrap(ctx context.Context, query map[string]string) error {
	c.mu.Lock()
	if err := c.enterLocked(PhaseLanguageLoading); err != nil {
		c.mu.Unlock()
		return err
	}
	c.state.AppReady = false
	c.state.Alert = ""
	c.state.AppConfig = AppStatus{SearchQuery: cloneMap(query)}
	c.mu.Unlock()

	c.loadLanguage(ctx)

	gc, err := c.loadGlobalConfig(ctx)
	if err != nil {
		return err
	}
	c.applySelections(ctx, gc)

	user := c.loadUserContext(ctx)
	if err := c.authorize(ctx, gc, user); err != nil {
		return err
	}

	if err := c.loadModule(ctx); err != nil {
		c.log.Debug("initial list load failed", zap.Error(err))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enterLocked(PhaseReady); err != nil {
		return err
	}
	c.state.AppReady = true
	c.touchLocked()
	return nil
}

// loadLanguage loads the default text. A failure leaves the built-in English
// text in place.
func (c *Controller) loadLanguage(ctx context.Context) {
	consts, err := c.lang.Default(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.failLocked("Error getting language constants ", err)
		consts = language.Fallback()
	}
	c.state.Constants = consts
	c.regridLocked()
	_ = c.enterLocked(PhaseConfigLoading)
}

func (c *Controller) loadGlobalConfig(ctx context.Context) (*config.GlobalConfig, error) {
	gc, err := c.source.Load(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.failLocked("Error while getting global configuration ", err)
		c.state.LoadingData = false
		_ = c.enterLocked(PhaseFailed)
		return nil, fmt.Errorf("load global configuration: %w", err)
	}
	c.global = gc
	return gc, nil
}

// applySelections picks theme, texture, module and language: the persisted
// choice, else the configured default, else the fallback. A choice excluded
// by the global config is skipped; excluded options are flagged unavailable.
func (c *Controller) applySelections(ctx context.Context, gc *config.GlobalConfig) {
	themeID := c.pickInt(ctx, prefs.KeyTheme, gc.DefaultThemeID, DefaultThemeID, gc.ExcludeThemes)
	textureID := c.pickInt(ctx, prefs.KeyTexture, gc.DefaultTextureID, DefaultTextureID, gc.ExcludeWallpapers)
	moduleID := c.pickInt(ctx, prefs.KeyModule, nil, DefaultModuleID, gc.ExcludeModules)
	code := c.pickString(ctx, prefs.KeyLanguage, gc.DefaultLanguage, DefaultLanguage, gc.ExcludeLanguages)

	c.mu.Lock()
	c.setThemeLocked(themeID)
	c.setTextureLocked(textureID)
	c.setModuleLocked(moduleID)
	c.setLanguageLocked(code)
	markAvailable(c.state.Themes, gc.ExcludeThemes, func(t *Theme) (int, *bool) { return t.ID, &t.Available })
	markAvailable(c.state.Textures, gc.ExcludeWallpapers, func(t *Texture) (int, *bool) { return t.ID, &t.Available })
	markAvailable(c.state.Modules, gc.ExcludeModules, func(m *Module) (int, *bool) { return m.ID, &m.Available })
	markAvailable(c.state.Languages, gc.ExcludeLanguages, func(l *Language) (string, *bool) { return l.Code, &l.Available })
	c.touchLocked()
	c.mu.Unlock()

	_ = c.persist(ctx, prefs.KeyTheme, themeID)
	_ = c.persist(ctx, prefs.KeyTexture, textureID)

	if code != DefaultLanguage {
		c.switchLanguage(ctx, code)
	}
}

func markAvailable[T any, K comparable](items []T, excluded []K, field func(*T) (K, *bool)) {
	skip := make(map[K]bool, len(excluded))
	for _, k := range excluded {
		skip[k] = true
	}
	for i := range items {
		k, available := field(&items[i])
		*available = !skip[k]
	}
}

// firstAllowed returns the first candidate not in excluded. The fallback is
// used when every candidate is excluded.
func firstAllowed[K comparable](excluded []K, fallback K, candidates ...K) K {
	for _, k := range candidates {
		if !slice.Contain(excluded, k) {
			return k
		}
	}
	return fallback
}

func (c *Controller) pickInt(ctx context.Context, key string, configured *int, fallback int, excluded []int) int {
	v, ok, err := prefs.Int(ctx, c.prefs, key)
	if err != nil {
		c.log.Warn("read preference", zap.String("key", key), zap.Error(err))
	}
	var candidates []int
	if ok {
		candidates = append(candidates, v)
	}
	if configured != nil {
		candidates = append(candidates, *configured)
	}
	return firstAllowed(excluded, fallback, candidates...)
}

func (c *Controller) pickString(ctx context.Context, key, configured, fallback string, excluded []string) string {
	v, ok, err := prefs.String(ctx, c.prefs, key)
	if err != nil {
		c.log.Warn("read preference", zap.String("key", key), zap.Error(err))
	}
	var candidates []string
	if ok {
		candidates = append(candidates, v)
	}
	if configured != "" {
		candidates = append(candidates, configured)
	}
	return firstAllowed(excluded, fallback, candidates...)
}

// loadUserContext resolves the user. A failure is reported and bootstrap
// continues with an empty context.
func (c *Controller) loadUserContext(ctx context.Context) UserContext {
	c.mu.Lock()
	c.state.LoadingData = true
	c.touchLocked()
	c.mu.Unlock()

	user, err := c.users.UserContext(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		const msg = "Can't get user context from h5 "
		c.failLocked(msg, err)
		c.banners[BannerError].Show(msg, err.Error())
		user = UserContext{}
	}
	c.state.UserContext = user
	c.refreshTransactionStatusLocked()
	_ = c.enterLocked(PhaseAuthorizing)
	return user
}

// authorize runs the authority check and, when granted, derives the default
// selections.
func (c *Controller) authorize(ctx context.Context, gc *config.GlobalConfig, user UserContext) error {
	program, bit := gc.App.AuthorityProgram, gc.App.AuthorityBit
	if program == "" {
		program = "CRZ009"
	}

	c.mu.Lock()
	c.state.AppConfig.EnableM3Authority = gc.App.EnableM3Authority
	c.state.TransactionStatus.AppConfig = gc.App.EnableM3Authority
	c.refreshTransactionStatusLocked()
	c.touchLocked()
	c.mu.Unlock()

	authorized := true
	var err error
	if gc.App.EnableM3Authority {
		authorized, err = c.records.CheckAuthority(ctx, user.Company, user.Division, user.User, program, bit)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.TransactionStatus.AppConfig = false
	c.refreshTransactionStatusLocked()
	if err != nil {
		c.reportCallLocked(err, service.ProgramAuthority, service.TxSelAuthority,
			mi.Request{"DIVI": user.Division, "USID": user.User, "PGNM": program})
		authorized = false
	}
	c.state.AppConfig.AuthorizedUser = authorized
	if !authorized {
		c.log.Info("user not authorized", zap.String("user", user.User), zap.String("program", program))
		c.state.Alert = NotAuthorizedAlert
		_ = c.enterLocked(PhaseUnauthorized)
		return ErrUnauthorized
	}
	c.banners[BannerWarning].Hide()
	c.loadDefaultFieldsLocked()
	return c.enterLocked(PhaseListLoading)
}

// loadDefaultFieldsLocked takes the division, warehouse and facility from
// the page parameters, else from the user context.
func (c *Controller) loadDefaultFieldsLocked() {
	q := c.state.AppConfig.SearchQuery
	u := c.state.UserContext
	pick := func(param, fallback string) string {
		if v, ok := q[param]; ok {
			return v
		}
		return fallback
	}
	c.state.GlobalSelection.Division = Selected{Selected: pick("divi", u.Division)}
	c.state.GlobalSelection.Warehouse = Selected{Selected: pick("whlo", u.Warehouse)}
	c.state.GlobalSelection.Facility = Selected{Selected: pick("faci", u.Facility)}
}

// loadModule loads the active module when it is flagged for reload.
func (c *Controller) loadModule(ctx context.Context) error {
	c.mu.Lock()
	c.refreshTransactionStatusLocked()
	reload := false
	if c.state.ActiveModule == ModuleIONCON {
		reload = c.state.IONCON.Reload
		if reload {
			c.state.IONCON.List = nil
		}
		c.state.IONCON.Reload = false
	}
	c.touchLocked()
	c.mu.Unlock()

	if !reload {
		return nil
	}
	return c.loadList(ctx)
}

// ReloadAll clears the module data and loads the active module again.
func (c *Controller) ReloadAll(ctx context.Context) error {
	c.mu.Lock()
	if err := c.requireReadyLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.state.IONCON.List = nil
	c.state.IONCON.Reload = true
	c.touchLocked()
	c.mu.Unlock()
	return c.loadModule(ctx)
}
