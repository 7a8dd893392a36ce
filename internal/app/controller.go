// Package app is the controller of the IONCON screen. One Controller owns the
// view state of one browser session: bootstrap, option selection, the record
// list and detail flow, banners and the status bar.
package app

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/matthewbaird/ioncon/internal/banner"
	"github.com/matthewbaird/ioncon/internal/clock"
	"github.com/matthewbaird/ioncon/internal/config"
	"github.com/matthewbaird/ioncon/internal/eventbus"
	"github.com/matthewbaird/ioncon/internal/grid"
	"github.com/matthewbaird/ioncon/internal/language"
	"github.com/matthewbaird/ioncon/internal/mi"
	"github.com/matthewbaird/ioncon/internal/prefs"
	"github.com/matthewbaird/ioncon/internal/statusbar"
	"github.com/matthewbaird/ioncon/internal/types"
)

var (
	ErrBusy          = errors.New("app: operation already in progress for this record")
	ErrUnknownOption = errors.New("app: unknown option")
	ErrUnavailable   = errors.New("app: option not available")
	ErrNotReady      = errors.New("app: application is not ready")
	ErrUnauthorized  = errors.New("app: user is not authorized")
	ErrInvalid       = errors.New("app: invalid record")
	ErrNotFound      = errors.New("app: record not in list")
)

// NotAuthorizedAlert is shown when the authority check fails.
const NotAuthorizedAlert = "NOT Authorized, Please Contact Security"

// Banner categories.
const (
	BannerError   = "error"
	BannerWarning = "warning"
	BannerInfo    = "info"
	BannerMyError = "myError"
)

// Records issues the MI transactions of the screen.
type Records interface {
	CheckAuthority(ctx context.Context, company, division, user, program string, bit int) (bool, error)
	List(ctx context.Context) (*mi.Response, error)
	TableNames(ctx context.Context) (*mi.Response, error)
	GetAlpha(ctx context.Context, pk01, pk02, pk03 string) (*mi.Response, error)
	GetNumeric(ctx context.Context, pk01, pk02, pk03 string) (*mi.Response, error)
	AddAlpha(ctx context.Context, key types.Key, alpha types.Alpha) (*mi.Response, error)
	AddNumeric(ctx context.Context, key types.Key, numeric types.Numeric) (*mi.Response, error)
	ChangeAlpha(ctx context.Context, key types.Key, alpha types.Alpha) (*mi.Response, error)
	ChangeNumeric(ctx context.Context, key types.Key, numeric types.Numeric) (*mi.Response, error)
	DeleteAlpha(ctx context.Context, pk01, pk02, pk03, pk04 string) (*mi.Response, error)
	DeleteNumeric(ctx context.Context, pk01, pk02, pk03, pk04 string) (*mi.Response, error)
	Divisions(ctx context.Context, company, division string) (*mi.Response, error)
	Warehouses(ctx context.Context, company string) (*mi.Response, error)
	Facilities(ctx context.Context, company, division string) (*mi.Response, error)
	Customers(ctx context.Context, company string) (*mi.Response, error)
}

// Languages loads translated text.
type Languages interface {
	Default(ctx context.Context) (language.Constants, error)
	Change(ctx context.Context, code string) (language.Constants, error)
}

// UserSource resolves the signed-in user.
type UserSource interface {
	UserContext(ctx context.Context) (UserContext, error)
}

// UserSourceFunc adapts a function to UserSource.
type UserSourceFunc func(ctx context.Context) (UserContext, error)

func (f UserSourceFunc) UserContext(ctx context.Context) (UserContext, error) { return f(ctx) }

// StaticUser always resolves to u.
func StaticUser(u config.UserConfig) UserSource {
	return UserSourceFunc(func(context.Context) (UserContext, error) {
		return UserContext{
			Company:   u.Company,
			Division:  u.Division,
			User:      u.User,
			Warehouse: u.Warehouse,
			Facility:  u.Facility,
			Language:  u.Language,
		}, nil
	})
}

// Deps are the collaborators of a Controller. Records, Language and Global
// are required.
type Deps struct {
	Records  Records
	Language Languages
	Global   config.GlobalSource
	Prefs    prefs.Store
	Users    UserSource
	Bus      eventbus.Publisher
	Clock    clock.Clock
	Logger   *zap.Logger
}

// Controller owns the view state of one session. Remote calls run without the
// state lock held; every state change bumps the version and publishes
// eventbus.StateChanged.
type Controller struct {
	id      string
	records Records
	lang    Languages
	source  config.GlobalSource
	prefs   prefs.Store
	grids   *grid.StateStore
	users   UserSource
	bus     eventbus.Publisher
	clock   clock.Clock
	log     *zap.Logger

	mu      sync.Mutex
	state   ViewState
	global  *config.GlobalConfig
	banners map[string]*banner.Banner
	status  *statusbar.Log
	loaded  *types.Record
	busy    map[types.Key]bool
}

// New creates the controller of session id.
func New(id string, d Deps) *Controller {
	if d.Clock == nil {
		d.Clock = clock.Real{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Prefs == nil {
		d.Prefs = prefs.NewMemoryStore()
	}
	if d.Users == nil {
		d.Users = StaticUser(config.UserConfig{})
	}
	c := &Controller{
		id:      id,
		records: d.Records,
		lang:    d.Language,
		source:  d.Global,
		prefs:   d.Prefs,
		grids:   grid.NewStateStore(d.Prefs),
		users:   d.Users,
		bus:     d.Bus,
		clock:   d.Clock,
		log:     d.Logger.Named("app").With(zap.String("session", id)),
		busy:    make(map[types.Key]bool),
	}
	c.status = statusbar.New(d.Clock.Now)
	c.banners = map[string]*banner.Banner{
		BannerError:   banner.New(BannerError, banner.ErrorTTL, d.Clock, &c.mu, c.bannerExpired),
		BannerWarning: banner.New(BannerWarning, banner.ShortTTL, d.Clock, &c.mu, c.bannerExpired),
		BannerInfo:    banner.New(BannerInfo, banner.ShortTTL, d.Clock, &c.mu, c.bannerExpired),
		BannerMyError: banner.New(BannerMyError, banner.ShortTTL, d.Clock, &c.mu, c.bannerExpired),
	}
	c.state = ViewState{
		Phase:           PhaseIdle,
		Constants:       language.Fallback(),
		CurrentLanguage: DefaultLanguage,
		Themes:          themes(),
		Textures:        textures(),
		Languages:       languages(),
		Modules:         modules(),
		ActiveModule:    DefaultModuleID,
		GlobalSelection: GlobalSelection{Reload: true},
		IONCON:          ModuleState{Reload: true, Record: types.NewRecord()},
		InfiniteScroll:  InfiniteScroll{NumToAdd: ScrollStep, CurrentItems: ScrollInitial},
	}
	c.regridLocked()
	return c
}

// ID returns the session id.
func (c *Controller) ID() string { return c.id }

// Snapshot returns a deep copy of the view state.
func (c *Controller) Snapshot() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state.clone()
	s.Banners = make(map[string]banner.View, len(c.banners))
	for name, b := range c.banners {
		s.Banners[name] = b.View()
	}
	s.StatusBar = c.status.View()
	return s
}

// Version returns the current state version.
func (c *Controller) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Version
}

// Close cancels the banner timers.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range c.banners {
		b.Hide()
	}
}

// bannerExpired runs with c.mu held.
func (c *Controller) bannerExpired(name string) {
	c.changedLocked(eventbus.BannerExpired, name)
}

func (c *Controller) changedLocked(eventType, detail string) {
	c.state.Version++
	if c.bus != nil {
		c.bus.Publish(context.Background(), eventbus.NewEvent(eventType, c.id, c.state.Version, detail))
	}
}

func (c *Controller) touchLocked() { c.changedLocked(eventbus.StateChanged, "") }

// refreshTransactionStatusLocked recomputes LoadingData: application and
// global flags first, then the flags of the active module.
func (c *Controller) refreshTransactionStatusLocked() {
	loading := c.state.TransactionStatus.AppConfig || c.state.GlobalSelection.TransactionStatus.IONCONTableList
	if !loading && c.state.ActiveModule == ModuleIONCON {
		loading = c.state.IONCON.TransactionStatus.inFlight()
	}
	c.state.LoadingData = loading
}

// regridLocked rebuilds the list grid with the current labels, keeping the
// user's layout and height.
func (c *Controller) regridLocked() {
	height := c.state.Grid.Height
	c.state.Grid = grid.Apply(grid.IONCONList(c.state.Constants.Get), grid.StateOf(c.state.Grid))
	if height > 0 {
		c.state.Grid.Height = height
	}
}

func (c *Controller) authorizedLocked() bool {
	return c.state.AppConfig.AuthorizedUser
}

func (c *Controller) requireReadyLocked() error {
	if c.state.Phase != PhaseReady {
		return ErrNotReady
	}
	return nil
}

// acquireLocked marks key busy and returns its release function.
func (c *Controller) acquireLocked(key types.Key) (func(), error) {
	if c.busy[key] {
		return nil, ErrBusy
	}
	c.busy[key] = true
	return func() {
		c.mu.Lock()
		delete(c.busy, key)
		c.mu.Unlock()
	}, nil
}
