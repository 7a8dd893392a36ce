package app

import (
	"github.com/matthewbaird/ioncon/internal/banner"
	"github.com/matthewbaird/ioncon/internal/grid"
	"github.com/matthewbaird/ioncon/internal/language"
	"github.com/matthewbaird/ioncon/internal/statusbar"
	"github.com/matthewbaird/ioncon/internal/types"
)

// ViewState is everything the screen renders. The controller owns it; readers
// receive deep copies from Snapshot. Version increases on every change.
type ViewState struct {
	Version         uint64             `json:"version"`
	Phase           Phase              `json:"phase"`
	AppReady        bool               `json:"appReady"`
	LoadingData     bool               `json:"loadingData"`
	Constants       language.Constants `json:"languageConstants"`
	CurrentLanguage string             `json:"currentLanguage"`

	Themes        []Theme    `json:"themes"`
	Textures      []Texture  `json:"textures"`
	Languages     []Language `json:"supportedLanguages"`
	Modules       []Module   `json:"modules"`
	ActiveTheme   int        `json:"activeTheme"`
	ActiveTexture int        `json:"activeTexture"`
	ActiveModule  int        `json:"activeModule"`

	UserContext       UserContext            `json:"userContext"`
	AppConfig         AppStatus              `json:"appConfig"`
	TransactionStatus AppTransactions        `json:"transactionStatus"`
	GlobalSelection   GlobalSelection        `json:"globalSelection"`
	IONCON            ModuleState            `json:"IONCONModule"`
	Grid              grid.Definition        `json:"IONCONListGrid"`
	InfiniteScroll    InfiniteScroll         `json:"infiniteScroll"`
	Modal             *Modal                 `json:"modal,omitempty"`
	Alert             string                 `json:"alert,omitempty"`
	Banners           map[string]banner.View `json:"banners"`
	StatusBar         statusbar.View         `json:"statusBar"`
}

// UserContext identifies the signed-in ERP user.
type UserContext struct {
	Company   string `json:"company"`
	Division  string `json:"division"`
	User      string `json:"m3User"`
	Warehouse string `json:"WHLO"`
	Facility  string `json:"FACI"`
	Language  string `json:"language"`
}

// AppStatus is the outcome of the authority check.
type AppStatus struct {
	EnableM3Authority bool              `json:"enableM3Authority"`
	AuthorizedUser    bool              `json:"authorizedUser"`
	SearchQuery       map[string]string `json:"searchQuery"`
}

// AppTransactions are the application-level in-flight flags.
type AppTransactions struct {
	AppConfig bool `json:"appConfig"`
}

// GlobalSelection holds the selections shared by all modules.
type GlobalSelection struct {
	Reload            bool               `json:"reload"`
	TransactionStatus GlobalTransactions `json:"transactionStatus"`
	Division          Selected           `json:"division"`
	Warehouse         Selected           `json:"warehouse"`
	Facility          Selected           `json:"facility"`
}

// GlobalTransactions are the global-selection in-flight flags.
type GlobalTransactions struct {
	IONCONTableList bool `json:"IONCONTableList"`
}

// Selected wraps a selected option value.
type Selected struct {
	Selected string `json:"selected,omitempty"`
}

// ModuleState is the state of the IONCON module.
type ModuleState struct {
	Reload            bool               `json:"reload"`
	TransactionStatus ModuleTransactions `json:"transactionStatus"`
	List              []types.Record     `json:"IONCONList"`
	SelectedRow       *types.Record      `json:"selectedIONCONListRow,omitempty"`
	Record            types.Record       `json:"IONCONRecord"`
	IsMultipleAdd     bool               `json:"isMultipleAdd"`
}

// ModuleTransactions are the module's in-flight flags.
type ModuleTransactions struct {
	IONCONList   bool `json:"IONCONList"`
	IONCONRecord bool `json:"IONCONRecord"`
}

func (t ModuleTransactions) inFlight() bool { return t.IONCONList || t.IONCONRecord }

// InfiniteScroll is the incremental rendering window of long lists.
type InfiniteScroll struct {
	NumToAdd     int `json:"numToAdd"`
	CurrentItems int `json:"currentItems"`
}

// Scroll window defaults.
const (
	ScrollStep    = 20
	ScrollInitial = 20
)

func (s ViewState) clone() ViewState {
	out := s
	out.Constants = cloneMap(s.Constants)
	out.Themes = append([]Theme(nil), s.Themes...)
	out.Textures = append([]Texture(nil), s.Textures...)
	out.Languages = append([]Language(nil), s.Languages...)
	out.Modules = append([]Module(nil), s.Modules...)
	out.AppConfig.SearchQuery = cloneMap(s.AppConfig.SearchQuery)
	out.IONCON.List = append([]types.Record(nil), s.IONCON.List...)
	if s.IONCON.SelectedRow != nil {
		row := *s.IONCON.SelectedRow
		out.IONCON.SelectedRow = &row
	}
	out.Grid.Columns = append([]grid.Column(nil), s.Grid.Columns...)
	if s.Modal != nil {
		m := *s.Modal
		out.Modal = &m
	}
	out.Banners = make(map[string]banner.View, len(s.Banners))
	for k, v := range s.Banners {
		out.Banners[k] = v
	}
	return out
}

func cloneMap[M ~map[string]string](m M) M {
	if m == nil {
		return nil
	}
	out := make(M, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
