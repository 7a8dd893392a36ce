// Package handler exposes the IONCON screen over HTTP. Every request acts on
// the controller of its session; mutating calls answer with the new view
// state.
package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/matthewbaird/ioncon/internal/app"
	"github.com/matthewbaird/ioncon/internal/eventbus"
	"github.com/matthewbaird/ioncon/internal/grid"
	"github.com/matthewbaird/ioncon/internal/session"
	"github.com/matthewbaird/ioncon/internal/types"
)

// Subscriber delivers bus events to a handler.
type Subscriber interface {
	Subscribe(name string, h eventbus.Handler) (unsubscribe func())
}

// ScreenHandler implements the HTTP handlers of the screen.
type ScreenHandler struct {
	sessions *session.Manager[*app.Controller]
	events   Subscriber
	log      *zap.Logger
}

// NewScreenHandler creates a ScreenHandler.
func NewScreenHandler(sessions *session.Manager[*app.Controller], events Subscriber, log *zap.Logger) *ScreenHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ScreenHandler{sessions: sessions, events: events, log: log.Named("http")}
}

// Routes returns the router with all screen routes and middleware.
func (h *ScreenHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(Recovery(h.log))
	r.Use(Logging(h.log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": h.sessions.Len()})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(Sessions(h.sessions))

		r.Get("/state", h.GetState)
		r.Post("/bootstrap", h.Bootstrap)
		r.Post("/reload", h.Reload)
		r.Get("/stream", h.Stream)

		r.Route("/records", func(r chi.Router) {
			r.Get("/", h.ListRecords)
			r.Post("/", h.AddRecord)
			r.Post("/new", h.OpenAdd)
			r.Post("/clear", h.ClearFields)
			r.Post("/multiple", h.SetMultipleAdd)
			r.Get("/{pk01}/{pk02}/{pk03}", h.OpenDetail)
			r.Put("/current", h.SaveRecord)
			r.Patch("/current", h.EditRecord)
			r.Delete("/current", h.DeleteRecord)
		})

		r.Post("/preferences/{kind}", h.SetPreference)
		r.Post("/modals/{name}", h.OpenModal)
		r.Delete("/modals/current", h.CloseModal)
		r.Delete("/banners/{category}", h.HideBanner)
		r.Delete("/statusbar", h.ClearStatus)
		r.Delete("/statusbar/{index}", h.RemoveStatus)
		r.Put("/statusbar/collapsed", h.SetStatusCollapsed)

		r.Post("/grids/{name}/events", h.GridEvent)
		r.Get("/grids/{name}/state", h.GridState)
		r.Post("/grids/{name}/copy", h.CopyCells)
		r.Post("/scroll/more", h.AddMoreItems)

		r.Get("/lookups/{kind}", h.Lookup)
	})
	return r
}

// respond writes the state after a controller call, or the mapped error.
func respond(w http.ResponseWriter, c *app.Controller, err error) {
	if err != nil {
		appErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

func (h *ScreenHandler) GetState(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r.Context())
	writeJSON(w, http.StatusOK, c.Snapshot())
}

// Bootstrap starts the screen. Query parameters (divi, whlo, faci) are
// passed through as page parameters.
func (h *ScreenHandler) Bootstrap(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r.Context())
	query := make(map[string]string)
	for k, v := range r.URL.Query() {
		if k != "session" && len(v) > 0 {
			query[k] = v[0]
		}
	}
	respond(w, c, c.Bootstrap(r.Context(), query))
}

func (h *ScreenHandler) Reload(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r.Context())
	respond(w, c, c.ReloadAll(r.Context()))
}

func (h *ScreenHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r.Context())
	if err := c.LoadList(r.Context()); err != nil {
		appErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot().IONCON.List)
}

func (h *ScreenHandler) OpenDetail(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r.Context())
	key := types.Key{
		PK01: chi.URLParam(r, "pk01"),
		PK02: chi.URLParam(r, "pk02"),
		PK03: chi.URLParam(r, "pk03"),
	}
	if err := c.OpenDetail(r.Context(), key); err != nil {
		appErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot().IONCON.Record)
}

// editFirst applies a non-empty request body to the open record.
func editFirst(r *http.Request, c *app.Controller) error {
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil || len(body) == 0 {
		return err
	}
	return c.EditRecord(body)
}

func (h *ScreenHandler) AddRecord(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r.Context())
	if err := editFirst(r, c); err != nil {
		appErrorToHTTP(w, err)
		return
	}
	respond(w, c, c.Add(r.Context()))
}

func (h *ScreenHandler) SaveRecord(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r.Context())
	if err := editFirst(r, c); err != nil {
		appErrorToHTTP(w, err)
		return
	}
	respond(w, c, c.Save(r.Context()))
}

func (h *ScreenHandler) EditRecord(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r.Context())
	respond(w, c, editFirst(r, c))
}

func (h *ScreenHandler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r.Context())
	respond(w, c, c.Delete(r.Context()))
}

func (h *ScreenHandler) OpenAdd(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r.Context())
	respond(w, c, c.OpenAdd())
}

func (h *ScreenHandler) ClearFields(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r.Context())
	c.ClearFields()
	respond(w, c, nil)
}

type multipleRequest struct {
	Multiple bool `json:"multiple"`
}

func (h *ScreenHandler) SetMultipleAdd(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r.Context())
	var req multipleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	c.SetMultipleAdd(req.Multiple)
	respond(w, c, nil)
}

type preferenceRequest struct {
	ID   int    `json:"id"`
	Code string `json:"code"`
}

// SetPreference selects a theme, texture, module or language.
func (h *ScreenHandler) SetPreference(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r.Context())
	var req preferenceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	var err error
	switch kind := chi.URLParam(r, "kind"); kind {
	case "theme":
		err = c.SelectTheme(r.Context(), req.ID)
	case "texture":
		err = c.SelectTexture(r.Context(), req.ID)
	case "module":
		err = c.SelectModule(r.Context(), req.ID)
	case "language":
		err = c.ChangeLanguage(r.Context(), req.Code)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "unknown preference: "+kind)
		return
	}
	respond(w, c, err)
}

func (h *ScreenHandler) OpenModal(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r.Context())
	respond(w, c, c.OpenModal(app.ModalName(chi.URLParam(r, "name"))))
}

func (h *ScreenHandler) CloseModal(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r.Context())
	respond(w, c, c.CloseModal(r.Context()))
}

func (h *ScreenHandler) HideBanner(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r.Context())
	respond(w, c, c.HideBanner(chi.URLParam(r, "category")))
}

func (h *ScreenHandler) ClearStatus(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r.Context())
	c.ClearStatus()
	respond(w, c, nil)
}

func (h *ScreenHandler) RemoveStatus(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r.Context())
	index, ok := parseIntParam(w, r, "index")
	if !ok {
		return
	}
	if !c.RemoveStatus(index) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no status entry at that index")
		return
	}
	respond(w, c, nil)
}

type collapsedRequest struct {
	Collapsed bool `json:"collapsed"`
}

func (h *ScreenHandler) SetStatusCollapsed(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r.Context())
	var req collapsedRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	c.SetStatusCollapsed(req.Collapsed)
	respond(w, c, nil)
}

type gridEventRequest struct {
	Event grid.EventType `json:"event"`
	State grid.State     `json:"state"`
	Row   *types.Key     `json:"row,omitempty"`
}

func (h *ScreenHandler) GridEvent(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r.Context())
	var req gridEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	respond(w, c, c.GridEvent(r.Context(), chi.URLParam(r, "name"), req.Event, req.State, req.Row))
}

func (h *ScreenHandler) GridState(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r.Context())
	st, err := c.GridState(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		appErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type copyRequest struct {
	Cells []grid.CellRef `json:"cells"`
}

// CopyCells answers with the clipboard text of the selected cells.
func (h *ScreenHandler) CopyCells(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r.Context())
	if name := chi.URLParam(r, "name"); name != grid.ListName {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "unknown grid: "+name)
		return
	}
	var req copyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, c.CopyCells(req.Cells))
}

func (h *ScreenHandler) AddMoreItems(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r.Context())
	writeJSON(w, http.StatusOK, c.AddMoreItems())
}

func (h *ScreenHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r.Context())
	rows, err := c.Lookup(r.Context(), chi.URLParam(r, "kind"))
	if err != nil {
		appErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
