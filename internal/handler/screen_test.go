package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/ioncon/internal/app"
	"github.com/matthewbaird/ioncon/internal/clock"
	"github.com/matthewbaird/ioncon/internal/config"
	"github.com/matthewbaird/ioncon/internal/eventbus"
	"github.com/matthewbaird/ioncon/internal/language"
	"github.com/matthewbaird/ioncon/internal/mi"
	"github.com/matthewbaird/ioncon/internal/mi/mitest"
	"github.com/matthewbaird/ioncon/internal/prefs"
	"github.com/matthewbaird/ioncon/internal/service"
	"github.com/matthewbaird/ioncon/internal/session"
	"github.com/matthewbaird/ioncon/internal/types"
)

type testServer struct {
	srv *httptest.Server
	gw  *mitest.Gateway
	bus *eventbus.Bus
}

func newTestServer(t *testing.T, alo string) *testServer {
	t.Helper()
	lang, err := language.New()
	require.NoError(t, err)

	gw := mitest.New().
		On(service.ProgramAuthority, service.TxSelAuthority, mitest.Items(mi.Record{"ALO": alo})).
		On(service.ProgramExtension, service.TxListAlpha, mitest.Items(
			mi.Record{"KPID": types.KPID, "PK01": "WH_CON", "PK02": "WH", "PK03": "A", "AL30": "first"},
			mi.Record{"KPID": types.KPID, "PK01": "WH_CON2", "PK02": "WH", "PK03": "B", "AL30": "second"},
		))
	bus := eventbus.New(64, nil)
	ctx, cancel := context.WithCancel(context.Background())
	bus.Start(ctx)

	store := prefs.NewMemoryStore()
	clk := clock.NewFake(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	global := config.GlobalSourceFunc(func(context.Context) (*config.GlobalConfig, error) {
		return &config.GlobalConfig{App: config.AppConfig{EnableM3Authority: true, AuthorityProgram: "CRZ009", AuthorityBit: 1}}, nil
	})
	sessions := session.NewManager(time.Hour, time.Hour, clk, func(id string) *app.Controller {
		return app.New(id, app.Deps{
			Records:  service.NewRecordService(gw, nil),
			Language: lang,
			Global:   global,
			Prefs:    store,
			Users:    app.StaticUser(config.UserConfig{Company: "100", Division: "AAA", User: "JDOE"}),
			Bus:      bus,
			Clock:    clk,
		})
	}, (*app.Controller).Close)

	srv := httptest.NewServer(NewScreenHandler(sessions, bus, nil).Routes())
	t.Cleanup(func() {
		srv.Close()
		cancel()
		bus.Stop()
	})
	return &testServer{srv: srv, gw: gw, bus: bus}
}

func (ts *testServer) do(t *testing.T, method, path, sessionID, body string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, rd)
	require.NoError(t, err)
	if sessionID != "" {
		req.Header.Set(session.Header, sessionID)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func (ts *testServer) bootstrap(t *testing.T) string {
	t.Helper()
	resp, body := ts.do(t, http.MethodPost, "/v1/bootstrap", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	id := resp.Header.Get(session.Header)
	require.NotEmpty(t, id)
	return id
}

func decodeState(t *testing.T, b []byte) app.ViewState {
	t.Helper()
	var s app.ViewState
	require.NoError(t, json.Unmarshal(b, &s))
	return s
}

func decodeError(t *testing.T, b []byte) errorBody {
	t.Helper()
	var e errorBody
	require.NoError(t, json.Unmarshal(b, &e))
	return e
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, "01")
	resp, body := ts.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)
	assert.Empty(t, resp.Header.Get(session.Header))
}

func TestBootstrapAndSessionReuse(t *testing.T) {
	ts := newTestServer(t, "01")
	id := ts.bootstrap(t)

	resp, body := ts.do(t, http.MethodGet, "/v1/state", id, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, id, resp.Header.Get(session.Header))
	s := decodeState(t, body)
	assert.Equal(t, app.PhaseReady, s.Phase)
	assert.True(t, s.AppReady)
	assert.Len(t, s.IONCON.List, 2)

	resp, body = ts.do(t, http.MethodGet, "/v1/state", "", "")
	assert.NotEqual(t, id, resp.Header.Get(session.Header), "no header starts a new session")
	assert.Equal(t, app.PhaseIdle, decodeState(t, body).Phase)
}

func TestNotReady(t *testing.T) {
	ts := newTestServer(t, "01")
	resp, body := ts.do(t, http.MethodPost, "/v1/records/new", "", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "NOT_READY", decodeError(t, body).Code)
}

func TestUnauthorized(t *testing.T) {
	ts := newTestServer(t, "00")
	resp, body := ts.do(t, http.MethodPost, "/v1/bootstrap", "", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	e := decodeError(t, body)
	assert.Equal(t, "UNAUTHORIZED", e.Code)
	assert.Equal(t, app.NotAuthorizedAlert, e.Error)
}

func TestListAndDetail(t *testing.T) {
	ts := newTestServer(t, "01")
	id := ts.bootstrap(t)

	resp, body := ts.do(t, http.MethodGet, "/v1/records", id, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rows []types.Record
	require.NoError(t, json.Unmarshal(body, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "second", rows[1].AL30)

	ts.gw.On(service.ProgramExtension, service.TxGetAlpha, mitest.Items(
		mi.Record{"KPID": types.KPID, "PK01": "WH_CON", "PK02": "WH", "PK03": "A", "AL30": "first"}))
	ts.gw.On(service.ProgramExtension, service.TxGetNumeric, mitest.Items(mi.Record{"N096": "1"}))
	resp, body = ts.do(t, http.MethodGet, "/v1/records/WH_CON/WH/A", id, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var rec types.Record
	require.NoError(t, json.Unmarshal(body, &rec))
	assert.Equal(t, "first", rec.AL30)
	assert.True(t, rec.N096)

	resp, body = ts.do(t, http.MethodPut, "/v1/records/current", id, `{"AL30":"renamed"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Nil(t, decodeState(t, body).Modal)
	calls := ts.gw.CallsTo(service.ProgramExtension, service.TxChangeAlpha)
	require.Len(t, calls, 1)
	assert.Equal(t, "renamed", calls[0].Request["AL30"])
}

func TestMIErrorMapsToBadGateway(t *testing.T) {
	ts := newTestServer(t, "01")
	id := ts.bootstrap(t)
	ts.gw.On(service.ProgramExtension, service.TxGetAlpha, mitest.Fail("XRE0103", "PK01", "Record does not exist"))

	resp, body := ts.do(t, http.MethodGet, "/v1/records/NOPE/WH/A", id, "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	e := decodeError(t, body)
	assert.Equal(t, "MI_ERROR", e.Code)
	assert.Equal(t, "Record does not exist", e.Error)
	assert.Equal(t, "PK01", e.Field)
	assert.True(t, strings.HasPrefix(e.Diagnostic, "API: CUSEXTMI.GetAlphaKPI, Input: "))
	assert.True(t, strings.HasSuffix(e.Diagnostic, "Error Code: XRE0103"))
}

func TestAddRecord(t *testing.T) {
	ts := newTestServer(t, "01")
	id := ts.bootstrap(t)

	resp, _ := ts.do(t, http.MethodPost, "/v1/records/new", id, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body := ts.do(t, http.MethodPost, "/v1/records", id, `{"PK02":"WH","PK03":"C","AL30":"third","AL35":"ORD"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	calls := ts.gw.CallsTo(service.ProgramExtension, service.TxAddAlpha)
	require.Len(t, calls, 1)
	assert.Equal(t, "WH_ORD", calls[0].Request["PK01"])
	assert.Equal(t, "third", calls[0].Request["AL31"])
}

func TestPreferences(t *testing.T) {
	ts := newTestServer(t, "01")
	id := ts.bootstrap(t)

	resp, body := ts.do(t, http.MethodPost, "/v1/preferences/theme", id, `{"id":4}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, 4, decodeState(t, body).ActiveTheme)

	resp, body = ts.do(t, http.MethodPost, "/v1/preferences/language", id, `{"code":"fr-FR"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "fr-FR", decodeState(t, body).CurrentLanguage)

	resp, _ = ts.do(t, http.MethodPost, "/v1/preferences/theme", id, `{"id":99}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = ts.do(t, http.MethodPost, "/v1/preferences/font", id, `{"id":1}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = ts.do(t, http.MethodPost, "/v1/preferences/theme", id, `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestModalsBannersAndStatus(t *testing.T) {
	ts := newTestServer(t, "01")
	id := ts.bootstrap(t)

	resp, body := ts.do(t, http.MethodPost, "/v1/modals/about", id, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	s := decodeState(t, body)
	require.NotNil(t, s.Modal)
	assert.Equal(t, "views/About.html", s.Modal.Template)

	resp, body = ts.do(t, http.MethodDelete, "/v1/modals/current", id, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, decodeState(t, body).Modal)

	resp, _ = ts.do(t, http.MethodPost, "/v1/modals/settings", id, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodDelete, "/v1/banners/error", id, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = ts.do(t, http.MethodDelete, "/v1/banners/nope", id, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodDelete, "/v1/statusbar/x", id, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = ts.do(t, http.MethodDelete, "/v1/statusbar/0", id, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, body = ts.do(t, http.MethodPut, "/v1/statusbar/collapsed", id, `{"collapsed":false}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decodeState(t, body).StatusBar.Collapsed)
	resp, body = ts.do(t, http.MethodDelete, "/v1/statusbar", id, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decodeState(t, body).StatusBar.Collapsed)
}

func TestGridRoutes(t *testing.T) {
	ts := newTestServer(t, "01")
	id := ts.bootstrap(t)

	event := `{"event":"columnSizeChanged","state":{"columns":[{"name":"AL30","visible":true,"width":320}]}}`
	resp, body := ts.do(t, http.MethodPost, "/v1/grids/IONCONListGrid/events", id, event)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "AL30", decodeState(t, body).Grid.Columns[0].Name)

	resp, body = ts.do(t, http.MethodGet, "/v1/grids/IONCONListGrid/state", id, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"width":320`)

	resp, body = ts.do(t, http.MethodPost, "/v1/grids/IONCONListGrid/copy", id,
		`{"cells":[{"row":"WH_CON/WH/A","column":"PK01"},{"row":"WH_CON/WH/A","column":"AL30"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "WH_CON,first", string(body))

	resp, _ = ts.do(t, http.MethodGet, "/v1/grids/other/state", id, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = ts.do(t, http.MethodPost, "/v1/scroll/more", id, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"numToAdd":20,"currentItems":40}`, string(body))
}

func TestLookupRoute(t *testing.T) {
	ts := newTestServer(t, "01")
	id := ts.bootstrap(t)
	ts.gw.On(service.ProgramFacility, service.TxListFacility, mitest.Items(mi.Record{"FACI": "F01"}))

	resp, body := ts.do(t, http.MethodGet, "/v1/lookups/facilities", id, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"FACI":"F01"}]`, string(body))

	resp, _ = ts.do(t, http.MethodGet, "/v1/lookups/planets", id, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStreamPushesState(t *testing.T) {
	ts := newTestServer(t, "01")
	id := ts.bootstrap(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/v1/stream?session=" + id
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	var first ServerMessage
	require.NoError(t, wsjson.Read(ctx, conn, &first))
	assert.Equal(t, "state", first.Type)
	assert.NotZero(t, first.Version)

	require.NoError(t, wsjson.Write(ctx, conn, ClientMessage{Type: "ping", ID: "p1"}))
	var pong ServerMessage
	require.NoError(t, wsjson.Read(ctx, conn, &pong))
	assert.Equal(t, "pong", pong.Type)
	assert.Equal(t, "p1", pong.RequestID)

	resp, _ := ts.do(t, http.MethodPost, "/v1/modals/about", id, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var next ServerMessage
	require.NoError(t, wsjson.Read(ctx, conn, &next))
	assert.Equal(t, "state", next.Type)
	assert.Greater(t, next.Version, first.Version)

	conn.Close(websocket.StatusNormalClosure, "")
}
