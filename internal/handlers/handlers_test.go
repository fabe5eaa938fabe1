package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tapboard/internal/app"
	"tapboard/internal/inventory"
	"tapboard/internal/pour"
)

type testClient struct {
	t    *testing.T
	base string
	http *http.Client
}

func newTestServer(t *testing.T, cfg app.Config) (*testClient, *app.App) {
	t.Helper()
	if cfg.Store == "" {
		cfg.Store = app.StoreMemory
	}
	cfg.DataDir = t.TempDir()
	a, err := app.New(context.Background(), cfg, nil)
	require.NoError(t, err)

	r := chi.NewRouter()
	(&Server{App: a}).Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		_ = a.Close()
	})

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testClient{t: t, base: srv.URL, http: &http.Client{Jar: jar}}, a
}

func (c *testClient) do(method, path string, body any, out any) int {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	c, _ := newTestServer(t, app.Config{})
	resp, err := c.http.Get(c.base + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

/* ---------------- State ---------------- */

func TestState_GetPut(t *testing.T) {
	c, _ := newTestServer(t, app.Config{})

	var st inventory.State
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/state", nil, &st))
	assert.Equal(t, *inventory.DefaultState(), st)

	st.OnTap["line1"].RemainingLiters = 12.5
	var ok map[string]bool
	require.Equal(t, http.StatusOK, c.do(http.MethodPut, "/api/state", &st, &ok))
	assert.True(t, ok["success"])

	var again inventory.State
	c.do(http.MethodGet, "/api/state", nil, &again)
	assert.Equal(t, 12.5, again.Beverage(1).RemainingLiters)
}

func TestState_PutRejectsBadDocuments(t *testing.T) {
	c, _ := newTestServer(t, app.Config{})

	var e map[string]string
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPut, "/api/state", "{not json", &e))
	assert.Contains(t, e["error"], "malformed JSON")

	st := inventory.DefaultState()
	st.OnTap["line1"].RemainingLiters = 99
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPut, "/api/state", st, &e))
	assert.Contains(t, e["error"], "exceeds liters")
}

func TestState_PutRateLimited(t *testing.T) {
	c, _ := newTestServer(t, app.Config{WriteRate: 0.001, WriteBurst: 1})
	st := inventory.DefaultState()

	assert.Equal(t, http.StatusOK, c.do(http.MethodPut, "/api/state", st, nil))
	var e map[string]string
	assert.Equal(t, http.StatusTooManyRequests, c.do(http.MethodPut, "/api/state", st, &e))
	assert.NotEmpty(t, e["error"])
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/state", nil, nil))
}

func TestState_Revisions(t *testing.T) {
	c, _ := newTestServer(t, app.Config{Store: app.StoreSQLite})
	st := inventory.DefaultState()
	st.OnTap["line2"].RemainingLiters = 3
	require.Equal(t, http.StatusOK, c.do(http.MethodPut, "/api/state", st, nil))

	var revs []struct {
		Revision int64 `json:"revision"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/state/revisions", nil, &revs))
	require.Len(t, revs, 2)
	assert.Equal(t, int64(2), revs[0].Revision)

	var first inventory.State
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/state/revisions/1", nil, &first))
	assert.Equal(t, 20.0, first.Beverage(2).RemainingLiters)

	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/api/state/revisions/9", nil, nil))
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodGet, "/api/state/revisions/x", nil, nil))
}

func TestState_RevisionsNeedSQLite(t *testing.T) {
	c, _ := newTestServer(t, app.Config{})
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/api/state/revisions", nil, nil))
}

/* ---------------- Admin ---------------- */

func TestAdmin_Taps(t *testing.T) {
	c, _ := newTestServer(t, app.Config{})

	var st inventory.State
	require.Equal(t, http.StatusOK, c.do(http.MethodDelete, "/api/admin/taps/2", nil, &st))
	assert.Nil(t, st.Beverage(2))
	assert.Contains(t, st.OnTap, "line2")

	var created struct {
		Tap   int              `json:"tap"`
		State *inventory.State `json:"state"`
	}
	b := inventory.Beverage{Name: " Saison ", Type: "Sour", EBC: 10, Liters: 30, RemainingLiters: 30}
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/admin/taps", b, &created))
	assert.Equal(t, 2, created.Tap)
	assert.Equal(t, "Saison", created.State.Beverage(2).Name)
	assert.Equal(t, "#FFBF42", created.State.Beverage(2).Color)

	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/admin/taps", b, &created))
	assert.Equal(t, 1, created.Tap, "all taps taken falls back to tap 1")

	b.Name = "Dubbel"
	require.Equal(t, http.StatusOK, c.do(http.MethodPut, "/api/admin/taps/line3", b, &st))
	assert.Equal(t, "Dubbel", st.Beverage(3).Name)

	b.Name = ""
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPut, "/api/admin/taps/3", b, nil))
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPut, "/api/admin/taps/zero", b, nil))
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodDelete, "/api/admin/taps/7", nil, nil))
}

func TestAdmin_TypesAndGlasses(t *testing.T) {
	c, _ := newTestServer(t, app.Config{})

	var st inventory.State
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/admin/types", map[string]string{"name": " Porter "}, &st))
	assert.Equal(t, "Porter", st.Types[len(st.Types)-1])

	require.Equal(t, http.StatusOK, c.do(http.MethodPut, "/api/admin/types/0", map[string]string{"name": "Helles"}, &st))
	assert.Equal(t, "Helles", st.Types[0])
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPut, "/api/admin/types/0", map[string]string{"name": "  "}, nil))
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodDelete, "/api/admin/types/99", nil, nil))

	n := len(st.Types)
	require.Equal(t, http.StatusOK, c.do(http.MethodDelete, "/api/admin/types/0", nil, &st))
	assert.Len(t, st.Types, n-1)

	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/admin/glasses", inventory.Glass{Name: "Pitcher", Volume: 1.5}, &st))
	assert.Equal(t, inventory.Glass{Name: "Pitcher", Volume: 1.5}, st.GlassTypes[len(st.GlassTypes)-1])
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/api/admin/glasses", inventory.Glass{Name: "Void", Volume: 0}, nil))
	require.Equal(t, http.StatusOK, c.do(http.MethodPut, "/api/admin/glasses/0", inventory.Glass{Name: "Mass", Volume: 1}, &st))
	assert.Equal(t, "Mass", st.GlassTypes[0].Name)
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodDelete, "/api/admin/glasses/-1", nil, nil))
}

func TestColor(t *testing.T) {
	c, _ := newTestServer(t, app.Config{})

	var out struct {
		EBC   float64 `json:"ebc"`
		Color string  `json:"color"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/color?ebc=1000", nil, &out))
	assert.Equal(t, "#1E0204", out.Color)
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodGet, "/api/color?ebc=dark", nil, nil))
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodGet, "/api/color?ebc=NaN", nil, nil))
}

/* ---------------- Pour ---------------- */

func TestPour_CommitAndUndo(t *testing.T) {
	c, _ := newTestServer(t, app.Config{})

	var v pour.View
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/pour", nil, &v))
	assert.Equal(t, pour.StatusReady, v.Status)
	assert.Equal(t, 0, v.SelectedGlass)

	c.do(http.MethodPost, "/api/pour/select", map[string]int{"tap": 1}, &v)
	require.NotNil(t, v.Session)
	assert.Equal(t, pour.Selected, v.Session.Phase)

	c.do(http.MethodPost, "/api/pour/drag/begin", map[string]float64{"offset": 100, "height": 200}, &v)
	c.do(http.MethodPost, "/api/pour/drag/update", map[string]float64{"offset": 0, "height": 200}, &v)
	assert.Equal(t, pour.Dragging, v.Session.Phase)
	rem, ok := v.Remaining(1)
	require.True(t, ok)
	assert.InDelta(t, 19.5, rem, 1e-9)

	c.do(http.MethodPost, "/api/pour/drag/end", nil, &v)
	assert.Equal(t, pour.Settling, v.Session.Phase)

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/pour/commit", nil, &v))
	assert.Nil(t, v.Session)
	require.NotNil(t, v.Undo)

	var st inventory.State
	c.do(http.MethodGet, "/api/state", nil, &st)
	assert.InDelta(t, 19.5, st.Beverage(1).RemainingLiters, 1e-9)

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/pour/undo", nil, &v))
	assert.Nil(t, v.Undo)
	c.do(http.MethodGet, "/api/state", nil, &st)
	assert.InDelta(t, 20, st.Beverage(1).RemainingLiters, 1e-9)
}

func TestPour_CancelAndGlass(t *testing.T) {
	c, _ := newTestServer(t, app.Config{})

	var v pour.View
	c.do(http.MethodPost, "/api/pour/glass", map[string]int{"index": 2}, &v)
	assert.Equal(t, 2, v.SelectedGlass)

	c.do(http.MethodPost, "/api/pour/select", map[string]int{"tap": 2}, &v)
	c.do(http.MethodPost, "/api/pour/drag/begin", map[string]float64{"offset": 0, "height": 1}, &v)
	c.do(http.MethodPost, "/api/pour/cancel", nil, &v)
	assert.Equal(t, pour.Idle, v.Phase())
	rem, _ := v.Remaining(2)
	assert.Equal(t, 20.0, rem)
}

func TestPour_ClientsAreIsolated(t *testing.T) {
	c, a := newTestServer(t, app.Config{})
	other := &testClient{t: t, base: c.base, http: &http.Client{}}

	var v pour.View
	c.do(http.MethodPost, "/api/pour/select", map[string]int{"tap": 1}, &v)
	require.NotNil(t, v.Session)

	other.do(http.MethodGet, "/api/pour", nil, &v)
	assert.Nil(t, v.Session)
	assert.Equal(t, 2, a.Pours().Len())
}

func TestPour_RefreshSeesOtherWrites(t *testing.T) {
	c, a := newTestServer(t, app.Config{})

	var v pour.View
	c.do(http.MethodGet, "/api/pour", nil, &v)

	_, err := a.Inventory().Mutate(context.Background(), func(st *inventory.State) error {
		return st.ClearTap(3)
	})
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/pour/refresh", nil, &v))
	for _, tv := range v.Taps {
		if tv.Tap == 3 {
			assert.Nil(t, tv.Beverage)
		}
	}
}

func TestPour_EventsStreamInitialView(t *testing.T) {
	c, _ := newTestServer(t, app.Config{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/pour/events", nil)
	require.NoError(t, err)
	resp, err := c.http.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var lines []string
	for len(lines) < 4 && sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"retry: 3000", "id: 1", "event: pour"}, lines[:3])
	var v pour.View
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(lines[3], "data: ")), &v))
	assert.Equal(t, pour.StatusReady, v.Status)
}

/* ---------------- Static ---------------- */

func TestSPA(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o644))
	h := SPA(dir)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/assets/app.js")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "console.log(1)", rec.Body.String())

	rec = get("/admin")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "app")

	assert.Equal(t, http.StatusOK, get("/").Code)
	assert.Equal(t, http.StatusNotFound, get("/api/nope").Code)
}

func TestSPA_NoBuild(t *testing.T) {
	rec := httptest.NewRecorder()
	SPA(t.TempDir()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
