package api

import (
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fmeca-service/charts"
	"fmeca-service/db"
	"fmeca-service/models"
	"fmeca-service/session"
	"fmeca-service/store"
)

type testServer struct {
	router http.Handler
	sess   *session.Session
	store  *store.FMEAStore
	db     *db.DB
	exits  int
}

// apiSeed holds the Motor-Driven Pump plus a valve with two pages of rows.
func apiSeed() *store.Seed {
	seed := &store.Seed{
		Components: []models.Component{
			{ID: 1, Name: "Motor-Driven Pump"},
			{ID: 2, Name: "Motor-Operated Valves"},
		},
		FailureModes: []models.FailureMode{{ID: 1, Description: "Seal Leak"}},
		Defaults: []models.ComponentFailure{
			{CFID: 1, CompID: 1, FailID: 1, Frequency: 2, Severity: 3, Detection: 4,
				LowerBound: 4.17, BestEstimate: 20.8, UpperBound: 125, MissionTime: 24},
		},
	}
	for i := int64(2); i <= 13; i++ {
		seed.FailureModes = append(seed.FailureModes, models.FailureMode{ID: i, Description: fmt.Sprintf("Valve Mode %02d", i)})
		seed.Defaults = append(seed.Defaults, models.ComponentFailure{
			CFID: 100 + i, CompID: 2, FailID: i, Frequency: 1, Severity: 2, Detection: 3,
		})
	}
	return seed
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	d, err := db.Open(db.Options{Driver: db.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	st := store.NewFMEAStore(d)
	_, err = st.ImportSeed(context.Background(), apiSeed())
	require.NoError(t, err)

	sess := session.New(st, nil, session.Options{})
	require.NoError(t, sess.Load(context.Background()))

	ts := &testServer{sess: sess, store: st, db: d}
	h := NewHandler(nil, sess, charts.Options{Width: 320, Height: 240})
	h.OnExit(func() { ts.exits++ })
	ts.router = NewRouter(nil, h)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(method, path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	return rr
}

type displayRow struct {
	Key   int64    `json:"cf_id"`
	Cells []string `json:"cells"`
	Risk  string   `json:"risk"`
}

type tablePayload struct {
	Component models.Component `json:"component"`
	Headers   []string         `json:"headers"`
	Rows      []displayRow     `json:"rows"`
	Offset    int              `json:"offset"`
	Total     int              `json:"total"`
	HasPrev   bool             `json:"has_prev"`
	HasNext   bool             `json:"has_next"`
	Threshold float64          `json:"threshold"`
	ReadOnly  bool             `json:"read_only"`
}

type editPayload struct {
	Applied bool       `json:"applied"`
	Warning string     `json:"warning"`
	Row     displayRow `json:"row"`
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[ErrorEnvelope](t, rr).Error.Code
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(t, http.MethodGet, "/healthcheck", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

func TestListComponents(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodGet, "/components", "")
	require.Equal(t, http.StatusOK, rr.Code)
	all := decode[map[string][]models.Component](t, rr)["components"]
	assert.Len(t, all, 2)

	rr = ts.do(t, http.MethodGet, "/components?q=VALVE", "")
	require.Equal(t, http.StatusOK, rr.Code)
	found := decode[map[string][]models.Component](t, rr)["components"]
	require.Len(t, found, 1)
	assert.Equal(t, "Motor-Operated Valves", found[0].Name)

	rr = ts.do(t, http.MethodGet, "/components?q=turbine", "")
	assert.JSONEq(t, `{"components":[]}`, rr.Body.String())
}

func TestGetRowsAndPaging(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodGet, "/components/1/rows", "")
	require.Equal(t, http.StatusOK, rr.Code)
	page := decode[tablePayload](t, rr)
	assert.Equal(t, "Motor-Driven Pump Failure Modes", page.Headers[0])
	require.Len(t, page.Rows, 1)
	assert.Equal(t, []string{"Seal Leak", "24", "2", "3", "4", "4.17", "20.8", "125", "24"}, page.Rows[0].Cells)
	assert.Equal(t, "above", page.Rows[0].Risk)
	assert.Equal(t, 1.0, page.Threshold)
	assert.False(t, page.ReadOnly)

	rr = ts.do(t, http.MethodGet, "/components/2/rows", "")
	page = decode[tablePayload](t, rr)
	assert.Len(t, page.Rows, 10)
	assert.Equal(t, 12, page.Total)
	assert.True(t, page.HasNext)
	assert.False(t, page.HasPrev)

	rr = ts.do(t, http.MethodGet, "/components/2/rows?offset=500", "")
	page = decode[tablePayload](t, rr)
	assert.Equal(t, 10, page.Offset)
	assert.Len(t, page.Rows, 2)
	assert.False(t, page.HasNext)
	assert.True(t, page.HasPrev)
}

func TestBadRequests(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"non-numeric id", http.MethodGet, "/components/abc/rows", "", http.StatusBadRequest, "invalid_id"},
		{"bad offset", http.MethodGet, "/components/1/rows?offset=x", "", http.StatusBadRequest, "invalid_offset"},
		{"unknown component", http.MethodGet, "/components/99/rows", "", http.StatusNotFound, "selection_missing"},
		{"unknown column", http.MethodPatch, "/components/1/rows/1", `{"column":"cost","value":"1"}`, http.StatusBadRequest, "invalid_column"},
		{"row of other component", http.MethodPatch, "/components/1/rows/102", `{"column":"frequency","value":"1"}`, http.StatusNotFound, "row_not_found"},
		{"missing column", http.MethodPatch, "/components/1/rows/1", `{"value":"1"}`, http.StatusBadRequest, "invalid_request"},
		{"unknown chart", http.MethodGet, "/components/1/charts/histogram", "", http.StatusNotFound, "unknown_chart"},
		{"short answers", http.MethodPost, "/detectability", `{"answers":[true]}`, http.StatusBadRequest, "invalid_request"},
		{"bad exit decision", http.MethodPost, "/exit", `{"decision":"maybe"}`, http.StatusBadRequest, "invalid_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
			assert.Equal(t, tt.code, errorCode(t, rr))
		})
	}
}

func TestEditingFlow(t *testing.T) {
	ts := newTestServer(t)

	t.Run("PUT_Threshold", func(t *testing.T) {
		rr := ts.do(t, http.MethodPut, "/threshold", `{"value":"50"}`)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"threshold":50}`, rr.Body.String())

		rr = ts.do(t, http.MethodGet, "/components/1/rows", "")
		assert.Equal(t, "within", decode[tablePayload](t, rr).Rows[0].Risk)
	})

	t.Run("PATCH_FrequencyRecolors", func(t *testing.T) {
		rr := ts.do(t, http.MethodPatch, "/components/1/rows/1", `{"column":"frequency","value":"5"}`)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		res := decode[editPayload](t, rr)
		assert.True(t, res.Applied)
		assert.Equal(t, "60", res.Row.Cells[models.ColRPN])
		assert.Equal(t, "above", res.Row.Risk)
	})

	t.Run("PATCH_RejectedValueReverts", func(t *testing.T) {
		rr := ts.do(t, http.MethodPatch, "/components/1/rows/1", `{"column":"Severity","value":"11"}`)
		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		res := decode[editPayload](t, rr)
		assert.False(t, res.Applied)
		assert.Equal(t, session.ReasonFactorRange, res.Warning)
		assert.Equal(t, "3", res.Row.Cells[models.ColSeverity])
		assert.Equal(t, "60", res.Row.Cells[models.ColRPN])

		rr = ts.do(t, http.MethodPatch, "/components/1/rows/1", `{"column":"rpn","value":"1"}`)
		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Equal(t, session.ReasonReadOnly, decode[editPayload](t, rr).Warning)
	})

	t.Run("PUT_InvalidThresholdKeepsPrevious", func(t *testing.T) {
		rr := ts.do(t, http.MethodPut, "/threshold", `{"value":""}`)
		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Contains(t, rr.Body.String(), "threshold_required")

		rr = ts.do(t, http.MethodPut, "/threshold", `{"value":"1001"}`)
		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

		rr = ts.do(t, http.MethodGet, "/threshold", "")
		assert.JSONEq(t, `{"threshold":50}`, rr.Body.String())
	})

	t.Run("GET_StatsMatchesGrid", func(t *testing.T) {
		rr := ts.do(t, http.MethodGet, "/components/1/stats", "")
		require.Equal(t, http.StatusOK, rr.Code)
		page := decode[tablePayload](t, rr)
		assert.True(t, page.ReadOnly)
		assert.Equal(t, "60", page.Rows[0].Cells[models.ColRPN])
	})

	t.Run("POST_Save", func(t *testing.T) {
		rr := ts.do(t, http.MethodPost, "/save", "")
		require.Equal(t, http.StatusOK, rr.Code)

		working, err := ts.store.ListWorkingFailures(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 5, working[0].Frequency)
		assert.Equal(t, 60, working[0].RPN)

		defaults, err := ts.store.ListDefaultFailures(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, defaults[0].Frequency)
	})

	t.Run("POST_Reset", func(t *testing.T) {
		rr := ts.do(t, http.MethodPost, "/reset", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"reset":true,"dirty":true}`, rr.Body.String())

		rr = ts.do(t, http.MethodGet, "/components/1/rows", "")
		assert.Equal(t, "24", decode[tablePayload](t, rr).Rows[0].Cells[models.ColRPN])
	})

	t.Run("GET_Metrics", func(t *testing.T) {
		rr := ts.do(t, http.MethodGet, "/metrics", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "fmeca_edits_total")
	})
}

func TestDefaults(t *testing.T) {
	type defaultsPage struct {
		Rows    []models.Row `json:"rows"`
		Offset  int          `json:"offset"`
		Total   int          `json:"total"`
		HasNext bool         `json:"has_next"`
	}
	ts := newTestServer(t)
	ts.do(t, http.MethodPatch, "/components/1/rows/1", `{"column":"frequency","value":"9"}`)

	rr := ts.do(t, http.MethodGet, "/components/1/defaults", "")
	require.Equal(t, http.StatusOK, rr.Code)
	page := decode[defaultsPage](t, rr)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, 2, page.Rows[0].Frequency)
	assert.Equal(t, 24, page.Rows[0].RPN)
	assert.False(t, page.HasNext)

	rr = ts.do(t, http.MethodGet, "/components/2/defaults", "")
	require.Equal(t, http.StatusOK, rr.Code)
	page = decode[defaultsPage](t, rr)
	assert.Len(t, page.Rows, 10)
	assert.Equal(t, 12, page.Total)
	assert.True(t, page.HasNext)

	rr = ts.do(t, http.MethodGet, "/components/2/defaults?offset=10", "")
	require.Equal(t, http.StatusOK, rr.Code)
	page = decode[defaultsPage](t, rr)
	require.Len(t, page.Rows, 2)
	assert.Equal(t, 10, page.Offset)
	assert.EqualValues(t, 113, page.Rows[1].CFID)
	assert.False(t, page.HasNext)

	rr = ts.do(t, http.MethodGet, "/components/2/defaults?offset=ten", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCharts(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodGet, "/components/1/charts/bar", "")
	require.Equal(t, http.StatusOK, rr.Code)
	chart := decode[map[string]any](t, rr)
	assert.Equal(t, "bar", chart["kind"])
	assert.Equal(t, "Motor-Driven Pump: Bar Chart", chart["title"])

	rr = ts.do(t, http.MethodGet, "/components/1/charts/Weibull%20Distribution", "")
	require.Equal(t, http.StatusOK, rr.Code)

	// the valves have no bounds entered
	rr = ts.do(t, http.MethodGet, "/components/2/charts/rayleigh", "")
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "no_chart_data", errorCode(t, rr))

	rr = ts.do(t, http.MethodGet, "/components/1/charts/risk3d/image", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	img, err := png.Decode(rr.Body)
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
}

func TestDetectability(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodGet, "/detectability", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[map[string][]string](t, rr)["questions"], 3)

	rr = ts.do(t, http.MethodPost, "/detectability", `{"answers":[true,false,true]}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Recommended Detectability: 4-6 (Medium)", decode[map[string]string](t, rr)["recommendation"])
}

func TestExit(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodPost, "/exit", `{"decision":"cancel"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"close":false,"decision":"cancel"}`, rr.Body.String())
	assert.Zero(t, ts.exits)

	rr = ts.do(t, http.MethodPost, "/exit", `{"decision":"save"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"close":true,"decision":"save"}`, rr.Body.String())
	assert.Equal(t, 1, ts.exits)
}

func TestSaveFailureKeepsSessionOpen(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPatch, "/components/1/rows/1", `{"column":"detection","value":"10"}`)
	require.NoError(t, ts.db.Close())

	rr := ts.do(t, http.MethodPost, "/save", "")
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "persistence_failed", errorCode(t, rr))

	rr = ts.do(t, http.MethodPost, "/exit", `{"decision":"save"}`)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Zero(t, ts.exits)

	// memory still holds the edit
	rows, err := ts.sess.RowsFor(1)
	require.NoError(t, err)
	assert.Equal(t, 10, rows[0].Detection)
	assert.True(t, strings.HasPrefix(rr.Body.String(), `{"error"`))
}
