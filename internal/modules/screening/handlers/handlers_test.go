package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aristath/screener/internal/database"
	"github.com/aristath/screener/internal/domain"
	"github.com/aristath/screener/internal/events"
	"github.com/aristath/screener/internal/modules/filings"
	"github.com/aristath/screener/internal/modules/metrics"
	"github.com/aristath/screener/internal/modules/screening"
	"github.com/aristath/screener/internal/modules/screening/workers"
	"github.com/aristath/screener/internal/modules/verdicts"
	"github.com/aristath/screener/internal/services"
	testingpkg "github.com/aristath/screener/internal/testing"
	"github.com/go-chi/chi/v5"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	_, err = db.Exec(database.Schema())
	require.NoError(t, err)
	return db
}

type testEnv struct {
	router   http.Handler
	entities *filings.Repository
	verdicts *verdicts.Repository
	bus      *events.Bus
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	db := setupTestDB(t)
	t.Cleanup(func() { db.Close() })

	calc := metrics.NewCalculator()
	pipeline := screening.NewPipeline(calc, screening.NewScreener(), logger)
	registry, err := screening.LoadRegistry("", pipeline.Knows, logger)
	require.NoError(t, err)

	bus := events.NewBus(logger)
	manager := events.NewManager(bus, logger)
	entityRepo := filings.NewRepository(db, logger)
	verdictRepo := verdicts.NewRepository(db, logger)
	service := services.NewScreeningService(entityRepo, verdictRepo, workers.NewPool(2, pipeline, logger), registry.ForEntity, manager, logger)

	handler := NewHandler(registry, calc, entityRepo, verdictRepo, service, manager, logger)
	router := chi.NewRouter()
	router.Route("/api", handler.RegisterRoutes)

	return &testEnv{router: router, entities: entityRepo, verdicts: verdictRepo, bus: bus}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Contains(t, response, "metadata")
	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok, "data should be an object: %s", w.Body.String())
	return data
}

func saveBody(entity domain.Entity) map[string]interface{} {
	return map[string]interface{}{
		"name":    entity.Name,
		"sector":  string(entity.Sector),
		"periods": entity.Periods,
	}
}

func TestHandleListMetrics(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, "GET", "/api/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	list := data["metrics"].([]interface{})
	names := make([]string, 0, len(list))
	for _, m := range list {
		names = append(names, m.(map[string]interface{})["name"].(string))
	}
	assert.Contains(t, names, "gross_margin")
	assert.Contains(t, names, "revenue_growth")
}

func TestHandleRulesets(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "GET", "/api/rulesets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(len(domain.Sectors())), decodeData(t, w)["count"])

	tests := []struct {
		name           string
		sector         string
		expectedStatus int
	}{
		{"semiconductor", "semiconductor", http.StatusOK},
		{"alias spelling", "penny-stock", http.StatusOK},
		{"upper case", "REIT", http.StatusOK},
		{"unknown", "biotech", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, "GET", "/api/rulesets/"+tt.sector, nil)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestHandleSaveAndGetEntity(t *testing.T) {
	env := newTestEnv(t)
	stream, cancel := env.bus.Subscribe(4, events.EntitySaved)
	defer cancel()

	entity := testingpkg.SemiconductorEntity("NVDA")
	w := env.do(t, "PUT", "/api/entities/NVDA", saveBody(entity))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(3), decodeData(t, w)["periods"])
	assert.Equal(t, events.EntitySaved, (<-stream).Type)

	w = env.do(t, "GET", "/api/entities/NVDA", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "NVDA", data["id"])
	assert.Len(t, data["periods"], 3)

	w = env.do(t, "GET", "/api/entities", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeData(t, w)["count"])

	w = env.do(t, "GET", "/api/entities/AMD", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleSaveEntity_Invalid(t *testing.T) {
	env := newTestEnv(t)
	entity := testingpkg.SemiconductorEntity("NVDA")

	tests := []struct {
		name string
		body interface{}
	}{
		{"malformed json", "{"},
		{"unknown field", `{"name":"x","sector":"reit","periods":[],"extra":1}`},
		{"unknown sector", map[string]interface{}{"name": "x", "sector": "biotech", "periods": entity.Periods}},
		{"no periods", map[string]interface{}{"name": "x", "sector": "reit", "periods": []interface{}{}}},
		{"unknown line item", `{"sector":"reit","periods":[{"period":"2023","items":{"ebitda_adj":1}}]}`},
		{"bad period", `{"sector":"reit","periods":[{"period":"2023Q7","items":{"revenue":1}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, "PUT", "/api/entities/NVDA", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestHandleSaveEntity_PeriodOrdering(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{
			"duplicate period",
			`{"sector":"reit","periods":[{"period":"2023","items":{"revenue":1}},{"period":"2023","items":{"revenue":2}}]}`,
			"duplicate period 2023",
		},
		{
			"annual and quarterly mixed",
			`{"sector":"reit","periods":[{"period":"2023","items":{"revenue":1}},{"period":"2023Q2","items":{"revenue":2}}]}`,
			"is quarterly",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, "PUT", "/api/entities/X", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), tt.message)
		})
	}

	w := env.do(t, "GET", "/api/entities/X", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "rejected entity must not be stored")
}

func TestHandleSaveEntity_SortsPeriods(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "PUT", "/api/entities/MU", saveBody(testingpkg.BrokenEntity("MU")))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, "POST", "/api/entities/MU/screen", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	verdict := decodeData(t, w)["verdict"].(map[string]interface{})
	assert.Equal(t, "pass", verdict["outcome"])
}

func TestHandleDeleteEntity(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, "PUT", "/api/entities/O", saveBody(testingpkg.REITEntity("O")))
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, "DELETE", "/api/entities/O", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, "DELETE", "/api/entities/O", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleScreenEntity(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, "PUT", "/api/entities/NVDA", saveBody(testingpkg.SemiconductorEntity("NVDA")))
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, "POST", "/api/entities/NVDA/screen", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decodeData(t, w)
	verdict := data["verdict"].(map[string]interface{})
	assert.Equal(t, "pass", verdict["outcome"])

	w = env.do(t, "GET", "/api/verdicts/NVDA?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeData(t, w)["count"])

	w = env.do(t, "GET", "/api/entities/NVDA/verdict", nil)
	require.Equal(t, http.StatusOK, w.Code)
	latest := decodeData(t, w)
	assert.Equal(t, verdict["id"], latest["id"])
	assert.Equal(t, "pass", latest["outcome"])

	w = env.do(t, "GET", "/api/entities/AMD/verdict", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, "POST", "/api/entities/AMD/screen", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleScreen(t *testing.T) {
	env := newTestEnv(t)
	reit := testingpkg.REITEntity("O")
	reit.Sector = "REIT"

	w := env.do(t, "POST", "/api/screen", ScreenRequest{Entities: []domain.Entity{
		testingpkg.SemiconductorEntity("NVDA"),
		reit,
		testingpkg.BrokenEntity("BRK"),
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := decodeData(t, w)
	summary := data["summary"].(map[string]interface{})
	assert.Equal(t, float64(3), summary["entities"])
	assert.Equal(t, float64(2), summary["passed"])
	assert.Equal(t, float64(1), summary["indeterminate"])

	reports := data["reports"].([]interface{})
	require.Len(t, reports, 3)
	assert.Equal(t, "BRK", reports[2].(map[string]interface{})["entity_id"])

	runID := data["run_id"].(string)
	w = env.do(t, "GET", "/api/runs/"+runID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	run := decodeData(t, w)
	assert.Equal(t, float64(3), run["count"])
	outcomes := run["outcomes"].(map[string]interface{})
	assert.Equal(t, float64(2), outcomes["pass"])
	assert.Equal(t, float64(1), outcomes["indeterminate"])

	w = env.do(t, "GET", "/api/runs/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleScreen_Invalid(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "POST", "/api/screen", `{"entities":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "POST", "/api/screen", "not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	many := make([]string, MaxBatchSize+1)
	for i := range many {
		many[i] = `{"id":"E","sector":"reit","periods":[]}`
	}
	w = env.do(t, "POST", "/api/screen", `{"entities":[`+strings.Join(many, ",")+`]}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRegisterRoutes(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewHandler(nil, metrics.NewCalculator(), nil, nil, nil, nil, logger)
	router := chi.NewRouter()

	assert.NotPanics(t, func() {
		router.Route("/api", handler.RegisterRoutes)
	}, "RegisterRoutes should not panic")
}
