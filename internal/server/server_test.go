package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guarzo/poe2gradegap/internal/analysis"
	"github.com/guarzo/poe2gradegap/internal/currency"
	"github.com/guarzo/poe2gradegap/internal/model"
	"github.com/guarzo/poe2gradegap/internal/stats"
	"github.com/guarzo/poe2gradegap/internal/store"
)

var ginModeOnce sync.Once

func setupGinTestMode() {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.TestMode)
	})
}

type fakeAnalyzer struct {
	mu        sync.Mutex
	gotRules  []model.ExclusionRule
	gapErr    error
	lastQuery model.SearchQuery
}

func (f *fakeAnalyzer) AnalyzeGap(_ context.Context, baseType string, rules []model.ExclusionRule) (model.GapReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotRules = rules
	if f.gapErr != nil {
		return model.GapReport{}, f.gapErr
	}
	return model.GapReport{BaseType: baseType, NormalAvg: 7, BestTierAvg: 100, Gap: 93}, nil
}

func (f *fakeAnalyzer) AnalyzeDistribution(_ context.Context, baseType string, buckets int, _ []model.ExclusionRule) (model.DistributionReport, error) {
	r := model.DistributionReport{BaseType: baseType, MinPrice: 10, MaxPrice: 90}
	for i := 0; i < buckets; i++ {
		r.Buckets = append(r.Buckets, model.PriceBucket{Min: float64(i), Max: float64(i + 1)})
	}
	return r, nil
}

func (f *fakeAnalyzer) ModifierStats(_ context.Context, q model.SearchQuery, limit int) (analysis.StatsRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = q
	return analysis.StatsRun{QueryID: "q1", Total: 40, Fetched: limit, Report: stats.Report{}}, nil
}

func newTestServer(t *testing.T) (*Server, *fakeAnalyzer) {
	t.Helper()
	setupGinTestMode()

	st, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close(context.Background()) })

	fa := &fakeAnalyzer{}
	return New(context.Background(), fa, st, currency.Default(), nil), fa
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAnalyzeGap(t *testing.T) {
	s, fa := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/db/exclusions", map[string]any{"mod_tier": "P2", "reason": "noise"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, s, http.MethodPost, "/api/analyze/gap", map[string]any{"base_type": " Gold Ring "})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	report := decode[model.GapReport](t, w)
	assert.Equal(t, "1", report.ID)
	assert.Equal(t, "Gold Ring", report.BaseType)
	assert.Equal(t, 93.0, report.Gap)

	require.Len(t, fa.gotRules, 1)
	assert.Equal(t, "P2", fa.gotRules[0].Tier)

	w = do(t, s, http.MethodGet, "/api/db/analyses?base_type=Gold%20Ring", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.GapReport](t, w), 1)

	w = do(t, s, http.MethodGet, "/api/db/analyses/latest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.GapReport](t, w), 1)
}

func TestAnalyzeGap_Errors(t *testing.T) {
	s, fa := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/analyze/gap", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	fa.gapErr = errors.New("HTTP 429: rate limited")
	w = do(t, s, http.MethodPost, "/api/analyze/gap", map[string]any{"base_type": "Gold Ring"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "rate limited")

	w = do(t, s, http.MethodGet, "/api/db/analyses", nil)
	assert.Equal(t, "[]", w.Body.String())
}

func TestAnalyzeDistribution_Job(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/analyze/distribution", map[string]any{"base_type": "Gold Ring", "buckets": 3})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	job := decode[Job](t, w)
	require.NotEmpty(t, job.ID)
	assert.Equal(t, jobRunning, job.Status)

	s.jobs.wait()

	w = do(t, s, http.MethodGet, "/api/jobs/"+job.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var done struct {
		Status string                   `json:"status"`
		Result model.DistributionReport `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &done))
	assert.Equal(t, string(jobDone), done.Status)
	assert.Len(t, done.Result.Buckets, 3)
	assert.Equal(t, "1", done.Result.ID)

	w = do(t, s, http.MethodGet, "/api/db/item-analyses?base_type=Gold%20Ring", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.DistributionReport](t, w), 1)

	w = do(t, s, http.MethodGet, "/api/jobs/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExclusionsCRUD(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/db/exclusions", map[string]any{"reason": "no criteria"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/api/db/exclusions", map[string]any{"mod_name_pattern": "%Life%"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[model.ExclusionRule](t, w)
	assert.True(t, created.Active)

	w = do(t, s, http.MethodPut, "/api/db/exclusions/"+created.ID,
		map[string]any{"mod_name_pattern": "%Mana%", "reason": "changed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, s, http.MethodGet, "/api/db/exclusions", nil)
	rules := decode[[]model.ExclusionRule](t, w)
	require.Len(t, rules, 1)
	assert.Equal(t, "%Mana%", rules[0].NamePattern)

	w = do(t, s, http.MethodDelete, "/api/db/exclusions/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, s, http.MethodGet, "/api/db/exclusions", nil)
	assert.Empty(t, decode[[]model.ExclusionRule](t, w))

	w = do(t, s, http.MethodGet, "/api/db/exclusions?all=true", nil)
	all := decode[[]model.ExclusionRule](t, w)
	require.Len(t, all, 1)
	assert.False(t, all[0].Active)

	w = do(t, s, http.MethodDelete, "/api/db/exclusions/99", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnalyzeStats(t *testing.T) {
	s, fa := newTestServer(t)

	body := map[string]any{"query": map[string]any{"type": "Recurve Bow"}, "limit": 20}
	w := do(t, s, http.MethodPost, "/api/analyze/stats", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	run := decode[analysis.StatsRun](t, w)
	assert.Equal(t, 20, run.Fetched)
	assert.Equal(t, "Recurve Bow", fa.lastQuery["type"])

	w = do(t, s, http.MethodPost, "/api/analyze/stats", map[string]any{"limit": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCurrencyRates(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s, http.MethodGet, "/api/currency/rates", nil)
	require.Equal(t, http.StatusOK, w.Code)

	rates := decode[map[string]float64](t, w)
	assert.Equal(t, 320.0, rates["divine"])
	assert.Equal(t, 1.0, rates["exalted"])
}
