package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finhealth/internal/budget"
	"finhealth/internal/core"
	"finhealth/internal/health"
	"finhealth/internal/metrics"
	"finhealth/internal/services"
	"finhealth/internal/spend"
	"finhealth/internal/storage"
	"finhealth/internal/storage/memory"
)

var march = spend.Period{Year: 2025, Month: time.March}

type testServer struct {
	srv     *Server
	repo    *memory.Store
	source  *spend.MemorySource
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T, rateLimit int) testServer {
	t.Helper()
	ts := testServer{
		repo: memory.NewWithBudgets([]core.Budget{
			{ID: "1", Category: "Food", Emoji: "🍔", SuggestedAmount: 400, CurrentAmount: 400, SpentAmount: 320, LastMonthSpent: 385},
			{ID: "s1", Category: "Healthcare", SuggestedAmount: 200, LastMonthSpent: 195, IsSuggestion: true},
		}),
		source:  spend.NewMemorySource(),
		metrics: metrics.New(),
	}
	now := func() time.Time { return time.Date(2025, time.March, 20, 10, 0, 0, 0, time.UTC) }

	ids := 0
	budgets, err := services.NewBudgetService(services.BudgetServiceConfig{
		Repo:    ts.repo,
		Source:  ts.source,
		Metrics: ts.metrics,
		Now:     now,
		NewID: func() string {
			ids++
			return "id-" + string(rune('0'+ids))
		},
	})
	require.NoError(t, err)
	require.NoError(t, budgets.Load(context.Background()))

	engine, err := core.NewScoreEngine(core.DefaultFactors())
	require.NoError(t, err)
	providers, err := health.Providers(core.DefaultFactors(), budgets, map[string]float64{
		core.FactorSpendingVsIncome:   80,
		core.FactorSavingsConsistency: 80,
	})
	require.NoError(t, err)
	healthSvc, err := services.NewHealthService(services.HealthServiceConfig{
		Engine:    engine,
		Providers: providers,
		Repo:      ts.repo,
		Metrics:   ts.metrics,
		Now:       now,
	})
	require.NoError(t, err)
	require.NoError(t, healthSvc.Load(context.Background(), []core.HistoricalScorePoint{
		{PeriodLabel: "2024-12", Score: 72},
		{PeriodLabel: "2025-01", Score: 75},
		{PeriodLabel: "2025-02", Score: 78},
	}))

	ts.srv, err = NewServer(ServerConfig{
		Addr:               ":0",
		Budgets:            budgets,
		Health:             healthSvc,
		Events:             ts.repo,
		Metrics:            ts.metrics,
		RateLimitPerMinute: rateLimit,
		Now:                now,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ts.srv.Shutdown(context.Background()) })
	return ts
}

func (ts testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestNewServer_Requires(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}

func TestLivenessAndReadiness(t *testing.T) {
	ts := newTestServer(t, 100)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := ts.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}

	ts.srv.ready = func(context.Context) error { return errors.New("db down") }
	assert.Equal(t, http.StatusServiceUnavailable, ts.do(t, http.MethodGet, "/readyz", "").Code)
}

func TestListBudgetsAndSuggestions(t *testing.T) {
	ts := newTestServer(t, 100)

	rr := ts.do(t, http.MethodGet, "/api/budgets", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	list := decode[budgetListJSON](t, rr)
	require.Len(t, list.Budgets, 1)
	food := list.Budgets[0]
	assert.Equal(t, "Food", food.Category)
	assert.Equal(t, "good", food.Status)
	assert.InDelta(t, 80, food.Progress, 1e-9)
	assert.InDelta(t, 80, food.Left, 1e-9)
	assert.Equal(t, core.Below, food.VsLastMonth)

	rr = ts.do(t, http.MethodGet, "/api/budgets/suggestions", "")
	require.Equal(t, http.StatusOK, rr.Code)
	sugs := decode[budgetListJSON](t, rr)
	require.Len(t, sugs.Budgets, 1)
	assert.Equal(t, "s1", sugs.Budgets[0].ID)
	assert.Empty(t, sugs.Budgets[0].Status)
	assert.True(t, sugs.Budgets[0].IsSuggestion)
}

func TestAcceptSuggestion(t *testing.T) {
	ts := newTestServer(t, 100)

	rr := ts.do(t, http.MethodPost, "/api/budgets/s1/accept", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	accepted := decode[budgetJSON](t, rr)
	assert.False(t, accepted.IsSuggestion)
	assert.InDelta(t, 200, accepted.CurrentAmount, 1e-9)
	assert.Equal(t, "excellent", accepted.Status)

	rr = ts.do(t, http.MethodPost, "/api/budgets/s1/accept", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", decode[errorBody](t, rr).Error.Code)
}

func TestAcceptSuggestionWithAmount(t *testing.T) {
	ts := newTestServer(t, 100)

	rr := ts.do(t, http.MethodPost, "/api/budgets/s1/accept", `{"amount": 250}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.InDelta(t, 250, decode[budgetJSON](t, rr).CurrentAmount, 1e-9)

	ts2 := newTestServer(t, 100)
	rr = ts2.do(t, http.MethodPost, "/api/budgets/s1/accept", `{"amount": -5}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Len(t, ts2.srv.budgets.Suggestions(), 1, "rejected accept leaves the suggestion in place")
}

func TestEditBudget(t *testing.T) {
	ts := newTestServer(t, 100)

	rr := ts.do(t, http.MethodPut, "/api/budgets/1", `{"amount": 300}`)
	require.Equal(t, http.StatusOK, rr.Code)
	edited := decode[budgetJSON](t, rr)
	assert.InDelta(t, 300, edited.CurrentAmount, 1e-9)
	assert.Equal(t, "danger", edited.Status)

	tests := []struct {
		name   string
		target string
		body   string
		want   int
	}{
		{"missing amount", "/api/budgets/1", `{}`, http.StatusBadRequest},
		{"zero amount", "/api/budgets/1", `{"amount": 0}`, http.StatusUnprocessableEntity},
		{"unknown id", "/api/budgets/nope", `{"amount": 10}`, http.StatusNotFound},
		{"unknown field", "/api/budgets/1", `{"amount": 10, "x": 1}`, http.StatusBadRequest},
		{"no body", "/api/budgets/1", "", http.StatusBadRequest},
		{"two objects", "/api/budgets/1", `{"amount": 10}{"amount": 20}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ts.do(t, http.MethodPut, tt.target, tt.body).Code)
		})
	}
}

func TestUnsupportedMediaType(t *testing.T) {
	ts := newTestServer(t, 100)
	req := httptest.NewRequest(http.MethodPut, "/api/budgets/1", strings.NewReader("amount=10"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
}

func TestCreateAndDeleteBudget(t *testing.T) {
	ts := newTestServer(t, 100)

	rr := ts.do(t, http.MethodPost, "/api/budgets",
		`{"category": "  Gym\u0007 ", "emoji": "🏋️", "amount": 60, "spent_amount": 30}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[budgetJSON](t, rr)
	assert.Equal(t, "Gym", created.Category)
	assert.Equal(t, "excellent", created.Status)
	assert.Equal(t, "/api/budgets/"+created.ID, rr.Header().Get("Location"))

	rr = ts.do(t, http.MethodGet, "/api/budgets/"+created.ID, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = ts.do(t, http.MethodPost, "/api/budgets", `{"category": "", "amount": 60}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = ts.do(t, http.MethodDelete, "/api/budgets/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = ts.do(t, http.MethodDelete, "/api/budgets/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDismissSuggestion(t *testing.T) {
	ts := newTestServer(t, 100)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPost, "/api/budgets/1/dismiss", "").Code,
		"active budgets cannot be dismissed")
	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodPost, "/api/budgets/s1/dismiss", "").Code)
	assert.Empty(t, ts.srv.budgets.Suggestions())
}

func TestSummary(t *testing.T) {
	ts := newTestServer(t, 100)

	rr := ts.do(t, http.MethodGet, "/api/budgets/summary", "")
	require.Equal(t, http.StatusOK, rr.Code)
	sum := decode[summaryJSON](t, rr)
	assert.InDelta(t, 400, sum.TotalBudget, 1e-9)
	assert.InDelta(t, 320, sum.TotalSpent, 1e-9)
	assert.Equal(t, 1, sum.Count)
	assert.Equal(t, map[string]int{"excellent": 0, "good": 1, "warning": 0, "danger": 0}, sum.ByStatus)
}

func TestRefresh(t *testing.T) {
	ts := newTestServer(t, 100)
	prev := march.Previous()
	require.NoError(t, ts.source.Set(march, "Food", 390))
	require.NoError(t, ts.source.Set(prev, "Food", 385))
	require.NoError(t, ts.source.Set(prev, "Healthcare", 195))
	require.NoError(t, ts.source.Set(prev, "Transport", 130))

	rr := ts.do(t, http.MethodPost, "/api/budgets/refresh", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res := decode[refreshJSON](t, rr)
	assert.Equal(t, "2025-03", res.Period)
	assert.Equal(t, 1, res.Updated, "Healthcare figures are unchanged")
	assert.Equal(t, 1, res.Suggested)

	food, err := ts.srv.budgets.Get("1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusWarning, food.Status)

	rr = ts.do(t, http.MethodPost, "/api/budgets/refresh?period=March", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCurrentScore(t *testing.T) {
	ts := newTestServer(t, 100)

	rr := ts.do(t, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var body struct {
		Overall        int    `json:"overall"`
		Classification string `json:"classification"`
		Components     []struct {
			Name string `json:"name"`
			Tier string `json:"tier"`
		} `json:"components"`
		Tips []tipJSON `json:"tips"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 86, body.Overall)
	assert.Equal(t, "Good", body.Classification)
	require.Len(t, body.Components, 3)
	assert.Equal(t, core.FactorBudgetAdherence, body.Components[1].Name)
	assert.Equal(t, "excellent", body.Components[1].Tier)
	assert.Empty(t, body.Tips)
	assert.Len(t, ts.srv.health.History(), 3, "reading the score does not record it")
}

func TestTrend(t *testing.T) {
	ts := newTestServer(t, 100)

	rr := ts.do(t, http.MethodGet, "/api/health/trend?window=3M", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var body struct {
		Window        string  `json:"window"`
		Delta         int     `json:"delta"`
		PercentChange float64 `json:"percent_change"`
		Direction     string  `json:"direction"`
		Points        []struct {
			Period   string `json:"period"`
			Score    int    `json:"score"`
			Movement string `json:"movement"`
		} `json:"points"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "3M", body.Window)
	assert.Equal(t, 6, body.Delta)
	assert.InDelta(t, 8.33, body.PercentChange, 0.01)
	assert.Equal(t, "Improving", body.Direction)
	require.Len(t, body.Points, 3)
	assert.Empty(t, body.Points[0].Movement)
	assert.Equal(t, "up", body.Points[2].Movement)

	assert.Equal(t, http.StatusUnprocessableEntity, ts.do(t, http.MethodGet, "/api/health/trend?window=6M", "").Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/health/trend?window=5M", "").Code)
}

func TestRecordScore(t *testing.T) {
	ts := newTestServer(t, 100)

	rr := ts.do(t, http.MethodPost, "/api/health/history", "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, 86, decode[scoreJSON](t, rr).Overall)

	rr = ts.do(t, http.MethodPost, "/api/health/history", `{"period": "2025-04", "score": 90}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = ts.do(t, http.MethodPost, "/api/health/history", `{"period": "2025-05", "score": 101}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	rr = ts.do(t, http.MethodPost, "/api/health/history", `{"score": 50}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(t, http.MethodGet, "/api/health/history", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var hist struct {
		Points []pointJSON `json:"points"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &hist))
	require.Len(t, hist.Points, 5)
	assert.Equal(t, pointJSON{Period: "2025-03", Score: 86}, hist.Points[3])
	assert.Equal(t, pointJSON{Period: "2025-04", Score: 90}, hist.Points[4])

	latest, ok, err := ts.repo.LatestScore(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2025-03", latest.Point.PeriodLabel)
}

func TestRecentEvents(t *testing.T) {
	ts := newTestServer(t, 100)
	_, err := ts.repo.RecordEvent(context.Background(), storage.Event{
		EventID: "e1", Action: budget.ActionAccepted, BudgetID: "s1", Category: "Healthcare",
		Amount: 200, Status: core.StatusExcellent, OccurredAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	rr := ts.do(t, http.MethodGet, "/api/events?limit=10", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Events []eventJSON `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Events, 1)
	assert.Equal(t, "accepted", body.Events[0].Action)
	assert.Equal(t, "excellent", body.Events[0].Status)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/events?limit=0", "").Code)
}

func TestRateLimitAppliesToMutationsOnly(t *testing.T) {
	ts := newTestServer(t, 2)

	for range 2 {
		assert.NotEqual(t, http.StatusTooManyRequests, ts.do(t, http.MethodPost, "/api/budgets/nope/dismiss", "").Code)
	}
	rr := ts.do(t, http.MethodPost, "/api/budgets/nope/dismiss", "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "rate_limited", decode[errorBody](t, rr).Error.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/budgets", "").Code)
}

func TestSuspiciousRequestRejected(t *testing.T) {
	ts := newTestServer(t, 100)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/budgets?q=../../etc/passwd", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, 100)
	ts.do(t, http.MethodGet, "/api/budgets", "")
	ts.do(t, http.MethodGet, "/api/budgets/nope", "")

	rr := ts.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	out := rr.Body.String()
	assert.Contains(t, out, `finhealth_http_requests_total{method="GET",route="/api/budgets",status="200"} 1`)
	assert.Contains(t, out, `finhealth_http_requests_total{method="GET",route="/api/budgets/{id}",status="404"} 1`)
	assert.Contains(t, out, "finhealth_budget_active 1")
}
