package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "finhealth/internal/log"
)

type observed struct {
	method, route string
	status        int
}

func newTraced(t *testing.T, register func(mux *http.ServeMux)) (http.Handler, *[]observed) {
	t.Helper()
	var seen []observed
	mux := http.NewServeMux()
	register(mux)
	m := NewMiddleware(applog.Discard(), func(*http.Request) string { return "1.2.3.4" },
		func(method, route string, status int, _ time.Duration) {
			seen = append(seen, observed{method, route, status})
		})
	return m.Middleware(mux), &seen
}

func TestMiddlewareObservesMatchedRoute(t *testing.T) {
	var gotID string
	h, seen := newTraced(t, func(mux *http.ServeMux) {
		mux.Handle("DELETE /api/budgets/{id}", Route(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotID = GetRequestID(r.Context())
			w.WriteHeader(http.StatusNoContent)
		})))
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/budgets/7", nil))

	require.Len(t, *seen, 1)
	assert.Equal(t, observed{http.MethodDelete, "/api/budgets/{id}", http.StatusNoContent}, (*seen)[0])
	assert.True(t, strings.HasPrefix(gotID, "req_"))
	assert.Equal(t, gotID, rr.Header().Get(HeaderRequestID))
}

func TestMiddlewareUnmatched(t *testing.T) {
	h, seen := newTraced(t, func(*http.ServeMux) {})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))

	require.Len(t, *seen, 1)
	assert.Equal(t, observed{http.MethodGet, "unmatched", http.StatusNotFound}, (*seen)[0])
}

func TestRequestIDPropagation(t *testing.T) {
	h, _ := newTraced(t, func(mux *http.ServeMux) {
		mux.HandleFunc("/", func(http.ResponseWriter, *http.Request) {})
	})

	incoming := GenerateRequestID()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderRequestID, incoming)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	assert.Equal(t, incoming, rr.Header().Get(HeaderRequestID))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderRequestID, "<script>")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	assert.NotEqual(t, "<script>", rr.Header().Get(HeaderRequestID))
}

func TestStatusCapturedOnce(t *testing.T) {
	h, seen := newTraced(t, func(mux *http.ServeMux) {
		mux.Handle("/", Route(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("ok"))
			w.WriteHeader(http.StatusInternalServerError)
		})))
	})
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, (*seen)[0].status)
	assert.Equal(t, "/", (*seen)[0].route)
}
