package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func agencyRouter(keys map[string]string) http.Handler {
	r := chi.NewRouter()
	r.Use(APIKeyAuth(keys))
	r.Route("/v1/{agency}", func(r chi.Router) {
		r.Use(RequireAgency)
		r.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(AgencyFromContext(r.Context()) + "|" + ActorFromContext(r.Context())))
		})
	})
	return r
}

func TestAPIKeyAuth(t *testing.T) {
	h := agencyRouter(map[string]string{"key-1": "agency-1"})

	cases := []struct {
		name   string
		path   string
		auth   string
		status int
		body   string
	}{
		{"missing header", "/v1/agency-1/whoami", "", http.StatusUnauthorized, ""},
		{"wrong key", "/v1/agency-1/whoami", "Bearer nope", http.StatusUnauthorized, ""},
		{"other agency", "/v1/agency-2/whoami", "Bearer key-1", http.StatusForbidden, ""},
		{"bearer", "/v1/agency-1/whoami", "Bearer key-1", http.StatusOK, "agency-1|inspector-9"},
		{"bare key", "/v1/agency-1/whoami", "key-1", http.StatusOK, "agency-1|inspector-9"},
		{"bad agency id", "/v1/agency!1/whoami", "key-1", http.StatusBadRequest, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			req.Header.Set(ActorHeader, "inspector-9")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, rec.Body.String())
			}
		})
	}
}

func TestAPIKeyAuth_DisabledWithoutKeys(t *testing.T) {
	h := agencyRouter(nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/agency-7/whoami", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "agency-7|", rec.Body.String())
}

func TestRateLimit(t *testing.T) {
	rl := NewRateLimiter(2, time.Hour)
	defer rl.Close()

	r := chi.NewRouter()
	r.Route("/v1/{agency}", func(r chi.Router) {
		r.Use(RequireAgency)
		r.Use(RateLimit(rl, time.Hour))
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {})
	})

	hit := func(agency string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/"+agency+"/ping", nil))
		return rec
	}

	assert.Equal(t, http.StatusOK, hit("a").Code)
	assert.Equal(t, http.StatusOK, hit("a").Code)
	limited := hit("a")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "3600", limited.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, hit("b").Code, "agencies have separate buckets")
}

func TestHealthHandler(t *testing.T) {
	ok := PingChecker{Ping: func(context.Context) error { return nil }}
	down := PingChecker{Ping: func(context.Context) error { return errors.New("refused") }}

	rec := httptest.NewRecorder()
	HealthHandler(map[string]HealthChecker{"db": ok})(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	HealthHandler(map[string]HealthChecker{"db": ok, "redis": down})(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "refused")
}

func TestMetrics_RecordSync(t *testing.T) {
	m := NewMetrics()
	m.RecordSync(3, 1, 1, 2)
	m.RecordSync(1, 0, 0, 0)

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap["sync_batches"])
	assert.Equal(t, uint64(4), snap["changes_applied"])
	assert.Equal(t, uint64(2), snap["changes_failed"])
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-09")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("2026-03-09T10:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, 8, d.Hour())

	_, err = ParseDate("03/09/2026")
	assert.Error(t, err)
}

func TestParseDateIn(t *testing.T) {
	pacific := time.FixedZone("PDT", -7*3600)
	d, err := ParseDateIn("2026-07-03", pacific)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 7, 3, 7, 0, 0, 0, time.UTC), d)

	d, err = ParseDateIn("2026-07-03T10:00:00Z", pacific)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 7, 3, 10, 0, 0, 0, time.UTC), d)
}

func TestValidateRange(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.NoError(t, ValidateRange(start, start.AddDate(0, 0, 10), 92*24*time.Hour))
	assert.Error(t, ValidateRange(start, start.AddDate(0, 0, -1), 0))
	assert.Error(t, ValidateRange(start, start.AddDate(0, 6, 0), 92*24*time.Hour))
}

func TestValidateDays(t *testing.T) {
	assert.Equal(t, 30, ValidateDays(0))
	assert.Equal(t, 365, ValidateDays(1000))
	assert.Equal(t, 7, ValidateDays(7))
}

func TestRateLimiter_WindowResets(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Close()
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	ok, _ := rl.Allow("a")
	assert.True(t, ok)

	clock = clock.Add(20 * time.Second)
	ok, wait := rl.Allow("a")
	assert.False(t, ok)
	assert.Equal(t, 40*time.Second, wait)

	clock = clock.Add(40 * time.Second)
	ok, _ = rl.Allow("a")
	assert.True(t, ok, "a new window starts")

	clock = clock.Add(3 * time.Minute)
	rl.sweep()
	assert.Empty(t, rl.quotas)
}
