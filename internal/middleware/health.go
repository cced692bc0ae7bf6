package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// HealthChecker is a dependency probed by /health.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// PingChecker adapts anything with a Ping method (store, redis hub).
type PingChecker struct {
	Ping func(ctx context.Context) error
}

func (p PingChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.Ping(ctx)
}

type probeResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type healthReport struct {
	Status       string                 `json:"status"`
	CheckedAt    time.Time              `json:"checkedAt"`
	Dependencies map[string]probeResult `json:"dependencies"`
}

// HealthHandler probes every dependency in parallel. Any failing probe turns
// the response into a 503.
func HealthHandler(checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		report := healthReport{Status: "up", CheckedAt: time.Now().UTC(), Dependencies: map[string]probeResult{}}
		var (
			mu sync.Mutex
			wg sync.WaitGroup
		)
		for name, c := range checkers {
			wg.Add(1)
			go func(name string, c HealthChecker) {
				defer wg.Done()
				res := probeResult{OK: true}
				if err := c.Check(ctx); err != nil {
					res = probeResult{Error: err.Error()}
				}
				mu.Lock()
				report.Dependencies[name] = res
				mu.Unlock()
			}(name, c)
		}
		wg.Wait()

		code := http.StatusOK
		for _, res := range report.Dependencies {
			if !res.OK {
				report.Status = "down"
				code = http.StatusServiceUnavailable
				break
			}
		}
		_ = writeJSONStatus(w, code, report)
	}
}

// ReadinessHandler reports ready once the router is serving.
func ReadinessHandler(w http.ResponseWriter, _ *http.Request) {
	_ = writeJSONStatus(w, http.StatusOK, map[string]any{"status": "ready", "at": time.Now().UTC()})
}

// LivenessHandler always answers ok.
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSONStatus(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}
