package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// Metrics stores application counters.
type Metrics struct {
	RequestsTotal      uint64
	RequestsInProgress uint64
	RequestsSuccess    uint64
	RequestsFailed     uint64
	SyncBatches        uint64
	ChangesApplied     uint64
	ChangesDuplicate   uint64
	ChangesConflicted  uint64
	ChangesFailed      uint64
	StartTime          time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{StartTime: time.Now()}
}

// RecordSync counts one processed sync batch.
func (m *Metrics) RecordSync(applied, duplicates, conflicts, failed int) {
	atomic.AddUint64(&m.SyncBatches, 1)
	atomic.AddUint64(&m.ChangesApplied, uint64(applied))
	atomic.AddUint64(&m.ChangesDuplicate, uint64(duplicates))
	atomic.AddUint64(&m.ChangesConflicted, uint64(conflicts))
	atomic.AddUint64(&m.ChangesFailed, uint64(failed))
}

// Snapshot returns current metrics.
func (m *Metrics) Snapshot() map[string]interface{} {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return map[string]interface{}{
		"requests_total":       atomic.LoadUint64(&m.RequestsTotal),
		"requests_in_progress": atomic.LoadUint64(&m.RequestsInProgress),
		"requests_success":     atomic.LoadUint64(&m.RequestsSuccess),
		"requests_failed":      atomic.LoadUint64(&m.RequestsFailed),
		"sync_batches":         atomic.LoadUint64(&m.SyncBatches),
		"changes_applied":      atomic.LoadUint64(&m.ChangesApplied),
		"changes_duplicate":    atomic.LoadUint64(&m.ChangesDuplicate),
		"changes_conflicted":   atomic.LoadUint64(&m.ChangesConflicted),
		"changes_failed":       atomic.LoadUint64(&m.ChangesFailed),
		"uptime_seconds":       time.Since(m.StartTime).Seconds(),
		"memory": map[string]interface{}{
			"alloc_bytes":       mem.Alloc,
			"total_alloc_bytes": mem.TotalAlloc,
			"sys_bytes":         mem.Sys,
			"num_gc":            mem.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// Middleware tracks request counters.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddUint64(&m.RequestsTotal, 1)
		atomic.AddUint64(&m.RequestsInProgress, 1)
		defer atomic.AddUint64(&m.RequestsInProgress, ^uint64(0))

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode >= 200 && wrapped.statusCode < 400 {
			atomic.AddUint64(&m.RequestsSuccess, 1)
		} else {
			atomic.AddUint64(&m.RequestsFailed, 1)
		}
	})
}

// Handler returns metrics as JSON
func (m *Metrics) Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(m.Snapshot())
}
