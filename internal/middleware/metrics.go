package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Metrics stores application metrics
type Metrics struct {
	RequestsTotal      uint64
	RequestsInProgress uint64
	RequestsSuccess    uint64
	RequestsFailed     uint64
	AnalysesTotal      uint64
	AnalysesFailed     uint64
	CitationRejects    uint64
	GapsReported       uint64
	Adoptions          uint64
	StartTime          time.Time
}

var globalMetrics = &Metrics{
	StartTime: time.Now(),
}

// IncrementRequests increments total request counter
func IncrementRequests() {
	atomic.AddUint64(&globalMetrics.RequestsTotal, 1)
}

// IncrementInProgress increments in-progress request counter
func IncrementInProgress() {
	atomic.AddUint64(&globalMetrics.RequestsInProgress, 1)
}

// DecrementInProgress decrements in-progress request counter
func DecrementInProgress() {
	atomic.AddUint64(&globalMetrics.RequestsInProgress, ^uint64(0))
}

// IncrementSuccess increments successful request counter
func IncrementSuccess() {
	atomic.AddUint64(&globalMetrics.RequestsSuccess, 1)
}

// IncrementFailed increments failed request counter
func IncrementFailed() {
	atomic.AddUint64(&globalMetrics.RequestsFailed, 1)
}

// RecordAnalysis counts one finished analysis and the gaps it reported.
func RecordAnalysis(gaps int) {
	atomic.AddUint64(&globalMetrics.AnalysesTotal, 1)
	atomic.AddUint64(&globalMetrics.GapsReported, uint64(gaps))
}

// RecordAnalysisFailure counts a failed analysis; rejected citations are tracked apart.
func RecordAnalysisFailure(citationRejected bool) {
	atomic.AddUint64(&globalMetrics.AnalysesTotal, 1)
	atomic.AddUint64(&globalMetrics.AnalysesFailed, 1)
	if citationRejected {
		atomic.AddUint64(&globalMetrics.CitationRejects, 1)
	}
}

// IncrementAdoptions increments adopted recommendation counter
func IncrementAdoptions() {
	atomic.AddUint64(&globalMetrics.Adoptions, 1)
}

// GetMetrics returns current metrics
func GetMetrics() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]interface{}{
		"requests_total":       atomic.LoadUint64(&globalMetrics.RequestsTotal),
		"requests_in_progress": atomic.LoadUint64(&globalMetrics.RequestsInProgress),
		"requests_success":     atomic.LoadUint64(&globalMetrics.RequestsSuccess),
		"requests_failed":      atomic.LoadUint64(&globalMetrics.RequestsFailed),
		"analyses_total":       atomic.LoadUint64(&globalMetrics.AnalysesTotal),
		"analyses_failed":      atomic.LoadUint64(&globalMetrics.AnalysesFailed),
		"citation_rejects":     atomic.LoadUint64(&globalMetrics.CitationRejects),
		"gaps_reported":        atomic.LoadUint64(&globalMetrics.GapsReported),
		"adoptions":            atomic.LoadUint64(&globalMetrics.Adoptions),
		"uptime_seconds":       time.Since(globalMetrics.StartTime).Seconds(),
		"memory": map[string]interface{}{
			"alloc_bytes":       m.Alloc,
			"total_alloc_bytes": m.TotalAlloc,
			"sys_bytes":         m.Sys,
			"num_gc":            m.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// MetricsMiddleware tracks request metrics
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		IncrementRequests()
		IncrementInProgress()
		defer DecrementInProgress()

		// Wrap response writer to capture status
		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		// Track success/failure based on status code
		if wrapped.statusCode >= 200 && wrapped.statusCode < 400 {
			IncrementSuccess()
		} else {
			IncrementFailed()
		}
	})
}

// MetricsHandler returns metrics as JSON
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(GetMetrics())
}

// InstrumentTotals collects reader and sums each int64 counter, overall under
// "total" and per attribute set ("framework=pdpl").
func InstrumentTotals(ctx context.Context, reader sdkmetric.Reader) (map[string]map[string]int64, error) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}
	out := map[string]map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			sum, ok := md.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			totals := map[string]int64{"total": 0}
			for _, dp := range sum.DataPoints {
				totals["total"] += dp.Value
				if key := dp.Attributes.Encoded(attribute.DefaultEncoder()); key != "" {
					totals[key] += dp.Value
				}
			}
			out[md.Name] = totals
		}
	}
	return out, nil
}

// InstrumentedMetricsHandler serves the request counters together with the
// OpenTelemetry instruments recorded through reader's provider.
func InstrumentedMetricsHandler(reader sdkmetric.Reader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inst, err := InstrumentTotals(r.Context(), reader)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "collect instruments: "+err.Error())
			return
		}
		m := GetMetrics()
		m["instruments"] = inst
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(m)
	}
}
