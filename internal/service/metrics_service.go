package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the scheduling engine.
type MetricsService struct {
	registry           *prometheus.Registry
	handler            http.Handler
	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	placementConflicts *prometheus.CounterVec
	reconcileRuns      prometheus.Counter
	reconcileMutations prometheus.Counter
	attendanceMarks    prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	placementConflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_placement_conflicts_total",
		Help: "Placements rejected by the conflict checker, by scope",
	}, []string{"scope"})

	reconcileRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "calendar_reconcile_runs_total",
		Help: "Completed calendar reconciliation passes",
	})

	reconcileMutations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "calendar_reconcile_mutations_total",
		Help: "Sub-term current flags changed by reconciliation",
	})

	attendanceMarks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_marks_total",
		Help: "Periods whose roll was recorded or replaced",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, placementConflicts, reconcileRuns, reconcileMutations, attendanceMarks, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:           registry,
		handler:            handler,
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		placementConflicts: placementConflicts,
		reconcileRuns:      reconcileRuns,
		reconcileMutations: reconcileMutations,
		attendanceMarks:    attendanceMarks,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// IncPlacementConflict counts a rejected placement by conflict scope.
func (m *MetricsService) IncPlacementConflict(scope string) {
	if m == nil {
		return
	}
	m.placementConflicts.WithLabelValues(scope).Inc()
}

// ObserveReconcile counts one reconciliation pass and its mutations.
func (m *MetricsService) ObserveReconcile(mutated int) {
	if m == nil {
		return
	}
	m.reconcileRuns.Inc()
	m.reconcileMutations.Add(float64(mutated))
}

// IncAttendanceMark counts one recorded roll.
func (m *MetricsService) IncAttendanceMark() {
	if m == nil {
		return
	}
	m.attendanceMarks.Inc()
}
