package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agency_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agency_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"method", "route"})

	RelayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agency_relay_requests_total",
		Help: "Relay calls to the workflow engine by action and outcome",
	}, []string{"action", "outcome"})

	RelayDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agency_relay_request_duration_seconds",
		Help:    "Relay call latency",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"action"})

	CreditOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agency_credit_operations_total",
		Help: "Credit gate operations by type and outcome",
	}, []string{"type", "outcome"})

	CreditsMoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agency_credits_total",
		Help: "Sum of credits debited or credited",
	}, []string{"type"})

	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agency_events_dropped_total",
		Help: "Domain events dropped because the dispatch queue was full",
	})
)

// Middleware records request count and latency labelled by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
