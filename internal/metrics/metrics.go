package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "whiteboard",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests received",
	}, []string{"method", "path", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "whiteboard",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	wsConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "whiteboard",
		Name:      "ws_connections",
		Help:      "Current number of open WebSocket connections",
	})

	wsEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "whiteboard",
		Name:      "ws_events_total",
		Help:      "Total number of WebSocket events handled, by type",
	}, []string{"type"})

	contentUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "whiteboard",
		Name:      "content_updates_total",
		Help:      "Drawing content updates, by throttle outcome",
	}, []string{"outcome"})

	broadcasts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "whiteboard",
		Name:      "broadcasts_total",
		Help:      "Room broadcasts fanned out by this process",
	}, []string{"event"})
)

func ConnectionOpened() { wsConnections.Inc() }

func ConnectionClosed() { wsConnections.Dec() }

func EventHandled(typ string) { wsEvents.WithLabelValues(typ).Inc() }

func UpdateAccepted() { contentUpdates.WithLabelValues("accepted").Inc() }

func UpdateRejected() { contentUpdates.WithLabelValues("rejected").Inc() }

func BroadcastSent(event string) { broadcasts.WithLabelValues(event).Inc() }

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack keeps WebSocket upgrades working behind the middleware.
func (r *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := r.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, fmt.Errorf("metrics: underlying ResponseWriter does not support hijacking")
}

// Middleware records request metrics with Prometheus labels.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		// The route pattern keeps the label cardinality bounded; raw
		// paths would mint one label value per room id.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		labels := prometheus.Labels{
			"method": r.Method,
			"path":   path,
			"status": strconv.Itoa(rec.status),
		}
		httpRequests.With(labels).Inc()
		httpLatency.With(labels).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the default Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
