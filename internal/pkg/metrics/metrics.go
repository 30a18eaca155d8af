package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "metromap",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "metromap",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "metromap",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Editor metrics
	EditorOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "metromap",
		Subsystem: "editor",
		Name:      "operations_total",
		Help:      "Editor intents processed, by kind and whether they changed the map",
	}, []string{"kind", "changed"})

	EditorHistory = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "metromap",
		Subsystem: "editor",
		Name:      "history_steps_total",
		Help:      "Undo and redo steps applied",
	}, []string{"direction"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "metromap",
		Subsystem: "editor",
		Name:      "active_sessions",
		Help:      "Editor sessions currently held in memory",
	})

	ImportedDocuments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "metromap",
		Subsystem: "editor",
		Name:      "imports_total",
		Help:      "Document imports by result",
	}, []string{"result"})

	NamingLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "metromap",
		Subsystem: "naming",
		Name:      "lookups_total",
		Help:      "Station name lookups by source and result",
	}, []string{"source", "result"})

	NamingLookupDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "metromap",
		Subsystem: "naming",
		Name:      "lookup_duration_seconds",
		Help:      "Duration of reverse-geocode requests",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "metromap",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "metromap",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "metromap",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	AutosavedDocuments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "metromap",
		Subsystem: "autosave",
		Name:      "documents_total",
		Help:      "Documents handled by the autosave consumer, by result",
	}, []string{"result"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "metromap",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "metromap",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "metromap",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		// route pattern keeps map ids out of the label set
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// PoolStat is the subset of pgxpool.Stat the pool gauges read.
type PoolStat interface {
	AcquiredConns() int32
	IdleConns() int32
	TotalConns() int32
}

// UpdateDBPoolMetrics copies pool statistics into the gauges.
func UpdateDBPoolMetrics(s PoolStat) {
	DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
	DBPoolConnsIdle.Set(float64(s.IdleConns()))
	DBPoolConnsOpen.Set(float64(s.TotalConns()))
}

// Changed renders a bool as a label value.
func Changed(b bool) string {
	return strconv.FormatBool(b)
}
