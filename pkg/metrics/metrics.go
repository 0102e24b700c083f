package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters and gauges for the safety core.
var (
	ConnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "safetrail_connections_total",
		Help: "Total client sessions ever registered",
	})

	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "safetrail_active_connections",
		Help: "Currently live sessions",
	})

	ForcedDisconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "safetrail_forced_disconnects_total",
		Help: "Sessions removed by the liveness sweep",
	})

	SOSTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "safetrail_sos_total",
		Help: "SOS alerts triggered",
	})

	SOSResolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "safetrail_sos_resolved_total",
		Help: "SOS alerts that reached the resolved state",
	})

	ZoneAlertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safetrail_zone_alerts_total",
		Help: "Geofence alerts fired, by zone category",
	}, []string{"category"})

	EvidenceAppends = promauto.NewCounter(prometheus.CounterOpts{
		Name: "safetrail_evidence_appends_total",
		Help: "Entries appended to the evidence log",
	})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safetrail_http_requests_total",
		Help: "HTTP requests by method, path and status",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "safetrail_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// GinMiddleware records request counts and latency.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
