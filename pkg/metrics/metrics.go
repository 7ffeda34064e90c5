package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	WsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dm_ws_connections",
		Help: "Current number of active websocket connections",
	})
	MessagesSentTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dm_messages_sent_total",
		Help: "Total number of direct messages persisted",
	})
	MessagesDeletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dm_messages_deleted_total",
		Help: "Total number of direct messages soft-deleted",
	})
	PushTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dm_push_total",
		Help: "Realtime push attempts by outcome",
	}, []string{"event", "outcome"})
	DeliveryWarningsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dm_delivery_warnings_total",
		Help: "Realtime pushes that failed after the message was persisted",
	})
	CacheLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dm_cache_lookups_total",
		Help: "Cache lookups by cache name and result",
	}, []string{"cache", "result"})
	HttpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	HttpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

func init() {
	prometheus.MustRegister(
		WsConnections,
		MessagesSentTotal,
		MessagesDeletedTotal,
		PushTotal,
		DeliveryWarningsTotal,
		CacheLookupsTotal,
		HttpRequestsTotal,
		HttpRequestDuration,
	)
}

const (
	PushDelivered = "delivered"
	PushOffline   = "offline"
	PushFailed    = "failed"

	CacheHit  = "hit"
	CacheMiss = "miss"
)

// GinMiddleware records request count and latency per route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		labels := prometheus.Labels{"method": c.Request.Method, "path": path, "status": status}
		HttpRequestsTotal.With(labels).Inc()
		HttpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry for scraping.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
