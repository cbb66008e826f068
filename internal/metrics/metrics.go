package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}

// Chunked upload instrumentation.
var (
	UploadSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "docrepo_upload_sessions_active",
		Help: "Number of live chunked upload sessions.",
	})

	UploadChunksReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docrepo_upload_chunks_received_total",
		Help: "Total chunks accepted across all upload sessions.",
	})

	UploadsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docrepo_uploads_completed_total",
		Help: "Total chunked uploads assembled and stored.",
	})

	UploadsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docrepo_uploads_expired_total",
		Help: "Total chunked upload sessions evicted after expiry.",
	})
)
