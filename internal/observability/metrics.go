package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics holds the bot's Prometheus instruments.
type Metrics struct {
	UploadsCommitted prometheus.Counter
	UploadsRejected  *prometheus.CounterVec
	InlineQueries    prometheus.Counter
	BroadcastSent    prometheus.Counter
	BroadcastFailed  prometheus.Counter
}

// InitMetrics registers the bot's counters with the given registerer.
// Passing a fresh prometheus.NewRegistry() gives tests isolated instances.
func InitMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		UploadsCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tagstash_uploads_committed_total",
			Help: "Files committed to the public catalog",
		}),
		UploadsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tagstash_uploads_rejected_total",
			Help: "Uploads rejected before commit, by reason",
		}, []string{"reason"}),
		InlineQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tagstash_inline_queries_total",
			Help: "Inline tag searches handled",
		}),
		BroadcastSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tagstash_broadcast_sent_total",
			Help: "Broadcast messages delivered",
		}),
		BroadcastFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tagstash_broadcast_failed_total",
			Help: "Broadcast deliveries that failed",
		}),
	}

	collectors := []prometheus.Collector{
		m.UploadsCommitted, m.UploadsRejected, m.InlineQueries,
		m.BroadcastSent, m.BroadcastFailed,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			// If already registered, that's okay (useful for testing)
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}

	return m, nil
}

// StartMetricsServer starts an HTTP server on the given port for metrics
func StartMetricsServer(port string, logger *zap.Logger) {
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		http.Handle("/metrics", promhttp.Handler())

		logger.Info("starting metrics server", zap.String("port", port))
		if err := http.ListenAndServe(":"+port, nil); err != nil {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
}
