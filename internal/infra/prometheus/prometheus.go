package prometheus

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sifan077/LinkGate/config"
	"go.uber.org/zap"
)

const (
	readHeaderTimeout = 5 * time.Second
	writeTimeout      = 10 * time.Second
	defaultPort       = 9090
)

// NewServer builds the metrics listener. It serves /metrics from gatherer, falling back to
// the default registry that promauto collectors register with.
func NewServer(cfg config.PrometheusConfig, gatherer prometheus.Gatherer, log *zap.Logger) *http.Server {
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           Handler(gatherer, log),
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}
}

// Handler returns the mux served by the metrics listener.
func Handler(gatherer prometheus.Gatherer, log *zap.Logger) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if log == nil {
		log = zap.NewNop()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorLog:          zap.NewStdLog(log),
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
