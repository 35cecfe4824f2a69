package metrics

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/origami/repo-data/logging"
)

const (
	ResultSucceeded      = "succeeded"
	ResultRecoverable    = "recoverable"
	ResultNonRecoverable = "non_recoverable"
)

var (
	IngestionsProcessedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ingestions_processed_total",
		Help: "Claimed ingestions by kind and result.",
	}, []string{"kind", "result"})

	IngestionDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ingestion_duration_seconds",
		Help:    "Time taken to materialize one ingestion.",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
	}, []string{"kind"})

	DeadIngestionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dead_ingestions",
		Help: "Ingestions that reached the maximum number of attempts.",
	})

	OverrunningIngestionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "overrunning_ingestions",
		Help: "Ingestions started longer ago than the over-running threshold.",
	})

	QueuedIngestionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "queued_ingestions",
		Help: "Rows in the ingestion queue.",
	})

	VersionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "versions",
		Help: "Materialized versions.",
	})

	BundleProbeHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bundle_probe_duration_seconds",
		Help:    "Latency of build service size probes.",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})

	MetricsItems = []prometheus.Collector{
		IngestionsProcessedCounter,
		IngestionDurationHistogram,
		DeadIngestionsGauge,
		OverrunningIngestionsGauge,
		QueuedIngestionsGauge,
		VersionsGauge,
		BundleProbeHistogram,
	}
)

type Metrics struct {
	httpAddress string
	registry    *prometheus.Registry
	httpServer  *http.Server
}

func NewMetrics(address string) *Metrics {
	return &Metrics{
		httpAddress: address,
		registry:    prometheus.NewRegistry(),
	}
}

func (m *Metrics) Start() {
	m.registry.MustRegister(MetricsItems...)
	go m.serve()
}

// Handler exposes the registry, mainly for tests.
func (m *Metrics) Handler() http.Handler {
	router := mux.NewRouter()
	router.Path("/metrics").Handler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	return router
}

func (m *Metrics) serve() {
	m.httpServer = &http.Server{
		Addr:    m.httpAddress,
		Handler: m.Handler(),
	}
	if err := m.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logging.Logger.Errorf("failed to listen and serve, err=%s", err.Error())
		panic(err)
	}
}
