package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	previewCacheHits   prometheus.Counter
	previewCacheMisses prometheus.Counter
	previewLoadsTotal  *prometheus.CounterVec
	schemaLoadsTotal   *prometheus.CounterVec
	componentUpdates   *prometheus.CounterVec
	registeredWidgets  prometheus.Gauge
	activeSessions     prometheus.Gauge
)

// Init registers the engine collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		previewCacheHits = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "page_composer",
			Subsystem: "preview",
			Name:      "cache_hits_total",
			Help:      "Preview cache hits",
		})

		previewCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "page_composer",
			Subsystem: "preview",
			Name:      "cache_misses_total",
			Help:      "Preview cache misses, including expired entries",
		})

		previewLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "page_composer",
			Subsystem: "preview",
			Name:      "loads_total",
			Help:      "Preview loads by outcome",
		}, []string{"status"})

		schemaLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "page_composer",
			Subsystem: "schema",
			Name:      "loads_total",
			Help:      "Schema loads by source",
		}, []string{"source"})

		componentUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "page_composer",
			Subsystem: "boundary",
			Name:      "component_updates_total",
			Help:      "Component updates by outcome",
		}, []string{"status"})

		registeredWidgets = promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "page_composer",
			Subsystem: "registry",
			Name:      "registered_widgets",
			Help:      "Number of registered widget component definitions",
		})

		activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "page_composer",
			Subsystem: "session",
			Name:      "active",
			Help:      "Open builder sessions",
		})
	})
}

func PreviewCacheHit() {
	if previewCacheHits != nil {
		previewCacheHits.Inc()
	}
}

func PreviewCacheMiss() {
	if previewCacheMisses != nil {
		previewCacheMisses.Inc()
	}
}

func PreviewLoad(status string) {
	if previewLoadsTotal != nil {
		previewLoadsTotal.WithLabelValues(status).Inc()
	}
}

func SchemaLoad(source string) {
	if schemaLoadsTotal != nil {
		schemaLoadsTotal.WithLabelValues(source).Inc()
	}
}

func ComponentUpdate(status string) {
	if componentUpdates != nil {
		componentUpdates.WithLabelValues(status).Inc()
	}
}

func SetRegisteredWidgets(count int) {
	if registeredWidgets != nil {
		registeredWidgets.Set(float64(count))
	}
}

func SessionOpened() {
	if activeSessions != nil {
		activeSessions.Inc()
	}
}

func SessionClosed() {
	if activeSessions != nil {
		activeSessions.Dec()
	}
}
