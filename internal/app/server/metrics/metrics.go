// Package metrics - Prometheus метрики сервера синхронизации
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry метрики пакетов синхронизации и HTTP слоя
type Registry struct {
	reg *prometheus.Registry

	SyncItemsTotal       *prometheus.CounterVec
	SyncBatchDuration    prometheus.Histogram
	SyncBatchSize        prometheus.Histogram
	HTTPRateLimitedTotal prometheus.Counter
}

// New создает собственный реестр, чтобы тесты не конфликтовали
// с глобальным prometheus.DefaultRegisterer
func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Registry{
		reg: reg,
		SyncItemsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vistoria_sync_items_total",
				Help: "Inspections processed by sync batches, by result",
			},
			[]string{"result"},
		),
		SyncBatchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "vistoria_sync_batch_duration_seconds",
			Help:    "Time to process one sync batch in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SyncBatchSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "vistoria_sync_batch_size",
			Help:    "Number of inspections per sync batch",
			Buckets: []float64{1, 2, 5, 10, 20, 50},
		}),
		HTTPRateLimitedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "vistoria_http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}),
	}
}

// ItemProcessed реализует sync.Recorder
func (r *Registry) ItemProcessed(result string) {
	r.SyncItemsTotal.WithLabelValues(result).Inc()
}

// BatchProcessed реализует sync.Recorder
func (r *Registry) BatchProcessed(size int, d time.Duration) {
	r.SyncBatchSize.Observe(float64(size))
	r.SyncBatchDuration.Observe(d.Seconds())
}

func (r *Registry) RateLimited() {
	r.HTTPRateLimitedTotal.Inc()
}

// Handler отдает метрики для /metrics
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}
