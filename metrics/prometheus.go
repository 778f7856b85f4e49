package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "avatarnft"

type PrometheusRecorder struct {
	counters  *prometheus.CounterVec
	histogram *prometheus.HistogramVec
	gauges    *prometheus.GaugeVec
}

// NewPrometheusRecorder registers the engine collectors on reg. A nil reg
// uses the default registerer.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	counters := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Mint outcomes by payment method and error code",
		},
		[]string{"type", "method", "code"},
	)

	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "latency_seconds",
			Help:      "Mint request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", "method"},
	)

	gauges := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "Pricing state of the collection",
		},
		[]string{"name"},
	)

	reg.MustRegister(counters, histogram, gauges)

	return &PrometheusRecorder{
		counters:  counters,
		histogram: histogram,
		gauges:    gauges,
	}
}

func (p *PrometheusRecorder) IncCounter(name string, labels map[string]string) {
	p.counters.With(prometheus.Labels{
		"type":   name,
		"method": labels["method"],
		"code":   labels["code"],
	}).Inc()
}

func (p *PrometheusRecorder) ObserveLatency(name string, d time.Duration, labels map[string]string) {
	p.histogram.With(prometheus.Labels{
		"operation": name,
		"method":    labels["method"],
	}).Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetGauge(name string, value float64, _ map[string]string) {
	p.gauges.With(prometheus.Labels{"name": name}).Set(value)
}
