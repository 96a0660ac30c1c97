package addr

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-ibaddr/pkg/types"
)

const subsystem = "addr"

// Metrics 调度器 Prometheus 指标
//
// nil *Metrics 的所有方法都是空操作。
type Metrics struct {
	submittedTotal prometheus.Counter
	rejectedTotal  prometheus.Counter
	completedTotal *prometheus.CounterVec
	queueDepth     prometheus.Gauge
	clients        prometheus.Gauge
	latency        prometheus.Histogram
}

// NewMetrics 创建并注册指标，reg 为 nil 时只创建不注册
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		submittedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "submitted_total",
			Help:      "Count of resolution requests accepted into the queue.",
		}),
		rejectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rejected_total",
			Help:      "Count of resolution requests that failed synchronously on submit.",
		}),
		completedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "completed_total",
			Help:      "Count of completion callbacks by terminal status.",
		}, []string{"status"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "queue_depth",
			Help:      "Number of requests waiting in the deadline queue.",
		}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "clients",
			Help:      "Number of registered clients that have not started unregistering.",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "resolve_duration_seconds",
			Help:      "Time from submit to completion callback.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.submittedTotal,
		m.rejectedTotal,
		m.completedTotal,
		m.queueDepth,
		m.clients,
		m.latency,
	}
}

func (m *Metrics) submitted() {
	if m != nil {
		m.submittedTotal.Inc()
	}
}

func (m *Metrics) rejected() {
	if m != nil {
		m.rejectedTotal.Inc()
	}
}

func (m *Metrics) completed(status types.Status, d time.Duration) {
	if m == nil {
		return
	}
	m.completedTotal.WithLabelValues(status.String()).Inc()
	m.latency.Observe(d.Seconds())
}

func (m *Metrics) setQueueDepth(n int) {
	if m != nil {
		m.queueDepth.Set(float64(n))
	}
}

func (m *Metrics) clientRegistered() {
	if m != nil {
		m.clients.Inc()
	}
}

func (m *Metrics) clientUnregistered() {
	if m != nil {
		m.clients.Dec()
	}
}
