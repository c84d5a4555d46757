package metrics

import "github.com/prometheus/client_golang/prometheus"

// StorageMetrics tracks footprint and the outcome of compression sweeps.
type StorageMetrics struct {
	usage      prometheus.Gauge
	quota      prometheus.Gauge
	bytesFreed prometheus.Counter
	items      *prometheus.CounterVec
	sweeps     *prometheus.CounterVec
}

func NewStorageMetrics(reg prometheus.Registerer) *StorageMetrics {
	if reg == nil {
		return &StorageMetrics{}
	}
	m := &StorageMetrics{
		usage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "storage_usage_bytes",
			Help:      "Bytes used by the local database at the last estimate.",
		}),
		quota: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "storage_quota_bytes",
			Help:      "Bytes available to the local database at the last estimate.",
		}),
		bytesFreed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compression_bytes_freed_total",
			Help:      "Bytes reclaimed by compression sweeps.",
		}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compression_items_total",
			Help:      "Assets visited by compression sweeps by outcome.",
		}, []string{"outcome"}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compression_sweeps_total",
			Help:      "Compression sweeps by mode.",
		}, []string{"mode"}),
	}
	reg.MustRegister(m.usage, m.quota, m.bytesFreed, m.items, m.sweeps)
	return m
}

func (m *StorageMetrics) SetEstimate(usage, quota int64) {
	if m == nil || m.usage == nil {
		return
	}
	m.usage.Set(float64(usage))
	m.quota.Set(float64(quota))
}

// ObserveSweep records the totals of one finished sweep.
func (m *StorageMetrics) ObserveSweep(aggressive bool, compressed, skipped, failed int, bytesFreed int64) {
	if m == nil || m.sweeps == nil {
		return
	}
	mode := "standard"
	if aggressive {
		mode = "aggressive"
	}
	m.sweeps.WithLabelValues(mode).Inc()
	m.items.WithLabelValues("compressed").Add(float64(compressed))
	m.items.WithLabelValues("skipped").Add(float64(skipped))
	m.items.WithLabelValues("failed").Add(float64(failed))
	if bytesFreed > 0 {
		m.bytesFreed.Add(float64(bytesFreed))
	}
}
