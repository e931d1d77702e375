// Package metrics records storage and cache activity.
package metrics

import (
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

const (
	operationsMetric = "expense_storage_operations_total"
	durationMetric   = "expense_storage_operation_duration_milliseconds"
	cacheMetric      = "expense_vendor_cache_lookups_total"
)

// Recorder receives measurements from the storage engine and state store.
type Recorder interface {
	ObserveOperation(operation, status string, d time.Duration)
	ObserveCacheLookup(hit bool)
}

type Prometheus struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	cache      *prometheus.CounterVec
}

// NewPrometheus registers the collectors on reg. Pass a fresh
// prometheus.NewRegistry() in tests to avoid duplicate registration.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	factory := promauto.With(reg)
	return &Prometheus{
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: operationsMetric,
				Help: "Total number of storage operations",
			},
			[]string{"operation", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    durationMetric,
				Help:    "Storage operation duration in milliseconds",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 12),
			},
			[]string{"operation"},
		),
		cache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: cacheMetric,
				Help: "Vendor suggestion cache lookups",
			},
			[]string{"result"},
		),
	}
}

func (p *Prometheus) ObserveOperation(operation, status string, d time.Duration) {
	p.operations.WithLabelValues(operation, status).Inc()
	p.duration.WithLabelValues(operation).Observe(float64(d.Microseconds()) / 1000)
}

func (p *Prometheus) ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.cache.WithLabelValues(result).Inc()
}

// Nop discards everything.
type Nop struct{}

func (Nop) ObserveOperation(string, string, time.Duration) {}
func (Nop) ObserveCacheLookup(bool)                        {}

// OperationStat is one row of the operation counters.
type OperationStat struct {
	Operation string
	Status    string
	Count     float64
}

// Operations reads the operation counters back out of g, sorted by operation then status.
func Operations(g prometheus.Gatherer) ([]OperationStat, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}

	var stats []OperationStat
	for _, mf := range families {
		if mf.GetName() != operationsMetric {
			continue
		}
		for _, m := range mf.GetMetric() {
			stats = append(stats, OperationStat{
				Operation: label(m, "operation"),
				Status:    label(m, "status"),
				Count:     m.GetCounter().GetValue(),
			})
		}
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Operation != stats[j].Operation {
			return stats[i].Operation < stats[j].Operation
		}
		return stats[i].Status < stats[j].Status
	})
	return stats, nil
}

func label(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
