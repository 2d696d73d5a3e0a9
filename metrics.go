package attrstore

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics holds the prometheus collectors updated by an instrumented Store.
type StoreMetrics struct {
	Operations *prometheus.CounterVec   // Calls by operation, domain and status
	Duration   *prometheus.HistogramVec // Call latency by operation and domain
	Items      *prometheus.CounterVec   // Items read or written by operation and domain
}

// NewStoreMetrics creates unregistered store collectors under namespace.
func NewStoreMetrics(namespace string) *StoreMetrics {
	return &StoreMetrics{
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Total number of store operations",
			},
			[]string{"operation", "domain", "status"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Store operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "domain"},
		),
		Items: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_items_total",
				Help:      "Total number of items read or written",
			},
			[]string{"operation", "domain"},
		),
	}
}

// Register adds the collectors to reg.
func (m *StoreMetrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Operations, m.Duration, m.Items} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Instrument wraps store so that every call updates m.
func Instrument(store Store, m *StoreMetrics) Store {
	return &instrumentedStore{inner: store, metrics: m}
}

type instrumentedStore struct {
	inner   Store
	metrics *StoreMetrics
}

func (s *instrumentedStore) observe(op, domain string, start time.Time, items int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.Operations.WithLabelValues(op, domain, status).Inc()
	s.metrics.Duration.WithLabelValues(op, domain).Observe(time.Since(start).Seconds())
	if err == nil && items > 0 {
		s.metrics.Items.WithLabelValues(op, domain).Add(float64(items))
	}
}

func (s *instrumentedStore) CreateDomain(ctx context.Context, name string) error {
	start := time.Now()
	err := s.inner.CreateDomain(ctx, name)
	s.observe("CreateDomain", name, start, 0, err)
	return err
}

func (s *instrumentedStore) Select(ctx context.Context, in *SelectInput) (*SelectOutput, error) {
	start := time.Now()
	out, err := s.inner.Select(ctx, in)
	n := 0
	if out != nil {
		n = len(out.Items)
	}
	s.observe("Select", in.Domain, start, n, err)
	return out, err
}

func (s *instrumentedStore) BatchPut(ctx context.Context, domain string, items []Item) error {
	start := time.Now()
	err := s.inner.BatchPut(ctx, domain, items)
	s.observe("BatchPut", domain, start, len(items), err)
	return err
}

func (s *instrumentedStore) BatchDelete(ctx context.Context, domain string, names []string) error {
	start := time.Now()
	err := s.inner.BatchDelete(ctx, domain, names)
	s.observe("BatchDelete", domain, start, len(names), err)
	return err
}
