package attrstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/nisimpson/attrstore"
	"github.com/nisimpson/attrstore/attrmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	return testutil.ToFloat64(c)
}

func TestStoreMetrics_Register(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := attrstore.NewStoreMetrics("attrstore")

	if err := metrics.Register(reg); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := metrics.Register(reg); err == nil {
		t.Error("Expected duplicate registration to fail")
	}
}

func TestInstrument_Errors(t *testing.T) {
	errDenied := errors.New("access denied")

	mock := attrmock.NewMockStore(t)
	mock.BatchDeleteFunc = func(context.Context, string, []string) error { return errDenied }

	metrics := attrstore.NewStoreMetrics("test")
	store := attrstore.Instrument(mock, metrics)

	if err := store.BatchDelete(context.Background(), "notes", []string{"a", "b"}); !errors.Is(err, errDenied) {
		t.Fatalf("Expected errDenied, got %v", err)
	}

	if got := counterValue(t, metrics.Operations.WithLabelValues("BatchDelete", "notes", "error")); got != 1 {
		t.Errorf("Expected 1 failed BatchDelete, got %v", got)
	}
	if got := testutil.CollectAndCount(metrics.Items); got != 0 {
		t.Errorf("Expected no item counts for failed calls, got %d series", got)
	}
	if got := testutil.CollectAndCount(metrics.Duration); got != 1 {
		t.Errorf("Expected 1 latency series, got %d", got)
	}
}
