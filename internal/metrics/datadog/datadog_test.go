package datadog

import (
	"reflect"
	"testing"

	"fareetl/internal/metrics"
)

func TestLabelsToTags(t *testing.T) {
	t.Parallel()

	got := labelsToTags(metrics.Labels{"stage": "load", "job": "fareetl", "status": "success"})
	want := []string{"job:fareetl", "stage:load", "status:success"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("labelsToTags = %v, want %v", got, want)
	}
	if labelsToTags(nil) != nil {
		t.Fatal("labelsToTags(nil) should be nil")
	}
	if got := labelsToTags(metrics.Labels{"job": "", "kind": "inserted"}); !reflect.DeepEqual(got, []string{"kind:inserted"}) {
		t.Fatalf("empty job label kept: %v", got)
	}
}

func TestMetricName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		metrics.RowsTotal:            "fareetl.rows",
		metrics.SupplierRowsTotal:    "fareetl.supplier_rows",
		metrics.StageTotal:           "fareetl.stage",
		metrics.StageDurationSeconds: "fareetl.stage_duration_seconds",
	}
	for in, want := range cases {
		if got := metricName(in); got != want {
			t.Errorf("metricName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewBackend_RequiresAddr(t *testing.T) {
	t.Parallel()

	if _, err := NewBackend(Config{}); err == nil {
		t.Fatal("expected error for empty Addr")
	}
}

// TestZeroBackend checks the zero-value backend is a no-op.
func TestZeroBackend(t *testing.T) {
	t.Parallel()

	b := &Backend{}
	b.IncCounter(metrics.RowsTotal, 1, metrics.Labels{"kind": "inserted"})
	b.ObserveHistogram(metrics.StageDurationSeconds, 0.5, nil)
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
}
