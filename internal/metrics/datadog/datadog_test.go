package datadog

import (
	"testing"

	"warehousetogo/internal/metrics"
)

func TestNewBackendRequiresAddr(t *testing.T) {
	t.Parallel()

	b, err := NewBackend(Config{})
	if err == nil {
		t.Fatal("expected error for empty Addr")
	}
	if b != nil {
		t.Fatalf("backend = %v, want nil", b)
	}
}

// TestLabelsToTags verifies the mirror labels become sorted "key:value" tags,
// so the same label set always produces the same tag slice.
func TestLabelsToTags(t *testing.T) {
	t.Parallel()

	got := labelsToTags(metrics.Labels{
		"status": "completed",
		"source": "billing",
	})
	want := []string{"source:billing", "status:completed"}
	if len(got) != len(want) {
		t.Fatalf("tags = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tags = %v, want %v", got, want)
		}
	}

	if tags := labelsToTags(nil); tags != nil {
		t.Fatalf("tags for nil labels = %v, want nil", tags)
	}
}

// TestNilClientIsSafe ensures a zero-value backend never panics; the CLI
// installs the backend best-effort and the rest of the run must not care.
func TestNilClientIsSafe(t *testing.T) {
	t.Parallel()

	b := &Backend{}
	b.IncCounter("mirror_tables_total", 1, metrics.Labels{"source": "s", "status": "completed"})
	b.ObserveHistogram("mirror_table_duration_seconds", 0.5, metrics.Labels{"source": "s"})
	if err := b.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
}
