package metrics

import (
	"sync"
	"testing"
	"time"
)

// fakeBackend is a simple in-memory Backend implementation for tests.
type fakeBackend struct {
	mu sync.Mutex

	callsCounters   []counterCall
	callsHistograms []histCall
	flushCount      int
}

type counterCall struct {
	name   string
	delta  float64
	labels Labels
}

type histCall struct {
	name   string
	value  float64
	labels Labels
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callsCounters = append(f.callsCounters, counterCall{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callsHistograms = append(f.callsHistograms, histCall{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushCount++
	return nil
}

func TestRecordTable(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	backend = fb

	RecordTable("billing", "completed", 2*time.Second)
	RecordTable("crm", "failed", 1500*time.Millisecond)

	if len(fb.callsCounters) != 2 {
		t.Fatalf("expected 2 counter calls, got %d", len(fb.callsCounters))
	}
	if len(fb.callsHistograms) != 2 {
		t.Fatalf("expected 2 histogram calls, got %d", len(fb.callsHistograms))
	}

	cc0 := fb.callsCounters[0]
	if cc0.name != "mirror_tables_total" || cc0.delta != 1 {
		t.Fatalf("counter[0] = %#v; want name=mirror_tables_total, delta=1", cc0)
	}
	if cc0.labels["source"] != "billing" || cc0.labels["status"] != "completed" {
		t.Fatalf("counter[0] labels = %v; want source=billing, status=completed", cc0.labels)
	}

	h0 := fb.callsHistograms[0]
	if h0.name != "mirror_table_duration_seconds" {
		t.Fatalf("hist[0].name=%q; want mirror_table_duration_seconds", h0.name)
	}
	if h0.value < 2.0-0.001 || h0.value > 2.0+0.001 {
		t.Fatalf("hist[0].value=%v; want ~2.0", h0.value)
	}

	cc1 := fb.callsCounters[1]
	if cc1.labels["source"] != "crm" || cc1.labels["status"] != "failed" {
		t.Fatalf("counter[1] labels = %v; want source=crm, status=failed", cc1.labels)
	}
	h1 := fb.callsHistograms[1]
	if h1.value < 1.5-0.001 || h1.value > 1.5+0.001 {
		t.Fatalf("hist[1].value=%v; want ~1.5", h1.value)
	}
}

func TestRecordBatch(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	backend = fb

	RecordBatch("billing", 3)
	RecordBatch("billing", -1) // should be ignored
	RecordBatch("crm", 0)      // empty final flush still counts the batch

	if len(fb.callsCounters) != 4 {
		t.Fatalf("expected 4 counter calls, got %d", len(fb.callsCounters))
	}

	c0 := fb.callsCounters[0]
	if c0.name != "mirror_batches_total" || c0.delta != 1 {
		t.Fatalf("counter[0] = %#v; want name=mirror_batches_total, delta=1", c0)
	}
	if c0.labels["source"] != "billing" {
		t.Fatalf("counter[0].labels[source]=%q; want billing", c0.labels["source"])
	}

	c1 := fb.callsCounters[1]
	if c1.name != "mirror_rows_total" || c1.delta != 3 {
		t.Fatalf("counter[1] = %#v; want name=mirror_rows_total, delta=3", c1)
	}

	c2 := fb.callsCounters[2]
	if c2.name != "mirror_batches_total" || c2.labels["source"] != "crm" {
		t.Fatalf("counter[2] = %#v; want crm batch", c2)
	}
}

func TestSetBackendAndFlush(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	SetBackend(fb)

	if backend != fb {
		t.Fatal("SetBackend did not replace global backend")
	}

	if err := Flush(); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if fb.flushCount != 1 {
		t.Fatalf("expected flushCount=1, got %d", fb.flushCount)
	}

	// SetBackend(nil) should not nil out the backend.
	SetBackend(nil)
	if backend != fb {
		t.Fatal("SetBackend(nil) should not change backend")
	}
}
