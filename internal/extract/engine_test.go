package extract

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"warehousetogo/internal/plan"
	"warehousetogo/internal/schema"
	"warehousetogo/internal/store"
	"warehousetogo/internal/warehouse"
)

func testJob(rowLimit, batchSize int) plan.TableJob {
	return plan.TableJob{
		Source: "billing", Database: "FINANCE", Schema: "BILLING", Table: "INVOICES",
		RowLimit: rowLimit, BatchSize: batchSize,
	}
}

func testCols() []schema.Column {
	return []schema.Column{
		{Name: "ID", Type: schema.Type{Kind: schema.Int}},
		{Name: "NOTE", Nullable: true, Type: schema.Type{Kind: schema.Text}},
	}
}

// fakeRows streams rows whose first value is the row index.
type fakeRows struct {
	rows   [][]any
	pos    int
	closed bool
	err    error
}

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d dests, %d values", len(dest), len(row))
	}
	for i, d := range dest {
		*(d.(*any)) = row[i]
	}
	return nil
}

func (r *fakeRows) Err() error   { return r.err }
func (r *fakeRows) Close() error { r.closed = true; return nil }

// fakeSession serves a fixed column set and sourceRows synthetic rows, capped
// at the query limit the engine asks for.
type fakeSession struct {
	cols       []schema.Column
	sourceRows int

	columnsErr error
	queryErr   error

	columnsCalls int
	queryCalls   int
	lastLimit    int
	lastRows     *fakeRows
}

func (s *fakeSession) Columns(ctx context.Context, job plan.TableJob) ([]schema.Column, error) {
	s.columnsCalls++
	if s.columnsErr != nil {
		return nil, s.columnsErr
	}
	return s.cols, nil
}

func (s *fakeSession) Query(ctx context.Context, job plan.TableJob, cols []schema.Column, limit int) (warehouse.Rows, error) {
	s.queryCalls++
	s.lastLimit = limit
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	n := s.sourceRows
	if n > limit {
		n = limit
	}
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = []any{int64(i), fmt.Sprintf("row-%d", i)}
	}
	s.lastRows = &fakeRows{rows: rows}
	return s.lastRows, nil
}

func (s *fakeSession) Ping(ctx context.Context) error { return nil }
func (s *fakeSession) Close() error                   { return nil }

type appendCall struct {
	table store.Table
	cols  []schema.Column
	rows  [][]any
}

type fakeWriter struct {
	createErr error
	appendErr error

	createCalls []store.Table
	appends     []appendCall
}

func (w *fakeWriter) CreateOrReplace(ctx context.Context, t store.Table, cols []schema.Column) error {
	w.createCalls = append(w.createCalls, t)
	return w.createErr
}

func (w *fakeWriter) Append(ctx context.Context, t store.Table, cols []schema.Column, rows [][]any) (int64, error) {
	if w.appendErr != nil {
		return 0, w.appendErr
	}
	copied := make([][]any, len(rows))
	copy(copied, rows)
	w.appends = append(w.appends, appendCall{table: t, cols: cols, rows: copied})
	return int64(len(rows)), nil
}

func (w *fakeWriter) Close() error { return nil }

func batchSizes(w *fakeWriter) []int {
	sizes := make([]int, len(w.appends))
	for i, a := range w.appends {
		sizes[i] = len(a.rows)
	}
	return sizes
}

func TestRunBatchesAndCompletes(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{cols: testCols(), sourceRows: 11}
	w := &fakeWriter{}
	outs := New(sess, w, Options{}).Run(context.Background(), []plan.TableJob{testJob(100, 5)})

	if len(outs) != 1 {
		t.Fatalf("got %d outcomes, want 1", len(outs))
	}
	out := outs[0]
	if out.Status != StatusCompleted || out.Err != nil {
		t.Fatalf("outcome = %s err=%v, want completed", out.Status, out.Err)
	}
	if out.Rows != 11 {
		t.Fatalf("rows = %d, want 11", out.Rows)
	}
	got := batchSizes(w)
	want := []int{5, 5, 1}
	if len(got) != len(want) {
		t.Fatalf("batches = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("batches = %v, want %v", got, want)
		}
	}
	if !sess.lastRows.closed {
		t.Fatal("source rows were not closed")
	}
}

// TestRunTruncation verifies the engine asks for one row past the limit,
// appends at most RowLimit rows, and flags the overflow.
func TestRunTruncation(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{cols: testCols(), sourceRows: 25}
	w := &fakeWriter{}
	outs := New(sess, w, Options{}).Run(context.Background(), []plan.TableJob{testJob(10, 4)})

	out := outs[0]
	if sess.lastLimit != 11 {
		t.Fatalf("query limit = %d, want 11", sess.lastLimit)
	}
	if out.Status != StatusTruncated {
		t.Fatalf("status = %s, want truncated", out.Status)
	}
	if out.Rows != 10 {
		t.Fatalf("rows = %d, want 10", out.Rows)
	}
	got := batchSizes(w)
	want := []int{4, 4, 2}
	for i := range want {
		if len(got) != len(want) || got[i] != want[i] {
			t.Fatalf("batches = %v, want %v", got, want)
		}
	}
}

// TestRunExactLimitCompletes pins the boundary: a source with exactly
// RowLimit rows is a complete mirror, not a truncated one.
func TestRunExactLimitCompletes(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{cols: testCols(), sourceRows: 10}
	w := &fakeWriter{}
	outs := New(sess, w, Options{}).Run(context.Background(), []plan.TableJob{testJob(10, 4)})

	out := outs[0]
	if out.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", out.Status)
	}
	if out.Rows != 10 {
		t.Fatalf("rows = %d, want 10", out.Rows)
	}
}

func TestRunDryRunTouchesNothing(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{cols: testCols(), sourceRows: 5}
	w := &fakeWriter{}
	jobs := []plan.TableJob{testJob(10, 4), testJob(10, 4)}
	outs := New(sess, w, Options{DryRun: true}).Run(context.Background(), jobs)

	if len(outs) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(outs))
	}
	for _, out := range outs {
		if out.Status != StatusSkipped {
			t.Fatalf("status = %s, want skipped", out.Status)
		}
	}
	if sess.columnsCalls != 0 || sess.queryCalls != 0 {
		t.Fatalf("dry run touched session: columns=%d query=%d", sess.columnsCalls, sess.queryCalls)
	}
	if len(w.createCalls) != 0 || len(w.appends) != 0 {
		t.Fatalf("dry run touched writer: creates=%d appends=%d", len(w.createCalls), len(w.appends))
	}
}

// TestRunFailureIsolation verifies one failing job does not stop its siblings.
func TestRunFailureIsolation(t *testing.T) {
	t.Parallel()

	schemaErr := &warehouse.SchemaError{Table: "FINANCE.BILLING.INVOICES", Err: errors.New("boom")}
	failing := &fakeSession{cols: testCols(), sourceRows: 3, columnsErr: schemaErr}
	w := &fakeWriter{}

	// One session per run; make the failure one-shot so the second job works.
	calls := 0
	sess := &switchSession{pick: func() warehouse.Session {
		calls++
		if calls == 1 {
			return failing
		}
		return &fakeSession{cols: testCols(), sourceRows: 3}
	}}

	outs := New(sess, w, Options{}).Run(context.Background(), []plan.TableJob{testJob(10, 4), testJob(10, 4)})

	if outs[0].Status != StatusFailed {
		t.Fatalf("first status = %s, want failed", outs[0].Status)
	}
	if kind := outs[0].ErrKind(); kind != "schema" {
		t.Fatalf("first err kind = %q, want schema", kind)
	}
	if outs[1].Status != StatusCompleted {
		t.Fatalf("second status = %s, want completed", outs[1].Status)
	}
	if outs[1].Rows != 3 {
		t.Fatalf("second rows = %d, want 3", outs[1].Rows)
	}
}

// switchSession delegates each call to a per-call session, so a test can make
// one job fail while its sibling succeeds on the same shared session.
type switchSession struct {
	pick func() warehouse.Session
}

func (s *switchSession) Columns(ctx context.Context, job plan.TableJob) ([]schema.Column, error) {
	return s.pick().Columns(ctx, job)
}

func (s *switchSession) Query(ctx context.Context, job plan.TableJob, cols []schema.Column, limit int) (warehouse.Rows, error) {
	return s.pick().Query(ctx, job, cols, limit)
}

func (s *switchSession) Ping(ctx context.Context) error { return nil }
func (s *switchSession) Close() error                   { return nil }

func TestRunCreateFailureSkipsStreaming(t *testing.T) {
	t.Parallel()

	writeErr := &store.WriteError{Table: "FINANCE.BILLING.INVOICES", Op: "create", Err: errors.New("disk full")}
	sess := &fakeSession{cols: testCols(), sourceRows: 5}
	w := &fakeWriter{createErr: writeErr}

	outs := New(sess, w, Options{}).Run(context.Background(), []plan.TableJob{testJob(10, 4)})

	out := outs[0]
	if out.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", out.Status)
	}
	if kind := out.ErrKind(); kind != "store" {
		t.Fatalf("err kind = %q, want store", kind)
	}
	if sess.queryCalls != 0 {
		t.Fatalf("query calls = %d, want 0 after create failure", sess.queryCalls)
	}
}

// TestRunPreservesColumnOrder verifies values reach the writer in
// introspection column order.
func TestRunPreservesColumnOrder(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{cols: testCols(), sourceRows: 2}
	w := &fakeWriter{}
	New(sess, w, Options{}).Run(context.Background(), []plan.TableJob{testJob(10, 4)})

	if len(w.appends) != 1 {
		t.Fatalf("appends = %d, want 1", len(w.appends))
	}
	a := w.appends[0]
	if a.cols[0].Name != "ID" || a.cols[1].Name != "NOTE" {
		t.Fatalf("column order = %s,%s", a.cols[0].Name, a.cols[1].Name)
	}
	if a.rows[0][0] != int64(0) || a.rows[0][1] != "row-0" {
		t.Fatalf("row[0] = %v", a.rows[0])
	}
	if a.table.Name != "INVOICES" {
		t.Fatalf("table = %s, want INVOICES", a.table.Name)
	}
}

// TestRunCanceledContextFailsRemaining verifies a canceled run reports every
// unstarted job failed rather than silently dropping them.
func TestRunCanceledContextFailsRemaining(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sess := &fakeSession{cols: testCols(), sourceRows: 5}
	w := &fakeWriter{}
	outs := New(sess, w, Options{}).Run(ctx, []plan.TableJob{testJob(10, 4), testJob(10, 4)})

	if len(outs) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(outs))
	}
	for _, out := range outs {
		if out.Status != StatusFailed {
			t.Fatalf("status = %s, want failed", out.Status)
		}
		if kind := out.ErrKind(); kind != "canceled" {
			t.Fatalf("err kind = %q, want canceled", kind)
		}
	}
	if sess.columnsCalls != 0 {
		t.Fatalf("columns calls = %d, want 0", sess.columnsCalls)
	}
}
