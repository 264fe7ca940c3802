// Package extract runs the per-table mirror jobs: introspect, create the
// local table, stream rows in batches, report an outcome per job.
//
// Jobs run sequentially over one shared source session. A job failure is
// isolated: it is recorded in the job's outcome and the next job proceeds.
//
// Logging: on every flushed batch, a concise progress line is emitted with
// running totals and instantaneous rows/sec since the previous flush.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"warehousetogo/internal/metrics"
	"warehousetogo/internal/plan"
	"warehousetogo/internal/store"
	"warehousetogo/internal/warehouse"
)

// Status is a job's terminal state.
type Status int

const (
	// StatusCompleted means every source row within the limit was mirrored.
	StatusCompleted Status = iota + 1
	// StatusTruncated means the mirror is complete up to the row limit but
	// the source table had more rows.
	StatusTruncated
	// StatusFailed means the job aborted; the local table may be partial.
	StatusFailed
	// StatusSkipped means a dry run planned the job without executing it.
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusTruncated:
		return "truncated"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Outcome reports one finished job.
type Outcome struct {
	Job     plan.TableJob
	Status  Status
	Rows    int64
	Elapsed time.Duration
	Err     error
}

// ErrKind classifies a failed outcome's error for reporting. It returns an
// empty string for non-failed outcomes.
func (o Outcome) ErrKind() string {
	if o.Err == nil {
		return ""
	}
	var (
		connErr   *warehouse.ConnectionError
		schemaErr *warehouse.SchemaError
		writeErr  *store.WriteError
	)
	switch {
	case errors.As(o.Err, &schemaErr):
		return "schema"
	case errors.As(o.Err, &connErr):
		return "connection"
	case errors.As(o.Err, &writeErr):
		return "store"
	case errors.Is(o.Err, context.Canceled), errors.Is(o.Err, context.DeadlineExceeded):
		return "canceled"
	}
	return "other"
}

// Options tune a run without changing which jobs it covers.
type Options struct {
	// DryRun reports every job as skipped without touching the source or the
	// local store.
	DryRun bool
	// QueryTimeout bounds each job's source-side work. Zero means no bound
	// beyond the run context.
	QueryTimeout time.Duration
}

// Engine executes table jobs against one session and one writer.
type Engine struct {
	session warehouse.Session
	writer  store.Writer
	opts    Options
}

func New(session warehouse.Session, writer store.Writer, opts Options) *Engine {
	return &Engine{session: session, writer: writer, opts: opts}
}

// Run executes jobs in order and returns one outcome per job, in job order.
// Context cancellation marks every not-yet-started job failed with the
// context error; finished outcomes are never discarded.
func (e *Engine) Run(ctx context.Context, jobs []plan.TableJob) []Outcome {
	outcomes := make([]Outcome, 0, len(jobs))
	for i, job := range jobs {
		if e.opts.DryRun {
			log.Printf("dry-run: would mirror %s (limit=%d batch=%d)", job.QualifiedName(), job.RowLimit, job.BatchSize)
			outcomes = append(outcomes, Outcome{Job: job, Status: StatusSkipped})
			metrics.RecordTable(job.Source, StatusSkipped.String(), 0)
			continue
		}
		if err := ctx.Err(); err != nil {
			for _, rest := range jobs[i:] {
				outcomes = append(outcomes, Outcome{Job: rest, Status: StatusFailed, Err: err})
				metrics.RecordTable(rest.Source, StatusFailed.String(), 0)
			}
			return outcomes
		}

		out := e.runJob(ctx, job)
		metrics.RecordTable(job.Source, out.Status.String(), out.Elapsed)
		if out.Err != nil {
			log.Printf("table %s: %s after %d rows: %v", job.QualifiedName(), out.Status, out.Rows, out.Err)
		} else {
			log.Printf("table %s: %s rows=%d elapsed=%s", job.QualifiedName(), out.Status, out.Rows,
				out.Elapsed.Truncate(time.Millisecond))
		}
		outcomes = append(outcomes, out)
	}
	return outcomes
}

func (e *Engine) runJob(ctx context.Context, job plan.TableJob) Outcome {
	start := time.Now()
	out := Outcome{Job: job, Status: StatusFailed}
	defer func() { out.Elapsed = time.Since(start) }()

	if e.opts.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.QueryTimeout)
		defer cancel()
	}

	cols, err := e.session.Columns(ctx, job)
	if err != nil {
		out.Err = err
		return out
	}

	tbl := store.Table{Database: job.Database, Schema: job.Schema, Name: job.Table}
	if err := e.writer.CreateOrReplace(ctx, tbl, cols); err != nil {
		out.Err = err
		return out
	}

	// One extra row past the limit distinguishes a truncated mirror from a
	// table that is exactly limit rows long. The sentinel row is observed,
	// never appended.
	rows, err := e.session.Query(ctx, job, cols, job.RowLimit+1)
	if err != nil {
		out.Err = err
		return out
	}
	defer rows.Close()

	var (
		total       int64
		batches     int64
		truncated   bool
		batch       = make([][]any, 0, job.BatchSize)
		lastFlushTS = start
		lastTotal   int64
	)

	flush := func() error {
		n, err := e.writer.Append(ctx, tbl, cols, batch)
		total += n

		// Reuse allocated slice; keep capacity to avoid churn.
		batch = batch[:0]

		if err != nil {
			return err
		}

		batches++
		metrics.RecordBatch(job.Source, n)
		now := time.Now()
		sinceLast := now.Sub(lastFlushTS)
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(total-lastTotal) / sinceLast.Seconds()
		}
		log.Printf("%s batch #%d: rps=%.0f inserted=%d total=%d elapsed=%s",
			job.QualifiedName(), batches, rps, n, total,
			now.Sub(start).Truncate(time.Millisecond))
		lastFlushTS = now
		lastTotal = total
		return nil
	}

	scanned := 0
	for rows.Next() {
		scanned++
		if scanned > job.RowLimit {
			truncated = true
			break
		}
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			out.Rows = total
			out.Err = &warehouse.ConnectionError{Op: "scan " + job.QualifiedName(), Err: err}
			return out
		}
		batch = append(batch, vals)
		if len(batch) >= job.BatchSize {
			if err := flush(); err != nil {
				out.Rows = total
				out.Err = err
				return out
			}
		}
	}
	if err := rows.Err(); err != nil {
		out.Rows = total
		out.Err = &warehouse.ConnectionError{Op: "stream " + job.QualifiedName(), Err: err}
		return out
	}
	if len(batch) > 0 {
		if err := flush(); err != nil {
			out.Rows = total
			out.Err = err
			return out
		}
	}

	out.Rows = total
	out.Err = nil
	if truncated {
		out.Status = StatusTruncated
	} else {
		out.Status = StatusCompleted
	}
	return out
}
