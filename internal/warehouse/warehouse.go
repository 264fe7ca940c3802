// Package warehouse opens authenticated source sessions and introspects
// remote table schemas.
//
// One session is opened per run and is the sole conduit for both
// introspection and extraction, so the session parameters and query tag from
// the profile stay in effect for all work. Each supported warehouse engine
// contributes a dialect (introspection SQL, type map, select builder) over a
// shared database/sql session.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"warehousetogo/internal/credentials"
	"warehousetogo/internal/plan"
	"warehousetogo/internal/schema"
)

// ConnectionError wraps network, auth, and timeout failures opening or using
// the source session. During setup it is fatal to the run; mid-extraction it
// is fatal to the affected job only.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("warehouse: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// SchemaError wraps an introspection failure or an unmappable source type.
// It is fatal to the affected job only.
type SchemaError struct {
	Table string
	Err   error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("warehouse: schema of %s: %v", e.Table, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// Rows is the subset of *sql.Rows the extraction engine consumes.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Session is a live, authenticated source session.
type Session interface {
	// Columns returns the table's columns in definition order, each mapped to
	// a logical target type.
	Columns(ctx context.Context, job plan.TableJob) ([]schema.Column, error)
	// Query streams the table's rows, selecting columns in cols order, capped
	// source-side at limit rows.
	Query(ctx context.Context, job plan.TableJob, cols []schema.Column, limit int) (Rows, error)
	Ping(ctx context.Context) error
	Close() error
}

// Connect opens the run's session for the profile's warehouse type. The
// returned session already has the profile's database/schema/warehouse/role
// bound and every session parameter applied; a partially configured session
// is never returned.
func Connect(ctx context.Context, p credentials.Profile) (Session, error) {
	switch p.Type {
	case credentials.TypeSnowflake:
		return connectSnowflake(ctx, p)
	case credentials.TypePostgres:
		return connectPostgres(ctx, p)
	default:
		return nil, &ConnectionError{Op: "open", Err: fmt.Errorf("unsupported warehouse type %q", p.Type)}
	}
}

// dialect is the per-engine surface behind sqlSession.
type dialect interface {
	// columnsQuery returns the introspection statement for the job's table.
	// The result set must be (column_name, data_type, is_nullable,
	// numeric_precision, numeric_scale) in definition order.
	columnsQuery(job plan.TableJob) (string, []any)
	// mapType maps one source-native type to a logical type. Unknown types
	// return an error; there is no best-effort fallback, since silently
	// widening or narrowing a type breaks structural mirroring.
	mapType(dataType string, precision, scale sql.NullInt64) (schema.Type, error)
	// selectQuery builds the streaming select over cols, capped at limit.
	selectQuery(job plan.TableJob, cols []string, limit int) string
}

// sqlSession implements Session over database/sql with a per-engine dialect.
type sqlSession struct {
	db *sql.DB
	d  dialect
}

func (s *sqlSession) Columns(ctx context.Context, job plan.TableJob) ([]schema.Column, error) {
	q, args := s.d.columnsQuery(job)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, &SchemaError{Table: job.QualifiedName(), Err: fmt.Errorf("introspect: %w", err)}
	}
	defer rows.Close()

	var cols []schema.Column
	for rows.Next() {
		var (
			name, dataType, nullable string
			precision, scale         sql.NullInt64
		)
		if err := rows.Scan(&name, &dataType, &nullable, &precision, &scale); err != nil {
			return nil, &SchemaError{Table: job.QualifiedName(), Err: fmt.Errorf("scan column: %w", err)}
		}
		typ, err := s.d.mapType(dataType, precision, scale)
		if err != nil {
			return nil, &SchemaError{Table: job.QualifiedName(), Err: fmt.Errorf("column %s: %w", name, err)}
		}
		cols = append(cols, schema.Column{
			Name:       name,
			SourceType: dataType,
			Nullable:   strings.EqualFold(nullable, "YES"),
			Type:       typ,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &SchemaError{Table: job.QualifiedName(), Err: err}
	}
	if len(cols) == 0 {
		return nil, &SchemaError{Table: job.QualifiedName(), Err: fmt.Errorf("table not found or has no columns")}
	}
	return cols, nil
}

func (s *sqlSession) Query(ctx context.Context, job plan.TableJob, cols []schema.Column, limit int) (Rows, error) {
	rows, err := s.db.QueryContext(ctx, s.d.selectQuery(job, schema.Names(cols), limit))
	if err != nil {
		return nil, &ConnectionError{Op: "select " + job.QualifiedName(), Err: err}
	}
	return rows, nil
}

func (s *sqlSession) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &ConnectionError{Op: "ping", Err: err}
	}
	return nil
}

func (s *sqlSession) Close() error { return s.db.Close() }

func quoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
