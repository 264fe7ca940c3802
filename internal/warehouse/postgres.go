package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver

	"warehousetogo/internal/credentials"
	"warehousetogo/internal/plan"
	"warehousetogo/internal/schema"
)

// connectPostgres opens a pgx session for a postgres-typed profile. Session
// parameters ride in the DSN rather than post-connect SET statements: the
// *sql.DB is a pool, and a replacement connection opened mid-run would never
// have seen a SET. As runtime parameters in the connection string they are
// applied at handshake on every physical connection the pool opens.
func connectPostgres(ctx context.Context, p credentials.Profile) (Session, error) {
	dsn, err := postgresDSN(p)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, &ConnectionError{Op: "open", Err: err}
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &ConnectionError{Op: "ping", Err: err}
	}
	return &sqlSession{db: db, d: postgresDialect{}}, nil
}

// postgresDSN builds the connection URL. pgx passes unrecognized query
// parameters to the server as runtime parameters, so each session parameter
// and the search_path become part of the startup message.
func postgresDSN(p credentials.Profile) (string, error) {
	if p.Auth.Method != credentials.AuthPassword {
		return "", &ConnectionError{Op: "open", Err: fmt.Errorf("profile %s: postgres supports password auth only", p.Name)}
	}

	host := p.Host
	if p.Port != 0 {
		host = fmt.Sprintf("%s:%d", p.Host, p.Port)
	}

	q := url.Values{"application_name": {"warehousetogo"}}
	for _, sp := range p.SessionParams {
		if !identPattern.MatchString(sp.Key) {
			return "", &ConnectionError{Op: "session parameter", Err: fmt.Errorf("invalid parameter name %q", sp.Key)}
		}
		q.Set(sp.Key, sp.Value)
	}
	if p.Schema != "" {
		q.Set("search_path", p.Schema)
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Auth.Password),
		Host:     host,
		Path:     "/" + p.Database,
		RawQuery: q.Encode(),
	}
	return u.String(), nil
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

type postgresDialect struct{}

func (postgresDialect) columnsQuery(job plan.TableJob) (string, []any) {
	q := `SELECT column_name, data_type, is_nullable, numeric_precision, numeric_scale
FROM information_schema.columns
WHERE table_catalog = $1 AND table_schema = $2 AND table_name = $3
ORDER BY ordinal_position`
	return q, []any{job.Database, job.Schema, job.Table}
}

func (postgresDialect) mapType(dataType string, precision, scale sql.NullInt64) (schema.Type, error) {
	switch strings.ToLower(dataType) {
	case "smallint", "integer", "bigint":
		return schema.Type{Kind: schema.Int}, nil
	case "numeric", "decimal":
		if !precision.Valid {
			// Unconstrained numeric has no declared shape; widest supported.
			return schema.Type{Kind: schema.Decimal, Precision: 38, Scale: 18}, nil
		}
		return schema.Type{
			Kind:      schema.Decimal,
			Precision: int(precision.Int64),
			Scale:     int(scale.Int64),
		}, nil
	case "real", "double precision":
		return schema.Type{Kind: schema.Float}, nil
	case "text", "character varying", "character", "uuid":
		return schema.Type{Kind: schema.Text}, nil
	case "boolean":
		return schema.Type{Kind: schema.Bool}, nil
	case "date":
		return schema.Type{Kind: schema.Date}, nil
	case "time without time zone", "time with time zone":
		return schema.Type{Kind: schema.Time}, nil
	case "timestamp without time zone":
		return schema.Type{Kind: schema.Timestamp}, nil
	case "timestamp with time zone":
		return schema.Type{Kind: schema.TimestampTZ}, nil
	case "bytea":
		return schema.Type{Kind: schema.Bytes}, nil
	case "json", "jsonb":
		return schema.Type{Kind: schema.JSON}, nil
	}
	return schema.Type{}, fmt.Errorf("unmapped source type %q", dataType)
}

func (postgresDialect) selectQuery(job plan.TableJob, cols []string, limit int) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	return fmt.Sprintf("SELECT %s FROM %s.%s LIMIT %d",
		strings.Join(quoted, ", "),
		quoteIdent(job.Schema), quoteIdent(job.Table),
		limit)
}
