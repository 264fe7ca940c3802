package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/snowflakedb/gosnowflake"

	"warehousetogo/internal/credentials"
	"warehousetogo/internal/plan"
	"warehousetogo/internal/schema"
)

// connectSnowflake builds a gosnowflake DSN from the profile and verifies the
// session with a ping before handing it out. Session parameters and the query
// tag ride in the DSN so every statement on the session sees them.
func connectSnowflake(ctx context.Context, p credentials.Profile) (Session, error) {
	cfg := gosnowflake.Config{
		Account:          p.Account,
		User:             p.User,
		Database:         p.Database,
		Schema:           p.Schema,
		Warehouse:        p.Warehouse,
		Role:             p.Role,
		KeepSessionAlive: p.KeepAlive,
		Application:      "warehousetogo",
		Params:           map[string]*string{},
	}
	switch p.Auth.Method {
	case credentials.AuthPassword:
		cfg.Password = p.Auth.Password
	case credentials.AuthKeyPair:
		cfg.Authenticator = gosnowflake.AuthTypeJwt
		cfg.PrivateKey = p.Auth.PrivateKey
	default:
		return nil, &ConnectionError{Op: "open", Err: fmt.Errorf("profile %s: no auth scheme", p.Name)}
	}
	for _, sp := range p.SessionParams {
		v := sp.Value
		cfg.Params[sp.Key] = &v
	}
	if p.QueryTag != "" {
		tag := p.QueryTag
		cfg.Params["QUERY_TAG"] = &tag
	}

	dsn, err := gosnowflake.DSN(&cfg)
	if err != nil {
		return nil, &ConnectionError{Op: "build dsn", Err: err}
	}
	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, &ConnectionError{Op: "open", Err: err}
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &ConnectionError{Op: "ping", Err: err}
	}
	return &sqlSession{db: db, d: snowflakeDialect{}}, nil
}

type snowflakeDialect struct{}

func (snowflakeDialect) columnsQuery(job plan.TableJob) (string, []any) {
	q := fmt.Sprintf(`SELECT column_name, data_type, is_nullable, numeric_precision, numeric_scale
FROM %s.information_schema.columns
WHERE table_schema = ? AND table_name = ?
ORDER BY ordinal_position`, quoteIdent(job.Database))
	return q, []any{job.Schema, job.Table}
}

// mapType covers the Snowflake types the mirror knows how to land locally.
// NUMBER carries its declared precision and scale through so the local store
// can reproduce the column instead of guessing.
func (snowflakeDialect) mapType(dataType string, precision, scale sql.NullInt64) (schema.Type, error) {
	switch strings.ToUpper(dataType) {
	case "NUMBER", "DECIMAL", "NUMERIC":
		if scale.Valid && scale.Int64 == 0 && precision.Valid && precision.Int64 <= 18 {
			return schema.Type{Kind: schema.Int}, nil
		}
		return schema.Type{
			Kind:      schema.Decimal,
			Precision: int(precision.Int64),
			Scale:     int(scale.Int64),
		}, nil
	case "INT", "INTEGER", "BIGINT", "SMALLINT", "TINYINT", "BYTEINT":
		return schema.Type{Kind: schema.Int}, nil
	case "FLOAT", "FLOAT4", "FLOAT8", "DOUBLE", "DOUBLE PRECISION", "REAL":
		return schema.Type{Kind: schema.Float}, nil
	case "TEXT", "VARCHAR", "CHAR", "CHARACTER", "STRING":
		return schema.Type{Kind: schema.Text}, nil
	case "BOOLEAN":
		return schema.Type{Kind: schema.Bool}, nil
	case "DATE":
		return schema.Type{Kind: schema.Date}, nil
	case "TIME":
		return schema.Type{Kind: schema.Time}, nil
	case "DATETIME", "TIMESTAMP", "TIMESTAMP_NTZ":
		return schema.Type{Kind: schema.Timestamp}, nil
	case "TIMESTAMP_LTZ", "TIMESTAMP_TZ":
		return schema.Type{Kind: schema.TimestampTZ}, nil
	case "BINARY", "VARBINARY":
		return schema.Type{Kind: schema.Bytes}, nil
	case "VARIANT", "OBJECT", "ARRAY":
		return schema.Type{Kind: schema.JSON}, nil
	}
	return schema.Type{}, fmt.Errorf("unmapped source type %q", dataType)
}

func (snowflakeDialect) selectQuery(job plan.TableJob, cols []string, limit int) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	return fmt.Sprintf("SELECT %s FROM %s.%s.%s LIMIT %d",
		strings.Join(quoted, ", "),
		quoteIdent(job.Database), quoteIdent(job.Schema), quoteIdent(job.Table),
		limit)
}
