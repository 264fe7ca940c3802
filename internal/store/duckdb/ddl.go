// Package duckdb implements the "duckdb" store backend.
//
// Each mirrored table lands as <database>_<schema>.<table>, all lowercased,
// so mirrors of same-named tables from different source schemas cannot
// collide. CREATE OR REPLACE keeps the replace atomic on the DuckDB side.
package duckdb

import (
	"fmt"
	"strings"

	"warehousetogo/internal/schema"
	"warehousetogo/internal/store"
)

// maxDecimalPrecision is DuckDB's DECIMAL width ceiling; wider source
// declarations are clamped rather than rejected.
const maxDecimalPrecision = 38

func localSchema(t store.Table) string {
	return strings.ToLower(t.Database + "_" + t.Schema)
}

func localTable(t store.Table) string {
	return strings.ToLower(t.Name)
}

func quoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func qualified(t store.Table) string {
	return quoteIdent(localSchema(t)) + "." + quoteIdent(localTable(t))
}

func createSchemaSQL(t store.Table) string {
	return "CREATE SCHEMA IF NOT EXISTS " + quoteIdent(localSchema(t))
}

func createTableSQL(t store.Table, cols []schema.Column) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		def := quoteIdent(strings.ToLower(c.Name)) + " " + renderType(c.Type)
		if !c.Nullable {
			def += " NOT NULL"
		}
		defs[i] = def
	}
	return fmt.Sprintf("CREATE OR REPLACE TABLE %s (\n  %s\n)",
		qualified(t), strings.Join(defs, ",\n  "))
}

// renderType is total over schema.Kind; the introspector already rejected
// anything it cannot map.
func renderType(t schema.Type) string {
	switch t.Kind {
	case schema.Bool:
		return "BOOLEAN"
	case schema.Int:
		return "BIGINT"
	case schema.Float:
		return "DOUBLE"
	case schema.Decimal:
		p, s := t.Precision, t.Scale
		if p <= 0 || p > maxDecimalPrecision {
			p = maxDecimalPrecision
		}
		if s < 0 {
			s = 0
		}
		if s > p {
			s = p
		}
		return fmt.Sprintf("DECIMAL(%d, %d)", p, s)
	case schema.Text:
		return "VARCHAR"
	case schema.Date:
		return "DATE"
	case schema.Time:
		return "TIME"
	case schema.Timestamp:
		return "TIMESTAMP"
	case schema.TimestampTZ:
		return "TIMESTAMPTZ"
	case schema.Bytes:
		return "BLOB"
	case schema.JSON:
		return "JSON"
	}
	return "VARCHAR"
}
