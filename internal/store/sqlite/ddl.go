// Package sqlite implements the "sqlite" store backend.
//
// SQLite has no schemas, so a mirrored table lands under the flat name
// <database>_<schema>_<table>, all lowercased. Types render to SQLite's
// affinity names; DECIMAL keeps its declared shape in the DDL even though
// SQLite stores it as NUMERIC affinity.
package sqlite

import (
	"fmt"
	"strings"

	"warehousetogo/internal/schema"
	"warehousetogo/internal/store"
)

func localTable(t store.Table) string {
	return strings.ToLower(t.Database + "_" + t.Schema + "_" + t.Name)
}

func quoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func dropTableSQL(t store.Table) string {
	return "DROP TABLE IF EXISTS " + quoteIdent(localTable(t))
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
	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)",
		quoteIdent(localTable(t)), strings.Join(defs, ",\n  "))
}

func renderType(t schema.Type) string {
	switch t.Kind {
	case schema.Bool:
		return "BOOLEAN"
	case schema.Int:
		return "INTEGER"
	case schema.Float:
		return "REAL"
	case schema.Decimal:
		if t.Precision > 0 {
			return fmt.Sprintf("DECIMAL(%d, %d)", t.Precision, t.Scale)
		}
		return "NUMERIC"
	case schema.Text:
		return "TEXT"
	case schema.Date:
		return "DATE"
	case schema.Time:
		return "TIME"
	case schema.Timestamp:
		return "TIMESTAMP"
	case schema.TimestampTZ:
		return "TIMESTAMP"
	case schema.Bytes:
		return "BLOB"
	case schema.JSON:
		return "TEXT"
	}
	return "TEXT"
}
