// Package schema defines the logical column model shared by warehouse
// introspection and local-store DDL generation.
//
// The warehouse introspector maps each source-native column type into a Type;
// the store backends render Types into their own SQL column types. Keeping
// this model in the middle means adding a warehouse dialect never touches the
// store side, and vice versa.
package schema

import "fmt"

// Kind enumerates the logical column types the mirror understands.
type Kind int

const (
	Bool Kind = iota + 1
	Int
	Float
	Decimal
	Text
	Date
	Time
	Timestamp
	TimestampTZ
	Bytes
	JSON
)

// String returns a short lowercase tag for logging and diagnostics.
func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case Decimal:
		return "decimal"
	case Text:
		return "text"
	case Date:
		return "date"
	case Time:
		return "time"
	case Timestamp:
		return "timestamp"
	case TimestampTZ:
		return "timestamptz"
	case Bytes:
		return "bytes"
	case JSON:
		return "json"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Type is a logical column type. Precision and Scale are meaningful only for
// Decimal.
type Type struct {
	Kind      Kind
	Precision int
	Scale     int
}

// Column describes one column of a mirrored table. A table's columns are
// always carried as an ordered slice in source definition order; that order is
// the select order on the source side and the column order on the target side.
// SourceType keeps the source-native type tag for diagnostics.
type Column struct {
	Name       string
	SourceType string
	Nullable   bool
	Type       Type
}

// Names returns the column names in definition order.
func Names(cols []Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}
