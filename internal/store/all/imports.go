// Package all wires every built-in store backend into the store registry.
//
// It exists purely for side effects: a blank import runs each backend's init,
// which registers its factory with the store package. The main binary imports
// it once; everything else depends only on store.Writer.
//
// Registered kinds:
//
//   - "duckdb" (warehousetogo/internal/store/duckdb)
//   - "sqlite" (warehousetogo/internal/store/sqlite)
//
// A binary that only needs one backend can import that backend package
// directly instead of this one.
package all

import (
	_ "warehousetogo/internal/store/duckdb"
	_ "warehousetogo/internal/store/sqlite"
)
