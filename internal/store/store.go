// Package store defines the local mirror target abstraction and the backend
// registry.
//
// Backends register themselves from init, so a wiring layer (normally
// store/all via a blank import) decides which backends a binary carries. The
// rest of the program depends only on Writer.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"warehousetogo/internal/schema"
)

// WriteError wraps a local store failure. It is fatal to the affected table
// job only; sibling jobs keep running.
type WriteError struct {
	Table string
	Op    string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("store: %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Table names one mirrored table by its source-side identity. Backends derive
// their local object names from it.
type Table struct {
	Database string
	Schema   string
	Name     string
}

func (t Table) String() string {
	return t.Database + "." + t.Schema + "." + t.Name
}

// Writer lands extracted batches in the local store.
type Writer interface {
	// CreateOrReplace drops any previous mirror of the table and creates an
	// empty one matching cols. A replace that fails must leave no
	// half-created table behind.
	CreateOrReplace(ctx context.Context, t Table, cols []schema.Column) error
	// Append inserts one batch atomically, in cols order. It reports the
	// number of rows inserted.
	Append(ctx context.Context, t Table, cols []schema.Column, rows [][]any) (int64, error)
	Close() error
}

// Config selects and parameterizes a backend.
type Config struct {
	// Kind is a registered backend name, e.g. "duckdb" or "sqlite".
	Kind string
	// Path is the backend's database file path.
	Path string
}

// OpenFunc opens one backend.
type OpenFunc func(ctx context.Context, cfg Config) (Writer, error)

var (
	mu        sync.RWMutex
	factories = map[string]OpenFunc{}
)

// Register makes a backend available under kind. It is intended to be called
// from a backend package's init; registering the same kind twice panics.
func Register(kind string, open OpenFunc) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := factories[kind]; dup {
		panic("store: duplicate backend " + kind)
	}
	factories[kind] = open
}

// Open opens the backend registered under cfg.Kind.
func Open(ctx context.Context, cfg Config) (Writer, error) {
	mu.RLock()
	open, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("store: unknown backend %q (have %s)", cfg.Kind, strings.Join(Kinds(), ", "))
	}
	return open(ctx, cfg)
}

// Kinds returns the registered backend names, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
