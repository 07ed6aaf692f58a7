// Package memstore is an in-process storage engine for development mode and
// tests. It honours the same contract as the Postgres engine.
package memstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-ops/internal/access"
	"github.com/odyssey-erp/odyssey-ops/internal/resources"
	"github.com/odyssey-erp/odyssey-ops/internal/shared"
)

// Store keeps rows per table in insertion order.
type Store struct {
	mu     sync.RWMutex
	tables map[string][]resources.Row
}

// New returns an empty Store.
func New() *Store {
	return &Store{tables: make(map[string][]resources.Row)}
}

// Seed inserts rows verbatim, bypassing id generation. Tests use it to set up
// rows owned by other principals.
func (s *Store) Seed(schema *access.Schema, rows ...resources.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		if err := checkColumns(schema, row); err != nil {
			return err
		}
		s.tables[schema.Table] = append(s.tables[schema.Table], complete(schema, row))
	}
	return nil
}

func checkColumns(schema *access.Schema, row resources.Row) error {
	for col := range row {
		if !schema.HasColumn(col) {
			return fmt.Errorf("%w: %s has no column %q", shared.ErrConfiguration, schema.Resource, col)
		}
	}
	return nil
}

func checkFilters(schema *access.Schema, filters []resources.Filter) error {
	for _, f := range filters {
		if !schema.HasColumn(f.Column) {
			return fmt.Errorf("%w: %s has no column %q", shared.ErrConfiguration, schema.Resource, f.Column)
		}
	}
	return nil
}

// complete copies row with every schema column present.
func complete(schema *access.Schema, row resources.Row) resources.Row {
	out := make(resources.Row, len(schema.ColumnNames()))
	for _, col := range schema.ColumnNames() {
		out[col] = row[col]
	}
	return out
}

func clone(row resources.Row) resources.Row {
	out := make(resources.Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

// Select returns copies of the matching rows.
func (s *Store) Select(_ context.Context, schema *access.Schema, q resources.Query) ([]resources.Row, error) {
	if err := checkFilters(schema, q.Filters); err != nil {
		return nil, err
	}
	if q.OrderBy != nil && !schema.HasColumn(q.OrderBy.Column) {
		return nil, fmt.Errorf("%w: %s has no column %q", shared.ErrConfiguration, schema.Resource, q.OrderBy.Column)
	}

	s.mu.RLock()
	var out []resources.Row
	for _, row := range s.tables[schema.Table] {
		if matches(row, q.Filters) {
			out = append(out, clone(row))
		}
	}
	s.mu.RUnlock()

	if q.OrderBy != nil {
		col, desc := q.OrderBy.Column, q.OrderBy.Descending
		sort.SliceStable(out, func(i, j int) bool {
			c := compare(out[i][col], out[j][col])
			if desc {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Offset > 0 {
		if q.Offset >= uint64(len(out)) {
			return []resources.Row{}, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < uint64(len(out)) {
		out = out[:q.Limit]
	}
	if out == nil {
		out = []resources.Row{}
	}
	return out, nil
}

// Insert stores row, generating a UUID primary key when absent.
func (s *Store) Insert(_ context.Context, schema *access.Schema, row resources.Row) (resources.Row, error) {
	if err := checkColumns(schema, row); err != nil {
		return nil, err
	}
	stored := complete(schema, row)
	pk := schema.PrimaryKey()
	if stored[pk] == nil {
		stored[pk] = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.tables[schema.Table] {
		if equal(existing[pk], stored[pk]) {
			return nil, fmt.Errorf("%w: %s: duplicate key %v", shared.ErrDependency, schema.Table, stored[pk])
		}
	}
	s.tables[schema.Table] = append(s.tables[schema.Table], stored)
	return clone(stored), nil
}

// Update applies set to every matching row and returns the updated rows.
func (s *Store) Update(_ context.Context, schema *access.Schema, filters []resources.Filter, set resources.Row) ([]resources.Row, error) {
	if err := checkFilters(schema, filters); err != nil {
		return nil, err
	}
	if err := checkColumns(schema, set); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := []resources.Row{}
	for _, row := range s.tables[schema.Table] {
		if !matches(row, filters) {
			continue
		}
		for col, v := range set {
			row[col] = v
		}
		out = append(out, clone(row))
	}
	return out, nil
}

// Delete removes matching rows and reports how many were removed.
func (s *Store) Delete(_ context.Context, schema *access.Schema, filters []resources.Filter) (int64, error) {
	if err := checkFilters(schema, filters); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tables[schema.Table]
	kept := rows[:0]
	var removed int64
	for _, row := range rows {
		if matches(row, filters) {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	s.tables[schema.Table] = kept
	return removed, nil
}

// Len reports the number of stored rows of schema, deleted or not.
func (s *Store) Len(schema *access.Schema) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables[schema.Table])
}

func matches(row resources.Row, filters []resources.Filter) bool {
	for _, f := range filters {
		v := row[f.Column]
		switch f.Op {
		case resources.OpIsNull:
			if v != nil {
				return false
			}
		case resources.OpEq:
			// NULL never equals anything.
			if v == nil || f.Value == nil || !equal(v, f.Value) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func equal(a, b any) bool {
	if fa, ok := number(a); ok {
		if fb, ok := number(b); ok {
			return fa == fb
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Equal(tb)
		}
	}
	if sa, ok := text(a); ok {
		if sb, ok := text(b); ok {
			return sa == sb
		}
	}
	return reflect.DeepEqual(a, b)
}

func text(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case uuid.UUID:
		return t.String(), true
	case fmt.Stringer:
		return t.String(), true
	}
	return "", false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// compare orders values with NULLs last, as Postgres does for ascending sorts.
func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	if fa, ok := number(a); ok {
		if fb, ok := number(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
