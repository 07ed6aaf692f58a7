package resources

import (
	"context"

	"github.com/odyssey-erp/odyssey-ops/internal/access"
)

// Row is a stored row keyed by column name.
type Row map[string]any

// Op is a filter operator supported by every storage engine.
type Op int

// Filter operators.
const (
	OpEq Op = iota
	OpIsNull
)

// Filter restricts rows on a single column.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

// Eq matches rows whose column equals value.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

// IsNull matches rows whose column is unset.
func IsNull(column string) Filter {
	return Filter{Column: column, Op: OpIsNull}
}

// Order sorts a selection by one column.
type Order struct {
	Column     string
	Descending bool
}

// Query is a filtered selection. Filters are combined with AND; zero Limit
// means unlimited.
type Query struct {
	Filters []Filter
	OrderBy *Order
	Limit   uint64
	Offset  uint64
}

// Storage executes column-level statements against one resource table. Every
// referenced column is known to the schema; engines reject anything else with
// shared.ErrConfiguration and report engine failures as shared.ErrDependency.
type Storage interface {
	Select(ctx context.Context, schema *access.Schema, q Query) ([]Row, error)
	Insert(ctx context.Context, schema *access.Schema, row Row) (Row, error)
	Update(ctx context.Context, schema *access.Schema, filters []Filter, set Row) ([]Row, error)
	Delete(ctx context.Context, schema *access.Schema, filters []Filter) (int64, error)
}

// Transactor is implemented by engines that can run the locate-then-write
// steps of Update as one unit.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Storage) error) error
}
