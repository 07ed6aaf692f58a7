// Package resources implements permission-scoped reads and writes that behave
// identically for every resource: each call is gated on resource:action and
// filtered by soft-delete, ownership and department rules from the matrix.
package resources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/odyssey-erp/odyssey-ops/internal/access"
	"github.com/odyssey-erp/odyssey-ops/internal/observability"
	"github.com/odyssey-erp/odyssey-ops/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-ops/internal/rbac"
	"github.com/odyssey-erp/odyssey-ops/internal/shared"
)

// Operation names used in logs and metrics.
const (
	opGet     = "get"
	opFindOne = "find_one"
	opCreate  = "create"
	opUpdate  = "update"
	opDelete  = "delete"
)

const (
	createdAtColumn = "created_at"
	updatedAtColumn = "updated_at"
)

// Service runs the generic resource operations.
type Service struct {
	gate    *rbac.Gate
	matrix  *access.Matrix
	catalog *access.Catalog
	storage Storage
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// Option customises a Service.
type Option func(*Service)

// WithClock sets the clock used for timestamps and soft deletes.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) { s.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics records operation outcomes.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *Service) { s.metrics = metrics }
}

// NewService wires the operations to a gate, a schema catalog and a storage engine.
func NewService(gate *rbac.Gate, catalog *access.Catalog, storage Storage, opts ...Option) *Service {
	s := &Service{
		gate:    gate,
		matrix:  gate.Matrix(),
		catalog: catalog,
		storage: storage,
		clock:   clockwork.NewRealClock(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) observe(resource access.Resource, op string, err error) {
	outcome := observability.OutcomeOK
	switch {
	case err == nil:
	case errors.Is(err, shared.ErrForbidden):
		outcome = observability.OutcomeForbidden
	case errors.Is(err, shared.ErrUnauthenticated):
		outcome = observability.OutcomeUnauthenticated
	case errors.Is(err, shared.ErrNotFound):
		outcome = observability.OutcomeNotFound
	case errors.Is(err, httpx.ErrValidation):
		outcome = observability.OutcomeInvalid
	default:
		outcome = observability.OutcomeError
	}
	s.metrics.ObserveOperation(string(resource), op, outcome)
}

// run resolves the schema, then gates body on resource:action.
func run[T any](ctx context.Context, s *Service, resource access.Resource, action access.Action, op string, body func(context.Context, *access.Schema, rbac.AuthContext) (T, error)) (out T, err error) {
	defer func() { s.observe(resource, op, err) }()

	schema, err := s.catalog.Schema(resource)
	if err != nil {
		return out, err
	}
	return rbac.Authorize(ctx, s.gate, access.Perm(resource, action), func(ctx context.Context, ac rbac.AuthContext) (T, error) {
		return body(ctx, schema, ac)
	})
}

func (s *Service) get(ctx context.Context, resource access.Resource, opts ListOptions) ([]Row, error) {
	return run(ctx, s, resource, access.ActionRead, opGet, func(ctx context.Context, schema *access.Schema, ac rbac.AuthContext) ([]Row, error) {
		caller, err := s.callerFilters(schema, opts.Filters)
		if err != nil {
			return nil, err
		}
		filters := visibilityFilters(schema, ac, s.scopeFor(ac), visibility{softDelete: true, department: true})
		filters = append(filters, caller...)
		return s.storage.Select(ctx, schema, listQuery(schema, filters, opts))
	})
}

// rowFilters locates a single row visible to the caller. Department scoping
// applies to listings only.
func (s *Service) rowFilters(schema *access.Schema, ac rbac.AuthContext, id any, softDelete bool) ([]Filter, error) {
	key, err := primaryKey(schema, id)
	if err != nil {
		return nil, err
	}
	filters := []Filter{Eq(schema.PrimaryKey(), key)}
	return append(filters, visibilityFilters(schema, ac, s.scopeFor(ac), visibility{softDelete: softDelete})...), nil
}

func notFound(resource access.Resource, id any) error {
	return fmt.Errorf("%w: %s %v", shared.ErrNotFound, resource, id)
}

func (s *Service) findOne(ctx context.Context, resource access.Resource, id any) (Row, error) {
	return run(ctx, s, resource, access.ActionRead, opFindOne, func(ctx context.Context, schema *access.Schema, ac rbac.AuthContext) (Row, error) {
		filters, err := s.rowFilters(schema, ac, id, true)
		if err != nil {
			return nil, err
		}
		rows, err := s.storage.Select(ctx, schema, Query{Filters: filters, Limit: 1})
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, notFound(resource, id)
		}
		return rows[0], nil
	})
}

func (s *Service) create(ctx context.Context, resource access.Resource, data Row) (Row, error) {
	return run(ctx, s, resource, access.ActionCreate, opCreate, func(ctx context.Context, schema *access.Schema, ac rbac.AuthContext) (Row, error) {
		row, err := s.payload(schema, data)
		if err != nil {
			return nil, err
		}
		if col := schema.OwnershipColumn(); col != "" && !supplied(row, col) {
			row[col] = ac.ProfileID
		}
		if col := schema.CreatedByColumn(); col != "" && !supplied(row, col) {
			row[col] = ac.ProfileID
		}
		if col := schema.DepartmentColumn(); col != "" && ac.HasDepartment() && !supplied(row, col) {
			row[col] = ac.DepartmentID
		}
		now := s.clock.Now().UTC()
		for _, col := range []string{createdAtColumn, updatedAtColumn} {
			if schema.HasColumn(col) && !supplied(row, col) {
				row[col] = now
			}
		}
		if err := requireValues(schema, row); err != nil {
			return nil, err
		}
		return s.storage.Insert(ctx, schema, row)
	})
}

func (s *Service) update(ctx context.Context, resource access.Resource, id any, data Row) (Row, error) {
	return run(ctx, s, resource, access.ActionUpdate, opUpdate, func(ctx context.Context, schema *access.Schema, ac rbac.AuthContext) (Row, error) {
		filters, err := s.rowFilters(schema, ac, id, true)
		if err != nil {
			return nil, err
		}
		mutable := make(Row, len(data))
		for col, v := range data {
			if col != schema.PrimaryKey() && col != schema.OwnershipColumn() {
				mutable[col] = v
			}
		}
		set, err := s.payload(schema, mutable)
		if err != nil {
			return nil, err
		}
		if err := requireValues(schema, set); err != nil {
			return nil, err
		}

		var updated Row
		err = s.withinTx(ctx, func(ctx context.Context, store Storage) error {
			located, err := store.Select(ctx, schema, Query{Filters: filters, Limit: 1})
			if err != nil {
				return err
			}
			if len(located) == 0 {
				return notFound(resource, id)
			}
			if len(set) == 0 {
				updated = located[0]
				return nil
			}
			if schema.HasColumn(updatedAtColumn) && !supplied(set, updatedAtColumn) {
				set[updatedAtColumn] = s.clock.Now().UTC()
			}
			rows, err := store.Update(ctx, schema, filters, set)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return notFound(resource, id)
			}
			updated = rows[0]
			return nil
		})
		return updated, err
	})
}

func (s *Service) remove(ctx context.Context, resource access.Resource, id any, opts DeleteOptions) (bool, error) {
	return run(ctx, s, resource, access.ActionDelete, opDelete, func(ctx context.Context, schema *access.Schema, ac rbac.AuthContext) (bool, error) {
		filters, err := s.rowFilters(schema, ac, id, false)
		if err != nil {
			return false, err
		}
		if opts.HardDelete {
			n, err := s.storage.Delete(ctx, schema, filters)
			return n > 0, err
		}
		col := schema.SoftDeleteColumn()
		if col == "" {
			return false, fmt.Errorf("%w: %s has no soft-delete column, request a hard delete", shared.ErrUnsupportedOperation, resource)
		}
		rows, err := s.storage.Update(ctx, schema, filters, Row{col: s.clock.Now().UTC()})
		return len(rows) > 0, err
	})
}

func (s *Service) withinTx(ctx context.Context, fn func(context.Context, Storage) error) error {
	if tx, ok := s.storage.(Transactor); ok {
		return tx.InTx(ctx, fn)
	}
	return fn(ctx, s.storage)
}

// Get lists the rows of resource visible to the caller.
func Get[T any](ctx context.Context, s *Service, resource access.Resource, opts ListOptions) ([]T, error) {
	rows, err := s.get(ctx, resource, opts)
	if err != nil {
		return nil, err
	}
	return decodeRows[T](rows)
}

// FindOne returns the row with primary key id, or shared.ErrNotFound when no
// visible row matches.
func FindOne[T any](ctx context.Context, s *Service, resource access.Resource, id any) (T, error) {
	row, err := s.findOne(ctx, resource, id)
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeRow[T](row)
}

// Create inserts data, stamping ownership, creator and department columns the
// caller left empty, and returns the stored row.
func Create[T any](ctx context.Context, s *Service, resource access.Resource, data Row) (T, error) {
	row, err := s.create(ctx, resource, data)
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeRow[T](row)
}

// Update applies data to the visible row with primary key id. The ownership
// column and primary key are never changed.
func Update[T any](ctx context.Context, s *Service, resource access.Resource, id any, data Row) (T, error) {
	row, err := s.update(ctx, resource, id, data)
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeRow[T](row)
}

// Delete soft-deletes the visible row with primary key id, or removes it when
// opts.HardDelete is set. It reports whether a row was affected.
func Delete(ctx context.Context, s *Service, resource access.Resource, id any, opts DeleteOptions) (bool, error) {
	return s.remove(ctx, resource, id, opts)
}
