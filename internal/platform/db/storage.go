package db

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-ops/internal/access"
	"github.com/odyssey-erp/odyssey-ops/internal/resources"
	"github.com/odyssey-erp/odyssey-ops/internal/shared"
)

type executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Storage runs resource statements against PostgreSQL.
type Storage struct {
	pool    *pgxpool.Pool
	exec    executor
	builder squirrel.StatementBuilderType
}

// NewStorage builds a Storage over pool.
func NewStorage(pool *pgxpool.Pool) *Storage {
	s := &Storage{
		pool:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool != nil {
		s.exec = pool
	}
	return s
}

func (s *Storage) withExec(exec executor) *Storage {
	return &Storage{pool: s.pool, exec: exec, builder: s.builder}
}

// InTx runs fn against a Storage bound to one repeatable-read transaction.
func (s *Storage) InTx(ctx context.Context, fn func(context.Context, resources.Storage) error) error {
	return WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, s.withExec(tx))
	})
}

func quote(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func table(schema *access.Schema) string {
	return pgx.Identifier(strings.Split(schema.Table, ".")).Sanitize()
}

func returning(schema *access.Schema) string {
	cols := schema.ColumnNames()
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c)
	}
	return strings.Join(quoted, ", ")
}

func unknownColumn(schema *access.Schema, col string) error {
	return fmt.Errorf("%w: %s has no column %q", shared.ErrConfiguration, schema.Resource, col)
}

func predicates(schema *access.Schema, filters []resources.Filter) ([]squirrel.Sqlizer, error) {
	out := make([]squirrel.Sqlizer, 0, len(filters))
	for _, f := range filters {
		if !schema.HasColumn(f.Column) {
			return nil, unknownColumn(schema, f.Column)
		}
		switch f.Op {
		case resources.OpIsNull:
			out = append(out, squirrel.Eq{quote(f.Column): nil})
		case resources.OpEq:
			out = append(out, squirrel.Expr(quote(f.Column)+" = ?", f.Value))
		default:
			return nil, fmt.Errorf("%w: unsupported filter operator %d", shared.ErrConfiguration, f.Op)
		}
	}
	return out, nil
}

// sortedColumns returns the keys of row in a stable order.
func sortedColumns(schema *access.Schema, row resources.Row) ([]string, error) {
	cols := make([]string, 0, len(row))
	for col := range row {
		if !schema.HasColumn(col) {
			return nil, unknownColumn(schema, col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols, nil
}

func (s *Storage) selectSQL(schema *access.Schema, q resources.Query) (string, []any, error) {
	preds, err := predicates(schema, q.Filters)
	if err != nil {
		return "", nil, err
	}
	b := s.builder.Select(returning(schema)).From(table(schema))
	for _, p := range preds {
		b = b.Where(p)
	}
	if q.OrderBy != nil {
		if !schema.HasColumn(q.OrderBy.Column) {
			return "", nil, unknownColumn(schema, q.OrderBy.Column)
		}
		dir := "ASC"
		if q.OrderBy.Descending {
			dir = "DESC"
		}
		b = b.OrderBy(quote(q.OrderBy.Column) + " " + dir)
	}
	if q.Limit > 0 {
		b = b.Limit(q.Limit)
	}
	if q.Offset > 0 {
		b = b.Offset(q.Offset)
	}
	return b.ToSql()
}

func (s *Storage) insertSQL(schema *access.Schema, row resources.Row) (string, []any, error) {
	cols, err := sortedColumns(schema, row)
	if err != nil {
		return "", nil, err
	}
	if len(cols) == 0 {
		return "INSERT INTO " + table(schema) + " DEFAULT VALUES RETURNING " + returning(schema), nil, nil
	}
	quoted := make([]string, len(cols))
	values := make([]any, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c)
		values[i] = row[c]
	}
	return s.builder.Insert(table(schema)).
		Columns(quoted...).
		Values(values...).
		Suffix("RETURNING " + returning(schema)).
		ToSql()
}

func (s *Storage) updateSQL(schema *access.Schema, filters []resources.Filter, set resources.Row) (string, []any, error) {
	cols, err := sortedColumns(schema, set)
	if err != nil {
		return "", nil, err
	}
	if len(cols) == 0 {
		return "", nil, fmt.Errorf("%w: empty update of %s", shared.ErrConfiguration, schema.Resource)
	}
	preds, err := predicates(schema, filters)
	if err != nil {
		return "", nil, err
	}
	b := s.builder.Update(table(schema))
	for _, c := range cols {
		b = b.Set(quote(c), set[c])
	}
	for _, p := range preds {
		b = b.Where(p)
	}
	return b.Suffix("RETURNING " + returning(schema)).ToSql()
}

func (s *Storage) deleteSQL(schema *access.Schema, filters []resources.Filter) (string, []any, error) {
	preds, err := predicates(schema, filters)
	if err != nil {
		return "", nil, err
	}
	b := s.builder.Delete(table(schema))
	for _, p := range preds {
		b = b.Where(p)
	}
	return b.ToSql()
}

func (s *Storage) queryRows(ctx context.Context, schema *access.Schema, op, stmt string, args []any) ([]resources.Row, error) {
	rows, err := s.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", shared.ErrDependency, op, schema.Table, err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", shared.ErrDependency, op, schema.Table, err)
	}
	out := make([]resources.Row, len(maps))
	for i, m := range maps {
		out[i] = normalize(m)
	}
	return out, nil
}

// normalize renders UUID columns, which pgx scans as byte arrays, as strings.
func normalize(m map[string]any) resources.Row {
	row := make(resources.Row, len(m))
	for k, v := range m {
		if b, ok := v.([16]byte); ok {
			v = uuid.UUID(b).String()
		}
		row[k] = v
	}
	return row
}

// Select runs a filtered selection.
func (s *Storage) Select(ctx context.Context, schema *access.Schema, q resources.Query) ([]resources.Row, error) {
	stmt, args, err := s.selectSQL(schema, q)
	if err != nil {
		return nil, err
	}
	return s.queryRows(ctx, schema, "select", stmt, args)
}

// Insert stores row and returns it as persisted.
func (s *Storage) Insert(ctx context.Context, schema *access.Schema, row resources.Row) (resources.Row, error) {
	stmt, args, err := s.insertSQL(schema, row)
	if err != nil {
		return nil, err
	}
	rows, err := s.queryRows(ctx, schema, "insert", stmt, args)
	if err != nil {
		return nil, err
	}
	if len(rows) != 1 {
		return nil, fmt.Errorf("%w: insert %s returned %d rows", shared.ErrDependency, schema.Table, len(rows))
	}
	return rows[0], nil
}

// Update applies set to matching rows and returns them.
func (s *Storage) Update(ctx context.Context, schema *access.Schema, filters []resources.Filter, set resources.Row) ([]resources.Row, error) {
	stmt, args, err := s.updateSQL(schema, filters, set)
	if err != nil {
		return nil, err
	}
	return s.queryRows(ctx, schema, "update", stmt, args)
}

// Delete removes matching rows.
func (s *Storage) Delete(ctx context.Context, schema *access.Schema, filters []resources.Filter) (int64, error) {
	stmt, args, err := s.deleteSQL(schema, filters)
	if err != nil {
		return 0, err
	}
	tag, err := s.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: delete %s: %w", shared.ErrDependency, schema.Table, err)
	}
	return tag.RowsAffected(), nil
}
