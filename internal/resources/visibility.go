package resources

import (
	"log/slog"
	"sort"

	"github.com/odyssey-erp/odyssey-ops/internal/access"
	"github.com/odyssey-erp/odyssey-ops/internal/rbac"
)

// scope is computed once per request from the caller's roles.
type scope struct {
	// bypass skips ownership and department restrictions.
	bypass bool
	// department enables department scoping on listings.
	department bool
}

func (s *Service) scopeFor(ac rbac.AuthContext) scope {
	bypass := s.matrix.HasBypassRole(ac.Roles)
	return scope{
		bypass:     bypass,
		department: !bypass && ac.HasDepartment() && s.matrix.HasDepartmentScopedRole(ac.Roles),
	}
}

type visibility struct {
	softDelete bool
	department bool
}

// visibilityFilters builds the row-level restriction in a fixed order:
// soft-delete exclusion, ownership, then department.
func visibilityFilters(schema *access.Schema, ac rbac.AuthContext, sc scope, v visibility) []Filter {
	var filters []Filter
	if col := schema.SoftDeleteColumn(); v.softDelete && col != "" {
		filters = append(filters, IsNull(col))
	}
	if col := schema.OwnershipColumn(); col != "" && !sc.bypass {
		filters = append(filters, Eq(col, ac.ProfileID))
	}
	if col := schema.DepartmentColumn(); v.department && col != "" && sc.department {
		filters = append(filters, Eq(col, ac.DepartmentID))
	}
	return filters
}

func (s *Service) callerFilters(schema *access.Schema, raw map[string]any) ([]Filter, error) {
	columns := make([]string, 0, len(raw))
	for col := range raw {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	var filters []Filter
	for _, col := range columns {
		value := raw[col]
		if !schema.HasColumn(col) {
			s.logger.Debug("ignore filter on unknown column", slog.String("resource", string(schema.Resource)), slog.String("column", col))
			continue
		}
		if value == nil {
			continue
		}
		value, err := columnValue(schema, col, value)
		if err != nil {
			return nil, err
		}
		filters = append(filters, Eq(col, value))
	}
	return filters, nil
}

func listQuery(schema *access.Schema, filters []Filter, opts ListOptions) Query {
	q := Query{Filters: filters}
	if opts.OrderBy != "" && schema.HasColumn(opts.OrderBy) {
		q.OrderBy = &Order{Column: opts.OrderBy, Descending: opts.Descending}
	}
	if opts.Limit > 0 {
		q.Limit = uint64(opts.Limit)
	}
	if opts.Offset > 0 {
		q.Offset = uint64(opts.Offset)
	}
	return q
}

// payload keeps the known columns of data, coerced to their column types.
func (s *Service) payload(schema *access.Schema, data Row) (Row, error) {
	out := make(Row, len(data))
	for col, value := range data {
		if !schema.HasColumn(col) {
			s.logger.Debug("drop unknown payload column", slog.String("resource", string(schema.Resource)), slog.String("column", col))
			continue
		}
		value, err := columnValue(schema, col, value)
		if err != nil {
			return nil, err
		}
		out[col] = value
	}
	return out, nil
}

func supplied(row Row, col string) bool {
	v, ok := row[col]
	return ok && v != nil
}
