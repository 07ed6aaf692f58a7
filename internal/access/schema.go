package access

import (
	"fmt"
	"strings"

	"github.com/odyssey-erp/odyssey-ops/internal/shared"
)

// ColumnType is the storage type of a column.
type ColumnType string

// Column types understood by the storage engines.
const (
	TypeUUID      ColumnType = "uuid"
	TypeText      ColumnType = "text"
	TypeInteger   ColumnType = "integer"
	TypeNumeric   ColumnType = "numeric"
	TypeBoolean   ColumnType = "boolean"
	TypeTimestamp ColumnType = "timestamp"
	TypeDate      ColumnType = "date"
	TypeJSON      ColumnType = "jsonb"
)

// Column describes one column of a resource table.
type Column struct {
	Name       string
	Type       ColumnType
	Nullable   bool
	PrimaryKey bool
	// SoftDelete marks the timestamp column that flags a row as deleted.
	SoftDelete bool
	// CreatedBy marks the generic creator column auto-filled on create.
	CreatedBy bool
	// Ownership and Department are derived from the Matrix by NewCatalog.
	Ownership  bool
	Department bool
}

// Schema is the typed descriptor of a resource's row shape.
type Schema struct {
	Resource Resource
	Table    string

	columns    []Column
	index      map[string]int
	primaryKey string
	softDelete string
	createdBy  string
	ownership  string
	department string
}

// NewSchema declares a resource schema. It is validated when added to a Catalog.
func NewSchema(resource Resource, table string, columns ...Column) Schema {
	return Schema{Resource: resource, Table: table, columns: append([]Column(nil), columns...)}
}

// Columns returns a copy of the column descriptors in declaration order.
func (s *Schema) Columns() []Column {
	return append([]Column(nil), s.columns...)
}

// ColumnNames returns the column names in declaration order.
func (s *Schema) ColumnNames() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names
}

// HasColumn reports whether the schema defines name.
func (s *Schema) HasColumn(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Column returns the descriptor for name.
func (s *Schema) Column(name string) (Column, bool) {
	i, ok := s.index[name]
	if !ok {
		return Column{}, false
	}
	return s.columns[i], true
}

// PrimaryKey returns the primary key column.
func (s *Schema) PrimaryKey() string { return s.primaryKey }

// SoftDeleteColumn returns the soft-delete marker column, or "" when the
// resource only supports hard deletes.
func (s *Schema) SoftDeleteColumn() string { return s.softDelete }

// CreatedByColumn returns the generic creator column, or "".
func (s *Schema) CreatedByColumn() string { return s.createdBy }

// OwnershipColumn returns the enforced ownership column, or "".
func (s *Schema) OwnershipColumn() string { return s.ownership }

// DepartmentColumn returns the department column, or "".
func (s *Schema) DepartmentColumn() string { return s.department }

func (s *Schema) finalize(m *Matrix) error {
	if !m.HasResource(s.Resource) {
		return fmt.Errorf("%w: schema for unknown resource %q", shared.ErrConfiguration, s.Resource)
	}
	if strings.TrimSpace(s.Table) == "" {
		s.Table = string(s.Resource)
	}
	s.index = make(map[string]int, len(s.columns))
	for i, c := range s.columns {
		if c.Name == "" {
			return fmt.Errorf("%w: %s: column name required", shared.ErrConfiguration, s.Resource)
		}
		if _, dup := s.index[c.Name]; dup {
			return fmt.Errorf("%w: %s: duplicate column %q", shared.ErrConfiguration, s.Resource, c.Name)
		}
		s.index[c.Name] = i
		if c.PrimaryKey {
			if s.primaryKey != "" {
				return fmt.Errorf("%w: %s: composite primary keys are not supported", shared.ErrConfiguration, s.Resource)
			}
			s.primaryKey = c.Name
		}
		if c.SoftDelete {
			if s.softDelete != "" {
				return fmt.Errorf("%w: %s: more than one soft-delete column", shared.ErrConfiguration, s.Resource)
			}
			s.softDelete = c.Name
		}
		if c.CreatedBy {
			s.createdBy = c.Name
		}
	}
	if s.primaryKey == "" {
		return fmt.Errorf("%w: %s: primary key required", shared.ErrConfiguration, s.Resource)
	}
	if col, ok := m.OwnershipColumn(s.Resource); ok {
		i, exists := s.index[col]
		if !exists {
			return fmt.Errorf("%w: %s: ownership column %q missing from schema", shared.ErrConfiguration, s.Resource, col)
		}
		s.columns[i].Ownership = true
		s.ownership = col
	}
	if col, ok := m.DepartmentColumn(s.Resource); ok {
		i, exists := s.index[col]
		if !exists {
			return fmt.Errorf("%w: %s: department column %q missing from schema", shared.ErrConfiguration, s.Resource, col)
		}
		s.columns[i].Department = true
		s.department = col
	}
	return nil
}

// Catalog is the startup-built lookup table of resource schemas.
type Catalog struct {
	schemas map[Resource]*Schema
}

// NewCatalog validates schemas against the matrix. Resources without a schema
// are rejected at lookup time.
func NewCatalog(m *Matrix, schemas ...Schema) (*Catalog, error) {
	c := &Catalog{schemas: make(map[Resource]*Schema, len(schemas))}
	for _, s := range schemas {
		s := s
		s.columns = append([]Column(nil), s.columns...)
		if _, dup := c.schemas[s.Resource]; dup {
			return nil, fmt.Errorf("%w: duplicate schema for %q", shared.ErrConfiguration, s.Resource)
		}
		if err := s.finalize(m); err != nil {
			return nil, err
		}
		c.schemas[s.Resource] = &s
	}
	return c, nil
}

// Schema returns the descriptor for resource or ErrConfiguration.
func (c *Catalog) Schema(resource Resource) (*Schema, error) {
	s, ok := c.schemas[resource]
	if !ok {
		return nil, fmt.Errorf("%w: no schema registered for resource %q", shared.ErrConfiguration, resource)
	}
	return s, nil
}
