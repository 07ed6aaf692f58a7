package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ops/internal/shared"
)

func TestDefaultCatalogCoversEveryResource(t *testing.T) {
	m, c, err := Default()
	require.NoError(t, err)

	for _, res := range m.Resources() {
		s, err := c.Schema(res)
		require.NoError(t, err, res)
		assert.Equal(t, "id", s.PrimaryKey())
		if col, ok := m.OwnershipColumn(res); ok {
			assert.Equal(t, col, s.OwnershipColumn())
			column, _ := s.Column(col)
			assert.True(t, column.Ownership)
		}
		if col, ok := m.DepartmentColumn(res); ok {
			assert.Equal(t, col, s.DepartmentColumn())
		}
	}
}

func TestDefaultSchemaFlags(t *testing.T) {
	_, c, err := Default()
	require.NoError(t, err)

	tasks, err := c.Schema(ResourceTasks)
	require.NoError(t, err)
	assert.Empty(t, tasks.SoftDeleteColumn())
	assert.Equal(t, "created_by", tasks.CreatedByColumn())
	assert.Equal(t, "created_by", tasks.OwnershipColumn())
	assert.True(t, tasks.HasColumn("assignee_id"))
	assert.False(t, tasks.HasColumn("deleted_at"))

	contacts, err := c.Schema(ResourceContacts)
	require.NoError(t, err)
	assert.Equal(t, "deleted_at", contacts.SoftDeleteColumn())
	assert.Equal(t, "contacts", contacts.Table)
}

func TestCatalogUnknownResource(t *testing.T) {
	m := defaultMatrix(t)
	c, err := NewCatalog(m)
	require.NoError(t, err)

	_, err = c.Schema(ResourceTasks)
	require.ErrorIs(t, err, shared.ErrConfiguration)
	_, err = c.Schema("widgets")
	require.ErrorIs(t, err, shared.ErrConfiguration)
}

func TestCatalogRejectsInvalidSchemas(t *testing.T) {
	m := defaultMatrix(t)
	id := Column{Name: "id", Type: TypeUUID, PrimaryKey: true}

	cases := map[string][]Schema{
		"missing primary key": {NewSchema(ResourceDepartments, "departments", Column{Name: "name", Type: TypeText})},
		"composite key": {NewSchema(ResourceDepartments, "departments", id,
			Column{Name: "code", Type: TypeText, PrimaryKey: true})},
		"duplicate column": {NewSchema(ResourceDepartments, "departments", id, id)},
		"ownership column missing": {NewSchema(ResourceTasks, "tasks", id,
			Column{Name: "title", Type: TypeText})},
		"two soft delete columns": {NewSchema(ResourceDepartments, "departments", id,
			Column{Name: "deleted_at", Type: TypeTimestamp, SoftDelete: true},
			Column{Name: "archived_at", Type: TypeTimestamp, SoftDelete: true})},
		"duplicate schema": {
			NewSchema(ResourceDepartments, "departments", id),
			NewSchema(ResourceDepartments, "departments", id),
		},
		"unknown resource": {NewSchema("widgets", "widgets", id)},
	}
	for name, schemas := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewCatalog(m, schemas...)
			require.ErrorIs(t, err, shared.ErrConfiguration)
		})
	}
}

func TestSchemaTableDefaultsToResourceName(t *testing.T) {
	m := defaultMatrix(t)
	c, err := NewCatalog(m, NewSchema(ResourceDepartments, "", Column{Name: "id", Type: TypeUUID, PrimaryKey: true}))
	require.NoError(t, err)
	s, err := c.Schema(ResourceDepartments)
	require.NoError(t, err)
	assert.Equal(t, "departments", s.Table)
}
