package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ops/internal/access"
	"github.com/odyssey-erp/odyssey-ops/internal/resources"
	"github.com/odyssey-erp/odyssey-ops/internal/shared"
)

func testSchema(t *testing.T) *access.Schema {
	t.Helper()
	m, err := access.NewMatrix(access.MatrixConfig{
		Roles:     []access.RoleDefinition{{Name: "admin", Level: 1}},
		Ownership: map[access.Resource][]string{access.ResourceTasks: {"created_by"}},
	})
	require.NoError(t, err)
	c, err := access.NewCatalog(m, access.NewSchema(access.ResourceTasks, "work.tasks",
		access.Column{Name: "id", Type: access.TypeUUID, PrimaryKey: true},
		access.Column{Name: "title", Type: access.TypeText},
		access.Column{Name: "created_by", Type: access.TypeUUID, Nullable: true, CreatedBy: true},
		access.Column{Name: "deleted_at", Type: access.TypeTimestamp, Nullable: true, SoftDelete: true},
	))
	require.NoError(t, err)
	s, err := c.Schema(access.ResourceTasks)
	require.NoError(t, err)
	return s
}

const taskColumns = `"id", "title", "created_by", "deleted_at"`

func TestSelectSQL(t *testing.T) {
	s := NewStorage(nil)
	schema := testSchema(t)

	stmt, args, err := s.selectSQL(schema, resources.Query{
		Filters: []resources.Filter{resources.IsNull("deleted_at"), resources.Eq("created_by", "p1")},
		OrderBy: &resources.Order{Column: "title", Descending: true},
		Limit:   10,
		Offset:  20,
	})
	require.NoError(t, err)
	assert.Equal(t, `SELECT `+taskColumns+` FROM "work"."tasks" WHERE "deleted_at" IS NULL AND "created_by" = $1 ORDER BY "title" DESC LIMIT 10 OFFSET 20`, stmt)
	assert.Equal(t, []any{"p1"}, args)
}

func TestSelectSQLRejectsUnknownColumns(t *testing.T) {
	s := NewStorage(nil)
	schema := testSchema(t)

	_, _, err := s.selectSQL(schema, resources.Query{Filters: []resources.Filter{resources.Eq("owner; drop table x", 1)}})
	assert.ErrorIs(t, err, shared.ErrConfiguration)
	_, _, err = s.selectSQL(schema, resources.Query{OrderBy: &resources.Order{Column: "rank"}})
	assert.ErrorIs(t, err, shared.ErrConfiguration)
}

func TestInsertSQL(t *testing.T) {
	s := NewStorage(nil)
	schema := testSchema(t)

	stmt, args, err := s.insertSQL(schema, resources.Row{"title": "X", "created_by": "p1"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stmt, `INSERT INTO "work"."tasks" ("created_by","title") VALUES ($1,$2)`), stmt)
	assert.True(t, strings.HasSuffix(stmt, "RETURNING "+taskColumns), stmt)
	assert.Equal(t, []any{"p1", "X"}, args)

	stmt, args, err = s.insertSQL(schema, resources.Row{})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "work"."tasks" DEFAULT VALUES RETURNING `+taskColumns, stmt)
	assert.Empty(t, args)
}

func TestUpdateSQL(t *testing.T) {
	s := NewStorage(nil)
	schema := testSchema(t)

	stmt, args, err := s.updateSQL(schema,
		[]resources.Filter{resources.Eq("id", "t1"), resources.IsNull("deleted_at")},
		resources.Row{"title": "Y"})
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "work"."tasks" SET "title" = $1 WHERE "id" = $2 AND "deleted_at" IS NULL RETURNING `+taskColumns, stmt)
	assert.Equal(t, []any{"Y", "t1"}, args)

	_, _, err = s.updateSQL(schema, nil, resources.Row{})
	assert.ErrorIs(t, err, shared.ErrConfiguration)
}

func TestDeleteSQL(t *testing.T) {
	s := NewStorage(nil)
	schema := testSchema(t)

	stmt, args, err := s.deleteSQL(schema, []resources.Filter{resources.Eq("id", "t1"), resources.Eq("created_by", "p1")})
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "work"."tasks" WHERE "id" = $1 AND "created_by" = $2`, stmt)
	assert.Equal(t, []any{"t1", "p1"}, args)
}

func TestNormalizeUUIDBytes(t *testing.T) {
	raw := [16]byte{0x12, 0x3e, 0x45, 0x67, 0xe8, 0x9b, 0x12, 0xd3, 0xa4, 0x56, 0x42, 0x66, 0x14, 0x17, 0x40, 0x00}
	row := normalize(map[string]any{"id": raw, "title": "x"})
	assert.Equal(t, "123e4567-e89b-12d3-a456-426614174000", row["id"])
	assert.Equal(t, "x", row["title"])
}
