package access

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ops/internal/shared"
)

const samplePolicy = `
roles:
  admin:
    level: 90
    permissions: ["tasks:manage"]
  manager:
    level: 60
    permissions: ["tasks:read", "tasks:update"]
  employee:
    level: 20
    permissions: ["tasks:read", "tasks:create"]
ownership:
  tasks: [created_by]
departments:
  tasks: [department_id]
modules:
  operations: [admin, manager, employee]
bypass_roles: [admin]
department_scoped_roles: [manager]
resources:
  tasks:
    table: work.tasks
    columns:
      - {name: id, type: uuid, primary_key: true}
      - {name: title, type: text}
      - {name: created_by, type: uuid, nullable: true, created_by: true}
      - {name: department_id, type: uuid, nullable: true}
      - {name: deleted_at, type: timestamp, nullable: true, soft_delete: true}
`

func TestLoadPolicy(t *testing.T) {
	m, c, err := LoadPolicy(strings.NewReader(samplePolicy))
	require.NoError(t, err)

	assert.True(t, m.RoleHasPermission("admin", ResourceTasks, ActionDelete))
	assert.False(t, m.RoleHasPermission("employee", ResourceTasks, ActionDelete))
	assert.Equal(t, 60, m.HierarchyLevel("manager"))
	assert.True(t, m.CanAccessModule("employee", "operations"))
	assert.True(t, m.HasBypassRole([]string{"admin"}))

	s, err := c.Schema(ResourceTasks)
	require.NoError(t, err)
	assert.Equal(t, "work.tasks", s.Table)
	assert.Equal(t, "deleted_at", s.SoftDeleteColumn())
	assert.Equal(t, "created_by", s.OwnershipColumn())

	_, err = c.Schema(ResourceContacts)
	assert.ErrorIs(t, err, shared.ErrConfiguration)
}

func TestLoadPolicyFallsBackToDefaultSchemas(t *testing.T) {
	doc := `
roles:
  viewer:
    level: 10
    permissions: ["contacts:read"]
`
	_, c, err := LoadPolicy(strings.NewReader(doc))
	require.NoError(t, err)
	_, err = c.Schema(ResourceContacts)
	assert.NoError(t, err)
}

func TestLoadPolicyRejectsBadDocuments(t *testing.T) {
	cases := map[string]string{
		"empty":            ``,
		"no roles":         `modules: {crm: []}`,
		"unknown field":    "roles: {a: {level: 1}}\nextra: true\n",
		"bad permission":   `roles: {a: {level: 1, permissions: ["tasks"]}}`,
		"unknown resource": `roles: {a: {level: 1, permissions: ["widgets:read"]}}`,
		"negative level":   `roles: {a: {level: -5}}`,
		"bad column type": `
roles: {a: {level: 1}}
resources:
  tasks:
    columns:
      - {name: id, type: blob, primary_key: true}
`,
		"unknown ownership resource": `
roles: {a: {level: 1}}
ownership: {widgets: [owner_id]}
`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := LoadPolicy(strings.NewReader(doc))
			require.ErrorIs(t, err, shared.ErrConfiguration)
		})
	}
}

func TestLoadPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(samplePolicy), 0o600))

	m, _, err := LoadPolicyFile(path)
	require.NoError(t, err)
	assert.True(t, m.HasRole("manager"))

	_, _, err = LoadPolicyFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, shared.ErrConfiguration)
}
