package access

import (
	"fmt"
	"sort"
	"strings"

	"github.com/odyssey-erp/odyssey-ops/internal/shared"
)

// PermissionSet is an unordered set of permissions.
type PermissionSet map[Permission]struct{}

// Has reports whether p is in the set.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Sorted returns the permissions ordered by resource then action.
func (s PermissionSet) Sorted() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Resource != out[j].Resource {
			return out[i].Resource < out[j].Resource
		}
		return out[i].Action < out[j].Action
	})
	return out
}

// RoleDefinition declares a role: its hierarchy level and granted permissions.
type RoleDefinition struct {
	Name        string
	Level       int
	Permissions []Permission
}

// MatrixConfig is the raw input for NewMatrix.
type MatrixConfig struct {
	Roles       []RoleDefinition
	Ownership   map[Resource][]string
	Departments map[Resource][]string
	Modules     map[string][]string
	// BypassRoles are admin-level roles that skip ownership and department restrictions.
	BypassRoles []string
	// DepartmentScopedRoles carry department-level authority and get department scoping.
	DepartmentScopedRoles []string
	// Resources defaults to AllResources when empty.
	Resources []Resource
}

type roleEntry struct {
	level int
	perms PermissionSet
}

// Matrix is the immutable authorization policy. All lookups are pure and
// default safely: unknown roles have no permissions and level 0.
type Matrix struct {
	roles       map[string]roleEntry
	ownership   map[Resource][]string
	departments map[Resource][]string
	modules     map[string]map[string]struct{}
	bypass      map[string]struct{}
	deptScoped  map[string]struct{}
	resources   map[Resource]struct{}
}

// NewMatrix validates cfg and builds a Matrix.
func NewMatrix(cfg MatrixConfig) (*Matrix, error) {
	m := &Matrix{
		roles:       make(map[string]roleEntry, len(cfg.Roles)),
		ownership:   make(map[Resource][]string, len(cfg.Ownership)),
		departments: make(map[Resource][]string, len(cfg.Departments)),
		modules:     make(map[string]map[string]struct{}, len(cfg.Modules)),
		bypass:      make(map[string]struct{}, len(cfg.BypassRoles)),
		deptScoped:  make(map[string]struct{}, len(cfg.DepartmentScopedRoles)),
		resources:   make(map[Resource]struct{}),
	}

	resources := cfg.Resources
	if len(resources) == 0 {
		resources = knownResources
	}
	for _, r := range resources {
		m.resources[r] = struct{}{}
	}

	for _, def := range cfg.Roles {
		name := normalizeRole(def.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: role name required", shared.ErrConfiguration)
		}
		if _, dup := m.roles[name]; dup {
			return nil, fmt.Errorf("%w: duplicate role %q", shared.ErrConfiguration, name)
		}
		if def.Level < 0 {
			return nil, fmt.Errorf("%w: role %q has negative level", shared.ErrConfiguration, name)
		}
		perms := make(PermissionSet, len(def.Permissions))
		for _, p := range def.Permissions {
			if !m.HasResource(p.Resource) {
				return nil, fmt.Errorf("%w: role %q grants %s on unknown resource", shared.ErrConfiguration, name, p)
			}
			if _, err := ParseAction(string(p.Action)); err != nil {
				return nil, err
			}
			perms[p] = struct{}{}
		}
		m.roles[name] = roleEntry{level: def.Level, perms: perms}
	}

	if err := m.copyColumns(m.ownership, cfg.Ownership, "ownership"); err != nil {
		return nil, err
	}
	if err := m.copyColumns(m.departments, cfg.Departments, "department"); err != nil {
		return nil, err
	}

	for module, roles := range cfg.Modules {
		module = strings.TrimSpace(strings.ToLower(module))
		if module == "" {
			return nil, fmt.Errorf("%w: module name required", shared.ErrConfiguration)
		}
		set := make(map[string]struct{}, len(roles))
		for _, role := range roles {
			role = normalizeRole(role)
			if _, ok := m.roles[role]; !ok {
				return nil, fmt.Errorf("%w: module %q references unknown role %q", shared.ErrConfiguration, module, role)
			}
			set[role] = struct{}{}
		}
		m.modules[module] = set
	}

	if err := m.copyRoleSet(m.bypass, cfg.BypassRoles, "bypass"); err != nil {
		return nil, err
	}
	if err := m.copyRoleSet(m.deptScoped, cfg.DepartmentScopedRoles, "department-scoped"); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Matrix) copyColumns(dst, src map[Resource][]string, kind string) error {
	for res, cols := range src {
		if !m.HasResource(res) {
			return fmt.Errorf("%w: %s columns for unknown resource %q", shared.ErrConfiguration, kind, res)
		}
		cleaned := make([]string, 0, len(cols))
		for _, c := range cols {
			if c = strings.TrimSpace(c); c != "" {
				cleaned = append(cleaned, c)
			}
		}
		if len(cleaned) > 0 {
			dst[res] = cleaned
		}
	}
	return nil
}

func (m *Matrix) copyRoleSet(dst map[string]struct{}, roles []string, kind string) error {
	for _, role := range roles {
		role = normalizeRole(role)
		if _, ok := m.roles[role]; !ok {
			return fmt.Errorf("%w: %s role %q is not defined", shared.ErrConfiguration, kind, role)
		}
		dst[role] = struct{}{}
	}
	return nil
}

// PermissionsOf returns the permissions granted to role. Unknown roles yield an empty set.
func (m *Matrix) PermissionsOf(role string) PermissionSet {
	entry, ok := m.roles[normalizeRole(role)]
	out := make(PermissionSet, len(entry.perms))
	if !ok {
		return out
	}
	for p := range entry.perms {
		out[p] = struct{}{}
	}
	return out
}

// HierarchyLevel returns the role's level; unknown roles are 0.
func (m *Matrix) HierarchyLevel(role string) int {
	return m.roles[normalizeRole(role)].level
}

// RoleHasPermission reports whether role holds resource:action or resource:manage.
func (m *Matrix) RoleHasPermission(role string, resource Resource, action Action) bool {
	entry, ok := m.roles[normalizeRole(role)]
	if !ok {
		return false
	}
	return entry.perms.Has(Perm(resource, action)) || entry.perms.Has(Perm(resource, ActionManage))
}

// AnyRoleHasPermission reports whether any of roles satisfies RoleHasPermission.
func (m *Matrix) AnyRoleHasPermission(roles []string, resource Resource, action Action) bool {
	for _, role := range roles {
		if m.RoleHasPermission(role, resource, action) {
			return true
		}
	}
	return false
}

// RoleHasAccess reports whether roleA sits at or above roleB in the hierarchy.
// It is a helper for decisions such as "may A manage a user holding B"; row
// visibility never consults it.
func (m *Matrix) RoleHasAccess(roleA, roleB string) bool {
	return m.HierarchyLevel(roleA) >= m.HierarchyLevel(roleB)
}

// RolesWithPermission lists the roles for which RoleHasPermission holds,
// sorted by name. Intended for auditing, not request-time decisions.
func (m *Matrix) RolesWithPermission(resource Resource, action Action) []string {
	var out []string
	for name := range m.roles {
		if m.RoleHasPermission(name, resource, action) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// OwnershipColumn returns the authoritative ownership column for resource.
func (m *Matrix) OwnershipColumn(resource Resource) (string, bool) {
	return first(m.ownership[resource])
}

// OwnershipColumns returns every listed ownership column; only the first is enforced.
func (m *Matrix) OwnershipColumns(resource Resource) []string {
	return append([]string(nil), m.ownership[resource]...)
}

// DepartmentColumn returns the department column for resource.
func (m *Matrix) DepartmentColumn(resource Resource) (string, bool) {
	return first(m.departments[resource])
}

// CanAccessModule reports whether role may open module.
func (m *Matrix) CanAccessModule(role, module string) bool {
	roles, ok := m.modules[strings.TrimSpace(strings.ToLower(module))]
	if !ok {
		return false
	}
	_, ok = roles[normalizeRole(role)]
	return ok
}

// ModulesFor returns the sorted modules any of roles may open.
func (m *Matrix) ModulesFor(roles []string) []string {
	var out []string
	for module := range m.modules {
		for _, role := range roles {
			if m.CanAccessModule(role, module) {
				out = append(out, module)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// HasBypassRole reports whether roles include an admin-level role.
func (m *Matrix) HasBypassRole(roles []string) bool {
	return containsAny(m.bypass, roles)
}

// HasDepartmentScopedRole reports whether roles include a role with department authority.
func (m *Matrix) HasDepartmentScopedRole(roles []string) bool {
	return containsAny(m.deptScoped, roles)
}

// Roles returns role names ordered by descending level, then name.
func (m *Matrix) Roles() []string {
	out := make([]string, 0, len(m.roles))
	for name := range m.roles {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool {
		li, lj := m.roles[out[i]].level, m.roles[out[j]].level
		if li != lj {
			return li > lj
		}
		return out[i] < out[j]
	})
	return out
}

// HasRole reports whether role is defined.
func (m *Matrix) HasRole(role string) bool {
	_, ok := m.roles[normalizeRole(role)]
	return ok
}

// HasResource reports whether resource is part of the taxonomy.
func (m *Matrix) HasResource(resource Resource) bool {
	_, ok := m.resources[resource]
	return ok
}

// Resources returns the sorted resource taxonomy.
func (m *Matrix) Resources() []Resource {
	out := make([]Resource, 0, len(m.resources))
	for r := range m.resources {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func first(cols []string) (string, bool) {
	if len(cols) == 0 {
		return "", false
	}
	return cols[0], true
}

func containsAny(set map[string]struct{}, roles []string) bool {
	for _, role := range roles {
		if _, ok := set[normalizeRole(role)]; ok {
			return true
		}
	}
	return false
}

func normalizeRole(role string) string {
	return strings.TrimSpace(strings.ToLower(role))
}
