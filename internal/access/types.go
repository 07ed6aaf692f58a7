// Package access holds the compiled-in authorization matrix: the resource and
// action taxonomy, role permissions and hierarchy, ownership and department
// columns, module gating and the per-resource schema catalog.
package access

import (
	"fmt"
	"strings"

	"github.com/odyssey-erp/odyssey-ops/internal/shared"
)

// Resource names a kind of business entity subject to access control.
type Resource string

// Business resources.
const (
	ResourceContacts      Resource = "contacts"
	ResourceCompanies     Resource = "companies"
	ResourceDeals         Resource = "deals"
	ResourceTasks         Resource = "tasks"
	ResourceNotes         Resource = "notes"
	ResourceCandidates    Resource = "candidates"
	ResourceJobOpenings   Resource = "job_openings"
	ResourceInterviews    Resource = "interviews"
	ResourceEmployees     Resource = "employees"
	ResourceLeaveRequests Resource = "leave_requests"
	ResourceDepartments   Resource = "departments"
	ResourceOrders        Resource = "orders"
	ResourceInvoices      Resource = "invoices"
	ResourceExpenses      Resource = "expenses"
	ResourceDocuments     Resource = "documents"
	ResourceAuditLogs     Resource = "audit_logs"
	ResourceProfiles      Resource = "profiles"
	ResourceRoles         Resource = "roles"
)

var knownResources = []Resource{
	ResourceContacts,
	ResourceCompanies,
	ResourceDeals,
	ResourceTasks,
	ResourceNotes,
	ResourceCandidates,
	ResourceJobOpenings,
	ResourceInterviews,
	ResourceEmployees,
	ResourceLeaveRequests,
	ResourceDepartments,
	ResourceOrders,
	ResourceInvoices,
	ResourceExpenses,
	ResourceDocuments,
	ResourceAuditLogs,
	ResourceProfiles,
	ResourceRoles,
}

// AllResources returns the compiled-in resource taxonomy.
func AllResources() []Resource {
	out := make([]Resource, len(knownResources))
	copy(out, knownResources)
	return out
}

// ParseResource validates a resource name against the compiled-in taxonomy.
func ParseResource(raw string) (Resource, error) {
	candidate := Resource(strings.TrimSpace(strings.ToLower(raw)))
	for _, r := range knownResources {
		if r == candidate {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: unknown resource %q", shared.ErrConfiguration, raw)
}

// Action is an operation kind performed on a resource.
type Action string

// Actions. ActionManage implies every other action on the same resource.
const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionManage Action = "manage"
	ActionExport Action = "export"
)

var knownActions = []Action{ActionRead, ActionCreate, ActionUpdate, ActionDelete, ActionManage, ActionExport}

// AllActions returns every action kind.
func AllActions() []Action {
	out := make([]Action, len(knownActions))
	copy(out, knownActions)
	return out
}

// ParseAction validates an action name.
func ParseAction(raw string) (Action, error) {
	candidate := Action(strings.TrimSpace(strings.ToLower(raw)))
	for _, a := range knownActions {
		if a == candidate {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: unknown action %q", shared.ErrConfiguration, raw)
}

// Permission pairs a resource with an action. It is comparable and used
// directly as a set key; the "resource:action" form is only for logs and
// policy files.
type Permission struct {
	Resource Resource
	Action   Action
}

// Perm builds a Permission.
func Perm(resource Resource, action Action) Permission {
	return Permission{Resource: resource, Action: action}
}

// String renders the permission as "resource:action".
func (p Permission) String() string {
	return string(p.Resource) + ":" + string(p.Action)
}

// ParsePermission parses the "resource:action" form.
func ParsePermission(raw string) (Permission, error) {
	res, act, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return Permission{}, fmt.Errorf("%w: malformed permission %q", shared.ErrConfiguration, raw)
	}
	resource, err := ParseResource(res)
	if err != nil {
		return Permission{}, err
	}
	action, err := ParseAction(act)
	if err != nil {
		return Permission{}, err
	}
	return Perm(resource, action), nil
}
