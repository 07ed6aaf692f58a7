package access

// Role names of the compiled-in policy.
const (
	RoleSuperadmin = "superadmin"
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleHR         = "hr"
	RoleFinance    = "finance"
	RoleRecruiter  = "recruiter"
	RoleSales      = "sales"
	RoleEmployee   = "employee"
	RoleViewer     = "viewer"
)

// Navigation modules.
const (
	ModuleCRM        = "crm"
	ModuleATS        = "ats"
	ModuleHR         = "hr"
	ModuleFinance    = "finance"
	ModuleOperations = "operations"
	ModuleReports    = "reports"
	ModuleAdmin      = "admin"
)

var (
	crmResources  = []Resource{ResourceContacts, ResourceCompanies, ResourceDeals}
	workResources = []Resource{ResourceTasks, ResourceNotes}
	crud          = []Action{ActionRead, ActionCreate, ActionUpdate, ActionDelete}
	readWrite     = []Action{ActionRead, ActionCreate, ActionUpdate}
)

func grant(resources []Resource, actions ...Action) []Permission {
	out := make([]Permission, 0, len(resources)*len(actions))
	for _, r := range resources {
		for _, a := range actions {
			out = append(out, Perm(r, a))
		}
	}
	return out
}

func one(r Resource, actions ...Action) []Permission {
	return grant([]Resource{r}, actions...)
}

func join(groups ...[]Permission) []Permission {
	var out []Permission
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func businessResources() []Resource {
	out := make([]Resource, 0, len(knownResources))
	for _, r := range knownResources {
		if r != ResourceRoles {
			out = append(out, r)
		}
	}
	return out
}

// DefaultMatrixConfig returns the compiled-in policy for the CRM/ATS/HR/Ops platform.
func DefaultMatrixConfig() MatrixConfig {
	return MatrixConfig{
		Roles: []RoleDefinition{
			{Name: RoleSuperadmin, Level: 100, Permissions: grant(knownResources, ActionManage)},
			{Name: RoleAdmin, Level: 90, Permissions: join(
				grant(businessResources(), ActionManage),
				one(ResourceRoles, ActionRead),
			)},
			{Name: RoleManager, Level: 60, Permissions: join(
				grant(crmResources, readWrite...),
				grant(workResources, ActionManage),
				one(ResourceOrders, ActionRead, ActionCreate, ActionUpdate, ActionExport),
				one(ResourceJobOpenings, readWrite...),
				one(ResourceInterviews, ActionRead),
				one(ResourceCandidates, ActionRead),
				one(ResourceEmployees, ActionRead),
				one(ResourceLeaveRequests, ActionRead, ActionUpdate),
				one(ResourceExpenses, ActionRead, ActionUpdate),
				one(ResourceDocuments, ActionRead, ActionCreate),
				one(ResourceDepartments, ActionRead),
				one(ResourceProfiles, ActionRead),
			)},
			{Name: RoleHR, Level: 50, Permissions: join(
				grant([]Resource{ResourceEmployees, ResourceLeaveRequests, ResourceDepartments, ResourceCandidates, ResourceJobOpenings, ResourceInterviews}, ActionManage),
				one(ResourceDocuments, readWrite...),
				one(ResourceProfiles, ActionRead, ActionUpdate),
				grant(workResources, readWrite...),
			)},
			{Name: RoleFinance, Level: 45, Permissions: join(
				grant([]Resource{ResourceInvoices, ResourceExpenses}, ActionManage),
				one(ResourceOrders, ActionRead, ActionExport),
				one(ResourceCompanies, ActionRead),
				one(ResourceDocuments, ActionRead, ActionCreate),
				grant(workResources, readWrite...),
			)},
			{Name: RoleRecruiter, Level: 40, Permissions: join(
				one(ResourceCandidates, readWrite...),
				one(ResourceInterviews, readWrite...),
				one(ResourceJobOpenings, ActionRead),
				one(ResourceDocuments, ActionRead, ActionCreate),
				grant(workResources, readWrite...),
			)},
			{Name: RoleSales, Level: 40, Permissions: join(
				grant(crmResources, readWrite...),
				one(ResourceOrders, readWrite...),
				one(ResourceDocuments, ActionRead, ActionCreate),
				grant(workResources, readWrite...),
			)},
			{Name: RoleEmployee, Level: 20, Permissions: join(
				grant(workResources, crud...),
				one(ResourceLeaveRequests, ActionRead, ActionCreate),
				one(ResourceExpenses, ActionRead, ActionCreate),
				one(ResourceDocuments, ActionRead, ActionCreate),
				one(ResourceDepartments, ActionRead),
				one(ResourceProfiles, ActionRead),
			)},
			{Name: RoleViewer, Level: 10, Permissions: join(
				grant(crmResources, ActionRead),
				grant([]Resource{ResourceTasks, ResourceDepartments}, ActionRead),
			)},
		},
		Ownership: map[Resource][]string{
			ResourceContacts:      {"owner_id", "created_by"},
			ResourceCompanies:     {"owner_id"},
			ResourceDeals:         {"owner_id"},
			ResourceTasks:         {"created_by", "assignee_id"},
			ResourceNotes:         {"created_by"},
			ResourceCandidates:    {"recruiter_id"},
			ResourceJobOpenings:   {"hiring_manager_id"},
			ResourceInterviews:    {"interviewer_id"},
			ResourceLeaveRequests: {"employee_profile_id"},
			ResourceOrders:        {"sales_rep_id"},
			ResourceInvoices:      {"created_by"},
			ResourceExpenses:      {"submitted_by"},
			ResourceDocuments:     {"uploaded_by"},
		},
		Departments: map[Resource][]string{
			ResourceContacts:      {"department_id"},
			ResourceDeals:         {"department_id"},
			ResourceTasks:         {"department_id"},
			ResourceJobOpenings:   {"department_id"},
			ResourceEmployees:     {"department_id"},
			ResourceLeaveRequests: {"department_id"},
			ResourceOrders:        {"department_id"},
			ResourceExpenses:      {"department_id"},
		},
		Modules: map[string][]string{
			ModuleCRM:        {RoleSuperadmin, RoleAdmin, RoleManager, RoleSales},
			ModuleATS:        {RoleSuperadmin, RoleAdmin, RoleManager, RoleHR, RoleRecruiter},
			ModuleHR:         {RoleSuperadmin, RoleAdmin, RoleManager, RoleHR, RoleEmployee},
			ModuleFinance:    {RoleSuperadmin, RoleAdmin, RoleManager, RoleFinance},
			ModuleOperations: {RoleSuperadmin, RoleAdmin, RoleManager, RoleHR, RoleFinance, RoleRecruiter, RoleSales, RoleEmployee},
			ModuleReports:    {RoleSuperadmin, RoleAdmin, RoleManager, RoleFinance, RoleViewer},
			ModuleAdmin:      {RoleSuperadmin, RoleAdmin},
		},
		BypassRoles:           []string{RoleAdmin, RoleSuperadmin},
		DepartmentScopedRoles: []string{RoleManager},
	}
}

func idColumn() Column {
	return Column{Name: "id", Type: TypeUUID, PrimaryKey: true}
}

func required(name string, t ColumnType) Column {
	return Column{Name: name, Type: t}
}

func optional(name string, t ColumnType) Column {
	return Column{Name: name, Type: t, Nullable: true}
}

func createdByColumn() Column {
	return Column{Name: "created_by", Type: TypeUUID, Nullable: true, CreatedBy: true}
}

func deletedAtColumn() Column {
	return Column{Name: "deleted_at", Type: TypeTimestamp, Nullable: true, SoftDelete: true}
}

func withTimestamps(cols ...Column) []Column {
	return append(cols,
		required("created_at", TypeTimestamp),
		required("updated_at", TypeTimestamp),
	)
}

// DefaultSchemas returns the compiled-in schema descriptors.
func DefaultSchemas() []Schema {
	return []Schema{
		NewSchema(ResourceContacts, "contacts", withTimestamps(
			idColumn(),
			required("first_name", TypeText),
			optional("last_name", TypeText),
			optional("email", TypeText),
			optional("phone", TypeText),
			optional("company_id", TypeUUID),
			optional("owner_id", TypeUUID),
			optional("department_id", TypeUUID),
			createdByColumn(),
			deletedAtColumn(),
		)...),
		NewSchema(ResourceCompanies, "companies", withTimestamps(
			idColumn(),
			required("name", TypeText),
			optional("domain", TypeText),
			optional("industry", TypeText),
			optional("owner_id", TypeUUID),
			createdByColumn(),
			deletedAtColumn(),
		)...),
		NewSchema(ResourceDeals, "deals", withTimestamps(
			idColumn(),
			required("title", TypeText),
			optional("company_id", TypeUUID),
			optional("contact_id", TypeUUID),
			required("stage", TypeText),
			optional("amount", TypeNumeric),
			optional("owner_id", TypeUUID),
			optional("department_id", TypeUUID),
			createdByColumn(),
			deletedAtColumn(),
		)...),
		NewSchema(ResourceTasks, "tasks", withTimestamps(
			idColumn(),
			required("title", TypeText),
			optional("description", TypeText),
			required("status", TypeText),
			optional("priority", TypeText),
			optional("due_date", TypeDate),
			optional("assignee_id", TypeUUID),
			optional("department_id", TypeUUID),
			createdByColumn(),
		)...),
		NewSchema(ResourceNotes, "notes", withTimestamps(
			idColumn(),
			required("body", TypeText),
			optional("entity_type", TypeText),
			optional("entity_id", TypeUUID),
			createdByColumn(),
			deletedAtColumn(),
		)...),
		NewSchema(ResourceCandidates, "candidates", withTimestamps(
			idColumn(),
			required("full_name", TypeText),
			optional("email", TypeText),
			optional("job_opening_id", TypeUUID),
			required("stage", TypeText),
			optional("recruiter_id", TypeUUID),
			optional("resume_url", TypeText),
			createdByColumn(),
			deletedAtColumn(),
		)...),
		NewSchema(ResourceJobOpenings, "job_openings", withTimestamps(
			idColumn(),
			required("title", TypeText),
			required("status", TypeText),
			optional("location", TypeText),
			optional("hiring_manager_id", TypeUUID),
			optional("department_id", TypeUUID),
			createdByColumn(),
			deletedAtColumn(),
		)...),
		NewSchema(ResourceInterviews, "interviews", withTimestamps(
			idColumn(),
			required("candidate_id", TypeUUID),
			required("scheduled_at", TypeTimestamp),
			optional("interviewer_id", TypeUUID),
			optional("feedback", TypeText),
			optional("score", TypeInteger),
			createdByColumn(),
		)...),
		NewSchema(ResourceEmployees, "employees", withTimestamps(
			idColumn(),
			required("profile_id", TypeUUID),
			required("job_title", TypeText),
			optional("department_id", TypeUUID),
			optional("manager_profile_id", TypeUUID),
			optional("hired_on", TypeDate),
			createdByColumn(),
			deletedAtColumn(),
		)...),
		NewSchema(ResourceLeaveRequests, "leave_requests", withTimestamps(
			idColumn(),
			optional("employee_profile_id", TypeUUID),
			required("starts_on", TypeDate),
			required("ends_on", TypeDate),
			required("status", TypeText),
			optional("reason", TypeText),
			optional("department_id", TypeUUID),
		)...),
		NewSchema(ResourceDepartments, "departments", withTimestamps(
			idColumn(),
			required("name", TypeText),
			optional("parent_id", TypeUUID),
			optional("head_profile_id", TypeUUID),
		)...),
		NewSchema(ResourceOrders, "orders", withTimestamps(
			idColumn(),
			required("order_number", TypeText),
			optional("company_id", TypeUUID),
			required("status", TypeText),
			optional("total", TypeNumeric),
			optional("sales_rep_id", TypeUUID),
			optional("department_id", TypeUUID),
			createdByColumn(),
			deletedAtColumn(),
		)...),
		NewSchema(ResourceInvoices, "invoices", withTimestamps(
			idColumn(),
			required("invoice_number", TypeText),
			optional("order_id", TypeUUID),
			required("status", TypeText),
			optional("amount", TypeNumeric),
			optional("due_on", TypeDate),
			createdByColumn(),
		)...),
		NewSchema(ResourceExpenses, "expenses", withTimestamps(
			idColumn(),
			required("description", TypeText),
			required("amount", TypeNumeric),
			required("status", TypeText),
			optional("submitted_by", TypeUUID),
			optional("department_id", TypeUUID),
		)...),
		NewSchema(ResourceDocuments, "documents", withTimestamps(
			idColumn(),
			required("name", TypeText),
			required("storage_path", TypeText),
			optional("entity_type", TypeText),
			optional("entity_id", TypeUUID),
			optional("uploaded_by", TypeUUID),
			deletedAtColumn(),
		)...),
		NewSchema(ResourceAuditLogs, "audit_logs",
			idColumn(),
			optional("actor_profile_id", TypeUUID),
			required("action", TypeText),
			required("entity_type", TypeText),
			optional("entity_id", TypeUUID),
			optional("payload", TypeJSON),
			required("created_at", TypeTimestamp),
		),
		NewSchema(ResourceProfiles, "profiles", withTimestamps(
			idColumn(),
			required("user_id", TypeUUID),
			required("full_name", TypeText),
			optional("email", TypeText),
			optional("department_id", TypeUUID),
		)...),
		NewSchema(ResourceRoles, "roles", withTimestamps(
			idColumn(),
			required("name", TypeText),
			optional("description", TypeText),
		)...),
	}
}

// Default builds the compiled-in matrix and schema catalog.
func Default() (*Matrix, *Catalog, error) {
	m, err := NewMatrix(DefaultMatrixConfig())
	if err != nil {
		return nil, nil, err
	}
	c, err := NewCatalog(m, DefaultSchemas()...)
	if err != nil {
		return nil, nil, err
	}
	return m, c, nil
}
