package access

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/odyssey-erp/odyssey-ops/internal/shared"
)

// policyFile is the YAML representation of a policy. Permission strings use
// the "resource:action" form.
type policyFile struct {
	Roles                 map[string]rolePolicy     `yaml:"roles" validate:"required,min=1,dive"`
	Ownership             map[string][]string       `yaml:"ownership"`
	Departments           map[string][]string       `yaml:"departments"`
	Modules               map[string][]string       `yaml:"modules"`
	BypassRoles           []string                  `yaml:"bypass_roles"`
	DepartmentScopedRoles []string                  `yaml:"department_scoped_roles"`
	Resources             map[string]resourcePolicy `yaml:"resources" validate:"omitempty,dive"`
}

type rolePolicy struct {
	Level       int      `yaml:"level" validate:"gte=0"`
	Permissions []string `yaml:"permissions"`
}

type resourcePolicy struct {
	Table   string         `yaml:"table"`
	Columns []columnPolicy `yaml:"columns" validate:"required,min=1,dive"`
}

type columnPolicy struct {
	Name       string `yaml:"name" validate:"required"`
	Type       string `yaml:"type" validate:"required,oneof=uuid text integer numeric boolean timestamp date jsonb"`
	Nullable   bool   `yaml:"nullable"`
	PrimaryKey bool   `yaml:"primary_key"`
	SoftDelete bool   `yaml:"soft_delete"`
	CreatedBy  bool   `yaml:"created_by"`
}

// LoadPolicyFile reads a YAML policy from path.
func LoadPolicyFile(path string) (*Matrix, *Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open policy: %w", shared.ErrConfiguration, err)
	}
	defer f.Close()
	return LoadPolicy(f)
}

// LoadPolicy decodes and validates a YAML policy. When the document has no
// resources section the compiled-in schemas are used.
func LoadPolicy(r io.Reader) (*Matrix, *Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc policyFile
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("%w: empty policy document", shared.ErrConfiguration)
		}
		return nil, nil, fmt.Errorf("%w: decode policy: %w", shared.ErrConfiguration, err)
	}
	if err := validator.New().Struct(doc); err != nil {
		return nil, nil, fmt.Errorf("%w: validate policy: %w", shared.ErrConfiguration, err)
	}

	cfg, err := doc.matrixConfig()
	if err != nil {
		return nil, nil, err
	}
	m, err := NewMatrix(cfg)
	if err != nil {
		return nil, nil, err
	}

	schemas := DefaultSchemas()
	if len(doc.Resources) > 0 {
		if schemas, err = doc.schemas(); err != nil {
			return nil, nil, err
		}
	}
	c, err := NewCatalog(m, schemas...)
	if err != nil {
		return nil, nil, err
	}
	return m, c, nil
}

func (doc policyFile) matrixConfig() (MatrixConfig, error) {
	cfg := MatrixConfig{
		Ownership:             make(map[Resource][]string, len(doc.Ownership)),
		Departments:           make(map[Resource][]string, len(doc.Departments)),
		Modules:               doc.Modules,
		BypassRoles:           doc.BypassRoles,
		DepartmentScopedRoles: doc.DepartmentScopedRoles,
	}
	names := make([]string, 0, len(doc.Roles))
	for name := range doc.Roles {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		role := doc.Roles[name]
		def := RoleDefinition{Name: name, Level: role.Level}
		for _, raw := range role.Permissions {
			p, err := ParsePermission(raw)
			if err != nil {
				return MatrixConfig{}, fmt.Errorf("role %q: %w", name, err)
			}
			def.Permissions = append(def.Permissions, p)
		}
		cfg.Roles = append(cfg.Roles, def)
	}
	for raw, cols := range doc.Ownership {
		res, err := ParseResource(raw)
		if err != nil {
			return MatrixConfig{}, err
		}
		cfg.Ownership[res] = cols
	}
	for raw, cols := range doc.Departments {
		res, err := ParseResource(raw)
		if err != nil {
			return MatrixConfig{}, err
		}
		cfg.Departments[res] = cols
	}
	return cfg, nil
}

func (doc policyFile) schemas() ([]Schema, error) {
	out := make([]Schema, 0, len(doc.Resources))
	for raw, rp := range doc.Resources {
		res, err := ParseResource(raw)
		if err != nil {
			return nil, err
		}
		cols := make([]Column, 0, len(rp.Columns))
		for _, c := range rp.Columns {
			cols = append(cols, Column{
				Name:       c.Name,
				Type:       ColumnType(c.Type),
				Nullable:   c.Nullable,
				PrimaryKey: c.PrimaryKey,
				SoftDelete: c.SoftDelete,
				CreatedBy:  c.CreatedBy,
			})
		}
		out = append(out, NewSchema(res, rp.Table, cols...))
	}
	return out, nil
}
