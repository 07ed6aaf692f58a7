package rbac

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// BindingStore returns the role names bound to a principal.
type BindingStore interface {
	RolesForPrincipal(ctx context.Context, principalID string) ([]string, error)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGBindingStore reads role bindings from the user_roles join table.
type PGBindingStore struct {
	db      querier
	builder squirrel.StatementBuilderType
}

// NewPGBindingStore builds a store over a pgx pool or transaction.
func NewPGBindingStore(db querier) *PGBindingStore {
	return &PGBindingStore{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (s *PGBindingStore) rolesQuery(principalID string) (string, []any, error) {
	return s.builder.Select("r.name").
		Distinct().
		From("roles r").
		Join("user_roles ur ON ur.role_id = r.id").
		Where(squirrel.Eq{"ur.user_id": principalID}).
		OrderBy("r.name").
		ToSql()
}

// RolesForPrincipal lists the role names bound to principalID.
func (s *PGBindingStore) RolesForPrincipal(ctx context.Context, principalID string) ([]string, error) {
	stmt, args, err := s.rolesQuery(principalID)
	if err != nil {
		return nil, fmt.Errorf("build role bindings sql: %w", err)
	}
	rows, err := s.db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query role bindings: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan role bindings: %w", err)
	}
	return names, nil
}

// MemoryBindingStore keeps bindings in process. It backs development mode
// and tests.
type MemoryBindingStore struct {
	mu       sync.RWMutex
	bindings map[string][]string
}

// NewMemoryBindingStore seeds a store from principal -> roles.
func NewMemoryBindingStore(seed map[string][]string) *MemoryBindingStore {
	s := &MemoryBindingStore{bindings: make(map[string][]string, len(seed))}
	for principal, roles := range seed {
		s.Bind(principal, roles...)
	}
	return s
}

// Bind replaces the roles bound to principalID.
func (s *MemoryBindingStore) Bind(principalID string, roles ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindings[strings.TrimSpace(principalID)] = append([]string(nil), roles...)
}

// Revoke removes every binding of principalID.
func (s *MemoryBindingStore) Revoke(principalID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bindings, strings.TrimSpace(principalID))
}

// RolesForPrincipal lists the bound roles, sorted.
func (s *MemoryBindingStore) RolesForPrincipal(_ context.Context, principalID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roles := append([]string(nil), s.bindings[principalID]...)
	sort.Strings(roles)
	return roles, nil
}
