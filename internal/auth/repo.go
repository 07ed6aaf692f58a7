package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/odyssey-ops/internal/shared"
)

// Repository looks up the profile bound to a principal.
type Repository interface {
	ProfileByPrincipal(ctx context.Context, principalID string) (Profile, error)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db      rowQuerier
	builder squirrel.StatementBuilderType
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(db rowQuerier) *PGRepository {
	return &PGRepository{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *PGRepository) profileQuery(principalID string) (string, []any, error) {
	return r.builder.Select("id::text", "user_id::text", "COALESCE(department_id::text, '')").
		From("profiles").
		Where(squirrel.Eq{"user_id": principalID}).
		Limit(1).
		ToSql()
}

// ProfileByPrincipal fetches the profile of principalID. A principal without a
// profile yields shared.ErrNotFound.
func (r *PGRepository) ProfileByPrincipal(ctx context.Context, principalID string) (Profile, error) {
	stmt, args, err := r.profileQuery(principalID)
	if err != nil {
		return Profile{}, fmt.Errorf("build profile sql: %w", err)
	}
	var p Profile
	if err := r.db.QueryRow(ctx, stmt, args...).Scan(&p.ID, &p.PrincipalID, &p.DepartmentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, shared.ErrNotFound
		}
		return Profile{}, fmt.Errorf("%w: query profile: %w", shared.ErrDependency, err)
	}
	return p, nil
}

// MemoryRepository keeps profiles in process for development mode and tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

// NewMemoryRepository seeds a repository keyed by principal id.
func NewMemoryRepository(profiles ...Profile) *MemoryRepository {
	m := &MemoryRepository{profiles: make(map[string]Profile, len(profiles))}
	for _, p := range profiles {
		m.Put(p)
	}
	return m
}

// Put stores or replaces a profile.
func (m *MemoryRepository) Put(p Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.PrincipalID] = p
}

// ProfileByPrincipal implements Repository.
func (m *MemoryRepository) ProfileByPrincipal(_ context.Context, principalID string) (Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[principalID]
	if !ok {
		return Profile{}, shared.ErrNotFound
	}
	return p, nil
}
