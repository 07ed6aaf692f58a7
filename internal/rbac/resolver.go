package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-ops/internal/observability"
	"github.com/odyssey-erp/odyssey-ops/internal/shared"
)

// DefaultRoleTTL bounds how long a revoked role stays visible.
const DefaultRoleTTL = 5 * time.Minute

// DefaultStoreTimeout bounds a shared role-store round-trip.
const DefaultStoreTimeout = 10 * time.Second

// Resolver turns a principal id into role names, consulting the cache first.
type Resolver struct {
	store        BindingStore
	cache        RoleCache
	ttl          time.Duration
	storeTimeout time.Duration
	group        singleflight.Group
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewResolver wires a Resolver. ttl <= 0 selects DefaultRoleTTL.
func NewResolver(store BindingStore, cache RoleCache, ttl time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Resolver {
	if ttl <= 0 {
		ttl = DefaultRoleTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, cache: cache, ttl: ttl, storeTimeout: DefaultStoreTimeout, logger: logger, metrics: metrics}
}

// WithStoreTimeout overrides DefaultStoreTimeout.
func (r *Resolver) WithStoreTimeout(d time.Duration) *Resolver {
	if d > 0 {
		r.storeTimeout = d
	}
	return r
}

// TTL returns the cache lifetime of a resolution.
func (r *Resolver) TTL() time.Duration {
	return r.ttl
}

// ResolveRoles returns the roles bound to principalID. A cache hit performs no
// store access. Store failures surface as ErrDependency and are never cached.
// Concurrent misses for the same principal share one store round-trip. The
// shared round-trip is detached from any single caller's cancellation; each
// caller stops waiting when its own ctx is done.
func (r *Resolver) ResolveRoles(ctx context.Context, principalID string) ([]string, error) {
	if principalID == "" {
		return nil, shared.ErrUnauthenticated
	}

	roles, ok, err := r.cache.Get(ctx, principalID)
	switch {
	case err != nil:
		r.metrics.ObserveRoleCache("error")
		r.logger.Warn("role cache get", slog.String("principal", principalID), slog.Any("error", err))
	case ok:
		r.metrics.ObserveRoleCache("hit")
		return roles, nil
	default:
		r.metrics.ObserveRoleCache("miss")
	}

	ch := r.group.DoChan(principalID, func() (any, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.storeTimeout)
		defer cancel()
		found, err := r.store.RolesForPrincipal(sctx, principalID)
		if err != nil {
			return nil, fmt.Errorf("%w: resolve roles: %w", shared.ErrDependency, err)
		}
		found = normalizeRoles(found)
		if err := r.cache.Set(sctx, principalID, found, r.ttl); err != nil {
			r.logger.Warn("role cache set", slog.String("principal", principalID), slog.Any("error", err))
		}
		return found, nil
	})

	var v any
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: resolve roles: %w", shared.ErrDependency, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			r.logger.Error("resolve roles", slog.String("principal", principalID), slog.Any("error", res.Err))
			return nil, res.Err
		}
		v = res.Val
	}
	return append([]string(nil), v.([]string)...), nil
}

// Invalidate forgets the cached roles of principalID so the next resolution
// reads the store.
func (r *Resolver) Invalidate(ctx context.Context, principalID string) error {
	return r.cache.Delete(ctx, principalID)
}

func normalizeRoles(roles []string) []string {
	unique := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		role = strings.TrimSpace(strings.ToLower(role))
		if role == "" {
			continue
		}
		unique[role] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for role := range unique {
		normalized = append(normalized, role)
	}
	sort.Strings(normalized)
	return normalized
}
