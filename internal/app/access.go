package app

import (
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-ops/internal/access"
	"github.com/odyssey-erp/odyssey-ops/internal/auth"
	"github.com/odyssey-erp/odyssey-ops/internal/observability"
	"github.com/odyssey-erp/odyssey-ops/internal/platform/db"
	"github.com/odyssey-erp/odyssey-ops/internal/platform/memstore"
	"github.com/odyssey-erp/odyssey-ops/internal/rbac"
	"github.com/odyssey-erp/odyssey-ops/internal/resources"
	"github.com/odyssey-erp/odyssey-ops/internal/shared"
)

// AccessParams groups the collaborators of the access layer. Pool may be nil
// for the memory storage driver; Redis may be nil for the memory role cache.
type AccessParams struct {
	Config  *Config
	Logger  *slog.Logger
	Metrics *observability.Metrics
	Pool    *pgxpool.Pool
	Redis   redis.Cmdable
	Clock   clockwork.Clock
}

// AccessLayer is the wired policy matrix, role resolver, gate and resource service.
type AccessLayer struct {
	Matrix     *access.Matrix
	Catalog    *access.Catalog
	Resolver   *rbac.Resolver
	Gate       *rbac.Gate
	Service    *resources.Service
	Middleware rbac.Middleware
}

// NewAccessLayer builds the access layer from configuration.
func NewAccessLayer(params AccessParams) (*AccessLayer, error) {
	cfg := params.Config
	if cfg == nil {
		return nil, fmt.Errorf("%w: app/access: config required", shared.ErrConfiguration)
	}
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := params.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	matrix, catalog, err := loadPolicy(cfg)
	if err != nil {
		return nil, err
	}

	var cache rbac.RoleCache
	switch cfg.RoleCacheBackend {
	case CacheRedis:
		if params.Redis == nil {
			return nil, fmt.Errorf("%w: app/access: redis role cache without redis client", shared.ErrConfiguration)
		}
		cache = rbac.NewRedisCache(params.Redis)
	default:
		cache = rbac.NewMemoryCache(cfg.RoleCacheSize, cfg.RoleCacheTTL, clock)
	}

	var (
		bindings rbac.BindingStore
		profiles auth.Repository
		storage  resources.Storage
	)
	switch cfg.StorageDriver {
	case StorageMemory:
		bindings, profiles, storage = memoryBackends(cfg)
		logger.Warn("memory storage driver in use, data is not persisted")
	default:
		if params.Pool == nil {
			return nil, fmt.Errorf("%w: app/access: postgres driver without pool", shared.ErrConfiguration)
		}
		bindings = rbac.NewPGBindingStore(params.Pool)
		profiles = auth.NewRepository(params.Pool)
		storage = db.NewStorage(params.Pool)
	}

	resolver := rbac.NewResolver(bindings, cache, cfg.RoleCacheTTL, logger, params.Metrics)
	gate := rbac.NewGate(auth.NewSessionAuthenticator(profiles), resolver, matrix, logger, params.Metrics)
	service := resources.NewService(gate, catalog, storage,
		resources.WithClock(clock),
		resources.WithLogger(logger),
		resources.WithMetrics(params.Metrics),
	)

	return &AccessLayer{
		Matrix:     matrix,
		Catalog:    catalog,
		Resolver:   resolver,
		Gate:       gate,
		Service:    service,
		Middleware: rbac.Middleware{Gate: gate, Logger: logger},
	}, nil
}

func loadPolicy(cfg *Config) (*access.Matrix, *access.Catalog, error) {
	if cfg.PolicyFile == "" {
		return access.Default()
	}
	return access.LoadPolicyFile(cfg.PolicyFile)
}

func memoryBackends(cfg *Config) (rbac.BindingStore, auth.Repository, resources.Storage) {
	bindings := cfg.DevRoleBindings()
	repo := auth.NewMemoryRepository()
	for principal := range bindings {
		repo.Put(auth.Profile{ID: principal, PrincipalID: principal, DepartmentID: cfg.DevDepartments[principal]})
	}
	return rbac.NewMemoryBindingStore(bindings), repo, memstore.New()
}
