package api

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/Harshitk-cp/tenantctl/internal/api/handlers"
	mw "github.com/Harshitk-cp/tenantctl/internal/api/middleware"
	"github.com/Harshitk-cp/tenantctl/internal/buildconfig"
	"github.com/Harshitk-cp/tenantctl/internal/config"
	"github.com/Harshitk-cp/tenantctl/internal/domain"
	"github.com/Harshitk-cp/tenantctl/internal/provisioning"
	"github.com/Harshitk-cp/tenantctl/internal/service"
	"github.com/Harshitk-cp/tenantctl/internal/store"
	"github.com/Harshitk-cp/tenantctl/internal/tenantdb"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Pinger reports whether the catalog database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// TenantClients is the registry view the API needs: eviction on project
// deletion and the open client count for /metrics.
type TenantClients interface {
	domain.ClientReleaser
	Len() int
}

// Deps are the collaborators behind the HTTP API.
type Deps struct {
	Catalog     domain.ProjectStore
	CatalogPing Pinger
	Provisioner domain.Provisioner
	Schema      domain.SchemaInitializer
	Users       domain.UserAccessor
	Clients     TenantClients
}

// App holds the router and the resources that need closing on shutdown.
type App struct {
	Router    *chi.Mux
	clients   TenantClients
	counters  mw.Counters
	startTime time.Time
	stop      context.CancelFunc
}

// NewApp wires the production stack on top of the catalog pool.
func NewApp(db *pgxpool.Pool, registry *tenantdb.Registry, logger *zap.Logger) (*App, error) {
	provider := config.Provisioner()
	provisioner, err := provisioning.NewClient(provider, provisioning.Options{
		APIURL:          config.NeonAPIURL(),
		APIKey:          config.NeonAPIKey(),
		OrgID:           config.NeonOrgID(),
		RegionID:        config.NeonRegionID(),
		PostgresVersion: config.NeonPostgresVersion(),
		ReadyAttempts:   config.ReadyAttempts(),
		ReadyDelay:      config.ReadyDelay(),
		MockDatabaseURL: config.MockTenantDatabaseURL(),
	})
	if err != nil {
		return nil, err
	}
	logger.Info("provisioner initialized", zap.String("provider", provider))

	return NewAppWithDeps(Deps{
		Catalog:     store.NewProjectStore(db),
		CatalogPing: db,
		Provisioner: provisioner,
		Schema:      tenantdb.NewInitializer(tenantdb.PgxConnector, logger),
		Users:       tenantdb.NewAccessor(registry, logger),
		Clients:     registry,
	}, logger), nil
}

func NewAppWithDeps(deps Deps, logger *zap.Logger) *App {
	projectSvc := service.NewProjectService(deps.Catalog, deps.Provisioner, deps.Schema, deps.Clients, logger)
	userSvc := service.NewUserService(deps.Catalog, deps.Users, logger)

	projectHandler := handlers.NewProjectHandler(projectSvc, logger)
	userHandler := handlers.NewUserHandler(userSvc, logger)

	ctx, stop := context.WithCancel(context.Background())
	r := chi.NewRouter()
	app := &App{
		Router:    r,
		clients:   deps.Clients,
		startTime: time.Now(),
		stop:      stop,
	}

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Metrics(&app.counters))
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(ctx, config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", healthHandler(deps.CatalogPing))
	r.Get("/metrics", app.metricsHandler())

	routes := func(r chi.Router) {
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", projectHandler.List)
			r.Post("/", projectHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", projectHandler.GetByID)
				r.Delete("/", projectHandler.Delete)
				r.Get("/users", userHandler.List)
				r.Post("/users", userHandler.Create)
			})
		})
	}

	routes(r)
	// The dashboard calls the same endpoints under /api.
	r.Route("/api", routes)

	return app
}

// Close stops background work started by the router.
func (app *App) Close() {
	app.stop()
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if err := db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "error", "error": "catalog database unreachable"})
			return
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "build": buildconfig.Info()})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"requests":       app.counters.Snapshot(),
			"tenant_clients": app.clients.Len(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb": float64(memStats.Alloc) / 1024 / 1024,
				"sys_mb":   float64(memStats.Sys) / 1024 / 1024,
				"num_gc":   memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.ProjectStore      = (*store.ProjectStore)(nil)
	_ domain.Provisioner       = (*provisioning.NeonClient)(nil)
	_ domain.Provisioner       = (*provisioning.MockClient)(nil)
	_ domain.SchemaInitializer = (*tenantdb.Initializer)(nil)
	_ domain.UserAccessor      = (*tenantdb.Accessor)(nil)
	_ TenantClients            = (*tenantdb.Registry)(nil)
	_ Pinger                   = (*pgxpool.Pool)(nil)
)
