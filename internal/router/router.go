package router

import (
	"net/http"
	"time"

	"github.com/apex-pos/api/internal/authz"
	"github.com/apex-pos/api/internal/config"
	"github.com/apex-pos/api/internal/database"
	"github.com/apex-pos/api/internal/events"
	"github.com/apex-pos/api/internal/guard"
	"github.com/apex-pos/api/internal/handler"
	"github.com/apex-pos/api/internal/metrics"
	mw "github.com/apex-pos/api/internal/middleware"
	"github.com/apex-pos/api/internal/report"
	"github.com/apex-pos/api/internal/service"
	"github.com/apex-pos/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Deps are the long-lived dependencies shared by every handler.
type Deps struct {
	Queries     *database.Queries
	Pool        *pgxpool.Pool
	Hub         *ws.Hub
	Publisher   events.Publisher
	Guard       guard.Guard
	Metrics     *metrics.Metrics
	Permissions *authz.Permissions
	Logger      *zap.Logger
}

// New creates a Chi router with all application routes wired up.
// Protected routes authenticate the bearer token, resolve the caller's
// authorization context, then check a per-route permission.
func New(cfg *config.Config, d Deps) chi.Router {
	if d.Publisher == nil {
		d.Publisher = events.Nop{}
	}
	if d.Guard == nil {
		d.Guard = guard.NewMemory(time.Now)
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	if d.Permissions == nil {
		d.Permissions = authz.DefaultPermissions()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.RequestLogger(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(d.Metrics.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	authHandler := handler.NewAuthHandler(d.Queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	resolver := authz.NewResolver(d.Queries, d.Permissions)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(d.Hub, resolver, cfg.JWTSecret, d.Logger, w, r)
	})

	// Services
	orderService := service.NewOrderService(d.Pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}, d.Guard, d.Publisher, d.Metrics)
	comandaService := service.NewComandaService(d.Pool, func(db database.DBTX) service.ComandaStore {
		return database.New(db)
	}, d.Publisher, d.Metrics)
	tableService := service.NewTableService(d.Pool, func(db database.DBTX) service.TableStore {
		return database.New(db)
	}, d.Publisher, d.Metrics)
	userService := service.NewUserService(d.Pool, func(db database.DBTX) service.UserStore {
		return database.New(db)
	})
	reporter := report.New(d.Queries, cfg.ReportLocation())

	// Protected routes (require authentication and a resolved context)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))
		r.Use(mw.Resolve(resolver))

		authHandler.RegisterProtectedRoutes(r)
		handler.NewOrderHandler(orderService, d.Queries).RegisterRoutes(r)
		handler.NewComandaHandler(comandaService, reporter).RegisterRoutes(r)
		handler.NewTableHandler(tableService, d.Queries).RegisterRoutes(r)
		handler.NewProductHandler(d.Queries).RegisterRoutes(r)
		handler.NewUserHandler(userService, d.Queries).RegisterRoutes(r)
	})

	d.Logger.Info("router initialized")
	return r
}
