package api

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/charlesng35/innkeep/internal/app"
	iauth "github.com/charlesng35/innkeep/internal/auth"
	"github.com/charlesng35/innkeep/internal/events"
	"github.com/charlesng35/innkeep/internal/handlers"
	"github.com/charlesng35/innkeep/internal/middleware"
	"github.com/charlesng35/innkeep/internal/monitoring"
	"github.com/charlesng35/innkeep/internal/permissions"
	"github.com/charlesng35/innkeep/internal/realtime"
	"github.com/charlesng35/innkeep/internal/repository"
	"github.com/charlesng35/innkeep/internal/security"
	"github.com/charlesng35/innkeep/internal/services"
)

// Options carries the infrastructure the router wires services from.
type Options struct {
	DB     *gorm.DB
	JWT    *iauth.JWTService
	Config *app.Config

	// Publisher receives committed booking events. Defaults to a no-op.
	Publisher events.Publisher
	// Hub serves the /ws booking board. Without one the endpoint answers 404.
	Hub *realtime.Hub
	// RateStore backs login throttling. Nil disables it.
	RateStore middleware.RateStore
	// Health holds the readiness probes. Defaults to a database ping.
	Health *monitoring.HealthManager
}

// Handlers groups every HTTP handler registered by the router.
type Handlers struct {
	Auth        *handlers.AuthHandler
	Hotels      *handlers.HotelHandler
	Rooms       *handlers.RoomHandler
	Bookings    *handlers.BookingHandler
	Users       *handlers.UserHandler
	Roles       *handlers.RoleHandler
	Permissions *handlers.PermissionHandler
	Audit       *handlers.AuditHandler
	Security    *handlers.SecurityHandler
	Realtime    *handlers.RealtimeHandler
}

const (
	pathLogin          = "/api/auth/login"
	pathMe             = "/api/auth/me"
	pathChangePassword = "/api/auth/password"
)

// NewRouter builds the Gin engine, wires middleware and registers every route.
func NewRouter(opts Options) (*gin.Engine, error) {
	if opts.DB == nil {
		return nil, errors.New("database handle must be provided")
	}
	if opts.JWT == nil {
		return nil, errors.New("jwt service must be provided")
	}
	if opts.Config == nil {
		return nil, errors.New("config must be provided")
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Noop{}
	}
	if opts.Health == nil {
		opts.Health = monitoring.NewHealthManager(0)
		opts.Health.Register("database", monitoring.DatabaseProbe(opts.DB))
	}

	store, err := repository.NewStore(opts.DB)
	if err != nil {
		return nil, err
	}
	evaluator, err := permissions.NewStoreEvaluator(store)
	if err != nil {
		return nil, err
	}
	h, err := buildHandlers(opts, store, evaluator)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(opts.Config.Server.CORSOrigins))
	r.Use(middleware.SecurityHeaders())

	registerHealthRoutes(r, opts.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws", h.Realtime.Stream)

	limit := opts.Config.Server.LoginRateLimit
	registerPublicAuthRoutes(r.Group("/api/auth"), h.Auth, middleware.RateLimit(opts.RateStore, limit.Requests, limit.Window, nil))

	api := r.Group("/api")
	api.Use(middleware.Auth(opts.JWT))
	api.Use(middleware.PasswordResetGate(pathChangePassword, pathMe))

	registerAuthRoutes(api, h.Auth)
	registerHotelRoutes(api, h.Hotels, h.Rooms)
	registerRoomRoutes(api, h.Rooms)
	registerBookingRoutes(api, h.Bookings)
	registerUserRoutes(api, h.Users)
	registerRoleRoutes(api, h.Roles)
	registerPermissionRoutes(api, h.Permissions)
	registerAuditRoutes(api, h.Audit, evaluator)
	registerSecurityRoutes(api, h.Security, evaluator)

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

func buildHandlers(opts Options, store *repository.Store, evaluator *permissions.Evaluator) (*Handlers, error) {
	audit, err := services.NewAuditService(opts.DB, evaluator)
	if err != nil {
		return nil, err
	}
	authSvc, err := services.NewAuthService(store, opts.JWT, audit)
	if err != nil {
		return nil, err
	}
	hotels, err := services.NewHotelService(store, evaluator, audit)
	if err != nil {
		return nil, err
	}
	rooms, err := services.NewRoomService(store, evaluator, audit)
	if err != nil {
		return nil, err
	}
	bookings, err := services.NewBookingService(store, evaluator, audit, opts.Publisher)
	if err != nil {
		return nil, err
	}
	users, err := services.NewUserService(store, evaluator, audit)
	if err != nil {
		return nil, err
	}
	rbac, err := services.NewRBACService(store, evaluator, audit)
	if err != nil {
		return nil, err
	}

	return &Handlers{
		Auth:        handlers.NewAuthHandler(authSvc, users),
		Hotels:      handlers.NewHotelHandler(hotels, bookings),
		Rooms:       handlers.NewRoomHandler(rooms, bookings),
		Bookings:    handlers.NewBookingHandler(bookings),
		Users:       handlers.NewUserHandler(users, rbac),
		Roles:       handlers.NewRoleHandler(rbac),
		Permissions: handlers.NewPermissionHandler(rbac),
		Audit:       handlers.NewAuditHandler(audit),
		Security:    handlers.NewSecurityHandler(security.NewChecker(opts.DB, opts.JWT, opts.Config)),
		Realtime:    handlers.NewRealtimeHandler(opts.Hub, opts.JWT, evaluator),
	}, nil
}
