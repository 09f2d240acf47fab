// README: HTTP router registration.
package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"courier/internal/http/handlers"
	"courier/internal/http/middleware"
	"courier/internal/infra"
	"courier/internal/metrics"
)

type RouterDeps struct {
	Pricing  handlers.Quoter
	Zones    handlers.ZoneAdmin
	Packages handlers.Packages
	Verifier infra.TokenVerifier
	Geocoder handlers.BreakerReporter
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

func NewRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(middleware.Recovery(logger), middleware.Logging(logger, deps.Metrics))

	r.GET("/health", handlers.NewHealthHandler(deps.Geocoder).Get)
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	quoteHandler := handlers.NewQuoteHandler(deps.Pricing)
	r.POST("/api/quotes", quoteHandler.Create)

	api := r.Group("/api", middleware.Auth(deps.Verifier))
	admin := middleware.RequireRole(middleware.RoleAdmin)
	staff := middleware.RequireRole(middleware.RoleAdmin, middleware.RoleCourier)

	zoneHandler := handlers.NewZoneHandler(deps.Zones)
	api.GET("/zones", admin, zoneHandler.Get)
	api.PUT("/zones", admin, zoneHandler.Put)

	packageHandler := handlers.NewPackageHandler(deps.Packages)
	api.POST("/packages", packageHandler.Create)
	api.GET("/packages", admin, packageHandler.List)
	api.GET("/packages/:id", packageHandler.Get)
	api.POST("/packages/:id/assign", admin, packageHandler.Assign)
	api.POST("/packages/:id/status", staff, packageHandler.Advance)
	api.POST("/packages/:id/cancel", admin, packageHandler.Cancel)

	return r
}
