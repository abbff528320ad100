// Package router assembles the echo server: global middleware, the /api
// rate limit, and route registration per resource.
package router

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/tour-booking/internal/apperr"
	"github.com/iliyamo/tour-booking/internal/config"
	"github.com/iliyamo/tour-booking/internal/handler"
	"github.com/iliyamo/tour-booking/internal/middleware"
	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/observability"
)

// Auth is the account flow: session endpoints plus token resolution.
type Auth interface {
	handler.Authenticator
	middleware.TokenResolver
}

// Deps is everything the routes need, built once in main.
type Deps struct {
	Cfg       *config.Config
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig

	Auth    Auth
	Users   handler.Accounts
	Tours   handler.TourDomain
	Reviews handler.Resource[model.Review]

	DB     handler.Pinger
	Redis  *redis.Client
	Logger *slog.Logger
}

// guards holds the per-route middleware shared by the route files.
type guards struct {
	protect echo.MiddlewareFunc
	cache   echo.MiddlewareFunc
	purge   echo.MiddlewareFunc
}

func (g guards) restrictTo(roles ...string) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{g.protect, middleware.RestrictTo(roles...)}
}

// New builds the echo instance with every route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperr.Handler(d.Cfg.Env, d.Logger)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			ctx := observability.WithRequestID(c.Request().Context(), id)
			c.SetRequest(c.Request().WithContext(ctx))
		},
	}))
	e.Use(requestLogger(d.Logger))
	e.Use(observability.HTTPMetrics())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{d.Cfg.CORSOrigin},
		AllowCredentials: true,
	}))
	e.Use(echomw.Gzip())
	e.Use(echomw.BodyLimit(d.Cfg.BodyLimit))

	e.GET("/healthz", handler.Health(d.DB))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api", middleware.RateLimit(d.RateLimit, d.Redis, d.Logger))
	e.RouteNotFound("/*", apperr.RouteNotFound)

	g := guards{
		protect: middleware.Protect(d.Auth),
		cache:   middleware.Cache(d.Cache, d.Redis, d.Logger),
		purge:   middleware.PurgeCache(d.Cache, d.Redis, d.Logger),
	}
	v1 := api.Group("/v1")
	maxLimit := d.Cfg.PaginationMaxLimit
	reviews := handler.NewReviewHandler(d.Reviews, maxLimit)
	registerTours(v1.Group("/tours"), handler.NewTourHandler(d.Tours, maxLimit), reviews, g)
	registerReviews(v1.Group("/reviews"), reviews, g)
	registerUsers(v1.Group("/users"),
		handler.NewAuthHandler(d.Auth, d.Cfg.CookieTTL(), d.Cfg.IsProduction()),
		handler.NewUserHandler(d.Users, maxLimit), g)
	return e
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("request_id", v.RequestID),
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, "request", attrs...)
			return nil
		},
	})
}
