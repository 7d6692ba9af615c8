package router

import (
	"net/http"

	"github.com/finanzas/backend/internal/infrastructure/logger"
	"github.com/finanzas/backend/internal/interfaces/http/dto"
	"github.com/finanzas/backend/internal/interfaces/http/handler"
	"github.com/finanzas/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Options configures the HTTP engine
type Options struct {
	Logger         *zap.Logger
	ServiceName    string
	Production     bool
	TrustedProxies []string
	CORS           middleware.CORSConfig
	Security       middleware.SecurityConfig
	MaxBodySize    int64

	Tracing   bool
	Meter     metric.Meter // nil disables HTTP metrics
	Profiling bool
	Swagger   middleware.SwaggerConfig
}

// Handlers groups every HTTP handler the API exposes
type Handlers struct {
	Projects  *handler.ProjectHandler
	Handoffs  *handler.HandoffHandler
	Baselines *handler.BaselineHandler
	Rubros    *handler.RubroHandler
	System    *handler.SystemHandler
}

// New builds the gin engine with the middleware chain, probes, API docs and
// the versioned API routes.
func New(opts Options, h Handlers) (*gin.Engine, error) {
	if opts.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, err
	}

	tracing := middleware.DefaultTracingConfig()
	tracing.Enabled = opts.Tracing
	if opts.ServiceName != "" {
		tracing.ServiceName = opts.ServiceName
	}
	profiling := middleware.DefaultProfilingConfig()
	profiling.Enabled = opts.Profiling

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		middleware.Actor(),
		logger.AccessLog(log),
	)
	engine.Use(middleware.Tracing(tracing)...)
	engine.Use(
		middleware.HTTPMetrics(opts.Meter),
		middleware.Profiling(profiling),
		middleware.Secure(opts.Security),
		middleware.CORSWithConfig(opts.CORS),
	)
	if opts.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(opts.MaxBodySize))
	}

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeNotFound, "route not found", middleware.GetRequestID(c)))
	})

	engine.GET("/health", h.System.Health)
	engine.GET("/ready", h.System.Ready)
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(opts.Swagger),
		ginSwagger.WrapHandler(swaggerFiles.Handler))

	if err := Mount(engine, APIVersion, Routes(h)); err != nil {
		return nil, err
	}
	return engine, nil
}
