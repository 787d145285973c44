package bootstrap

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"

	"github.com/cutroom/cutroom-backend/config"
	httpapi "github.com/cutroom/cutroom-backend/internal/api/http"
	"github.com/cutroom/cutroom-backend/internal/api/http/middleware"
	"github.com/cutroom/cutroom-backend/internal/auth"
	authhttp "github.com/cutroom/cutroom-backend/internal/auth/http"
	authmw "github.com/cutroom/cutroom-backend/internal/auth/middleware"
	"github.com/cutroom/cutroom-backend/internal/metrics"
	projhttp "github.com/cutroom/cutroom-backend/internal/projects/http"
	"github.com/cutroom/cutroom-backend/internal/storage/blob"
	"github.com/cutroom/cutroom-backend/internal/uploads"
)

type RouterDeps struct {
	Config   *config.Config
	Services *Services
	Verifier auth.Verifier
	Blobs    blob.Store
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Stores   *Stores
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	cfg := dep.Config
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.Metrics(dep.Metrics))

	corsConf := cors.DefaultConfig()
	if lo.Contains(cfg.Server.AllowedOrigins, "*") {
		corsConf.AllowAllOrigins = true
	} else {
		corsConf.AllowOrigins = cfg.Server.AllowedOrigins
	}
	corsConf.AllowHeaders = []string{"Authorization", "Content-Type", "If-Match", middleware.HeaderRequestID}
	corsConf.ExposeHeaders = []string{"ETag", "Retry-After", middleware.HeaderRequestID}
	corsConf.MaxAge = 12 * time.Hour
	r.Use(cors.New(corsConf))

	healthHandler := httpapi.NewHealthHandler("cutroom-api", cfg.App.Version, healthDeps(dep.Stores))
	healthHandler.RegisterRoutes(r)
	if dep.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(dep.Gatherer, promhttp.HandlerOpts{})))
	}

	limiter := middleware.NewLimiter(cfg.Server.RequestsPerSecond, cfg.Server.Burst)
	api := r.Group("/api/v1", authmw.Authenticate(dep.Verifier), limiter.Middleware())

	projhttp.New(dep.Services.Projects, dep.Services.Events).Register(api.Group("/projects"))
	authhttp.New(dep.Services.Users).Register(api.Group("/users"))
	if dep.Blobs != nil {
		uploads.New(dep.Blobs, cfg.Storage.MaxVideoBytes, dep.Metrics).Register(api.Group("/uploads"))
	}

	return r
}

func healthDeps(s *Stores) map[string]httpapi.Pinger {
	if s == nil {
		return nil
	}
	deps := map[string]httpapi.Pinger{}
	if s.DB != nil && s.DB.Pool != nil {
		deps["postgres"] = s.DB.Pool
	}
	if s.Redis != nil {
		deps["redis"] = httpapi.PingFunc(func(ctx context.Context) error {
			return s.Redis.Ping(ctx).Err()
		})
	}
	return deps
}
