package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sqlpanel/internal/config"
	"sqlpanel/internal/controller"
	"sqlpanel/internal/database"
	"sqlpanel/internal/logging"
	"sqlpanel/internal/middleware"
	"sqlpanel/internal/publisher"
	"sqlpanel/internal/render"
	"sqlpanel/internal/security"
	"sqlpanel/internal/service"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logging.Component("server")
	gin.SetMode(cfg.Server.Mode)
	middleware.InitMetrics()

	deps, err := buildDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.close(log)

	router, stopLimiter := newRouter(cfg, deps, log)
	defer stopLimiter()

	if cfg.Connector.HealthInterval > 0 {
		checker := database.NewHealthChecker(deps.connectors, cfg.Connector.HealthTimeout)
		go checker.Run(ctx, cfg.Connector.HealthInterval, func(*database.HealthSummary) {
			middleware.UpdateConnectionPoolMetrics(service.PoolSamples(deps.connectors.GetStats()))
		})
	}

	srv := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", srv.Addr).Str("version", Version).Msg("starting sqlpanel")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return err
	}
	log.Info().Msg("server exited")
	return nil
}

// newRouter assembles services, controllers and middleware. The returned
// func stops background work owned by the router.
func newRouter(cfg *config.Config, deps *dependencies, log zerolog.Logger) (*gin.Engine, func()) {
	validator := security.NewSQLValidator(cfg.Security.MaxStatementLength)
	queries := service.NewQueryService(deps.connectors, validator)

	var registry publisher.PanelRegistry
	if deps.panels != nil {
		registry = deps.panels
	}
	reports := service.NewReportService(queries, render.NewRenderer(), publisher.NewPublisher(deps.store, registry))

	timeout := cfg.Server.StatementTimeout
	routes := &controller.Routes{
		Health:     controller.NewHealthController(Version, deps.pingers(), deps.connectors),
		Connection: controller.NewConnectionController(queries, timeout),
		Query:      controller.NewQueryController(queries, timeout),
		Report:     controller.NewReportController(reports, deps.quota, timeout),
	}
	if deps.panels != nil {
		routes.Panel = controller.NewPanelController(deps.panels)
	}

	if cfg.Security.EnableAuth {
		jwtManager := security.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.JWTExpiration)
		routes.Identity = security.NewAuthMiddleware(jwtManager).RequireAuth()
	} else {
		log.Warn().Msg("authentication disabled; caller identity is taken from request headers")
		routes.Identity = security.TrustHeaders()
	}

	stop := func() {}
	if cfg.Security.EnableRateLimit {
		limiterCfg := middleware.DefaultRateLimiterConfig()
		if cfg.Security.RateLimitPerMinute > 0 {
			limiterCfg.RPM = cfg.Security.RateLimitPerMinute
		}
		if cfg.Security.RateLimitBurst > 0 {
			limiterCfg.Burst = cfg.Security.RateLimitBurst
		}
		limiter := middleware.NewRateLimiter(limiterCfg)
		routes.RateLimit = limiter.RateLimit()
		stop = limiter.Stop
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger(logging.Component("http")))
	router.Use(middleware.PrometheusMiddleware())
	routes.Register(router)

	return router, stop
}

// pingAll pings every enabled dependency with a shared deadline.
func pingAll(ctx context.Context, pingers map[string]controller.Pinger, timeout time.Duration) map[string]error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out := make(map[string]error, len(pingers))
	for name, p := range pingers {
		if p == nil {
			continue
		}
		out[name] = p.PingContext(ctx)
	}
	return out
}
