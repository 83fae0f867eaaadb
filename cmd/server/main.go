package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/eternisai/meta-optimizer/internal/completion"
	"github.com/eternisai/meta-optimizer/internal/config"
	apierrors "github.com/eternisai/meta-optimizer/internal/errors"
	"github.com/eternisai/meta-optimizer/internal/logger"
	"github.com/eternisai/meta-optimizer/internal/meta_generation"
	"github.com/eternisai/meta-optimizer/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.New(logger.FromConfig(cfg.LogLevel, cfg.LogFormat))

	appLogger.Info("setting gin mode", slog.String("mode", cfg.GinMode))
	gin.SetMode(cfg.GinMode)

	router, err := newRouter(cfg, appLogger, metrics.New())
	if err != nil {
		appLogger.Error("failed to build router", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           corsHandler(cfg.CORSAllowedOrigins).Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("meta optimizer listening",
			slog.String("addr", srv.Addr),
			slog.String("model", cfg.Generation.Model),
			slog.String("base_url", cfg.Generation.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ServerShutdownTimeoutSeconds)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("server forced to shutdown", slog.String("error", err.Error()))
		os.Exit(1)
	}

	appLogger.Info("server exited")
}

// newRouter wires the completion client, the generation service and all routes.
func newRouter(cfg *config.Config, log *logger.Logger, m *metrics.Metrics) (*gin.Engine, error) {
	client := completion.NewClient(cfg.Generation, cfg.OpenAIAPIKey, log)
	requester := meta_generation.NewRequester(client, cfg.Generation.RateLimit, m, log)
	service := meta_generation.NewService(requester, m, log)
	handler := meta_generation.NewHandler(service, log)

	tmpl, err := meta_generation.Templates()
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("panic recovered", slog.Any("panic", recovered), slog.String("path", c.Request.URL.Path))
		apierrors.AbortWithInternal(c, "internal server error", nil)
	}))
	router.Use(logger.RequestLoggingMiddleware(log))
	router.Use(m.Middleware())
	router.SetHTMLTemplate(tmpl)

	handler.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	router.NoRoute(func(c *gin.Context) {
		apierrors.AbortWithNotFound(c, "route not found", map[string]interface{}{
			"path": c.Request.URL.Path,
		})
	})

	return router, nil
}

func corsHandler(allowedOrigins string) *cors.Cors {
	origins := strings.Split(allowedOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept", logger.RequestIDHeader},
		ExposedHeaders: []string{logger.RequestIDHeader},
	})
}
