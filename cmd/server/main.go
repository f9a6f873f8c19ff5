package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/YushiOMOTE/buddy/common/id"
	"github.com/YushiOMOTE/buddy/common/logger"
	"github.com/YushiOMOTE/buddy/common/otel"
	"github.com/YushiOMOTE/buddy/core/config"
	"github.com/YushiOMOTE/buddy/internal/completion"
	"github.com/YushiOMOTE/buddy/internal/http/middleware"
	httprouter "github.com/YushiOMOTE/buddy/internal/http/router"
	"github.com/YushiOMOTE/buddy/internal/prompt"
	"github.com/YushiOMOTE/buddy/internal/secrets"
	"github.com/YushiOMOTE/buddy/internal/service"
	"github.com/YushiOMOTE/buddy/internal/store"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "buddy starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(cfg.NodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	conversations, closeStore, err := store.Open(ctx, store.Config{
		Backend:     cfg.Store.Backend,
		DB:          cfg.Store.DB,
		RedisURL:    cfg.Store.RedisURL,
		RedisTTL:    cfg.Store.RedisTTL,
		DynamoTable: cfg.Store.DynamoTable,
		AWSRegion:   cfg.Store.AWSRegion,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to open conversation store", "error", err, "backend", cfg.Store.Backend)
		os.Exit(1)
	}
	defer closeStore()
	slog.InfoContext(ctx, "conversation store ready", "backend", cfg.Store.Backend)

	secretStore, err := secrets.New(ctx, secrets.Config{
		Backend:    cfg.Secrets.Backend,
		SecretName: cfg.Secrets.SecretName,
		Region:     cfg.Secrets.Region,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize secret store", "error", err, "backend", cfg.Secrets.Backend)
		os.Exit(1)
	}

	assembler, err := prompt.FromConfig(cfg.Prompt)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build prompt assembler", "error", err)
		os.Exit(1)
	}

	deliveries := service.NewDeliveryService(
		secretStore,
		service.NewLineCollaboratorFactory(service.LineCollaboratorConfig{
			APIBase:      cfg.Line.APIBase,
			ReplyTimeout: cfg.Line.ReplyTimeout,
			Completion: completion.Config{
				Provider: cfg.Completion.Provider,
				BaseURL:  cfg.Completion.BaseURL,
				Model:    cfg.Completion.Model,
			},
		}),
		conversations,
		service.NewTurnProcessor(assembler),
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           setupRouter(cfg, deliveries),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, deliveries service.DeliveryService) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, deliveries)

	return router
}

const banner = `
██████╗ ██╗   ██╗██████╗ ██████╗ ██╗   ██╗
██╔══██╗██║   ██║██╔══██╗██╔══██╗╚██╗ ██╔╝
██████╔╝██║   ██║██║  ██║██║  ██║ ╚████╔╝ 
██╔══██╗██║   ██║██║  ██║██║  ██║  ╚██╔╝  
██████╔╝╚██████╔╝██████╔╝██████╔╝   ██║   
╚═════╝  ╚═════╝ ╚═════╝ ╚═════╝    ╚═╝   
`
