package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chatbridge/chatbridge/internal/bridge/api"
	"github.com/chatbridge/chatbridge/internal/bridge/session"
	"github.com/chatbridge/chatbridge/internal/common/config"
	"github.com/chatbridge/chatbridge/internal/common/logger"
	"github.com/chatbridge/chatbridge/internal/engine"
	"github.com/chatbridge/chatbridge/internal/events/bus"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	log, err := logger.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetDefault(log)

	log.Info("Starting chatbridge service...")

	// 3. Connect to NATS event bus (optional mirror)
	var eventBus bus.EventBus
	if cfg.NATS.Enabled {
		natsBus, err := bus.NewNATSEventBus(cfg.NATS, log)
		if err != nil {
			log.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer natsBus.Close()
		eventBus = natsBus
		log.Info("Connected to NATS event bus", zap.String("url", cfg.NATS.URL))
	}

	// 4. Initialize the session manager with the engine factory.
	// TODO: make the engine selectable once a second factory lands.
	mgr := session.NewManager(engine.Echo(log), eventBus, log)

	// 5. Setup HTTP server with Gin
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	// 6. Register API routes
	v1 := router.Group("/api/v1")
	api.SetupRoutes(v1, mgr, log)

	// Health check endpoint at root level
	handler := api.NewHandler(mgr, log)
	router.GET("/health", handler.HealthCheck)

	// 7. Create HTTP server. WriteTimeout stays zero by default so SSE
	// streams are not cut off.
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	// 8. Start server in goroutine
	go func() {
		log.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// 9. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down chatbridge service...")

	// 10. Graceful shutdown: abort live sessions, then drain the server
	mgr.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	log.Info("chatbridge service stopped")
}
