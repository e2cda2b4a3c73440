package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/pantry-sync/internal/adapter/handler"
	"github.com/rl1809/pantry-sync/internal/app"
	"github.com/rl1809/pantry-sync/internal/config"
	"github.com/rl1809/pantry-sync/internal/core/domain"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	infra, err := app.NewInfrastructure(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize infrastructure: %v", err)
	}
	logger := infra.Logger()

	// Start cleanup worker pool
	infra.StartCleanupWorkers(ctx)

	synchronizer := infra.Synchronizer()
	identity := infra.Identity()

	unsubscribe := identity.Subscribe(func(event domain.AuthEvent) {
		logger.Info("auth event",
			zap.String("type", string(event.Type)),
			zap.String("user_id", event.Session.UserID),
		)
	})
	defer unsubscribe()

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	handler.RegisterInventoryServer(grpcServer, handler.NewGRPCHandler(synchronizer, identity))

	healthServer := health.NewServer()
	healthServer.SetServingStatus(handler.InventoryServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		logger.Fatal("failed to listen", zap.String("addr", cfg.GRPCAddr()), zap.Error(err))
	}

	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr()))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", zap.Error(err))
		}
	}()

	// Initialize HTTP server
	httpServer := handler.NewHTTPServer(handler.NewHTTPHandler(synchronizer, identity), identity, logger)

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr()))
		if err := httpServer.Start(cfg.HTTPAddr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")
	healthServer.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", zap.Error(err))
	}
	logger.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	// Close cleanup queue, wait for workers, close connections
	infra.Shutdown(shutdownCtx)
}
