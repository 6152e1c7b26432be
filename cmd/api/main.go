package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"pharma-sync/internal/core/cache"
	"pharma-sync/internal/core/config"
	"pharma-sync/internal/core/logger"
	"pharma-sync/internal/core/server"
	"pharma-sync/internal/features/orders/adapters"
	"pharma-sync/internal/features/orders/handler"
	"pharma-sync/internal/features/orders/service"

	"go.uber.org/zap"
)

// @title Pharma Sync API
// @version 1.0
// @description Order-status synchronization for the pharmacy delivery app: reconciled role views and status-changing actions.
// @contact.name API Support
// @contact.email support@pharmasync.dev
// @license.name MIT
// @host localhost:8080
// @BasePath /
func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Redis-backed role stores
	redisCache, err := cache.NewRedisAdapter(cfg.Redis.URL)
	if err != nil {
		l.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		l.Fatal("Redis Health Check Failed", zap.Error(err))
	}
	l.Info("Redis connection verified")

	// Initialize Backend Adapter and run Health Check
	backend := adapters.NewBackendAdapter(cfg.Backend)
	if err := backend.HealthCheck(ctx); err != nil {
		l.Fatal("Backend Health Check Failed", zap.Error(err))
	}
	l.Info("Backend connection verified")

	customerStore := adapters.NewCustomerOrderStore(redisCache, cfg.Sync.CustomerID)
	pharmacyStore := adapters.NewPharmacyOrderStore(redisCache)
	courierStore := adapters.NewCourierTaskStore(redisCache)

	// Initialize Services & Handler
	syncService := service.NewSyncService(backend, customerStore, pharmacyStore, courierStore)
	propagator := service.NewPropagator(customerStore, pharmacyStore, courierStore)
	actionService := service.NewActionService(backend, propagator, courierStore)
	orderHandler := handler.NewOrderHandler(syncService, actionService)

	// Background refresh of the role views
	poller := service.NewPoller(syncService, time.Duration(cfg.Sync.PollIntervalSeconds)*time.Second)
	go poller.Run(ctx)

	srv := server.New(cfg)

	// Register Routes
	srv.App.Get("/orders/customer", orderHandler.GetCustomerOrders)
	srv.App.Get("/orders/pharmacy", orderHandler.GetPharmacyOrders)
	srv.App.Get("/orders/courier", orderHandler.GetCourierTasks)
	srv.App.Post("/orders/:id/accept", orderHandler.AcceptOrder)
	srv.App.Post("/orders/:id/reject", orderHandler.RejectOrder)
	srv.App.Post("/orders/:id/assign", orderHandler.AssignTask)
	srv.App.Post("/orders/:id/pickup", orderHandler.PickupOrder)
	srv.App.Post("/orders/:id/deliver", orderHandler.DeliverOrder)
	srv.App.Post("/orders/:id/fail", orderHandler.FailOrder)
	srv.App.Delete("/orders/:id/task", orderHandler.DropTask)

	// Shut the server down when a termination signal arrives
	go func() {
		<-ctx.Done()
		l.Info("Shutdown signal received")
		srv.App.Shutdown()
	}()

	if err := srv.Run(); err != nil {
		l.Fatal("Server failed to start", zap.Error(err))
	}
	l.Info("Application stopped")
}
