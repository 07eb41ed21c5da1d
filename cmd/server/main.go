package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"capsule-machine/internal/repository"
	"capsule-machine/internal/selector"
	"capsule-machine/internal/service"
	"capsule-machine/pkg/auth"
	"capsule-machine/pkg/config"
	"capsule-machine/pkg/database"
	"capsule-machine/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	// Wire the store backend
	var (
		ledgerRepo     repository.LedgerRepository
		codeRepo       repository.CodeRepository
		catalogRepo    repository.CatalogRepository
		weightRepo     repository.WeightRepository
		collectionRepo repository.CollectionRepository
		uow            repository.UnitOfWork
	)

	switch cfg.Storage.Driver {
	case "mongo":
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Mongo.ConnectTimeout)
		mongoDB, err := database.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		cancel()
		if err != nil {
			zlog.Fatal("failed to connect to MongoDB", zap.Error(err))
		}
		defer func() {
			if err := mongoDB.Disconnect(context.Background()); err != nil {
				zlog.Error("error disconnecting from MongoDB", zap.Error(err))
			}
		}()
		zlog.Info("connected to MongoDB", zap.String("database", cfg.Mongo.Database))

		ledgerRepo = repository.NewLedgerRepository(mongoDB.Database)
		codeRepo = repository.NewCodeRepository(mongoDB.Database)
		catalogRepo = repository.NewCatalogRepository(mongoDB.Database)
		weightRepo = repository.NewWeightRepository(mongoDB.Database)
		collectionRepo = repository.NewCollectionRepository(mongoDB.Database)
		uow = database.NewUnitOfWork(mongoDB.Client)

	case "memory":
		mem := repository.NewMemory()
		ledgerRepo, codeRepo, catalogRepo, weightRepo, collectionRepo, uow = mem, mem, mem, mem, mem, mem
		zlog.Info("using in-memory storage")
	}

	// Seed default category weights on first start
	if err := weightRepo.SeedDefaults(context.Background()); err != nil {
		zlog.Fatal("failed to seed category weights", zap.Error(err))
	}

	// Initialize services
	sel := selector.New(weightRepo, catalogRepo)
	drawSvc := service.NewDrawService(ledgerRepo, collectionRepo, catalogRepo, sel, uow, zlog)
	redemptionSvc := service.NewRedemptionService(codeRepo, ledgerRepo, uow, zlog)
	catalogSvc := service.NewCatalogService(catalogRepo, weightRepo, zlog)
	authMgr := auth.NewManager(cfg.Admin.JWTSecret, cfg.Admin.TokenTTL)

	// Setup Gin router
	router := setupRouter(cfg, drawSvc, redemptionSvc, catalogSvc, authMgr, zlog)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		zlog.Info("server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("shutting down server")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Fatal("server forced to shutdown", zap.Error(err))
	}

	zlog.Info("server exited")
}
