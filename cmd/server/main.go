// Package main is the entry point for the gestock API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"gestock/internal/config"
	"gestock/internal/domain/article"
	"gestock/internal/domain/auth"
	"gestock/internal/domain/facture"
	"gestock/internal/domain/precommande"
	"gestock/internal/domain/stock"
	"gestock/internal/infrastructure/cache"
	v1 "gestock/internal/infrastructure/http/v1"
	"gestock/internal/infrastructure/http/v1/handlers"
	"gestock/internal/infrastructure/storage/postgres"
	"gestock/internal/infrastructure/storage/postgres/catalog_repo"
	"gestock/internal/infrastructure/storage/postgres/facture_repo"
	"gestock/internal/infrastructure/storage/postgres/precommande_repo"
	"gestock/internal/infrastructure/storage/postgres/stock_repo"
	"gestock/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.App.Env == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Infow("starting gestock server", "env", cfg.App.Env)

	poolCfg := postgres.DefaultPoolConfig(cfg.Database.DSN())
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns
	poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)
	events := postgres.NewOutboxPublisher(txManager)
	auditStore, err := postgres.NewAuditStore(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit store", "error", err)
	}

	stockRepo := stock_repo.NewStockRepo(txManager)
	precommandeRepo := precommande_repo.NewPrecommandeRepo(txManager)
	factureRepo := facture_repo.NewFactureRepo(txManager)
	articleRepo := catalog_repo.NewArticleRepo(txManager)

	statusCache := cache.NewStatusCache(cache.NewPostgresStatusLoader(txManager))

	resolver := stock.NewResolver(stockRepo)
	stockService := stock.NewService(stockRepo, resolver, txManager, events)
	precommandeService := precommande.NewService(precommandeRepo, resolver, txManager, events, auditStore)
	factureService := facture.NewService(factureRepo, statusCache, resolver, txManager, events, auditStore)
	articleService := article.NewService(articleRepo, txManager)

	jwtService := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	router := v1.NewRouter(v1.RouterConfig{
		Log:         log,
		JWTService:  jwtService,
		Health:      handlers.NewHealthHandler(pool),
		Article:     handlers.NewArticleHandler(articleService),
		Stock:       handlers.NewStockHandler(stockService),
		Precommande: handlers.NewPrecommandeHandler(precommandeService),
		Facture:     handlers.NewFactureHandler(factureService),
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Infow("server starting", "port", cfg.HTTP.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
