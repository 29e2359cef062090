package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	"github.com/schoolpoints/backend/docs"
	"github.com/schoolpoints/backend/internal/audit"
	"github.com/schoolpoints/backend/internal/config"
	"github.com/schoolpoints/backend/internal/database"
	"github.com/schoolpoints/backend/internal/handlers"
	"github.com/schoolpoints/backend/internal/logger"
	mW "github.com/schoolpoints/backend/internal/middleware"
	"github.com/schoolpoints/backend/internal/services"
	"github.com/schoolpoints/backend/internal/store"
	"github.com/schoolpoints/backend/internal/wal"
)

// @title School Points Ledger API
// @version 1.0
// @description Point-of-sale balance ledger for a school points economy
// @host localhost:3000
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	envErr := config.Init(".env")
	cfg := config.Load()

	zapLogger, err := logger.New(cfg.Server.Mode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	if envErr != nil {
		zapLogger.Info("Config file not found, using environment and defaults", zap.Error(envErr))
	}

	docs.SwaggerInfo.Host = "localhost:" + cfg.Server.Port

	accounts, err := openStore(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("[STORE] failed to open account store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer func() {
		if err := accounts.Close(); err != nil {
			zapLogger.Error("[STORE] failed to close account store", zap.Error(err))
		}
	}()

	redisClient := database.InitRedis(cfg.Redis, zapLogger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	ledgerService := services.NewLedgerService(accounts, audit.NewZapAuditLogger(zapLogger), zapLogger)
	idempotencyCache := services.NewIdempotencyCache(redisClient, cfg.Idempotency.TTL,
		services.WithPendingTTL(cfg.Idempotency.PendingTTL))
	sellerAuth := services.NewSellerAuthService(cfg.Auth, zapLogger)
	accountHandler := handlers.NewAccountHandler(ledgerService, idempotencyCache, zapLogger)

	if cfg.SeedDemo {
		created, err := ledgerService.EnsureDemoAccount(context.Background())
		if err != nil {
			zapLogger.Fatal("[STORE] failed to seed demo account", zap.Error(err))
		}
		if created {
			zapLogger.Info("[STORE] demo account created", zap.String("scan_code", services.DemoAccount.ScanCode))
		}
	}

	if !sellerAuth.Enabled() {
		zapLogger.Warn("[AUTH] no seller password configured, API is open")
	} else if cfg.Auth.JWTSecret == "" {
		zapLogger.Fatal("[AUTH] JWT_SECRET_KEY is required when a seller password is set")
	}

	r := chi.NewRouter()

	r.Use(mW.SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mW.RequestLogger(zapLogger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", handlers.IdempotencyKeyHeader},
		ExposedHeaders: []string{handlers.ReplayedHeader},
		MaxAge:         86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api", func(r chi.Router) {
		r.Post("/seller/session", sellerAuth.CreateSession)

		r.Group(func(r chi.Router) {
			r.Use(mW.SellerGate(sellerAuth, zapLogger))
			accountHandler.Routes(r)
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		zapLogger.Info("Server starting", zap.String("addr", server.Addr), zap.String("store", cfg.Store.Driver))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server stopped")
}

// openStore builds the account store selected by STORE_DRIVER.
func openStore(cfg *config.Config, zapLogger *zap.Logger) (store.AccountStore, error) {
	switch cfg.Store.Driver {
	case "memory":
		if cfg.Store.WALPath == "" {
			zapLogger.Warn("[STORE] memory store without write-ahead log, balances are lost on restart")
			return store.NewMemoryStore()
		}
		w, err := wal.Open(cfg.Store.WALPath)
		if err != nil {
			return nil, fmt.Errorf("open write-ahead log: %w", err)
		}
		start := time.Now()
		s, err := store.NewMemoryStore(store.WithRecorder(w))
		if err != nil {
			w.Close()
			return nil, err
		}
		zapLogger.Info("[STORE] memory store replayed", zap.String("wal", cfg.Store.WALPath), zap.Duration("cost", time.Since(start)))
		return s, nil

	case "postgres":
		db, err := database.InitDB(cfg.Database, zapLogger)
		if err != nil {
			return nil, err
		}
		s := store.NewPostgresStore(db)
		if err := s.EnsureSchema(context.Background()); err != nil {
			db.Close()
			return nil, err
		}
		return s, nil

	case "sqlite":
		db, err := database.InitSQLite(cfg.SQLite)
		if err != nil {
			return nil, err
		}
		s, err := store.NewSQLiteStore(db)
		if err != nil {
			return nil, err
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
