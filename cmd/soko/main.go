package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sokoerp/sokoerp/internal/app"
	"github.com/sokoerp/sokoerp/internal/audit"
	"github.com/sokoerp/sokoerp/internal/inventory"
	"github.com/sokoerp/sokoerp/internal/ledger"
	"github.com/sokoerp/sokoerp/internal/masterdata/categories"
	"github.com/sokoerp/sokoerp/internal/masterdata/products"
	mdshared "github.com/sokoerp/sokoerp/internal/masterdata/shared"
	"github.com/sokoerp/sokoerp/internal/masterdata/warehouses"
	"github.com/sokoerp/sokoerp/internal/platform/cache"
	"github.com/sokoerp/sokoerp/internal/platform/db"
	"github.com/sokoerp/sokoerp/internal/rbac"
	"github.com/sokoerp/sokoerp/internal/sales"
	"github.com/sokoerp/sokoerp/internal/users"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// A missing Redis degrades masterdata reads to the database; it never
	// blocks startup.
	var mdCache *mdshared.Cache
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, running without cache", slog.Any("error", err))
	} else {
		mdCache = mdshared.NewCache(redisClient, cfg.CacheTTL)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	validate := validator.New()

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo)
	inventoryHandler := inventory.NewHandler(logger, inventoryService, validate)

	refs := inventory.NewStore(pool)

	productsRepo := products.NewRepository(pool)
	productsService := products.NewService(productsRepo, refs, mdCache)
	productsHandler := products.NewHandler(logger, productsService, validate)

	warehousesRepo := warehouses.NewRepository(pool)
	warehousesService := warehouses.NewService(warehousesRepo, refs, mdCache)
	warehousesHandler := warehouses.NewHandler(logger, warehousesService, validate)

	categoriesRepo := categories.NewRepository(pool)
	categoriesService := categories.NewService(categoriesRepo, mdCache)
	categoriesHandler := categories.NewHandler(logger, categoriesService, validate)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo)
	ledgerHandler := ledger.NewHandler(logger, ledgerService, validate)

	revenueAccount, err := ledgerService.GetAccountByName(ctx, cfg.RevenueAccount)
	if err != nil {
		logger.Error("resolve revenue account",
			slog.String("name", cfg.RevenueAccount), slog.Any("error", err))
		os.Exit(1)
	}

	salesRepo := sales.NewRepository(pool)
	salesService := sales.NewService(salesRepo, app.NewCatalog(productsService), revenueAccount.ID)
	salesHandler := sales.NewHandler(logger, salesService, validate)

	auditRepo := audit.NewRepository(pool)
	auditService := audit.NewService(auditRepo)
	auditHandler := audit.NewHandler(logger, auditService)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService, validate)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		ProductsHandler:   productsHandler,
		WarehousesHandler: warehousesHandler,
		CategoriesHandler: categoriesHandler,
		InventoryHandler:  inventoryHandler,
		SalesHandler:      salesHandler,
		LedgerHandler:     ledgerHandler,
		AuditHandler:      auditHandler,
		UsersHandler:      usersHandler,
		RBAC: rbac.Middleware{
			Directory: usersService,
			Logger:    logger,
			Header:    cfg.IdentityHeader,
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
