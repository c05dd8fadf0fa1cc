package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/farmacia-pos-api/internal/application/stock"
	"github.com/jhoicas/farmacia-pos-api/internal/bootstrap"
	httpRouter "github.com/jhoicas/farmacia-pos-api/internal/interfaces/http"
	"github.com/jhoicas/farmacia-pos-api/pkg/config"
	"github.com/jhoicas/farmacia-pos-api/pkg/logger"
)

const swaggerFile = "./docs/swagger.json"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: "api",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.App.StoreDriver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	clock := stock.SystemClock{}
	backend, err := bootstrap.Open(ctx, cfg, clock, log.Component("store"))
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar almacenamiento")
	}
	defer backend.Close()

	stockLog := log.Component("stock")
	ledgerOpts := []stock.BatchLedgerOption{
		stock.WithExpiringDays(cfg.Stock.ExpiringDays),
		stock.WithLogger(stockLog),
	}
	if backend.Cache != nil {
		ledgerOpts = append(ledgerOpts, stock.WithExpiryCache(backend.Cache, cfg.Stock.ExpiryCacheTTL))
	}
	batches := stock.NewBatchLedger(backend.Repos, clock, ledgerOpts...)
	movements := stock.NewMovementLedger(backend.Repos.Movements, clock)
	stockSvc := stock.NewStockService(backend.Tx, backend.Repos, batches, movements, clock, stockLog)
	transferUC := stock.NewTransferUseCase(backend.Tx, backend.Repos, stockSvc, backend.Refs, clock, stockLog)
	inventoryUC := stock.NewInventoryUseCase(backend.Tx, backend.Repos, stockSvc, backend.Refs, clock, stockLog)
	replenishmentUC := stock.NewReplenishmentUseCase(backend.Repos)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "Farmacia POS · Inventario",
		}))
	}

	health := make(map[string]httpRouter.HealthCheck, len(backend.Health))
	for name, check := range backend.Health {
		health[name] = check
	}
	httpLog := log.Component("http")
	retries := cfg.Stock.RetryAttempts
	httpRouter.Router(app, httpRouter.RouterDeps{
		Stock:     httpRouter.NewStockHandler(stockSvc, batches, movements, cfg.Stock.DefaultCurrency, retries, httpLog),
		Transfers: httpRouter.NewTransferHandler(transferUC, retries, httpLog),
		Inventory: httpRouter.NewInventoryHandler(inventoryUC, replenishmentUC, stockSvc, retries, httpLog),
		JWTSecret: cfg.JWT.Secret,
		RateLimit: cfg.HTTP.RateLimit,
		Health:    health,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
