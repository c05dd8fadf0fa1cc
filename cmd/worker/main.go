package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/jhoicas/farmacia-pos-api/internal/application/stock"
	"github.com/jhoicas/farmacia-pos-api/internal/bootstrap"
	"github.com/jhoicas/farmacia-pos-api/internal/workers"
	"github.com/jhoicas/farmacia-pos-api/pkg/config"
	"github.com/jhoicas/farmacia-pos-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: "worker",
	})
	if !cfg.Redis.Enabled() {
		log.Fatal().Msg("el worker requiere REDIS_ADDR para la cola de tareas")
	}
	log.Info().
		Str("env", cfg.App.Env).
		Str("redis_addr", cfg.Redis.Addr).
		Str("cron", cfg.Worker.AlertCron).
		Msg("iniciando worker")

	ctx := context.Background()
	clock := stock.SystemClock{}
	backend, err := bootstrap.Open(ctx, cfg, clock, log.Component("store"))
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar almacenamiento")
	}
	defer backend.Close()

	batches := stock.NewBatchLedger(backend.Repos, clock,
		stock.WithExpiringDays(cfg.Stock.ExpiringDays),
		stock.WithLogger(log.Component("stock")),
	)
	processor := workers.NewAlertProcessor(backend.Repos, batches, log.Component("worker"))

	mux := asynq.NewServeMux()
	processor.Register(mux)

	srv := workers.NewServer(*cfg, log.Component("worker"))
	scheduler, err := workers.NewScheduler(*cfg, log.Component("scheduler"))
	if err != nil {
		log.Fatal().Err(err).Msg("programar alertas")
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	if err := srv.Start(mux); err != nil {
		log.Fatal().Err(err).Msg("iniciar servidor de tareas")
	}
	if err := scheduler.Start(); err != nil {
		srv.Shutdown()
		log.Fatal().Err(err).Msg("iniciar scheduler")
	}
	log.Info().Int("concurrency", cfg.Worker.Concurrency).Msg("worker iniciado")

	sig := <-shutdown
	log.Info().Str("signal", sig.String()).Msg("señal de apagado recibida")

	scheduler.Shutdown()
	srv.Shutdown()
	log.Info().Msg("worker detenido")
}
