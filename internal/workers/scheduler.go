package workers

import (
	"context"
	"fmt"
	"os"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/jhoicas/farmacia-pos-api/pkg/config"
)

// RedisOpt conexión asynq a partir de la configuración de Redis.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
}

// NewServer servidor asynq que atiende las colas de alertas.
func NewServer(cfg config.Config, log zerolog.Logger) *asynq.Server {
	return asynq.NewServer(RedisOpt(cfg.Redis), asynq.Config{
		Concurrency: cfg.Worker.Concurrency,
		Queues:      map[string]int{"alerts": 1},
		Logger:      NewAsynqLogger(log),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, t *asynq.Task, err error) {
			log.Error().Err(err).Str("type", t.Type()).Bytes("payload", t.Payload()).Msg("tarea fallida")
		}),
	})
}

// NewScheduler programa ambas revisiones de alertas para todas las tiendas con la expresión cron dada.
func NewScheduler(cfg config.Config, log zerolog.Logger) (*asynq.Scheduler, error) {
	s := asynq.NewScheduler(RedisOpt(cfg.Redis), &asynq.SchedulerOpts{Logger: NewAsynqLogger(log)})
	for _, newTask := range []func(string) (*asynq.Task, error){NewExpiryAlertTask, NewLowStockAlertTask} {
		task, err := newTask("")
		if err != nil {
			return nil, err
		}
		id, err := s.Register(cfg.Worker.AlertCron, task)
		if err != nil {
			return nil, fmt.Errorf("programar %s con %q: %w", task.Type(), cfg.Worker.AlertCron, err)
		}
		log.Info().Str("type", task.Type()).Str("entry_id", id).Str("cron", cfg.Worker.AlertCron).Msg("tarea programada")
	}
	return s, nil
}

// asynqLogger adapta zerolog a la interfaz asynq.Logger.
type asynqLogger struct {
	log zerolog.Logger
}

// NewAsynqLogger logger de asynq con component=asynq.
func NewAsynqLogger(log zerolog.Logger) asynq.Logger {
	return &asynqLogger{log: log.With().Str("component", "asynq").Logger()}
}

func (l *asynqLogger) Debug(args ...interface{}) { l.log.Debug().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Info(args ...interface{})  { l.log.Info().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Warn(args ...interface{})  { l.log.Warn().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Error(args ...interface{}) { l.log.Error().Msg(fmt.Sprint(args...)) }

func (l *asynqLogger) Fatal(args ...interface{}) {
	l.log.Error().Msg(fmt.Sprint(args...))
	os.Exit(1)
}
