package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"slotbook/config"
	"slotbook/services/reconcile"
	"slotbook/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Sweeper runs one stale booking sweep.
type Sweeper interface {
	Sweep(ctx context.Context) (reconcile.SweepReport, error)
}

// SweepWorker owns the asynq scheduler that enqueues the sweep and the server that runs it.
type SweepWorker struct {
	scheduler *asynq.Scheduler
	server    *asynq.Server
	logger    *zap.Logger
}

func redisOpts(cfg config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisQueueDB,
	}
}

// InitSweepWorker registers the sweep on cfg.SweepCron and starts both halves in the background.
func InitSweepWorker(cfg config.Config, sweeper Sweeper, logger *zap.Logger) (*SweepWorker, error) {
	loc, err := time.LoadLocation(cfg.SweepTimezone)
	if err != nil {
		return nil, fmt.Errorf("sweep timezone: %w", err)
	}

	scheduler := asynq.NewScheduler(redisOpts(cfg), &asynq.SchedulerOpts{Location: loc})
	task, opts, err := tasks.NewSweepTask("schedule", cfg.SweepStaleAfter)
	if err != nil {
		return nil, err
	}
	entryID, err := scheduler.Register(cfg.SweepCron, task, opts...)
	if err != nil {
		return nil, fmt.Errorf("register sweep on %q: %w", cfg.SweepCron, err)
	}

	srv := asynq.NewServer(
		redisOpts(cfg),
		asynq.Config{
			Concurrency: 1,
			Queues: map[string]int{
				"default": 1,
			},
			Logger: newAsynqLogger(logger),
		},
	)
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeBookingSweep, handleSweepTask(sweeper, logger))

	w := &SweepWorker{scheduler: scheduler, server: srv, logger: logger}
	go w.run(mux)

	logger.Info("sweep scheduled",
		zap.String("entryId", entryID),
		zap.String("cron", cfg.SweepCron),
		zap.String("timezone", loc.String()),
	)
	return w, nil
}

func (w *SweepWorker) run(mux *asynq.ServeMux) {
	const maxAttempts = 5

	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err := w.server.Start(mux); err != nil {
			w.logger.Warn("failed to start sweep worker", zap.Int("attempt", attempts), zap.Error(err))
			if attempts == maxAttempts {
				w.logger.Error("sweep worker not started; stale bookings will only be released on demand")
				return
			}
			time.Sleep(time.Duration(attempts*2) * time.Second)
			continue
		}
		break
	}
	if err := w.scheduler.Start(); err != nil {
		w.logger.Error("failed to start sweep scheduler", zap.Error(err))
	}
}

// Shutdown stops scheduling new sweeps and waits for a running one to finish.
func (w *SweepWorker) Shutdown() {
	w.scheduler.Shutdown()
	w.server.Shutdown()
}

func handleSweepTask(sweeper Sweeper, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p tasks.SweepPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("invalid sweep payload", zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}

		report, err := sweeper.Sweep(ctx)
		if err != nil {
			logger.Error("sweep failed", zap.String("trigger", p.Trigger), zap.Error(err))
			return err
		}
		logger.Debug("sweep task done", zap.String("trigger", p.Trigger), zap.Int("swept", report.Swept))
		return nil
	}
}

// asynqLogger routes asynq's internal logging through zap.
type asynqLogger struct {
	s *zap.SugaredLogger
}

func newAsynqLogger(l *zap.Logger) asynq.Logger {
	return &asynqLogger{s: l.Named("asynq").Sugar()}
}

func (l *asynqLogger) Debug(args ...interface{}) { l.s.Debug(args...) }
func (l *asynqLogger) Info(args ...interface{})  { l.s.Info(args...) }
func (l *asynqLogger) Warn(args ...interface{})  { l.s.Warn(args...) }
func (l *asynqLogger) Error(args ...interface{}) { l.s.Error(args...) }
func (l *asynqLogger) Fatal(args ...interface{}) { l.s.Fatal(args...) }
