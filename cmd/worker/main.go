package main

import (
	"context"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/medisched/medisched/internal/config"
	"github.com/medisched/medisched/internal/domain/appointment"
	"github.com/medisched/medisched/internal/notifier"
	"github.com/medisched/medisched/internal/service"
	"github.com/medisched/medisched/pkg/database"
	"github.com/medisched/medisched/pkg/logger"
	"github.com/medisched/medisched/pkg/metrics"
)

// The worker runs the notification consumer plus the periodic maintenance
// jobs. It shares the domain packages with the api server but exposes no
// HTTP surface.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	zlog.Info("starting worker", zap.String("env", cfg.App.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		zlog.Fatal("connecting to database", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	collector := metrics.NewCollector("medisched_worker", prometheus.DefaultRegisterer)

	repo := appointment.NewGormRepository(db)
	queue := notifier.NewRedisQueue(rdb, cfg.Notifier.Queue, zlog, collector)
	maintenance := service.NewMaintenanceService(repo, queue, cfg.Jobs, zlog)

	consumer := notifier.NewConsumer(
		rdb,
		cfg.Notifier.Queue,
		notifier.NewLogMailer(zlog),
		zlog,
		collector,
		cfg.Notifier.MaxAttempts,
		cfg.Notifier.RetryBackoff,
		cfg.Notifier.PopTimeout,
	)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		consumer.Run(ctx)
	}()

	runJob(ctx, &wg, "statistics", cfg.Jobs.StatsInterval, zlog, func(jobCtx context.Context) error {
		stats, err := maintenance.Statistics(jobCtx)
		if err != nil {
			return err
		}
		zlog.Info("appointment statistics",
			zap.Int64("total", stats.Total),
			zap.Float64("cancellation_rate", stats.CancellationRate),
			zap.Float64("no_show_rate", stats.NoShowRate),
		)
		return nil
	})

	runJob(ctx, &wg, "reminders", cfg.Jobs.ReminderInterval, zlog, func(jobCtx context.Context) error {
		sent, err := maintenance.SendReminders(jobCtx)
		if err != nil {
			return err
		}
		if sent > 0 {
			zlog.Info("reminders enqueued", zap.Int("count", sent))
		}
		return nil
	})

	runJob(ctx, &wg, "cleanup", cfg.Jobs.CleanupInterval, zlog, func(jobCtx context.Context) error {
		archived, err := maintenance.Cleanup(jobCtx)
		if err != nil {
			return err
		}
		zlog.Info("cleanup complete", zap.Int64("archived", archived))
		return nil
	})

	runJob(ctx, &wg, "daily-report", cfg.Jobs.ReportInterval, zlog, func(jobCtx context.Context) error {
		report, err := maintenance.DailyReport(jobCtx, time.Now())
		if err != nil {
			return err
		}
		zlog.Info("daily report",
			zap.Time("date", report.Date),
			zap.Int64("new", report.New),
			zap.Int64("cancelled", report.Cancelled),
			zap.Int64("completed", report.Completed),
		)
		return nil
	})

	<-ctx.Done()
	zlog.Info("shutdown signal received, waiting for jobs to finish")
	wg.Wait()
	zlog.Info("worker stopped")
}

// runJob fires once at startup and then on every tick. Each run gets its own
// timeout so a stuck job cannot wedge the ticker.
func runJob(ctx context.Context, wg *sync.WaitGroup, name string, interval time.Duration, zlog *zap.Logger, fn func(context.Context) error) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		run := func() {
			jobCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			defer cancel()

			start := time.Now()
			if err := fn(jobCtx); err != nil {
				zlog.Error("job failed", zap.String("job", name), zap.Error(err))
				return
			}
			zlog.Debug("job finished", zap.String("job", name), zap.Duration("duration", time.Since(start)))
		}

		run()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run()
			}
		}
	}()
}
