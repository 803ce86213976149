// Package main is the entry point for the background worker.
//
// The worker owns the periodic jobs: the nightly analytics aggregation
// sweep, leaderboard rebuilds into Redis, daily streak reminders and the
// Monday weekly summary fan-out. It shares the persistence and
// notification stack with the HTTP server but exposes no API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/G2-Spool/spool-progress-service/config"
	"github.com/G2-Spool/spool-progress-service/internal/application/command"
	"github.com/G2-Spool/spool-progress-service/internal/application/eventhandler"
	"github.com/G2-Spool/spool-progress-service/internal/infrastructure/persistence/postgres"
	"github.com/G2-Spool/spool-progress-service/internal/infrastructure/persistence/redis"
	"github.com/G2-Spool/spool-progress-service/internal/infrastructure/scheduler"
	"github.com/G2-Spool/spool-progress-service/internal/infrastructure/scheduler/jobs"
	"github.com/G2-Spool/spool-progress-service/internal/infrastructure/service"
	"github.com/G2-Spool/spool-progress-service/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if !cfg.Scheduler.Enabled {
		fmt.Fprintln(os.Stderr, "scheduler is disabled (SCHEDULER_ENABLED=false), nothing to do")
		return nil
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(logger.Options{
		Output: os.Stdout,
		Level:  logger.ParseLevel(cfg.Observability.LogLevel),
	})
	slogger := setupSlog(cfg)

	log.Info("starting spool-progress-service worker",
		logger.String("version", cfg.App.Version),
		logger.String("environment", string(cfg.App.Environment)),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. POSTGRESQL + MIGRATIONS
	// ─────────────────────────────────────────────────────────────────────────
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer dbConn.Close()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}

	// The worker migrates too so it can start before the API server.
	if err := postgres.NewMigrator(dbConn).Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	log.Info("database ready")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (required for the leaderboard rebuild job only)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		redisCache       *redis.Cache
		leaderboardCache *redis.LeaderboardCache
	)

	if !cfg.Redis.Disabled {
		redisCache, err = redis.NewCache(redisConfigFrom(cfg.Redis))
		if err != nil {
			log.Warn("redis unavailable, leaderboard rebuild disabled", logger.Err(err))
			redisCache = nil
		} else {
			defer func() { _ = redisCache.Close() }()
			leaderboardCache = redis.NewLeaderboardCache(redisCache)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REPOSITORIES + APPLICATION SERVICES
	// ─────────────────────────────────────────────────────────────────────────
	progressRepo := postgres.NewProgressRepository(dbConn)
	pointsRepo := postgres.NewPointsRepository(dbConn)
	streakRepo := postgres.NewStreakRepository(dbConn)
	badgeRepo := postgres.NewBadgeRepository(dbConn)
	analyticsRepo := postgres.NewAnalyticsRepository(dbConn)

	aggregate := command.NewAggregateAnalyticsHandler(
		progressRepo, pointsRepo, badgeRepo, analyticsRepo,
		cfg.Analytics.SecondsPerAttempt,
	)

	sender := service.NewSender(cfg.Notifications, log)
	notifier := eventhandler.NewNotifier(sender, cfg.Features, cfg.Notifications, cfg.App.Location, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. SCHEDULER + JOB REGISTRATION
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Logger:   slogger,
		Timezone: cfg.App.Location,
	})

	// Aggregation runs in UTC regardless of the display timezone.
	aggregationCron := scheduler.MustParseCronExpression(
		fmt.Sprintf("%d %d * * *", cfg.Scheduler.AggregationMinute, cfg.Scheduler.AggregationHour),
	)
	if err := sched.Register(
		jobs.NewNightlyAggregationJob(progressRepo, aggregate, cfg.Scheduler.AggregationBatchSize, log),
		aggregationCron,
	); err != nil {
		return fmt.Errorf("register aggregation job: %w", err)
	}

	reminderCron := scheduler.MustParseCronExpression(
		fmt.Sprintf("%d %d * * *", cfg.Scheduler.ReminderMinute, cfg.Scheduler.ReminderHour),
	)
	if err := sched.Register(
		jobs.NewDailyRemindersJob(progressRepo, streakRepo, notifier, cfg.App.Location, 0, log),
		reminderCron,
	); err != nil {
		return fmt.Errorf("register reminders job: %w", err)
	}

	// Weekly summaries go out on Monday mornings.
	weeklyCron := scheduler.MustParseCronExpression(
		fmt.Sprintf("0 %d * * 1", cfg.Scheduler.WeeklySummaryHour),
	)
	if err := sched.Register(
		jobs.NewWeeklySummaryJob(progressRepo, analyticsRepo, notifier, cfg.Scheduler.AggregationBatchSize, log),
		weeklyCron,
	); err != nil {
		return fmt.Errorf("register weekly summary job: %w", err)
	}

	if leaderboardCache != nil {
		if err := sched.Register(
			jobs.NewRebuildLeaderboardJob(pointsRepo, streakRepo, leaderboardCache, redis.TTLLeaderboardCache, log),
			scheduler.NewIntervalSchedule(cfg.Scheduler.RebuildLeaderboardInterval),
		); err != nil {
			return fmt.Errorf("register leaderboard job: %w", err)
		}
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	for _, job := range sched.ListJobs() {
		log.Info("job scheduled",
			logger.String("job", job.Name),
			logger.String("schedule", job.Schedule),
		)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	log.Info("received shutdown signal", logger.String("signal", sig.String()))

	if err := sched.Stop(); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}

	log.Info("shutdown completed")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupSlog builds the slog logger used by the scheduler.
func setupSlog(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}

// redisConfigFrom maps the application Redis settings onto the cache config.
func redisConfigFrom(cfg config.RedisConfig) redis.Config {
	out := redis.DefaultConfig()
	if cfg.Host != "" {
		out.Host = cfg.Host
	}
	if cfg.Port != 0 {
		out.Port = cfg.Port
	}
	out.Password = cfg.Password
	out.DB = cfg.DB
	if cfg.PoolSize > 0 {
		out.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		out.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.DialTimeout > 0 {
		out.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		out.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		out.WriteTimeout = cfg.WriteTimeout
	}
	return out
}
