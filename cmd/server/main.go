// Package main is the entry point for the Spool Progress Service HTTP API.
//
// The server exposes the learning-progress, gamification and analytics
// endpoints, consumes learning events over HTTP and publishes domain events
// to the event bus for notification fan-out.
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
	"github.com/G2-Spool/spool-progress-service/internal/application/query"
	"github.com/G2-Spool/spool-progress-service/internal/domain/gamification"
	"github.com/G2-Spool/spool-progress-service/internal/domain/shared"
	"github.com/G2-Spool/spool-progress-service/internal/infrastructure/external/content"
	"github.com/G2-Spool/spool-progress-service/internal/infrastructure/messaging"
	"github.com/G2-Spool/spool-progress-service/internal/infrastructure/persistence/postgres"
	"github.com/G2-Spool/spool-progress-service/internal/infrastructure/persistence/redis"
	"github.com/G2-Spool/spool-progress-service/internal/infrastructure/scheduler/jobs"
	"github.com/G2-Spool/spool-progress-service/internal/infrastructure/service"
	httpapi "github.com/G2-Spool/spool-progress-service/internal/interface/http"
	"github.com/G2-Spool/spool-progress-service/internal/interface/http/handlers"
	"github.com/G2-Spool/spool-progress-service/pkg/logger"
)

// eventBus abstracts the in-memory and Redis-backed bus implementations.
type eventBus interface {
	shared.EventBus
	Close() error
}

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
	// .env is optional; real deployments inject environment variables.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(logger.Options{
		Output: os.Stdout,
		Level:  logger.ParseLevel(cfg.Observability.LogLevel),
	})
	slogger := setupSlog(cfg)

	log.Info("starting spool-progress-service",
		logger.String("version", cfg.App.Version),
		logger.String("environment", string(cfg.App.Environment)),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. POSTGRESQL
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to PostgreSQL...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer dbConn.Close()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. MIGRATIONS
	// ─────────────────────────────────────────────────────────────────────────
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS (optional: service degrades to uncached reads without it)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		redisCache       *redis.Cache
		leaderboardCache *redis.LeaderboardCache
		dashboardCache   *redis.DashboardCache
	)

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCache, err = redis.NewCache(redisConfigFrom(cfg.Redis))
		if err != nil {
			log.Warn("redis unavailable, caching disabled", logger.Err(err))
			redisCache = nil
		} else {
			defer func() { _ = redisCache.Close() }()
			leaderboardCache = redis.NewLeaderboardCache(redisCache)
			dashboardCache = redis.NewDashboardCache(redisCache, cfg.Analytics.DashboardCacheTTL)
			log.Info("redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. EXTERNAL CLIENTS
	// ─────────────────────────────────────────────────────────────────────────
	contentClient := content.NewClient(cfg.Content, redisCache, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. EVENT BUS + NOTIFICATION HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	localBusCfg := messaging.DefaultInMemoryEventBusConfig()
	localBusCfg.Logger = slogger

	var bus eventBus
	if redisCache != nil {
		bus, err = messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         redis.NewPubSub(redisCache),
			LocalBusConfig: localBusCfg,
			Logger:         slogger,
		})
		if err != nil {
			return fmt.Errorf("create redis event bus: %w", err)
		}
	} else {
		bus = messaging.NewInMemoryEventBus(localBusCfg)
	}
	defer func() { _ = bus.Close() }()

	sender := service.NewSender(cfg.Notifications, log)
	notifier := eventhandler.NewNotifier(sender, cfg.Features, cfg.Notifications, cfg.App.Location, log)

	// Notification fan-out goes through the dispatcher for retries and
	// dead-lettering instead of subscribing handlers to the bus directly.
	dispatcherCfg := messaging.DefaultDispatcherConfig(bus)
	dispatcherCfg.Logger = slogger
	dispatcher := messaging.NewDispatcher(dispatcherCfg)
	dispatcher.Use(messaging.RecoveryMiddleware(slogger))
	dispatcher.Use(messaging.LoggingMiddleware(slogger))

	subscriptions := []struct {
		eventType shared.EventType
		name      string
		handler   shared.EventHandler
	}{
		{shared.EventLevelUp, "notify_level_up", eventhandler.NewOnLevelUpHandler(notifier, log).Handle},
		{shared.EventBadgeEarned, "notify_badge_earned", eventhandler.NewOnBadgeEarnedHandler(notifier, log).Handle},
		{shared.EventStreakUpdated, "notify_streak_updated", eventhandler.NewOnStreakUpdatedHandler(notifier, log).Handle},
	}
	for _, sub := range subscriptions {
		if err := dispatcher.Register(sub.eventType, sub.name, sub.handler); err != nil {
			return fmt.Errorf("register %s: %w", sub.name, err)
		}
	}
	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("start dispatcher: %w", err)
	}
	defer func() { _ = dispatcher.Stop() }()

	// ─────────────────────────────────────────────────────────────────────────
	// 8. REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	progressRepo := postgres.NewProgressRepository(dbConn)
	pointsRepo := postgres.NewPointsRepository(dbConn)
	streakRepo := postgres.NewStreakRepository(dbConn)
	badgeRepo := postgres.NewBadgeRepository(dbConn)
	analyticsRepo := postgres.NewAnalyticsRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. DOMAIN SERVICES
	// ─────────────────────────────────────────────────────────────────────────
	calculator := gamification.NewPointsCalculator(pointsTableFrom(cfg.Gamification))
	catalog := gamification.DefaultCatalog(catalogRulesFrom(cfg.Gamification))
	evaluator := gamification.NewEvaluator(catalog)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. APPLICATION LAYER (CQRS)
	// ─────────────────────────────────────────────────────────────────────────
	awardPoints := command.NewAwardPointsHandler(dbConn, pointsRepo, calculator, cfg.Gamification.LevelScale)
	updateStreak := command.NewUpdateStreakHandler(dbConn, streakRepo)
	checkBadges := command.NewCheckBadgesHandler(evaluator, badgeRepo, awardPoints, log)
	processEvent := command.NewProcessLearningEventHandler(
		progressRepo, awardPoints, updateStreak, checkBadges,
		contentClient, bus, cfg.Features, log,
	)
	bulkUpdate := command.NewBulkUpdateHandler(processEvent)

	summary := query.NewGetProgressSummaryHandler(progressRepo)
	status := query.NewGetGamificationStatusHandler(pointsRepo, streakRepo, badgeRepo, catalog)
	pointHistory := query.NewGetPointHistoryHandler(pointsRepo)

	// Typed nil pointers must not leak into the nilable cache interfaces.
	var lbCache query.LeaderboardCache
	if leaderboardCache != nil {
		lbCache = leaderboardCache
	}
	var dashCache query.DashboardCache
	if dashboardCache != nil {
		dashCache = dashboardCache
	}

	leaderboard := query.NewGetLeaderboardHandler(pointsRepo, streakRepo, lbCache)
	dashboard := query.NewGetDashboardHandler(
		progressRepo, analyticsRepo, summary, status,
		dashCache, cfg.Analytics.VelocityWindowDays, log,
	)
	insights := query.NewGetInsightsHandler(progressRepo, analyticsRepo, cfg.Analytics.TrendMaxRecords)
	prediction := query.NewGetPredictionHandler(progressRepo, contentClient, cfg.Analytics.VelocityWindowDays)
	aggregations := query.NewGetAggregationsHandler(analyticsRepo)

	// ─────────────────────────────────────────────────────────────────────────
	// 11. HEALTH CHECKS
	// ─────────────────────────────────────────────────────────────────────────
	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	healthChecker.AddCheck("database", handlers.NewDatabaseCheck(dbConn))
	if redisCache != nil {
		healthChecker.AddCheck("cache", handlers.NewCacheCheck(redisCache))
	}
	healthChecker.AddCheck("content_api", handlers.NewExternalAPICheck(contentClient))

	// ─────────────────────────────────────────────────────────────────────────
	// 12. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	srvCfg := httpapi.DefaultConfig()
	srvCfg.Host = cfg.App.Host
	srvCfg.Port = cfg.App.Port
	srvCfg.EnableMetrics = cfg.Observability.MetricsEnabled

	server := httpapi.NewServer(srvCfg, httpapi.Dependencies{
		ProcessLearningEvent:  processEvent,
		BulkUpdate:            bulkUpdate,
		AwardPoints:           awardPoints,
		GetProgressSummary:    summary,
		GetGamificationStatus: status,
		GetPointHistory:       pointHistory,
		GetLeaderboard:        leaderboard,
		GetDashboard:          dashboard,
		GetInsights:           insights,
		GetPrediction:         prediction,
		GetAggregations:       aggregations,
		BadgeCatalog:          catalog,
		ReminderJob:           jobs.NewDailyRemindersJob(progressRepo, streakRepo, notifier, cfg.App.Location, 0, log),
		WeeklySummaryJob:      jobs.NewWeeklySummaryJob(progressRepo, analyticsRepo, notifier, cfg.Scheduler.AggregationBatchSize, log),
		Auth:                  cfg.Auth,
		Features:              cfg.Features,
		Logger:                log,
		HealthChecker:         healthChecker,
	})

	errCh := server.StartAsync()
	log.Info("http server listening", logger.String("address", srvCfg.Address()))

	// ─────────────────────────────────────────────────────────────────────────
	// 13. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	log.Info("shutdown completed")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupSlog builds the slog logger used by the scheduler and event bus.
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

// pointsTableFrom maps gamification settings onto the domain points table.
func pointsTableFrom(cfg config.GamificationConfig) gamification.PointsTable {
	table := gamification.DefaultPointsTable()
	if cfg.PointsConceptStarted > 0 {
		table.ConceptStarted = cfg.PointsConceptStarted
	}
	if cfg.PointsConceptCompleted > 0 {
		table.ConceptCompleted = cfg.PointsConceptCompleted
	}
	if cfg.PointsConceptMastered > 0 {
		table.ConceptMastered = cfg.PointsConceptMastered
	}
	if cfg.PointsDailyStreak > 0 {
		table.DailyStreak = cfg.PointsDailyStreak
	}
	if cfg.PointsWeeklyGoal > 0 {
		table.WeeklyGoal = cfg.PointsWeeklyGoal
	}
	if cfg.PerfectScoreBonus > 0 {
		table.PerfectScoreBonus = cfg.PerfectScoreBonus
	}
	if cfg.SpeedBonus > 0 {
		table.SpeedBonus = cfg.SpeedBonus
	}
	if cfg.SpeedBonusThreshold > 0 {
		table.SpeedBonusThreshold = cfg.SpeedBonusThreshold
	}
	return table
}

// catalogRulesFrom maps gamification settings onto the badge catalog rules.
func catalogRulesFrom(cfg config.GamificationConfig) gamification.CatalogRules {
	rules := gamification.DefaultCatalogRules()
	if cfg.QuickLearnerMasteries > 0 {
		rules.QuickLearnerMasteries = cfg.QuickLearnerMasteries
	}
	if cfg.ConsistencyStreakDays > 0 {
		rules.ConsistencyStreakDays = cfg.ConsistencyStreakDays
	}
	if cfg.SubjectMasterPercent > 0 {
		rules.SubjectMasterPercent = cfg.SubjectMasterPercent
	}
	return rules
}
