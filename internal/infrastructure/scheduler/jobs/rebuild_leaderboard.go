package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/G2-Spool/spool-progress-service/internal/application/query"
	"github.com/G2-Spool/spool-progress-service/internal/domain/gamification"
	"github.com/G2-Spool/spool-progress-service/internal/infrastructure/persistence/redis"
	"github.com/G2-Spool/spool-progress-service/pkg/logger"
	"github.com/G2-Spool/spool-progress-service/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD LEADERBOARD JOB
// ══════════════════════════════════════════════════════════════════════════════

// boardSize is how many entries each prebuilt board holds. Read requests
// are capped below this, so the cache always satisfies them.
const boardSize = 100

// RebuildLeaderboardJob precomputes the leaderboards into Redis so reads
// never aggregate point history on the hot path.
type RebuildLeaderboardJob struct {
	pointsRepo gamification.PointsRepository
	streakRepo gamification.StreakRepository
	boards     *redis.LeaderboardCache
	ttl        time.Duration
	log        *logger.Logger
}

// NewRebuildLeaderboardJob creates the leaderboard rebuild job. The ttl
// should comfortably exceed the rebuild interval.
func NewRebuildLeaderboardJob(
	pointsRepo gamification.PointsRepository,
	streakRepo gamification.StreakRepository,
	boards *redis.LeaderboardCache,
	ttl time.Duration,
	log *logger.Logger,
) *RebuildLeaderboardJob {
	return &RebuildLeaderboardJob{
		pointsRepo: pointsRepo,
		streakRepo: streakRepo,
		boards:     boards,
		ttl:        ttl,
		log:        log,
	}
}

// Name returns the unique job name.
func (j *RebuildLeaderboardJob) Name() string {
	return "rebuild_leaderboard"
}

// Description returns a human-readable description.
func (j *RebuildLeaderboardJob) Description() string {
	return "Precomputes points and streak leaderboards into Redis"
}

// Run rebuilds every board. Individual board failures do not stop the
// sweep; readers fall back to PostgreSQL on a missing board.
func (j *RebuildLeaderboardJob) Run(ctx context.Context) error {
	now := time.Now().UTC()
	var failed int

	if err := j.rebuildAllTime(ctx); err != nil {
		failed++
		j.log.Warn("all-time board rebuild failed", logger.Err(err))
	}

	windows := map[query.LeaderboardWindow]time.Time{
		query.WindowDaily:   timeutil.StartOfDay(now),
		query.WindowWeekly:  timeutil.StartOfWeek(now),
		query.WindowMonthly: timeutil.StartOfMonth(now),
	}
	for window, from := range windows {
		if err := j.rebuildWindowed(ctx, window, from, now); err != nil {
			failed++
			j.log.Warn("windowed board rebuild failed",
				logger.String("window", string(window)),
				logger.Err(err),
			)
		}
	}

	if err := j.rebuildStreaks(ctx); err != nil {
		failed++
		j.log.Warn("streak board rebuild failed", logger.Err(err))
	}

	if failed > 0 {
		return fmt.Errorf("rebuild_leaderboard: %d boards failed", failed)
	}
	return nil
}

func (j *RebuildLeaderboardJob) rebuildAllTime(ctx context.Context) error {
	states, err := j.pointsRepo.TopByTotalPoints(ctx, boardSize)
	if err != nil {
		return err
	}

	entries := make([]query.LeaderboardEntryDTO, 0, len(states))
	for i, s := range states {
		entries = append(entries, query.LeaderboardEntryDTO{
			Rank:      i + 1,
			StudentID: s.StudentID,
			Value:     s.TotalPoints,
			Level:     s.CurrentLevel,
		})
	}

	return j.boards.RebuildBoard(ctx,
		string(query.LeaderboardPoints), string(query.WindowAllTime), entries, j.ttl)
}

func (j *RebuildLeaderboardJob) rebuildWindowed(ctx context.Context, window query.LeaderboardWindow, from, now time.Time) error {
	// [from, tomorrow) so entries landing later today still count.
	to := timeutil.StartOfDay(now).AddDate(0, 0, 1)

	rows, err := j.pointsRepo.TopByHistorySum(ctx, from, to, boardSize)
	if err != nil {
		return err
	}

	entries := make([]query.LeaderboardEntryDTO, 0, len(rows))
	for i, row := range rows {
		entries = append(entries, query.LeaderboardEntryDTO{
			Rank:      i + 1,
			StudentID: row.StudentID,
			Value:     row.Value,
		})
	}

	return j.boards.RebuildBoard(ctx,
		string(query.LeaderboardPoints), string(window), entries, j.ttl)
}

func (j *RebuildLeaderboardJob) rebuildStreaks(ctx context.Context) error {
	states, err := j.streakRepo.TopByCurrentStreak(ctx, boardSize)
	if err != nil {
		return err
	}

	entries := make([]query.LeaderboardEntryDTO, 0, len(states))
	for i, s := range states {
		entries = append(entries, query.LeaderboardEntryDTO{
			Rank:      i + 1,
			StudentID: s.StudentID,
			Value:     s.CurrentStreak,
		})
	}

	return j.boards.RebuildBoard(ctx,
		string(query.LeaderboardStreak), string(query.WindowAllTime), entries, j.ttl)
}
