// Package jobs contains the scheduled jobs: the nightly analytics sweep,
// leaderboard rebuilds, daily reminders, and the weekly summary.
package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/G2-Spool/spool-progress-service/internal/application/command"
	"github.com/G2-Spool/spool-progress-service/internal/domain/analytics"
	"github.com/G2-Spool/spool-progress-service/internal/domain/progress"
	"github.com/G2-Spool/spool-progress-service/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// NIGHTLY AGGREGATION JOB
// ══════════════════════════════════════════════════════════════════════════════

// NightlyAggregationJob recomputes daily, weekly, and monthly aggregation
// records for every recently active student. It runs after midnight UTC so
// the daily bucket for the previous day is complete.
type NightlyAggregationJob struct {
	progressRepo progress.Repository
	aggregate    *command.AggregateAnalyticsHandler
	log          *logger.Logger

	// ActiveWindow bounds which students get swept: anyone with an
	// attempt inside the window.
	activeWindow time.Duration
	batchSize    int

	lastStats atomic.Value // *AggregationStats
}

// AggregationStats contains statistics from an aggregation sweep.
type AggregationStats struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Students    int
	Records     int
	Failures    int
}

// NewNightlyAggregationJob creates the nightly aggregation job.
func NewNightlyAggregationJob(
	progressRepo progress.Repository,
	aggregate *command.AggregateAnalyticsHandler,
	batchSize int,
	log *logger.Logger,
) *NightlyAggregationJob {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &NightlyAggregationJob{
		progressRepo: progressRepo,
		aggregate:    aggregate,
		log:          log,
		activeWindow: 30 * 24 * time.Hour,
		batchSize:    batchSize,
	}
}

// Name returns the unique job name.
func (j *NightlyAggregationJob) Name() string {
	return "nightly_aggregation"
}

// Description returns a human-readable description.
func (j *NightlyAggregationJob) Description() string {
	return "Recomputes daily, weekly and monthly analytics for active students"
}

// Run sweeps active students in batches and recomputes their records.
// The anchor is yesterday, so the sweep finalizes the day that just ended
// and refreshes the week and month it belongs to.
func (j *NightlyAggregationJob) Run(ctx context.Context) error {
	stats := &AggregationStats{StartedAt: time.Now().UTC()}
	anchor := stats.StartedAt.AddDate(0, 0, -1)
	since := stats.StartedAt.Add(-j.activeWindow)

	periods := []analytics.PeriodKind{
		analytics.PeriodDaily,
		analytics.PeriodWeekly,
		analytics.PeriodMonthly,
	}

	for offset := 0; ; offset += j.batchSize {
		ids, err := j.progressRepo.ListActiveStudentIDs(ctx, since, offset, j.batchSize)
		if err != nil {
			return fmt.Errorf("nightly_aggregation: list students: %w", err)
		}
		if len(ids) == 0 {
			break
		}

		for _, studentID := range ids {
			if err := ctx.Err(); err != nil {
				return err
			}

			stats.Students++
			for _, period := range periods {
				_, err := j.aggregate.Handle(ctx, command.AggregateAnalyticsCommand{
					StudentID: studentID,
					Period:    period,
					Anchor:    anchor,
				})
				if err != nil {
					stats.Failures++
					j.log.Warn("aggregation failed",
						logger.String("student_id", studentID),
						logger.String("period", string(period)),
						logger.Err(err),
					)
					continue
				}
				stats.Records++
			}
		}

		if len(ids) < j.batchSize {
			break
		}
	}

	stats.CompletedAt = time.Now().UTC()
	j.lastStats.Store(stats)

	j.log.Info("nightly aggregation completed",
		logger.Int("students", stats.Students),
		logger.Int("records", stats.Records),
		logger.Int("failures", stats.Failures),
		logger.Duration("took", stats.CompletedAt.Sub(stats.StartedAt)),
	)

	return nil
}

// LastStats returns statistics from the most recent run, nil before the
// first run.
func (j *NightlyAggregationJob) LastStats() *AggregationStats {
	stats, _ := j.lastStats.Load().(*AggregationStats)
	return stats
}
