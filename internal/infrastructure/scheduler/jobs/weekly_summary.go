package jobs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/G2-Spool/spool-progress-service/internal/application/eventhandler"
	"github.com/G2-Spool/spool-progress-service/internal/domain/analytics"
	"github.com/G2-Spool/spool-progress-service/internal/domain/notification"
	"github.com/G2-Spool/spool-progress-service/internal/domain/progress"
	"github.com/G2-Spool/spool-progress-service/internal/domain/shared"
	"github.com/G2-Spool/spool-progress-service/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// WEEKLY SUMMARY JOB
// ══════════════════════════════════════════════════════════════════════════════

// WeeklySummaryJob sends each active student a recap of last week's
// progress on Monday mornings. It reads the weekly aggregation record the
// nightly sweep has already computed.
type WeeklySummaryJob struct {
	progressRepo  progress.Repository
	analyticsRepo analytics.Repository
	notifier      *eventhandler.Notifier
	log           *logger.Logger
	batchSize     int
}

// NewWeeklySummaryJob creates the weekly summary job.
func NewWeeklySummaryJob(
	progressRepo progress.Repository,
	analyticsRepo analytics.Repository,
	notifier *eventhandler.Notifier,
	batchSize int,
	log *logger.Logger,
) *WeeklySummaryJob {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &WeeklySummaryJob{
		progressRepo:  progressRepo,
		analyticsRepo: analyticsRepo,
		notifier:      notifier,
		log:           log,
		batchSize:     batchSize,
	}
}

// Name returns the unique job name.
func (j *WeeklySummaryJob) Name() string {
	return "weekly_summary"
}

// Description returns a human-readable description.
func (j *WeeklySummaryJob) Description() string {
	return "Sends last week's progress recap to active students"
}

// Run pages through students active last week and sends each a recap.
func (j *WeeklySummaryJob) Run(ctx context.Context) error {
	now := time.Now().UTC()
	// Any instant inside last week resolves to last week's bucket.
	lastWeek := now.AddDate(0, 0, -7)
	weekStart, _ := analytics.ResolvePeriod(analytics.PeriodWeekly, lastWeek)

	var sent, skipped int
	since := now.AddDate(0, 0, -7)

	for offset := 0; ; offset += j.batchSize {
		ids, err := j.progressRepo.ListActiveStudentIDs(ctx, since, offset, j.batchSize)
		if err != nil {
			return fmt.Errorf("weekly_summary: list students: %w", err)
		}
		if len(ids) == 0 {
			break
		}

		for _, studentID := range ids {
			if err := ctx.Err(); err != nil {
				return err
			}

			if j.sendSummary(ctx, studentID, weekStart) {
				sent++
			} else {
				skipped++
			}
		}

		if len(ids) < j.batchSize {
			break
		}
	}

	j.log.Info("weekly summaries sent",
		logger.Int("sent", sent),
		logger.Int("skipped", skipped),
	)

	return nil
}

// sendSummary delivers one student's recap. Students without a weekly
// record (or with an empty week) are skipped.
func (j *WeeklySummaryJob) sendSummary(ctx context.Context, studentID string, weekStart time.Time) bool {
	rec, err := j.analyticsRepo.Get(ctx, studentID, analytics.PeriodWeekly, weekStart)
	if err != nil {
		if !errors.Is(err, shared.ErrAggregationNotFound) {
			j.log.Warn("weekly record lookup failed",
				logger.String("student_id", studentID),
				logger.Err(err),
			)
		}
		return false
	}
	if rec.ConceptsStarted == 0 && rec.ConceptsCompleted == 0 && rec.ConceptsMastered == 0 {
		return false
	}

	body := fmt.Sprintf(
		"Last week you completed %d and mastered %d concepts, earning %d points over %.1f hours of study.",
		rec.ConceptsCompleted, rec.ConceptsMastered, rec.PointsEarned, rec.TimeSpentHours(),
	)

	j.notifier.Deliver(ctx, studentID, notification.TopicWeeklySummary,
		"Your week in review",
		body,
		map[string]string{
			"week_start":         weekStart.Format("2006-01-02"),
			"concepts_completed": strconv.Itoa(rec.ConceptsCompleted),
			"concepts_mastered":  strconv.Itoa(rec.ConceptsMastered),
			"points_earned":      strconv.Itoa(rec.PointsEarned),
		},
	)
	return true
}
