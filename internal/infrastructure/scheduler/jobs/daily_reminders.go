package jobs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/G2-Spool/spool-progress-service/internal/application/eventhandler"
	"github.com/G2-Spool/spool-progress-service/internal/domain/gamification"
	"github.com/G2-Spool/spool-progress-service/internal/domain/notification"
	"github.com/G2-Spool/spool-progress-service/internal/domain/progress"
	"github.com/G2-Spool/spool-progress-service/internal/domain/shared"
	"github.com/G2-Spool/spool-progress-service/pkg/logger"
	"github.com/G2-Spool/spool-progress-service/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAILY REMINDERS JOB
// ══════════════════════════════════════════════════════════════════════════════

// DailyRemindersJob nudges students who have been active recently but have
// not studied yet today. Students with a streak on the line get a streak
// warning instead of the generic reminder.
type DailyRemindersJob struct {
	progressRepo progress.Repository
	streakRepo   gamification.StreakRepository
	notifier     *eventhandler.Notifier
	location     *time.Location
	log          *logger.Logger

	// Only students active within the lookback window get reminded;
	// long-gone students are left alone.
	lookback time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewDailyRemindersJob creates the daily reminder job.
func NewDailyRemindersJob(
	progressRepo progress.Repository,
	streakRepo gamification.StreakRepository,
	notifier *eventhandler.Notifier,
	location *time.Location,
	lookback time.Duration,
	log *logger.Logger,
) *DailyRemindersJob {
	if location == nil {
		location = time.UTC
	}
	if lookback <= 0 {
		lookback = 7 * 24 * time.Hour
	}
	return &DailyRemindersJob{
		progressRepo: progressRepo,
		streakRepo:   streakRepo,
		notifier:     notifier,
		location:     location,
		log:          log,
		lookback:     lookback,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Name returns the unique job name.
func (j *DailyRemindersJob) Name() string {
	return "daily_reminders"
}

// Description returns a human-readable description.
func (j *DailyRemindersJob) Description() string {
	return "Reminds recently active students who have not studied today"
}

// Run sends one notification per inactive student. Delivery is
// best-effort; the notifier swallows gateway failures.
func (j *DailyRemindersJob) Run(ctx context.Context) error {
	now := j.now()

	// A manual or misconfigured trigger outside waking hours skips the
	// sweep entirely; the next scheduled run picks the students up.
	if !timeutil.IsSafeNotificationTime(now, j.location) {
		j.log.Info("daily reminders skipped outside waking hours",
			logger.String("next_window", timeutil.NextSafeNotificationTime(now, j.location).Format(time.RFC3339)),
		)
		return nil
	}

	ids, err := j.progressRepo.ListInactiveTodayStudentIDs(ctx, j.lookback)
	if err != nil {
		return fmt.Errorf("daily_reminders: list inactive students: %w", err)
	}

	var reminders, warnings int

	for _, studentID := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}

		if j.warnAboutStreak(ctx, studentID, now) {
			warnings++
			continue
		}

		j.notifier.Deliver(ctx, studentID, notification.TopicDailyReminder,
			"Time to learn something new",
			"You haven't studied today. A single concept keeps the momentum going.",
			nil,
		)
		reminders++
	}

	j.log.Info("daily reminders sent",
		logger.Int("reminders", reminders),
		logger.Int("streak_warnings", warnings),
	)

	return nil
}

// warnAboutStreak sends a streak warning when the student has a streak
// that dies at midnight. Reports whether a warning was sent.
func (j *DailyRemindersJob) warnAboutStreak(ctx context.Context, studentID string, now time.Time) bool {
	state, err := j.streakRepo.GetState(ctx, studentID)
	if err != nil {
		if !errors.Is(err, shared.ErrStreakNotFound) {
			j.log.Warn("streak lookup failed", logger.String("student_id", studentID), logger.Err(err))
		}
		return false
	}
	if !state.AtRiskAsOf(now) {
		return false
	}

	j.notifier.Deliver(ctx, studentID, notification.TopicStreakWarning,
		fmt.Sprintf("Your %d-day streak is about to end", state.CurrentStreak),
		"Complete any concept before midnight to keep your streak alive.",
		map[string]string{
			"current_streak": strconv.Itoa(state.CurrentStreak),
		},
	)
	return true
}
