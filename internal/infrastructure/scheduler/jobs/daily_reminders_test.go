package jobs

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/G2-Spool/spool-progress-service/config"
	"github.com/G2-Spool/spool-progress-service/internal/application/eventhandler"
	"github.com/G2-Spool/spool-progress-service/internal/domain/gamification"
	"github.com/G2-Spool/spool-progress-service/internal/domain/notification"
	"github.com/G2-Spool/spool-progress-service/internal/domain/progress"
	"github.com/G2-Spool/spool-progress-service/internal/domain/shared"
	"github.com/G2-Spool/spool-progress-service/pkg/logger"
)

type captureSender struct {
	sent []*notification.Notification
}

func (s *captureSender) Send(_ context.Context, n *notification.Notification) error {
	s.sent = append(s.sent, n)
	return nil
}

func (s *captureSender) topics() []notification.Topic {
	out := make([]notification.Topic, 0, len(s.sent))
	for _, n := range s.sent {
		out = append(out, n.Topic)
	}
	return out
}

// inactiveProgressRepo serves only the inactivity sweep; the job touches
// nothing else on the repository.
type inactiveProgressRepo struct {
	progress.Repository
	inactive []string
	calls    int
}

func (r *inactiveProgressRepo) ListInactiveTodayStudentIDs(_ context.Context, _ time.Duration) ([]string, error) {
	r.calls++
	return r.inactive, nil
}

type streakStateRepo struct {
	gamification.StreakRepository
	states map[string]*gamification.StreakState
}

func (r *streakStateRepo) GetState(_ context.Context, studentID string) (*gamification.StreakState, error) {
	state, ok := r.states[studentID]
	if !ok {
		return nil, shared.ErrStreakNotFound
	}
	return state, nil
}

type remindersEnv struct {
	progress *inactiveProgressRepo
	streaks  *streakStateRepo
	sender   *captureSender
	job      *DailyRemindersJob
}

func newRemindersEnv(t *testing.T, inactive []string) *remindersEnv {
	t.Helper()

	env := &remindersEnv{
		progress: &inactiveProgressRepo{inactive: inactive},
		streaks:  &streakStateRepo{states: make(map[string]*gamification.StreakState)},
		sender:   &captureSender{},
	}

	log := logger.New(logger.Options{Output: io.Discard})
	flags := config.LoadFeatureFlags()
	require.NoError(t, flags.SetRolloutPercent(config.FeatureNotifyDailyReminder, 100))
	notifier := eventhandler.NewNotifier(env.sender, flags,
		config.NotificationConfig{Enabled: true}, time.UTC, log)

	env.job = NewDailyRemindersJob(env.progress, env.streaks, notifier, time.UTC, 0, log)
	return env
}

func TestDailyRemindersSendsWarningsAndReminders(t *testing.T) {
	env := newRemindersEnv(t, []string{"student-1", "student-2"})

	// Midday, inside waking hours.
	noon := time.Date(2026, time.April, 15, 12, 0, 0, 0, time.UTC)
	env.job.now = func() time.Time { return noon }

	// student-1 was active yesterday: the streak dies at midnight.
	env.streaks.states["student-1"] = &gamification.StreakState{
		StudentID:        "student-1",
		CurrentStreak:    5,
		LongestStreak:    5,
		LastActivityDate: noon.AddDate(0, 0, -1),
	}

	require.NoError(t, env.job.Run(context.Background()))

	topics := env.sender.topics()
	require.Len(t, topics, 2)
	assert.Contains(t, topics, notification.TopicStreakWarning)
	assert.Contains(t, topics, notification.TopicDailyReminder)

	for _, n := range env.sender.sent {
		if n.Topic == notification.TopicStreakWarning {
			assert.Equal(t, "student-1", n.StudentID)
			assert.Equal(t, "5", n.Data["current_streak"])
		}
	}
}

func TestDailyRemindersSkipsOutsideWakingHours(t *testing.T) {
	env := newRemindersEnv(t, []string{"student-1"})

	lateNight := time.Date(2026, time.April, 15, 23, 30, 0, 0, time.UTC)
	env.job.now = func() time.Time { return lateNight }

	require.NoError(t, env.job.Run(context.Background()))

	// The sweep never ran: no repository scan, nothing sent.
	assert.Zero(t, env.progress.calls)
	assert.Empty(t, env.sender.sent)
}

func TestDailyRemindersHonorsStudentTimezone(t *testing.T) {
	env := newRemindersEnv(t, []string{"student-1"})

	almaty, err := time.LoadLocation("Asia/Almaty")
	require.NoError(t, err)
	env.job.location = almaty

	// 04:30 UTC is past 09:00 in Almaty (UTC+5): the sweep runs.
	env.job.now = func() time.Time {
		return time.Date(2026, time.April, 15, 4, 30, 0, 0, time.UTC)
	}

	require.NoError(t, env.job.Run(context.Background()))

	assert.Equal(t, 1, env.progress.calls)
	require.Len(t, env.sender.sent, 1)
	assert.Equal(t, notification.TopicDailyReminder, env.sender.sent[0].Topic)
}
