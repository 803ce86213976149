package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/G2-Spool/spool-progress-service/internal/domain/analytics"
	"github.com/G2-Spool/spool-progress-service/internal/domain/gamification"
	"github.com/G2-Spool/spool-progress-service/internal/domain/progress"
	"github.com/G2-Spool/spool-progress-service/internal/domain/shared"
)

type aggregateEnv struct {
	progress  *memProgressRepo
	points    *memPointsRepo
	badges    *memBadgeRepo
	analytics *memAnalyticsRepo
	handler   *AggregateAnalyticsHandler
}

func newAggregateEnv(secondsPerAttempt int) *aggregateEnv {
	env := &aggregateEnv{
		progress:  newMemProgressRepo(),
		points:    newMemPointsRepo(),
		badges:    newMemBadgeRepo(),
		analytics: newMemAnalyticsRepo(),
	}
	env.handler = NewAggregateAnalyticsHandler(
		env.progress, env.points, env.badges, env.analytics, secondsPerAttempt)
	return env
}

func TestAggregateAnalyticsComputesWeeklyRecord(t *testing.T) {
	env := newAggregateEnv(120)
	ctx := context.Background()

	// Week of Monday 2026-04-13 through Sunday 2026-04-19.
	anchor := time.Date(2026, time.April, 15, 14, 0, 0, 0, time.UTC)
	inWeek := time.Date(2026, time.April, 16, 10, 0, 0, 0, time.UTC)
	beforeWeek := time.Date(2026, time.April, 1, 10, 0, 0, 0, time.UTC)

	masteredScore := 90.0
	completedAt := time.Date(2026, time.April, 15, 9, 0, 0, 0, time.UTC)
	env.progress.attempts[attemptKey("student-1", "concept-a")] = &progress.ConceptAttempt{
		StudentID:       "student-1",
		ConceptID:       "concept-a",
		Status:          progress.StatusMastered,
		Attempts:        3,
		CurrentScore:    &masteredScore,
		CreatedAt:       time.Date(2026, time.April, 14, 8, 0, 0, 0, time.UTC),
		LastAttemptedAt: inWeek,
		CompletedAt:     &completedAt,
		MasteredAt:      &inWeek,
	}

	// Started before the week but attempted within it: counts toward
	// attempts and score, not toward starts.
	olderScore := 80.0
	env.progress.attempts[attemptKey("student-1", "concept-b")] = &progress.ConceptAttempt{
		StudentID:       "student-1",
		ConceptID:       "concept-b",
		Status:          progress.StatusInProgress,
		Attempts:        2,
		CurrentScore:    &olderScore,
		CreatedAt:       beforeWeek,
		LastAttemptedAt: time.Date(2026, time.April, 18, 20, 0, 0, 0, time.UTC),
	}

	// Another student's work stays out of the record.
	env.progress.attempts[attemptKey("student-2", "concept-a")] = &progress.ConceptAttempt{
		StudentID:       "student-2",
		ConceptID:       "concept-a",
		Status:          progress.StatusCompleted,
		Attempts:        9,
		CreatedAt:       inWeek,
		LastAttemptedAt: inWeek,
	}

	env.points.history = append(env.points.history,
		&gamification.PointHistoryEntry{StudentID: "student-1", Delta: 25, CreatedAt: inWeek},
		&gamification.PointHistoryEntry{StudentID: "student-1", Delta: 50, CreatedAt: beforeWeek},
	)
	env.badges.awards["student-1"] = map[string]*gamification.UserBadgeAward{
		"quick_learner": {StudentID: "student-1", BadgeID: "quick_learner", EarnedAt: inWeek},
	}

	result, err := env.handler.Handle(ctx, AggregateAnalyticsCommand{
		StudentID: "student-1",
		Period:    analytics.PeriodWeekly,
		Anchor:    anchor,
	})
	require.NoError(t, err)

	record := result.Record
	assert.Equal(t, analytics.PeriodWeekly, record.Period)
	assert.Equal(t, time.Date(2026, time.April, 13, 0, 0, 0, 0, time.UTC), record.PeriodDate)
	assert.Equal(t, 1, record.ConceptsStarted)
	assert.Equal(t, 1, record.ConceptsCompleted)
	assert.Equal(t, 1, record.ConceptsMastered)
	assert.Equal(t, 5*120, record.TimeSpentSeconds)
	assert.InDelta(t, 85.0, record.AverageScore, 0.001)
	assert.Equal(t, 25, record.PointsEarned)
	assert.Equal(t, 1, record.BadgesEarned)

	stored, err := env.analytics.Get(ctx, "student-1", analytics.PeriodWeekly, record.PeriodDate)
	require.NoError(t, err)
	assert.Equal(t, record.ConceptsMastered, stored.ConceptsMastered)

	require.Len(t, result.Events, 1)
	assert.Equal(t, shared.EventAggregationCompleted, result.Events[0].EventType())
}

func TestAggregateAnalyticsWindowCoversEndDateFully(t *testing.T) {
	env := newAggregateEnv(0)
	ctx := context.Background()

	day := time.Date(2026, time.April, 15, 0, 0, 0, 0, time.UTC)
	env.points.history = append(env.points.history,
		// Late on the period's end date still belongs to the period.
		&gamification.PointHistoryEntry{StudentID: "student-1", Delta: 10,
			CreatedAt: day.Add(23*time.Hour + 30*time.Minute)},
		// Midnight of the next day does not.
		&gamification.PointHistoryEntry{StudentID: "student-1", Delta: 99,
			CreatedAt: day.AddDate(0, 0, 1)},
	)

	result, err := env.handler.Handle(ctx, AggregateAnalyticsCommand{
		StudentID: "student-1",
		Period:    analytics.PeriodDaily,
		Anchor:    day.Add(6 * time.Hour),
	})
	require.NoError(t, err)

	assert.Equal(t, day, result.Record.PeriodDate)
	assert.Equal(t, 10, result.Record.PointsEarned)
}

func TestAggregateAnalyticsIsRepeatable(t *testing.T) {
	env := newAggregateEnv(300)
	ctx := context.Background()

	anchor := time.Date(2026, time.April, 15, 14, 0, 0, 0, time.UTC)
	mastered := time.Date(2026, time.April, 14, 10, 0, 0, 0, time.UTC)
	score := 88.0
	env.progress.attempts[attemptKey("student-1", "concept-a")] = &progress.ConceptAttempt{
		StudentID:       "student-1",
		ConceptID:       "concept-a",
		Status:          progress.StatusMastered,
		Attempts:        2,
		CurrentScore:    &score,
		CreatedAt:       mastered,
		LastAttemptedAt: mastered,
		MasteredAt:      &mastered,
	}

	cmd := AggregateAnalyticsCommand{
		StudentID: "student-1",
		Period:    analytics.PeriodWeekly,
		Anchor:    anchor,
	}

	first, err := env.handler.Handle(ctx, cmd)
	require.NoError(t, err)
	second, err := env.handler.Handle(ctx, cmd)
	require.NoError(t, err)

	// The rerun replaces the record under the same key instead of
	// accumulating, and every derived field comes out identical.
	assert.Equal(t, 2, env.analytics.upserts)
	assert.Len(t, env.analytics.records, 1)

	assert.Equal(t, first.Record.PeriodDate, second.Record.PeriodDate)
	assert.Equal(t, first.Record.ConceptsStarted, second.Record.ConceptsStarted)
	assert.Equal(t, first.Record.ConceptsCompleted, second.Record.ConceptsCompleted)
	assert.Equal(t, first.Record.ConceptsMastered, second.Record.ConceptsMastered)
	assert.Equal(t, first.Record.TimeSpentSeconds, second.Record.TimeSpentSeconds)
	assert.Equal(t, first.Record.AverageScore, second.Record.AverageScore)
	assert.Equal(t, first.Record.PointsEarned, second.Record.PointsEarned)
	assert.Equal(t, first.Record.BadgesEarned, second.Record.BadgesEarned)
}

func TestAggregateAnalyticsValidation(t *testing.T) {
	env := newAggregateEnv(300)
	ctx := context.Background()

	_, err := env.handler.Handle(ctx, AggregateAnalyticsCommand{Period: analytics.PeriodDaily})
	assert.Error(t, err)

	_, err = env.handler.Handle(ctx, AggregateAnalyticsCommand{StudentID: "s", Period: "quarterly"})
	assert.ErrorIs(t, err, shared.ErrInvalidPeriod)
}

func TestAggregateAnalyticsUpsertFailureSurfaces(t *testing.T) {
	env := newAggregateEnv(300)
	env.analytics.upsertErr = errors.New("connection reset")

	_, err := env.handler.Handle(context.Background(), AggregateAnalyticsCommand{
		StudentID: "student-1",
		Period:    analytics.PeriodDaily,
	})
	assert.Error(t, err)
}
