package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/G2-Spool/spool-progress-service/config"
	"github.com/G2-Spool/spool-progress-service/internal/domain/gamification"
	"github.com/G2-Spool/spool-progress-service/internal/domain/progress"
	"github.com/G2-Spool/spool-progress-service/internal/domain/shared"
)

type processEnv struct {
	progress  *memProgressRepo
	points    *memPointsRepo
	streaks   *memStreakRepo
	badges    *memBadgeRepo
	publisher *memPublisher
	handler   *ProcessLearningEventHandler
}

func newProcessEnv(t *testing.T) *processEnv {
	t.Helper()

	env := &processEnv{
		progress:  newMemProgressRepo(),
		points:    newMemPointsRepo(),
		streaks:   newMemStreakRepo(),
		badges:    newMemBadgeRepo(),
		publisher: &memPublisher{},
	}

	award := awardHandler(env.points)
	streak := NewUpdateStreakHandler(&memTx{}, env.streaks)
	badges := NewCheckBadgesHandler(gamification.NewEvaluator(testCatalog()), env.badges, award, testLogger())

	env.handler = NewProcessLearningEventHandler(
		env.progress, award, streak, badges,
		&staticCatalog{counts: map[string]int{"mathematics": 10}},
		env.publisher, config.LoadFeatureFlags(), testLogger(),
	)
	return env
}

func TestProcessLearningEventRecordsAttemptAndPoints(t *testing.T) {
	env := newProcessEnv(t)
	at := time.Date(2026, time.June, 1, 10, 0, 0, 0, time.UTC)

	result, err := env.handler.Handle(context.Background(), ProcessLearningEventCommand{
		StudentID: "student-1",
		ConceptID: "concept-1",
		Subject:   "mathematics",
		Kind:      shared.EventKindConceptStarted,
		Timestamp: at,
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, progress.StatusInProgress, result.Status)
	assert.Equal(t, 1, result.Attempts)

	table := gamification.DefaultPointsTable()
	assert.Equal(t, table.ConceptStarted, result.PointsAwarded)
	assert.Equal(t, 1, result.CurrentStreak)
	assert.True(t, result.StreakExtended)

	attempt, err := env.progress.GetByStudentAndConcept(context.Background(), "student-1", "concept-1")
	require.NoError(t, err)
	assert.Equal(t, progress.StatusInProgress, attempt.Status)

	// Status change, points award, and streak update all reached the bus.
	types := env.publisher.typesSeen()
	assert.Contains(t, types, shared.EventConceptStarted)
	assert.Contains(t, types, shared.EventPointsAwarded)
	assert.Contains(t, types, shared.EventStreakUpdated)
}

func TestProcessLearningEventMasteryUpgradesExistingAttempt(t *testing.T) {
	env := newProcessEnv(t)
	ctx := context.Background()
	day1 := time.Date(2026, time.June, 1, 10, 0, 0, 0, time.UTC)

	_, err := env.handler.Handle(ctx, ProcessLearningEventCommand{
		StudentID: "student-1",
		ConceptID: "concept-1",
		Subject:   "mathematics",
		Kind:      shared.EventKindConceptStarted,
		Timestamp: day1,
	})
	require.NoError(t, err)

	score := 92.0
	result, err := env.handler.Handle(ctx, ProcessLearningEventCommand{
		StudentID: "student-1",
		ConceptID: "concept-1",
		Subject:   "mathematics",
		Kind:      shared.EventKindConceptMastered,
		Score:     &score,
		Timestamp: day1.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	assert.Equal(t, progress.StatusMastered, result.Status)
	assert.Equal(t, 2, result.Attempts)

	attempt, err := env.progress.GetByStudentAndConcept(ctx, "student-1", "concept-1")
	require.NoError(t, err)
	require.NotNil(t, attempt.MasteredAt)
	require.NotNil(t, attempt.CurrentScore)
	assert.Equal(t, 92.0, *attempt.CurrentScore)
}

func TestProcessLearningEventStreakBonusOnDayTwo(t *testing.T) {
	env := newProcessEnv(t)
	ctx := context.Background()
	day1 := time.Date(2026, time.June, 1, 10, 0, 0, 0, time.UTC)

	_, err := env.handler.Handle(ctx, ProcessLearningEventCommand{
		StudentID: "student-1",
		ConceptID: "concept-1",
		Kind:      shared.EventKindConceptStarted,
		Timestamp: day1,
	})
	require.NoError(t, err)

	result, err := env.handler.Handle(ctx, ProcessLearningEventCommand{
		StudentID: "student-1",
		ConceptID: "concept-2",
		Kind:      shared.EventKindConceptStarted,
		Timestamp: day1.Add(24 * time.Hour),
	})
	require.NoError(t, err)

	table := gamification.DefaultPointsTable()
	assert.Equal(t, 2, result.CurrentStreak)
	assert.Equal(t, table.ConceptStarted+table.DailyStreak, result.PointsAwarded)
}

func TestProcessLearningEventValidation(t *testing.T) {
	env := newProcessEnv(t)
	ctx := context.Background()

	_, err := env.handler.Handle(ctx, ProcessLearningEventCommand{
		ConceptID: "concept-1",
		Kind:      shared.EventKindConceptStarted,
	})
	assert.Error(t, err)

	// Concept events need a concept id.
	_, err = env.handler.Handle(ctx, ProcessLearningEventCommand{
		StudentID: "student-1",
		Kind:      shared.EventKindConceptMastered,
	})
	assert.Error(t, err)

	bad := 140.0
	_, err = env.handler.Handle(ctx, ProcessLearningEventCommand{
		StudentID: "student-1",
		ConceptID: "concept-1",
		Kind:      shared.EventKindConceptCompleted,
		Score:     &bad,
	})
	assert.ErrorIs(t, err, shared.ErrInvalidScore)
}

func TestProcessLearningEventGamificationFailureDegrades(t *testing.T) {
	env := newProcessEnv(t)
	env.points.loadErr = errors.New("points table unavailable")

	result, err := env.handler.Handle(context.Background(), ProcessLearningEventCommand{
		StudentID: "student-1",
		ConceptID: "concept-1",
		Kind:      shared.EventKindConceptCompleted,
		Timestamp: time.Date(2026, time.June, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// The progress write stands even though points failed.
	assert.True(t, result.Success)
	assert.Equal(t, progress.StatusCompleted, result.Status)
	assert.Zero(t, result.PointsAwarded)
	assert.Equal(t, 1, result.CurrentStreak)
}

func TestProcessLearningEventProgressFailureIsFatal(t *testing.T) {
	env := newProcessEnv(t)
	env.progress.upsertErr = errors.New("disk full")

	_, err := env.handler.Handle(context.Background(), ProcessLearningEventCommand{
		StudentID: "student-1",
		ConceptID: "concept-1",
		Kind:      shared.EventKindConceptStarted,
	})
	require.Error(t, err)
	assert.Empty(t, env.publisher.events)
}

func TestProcessLearningEventDailyStreakKindSkipsAttempt(t *testing.T) {
	env := newProcessEnv(t)

	result, err := env.handler.Handle(context.Background(), ProcessLearningEventCommand{
		StudentID: "student-1",
		Kind:      shared.EventKindDailyStreak,
		Timestamp: time.Date(2026, time.June, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Empty(t, env.progress.attempts)
	table := gamification.DefaultPointsTable()
	assert.Equal(t, table.DailyStreak, result.PointsAwarded)
}
