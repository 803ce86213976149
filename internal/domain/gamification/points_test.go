package gamification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/G2-Spool/spool-progress-service/internal/domain/shared"
)

func ptrFloat(v float64) *float64           { return &v }
func ptrDur(d time.Duration) *time.Duration { return &d }

func TestNewPointsStateStartsAtLevelOne(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	s := NewPointsState("student-1", now)

	assert.Equal(t, 0, s.TotalPoints)
	assert.Equal(t, 1, s.CurrentLevel)
	assert.Equal(t, 100, s.PointsToNextLevel)
}

func TestAwardRecomputesLevel(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		delta      int
		wantTotal  int
		wantLevel  int
		wantToNext int
		wantLevelUp bool
	}{
		{"just below boundary", 99, 99, 1, 1, false},
		{"exact boundary", 100, 100, 2, 300, true},
		{"mid level four", 900, 900, 4, 700, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewPointsState("student-1", now)

			result, err := s.Award(tt.delta, shared.DefaultLevelScale, now)
			require.NoError(t, err)

			assert.Equal(t, tt.wantTotal, result.NewTotal)
			assert.Equal(t, tt.wantLevel, result.NewLevel)
			assert.Equal(t, 1, result.OldLevel)
			assert.Equal(t, tt.wantLevelUp, result.LeveledUp)
			assert.Equal(t, tt.wantToNext, s.PointsToNextLevel)
		})
	}
}

func TestAwardZeroDeltaIsValid(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	s := NewPointsState("student-1", now)

	result, err := s.Award(0, shared.DefaultLevelScale, now)

	require.NoError(t, err)
	assert.Equal(t, 0, result.NewTotal)
	assert.False(t, result.LeveledUp)
}

func TestAwardRejectsNegativeDelta(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	s := NewPointsState("student-1", now)

	_, err := s.Award(-10, shared.DefaultLevelScale, now)

	assert.ErrorIs(t, err, shared.ErrNegativePoints)
	assert.Equal(t, 0, s.TotalPoints)
}

func TestCalculateBasePoints(t *testing.T) {
	calc := NewPointsCalculator(DefaultPointsTable())

	tests := []struct {
		kind shared.LearningEventKind
		want int
	}{
		{shared.EventKindConceptStarted, 5},
		{shared.EventKindConceptCompleted, 10},
		{shared.EventKindConceptMastered, 25},
		{shared.EventKindDailyStreak, 5},
		{shared.EventKindWeeklyGoal, 50},
	}

	for _, tt := range tests {
		got, err := calc.Calculate(tt.kind, EventContext{})
		require.NoError(t, err, string(tt.kind))
		assert.Equal(t, tt.want, got, string(tt.kind))
	}
}

func TestCalculatePerfectScoreBonus(t *testing.T) {
	calc := NewPointsCalculator(DefaultPointsTable())

	got, err := calc.Calculate(shared.EventKindConceptMastered, EventContext{Score: ptrFloat(100)})
	require.NoError(t, err)
	assert.Equal(t, 35, got)

	// the flag marks imperfect-scored attempts as perfect
	got, err = calc.Calculate(shared.EventKindConceptMastered, EventContext{Score: ptrFloat(95), Perfect: true})
	require.NoError(t, err)
	assert.Equal(t, 35, got)

	// 99 without the flag is not perfect
	got, err = calc.Calculate(shared.EventKindConceptMastered, EventContext{Score: ptrFloat(99)})
	require.NoError(t, err)
	assert.Equal(t, 25, got)
}

func TestCalculateSpeedBonus(t *testing.T) {
	calc := NewPointsCalculator(DefaultPointsTable())

	got, err := calc.Calculate(shared.EventKindConceptMastered, EventContext{CompletionTime: ptrDur(4 * time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, 30, got)

	// exactly at the threshold does not qualify
	got, err = calc.Calculate(shared.EventKindConceptMastered, EventContext{CompletionTime: ptrDur(5 * time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, 25, got)
}

func TestCalculateNoBonusOnCompleted(t *testing.T) {
	calc := NewPointsCalculator(DefaultPointsTable())

	got, err := calc.Calculate(shared.EventKindConceptCompleted, EventContext{
		Score:          ptrFloat(100),
		Perfect:        true,
		CompletionTime: ptrDur(1 * time.Minute),
	})

	require.NoError(t, err)
	assert.Equal(t, 10, got)
}

func TestCalculateBonusesStack(t *testing.T) {
	calc := NewPointsCalculator(DefaultPointsTable())

	got, err := calc.Calculate(shared.EventKindConceptMastered, EventContext{
		Score:          ptrFloat(100),
		CompletionTime: ptrDur(2 * time.Minute),
	})

	require.NoError(t, err)
	assert.Equal(t, 40, got)
}

func TestCalculateNoBonusOnStarted(t *testing.T) {
	calc := NewPointsCalculator(DefaultPointsTable())

	got, err := calc.Calculate(shared.EventKindConceptStarted, EventContext{
		Score:          ptrFloat(100),
		CompletionTime: ptrDur(1 * time.Minute),
	})

	require.NoError(t, err)
	assert.Equal(t, 5, got)
}

func TestCalculateUnknownKind(t *testing.T) {
	calc := NewPointsCalculator(DefaultPointsTable())

	_, err := calc.Calculate(shared.LearningEventKind("concept_skimmed"), EventContext{})

	assert.ErrorIs(t, err, shared.ErrUnknownEventKind)
}
