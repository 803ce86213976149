package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/G2-Spool/spool-progress-service/internal/domain/progress"
)

func attempt(status progress.ConceptStatus, subject string, score *float64, created, last time.Time) *progress.ConceptAttempt {
	a := &progress.ConceptAttempt{
		StudentID:       "s1",
		Subject:         subject,
		Status:          status,
		Attempts:        1,
		CurrentScore:    score,
		CreatedAt:       created,
		LastAttemptedAt: last,
	}
	if status == progress.StatusMastered {
		m := last
		a.MasteredAt = &m
	}
	return a
}

func scoreOf(v float64) *float64 { return &v }

func TestVelocityZeroActiveDays(t *testing.T) {
	windowStart := date(2026, time.March, 1)

	assert.Equal(t, 0.0, Velocity(nil, windowStart))

	// in-progress attempts do not count
	attempts := []*progress.ConceptAttempt{
		attempt(progress.StatusInProgress, "", nil, date(2026, time.March, 5), date(2026, time.March, 6)),
	}
	assert.Equal(t, 0.0, Velocity(attempts, windowStart))
}

func TestVelocityConceptsPerActiveDay(t *testing.T) {
	windowStart := date(2026, time.March, 1)

	// 4 completions over 2 distinct days -> 2.0 concepts/day
	attempts := []*progress.ConceptAttempt{
		attempt(progress.StatusCompleted, "", nil, date(2026, time.March, 2), date(2026, time.March, 3)),
		attempt(progress.StatusMastered, "", nil, date(2026, time.March, 2), date(2026, time.March, 3)),
		attempt(progress.StatusCompleted, "", nil, date(2026, time.March, 4), date(2026, time.March, 5)),
		attempt(progress.StatusCompleted, "", nil, date(2026, time.March, 4), date(2026, time.March, 5)),
		// outside window, excluded
		attempt(progress.StatusMastered, "", nil, date(2026, time.January, 1), date(2026, time.February, 1)),
	}

	assert.Equal(t, 2.0, Velocity(attempts, windowStart))
}

func TestMasteryEfficiency(t *testing.T) {
	created := date(2026, time.March, 1)
	mastered := created.Add(10 * time.Hour)

	a := attempt(progress.StatusMastered, "", nil, created, mastered)
	a.Attempts = 3

	eff := MasteryEfficiency([]*progress.ConceptAttempt{a})

	assert.Equal(t, 3.0, eff.AverageAttemptsToMastery)
	assert.Equal(t, 10.0, eff.AverageHoursToMastery)
	// attempt curve: 100-(3-1)*20 = 60; time curve: 100-10*2 = 80; mean 70
	assert.Equal(t, 70.0, eff.Score)
}

func TestMasteryEfficiencyPenaltiesFloorAtZero(t *testing.T) {
	created := date(2026, time.January, 1)
	mastered := created.Add(200 * time.Hour)

	a := attempt(progress.StatusMastered, "", nil, created, mastered)
	a.Attempts = 20

	eff := MasteryEfficiency([]*progress.ConceptAttempt{a})

	assert.Equal(t, 0.0, eff.Score)
}

func TestConsistencyClampedToOne(t *testing.T) {
	// 3 active days over a 2-day span would exceed 1.0 without the clamp
	attempts := []*progress.ConceptAttempt{
		attempt(progress.StatusCompleted, "", nil, date(2026, time.March, 1), date(2026, time.March, 1)),
		attempt(progress.StatusCompleted, "", nil, date(2026, time.March, 1), date(2026, time.March, 2)),
		attempt(progress.StatusCompleted, "", nil, date(2026, time.March, 1), date(2026, time.March, 3)),
	}

	assert.Equal(t, 1.0, Consistency(attempts))
}

func TestConsistencyNoAttempts(t *testing.T) {
	assert.Equal(t, 0.0, Consistency(nil))
}

func TestConsistencyPartialActivity(t *testing.T) {
	// 2 active days over a 10-day span -> 0.2
	attempts := []*progress.ConceptAttempt{
		attempt(progress.StatusCompleted, "", nil, date(2026, time.March, 1), date(2026, time.March, 1)),
		attempt(progress.StatusCompleted, "", nil, date(2026, time.March, 1), date(2026, time.March, 11)),
	}

	assert.InDelta(t, 0.2, Consistency(attempts), 1e-9)
}

func weeklyRecord(periodDate time.Time, mastered, timeSpentSeconds int) *AggregationRecord {
	return &AggregationRecord{
		StudentID:        "s1",
		Period:           PeriodWeekly,
		PeriodDate:       periodDate,
		ConceptsMastered: mastered,
		TimeSpentSeconds: timeSpentSeconds,
	}
}

func TestWeeklyTrendRequiresTwoRecords(t *testing.T) {
	assert.Nil(t, WeeklyTrend(nil))
	assert.Nil(t, WeeklyTrend([]*AggregationRecord{weeklyRecord(date(2026, time.March, 2), 5, 3600)}))
}

func TestWeeklyTrendSlope(t *testing.T) {
	// velocities with one hour clamp: 2, 4, 6 -> slope exactly 2
	records := []*AggregationRecord{
		weeklyRecord(date(2026, time.March, 2), 2, 1800),
		weeklyRecord(date(2026, time.March, 9), 4, 1800),
		weeklyRecord(date(2026, time.March, 16), 6, 1800),
	}

	trend := WeeklyTrend(records)

	require.NotNil(t, trend)
	assert.InDelta(t, 2.0, trend.Slope, 1e-9)
	assert.Equal(t, 3, trend.RecentWeeks)
	assert.Equal(t, date(2026, time.March, 16), trend.PeakWeek)
}

func TestWeeklyTrendSortsByPeriodDate(t *testing.T) {
	records := []*AggregationRecord{
		weeklyRecord(date(2026, time.March, 16), 6, 1800),
		weeklyRecord(date(2026, time.March, 2), 2, 1800),
		weeklyRecord(date(2026, time.March, 9), 4, 1800),
	}

	trend := WeeklyTrend(records)

	require.NotNil(t, trend)
	assert.True(t, trend.Slope > 0)
}

func TestPredictCompletionZeroVelocity(t *testing.T) {
	p := PredictCompletion(40, 0, 0.9, date(2026, time.March, 1))

	assert.Nil(t, p.EstimatedDays)
	assert.Nil(t, p.EstimatedCompletionDate)
	assert.Equal(t, ConfidenceLow, p.Confidence)
	assert.Equal(t, "Need more learning data to make predictions", p.Recommendation)
}

func TestPredictCompletionConfidenceTiers(t *testing.T) {
	now := date(2026, time.March, 1)

	tests := []struct {
		consistency float64
		want        ConfidenceTier
	}{
		{0.9, ConfidenceHigh},
		{0.81, ConfidenceHigh},
		{0.8, ConfidenceMedium},
		{0.6, ConfidenceMedium},
		{0.5, ConfidenceLow},
		{0.1, ConfidenceLow},
	}

	for _, tt := range tests {
		p := PredictCompletion(10, 1.0, tt.consistency, now)
		assert.Equal(t, tt.want, p.Confidence, "consistency %.2f", tt.consistency)
	}
}

func TestPredictCompletionEstimate(t *testing.T) {
	now := date(2026, time.March, 1)

	p := PredictCompletion(20, 2.0, 0.9, now)

	require.NotNil(t, p.EstimatedDays)
	assert.Equal(t, 10, *p.EstimatedDays)
	require.NotNil(t, p.EstimatedCompletionDate)
	assert.Equal(t, date(2026, time.March, 11), *p.EstimatedCompletionDate)
	assert.Contains(t, p.Recommendation, "on track to complete soon")
}

func TestPredictCompletionRecommendationBuckets(t *testing.T) {
	now := date(2026, time.March, 1)

	slow := PredictCompletion(120, 1.0, 0.9, now) // 120 days
	assert.Contains(t, slow.Recommendation, "Increase your pace to 2.0 concepts/day")

	medium := PredictCompletion(60, 1.0, 0.9, now) // 60 days
	assert.Contains(t, medium.Recommendation, "within 3 months")
}

func TestStrengthsWeaknesses(t *testing.T) {
	created := date(2026, time.March, 1)

	var attempts []*progress.ConceptAttempt
	// math: 4 attempts averaging 90 -> strength
	for i := 0; i < 4; i++ {
		attempts = append(attempts, attempt(progress.StatusCompleted, "math", scoreOf(90), created, created))
	}
	// history: 3 attempts averaging 60 -> weakness
	for i := 0; i < 3; i++ {
		attempts = append(attempts, attempt(progress.StatusCompleted, "history", scoreOf(60), created, created))
	}
	// physics: only 2 attempts -> excluded entirely
	for i := 0; i < 2; i++ {
		attempts = append(attempts, attempt(progress.StatusCompleted, "physics", scoreOf(95), created, created))
	}
	// chemistry: mid-range, neither strength nor weakness
	for i := 0; i < 3; i++ {
		attempts = append(attempts, attempt(progress.StatusCompleted, "chemistry", scoreOf(75), created, created))
	}

	strengths, weaknesses := StrengthsWeaknesses(attempts)

	assert.Equal(t, []string{"math"}, strengths)
	assert.Equal(t, []string{"history"}, weaknesses)
}

func TestStrengthsWeaknessesUnscoredExcluded(t *testing.T) {
	created := date(2026, time.March, 1)
	attempts := []*progress.ConceptAttempt{
		attempt(progress.StatusCompleted, "math", nil, created, created),
		attempt(progress.StatusCompleted, "math", nil, created, created),
		attempt(progress.StatusCompleted, "math", nil, created, created),
	}

	strengths, weaknesses := StrengthsWeaknesses(attempts)

	assert.Empty(t, strengths)
	assert.Empty(t, weaknesses)
}
