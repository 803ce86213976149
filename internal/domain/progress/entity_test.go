package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/G2-Spool/spool-progress-service/internal/domain/shared"
)

func at(hour int) time.Time {
	return time.Date(2026, time.March, 1, hour, 0, 0, 0, time.UTC)
}

func score(v float64) *float64 { return &v }

func newAttempt(t *testing.T) *ConceptAttempt {
	t.Helper()
	a, err := NewConceptAttempt("id-1", "student-1", "concept-1", "math", at(9))
	require.NoError(t, err)
	return a
}

func TestNewConceptAttempt(t *testing.T) {
	a := newAttempt(t)

	assert.Equal(t, StatusInProgress, a.Status)
	assert.Equal(t, 1, a.Attempts)
	assert.Nil(t, a.CompletedAt)
	assert.Nil(t, a.MasteredAt)
}

func TestNewConceptAttemptRequiresIDs(t *testing.T) {
	_, err := NewConceptAttempt("id-1", "", "concept-1", "math", at(9))
	assert.Error(t, err)

	_, err = NewConceptAttempt("id-1", "student-1", "", "math", at(9))
	assert.Error(t, err)
}

func TestRecordAttemptAdvancesStatus(t *testing.T) {
	a := newAttempt(t)

	require.NoError(t, a.RecordAttempt(StatusCompleted, score(85), at(10)))

	assert.Equal(t, StatusCompleted, a.Status)
	assert.Equal(t, 2, a.Attempts)
	require.NotNil(t, a.CompletedAt)
	assert.Equal(t, at(10), *a.CompletedAt)
	assert.Nil(t, a.MasteredAt)
}

func TestRecordAttemptRejectsRegression(t *testing.T) {
	a := newAttempt(t)
	require.NoError(t, a.RecordAttempt(StatusMastered, score(95), at(10)))

	err := a.RecordAttempt(StatusCompleted, score(80), at(11))

	assert.ErrorIs(t, err, shared.ErrStatusRegression)
	assert.Equal(t, StatusMastered, a.Status)
	assert.Equal(t, 2, a.Attempts)
}

func TestRecordAttemptSameStatusIsRescore(t *testing.T) {
	a := newAttempt(t)
	require.NoError(t, a.RecordAttempt(StatusCompleted, score(70), at(10)))

	require.NoError(t, a.RecordAttempt(StatusCompleted, score(90), at(11)))

	assert.Equal(t, 3, a.Attempts)
	assert.Equal(t, 90.0, *a.CurrentScore)
}

func TestRecordAttemptStampsMasteryOnce(t *testing.T) {
	a := newAttempt(t)
	require.NoError(t, a.RecordAttempt(StatusMastered, score(95), at(10)))
	require.NoError(t, a.RecordAttempt(StatusMastered, score(98), at(14)))

	require.NotNil(t, a.MasteredAt)
	assert.Equal(t, at(10), *a.MasteredAt)
	require.NotNil(t, a.CompletedAt)
	assert.Equal(t, at(10), *a.CompletedAt)
}

func TestRecordAttemptJumpToMasteredStampsBoth(t *testing.T) {
	a := newAttempt(t)

	require.NoError(t, a.RecordAttempt(StatusMastered, nil, at(12)))

	require.NotNil(t, a.CompletedAt)
	require.NotNil(t, a.MasteredAt)
}

func TestRecordAttemptValidatesScore(t *testing.T) {
	a := newAttempt(t)

	assert.ErrorIs(t, a.RecordAttempt(StatusCompleted, score(-1), at(10)), shared.ErrInvalidScore)
	assert.ErrorIs(t, a.RecordAttempt(StatusCompleted, score(101), at(10)), shared.ErrInvalidScore)
	assert.Equal(t, 1, a.Attempts)
}

func TestRecordAttemptTracksBestScore(t *testing.T) {
	a := newAttempt(t)
	require.NoError(t, a.RecordAttempt(StatusInProgress, score(80), at(10)))
	require.NoError(t, a.RecordAttempt(StatusInProgress, score(60), at(11)))

	assert.Equal(t, 60.0, *a.CurrentScore)
	assert.Equal(t, 80.0, *a.BestScore)
}

func TestNewConceptStatus(t *testing.T) {
	s, err := NewConceptStatus("mastered")
	require.NoError(t, err)
	assert.Equal(t, StatusMastered, s)

	_, err = NewConceptStatus("perfected")
	assert.Error(t, err)
}

func TestStatusOrdering(t *testing.T) {
	assert.True(t, StatusMastered.IsAtLeast(StatusCompleted))
	assert.True(t, StatusCompleted.IsAtLeast(StatusCompleted))
	assert.False(t, StatusInProgress.IsAtLeast(StatusCompleted))
}

func TestBuildSummary(t *testing.T) {
	mk := func(status ConceptStatus, sc *float64, last time.Time) *ConceptAttempt {
		return &ConceptAttempt{
			StudentID:       "student-1",
			Status:          status,
			CurrentScore:    sc,
			CreatedAt:       at(8),
			LastAttemptedAt: last,
		}
	}

	attempts := []*ConceptAttempt{
		mk(StatusInProgress, nil, at(9)),
		mk(StatusCompleted, score(80), at(11)),
		mk(StatusMastered, score(90), at(10)),
		mk(StatusCompleted, score(70), at(12)),
	}

	s := BuildSummary("student-1", attempts, 2)

	assert.Equal(t, 4, s.TotalConcepts)
	assert.Equal(t, 1, s.InProgress)
	assert.Equal(t, 2, s.Completed)
	assert.Equal(t, 1, s.Mastered)
	assert.Equal(t, 80.0, s.AverageScore)
	assert.Equal(t, 75.0, s.CompletionPercent)
	assert.Equal(t, at(12), s.LastActivityAt)

	require.Len(t, s.RecentAttempts, 2)
	assert.Equal(t, at(12), s.RecentAttempts[0].LastAttemptedAt)
	assert.Equal(t, at(11), s.RecentAttempts[1].LastAttemptedAt)
}

func TestBuildSummaryEmpty(t *testing.T) {
	s := BuildSummary("student-1", nil, 5)

	assert.Equal(t, 0, s.TotalConcepts)
	assert.Equal(t, 0.0, s.AverageScore)
	assert.Equal(t, 0.0, s.CompletionPercent)
	assert.Empty(t, s.RecentAttempts)
}
