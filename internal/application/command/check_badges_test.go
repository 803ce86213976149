package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/G2-Spool/spool-progress-service/internal/domain/gamification"
	"github.com/G2-Spool/spool-progress-service/internal/domain/shared"
)

func testCatalog() []*gamification.Badge {
	return []*gamification.Badge{
		{
			ID:          "consistency_champion",
			Name:        "Consistency Champion",
			Category:    gamification.CategoryConsistency,
			Criteria:    gamification.StreakCriteria{Days: 7},
			PointsValue: 50,
			Active:      true,
		},
		{
			ID:       "quick_learner",
			Name:     "Quick Learner",
			Category: gamification.CategoryMastery,
			Criteria: gamification.DailyMasteryCriteria{Count: 5},
			Active:   true,
		},
	}
}

func badgeHandler(badges *memBadgeRepo, points *memPointsRepo) *CheckBadgesHandler {
	evaluator := gamification.NewEvaluator(testCatalog())
	return NewCheckBadgesHandler(evaluator, badges, awardHandler(points), testLogger())
}

func TestCheckBadgesAwardsMatchingBadge(t *testing.T) {
	badges := newMemBadgeRepo()
	points := newMemPointsRepo()
	h := badgeHandler(badges, points)

	result, err := h.Handle(context.Background(), CheckBadgesCommand{
		StudentID: "student-1",
		Event: gamification.BadgeEvent{
			Kind:       gamification.TriggerStreak,
			StudentID:  "student-1",
			StreakDays: 7,
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Earned, 1)
	assert.Equal(t, "consistency_champion", result.Earned[0].ID)
	assert.Equal(t, 50, result.BonusPoints)

	has, err := badges.HasAward(context.Background(), "student-1", "consistency_champion")
	require.NoError(t, err)
	assert.True(t, has)

	// The bonus went through the points path and into the history.
	require.Len(t, points.history, 1)
	assert.Equal(t, "badge:consistency_champion", points.history[0].Reason)
	assert.Equal(t, 50, points.history[0].Delta)
}

func TestCheckBadgesDuplicateAwardIsSilent(t *testing.T) {
	badges := newMemBadgeRepo()
	points := newMemPointsRepo()
	h := badgeHandler(badges, points)
	ctx := context.Background()

	cmd := CheckBadgesCommand{
		StudentID: "student-1",
		Event: gamification.BadgeEvent{
			Kind:       gamification.TriggerStreak,
			StudentID:  "student-1",
			StreakDays: 10,
		},
		Timestamp: time.Date(2026, time.May, 1, 8, 0, 0, 0, time.UTC),
	}

	first, err := h.Handle(ctx, cmd)
	require.NoError(t, err)
	require.Len(t, first.Earned, 1)

	second, err := h.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.Empty(t, second.Earned)
	assert.Zero(t, second.BonusPoints)
	assert.Len(t, points.history, 1)
}

func TestCheckBadgesNoMatchNoAward(t *testing.T) {
	badges := newMemBadgeRepo()
	h := badgeHandler(badges, newMemPointsRepo())

	result, err := h.Handle(context.Background(), CheckBadgesCommand{
		StudentID: "student-1",
		Event: gamification.BadgeEvent{
			Kind:       gamification.TriggerStreak,
			StudentID:  "student-1",
			StreakDays: 3,
		},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Earned)
	assert.Empty(t, badges.awards)
}

func TestCheckBadgesEmitsBadgeEarnedEvent(t *testing.T) {
	h := badgeHandler(newMemBadgeRepo(), newMemPointsRepo())

	result, err := h.Handle(context.Background(), CheckBadgesCommand{
		StudentID: "student-1",
		Event: gamification.BadgeEvent{
			Kind:              gamification.TriggerMastery,
			StudentID:         "student-1",
			MasteriesInWindow: 5,
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Earned, 1)
	var sawEarned bool
	for _, e := range result.Events {
		if e.EventType() == shared.EventBadgeEarned {
			sawEarned = true
		}
	}
	assert.True(t, sawEarned)
}

func TestCheckBadgesValidation(t *testing.T) {
	h := badgeHandler(newMemBadgeRepo(), newMemPointsRepo())

	_, err := h.Handle(context.Background(), CheckBadgesCommand{StudentID: "s"})
	assert.Error(t, err)
}
