package gamification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyMasteryCriteria(t *testing.T) {
	c := DailyMasteryCriteria{Count: 5}

	assert.True(t, c.Matches(BadgeEvent{Kind: TriggerMastery, MasteriesInWindow: 5}))
	assert.True(t, c.Matches(BadgeEvent{Kind: TriggerMastery, MasteriesInWindow: 7}))
	assert.False(t, c.Matches(BadgeEvent{Kind: TriggerMastery, MasteriesInWindow: 4}))
	// wrong trigger kind never matches
	assert.False(t, c.Matches(BadgeEvent{Kind: TriggerStreak, MasteriesInWindow: 10}))
}

func TestStreakCriteria(t *testing.T) {
	c := StreakCriteria{Days: 7}

	assert.True(t, c.Matches(BadgeEvent{Kind: TriggerStreak, StreakDays: 7}))
	assert.False(t, c.Matches(BadgeEvent{Kind: TriggerStreak, StreakDays: 6}))
	assert.False(t, c.Matches(BadgeEvent{Kind: TriggerPoints, StreakDays: 30}))
}

func TestSubjectCompletionCriteria(t *testing.T) {
	c := SubjectCompletionCriteria{Percent: 100}

	assert.True(t, c.Matches(BadgeEvent{Kind: TriggerMastery, Subject: "math", SubjectCompletionPercent: 100}))
	assert.False(t, c.Matches(BadgeEvent{Kind: TriggerMastery, Subject: "math", SubjectCompletionPercent: 99.5}))
	// completion metadata without a subject is ignored
	assert.False(t, c.Matches(BadgeEvent{Kind: TriggerMastery, SubjectCompletionPercent: 100}))
}

func TestTotalPointsCriteria(t *testing.T) {
	c := TotalPointsCriteria{Threshold: 1000}

	assert.True(t, c.Matches(BadgeEvent{Kind: TriggerPoints, TotalPoints: 1000}))
	assert.False(t, c.Matches(BadgeEvent{Kind: TriggerPoints, TotalPoints: 999}))
	assert.False(t, c.Matches(BadgeEvent{Kind: TriggerMastery, TotalPoints: 5000}))
}

func TestEvaluatorMatching(t *testing.T) {
	e := NewEvaluator(DefaultCatalog(DefaultCatalogRules()))

	matched := e.Matching(BadgeEvent{
		Kind:                     TriggerMastery,
		MasteriesInWindow:        5,
		Subject:                  "math",
		SubjectCompletionPercent: 100,
	})

	require.Len(t, matched, 2)
	ids := []string{matched[0].ID, matched[1].ID}
	assert.Contains(t, ids, "quick-learner")
	assert.Contains(t, ids, "subject-master")
}

func TestEvaluatorSkipsInactiveBadges(t *testing.T) {
	catalog := DefaultCatalog(DefaultCatalogRules())
	for _, b := range catalog {
		if b.ID == "consistency-king" {
			b.Active = false
		}
	}
	e := NewEvaluator(catalog)

	matched := e.Matching(BadgeEvent{Kind: TriggerStreak, StreakDays: 30})

	assert.Empty(t, matched)
}

func TestEvaluatorNoMatch(t *testing.T) {
	e := NewEvaluator(DefaultCatalog(DefaultCatalogRules()))

	assert.Empty(t, e.Matching(BadgeEvent{Kind: TriggerMastery, MasteriesInWindow: 1}))
	assert.Empty(t, e.Matching(BadgeEvent{Kind: TriggerPoints, TotalPoints: 500}))
}

func TestDefaultCatalogAllActive(t *testing.T) {
	catalog := DefaultCatalog(DefaultCatalogRules())

	require.Len(t, catalog, 4)
	for _, b := range catalog {
		assert.True(t, b.Active, b.ID)
		assert.NotEmpty(t, b.Criteria.Describe(), b.ID)
		assert.Positive(t, b.PointsValue, b.ID)
	}
}
