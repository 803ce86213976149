package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateInsightsDecliningPace(t *testing.T) {
	report := GenerateInsights(InsightInputs{
		Trend:       &Trend{Slope: -0.5, RecentWeeks: 4, PeakWeek: date(2026, time.March, 2)},
		Accuracy:    85,
		Consistency: 0.7,
	})

	assert.Contains(t, report.Insights, "Your learning pace has decreased by 50% recently.")
	assert.Contains(t, report.Recommendations, "Try shorter, more frequent study sessions to maintain momentum.")
}

func TestGenerateInsightsImprovingPace(t *testing.T) {
	report := GenerateInsights(InsightInputs{
		Trend:       &Trend{Slope: 0.3, RecentWeeks: 4, PeakWeek: date(2026, time.March, 2)},
		Accuracy:    85,
		Consistency: 0.7,
	})

	assert.Contains(t, report.Insights, "Great job! Your learning pace has increased by 30%.")
	assert.Empty(t, report.Recommendations)
}

func TestGenerateInsightsFlatSlopeSaysNothing(t *testing.T) {
	report := GenerateInsights(InsightInputs{
		Trend:       &Trend{Slope: 0.1, RecentWeeks: 3, PeakWeek: date(2026, time.March, 2)},
		Accuracy:    85,
		Consistency: 0.7,
	})

	assert.Empty(t, report.Insights)
}

func TestGenerateInsightsLowAccuracyAndConsistency(t *testing.T) {
	report := GenerateInsights(InsightInputs{
		Accuracy:    55,
		Consistency: 0.2,
	})

	assert.Contains(t, report.Insights, "Your accuracy is below optimal levels.")
	assert.Contains(t, report.Recommendations, "Review difficult concepts before moving to new material.")
	assert.Contains(t, report.Insights, "Your study pattern is irregular.")
	assert.Contains(t, report.Recommendations, "Set a daily reminder to maintain consistent progress.")
}

func TestGenerateInsightsStrengthsAndWeaknessesCapped(t *testing.T) {
	report := GenerateInsights(InsightInputs{
		Accuracy:    85,
		Consistency: 0.7,
		Strengths:   []string{"math", "physics", "chemistry", "biology"},
		Weaknesses:  []string{"history", "art", "music", "drama"},
	})

	assert.Contains(t, report.Insights, "You excel at: math, physics, chemistry")
	assert.Contains(t, report.Recommendations, "Focus more on: history, art, music")

	// the report echoes the full lists, only the text is capped
	assert.Len(t, report.Strengths, 4)
	assert.Len(t, report.Weaknesses, 4)
}

func TestGenerateInsightsPatterns(t *testing.T) {
	peak := date(2026, time.March, 9)
	report := GenerateInsights(InsightInputs{
		Trend:       &Trend{Slope: 0.3, RecentWeeks: 5, PeakWeek: peak},
		Accuracy:    90,
		Consistency: 0.8,
	})

	require.NotNil(t, report.Patterns)
	assert.Equal(t, 0.3, report.Patterns["velocity_trend"])
	assert.Equal(t, 5, report.Patterns["recent_weeks"])
	assert.Equal(t, "2026-03-09", report.Patterns["peak_week"])

	assert.Equal(t, 90.0, report.MetricsSummary["accuracy"])
	assert.Equal(t, 0.8, report.MetricsSummary["consistency"])
}

func TestGenerateInsightsNoTrendOmitsPatterns(t *testing.T) {
	report := GenerateInsights(InsightInputs{Accuracy: 90, Consistency: 0.8})

	assert.Empty(t, report.Patterns)
	assert.Empty(t, report.Insights)
	assert.Empty(t, report.Recommendations)
}
