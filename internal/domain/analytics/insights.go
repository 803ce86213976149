package analytics

import (
	"fmt"
	"math"
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// INSIGHT GENERATOR
// ══════════════════════════════════════════════════════════════════════════════

// InsightInputs are the computed metrics the generator maps to text.
type InsightInputs struct {
	// Trend - weekly velocity trend, nil when too little history.
	Trend *Trend

	// Accuracy - recent average score (0-100).
	Accuracy float64

	// Consistency - regularity measure (0-1).
	Consistency float64

	// Strengths - subjects the student excels at, best first.
	Strengths []string

	// Weaknesses - subjects below the acceptable score bar.
	Weaknesses []string
}

// InsightReport is the generated text plus the raw numbers it came from,
// for downstream display.
type InsightReport struct {
	Insights        []string           `json:"insights"`
	Recommendations []string           `json:"recommendations"`
	MetricsSummary  map[string]float64 `json:"metrics_summary"`
	Patterns        map[string]any     `json:"patterns"`
	Strengths       []string           `json:"strengths"`
	Weaknesses      []string           `json:"weaknesses"`
}

// Insight thresholds.
const (
	trendSlopeThreshold  = 0.2
	accuracyThreshold    = 70.0
	consistencyThreshold = 0.5
)

// GenerateInsights maps metrics to insight/recommendation strings via
// fixed rule thresholds. Pure; no side effects.
func GenerateInsights(in InsightInputs) *InsightReport {
	insights := []string{}
	recommendations := []string{}

	if in.Trend != nil {
		slope := in.Trend.Slope
		if slope < -trendSlopeThreshold {
			insights = append(insights,
				fmt.Sprintf("Your learning pace has decreased by %.0f%% recently.", math.Abs(slope)*100))
			recommendations = append(recommendations,
				"Try shorter, more frequent study sessions to maintain momentum.")
		} else if slope > trendSlopeThreshold {
			insights = append(insights,
				fmt.Sprintf("Great job! Your learning pace has increased by %.0f%%.", slope*100))
		}
	}

	if in.Accuracy < accuracyThreshold {
		insights = append(insights, "Your accuracy is below optimal levels.")
		recommendations = append(recommendations, "Review difficult concepts before moving to new material.")
	}

	if in.Consistency < consistencyThreshold {
		insights = append(insights, "Your study pattern is irregular.")
		recommendations = append(recommendations, "Set a daily reminder to maintain consistent progress.")
	}

	if len(in.Strengths) > 0 {
		top := in.Strengths
		if len(top) > 3 {
			top = top[:3]
		}
		insights = append(insights, "You excel at: "+strings.Join(top, ", "))
	}

	if len(in.Weaknesses) > 0 {
		weak := in.Weaknesses
		if len(weak) > 3 {
			weak = weak[:3]
		}
		recommendations = append(recommendations, "Focus more on: "+strings.Join(weak, ", "))
	}

	patterns := map[string]any{}
	if in.Trend != nil {
		patterns["velocity_trend"] = in.Trend.Slope
		patterns["recent_weeks"] = in.Trend.RecentWeeks
		patterns["peak_week"] = in.Trend.PeakWeek.Format("2006-01-02")
	}

	return &InsightReport{
		Insights:        insights,
		Recommendations: recommendations,
		MetricsSummary: map[string]float64{
			"accuracy":    in.Accuracy,
			"consistency": in.Consistency,
		},
		Patterns:   patterns,
		Strengths:  in.Strengths,
		Weaknesses: in.Weaknesses,
	}
}
