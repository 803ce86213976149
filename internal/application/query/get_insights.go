package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/G2-Spool/spool-progress-service/internal/domain/analytics"
	"github.com/G2-Spool/spool-progress-service/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET INSIGHTS QUERY
// Computes a student's learning metrics and maps them to human-readable
// insights and recommendations.
// ══════════════════════════════════════════════════════════════════════════════

// GetInsightsQuery contains the insights request parameters.
type GetInsightsQuery struct {
	// StudentID is the student to analyze.
	StudentID string
}

// Validate validates the query.
func (q *GetInsightsQuery) Validate() error {
	if q.StudentID == "" {
		return errors.New("student_id is required")
	}
	return nil
}

// GetInsightsResult contains the generated report.
type GetInsightsResult struct {
	StudentID string `json:"student_id"`

	Insights        []string           `json:"insights"`
	Recommendations []string           `json:"recommendations"`
	MetricsSummary  map[string]float64 `json:"metrics_summary"`
	Patterns        map[string]any     `json:"patterns"`
	Strengths       []string           `json:"strengths"`
	Weaknesses      []string           `json:"weaknesses"`

	GeneratedAt time.Time `json:"generated_at"`
}

// GetInsightsHandler handles the GetInsightsQuery.
type GetInsightsHandler struct {
	progressRepo  progress.Repository
	analyticsRepo analytics.Repository

	// trendMaxRecords caps how many weekly records feed the trend fit.
	trendMaxRecords int
}

// NewGetInsightsHandler creates a new GetInsightsHandler.
func NewGetInsightsHandler(
	progressRepo progress.Repository,
	analyticsRepo analytics.Repository,
	trendMaxRecords int,
) *GetInsightsHandler {
	if trendMaxRecords <= 0 {
		trendMaxRecords = 8
	}
	return &GetInsightsHandler{
		progressRepo:    progressRepo,
		analyticsRepo:   analyticsRepo,
		trendMaxRecords: trendMaxRecords,
	}
}

// Handle executes the query.
func (h *GetInsightsHandler) Handle(ctx context.Context, q GetInsightsQuery) (*GetInsightsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_insights: %w", err)
	}

	attempts, err := h.progressRepo.ListByStudent(ctx, q.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get_insights: load attempts: %w", err)
	}

	weekly, err := h.analyticsRepo.ListRecentWeekly(ctx, q.StudentID, h.trendMaxRecords)
	if err != nil {
		return nil, fmt.Errorf("get_insights: load weekly records: %w", err)
	}

	strengths, weaknesses := analytics.StrengthsWeaknesses(attempts)
	report := analytics.GenerateInsights(analytics.InsightInputs{
		Trend:       analytics.WeeklyTrend(weekly),
		Accuracy:    averageScore(attempts),
		Consistency: analytics.Consistency(attempts),
		Strengths:   strengths,
		Weaknesses:  weaknesses,
	})

	return &GetInsightsResult{
		StudentID:       q.StudentID,
		Insights:        report.Insights,
		Recommendations: report.Recommendations,
		MetricsSummary:  report.MetricsSummary,
		Patterns:        report.Patterns,
		Strengths:       report.Strengths,
		Weaknesses:      report.Weaknesses,
		GeneratedAt:     time.Now().UTC(),
	}, nil
}

// averageScore is the mean current score over scored attempts.
func averageScore(attempts []*progress.ConceptAttempt) float64 {
	var sum float64
	var scored int
	for _, a := range attempts {
		if a.CurrentScore != nil {
			sum += *a.CurrentScore
			scored++
		}
	}
	if scored == 0 {
		return 0
	}
	return sum / float64(scored)
}
