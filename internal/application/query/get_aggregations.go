package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/G2-Spool/spool-progress-service/internal/domain/analytics"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET AGGREGATIONS QUERY
// Returns a student's aggregation records for a period kind, oldest first.
// ══════════════════════════════════════════════════════════════════════════════

// GetAggregationsQuery contains the aggregation listing parameters.
type GetAggregationsQuery struct {
	// StudentID is the student whose records to list.
	StudentID string

	// Period is the bucket size to list ("daily", "weekly", "monthly").
	Period string

	// Limit - number of records (default 30, max 100).
	Limit int
}

// Validate validates and normalizes the query.
func (q *GetAggregationsQuery) Validate() error {
	if q.StudentID == "" {
		return errors.New("student_id is required")
	}
	if q.Limit < 0 {
		return errors.New("limit cannot be negative")
	}
	if q.Limit == 0 {
		q.Limit = 30
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}

// AggregationDTO is the wire shape of one aggregation record.
type AggregationDTO struct {
	Period            string  `json:"period"`
	PeriodDate        string  `json:"period_date"`
	ConceptsStarted   int     `json:"concepts_started"`
	ConceptsCompleted int     `json:"concepts_completed"`
	ConceptsMastered  int     `json:"concepts_mastered"`
	TimeSpentSeconds  int     `json:"time_spent_seconds"`
	AverageScore      float64 `json:"average_score"`
	PointsEarned      int     `json:"points_earned"`
	BadgesEarned      int     `json:"badges_earned"`
}

// GetAggregationsResult contains the records.
type GetAggregationsResult struct {
	StudentID   string           `json:"student_id"`
	Period      string           `json:"period"`
	Records     []AggregationDTO `json:"records"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// GetAggregationsHandler handles the GetAggregationsQuery.
type GetAggregationsHandler struct {
	analyticsRepo analytics.Repository
}

// NewGetAggregationsHandler creates a new GetAggregationsHandler.
func NewGetAggregationsHandler(analyticsRepo analytics.Repository) *GetAggregationsHandler {
	return &GetAggregationsHandler{analyticsRepo: analyticsRepo}
}

// Handle executes the query.
func (h *GetAggregationsHandler) Handle(ctx context.Context, q GetAggregationsQuery) (*GetAggregationsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_aggregations: %w", err)
	}

	period, err := analytics.NewPeriodKind(q.Period)
	if err != nil {
		return nil, fmt.Errorf("get_aggregations: %w", err)
	}

	records, err := h.analyticsRepo.ListByStudent(ctx, q.StudentID, period, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("get_aggregations: %w", err)
	}

	result := &GetAggregationsResult{
		StudentID:   q.StudentID,
		Period:      period.String(),
		Records:     make([]AggregationDTO, 0, len(records)),
		GeneratedAt: time.Now().UTC(),
	}
	for _, r := range records {
		result.Records = append(result.Records, AggregationDTO{
			Period:            r.Period.String(),
			PeriodDate:        r.PeriodDate.Format("2006-01-02"),
			ConceptsStarted:   r.ConceptsStarted,
			ConceptsCompleted: r.ConceptsCompleted,
			ConceptsMastered:  r.ConceptsMastered,
			TimeSpentSeconds:  r.TimeSpentSeconds,
			AverageScore:      r.AverageScore,
			PointsEarned:      r.PointsEarned,
			BadgesEarned:      r.BadgesEarned,
		})
	}
	return result, nil
}
