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
// GET PREDICTION QUERY
// Projects when the student will finish the curriculum at their current
// learning velocity.
// ══════════════════════════════════════════════════════════════════════════════

// ConceptCounter resolves the curriculum size from the content API.
type ConceptCounter interface {
	// TotalConceptCount returns how many concepts the curriculum holds.
	TotalConceptCount(ctx context.Context) (int, error)
}

// GetPredictionQuery contains the prediction request parameters.
type GetPredictionQuery struct {
	// StudentID is the student to project for.
	StudentID string
}

// Validate validates the query.
func (q *GetPredictionQuery) Validate() error {
	if q.StudentID == "" {
		return errors.New("student_id is required")
	}
	return nil
}

// GetPredictionResult contains the projection.
type GetPredictionResult struct {
	StudentID string `json:"student_id"`

	// EstimatedDays to completion; nil when velocity is zero.
	EstimatedDays *int `json:"estimated_days,omitempty"`

	// EstimatedCompletionDate; nil when velocity is zero.
	EstimatedCompletionDate *time.Time `json:"estimated_completion_date,omitempty"`

	// Confidence tier: high, medium, or low.
	Confidence string `json:"confidence"`

	// Velocity in concepts per active day.
	Velocity float64 `json:"velocity"`

	// RemainingConcepts left to complete.
	RemainingConcepts int `json:"remaining_concepts"`

	// Recommendation is the pace guidance text.
	Recommendation string `json:"recommendation"`

	GeneratedAt time.Time `json:"generated_at"`
}

// GetPredictionHandler handles the GetPredictionQuery.
type GetPredictionHandler struct {
	progressRepo progress.Repository
	catalog      ConceptCounter

	// velocityWindowDays bounds the velocity lookback.
	velocityWindowDays int
}

// NewGetPredictionHandler creates a new GetPredictionHandler.
func NewGetPredictionHandler(
	progressRepo progress.Repository,
	catalog ConceptCounter,
	velocityWindowDays int,
) *GetPredictionHandler {
	if velocityWindowDays <= 0 {
		velocityWindowDays = 30
	}
	return &GetPredictionHandler{
		progressRepo:       progressRepo,
		catalog:            catalog,
		velocityWindowDays: velocityWindowDays,
	}
}

// Handle executes the query.
func (h *GetPredictionHandler) Handle(ctx context.Context, q GetPredictionQuery) (*GetPredictionResult, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_prediction: %w", err)
	}

	attempts, err := h.progressRepo.ListByStudent(ctx, q.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get_prediction: load attempts: %w", err)
	}

	total, err := h.catalog.TotalConceptCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("get_prediction: curriculum size: %w", err)
	}

	done := 0
	for _, a := range attempts {
		if a.Status.IsAtLeast(progress.StatusCompleted) {
			done++
		}
	}
	remaining := total - done
	if remaining < 0 {
		remaining = 0
	}

	now := time.Now().UTC()
	windowStart := now.AddDate(0, 0, -h.velocityWindowDays)
	prediction := analytics.PredictCompletion(
		remaining,
		analytics.Velocity(attempts, windowStart),
		analytics.Consistency(attempts),
		now,
	)

	return &GetPredictionResult{
		StudentID:               q.StudentID,
		EstimatedDays:           prediction.EstimatedDays,
		EstimatedCompletionDate: prediction.EstimatedCompletionDate,
		Confidence:              string(prediction.Confidence),
		Velocity:                prediction.Velocity,
		RemainingConcepts:       remaining,
		Recommendation:          prediction.Recommendation,
		GeneratedAt:             now,
	}, nil
}
