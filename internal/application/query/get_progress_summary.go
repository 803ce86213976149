// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/G2-Spool/spool-progress-service/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS SUMMARY QUERY
// Returns a student's concept status rollup with their most recent activity.
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressSummaryQuery contains the summary request parameters.
type GetProgressSummaryQuery struct {
	// StudentID is the student to summarize.
	StudentID string

	// RecentLimit caps the recent-attempts list (default 10, max 50).
	RecentLimit int
}

// Validate validates and normalizes the query.
func (q *GetProgressSummaryQuery) Validate() error {
	if q.StudentID == "" {
		return errors.New("student_id is required")
	}
	if q.RecentLimit < 0 {
		return errors.New("recent_limit cannot be negative")
	}
	if q.RecentLimit == 0 {
		q.RecentLimit = 10
	}
	if q.RecentLimit > 50 {
		q.RecentLimit = 50
	}
	return nil
}

// ConceptAttemptDTO is the wire shape of one concept attempt.
type ConceptAttemptDTO struct {
	ConceptID       string     `json:"concept_id"`
	Subject         string     `json:"subject,omitempty"`
	Status          string     `json:"status"`
	Attempts        int        `json:"attempts"`
	CurrentScore    *float64   `json:"current_score,omitempty"`
	BestScore       *float64   `json:"best_score,omitempty"`
	LastAttemptedAt time.Time  `json:"last_attempted_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	MasteredAt      *time.Time `json:"mastered_at,omitempty"`
}

// GetProgressSummaryResult contains the summary.
type GetProgressSummaryResult struct {
	StudentID         string              `json:"student_id"`
	TotalConcepts     int                 `json:"total_concepts"`
	InProgress        int                 `json:"in_progress"`
	Completed         int                 `json:"completed"`
	Mastered          int                 `json:"mastered"`
	AverageScore      float64             `json:"average_score"`
	CompletionPercent float64             `json:"completion_percent"`
	LastActivityAt    *time.Time          `json:"last_activity_at,omitempty"`
	RecentAttempts    []ConceptAttemptDTO `json:"recent_attempts"`
	GeneratedAt       time.Time           `json:"generated_at"`
}

// GetProgressSummaryHandler handles the GetProgressSummaryQuery.
type GetProgressSummaryHandler struct {
	progressRepo progress.Repository
}

// NewGetProgressSummaryHandler creates a new GetProgressSummaryHandler.
func NewGetProgressSummaryHandler(progressRepo progress.Repository) *GetProgressSummaryHandler {
	return &GetProgressSummaryHandler{progressRepo: progressRepo}
}

// Handle executes the query.
func (h *GetProgressSummaryHandler) Handle(ctx context.Context, q GetProgressSummaryQuery) (*GetProgressSummaryResult, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_progress_summary: %w", err)
	}

	attempts, err := h.progressRepo.ListByStudent(ctx, q.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get_progress_summary: %w", err)
	}

	summary := progress.BuildSummary(q.StudentID, attempts, q.RecentLimit)

	result := &GetProgressSummaryResult{
		StudentID:         summary.StudentID,
		TotalConcepts:     summary.TotalConcepts,
		InProgress:        summary.InProgress,
		Completed:         summary.Completed,
		Mastered:          summary.Mastered,
		AverageScore:      summary.AverageScore,
		CompletionPercent: summary.CompletionPercent,
		RecentAttempts:    make([]ConceptAttemptDTO, 0, len(summary.RecentAttempts)),
		GeneratedAt:       time.Now().UTC(),
	}
	if !summary.LastActivityAt.IsZero() {
		t := summary.LastActivityAt
		result.LastActivityAt = &t
	}
	for _, a := range summary.RecentAttempts {
		result.RecentAttempts = append(result.RecentAttempts, toAttemptDTO(a))
	}

	return result, nil
}

// toAttemptDTO maps a domain attempt to its wire shape.
func toAttemptDTO(a *progress.ConceptAttempt) ConceptAttemptDTO {
	return ConceptAttemptDTO{
		ConceptID:       a.ConceptID,
		Subject:         a.Subject,
		Status:          string(a.Status),
		Attempts:        a.Attempts,
		CurrentScore:    a.CurrentScore,
		BestScore:       a.BestScore,
		LastAttemptedAt: a.LastAttemptedAt,
		CompletedAt:     a.CompletedAt,
		MasteredAt:      a.MasteredAt,
	}
}
