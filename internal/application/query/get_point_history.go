package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/G2-Spool/spool-progress-service/internal/domain/gamification"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET POINT HISTORY QUERY
// Returns a student's point award log, newest first, paged.
// ══════════════════════════════════════════════════════════════════════════════

// GetPointHistoryQuery contains the history request parameters.
type GetPointHistoryQuery struct {
	// StudentID is the student whose history to read.
	StudentID string

	// Limit - number of entries (default 20, max 100).
	Limit int

	// Offset - pagination offset.
	Offset int
}

// Validate validates and normalizes the query.
func (q *GetPointHistoryQuery) Validate() error {
	if q.StudentID == "" {
		return errors.New("student_id is required")
	}
	if q.Limit < 0 || q.Offset < 0 {
		return errors.New("limit and offset cannot be negative")
	}
	if q.Limit == 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}

// PointHistoryEntryDTO is the wire shape of one award log entry.
type PointHistoryEntryDTO struct {
	Delta     int       `json:"delta"`
	Reason    string    `json:"reason"`
	ConceptID string    `json:"concept_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// GetPointHistoryResult contains the history page.
type GetPointHistoryResult struct {
	StudentID string                 `json:"student_id"`
	Entries   []PointHistoryEntryDTO `json:"entries"`
	Limit     int                    `json:"limit"`
	Offset    int                    `json:"offset"`
}

// GetPointHistoryHandler handles the GetPointHistoryQuery.
type GetPointHistoryHandler struct {
	pointsRepo gamification.PointsRepository
}

// NewGetPointHistoryHandler creates a new GetPointHistoryHandler.
func NewGetPointHistoryHandler(pointsRepo gamification.PointsRepository) *GetPointHistoryHandler {
	return &GetPointHistoryHandler{pointsRepo: pointsRepo}
}

// Handle executes the query.
func (h *GetPointHistoryHandler) Handle(ctx context.Context, q GetPointHistoryQuery) (*GetPointHistoryResult, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_point_history: %w", err)
	}

	entries, err := h.pointsRepo.ListHistory(ctx, q.StudentID, q.Limit, q.Offset)
	if err != nil {
		return nil, fmt.Errorf("get_point_history: %w", err)
	}

	result := &GetPointHistoryResult{
		StudentID: q.StudentID,
		Entries:   make([]PointHistoryEntryDTO, 0, len(entries)),
		Limit:     q.Limit,
		Offset:    q.Offset,
	}
	for _, e := range entries {
		result.Entries = append(result.Entries, PointHistoryEntryDTO{
			Delta:     e.Delta,
			Reason:    e.Reason,
			ConceptID: e.ConceptID,
			CreatedAt: e.CreatedAt,
		})
	}
	return result, nil
}
