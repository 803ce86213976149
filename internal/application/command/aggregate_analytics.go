package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/G2-Spool/spool-progress-service/internal/domain/analytics"
	"github.com/G2-Spool/spool-progress-service/internal/domain/gamification"
	"github.com/G2-Spool/spool-progress-service/internal/domain/progress"
	"github.com/G2-Spool/spool-progress-service/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// AGGREGATE ANALYTICS COMMAND
// Rolls a student's raw attempts, point history, and badge awards up into
// one aggregation record per (period, period_date). Rerunning the same
// period replaces the record, so the job is safely repeatable.
// ══════════════════════════════════════════════════════════════════════════════

// AggregateAnalyticsCommand identifies the aggregation to (re)compute.
type AggregateAnalyticsCommand struct {
	// StudentID is the student to aggregate.
	StudentID string

	// Period is the aggregation granularity.
	Period analytics.PeriodKind

	// Anchor is any instant inside the period to aggregate
	// (defaults to now if zero).
	Anchor time.Time
}

// Validate validates the command.
func (c AggregateAnalyticsCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("aggregate_analytics: student_id is required")
	}
	if !c.Period.IsValid() {
		return fmt.Errorf("aggregate_analytics: %w: %s", shared.ErrInvalidPeriod, c.Period)
	}
	return nil
}

// AggregateAnalyticsResult contains the computed record.
type AggregateAnalyticsResult struct {
	Record *analytics.AggregationRecord

	// Events contains domain events generated.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// AggregateAnalyticsHandler handles the AggregateAnalyticsCommand.
type AggregateAnalyticsHandler struct {
	progressRepo  progress.Repository
	pointsRepo    gamification.PointsRepository
	badgeRepo     gamification.BadgeRepository
	analyticsRepo analytics.Repository

	// secondsPerAttempt estimates time spent; real session tracking is
	// outside the event stream's reach.
	secondsPerAttempt int
}

// NewAggregateAnalyticsHandler creates a new AggregateAnalyticsHandler.
func NewAggregateAnalyticsHandler(
	progressRepo progress.Repository,
	pointsRepo gamification.PointsRepository,
	badgeRepo gamification.BadgeRepository,
	analyticsRepo analytics.Repository,
	secondsPerAttempt int,
) *AggregateAnalyticsHandler {
	if secondsPerAttempt <= 0 {
		secondsPerAttempt = 300
	}
	return &AggregateAnalyticsHandler{
		progressRepo:      progressRepo,
		pointsRepo:        pointsRepo,
		badgeRepo:         badgeRepo,
		analyticsRepo:     analyticsRepo,
		secondsPerAttempt: secondsPerAttempt,
	}
}

// Handle executes the aggregate analytics command.
func (h *AggregateAnalyticsHandler) Handle(ctx context.Context, cmd AggregateAnalyticsCommand) (*AggregateAnalyticsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("aggregate_analytics: validation failed: %w", err)
	}

	anchor := cmd.Anchor
	if anchor.IsZero() {
		anchor = time.Now().UTC()
	}

	start, end := analytics.ResolvePeriod(cmd.Period, anchor)
	// Queries use the half-open [start, end+1d) window so the inclusive
	// end date's full day is covered.
	until := end.AddDate(0, 0, 1)

	started, err := h.progressRepo.CountStartedInRange(ctx, cmd.StudentID, start, until)
	if err != nil {
		return nil, fmt.Errorf("aggregate_analytics: count started: %w", err)
	}
	completed, err := h.progressRepo.CountCompletedInRange(ctx, cmd.StudentID, start, until)
	if err != nil {
		return nil, fmt.Errorf("aggregate_analytics: count completed: %w", err)
	}
	mastered, err := h.progressRepo.CountMasteredInRange(ctx, cmd.StudentID, start, until)
	if err != nil {
		return nil, fmt.Errorf("aggregate_analytics: count mastered: %w", err)
	}
	attempts, err := h.progressRepo.SumAttemptsInRange(ctx, cmd.StudentID, start, until)
	if err != nil {
		return nil, fmt.Errorf("aggregate_analytics: sum attempts: %w", err)
	}
	averageScore, err := h.progressRepo.AverageScoreInRange(ctx, cmd.StudentID, start, until)
	if err != nil {
		return nil, fmt.Errorf("aggregate_analytics: average score: %w", err)
	}
	points, err := h.pointsRepo.SumHistoryInRange(ctx, cmd.StudentID, start, until)
	if err != nil {
		return nil, fmt.Errorf("aggregate_analytics: sum points: %w", err)
	}
	badges, err := h.badgeRepo.CountInRange(ctx, cmd.StudentID, start, until)
	if err != nil {
		return nil, fmt.Errorf("aggregate_analytics: count badges: %w", err)
	}

	now := time.Now().UTC()
	record := &analytics.AggregationRecord{
		ID:                uuid.NewString(),
		StudentID:         cmd.StudentID,
		Period:            cmd.Period,
		PeriodDate:        start,
		ConceptsStarted:   started,
		ConceptsCompleted: completed,
		ConceptsMastered:  mastered,
		TimeSpentSeconds:  attempts * h.secondsPerAttempt,
		AverageScore:      averageScore,
		PointsEarned:      points,
		BadgesEarned:      badges,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := h.analyticsRepo.Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("aggregate_analytics: upsert record: %w", err)
	}

	return &AggregateAnalyticsResult{
		Record: record,
		Events: []shared.Event{
			shared.NewAggregationCompletedEvent(cmd.StudentID, cmd.Period.String(), start),
		},
	}, nil
}
