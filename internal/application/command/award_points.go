// Package command contains write operations (CQRS - Commands).
package command

import (
	"errors"
	"fmt"
	"time"

	"context"

	"github.com/google/uuid"

	"github.com/G2-Spool/spool-progress-service/internal/domain/gamification"
	"github.com/G2-Spool/spool-progress-service/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// AWARD POINTS COMMAND
// Credits points for a learning event, recomputes the level, and records
// the award in the immutable point history.
// ══════════════════════════════════════════════════════════════════════════════

// AwardPointsCommand contains the data to award points.
type AwardPointsCommand struct {
	// StudentID is the student earning the points.
	StudentID string

	// Kind is the learning event kind the award is for.
	Kind shared.LearningEventKind

	// Score is the assessment score, nil if unscored. A score of 100
	// implies the perfect-score bonus on mastery.
	Score *float64

	// Perfect marks the attempt as flawless regardless of score. Drives
	// the perfect-score bonus on mastery.
	Perfect bool

	// CompletionTime is how long the completion took, nil if unknown.
	// Drives the speed bonus on mastery.
	CompletionTime *time.Duration

	// ConceptID is the concept that triggered the award, empty if none.
	ConceptID string

	// Timestamp is when the event occurred (defaults to now if zero).
	Timestamp time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c AwardPointsCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("award_points: student_id is required")
	}
	if !c.Kind.IsValid() {
		return fmt.Errorf("award_points: unknown event kind: %s", c.Kind)
	}
	return nil
}

// AwardPointsResult contains the result of awarding points.
type AwardPointsResult struct {
	// PointsAwarded is the delta credited, bonuses included.
	PointsAwarded int

	// TotalPoints is the balance after the award.
	TotalPoints int

	// Level is the level after the award.
	Level int

	// PointsToNextLevel is the remaining distance to the next level.
	PointsToNextLevel int

	// LeveledUp indicates a level boundary was crossed.
	LeveledUp bool

	// Events contains domain events generated.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// AwardPointsHandler handles the AwardPointsCommand.
type AwardPointsHandler struct {
	tx         TxRunner
	pointsRepo gamification.PointsRepository
	calculator *gamification.PointsCalculator
	levelScale int
}

// NewAwardPointsHandler creates a new AwardPointsHandler.
func NewAwardPointsHandler(
	tx TxRunner,
	pointsRepo gamification.PointsRepository,
	calculator *gamification.PointsCalculator,
	levelScale int,
) *AwardPointsHandler {
	if levelScale <= 0 {
		levelScale = shared.DefaultLevelScale
	}
	return &AwardPointsHandler{
		tx:         tx,
		pointsRepo: pointsRepo,
		calculator: calculator,
		levelScale: levelScale,
	}
}

// Handle executes the award points command. The read-modify-write runs
// under a row lock so concurrent awards for the same student serialize.
func (h *AwardPointsHandler) Handle(ctx context.Context, cmd AwardPointsCommand) (*AwardPointsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("award_points: validation failed: %w", err)
	}

	delta, err := h.calculator.Calculate(cmd.Kind, gamification.EventContext{
		Score:          cmd.Score,
		Perfect:        cmd.Perfect,
		CompletionTime: cmd.CompletionTime,
	})
	if err != nil {
		return nil, fmt.Errorf("award_points: %w", err)
	}

	return h.credit(ctx, cmd.StudentID, delta, cmd.Kind.String(), cmd.ConceptID, cmd.Timestamp, cmd.CorrelationID)
}

// Credit awards a precomputed point delta outside the event kind table.
// Used for badge bonus points and scheduled goal awards.
func (h *AwardPointsHandler) Credit(ctx context.Context, studentID string, delta int, reason, conceptID string, at time.Time) (*AwardPointsResult, error) {
	if studentID == "" {
		return nil, errors.New("award_points: student_id is required")
	}
	return h.credit(ctx, studentID, delta, reason, conceptID, at, "")
}

func (h *AwardPointsHandler) credit(ctx context.Context, studentID string, delta int, reason, conceptID string, at time.Time, correlationID string) (*AwardPointsResult, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	result := &AwardPointsResult{Events: make([]shared.Event, 0)}
	var oldLevel int

	err := h.tx.RunInTx(ctx, func(ctx context.Context) error {
		state, err := h.pointsRepo.GetStateForUpdate(ctx, studentID)
		if err != nil {
			if !errors.Is(err, shared.ErrPointsNotFound) {
				return fmt.Errorf("load points state: %w", err)
			}
			state = gamification.NewPointsState(studentID, at)
		}

		award, err := state.Award(delta, h.levelScale, at)
		if err != nil {
			return err
		}

		if err := h.pointsRepo.SaveState(ctx, state); err != nil {
			return fmt.Errorf("save points state: %w", err)
		}

		entry := &gamification.PointHistoryEntry{
			ID:        uuid.NewString(),
			StudentID: studentID,
			Delta:     award.Delta,
			Reason:    reason,
			ConceptID: conceptID,
			CreatedAt: at,
		}
		if err := h.pointsRepo.AppendHistory(ctx, entry); err != nil {
			return fmt.Errorf("append point history: %w", err)
		}

		oldLevel = award.OldLevel
		result.PointsAwarded = award.Delta
		result.TotalPoints = award.NewTotal
		result.Level = award.NewLevel
		result.PointsToNextLevel = state.PointsToNextLevel
		result.LeveledUp = award.LeveledUp
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("award_points: %w", err)
	}

	awarded := shared.NewPointsAwardedEvent(studentID, result.PointsAwarded, result.TotalPoints, reason, conceptID)
	if correlationID != "" {
		awarded.BaseEvent = awarded.BaseEvent.WithCorrelationID(correlationID)
	}
	result.Events = append(result.Events, awarded)

	if result.LeveledUp {
		levelUp := shared.NewLevelUpEvent(studentID, oldLevel, result.Level, result.TotalPoints)
		if correlationID != "" {
			levelUp.BaseEvent = levelUp.BaseEvent.WithCorrelationID(correlationID)
		}
		result.Events = append(result.Events, levelUp)
	}

	return result, nil
}
