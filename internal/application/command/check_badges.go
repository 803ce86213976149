package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/G2-Spool/spool-progress-service/internal/domain/gamification"
	"github.com/G2-Spool/spool-progress-service/internal/domain/shared"
	"github.com/G2-Spool/spool-progress-service/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHECK BADGES COMMAND
// Evaluates the badge catalog against a gamification event and persists
// any newly earned awards. Awards are idempotent per (student, badge).
// ══════════════════════════════════════════════════════════════════════════════

// CheckBadgesCommand contains the event to evaluate badges against.
type CheckBadgesCommand struct {
	// StudentID is the student the event belongs to.
	StudentID string

	// Event carries the facts criteria are evaluated against.
	Event gamification.BadgeEvent

	// Timestamp is when the trigger occurred (defaults to now if zero).
	Timestamp time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c CheckBadgesCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("check_badges: student_id is required")
	}
	if c.Event.Kind == "" {
		return errors.New("check_badges: trigger kind is required")
	}
	return nil
}

// CheckBadgesResult contains the result of a badge evaluation.
type CheckBadgesResult struct {
	// Earned lists the badges newly awarded by this evaluation.
	Earned []*gamification.Badge

	// BonusPoints is the sum of badge point values credited.
	BonusPoints int

	// Events contains domain events generated.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// CheckBadgesHandler handles the CheckBadgesCommand.
type CheckBadgesHandler struct {
	evaluator *gamification.Evaluator
	badgeRepo gamification.BadgeRepository
	points    *AwardPointsHandler
	log       *logger.Logger
}

// NewCheckBadgesHandler creates a new CheckBadgesHandler.
func NewCheckBadgesHandler(
	evaluator *gamification.Evaluator,
	badgeRepo gamification.BadgeRepository,
	points *AwardPointsHandler,
	log *logger.Logger,
) *CheckBadgesHandler {
	return &CheckBadgesHandler{
		evaluator: evaluator,
		badgeRepo: badgeRepo,
		points:    points,
		log:       log,
	}
}

// Handle executes the check badges command. Evaluation is best-effort
// per badge: one failed award never blocks the others, and a duplicate
// award resolves silently to the existing one.
func (h *CheckBadgesHandler) Handle(ctx context.Context, cmd CheckBadgesCommand) (*CheckBadgesResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("check_badges: validation failed: %w", err)
	}

	at := cmd.Timestamp
	if at.IsZero() {
		at = time.Now().UTC()
	}

	result := &CheckBadgesResult{Events: make([]shared.Event, 0)}

	for _, badge := range h.evaluator.Matching(cmd.Event) {
		award := &gamification.UserBadgeAward{
			StudentID: cmd.StudentID,
			BadgeID:   badge.ID,
			EarnedAt:  at,
		}

		if err := h.badgeRepo.Award(ctx, award); err != nil {
			if errors.Is(err, shared.ErrBadgeAlreadyAwarded) {
				continue
			}
			h.log.Error("badge award failed",
				logger.StudentID(cmd.StudentID),
				logger.String("badge_id", badge.ID),
				logger.Err(err),
			)
			continue
		}

		result.Earned = append(result.Earned, badge)
		result.BonusPoints += badge.PointsValue

		earned := shared.NewBadgeEarnedEvent(cmd.StudentID, badge.ID, badge.Name, badge.Description)
		if cmd.CorrelationID != "" {
			earned.BaseEvent = earned.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		result.Events = append(result.Events, earned)

		// Badge point bonus rides the normal award path, so it shows up
		// in the history and can itself trip the point-collector badge
		// on the next points event.
		if badge.PointsValue > 0 && h.points != nil {
			bonus, err := h.points.Credit(ctx, cmd.StudentID, badge.PointsValue, "badge:"+badge.ID, "", at)
			if err != nil {
				h.log.Error("badge bonus credit failed",
					logger.StudentID(cmd.StudentID),
					logger.String("badge_id", badge.ID),
					logger.Err(err),
				)
				continue
			}
			result.Events = append(result.Events, bonus.Events...)
		}
	}

	return result, nil
}
