package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/G2-Spool/spool-progress-service/internal/domain/gamification"
	"github.com/G2-Spool/spool-progress-service/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE STREAK COMMAND
// Applies a day of learning activity to the student's streak record.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateStreakCommand contains the data to update a streak.
type UpdateStreakCommand struct {
	// StudentID is the student whose streak to update.
	StudentID string

	// Timestamp is when the activity occurred (defaults to now if zero).
	Timestamp time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c UpdateStreakCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("update_streak: student_id is required")
	}
	return nil
}

// UpdateStreakResult contains the result of updating a streak.
type UpdateStreakResult struct {
	// CurrentStreak is the streak after the update.
	CurrentStreak int

	// LongestStreak is the all-time record after the update.
	LongestStreak int

	// Extended indicates the streak grew by one day.
	Extended bool

	// Reset indicates a gap forced the streak back to 1.
	Reset bool

	// PreviousStreak is the streak lost to a reset, 0 otherwise.
	PreviousStreak int

	// Events contains domain events generated.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// UpdateStreakHandler handles the UpdateStreakCommand.
type UpdateStreakHandler struct {
	tx         TxRunner
	streakRepo gamification.StreakRepository
}

// NewUpdateStreakHandler creates a new UpdateStreakHandler.
func NewUpdateStreakHandler(tx TxRunner, streakRepo gamification.StreakRepository) *UpdateStreakHandler {
	return &UpdateStreakHandler{tx: tx, streakRepo: streakRepo}
}

// Handle executes the update streak command. Same-day repeats are
// no-ops and emit no events.
func (h *UpdateStreakHandler) Handle(ctx context.Context, cmd UpdateStreakCommand) (*UpdateStreakResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("update_streak: validation failed: %w", err)
	}

	at := cmd.Timestamp
	if at.IsZero() {
		at = time.Now().UTC()
	}

	result := &UpdateStreakResult{Events: make([]shared.Event, 0)}

	err := h.tx.RunInTx(ctx, func(ctx context.Context) error {
		state, err := h.streakRepo.GetStateForUpdate(ctx, cmd.StudentID)
		if err != nil {
			if !errors.Is(err, shared.ErrStreakNotFound) {
				return fmt.Errorf("load streak state: %w", err)
			}
			state = gamification.NewStreakState(cmd.StudentID, at)
		}

		update := state.RecordActivity(at)
		if update.Changed {
			if err := h.streakRepo.SaveState(ctx, state); err != nil {
				return fmt.Errorf("save streak state: %w", err)
			}
		}

		result.CurrentStreak = update.CurrentStreak
		result.LongestStreak = update.LongestStreak
		result.Extended = update.Extended
		result.Reset = update.Reset
		result.PreviousStreak = update.PreviousStreak

		if update.Reset {
			broken := shared.NewStreakBrokenEvent(cmd.StudentID, update.PreviousStreak, update.DaysMissed)
			if cmd.CorrelationID != "" {
				broken.BaseEvent = broken.BaseEvent.WithCorrelationID(cmd.CorrelationID)
			}
			result.Events = append(result.Events, broken)
		}
		if update.Changed {
			updated := shared.NewStreakUpdatedEvent(cmd.StudentID, update.CurrentStreak, update.LongestStreak)
			if cmd.CorrelationID != "" {
				updated.BaseEvent = updated.BaseEvent.WithCorrelationID(cmd.CorrelationID)
			}
			result.Events = append(result.Events, updated)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update_streak: %w", err)
	}

	return result, nil
}
