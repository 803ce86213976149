package eventhandler

import (
	"context"
	"fmt"
	"strconv"

	"github.com/G2-Spool/spool-progress-service/internal/domain/notification"
	"github.com/G2-Spool/spool-progress-service/internal/domain/shared"
	"github.com/G2-Spool/spool-progress-service/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ON STREAK UPDATED HANDLER
// Celebrates streak milestones. Every streak day is an event, but only
// milestone days produce a notification; anything more would be spam.
// ══════════════════════════════════════════════════════════════════════════════

// streakMilestones are the day counts worth a notification.
var streakMilestones = []int{3, 7, 14, 30, 60, 100, 365}

// OnStreakUpdatedHandler handles StreakUpdatedEvent.
type OnStreakUpdatedHandler struct {
	notifier *Notifier
	log      *logger.Logger
}

// NewOnStreakUpdatedHandler creates a new OnStreakUpdatedHandler.
func NewOnStreakUpdatedHandler(notifier *Notifier, log *logger.Logger) *OnStreakUpdatedHandler {
	return &OnStreakUpdatedHandler{notifier: notifier, log: log}
}

// Handle implements shared.EventHandler.
func (h *OnStreakUpdatedHandler) Handle(event shared.Event) error {
	updated, ok := event.(shared.StreakUpdatedEvent)
	if !ok {
		h.log.Warn("unexpected event type", logger.String("event_type", string(event.EventType())))
		return nil
	}

	if !isMilestone(updated.CurrentStreak) {
		return nil
	}

	body := fmt.Sprintf("You've learned %d days in a row. Don't break the chain!", updated.CurrentStreak)
	if updated.IsNewRecord {
		body = fmt.Sprintf("%d days in a row - a new personal record!", updated.CurrentStreak)
	}

	h.notifier.Deliver(context.Background(), updated.StudentID, notification.TopicStreakMilestone,
		fmt.Sprintf("%d-day streak!", updated.CurrentStreak),
		body,
		map[string]string{
			"current_streak": strconv.Itoa(updated.CurrentStreak),
			"longest_streak": strconv.Itoa(updated.LongestStreak),
		},
	)
	return nil
}

func isMilestone(days int) bool {
	for _, m := range streakMilestones {
		if days == m {
			return true
		}
	}
	return false
}
