package eventhandler

import (
	"context"
	"fmt"

	"github.com/G2-Spool/spool-progress-service/internal/domain/notification"
	"github.com/G2-Spool/spool-progress-service/internal/domain/shared"
	"github.com/G2-Spool/spool-progress-service/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ON BADGE EARNED HANDLER
// Tells the student about a freshly awarded badge.
// ══════════════════════════════════════════════════════════════════════════════

// OnBadgeEarnedHandler handles BadgeEarnedEvent.
type OnBadgeEarnedHandler struct {
	notifier *Notifier
	log      *logger.Logger
}

// NewOnBadgeEarnedHandler creates a new OnBadgeEarnedHandler.
func NewOnBadgeEarnedHandler(notifier *Notifier, log *logger.Logger) *OnBadgeEarnedHandler {
	return &OnBadgeEarnedHandler{notifier: notifier, log: log}
}

// Handle implements shared.EventHandler.
func (h *OnBadgeEarnedHandler) Handle(event shared.Event) error {
	earned, ok := event.(shared.BadgeEarnedEvent)
	if !ok {
		h.log.Warn("unexpected event type", logger.String("event_type", string(event.EventType())))
		return nil
	}

	body := earned.Description
	if body == "" {
		body = "A new badge is waiting in your trophy case."
	}

	h.notifier.Deliver(context.Background(), earned.StudentID, notification.TopicBadgeEarned,
		fmt.Sprintf("Badge earned: %s", earned.BadgeName),
		body,
		map[string]string{
			"badge_id":   earned.BadgeID,
			"badge_name": earned.BadgeName,
		},
	)
	return nil
}
