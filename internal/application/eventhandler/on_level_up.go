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
// ON LEVEL UP HANDLER
// Congratulates the student when they cross a level boundary.
// ══════════════════════════════════════════════════════════════════════════════

// OnLevelUpHandler handles LevelUpEvent.
type OnLevelUpHandler struct {
	notifier *Notifier
	log      *logger.Logger
}

// NewOnLevelUpHandler creates a new OnLevelUpHandler.
func NewOnLevelUpHandler(notifier *Notifier, log *logger.Logger) *OnLevelUpHandler {
	return &OnLevelUpHandler{notifier: notifier, log: log}
}

// Handle implements shared.EventHandler.
func (h *OnLevelUpHandler) Handle(event shared.Event) error {
	levelUp, ok := event.(shared.LevelUpEvent)
	if !ok {
		h.log.Warn("unexpected event type", logger.String("event_type", string(event.EventType())))
		return nil
	}

	level := shared.Level(levelUp.NewLevel)
	h.notifier.Deliver(context.Background(), levelUp.StudentID, notification.TopicLevelUp,
		fmt.Sprintf("Level %d reached!", levelUp.NewLevel),
		fmt.Sprintf("You're now a %s with %d points. Keep it up!", level.Title(), levelUp.TotalPoints),
		map[string]string{
			"old_level":    strconv.Itoa(levelUp.OldLevel),
			"new_level":    strconv.Itoa(levelUp.NewLevel),
			"total_points": strconv.Itoa(levelUp.TotalPoints),
		},
	)
	return nil
}
