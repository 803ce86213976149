// Package eventhandler contains domain event handlers. They are the
// reactive part of the system: each one listens for a gamification event
// and turns it into a student-facing notification, honoring feature
// flags and quiet hours.
package eventhandler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/G2-Spool/spool-progress-service/config"
	"github.com/G2-Spool/spool-progress-service/internal/domain/notification"
	"github.com/G2-Spool/spool-progress-service/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFIER
// Shared delivery policy for all notification-producing handlers.
// ══════════════════════════════════════════════════════════════════════════════

// Notifier applies the delivery policy (enabled, per-topic flag, quiet
// hours) before handing a notification to the sender.
type Notifier struct {
	sender   notification.Sender
	flags    *config.FeatureFlags
	cfg      config.NotificationConfig
	timezone *time.Location
	log      *logger.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewNotifier creates a Notifier.
func NewNotifier(
	sender notification.Sender,
	flags *config.FeatureFlags,
	cfg config.NotificationConfig,
	timezone *time.Location,
	log *logger.Logger,
) *Notifier {
	if timezone == nil {
		timezone = time.UTC
	}
	return &Notifier{
		sender:   sender,
		flags:    flags,
		cfg:      cfg,
		timezone: timezone,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Deliver sends a notification if policy allows. Suppression is not an
// error; delivery failures are logged, never propagated.
func (n *Notifier) Deliver(ctx context.Context, studentID string, topic notification.Topic, title, body string, data map[string]string) {
	if !n.cfg.Enabled {
		return
	}

	featureCtx := &config.FeatureContext{StudentID: studentID}
	if !n.flags.NotificationsEnabled(featureCtx) || !n.flags.IsEnabled(topic.FeatureName(), featureCtx) {
		return
	}

	if topic.RespectsQuietHours() && n.inQuietHours() {
		n.log.Debug("notification held for quiet hours",
			logger.StudentID(studentID),
			logger.String("topic", topic.String()),
		)
		return
	}

	msg, err := notification.New(uuid.NewString(), studentID, topic, title, body)
	if err != nil {
		n.log.Error("notification build failed", logger.StudentID(studentID), logger.Err(err))
		return
	}
	for k, v := range data {
		msg.WithData(k, v)
	}

	if err := n.sender.Send(ctx, msg); err != nil {
		n.log.Warn("notification delivery failed",
			logger.StudentID(studentID),
			logger.String("topic", topic.String()),
			logger.Err(err),
		)
	}
}

// inQuietHours reports whether the current local hour falls inside the
// configured overnight window [start, end).
func (n *Notifier) inQuietHours() bool {
	hour := n.now().In(n.timezone).Hour()
	start, end := n.cfg.QuietHourStart, n.cfg.QuietHourEnd
	if start == end {
		return false
	}
	if start < end {
		return hour >= start && hour < end
	}
	// Overnight window, e.g. 22 to 8.
	return hour >= start || hour < end
}
