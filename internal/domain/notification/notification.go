// Package notification contains the notification domain: topics, the
// notification entity, and the delivery contract implemented by the
// gateway publisher in infrastructure.
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/G2-Spool/spool-progress-service/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// TOPIC
// ══════════════════════════════════════════════════════════════════════════════

// Topic is the closed set of notification kinds the service emits.
type Topic string

const (
	// TopicLevelUp - the student crossed a level boundary.
	TopicLevelUp Topic = "level_up"

	// TopicBadgeEarned - the student earned a badge.
	TopicBadgeEarned Topic = "badge_earned"

	// TopicStreakMilestone - the streak hit a milestone day count.
	TopicStreakMilestone Topic = "streak_milestone"

	// TopicStreakWarning - the streak lapses unless the student is
	// active before midnight.
	TopicStreakWarning Topic = "streak_warning"

	// TopicWeeklySummary - the Monday recap of last week's progress.
	TopicWeeklySummary Topic = "weekly_summary"

	// TopicDailyReminder - the scheduled nudge for inactive students.
	TopicDailyReminder Topic = "daily_reminder"
)

// IsValid checks if the topic is one of the recognized values.
func (t Topic) IsValid() bool {
	switch t {
	case TopicLevelUp, TopicBadgeEarned, TopicStreakMilestone,
		TopicStreakWarning, TopicWeeklySummary, TopicDailyReminder:
		return true
	}
	return false
}

// String returns the string representation.
func (t Topic) String() string {
	return string(t)
}

// FeatureName maps the topic to its notification feature flag.
func (t Topic) FeatureName() string {
	return "notify." + string(t)
}

// RespectsQuietHours reports whether deliveries on this topic are held
// during quiet hours. Streak warnings go out regardless: by the time the
// quiet window ends, the streak is gone.
func (t Topic) RespectsQuietHours() bool {
	return t != TopicStreakWarning
}

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION
// ══════════════════════════════════════════════════════════════════════════════

// Notification is one outbound message.
type Notification struct {
	// ID - unique notification identifier (UUID).
	ID string

	// StudentID - the recipient.
	StudentID string

	// Topic - what the notification is about.
	Topic Topic

	// Title - short headline.
	Title string

	// Body - message text.
	Body string

	// Data - structured attributes forwarded to the gateway.
	Data map[string]string

	// CreatedAt - when the notification was built.
	CreatedAt time.Time
}

// New builds a notification, validating the topic.
func New(id, studentID string, topic Topic, title, body string) (*Notification, error) {
	if !topic.IsValid() {
		return nil, shared.NewDomainError("notification", "New", shared.ErrInvalidTopic,
			fmt.Sprintf("unknown topic: %s", topic))
	}
	if studentID == "" {
		return nil, shared.NewDomainError("notification", "New", shared.ErrEmptyValue,
			"student ID is required")
	}
	return &Notification{
		ID:        id,
		StudentID: studentID,
		Topic:     topic,
		Title:     title,
		Body:      body,
		Data:      make(map[string]string),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// WithData attaches a structured attribute.
func (n *Notification) WithData(key, value string) *Notification {
	n.Data[key] = value
	return n
}

// ══════════════════════════════════════════════════════════════════════════════
// SENDER CONTRACT
// ══════════════════════════════════════════════════════════════════════════════

// Sender delivers notifications to the external gateway. Delivery is
// fire-and-forget from the caller's perspective: implementations retry
// and swallow terminal failures.
type Sender interface {
	// Send delivers one notification.
	Send(ctx context.Context, n *Notification) error
}
