// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Progress events
	EventConceptStarted   EventType = "progress.concept_started"
	EventConceptCompleted EventType = "progress.concept_completed"
	EventConceptMastered  EventType = "progress.concept_mastered"

	// Gamification events
	EventPointsAwarded EventType = "gamification.points_awarded"
	EventLevelUp       EventType = "gamification.level_up"
	EventStreakUpdated EventType = "gamification.streak_updated"
	EventStreakBroken  EventType = "gamification.streak_broken"
	EventBadgeEarned   EventType = "gamification.badge_earned"

	// Analytics events
	EventAggregationCompleted EventType = "analytics.aggregation_completed"

	// Notification events
	EventNotificationSent   EventType = "notification.sent"
	EventNotificationFailed EventType = "notification.failed"

	// System events
	EventLeaderboardRebuilt EventType = "system.leaderboard_rebuilt"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// ConceptStatusChangedEvent is emitted when an attempt advances status.
// The event type distinguishes started/completed/mastered.
type ConceptStatusChangedEvent struct {
	BaseEvent
	StudentID string  `json:"student_id"`
	ConceptID string  `json:"concept_id"`
	Subject   string  `json:"subject,omitempty"`
	Score     float64 `json:"score,omitempty"`
	Attempts  int     `json:"attempts"`
}

// Payload implements Event interface.
func (e ConceptStatusChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"concept_id": e.ConceptID,
		"subject":    e.Subject,
		"score":      e.Score,
		"attempts":   e.Attempts,
	}
}

// NewConceptStatusChangedEvent creates a status-change event of the given type.
func NewConceptStatusChangedEvent(eventType EventType, studentID, conceptID, subject string, score float64, attempts int) ConceptStatusChangedEvent {
	return ConceptStatusChangedEvent{
		BaseEvent: NewBaseEvent(eventType, studentID),
		StudentID: studentID,
		ConceptID: conceptID,
		Subject:   subject,
		Score:     score,
		Attempts:  attempts,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Gamification Events
// ═══════════════════════════════════════════════════════════════════════════

// PointsAwardedEvent is emitted when a student earns points.
type PointsAwardedEvent struct {
	BaseEvent
	StudentID string `json:"student_id"`
	Amount    int    `json:"amount"`
	NewTotal  int    `json:"new_total"`
	EventKind string `json:"event_kind"` // e.g., "concept_mastered"
	ConceptID string `json:"concept_id,omitempty"`
}

// Payload implements Event interface.
func (e PointsAwardedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"amount":     e.Amount,
		"new_total":  e.NewTotal,
		"event_kind": e.EventKind,
		"concept_id": e.ConceptID,
	}
}

// NewPointsAwardedEvent creates a new PointsAwardedEvent.
func NewPointsAwardedEvent(studentID string, amount, newTotal int, eventKind, conceptID string) PointsAwardedEvent {
	return PointsAwardedEvent{
		BaseEvent: NewBaseEvent(EventPointsAwarded, studentID),
		StudentID: studentID,
		Amount:    amount,
		NewTotal:  newTotal,
		EventKind: eventKind,
		ConceptID: conceptID,
	}
}

// LevelUpEvent is emitted when a points award crosses a level boundary.
type LevelUpEvent struct {
	BaseEvent
	StudentID   string `json:"student_id"`
	OldLevel    int    `json:"old_level"`
	NewLevel    int    `json:"new_level"`
	TotalPoints int    `json:"total_points"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":   e.StudentID,
		"old_level":    e.OldLevel,
		"new_level":    e.NewLevel,
		"total_points": e.TotalPoints,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(studentID string, oldLevel, newLevel, totalPoints int) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent:   NewBaseEvent(EventLevelUp, studentID),
		StudentID:   studentID,
		OldLevel:    oldLevel,
		NewLevel:    newLevel,
		TotalPoints: totalPoints,
	}
}

// StreakUpdatedEvent is emitted when a student's daily streak advances.
type StreakUpdatedEvent struct {
	BaseEvent
	StudentID     string `json:"student_id"`
	CurrentStreak int    `json:"current_streak"`
	LongestStreak int    `json:"longest_streak"`
	IsNewRecord   bool   `json:"is_new_record"`
}

// Payload implements Event interface.
func (e StreakUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":     e.StudentID,
		"current_streak": e.CurrentStreak,
		"longest_streak": e.LongestStreak,
		"is_new_record":  e.IsNewRecord,
	}
}

// NewStreakUpdatedEvent creates a new StreakUpdatedEvent.
func NewStreakUpdatedEvent(studentID string, current, longest int) StreakUpdatedEvent {
	return StreakUpdatedEvent{
		BaseEvent:     NewBaseEvent(EventStreakUpdated, studentID),
		StudentID:     studentID,
		CurrentStreak: current,
		LongestStreak: longest,
		IsNewRecord:   current == longest && current > 1,
	}
}

// StreakBrokenEvent is emitted when a student's daily streak is broken.
type StreakBrokenEvent struct {
	BaseEvent
	StudentID      string `json:"student_id"`
	PreviousStreak int    `json:"previous_streak"`
	DaysMissed     int    `json:"days_missed"`
}

// Payload implements Event interface.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":      e.StudentID,
		"previous_streak": e.PreviousStreak,
		"days_missed":     e.DaysMissed,
	}
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(studentID string, previousStreak, daysMissed int) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:      NewBaseEvent(EventStreakBroken, studentID),
		StudentID:      studentID,
		PreviousStreak: previousStreak,
		DaysMissed:     daysMissed,
	}
}

// BadgeEarnedEvent is emitted when a badge is awarded.
type BadgeEarnedEvent struct {
	BaseEvent
	StudentID   string `json:"student_id"`
	BadgeID     string `json:"badge_id"`
	BadgeName   string `json:"badge_name"`
	Description string `json:"description,omitempty"`
}

// Payload implements Event interface.
func (e BadgeEarnedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":  e.StudentID,
		"badge_id":    e.BadgeID,
		"badge_name":  e.BadgeName,
		"description": e.Description,
	}
}

// NewBadgeEarnedEvent creates a new BadgeEarnedEvent.
func NewBadgeEarnedEvent(studentID, badgeID, badgeName, description string) BadgeEarnedEvent {
	return BadgeEarnedEvent{
		BaseEvent:   NewBaseEvent(EventBadgeEarned, studentID),
		StudentID:   studentID,
		BadgeID:     badgeID,
		BadgeName:   badgeName,
		Description: description,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Analytics Events
// ═══════════════════════════════════════════════════════════════════════════

// AggregationCompletedEvent is emitted after an aggregation run persists.
type AggregationCompletedEvent struct {
	BaseEvent
	StudentID  string    `json:"student_id"`
	Period     string    `json:"period"` // daily, weekly, monthly
	PeriodDate time.Time `json:"period_date"`
}

// Payload implements Event interface.
func (e AggregationCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":  e.StudentID,
		"period":      e.Period,
		"period_date": e.PeriodDate.Format(time.RFC3339),
	}
}

// NewAggregationCompletedEvent creates a new AggregationCompletedEvent.
func NewAggregationCompletedEvent(studentID, period string, periodDate time.Time) AggregationCompletedEvent {
	return AggregationCompletedEvent{
		BaseEvent:  NewBaseEvent(EventAggregationCompleted, studentID),
		StudentID:  studentID,
		Period:     period,
		PeriodDate: periodDate,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
