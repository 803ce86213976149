package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/G2-Spool/spool-progress-service/config"
	"github.com/G2-Spool/spool-progress-service/internal/domain/gamification"
	"github.com/G2-Spool/spool-progress-service/internal/domain/progress"
	"github.com/G2-Spool/spool-progress-service/internal/domain/shared"
	"github.com/G2-Spool/spool-progress-service/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROCESS LEARNING EVENT COMMAND
// The write-side entry point: records a concept attempt, then runs the
// gamification chain (points, streak, badges) and publishes the resulting
// domain events. Gamification failures degrade gracefully; the progress
// write is the only step that can fail the command.
// ══════════════════════════════════════════════════════════════════════════════

// ContentCatalog resolves subject metadata from the content API. Used to
// compute subject completion for the subject-master badge.
type ContentCatalog interface {
	// SubjectConceptCount returns how many concepts the subject contains,
	// 0 when unknown.
	SubjectConceptCount(ctx context.Context, subject string) (int, error)
}

// ProcessLearningEventCommand contains the data for one learning event.
type ProcessLearningEventCommand struct {
	// StudentID is the student the event belongs to.
	StudentID string

	// ConceptID is the concept acted on (required for concept events).
	ConceptID string

	// Subject is the concept's subject slug.
	Subject string

	// Kind is the learning event kind.
	Kind shared.LearningEventKind

	// Score is the assessment score (0-100), nil if unscored.
	Score *float64

	// Perfect marks the attempt as flawless. A score of 100 implies it.
	Perfect bool

	// CompletionTime is how long the completion took, nil if unknown.
	CompletionTime *time.Duration

	// Timestamp is when the event occurred (defaults to now if zero).
	Timestamp time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c ProcessLearningEventCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("process_learning_event: student_id is required")
	}
	if !c.Kind.IsValid() {
		return fmt.Errorf("process_learning_event: unknown event kind: %s", c.Kind)
	}
	if c.Kind.IsConceptEvent() && c.ConceptID == "" {
		return errors.New("process_learning_event: concept_id is required for concept events")
	}
	if c.Score != nil && (*c.Score < 0 || *c.Score > 100) {
		return shared.ErrInvalidScore
	}
	return nil
}

// ProcessLearningEventResult contains the result of processing an event.
type ProcessLearningEventResult struct {
	// Success indicates the event was recorded.
	Success bool

	// StudentID is the student the event belongs to.
	StudentID string

	// Status is the attempt's status after the event (concept events).
	Status progress.ConceptStatus

	// Attempts is the attempt count after the event (concept events).
	Attempts int

	// PointsAwarded is the point delta credited, 0 when gamification is off.
	PointsAwarded int

	// TotalPoints is the points balance after the event.
	TotalPoints int

	// Level is the level after the event.
	Level int

	// LeveledUp indicates a level boundary was crossed.
	LeveledUp bool

	// CurrentStreak is the streak after the event.
	CurrentStreak int

	// StreakExtended indicates the streak grew by one day.
	StreakExtended bool

	// BadgesEarned lists IDs of badges newly awarded by this event.
	BadgesEarned []string

	// Events contains domain events generated.
	Events []shared.Event

	// RecordedAt is when the event was recorded.
	RecordedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ProcessLearningEventHandler handles the ProcessLearningEventCommand.
type ProcessLearningEventHandler struct {
	progressRepo   progress.Repository
	awardPoints    *AwardPointsHandler
	updateStreak   *UpdateStreakHandler
	checkBadges    *CheckBadgesHandler
	catalog        ContentCatalog
	eventPublisher shared.EventPublisher
	flags          *config.FeatureFlags
	log            *logger.Logger
}

// NewProcessLearningEventHandler creates a new ProcessLearningEventHandler.
func NewProcessLearningEventHandler(
	progressRepo progress.Repository,
	awardPoints *AwardPointsHandler,
	updateStreak *UpdateStreakHandler,
	checkBadges *CheckBadgesHandler,
	catalog ContentCatalog,
	eventPublisher shared.EventPublisher,
	flags *config.FeatureFlags,
	log *logger.Logger,
) *ProcessLearningEventHandler {
	return &ProcessLearningEventHandler{
		progressRepo:   progressRepo,
		awardPoints:    awardPoints,
		updateStreak:   updateStreak,
		checkBadges:    checkBadges,
		catalog:        catalog,
		eventPublisher: eventPublisher,
		flags:          flags,
		log:            log,
	}
}

// Handle executes the process learning event command.
func (h *ProcessLearningEventHandler) Handle(ctx context.Context, cmd ProcessLearningEventCommand) (*ProcessLearningEventResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("process_learning_event: validation failed: %w", err)
	}

	timestamp := cmd.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	result := &ProcessLearningEventResult{
		Success:    true,
		StudentID:  cmd.StudentID,
		RecordedAt: timestamp,
		Events:     make([]shared.Event, 0),
	}

	if cmd.Kind.IsConceptEvent() {
		if err := h.recordAttempt(ctx, cmd, timestamp, result); err != nil {
			return nil, err
		}
	}

	featureCtx := &config.FeatureContext{StudentID: cmd.StudentID}
	if h.flags.GamificationEnabled(featureCtx) {
		h.runGamification(ctx, cmd, timestamp, result)
	}

	for _, event := range result.Events {
		if err := h.eventPublisher.Publish(event); err != nil {
			h.log.Warn("event publish failed",
				logger.String("event_type", string(event.EventType())),
				logger.Err(err),
			)
		}
	}

	return result, nil
}

// recordAttempt upserts the concept attempt for a concept event.
func (h *ProcessLearningEventHandler) recordAttempt(
	ctx context.Context,
	cmd ProcessLearningEventCommand,
	timestamp time.Time,
	result *ProcessLearningEventResult,
) error {
	status := statusForKind(cmd.Kind)

	attempt, err := h.progressRepo.GetByStudentAndConcept(ctx, cmd.StudentID, cmd.ConceptID)
	switch {
	case err == nil:
		if recordErr := attempt.RecordAttempt(status, cmd.Score, timestamp); recordErr != nil {
			return fmt.Errorf("process_learning_event: %w", recordErr)
		}
	case errors.Is(err, shared.ErrAttemptNotFound):
		attempt, err = progress.NewConceptAttempt(uuid.NewString(), cmd.StudentID, cmd.ConceptID, cmd.Subject, timestamp)
		if err != nil {
			return fmt.Errorf("process_learning_event: %w", err)
		}
		if status != progress.StatusInProgress {
			// First sighting already past in_progress: apply without
			// double-counting the attempt.
			attempt.Attempts = 0
			if recordErr := attempt.RecordAttempt(status, cmd.Score, timestamp); recordErr != nil {
				return fmt.Errorf("process_learning_event: %w", recordErr)
			}
		} else if cmd.Score != nil {
			attempt.CurrentScore = cmd.Score
			attempt.BestScore = cmd.Score
		}
	default:
		return fmt.Errorf("process_learning_event: load attempt: %w", err)
	}

	if err := h.progressRepo.Upsert(ctx, attempt); err != nil {
		return fmt.Errorf("process_learning_event: save attempt: %w", err)
	}

	result.Status = attempt.Status
	result.Attempts = attempt.Attempts

	var score float64
	if cmd.Score != nil {
		score = *cmd.Score
	}
	statusEvent := shared.NewConceptStatusChangedEvent(
		eventTypeForKind(cmd.Kind), cmd.StudentID, cmd.ConceptID, cmd.Subject, score, attempt.Attempts)
	if cmd.CorrelationID != "" {
		statusEvent.BaseEvent = statusEvent.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, statusEvent)
	return nil
}

// runGamification executes the points/streak/badges chain. Every step is
// best-effort: a failure logs and moves on so the progress write stands.
func (h *ProcessLearningEventHandler) runGamification(
	ctx context.Context,
	cmd ProcessLearningEventCommand,
	timestamp time.Time,
	result *ProcessLearningEventResult,
) {
	award, err := h.awardPoints.Handle(ctx, AwardPointsCommand{
		StudentID:      cmd.StudentID,
		Kind:           cmd.Kind,
		Score:          cmd.Score,
		Perfect:        cmd.Perfect,
		CompletionTime: cmd.CompletionTime,
		ConceptID:      cmd.ConceptID,
		Timestamp:      timestamp,
		CorrelationID:  cmd.CorrelationID,
	})
	if err != nil {
		h.log.Error("points award failed", logger.StudentID(cmd.StudentID), logger.Err(err))
	} else {
		result.PointsAwarded = award.PointsAwarded
		result.TotalPoints = award.TotalPoints
		result.Level = award.Level
		result.LeveledUp = award.LeveledUp
		result.Events = append(result.Events, award.Events...)
	}

	streak, err := h.updateStreak.Handle(ctx, UpdateStreakCommand{
		StudentID:     cmd.StudentID,
		Timestamp:     timestamp,
		CorrelationID: cmd.CorrelationID,
	})
	if err != nil {
		h.log.Error("streak update failed", logger.StudentID(cmd.StudentID), logger.Err(err))
	} else {
		result.CurrentStreak = streak.CurrentStreak
		result.StreakExtended = streak.Extended
		result.Events = append(result.Events, streak.Events...)

		// Day two onward of a streak earns the daily bonus.
		if streak.Extended && streak.CurrentStreak > 1 {
			bonus, bonusErr := h.awardPoints.Handle(ctx, AwardPointsCommand{
				StudentID:     cmd.StudentID,
				Kind:          shared.EventKindDailyStreak,
				Timestamp:     timestamp,
				CorrelationID: cmd.CorrelationID,
			})
			if bonusErr != nil {
				h.log.Error("streak bonus failed", logger.StudentID(cmd.StudentID), logger.Err(bonusErr))
			} else {
				result.PointsAwarded += bonus.PointsAwarded
				result.TotalPoints = bonus.TotalPoints
				result.Events = append(result.Events, bonus.Events...)
			}
		}
	}

	h.evaluateBadges(ctx, cmd, timestamp, streak, result)
}

// evaluateBadges fires the badge triggers this event can satisfy.
func (h *ProcessLearningEventHandler) evaluateBadges(
	ctx context.Context,
	cmd ProcessLearningEventCommand,
	timestamp time.Time,
	streak *UpdateStreakResult,
	result *ProcessLearningEventResult,
) {
	if h.checkBadges == nil {
		return
	}

	var events []gamification.BadgeEvent

	if cmd.Kind == shared.EventKindConceptMastered {
		masteries, err := h.progressRepo.CountMasteredSince(ctx, cmd.StudentID, timestamp.Add(-24*time.Hour))
		if err != nil {
			h.log.Warn("mastery window count failed", logger.StudentID(cmd.StudentID), logger.Err(err))
		}
		events = append(events, gamification.BadgeEvent{
			Kind:                     gamification.TriggerMastery,
			StudentID:                cmd.StudentID,
			MasteriesInWindow:        masteries,
			Subject:                  cmd.Subject,
			SubjectCompletionPercent: h.subjectCompletion(ctx, cmd.StudentID, cmd.Subject),
		})
	}

	if streak != nil && streak.Extended {
		events = append(events, gamification.BadgeEvent{
			Kind:       gamification.TriggerStreak,
			StudentID:  cmd.StudentID,
			StreakDays: streak.CurrentStreak,
		})
	}

	if result.TotalPoints > 0 {
		events = append(events, gamification.BadgeEvent{
			Kind:        gamification.TriggerPoints,
			StudentID:   cmd.StudentID,
			TotalPoints: result.TotalPoints,
		})
	}

	for _, badgeEvent := range events {
		outcome, err := h.checkBadges.Handle(ctx, CheckBadgesCommand{
			StudentID:     cmd.StudentID,
			Event:         badgeEvent,
			Timestamp:     timestamp,
			CorrelationID: cmd.CorrelationID,
		})
		if err != nil {
			h.log.Error("badge evaluation failed", logger.StudentID(cmd.StudentID), logger.Err(err))
			continue
		}
		for _, b := range outcome.Earned {
			result.BadgesEarned = append(result.BadgesEarned, b.ID)
		}
		result.Events = append(result.Events, outcome.Events...)
	}
}

// subjectCompletion computes how much of a subject the student has
// completed or mastered, as a percentage. Returns 0 when the subject
// size is unknown or the catalog is unreachable.
func (h *ProcessLearningEventHandler) subjectCompletion(ctx context.Context, studentID, subject string) float64 {
	if h.catalog == nil || subject == "" {
		return 0
	}

	total, err := h.catalog.SubjectConceptCount(ctx, subject)
	if err != nil || total <= 0 {
		if err != nil {
			h.log.Warn("subject size lookup failed", logger.String("subject", subject), logger.Err(err))
		}
		return 0
	}

	attempts, err := h.progressRepo.ListByStudent(ctx, studentID)
	if err != nil {
		h.log.Warn("subject completion lookup failed", logger.StudentID(studentID), logger.Err(err))
		return 0
	}

	done := 0
	for _, a := range attempts {
		if a.Subject == subject && a.Status.IsAtLeast(progress.StatusCompleted) {
			done++
		}
	}
	return float64(done) / float64(total) * 100
}

// statusForKind maps concept event kinds to attempt statuses.
func statusForKind(kind shared.LearningEventKind) progress.ConceptStatus {
	switch kind {
	case shared.EventKindConceptCompleted:
		return progress.StatusCompleted
	case shared.EventKindConceptMastered:
		return progress.StatusMastered
	default:
		return progress.StatusInProgress
	}
}

// eventTypeForKind maps concept event kinds to domain event types.
func eventTypeForKind(kind shared.LearningEventKind) shared.EventType {
	switch kind {
	case shared.EventKindConceptCompleted:
		return shared.EventConceptCompleted
	case shared.EventKindConceptMastered:
		return shared.EventConceptMastered
	default:
		return shared.EventConceptStarted
	}
}
