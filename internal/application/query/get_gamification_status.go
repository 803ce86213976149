package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/G2-Spool/spool-progress-service/internal/domain/gamification"
	"github.com/G2-Spool/spool-progress-service/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET GAMIFICATION STATUS QUERY
// Returns a student's points, level, streak, and earned badges in one
// shape. Students with no gamification history get zero values, not 404s.
// ══════════════════════════════════════════════════════════════════════════════

// GetGamificationStatusQuery contains the status request parameters.
type GetGamificationStatusQuery struct {
	// StudentID is the student to report on.
	StudentID string
}

// Validate validates the query.
func (q *GetGamificationStatusQuery) Validate() error {
	if q.StudentID == "" {
		return errors.New("student_id is required")
	}
	return nil
}

// BadgeDTO is the wire shape of one earned badge.
type BadgeDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	PointsValue int       `json:"points_value"`
	EarnedAt    time.Time `json:"earned_at"`
}

// StreakDTO is the wire shape of the streak state.
type StreakDTO struct {
	CurrentStreak   int        `json:"current_streak"`
	LongestStreak   int        `json:"longest_streak"`
	TotalActiveDays int        `json:"total_active_days"`
	LastActivityAt  *time.Time `json:"last_activity_at,omitempty"`
	AtRisk          bool       `json:"at_risk"`
}

// GetGamificationStatusResult contains the status.
type GetGamificationStatusResult struct {
	StudentID         string     `json:"student_id"`
	TotalPoints       int        `json:"total_points"`
	Level             int        `json:"level"`
	LevelTitle        string     `json:"level_title"`
	PointsToNextLevel int        `json:"points_to_next_level"`
	Streak            StreakDTO  `json:"streak"`
	Badges            []BadgeDTO `json:"badges"`
	GeneratedAt       time.Time  `json:"generated_at"`
}

// GetGamificationStatusHandler handles the GetGamificationStatusQuery.
type GetGamificationStatusHandler struct {
	pointsRepo gamification.PointsRepository
	streakRepo gamification.StreakRepository
	badgeRepo  gamification.BadgeRepository
	catalog    map[string]*gamification.Badge
}

// NewGetGamificationStatusHandler creates a new GetGamificationStatusHandler.
func NewGetGamificationStatusHandler(
	pointsRepo gamification.PointsRepository,
	streakRepo gamification.StreakRepository,
	badgeRepo gamification.BadgeRepository,
	catalog []*gamification.Badge,
) *GetGamificationStatusHandler {
	byID := make(map[string]*gamification.Badge, len(catalog))
	for _, b := range catalog {
		byID[b.ID] = b
	}
	return &GetGamificationStatusHandler{
		pointsRepo: pointsRepo,
		streakRepo: streakRepo,
		badgeRepo:  badgeRepo,
		catalog:    byID,
	}
}

// Handle executes the query. A streak that lapsed since the last write
// is corrected to zero and persisted before it is reported.
func (h *GetGamificationStatusHandler) Handle(ctx context.Context, q GetGamificationStatusQuery) (*GetGamificationStatusResult, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_gamification_status: %w", err)
	}

	now := time.Now().UTC()
	result := &GetGamificationStatusResult{
		StudentID:   q.StudentID,
		Level:       1,
		Badges:      make([]BadgeDTO, 0),
		GeneratedAt: now,
	}
	result.LevelTitle = shared.Level(1).Title()
	result.PointsToNextLevel = shared.Points(0).ToNextLevel(shared.DefaultLevelScale)

	points, err := h.pointsRepo.GetState(ctx, q.StudentID)
	switch {
	case err == nil:
		result.TotalPoints = points.TotalPoints
		result.Level = points.CurrentLevel
		result.LevelTitle = shared.Level(points.CurrentLevel).Title()
		result.PointsToNextLevel = points.PointsToNextLevel
	case !errors.Is(err, shared.ErrPointsNotFound):
		return nil, fmt.Errorf("get_gamification_status: load points: %w", err)
	}

	streak, err := h.streakRepo.GetState(ctx, q.StudentID)
	switch {
	case err == nil:
		if streak.ApplyLazyReset(now) {
			if saveErr := h.streakRepo.SaveState(ctx, streak); saveErr != nil {
				return nil, fmt.Errorf("get_gamification_status: persist streak reset: %w", saveErr)
			}
		}
		result.Streak = StreakDTO{
			CurrentStreak:   streak.CurrentStreak,
			LongestStreak:   streak.LongestStreak,
			TotalActiveDays: streak.TotalActiveDays,
			AtRisk:          streak.AtRiskAsOf(now),
		}
		if !streak.LastActivityDate.IsZero() {
			t := streak.LastActivityDate
			result.Streak.LastActivityAt = &t
		}
	case !errors.Is(err, shared.ErrStreakNotFound):
		return nil, fmt.Errorf("get_gamification_status: load streak: %w", err)
	}

	awards, err := h.badgeRepo.ListByStudent(ctx, q.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get_gamification_status: load badges: %w", err)
	}
	for _, award := range awards {
		dto := BadgeDTO{ID: award.BadgeID, EarnedAt: award.EarnedAt}
		if badge, ok := h.catalog[award.BadgeID]; ok {
			dto.Name = badge.Name
			dto.Description = badge.Description
			dto.Category = string(badge.Category)
			dto.PointsValue = badge.PointsValue
		}
		result.Badges = append(result.Badges, dto)
	}

	return result, nil
}
