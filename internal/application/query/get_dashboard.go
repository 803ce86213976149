package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/G2-Spool/spool-progress-service/internal/domain/analytics"
	"github.com/G2-Spool/spool-progress-service/internal/domain/progress"
	"github.com/G2-Spool/spool-progress-service/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET DASHBOARD QUERY
// The single-call student view: progress rollup, gamification status,
// computed metrics, and the recent daily activity series. Served from a
// short-TTL cache because it fans out across every store.
// ══════════════════════════════════════════════════════════════════════════════

// DashboardCache caches assembled dashboards. Implemented by redis.
type DashboardCache interface {
	// Get returns the cached dashboard, false when absent.
	Get(ctx context.Context, studentID string) (*GetDashboardResult, bool, error)

	// Set stores the dashboard under the cache TTL.
	Set(ctx context.Context, studentID string, result *GetDashboardResult) error
}

// GetDashboardQuery contains the dashboard request parameters.
type GetDashboardQuery struct {
	// StudentID is the student to assemble the dashboard for.
	StudentID string

	// ChartDays bounds the daily activity series (default 14, max 90).
	ChartDays int
}

// Validate validates and normalizes the query.
func (q *GetDashboardQuery) Validate() error {
	if q.StudentID == "" {
		return errors.New("student_id is required")
	}
	if q.ChartDays < 0 {
		return errors.New("chart_days cannot be negative")
	}
	if q.ChartDays == 0 {
		q.ChartDays = 14
	}
	if q.ChartDays > 90 {
		q.ChartDays = 90
	}
	return nil
}

// DailyActivityDTO is one bar of the daily activity chart.
type DailyActivityDTO struct {
	Date              string  `json:"date"`
	ConceptsCompleted int     `json:"concepts_completed"`
	ConceptsMastered  int     `json:"concepts_mastered"`
	TimeSpentHours    float64 `json:"time_spent_hours"`
	PointsEarned      int     `json:"points_earned"`
}

// MetricsDTO carries the computed learning metrics.
type MetricsDTO struct {
	// Velocity - concepts per active day over the lookback window.
	Velocity float64 `json:"velocity"`

	// EfficiencyScore - 0-100 mastery economy score.
	EfficiencyScore float64 `json:"efficiency_score"`

	// Consistency - 0-1 regularity measure.
	Consistency float64 `json:"consistency"`

	// AverageScore - mean score over scored attempts.
	AverageScore float64 `json:"average_score"`
}

// GetDashboardResult contains the assembled dashboard.
type GetDashboardResult struct {
	StudentID string `json:"student_id"`

	Progress      *GetProgressSummaryResult    `json:"progress"`
	Gamification  *GetGamificationStatusResult `json:"gamification"`
	Metrics       MetricsDTO                   `json:"metrics"`
	DailyActivity []DailyActivityDTO           `json:"daily_activity"`

	FromCache   bool      `json:"-"`
	GeneratedAt time.Time `json:"generated_at"`
}

// GetDashboardHandler handles the GetDashboardQuery.
type GetDashboardHandler struct {
	progressRepo  progress.Repository
	analyticsRepo analytics.Repository
	summary       *GetProgressSummaryHandler
	status        *GetGamificationStatusHandler
	cache         DashboardCache
	log           *logger.Logger

	velocityWindowDays int
}

// NewGetDashboardHandler creates a new GetDashboardHandler.
// cache may be nil; the dashboard is then assembled on every call.
func NewGetDashboardHandler(
	progressRepo progress.Repository,
	analyticsRepo analytics.Repository,
	summary *GetProgressSummaryHandler,
	status *GetGamificationStatusHandler,
	cache DashboardCache,
	velocityWindowDays int,
	log *logger.Logger,
) *GetDashboardHandler {
	if velocityWindowDays <= 0 {
		velocityWindowDays = 30
	}
	return &GetDashboardHandler{
		progressRepo:       progressRepo,
		analyticsRepo:      analyticsRepo,
		summary:            summary,
		status:             status,
		cache:              cache,
		log:                log,
		velocityWindowDays: velocityWindowDays,
	}
}

// Handle executes the query.
func (h *GetDashboardHandler) Handle(ctx context.Context, q GetDashboardQuery) (*GetDashboardResult, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_dashboard: %w", err)
	}

	if h.cache != nil {
		cached, ok, err := h.cache.Get(ctx, q.StudentID)
		if err != nil {
			h.log.Warn("dashboard cache read failed", logger.StudentID(q.StudentID), logger.Err(err))
		} else if ok {
			cached.FromCache = true
			return cached, nil
		}
	}

	result, err := h.assemble(ctx, q)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, q.StudentID, result); err != nil {
			h.log.Warn("dashboard cache write failed", logger.StudentID(q.StudentID), logger.Err(err))
		}
	}
	return result, nil
}

// assemble builds the dashboard from the stores.
func (h *GetDashboardHandler) assemble(ctx context.Context, q GetDashboardQuery) (*GetDashboardResult, error) {
	now := time.Now().UTC()

	summary, err := h.summary.Handle(ctx, GetProgressSummaryQuery{StudentID: q.StudentID})
	if err != nil {
		return nil, fmt.Errorf("get_dashboard: %w", err)
	}

	status, err := h.status.Handle(ctx, GetGamificationStatusQuery{StudentID: q.StudentID})
	if err != nil {
		return nil, fmt.Errorf("get_dashboard: %w", err)
	}

	attempts, err := h.progressRepo.ListByStudent(ctx, q.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get_dashboard: load attempts: %w", err)
	}

	windowStart := now.AddDate(0, 0, -h.velocityWindowDays)
	metrics := MetricsDTO{
		Velocity:        analytics.Velocity(attempts, windowStart),
		EfficiencyScore: analytics.MasteryEfficiency(attempts).Score,
		Consistency:     analytics.Consistency(attempts),
		AverageScore:    summary.AverageScore,
	}

	from := now.AddDate(0, 0, -q.ChartDays)
	records, err := h.analyticsRepo.ListInRange(ctx, q.StudentID, analytics.PeriodDaily, from, now)
	if err != nil {
		return nil, fmt.Errorf("get_dashboard: load daily records: %w", err)
	}
	chart := make([]DailyActivityDTO, 0, len(records))
	for _, r := range records {
		chart = append(chart, DailyActivityDTO{
			Date:              r.PeriodDate.Format("2006-01-02"),
			ConceptsCompleted: r.ConceptsCompleted,
			ConceptsMastered:  r.ConceptsMastered,
			TimeSpentHours:    r.TimeSpentHours(),
			PointsEarned:      r.PointsEarned,
		})
	}

	return &GetDashboardResult{
		StudentID:     q.StudentID,
		Progress:      summary,
		Gamification:  status,
		Metrics:       metrics,
		DailyActivity: chart,
		GeneratedAt:   now,
	}, nil
}
