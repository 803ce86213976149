package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/G2-Spool/spool-progress-service/config"
	"github.com/G2-Spool/spool-progress-service/internal/application/command"
	"github.com/G2-Spool/spool-progress-service/internal/application/query"
	"github.com/G2-Spool/spool-progress-service/internal/domain/shared"
	"github.com/G2-Spool/spool-progress-service/internal/metrics"
	"github.com/G2-Spool/spool-progress-service/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "Spool Progress Service API",
		"version":     "v1",
		"description": "Learning progress tracking, gamification, and analytics",
		"endpoints": map[string]string{
			"health":       "/health",
			"events":       "/api/v1/progress/events",
			"summary":      "/api/v1/progress/{studentID}/summary",
			"gamification": "/api/v1/gamification/{studentID}/status",
			"leaderboard":  "/api/v1/gamification/leaderboard",
			"dashboard":    "/api/v1/dashboard/{studentID}",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": "v1",
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// learningEventRequest is the wire shape of one learning event.
type learningEventRequest struct {
	StudentID             string     `json:"student_id"`
	ConceptID             string     `json:"concept_id,omitempty"`
	Subject               string     `json:"subject,omitempty"`
	EventType             string     `json:"event_type"`
	Score                 *float64   `json:"score,omitempty"`
	PerfectScore          bool       `json:"perfect_score,omitempty"`
	CompletionTimeSeconds *int       `json:"completion_time_seconds,omitempty"`
	Timestamp             *time.Time `json:"timestamp,omitempty"`
}

func (req learningEventRequest) toCommand(correlationID string) command.ProcessLearningEventCommand {
	cmd := command.ProcessLearningEventCommand{
		StudentID:     req.StudentID,
		ConceptID:     req.ConceptID,
		Subject:       req.Subject,
		Kind:          shared.LearningEventKind(req.EventType),
		Score:         req.Score,
		Perfect:       req.PerfectScore,
		CorrelationID: correlationID,
	}
	if req.CompletionTimeSeconds != nil {
		d := time.Duration(*req.CompletionTimeSeconds) * time.Second
		cmd.CompletionTime = &d
	}
	if req.Timestamp != nil {
		cmd.Timestamp = *req.Timestamp
	}
	return cmd
}

// learningEventResponse is the wire shape of a processed event.
type learningEventResponse struct {
	StudentID      string    `json:"student_id"`
	Status         string    `json:"status,omitempty"`
	Attempts       int       `json:"attempts,omitempty"`
	PointsAwarded  int       `json:"points_awarded"`
	TotalPoints    int       `json:"total_points"`
	Level          int       `json:"level"`
	LeveledUp      bool      `json:"leveled_up"`
	CurrentStreak  int       `json:"current_streak"`
	StreakExtended bool      `json:"streak_extended"`
	BadgesEarned   []string  `json:"badges_earned,omitempty"`
	RecordedAt     time.Time `json:"recorded_at"`
}

func toEventResponse(res *command.ProcessLearningEventResult) learningEventResponse {
	return learningEventResponse{
		StudentID:      res.StudentID,
		Status:         string(res.Status),
		Attempts:       res.Attempts,
		PointsAwarded:  res.PointsAwarded,
		TotalPoints:    res.TotalPoints,
		Level:          res.Level,
		LeveledUp:      res.LeveledUp,
		CurrentStreak:  res.CurrentStreak,
		StreakExtended: res.StreakExtended,
		BadgesEarned:   res.BadgesEarned,
		RecordedAt:     res.RecordedAt,
	}
}

// handleLearningEvent processes a single learning event. Students may only
// submit events for themselves; an empty student_id defaults to the caller.
func (s *Server) handleLearningEvent(w http.ResponseWriter, r *http.Request) {
	var req learningEventRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	principal, _ := principalFromContext(r.Context())
	if principal.Role == RoleStudent {
		if req.StudentID == "" {
			req.StudentID = principal.StudentID
		}
		if req.StudentID != principal.StudentID {
			writeJSONError(w, http.StatusForbidden, "forbidden", "You may only submit events for yourself")
			return
		}
	}

	cmd := req.toCommand(getRequestID(r.Context()))
	if err := cmd.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := s.deps.ProcessLearningEvent.Handle(r.Context(), cmd)
	if err != nil {
		metrics.LearningEventsProcessed.WithLabelValues(string(cmd.Kind), "error").Inc()
		s.writeDomainError(w, r, err, "process learning event")
		return
	}

	metrics.LearningEventsProcessed.WithLabelValues(string(cmd.Kind), "ok").Inc()
	metrics.PointsAwarded.Add(float64(result.PointsAwarded))
	metrics.BadgesAwarded.Add(float64(len(result.BadgesEarned)))
	if result.LeveledUp {
		metrics.LevelUps.Inc()
	}
	if result.StreakExtended {
		metrics.StreaksExtended.Inc()
	}

	writeJSON(w, http.StatusOK, toEventResponse(result))
}

// bulkUpdateRequest carries a batch of learning events.
type bulkUpdateRequest struct {
	Items []learningEventRequest `json:"items"`
}

// bulkItemErrorDTO mirrors command.BulkItemError on the wire.
type bulkItemErrorDTO struct {
	Index     int    `json:"index"`
	StudentID string `json:"student_id,omitempty"`
	ConceptID string `json:"concept_id,omitempty"`
	Message   string `json:"message"`
}

// bulkUpdateResponse reports per-item outcomes.
type bulkUpdateResponse struct {
	Processed int                `json:"processed"`
	Failed    int                `json:"failed"`
	Errors    []bulkItemErrorDTO `json:"errors,omitempty"`
}

// handleBulkUpdate processes a batch of learning events (system role).
func (s *Server) handleBulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req bulkUpdateRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	correlationID := getRequestID(r.Context())
	cmd := command.BulkUpdateCommand{
		Items:         make([]command.ProcessLearningEventCommand, 0, len(req.Items)),
		CorrelationID: correlationID,
	}
	for _, item := range req.Items {
		cmd.Items = append(cmd.Items, item.toCommand(""))
	}

	if err := cmd.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := s.deps.BulkUpdate.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err, "bulk update")
		return
	}

	metrics.BulkItemsProcessed.WithLabelValues("ok").Add(float64(result.Processed))
	metrics.BulkItemsProcessed.WithLabelValues("error").Add(float64(result.Failed))

	resp := bulkUpdateResponse{
		Processed: result.Processed,
		Failed:    result.Failed,
	}
	for _, e := range result.Errors {
		resp.Errors = append(resp.Errors, bulkItemErrorDTO{
			Index:     e.Index,
			StudentID: e.StudentID,
			ConceptID: e.ConceptID,
			Message:   e.Message,
		})
	}

	// Partial failures still return 200: the batch itself was accepted and
	// the body says exactly which items failed.
	writeJSON(w, http.StatusOK, resp)
}

// handleProgressSummary returns a student's progress summary.
func (s *Server) handleProgressSummary(w http.ResponseWriter, r *http.Request) {
	q := query.GetProgressSummaryQuery{
		StudentID:   chi.URLParam(r, "studentID"),
		RecentLimit: getQueryParamInt(r, "recent_limit", 0),
	}
	if err := q.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := s.deps.GetProgressSummary.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err, "progress summary")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// GAMIFICATION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGamificationStatus returns points, level, streak, and badges.
func (s *Server) handleGamificationStatus(w http.ResponseWriter, r *http.Request) {
	q := query.GetGamificationStatusQuery{StudentID: chi.URLParam(r, "studentID")}
	if err := q.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := s.deps.GetGamificationStatus.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err, "gamification status")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handlePointHistory returns a page of the student's point ledger.
func (s *Server) handlePointHistory(w http.ResponseWriter, r *http.Request) {
	q := query.GetPointHistoryQuery{
		StudentID: chi.URLParam(r, "studentID"),
		Limit:     getQueryParamInt(r, "limit", 0),
		Offset:    getQueryParamInt(r, "offset", 0),
	}
	if err := q.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := s.deps.GetPointHistory.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err, "point history")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleLeaderboard returns a ranked board for the requested kind and window.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := query.GetLeaderboardQuery{
		Kind:   query.LeaderboardKind(getQueryParam(r, "kind", "")),
		Window: query.LeaderboardWindow(getQueryParam(r, "window", "")),
		Limit:  getQueryParamInt(r, "limit", 0),
	}
	if err := q.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := s.deps.GetLeaderboard.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err, "leaderboard")
		return
	}

	metrics.RecordCacheLookup("leaderboard", result.FromCache)
	writeJSON(w, http.StatusOK, result)
}

// badgeCatalogEntry is the wire shape of one catalog badge.
type badgeCatalogEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Criteria    string `json:"criteria"`
	PointsValue int    `json:"points_value"`
}

// handleBadgeCatalog lists all active badges and their award criteria.
func (s *Server) handleBadgeCatalog(w http.ResponseWriter, r *http.Request) {
	catalog := make([]badgeCatalogEntry, 0, len(s.deps.BadgeCatalog))
	for _, b := range s.deps.BadgeCatalog {
		if !b.Active {
			continue
		}
		entry := badgeCatalogEntry{
			ID:          b.ID,
			Name:        b.Name,
			Description: b.Description,
			Category:    string(b.Category),
			PointsValue: b.PointsValue,
		}
		if b.Criteria != nil {
			entry.Criteria = b.Criteria.Describe()
		}
		catalog = append(catalog, entry)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"badges": catalog})
}

// awardPointsRequest is a manual point credit (system role).
type awardPointsRequest struct {
	StudentID string `json:"student_id"`
	Points    int    `json:"points"`
	Reason    string `json:"reason"`
	ConceptID string `json:"concept_id,omitempty"`
}

// handleAwardPoints credits points outside the normal event flow, e.g.
// instructor bonuses or migration backfills.
func (s *Server) handleAwardPoints(w http.ResponseWriter, r *http.Request) {
	var req awardPointsRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	if req.StudentID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "student_id is required")
		return
	}
	if req.Points <= 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "points must be positive")
		return
	}
	if req.Reason == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "reason is required")
		return
	}

	result, err := s.deps.AwardPoints.Credit(r.Context(), req.StudentID, req.Points, req.Reason, req.ConceptID, time.Now().UTC())
	if err != nil {
		s.writeDomainError(w, r, err, "award points")
		return
	}

	metrics.PointsAwarded.Add(float64(result.PointsAwarded))
	if result.LeveledUp {
		metrics.LevelUps.Inc()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"student_id":     req.StudentID,
		"points_awarded": result.PointsAwarded,
		"total_points":   result.TotalPoints,
		"level":          result.Level,
		"leveled_up":     result.LeveledUp,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ANALYTICS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleAggregations lists aggregation records for a period.
func (s *Server) handleAggregations(w http.ResponseWriter, r *http.Request) {
	q := query.GetAggregationsQuery{
		StudentID: chi.URLParam(r, "studentID"),
		Period:    getQueryParam(r, "period", ""),
		Limit:     getQueryParamInt(r, "limit", 0),
	}
	if err := q.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := s.deps.GetAggregations.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err, "aggregations")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleInsights returns generated learning insights.
func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	if !s.featureEnabled(config.FeatureAnalyticsInsights, studentID) {
		writeJSONError(w, http.StatusNotFound, "feature_disabled", "Insights are not enabled for this student")
		return
	}

	q := query.GetInsightsQuery{StudentID: studentID}
	if err := q.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := s.deps.GetInsights.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err, "insights")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handlePrediction returns the completion-date projection.
func (s *Server) handlePrediction(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	if !s.featureEnabled(config.FeatureAnalyticsPrediction, studentID) {
		writeJSONError(w, http.StatusNotFound, "feature_disabled", "Predictions are not enabled for this student")
		return
	}

	q := query.GetPredictionQuery{StudentID: studentID}
	if err := q.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := s.deps.GetPrediction.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err, "prediction")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleDashboard returns the combined student dashboard.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := query.GetDashboardQuery{
		StudentID: chi.URLParam(r, "studentID"),
		ChartDays: getQueryParamInt(r, "chart_days", 0),
	}
	if err := q.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := s.deps.GetDashboard.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err, "dashboard")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION TRIGGERS
// ══════════════════════════════════════════════════════════════════════════════

// handleTriggerReminders runs the daily reminder sweep on demand.
func (s *Server) handleTriggerReminders(w http.ResponseWriter, r *http.Request) {
	s.runJob(w, r, s.deps.ReminderJob, "daily reminders")
}

// handleTriggerWeeklySummary runs the weekly summary sweep on demand.
func (s *Server) handleTriggerWeeklySummary(w http.ResponseWriter, r *http.Request) {
	s.runJob(w, r, s.deps.WeeklySummaryJob, "weekly summary")
}

func (s *Server) runJob(w http.ResponseWriter, r *http.Request, job JobRunner, name string) {
	if job == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "job_unavailable", name+" is not configured")
		return
	}

	if err := job.Run(r.Context()); err != nil {
		s.logger.Error("manual job run failed",
			logger.String("job", name),
			logger.Err(err),
			logger.String("request_id", getRequestID(r.Context())),
		)
		writeJSONError(w, http.StatusInternalServerError, "job_failed", name+" run failed")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"job": name, "status": "completed"})
}

// ══════════════════════════════════════════════════════════════════════════════
// SHARED HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// decodeBody decodes the JSON request body, writing a 400 on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", "Request body is required")
			return false
		}
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_json", "Request body is not valid JSON", err.Error())
		return false
	}
	return true
}

// featureEnabled checks a feature flag in the student's context. A nil flag
// set means everything is on.
func (s *Server) featureEnabled(feature, studentID string) bool {
	if s.deps.Features == nil {
		return true
	}
	return s.deps.Features.IsEnabled(feature, &config.FeatureContext{StudentID: studentID})
}

// writeDomainError maps application errors onto HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case shared.IsAlreadyExists(err):
		writeJSONError(w, http.StatusConflict, "conflict", err.Error())
	case shared.IsExternalService(err):
		writeJSONError(w, http.StatusServiceUnavailable, "upstream_unavailable", "A dependent service is unavailable, try again later")
	default:
		s.logger.Error("request failed",
			logger.String("op", op),
			logger.Err(err),
			logger.String("request_id", getRequestID(r.Context())),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
