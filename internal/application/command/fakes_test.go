package command

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/G2-Spool/spool-progress-service/internal/domain/analytics"
	"github.com/G2-Spool/spool-progress-service/internal/domain/gamification"
	"github.com/G2-Spool/spool-progress-service/internal/domain/progress"
	"github.com/G2-Spool/spool-progress-service/internal/domain/shared"
	"github.com/G2-Spool/spool-progress-service/pkg/logger"
)

// In-memory collaborators shared by the command handler tests.

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard})
}

// memTx runs the function directly; locking semantics are not under test.
type memTx struct {
	fail error
}

func (t *memTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if t.fail != nil {
		return t.fail
	}
	return fn(ctx)
}

// ─────────────────────────────────────────────────────────────────────────────
// Points
// ─────────────────────────────────────────────────────────────────────────────

type memPointsRepo struct {
	states   map[string]*gamification.PointsState
	history  []*gamification.PointHistoryEntry
	saveErr  error
	loadErr  error
	appended int
}

func newMemPointsRepo() *memPointsRepo {
	return &memPointsRepo{states: make(map[string]*gamification.PointsState)}
}

func (r *memPointsRepo) GetState(ctx context.Context, studentID string) (*gamification.PointsState, error) {
	return r.GetStateForUpdate(ctx, studentID)
}

func (r *memPointsRepo) GetStateForUpdate(_ context.Context, studentID string) (*gamification.PointsState, error) {
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	state, ok := r.states[studentID]
	if !ok {
		return nil, shared.ErrPointsNotFound
	}
	copied := *state
	return &copied, nil
}

func (r *memPointsRepo) SaveState(_ context.Context, state *gamification.PointsState) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	copied := *state
	r.states[state.StudentID] = &copied
	return nil
}

func (r *memPointsRepo) AppendHistory(_ context.Context, entry *gamification.PointHistoryEntry) error {
	r.appended++
	r.history = append(r.history, entry)
	return nil
}

func (r *memPointsRepo) ListHistory(_ context.Context, studentID string, limit, offset int) ([]*gamification.PointHistoryEntry, error) {
	var out []*gamification.PointHistoryEntry
	for _, e := range r.history {
		if e.StudentID == studentID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memPointsRepo) SumHistoryInRange(_ context.Context, studentID string, from, to time.Time) (int, error) {
	sum := 0
	for _, e := range r.history {
		if e.StudentID == studentID && !e.CreatedAt.Before(from) && e.CreatedAt.Before(to) {
			sum += e.Delta
		}
	}
	return sum, nil
}

func (r *memPointsRepo) TopByTotalPoints(_ context.Context, limit int) ([]*gamification.PointsState, error) {
	var out []*gamification.PointsState
	for _, s := range r.states {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalPoints > out[j].TotalPoints })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memPointsRepo) TopByHistorySum(_ context.Context, from, to time.Time, limit int) ([]gamification.LeaderboardRow, error) {
	sums := make(map[string]int)
	for _, e := range r.history {
		if !e.CreatedAt.Before(from) && e.CreatedAt.Before(to) {
			sums[e.StudentID] += e.Delta
		}
	}
	var out []gamification.LeaderboardRow
	for id, v := range sums {
		out = append(out, gamification.LeaderboardRow{StudentID: id, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Streaks
// ─────────────────────────────────────────────────────────────────────────────

type memStreakRepo struct {
	states map[string]*gamification.StreakState
	saves  int
}

func newMemStreakRepo() *memStreakRepo {
	return &memStreakRepo{states: make(map[string]*gamification.StreakState)}
}

func (r *memStreakRepo) GetState(ctx context.Context, studentID string) (*gamification.StreakState, error) {
	return r.GetStateForUpdate(ctx, studentID)
}

func (r *memStreakRepo) GetStateForUpdate(_ context.Context, studentID string) (*gamification.StreakState, error) {
	state, ok := r.states[studentID]
	if !ok {
		return nil, shared.ErrStreakNotFound
	}
	copied := *state
	return &copied, nil
}

func (r *memStreakRepo) SaveState(_ context.Context, state *gamification.StreakState) error {
	r.saves++
	copied := *state
	r.states[state.StudentID] = &copied
	return nil
}

func (r *memStreakRepo) TopByCurrentStreak(_ context.Context, limit int) ([]*gamification.StreakState, error) {
	var out []*gamification.StreakState
	for _, s := range r.states {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CurrentStreak > out[j].CurrentStreak })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Badges
// ─────────────────────────────────────────────────────────────────────────────

type memBadgeRepo struct {
	awards   map[string]map[string]*gamification.UserBadgeAward
	awardErr error
}

func newMemBadgeRepo() *memBadgeRepo {
	return &memBadgeRepo{awards: make(map[string]map[string]*gamification.UserBadgeAward)}
}

func (r *memBadgeRepo) Award(_ context.Context, award *gamification.UserBadgeAward) error {
	if r.awardErr != nil {
		return r.awardErr
	}
	byBadge, ok := r.awards[award.StudentID]
	if !ok {
		byBadge = make(map[string]*gamification.UserBadgeAward)
		r.awards[award.StudentID] = byBadge
	}
	if _, exists := byBadge[award.BadgeID]; exists {
		return shared.ErrBadgeAlreadyAwarded
	}
	byBadge[award.BadgeID] = award
	return nil
}

func (r *memBadgeRepo) ListByStudent(_ context.Context, studentID string) ([]*gamification.UserBadgeAward, error) {
	var out []*gamification.UserBadgeAward
	for _, a := range r.awards[studentID] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EarnedAt.After(out[j].EarnedAt) })
	return out, nil
}

func (r *memBadgeRepo) CountInRange(_ context.Context, studentID string, from, to time.Time) (int, error) {
	count := 0
	for _, a := range r.awards[studentID] {
		if !a.EarnedAt.Before(from) && a.EarnedAt.Before(to) {
			count++
		}
	}
	return count, nil
}

func (r *memBadgeRepo) HasAward(_ context.Context, studentID, badgeID string) (bool, error) {
	_, ok := r.awards[studentID][badgeID]
	return ok, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Progress
// ─────────────────────────────────────────────────────────────────────────────

type memProgressRepo struct {
	attempts  map[string]*progress.ConceptAttempt // key: studentID + "/" + conceptID
	upsertErr error
}

func newMemProgressRepo() *memProgressRepo {
	return &memProgressRepo{attempts: make(map[string]*progress.ConceptAttempt)}
}

func attemptKey(studentID, conceptID string) string {
	return studentID + "/" + conceptID
}

func (r *memProgressRepo) Upsert(_ context.Context, attempt *progress.ConceptAttempt) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	copied := *attempt
	r.attempts[attemptKey(attempt.StudentID, attempt.ConceptID)] = &copied
	return nil
}

func (r *memProgressRepo) GetByStudentAndConcept(_ context.Context, studentID, conceptID string) (*progress.ConceptAttempt, error) {
	attempt, ok := r.attempts[attemptKey(studentID, conceptID)]
	if !ok {
		return nil, shared.ErrAttemptNotFound
	}
	copied := *attempt
	return &copied, nil
}

func (r *memProgressRepo) ListByStudent(_ context.Context, studentID string) ([]*progress.ConceptAttempt, error) {
	var out []*progress.ConceptAttempt
	for _, a := range r.attempts {
		if a.StudentID == studentID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memProgressRepo) ListByStudentAndStatus(_ context.Context, studentID string, status progress.ConceptStatus) ([]*progress.ConceptAttempt, error) {
	var out []*progress.ConceptAttempt
	for _, a := range r.attempts {
		if a.StudentID == studentID && a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memProgressRepo) CountStartedInRange(_ context.Context, studentID string, from, to time.Time) (int, error) {
	count := 0
	for _, a := range r.attempts {
		if a.StudentID == studentID && !a.CreatedAt.Before(from) && a.CreatedAt.Before(to) {
			count++
		}
	}
	return count, nil
}

func (r *memProgressRepo) CountCompletedInRange(_ context.Context, studentID string, from, to time.Time) (int, error) {
	count := 0
	for _, a := range r.attempts {
		if a.StudentID == studentID && a.CompletedAt != nil && !a.CompletedAt.Before(from) && a.CompletedAt.Before(to) {
			count++
		}
	}
	return count, nil
}

func (r *memProgressRepo) CountMasteredInRange(_ context.Context, studentID string, from, to time.Time) (int, error) {
	count := 0
	for _, a := range r.attempts {
		if a.StudentID == studentID && a.MasteredAt != nil && !a.MasteredAt.Before(from) && a.MasteredAt.Before(to) {
			count++
		}
	}
	return count, nil
}

func (r *memProgressRepo) SumAttemptsInRange(_ context.Context, studentID string, from, to time.Time) (int, error) {
	sum := 0
	for _, a := range r.attempts {
		if a.StudentID == studentID && !a.LastAttemptedAt.Before(from) && a.LastAttemptedAt.Before(to) {
			sum += a.Attempts
		}
	}
	return sum, nil
}

func (r *memProgressRepo) AverageScoreInRange(_ context.Context, studentID string, from, to time.Time) (float64, error) {
	sum, count := 0.0, 0
	for _, a := range r.attempts {
		if a.StudentID == studentID && a.CurrentScore != nil && !a.LastAttemptedAt.Before(from) && a.LastAttemptedAt.Before(to) {
			sum += *a.CurrentScore
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	return sum / float64(count), nil
}

func (r *memProgressRepo) ListMastered(_ context.Context, studentID string) ([]*progress.ConceptAttempt, error) {
	return r.ListByStudentAndStatus(context.Background(), studentID, progress.StatusMastered)
}

func (r *memProgressRepo) CountMasteredSince(_ context.Context, studentID string, since time.Time) (int, error) {
	count := 0
	for _, a := range r.attempts {
		if a.StudentID == studentID && a.MasteredAt != nil && !a.MasteredAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *memProgressRepo) ListActiveStudentIDs(_ context.Context, since time.Time, offset, limit int) ([]string, error) {
	seen := make(map[string]bool)
	for _, a := range r.attempts {
		if !a.LastAttemptedAt.Before(since) {
			seen[a.StudentID] = true
		}
	}
	var out []string
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memProgressRepo) ListInactiveTodayStudentIDs(_ context.Context, _ time.Duration) ([]string, error) {
	return nil, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Analytics
// ─────────────────────────────────────────────────────────────────────────────

type memAnalyticsRepo struct {
	records   map[string]*analytics.AggregationRecord // key: studentID/period/period_date
	upsertErr error
	upserts   int
}

func newMemAnalyticsRepo() *memAnalyticsRepo {
	return &memAnalyticsRepo{records: make(map[string]*analytics.AggregationRecord)}
}

func recordKey(studentID string, period analytics.PeriodKind, periodDate time.Time) string {
	return studentID + "/" + period.String() + "/" + periodDate.UTC().Format("2006-01-02")
}

func (r *memAnalyticsRepo) Upsert(_ context.Context, record *analytics.AggregationRecord) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.upserts++
	copied := *record
	r.records[recordKey(record.StudentID, record.Period, record.PeriodDate)] = &copied
	return nil
}

func (r *memAnalyticsRepo) Get(_ context.Context, studentID string, period analytics.PeriodKind, periodDate time.Time) (*analytics.AggregationRecord, error) {
	record, ok := r.records[recordKey(studentID, period, periodDate)]
	if !ok {
		return nil, shared.ErrAggregationNotFound
	}
	copied := *record
	return &copied, nil
}

func (r *memAnalyticsRepo) ListByStudent(_ context.Context, studentID string, period analytics.PeriodKind, limit int) ([]*analytics.AggregationRecord, error) {
	var out []*analytics.AggregationRecord
	for _, record := range r.records {
		if record.StudentID == studentID && record.Period == period {
			out = append(out, record)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodDate.Before(out[j].PeriodDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memAnalyticsRepo) ListRecentWeekly(ctx context.Context, studentID string, limit int) ([]*analytics.AggregationRecord, error) {
	return r.ListByStudent(ctx, studentID, analytics.PeriodWeekly, limit)
}

func (r *memAnalyticsRepo) ListInRange(_ context.Context, studentID string, period analytics.PeriodKind, from, to time.Time) ([]*analytics.AggregationRecord, error) {
	var out []*analytics.AggregationRecord
	for _, record := range r.records {
		if record.StudentID == studentID && record.Period == period &&
			!record.PeriodDate.Before(from) && !record.PeriodDate.After(to) {
			out = append(out, record)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodDate.Before(out[j].PeriodDate) })
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Event publishing and content catalog
// ─────────────────────────────────────────────────────────────────────────────

type memPublisher struct {
	events []shared.Event
}

func (p *memPublisher) Publish(event shared.Event) error {
	p.events = append(p.events, event)
	return nil
}

func (p *memPublisher) typesSeen() []shared.EventType {
	out := make([]shared.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type staticCatalog struct {
	counts map[string]int
	err    error
}

func (c *staticCatalog) SubjectConceptCount(_ context.Context, subject string) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	return c.counts[subject], nil
}
