package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/G2-Spool/spool-progress-service/internal/domain/progress"
	"github.com/G2-Spool/spool-progress-service/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// VELOCITY
// ══════════════════════════════════════════════════════════════════════════════

// Velocity computes learning velocity (concepts per active day): attempts
// that reached completed/mastered with last-attempt within the window,
// divided by the distinct calendar days carrying such attempts. Returns
// 0.0 with no active days rather than dividing by zero.
func Velocity(attempts []*progress.ConceptAttempt, windowStart time.Time) float64 {
	concepts := 0
	activeDays := make(map[string]struct{})

	for _, a := range attempts {
		if !a.Status.IsAtLeast(progress.StatusCompleted) {
			continue
		}
		if a.LastAttemptedAt.Before(windowStart) {
			continue
		}
		concepts++
		activeDays[timeutil.FormatDateStr(a.LastAttemptedAt)] = struct{}{}
	}

	if len(activeDays) == 0 {
		return 0.0
	}
	return float64(concepts) / float64(len(activeDays))
}

// ══════════════════════════════════════════════════════════════════════════════
// MASTERY EFFICIENCY
// ══════════════════════════════════════════════════════════════════════════════

// Efficiency describes how economically a student reaches mastery.
type Efficiency struct {
	AverageAttemptsToMastery float64
	AverageHoursToMastery    float64

	// Score (0-100): the mean of two linear penalty curves. Fewer attempts
	// and faster mastery both score higher; each curve floors at zero.
	Score float64
}

// MasteryEfficiency computes attempt/time efficiency over mastered concepts.
// With no masteries every field is zero-valued from the curves' starting
// points, matching an empty average of zero.
func MasteryEfficiency(attempts []*progress.ConceptAttempt) Efficiency {
	var attemptSum, hourSum float64
	var mastered int

	for _, a := range attempts {
		if a.Status != progress.StatusMastered || a.MasteredAt == nil {
			continue
		}
		mastered++
		attemptSum += float64(a.Attempts)
		hourSum += a.HoursToMastery()
	}

	var avgAttempts, avgHours float64
	if mastered > 0 {
		avgAttempts = attemptSum / float64(mastered)
		avgHours = hourSum / float64(mastered)
	}

	return Efficiency{
		AverageAttemptsToMastery: avgAttempts,
		AverageHoursToMastery:    avgHours,
		Score:                    efficiencyScore(avgAttempts, avgHours),
	}
}

// efficiencyScore averages the attempt and time penalty curves.
func efficiencyScore(avgAttempts, avgHours float64) float64 {
	attemptScore := 100 - (avgAttempts-1)*20
	if attemptScore < 0 {
		attemptScore = 0
	}
	timeScore := 100 - avgHours*2
	if timeScore < 0 {
		timeScore = 0
	}
	return (attemptScore + timeScore) / 2
}

// ══════════════════════════════════════════════════════════════════════════════
// CONSISTENCY
// ══════════════════════════════════════════════════════════════════════════════

// Consistency computes the 0-1 regularity measure: distinct active days
// divided by the elapsed days between the earliest creation and the
// latest attempt, clamped to 1.0. No attempts → 0.0.
func Consistency(attempts []*progress.ConceptAttempt) float64 {
	if len(attempts) == 0 {
		return 0.0
	}

	activeDays := make(map[string]struct{})
	var earliest, latest time.Time

	for _, a := range attempts {
		activeDays[timeutil.FormatDateStr(a.LastAttemptedAt)] = struct{}{}
		if earliest.IsZero() || a.CreatedAt.Before(earliest) {
			earliest = a.CreatedAt
		}
		if a.LastAttemptedAt.After(latest) {
			latest = a.LastAttemptedAt
		}
	}

	totalDays := timeutil.DaysBetween(earliest, latest)
	if totalDays <= 0 {
		return 0.0
	}

	ratio := float64(len(activeDays)) / float64(totalDays)
	if ratio > 1.0 {
		return 1.0
	}
	return ratio
}

// ══════════════════════════════════════════════════════════════════════════════
// TREND SLOPE
// ══════════════════════════════════════════════════════════════════════════════

// Trend summarizes the weekly velocity trend.
type Trend struct {
	// Slope - ordinary-least-squares slope of weekly velocity vs week index.
	Slope float64

	// RecentWeeks - how many weekly records went into the fit.
	RecentWeeks int

	// PeakWeek - period date of the week with the most masteries.
	PeakWeek time.Time
}

// WeeklyTrend fits a least-squares line over the per-week velocities of
// the given weekly aggregation records (ordered by period date). Velocity
// per week is concepts_mastered / max(time_spent_hours, 1). Fewer than
// two records yield no trend (nil), not an error.
func WeeklyTrend(records []*AggregationRecord) *Trend {
	if len(records) < 2 {
		return nil
	}

	sorted := make([]*AggregationRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].PeriodDate.Before(sorted[j].PeriodDate)
	})

	velocities := make([]float64, len(sorted))
	peak := sorted[0]
	for i, r := range sorted {
		hours := r.TimeSpentHours()
		if hours < 1 {
			hours = 1
		}
		velocities[i] = float64(r.ConceptsMastered) / hours
		if r.ConceptsMastered > peak.ConceptsMastered {
			peak = r
		}
	}

	return &Trend{
		Slope:       leastSquaresSlope(velocities),
		RecentWeeks: len(sorted),
		PeakWeek:    peak.PeriodDate,
	}
}

// leastSquaresSlope fits y = a + b*x over x = 0..n-1 and returns b.
func leastSquaresSlope(ys []float64) float64 {
	n := float64(len(ys))
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETION PREDICTION
// ══════════════════════════════════════════════════════════════════════════════

// ConfidenceTier labels prediction reliability.
type ConfidenceTier string

const (
	ConfidenceHigh   ConfidenceTier = "high"
	ConfidenceMedium ConfidenceTier = "medium"
	ConfidenceLow    ConfidenceTier = "low"
)

// Prediction is the completion projection for remaining work.
type Prediction struct {
	// EstimatedDays - projected days to finish, nil when velocity is zero.
	EstimatedDays *int

	// EstimatedCompletionDate - today + EstimatedDays, nil when no estimate.
	EstimatedCompletionDate *time.Time

	// Confidence - derived from consistency.
	Confidence ConfidenceTier

	// Velocity - the velocity the projection used.
	Velocity float64

	// Recommendation - pace guidance text.
	Recommendation string
}

// PredictCompletion projects time to finish the remaining concepts at the
// current velocity. Zero (or negative) velocity yields a no-estimate
// result with low confidence instead of a division by zero.
func PredictCompletion(remaining int, velocity, consistency float64, now time.Time) Prediction {
	if velocity <= 0 {
		return Prediction{
			Confidence:     ConfidenceLow,
			Velocity:       velocity,
			Recommendation: "Need more learning data to make predictions",
		}
	}

	estimatedDays := int(float64(remaining) / velocity)
	completionDate := timeutil.StartOfDay(now.UTC()).AddDate(0, 0, estimatedDays)

	confidence := ConfidenceLow
	switch {
	case consistency > 0.8:
		confidence = ConfidenceHigh
	case consistency > 0.5:
		confidence = ConfidenceMedium
	}

	return Prediction{
		EstimatedDays:           &estimatedDays,
		EstimatedCompletionDate: &completionDate,
		Confidence:              confidence,
		Velocity:                velocity,
		Recommendation:          completionRecommendation(float64(estimatedDays), velocity),
	}
}

// completionRecommendation buckets the estimate into pace guidance. The
// slow bucket suggests the velocity needed to finish within two months.
func completionRecommendation(estimatedDays, velocity float64) string {
	switch {
	case estimatedDays < 30:
		return fmt.Sprintf("At your current pace of %.1f concepts/day, you're on track to complete soon!", velocity)
	case estimatedDays < 90:
		return fmt.Sprintf("Maintain your pace of %.1f concepts/day to complete within 3 months.", velocity)
	default:
		targetVelocity := estimatedDays / 60
		return fmt.Sprintf("Increase your pace to %.1f concepts/day to complete within 2 months.", targetVelocity)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// STRENGTHS & WEAKNESSES
// ══════════════════════════════════════════════════════════════════════════════

// SubjectPerformance is the per-subject score rollup behind the
// strengths/weaknesses split.
type SubjectPerformance struct {
	Subject      string
	AverageScore float64
	Attempts     int
}

// StrengthsWeaknesses groups scored attempts by subject, drops subjects
// with fewer than three attempts, and splits by mean score: the top three
// subjects averaging >= 80 are strengths, any subject under 70 is a
// weakness. Thin groups never leak into either list.
func StrengthsWeaknesses(attempts []*progress.ConceptAttempt) (strengths, weaknesses []string) {
	type agg struct {
		scoreSum float64
		count    int
	}
	bySubject := make(map[string]*agg)

	for _, a := range attempts {
		if a.CurrentScore == nil || a.Subject == "" {
			continue
		}
		entry, ok := bySubject[a.Subject]
		if !ok {
			entry = &agg{}
			bySubject[a.Subject] = entry
		}
		entry.scoreSum += *a.CurrentScore
		entry.count++
	}

	var performances []SubjectPerformance
	for subject, entry := range bySubject {
		if entry.count < 3 {
			continue
		}
		performances = append(performances, SubjectPerformance{
			Subject:      subject,
			AverageScore: entry.scoreSum / float64(entry.count),
			Attempts:     entry.count,
		})
	}

	sort.Slice(performances, func(i, j int) bool {
		if performances[i].AverageScore != performances[j].AverageScore {
			return performances[i].AverageScore > performances[j].AverageScore
		}
		return performances[i].Subject < performances[j].Subject
	})

	for i, p := range performances {
		if i < 3 && p.AverageScore >= 80 {
			strengths = append(strengths, p.Subject)
		}
		if p.AverageScore < 70 {
			weaknesses = append(weaknesses, p.Subject)
		}
	}

	return strengths, weaknesses
}
