package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages feature toggles and gradual rollouts.
// Supports percentage rollout, cohort targeting, and per-student overrides.
//
// Gamification is tuned for motivation, not pressure: demotivating
// notifications default off, experimental analytics are gated.
type FeatureFlags struct {
	mu sync.RWMutex

	// Core features
	features map[string]*Feature

	// Override rules (for testing/debugging)
	studentOverrides map[string]map[string]bool // studentID -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Students are assigned based on hash of their ID
	RolloutPercent int

	// Cohort targeting (e.g., "2026-spring", "2026-fall")
	// Empty means all cohorts
	TargetCohorts []string

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time

	// A/B test variant (for experiments)
	Variants []string
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	StudentID string // Student UUID

	Cohort       string // Student cohort (e.g., "2026-spring")
	IsInstructor bool   // Instructors see everything
}

// Predefined feature flag names.
const (
	// === Gamification Features ===
	FeatureGamificationStreaks    = "gamification.streaks"     // Daily streaks
	FeatureGamificationBadges     = "gamification.badges"      // Badge awards
	FeatureGamificationSpeedBonus = "gamification.speed_bonus" // Fast-completion bonus
	FeatureGamificationPerfect    = "gamification.perfect"     // Perfect-score bonus

	// === Leaderboard Features ===
	FeatureLeaderboardPoints  = "leaderboard.points"  // Points leaderboard
	FeatureLeaderboardStreaks = "leaderboard.streaks" // Streak leaderboard
	FeatureLeaderboardWindows = "leaderboard.windows" // Daily/weekly/monthly windows

	// === Notification Features ===
	FeatureNotifyLevelUp         = "notify.level_up"         // "You reached level N!"
	FeatureNotifyBadgeEarned     = "notify.badge_earned"     // Badge award messages
	FeatureNotifyStreakMilestone = "notify.streak_milestone" // Streak milestone cheers
	FeatureNotifyStreakWarning   = "notify.streak_warning"   // "Your streak is at risk"
	FeatureNotifyWeeklySummary   = "notify.weekly_summary"   // Monday summaries
	FeatureNotifyDailyReminder   = "notify.daily_reminder"   // Inactivity reminders

	// === Analytics Features ===
	FeatureAnalyticsInsights   = "analytics.insights"   // Generated insights
	FeatureAnalyticsPrediction = "analytics.prediction" // Completion prediction
	FeatureAnalyticsDashboard  = "analytics.dashboard"  // Cached dashboard

	// === Experimental Features ===
	FeatureExperimentalAI = "experimental.ai_recommendations" // AI-powered study tips
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:         make(map[string]*Feature),
		studentOverrides: make(map[string]map[string]bool),
	}

	// Initialize all features with defaults
	ff.initializeDefaults()

	// Load overrides from environment
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	// Gamification features - core, enabled by default
	ff.features[FeatureGamificationStreaks] = &Feature{
		Name:           FeatureGamificationStreaks,
		Description:    "Track daily streaks",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureGamificationBadges] = &Feature{
		Name:           FeatureGamificationBadges,
		Description:    "Award badges on learning events",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureGamificationSpeedBonus] = &Feature{
		Name:           FeatureGamificationSpeedBonus,
		Description:    "Bonus points for fast completions",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureGamificationPerfect] = &Feature{
		Name:           FeatureGamificationPerfect,
		Description:    "Bonus points for perfect scores",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Leaderboard features
	ff.features[FeatureLeaderboardPoints] = &Feature{
		Name:           FeatureLeaderboardPoints,
		Description:    "All-time points leaderboard",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureLeaderboardStreaks] = &Feature{
		Name:           FeatureLeaderboardStreaks,
		Description:    "Current-streak leaderboard",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureLeaderboardWindows] = &Feature{
		Name:           FeatureLeaderboardWindows,
		Description:    "Daily/weekly/monthly leaderboard windows",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Notification features - carefully tuned to avoid spam
	ff.features[FeatureNotifyLevelUp] = &Feature{
		Name:           FeatureNotifyLevelUp,
		Description:    "Notify on level up",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureNotifyBadgeEarned] = &Feature{
		Name:           FeatureNotifyBadgeEarned,
		Description:    "Notify on badge earned",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureNotifyStreakMilestone] = &Feature{
		Name:           FeatureNotifyStreakMilestone,
		Description:    "Celebrate streak milestones",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureNotifyStreakWarning] = &Feature{
		Name:           FeatureNotifyStreakWarning,
		Description:    "Warn when a streak is about to break",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureNotifyWeeklySummary] = &Feature{
		Name:           FeatureNotifyWeeklySummary,
		Description:    "Weekly progress summary",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureNotifyDailyReminder] = &Feature{
		Name:           FeatureNotifyDailyReminder,
		Description:    "Daily inactivity reminders",
		Enabled:        true,
		RolloutPercent: 50, // Gradual rollout - can feel naggy
	}

	// Analytics features
	ff.features[FeatureAnalyticsInsights] = &Feature{
		Name:           FeatureAnalyticsInsights,
		Description:    "Generated learning insights",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureAnalyticsPrediction] = &Feature{
		Name:           FeatureAnalyticsPrediction,
		Description:    "Completion date prediction",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureAnalyticsDashboard] = &Feature{
		Name:           FeatureAnalyticsDashboard,
		Description:    "Cached student dashboard",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Experimental features - disabled by default
	ff.features[FeatureExperimentalAI] = &Feature{
		Name:           FeatureExperimentalAI,
		Description:    "AI-powered study recommendations",
		Enabled:        false,
		RolloutPercent: 0,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_GAMIFICATION_BADGES=true
// Example: FEATURE_NOTIFY_DAILY_REMINDER=50 (50% rollout)
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		if val := os.Getenv(envKey); val != "" {
			// Try parsing as boolean
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
				if b {
					feature.RolloutPercent = 100
				} else {
					feature.RolloutPercent = 0
				}
				continue
			}

			// Try parsing as percentage
			if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
				feature.Enabled = p > 0
				feature.RolloutPercent = p
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "notify.level_up" -> "FEATURE_NOTIFY_LEVEL_UP"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	// Check per-student overrides first
	if ctx != nil && ctx.StudentID != "" {
		if overrides, ok := ff.studentOverrides[ctx.StudentID]; ok {
			if enabled, ok := overrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}

	// Instructors get all features
	if ctx != nil && ctx.IsInstructor {
		return true
	}

	// Check if feature is enabled at all
	if !feature.Enabled {
		return false
	}

	// Check time-based activation
	now := time.Now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	// Check cohort targeting
	if len(feature.TargetCohorts) > 0 && ctx != nil && ctx.Cohort != "" {
		cohortMatch := false
		for _, c := range feature.TargetCohorts {
			if c == ctx.Cohort {
				cohortMatch = true
				break
			}
		}
		if !cohortMatch {
			return false
		}
	}

	// Check rollout percentage
	if feature.RolloutPercent < 100 && ctx != nil && ctx.StudentID != "" {
		return ff.isInRollout(ctx.StudentID, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// isInRollout determines if a student is in the rollout percentage.
// Uses consistent hashing so students stay in their bucket.
func (ff *FeatureFlags) isInRollout(studentID string, featureName string, percent int) bool {
	// Create a consistent hash for this student+feature combination
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(studentID))
	hash := h.Sum32()

	// Map to 0-99 range
	bucket := int(hash % 100)

	return bucket < percent
}

// GetVariant returns the A/B test variant for a student.
// Returns empty string if no variants defined or feature disabled.
func (ff *FeatureFlags) GetVariant(featureName string, ctx *FeatureContext) string {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	feature, ok := ff.features[featureName]
	if !ok || !ff.IsEnabled(featureName, ctx) {
		return ""
	}

	if len(feature.Variants) == 0 {
		return ""
	}

	// Use consistent hashing to assign variant
	h := fnv.New32a()
	h.Write([]byte(featureName + "_variant"))
	h.Write([]byte(ctx.StudentID))
	hash := h.Sum32()

	variantIndex := int(hash % uint32(len(feature.Variants)))
	return feature.Variants[variantIndex]
}

// SetStudentOverride sets a feature override for a specific student.
// Useful for testing and debugging.
func (ff *FeatureFlags) SetStudentOverride(studentID string, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.studentOverrides[studentID]; !ok {
		ff.studentOverrides[studentID] = make(map[string]bool)
	}
	ff.studentOverrides[studentID][featureName] = enabled
}

// ClearStudentOverrides removes all overrides for a student.
func (ff *FeatureFlags) ClearStudentOverrides(studentID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.studentOverrides, studentID)
}

// SetRolloutPercent updates the rollout percentage for a feature.
// Thread-safe for live updates.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0

	return nil
}

// EnableFeature enables a feature at 100% rollout.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 100)
}

// DisableFeature disables a feature completely.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		// Return a copy
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Convenience methods for common checks ---

// GamificationEnabled checks if core gamification features are enabled.
func (ff *FeatureFlags) GamificationEnabled(ctx *FeatureContext) bool {
	return ff.IsEnabled(FeatureGamificationStreaks, ctx) ||
		ff.IsEnabled(FeatureGamificationBadges, ctx)
}

// NotificationsEnabled checks if any notifications are enabled.
func (ff *FeatureFlags) NotificationsEnabled(ctx *FeatureContext) bool {
	return ff.IsEnabled(FeatureNotifyLevelUp, ctx) ||
		ff.IsEnabled(FeatureNotifyBadgeEarned, ctx) ||
		ff.IsEnabled(FeatureNotifyWeeklySummary, ctx) ||
		ff.IsEnabled(FeatureNotifyDailyReminder, ctx)
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
