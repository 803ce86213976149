package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE CONCEPT ATTEMPTS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create concept attempt tracking
-- Version: 001

CREATE TABLE IF NOT EXISTS concept_attempts (
    id UUID PRIMARY KEY,
    student_id UUID NOT NULL,
    concept_id UUID NOT NULL,
    subject VARCHAR(100) NOT NULL DEFAULT '',
    status VARCHAR(20) NOT NULL DEFAULT 'in_progress',
    attempts INTEGER NOT NULL DEFAULT 1,
    current_score DECIMAL(5,2),
    best_score DECIMAL(5,2),
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    last_attempted_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    completed_at TIMESTAMP WITH TIME ZONE,
    mastered_at TIMESTAMP WITH TIME ZONE,

    -- One progress row per student/concept pair; attempts increment in place
    CONSTRAINT uq_concept_attempts_student_concept UNIQUE (student_id, concept_id),

    CONSTRAINT valid_attempt_status CHECK (status IN ('in_progress', 'completed', 'mastered')),
    CONSTRAINT valid_attempts CHECK (attempts >= 0),
    CONSTRAINT valid_current_score CHECK (current_score IS NULL OR (current_score >= 0 AND current_score <= 100)),
    CONSTRAINT valid_best_score CHECK (best_score IS NULL OR (best_score >= 0 AND best_score <= 100))
);

-- Indexes for per-student listings and range aggregation queries
CREATE INDEX IF NOT EXISTS idx_concept_attempts_student ON concept_attempts(student_id);
CREATE INDEX IF NOT EXISTS idx_concept_attempts_student_status ON concept_attempts(student_id, status);
CREATE INDEX IF NOT EXISTS idx_concept_attempts_student_created ON concept_attempts(student_id, created_at);
CREATE INDEX IF NOT EXISTS idx_concept_attempts_student_completed ON concept_attempts(student_id, completed_at) WHERE completed_at IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_concept_attempts_student_mastered ON concept_attempts(student_id, mastered_at) WHERE mastered_at IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_concept_attempts_last_attempted ON concept_attempts(last_attempted_at);
`

const migration001Down = `
DROP TABLE IF EXISTS concept_attempts;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE GAMIFICATION
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create gamification state (points, history, streaks, badges)
-- Version: 002

CREATE TABLE IF NOT EXISTS points_state (
    student_id UUID PRIMARY KEY,
    total_points INTEGER NOT NULL DEFAULT 0,
    lifetime_points INTEGER NOT NULL DEFAULT 0,
    current_level INTEGER NOT NULL DEFAULT 1,
    points_to_next_level INTEGER NOT NULL DEFAULT 100,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_total_points CHECK (total_points >= 0),
    CONSTRAINT valid_lifetime_points CHECK (lifetime_points >= total_points),
    CONSTRAINT valid_level CHECK (current_level >= 1)
);

-- Leaderboard rebuilds scan points ordered by balance
CREATE INDEX IF NOT EXISTS idx_points_state_total ON points_state(total_points DESC);

-- Append-only award log; windowed leaderboards sum deltas over created_at
CREATE TABLE IF NOT EXISTS point_history (
    id UUID PRIMARY KEY,
    student_id UUID NOT NULL,
    delta INTEGER NOT NULL,
    reason VARCHAR(100) NOT NULL,
    concept_id UUID,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_delta CHECK (delta >= 0)
);

CREATE INDEX IF NOT EXISTS idx_point_history_student_created ON point_history(student_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_point_history_created ON point_history(created_at);

CREATE TABLE IF NOT EXISTS streak_state (
    student_id UUID PRIMARY KEY,
    current_streak INTEGER NOT NULL DEFAULT 0,
    longest_streak INTEGER NOT NULL DEFAULT 0,
    last_activity_date DATE,
    streak_started_date DATE,
    total_active_days INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_current_streak CHECK (current_streak >= 0),
    CONSTRAINT valid_longest_streak CHECK (longest_streak >= current_streak)
);

CREATE INDEX IF NOT EXISTS idx_streak_state_current ON streak_state(current_streak DESC);
CREATE INDEX IF NOT EXISTS idx_streak_state_last_activity ON streak_state(last_activity_date);

CREATE TABLE IF NOT EXISTS badge_awards (
    student_id UUID NOT NULL,
    badge_id VARCHAR(50) NOT NULL,
    earned_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    -- A badge is earned at most once per student
    CONSTRAINT pk_badge_awards PRIMARY KEY (student_id, badge_id)
);

CREATE INDEX IF NOT EXISTS idx_badge_awards_earned ON badge_awards(earned_at);
`

const migration002Down = `
DROP TABLE IF EXISTS badge_awards;
DROP TABLE IF EXISTS streak_state;
DROP TABLE IF EXISTS point_history;
DROP TABLE IF EXISTS points_state;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE ANALYTICS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create analytics aggregation records
-- Version: 003

CREATE TABLE IF NOT EXISTS aggregation_records (
    id UUID PRIMARY KEY,
    student_id UUID NOT NULL,
    period VARCHAR(10) NOT NULL,
    period_date DATE NOT NULL,
    concepts_started INTEGER NOT NULL DEFAULT 0,
    concepts_completed INTEGER NOT NULL DEFAULT 0,
    concepts_mastered INTEGER NOT NULL DEFAULT 0,
    time_spent_seconds INTEGER NOT NULL DEFAULT 0,
    average_score DECIMAL(5,2) NOT NULL DEFAULT 0,
    points_earned INTEGER NOT NULL DEFAULT 0,
    badges_earned INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    -- Recomputation upserts on this key
    CONSTRAINT uq_aggregation_records_bucket UNIQUE (student_id, period, period_date),

    CONSTRAINT valid_period CHECK (period IN ('daily', 'weekly', 'monthly'))
);

CREATE INDEX IF NOT EXISTS idx_aggregation_records_student_period ON aggregation_records(student_id, period, period_date DESC);
`

const migration003Down = `
DROP TABLE IF EXISTS aggregation_records;
`
