// Package analytics contains the learning-analytics domain: period
// bucketing, aggregation records, trend and prediction calculators, and
// the insight generator.
package analytics

import (
	"strings"
	"time"

	"github.com/G2-Spool/spool-progress-service/internal/domain/shared"
	"github.com/G2-Spool/spool-progress-service/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PERIOD RESOLVER
// ══════════════════════════════════════════════════════════════════════════════

// PeriodKind is the aggregation bucket size.
type PeriodKind string

const (
	PeriodDaily   PeriodKind = "daily"
	PeriodWeekly  PeriodKind = "weekly"
	PeriodMonthly PeriodKind = "monthly"
)

// IsValid checks if the kind is one of the recognized values.
func (p PeriodKind) IsValid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return true
	}
	return false
}

// String returns the string representation.
func (p PeriodKind) String() string {
	return string(p)
}

// NewPeriodKind parses a period kind with validation.
func NewPeriodKind(value string) (PeriodKind, error) {
	p := PeriodKind(strings.ToLower(strings.TrimSpace(value)))
	if !p.IsValid() {
		return "", shared.ErrInvalidPeriod
	}
	return p, nil
}

// ResolvePeriod maps (kind, anchor) to an inclusive [start, end] date range:
//   - daily: start = end = anchor
//   - weekly: Monday through Sunday of the anchor's week
//   - monthly: first through last calendar day of the anchor's month
//
// Any date is valid input. Times are truncated to UTC midnight.
func ResolvePeriod(kind PeriodKind, anchor time.Time) (start, end time.Time) {
	day := timeutil.StartOfDay(anchor.UTC())

	switch kind {
	case PeriodWeekly:
		start = timeutil.StartOfWeek(day)
		end = start.AddDate(0, 0, 6)
	case PeriodMonthly:
		start = timeutil.StartOfMonth(day)
		end = timeutil.EndOfMonth(day)
	default: // daily
		start, end = day, day
	}
	return start, end
}
