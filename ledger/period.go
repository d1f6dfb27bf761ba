package ledger

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - One (month, year) tuition obligation unit
// =============================================================================

// Period is a single monthly obligation within a school year.
// Ordering is strictly chronological by (year, month). A school year
// typically spans two calendar years, so periods never assume a shared year.
type Period struct {
	Month time.Month
	Year  int
}

func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

func (p Period) Equal(o Period) bool { return p.Year == o.Year && p.Month == o.Month }

func (p Period) String() string { return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month)) }

// =============================================================================
// PERIOD REF - How a payment record points at a period
// =============================================================================

// PeriodRef is the period a payment record is credited to. Legacy records
// that predate year-tagging carry only a month (Year == 0) and are matched
// by month alone; this is modelled explicitly rather than guessed.
type PeriodRef struct {
	Month time.Month
	Year  int // 0 for legacy month-only records
}

func (r PeriodRef) Legacy() bool { return r.Year == 0 }

// Matches reports whether the record is credited to the given period.
func (r PeriodRef) Matches(p Period) bool {
	if r.Legacy() {
		return r.Month == p.Month
	}
	return r.Month == p.Month && r.Year == p.Year
}

// FullPeriod builds a year-tagged reference to a period.
func FullPeriod(p Period) PeriodRef { return PeriodRef{Month: p.Month, Year: p.Year} }

// LegacyMonthOnly builds a month-only reference for pre-year-tagging data.
func LegacyMonthOnly(month time.Month) PeriodRef { return PeriodRef{Month: month} }

// =============================================================================
// CALENDAR - Enumerates a school year's obligation periods
// =============================================================================

// Calendar enumerates the ordered monthly obligation periods of one school
// year. The reference date is always an explicit parameter so balance
// computation stays deterministic and testable.
type Calendar struct {
	Start time.Time
	End   time.Time
}

// PeriodsDueAsOf returns every calendar month from Start's month through
// min(ref, End)'s month, inclusive, chronological, de-duplicated. Empty when
// ref precedes the school year's start.
func (c Calendar) PeriodsDueAsOf(ref time.Time) []Period {
	if ref.Before(c.Start) {
		return nil
	}

	limit := ref
	if c.End.Before(limit) {
		limit = c.End
	}

	cur := monthStart(c.Start)
	last := monthStart(limit)

	var periods []Period
	for !cur.After(last) {
		p := Period{Month: cur.Month(), Year: cur.Year()}
		// A school year cannot revisit the same month twice; the monthly
		// walk makes duplicates impossible, but guard against a malformed
		// Start/End pair producing a wrap-around.
		if n := len(periods); n == 0 || periods[n-1].Before(p) {
			periods = append(periods, p)
		}
		cur = cur.AddDate(0, 1, 0)
	}
	return periods
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
