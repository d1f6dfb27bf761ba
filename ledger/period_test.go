package ledger_test

import (
	"testing"
	"time"

	"github.com/escolar/tuition-engine/ledger"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// septToJune is the common case: a school year spanning two calendar years.
func septToJune(startYear int) ledger.Calendar {
	return ledger.Calendar{
		Start: date(startYear, time.September, 1),
		End:   date(startYear+1, time.June, 30),
	}
}

func period(year int, month time.Month) ledger.Period {
	return ledger.Period{Month: month, Year: year}
}

// =============================================================================
// CALENDAR ENUMERATION
// =============================================================================

func TestCalendar_PeriodsDueAsOf_MidYear(t *testing.T) {
	// GIVEN: A school year spanning Sept 2024 - Jun 2025
	// WHEN: Asking which periods are due as of Nov 15 2024
	// THEN: Exactly [Sep, Oct, Nov] 2024, in chronological order

	cal := septToJune(2024)
	got := cal.PeriodsDueAsOf(date(2024, time.November, 15))

	want := []ledger.Period{
		period(2024, time.September),
		period(2024, time.October),
		period(2024, time.November),
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d periods, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("period %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestCalendar_PeriodsDueAsOf_BeforeStart_Empty(t *testing.T) {
	// GIVEN: A school year starting Sept 2024
	// WHEN: The reference date is before the start
	// THEN: No periods are due

	cal := septToJune(2024)
	if got := cal.PeriodsDueAsOf(date(2024, time.August, 31)); len(got) != 0 {
		t.Errorf("expected no periods before start, got %v", got)
	}
}

func TestCalendar_PeriodsDueAsOf_AfterEnd_Capped(t *testing.T) {
	// GIVEN: A school year ending Jun 2025
	// WHEN: The reference date is long after the end
	// THEN: Periods run Sept 2024 through Jun 2025 only (crossing the
	//       calendar-year boundary with correct per-period years)

	cal := septToJune(2024)
	got := cal.PeriodsDueAsOf(date(2026, time.March, 1))

	if len(got) != 10 {
		t.Fatalf("expected 10 periods Sept-Jun, got %d: %v", len(got), got)
	}
	if !got[0].Equal(period(2024, time.September)) {
		t.Errorf("first period: expected 2024-09, got %v", got[0])
	}
	if !got[3].Equal(period(2024, time.December)) {
		t.Errorf("fourth period: expected 2024-12, got %v", got[3])
	}
	if !got[4].Equal(period(2025, time.January)) {
		t.Errorf("fifth period: expected 2025-01, got %v", got[4])
	}
	if !got[9].Equal(period(2025, time.June)) {
		t.Errorf("last period: expected 2025-06, got %v", got[9])
	}
}

func TestCalendar_PeriodsDueAsOf_ReferenceOnStartDay(t *testing.T) {
	// GIVEN: A school year starting Sept 1
	// WHEN: The reference date is exactly the start date
	// THEN: September is already due

	cal := septToJune(2024)
	got := cal.PeriodsDueAsOf(date(2024, time.September, 1))
	if len(got) != 1 || !got[0].Equal(period(2024, time.September)) {
		t.Errorf("expected [2024-09], got %v", got)
	}
}

// =============================================================================
// PERIOD REF MATCHING
// =============================================================================

func TestPeriodRef_FullPeriod_MatchesMonthAndYear(t *testing.T) {
	ref := ledger.FullPeriod(period(2024, time.October))

	if !ref.Matches(period(2024, time.October)) {
		t.Error("year-tagged ref should match its own period")
	}
	if ref.Matches(period(2025, time.October)) {
		t.Error("year-tagged ref must not match the same month of another year")
	}
}

func TestPeriodRef_LegacyMonthOnly_MatchesByMonth(t *testing.T) {
	// Legacy records predate year-tagging and are matched by month alone.
	ref := ledger.LegacyMonthOnly(time.October)

	if !ref.Legacy() {
		t.Fatal("month-only ref should report legacy")
	}
	if !ref.Matches(period(2024, time.October)) || !ref.Matches(period(2025, time.October)) {
		t.Error("legacy ref should match October of any year")
	}
	if ref.Matches(period(2024, time.November)) {
		t.Error("legacy ref must not match a different month")
	}
}

func TestPeriod_Ordering(t *testing.T) {
	if !period(2024, time.December).Before(period(2025, time.January)) {
		t.Error("Dec 2024 should sort before Jan 2025")
	}
	if period(2025, time.January).Before(period(2024, time.December)) {
		t.Error("Jan 2025 must not sort before Dec 2024")
	}
}
