package ledger

import "time"

// =============================================================================
// SCHOOL YEAR
// =============================================================================

// SchoolYear is the obligation window payments are recorded against.
// Exactly one school year is active at a time; the surrounding entity layer
// enforces the exclusivity, this core only reads the flag.
type SchoolYear struct {
	ID     string
	Name   string
	Start  time.Time
	End    time.Time
	Active bool
}

// Calendar returns the obligation-period calendar for the year.
func (sy SchoolYear) Calendar() Calendar {
	return Calendar{Start: sy.Start, End: sy.End}
}

// =============================================================================
// GRADE
// =============================================================================

// Grade carries the monthly tuition fee. The fee is read-only input to the
// ledger; it may change over time, and historical records are never
// recomputed - each record stores the amount that was actually paid.
type Grade struct {
	ID           string
	Name         string
	SchoolYearID string
	MonthlyFee   Money
}

// =============================================================================
// STUDENT
// =============================================================================

// Student holds the cached outstanding balance. The cache is a denormalized
// copy of what BalanceCalculator would compute; it is written after every
// payment and resynchronized on demand. Always >= 0.
type Student struct {
	ID      string
	Name    string
	GradeID string
	Active  bool
	Balance Money
}

// =============================================================================
// PAYMENT RECORD - Immutable once created
// =============================================================================

type PaymentKind string

const (
	KindTuition       PaymentKind = "tuition"
	KindInscription   PaymentKind = "inscription"
	KindDiscretionary PaymentKind = "discretionary"
)

func (k PaymentKind) Valid() bool {
	switch k {
	case KindTuition, KindInscription, KindDiscretionary:
		return true
	}
	return false
}

// PaymentRecord is one ledger entry for a student payment. Records are
// append-only: corrections are made via new records, never by mutating
// history. Period is nil for non-tuition kinds.
type PaymentRecord struct {
	ID            string
	StudentID     string
	SchoolYearID  string
	Amount        Money
	Period        *PeriodRef
	Partial       bool
	Kind          PaymentKind
	Method        string
	ReceiptNumber string
	BatchID       string // groups records created from one user submission
	ClerkID       string
	Description   string
	CreatedAt     time.Time
}

// CreditedTo reports whether this record counts toward the given period of
// the given school year. Only tuition records credit periods.
func (r PaymentRecord) CreditedTo(schoolYearID string, p Period) bool {
	if r.Kind != KindTuition || r.SchoolYearID != schoolYearID || r.Period == nil {
		return false
	}
	return r.Period.Matches(p)
}
