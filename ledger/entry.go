package ledger

// =============================================================================
// MONTH STATUS - Tri-state classification of one obligation period
// =============================================================================

type MonthStatus string

const (
	StatusPaid    MonthStatus = "paid"
	StatusPartial MonthStatus = "partial"
	StatusUnpaid  MonthStatus = "unpaid"
)

// Entry is the per-period aggregation of amount paid against amount owed.
type Entry struct {
	Period   Period
	Expected Money
	Paid     Money
	Status   MonthStatus
}

// Outstanding returns max(0, Expected - Paid) for this period.
func (e Entry) Outstanding() Money {
	return e.Expected.Sub(e.Paid).FloorZero()
}

// classify applies the tri-state rule with the rounding tolerance:
// paid within epsilon of the fee counts as paid.
func classify(paid, expected Money) MonthStatus {
	switch {
	case paid.Covers(expected):
		return StatusPaid
	case paid.IsPositive():
		return StatusPartial
	default:
		return StatusUnpaid
	}
}
