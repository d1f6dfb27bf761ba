/*
balance.go - Per-month payment status and outstanding totals

PURPOSE:
  Computes the tuition statement for one student and school year: which
  months are due, how much was paid toward each, the tri-state status per
  month, and the aggregate outstanding balance.

KEY INSIGHT:
  The statement is computed against an EXPLICIT reference date, never an
  implicit "now". The same history and fee always produce the same
  statement, which is what makes the engine testable and the cached
  student balance auditable.

MATCHING RULES:
  A history record credits a due period when:
  - its kind is tuition,
  - its school year matches,
  - its PeriodRef matches the period: year-tagged records by (month, year),
    legacy month-only records by month alone.

CACHE DRIFT:
  OutstandingTotal is the authoritative figure. It can exceed the cached
  Student.Balance when the fee changed after the cache was last written;
  callers treat the fresh value as truth and may resync the cache.

SEE ALSO:
  - period.go: Calendar enumeration and PeriodRef matching
  - allocation.go: Consumes the outstanding entries produced here
  - tuition/service.go: The resync path
*/
package ledger

import (
	"errors"
	"time"
)

var errNegativeFee = errors.New("fee is negative")

// BalanceCalculator computes statements for one student's grade fee within
// one school year. Pure computation; the caller supplies the history.
type BalanceCalculator struct {
	SchoolYearID string
	Calendar     Calendar
	Fee          Money
}

// Statement returns one Entry per due period as of the reference date,
// in chronological order.
//
// An invalid or negative fee fails loudly: treating it as zero would
// silently understate every student's obligation.
func (bc BalanceCalculator) Statement(history []PaymentRecord, asOf time.Time) ([]Entry, error) {
	if bc.Fee.IsNegative() {
		return nil, &BadMoneyError{Raw: bc.Fee.String(), Cause: errNegativeFee}
	}

	periods := bc.Calendar.PeriodsDueAsOf(asOf)
	entries := make([]Entry, 0, len(periods))
	for _, p := range periods {
		paid := ZeroMoney()
		for _, rec := range history {
			if rec.CreditedTo(bc.SchoolYearID, p) {
				paid = paid.Add(rec.Amount)
			}
		}
		entries = append(entries, Entry{
			Period:   p,
			Expected: bc.Fee,
			Paid:     paid,
			Status:   classify(paid, bc.Fee),
		})
	}
	return entries, nil
}

// OutstandingTotal returns the sum of per-period outstanding amounts over
// all due periods. Adding a payment record never increases this value.
func (bc BalanceCalculator) OutstandingTotal(history []PaymentRecord, asOf time.Time) (Money, error) {
	entries, err := bc.Statement(history, asOf)
	if err != nil {
		return Money{}, err
	}
	total := ZeroMoney()
	for _, e := range entries {
		total = total.Add(e.Outstanding())
	}
	return total, nil
}

// OutstandingEntries filters a statement down to the periods still owing,
// preserving chronological order.
func OutstandingEntries(entries []Entry) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.Outstanding().IsPositive() {
			out = append(out, e)
		}
	}
	return out
}
