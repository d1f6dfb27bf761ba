/*
allocation.go - Distributing a lump payment across outstanding months

PURPOSE:
  Given a single incoming amount and the set of outstanding periods, decide
  deterministically how much lands on each period. Two modes:

  AllocateSpecific:     The clerk pre-selects periods. An exact amount pays
                        each in full; a smaller amount is split
                        proportionally to each period's outstanding share;
                        a larger amount is rejected.
  AllocateOldestFirst:  Ignores selection entirely and clears the oldest
                        debt first (bulk mode).

HARD INVARIANTS:
  - Every returned allocation is > 0; zero allocations are omitted.
  - The allocations sum EXACTLY to the incoming amount. Rounding can leave
    at most a sub-cent residue during the proportional walk; the residue is
    folded into the last allocated period instead of being dropped.
  - Output is a pure function of (amount, outstanding periods, mode).

  This is the single server-trusted implementation: any client-side
  preview must call it rather than re-derive the math.

SEE ALSO:
  - balance.go: Produces the outstanding entries consumed here
  - errors.go: ErrInvalidAmount, ErrEmptySelection, ErrNothingOutstanding,
    ExceedsOwedError
*/
package ledger

import "sort"

// Allocation is one period's share of an incoming payment. Partial is true
// when the period's cumulative paid-to-date, after this allocation, still
// does not cover the fee.
type Allocation struct {
	Period  Period
	Amount  Money
	Partial bool
}

// AllocateSpecific distributes total across the caller-selected entries.
//
// If total equals the selected outstanding sum (within tolerance), each
// period receives its full outstanding amount. If total is smaller, each
// period receives min(remaining, round2(total * outstanding_i / sum)),
// walking periods in ascending chronological order. If total is larger,
// the allocation is rejected; the caller must use bulk mode or select more
// periods.
func AllocateSpecific(total Money, selected []Entry) ([]Allocation, error) {
	if !total.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if len(selected) == 0 {
		return nil, ErrEmptySelection
	}

	entries := sortedByPeriod(selected)

	owedSum := ZeroMoney()
	for _, e := range entries {
		owedSum = owedSum.Add(e.Outstanding())
	}
	if !owedSum.Covers(total) {
		return nil, &ExceedsOwedError{Requested: total, Outstanding: owedSum}
	}

	exact := total.Covers(owedSum)

	var allocations []Allocation
	remaining := total
	for _, e := range entries {
		owed := e.Outstanding()
		if !owed.IsPositive() {
			continue
		}

		var amount Money
		if exact {
			amount = owed.Min(remaining)
		} else {
			share := total.Mul(owed.Value).Div(owedSum.Value).Round2()
			amount = share.Min(remaining)
		}
		if !amount.IsPositive() {
			continue
		}

		remaining = remaining.Sub(amount)
		allocations = append(allocations, Allocation{
			Period:  e.Period,
			Amount:  amount,
			Partial: !e.Paid.Add(amount).Covers(e.Expected),
		})
	}

	return foldRemainder(allocations, remaining, entries), nil
}

// AllocateOldestFirst walks the outstanding entries in ascending
// chronological order, allocating min(remaining, outstanding) to each until
// the amount is exhausted. Oldest debts are always cleared first and the
// result is independent of caller intent.
func AllocateOldestFirst(total Money, outstanding []Entry) ([]Allocation, error) {
	if !total.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if len(outstanding) == 0 {
		return nil, ErrNothingOutstanding
	}

	entries := sortedByPeriod(outstanding)

	var allocations []Allocation
	remaining := total
	for _, e := range entries {
		if remaining.IsZero() {
			break
		}
		owed := e.Outstanding()
		if !owed.IsPositive() {
			continue
		}
		amount := owed.Min(remaining)
		remaining = remaining.Sub(amount)
		allocations = append(allocations, Allocation{
			Period:  e.Period,
			Amount:  amount,
			Partial: !e.Paid.Add(amount).Covers(e.Expected),
		})
	}

	return foldRemainder(allocations, remaining, entries), nil
}

// foldRemainder appends any undistributable residue to the last allocated
// period so the allocations sum exactly to the incoming amount.
func foldRemainder(allocations []Allocation, remaining Money, entries []Entry) []Allocation {
	if !remaining.IsPositive() || len(allocations) == 0 {
		return allocations
	}
	last := &allocations[len(allocations)-1]
	last.Amount = last.Amount.Add(remaining)
	for _, e := range entries {
		if e.Period.Equal(last.Period) {
			last.Partial = !e.Paid.Add(last.Amount).Covers(e.Expected)
			break
		}
	}
	return allocations
}

func sortedByPeriod(entries []Entry) []Entry {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Period.Before(sorted[j].Period)
	})
	return sorted
}
