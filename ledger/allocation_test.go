package ledger_test

import (
	"errors"
	"testing"
	"time"

	"github.com/escolar/tuition-engine/ledger"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func owedEntry(p ledger.Period, expected, paid string) ledger.Entry {
	e := ledger.Entry{
		Period:   p,
		Expected: ledger.MustMoney(expected),
		Paid:     ledger.MustMoney(paid),
	}
	return e
}

func unpaid500(p ledger.Period) ledger.Entry { return owedEntry(p, "500.00", "0") }

func sumAllocations(allocs []ledger.Allocation) ledger.Money {
	total := ledger.ZeroMoney()
	for _, a := range allocs {
		total = total.Add(a.Amount)
	}
	return total
}

// =============================================================================
// SPECIFIC MODE
// =============================================================================

func TestAllocateSpecific_ExactAmount_PaysEachInFull(t *testing.T) {
	// GIVEN: Two unpaid periods owing 500 each
	// WHEN: Allocating exactly 1000.00
	// THEN: Each period gets 500.00 and neither is partial

	entries := []ledger.Entry{
		unpaid500(period(2024, time.September)),
		unpaid500(period(2024, time.October)),
	}

	allocs, err := ledger.AllocateSpecific(ledger.MustMoney("1000.00"), entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(allocs) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(allocs))
	}
	for _, a := range allocs {
		if !a.Amount.Equal(ledger.MustMoney("500.00")) {
			t.Errorf("period %v: expected 500.00, got %v", a.Period, a.Amount)
		}
		if a.Partial {
			t.Errorf("period %v: exact payment must not be partial", a.Period)
		}
	}
}

func TestAllocateSpecific_Proportional_EqualOwedSplitsEqually(t *testing.T) {
	// GIVEN: Two periods owing 500 each (total 1000)
	// WHEN: Allocating 300.00
	// THEN: 150.00 / 150.00, both partial, summing to exactly 300.00

	entries := []ledger.Entry{
		unpaid500(period(2024, time.September)),
		unpaid500(period(2024, time.October)),
	}

	allocs, err := ledger.AllocateSpecific(ledger.MustMoney("300.00"), entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(allocs) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(allocs))
	}
	for _, a := range allocs {
		if !a.Amount.Equal(ledger.MustMoney("150.00")) {
			t.Errorf("period %v: expected 150.00, got %v", a.Period, a.Amount)
		}
		if !a.Partial {
			t.Errorf("period %v: short payment must be partial", a.Period)
		}
	}
	if !sumAllocations(allocs).Equal(ledger.MustMoney("300.00")) {
		t.Errorf("allocations must sum to 300.00, got %v", sumAllocations(allocs))
	}
}

func TestAllocateSpecific_Proportional_UnevenOwed(t *testing.T) {
	// GIVEN: Periods owing 500 and 250 (total 750)
	// WHEN: Allocating 100.00
	// THEN: Shares follow the owed ratio (66.67 / 33.33) and sum exactly

	entries := []ledger.Entry{
		unpaid500(period(2024, time.September)),
		owedEntry(period(2024, time.October), "500.00", "250.00"),
	}

	allocs, err := ledger.AllocateSpecific(ledger.MustMoney("100.00"), entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(allocs) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(allocs))
	}
	if !allocs[0].Amount.Equal(ledger.MustMoney("66.67")) {
		t.Errorf("September share: expected 66.67, got %v", allocs[0].Amount)
	}
	if !allocs[1].Amount.Equal(ledger.MustMoney("33.33")) {
		t.Errorf("October share: expected 33.33, got %v", allocs[1].Amount)
	}
	if !sumAllocations(allocs).Equal(ledger.MustMoney("100.00")) {
		t.Errorf("allocations must sum to 100.00, got %v", sumAllocations(allocs))
	}
}

func TestAllocateSpecific_RoundingRemainder_NeverLost(t *testing.T) {
	// GIVEN: Three periods owing 500 each
	// WHEN: Allocating 100.00 (each share rounds to 33.33, leaving 0.01)
	// THEN: The residue is folded in so the sum is exactly 100.00

	entries := []ledger.Entry{
		unpaid500(period(2024, time.September)),
		unpaid500(period(2024, time.October)),
		unpaid500(period(2024, time.November)),
	}

	allocs, err := ledger.AllocateSpecific(ledger.MustMoney("100.00"), entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := sumAllocations(allocs); !got.Equal(ledger.MustMoney("100.00")) {
		t.Fatalf("fractional cents were dropped: allocations sum to %v, want 100.00", got)
	}
}

func TestAllocateSpecific_ExceedsOwed_Rejected(t *testing.T) {
	// GIVEN: One period owing 500
	// WHEN: Allocating 600
	// THEN: Rejected with the outstanding figure in the error

	entries := []ledger.Entry{unpaid500(period(2024, time.September))}

	_, err := ledger.AllocateSpecific(ledger.MustMoney("600.00"), entries)
	if !errors.Is(err, ledger.ErrExceedsOwed) {
		t.Fatalf("expected ErrExceedsOwed, got %v", err)
	}
	var exceeds *ledger.ExceedsOwedError
	if !errors.As(err, &exceeds) {
		t.Fatal("expected ExceedsOwedError with context")
	}
	if !exceeds.Outstanding.Equal(ledger.MustMoney("500.00")) {
		t.Errorf("expected outstanding 500.00 in error, got %v", exceeds.Outstanding)
	}
}

func TestAllocateSpecific_Validation(t *testing.T) {
	entries := []ledger.Entry{unpaid500(period(2024, time.September))}

	if _, err := ledger.AllocateSpecific(ledger.ZeroMoney(), entries); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Errorf("zero amount: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := ledger.AllocateSpecific(ledger.MustMoney("-10"), entries); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Errorf("negative amount: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := ledger.AllocateSpecific(ledger.MustMoney("100"), nil); !errors.Is(err, ledger.ErrEmptySelection) {
		t.Errorf("empty selection: expected ErrEmptySelection, got %v", err)
	}
}

func TestAllocateSpecific_PriorPartialPeriod_ExactTopUpClearsPartial(t *testing.T) {
	// GIVEN: A period with a prior partial payment of 200 (owes 300)
	// WHEN: Allocating exactly the 300 owed
	// THEN: Cumulative paid covers the fee, so the allocation is not partial

	entries := []ledger.Entry{owedEntry(period(2024, time.September), "500.00", "200.00")}

	allocs, err := ledger.AllocateSpecific(ledger.MustMoney("300.00"), entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allocs[0].Partial {
		t.Error("top-up covering the fee must not be marked partial")
	}
}

// =============================================================================
// BULK (OLDEST-FIRST) MODE
// =============================================================================

func TestAllocateOldestFirst_ClearsOldestDebtFirst(t *testing.T) {
	// GIVEN: Three outstanding periods owing 500 each, chronological
	// WHEN: Allocating 700.00
	// THEN: Period 1 gets 500 (paid), period 2 gets 200 (partial),
	//       period 3 gets nothing and is omitted

	entries := []ledger.Entry{
		unpaid500(period(2024, time.November)), // deliberately unsorted input
		unpaid500(period(2024, time.September)),
		unpaid500(period(2024, time.October)),
	}

	allocs, err := ledger.AllocateOldestFirst(ledger.MustMoney("700.00"), entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(allocs) != 2 {
		t.Fatalf("expected 2 allocations (third omitted), got %d: %v", len(allocs), allocs)
	}
	if !allocs[0].Period.Equal(period(2024, time.September)) || !allocs[0].Amount.Equal(ledger.MustMoney("500.00")) || allocs[0].Partial {
		t.Errorf("oldest period: expected 500.00 non-partial, got %+v", allocs[0])
	}
	if !allocs[1].Period.Equal(period(2024, time.October)) || !allocs[1].Amount.Equal(ledger.MustMoney("200.00")) || !allocs[1].Partial {
		t.Errorf("second period: expected 200.00 partial, got %+v", allocs[1])
	}
}

func TestAllocateOldestFirst_NothingOutstanding_Rejected(t *testing.T) {
	_, err := ledger.AllocateOldestFirst(ledger.MustMoney("100.00"), nil)
	if !errors.Is(err, ledger.ErrNothingOutstanding) {
		t.Fatalf("expected ErrNothingOutstanding, got %v", err)
	}
}

func TestAllocateOldestFirst_SumInvariant(t *testing.T) {
	// The sum of allocations equals the incoming amount for a spread of
	// amounts against the same outstanding set.
	entries := []ledger.Entry{
		unpaid500(period(2024, time.September)),
		owedEntry(period(2024, time.October), "500.00", "123.45"),
		unpaid500(period(2024, time.November)),
	}

	for _, amount := range []string{"0.01", "123.45", "500.00", "876.55", "1376.54"} {
		total := ledger.MustMoney(amount)
		allocs, err := ledger.AllocateOldestFirst(total, entries)
		if err != nil {
			t.Fatalf("amount %s: unexpected error: %v", amount, err)
		}
		if got := sumAllocations(allocs); !got.Equal(total) {
			t.Errorf("amount %s: allocations sum to %v", amount, got)
		}
		for _, a := range allocs {
			if !a.Amount.IsPositive() {
				t.Errorf("amount %s: zero/negative allocation returned for %v", amount, a.Period)
			}
		}
	}
}
