package tuition_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escolar/tuition-engine/ledger"
	"github.com/escolar/tuition-engine/store/memory"
	"github.com/escolar/tuition-engine/tuition"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// newTestService seeds one school year (Sept 2025 - June 2026, active), one
// grade at 500.00/month, and one student with a 5000.00 cached balance.
func newTestService(t *testing.T) (*tuition.Service, *memory.Store) {
	store := memory.New()
	ctx := context.Background()

	require.NoError(t, store.SaveSchoolYear(ctx, ledger.SchoolYear{
		ID:     "sy-2025",
		Name:   "2025-2026",
		Start:  time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC),
		Active: true,
	}))
	require.NoError(t, store.SaveGrade(ctx, ledger.Grade{
		ID:           "grade-3",
		Name:         "3rd Grade",
		SchoolYearID: "sy-2025",
		MonthlyFee:   ledger.MustMoney("500.00"),
	}))
	require.NoError(t, store.SaveStudent(ctx, ledger.Student{
		ID:      "stu-1",
		Name:    "Ana Lopez",
		GradeID: "grade-3",
		Active:  true,
		Balance: ledger.MustMoney("5000.00"),
	}))

	return tuition.NewService(store), store
}

// november15 falls after three due months (Sept, Oct, Nov).
var november15 = time.Date(2025, time.November, 15, 0, 0, 0, 0, time.UTC)

func sept() ledger.Period { return ledger.Period{Month: time.September, Year: 2025} }
func oct() ledger.Period  { return ledger.Period{Month: time.October, Year: 2025} }
func nov() ledger.Period  { return ledger.Period{Month: time.November, Year: 2025} }

func tuitionRequest(amount string, mode tuition.Mode, periods ...ledger.Period) tuition.ApplyRequest {
	return tuition.ApplyRequest{
		StudentID: "stu-1",
		Amount:    ledger.MustMoney(amount),
		Kind:      ledger.KindTuition,
		Method:    "cash",
		ClerkID:   "clerk-1",
		Mode:      mode,
		Periods:   periods,
		AsOf:      november15,
	}
}

// =============================================================================
// SPECIFIC-PERIOD PAYMENTS
// =============================================================================

func TestApply_SpecificPeriods_ExactPayment(t *testing.T) {
	// GIVEN: Three months due at 500 each, nothing paid
	// WHEN: Paying 1000 against September and October
	// THEN: Two full non-partial records, one per month

	svc, _ := newTestService(t)
	ctx := context.Background()

	result, err := svc.Apply(ctx, tuitionRequest("1000.00", tuition.ModeSpecific, sept(), oct()))
	require.NoError(t, err)
	require.Len(t, result.Records, 2)

	for _, rec := range result.Records {
		assert.True(t, rec.Amount.Equal(ledger.MustMoney("500.00")))
		assert.False(t, rec.Partial)
		assert.Equal(t, ledger.KindTuition, rec.Kind)
		require.NotNil(t, rec.Period)
	}
	assert.Equal(t, time.September, result.Records[0].Period.Month)
	assert.Equal(t, time.October, result.Records[1].Period.Month)
}

func TestApply_SpecificPeriods_ProportionalSplit(t *testing.T) {
	// GIVEN: September and October due at 500 each
	// WHEN: Paying 300 across both
	// THEN: 150 lands on each month and both records are partial

	svc, _ := newTestService(t)
	ctx := context.Background()

	result, err := svc.Apply(ctx, tuitionRequest("300.00", tuition.ModeSpecific, sept(), oct()))
	require.NoError(t, err)
	require.Len(t, result.Records, 2)

	sum := ledger.ZeroMoney()
	for _, rec := range result.Records {
		assert.True(t, rec.Amount.Equal(ledger.MustMoney("150.00")), "got %s", rec.Amount)
		assert.True(t, rec.Partial)
		sum = sum.Add(rec.Amount)
	}
	assert.True(t, sum.Equal(ledger.MustMoney("300.00")))
}

func TestApply_SpecificPeriods_ExceedsOwedRejected(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.Apply(ctx, tuitionRequest("1200.00", tuition.ModeSpecific, sept(), oct()))
	require.Error(t, err)

	var exceeds *ledger.ExceedsOwedError
	require.ErrorAs(t, err, &exceeds)
	assert.True(t, exceeds.Outstanding.Equal(ledger.MustMoney("1000.00")))

	assert.Equal(t, 0, store.PaymentCount(), "rejected submission must write nothing")
	assert.Equal(t, int64(0), store.LastReceiptSeq("sy-2025"), "rejected submission must not burn a receipt number")
}

func TestApply_SpecificPeriods_NotDueRejected(t *testing.T) {
	// GIVEN: Reference date November 15, so March 2026 is not yet due
	// WHEN: Selecting March
	// THEN: The submission is rejected as a client error

	svc, _ := newTestService(t)
	ctx := context.Background()

	march := ledger.Period{Month: time.March, Year: 2026}
	_, err := svc.Apply(ctx, tuitionRequest("500.00", tuition.ModeSpecific, march))
	assert.ErrorIs(t, err, ledger.ErrPeriodNotDue)
	assert.True(t, ledger.IsClientError(err))
}

// =============================================================================
// BULK (OLDEST-FIRST) PAYMENTS
// =============================================================================

func TestApply_Bulk_OldestFirst(t *testing.T) {
	// GIVEN: Sept, Oct, Nov due at 500 each
	// WHEN: Paying 700 in bulk
	// THEN: September cleared in full, 200 partial on October, November untouched

	svc, _ := newTestService(t)
	ctx := context.Background()

	result, err := svc.Apply(ctx, tuitionRequest("700.00", tuition.ModeBulk))
	require.NoError(t, err)
	require.Len(t, result.Records, 2)

	assert.Equal(t, time.September, result.Records[0].Period.Month)
	assert.True(t, result.Records[0].Amount.Equal(ledger.MustMoney("500.00")))
	assert.False(t, result.Records[0].Partial)

	assert.Equal(t, time.October, result.Records[1].Period.Month)
	assert.True(t, result.Records[1].Amount.Equal(ledger.MustMoney("200.00")))
	assert.True(t, result.Records[1].Partial)
}

func TestApply_Bulk_SkipsAlreadyPaidMonths(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Apply(ctx, tuitionRequest("500.00", tuition.ModeSpecific, sept()))
	require.NoError(t, err)

	result, err := svc.Apply(ctx, tuitionRequest("500.00", tuition.ModeBulk))
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, time.October, result.Records[0].Period.Month,
		"bulk must start at the oldest month still owing")
}

func TestApply_Bulk_NothingOutstanding(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Apply(ctx, tuitionRequest("1500.00", tuition.ModeBulk))
	require.NoError(t, err)

	_, err = svc.Apply(ctx, tuitionRequest("100.00", tuition.ModeBulk))
	assert.ErrorIs(t, err, ledger.ErrNothingOutstanding)
}

// =============================================================================
// RECEIPTS AND BATCHES
// =============================================================================

func TestApply_ReceiptNumbersAndBatch(t *testing.T) {
	// GIVEN: A two-month submission
	// WHEN: It commits
	// THEN: Each record carries its own sequence number with the month-year
	//       suffix, and both share one batch ID

	svc, store := newTestService(t)
	ctx := context.Background()

	result, err := svc.Apply(ctx, tuitionRequest("1000.00", tuition.ModeSpecific, sept(), oct()))
	require.NoError(t, err)
	require.Len(t, result.Records, 2)

	assert.Equal(t, "2025-2026-0001-9-2025", result.Records[0].ReceiptNumber)
	assert.Equal(t, "2025-2026-0002-10-2025", result.Records[1].ReceiptNumber)
	assert.Equal(t, result.Records[0].BatchID, result.Records[1].BatchID)
	assert.NotEmpty(t, result.Records[0].BatchID)

	assert.Equal(t, int64(2), store.LastReceiptSeq("sy-2025"))

	batch, err := store.PaymentsByBatch(ctx, result.Records[0].BatchID)
	require.NoError(t, err)
	assert.Len(t, batch, 2)
}

func TestApply_ValidationFailureBurnsNoSequence(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	cases := []tuition.ApplyRequest{
		{StudentID: "", Amount: ledger.MustMoney("100"), Kind: ledger.KindTuition, ClerkID: "clerk-1", Mode: tuition.ModeBulk},
		{StudentID: "stu-1", Amount: ledger.ZeroMoney(), Kind: ledger.KindTuition, ClerkID: "clerk-1", Mode: tuition.ModeBulk},
		{StudentID: "stu-1", Amount: ledger.MustMoney("-5"), Kind: ledger.KindTuition, ClerkID: "clerk-1", Mode: tuition.ModeBulk},
		{StudentID: "stu-1", Amount: ledger.MustMoney("100"), Kind: "bogus", ClerkID: "clerk-1"},
		{StudentID: "stu-1", Amount: ledger.MustMoney("100"), Kind: ledger.KindTuition, ClerkID: "", Mode: tuition.ModeBulk},
		{StudentID: "stu-1", Amount: ledger.MustMoney("100"), Kind: ledger.KindDiscretionary, ClerkID: "clerk-1"},
		{StudentID: "stu-1", Amount: ledger.MustMoney("100"), Kind: ledger.KindTuition, ClerkID: "clerk-1", Mode: tuition.ModeSpecific},
		{StudentID: "stu-1", Amount: ledger.MustMoney("100"), Kind: ledger.KindTuition, ClerkID: "clerk-1", Mode: "sideways"},
	}
	for _, req := range cases {
		_, err := svc.Apply(ctx, req)
		require.Error(t, err)
		assert.True(t, ledger.IsClientError(err), "expected client error, got %v", err)
	}

	assert.Equal(t, 0, store.PaymentCount())
	assert.Equal(t, int64(0), store.LastReceiptSeq("sy-2025"))
}

func TestApply_UnknownStudent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	req := tuitionRequest("100.00", tuition.ModeBulk)
	req.StudentID = "ghost"
	_, err := svc.Apply(ctx, req)
	assert.ErrorIs(t, err, ledger.ErrStudentNotFound)
	assert.True(t, ledger.IsNotFound(err))
}

// =============================================================================
// FLAT KINDS (INSCRIPTION, DISCRETIONARY)
// =============================================================================

func TestApply_Inscription_SingleRecordNoPeriod(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	result, err := svc.Apply(ctx, tuition.ApplyRequest{
		StudentID: "stu-1",
		Amount:    ledger.MustMoney("800.00"),
		Kind:      ledger.KindInscription,
		Method:    "transfer",
		ClerkID:   "clerk-1",
	})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)

	rec := result.Records[0]
	assert.Nil(t, rec.Period)
	assert.False(t, rec.Partial)
	assert.Equal(t, "2025-2026-0001", rec.ReceiptNumber, "flat receipts carry no month-year suffix")
}

func TestApply_Discretionary_RequiresDescription(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	req := tuition.ApplyRequest{
		StudentID:   "stu-1",
		Amount:      ledger.MustMoney("120.00"),
		Kind:        ledger.KindDiscretionary,
		ClerkID:     "clerk-1",
		Description: "uniform and books",
	}
	result, err := svc.Apply(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "uniform and books", result.Records[0].Description)

	req.Description = ""
	_, err = svc.Apply(ctx, req)
	var fieldErr *ledger.FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "description", fieldErr.Field)
}

// =============================================================================
// BALANCE CACHE
// =============================================================================

func TestApply_BalanceWriteBack_FloorsAtZero(t *testing.T) {
	// GIVEN: A cached balance of 5000
	// WHEN: Paying 700, then an inscription of 6000
	// THEN: Balance drops to 4300, then floors at zero instead of going negative

	svc, store := newTestService(t)
	ctx := context.Background()

	result, err := svc.Apply(ctx, tuitionRequest("700.00", tuition.ModeBulk))
	require.NoError(t, err)
	assert.True(t, result.Balance.Equal(ledger.MustMoney("4300.00")))

	result, err = svc.Apply(ctx, tuition.ApplyRequest{
		StudentID: "stu-1",
		Amount:    ledger.MustMoney("6000.00"),
		Kind:      ledger.KindInscription,
		ClerkID:   "clerk-1",
	})
	require.NoError(t, err)
	assert.True(t, result.Balance.IsZero())

	st, err := store.GetStudent(ctx, "stu-1")
	require.NoError(t, err)
	assert.True(t, st.Balance.IsZero())
}

func TestResyncBalance_RecomputesFromLedger(t *testing.T) {
	// GIVEN: The cached balance was seeded at 5000 but only 1500 of tuition
	//        is actually due and 500 of it is paid
	// WHEN: Resyncing as of November
	// THEN: The cache becomes the authoritative 1000

	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.Apply(ctx, tuitionRequest("500.00", tuition.ModeSpecific, sept()))
	require.NoError(t, err)

	balance, err := svc.ResyncBalance(ctx, "stu-1", november15)
	require.NoError(t, err)
	assert.True(t, balance.Equal(ledger.MustMoney("1000.00")), "got %s", balance)

	st, err := store.GetStudent(ctx, "stu-1")
	require.NoError(t, err)
	assert.True(t, st.Balance.Equal(balance))
}

// =============================================================================
// STATEMENT VIEW
// =============================================================================

func TestStatement_MonthStatusesAndTotals(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Apply(ctx, tuitionRequest("700.00", tuition.ModeBulk))
	require.NoError(t, err)

	stmt, err := svc.Statement(ctx, "stu-1", "", november15)
	require.NoError(t, err)
	require.Len(t, stmt.Entries, 3)

	assert.Equal(t, ledger.StatusPaid, stmt.Entries[0].Status)
	assert.Equal(t, ledger.StatusPartial, stmt.Entries[1].Status)
	assert.Equal(t, ledger.StatusUnpaid, stmt.Entries[2].Status)
	assert.True(t, stmt.Outstanding.Equal(ledger.MustMoney("800.00")))
	assert.Equal(t, "sy-2025", stmt.SchoolYear.ID)
	assert.True(t, stmt.CachedBalance.Equal(ledger.MustMoney("4300.00")))
}

func TestStatement_UnknownSchoolYear(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Statement(ctx, "stu-1", "sy-1999", november15)
	assert.ErrorIs(t, err, ledger.ErrSchoolYearNotFound)
}

// =============================================================================
// ATOMICITY ACROSS A SUBMISSION
// =============================================================================

func TestApply_PartialFailureRollsBackWholeSubmission(t *testing.T) {
	// GIVEN: A receipt number that the next submission will try to use is
	//        already taken
	// WHEN: A two-month submission collides on its second record
	// THEN: Neither record survives and the balance is untouched

	svc, store := newTestService(t)
	ctx := context.Background()

	// Occupy the receipt number the second record of the submission would get.
	require.NoError(t, store.AppendPayment(ctx, ledger.PaymentRecord{
		ID:            "squatter",
		StudentID:     "stu-1",
		SchoolYearID:  "sy-2025",
		Amount:        ledger.MustMoney("1.00"),
		Kind:          ledger.KindDiscretionary,
		ReceiptNumber: "2025-2026-0002-10-2025",
		BatchID:       "batch-squatter",
		Description:   "placeholder",
	}))
	before := store.PaymentCount()

	_, err := svc.Apply(ctx, tuitionRequest("1000.00", tuition.ModeSpecific, sept(), oct()))
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrConflict)

	assert.Equal(t, before, store.PaymentCount(), "failed submission must leave no records")

	st, err := store.GetStudent(ctx, "stu-1")
	require.NoError(t, err)
	assert.True(t, st.Balance.Equal(ledger.MustMoney("5000.00")))
}
