/*
service.go - The payment transaction coordinator

PURPOSE:
  Service.Apply is the single write path for payments. One clerk submission
  becomes one atomic unit of work: validate, compute outstanding months,
  allocate, issue receipt numbers, append records, write back the cached
  balance. Everything commits together or rolls back together.

FAILURE SEMANTICS:
  Validation failures abort BEFORE the transaction opens, so no receipt
  number is ever burned on malformed input. Failures inside the unit roll
  the counter increment back with the records. Counter contention surfaces
  as ledger.ErrConflict and the whole submission is retried a bounded
  number of times before the caller sees the error.

BALANCE WRITE-BACK:
  Apply uses the fast local update max(0, previous - amount). The
  authoritative figure is BalanceCalculator's outstanding total, which can
  diverge when a grade fee changes after the cache was written;
  ResyncBalance recomputes and overwrites the cache on demand.

SEE ALSO:
  - store.go: The injected persistence context
  - ledger/allocation.go: The allocation math Apply delegates to
*/
package tuition

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/escolar/tuition-engine/ledger"
)

// maxRetries bounds transparent retries of a conflicted submission.
const maxRetries = 3

// Mode selects how a tuition amount is distributed.
type Mode string

const (
	// ModeSpecific allocates across clerk-selected periods.
	ModeSpecific Mode = "specific"
	// ModeBulk ignores selection and clears the oldest debt first.
	ModeBulk Mode = "bulk"
)

// ApplyRequest is one user-submitted payment action.
type ApplyRequest struct {
	StudentID    string
	SchoolYearID string // empty = the active school year
	Amount       ledger.Money
	Kind         ledger.PaymentKind
	Method       string
	ClerkID      string
	Description  string // required for discretionary payments

	// Tuition only
	Mode    Mode
	Periods []ledger.Period // ModeSpecific selection

	// AsOf is the reference date for "which months are due". Zero means now.
	AsOf time.Time
}

// ApplyResult is the outcome of a committed submission.
type ApplyResult struct {
	Records []ledger.PaymentRecord
	Balance ledger.Money
}

// StudentStatement is the per-month view plus the authoritative total.
type StudentStatement struct {
	SchoolYear  ledger.SchoolYear
	Entries     []ledger.Entry
	Outstanding ledger.Money
	// CachedBalance is the denormalized Student.Balance; it may lag
	// Outstanding when fees changed since the last write-back.
	CachedBalance ledger.Money
}

// Service executes payment transactions against an injected Store.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Apply records one payment submission atomically and returns the created
// records and the updated cached balance.
func (s *Service) Apply(ctx context.Context, req ApplyRequest) (*ApplyResult, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	var result *ApplyResult
	err := s.withRetry(ctx, func() error {
		return s.store.WithTx(ctx, func(tx Store) error {
			r, err := apply(ctx, tx, req, asOf)
			if err != nil {
				return err
			}
			result = r
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// validate rejects malformed input before any side effect.
func validate(req ApplyRequest) error {
	if req.StudentID == "" {
		return &ledger.FieldError{Field: "student_id", Reason: "required"}
	}
	if !req.Amount.IsPositive() {
		return ledger.ErrInvalidAmount
	}
	if !req.Kind.Valid() {
		return &ledger.FieldError{Field: "kind", Reason: "must be tuition, inscription or discretionary"}
	}
	if req.ClerkID == "" {
		return &ledger.FieldError{Field: "clerk_id", Reason: "required"}
	}
	if req.Kind == ledger.KindDiscretionary && req.Description == "" {
		return &ledger.FieldError{Field: "description", Reason: "required for discretionary payments"}
	}
	if req.Kind == ledger.KindTuition {
		switch req.Mode {
		case ModeBulk:
		case ModeSpecific:
			if len(req.Periods) == 0 {
				return ledger.ErrEmptySelection
			}
		default:
			return &ledger.FieldError{Field: "mode", Reason: "must be specific or bulk"}
		}
	}
	return nil
}

func apply(ctx context.Context, tx Store, req ApplyRequest, asOf time.Time) (*ApplyResult, error) {
	student, err := tx.GetStudent(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, ledger.ErrStudentNotFound
	}

	year, err := resolveSchoolYear(ctx, tx, req.SchoolYearID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	batchID := uuid.NewString()

	var records []ledger.PaymentRecord
	if req.Kind == ledger.KindTuition {
		records, err = applyTuition(ctx, tx, req, student, year, batchID, asOf, now)
	} else {
		records, err = applyFlat(ctx, tx, req, student, year, batchID, now)
	}
	if err != nil {
		return nil, err
	}

	for _, rec := range records {
		if err := tx.AppendPayment(ctx, rec); err != nil {
			return nil, err
		}
	}

	// Fast local write-back; ResyncBalance recomputes authoritatively.
	balance := student.Balance.Sub(req.Amount).FloorZero()
	if err := tx.UpdateStudentBalance(ctx, student.ID, balance); err != nil {
		return nil, err
	}

	return &ApplyResult{Records: records, Balance: balance}, nil
}

// applyTuition runs the allocator and builds one record per allocated month.
func applyTuition(ctx context.Context, tx Store, req ApplyRequest, student *ledger.Student, year *ledger.SchoolYear, batchID string, asOf, now time.Time) ([]ledger.PaymentRecord, error) {
	grade, err := tx.GetGrade(ctx, student.GradeID)
	if err != nil {
		return nil, err
	}
	if grade == nil {
		return nil, ledger.ErrGradeNotFound
	}

	history, err := tx.PaymentsByStudent(ctx, student.ID, year.ID)
	if err != nil {
		return nil, err
	}

	bc := ledger.BalanceCalculator{
		SchoolYearID: year.ID,
		Calendar:     year.Calendar(),
		Fee:          grade.MonthlyFee,
	}
	entries, err := bc.Statement(history, asOf)
	if err != nil {
		return nil, err
	}

	var allocations []ledger.Allocation
	switch req.Mode {
	case ModeSpecific:
		selection, err := selectEntries(entries, req.Periods)
		if err != nil {
			return nil, err
		}
		allocations, err = ledger.AllocateSpecific(req.Amount, selection)
		if err != nil {
			return nil, err
		}
	case ModeBulk:
		allocations, err = ledger.AllocateOldestFirst(req.Amount, ledger.OutstandingEntries(entries))
		if err != nil {
			return nil, err
		}
	}

	records := make([]ledger.PaymentRecord, 0, len(allocations))
	for _, alloc := range allocations {
		seq, err := tx.NextReceiptSeq(ctx, year.ID)
		if err != nil {
			return nil, err
		}
		p := alloc.Period
		ref := ledger.FullPeriod(p)
		records = append(records, ledger.PaymentRecord{
			ID:            uuid.NewString(),
			StudentID:     student.ID,
			SchoolYearID:  year.ID,
			Amount:        alloc.Amount,
			Period:        &ref,
			Partial:       alloc.Partial,
			Kind:          ledger.KindTuition,
			Method:        req.Method,
			ReceiptNumber: FormatReceipt(year.Name, seq, &p),
			BatchID:       batchID,
			ClerkID:       req.ClerkID,
			CreatedAt:     now,
		})
	}
	return records, nil
}

// applyFlat handles inscription and discretionary kinds: a single
// full-amount, non-partial record with no period.
func applyFlat(ctx context.Context, tx Store, req ApplyRequest, student *ledger.Student, year *ledger.SchoolYear, batchID string, now time.Time) ([]ledger.PaymentRecord, error) {
	seq, err := tx.NextReceiptSeq(ctx, year.ID)
	if err != nil {
		return nil, err
	}
	return []ledger.PaymentRecord{{
		ID:            uuid.NewString(),
		StudentID:     student.ID,
		SchoolYearID:  year.ID,
		Amount:        req.Amount,
		Kind:          req.Kind,
		Method:        req.Method,
		ReceiptNumber: FormatReceipt(year.Name, seq, nil),
		BatchID:       batchID,
		ClerkID:       req.ClerkID,
		Description:   req.Description,
		CreatedAt:     now,
	}}, nil
}

// selectEntries resolves the clerk's period selection against the due
// entries. A selected period that is not currently due is a client error.
func selectEntries(entries []ledger.Entry, periods []ledger.Period) ([]ledger.Entry, error) {
	selection := make([]ledger.Entry, 0, len(periods))
	for _, p := range periods {
		found := false
		for _, e := range entries {
			if e.Period.Equal(p) {
				selection = append(selection, e)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %s", ledger.ErrPeriodNotDue, p)
		}
	}
	return selection, nil
}

// ResyncBalance recomputes the authoritative balance via BalanceCalculator
// against the active school year and persists it as the new cache value.
// A zero asOf means now.
func (s *Service) ResyncBalance(ctx context.Context, studentID string, asOf time.Time) (ledger.Money, error) {
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	var balance ledger.Money
	err := s.withRetry(ctx, func() error {
		return s.store.WithTx(ctx, func(tx Store) error {
			student, err := tx.GetStudent(ctx, studentID)
			if err != nil {
				return err
			}
			if student == nil {
				return ledger.ErrStudentNotFound
			}
			year, err := resolveSchoolYear(ctx, tx, "")
			if err != nil {
				return err
			}
			grade, err := tx.GetGrade(ctx, student.GradeID)
			if err != nil {
				return err
			}
			if grade == nil {
				return ledger.ErrGradeNotFound
			}
			history, err := tx.PaymentsByStudent(ctx, student.ID, year.ID)
			if err != nil {
				return err
			}

			bc := ledger.BalanceCalculator{
				SchoolYearID: year.ID,
				Calendar:     year.Calendar(),
				Fee:          grade.MonthlyFee,
			}
			total, err := bc.OutstandingTotal(history, asOf)
			if err != nil {
				return err
			}
			balance = total
			return tx.UpdateStudentBalance(ctx, student.ID, balance)
		})
	})
	if err != nil {
		return ledger.Money{}, err
	}
	return balance, nil
}

// Statement returns the per-month ledger view for display. Read-only.
func (s *Service) Statement(ctx context.Context, studentID, schoolYearID string, asOf time.Time) (*StudentStatement, error) {
	student, err := s.store.GetStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, ledger.ErrStudentNotFound
	}
	year, err := resolveSchoolYear(ctx, s.store, schoolYearID)
	if err != nil {
		return nil, err
	}
	grade, err := s.store.GetGrade(ctx, student.GradeID)
	if err != nil {
		return nil, err
	}
	if grade == nil {
		return nil, ledger.ErrGradeNotFound
	}
	history, err := s.store.PaymentsByStudent(ctx, student.ID, year.ID)
	if err != nil {
		return nil, err
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	bc := ledger.BalanceCalculator{
		SchoolYearID: year.ID,
		Calendar:     year.Calendar(),
		Fee:          grade.MonthlyFee,
	}
	entries, err := bc.Statement(history, asOf)
	if err != nil {
		return nil, err
	}
	total := ledger.ZeroMoney()
	for _, e := range entries {
		total = total.Add(e.Outstanding())
	}

	return &StudentStatement{
		SchoolYear:    *year,
		Entries:       entries,
		Outstanding:   total,
		CachedBalance: student.Balance,
	}, nil
}

func resolveSchoolYear(ctx context.Context, st Store, id string) (*ledger.SchoolYear, error) {
	if id != "" {
		year, err := st.GetSchoolYear(ctx, id)
		if err != nil {
			return nil, err
		}
		if year == nil {
			return nil, ledger.ErrSchoolYearNotFound
		}
		return year, nil
	}
	year, err := st.ActiveSchoolYear(ctx)
	if err != nil {
		return nil, err
	}
	if year == nil {
		return nil, ledger.ErrNoActiveSchoolYear
	}
	return year, nil
}

// withRetry re-runs the unit on counter contention, a small bounded number
// of times, before surfacing the conflict to the caller.
func (s *Service) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = fn()
		if err == nil || !ledger.IsRetryable(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 10 * time.Millisecond):
		}
	}
	return err
}
