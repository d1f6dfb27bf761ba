/*
Package tuition coordinates payment submissions against the ledger engine.

PURPOSE:
  This package owns the PaymentTransaction unit of work: for one clerk
  submission it computes outstanding months, allocates the amount, issues
  receipt numbers, appends immutable payment records, and writes back the
  cached student balance - all inside a single store transaction.

KEY CONCEPTS:
  Store:   The injected persistence context (repository). There is no
           ambient global connection; every Service call goes through the
           Store handed to it.
  WithTx:  All-or-nothing execution. Receipt counter increments and record
           creation commit together or not at all.

IMPLEMENTATIONS:
  - store/sqlite: production store (database/sql over SQLite, WAL)
  - store/memory: in-memory store for tests and demos

SEE ALSO:
  - service.go: The Apply / ResyncBalance operations
  - receipt.go: Receipt identifier formatting
*/
package tuition

import (
	"context"

	"github.com/escolar/tuition-engine/ledger"
)

// Store is the persistence context for the payment service.
//
// Payment records are APPEND-ONLY: there is no update or delete operation,
// corrections happen via new records. Getters return (nil, nil) when the
// entity does not exist; the service maps that onto not-found errors.
type Store interface {
	// School years
	GetSchoolYear(ctx context.Context, id string) (*ledger.SchoolYear, error)
	ActiveSchoolYear(ctx context.Context) (*ledger.SchoolYear, error)
	SaveSchoolYear(ctx context.Context, sy ledger.SchoolYear) error
	ListSchoolYears(ctx context.Context) ([]ledger.SchoolYear, error)
	// SetActiveSchoolYear flips the active flag exclusively to one year.
	SetActiveSchoolYear(ctx context.Context, id string) error

	// Grades
	GetGrade(ctx context.Context, id string) (*ledger.Grade, error)
	SaveGrade(ctx context.Context, g ledger.Grade) error
	ListGrades(ctx context.Context, schoolYearID string) ([]ledger.Grade, error)

	// Students
	GetStudent(ctx context.Context, id string) (*ledger.Student, error)
	SaveStudent(ctx context.Context, s ledger.Student) error
	ListStudents(ctx context.Context) ([]ledger.Student, error)
	// UpdateStudentBalance writes the cached balance only.
	UpdateStudentBalance(ctx context.Context, id string, balance ledger.Money) error

	// Payments (append-only)
	AppendPayment(ctx context.Context, rec ledger.PaymentRecord) error
	PaymentsByStudent(ctx context.Context, studentID, schoolYearID string) ([]ledger.PaymentRecord, error)
	PaymentsByBatch(ctx context.Context, batchID string) ([]ledger.PaymentRecord, error)

	// NextReceiptSeq reads-or-creates the per-school-year counter, increments
	// it by exactly 1 and returns the new value. Only meaningful inside
	// WithTx: the increment must commit or roll back with the records that
	// consume it.
	NextReceiptSeq(ctx context.Context, schoolYearID string) (int64, error)

	// WithTx executes fn atomically. If fn returns an error the whole unit
	// rolls back: no records, no balance write, no counter increment.
	WithTx(ctx context.Context, fn func(Store) error) error
}
