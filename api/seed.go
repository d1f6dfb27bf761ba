/*
seed.go - Demo dataset loader

PURPOSE:
  Loads a small, realistic dataset for demos and manual testing: one active
  school year running September through June, three grades with different
  fees, and a handful of students in different payment states.

PAYMENT STATES SEEDED:
  - Maria:  fully current (every due month paid in bulk)
  - Diego:  one partial month
  - Sofia:  nothing paid yet
  - Mateo:  inscription paid, no tuition yet

DETERMINISM:
  Payments are applied through the same Service.Apply path production uses,
  so receipt numbers, batches, and balances come out exactly as a clerk
  would have produced them.

SEE ALSO:
  - handlers.go: The handler context this extends
*/
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/escolar/tuition-engine/ledger"
	"github.com/escolar/tuition-engine/tuition"
)

// seedAsOf puts the demo three months into the school year.
var seedAsOf = time.Date(2025, time.November, 15, 0, 0, 0, 0, time.UTC)

// SeedDemo loads the demo dataset.
// POST /api/seed
func (h *Handler) SeedDemo(w http.ResponseWriter, r *http.Request) {
	if err := h.LoadDemoData(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to seed demo data", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "seeded",
		"as_of":  seedAsOf.Format("2006-01-02"),
	})
}

// LoadDemoData seeds the demo dataset through the normal write path.
func (h *Handler) LoadDemoData(ctx context.Context) error {
	year := ledger.SchoolYear{
		ID:     "sy-2025",
		Name:   "2025-2026",
		Start:  time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC),
		Active: true,
	}
	if err := h.Store.SaveSchoolYear(ctx, year); err != nil {
		return err
	}
	if err := h.Store.SetActiveSchoolYear(ctx, year.ID); err != nil {
		return err
	}

	grades := []ledger.Grade{
		{ID: "grade-k", Name: "Kindergarten", SchoolYearID: year.ID, MonthlyFee: ledger.MustMoney("350.00")},
		{ID: "grade-3", Name: "3rd Grade", SchoolYearID: year.ID, MonthlyFee: ledger.MustMoney("500.00")},
		{ID: "grade-6", Name: "6th Grade", SchoolYearID: year.ID, MonthlyFee: ledger.MustMoney("650.00")},
	}
	for _, g := range grades {
		if err := h.Store.SaveGrade(ctx, g); err != nil {
			return err
		}
	}

	// Balances start at the full three months due, then the seeded payments
	// walk them down through the normal write path.
	students := []ledger.Student{
		{ID: "stu-maria", Name: "Maria Fernandez", GradeID: "grade-3", Active: true, Balance: ledger.MustMoney("1500.00")},
		{ID: "stu-diego", Name: "Diego Ramirez", GradeID: "grade-6", Active: true, Balance: ledger.MustMoney("1950.00")},
		{ID: "stu-sofia", Name: "Sofia Castillo", GradeID: "grade-k", Active: true, Balance: ledger.MustMoney("1050.00")},
		{ID: "stu-mateo", Name: "Mateo Herrera", GradeID: "grade-3", Active: true, Balance: ledger.MustMoney("1500.00")},
	}
	for _, st := range students {
		if err := h.Store.SaveStudent(ctx, st); err != nil {
			return err
		}
	}

	payments := []tuition.ApplyRequest{
		// Maria clears everything due so far.
		{
			StudentID: "stu-maria",
			Amount:    ledger.MustMoney("1500.00"),
			Kind:      ledger.KindTuition,
			Method:    "transfer",
			ClerkID:   "clerk-demo",
			Mode:      tuition.ModeBulk,
			AsOf:      seedAsOf,
		},
		// Diego covers September and half of October.
		{
			StudentID: "stu-diego",
			Amount:    ledger.MustMoney("975.00"),
			Kind:      ledger.KindTuition,
			Method:    "cash",
			ClerkID:   "clerk-demo",
			Mode:      tuition.ModeBulk,
			AsOf:      seedAsOf,
		},
		// Mateo only paid the inscription.
		{
			StudentID: "stu-mateo",
			Amount:    ledger.MustMoney("800.00"),
			Kind:      ledger.KindInscription,
			Method:    "card",
			ClerkID:   "clerk-demo",
		},
	}
	for _, req := range payments {
		if _, err := h.Service.Apply(ctx, req); err != nil {
			return err
		}
	}
	return nil
}
