// Package memory provides an in-memory Store implementation (for testing/dev).
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/escolar/tuition-engine/ledger"
	"github.com/escolar/tuition-engine/tuition"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// Store keeps all state in maps guarded by one mutex. WithTx runs the unit
// against a snapshot and swaps it in only on success, so rollback semantics
// match the SQLite store.
type Store struct {
	mu sync.RWMutex
	d  *data
}

type data struct {
	years    map[string]ledger.SchoolYear
	grades   map[string]ledger.Grade
	students map[string]ledger.Student
	payments []ledger.PaymentRecord
	counters map[string]int64
	receipts map[string]bool // schoolYearID + receipt number
}

func New() *Store {
	return &Store{d: newData()}
}

func newData() *data {
	return &data{
		years:    make(map[string]ledger.SchoolYear),
		grades:   make(map[string]ledger.Grade),
		students: make(map[string]ledger.Student),
		counters: make(map[string]int64),
		receipts: make(map[string]bool),
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.years {
		c.years[k] = v
	}
	for k, v := range d.grades {
		c.grades[k] = v
	}
	for k, v := range d.students {
		c.students[k] = v
	}
	for k, v := range d.counters {
		c.counters[k] = v
	}
	for k, v := range d.receipts {
		c.receipts[k] = v
	}
	c.payments = append(c.payments, d.payments...)
	return c
}

// WithTx executes fn against a snapshot; the snapshot becomes the store
// state only if fn succeeds.
func (s *Store) WithTx(_ context.Context, fn func(tuition.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.d.clone()
	if err := fn(&txStore{d: work}); err != nil {
		return err
	}
	s.d = work
	return nil
}

// txStore operates on the snapshot without locking; the outer WithTx holds
// the store lock for the whole unit.
type txStore struct {
	d *data
}

func (ts *txStore) WithTx(_ context.Context, fn func(tuition.Store) error) error {
	// Already inside a unit of work; nesting is flattened.
	return fn(ts)
}

// =============================================================================
// INTERFACE METHODS - Store locks, txStore doesn't
// =============================================================================

func (s *Store) GetSchoolYear(_ context.Context, id string) (*ledger.SchoolYear, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.d.getSchoolYear(id)
}

func (ts *txStore) GetSchoolYear(_ context.Context, id string) (*ledger.SchoolYear, error) {
	return ts.d.getSchoolYear(id)
}

func (s *Store) ActiveSchoolYear(_ context.Context) (*ledger.SchoolYear, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.d.activeSchoolYear()
}

func (ts *txStore) ActiveSchoolYear(_ context.Context) (*ledger.SchoolYear, error) {
	return ts.d.activeSchoolYear()
}

func (s *Store) SaveSchoolYear(_ context.Context, sy ledger.SchoolYear) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.saveSchoolYear(sy)
}

func (ts *txStore) SaveSchoolYear(_ context.Context, sy ledger.SchoolYear) error {
	return ts.d.saveSchoolYear(sy)
}

func (s *Store) ListSchoolYears(_ context.Context) ([]ledger.SchoolYear, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.d.listSchoolYears()
}

func (ts *txStore) ListSchoolYears(_ context.Context) ([]ledger.SchoolYear, error) {
	return ts.d.listSchoolYears()
}

func (s *Store) SetActiveSchoolYear(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.setActiveSchoolYear(id)
}

func (ts *txStore) SetActiveSchoolYear(_ context.Context, id string) error {
	return ts.d.setActiveSchoolYear(id)
}

func (s *Store) GetGrade(_ context.Context, id string) (*ledger.Grade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.d.getGrade(id)
}

func (ts *txStore) GetGrade(_ context.Context, id string) (*ledger.Grade, error) {
	return ts.d.getGrade(id)
}

func (s *Store) SaveGrade(_ context.Context, g ledger.Grade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.saveGrade(g)
}

func (ts *txStore) SaveGrade(_ context.Context, g ledger.Grade) error {
	return ts.d.saveGrade(g)
}

func (s *Store) ListGrades(_ context.Context, schoolYearID string) ([]ledger.Grade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.d.listGrades(schoolYearID)
}

func (ts *txStore) ListGrades(_ context.Context, schoolYearID string) ([]ledger.Grade, error) {
	return ts.d.listGrades(schoolYearID)
}

func (s *Store) GetStudent(_ context.Context, id string) (*ledger.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.d.getStudent(id)
}

func (ts *txStore) GetStudent(_ context.Context, id string) (*ledger.Student, error) {
	return ts.d.getStudent(id)
}

func (s *Store) SaveStudent(_ context.Context, st ledger.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.saveStudent(st)
}

func (ts *txStore) SaveStudent(_ context.Context, st ledger.Student) error {
	return ts.d.saveStudent(st)
}

func (s *Store) ListStudents(_ context.Context) ([]ledger.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.d.listStudents()
}

func (ts *txStore) ListStudents(_ context.Context) ([]ledger.Student, error) {
	return ts.d.listStudents()
}

func (s *Store) UpdateStudentBalance(_ context.Context, id string, balance ledger.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.updateStudentBalance(id, balance)
}

func (ts *txStore) UpdateStudentBalance(_ context.Context, id string, balance ledger.Money) error {
	return ts.d.updateStudentBalance(id, balance)
}

func (s *Store) AppendPayment(_ context.Context, rec ledger.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.appendPayment(rec)
}

func (ts *txStore) AppendPayment(_ context.Context, rec ledger.PaymentRecord) error {
	return ts.d.appendPayment(rec)
}

func (s *Store) PaymentsByStudent(_ context.Context, studentID, schoolYearID string) ([]ledger.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.d.paymentsByStudent(studentID, schoolYearID)
}

func (ts *txStore) PaymentsByStudent(_ context.Context, studentID, schoolYearID string) ([]ledger.PaymentRecord, error) {
	return ts.d.paymentsByStudent(studentID, schoolYearID)
}

func (s *Store) PaymentsByBatch(_ context.Context, batchID string) ([]ledger.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.d.paymentsByBatch(batchID)
}

func (ts *txStore) PaymentsByBatch(_ context.Context, batchID string) ([]ledger.PaymentRecord, error) {
	return ts.d.paymentsByBatch(batchID)
}

func (s *Store) NextReceiptSeq(_ context.Context, schoolYearID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.nextReceiptSeq(schoolYearID)
}

func (ts *txStore) NextReceiptSeq(_ context.Context, schoolYearID string) (int64, error) {
	return ts.d.nextReceiptSeq(schoolYearID)
}

// LastReceiptSeq exposes the counter value for tests.
func (s *Store) LastReceiptSeq(schoolYearID string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.d.counters[schoolYearID]
}

// PaymentCount exposes the ledger size for tests.
func (s *Store) PaymentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.d.payments)
}

// =============================================================================
// DATA OPERATIONS
// =============================================================================

func (d *data) getSchoolYear(id string) (*ledger.SchoolYear, error) {
	if sy, ok := d.years[id]; ok {
		return &sy, nil
	}
	return nil, nil
}

func (d *data) activeSchoolYear() (*ledger.SchoolYear, error) {
	for _, sy := range d.years {
		if sy.Active {
			out := sy
			return &out, nil
		}
	}
	return nil, nil
}

func (d *data) saveSchoolYear(sy ledger.SchoolYear) error {
	d.years[sy.ID] = sy
	return nil
}

func (d *data) listSchoolYears() ([]ledger.SchoolYear, error) {
	out := make([]ledger.SchoolYear, 0, len(d.years))
	for _, sy := range d.years {
		out = append(out, sy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (d *data) setActiveSchoolYear(id string) error {
	if _, ok := d.years[id]; !ok {
		return ledger.ErrSchoolYearNotFound
	}
	for k, sy := range d.years {
		sy.Active = k == id
		d.years[k] = sy
	}
	return nil
}

func (d *data) getGrade(id string) (*ledger.Grade, error) {
	if g, ok := d.grades[id]; ok {
		return &g, nil
	}
	return nil, nil
}

func (d *data) saveGrade(g ledger.Grade) error {
	d.grades[g.ID] = g
	return nil
}

func (d *data) listGrades(schoolYearID string) ([]ledger.Grade, error) {
	var out []ledger.Grade
	for _, g := range d.grades {
		if schoolYearID == "" || g.SchoolYearID == schoolYearID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (d *data) getStudent(id string) (*ledger.Student, error) {
	if st, ok := d.students[id]; ok {
		return &st, nil
	}
	return nil, nil
}

func (d *data) saveStudent(st ledger.Student) error {
	d.students[st.ID] = st
	return nil
}

func (d *data) listStudents() ([]ledger.Student, error) {
	out := make([]ledger.Student, 0, len(d.students))
	for _, st := range d.students {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (d *data) updateStudentBalance(id string, balance ledger.Money) error {
	st, ok := d.students[id]
	if !ok {
		return ledger.ErrStudentNotFound
	}
	st.Balance = balance
	d.students[id] = st
	return nil
}

func (d *data) appendPayment(rec ledger.PaymentRecord) error {
	key := rec.SchoolYearID + "/" + rec.ReceiptNumber
	if d.receipts[key] {
		return ledger.ErrConflict
	}
	d.receipts[key] = true
	d.payments = append(d.payments, rec)
	return nil
}

func (d *data) paymentsByStudent(studentID, schoolYearID string) ([]ledger.PaymentRecord, error) {
	var out []ledger.PaymentRecord
	for _, rec := range d.payments {
		if rec.StudentID == studentID && rec.SchoolYearID == schoolYearID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (d *data) paymentsByBatch(batchID string) ([]ledger.PaymentRecord, error) {
	var out []ledger.PaymentRecord
	for _, rec := range d.payments {
		if rec.BatchID == batchID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (d *data) nextReceiptSeq(schoolYearID string) (int64, error) {
	d.counters[schoolYearID]++
	return d.counters[schoolYearID], nil
}
