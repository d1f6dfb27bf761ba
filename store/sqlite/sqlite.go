/*
Package sqlite provides a SQLite-backed implementation of tuition.Store.

PURPOSE:
  Implements the persistence surface for the payment service using
  database/sql over SQLite. In production the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  school_years:      Obligation windows, one active at a time
  grades:            Monthly fee per grade (stored as decimal TEXT)
  students:          Entity records with the cached balance
  payments:          Append-only payment ledger
  receipt_counters:  Per-school-year last-issued sequence number

APPEND-ONLY ENFORCEMENT:
  The payments table has no UPDATE or DELETE path through this package.
  Corrections are made via new records.

RECEIPT COUNTER:
  NextReceiptSeq upserts and increments the counter row inside the caller's
  transaction, so the increment commits or rolls back together with the
  records that consume it. A unique index on (school_year_id, receipt_number)
  backstops the invariant at the schema level.

CONCURRENCY:
  A single-writer mutex serializes units of work, and the database is opened
  in WAL mode so readers don't block. SQLITE_BUSY and unique-constraint
  failures surface as ledger.ErrConflict, which the service retries.

MONEY:
  Amounts and fees are stored as decimal strings and parsed back through
  ledger.NewMoneyFromString; a row that fails to parse is an error, never
  a silent zero.

USAGE:
  store, err := sqlite.New("./data/tuition.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := tuition.NewService(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - tuition/store.go: Interface definition
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/escolar/tuition-engine/ledger"
	"github.com/escolar/tuition-engine/tuition"
)

// Store implements tuition.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One pooled connection keeps ":memory:" databases coherent and makes
	// the single-writer mutex the only serialization point.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS school_years (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS grades (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		school_year_id TEXT NOT NULL REFERENCES school_years(id),
		monthly_fee TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_grades_school_year
		ON grades(school_year_id);

	CREATE TABLE IF NOT EXISTS students (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		grade_id TEXT NOT NULL REFERENCES grades(id),
		active INTEGER NOT NULL DEFAULT 1,
		balance TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);

	-- Payments (append-only ledger)
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL REFERENCES students(id),
		school_year_id TEXT NOT NULL REFERENCES school_years(id),
		amount TEXT NOT NULL,
		month INTEGER,
		year INTEGER,
		partial INTEGER NOT NULL DEFAULT 0,
		kind TEXT NOT NULL,
		method TEXT,
		receipt_number TEXT NOT NULL,
		batch_id TEXT NOT NULL,
		clerk_id TEXT,
		description TEXT,
		created_at TEXT NOT NULL
	);

	-- No two payments in a school year may share a receipt number
	CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_receipt
		ON payments(school_year_id, receipt_number);

	-- Balance calculation (hot path)
	CREATE INDEX IF NOT EXISTS idx_payments_student_year
		ON payments(student_id, school_year_id);

	-- One submission = one batch
	CREATE INDEX IF NOT EXISTS idx_payments_batch
		ON payments(batch_id);

	CREATE TABLE IF NOT EXISTS receipt_counters (
		school_year_id TEXT PRIMARY KEY REFERENCES school_years(id),
		last_seq INTEGER NOT NULL DEFAULT 0
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx abstracts over *sql.DB and *sql.Tx so every query can run either on
// the live connection or inside a unit of work without re-locking.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// UNIT OF WORK
// =============================================================================

// WithTx executes fn within a database transaction. The single-writer mutex
// serializes units of work so the counter read-increment-write never races.
func (s *Store) WithTx(ctx context.Context, fn func(tuition.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{q: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return mapSQLiteErr(err)
	}
	return nil
}

// txStore runs every operation on the open transaction.
type txStore struct {
	q dbtx
}

// WithTx on a txStore flattens nesting into the already-open transaction.
func (ts *txStore) WithTx(_ context.Context, fn func(tuition.Store) error) error {
	return fn(ts)
}

// =============================================================================
// SCHOOL YEARS
// =============================================================================

func (s *Store) GetSchoolYear(ctx context.Context, id string) (*ledger.SchoolYear, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getSchoolYear(ctx, s.db, id)
}

func (ts *txStore) GetSchoolYear(ctx context.Context, id string) (*ledger.SchoolYear, error) {
	return getSchoolYear(ctx, ts.q, id)
}

func getSchoolYear(ctx context.Context, q dbtx, id string) (*ledger.SchoolYear, error) {
	row := q.QueryRowContext(ctx,
		"SELECT id, name, start_date, end_date, active FROM school_years WHERE id = ?", id)
	return scanSchoolYear(row)
}

func (s *Store) ActiveSchoolYear(ctx context.Context) (*ledger.SchoolYear, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return activeSchoolYear(ctx, s.db)
}

func (ts *txStore) ActiveSchoolYear(ctx context.Context) (*ledger.SchoolYear, error) {
	return activeSchoolYear(ctx, ts.q)
}

func activeSchoolYear(ctx context.Context, q dbtx) (*ledger.SchoolYear, error) {
	row := q.QueryRowContext(ctx,
		"SELECT id, name, start_date, end_date, active FROM school_years WHERE active = 1 LIMIT 1")
	return scanSchoolYear(row)
}

func scanSchoolYear(row *sql.Row) (*ledger.SchoolYear, error) {
	var sy ledger.SchoolYear
	var start, end string
	var active int
	err := row.Scan(&sy.ID, &sy.Name, &start, &end, &active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if sy.Start, err = time.Parse(time.RFC3339, start); err != nil {
		return nil, fmt.Errorf("bad start_date %q: %w", start, err)
	}
	if sy.End, err = time.Parse(time.RFC3339, end); err != nil {
		return nil, fmt.Errorf("bad end_date %q: %w", end, err)
	}
	sy.Active = active == 1
	return &sy, nil
}

func (s *Store) SaveSchoolYear(ctx context.Context, sy ledger.SchoolYear) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveSchoolYear(ctx, s.db, sy)
}

func (ts *txStore) SaveSchoolYear(ctx context.Context, sy ledger.SchoolYear) error {
	return saveSchoolYear(ctx, ts.q, sy)
}

func saveSchoolYear(ctx context.Context, q dbtx, sy ledger.SchoolYear) error {
	query := `
		INSERT INTO school_years (id, name, start_date, end_date, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			active = excluded.active
	`
	_, err := q.ExecContext(ctx, query,
		sy.ID, sy.Name,
		sy.Start.UTC().Format(time.RFC3339),
		sy.End.UTC().Format(time.RFC3339),
		boolInt(sy.Active),
		time.Now().UTC().Format(time.RFC3339),
	)
	return mapSQLiteErr(err)
}

func (s *Store) ListSchoolYears(ctx context.Context) ([]ledger.SchoolYear, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listSchoolYears(ctx, s.db)
}

func (ts *txStore) ListSchoolYears(ctx context.Context) ([]ledger.SchoolYear, error) {
	return listSchoolYears(ctx, ts.q)
}

func listSchoolYears(ctx context.Context, q dbtx) ([]ledger.SchoolYear, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, name, start_date, end_date, active FROM school_years ORDER BY start_date")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var years []ledger.SchoolYear
	for rows.Next() {
		var sy ledger.SchoolYear
		var start, end string
		var active int
		if err := rows.Scan(&sy.ID, &sy.Name, &start, &end, &active); err != nil {
			return nil, err
		}
		sy.Start, _ = time.Parse(time.RFC3339, start)
		sy.End, _ = time.Parse(time.RFC3339, end)
		sy.Active = active == 1
		years = append(years, sy)
	}
	return years, rows.Err()
}

func (s *Store) SetActiveSchoolYear(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setActiveSchoolYear(ctx, s.db, id)
}

func (ts *txStore) SetActiveSchoolYear(ctx context.Context, id string) error {
	return setActiveSchoolYear(ctx, ts.q, id)
}

func setActiveSchoolYear(ctx context.Context, q dbtx, id string) error {
	var exists int
	if err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM school_years WHERE id = ?", id).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return ledger.ErrSchoolYearNotFound
	}
	_, err := q.ExecContext(ctx, "UPDATE school_years SET active = (id = ?)", id)
	return mapSQLiteErr(err)
}

// =============================================================================
// GRADES
// =============================================================================

func (s *Store) GetGrade(ctx context.Context, id string) (*ledger.Grade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getGrade(ctx, s.db, id)
}

func (ts *txStore) GetGrade(ctx context.Context, id string) (*ledger.Grade, error) {
	return getGrade(ctx, ts.q, id)
}

func getGrade(ctx context.Context, q dbtx, id string) (*ledger.Grade, error) {
	var g ledger.Grade
	var fee string
	err := q.QueryRowContext(ctx,
		"SELECT id, name, school_year_id, monthly_fee FROM grades WHERE id = ?", id,
	).Scan(&g.ID, &g.Name, &g.SchoolYearID, &fee)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if g.MonthlyFee, err = ledger.NewMoneyFromString(fee); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Store) SaveGrade(ctx context.Context, g ledger.Grade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveGrade(ctx, s.db, g)
}

func (ts *txStore) SaveGrade(ctx context.Context, g ledger.Grade) error {
	return saveGrade(ctx, ts.q, g)
}

func saveGrade(ctx context.Context, q dbtx, g ledger.Grade) error {
	query := `
		INSERT INTO grades (id, name, school_year_id, monthly_fee, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			school_year_id = excluded.school_year_id,
			monthly_fee = excluded.monthly_fee
	`
	_, err := q.ExecContext(ctx, query,
		g.ID, g.Name, g.SchoolYearID, g.MonthlyFee.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	return mapSQLiteErr(err)
}

func (s *Store) ListGrades(ctx context.Context, schoolYearID string) ([]ledger.Grade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listGrades(ctx, s.db, schoolYearID)
}

func (ts *txStore) ListGrades(ctx context.Context, schoolYearID string) ([]ledger.Grade, error) {
	return listGrades(ctx, ts.q, schoolYearID)
}

func listGrades(ctx context.Context, q dbtx, schoolYearID string) ([]ledger.Grade, error) {
	query := "SELECT id, name, school_year_id, monthly_fee FROM grades"
	var args []any
	if schoolYearID != "" {
		query += " WHERE school_year_id = ?"
		args = append(args, schoolYearID)
	}
	query += " ORDER BY name"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grades []ledger.Grade
	for rows.Next() {
		var g ledger.Grade
		var fee string
		if err := rows.Scan(&g.ID, &g.Name, &g.SchoolYearID, &fee); err != nil {
			return nil, err
		}
		if g.MonthlyFee, err = ledger.NewMoneyFromString(fee); err != nil {
			return nil, err
		}
		grades = append(grades, g)
	}
	return grades, rows.Err()
}

// =============================================================================
// STUDENTS
// =============================================================================

func (s *Store) GetStudent(ctx context.Context, id string) (*ledger.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getStudent(ctx, s.db, id)
}

func (ts *txStore) GetStudent(ctx context.Context, id string) (*ledger.Student, error) {
	return getStudent(ctx, ts.q, id)
}

func getStudent(ctx context.Context, q dbtx, id string) (*ledger.Student, error) {
	var st ledger.Student
	var active int
	var balance string
	err := q.QueryRowContext(ctx,
		"SELECT id, name, grade_id, active, balance FROM students WHERE id = ?", id,
	).Scan(&st.ID, &st.Name, &st.GradeID, &active, &balance)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	st.Active = active == 1
	if st.Balance, err = ledger.NewMoneyFromString(balance); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) SaveStudent(ctx context.Context, st ledger.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveStudent(ctx, s.db, st)
}

func (ts *txStore) SaveStudent(ctx context.Context, st ledger.Student) error {
	return saveStudent(ctx, ts.q, st)
}

func saveStudent(ctx context.Context, q dbtx, st ledger.Student) error {
	query := `
		INSERT INTO students (id, name, grade_id, active, balance, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			grade_id = excluded.grade_id,
			active = excluded.active,
			balance = excluded.balance
	`
	_, err := q.ExecContext(ctx, query,
		st.ID, st.Name, st.GradeID, boolInt(st.Active), st.Balance.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	return mapSQLiteErr(err)
}

func (s *Store) ListStudents(ctx context.Context) ([]ledger.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listStudents(ctx, s.db)
}

func (ts *txStore) ListStudents(ctx context.Context) ([]ledger.Student, error) {
	return listStudents(ctx, ts.q)
}

func listStudents(ctx context.Context, q dbtx) ([]ledger.Student, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, name, grade_id, active, balance FROM students ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []ledger.Student
	for rows.Next() {
		var st ledger.Student
		var active int
		var balance string
		if err := rows.Scan(&st.ID, &st.Name, &st.GradeID, &active, &balance); err != nil {
			return nil, err
		}
		st.Active = active == 1
		if st.Balance, err = ledger.NewMoneyFromString(balance); err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

func (s *Store) UpdateStudentBalance(ctx context.Context, id string, balance ledger.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateStudentBalance(ctx, s.db, id, balance)
}

func (ts *txStore) UpdateStudentBalance(ctx context.Context, id string, balance ledger.Money) error {
	return updateStudentBalance(ctx, ts.q, id, balance)
}

func updateStudentBalance(ctx context.Context, q dbtx, id string, balance ledger.Money) error {
	res, err := q.ExecContext(ctx,
		"UPDATE students SET balance = ? WHERE id = ?", balance.String(), id)
	if err != nil {
		return mapSQLiteErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrStudentNotFound
	}
	return nil
}

// =============================================================================
// PAYMENTS (append-only)
// =============================================================================

func (s *Store) AppendPayment(ctx context.Context, rec ledger.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendPayment(ctx, s.db, rec)
}

func (ts *txStore) AppendPayment(ctx context.Context, rec ledger.PaymentRecord) error {
	return appendPayment(ctx, ts.q, rec)
}

func appendPayment(ctx context.Context, q dbtx, rec ledger.PaymentRecord) error {
	// Legacy records carry a month with no year; both columns stay NULL for
	// inscription and discretionary records.
	var month, year any
	if rec.Period != nil {
		month = int(rec.Period.Month)
		if !rec.Period.Legacy() {
			year = rec.Period.Year
		}
	}

	query := `
		INSERT INTO payments
		(id, student_id, school_year_id, amount, month, year, partial, kind,
		 method, receipt_number, batch_id, clerk_id, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		rec.ID, rec.StudentID, rec.SchoolYearID,
		rec.Amount.String(),
		month, year,
		boolInt(rec.Partial),
		string(rec.Kind),
		nullString(rec.Method),
		rec.ReceiptNumber,
		rec.BatchID,
		nullString(rec.ClerkID),
		nullString(rec.Description),
		rec.CreatedAt.UTC().Format(time.RFC3339),
	)
	return mapSQLiteErr(err)
}

const paymentColumns = `id, student_id, school_year_id, amount, month, year, partial, kind,
	method, receipt_number, batch_id, clerk_id, description, created_at`

func (s *Store) PaymentsByStudent(ctx context.Context, studentID, schoolYearID string) ([]ledger.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return paymentsByStudent(ctx, s.db, studentID, schoolYearID)
}

func (ts *txStore) PaymentsByStudent(ctx context.Context, studentID, schoolYearID string) ([]ledger.PaymentRecord, error) {
	return paymentsByStudent(ctx, ts.q, studentID, schoolYearID)
}

func paymentsByStudent(ctx context.Context, q dbtx, studentID, schoolYearID string) ([]ledger.PaymentRecord, error) {
	query := "SELECT " + paymentColumns + `
		FROM payments
		WHERE student_id = ? AND school_year_id = ?
		ORDER BY created_at ASC, receipt_number ASC`
	return queryPayments(ctx, q, query, studentID, schoolYearID)
}

func (s *Store) PaymentsByBatch(ctx context.Context, batchID string) ([]ledger.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return paymentsByBatch(ctx, s.db, batchID)
}

func (ts *txStore) PaymentsByBatch(ctx context.Context, batchID string) ([]ledger.PaymentRecord, error) {
	return paymentsByBatch(ctx, ts.q, batchID)
}

func paymentsByBatch(ctx context.Context, q dbtx, batchID string) ([]ledger.PaymentRecord, error) {
	query := "SELECT " + paymentColumns + `
		FROM payments
		WHERE batch_id = ?
		ORDER BY receipt_number ASC`
	return queryPayments(ctx, q, query, batchID)
}

func queryPayments(ctx context.Context, q dbtx, query string, args ...any) ([]ledger.PaymentRecord, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var records []ledger.PaymentRecord
	for rows.Next() {
		rec, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanPayment(rows *sql.Rows) (ledger.PaymentRecord, error) {
	var (
		rec       ledger.PaymentRecord
		amount    string
		month     sql.NullInt64
		year      sql.NullInt64
		partial   int
		kind      string
		method    sql.NullString
		clerkID   sql.NullString
		descr     sql.NullString
		createdAt string
	)

	err := rows.Scan(
		&rec.ID, &rec.StudentID, &rec.SchoolYearID, &amount, &month, &year,
		&partial, &kind, &method, &rec.ReceiptNumber, &rec.BatchID,
		&clerkID, &descr, &createdAt,
	)
	if err != nil {
		return rec, fmt.Errorf("failed to scan payment: %w", err)
	}

	if rec.Amount, err = ledger.NewMoneyFromString(amount); err != nil {
		return rec, err
	}
	if month.Valid {
		ref := ledger.PeriodRef{Month: time.Month(month.Int64)}
		if year.Valid {
			ref.Year = int(year.Int64)
		}
		rec.Period = &ref
	}
	rec.Partial = partial == 1
	rec.Kind = ledger.PaymentKind(kind)
	rec.Method = method.String
	rec.ClerkID = clerkID.String
	rec.Description = descr.String
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	return rec, nil
}

// =============================================================================
// RECEIPT COUNTER
// =============================================================================

func (s *Store) NextReceiptSeq(ctx context.Context, schoolYearID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return nextReceiptSeq(ctx, s.db, schoolYearID)
}

func (ts *txStore) NextReceiptSeq(ctx context.Context, schoolYearID string) (int64, error) {
	return nextReceiptSeq(ctx, ts.q, schoolYearID)
}

func nextReceiptSeq(ctx context.Context, q dbtx, schoolYearID string) (int64, error) {
	query := `
		INSERT INTO receipt_counters (school_year_id, last_seq)
		VALUES (?, 1)
		ON CONFLICT(school_year_id) DO UPDATE SET last_seq = last_seq + 1
	`
	if _, err := q.ExecContext(ctx, query, schoolYearID); err != nil {
		return 0, mapSQLiteErr(err)
	}

	var seq int64
	err := q.QueryRowContext(ctx,
		"SELECT last_seq FROM receipt_counters WHERE school_year_id = ?",
		schoolYearID,
	).Scan(&seq)
	if err != nil {
		return 0, mapSQLiteErr(err)
	}
	return seq, nil
}

// LastReceiptSeq reports the last committed counter value. Returns 0 when no
// receipt has been issued for the school year yet.
func (s *Store) LastReceiptSeq(ctx context.Context, schoolYearID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var seq int64
	err := s.db.QueryRowContext(ctx,
		"SELECT last_seq FROM receipt_counters WHERE school_year_id = ?",
		schoolYearID,
	).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return seq, err
}

// =============================================================================
// HELPERS
// =============================================================================

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// mapSQLiteErr folds constraint and contention failures into the engine's
// error taxonomy so the service layer can retry or reject uniformly.
func mapSQLiteErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") {
		return fmt.Errorf("%w: %v", ledger.ErrConflict, err)
	}
	return err
}
