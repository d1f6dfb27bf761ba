/*
handlers.go - HTTP API handlers for the tuition payment service

PURPOSE:
  Exposes the payment engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Students:
    GET    /api/students                      List all students
    POST   /api/students                      Create student
    GET    /api/students/{id}                 Get student details
    GET    /api/students/{id}/statement       Per-month ledger view
    GET    /api/students/{id}/payments        Payment history
    POST   /api/students/{id}/payments        Submit a payment
    POST   /api/students/{id}/balance/resync  Authoritative balance recompute

  School years:
    GET    /api/school-years                  List school years
    POST   /api/school-years                  Create school year
    POST   /api/school-years/{id}/activate    Switch the active year

  Grades:
    GET    /api/grades                        List grades (filter by school year)
    POST   /api/grades                        Create grade

  Admin:
    POST   /api/seed                          Load the demo dataset

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (service, calculator)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed body, unparsable amounts or dates
  - 404: Student/school year/grade not found
  - 409: Receipt counter conflict that retries did not resolve
  - 422: Valid JSON but an amount the ledger rejects
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - seed.go: Demo dataset loader
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/escolar/tuition-engine/ledger"
	"github.com/escolar/tuition-engine/tuition"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   tuition.Store
	Service *tuition.Service
}

// NewHandler creates a new handler with the given store.
func NewHandler(store tuition.Store) *Handler {
	return &Handler{
		Store:   store,
		Service: tuition.NewService(store),
	}
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// SubmitPayment records one payment submission.
// POST /api/students/{id}/payments
func (h *Handler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "id")

	var req SubmitPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := ledger.NewMoneyFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	asOf, ok := parseDate(w, req.AsOf, "as_of")
	if !ok {
		return
	}

	periods := make([]ledger.Period, len(req.Periods))
	for i, p := range req.Periods {
		periods[i] = ledger.Period{Month: time.Month(p.Month), Year: p.Year}
	}

	result, err := h.Service.Apply(r.Context(), tuition.ApplyRequest{
		StudentID:    studentID,
		SchoolYearID: req.SchoolYearID,
		Amount:       amount,
		Kind:         ledger.PaymentKind(req.Kind),
		Method:       req.Method,
		ClerkID:      req.ClerkID,
		Description:  req.Description,
		Mode:         tuition.Mode(req.Mode),
		Periods:      periods,
		AsOf:         asOf,
	})
	if err != nil {
		writeDomainError(w, "Failed to apply payment", err)
		return
	}

	writeJSON(w, http.StatusCreated, SubmitPaymentResponse{
		Records: toPaymentDTOs(result.Records),
		Balance: result.Balance,
	})
}

// ListPayments returns a student's payment history.
// GET /api/students/{id}/payments?school_year_id=
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	studentID := chi.URLParam(r, "id")

	yearID := r.URL.Query().Get("school_year_id")
	if yearID == "" {
		year, err := h.Store.ActiveSchoolYear(ctx)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to resolve school year", err)
			return
		}
		if year == nil {
			writeError(w, http.StatusNotFound, "No active school year", nil)
			return
		}
		yearID = year.ID
	}

	records, err := h.Store.PaymentsByStudent(ctx, studentID, yearID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}

	writeJSON(w, http.StatusOK, toPaymentDTOs(records))
}

// GetStatement returns the per-month ledger view.
// GET /api/students/{id}/statement?school_year_id=&as_of=
func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "id")
	yearID := r.URL.Query().Get("school_year_id")

	asOf, ok := parseDate(w, r.URL.Query().Get("as_of"), "as_of")
	if !ok {
		return
	}

	stmt, err := h.Service.Statement(r.Context(), studentID, yearID, asOf)
	if err != nil {
		writeDomainError(w, "Failed to build statement", err)
		return
	}

	entries := make([]StatementEntryDTO, len(stmt.Entries))
	for i, e := range stmt.Entries {
		entries[i] = StatementEntryDTO{
			Period:      PeriodDTO{Month: int(e.Period.Month), Year: e.Period.Year},
			Expected:    e.Expected,
			Paid:        e.Paid,
			Outstanding: e.Outstanding(),
			Status:      string(e.Status),
		}
	}

	writeJSON(w, http.StatusOK, StatementDTO{
		SchoolYear:    toSchoolYearDTO(stmt.SchoolYear),
		Entries:       entries,
		Outstanding:   stmt.Outstanding,
		CachedBalance: stmt.CachedBalance,
	})
}

// ResyncBalance recomputes and persists the authoritative balance.
// POST /api/students/{id}/balance/resync
func (h *Handler) ResyncBalance(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "id")

	balance, err := h.Service.ResyncBalance(r.Context(), studentID, time.Time{})
	if err != nil {
		writeDomainError(w, "Failed to resync balance", err)
		return
	}

	writeJSON(w, http.StatusOK, BalanceDTO{StudentID: studentID, Balance: balance})
}

// =============================================================================
// STUDENT HANDLERS
// =============================================================================

// ListStudents returns all students.
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.Store.ListStudents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list students", err)
		return
	}

	dtos := make([]StudentDTO, len(students))
	for i, st := range students {
		dtos[i] = toStudentDTO(st)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetStudent returns a single student.
func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	st, err := h.Store.GetStudent(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get student", err)
		return
	}
	if st == nil {
		writeError(w, http.StatusNotFound, "Student not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, toStudentDTO(*st))
}

// CreateStudent creates a new student.
func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" || req.GradeID == "" {
		writeError(w, http.StatusBadRequest, "name and grade_id are required", nil)
		return
	}

	grade, err := h.Store.GetGrade(ctx, req.GradeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check grade", err)
		return
	}
	if grade == nil {
		writeError(w, http.StatusNotFound, "Grade not found", nil)
		return
	}

	balance := ledger.ZeroMoney()
	if req.Balance != "" {
		if balance, err = ledger.NewMoneyFromString(req.Balance); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid balance", err)
			return
		}
	}

	st := ledger.Student{
		ID:      req.ID,
		Name:    req.Name,
		GradeID: req.GradeID,
		Active:  true,
		Balance: balance,
	}
	if st.ID == "" {
		st.ID = uuid.NewString()
	}

	if err := h.Store.SaveStudent(ctx, st); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create student", err)
		return
	}

	writeJSON(w, http.StatusCreated, toStudentDTO(st))
}

// =============================================================================
// SCHOOL YEAR HANDLERS
// =============================================================================

// ListSchoolYears returns all school years.
func (h *Handler) ListSchoolYears(w http.ResponseWriter, r *http.Request) {
	years, err := h.Store.ListSchoolYears(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list school years", err)
		return
	}

	dtos := make([]SchoolYearDTO, len(years))
	for i, sy := range years {
		dtos[i] = toSchoolYearDTO(sy)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateSchoolYear creates a new school year.
func (h *Handler) CreateSchoolYear(w http.ResponseWriter, r *http.Request) {
	var req CreateSchoolYearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	start, err := time.Parse("2006-01-02", req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date, expected YYYY-MM-DD", err)
		return
	}
	end, err := time.Parse("2006-01-02", req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date, expected YYYY-MM-DD", err)
		return
	}
	if !start.Before(end) {
		writeError(w, http.StatusBadRequest, "start_date must precede end_date", nil)
		return
	}

	sy := ledger.SchoolYear{
		ID:     req.ID,
		Name:   req.Name,
		Start:  start,
		End:    end,
		Active: req.Active,
	}
	if sy.ID == "" {
		sy.ID = uuid.NewString()
	}

	ctx := r.Context()
	if err := h.Store.SaveSchoolYear(ctx, sy); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create school year", err)
		return
	}
	if sy.Active {
		if err := h.Store.SetActiveSchoolYear(ctx, sy.ID); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to activate school year", err)
			return
		}
	}

	writeJSON(w, http.StatusCreated, toSchoolYearDTO(sy))
}

// ActivateSchoolYear switches the active school year.
// POST /api/school-years/{id}/activate
func (h *Handler) ActivateSchoolYear(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Store.SetActiveSchoolYear(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to activate school year", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"active_school_year_id": id})
}

// =============================================================================
// GRADE HANDLERS
// =============================================================================

// ListGrades returns grades, optionally filtered by school year.
// GET /api/grades?school_year_id=
func (h *Handler) ListGrades(w http.ResponseWriter, r *http.Request) {
	grades, err := h.Store.ListGrades(r.Context(), r.URL.Query().Get("school_year_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list grades", err)
		return
	}

	dtos := make([]GradeDTO, len(grades))
	for i, g := range grades {
		dtos[i] = GradeDTO{
			ID:           g.ID,
			Name:         g.Name,
			SchoolYearID: g.SchoolYearID,
			MonthlyFee:   g.MonthlyFee,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateGrade creates a new grade.
func (h *Handler) CreateGrade(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateGradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" || req.SchoolYearID == "" {
		writeError(w, http.StatusBadRequest, "name and school_year_id are required", nil)
		return
	}

	fee, err := ledger.NewMoneyFromString(req.MonthlyFee)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid monthly_fee", err)
		return
	}
	if fee.IsNegative() {
		writeError(w, http.StatusBadRequest, "monthly_fee must not be negative", nil)
		return
	}

	year, err := h.Store.GetSchoolYear(ctx, req.SchoolYearID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check school year", err)
		return
	}
	if year == nil {
		writeError(w, http.StatusNotFound, "School year not found", nil)
		return
	}

	g := ledger.Grade{
		ID:           req.ID,
		Name:         req.Name,
		SchoolYearID: req.SchoolYearID,
		MonthlyFee:   fee,
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}

	if err := h.Store.SaveGrade(ctx, g); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create grade", err)
		return
	}

	writeJSON(w, http.StatusCreated, GradeDTO{
		ID:           g.ID,
		Name:         g.Name,
		SchoolYearID: g.SchoolYearID,
		MonthlyFee:   g.MonthlyFee,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func toStudentDTO(st ledger.Student) StudentDTO {
	return StudentDTO{
		ID:      st.ID,
		Name:    st.Name,
		GradeID: st.GradeID,
		Active:  st.Active,
		Balance: st.Balance,
	}
}

func toSchoolYearDTO(sy ledger.SchoolYear) SchoolYearDTO {
	return SchoolYearDTO{
		ID:     sy.ID,
		Name:   sy.Name,
		Start:  sy.Start.Format("2006-01-02"),
		End:    sy.End.Format("2006-01-02"),
		Active: sy.Active,
	}
}

func toPaymentDTOs(records []ledger.PaymentRecord) []PaymentDTO {
	dtos := make([]PaymentDTO, len(records))
	for i, rec := range records {
		dto := PaymentDTO{
			ID:            rec.ID,
			StudentID:     rec.StudentID,
			SchoolYearID:  rec.SchoolYearID,
			Amount:        rec.Amount,
			Partial:       rec.Partial,
			Kind:          string(rec.Kind),
			Method:        rec.Method,
			ReceiptNumber: rec.ReceiptNumber,
			BatchID:       rec.BatchID,
			ClerkID:       rec.ClerkID,
			Description:   rec.Description,
			CreatedAt:     rec.CreatedAt.Format(time.RFC3339),
		}
		if rec.Period != nil {
			dto.Period = &PeriodDTO{Month: int(rec.Period.Month), Year: rec.Period.Year}
		}
		dtos[i] = dto
	}
	return dtos
}

// parseDate parses an optional YYYY-MM-DD parameter. A zero time means "now"
// downstream. Reports false after writing the error response.
func parseDate(w http.ResponseWriter, value, field string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, true
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid "+field+", expected YYYY-MM-DD", err)
		return time.Time{}, false
	}
	return t.UTC(), true
}

// writeDomainError maps engine errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case ledger.IsClientError(err):
		writeError(w, http.StatusUnprocessableEntity, message, err)
	case ledger.IsRetryable(err):
		writeError(w, http.StatusConflict, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
