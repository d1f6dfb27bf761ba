/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY ON THE WIRE:
  Monetary fields travel as decimal strings ("500.00"), never as floats.
  ledger.Money marshals itself that way; request amounts arrive as strings
  and are parsed through ledger.NewMoneyFromString in the handler.

VALIDATION:
  Validation is done in handlers and the service layer, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - tuition/service.go: The domain types these mirror
*/
package api

import (
	"github.com/escolar/tuition-engine/ledger"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// StudentDTO represents a student in API responses.
type StudentDTO struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	GradeID string       `json:"grade_id"`
	Active  bool         `json:"active"`
	Balance ledger.Money `json:"balance"`
}

// CreateStudentRequest creates a new student.
type CreateStudentRequest struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	GradeID string `json:"grade_id"`
	Balance string `json:"balance,omitempty"`
}

// SchoolYearDTO represents a school year in API responses.
type SchoolYearDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Start  string `json:"start_date"`
	End    string `json:"end_date"`
	Active bool   `json:"active"`
}

// CreateSchoolYearRequest creates a new school year.
type CreateSchoolYearRequest struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name"`
	Start  string `json:"start_date"` // YYYY-MM-DD
	End    string `json:"end_date"`   // YYYY-MM-DD
	Active bool   `json:"active"`
}

// GradeDTO represents a grade in API responses.
type GradeDTO struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	SchoolYearID string       `json:"school_year_id"`
	MonthlyFee   ledger.Money `json:"monthly_fee"`
}

// CreateGradeRequest creates a new grade.
type CreateGradeRequest struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name"`
	SchoolYearID string `json:"school_year_id"`
	MonthlyFee   string `json:"monthly_fee"`
}

// PeriodDTO names one obligation month.
type PeriodDTO struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// SubmitPaymentRequest is the body of POST /api/students/{id}/payments.
type SubmitPaymentRequest struct {
	Amount       string      `json:"amount"`
	Kind         string      `json:"kind"` // tuition, inscription, discretionary
	Method       string      `json:"method,omitempty"`
	ClerkID      string      `json:"clerk_id"`
	Description  string      `json:"description,omitempty"`
	SchoolYearID string      `json:"school_year_id,omitempty"` // empty = active
	Mode         string      `json:"mode,omitempty"`           // specific or bulk (tuition only)
	Periods      []PeriodDTO `json:"periods,omitempty"`        // specific mode selection
	AsOf         string      `json:"as_of,omitempty"`          // YYYY-MM-DD, empty = today
}

// PaymentDTO represents one committed payment record.
type PaymentDTO struct {
	ID            string       `json:"id"`
	StudentID     string       `json:"student_id"`
	SchoolYearID  string       `json:"school_year_id"`
	Amount        ledger.Money `json:"amount"`
	Period        *PeriodDTO   `json:"period,omitempty"`
	Partial       bool         `json:"partial"`
	Kind          string       `json:"kind"`
	Method        string       `json:"method,omitempty"`
	ReceiptNumber string       `json:"receipt_number"`
	BatchID       string       `json:"batch_id"`
	ClerkID       string       `json:"clerk_id,omitempty"`
	Description   string       `json:"description,omitempty"`
	CreatedAt     string       `json:"created_at"`
}

// SubmitPaymentResponse returns the committed records and the new balance.
type SubmitPaymentResponse struct {
	Records []PaymentDTO `json:"records"`
	Balance ledger.Money `json:"balance"`
}

// StatementEntryDTO is one month of the statement view.
type StatementEntryDTO struct {
	Period      PeriodDTO    `json:"period"`
	Expected    ledger.Money `json:"expected"`
	Paid        ledger.Money `json:"paid"`
	Outstanding ledger.Money `json:"outstanding"`
	Status      string       `json:"status"` // paid, partial, unpaid
}

// StatementDTO is the per-month ledger view for one student.
type StatementDTO struct {
	SchoolYear    SchoolYearDTO       `json:"school_year"`
	Entries       []StatementEntryDTO `json:"entries"`
	Outstanding   ledger.Money        `json:"outstanding"`
	CachedBalance ledger.Money        `json:"cached_balance"`
}

// BalanceDTO is the result of a resync.
type BalanceDTO struct {
	StudentID string       `json:"student_id"`
	Balance   ledger.Money `json:"balance"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
