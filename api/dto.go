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

DATES:
  All dates cross the wire as YYYY-MM-DD strings; timestamps as RFC 3339.

VALIDATION:
  Validation is done in handlers and the domain, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - leave/types.go: the domain model these project
*/
package api

import (
	"time"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateRequestDTO is the body of POST /api/requests.
type CreateRequestDTO struct {
	// ForUserID, when set by a manager or admin, creates the request on
	// that member's behalf.
	ForUserID string `json:"for_user_id,omitempty"`

	LeaveTypeID string `json:"leave_type_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Reason      string `json:"reason,omitempty"`
}

// EditRequestDTO is the body of PUT /api/requests/{id}.
type EditRequestDTO struct {
	LeaveTypeID string `json:"leave_type_id,omitempty"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Reason      string `json:"reason,omitempty"`
}

// CancelRequestDTO is the body of POST /api/requests/{id}/cancel.
type CancelRequestDTO struct {
	Reason string `json:"reason,omitempty"`
}

// ReviewRequestDTO is the body of the approve/reject endpoints.
type ReviewRequestDTO struct {
	Comment string `json:"comment,omitempty"`
}

// CreateHolidayDTO is the body of POST /api/holidays.
type CreateHolidayDTO struct {
	Date string `json:"date"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"` // national | company, default company
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// RequestDTO represents a leave request in API responses.
type RequestDTO struct {
	ID            string `json:"id"`
	UserID        string `json:"user_id"`
	LeaveTypeID   string `json:"leave_type_id"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	DaysRequested int    `json:"days_requested"`
	Reason        string `json:"reason,omitempty"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`

	ReviewedBy    string `json:"reviewed_by,omitempty"`
	ReviewedAt    string `json:"reviewed_at,omitempty"`
	ReviewComment string `json:"review_comment,omitempty"`

	EditedBy string `json:"edited_by,omitempty"`
	EditedAt string `json:"edited_at,omitempty"`
}

// RequestResponse wraps a mutated request with any advisory warnings.
type RequestResponse struct {
	Request  RequestDTO   `json:"request"`
	Warnings []MessageDTO `json:"warnings,omitempty"`
}

// MessageDTO is one validation message.
type MessageDTO struct {
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// LeaveTypeDTO is one catalog entry annotated for the requesting member.
type LeaveTypeDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	IsPaid   bool   `json:"is_paid"`

	MinDaysPerRequest  int  `json:"min_days_per_request,omitempty"`
	MaxDaysPerRequest  int  `json:"max_days_per_request,omitempty"`
	AdvanceNoticeDays  int  `json:"advance_notice_days,omitempty"`
	MaxConsecutiveDays int  `json:"max_consecutive_days,omitempty"`
	CanBeSplit         bool `json:"can_be_split"`

	// Remaining is the alias-resolved requestable days; omitted for types
	// without balance tracking.
	Remaining string `json:"remaining,omitempty"`

	Disabled       bool   `json:"disabled"`
	DisabledReason string `json:"disabled_reason,omitempty"`
}

// BalanceDTO is one balance row for the balances view.
type BalanceDTO struct {
	LeaveTypeID   string `json:"leave_type_id"`
	LeaveTypeName string `json:"leave_type_name"`
	Year          int    `json:"year"`
	Entitled      string `json:"entitled"`
	Used          string `json:"used"`
	CarryOver     string `json:"carry_over,omitempty"`
	Remaining     string `json:"remaining"`
}

// OverlapDTO is one advisory overlap hit.
type OverlapDTO struct {
	RequestID     string `json:"request_id"`
	UserID        string `json:"user_id"`
	UserName      string `json:"user_name"`
	LeaveTypeName string `json:"leave_type_name"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	Status        string `json:"status"`
}

// HolidayDTO represents a holiday in API responses.
type HolidayDTO struct {
	ID   string `json:"id"`
	Date string `json:"date"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error    string       `json:"error"`
	Details  string       `json:"details,omitempty"`
	Messages []MessageDTO `json:"messages,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toRequestDTO(r leave.Request) RequestDTO {
	dto := RequestDTO{
		ID:            r.ID,
		UserID:        r.UserID,
		LeaveTypeID:   r.LeaveTypeID,
		StartDate:     r.StartDate.String(),
		EndDate:       r.EndDate.String(),
		DaysRequested: r.DaysRequested,
		Reason:        r.Reason,
		Status:        string(r.Status),
		CreatedAt:     r.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     r.UpdatedAt.UTC().Format(time.RFC3339),
		ReviewedBy:    r.ReviewedBy,
		ReviewComment: r.ReviewComment,
		EditedBy:      r.EditedBy,
	}
	if r.ReviewedAt != nil {
		dto.ReviewedAt = r.ReviewedAt.UTC().Format(time.RFC3339)
	}
	if r.EditedAt != nil {
		dto.EditedAt = r.EditedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func toMessageDTOs(msgs []leave.ValidationMessage) []MessageDTO {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]MessageDTO, len(msgs))
	for i, m := range msgs {
		out[i] = MessageDTO{
			Severity: string(m.Severity),
			Code:     m.Code,
			Message:  m.Message,
		}
	}
	return out
}

func toOverlapDTOs(entries []leave.OverlapEntry) []OverlapDTO {
	out := make([]OverlapDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, OverlapDTO{
			RequestID:     e.RequestID,
			UserID:        e.UserID,
			UserName:      e.UserName,
			LeaveTypeName: e.LeaveTypeName,
			StartDate:     e.StartDate.String(),
			EndDate:       e.EndDate.String(),
			Status:        string(e.Status),
		})
	}
	return out
}

func toHolidayDTO(h leave.Holiday) HolidayDTO {
	return HolidayDTO{
		ID:   h.ID,
		Date: h.Date.String(),
		Name: h.Name,
		Type: string(h.Type),
	}
}
