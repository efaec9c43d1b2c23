/*
handlers.go - HTTP API handlers for the leave engine

PURPOSE:
  Exposes the leave lifecycle engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the domain.

ENDPOINTS (all under the authenticated actor's organization):
  Catalog and balances:
    GET    /api/leave-types            Catalog annotated per member
    GET    /api/balances               The actor's balance rows

  Requests:
    GET    /api/requests               Requests visible to the actor
    POST   /api/requests               Create (optionally on behalf of)
    GET    /api/requests/{id}          One request, visibility-gated
    PUT    /api/requests/{id}          Edit in place
    POST   /api/requests/{id}/cancel   Cancel
    POST   /api/requests/{id}/approve  Review: approve
    POST   /api/requests/{id}/reject   Review: reject

  Overlaps:
    GET    /api/overlaps?start=&end=   Advisory, never blocking

  Holidays (admin-gated writes):
    GET    /api/holidays
    POST   /api/holidays
    DELETE /api/holidays/{id}

ERROR HANDLING:
  Domain errors map to HTTP statuses:
  - 400: invalid input, validation failures (with messages)
  - 403: permission refusals within the actor's organization
  - 404: missing OR invisible targets (cross-tenant access lands here)
  - 409: no-op edits and optimistic-concurrency conflicts (retryable)
  - 500: storage and internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - auth.go: actor resolution
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// HolidayAdminStore extends holiday reads with the admin write surface.
// Both store implementations satisfy it.
type HolidayAdminStore interface {
	leave.HolidayStore
	SaveHoliday(ctx context.Context, h leave.Holiday) error
	DeleteHoliday(ctx context.Context, orgID, id string) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Controller *leave.Controller
	Stores     leave.Stores
	Holidays   HolidayAdminStore
	Logger     *zap.Logger
}

// NewHandler creates a handler around a controller and its stores.
func NewHandler(ctrl *leave.Controller, holidays HolidayAdminStore, logger *zap.Logger) *Handler {
	return &Handler{
		Controller: ctrl,
		Stores:     ctrl.Stores,
		Holidays:   holidays,
		Logger:     logger,
	}
}

// =============================================================================
// CATALOG AND BALANCES
// =============================================================================

// ListLeaveTypes returns the catalog filtered for the actor, each entry
// annotated with its resolved remaining days and disablement.
func (h *Handler) ListLeaveTypes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := ActorFrom(r)
	year := calendar.Today().Year

	m, err := h.Stores.Memberships.GetMembership(ctx, actor.UserID, actor.OrgID)
	if err != nil || m == nil {
		h.internalError(w, "load membership", err)
		return
	}
	catalog, err := h.Stores.Catalog.ListLeaveTypes(ctx, actor.OrgID)
	if err != nil {
		h.internalError(w, "load catalog", err)
		return
	}
	balances, err := h.Stores.Balances.ListBalances(ctx, actor.OrgID, actor.UserID, year)
	if err != nil {
		h.internalError(w, "load balances", err)
		return
	}

	out := make([]LeaveTypeDTO, 0, len(catalog))
	for _, t := range leave.ApplicableLeaveTypes(*m, catalog, balances, year) {
		dto := LeaveTypeDTO{
			ID:                 t.ID,
			Name:               t.Name,
			Category:           string(t.Category),
			IsPaid:             t.IsPaid,
			MinDaysPerRequest:  t.MinDaysPerRequest,
			MaxDaysPerRequest:  t.MaxDaysPerRequest,
			AdvanceNoticeDays:  t.AdvanceNoticeDays,
			MaxConsecutiveDays: t.MaxConsecutiveDays,
			CanBeSplit:         t.CanBeSplit,
		}
		if t.RequiresBalance {
			resolved := leave.ResolveRemaining(t, catalog, balances, actor.UserID, year)
			if resolved.Configured {
				dto.Remaining = resolved.Remaining.String()
			}
		}
		d := leave.LeaveTypeDisablement(t, catalog, balances, actor.UserID, year)
		dto.Disabled = d.Disabled
		dto.DisabledReason = d.Reason
		out = append(out, dto)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetBalances returns the actor's balance rows for the current year.
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := ActorFrom(r)
	year := calendar.Today().Year

	catalog, err := h.Stores.Catalog.ListLeaveTypes(ctx, actor.OrgID)
	if err != nil {
		h.internalError(w, "load catalog", err)
		return
	}
	balances, err := h.Stores.Balances.ListBalances(ctx, actor.OrgID, actor.UserID, year)
	if err != nil {
		h.internalError(w, "load balances", err)
		return
	}

	out := make([]BalanceDTO, 0, len(balances))
	for _, b := range balances {
		dto := BalanceDTO{
			LeaveTypeID:   b.LeaveTypeID,
			LeaveTypeName: b.LeaveTypeID,
			Year:          b.Year,
			Entitled:      b.Entitled.String(),
			Used:          b.Used.String(),
			Remaining:     b.RemainingDisplay().String(),
		}
		if !b.CarryOver.IsZero() {
			dto.CarryOver = b.CarryOver.String()
		}
		if t := leave.FindLeaveType(catalog, b.LeaveTypeID); t != nil {
			dto.LeaveTypeName = t.Name
			// Derived rows display the alias-capped remaining, which is
			// what the member can actually request.
			if t.IsDerived() {
				resolved := leave.ResolveRemaining(*t, catalog, balances, actor.UserID, year)
				if resolved.Configured {
					dto.Remaining = resolved.Remaining.String()
				}
			}
		}
		out = append(out, dto)
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// REQUESTS
// =============================================================================

// ListRequests returns the requests visible to the actor.
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Controller.ListVisible(r.Context(), ActorFrom(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	out := make([]RequestDTO, 0, len(requests))
	for _, req := range requests {
		out = append(out, toRequestDTO(req))
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateRequest submits a new leave request.
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var body CreateRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}
	start, end, ok := h.parseRange(w, body.StartDate, body.EndDate)
	if !ok {
		return
	}

	req, warnings, err := h.Controller.Create(r.Context(), ActorFrom(r), leave.CreateInput{
		ForUserID:   body.ForUserID,
		LeaveTypeID: body.LeaveTypeID,
		Start:       start,
		End:         end,
		Reason:      body.Reason,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, RequestResponse{
		Request:  toRequestDTO(*req),
		Warnings: toMessageDTOs(warnings),
	})
}

// GetRequest returns one request, subject to visibility.
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Controller.Get(r.Context(), ActorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(*req))
}

// EditRequest mutates a request in place.
func (h *Handler) EditRequest(w http.ResponseWriter, r *http.Request) {
	var body EditRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}
	start, end, ok := h.parseRange(w, body.StartDate, body.EndDate)
	if !ok {
		return
	}

	req, warnings, err := h.Controller.Edit(r.Context(), ActorFrom(r), leave.EditInput{
		RequestID:   chi.URLParam(r, "id"),
		LeaveTypeID: body.LeaveTypeID,
		Start:       start,
		End:         end,
		Reason:      body.Reason,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RequestResponse{
		Request:  toRequestDTO(*req),
		Warnings: toMessageDTOs(warnings),
	})
}

// CancelRequest cancels a pending or approved request.
func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	var body CancelRequestDTO
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	req, err := h.Controller.Cancel(r.Context(), ActorFrom(r), chi.URLParam(r, "id"), body.Reason)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(*req))
}

// ApproveRequest approves a pending request.
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, true)
}

// RejectRequest rejects a pending request.
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, false)
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request, approve bool) {
	var body ReviewRequestDTO
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	req, err := h.Controller.Review(r.Context(), ActorFrom(r), chi.URLParam(r, "id"), approve, body.Comment)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(*req))
}

// =============================================================================
// OVERLAPS
// =============================================================================

// GetOverlaps returns the advisory overlap entries for a candidate range.
func (h *Handler) GetOverlaps(w http.ResponseWriter, r *http.Request) {
	start, end, ok := h.parseRange(w, r.URL.Query().Get("start"), r.URL.Query().Get("end"))
	if !ok {
		return
	}

	entries, err := h.Controller.Overlapping(r.Context(), ActorFrom(r),
		start, end, r.URL.Query().Get("exclude"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOverlapDTOs(entries))
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// ListHolidays returns the holidays applying to the actor's organization.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Holidays.ListHolidays(r.Context(), ActorFrom(r).OrgID)
	if err != nil {
		h.internalError(w, "load holidays", err)
		return
	}
	out := make([]HolidayDTO, 0, len(holidays))
	for _, hol := range holidays {
		out = append(out, toHolidayDTO(hol))
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateHoliday adds a company (or organization-scoped national) holiday.
// The route is admin-gated.
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var body CreateHolidayDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}
	if body.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	date, err := calendar.ParseDate(body.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", err)
		return
	}

	hType := leave.HolidayCompany
	switch body.Type {
	case "", string(leave.HolidayCompany):
	case string(leave.HolidayNational):
		hType = leave.HolidayNational
	default:
		writeError(w, http.StatusBadRequest, "type must be national or company", nil)
		return
	}

	holiday := leave.Holiday{
		ID:    uuid.NewString(),
		OrgID: ActorFrom(r).OrgID,
		Date:  date,
		Name:  body.Name,
		Type:  hType,
	}
	if err := h.Holidays.SaveHoliday(r.Context(), holiday); err != nil {
		h.internalError(w, "save holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, toHolidayDTO(holiday))
}

// DeleteHoliday removes an organization holiday. Admin-gated.
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.Holidays.DeleteHoliday(r.Context(), ActorFrom(r).OrgID, chi.URLParam(r, "id")); err != nil {
		h.internalError(w, "delete holiday", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SHARED PLUMBING
// =============================================================================

func (h *Handler) parseRange(w http.ResponseWriter, startStr, endStr string) (calendar.Date, calendar.Date, bool) {
	start, err := calendar.ParseDate(startStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start date", err)
		return calendar.Date{}, calendar.Date{}, false
	}
	end, err := calendar.ParseDate(endStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end date", err)
		return calendar.Date{}, calendar.Date{}, false
	}
	return start, end, true
}

// writeDomainError maps the engine's error taxonomy onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var vErr *leave.ValidationFailedError
	if errors.As(err, &vErr) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:    "validation failed",
			Messages: toMessageDTOs(vErr.Messages),
		})
		return
	}

	var pErr *leave.PermissionDeniedError
	if errors.As(err, &pErr) {
		writeError(w, http.StatusForbidden, "permission denied", err)
		return
	}

	switch {
	case errors.Is(err, leave.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "invalid date range", err)
	case errors.Is(err, leave.ErrNotFound):
		writeError(w, http.StatusNotFound, "request not found", nil)
	case errors.Is(err, leave.ErrNoChanges):
		writeError(w, http.StatusConflict, "no changes to apply", nil)
	case errors.Is(err, leave.ErrConcurrentModification):
		writeError(w, http.StatusConflict, "the request changed underneath you, reload and retry", nil)
	default:
		h.internalError(w, "operation failed", err)
	}
}

func (h *Handler) internalError(w http.ResponseWriter, message string, err error) {
	h.Logger.Error(message, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error", nil)
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
