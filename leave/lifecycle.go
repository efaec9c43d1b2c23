/*
lifecycle.go - Create / Edit / Cancel / Review orchestration

PURPOSE:
  Wires the calendar, eligibility filter, validator, and permission engine
  into the four mutating operations, and produces their exact field-level
  side effects: status transitions, review stamps, delegate-edit audit
  fields, and balance debits/credits.

OPERATION SEQUENCES (fail fast on errors):
  Create:  eligibility -> validate (errors block) -> working days ->
           persist pending -> debit balance -> notify
  Edit:    permission -> working days -> validate (excluding self) ->
           NoChanges guard -> conditional write -> balance delta -> notify
  Cancel:  permission -> conditional write (status, review fields, audit)
           -> credit balance back -> notify
  Review:  permission -> conditional write (approve/reject) -> on reject,
           credit balance back -> notify

BALANCE SIDE EFFECTS:
  A balance-backed request holds its days from creation: create debits
  Used, edit moves the debit (including across types), cancel and reject
  credit it back. Derived types (on-demand) debit and credit BOTH their own
  counter and the base type's balance.

CONCURRENCY:
  Every mutation of an existing request writes conditionally against the
  status and updated-at it read; a concurrent transition surfaces as
  ErrConcurrentModification and the caller retries with fresh data.

NOTIFICATIONS:
  Fired after the state change commits; a sink failure never rolls back or
  fails the operation.
*/
package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/calendar"
)

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller orchestrates the request lifecycle. All reads and writes go
// through Stores; Sink is optional.
type Controller struct {
	Stores Stores
	Sink   NotificationSink

	// Now is the clock; nil means time.Now. Tests inject a fixed clock.
	Now func() time.Time
}

// NewController builds a controller. A nil sink is replaced with NopSink.
func NewController(stores Stores, sink NotificationSink) *Controller {
	if sink == nil {
		sink = NopSink{}
	}
	return &Controller{Stores: stores, Sink: sink}
}

func (c *Controller) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}

func (c *Controller) today() calendar.Date { return calendar.DateOf(c.now()) }

// =============================================================================
// INPUTS
// =============================================================================

// CreateInput is a candidate new request.
type CreateInput struct {
	// ForUserID requests a delegate create on another member's behalf.
	// Empty means the actor requests for themselves. The resulting request
	// is owned by that member; creation never stamps the edit audit trail.
	ForUserID string

	LeaveTypeID string
	Start       calendar.Date
	End         calendar.Date
	Reason      string
}

// EditInput mutates an existing request in place (same id).
type EditInput struct {
	RequestID string

	// LeaveTypeID empty keeps the stored type.
	LeaveTypeID string
	Start       calendar.Date
	End         calendar.Date
	Reason      string
}

// =============================================================================
// CREATE
// =============================================================================

// Create validates and persists a new pending request. Returns the request
// together with any warning-severity messages; error-severity messages
// surface as ValidationFailedError.
func (c *Controller) Create(ctx context.Context, actor Actor, in CreateInput) (*Request, []ValidationMessage, error) {
	ownerID := in.ForUserID
	if ownerID == "" {
		ownerID = actor.UserID
	}

	owner, err := c.Stores.Memberships.GetMembership(ctx, ownerID, actor.OrgID)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve owner membership: %w", err)
	}
	if owner == nil || !owner.IsActive {
		return nil, nil, ErrNotFound
	}
	if ownerID != actor.UserID && !canDelegateCreate(actor, *owner) {
		return nil, nil, &PermissionDeniedError{
			Action: ActionCreate,
			Reason: "you cannot create requests on this member's behalf",
		}
	}

	org, week, holidaySet, err := c.loadOrgCalendar(ctx, actor.OrgID)
	if err != nil {
		return nil, nil, err
	}

	catalog, err := c.Stores.Catalog.ListLeaveTypes(ctx, org.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog: %w", err)
	}
	balances, err := c.Stores.Balances.ListBalances(ctx, org.ID, ownerID, in.Start.Year)
	if err != nil {
		return nil, nil, fmt.Errorf("load balances: %w", err)
	}

	applicable := ApplicableLeaveTypes(*owner, catalog, balances, in.Start.Year)
	leaveType := FindLeaveType(applicable, in.LeaveTypeID)
	if leaveType == nil {
		return nil, nil, &ValidationFailedError{Messages: []ValidationMessage{{
			Severity: SeverityError,
			Code:     "type_not_available",
			Message:  "this leave type is not available to you",
		}}}
	}

	existing, err := c.Stores.Requests.ListUserRequests(ctx, org.ID, ownerID, openStatuses())
	if err != nil {
		return nil, nil, fmt.Errorf("load existing requests: %w", err)
	}

	msgs := Validate(ValidationInput{
		Start:     in.Start,
		End:       in.End,
		LeaveType: *leaveType,
		Catalog:   catalog,
		Balances:  balances,
		Existing:  existing,
		UserID:    ownerID,
		Today:     c.today(),
		WorkWeek:  week,
		Holidays:  holidaySet,
	})
	if HasErrors(msgs) {
		return nil, nil, &ValidationFailedError{Messages: Errors(msgs)}
	}

	days, err := calendar.WorkingDays(in.Start, in.End, week, holidaySet)
	if err != nil {
		return nil, nil, ErrInvalidRange
	}

	now := c.now()
	req := Request{
		ID:            uuid.NewString(),
		UserID:        ownerID,
		OrgID:         org.ID,
		LeaveTypeID:   leaveType.ID,
		StartDate:     in.Start,
		EndDate:       in.End,
		DaysRequested: days,
		Reason:        in.Reason,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := c.Stores.Requests.CreateRequest(ctx, req); err != nil {
		return nil, nil, fmt.Errorf("persist request: %w", err)
	}

	if err := c.applyBalanceDelta(ctx, catalog, *leaveType, org.ID, ownerID, in.Start.Year,
		decimal.NewFromInt(int64(days))); err != nil {
		return nil, nil, fmt.Errorf("debit balance: %w", err)
	}

	c.notify(ctx, EventCreated, req, actor.UserID)
	return &req, Warnings(msgs), nil
}

// canDelegateCreate gates the delegate-create path: admins for any member
// of their organization, managers for employees of their own team. The
// same-org requirement is already guaranteed by the membership lookup.
func canDelegateCreate(actor Actor, owner Membership) bool {
	switch actor.Role {
	case RoleAdmin:
		return true
	case RoleManager:
		return owner.Role == RoleEmployee && actor.TeamID != "" && owner.TeamID == actor.TeamID
	default:
		return false
	}
}

// =============================================================================
// EDIT
// =============================================================================

// Edit mutates a request in place. The permission engine gates the actor,
// the validator checks the new range against the owner's OTHER requests,
// and an identical payload is rejected with ErrNoChanges before any write.
func (c *Controller) Edit(ctx context.Context, actor Actor, in EditInput) (*Request, []ValidationMessage, error) {
	stored, owner, err := c.loadTarget(ctx, actor, in.RequestID)
	if err != nil {
		return nil, nil, err
	}

	dec := Decide(actor, *stored, *owner, ActionEdit, c.today())
	if dec.CrossOrg {
		return nil, nil, ErrNotFound
	}
	if !dec.Allowed {
		return nil, nil, &PermissionDeniedError{Action: ActionEdit, Reason: dec.Reason}
	}

	org, week, holidaySet, err := c.loadOrgCalendar(ctx, actor.OrgID)
	if err != nil {
		return nil, nil, err
	}
	catalog, err := c.Stores.Catalog.ListLeaveTypes(ctx, org.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog: %w", err)
	}

	typeID := in.LeaveTypeID
	if typeID == "" {
		typeID = stored.LeaveTypeID
	}
	balances, err := c.Stores.Balances.ListBalances(ctx, org.ID, stored.UserID, in.Start.Year)
	if err != nil {
		return nil, nil, fmt.Errorf("load balances: %w", err)
	}
	applicable := ApplicableLeaveTypes(*owner, catalog, balances, in.Start.Year)
	leaveType := FindLeaveType(applicable, typeID)
	if leaveType == nil {
		return nil, nil, &ValidationFailedError{Messages: []ValidationMessage{{
			Severity: SeverityError,
			Code:     "type_not_available",
			Message:  "this leave type is not available to the request owner",
		}}}
	}

	days, rangeErr := calendar.WorkingDays(in.Start, in.End, week, holidaySet)

	existing, err := c.Stores.Requests.ListUserRequests(ctx, org.ID, stored.UserID, openStatuses())
	if err != nil {
		return nil, nil, fmt.Errorf("load existing requests: %w", err)
	}

	msgs := Validate(ValidationInput{
		Start:            in.Start,
		End:              in.End,
		LeaveType:        *leaveType,
		Catalog:          catalog,
		Balances:         editBalancesView(balances, *stored, *leaveType, catalog),
		Existing:         existing,
		ExcludeRequestID: stored.ID,
		UserID:           stored.UserID,
		Today:            c.today(),
		WorkWeek:         week,
		Holidays:         holidaySet,
	})
	if HasErrors(msgs) {
		return nil, nil, &ValidationFailedError{Messages: Errors(msgs)}
	}
	if rangeErr != nil {
		return nil, nil, ErrInvalidRange
	}

	if typeID == stored.LeaveTypeID &&
		in.Start.Equal(stored.StartDate) &&
		in.End.Equal(stored.EndDate) &&
		in.Reason == stored.Reason {
		return nil, nil, ErrNoChanges
	}

	now := c.now()
	updated := *stored
	updated.LeaveTypeID = typeID
	updated.StartDate = in.Start
	updated.EndDate = in.End
	updated.DaysRequested = days
	updated.Reason = in.Reason
	updated.UpdatedAt = now
	if dec.RequiresAudit {
		updated.EditedBy = actor.UserID
		updated.EditedAt = &now
	} else {
		// An owner's own edit must leave no delegate stamp behind.
		updated.EditedBy = ""
		updated.EditedAt = nil
	}

	if err := c.Stores.Requests.UpdateRequest(ctx, updated, stored.Status, stored.UpdatedAt); err != nil {
		return nil, nil, err
	}

	// Move the balance hold: credit the old type/range, debit the new.
	oldType := FindLeaveType(catalog, stored.LeaveTypeID)
	if oldType != nil {
		if err := c.applyBalanceDelta(ctx, catalog, *oldType, org.ID, stored.UserID,
			stored.StartDate.Year, decimal.NewFromInt(int64(stored.DaysRequested)).Neg()); err != nil {
			return nil, nil, fmt.Errorf("credit previous balance: %w", err)
		}
	}
	if err := c.applyBalanceDelta(ctx, catalog, *leaveType, org.ID, stored.UserID,
		in.Start.Year, decimal.NewFromInt(int64(days))); err != nil {
		return nil, nil, fmt.Errorf("debit new balance: %w", err)
	}

	c.notify(ctx, EventEdited, updated, actor.UserID)
	return &updated, Warnings(msgs), nil
}

// editBalancesView returns the balances as they would look with the edited
// request's current hold released, so the sufficiency rule checks the NEW
// range against the days actually free rather than double-counting the
// request against itself.
func editBalancesView(balances []Balance, stored Request, newType LeaveType, catalog []LeaveType) []Balance {
	out := make([]Balance, len(balances))
	copy(out, balances)

	// The slice covers the NEW range's year only. A release must match the
	// year the hold actually sits in, so an edit that moves the request to
	// another year frees nothing here; the new year's rows carry no part of
	// the old hold.
	release := func(typeID string, days int) {
		for i := range out {
			if out[i].LeaveTypeID == typeID && out[i].UserID == stored.UserID &&
				out[i].Year == stored.StartDate.Year {
				out[i].Used = out[i].Used.Sub(decimal.NewFromInt(int64(days)))
			}
		}
	}

	oldType := FindLeaveType(catalog, stored.LeaveTypeID)
	if oldType == nil || !oldType.RequiresBalance {
		return out
	}
	release(oldType.ID, stored.DaysRequested)
	if oldType.IsDerived() {
		release(oldType.DerivesFrom, stored.DaysRequested)
	}
	return out
}

// =============================================================================
// CANCEL
// =============================================================================

// Cancel transitions a pending or approved request to cancelled, stamps the
// cancellation's review fields, and returns the held days to the balance.
func (c *Controller) Cancel(ctx context.Context, actor Actor, requestID, reason string) (*Request, error) {
	stored, owner, err := c.loadTarget(ctx, actor, requestID)
	if err != nil {
		return nil, err
	}

	dec := Decide(actor, *stored, *owner, ActionCancel, c.today())
	if dec.CrossOrg {
		return nil, ErrNotFound
	}
	if !dec.Allowed {
		return nil, &PermissionDeniedError{Action: ActionCancel, Reason: dec.Reason}
	}

	now := c.now()
	updated := *stored
	updated.Status = StatusCancelled
	updated.ReviewedBy = actor.UserID
	updated.ReviewedAt = &now
	updated.ReviewComment = reason
	updated.UpdatedAt = now
	if dec.RequiresAudit {
		updated.EditedBy = actor.UserID
		updated.EditedAt = &now
	} else {
		updated.EditedBy = ""
		updated.EditedAt = nil
	}

	if err := c.Stores.Requests.UpdateRequest(ctx, updated, stored.Status, stored.UpdatedAt); err != nil {
		return nil, err
	}

	if err := c.creditBack(ctx, *stored); err != nil {
		return nil, err
	}

	c.notify(ctx, EventCancelled, updated, actor.UserID)
	return &updated, nil
}

// =============================================================================
// REVIEW
// =============================================================================

// Review transitions a pending request to approved or rejected. Owners may
// never review their own requests; the permission table limits reviewers to
// same-team managers (over employees) and same-org admins.
func (c *Controller) Review(ctx context.Context, actor Actor, requestID string, approve bool, comment string) (*Request, error) {
	stored, owner, err := c.loadTarget(ctx, actor, requestID)
	if err != nil {
		return nil, err
	}

	dec := Decide(actor, *stored, *owner, ActionReview, c.today())
	if dec.CrossOrg {
		return nil, ErrNotFound
	}
	if !dec.Allowed {
		return nil, &PermissionDeniedError{Action: ActionReview, Reason: dec.Reason}
	}

	now := c.now()
	updated := *stored
	if approve {
		updated.Status = StatusApproved
	} else {
		updated.Status = StatusRejected
	}
	updated.ReviewedBy = actor.UserID
	updated.ReviewedAt = &now
	updated.ReviewComment = comment
	updated.UpdatedAt = now

	if err := c.Stores.Requests.UpdateRequest(ctx, updated, stored.Status, stored.UpdatedAt); err != nil {
		return nil, err
	}

	// A rejected request no longer holds its days.
	if !approve {
		if err := c.creditBack(ctx, *stored); err != nil {
			return nil, err
		}
	}

	c.notify(ctx, EventReviewed, updated, actor.UserID)
	return &updated, nil
}

// =============================================================================
// READS
// =============================================================================

// Get returns one request if the actor may view it. A request the actor may
// not view resolves to ErrNotFound, indistinguishable from a missing one.
func (c *Controller) Get(ctx context.Context, actor Actor, requestID string) (*Request, error) {
	stored, owner, err := c.loadTarget(ctx, actor, requestID)
	if err != nil {
		return nil, err
	}
	dec := Decide(actor, *stored, *owner, ActionView, c.today())
	if !dec.Allowed {
		return nil, ErrNotFound
	}
	return stored, nil
}

// ListVisible returns the requests the actor may see: employees their own,
// managers their own plus their team's employees, admins the whole
// organization.
func (c *Controller) ListVisible(ctx context.Context, actor Actor) ([]Request, error) {
	switch actor.Role {
	case RoleAdmin:
		return c.Stores.Requests.ListOrgRequests(ctx, actor.OrgID, nil)
	case RoleManager:
		all, err := c.Stores.Requests.ListOrgRequests(ctx, actor.OrgID, nil)
		if err != nil {
			return nil, err
		}
		members, err := c.Stores.Memberships.ListMemberships(ctx, actor.OrgID)
		if err != nil {
			return nil, err
		}
		visible := make(map[string]bool, len(members))
		for _, m := range members {
			if m.UserID == actor.UserID ||
				(m.Role == RoleEmployee && actor.TeamID != "" && m.TeamID == actor.TeamID) {
				visible[m.UserID] = true
			}
		}
		var out []Request
		for _, r := range all {
			if visible[r.UserID] {
				out = append(out, r)
			}
		}
		return out, nil
	default:
		return c.Stores.Requests.ListUserRequests(ctx, actor.OrgID, actor.UserID, nil)
	}
}

// Overlapping returns the advisory overlap entries for a candidate range,
// scoped to the actor's organization and, when the actor belongs to a team,
// narrowed to that team.
func (c *Controller) Overlapping(ctx context.Context, actor Actor, start, end calendar.Date, excludeRequestID string) ([]OverlapEntry, error) {
	requests, err := c.Stores.Requests.ListOrgRequests(ctx, actor.OrgID, openStatuses())
	if err != nil {
		return nil, err
	}
	members, err := c.Stores.Memberships.ListMemberships(ctx, actor.OrgID)
	if err != nil {
		return nil, err
	}
	catalog, err := c.Stores.Catalog.ListLeaveTypes(ctx, actor.OrgID)
	if err != nil {
		return nil, err
	}

	if actor.TeamID != "" {
		inTeam := make(map[string]bool, len(members))
		for _, m := range members {
			if m.TeamID == actor.TeamID {
				inTeam[m.UserID] = true
			}
		}
		var narrowed []Request
		for _, r := range requests {
			if inTeam[r.UserID] {
				narrowed = append(narrowed, r)
			}
		}
		requests = narrowed
	}

	return FindOverlapping(start, end, actor.UserID, excludeRequestID, requests, members, catalog), nil
}

// =============================================================================
// INTERNAL HELPERS
// =============================================================================

func openStatuses() []RequestStatus {
	return []RequestStatus{StatusPending, StatusApproved}
}

// loadTarget fetches the request (scoped to the actor's organization, so a
// foreign tenant's record is simply absent) and its owner's membership.
func (c *Controller) loadTarget(ctx context.Context, actor Actor, requestID string) (*Request, *Membership, error) {
	stored, err := c.Stores.Requests.GetRequest(ctx, actor.OrgID, requestID)
	if err != nil {
		return nil, nil, fmt.Errorf("load request: %w", err)
	}
	if stored == nil {
		return nil, nil, ErrNotFound
	}
	owner, err := c.Stores.Memberships.GetMembership(ctx, stored.UserID, stored.OrgID)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve owner membership: %w", err)
	}
	if owner == nil {
		return nil, nil, ErrNotFound
	}
	return stored, owner, nil
}

func (c *Controller) loadOrgCalendar(ctx context.Context, orgID string) (*Organization, calendar.WorkWeek, calendar.HolidaySet, error) {
	org, err := c.Stores.Organizations.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, calendar.WorkWeek{}, nil, fmt.Errorf("load organization: %w", err)
	}
	if org == nil {
		return nil, calendar.WorkWeek{}, nil, ErrNotFound
	}
	week := org.WorkWeek
	if week.IsEmpty() {
		week = calendar.DefaultWorkWeek()
	}
	holidays, err := c.Stores.Holidays.ListHolidays(ctx, orgID)
	if err != nil {
		return nil, calendar.WorkWeek{}, nil, fmt.Errorf("load holidays: %w", err)
	}
	return org, week, HolidaySetFor(*org, holidays), nil
}

// applyBalanceDelta adjusts Used by delta (positive = debit) for the given
// type and, for derived types, its base type. Types without balance
// tracking are a no-op, as is a missing row (administratively deleted rows
// must not fail credits).
func (c *Controller) applyBalanceDelta(ctx context.Context, catalog []LeaveType, t LeaveType, orgID, userID string, year int, delta decimal.Decimal) error {
	if !t.RequiresBalance || delta.IsZero() {
		return nil
	}

	balances, err := c.Stores.Balances.ListBalances(ctx, orgID, userID, year)
	if err != nil {
		return err
	}

	adjust := func(typeID string) error {
		b := FindBalance(balances, userID, typeID, year)
		if b == nil {
			return nil
		}
		b.Used = b.Used.Add(delta)
		return c.Stores.Balances.SaveBalance(ctx, *b)
	}

	if err := adjust(t.ID); err != nil {
		return err
	}
	if t.IsDerived() {
		if err := adjust(t.DerivesFrom); err != nil {
			return err
		}
	}
	return nil
}

// creditBack returns a request's held days to its balances.
func (c *Controller) creditBack(ctx context.Context, stored Request) error {
	catalog, err := c.Stores.Catalog.ListLeaveTypes(ctx, stored.OrgID)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	t := FindLeaveType(catalog, stored.LeaveTypeID)
	if t == nil {
		return nil
	}
	if err := c.applyBalanceDelta(ctx, catalog, *t, stored.OrgID, stored.UserID,
		stored.StartDate.Year, decimal.NewFromInt(int64(stored.DaysRequested)).Neg()); err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	return nil
}

// notify fires the sink and swallows its error: notification failure never
// rolls back a committed state change.
func (c *Controller) notify(ctx context.Context, kind EventKind, req Request, actorID string) {
	_ = c.Sink.Notify(ctx, Event{
		Kind:    kind,
		Request: req,
		ActorID: actorID,
		At:      c.now(),
	})
}
