/*
permission.go - Role/relationship/status decision table

PURPOSE:
  Decides, for (actor, target request, action), whether the action is
  allowed and whether it must be journaled as a delegate action. The table
  is data, not branching logic, so it can be unit-tested exhaustively over
  its finite input space.

DECISION TABLE (see permissionTable below):

  Actor role  Target owner          Allowed actions
  employee    self                  view; edit while pending and before
                                    start; cancel before start
  employee    other                 none
  manager     own request           view; edit; cancel (ungated by start)
  manager     employee, same team   view, edit, cancel, review (audited)
  manager     manager/admin, team   none (gated explicitly; see DESIGN.md)
  admin       any, same org         view, edit, cancel, review (audited
                                    when actor is not the owner)
  any         different org         nothing; resolves to NOT FOUND, never
                                    to a distinct "forbidden"

AUDIT INVARIANT:
  RequiresAudit is a function of whether the acting identity differs from
  the owning identity, never of role alone. An admin editing their own
  request leaves the trail null, identical to an employee.

STATUS GATES:
  Edit is possible only while pending or approved (employees: pending
  only). Cancel only from pending or approved. Review only from pending.
  A cancelled request may never be edited or cancelled again; rejected is
  terminal.
*/
package leave

import "github.com/warp/leave-engine/calendar"

// =============================================================================
// ACTIONS AND RELATIONSHIPS
// =============================================================================

// Action is something an actor attempts against a request.
type Action string

const (
	// ActionCreate covers delegated creation only; it never appears in the
	// decision table because creating for oneself needs no permission.
	ActionCreate Action = "create"

	ActionView   Action = "view"
	ActionEdit   Action = "edit"
	ActionCancel Action = "cancel"
	ActionReview Action = "review"
)

// Relationship positions the actor relative to the request's owner.
// The most specific relationship applies: self before sameTeam before
// sameOrg.
type Relationship string

const (
	RelationSelf     Relationship = "self"
	RelationSameTeam Relationship = "same_team"
	RelationSameOrg  Relationship = "same_org"
	RelationCrossOrg Relationship = "cross_org"
)

// Relate computes the actor's relationship to the request owner.
func Relate(actor Actor, req Request, owner Membership) Relationship {
	if req.OrgID != actor.OrgID || owner.OrgID != actor.OrgID {
		return RelationCrossOrg
	}
	if req.UserID == actor.UserID {
		return RelationSelf
	}
	if actor.TeamID != "" && owner.TeamID == actor.TeamID {
		return RelationSameTeam
	}
	return RelationSameOrg
}

// =============================================================================
// DECISION
// =============================================================================

// Decision is the outcome of a permission check.
type Decision struct {
	Allowed bool

	// RequiresAudit: the mutation must stamp EditedBy/EditedAt.
	// True iff the action is allowed and the actor is not the owner.
	RequiresAudit bool

	// CrossOrg: the target is in a foreign tenant. Callers MUST surface
	// this as ErrNotFound, never as a permission error.
	CrossOrg bool

	// Reason is a short user-facing explanation for refusals.
	Reason string
}

func deny(reason string) Decision { return Decision{Reason: reason} }

// =============================================================================
// THE TABLE
// =============================================================================

// permissionRule is one row of the decision table.
type permissionRule struct {
	Role         Role
	Relationship Relationship
	Action       Action

	// TargetRoles, when non-empty, restricts the rule to owners holding
	// one of these roles. Gates the open question of managers acting on
	// same-team managers/admins: only employee targets match.
	TargetRoles []Role

	// Statuses the target may be in. Empty = any status.
	Statuses []RequestStatus

	// FutureStartOnly requires today < StartDate.
	FutureStartOnly bool
}

var open = []RequestStatus{StatusPending, StatusApproved}

// permissionTable is the complete rule set. A (role, relationship, action)
// triple with no matching row is denied.
var permissionTable = []permissionRule{
	// --- self, by role ---
	{Role: RoleEmployee, Relationship: RelationSelf, Action: ActionView},
	{Role: RoleEmployee, Relationship: RelationSelf, Action: ActionEdit,
		Statuses: []RequestStatus{StatusPending}, FutureStartOnly: true},
	{Role: RoleEmployee, Relationship: RelationSelf, Action: ActionCancel,
		Statuses: open, FutureStartOnly: true},

	{Role: RoleManager, Relationship: RelationSelf, Action: ActionView},
	{Role: RoleManager, Relationship: RelationSelf, Action: ActionEdit, Statuses: open},
	{Role: RoleManager, Relationship: RelationSelf, Action: ActionCancel, Statuses: open},

	{Role: RoleAdmin, Relationship: RelationSelf, Action: ActionView},
	{Role: RoleAdmin, Relationship: RelationSelf, Action: ActionEdit, Statuses: open},
	{Role: RoleAdmin, Relationship: RelationSelf, Action: ActionCancel, Statuses: open},

	// --- manager over same-team employees ---
	{Role: RoleManager, Relationship: RelationSameTeam, Action: ActionView,
		TargetRoles: []Role{RoleEmployee}},
	{Role: RoleManager, Relationship: RelationSameTeam, Action: ActionEdit,
		TargetRoles: []Role{RoleEmployee}, Statuses: open},
	{Role: RoleManager, Relationship: RelationSameTeam, Action: ActionCancel,
		TargetRoles: []Role{RoleEmployee}, Statuses: open},
	{Role: RoleManager, Relationship: RelationSameTeam, Action: ActionReview,
		TargetRoles: []Role{RoleEmployee}, Statuses: []RequestStatus{StatusPending}},

	// --- admin over anyone in the organization ---
	{Role: RoleAdmin, Relationship: RelationSameTeam, Action: ActionView},
	{Role: RoleAdmin, Relationship: RelationSameTeam, Action: ActionEdit, Statuses: open},
	{Role: RoleAdmin, Relationship: RelationSameTeam, Action: ActionCancel, Statuses: open},
	{Role: RoleAdmin, Relationship: RelationSameTeam, Action: ActionReview,
		Statuses: []RequestStatus{StatusPending}},

	{Role: RoleAdmin, Relationship: RelationSameOrg, Action: ActionView},
	{Role: RoleAdmin, Relationship: RelationSameOrg, Action: ActionEdit, Statuses: open},
	{Role: RoleAdmin, Relationship: RelationSameOrg, Action: ActionCancel, Statuses: open},
	{Role: RoleAdmin, Relationship: RelationSameOrg, Action: ActionReview,
		Statuses: []RequestStatus{StatusPending}},
}

// =============================================================================
// DECIDE
// =============================================================================

// Decide evaluates the table for one attempted action. owner is the target
// request owner's membership in the request's organization; today feeds the
// employee "before start" gates.
func Decide(actor Actor, req Request, owner Membership, action Action, today calendar.Date) Decision {
	rel := Relate(actor, req, owner)
	if rel == RelationCrossOrg {
		return Decision{CrossOrg: true, Reason: "not found"}
	}

	for _, rule := range permissionTable {
		if rule.Role != actor.Role || rule.Relationship != rel || rule.Action != action {
			continue
		}
		if len(rule.TargetRoles) > 0 && !containsRole(rule.TargetRoles, owner.Role) {
			continue
		}
		if len(rule.Statuses) > 0 && !containsStatus(rule.Statuses, req.Status) {
			return deny(statusReason(action, req.Status))
		}
		if rule.FutureStartOnly && !today.Before(req.StartDate) {
			return deny("only requests that have not started can be changed")
		}
		return Decision{
			Allowed:       true,
			RequiresAudit: actor.UserID != req.UserID,
		}
	}

	return deny("you are not allowed to " + string(action) + " this request")
}

func statusReason(action Action, status RequestStatus) string {
	switch status {
	case StatusCancelled:
		return "a cancelled request cannot be " + pastTense(action)
	case StatusRejected:
		return "a rejected request cannot be " + pastTense(action)
	default:
		return "request status does not allow " + string(action)
	}
}

func pastTense(a Action) string {
	switch a {
	case ActionEdit:
		return "edited"
	case ActionCancel:
		return "cancelled"
	case ActionReview:
		return "reviewed"
	default:
		return string(a) + "ed"
	}
}

func containsRole(roles []Role, r Role) bool {
	for _, x := range roles {
		if x == r {
			return true
		}
	}
	return false
}

func containsStatus(statuses []RequestStatus, s RequestStatus) bool {
	for _, x := range statuses {
		if x == s {
			return true
		}
	}
	return false
}
