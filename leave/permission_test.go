package leave_test

import (
	"testing"
	"time"

	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/leave"
)

// The permission space is finite (role x relationship x action x status x
// start gate), so these tests sweep it rather than spot-check.

func member(userID string, role leave.Role, teamID string) leave.Membership {
	return leave.Membership{
		UserID:   userID,
		OrgID:    "org-1",
		Name:     userID,
		Role:     role,
		TeamID:   teamID,
		IsActive: true,
	}
}

func actorFor(m leave.Membership) leave.Actor {
	return leave.Actor{UserID: m.UserID, OrgID: m.OrgID, Role: m.Role, TeamID: m.TeamID}
}

func requestOwnedBy(userID string, status leave.RequestStatus, start calendar.Date) leave.Request {
	return leave.Request{
		ID:          "req-1",
		UserID:      userID,
		OrgID:       "org-1",
		LeaveTypeID: "lt-annual",
		StartDate:   start,
		EndDate:     start.AddDays(4),
		Status:      status,
	}
}

var permToday = date(2025, time.June, 2)

func futureStart() calendar.Date { return permToday.AddDays(10) }
func pastStart() calendar.Date   { return permToday.AddDays(-10) }

func TestDecide_EmployeeSelf(t *testing.T) {
	me := member("emp-1", leave.RoleEmployee, "team-1")

	tests := []struct {
		name    string
		action  leave.Action
		status  leave.RequestStatus
		start   calendar.Date
		allowed bool
	}{
		{"view pending", leave.ActionView, leave.StatusPending, futureStart(), true},
		{"view cancelled", leave.ActionView, leave.StatusCancelled, pastStart(), true},
		{"edit pending future", leave.ActionEdit, leave.StatusPending, futureStart(), true},
		{"edit pending started", leave.ActionEdit, leave.StatusPending, pastStart(), false},
		{"edit approved", leave.ActionEdit, leave.StatusApproved, futureStart(), false},
		{"cancel pending future", leave.ActionCancel, leave.StatusPending, futureStart(), true},
		{"cancel approved future", leave.ActionCancel, leave.StatusApproved, futureStart(), true},
		{"cancel started", leave.ActionCancel, leave.StatusApproved, pastStart(), false},
		{"cancel cancelled", leave.ActionCancel, leave.StatusCancelled, futureStart(), false},
		{"review own", leave.ActionReview, leave.StatusPending, futureStart(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := requestOwnedBy("emp-1", tt.status, tt.start)
			dec := leave.Decide(actorFor(me), req, me, tt.action, permToday)
			if dec.Allowed != tt.allowed {
				t.Fatalf("allowed=%v, want %v (reason: %s)", dec.Allowed, tt.allowed, dec.Reason)
			}
			if dec.Allowed && dec.RequiresAudit {
				t.Error("acting on one's own request must never require audit")
			}
		})
	}
}

func TestDecide_EmployeeOverOthers(t *testing.T) {
	// Employees get nothing over anyone else's requests, even teammates.
	me := member("emp-1", leave.RoleEmployee, "team-1")
	teammate := member("emp-2", leave.RoleEmployee, "team-1")
	req := requestOwnedBy("emp-2", leave.StatusPending, futureStart())

	for _, action := range []leave.Action{
		leave.ActionView, leave.ActionEdit, leave.ActionCancel, leave.ActionReview,
	} {
		dec := leave.Decide(actorFor(me), req, teammate, action, permToday)
		if dec.Allowed {
			t.Errorf("employee must not %s a teammate's request", action)
		}
	}
}

func TestDecide_ManagerOverSameTeamEmployee(t *testing.T) {
	mgr := member("mgr-1", leave.RoleManager, "team-1")
	emp := member("emp-1", leave.RoleEmployee, "team-1")

	tests := []struct {
		name    string
		action  leave.Action
		status  leave.RequestStatus
		allowed bool
	}{
		{"view", leave.ActionView, leave.StatusPending, true},
		{"edit pending", leave.ActionEdit, leave.StatusPending, true},
		{"edit approved", leave.ActionEdit, leave.StatusApproved, true},
		{"edit cancelled", leave.ActionEdit, leave.StatusCancelled, false},
		{"cancel approved", leave.ActionCancel, leave.StatusApproved, true},
		{"cancel rejected", leave.ActionCancel, leave.StatusRejected, false},
		{"review pending", leave.ActionReview, leave.StatusPending, true},
		{"review approved", leave.ActionReview, leave.StatusApproved, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Started requests stay manageable for delegates; only the
			// owner-employee path is gated on the start date.
			req := requestOwnedBy("emp-1", tt.status, pastStart())
			dec := leave.Decide(actorFor(mgr), req, emp, tt.action, permToday)
			if dec.Allowed != tt.allowed {
				t.Fatalf("allowed=%v, want %v (reason: %s)", dec.Allowed, tt.allowed, dec.Reason)
			}
			if dec.Allowed && !dec.RequiresAudit {
				t.Error("a delegate action must require the audit trail")
			}
		})
	}
}

func TestDecide_ManagerScopeLimits(t *testing.T) {
	mgr := member("mgr-1", leave.RoleManager, "team-1")

	t.Run("different team employee", func(t *testing.T) {
		other := member("emp-9", leave.RoleEmployee, "team-2")
		req := requestOwnedBy("emp-9", leave.StatusPending, futureStart())
		for _, action := range []leave.Action{leave.ActionView, leave.ActionEdit, leave.ActionCancel, leave.ActionReview} {
			if leave.Decide(actorFor(mgr), req, other, action, permToday).Allowed {
				t.Errorf("manager must not %s outside their team", action)
			}
		}
	})

	t.Run("same team manager target", func(t *testing.T) {
		peer := member("mgr-2", leave.RoleManager, "team-1")
		req := requestOwnedBy("mgr-2", leave.StatusPending, futureStart())
		for _, action := range []leave.Action{leave.ActionView, leave.ActionEdit, leave.ActionCancel, leave.ActionReview} {
			if leave.Decide(actorFor(mgr), req, peer, action, permToday).Allowed {
				t.Errorf("manager must not %s a fellow manager's request", action)
			}
		}
	})

	t.Run("same team admin target", func(t *testing.T) {
		adm := member("adm-1", leave.RoleAdmin, "team-1")
		req := requestOwnedBy("adm-1", leave.StatusPending, futureStart())
		if leave.Decide(actorFor(mgr), req, adm, leave.ActionReview, permToday).Allowed {
			t.Error("manager must not review an admin's request")
		}
	})
}

func TestDecide_ManagerOwnRequestUngatedByStart(t *testing.T) {
	mgr := member("mgr-1", leave.RoleManager, "team-1")
	req := requestOwnedBy("mgr-1", leave.StatusApproved, pastStart())

	dec := leave.Decide(actorFor(mgr), req, mgr, leave.ActionCancel, permToday)
	if !dec.Allowed {
		t.Fatalf("manager should cancel their own started request: %s", dec.Reason)
	}
	if dec.RequiresAudit {
		t.Error("own-request cancel must not require audit")
	}
}

func TestDecide_AdminAcrossOrganization(t *testing.T) {
	adm := member("adm-1", leave.RoleAdmin, "team-1")
	// Different team, no shared team at all.
	emp := member("emp-9", leave.RoleEmployee, "")

	tests := []struct {
		name    string
		action  leave.Action
		status  leave.RequestStatus
		allowed bool
	}{
		{"view", leave.ActionView, leave.StatusRejected, true},
		{"edit approved", leave.ActionEdit, leave.StatusApproved, true},
		{"cancel pending", leave.ActionCancel, leave.StatusPending, true},
		{"cancel cancelled", leave.ActionCancel, leave.StatusCancelled, false},
		{"review pending", leave.ActionReview, leave.StatusPending, true},
		{"review rejected", leave.ActionReview, leave.StatusRejected, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := requestOwnedBy("emp-9", tt.status, pastStart())
			dec := leave.Decide(actorFor(adm), req, emp, tt.action, permToday)
			if dec.Allowed != tt.allowed {
				t.Fatalf("allowed=%v, want %v (reason: %s)", dec.Allowed, tt.allowed, dec.Reason)
			}
		})
	}
}

func TestDecide_AuditFollowsIdentityNotRole(t *testing.T) {
	adm := member("adm-1", leave.RoleAdmin, "")

	// Admin acting on their OWN request: no audit.
	own := requestOwnedBy("adm-1", leave.StatusPending, futureStart())
	dec := leave.Decide(actorFor(adm), own, adm, leave.ActionEdit, permToday)
	if !dec.Allowed || dec.RequiresAudit {
		t.Fatalf("own edit: allowed=%v audit=%v, want allowed without audit", dec.Allowed, dec.RequiresAudit)
	}

	// Same admin acting on someone else's: audited.
	emp := member("emp-1", leave.RoleEmployee, "")
	other := requestOwnedBy("emp-1", leave.StatusPending, futureStart())
	dec = leave.Decide(actorFor(adm), other, emp, leave.ActionEdit, permToday)
	if !dec.Allowed || !dec.RequiresAudit {
		t.Fatalf("delegate edit: allowed=%v audit=%v, want allowed with audit", dec.Allowed, dec.RequiresAudit)
	}
}

func TestDecide_CrossOrgResolvesToNotFound(t *testing.T) {
	adm := member("adm-1", leave.RoleAdmin, "")
	foreignOwner := leave.Membership{UserID: "emp-x", OrgID: "org-2", Role: leave.RoleEmployee, IsActive: true}
	req := leave.Request{
		ID:        "req-x",
		UserID:    "emp-x",
		OrgID:     "org-2",
		StartDate: futureStart(),
		EndDate:   futureStart().AddDays(2),
		Status:    leave.StatusPending,
	}

	for _, action := range []leave.Action{leave.ActionView, leave.ActionEdit, leave.ActionCancel, leave.ActionReview} {
		dec := leave.Decide(actorFor(adm), req, foreignOwner, action, permToday)
		if dec.Allowed {
			t.Fatalf("cross-org %s must never be allowed", action)
		}
		if !dec.CrossOrg {
			t.Errorf("cross-org %s must be flagged so callers return not-found", action)
		}
	}
}

func TestRelate(t *testing.T) {
	me := member("u1", leave.RoleManager, "team-1")

	tests := []struct {
		name  string
		owner leave.Membership
		req   leave.Request
		want  leave.Relationship
	}{
		{"self", me, requestOwnedBy("u1", leave.StatusPending, futureStart()), leave.RelationSelf},
		{"same team", member("u2", leave.RoleEmployee, "team-1"),
			requestOwnedBy("u2", leave.StatusPending, futureStart()), leave.RelationSameTeam},
		{"same org different team", member("u3", leave.RoleEmployee, "team-2"),
			requestOwnedBy("u3", leave.StatusPending, futureStart()), leave.RelationSameOrg},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := leave.Relate(actorFor(me), tt.req, tt.owner); got != tt.want {
				t.Errorf("Relate() = %s, want %s", got, tt.want)
			}
		})
	}

	t.Run("no team never matches same_team", func(t *testing.T) {
		loner := member("u1", leave.RoleManager, "")
		owner := member("u2", leave.RoleEmployee, "")
		got := leave.Relate(actorFor(loner), requestOwnedBy("u2", leave.StatusPending, futureStart()), owner)
		if got != leave.RelationSameOrg {
			t.Errorf("empty team ids must relate as same_org, got %s", got)
		}
	})
}
