/*
Package leave implements the leave request lifecycle and eligibility engine.

PURPOSE:
  Decides which leave types a member of an organization may request, how many
  working days a date range consumes, whether a candidate request is valid
  and affordable, who may view/edit/cancel/review an existing request, and
  what audit trail every mutation leaves behind.

KEY CONCEPTS IN THIS FILE (types.go):
  - Organization: tenant boundary; owns the work week and holiday policy
  - Membership:   (user, organization) binding carrying the acting role
  - Team:         optional grouping with a manager
  - LeaveType:    catalog entry with per-request limits and balance rules
  - Balance:      (user, leave type, year) entitlement/usage row
  - Request:      the leave request record with its audit fields

DESIGN PRINCIPLES:
  1. Role is contextual: it lives on the Membership, never on a user.
     Every permission decision resolves role through the membership that
     matches the operation's organization.
  2. Tenant isolation: every entity is scoped to one organization; the
     engine never crosses that boundary, and cross-tenant lookups resolve
     to "not found", not "forbidden".
  3. Precision: balances use decimal.Decimal so half-day entitlements and
     administrative adjustments never accumulate float error.
  4. Derived balances are modeled as an explicit alias (DerivesFrom + cap),
     not string-matched special cases.

SEE ALSO:
  - eligibility.go: which types a member may request
  - validate.go:    the request rule table
  - permission.go:  the role/relationship/status decision table
  - lifecycle.go:   create/edit/cancel/review orchestration
*/
package leave

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/calendar"
)

// =============================================================================
// ROLES AND STATUSES
// =============================================================================

// Role is a member's role within ONE organization. A user may hold different
// roles in different organizations; never cache a role across tenants.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// RequestStatus is the lifecycle state of a leave request.
//
// Transitions:
//
//	pending   -> approved | rejected   (review)
//	pending   -> cancelled             (cancel)
//	approved  -> cancelled             (cancel)
//	cancelled                           terminal
//	rejected                            terminal
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusRejected  RequestStatus = "rejected"
	StatusCancelled RequestStatus = "cancelled"
)

// Category classifies a leave type for restriction and display purposes.
type Category string

const (
	CategoryAnnual    Category = "annual"
	CategorySick      Category = "sick"
	CategoryParental  Category = "parental"
	CategoryEmergency Category = "emergency"
	CategoryUnpaid    Category = "unpaid"
	CategoryOnDemand  Category = "on_demand"
)

// =============================================================================
// ORGANIZATION, MEMBERSHIP, TEAM
// =============================================================================

// Organization is the tenant boundary. Every other entity in this package is
// scoped to exactly one organization.
type Organization struct {
	ID      string
	Name    string
	Country string // ISO country code, drives the public holiday set

	// WorkWeek is the set of weekdays that count as working days.
	WorkWeek calendar.WorkWeek

	// ExcludePublicHolidays controls whether national holidays are removed
	// from the working-day count. Company holidays are always excluded.
	ExcludePublicHolidays bool

	CreatedAt time.Time
}

// Membership binds a user to one organization with a role and optional team.
// All permissions are resolved over memberships. Memberships are deactivated
// on removal, never deleted.
type Membership struct {
	UserID string
	OrgID  string

	// Name is the member's display name within this organization. It is
	// denormalized here so advisory views (overlaps) can render without a
	// separate identity lookup.
	Name string

	Role      Role
	TeamID    string // empty = no team
	IsActive  bool
	IsDefault bool // the user's default organization context

	CreatedAt time.Time
}

// Team groups memberships within one organization.
type Team struct {
	ID    string
	OrgID string
	Name  string

	// ManagerID, if set, must reference a membership of role manager or
	// admin in the same organization.
	ManagerID string
}

// Actor is the resolved identity/session context for one operation:
// one user acting within one organization. The role and team come from the
// membership matching OrgID.
type Actor struct {
	UserID string
	OrgID  string
	Role   Role
	TeamID string
}

// =============================================================================
// LEAVE TYPE CATALOG
// =============================================================================

// LeaveType is a per-organization catalog entry.
type LeaveType struct {
	ID    string
	OrgID string
	Name  string

	Category Category
	IsPaid   bool

	// RequiresBalance: the type cannot be requested unless a Balance row
	// exists for (user, type, year).
	RequiresBalance bool

	// DaysPerYear is the default entitlement used when provisioning
	// balances. Zero means the type has no fixed yearly allotment.
	DaysPerYear decimal.Decimal

	// Per-request limits. Zero means "no limit".
	MinDaysPerRequest  int
	MaxDaysPerRequest  int
	AdvanceNoticeDays  int
	MaxConsecutiveDays int

	CanBeSplit       bool
	CarryOverAllowed bool

	// DerivesFrom aliases this type's balance onto another type's balance:
	// consuming this type draws down BOTH its own counter and the base
	// type's balance, and the effective cap is min(AnnualCap, base
	// remaining). Used for on-demand leave, which is statutorily a subset
	// of annual leave.
	DerivesFrom string

	// AnnualCap is the statutory yearly cap for a derived type (4 for
	// on-demand in the observed ruleset). Ignored when DerivesFrom is empty.
	AnnualCap int

	SpecialRules SpecialRules
}

// SpecialRules carries policy metadata that restricts who may request a type.
type SpecialRules struct {
	// RestrictedToRoles, when non-empty, limits the type to members holding
	// one of these roles in the organization.
	RestrictedToRoles []Role `json:"restricted_to_roles,omitempty"`

	// RestrictedToTeams, when non-empty, limits the type to members of
	// these teams.
	RestrictedToTeams []string `json:"restricted_to_teams,omitempty"`
}

// IsDerived reports whether the type draws against another type's balance.
func (t LeaveType) IsDerived() bool { return t.DerivesFrom != "" }

// =============================================================================
// BALANCE
// =============================================================================

// Balance is the (user, leave type, year) entitlement row.
type Balance struct {
	UserID      string
	OrgID       string
	LeaveTypeID string
	Year        int

	Entitled  decimal.Decimal
	Used      decimal.Decimal
	CarryOver decimal.Decimal
}

// Remaining returns entitled + carryover - used. May be negative after
// administrative overrides; new requests must never push it negative.
func (b Balance) Remaining() decimal.Decimal {
	return b.Entitled.Add(b.CarryOver).Sub(b.Used)
}

// RemainingDisplay returns the remaining balance floored at zero, the value
// shown to members.
func (b Balance) RemainingDisplay() decimal.Decimal {
	r := b.Remaining()
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// =============================================================================
// REQUEST
// =============================================================================

// Request is a leave request. StartDate and EndDate are inclusive civil
// dates; DaysRequested is the working-day count computed at the last
// successful write, never recomputed lazily.
type Request struct {
	ID          string
	UserID      string // owner
	OrgID       string
	LeaveTypeID string

	StartDate     calendar.Date
	EndDate       calendar.Date
	DaysRequested int

	Reason string
	Status RequestStatus

	CreatedAt time.Time
	UpdatedAt time.Time

	// Review trail: stamped by approve/reject and by cancel.
	ReviewedBy    string
	ReviewedAt    *time.Time
	ReviewComment string

	// Delegate-edit audit trail. Set together, and only when the mutating
	// actor is not the owner. An admin editing their own request leaves
	// both null, same as an employee.
	EditedBy string
	EditedAt *time.Time
}

// IsOpen reports whether the request still holds or may hold days
// (pending or approved).
func (r Request) IsOpen() bool {
	return r.Status == StatusPending || r.Status == StatusApproved
}

// =============================================================================
// HOLIDAY
// =============================================================================

// HolidayType distinguishes national (public) holidays from company ones.
type HolidayType string

const (
	HolidayNational HolidayType = "national"
	HolidayCompany  HolidayType = "company"
)

// Holiday is a non-working date. National holidays may be global
// (OrgID empty) and are honored only when the organization's policy
// excludes public holidays; company holidays always apply to their org.
type Holiday struct {
	ID    string
	OrgID string // empty = global
	Date  calendar.Date
	Name  string
	Type  HolidayType
}

// HolidaySetFor filters holidays down to the dates that apply to the given
// organization and returns them as a calendar set ready for WorkingDays.
func HolidaySetFor(org Organization, holidays []Holiday) calendar.HolidaySet {
	set := calendar.NewHolidaySet()
	for _, h := range holidays {
		switch h.Type {
		case HolidayNational:
			if !org.ExcludePublicHolidays {
				continue
			}
			if h.OrgID != "" && h.OrgID != org.ID {
				continue
			}
		case HolidayCompany:
			if h.OrgID != org.ID {
				continue
			}
		default:
			continue
		}
		set.Add(h.Date)
	}
	return set
}
