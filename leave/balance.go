/*
balance.go - Balance lookup and the derived-balance alias chain

PURPOSE:
  Resolves how many days a member may still request of a given leave type.
  For plain types this is the balance row's remaining days. For derived
  types (on-demand leave), the type declares DerivesFrom + AnnualCap and the
  effective remaining is computed against BOTH its own counter and the base
  type's balance:

    effective cap       = min(AnnualCap, base remaining at time of request)
    effective remaining = min(AnnualCap - own used, base remaining)

  On-demand leave is statutorily a subset of annual leave, not an
  independent pool: consuming it decrements both counters (see lifecycle.go).

ALIAS CHAIN:
  The resolution is generic over the DerivesFrom relation, not string-matched
  on type names. Chains of length one are the only ones observed; deeper
  chains resolve recursively.

SEE ALSO:
  - eligibility.go: uses ResolveRemaining for disablement reasons
  - validate.go:    uses ResolveRemaining for the sufficiency rule
  - lifecycle.go:   applies the dual debit/credit
*/
package leave

import (
	"github.com/shopspring/decimal"
)

// FindBalance returns the balance row for (user, type, year), or nil.
func FindBalance(balances []Balance, userID, leaveTypeID string, year int) *Balance {
	for i := range balances {
		b := &balances[i]
		if b.UserID == userID && b.LeaveTypeID == leaveTypeID && b.Year == year {
			return b
		}
	}
	return nil
}

// FindLeaveType returns the catalog entry with the given id, or nil.
func FindLeaveType(catalog []LeaveType, id string) *LeaveType {
	for i := range catalog {
		if catalog[i].ID == id {
			return &catalog[i]
		}
	}
	return nil
}

// ResolvedBalance is the outcome of resolving a type's remaining days
// through its alias chain.
type ResolvedBalance struct {
	// Configured is false when a required balance row (own or base) is
	// missing for the year.
	Configured bool

	// Remaining is the number of days still requestable. For derived types
	// this is the alias-capped value, not the raw row.
	Remaining decimal.Decimal

	// Derived is true when the type draws against a base type's balance.
	Derived bool

	// BaseTypeID is the end of the alias chain for derived types.
	BaseTypeID string
}

// ResolveRemaining computes the requestable remaining days for a leave type,
// walking the DerivesFrom alias chain. Types that do not require a balance
// resolve as Configured with unlimited (negative-free) semantics handled by
// the caller: Remaining is zero and must be ignored when RequiresBalance is
// false.
func ResolveRemaining(t LeaveType, catalog []LeaveType, balances []Balance, userID string, year int) ResolvedBalance {
	if !t.RequiresBalance {
		return ResolvedBalance{Configured: true}
	}

	own := FindBalance(balances, userID, t.ID, year)
	if own == nil {
		return ResolvedBalance{Derived: t.IsDerived(), BaseTypeID: t.DerivesFrom}
	}

	if !t.IsDerived() {
		return ResolvedBalance{Configured: true, Remaining: own.Remaining()}
	}

	base := FindLeaveType(catalog, t.DerivesFrom)
	if base == nil {
		// Dangling alias: treat as unconfigured rather than falling back
		// to the raw row, which would overstate the cap.
		return ResolvedBalance{Derived: true, BaseTypeID: t.DerivesFrom}
	}

	baseResolved := ResolveRemaining(*base, catalog, balances, userID, year)
	if !baseResolved.Configured {
		return ResolvedBalance{Derived: true, BaseTypeID: base.ID}
	}

	capRemaining := decimal.NewFromInt(int64(t.AnnualCap)).Sub(own.Used)
	remaining := decimal.Min(capRemaining, baseResolved.Remaining)

	return ResolvedBalance{
		Configured: true,
		Remaining:  remaining,
		Derived:    true,
		BaseTypeID: base.ID,
	}
}
