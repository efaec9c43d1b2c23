/*
eligibility.go - Which leave types a member may request

PURPOSE:
  Filters the organization's leave-type catalog down to what a specific
  membership may request, and explains why a surviving type is currently
  disabled (no balance configured vs balance exhausted). The filter removes
  types the member can never request; disablement annotates types the member
  could request once their balance allows it.

FILTER vs DISABLEMENT:
  - Filtered out: wrong organization, role/team restriction not satisfied,
    required balance row missing for the year.
  - Disabled (still listed): required balance resolves to <= 0 remaining.

SEE ALSO:
  - balance.go: ResolveRemaining (alias-aware)
  - api/handlers.go: renders the annotated catalog
*/
package leave

import "fmt"

// ApplicableLeaveTypes returns the subset of catalog a member may request:
// types of the member's organization whose special rules the member
// satisfies, and whose required balance row exists for the year.
func ApplicableLeaveTypes(m Membership, catalog []LeaveType, balances []Balance, year int) []LeaveType {
	var out []LeaveType
	for _, t := range catalog {
		if t.OrgID != m.OrgID {
			continue
		}
		if !m.IsActive {
			continue
		}
		if !satisfiesSpecialRules(m, t.SpecialRules) {
			continue
		}
		if t.RequiresBalance && missingBalanceRow(t, balances, m.UserID, year) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// satisfiesSpecialRules checks role and team restrictions from the type's
// policy metadata.
func satisfiesSpecialRules(m Membership, rules SpecialRules) bool {
	if len(rules.RestrictedToRoles) > 0 {
		ok := false
		for _, r := range rules.RestrictedToRoles {
			if m.Role == r {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(rules.RestrictedToTeams) > 0 {
		ok := false
		for _, id := range rules.RestrictedToTeams {
			if m.TeamID == id {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// missingBalanceRow reports whether the type's OWN balance row is absent.
// Derived types additionally need their base row, but that distinction is
// surfaced through disablement, not the filter.
func missingBalanceRow(t LeaveType, balances []Balance, userID string, year int) bool {
	return FindBalance(balances, userID, t.ID, year) == nil
}

// Disablement explains why a listed leave type cannot be requested right now.
// The reason is user-facing.
type Disablement struct {
	Disabled bool
	Reason   string
}

// LeaveTypeDisablement decides whether a type is currently requestable for
// a user. A type is disabled when it requires a balance and either no
// balance row is configured or the resolved remaining days (alias-aware for
// derived types) is zero or below.
func LeaveTypeDisablement(t LeaveType, catalog []LeaveType, balances []Balance, userID string, year int) Disablement {
	if !t.RequiresBalance {
		return Disablement{}
	}

	resolved := ResolveRemaining(t, catalog, balances, userID, year)
	if !resolved.Configured {
		return Disablement{
			Disabled: true,
			Reason:   fmt.Sprintf("no balance configured for %d", year),
		}
	}
	if !resolved.Remaining.IsPositive() {
		return Disablement{
			Disabled: true,
			Reason:   "balance exhausted",
		}
	}
	return Disablement{}
}
