/*
provision.go - Annual balance provisioning

PURPOSE:
  Creates the balance rows for a new entitlement year. Run once per
  organization around the year boundary, typically from the CLI.

PROVISIONING RULES:
  - Every active membership gets one row per balance-tracked leave type.
  - Entitled comes from the catalog: DaysPerYear for plain types, the
    annual cap for derived types.
  - Carry-over moves the positive remainder of the previous year's row
    into the new row when the type allows it. Negative remainders and
    derived types never carry over: a derived row only mirrors usage
    against its base.

IDEMPOTENCY:
  Rows that already exist for the target year are left untouched, so
  re-running after a partial failure only fills the gaps.

SEE ALSO:
  - types.go: Balance, LeaveType
  - cmd/leaved: the provision subcommand
*/
package leave

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// ProvisionReport summarizes one provisioning run.
type ProvisionReport struct {
	Year    int
	Created int
	Skipped int // rows that already existed
}

// ProvisionYear creates the balance rows for the given year across an
// organization's active memberships.
func ProvisionYear(ctx context.Context, stores Stores, orgID string, year int) (ProvisionReport, error) {
	report := ProvisionReport{Year: year}

	org, err := stores.Organizations.GetOrganization(ctx, orgID)
	if err != nil {
		return report, err
	}
	if org == nil {
		return report, fmt.Errorf("organization %s: %w", orgID, ErrNotFound)
	}

	catalog, err := stores.Catalog.ListLeaveTypes(ctx, orgID)
	if err != nil {
		return report, err
	}
	members, err := stores.Memberships.ListMemberships(ctx, orgID)
	if err != nil {
		return report, err
	}

	for _, m := range members {
		if !m.IsActive {
			continue
		}

		existing, err := stores.Balances.ListBalances(ctx, orgID, m.UserID, year)
		if err != nil {
			return report, err
		}
		have := make(map[string]bool, len(existing))
		for _, b := range existing {
			have[b.LeaveTypeID] = true
		}

		previous, err := stores.Balances.ListBalances(ctx, orgID, m.UserID, year-1)
		if err != nil {
			return report, err
		}

		for _, lt := range catalog {
			if !lt.RequiresBalance {
				continue
			}
			if have[lt.ID] {
				report.Skipped++
				continue
			}

			b := Balance{
				UserID:      m.UserID,
				OrgID:       orgID,
				LeaveTypeID: lt.ID,
				Year:        year,
				Entitled:    entitlementFor(lt),
			}
			if lt.CarryOverAllowed && !lt.IsDerived() {
				b.CarryOver = carryOverFrom(previous, m.UserID, lt.ID, year-1)
			}
			if err := stores.Balances.SaveBalance(ctx, b); err != nil {
				return report, err
			}
			report.Created++
		}
	}

	return report, nil
}

func entitlementFor(lt LeaveType) decimal.Decimal {
	if lt.IsDerived() {
		return decimal.NewFromInt(int64(lt.AnnualCap))
	}
	return lt.DaysPerYear
}

func carryOverFrom(previous []Balance, userID, leaveTypeID string, year int) decimal.Decimal {
	b := FindBalance(previous, userID, leaveTypeID, year)
	if b == nil {
		return decimal.Zero
	}
	remaining := b.Remaining()
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}
