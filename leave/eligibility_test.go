package leave_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/leave"
)

func TestApplicableLeaveTypes_FiltersByOrgAndRules(t *testing.T) {
	annual := annualType()
	onDemand := onDemandType()
	foreign := annualType()
	foreign.ID = "lt-foreign"
	foreign.OrgID = "org-2"

	managerOnly := leave.LeaveType{
		ID:              "lt-mgr",
		OrgID:           "org-1",
		Name:            "Management Offsite",
		Category:        leave.CategoryAnnual,
		RequiresBalance: false,
		SpecialRules: leave.SpecialRules{
			RestrictedToRoles: []leave.Role{leave.RoleManager, leave.RoleAdmin},
		},
	}
	teamOnly := leave.LeaveType{
		ID:              "lt-team",
		OrgID:           "org-1",
		Name:            "Field Rotation",
		Category:        leave.CategoryUnpaid,
		RequiresBalance: false,
		SpecialRules: leave.SpecialRules{
			RestrictedToTeams: []string{"team-ops"},
		},
	}

	catalog := []leave.LeaveType{annual, onDemand, foreign, managerOnly, teamOnly}
	balances := []leave.Balance{
		balanceRow("emp-1", "lt-annual", 2025, 20, 0),
		balanceRow("emp-1", "lt-ondemand", 2025, 4, 0),
	}

	t.Run("employee outside restricted team", func(t *testing.T) {
		m := member("emp-1", leave.RoleEmployee, "team-1")
		got := leave.ApplicableLeaveTypes(m, catalog, balances, 2025)

		ids := typeIDs(got)
		assert.ElementsMatch(t, []string{"lt-annual", "lt-ondemand"}, ids)
	})

	t.Run("manager in the restricted team", func(t *testing.T) {
		m := member("mgr-1", leave.RoleManager, "team-ops")
		// Manager has no balance rows, so balance-backed types drop out.
		got := leave.ApplicableLeaveTypes(m, catalog, nil, 2025)

		ids := typeIDs(got)
		assert.ElementsMatch(t, []string{"lt-mgr", "lt-team"}, ids)
	})

	t.Run("inactive membership gets nothing", func(t *testing.T) {
		m := member("emp-1", leave.RoleEmployee, "team-1")
		m.IsActive = false
		got := leave.ApplicableLeaveTypes(m, catalog, balances, 2025)
		assert.Empty(t, got)
	})

	t.Run("missing balance row filters the type out", func(t *testing.T) {
		m := member("emp-1", leave.RoleEmployee, "team-1")
		got := leave.ApplicableLeaveTypes(m, catalog, balances, 2026)
		assert.Empty(t, typeIDs(got), "no rows provisioned for 2026")
	})
}

func typeIDs(types []leave.LeaveType) []string {
	ids := make([]string, 0, len(types))
	for _, t := range types {
		ids = append(ids, t.ID)
	}
	return ids
}

func TestResolveRemaining_PlainType(t *testing.T) {
	annual := annualType()
	balances := []leave.Balance{balanceRow("emp-1", "lt-annual", 2025, 20, 7)}

	r := leave.ResolveRemaining(annual, []leave.LeaveType{annual}, balances, "emp-1", 2025)
	require.True(t, r.Configured)
	assert.False(t, r.Derived)
	assert.Equal(t, "13", r.Remaining.String())
}

func TestResolveRemaining_CarryOverCounts(t *testing.T) {
	annual := annualType()
	b := balanceRow("emp-1", "lt-annual", 2025, 20, 7)
	b.CarryOver = dec(5)

	r := leave.ResolveRemaining(annual, []leave.LeaveType{annual}, []leave.Balance{b}, "emp-1", 2025)
	require.True(t, r.Configured)
	assert.Equal(t, "18", r.Remaining.String())
}

func TestResolveRemaining_DerivedType(t *testing.T) {
	annual := annualType()
	onDemand := onDemandType()
	catalog := []leave.LeaveType{annual, onDemand}

	tests := []struct {
		name          string
		annualUsed    int64
		onDemandUsed  int64
		wantRemaining string
	}{
		{"fresh year is cap-bound", 0, 0, "4"},
		{"own usage eats the cap", 0, 3, "1"},
		{"base exhaustion wins when lower", 18, 0, "2"},
		{"both exhausted", 20, 4, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			balances := []leave.Balance{
				balanceRow("emp-1", "lt-annual", 2025, 20, tt.annualUsed),
				balanceRow("emp-1", "lt-ondemand", 2025, 4, tt.onDemandUsed),
			}
			r := leave.ResolveRemaining(onDemand, catalog, balances, "emp-1", 2025)
			require.True(t, r.Configured)
			assert.True(t, r.Derived)
			assert.Equal(t, "lt-annual", r.BaseTypeID)
			assert.Equal(t, tt.wantRemaining, r.Remaining.String())
		})
	}
}

func TestResolveRemaining_DanglingAlias(t *testing.T) {
	// The alias target is missing from the catalog: treat as unconfigured
	// rather than overstating the cap with the raw row.
	onDemand := onDemandType()
	balances := []leave.Balance{balanceRow("emp-1", "lt-ondemand", 2025, 4, 0)}

	r := leave.ResolveRemaining(onDemand, []leave.LeaveType{onDemand}, balances, "emp-1", 2025)
	assert.False(t, r.Configured)
}

func TestLeaveTypeDisablement(t *testing.T) {
	annual := annualType()
	onDemand := onDemandType()
	catalog := []leave.LeaveType{annual, onDemand}

	t.Run("no balance row", func(t *testing.T) {
		d := leave.LeaveTypeDisablement(annual, catalog, nil, "emp-1", 2025)
		require.True(t, d.Disabled)
		assert.Contains(t, d.Reason, "2025")
	})

	t.Run("exhausted balance", func(t *testing.T) {
		balances := []leave.Balance{balanceRow("emp-1", "lt-annual", 2025, 20, 20)}
		d := leave.LeaveTypeDisablement(annual, catalog, balances, "emp-1", 2025)
		require.True(t, d.Disabled)
		assert.Equal(t, "balance exhausted", d.Reason)
	})

	t.Run("derived disabled through base", func(t *testing.T) {
		balances := []leave.Balance{
			balanceRow("emp-1", "lt-annual", 2025, 20, 20),
			balanceRow("emp-1", "lt-ondemand", 2025, 4, 0),
		}
		d := leave.LeaveTypeDisablement(onDemand, catalog, balances, "emp-1", 2025)
		assert.True(t, d.Disabled, "own row untouched, but the base pool is empty")
	})

	t.Run("no balance tracking never disables", func(t *testing.T) {
		unpaid := leave.LeaveType{ID: "lt-unpaid", OrgID: "org-1", RequiresBalance: false}
		d := leave.LeaveTypeDisablement(unpaid, catalog, nil, "emp-1", 2025)
		assert.False(t, d.Disabled)
	})
}

func TestFindOverlapping(t *testing.T) {
	memberships := []leave.Membership{
		member("emp-1", leave.RoleEmployee, "team-1"),
		member("emp-2", leave.RoleEmployee, "team-1"),
		member("emp-3", leave.RoleEmployee, "team-1"),
	}
	memberships[1].Name = "Dana Fel"
	catalog := []leave.LeaveType{annualType()}

	requests := []leave.Request{
		{
			ID: "r-mine", UserID: "emp-1", OrgID: "org-1", LeaveTypeID: "lt-annual",
			StartDate: date(2025, time.July, 7), EndDate: date(2025, time.July, 11),
			Status: leave.StatusApproved,
		},
		{
			ID: "r-dana", UserID: "emp-2", OrgID: "org-1", LeaveTypeID: "lt-annual",
			StartDate: date(2025, time.July, 9), EndDate: date(2025, time.July, 15),
			Status: leave.StatusPending,
		},
		{
			ID: "r-cancelled", UserID: "emp-3", OrgID: "org-1", LeaveTypeID: "lt-annual",
			StartDate: date(2025, time.July, 7), EndDate: date(2025, time.July, 11),
			Status: leave.StatusCancelled,
		},
		{
			ID: "r-later", UserID: "emp-3", OrgID: "org-1", LeaveTypeID: "lt-annual",
			StartDate: date(2025, time.August, 4), EndDate: date(2025, time.August, 8),
			Status: leave.StatusApproved,
		},
	}

	got := leave.FindOverlapping(
		date(2025, time.July, 10), date(2025, time.July, 14),
		"emp-1", "", requests, memberships, catalog)

	// Own request excluded, cancelled excluded, disjoint excluded.
	require.Len(t, got, 1)
	assert.Equal(t, "r-dana", got[0].RequestID)
	assert.Equal(t, "Dana Fel", got[0].UserName)
	assert.Equal(t, "Annual Leave", got[0].LeaveTypeName)
}

func TestFindOverlapping_FallsBackToRawIDs(t *testing.T) {
	requests := []leave.Request{{
		ID: "r-1", UserID: "ghost", OrgID: "org-1", LeaveTypeID: "lt-gone",
		StartDate: date(2025, time.July, 9), EndDate: date(2025, time.July, 10),
		Status: leave.StatusPending,
	}}

	got := leave.FindOverlapping(
		date(2025, time.July, 10), date(2025, time.July, 14),
		"someone-else", "", requests, nil, nil)

	require.Len(t, got, 1)
	assert.Equal(t, "ghost", got[0].UserName)
	assert.Equal(t, "lt-gone", got[0].LeaveTypeName)
}

func TestFindOverlapping_ExcludesEditedRequest(t *testing.T) {
	requests := []leave.Request{{
		ID: "r-editing", UserID: "emp-2", OrgID: "org-1", LeaveTypeID: "lt-annual",
		StartDate: date(2025, time.July, 9), EndDate: date(2025, time.July, 10),
		Status: leave.StatusPending,
	}}

	got := leave.FindOverlapping(
		date(2025, time.July, 9), date(2025, time.July, 10),
		"emp-1", "r-editing", requests, nil, nil)
	assert.Empty(t, got)
}
