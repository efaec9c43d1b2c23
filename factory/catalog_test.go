package factory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/leave"
)

func TestParseCatalog_Defaults(t *testing.T) {
	f := factory.NewCatalogFactory()

	types, err := f.ParseCatalog("org-1", `{
		"leave_types": [
			{"id": "annual", "name": "Annual Leave", "category": "annual", "days_per_year": "26"}
		]
	}`)
	require.NoError(t, err)
	require.Len(t, types, 1)

	got := types[0]
	assert.Equal(t, "org-1", got.OrgID)
	assert.True(t, got.IsPaid, "paid by default")
	assert.True(t, got.RequiresBalance, "balance-backed by default")
	assert.True(t, got.CanBeSplit, "splittable by default")
	assert.Equal(t, "26", got.DaysPerYear.String())
}

func TestParseCatalog_DerivedAlias(t *testing.T) {
	f := factory.NewCatalogFactory()

	types, err := f.ParseCatalog("org-1", `{
		"leave_types": [
			{"id": "annual", "name": "Annual", "category": "annual", "days_per_year": "26"},
			{"id": "on_demand", "name": "On-Demand", "category": "on_demand",
			 "derives_from": "annual", "annual_cap": 4}
		]
	}`)
	require.NoError(t, err)

	onDemand := leave.FindLeaveType(types, "on_demand")
	require.NotNil(t, onDemand)
	assert.True(t, onDemand.IsDerived())
	assert.Equal(t, "annual", onDemand.DerivesFrom)
	assert.Equal(t, 4, onDemand.AnnualCap)
}

func TestParseCatalog_Rejections(t *testing.T) {
	f := factory.NewCatalogFactory()

	tests := []struct {
		name string
		json string
	}{
		{
			"missing id",
			`{"leave_types": [{"name": "X", "category": "annual"}]}`,
		},
		{
			"unknown category",
			`{"leave_types": [{"id": "x", "name": "X", "category": "sabbatical"}]}`,
		},
		{
			"derived without cap",
			`{"leave_types": [
				{"id": "annual", "name": "A", "category": "annual"},
				{"id": "od", "name": "OD", "category": "on_demand", "derives_from": "annual"}
			]}`,
		},
		{
			"dangling alias",
			`{"leave_types": [
				{"id": "od", "name": "OD", "category": "on_demand", "derives_from": "ghost", "annual_cap": 4}
			]}`,
		},
		{
			"alias onto a derived type",
			`{"leave_types": [
				{"id": "annual", "name": "A", "category": "annual"},
				{"id": "od", "name": "OD", "category": "on_demand", "derives_from": "annual", "annual_cap": 4},
				{"id": "od2", "name": "OD2", "category": "on_demand", "derives_from": "od", "annual_cap": 2}
			]}`,
		},
		{
			"alias onto a balance-less type",
			`{"leave_types": [
				{"id": "unpaid", "name": "U", "category": "unpaid", "requires_balance": false},
				{"id": "od", "name": "OD", "category": "on_demand", "derives_from": "unpaid", "annual_cap": 4}
			]}`,
		},
		{
			"duplicate ids",
			`{"leave_types": [
				{"id": "annual", "name": "A", "category": "annual"},
				{"id": "annual", "name": "B", "category": "annual"}
			]}`,
		},
		{
			"min above max",
			`{"leave_types": [
				{"id": "x", "name": "X", "category": "annual",
				 "min_days_per_request": 10, "max_days_per_request": 5}
			]}`,
		},
		{
			"unknown role restriction",
			`{"leave_types": [
				{"id": "x", "name": "X", "category": "annual",
				 "special_rules": {"restricted_to_roles": ["owner"]}}
			]}`,
		},
		{
			"empty catalog",
			`{"leave_types": []}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ParseCatalog("org-1", tt.json)
			assert.Error(t, err)
		})
	}
}

func TestParseLeaveType_SpecialRules(t *testing.T) {
	f := factory.NewCatalogFactory()

	got, err := f.ParseLeaveType("org-1", `{
		"id": "offsite", "name": "Management Offsite", "category": "annual",
		"requires_balance": false,
		"special_rules": {
			"restricted_to_roles": ["manager", "admin"],
			"restricted_to_teams": ["team-ops"]
		}
	}`)
	require.NoError(t, err)
	assert.Equal(t, []leave.Role{leave.RoleManager, leave.RoleAdmin}, got.SpecialRules.RestrictedToRoles)
	assert.Equal(t, []string{"team-ops"}, got.SpecialRules.RestrictedToTeams)
}

func TestDefaultCatalog(t *testing.T) {
	types := factory.DefaultCatalog("org-1")
	require.NotEmpty(t, types)

	annual := leave.FindLeaveType(types, "annual")
	require.NotNil(t, annual)
	assert.Equal(t, "26", annual.DaysPerYear.String())
	assert.True(t, annual.CarryOverAllowed)

	onDemand := leave.FindLeaveType(types, "on_demand")
	require.NotNil(t, onDemand)
	assert.Equal(t, "annual", onDemand.DerivesFrom)
	assert.Equal(t, 4, onDemand.AnnualCap)

	unpaid := leave.FindLeaveType(types, "unpaid")
	require.NotNil(t, unpaid)
	assert.False(t, unpaid.IsPaid)
	assert.False(t, unpaid.RequiresBalance)
}
