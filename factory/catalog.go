/*
Package factory provides JSON to Go leave-type catalog conversion.

PURPOSE:
  Converts JSON leave-type definitions into leave.LeaveType values. This
  enables catalog configuration without code changes - HR can define an
  organization's leave types in JSON, and the factory creates the proper
  Go structs.

WHY JSON?
  - Non-developers can modify the catalog
  - Easy integration with admin UI
  - Version control for catalog definitions
  - Database storage of catalog configs

JSON SCHEMA:
  {
    "id": "annual",
    "name": "Annual Leave",
    "category": "annual",
    "is_paid": true,
    "requires_balance": true,
    "days_per_year": "26",
    "max_days_per_request": 30,
    "advance_notice_days": 14,
    "can_be_split": true,
    "carry_over_allowed": true,
    "derives_from": "",
    "annual_cap": 0,
    "special_rules": {
      "restricted_to_roles": ["manager", "admin"]
    }
  }

KEY FEATURES:
  - Validates structure and the derived-type alias (DerivesFrom must name
    another entry in the same catalog, with a positive cap)
  - Sets sensible defaults (splittable, paid, balance-backed)
  - Ships a default demo catalog for seeding

USAGE:
  f := factory.NewCatalogFactory()
  types, err := f.ParseCatalog(orgID, jsonString)

  // Or start from the demo preset
  types := factory.DefaultCatalog(orgID)

SEE ALSO:
  - leave/types.go: LeaveType definition
  - cmd/leaved: seed command feeding the store from this factory
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// LeaveTypeJSON is the JSON representation of one catalog entry.
type LeaveTypeJSON struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`

	IsPaid          *bool  `json:"is_paid,omitempty"`          // default true
	RequiresBalance *bool  `json:"requires_balance,omitempty"` // default true
	DaysPerYear     string `json:"days_per_year,omitempty"`

	MinDaysPerRequest  int `json:"min_days_per_request,omitempty"`
	MaxDaysPerRequest  int `json:"max_days_per_request,omitempty"`
	AdvanceNoticeDays  int `json:"advance_notice_days,omitempty"`
	MaxConsecutiveDays int `json:"max_consecutive_days,omitempty"`

	CanBeSplit       *bool `json:"can_be_split,omitempty"` // default true
	CarryOverAllowed bool  `json:"carry_over_allowed,omitempty"`

	DerivesFrom string `json:"derives_from,omitempty"`
	AnnualCap   int    `json:"annual_cap,omitempty"`

	SpecialRules *SpecialRulesJSON `json:"special_rules,omitempty"`
}

// SpecialRulesJSON restricts who may request the type.
type SpecialRulesJSON struct {
	RestrictedToRoles []string `json:"restricted_to_roles,omitempty"`
	RestrictedToTeams []string `json:"restricted_to_teams,omitempty"`
}

// CatalogJSON is a whole organization's catalog.
type CatalogJSON struct {
	LeaveTypes []LeaveTypeJSON `json:"leave_types"`
}

// =============================================================================
// FACTORY
// =============================================================================

// CatalogFactory converts JSON catalogs into leave types.
type CatalogFactory struct{}

// NewCatalogFactory creates a catalog factory.
func NewCatalogFactory() *CatalogFactory {
	return &CatalogFactory{}
}

// ParseCatalog parses a complete catalog document for one organization.
func (f *CatalogFactory) ParseCatalog(orgID, jsonStr string) ([]leave.LeaveType, error) {
	var doc CatalogJSON
	if err := json.Unmarshal([]byte(jsonStr), &doc); err != nil {
		return nil, fmt.Errorf("invalid catalog JSON: %w", err)
	}
	if len(doc.LeaveTypes) == 0 {
		return nil, fmt.Errorf("catalog defines no leave types")
	}

	types := make([]leave.LeaveType, 0, len(doc.LeaveTypes))
	seen := make(map[string]bool, len(doc.LeaveTypes))
	for i, entry := range doc.LeaveTypes {
		t, err := f.convert(orgID, entry)
		if err != nil {
			return nil, fmt.Errorf("leave type %d (%s): %w", i, entry.ID, err)
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("duplicate leave type id %q", t.ID)
		}
		seen[t.ID] = true
		types = append(types, t)
	}

	if err := validateAliases(types); err != nil {
		return nil, err
	}
	return types, nil
}

// ParseLeaveType parses a single entry; alias targets are not checked.
func (f *CatalogFactory) ParseLeaveType(orgID, jsonStr string) (leave.LeaveType, error) {
	var entry LeaveTypeJSON
	if err := json.Unmarshal([]byte(jsonStr), &entry); err != nil {
		return leave.LeaveType{}, fmt.Errorf("invalid leave type JSON: %w", err)
	}
	return f.convert(orgID, entry)
}

func (f *CatalogFactory) convert(orgID string, entry LeaveTypeJSON) (leave.LeaveType, error) {
	if entry.ID == "" {
		return leave.LeaveType{}, fmt.Errorf("id is required")
	}
	if entry.Name == "" {
		return leave.LeaveType{}, fmt.Errorf("name is required")
	}

	category := leave.Category(entry.Category)
	switch category {
	case leave.CategoryAnnual, leave.CategorySick, leave.CategoryParental,
		leave.CategoryEmergency, leave.CategoryUnpaid, leave.CategoryOnDemand:
	case "":
		return leave.LeaveType{}, fmt.Errorf("category is required")
	default:
		return leave.LeaveType{}, fmt.Errorf("unknown category %q", entry.Category)
	}

	perYear := decimal.Zero
	if entry.DaysPerYear != "" {
		var err error
		perYear, err = decimal.NewFromString(entry.DaysPerYear)
		if err != nil {
			return leave.LeaveType{}, fmt.Errorf("invalid days_per_year %q: %w", entry.DaysPerYear, err)
		}
		if perYear.IsNegative() {
			return leave.LeaveType{}, fmt.Errorf("days_per_year must not be negative")
		}
	}

	if entry.DerivesFrom != "" && entry.AnnualCap <= 0 {
		return leave.LeaveType{}, fmt.Errorf("a derived type needs a positive annual_cap")
	}
	if entry.DerivesFrom == entry.ID && entry.DerivesFrom != "" {
		return leave.LeaveType{}, fmt.Errorf("a type cannot derive from itself")
	}
	if entry.MinDaysPerRequest < 0 || entry.MaxDaysPerRequest < 0 ||
		entry.AdvanceNoticeDays < 0 || entry.MaxConsecutiveDays < 0 {
		return leave.LeaveType{}, fmt.Errorf("per-request limits must not be negative")
	}
	if entry.MinDaysPerRequest > 0 && entry.MaxDaysPerRequest > 0 &&
		entry.MinDaysPerRequest > entry.MaxDaysPerRequest {
		return leave.LeaveType{}, fmt.Errorf("min_days_per_request exceeds max_days_per_request")
	}

	t := leave.LeaveType{
		ID:                 entry.ID,
		OrgID:              orgID,
		Name:               entry.Name,
		Category:           category,
		IsPaid:             boolDefault(entry.IsPaid, true),
		RequiresBalance:    boolDefault(entry.RequiresBalance, true),
		DaysPerYear:        perYear,
		MinDaysPerRequest:  entry.MinDaysPerRequest,
		MaxDaysPerRequest:  entry.MaxDaysPerRequest,
		AdvanceNoticeDays:  entry.AdvanceNoticeDays,
		MaxConsecutiveDays: entry.MaxConsecutiveDays,
		CanBeSplit:         boolDefault(entry.CanBeSplit, true),
		CarryOverAllowed:   entry.CarryOverAllowed,
		DerivesFrom:        entry.DerivesFrom,
		AnnualCap:          entry.AnnualCap,
	}

	if entry.SpecialRules != nil {
		for _, r := range entry.SpecialRules.RestrictedToRoles {
			role := leave.Role(r)
			switch role {
			case leave.RoleEmployee, leave.RoleManager, leave.RoleAdmin:
				t.SpecialRules.RestrictedToRoles = append(t.SpecialRules.RestrictedToRoles, role)
			default:
				return leave.LeaveType{}, fmt.Errorf("unknown role %q in special rules", r)
			}
		}
		t.SpecialRules.RestrictedToTeams = entry.SpecialRules.RestrictedToTeams
	}

	return t, nil
}

// validateAliases checks every DerivesFrom target exists in the catalog and
// is not itself derived.
func validateAliases(types []leave.LeaveType) error {
	byID := make(map[string]leave.LeaveType, len(types))
	for _, t := range types {
		byID[t.ID] = t
	}
	for _, t := range types {
		if t.DerivesFrom == "" {
			continue
		}
		base, ok := byID[t.DerivesFrom]
		if !ok {
			return fmt.Errorf("leave type %q derives from unknown type %q", t.ID, t.DerivesFrom)
		}
		if base.IsDerived() {
			return fmt.Errorf("leave type %q derives from %q, which is itself derived", t.ID, t.DerivesFrom)
		}
		if !base.RequiresBalance {
			return fmt.Errorf("leave type %q derives from %q, which has no balance to draw on", t.ID, t.DerivesFrom)
		}
	}
	return nil
}

func boolDefault(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// =============================================================================
// DEFAULT CATALOG
// =============================================================================

// DefaultCatalogJSON is the demo catalog used by the seed command: a Polish
// statutory-flavored set with annual, on-demand (derived), sick, parental,
// emergency and unpaid leave.
const DefaultCatalogJSON = `{
  "leave_types": [
    {
      "id": "annual",
      "name": "Annual Leave",
      "category": "annual",
      "days_per_year": "26",
      "max_days_per_request": 30,
      "advance_notice_days": 14,
      "carry_over_allowed": true
    },
    {
      "id": "on_demand",
      "name": "On-Demand Leave",
      "category": "on_demand",
      "max_days_per_request": 4,
      "derives_from": "annual",
      "annual_cap": 4
    },
    {
      "id": "sick",
      "name": "Sick Leave",
      "category": "sick",
      "days_per_year": "33",
      "max_consecutive_days": 33,
      "can_be_split": false
    },
    {
      "id": "parental",
      "name": "Parental Leave",
      "category": "parental",
      "requires_balance": false,
      "min_days_per_request": 5
    },
    {
      "id": "emergency",
      "name": "Emergency Leave",
      "category": "emergency",
      "days_per_year": "2",
      "max_days_per_request": 2
    },
    {
      "id": "unpaid",
      "name": "Unpaid Leave",
      "category": "unpaid",
      "is_paid": false,
      "requires_balance": false,
      "advance_notice_days": 7
    }
  ]
}`

// DefaultCatalog parses DefaultCatalogJSON for an organization. Panics only
// if the built-in document is broken, which the factory tests pin down.
func DefaultCatalog(orgID string) []leave.LeaveType {
	types, err := NewCatalogFactory().ParseCatalog(orgID, DefaultCatalogJSON)
	if err != nil {
		panic(fmt.Sprintf("built-in catalog is invalid: %v", err))
	}
	return types
}
