/*
store.go - Persistence interfaces consumed by the lifecycle controller

PURPOSE:
  The engine does not choose a database. It declares the narrow read/write
  surface it needs; store/sqlite and store/memory implement it. All reads
  are scoped by organization so a foreign tenant's records are simply never
  returned.

CONTRACTS:
  - Get* methods return (nil, nil) when the record is absent. The caller
    decides what absence means (usually ErrNotFound).
  - UpdateRequest is conditional: the write must fail with
    ErrConcurrentModification when the stored status or updated-at no
    longer matches what the caller read. This is the only concurrency
    discipline in the system: read fresh, validate against what you read,
    write conditionally.
*/
package leave

import (
	"context"
	"time"
)

// OrganizationStore reads tenant configuration.
type OrganizationStore interface {
	GetOrganization(ctx context.Context, id string) (*Organization, error)
}

// MembershipStore resolves (user, organization) bindings.
type MembershipStore interface {
	// GetMembership returns the membership for (userID, orgID), or nil.
	GetMembership(ctx context.Context, userID, orgID string) (*Membership, error)

	// ListMemberships returns all memberships of an organization,
	// including inactive ones.
	ListMemberships(ctx context.Context, orgID string) ([]Membership, error)
}

// CatalogStore reads the per-organization leave-type catalog.
type CatalogStore interface {
	ListLeaveTypes(ctx context.Context, orgID string) ([]LeaveType, error)
}

// BalanceStore reads and writes (user, leave type, year) balance rows.
type BalanceStore interface {
	// ListBalances returns a user's balance rows for one year.
	ListBalances(ctx context.Context, orgID, userID string, year int) ([]Balance, error)

	// SaveBalance inserts or replaces one balance row.
	SaveBalance(ctx context.Context, b Balance) error
}

// RequestStore reads and writes leave requests. Every method is scoped by
// organization; a request of another tenant behaves as if it did not exist.
type RequestStore interface {
	// GetRequest returns the request with the given id in the given
	// organization, or nil.
	GetRequest(ctx context.Context, orgID, id string) (*Request, error)

	// ListUserRequests returns one user's requests. statuses narrows the
	// result; empty means all statuses.
	ListUserRequests(ctx context.Context, orgID, userID string, statuses []RequestStatus) ([]Request, error)

	// ListOrgRequests returns all requests of an organization, optionally
	// narrowed by status.
	ListOrgRequests(ctx context.Context, orgID string, statuses []RequestStatus) ([]Request, error)

	// CreateRequest persists a new request.
	CreateRequest(ctx context.Context, r Request) error

	// UpdateRequest persists a mutation conditionally: the row must still
	// carry expectStatus and expectUpdatedAt, otherwise the store returns
	// ErrConcurrentModification without writing.
	UpdateRequest(ctx context.Context, r Request, expectStatus RequestStatus, expectUpdatedAt time.Time) error
}

// HolidayStore reads the holiday calendar relevant to one organization
// (its company holidays plus the global/national set).
type HolidayStore interface {
	ListHolidays(ctx context.Context, orgID string) ([]Holiday, error)
}

// Stores bundles every persistence dependency the controller needs.
type Stores struct {
	Organizations OrganizationStore
	Memberships   MembershipStore
	Catalog       CatalogStore
	Balances      BalanceStore
	Requests      RequestStore
	Holidays      HolidayStore
}
