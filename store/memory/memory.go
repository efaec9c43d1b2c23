// Package memory provides an in-memory implementation of the leave store
// interfaces for tests and development. Semantics mirror store/sqlite,
// including the conditional UpdateRequest check.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Store struct {
	mu            sync.RWMutex
	organizations map[string]leave.Organization
	teams         map[string]leave.Team
	memberships   map[membershipKey]leave.Membership
	leaveTypes    map[string]leave.LeaveType
	balances      map[balanceKey]leave.Balance
	requests      map[string]leave.Request
	holidays      map[string]leave.Holiday
}

type membershipKey struct {
	UserID string
	OrgID  string
}

type balanceKey struct {
	UserID      string
	LeaveTypeID string
	Year        int
}

func New() *Store {
	return &Store{
		organizations: make(map[string]leave.Organization),
		teams:         make(map[string]leave.Team),
		memberships:   make(map[membershipKey]leave.Membership),
		leaveTypes:    make(map[string]leave.LeaveType),
		balances:      make(map[balanceKey]leave.Balance),
		requests:      make(map[string]leave.Request),
		holidays:      make(map[string]leave.Holiday),
	}
}

// Compile-time checks against the consumer interfaces.
var (
	_ leave.OrganizationStore = (*Store)(nil)
	_ leave.MembershipStore   = (*Store)(nil)
	_ leave.CatalogStore      = (*Store)(nil)
	_ leave.BalanceStore      = (*Store)(nil)
	_ leave.RequestStore      = (*Store)(nil)
	_ leave.HolidayStore      = (*Store)(nil)
)

// =============================================================================
// ORGANIZATIONS / TEAMS / MEMBERSHIPS
// =============================================================================

func (s *Store) SaveOrganization(_ context.Context, org leave.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.organizations[org.ID] = org
	return nil
}

func (s *Store) GetOrganization(_ context.Context, id string) (*leave.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if org, ok := s.organizations[id]; ok {
		return &org, nil
	}
	return nil, nil
}

func (s *Store) SaveTeam(_ context.Context, team leave.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teams[team.ID] = team
	return nil
}

func (s *Store) SaveMembership(_ context.Context, m leave.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberships[membershipKey{UserID: m.UserID, OrgID: m.OrgID}] = m
	return nil
}

func (s *Store) GetMembership(_ context.Context, userID, orgID string) (*leave.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.memberships[membershipKey{UserID: userID, OrgID: orgID}]; ok {
		return &m, nil
	}
	return nil, nil
}

func (s *Store) ListMemberships(_ context.Context, orgID string) ([]leave.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []leave.Membership
	for _, m := range s.memberships {
		if m.OrgID == orgID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// =============================================================================
// CATALOG / BALANCES
// =============================================================================

func (s *Store) SaveLeaveType(_ context.Context, t leave.LeaveType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaveTypes[t.ID] = t
	return nil
}

func (s *Store) ListLeaveTypes(_ context.Context, orgID string) ([]leave.LeaveType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []leave.LeaveType
	for _, t := range s.leaveTypes {
		if t.OrgID == orgID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SaveBalance(_ context.Context, b leave.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[balanceKey{UserID: b.UserID, LeaveTypeID: b.LeaveTypeID, Year: b.Year}] = b
	return nil
}

func (s *Store) ListBalances(_ context.Context, orgID, userID string, year int) ([]leave.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []leave.Balance
	for _, b := range s.balances {
		if b.OrgID == orgID && b.UserID == userID && b.Year == year {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LeaveTypeID < out[j].LeaveTypeID })
	return out, nil
}

// =============================================================================
// REQUESTS
// =============================================================================

func (s *Store) CreateRequest(_ context.Context, r leave.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[r.ID] = r
	return nil
}

func (s *Store) GetRequest(_ context.Context, orgID, id string) (*leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.requests[id]; ok && r.OrgID == orgID {
		return &r, nil
	}
	return nil, nil
}

func (s *Store) ListUserRequests(_ context.Context, orgID, userID string, statuses []leave.RequestStatus) ([]leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []leave.Request
	for _, r := range s.requests {
		if r.OrgID == orgID && r.UserID == userID && matchStatus(r.Status, statuses) {
			out = append(out, r)
		}
	}
	sortRequests(out)
	return out, nil
}

func (s *Store) ListOrgRequests(_ context.Context, orgID string, statuses []leave.RequestStatus) ([]leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []leave.Request
	for _, r := range s.requests {
		if r.OrgID == orgID && matchStatus(r.Status, statuses) {
			out = append(out, r)
		}
	}
	sortRequests(out)
	return out, nil
}

// UpdateRequest applies the optimistic check: the stored row must still
// carry the status and updated-at the caller read.
func (s *Store) UpdateRequest(_ context.Context, r leave.Request, expectStatus leave.RequestStatus, expectUpdatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.requests[r.ID]
	if !ok || stored.OrgID != r.OrgID {
		return leave.ErrNotFound
	}
	if stored.Status != expectStatus || !stored.UpdatedAt.Equal(expectUpdatedAt) {
		return leave.ErrConcurrentModification
	}
	s.requests[r.ID] = r
	return nil
}

func matchStatus(s leave.RequestStatus, statuses []leave.RequestStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, x := range statuses {
		if x == s {
			return true
		}
	}
	return false
}

func sortRequests(rs []leave.Request) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].StartDate.Equal(rs[j].StartDate) {
			return rs[i].StartDate.Before(rs[j].StartDate)
		}
		return rs[i].ID < rs[j].ID
	})
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func (s *Store) SaveHoliday(_ context.Context, h leave.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holidays[h.ID] = h
	return nil
}

func (s *Store) DeleteHoliday(_ context.Context, orgID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.holidays[id]; ok && h.OrgID == orgID {
		delete(s.holidays, id)
	}
	return nil
}

// ListHolidays returns the organization's company holidays plus the global
// and org-scoped national set.
func (s *Store) ListHolidays(_ context.Context, orgID string) ([]leave.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []leave.Holiday
	for _, h := range s.holidays {
		if h.OrgID == orgID || (h.Type == leave.HolidayNational && h.OrgID == "") {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
