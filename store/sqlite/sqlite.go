/*
Package sqlite provides a SQLite-backed implementation of the leave store
interfaces.

PURPOSE:
  Implements every persistence interface the lifecycle controller consumes
  (organizations, teams, memberships, catalog, balances, requests, holidays)
  using SQLite. In production, the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

TENANT SCOPING:
  Every request, balance and membership query carries org_id in its WHERE
  clause. A record belonging to a foreign organization is never returned,
  so cross-tenant access surfaces upstream as "not found" without any
  special casing here.

OPTIMISTIC WRITES:
  UpdateRequest's WHERE clause pins the status and updated_at the caller
  read. Zero rows affected means another actor got there first, reported
  as leave.ErrConcurrentModification. This is what prevents two delegates
  from both acting on a request one of them concurrently cancelled.

KEY TABLES:
  organizations: Tenant records with work week and holiday policy
  memberships:   Per-organization user records carrying the role
  leave_types:   Per-organization catalog, including derived aliases
  balances:      Per (user, type, year) counters
  requests:      Leave requests with review/edit audit columns
  holidays:      Company holidays plus the shared national set

INDEXES:
  Critical indexes for performance:
  - idx_requests_org_dates: Overlap scans over a date window (hot path)
  - idx_requests_org_status: Status-filtered listings
  - idx_balances_org_user_year: Balance lookups per validation pass

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - leave/store.go: Interface definitions and contracts
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/leave"
)

// Store implements all leave storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ leave.OrganizationStore = (*Store)(nil)
	_ leave.MembershipStore   = (*Store)(nil)
	_ leave.CatalogStore      = (*Store)(nil)
	_ leave.BalanceStore      = (*Store)(nil)
	_ leave.RequestStore      = (*Store)(nil)
	_ leave.HolidayStore      = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS organizations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		country TEXT NOT NULL DEFAULT '',
		work_week_json TEXT NOT NULL,
		exclude_public_holidays BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS teams (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL,
		name TEXT NOT NULL,
		manager_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_teams_org ON teams(org_id);

	-- Role lives here, per (user, organization). Never on a user row.
	CREATE TABLE IF NOT EXISTS memberships (
		user_id TEXT NOT NULL,
		org_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		team_id TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		is_default BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL,
		PRIMARY KEY (user_id, org_id)
	);

	CREATE INDEX IF NOT EXISTS idx_memberships_org ON memberships(org_id);
	CREATE INDEX IF NOT EXISTS idx_memberships_team ON memberships(org_id, team_id);

	CREATE TABLE IF NOT EXISTS leave_types (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		is_paid BOOLEAN NOT NULL DEFAULT TRUE,
		requires_balance BOOLEAN NOT NULL DEFAULT TRUE,
		days_per_year TEXT NOT NULL DEFAULT '0',
		min_days_per_request INTEGER NOT NULL DEFAULT 0,
		max_days_per_request INTEGER NOT NULL DEFAULT 0,
		advance_notice_days INTEGER NOT NULL DEFAULT 0,
		max_consecutive_days INTEGER NOT NULL DEFAULT 0,
		can_be_split BOOLEAN NOT NULL DEFAULT TRUE,
		carry_over_allowed BOOLEAN NOT NULL DEFAULT FALSE,
		derives_from TEXT NOT NULL DEFAULT '',
		annual_cap INTEGER NOT NULL DEFAULT 0,
		special_rules_json TEXT NOT NULL DEFAULT '{}'
	);

	CREATE INDEX IF NOT EXISTS idx_leave_types_org ON leave_types(org_id);

	CREATE TABLE IF NOT EXISTS balances (
		user_id TEXT NOT NULL,
		org_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		entitled TEXT NOT NULL DEFAULT '0',
		used TEXT NOT NULL DEFAULT '0',
		carry_over TEXT NOT NULL DEFAULT '0',
		PRIMARY KEY (user_id, leave_type_id, year)
	);

	CREATE INDEX IF NOT EXISTS idx_balances_org_user_year
		ON balances(org_id, user_id, year);

	CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		org_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		days_requested INTEGER NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		reviewed_by TEXT NOT NULL DEFAULT '',
		reviewed_at TEXT,
		review_comment TEXT NOT NULL DEFAULT '',
		edited_by TEXT NOT NULL DEFAULT '',
		edited_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_requests_org_user ON requests(org_id, user_id);
	CREATE INDEX IF NOT EXISTS idx_requests_org_status ON requests(org_id, status);
	CREATE INDEX IF NOT EXISTS idx_requests_org_dates
		ON requests(org_id, start_date, end_date);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'company'
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_org_date ON holidays(org_id, date);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_unique ON holidays(org_id, date, name);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ORGANIZATIONS
// =============================================================================

// SaveOrganization inserts or replaces an organization.
func (s *Store) SaveOrganization(ctx context.Context, org leave.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	weekJSON, err := marshalWorkWeek(org.WorkWeek)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO organizations
		(id, name, country, work_week_json, exclude_public_holidays, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		org.ID, org.Name, org.Country, weekJSON, org.ExcludePublicHolidays,
		formatTime(org.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save organization: %w", err)
	}
	return nil
}

func (s *Store) GetOrganization(ctx context.Context, id string) (*leave.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, country, work_week_json, exclude_public_holidays, created_at
		FROM organizations WHERE id = ?`, id)

	var (
		org       leave.Organization
		weekJSON  string
		createdAt string
	)
	err := row.Scan(&org.ID, &org.Name, &org.Country, &weekJSON,
		&org.ExcludePublicHolidays, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	org.WorkWeek, err = unmarshalWorkWeek(weekJSON)
	if err != nil {
		return nil, err
	}
	org.CreatedAt = parseTime(createdAt)
	return &org, nil
}

// =============================================================================
// TEAMS
// =============================================================================

// SaveTeam inserts or replaces a team. The team's manager, when set, must
// hold a manager or admin membership in the same organization.
func (s *Store) SaveTeam(ctx context.Context, team leave.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if team.ManagerID != "" {
		var role string
		err := s.db.QueryRowContext(ctx,
			`SELECT role FROM memberships WHERE user_id = ? AND org_id = ?`,
			team.ManagerID, team.OrgID).Scan(&role)
		if err == sql.ErrNoRows {
			return fmt.Errorf("team manager %s has no membership in organization %s", team.ManagerID, team.OrgID)
		}
		if err != nil {
			return fmt.Errorf("failed to check team manager: %w", err)
		}
		if leave.Role(role) != leave.RoleManager && leave.Role(role) != leave.RoleAdmin {
			return fmt.Errorf("team manager %s must hold the manager or admin role", team.ManagerID)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO teams (id, org_id, name, manager_id)
		VALUES (?, ?, ?, ?)`,
		team.ID, team.OrgID, team.Name, nullString(team.ManagerID))
	if err != nil {
		return fmt.Errorf("failed to save team: %w", err)
	}
	return nil
}

func (s *Store) ListTeams(ctx context.Context, orgID string) ([]leave.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, org_id, name, COALESCE(manager_id, '')
		FROM teams WHERE org_id = ? ORDER BY name`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var out []leave.Team
	for rows.Next() {
		var t leave.Team
		if err := rows.Scan(&t.ID, &t.OrgID, &t.Name, &t.ManagerID); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// =============================================================================
// MEMBERSHIPS
// =============================================================================

func (s *Store) SaveMembership(ctx context.Context, m leave.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO memberships
		(user_id, org_id, name, role, team_id, is_active, is_default, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.UserID, m.OrgID, m.Name, string(m.Role), nullString(m.TeamID),
		m.IsActive, m.IsDefault, formatTime(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save membership: %w", err)
	}
	return nil
}

func (s *Store) GetMembership(ctx context.Context, userID, orgID string) (*leave.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, org_id, name, role, COALESCE(team_id, ''), is_active, is_default, created_at
		FROM memberships WHERE user_id = ? AND org_id = ?`, userID, orgID)

	m, err := scanMembership(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return m, nil
}

func (s *Store) ListMemberships(ctx context.Context, orgID string) ([]leave.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, org_id, name, role, COALESCE(team_id, ''), is_active, is_default, created_at
		FROM memberships WHERE org_id = ? ORDER BY user_id`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var out []leave.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMembership(r rowScanner) (*leave.Membership, error) {
	var (
		m         leave.Membership
		role      string
		createdAt string
	)
	err := r.Scan(&m.UserID, &m.OrgID, &m.Name, &role, &m.TeamID,
		&m.IsActive, &m.IsDefault, &createdAt)
	if err != nil {
		return nil, err
	}
	m.Role = leave.Role(role)
	m.CreatedAt = parseTime(createdAt)
	return &m, nil
}

// =============================================================================
// LEAVE TYPE CATALOG
// =============================================================================

func (s *Store) SaveLeaveType(ctx context.Context, t leave.LeaveType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rulesJSON, err := json.Marshal(t.SpecialRules)
	if err != nil {
		return fmt.Errorf("failed to encode special rules: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO leave_types
		(id, org_id, name, category, is_paid, requires_balance, days_per_year,
		 min_days_per_request, max_days_per_request, advance_notice_days,
		 max_consecutive_days, can_be_split, carry_over_allowed,
		 derives_from, annual_cap, special_rules_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OrgID, t.Name, string(t.Category), t.IsPaid, t.RequiresBalance,
		t.DaysPerYear.String(), t.MinDaysPerRequest, t.MaxDaysPerRequest,
		t.AdvanceNoticeDays, t.MaxConsecutiveDays, t.CanBeSplit,
		t.CarryOverAllowed, t.DerivesFrom, t.AnnualCap, string(rulesJSON))
	if err != nil {
		return fmt.Errorf("failed to save leave type: %w", err)
	}
	return nil
}

func (s *Store) ListLeaveTypes(ctx context.Context, orgID string) ([]leave.LeaveType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, org_id, name, category, is_paid, requires_balance, days_per_year,
		       min_days_per_request, max_days_per_request, advance_notice_days,
		       max_consecutive_days, can_be_split, carry_over_allowed,
		       derives_from, annual_cap, special_rules_json
		FROM leave_types WHERE org_id = ? ORDER BY name`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list leave types: %w", err)
	}
	defer rows.Close()

	var out []leave.LeaveType
	for rows.Next() {
		var (
			t         leave.LeaveType
			category  string
			perYear   string
			rulesJSON string
		)
		err := rows.Scan(&t.ID, &t.OrgID, &t.Name, &category, &t.IsPaid,
			&t.RequiresBalance, &perYear, &t.MinDaysPerRequest,
			&t.MaxDaysPerRequest, &t.AdvanceNoticeDays, &t.MaxConsecutiveDays,
			&t.CanBeSplit, &t.CarryOverAllowed, &t.DerivesFrom, &t.AnnualCap,
			&rulesJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leave type: %w", err)
		}
		t.Category = leave.Category(category)
		t.DaysPerYear = mustDecimal(perYear)
		if rulesJSON != "" {
			if err := json.Unmarshal([]byte(rulesJSON), &t.SpecialRules); err != nil {
				return nil, fmt.Errorf("failed to decode special rules for %s: %w", t.ID, err)
			}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// =============================================================================
// BALANCES
// =============================================================================

func (s *Store) SaveBalance(ctx context.Context, b leave.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO balances
		(user_id, org_id, leave_type_id, year, entitled, used, carry_over)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.UserID, b.OrgID, b.LeaveTypeID, b.Year,
		b.Entitled.String(), b.Used.String(), b.CarryOver.String())
	if err != nil {
		return fmt.Errorf("failed to save balance: %w", err)
	}
	return nil
}

func (s *Store) ListBalances(ctx context.Context, orgID, userID string, year int) ([]leave.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, org_id, leave_type_id, year, entitled, used, carry_over
		FROM balances WHERE org_id = ? AND user_id = ? AND year = ?
		ORDER BY leave_type_id`, orgID, userID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	defer rows.Close()

	var out []leave.Balance
	for rows.Next() {
		var (
			b         leave.Balance
			entitled  string
			used      string
			carryOver string
		)
		if err := rows.Scan(&b.UserID, &b.OrgID, &b.LeaveTypeID, &b.Year,
			&entitled, &used, &carryOver); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		b.Entitled = mustDecimal(entitled)
		b.Used = mustDecimal(used)
		b.CarryOver = mustDecimal(carryOver)
		out = append(out, b)
	}
	return out, rows.Err()
}

// =============================================================================
// REQUESTS
// =============================================================================

func (s *Store) CreateRequest(ctx context.Context, r leave.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO requests
		(id, user_id, org_id, leave_type_id, start_date, end_date, days_requested,
		 reason, status, created_at, updated_at, reviewed_by, reviewed_at,
		 review_comment, edited_by, edited_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.OrgID, r.LeaveTypeID,
		r.StartDate.String(), r.EndDate.String(), r.DaysRequested,
		r.Reason, string(r.Status), formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
		r.ReviewedBy, formatTimePtr(r.ReviewedAt), r.ReviewComment,
		r.EditedBy, formatTimePtr(r.EditedAt))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return nil
}

func (s *Store) GetRequest(ctx context.Context, orgID, id string) (*leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, requestSelect+` WHERE org_id = ? AND id = ?`, orgID, id)
	r, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return r, nil
}

func (s *Store) ListUserRequests(ctx context.Context, orgID, userID string, statuses []leave.RequestStatus) ([]leave.Request, error) {
	query := requestSelect + ` WHERE org_id = ? AND user_id = ?`
	args := []any{orgID, userID}
	query, args = appendStatusFilter(query, args, statuses)
	query += ` ORDER BY start_date ASC, id ASC`
	return s.queryRequests(ctx, query, args...)
}

func (s *Store) ListOrgRequests(ctx context.Context, orgID string, statuses []leave.RequestStatus) ([]leave.Request, error) {
	query := requestSelect + ` WHERE org_id = ?`
	args := []any{orgID}
	query, args = appendStatusFilter(query, args, statuses)
	query += ` ORDER BY start_date ASC, id ASC`
	return s.queryRequests(ctx, query, args...)
}

// UpdateRequest writes conditionally: the row must still carry the status
// and updated_at the caller read, otherwise nothing is written and
// leave.ErrConcurrentModification is returned.
func (s *Store) UpdateRequest(ctx context.Context, r leave.Request, expectStatus leave.RequestStatus, expectUpdatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE requests SET
			leave_type_id = ?, start_date = ?, end_date = ?, days_requested = ?,
			reason = ?, status = ?, updated_at = ?,
			reviewed_by = ?, reviewed_at = ?, review_comment = ?,
			edited_by = ?, edited_at = ?
		WHERE id = ? AND org_id = ? AND status = ? AND updated_at = ?`,
		r.LeaveTypeID, r.StartDate.String(), r.EndDate.String(), r.DaysRequested,
		r.Reason, string(r.Status), formatTime(r.UpdatedAt),
		r.ReviewedBy, formatTimePtr(r.ReviewedAt), r.ReviewComment,
		r.EditedBy, formatTimePtr(r.EditedAt),
		r.ID, r.OrgID, string(expectStatus), formatTime(expectUpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to update request: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		// Either the row is gone or its status/updated_at moved underneath
		// us; distinguish so absence stays a NotFound.
		var exists int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM requests WHERE id = ? AND org_id = ?`,
			r.ID, r.OrgID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check request existence: %w", err)
		}
		if exists == 0 {
			return leave.ErrNotFound
		}
		return leave.ErrConcurrentModification
	}
	return nil
}

const requestSelect = `
	SELECT id, user_id, org_id, leave_type_id, start_date, end_date,
	       days_requested, reason, status, created_at, updated_at,
	       reviewed_by, reviewed_at, review_comment, edited_by, edited_at
	FROM requests`

func appendStatusFilter(query string, args []any, statuses []leave.RequestStatus) (string, []any) {
	if len(statuses) == 0 {
		return query, args
	}
	placeholders := make([]string, len(statuses))
	for i, st := range statuses {
		placeholders[i] = "?"
		args = append(args, string(st))
	}
	return query + ` AND status IN (` + strings.Join(placeholders, ",") + `)`, args
}

func (s *Store) queryRequests(ctx context.Context, query string, args ...any) ([]leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var out []leave.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanRequest(row rowScanner) (*leave.Request, error) {
	var (
		r          leave.Request
		startDate  string
		endDate    string
		status     string
		createdAt  string
		updatedAt  string
		reviewedAt sql.NullString
		editedAt   sql.NullString
	)
	err := row.Scan(&r.ID, &r.UserID, &r.OrgID, &r.LeaveTypeID,
		&startDate, &endDate, &r.DaysRequested, &r.Reason, &status,
		&createdAt, &updatedAt, &r.ReviewedBy, &reviewedAt, &r.ReviewComment,
		&r.EditedBy, &editedAt)
	if err != nil {
		return nil, err
	}

	r.StartDate, err = calendar.ParseDate(startDate)
	if err != nil {
		return nil, fmt.Errorf("bad start_date for request %s: %w", r.ID, err)
	}
	r.EndDate, err = calendar.ParseDate(endDate)
	if err != nil {
		return nil, fmt.Errorf("bad end_date for request %s: %w", r.ID, err)
	}
	r.Status = leave.RequestStatus(status)
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	r.ReviewedAt = parseTimePtr(reviewedAt)
	r.EditedAt = parseTimePtr(editedAt)
	return &r, nil
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func (s *Store) SaveHoliday(ctx context.Context, h leave.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO holidays (id, org_id, date, name, type)
		VALUES (?, ?, ?, ?, ?)`,
		h.ID, h.OrgID, h.Date.String(), h.Name, string(h.Type))
	if err != nil {
		return fmt.Errorf("failed to save holiday: %w", err)
	}
	return nil
}

func (s *Store) DeleteHoliday(ctx context.Context, orgID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM holidays WHERE id = ? AND org_id = ?`, id, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete holiday: %w", err)
	}
	return nil
}

// ListHolidays returns the organization's own holidays plus the shared
// national set (stored with an empty org_id).
func (s *Store) ListHolidays(ctx context.Context, orgID string) ([]leave.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, org_id, date, name, type FROM holidays
		WHERE org_id = ? OR (org_id = '' AND type = 'national')
		ORDER BY date`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}
	defer rows.Close()

	var out []leave.Holiday
	for rows.Next() {
		var (
			h     leave.Holiday
			date  string
			hType string
		)
		if err := rows.Scan(&h.ID, &h.OrgID, &date, &h.Name, &hType); err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		h.Date, err = calendar.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("bad date for holiday %s: %w", h.ID, err)
		}
		h.Type = leave.HolidayType(hType)
		out = append(out, h)
	}
	return out, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func marshalWorkWeek(w calendar.WorkWeek) (string, error) {
	var days []int
	for _, d := range w.Weekdays() {
		days = append(days, int(d))
	}
	b, err := json.Marshal(days)
	if err != nil {
		return "", fmt.Errorf("failed to encode work week: %w", err)
	}
	return string(b), nil
}

func unmarshalWorkWeek(s string) (calendar.WorkWeek, error) {
	var days []int
	if err := json.Unmarshal([]byte(s), &days); err != nil {
		return calendar.WorkWeek{}, fmt.Errorf("failed to decode work week: %w", err)
	}
	weekdays := make([]time.Weekday, len(days))
	for i, d := range days {
		weekdays[i] = time.Weekday(d)
	}
	return calendar.NewWorkWeek(weekdays...), nil
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func parseTimePtr(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
