/*
overlap.go - Cross-user overlap advisory

PURPOSE:
  Finds OTHER members whose pending/approved requests intersect a candidate
  range. Purely advisory: overlaps inform the requester that teammates are
  away, they never block submission.

FILTER:
  Excludes the request being edited by id AND every request belonging to
  the requester (the requester's own conflicts are the validator's
  self-overlap rule). This owner+id exclusion is the canonical filter.

SCOPE:
  The function works over whatever request slice the caller passes. Scoping
  (same organization, or narrowed to a manager's team) is the caller's
  responsibility, not this function's.
*/
package leave

import "github.com/warp/leave-engine/calendar"

// OverlapEntry is one advisory hit: enough to render a name, a leave-type
// label, and when the absence ends.
type OverlapEntry struct {
	RequestID     string
	UserID        string
	UserName      string
	LeaveTypeID   string
	LeaveTypeName string
	StartDate     calendar.Date
	EndDate       calendar.Date
	Status        RequestStatus
}

// FindOverlapping returns other users' open requests intersecting
// [start, end]. Requests owned by excludeUserID and the request with
// excludeRequestID are skipped. Names are resolved from memberships and the
// catalog; a missing membership or type falls back to the raw id.
func FindOverlapping(
	start, end calendar.Date,
	excludeUserID, excludeRequestID string,
	requests []Request,
	memberships []Membership,
	catalog []LeaveType,
) []OverlapEntry {
	names := make(map[string]string, len(memberships))
	for _, m := range memberships {
		names[m.UserID] = m.Name
	}
	typeNames := make(map[string]string, len(catalog))
	for _, t := range catalog {
		typeNames[t.ID] = t.Name
	}

	var out []OverlapEntry
	for _, r := range requests {
		if r.ID == excludeRequestID || r.UserID == excludeUserID {
			continue
		}
		if !r.IsOpen() {
			continue
		}
		if !calendar.Overlaps(start, end, r.StartDate, r.EndDate) {
			continue
		}

		entry := OverlapEntry{
			RequestID:     r.ID,
			UserID:        r.UserID,
			UserName:      names[r.UserID],
			LeaveTypeID:   r.LeaveTypeID,
			LeaveTypeName: typeNames[r.LeaveTypeID],
			StartDate:     r.StartDate,
			EndDate:       r.EndDate,
			Status:        r.Status,
		}
		if entry.UserName == "" {
			entry.UserName = r.UserID
		}
		if entry.LeaveTypeName == "" {
			entry.LeaveTypeName = r.LeaveTypeID
		}
		out = append(out, entry)
	}
	return out
}
