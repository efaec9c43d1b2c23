/*
validate.go - Request validation rule table

PURPOSE:
  Evaluates a candidate date range against a leave type, the requester's
  balances, and their existing requests. Produces a flat list of messages:
  error severity blocks submission, warning severity is advisory and rides
  along with an otherwise successful validation.

RULES (all applicable rules run; no short-circuit):

  Code               Severity  Condition
  range_order        error     end < start
  non_working_range  error     working days in range = 0
  advance_notice     warning   start is closer than AdvanceNoticeDays
  max_per_request    error     working days > MaxDaysPerRequest (if set)
  min_per_request    error     working days < MinDaysPerRequest (if set)
  max_consecutive    error     working days > MaxConsecutiveDays
                               (if set and the type disallows splitting)
  balance            error     RequiresBalance and working days > resolved
                               remaining (alias-aware for derived types)
  self_overlap       error     range intersects another pending/approved
                               request of the same user, any leave type

  Day-dependent rules are skipped when the range itself is invalid; there is
  no working-day count to evaluate them against.

BALANCE RULE FOR DERIVED TYPES:
  The sufficiency check runs against the alias-resolved remaining
  (min(cap - own used, base remaining)), never the raw balance row. See
  balance.go.

SELF-OVERLAP FILTER:
  Excludes the request being edited by id AND considers only the
  requester's own requests. This is the stricter of the two historical
  filters and is canonical.

SEE ALSO:
  - calendar: WorkingDays
  - lifecycle.go: turns error messages into ValidationFailedError
*/
package leave

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/calendar"
)

// =============================================================================
// VALIDATION MESSAGES
// =============================================================================

// Severity tags a validation message. Errors block submission; warnings are
// advisory and never block.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationMessage is one outcome of the rule table.
type ValidationMessage struct {
	Severity Severity
	Code     string
	Message  string
}

// Errors filters the messages down to error severity.
func Errors(msgs []ValidationMessage) []ValidationMessage {
	var out []ValidationMessage
	for _, m := range msgs {
		if m.Severity == SeverityError {
			out = append(out, m)
		}
	}
	return out
}

// Warnings filters the messages down to warning severity.
func Warnings(msgs []ValidationMessage) []ValidationMessage {
	var out []ValidationMessage
	for _, m := range msgs {
		if m.Severity == SeverityWarning {
			out = append(out, m)
		}
	}
	return out
}

// =============================================================================
// VALIDATION INPUT
// =============================================================================

// ValidationInput bundles everything the rule table reads. Callers fetch
// current data (catalog, balances, existing requests) before invoking;
// Validate itself performs no I/O.
type ValidationInput struct {
	Start calendar.Date
	End   calendar.Date

	LeaveType LeaveType
	Catalog   []LeaveType // for alias resolution
	Balances  []Balance

	// Existing holds the REQUESTER's own requests; only pending/approved
	// entries participate in the self-overlap rule.
	Existing []Request

	// ExcludeRequestID removes the record being edited from the overlap
	// check. Empty for create.
	ExcludeRequestID string

	UserID string
	Today  calendar.Date

	WorkWeek calendar.WorkWeek
	Holidays calendar.HolidaySet
}

// =============================================================================
// VALIDATE
// =============================================================================

// Validate runs the full rule table and returns every resulting message.
// It never returns an error: an unorderable range is itself a message.
func Validate(in ValidationInput) []ValidationMessage {
	var msgs []ValidationMessage

	days, rangeErr := calendar.WorkingDays(in.Start, in.End, in.WorkWeek, in.Holidays)
	rangeValid := rangeErr == nil

	if !rangeValid {
		msgs = append(msgs, ValidationMessage{
			Severity: SeverityError,
			Code:     "range_order",
			Message:  "end date is before start date",
		})
	}

	if rangeValid && days == 0 {
		msgs = append(msgs, ValidationMessage{
			Severity: SeverityError,
			Code:     "non_working_range",
			Message:  "the selected range contains no working days",
		})
	}

	// Advance notice (warning, never blocks)
	if in.LeaveType.AdvanceNoticeDays > 0 && rangeValid {
		notice := in.Today.DaysUntil(in.Start)
		if notice < in.LeaveType.AdvanceNoticeDays {
			msgs = append(msgs, ValidationMessage{
				Severity: SeverityWarning,
				Code:     "advance_notice",
				Message: fmt.Sprintf("this leave type asks for %d days of advance notice",
					in.LeaveType.AdvanceNoticeDays),
			})
		}
	}

	if rangeValid && in.LeaveType.MaxDaysPerRequest > 0 && days > in.LeaveType.MaxDaysPerRequest {
		msgs = append(msgs, ValidationMessage{
			Severity: SeverityError,
			Code:     "max_per_request",
			Message: fmt.Sprintf("request spans %d working days; the maximum per request is %d",
				days, in.LeaveType.MaxDaysPerRequest),
		})
	}

	if rangeValid && in.LeaveType.MinDaysPerRequest > 0 && days < in.LeaveType.MinDaysPerRequest {
		msgs = append(msgs, ValidationMessage{
			Severity: SeverityError,
			Code:     "min_per_request",
			Message: fmt.Sprintf("request spans %d working days; the minimum per request is %d",
				days, in.LeaveType.MinDaysPerRequest),
		})
	}

	if rangeValid && !in.LeaveType.CanBeSplit && in.LeaveType.MaxConsecutiveDays > 0 &&
		days > in.LeaveType.MaxConsecutiveDays {
		msgs = append(msgs, ValidationMessage{
			Severity: SeverityError,
			Code:     "max_consecutive",
			Message: fmt.Sprintf("request spans %d working days; at most %d consecutive days are allowed",
				days, in.LeaveType.MaxConsecutiveDays),
		})
	}

	// Balance sufficiency against the resolved (alias-aware) remaining
	if rangeValid && in.LeaveType.RequiresBalance {
		resolved := ResolveRemaining(in.LeaveType, in.Catalog, in.Balances, in.UserID, in.Start.Year)
		switch {
		case !resolved.Configured:
			msgs = append(msgs, ValidationMessage{
				Severity: SeverityError,
				Code:     "balance",
				Message:  fmt.Sprintf("no balance configured for %d", in.Start.Year),
			})
		case decimal.NewFromInt(int64(days)).GreaterThan(resolved.Remaining):
			msgs = append(msgs, ValidationMessage{
				Severity: SeverityError,
				Code:     "balance",
				Message: fmt.Sprintf("request needs %d days but only %s remain",
					days, resolved.Remaining.String()),
			})
		}
	}

	// Self-overlap: any pending/approved request of the same user, any type
	if rangeValid {
		for _, r := range in.Existing {
			if r.ID == in.ExcludeRequestID {
				continue
			}
			if r.UserID != in.UserID {
				continue
			}
			if !r.IsOpen() {
				continue
			}
			if calendar.Overlaps(in.Start, in.End, r.StartDate, r.EndDate) {
				msgs = append(msgs, ValidationMessage{
					Severity: SeverityError,
					Code:     "self_overlap",
					Message: fmt.Sprintf("range overlaps an existing %s request (%s to %s)",
						r.Status, r.StartDate, r.EndDate),
				})
				break
			}
		}
	}

	return msgs
}

// HasErrors reports whether any message is of error severity.
func HasErrors(msgs []ValidationMessage) bool {
	for _, m := range msgs {
		if m.Severity == SeverityError {
			return true
		}
	}
	return false
}
