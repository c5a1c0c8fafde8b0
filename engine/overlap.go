/*
overlap.go - Date-range conflict detection

PURPOSE:
  A user may not hold two active requests whose date ranges touch.
  Conflict detection runs at submission time against the user's current
  active set; the first conflicting request found is reported with its
  dates and status so the caller can explain the rejection.

ACTIVE SET:
  Pending, Awaiting_Admin_Approval, and Approved requests all hold
  their dates. Rejected and Cancelled requests never conflict.
*/
package engine

import "time"

// conflictStatuses are the statuses whose date ranges are considered
// occupied.
func conflicts(s LeaveStatus) bool {
	return s == StatusPending || s == StatusAwaitingAdminApproval || s == StatusApproved
}

// FindConflict returns a ConflictError naming the first active request
// whose range overlaps [start, end], or nil when the range is free.
// Overlap is boundary-inclusive: a shared single day conflicts. The
// function filters by status itself, so callers may pass a broader set.
func FindConflict(start, end time.Time, active []LeaveRequest) *ConflictError {
	start, end = Day(start), Day(end)
	for i := range active {
		existing := &active[i]
		if !conflicts(existing.Status) {
			continue
		}
		if RangesOverlap(start, end, Day(existing.Start), Day(existing.End)) {
			return &ConflictError{
				ExistingID: existing.ID,
				Start:      Day(existing.Start),
				End:        Day(existing.End),
				Status:     existing.Status,
			}
		}
	}
	return nil
}
