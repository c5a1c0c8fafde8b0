package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/engine"
)

func activeRequest(id string, status engine.LeaveStatus, start, end time.Time) engine.LeaveRequest {
	return engine.LeaveRequest{
		ID:     engine.LeaveID(id),
		UserID: "user-1",
		TypeID: "casual",
		Start:  start,
		End:    end,
		Status: status,
	}
}

func TestFindConflict_IdenticalRange(t *testing.T) {
	// GIVEN: A pending request for March 2-6
	// WHEN: Checking the exact same range
	// THEN: The conflict names the existing request

	start := engine.NewDate(2026, time.March, 2)
	end := engine.NewDate(2026, time.March, 6)
	existing := []engine.LeaveRequest{
		activeRequest("leave-1", engine.StatusPending, start, end),
	}

	conflict := engine.FindConflict(start, end, existing)
	require.NotNil(t, conflict)
	assert.Equal(t, engine.LeaveID("leave-1"), conflict.ExistingID)
	assert.ErrorIs(t, conflict, engine.ErrConflict)
}

func TestFindConflict_SharedBoundaryDay(t *testing.T) {
	// GIVEN: An approved request ending March 6
	// WHEN: Checking a range starting March 6
	// THEN: The shared single day is a conflict (boundary-inclusive)

	existing := []engine.LeaveRequest{
		activeRequest("leave-1", engine.StatusApproved,
			engine.NewDate(2026, time.March, 2), engine.NewDate(2026, time.March, 6)),
	}

	conflict := engine.FindConflict(
		engine.NewDate(2026, time.March, 6), engine.NewDate(2026, time.March, 10), existing)
	assert.NotNil(t, conflict)
}

func TestFindConflict_AdjacentRanges(t *testing.T) {
	// GIVEN: A pending request ending March 6
	// WHEN: Checking a range starting March 7
	// THEN: Adjacent but non-touching ranges do not conflict

	existing := []engine.LeaveRequest{
		activeRequest("leave-1", engine.StatusPending,
			engine.NewDate(2026, time.March, 2), engine.NewDate(2026, time.March, 6)),
	}

	conflict := engine.FindConflict(
		engine.NewDate(2026, time.March, 7), engine.NewDate(2026, time.March, 10), existing)
	assert.Nil(t, conflict)
}

func TestFindConflict_PartialOverlap(t *testing.T) {
	// GIVEN: An escalated request for March 4-10
	// WHEN: Checking March 2-5
	// THEN: The partial overlap conflicts

	existing := []engine.LeaveRequest{
		activeRequest("leave-1", engine.StatusAwaitingAdminApproval,
			engine.NewDate(2026, time.March, 4), engine.NewDate(2026, time.March, 10)),
	}

	conflict := engine.FindConflict(
		engine.NewDate(2026, time.March, 2), engine.NewDate(2026, time.March, 5), existing)
	assert.NotNil(t, conflict)
}

func TestFindConflict_InactiveStatusesIgnored(t *testing.T) {
	// GIVEN: Rejected and cancelled requests covering March 2-6
	// WHEN: Checking the same range
	// THEN: Terminal requests never hold their dates

	start := engine.NewDate(2026, time.March, 2)
	end := engine.NewDate(2026, time.March, 6)
	existing := []engine.LeaveRequest{
		activeRequest("leave-1", engine.StatusRejected, start, end),
		activeRequest("leave-2", engine.StatusCancelled, start, end),
	}

	conflict := engine.FindConflict(start, end, existing)
	assert.Nil(t, conflict)
}
