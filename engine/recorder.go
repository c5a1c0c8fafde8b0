/*
recorder.go - Append-only approval audit log

PURPOSE:
  Every approver-driven transition writes exactly one ApprovalRecord.
  The recorder never mutates a request or a balance; it only appends.
  Owner cancellations are not recorded here.

DURABILITY:
  The recorder writes through the same transactional store view as the
  status change it documents, so a failed audit append aborts the whole
  transition. The system this replaces logged the failure and committed
  the status change anyway; that gap is closed.
*/
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Recorder appends approval audit rows.
type Recorder struct {
	now func() time.Time
}

func NewRecorder() *Recorder {
	return &Recorder{now: time.Now}
}

// Record appends one audit row through the given store view. Callers
// pass the transactional view so the append commits with the status
// change it documents.
func (rc *Recorder) Record(
	ctx context.Context,
	s Store,
	leaveID LeaveID,
	approverID UserID,
	action ApprovalAction,
	comments string,
) error {
	rec := ApprovalRecord{
		ID:         uuid.NewString(),
		LeaveID:    leaveID,
		ApproverID: approverID,
		Action:     action,
		Comments:   comments,
		CreatedAt:  rc.now().UTC(),
	}
	if err := s.AppendApproval(ctx, rec); err != nil {
		return fmt.Errorf("append approval record: %w", err)
	}
	return nil
}
