/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types
  decouple the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Shape validation (parseable dates, known roles) is done in handlers;
  domain validation lives in the engine. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/leave-engine/engine"
)

const dateLayout = "2006-01-02"

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// SubmitLeaveRequest is the request to apply for leave.
type SubmitLeaveRequest struct {
	LeaveTypeID string `json:"leave_type_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Reason      string `json:"reason,omitempty"`
}

// DecisionRequest is an approver's verdict on a request.
type DecisionRequest struct {
	Status   string `json:"status"` // "Approved" or "Rejected"
	Comments string `json:"comments,omitempty"`
}

// CreateUserRequest is the request to provision a user.
type CreateUserRequest struct {
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Role      int     `json:"role"`
	ManagerID *string `json:"manager_id,omitempty"`
}

// UserDTO represents a user in API responses.
type UserDTO struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Role      string  `json:"role"`
	ManagerID *string `json:"manager_id,omitempty"`
}

// LeaveRequestDTO represents a leave request in API responses.
type LeaveRequestDTO struct {
	ID                string `json:"id"`
	UserID            string `json:"user_id"`
	LeaveTypeID       string `json:"leave_type_id"`
	StartDate         string `json:"start_date"`
	EndDate           string `json:"end_date"`
	Reason            string `json:"reason,omitempty"`
	Status            string `json:"status"`
	RequiredApprovals int    `json:"required_approvals"`
	ProcessedBy       string `json:"processed_by,omitempty"`
	ProcessedAt       string `json:"processed_at,omitempty"`
	AppliedAt         string `json:"applied_at"`
}

// SubmitLeaveResponse is returned after a successful submission.
type SubmitLeaveResponse struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	RequiredApprovals int    `json:"required_approvals"`
	WorkingDays       int    `json:"working_days"`
}

// DecisionResponse is returned after a successful decision.
type DecisionResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// LeaveTypeDTO represents a leave type in API responses.
type LeaveTypeDTO struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	RequiresApproval bool   `json:"requires_approval"`
	BalanceBased     bool   `json:"balance_based"`
}

// BalanceDTO represents one balance row. Day amounts are fixed-point
// decimal strings, never floats.
type BalanceDTO struct {
	LeaveTypeID string `json:"leave_type_id"`
	Year        int    `json:"year"`
	TotalDays   string `json:"total_days"`
	UsedDays    string `json:"used_days"`
	Available   string `json:"available_days"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toLeaveRequestDTO(r engine.LeaveRequest) LeaveRequestDTO {
	dto := LeaveRequestDTO{
		ID:                string(r.ID),
		UserID:            string(r.UserID),
		LeaveTypeID:       string(r.TypeID),
		StartDate:         r.Start.Format(dateLayout),
		EndDate:           r.End.Format(dateLayout),
		Reason:            r.Reason,
		Status:            string(r.Status),
		RequiredApprovals: r.RequiredApprovals,
		AppliedAt:         r.AppliedAt.Format(time.RFC3339),
	}
	if r.ProcessedBy != nil {
		dto.ProcessedBy = string(*r.ProcessedBy)
	}
	if r.ProcessedAt != nil {
		dto.ProcessedAt = r.ProcessedAt.Format(time.RFC3339)
	}
	return dto
}

func toLeaveRequestDTOs(rs []engine.LeaveRequest) []LeaveRequestDTO {
	dtos := make([]LeaveRequestDTO, len(rs))
	for i, r := range rs {
		dtos[i] = toLeaveRequestDTO(r)
	}
	return dtos
}

func toBalanceDTO(b engine.LeaveBalance) BalanceDTO {
	return BalanceDTO{
		LeaveTypeID: string(b.TypeID),
		Year:        b.Year,
		TotalDays:   b.TotalDays.StringFixed(2),
		UsedDays:    b.UsedDays.StringFixed(2),
		Available:   b.AvailableDays().StringFixed(2),
	}
}

func toUserDTO(u engine.User) UserDTO {
	dto := UserDTO{
		ID:    string(u.ID),
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role.String(),
	}
	if u.ManagerID != nil {
		mid := string(*u.ManagerID)
		dto.ManagerID = &mid
	}
	return dto
}
