/*
handlers.go - HTTP API handlers for the leave engine

PURPOSE:
  Exposes the leave lifecycle via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the engine.

ENDPOINTS:
  Leaves:
    POST   /api/leaves                     Submit a leave request
    GET    /api/leaves/mine                Own request history
    GET    /api/leaves/types               Applyable leave types
    GET    /api/leaves/balances            Own balances (current year)
    PUT    /api/leaves/{id}/status         Manager decision
    PUT    /api/leaves/{id}/cancel         Owner cancellation

  Manager:
    GET    /api/manager/pending            Direct reports' pending queue

  Admin:
    PUT    /api/admin/leaves/{id}/status   Admin decision
    GET    /api/admin/approvals-needed     Escalation queue
    POST   /api/admin/users                Provision a user

IDENTITY:
  The acting principal arrives in trusted headers (X-User-ID and
  X-User-Role), set by the gateway in front of this service. There is
  no authentication here; authorization decisions belong to the
  engine's routing policy, with a thin per-route role guard for the
  manager and admin groups.

ERROR HANDLING:
  Engine errors map to HTTP status by kind:
  - 400: validation, insufficient balance
  - 403: authorization
  - 404: not found
  - 409: date conflict, invalid state, lost decision race
  - 500: everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/leave-engine/engine"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       engine.TxStore
	Lifecycle   *engine.Lifecycle
	Views       *engine.Views
	Provisioner *engine.Provisioner
	Log         *zap.Logger
}

// NewHandler creates a new handler over the given store and policy.
func NewHandler(store engine.TxStore, router *engine.Router, provision engine.ProvisionPolicy, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:       store,
		Lifecycle:   engine.NewLifecycle(store, router, logger),
		Views:       engine.NewViews(store, router),
		Provisioner: engine.NewProvisioner(store, provision),
		Log:         logger,
	}
}

// principal is the identity extracted from the trusted headers.
type principal struct {
	ID   engine.UserID
	Role engine.Role
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (principal, bool) {
	id := r.Header.Get("X-User-ID")
	roleStr := r.Header.Get("X-User-Role")
	if id == "" || roleStr == "" {
		writeError(w, http.StatusUnauthorized, "Missing identity headers", nil)
		return principal{}, false
	}
	roleNum, err := strconv.Atoi(roleStr)
	if err != nil || !engine.Role(roleNum).Valid() {
		writeError(w, http.StatusUnauthorized, "Invalid role header", nil)
		return principal{}, false
	}
	return principal{ID: engine.UserID(id), Role: engine.Role(roleNum)}, true
}

// =============================================================================
// LEAVE HANDLERS
// =============================================================================

// SubmitLeave submits a new leave request.
// POST /api/leaves
func (h *Handler) SubmitLeave(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req SubmitLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, err := time.ParseInLocation(dateLayout, req.StartDate, time.UTC)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date, expected YYYY-MM-DD", err)
		return
	}
	end, err := time.ParseInLocation(dateLayout, req.EndDate, time.UTC)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date, expected YYYY-MM-DD", err)
		return
	}

	result, err := h.Lifecycle.Submit(r.Context(), engine.SubmitInput{
		UserID: p.ID,
		TypeID: engine.LeaveTypeID(req.LeaveTypeID),
		Start:  start,
		End:    end,
		Reason: req.Reason,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, SubmitLeaveResponse{
		ID:                string(result.LeaveID),
		Status:            string(result.Status),
		RequiredApprovals: result.RequiredApprovals,
		WorkingDays:       result.WorkingDays,
	})
}

// MyLeaves returns the caller's request history, newest first.
// GET /api/leaves/mine
func (h *Handler) MyLeaves(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	requests, err := h.Views.History(r.Context(), p.ID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTOs(requests))
}

// LeaveTypes returns the leave types the caller may apply for.
// GET /api/leaves/types
func (h *Handler) LeaveTypes(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	types, err := h.Views.ApplyableTypes(r.Context(), p.ID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	dtos := make([]LeaveTypeDTO, len(types))
	for i, lt := range types {
		dtos[i] = LeaveTypeDTO{
			ID:               string(lt.ID),
			Name:             lt.Name,
			RequiresApproval: lt.RequiresApproval,
			BalanceBased:     lt.BalanceBased,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// MyBalances returns the caller's balances. The year defaults to the
// current year; override with ?year=.
// GET /api/leaves/balances
func (h *Handler) MyBalances(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	year := time.Now().UTC().Year()
	if y := r.URL.Query().Get("year"); y != "" {
		parsed, err := strconv.Atoi(y)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		year = parsed
	}

	balances, err := h.Views.Balances(r.Context(), p.ID, year)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	dtos := make([]BalanceDTO, len(balances))
	for i, b := range balances {
		dtos[i] = toBalanceDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// DecideLeave applies a manager or admin decision; who may decide what
// is the engine's call.
// PUT /api/leaves/{id}/status
// PUT /api/admin/leaves/{id}/status
func (h *Handler) DecideLeave(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.Lifecycle.Decide(r.Context(), engine.DecideInput{
		LeaveID:    engine.LeaveID(chi.URLParam(r, "id")),
		ApproverID: p.ID,
		Action:     engine.DecisionAction(req.Status),
		Comments:   req.Comments,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DecisionResponse{
		ID:     string(result.LeaveID),
		Status: string(result.NewStatus),
	})
}

// CancelLeave cancels the caller's own request.
// PUT /api/leaves/{id}/cancel
func (h *Handler) CancelLeave(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	id := engine.LeaveID(chi.URLParam(r, "id"))
	if err := h.Lifecycle.Cancel(r.Context(), id, p.ID); err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DecisionResponse{
		ID:     string(id),
		Status: string(engine.StatusCancelled),
	})
}

// =============================================================================
// MANAGER HANDLERS
// =============================================================================

// PendingApprovals returns the pending queue of the caller's direct
// reports.
// GET /api/manager/pending
func (h *Handler) PendingApprovals(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	requests, err := h.Views.PendingForManager(r.Context(), p.ID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTOs(requests))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// ApprovalsNeeded returns the admin escalation queue.
// GET /api/admin/approvals-needed
func (h *Handler) ApprovalsNeeded(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	requests, err := h.Views.AwaitingAdmin(r.Context(), p.ID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTOs(requests))
}

// CreateUser provisions a user with the role's initial balances.
// POST /api/admin/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	if p.Role != engine.RoleAdmin {
		writeError(w, http.StatusForbidden, "Only admins can provision users", nil)
		return
	}

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in := engine.ProvisionInput{
		Name:  req.Name,
		Email: req.Email,
		Role:  engine.Role(req.Role),
	}
	if req.ManagerID != nil {
		mid := engine.UserID(*req.ManagerID)
		in.ManagerID = &mid
	}

	user, err := h.Provisioner.Provision(r.Context(), in)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(*user))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps engine error kinds to HTTP status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, engine.ErrAuthorization):
		writeError(w, http.StatusForbidden, err.Error(), nil)
	case errors.Is(err, engine.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, engine.ErrConflict), errors.Is(err, engine.ErrState):
		writeError(w, http.StatusConflict, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
