package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shiftlane/onboard/internal/onboard/domain"
	"github.com/shiftlane/onboard/internal/onboard/service"
	"github.com/shiftlane/onboard/pkg/httpx"
	"github.com/shiftlane/onboard/pkg/slogx"
)

// JoinRequestsHandler handles request-driven onboarding: users filing
// membership requests and tenant admins reviewing them.
type JoinRequestsHandler struct {
	Onboarding         *service.OnboardingService
	JoinRequestService *service.JoinRequestService
}

// HandleCreate handles POST /v1/join-requests
//
//	@Summary		Request To Join
//	@Description	Files a membership request for the authenticated user against a tenant. Only one pending request per tenant is allowed at a time.
//	@Tags			JoinRequests
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		CreateJoinRequestRequest	true	"Join request"
//	@Success		201		{object}	JoinRequestResponse
//	@Failure		400		{object}	httpx.ErrorResponse
//	@Failure		409		{object}	httpx.ErrorResponse
//	@Failure		500		{object}	httpx.ErrorResponse
//	@Router			/v1/join-requests [post].
func (h *JoinRequestsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req CreateJoinRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	created, err := h.Onboarding.RequestToJoin(
		ctx,
		strings.TrimSpace(req.TenantID),
		httpx.UserIDFromCtx(ctx),
		strings.TrimSpace(req.Role),
		req.Message,
	)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidJoinRequest):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "tenant_id and role are required")
		case errors.Is(err, service.ErrDuplicatePending):
			httpx.WriteError(w, http.StatusConflict, "duplicate_pending", "A pending request for this tenant already exists")
		default:
			log.Error("failed to create join request", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to create join request")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toJoinRequestResponse(created))
}

// HandleList handles GET /v1/join-requests
//
//	@Summary		List Tenant Join Requests
//	@Description	Lists the caller tenant's join requests newest first, optionally filtered by status. Admin only.
//	@Tags			JoinRequests
//	@Produce		json
//	@Security		BearerAuth
//	@Param			status	query		string	false	"Filter by status (pending, approved, rejected, cancelled)"
//	@Success		200		{object}	JoinRequestListResponse
//	@Failure		400		{object}	httpx.ErrorResponse
//	@Failure		500		{object}	httpx.ErrorResponse
//	@Router			/v1/join-requests [get].
func (h *JoinRequestsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	status, ok := parseJoinRequestStatus(r.URL.Query().Get("status"))
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Unknown status filter")
		return
	}

	reqs, err := h.JoinRequestService.ListByTenant(ctx, httpx.TenantIDFromCtx(ctx), status)
	if err != nil {
		log.Error("failed to list join requests", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to list join requests")
		return
	}

	writeJoinRequestList(w, reqs)
}

// HandleListMine handles GET /v1/join-requests/mine
//
//	@Summary		List Own Join Requests
//	@Description	Lists every join request the authenticated user has filed, across tenants, newest first.
//	@Tags			JoinRequests
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	JoinRequestListResponse
//	@Failure		500	{object}	httpx.ErrorResponse
//	@Router			/v1/join-requests/mine [get].
func (h *JoinRequestsHandler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	reqs, err := h.JoinRequestService.ListByUser(ctx, httpx.UserIDFromCtx(ctx))
	if err != nil {
		log.Error("failed to list own join requests", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to list join requests")
		return
	}

	writeJoinRequestList(w, reqs)
}

// HandleApprove handles POST /v1/join-requests/{id}/approve
//
//	@Summary		Approve Join Request
//	@Description	Approves a pending request, assigning the final role and optional store. A request can be reviewed exactly once.
//	@Tags			JoinRequests
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string						true	"Join request id"
//	@Param			request	body		ReviewJoinRequestRequest	true	"Role assignment"
//	@Success		200		{object}	JoinRequestResponse
//	@Failure		400		{object}	httpx.ErrorResponse
//	@Failure		404		{object}	httpx.ErrorResponse
//	@Failure		409		{object}	httpx.ErrorResponse
//	@Failure		500		{object}	httpx.ErrorResponse
//	@Router			/v1/join-requests/{id}/approve [post].
func (h *JoinRequestsHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req ReviewJoinRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	approved, err := h.JoinRequestService.Approve(
		ctx,
		r.PathValue("id"),
		httpx.TenantIDFromCtx(ctx),
		httpx.UserIDFromCtx(ctx),
		strings.TrimSpace(req.Role),
		req.StoreID,
	)
	if err != nil {
		writeReviewError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toJoinRequestResponse(approved))
}

// HandleReject handles POST /v1/join-requests/{id}/reject
//
//	@Summary		Reject Join Request
//	@Description	Rejects a pending request with an optional reason. A request can be reviewed exactly once.
//	@Tags			JoinRequests
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string						true	"Join request id"
//	@Param			request	body		ReviewJoinRequestRequest	true	"Rejection reason"
//	@Success		200		{object}	JoinRequestResponse
//	@Failure		400		{object}	httpx.ErrorResponse
//	@Failure		404		{object}	httpx.ErrorResponse
//	@Failure		409		{object}	httpx.ErrorResponse
//	@Failure		500		{object}	httpx.ErrorResponse
//	@Router			/v1/join-requests/{id}/reject [post].
func (h *JoinRequestsHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req ReviewJoinRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	rejected, err := h.JoinRequestService.Reject(
		ctx,
		r.PathValue("id"),
		httpx.TenantIDFromCtx(ctx),
		httpx.UserIDFromCtx(ctx),
		req.Reason,
	)
	if err != nil {
		writeReviewError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toJoinRequestResponse(rejected))
}

func writeReviewError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidJoinRequest):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid review parameters")
	case errors.Is(err, service.ErrJoinRequestNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "Join request not found")
	case errors.Is(err, service.ErrAlreadyReviewed):
		httpx.WriteError(w, http.StatusConflict, "invalid_state", "Join request has already been reviewed")
	default:
		log.Error("failed to review join request", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to review join request")
	}
}

func writeJoinRequestList(w http.ResponseWriter, reqs []domain.JoinRequest) {
	resp := JoinRequestListResponse{JoinRequests: make([]JoinRequestResponse, 0, len(reqs))}
	for _, req := range reqs {
		resp.JoinRequests = append(resp.JoinRequests, toJoinRequestResponse(req))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func parseJoinRequestStatus(raw string) (*domain.JoinRequestStatus, bool) {
	if raw == "" {
		return nil, true
	}
	switch s := domain.JoinRequestStatus(strings.ToLower(raw)); s {
	case domain.JoinRequestPending, domain.JoinRequestApproved,
		domain.JoinRequestRejected, domain.JoinRequestCancelled:
		return &s, true
	default:
		return nil, false
	}
}
