package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/shiftlane/onboard/internal/onboard/domain"
	"github.com/shiftlane/onboard/internal/onboard/service"
	"github.com/shiftlane/onboard/pkg/httpx"
	"github.com/shiftlane/onboard/pkg/slogx"
)

// InvitationsHandler handles the tenant-admin invitation management endpoints.
type InvitationsHandler struct {
	InvitationService *service.InvitationService
}

// HandleCreate handles POST /v1/invitations
//
//	@Summary		Create Invitation
//	@Description	Creates a single-use invitation for the caller's tenant. The invitation type is inferred from the contact supplied: email, phone, share link, or plain code.
//	@Tags			Invitations
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		CreateInvitationRequest	true	"Invitation request"
//	@Success		201		{object}	InvitationResponse
//	@Failure		400		{object}	httpx.ErrorResponse
//	@Failure		500		{object}	httpx.ErrorResponse
//	@Router			/v1/invitations [post].
func (h *InvitationsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req CreateInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	if strings.TrimSpace(req.Role) == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "role is required")
		return
	}

	var expiresAt *time.Time
	if req.ExpiresAt != 0 {
		t := time.Unix(req.ExpiresAt, 0).UTC()
		expiresAt = &t
	}

	inv, err := h.InvitationService.CreateInvitation(ctx, service.CreateInvitationParams{
		TenantID:  httpx.TenantIDFromCtx(ctx),
		InviterID: httpx.UserIDFromCtx(ctx),
		Role:      req.Role,
		Email:     strings.TrimSpace(req.Email),
		Phone:     strings.TrimSpace(req.Phone),
		Link:      req.Link,
		StoreID:   req.StoreID,
		Message:   req.Message,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInvitationRequest):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid invitation parameters")
		case errors.Is(err, service.ErrGenerationExhausted):
			log.Error("invitation code generation exhausted", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Could not allocate a unique invitation code")
		default:
			log.Error("failed to create invitation", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to create invitation")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toInvitationResponse(inv))
}

// HandleCreateBulk handles POST /v1/invitations/bulk
//
//	@Summary		Create Bulk Invitation
//	@Description	Creates a multi-use QR invitation carrying only a role. The code can be redeemed max_uses times before it is exhausted.
//	@Tags			Invitations
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		CreateBulkInvitationRequest	true	"Bulk invitation request"
//	@Success		201		{object}	InvitationResponse
//	@Failure		400		{object}	httpx.ErrorResponse
//	@Failure		500		{object}	httpx.ErrorResponse
//	@Router			/v1/invitations/bulk [post].
func (h *InvitationsHandler) HandleCreateBulk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req CreateBulkInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	inv, err := h.InvitationService.CreateBulkInvitation(
		ctx,
		httpx.TenantIDFromCtx(ctx),
		httpx.UserIDFromCtx(ctx),
		req.Role,
		req.MaxUses,
		req.ExpiresInDays,
	)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInvitationRequest):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid bulk invitation parameters")
		case errors.Is(err, service.ErrGenerationExhausted):
			log.Error("invitation code generation exhausted", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Could not allocate a unique invitation code")
		default:
			log.Error("failed to create bulk invitation", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to create invitation")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toInvitationResponse(inv))
}

// HandleList handles GET /v1/invitations
//
//	@Summary		List Invitations
//	@Description	Lists the caller tenant's invitations newest first, optionally filtered by status.
//	@Tags			Invitations
//	@Produce		json
//	@Security		BearerAuth
//	@Param			status	query		string	false	"Filter by status (pending, accepted, expired, cancelled)"
//	@Success		200		{object}	InvitationListResponse
//	@Failure		400		{object}	httpx.ErrorResponse
//	@Failure		500		{object}	httpx.ErrorResponse
//	@Router			/v1/invitations [get].
func (h *InvitationsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	status, ok := parseInvitationStatus(r.URL.Query().Get("status"))
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Unknown status filter")
		return
	}

	invs, err := h.InvitationService.ListByTenant(ctx, httpx.TenantIDFromCtx(ctx), status)
	if err != nil {
		log.Error("failed to list invitations", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to list invitations")
		return
	}

	resp := InvitationListResponse{Invitations: make([]InvitationResponse, 0, len(invs))}
	for _, inv := range invs {
		resp.Invitations = append(resp.Invitations, toInvitationResponse(inv))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleCancel handles DELETE /v1/invitations/{id}
//
//	@Summary		Cancel Invitation
//	@Description	Cancels a pending invitation. Accepted, expired or already-cancelled invitations cannot be cancelled.
//	@Tags			Invitations
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Invitation id"
//	@Success		200	{object}	InvitationResponse
//	@Failure		404	{object}	httpx.ErrorResponse
//	@Failure		409	{object}	httpx.ErrorResponse
//	@Failure		500	{object}	httpx.ErrorResponse
//	@Router			/v1/invitations/{id} [delete].
func (h *InvitationsHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	inv, err := h.InvitationService.CancelInvitation(ctx, r.PathValue("id"), httpx.TenantIDFromCtx(ctx))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvitationNotFound):
			httpx.WriteError(w, http.StatusNotFound, "not_found", "Invitation not found")
		case errors.Is(err, service.ErrInvitationNotCancelable):
			httpx.WriteError(w, http.StatusConflict, "invalid_state", "Invitation is already accepted, expired or cancelled")
		default:
			log.Error("failed to cancel invitation", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to cancel invitation")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toInvitationResponse(inv))
}

func parseInvitationStatus(raw string) (*domain.InvitationStatus, bool) {
	if raw == "" {
		return nil, true
	}
	switch s := domain.InvitationStatus(strings.ToLower(raw)); s {
	case domain.InvitationPending, domain.InvitationAccepted,
		domain.InvitationExpired, domain.InvitationCancelled:
		return &s, true
	default:
		return nil, false
	}
}
