package http

import (
	"errors"
	"net/http"

	"github.com/shiftlane/onboard/internal/onboard/service"
	"github.com/shiftlane/onboard/pkg/httpx"
	"github.com/shiftlane/onboard/pkg/slogx"
)

// JoinHandler handles the public-facing join flows: previewing a code or
// link before authentication, and redeeming a code once authenticated.
type JoinHandler struct {
	Onboarding *service.OnboardingService
}

// HandlePreview handles GET /v1/join/{code}
//
//	@Summary		Preview Invitation Code
//	@Description	Returns the tenant and role a code would join the caller to. Public; no authentication and no state change.
//	@Tags			Join
//	@Produce		json
//	@Param			code	path		string	true	"Invitation code"
//	@Success		200		{object}	InvitationPreviewResponse
//	@Failure		404		{object}	httpx.ErrorResponse
//	@Failure		500		{object}	httpx.ErrorResponse
//	@Router			/v1/join/{code} [get].
func (h *JoinHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	preview, err := h.Onboarding.PreviewInvite(ctx, r.PathValue("code"))
	if err != nil {
		if errors.Is(err, service.ErrInvitationNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "Invitation code is invalid or expired")
			return
		}
		log.Error("failed to preview invitation", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to preview invitation")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, InvitationPreviewResponse{
		TenantID: preview.TenantID,
		Role:     preview.Role,
	})
}

// HandlePreviewLink handles GET /v1/join/link/{token}
//
//	@Summary		Preview Invitation Link
//	@Description	Resolves a share-link token to its invitation for rendering before the user authenticates. Read-only; usage counters are untouched.
//	@Tags			Join
//	@Produce		json
//	@Param			token	path		string	true	"Link token"
//	@Success		200		{object}	InvitationResponse
//	@Failure		404		{object}	httpx.ErrorResponse
//	@Failure		500		{object}	httpx.ErrorResponse
//	@Router			/v1/join/link/{token} [get].
func (h *JoinHandler) HandlePreviewLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	inv, err := h.Onboarding.PreviewInviteLink(ctx, r.PathValue("token"))
	if err != nil {
		if errors.Is(err, service.ErrInvitationNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "Invitation link is invalid or expired")
			return
		}
		log.Error("failed to resolve invitation link", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to resolve invitation link")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toInvitationResponse(inv))
}

// HandleRedeem handles POST /v1/join/{code}
//
//	@Summary		Redeem Invitation Code
//	@Description	Consumes one use of the invitation for the authenticated caller. Failed redemption (bad, expired or exhausted code) is reported in the body with valid=false, not as an error status.
//	@Tags			Join
//	@Produce		json
//	@Security		BearerAuth
//	@Param			code	path		string	true	"Invitation code"
//	@Success		200		{object}	RedemptionResponse
//	@Failure		500		{object}	httpx.ErrorResponse
//	@Router			/v1/join/{code} [post].
func (h *JoinHandler) HandleRedeem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	result, err := h.Onboarding.AcceptInvite(ctx, r.PathValue("code"), httpx.UserIDFromCtx(ctx))
	if err != nil {
		log.Error("failed to redeem invitation", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to redeem invitation")
		return
	}

	resp := RedemptionResponse{
		Valid:  result.Valid,
		Reason: string(result.Reason),
	}
	if result.Invitation != nil {
		r := toInvitationResponse(*result.Invitation)
		resp.Invitation = &r
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
