package http

import (
	"time"

	"github.com/shiftlane/onboard/internal/onboard/domain"
)

// Request/response DTOs for the onboarding API.

type CreateInvitationRequest struct {
	Role    string `json:"role"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Link    bool   `json:"link,omitempty"`
	StoreID string `json:"store_id,omitempty"`
	Message string `json:"message,omitempty"`
	// ExpiresAt is a unix timestamp; 0 means the 7-day default.
	ExpiresAt int64 `json:"expires_at,omitempty"`
}

type CreateBulkInvitationRequest struct {
	Role          string `json:"role"`
	MaxUses       int    `json:"max_uses"`
	ExpiresInDays int    `json:"expires_in_days"`
}

type InvitationResponse struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenant_id"`
	Code        string     `json:"code"`
	Token       string     `json:"token"`
	Type        string     `json:"type"`
	Role        string     `json:"role"`
	StoreID     string     `json:"store_id,omitempty"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Message     string     `json:"message,omitempty"`
	MaxUses     int        `json:"max_uses"`
	CurrentUses int        `json:"current_uses"`
	Status      string     `json:"status"`
	ExpiresAt   time.Time  `json:"expires_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	AcceptedBy  string     `json:"accepted_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type InvitationListResponse struct {
	Invitations []InvitationResponse `json:"invitations"`
}

type InvitationPreviewResponse struct {
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
}

type RedemptionResponse struct {
	Valid      bool                `json:"valid"`
	Reason     string              `json:"reason,omitempty"`
	Invitation *InvitationResponse `json:"invitation,omitempty"`
}

type CreateJoinRequestRequest struct {
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
	Message  string `json:"message,omitempty"`
}

type ReviewJoinRequestRequest struct {
	Role    string `json:"role,omitempty"`
	StoreID string `json:"store_id,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type JoinRequestResponse struct {
	ID              string     `json:"id"`
	TenantID        string     `json:"tenant_id"`
	UserID          string     `json:"user_id"`
	RequestedRole   string     `json:"requested_role"`
	Message         string     `json:"message,omitempty"`
	Status          string     `json:"status"`
	ReviewedBy      string     `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	AssignedRole    string     `json:"assigned_role,omitempty"`
	AssignedStoreID string     `json:"assigned_store_id,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

type JoinRequestListResponse struct {
	JoinRequests []JoinRequestResponse `json:"join_requests"`
}

type SweepResponse struct {
	Expired int64 `json:"expired"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
	Checks  any    `json:"checks,omitempty"`
}

func toInvitationResponse(inv domain.Invitation) InvitationResponse {
	return InvitationResponse{
		ID:          inv.ID,
		TenantID:    inv.TenantID,
		Code:        inv.Code,
		Token:       inv.Token,
		Type:        string(inv.Type),
		Role:        inv.Role,
		StoreID:     inv.StoreID,
		Email:       inv.Email,
		Phone:       inv.Phone,
		Message:     inv.Message,
		MaxUses:     inv.MaxUses,
		CurrentUses: inv.CurrentUses,
		Status:      string(inv.Status),
		ExpiresAt:   inv.ExpiresAt,
		AcceptedAt:  inv.AcceptedAt,
		AcceptedBy:  inv.AcceptedByUserID,
		CreatedAt:   inv.CreatedAt,
	}
}

func toJoinRequestResponse(req domain.JoinRequest) JoinRequestResponse {
	return JoinRequestResponse{
		ID:              req.ID,
		TenantID:        req.TenantID,
		UserID:          req.UserID,
		RequestedRole:   req.RequestedRole,
		Message:         req.Message,
		Status:          string(req.Status),
		ReviewedBy:      req.ReviewedByUserID,
		ReviewedAt:      req.ReviewedAt,
		AssignedRole:    req.AssignedRole,
		AssignedStoreID: req.AssignedStoreID,
		RejectionReason: req.RejectionReason,
		CreatedAt:       req.CreatedAt,
	}
}
