package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shiftlane/onboard/internal/onboard/domain"
	"github.com/shiftlane/onboard/internal/onboard/store"
	"github.com/shiftlane/onboard/pkg/idx"
	"github.com/shiftlane/onboard/pkg/slogx"
)

var (
	ErrInvalidJoinRequest  = errors.New("invalid join request")
	ErrJoinRequestNotFound = errors.New("join request not found")
	ErrDuplicatePending    = errors.New("a pending join request already exists for this user and tenant")
	ErrAlreadyReviewed     = errors.New("join request has already been reviewed")
)

// JoinRequestService owns the request-driven onboarding lifecycle: a user
// asks to join a tenant, a tenant admin approves or rejects exactly once.
type JoinRequestService struct {
	Store store.Store

	// Now is the injected clock; defaults to time.Now via now().
	Now func() time.Time
}

func (s *JoinRequestService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Create inserts a new PENDING request. The at-most-one-pending rule per
// (tenant, user) is enforced by the store's constraint, so two simultaneous
// requests cannot both pass an existence check; the loser surfaces as
// ErrDuplicatePending.
func (s *JoinRequestService) Create(
	ctx context.Context,
	tenantID, userID, requestedRole, message string,
) (domain.JoinRequest, error) {
	log := slogx.FromContext(ctx)

	if tenantID == "" || userID == "" || requestedRole == "" {
		return domain.JoinRequest{}, ErrInvalidJoinRequest
	}

	now := s.now()
	req := domain.JoinRequest{
		ID:            idx.New().String(),
		TenantID:      tenantID,
		UserID:        userID,
		RequestedRole: requestedRole,
		Message:       message,
		Status:        domain.JoinRequestPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.Store.JoinRequests().CreateJoinRequest(ctx, req); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			log.Warn("duplicate pending join request rejected",
				slog.String("tenant_id", tenantID),
				slog.String("user_id", userID),
			)
			return domain.JoinRequest{}, ErrDuplicatePending
		}
		return domain.JoinRequest{}, fmt.Errorf("create join request: %w", err)
	}

	log.Info("join request created",
		slog.String("request_id", req.ID),
		slog.String("tenant_id", tenantID),
		slog.String("user_id", userID),
		slog.String("requested_role", requestedRole),
	)
	return req, nil
}

// Approve transitions a PENDING request to APPROVED with the reviewer's role
// assignment. A request that was already reviewed fails with
// ErrAlreadyReviewed and is left untouched.
func (s *JoinRequestService) Approve(
	ctx context.Context,
	id, tenantID, reviewerID, assignedRole, assignedStoreID string,
) (domain.JoinRequest, error) {
	if assignedRole == "" {
		return domain.JoinRequest{}, ErrInvalidJoinRequest
	}
	return s.review(ctx, store.JoinRequestReview{
		ID:               id,
		TenantID:         tenantID,
		Status:           domain.JoinRequestApproved,
		ReviewedByUserID: reviewerID,
		ReviewedAt:       s.now(),
		AssignedRole:     assignedRole,
		AssignedStoreID:  assignedStoreID,
	})
}

// Reject transitions a PENDING request to REJECTED with an optional reason.
func (s *JoinRequestService) Reject(
	ctx context.Context,
	id, tenantID, reviewerID, reason string,
) (domain.JoinRequest, error) {
	return s.review(ctx, store.JoinRequestReview{
		ID:               id,
		TenantID:         tenantID,
		Status:           domain.JoinRequestRejected,
		ReviewedByUserID: reviewerID,
		ReviewedAt:       s.now(),
		RejectionReason:  reason,
	})
}

func (s *JoinRequestService) review(
	ctx context.Context,
	review store.JoinRequestReview,
) (domain.JoinRequest, error) {
	log := slogx.FromContext(ctx)

	if review.ID == "" || review.TenantID == "" || review.ReviewedByUserID == "" {
		return domain.JoinRequest{}, ErrInvalidJoinRequest
	}

	// Single conditional update guarded by status=pending; a second reviewer
	// reads zero rows affected rather than overwriting the first outcome.
	ok, err := s.Store.JoinRequests().ReviewJoinRequest(ctx, review)
	if err != nil {
		return domain.JoinRequest{}, fmt.Errorf("review join request: %w", err)
	}
	if !ok {
		// Distinguish a missing row from an already-reviewed one.
		if _, err := s.Store.JoinRequests().GetJoinRequestByID(ctx, review.ID, review.TenantID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.JoinRequest{}, ErrJoinRequestNotFound
			}
			return domain.JoinRequest{}, fmt.Errorf("lookup join request: %w", err)
		}
		return domain.JoinRequest{}, ErrAlreadyReviewed
	}

	req, err := s.Store.JoinRequests().GetJoinRequestByID(ctx, review.ID, review.TenantID)
	if err != nil {
		return domain.JoinRequest{}, fmt.Errorf("reload join request: %w", err)
	}

	log.Info("join request reviewed",
		slog.String("request_id", req.ID),
		slog.String("tenant_id", req.TenantID),
		slog.String("status", string(req.Status)),
		slog.String("reviewed_by", review.ReviewedByUserID),
	)
	return req, nil
}

// ListByTenant returns the tenant's requests newest first, optionally
// filtered by status.
func (s *JoinRequestService) ListByTenant(
	ctx context.Context,
	tenantID string,
	status *domain.JoinRequestStatus,
) ([]domain.JoinRequest, error) {
	return s.Store.JoinRequests().ListJoinRequestsByTenant(ctx, tenantID, status)
}

// ListByUser returns every request the user has made, newest first.
func (s *JoinRequestService) ListByUser(ctx context.Context, userID string) ([]domain.JoinRequest, error) {
	return s.Store.JoinRequests().ListJoinRequestsByUser(ctx, userID)
}
