package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shiftlane/onboard/internal/onboard/domain"
	"github.com/shiftlane/onboard/internal/onboard/store"
	"github.com/shiftlane/onboard/pkg/codegen"
	"github.com/shiftlane/onboard/pkg/idx"
	"github.com/shiftlane/onboard/pkg/slogx"
)

var (
	ErrInvalidInvitationRequest = errors.New("invalid invitation request")
	ErrInvitationNotFound       = errors.New("invitation not found")
	ErrInvitationNotCancelable  = errors.New("invitation is in a terminal state")
	ErrGenerationExhausted      = errors.New("code generation retries exhausted")
)

const (
	// defaultInvitationTTL applies when the caller does not pick an expiry.
	defaultInvitationTTL = 7 * 24 * time.Hour

	// maxGenerationAttempts bounds the regenerate-on-collision loop for
	// codes and tokens. Persistent collision is surfaced, never silently
	// looped on.
	maxGenerationAttempts = 5
)

// RedemptionReason explains a failed redemption to the end user. These are
// soft outcomes carried in the result, not errors: a bad code is an expected,
// common case.
type RedemptionReason string

const (
	ReasonInvalid    RedemptionReason = "invalid"
	ReasonNotPending RedemptionReason = "not_pending"
	ReasonExpired    RedemptionReason = "expired"
	ReasonExhausted  RedemptionReason = "exhausted"
)

// RedemptionResult is the outcome of redeeming a code. Invitation is set only
// when Valid is true.
type RedemptionResult struct {
	Valid      bool
	Reason     RedemptionReason
	Invitation *domain.Invitation
}

// InvitationPreview is the public projection shown before authentication:
// just enough for "what am I joining".
type InvitationPreview struct {
	TenantID string
	Role     string
}

// InviteMailer delivers an invitation to its email contact. Implementations
// are best-effort; delivery failure never fails the creating request.
type InviteMailer interface {
	SendInvitation(ctx context.Context, email string, inv domain.Invitation) error
}

// InvitationService owns the invitation lifecycle: creation with unique
// code/token pairs, redemption with usage accounting, cancellation and
// expiry.
type InvitationService struct {
	Store  store.Store
	Codes  *codegen.Generator
	Mailer InviteMailer // optional

	// Now is the injected clock; defaults to time.Now via now().
	Now func() time.Time
}

func (s *InvitationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// CreateInvitationParams carries everything a single-use invitation needs.
// Exactly one of Email/Phone may be set; the invitation type is inferred from
// whichever is present (share-link invites set Link instead).
type CreateInvitationParams struct {
	TenantID  string
	InviterID string
	Role      string

	Email   string
	Phone   string
	Link    bool
	StoreID string
	Message string

	// ExpiresAt defaults to 7 days from now when nil.
	ExpiresAt *time.Time
}

// CreateInvitation mints a single-use invitation in PENDING state.
func (s *InvitationService) CreateInvitation(
	ctx context.Context,
	p CreateInvitationParams,
) (domain.Invitation, error) {
	log := slogx.FromContext(ctx)

	if p.TenantID == "" || p.InviterID == "" || p.Role == "" {
		return domain.Invitation{}, ErrInvalidInvitationRequest
	}
	if p.Email != "" && p.Phone != "" {
		log.Warn("invitation created with both email and phone",
			slog.String("tenant_id", p.TenantID),
		)
		return domain.Invitation{}, ErrInvalidInvitationRequest
	}

	now := s.now()
	expiresAt := now.Add(defaultInvitationTTL)
	if p.ExpiresAt != nil {
		if p.ExpiresAt.Before(now) {
			return domain.Invitation{}, ErrInvalidInvitationRequest
		}
		expiresAt = *p.ExpiresAt
	}

	inv := domain.Invitation{
		TenantID:  p.TenantID,
		Type:      inferType(p),
		Role:      p.Role,
		StoreID:   p.StoreID,
		Email:     p.Email,
		Phone:     p.Phone,
		Message:   p.Message,
		InviterID: p.InviterID,
		MaxUses:   1,
		Status:    domain.InvitationPending,
		ExpiresAt: expiresAt,
	}

	created, err := s.insertWithFreshCredentials(ctx, inv, now)
	if err != nil {
		return domain.Invitation{}, err
	}

	s.notify(ctx, created)

	log.Info("invitation created",
		slog.String("invitation_id", created.ID),
		slog.String("tenant_id", created.TenantID),
		slog.String("type", string(created.Type)),
		slog.String("role", created.Role),
		slog.Time("expires_at", created.ExpiresAt),
	)
	return created, nil
}

// CreateBulkInvitation mints a multi-use QR invitation: role only, no contact,
// redeemable maxUses times before it flips to ACCEPTED.
func (s *InvitationService) CreateBulkInvitation(
	ctx context.Context,
	tenantID, inviterID, role string,
	maxUses int,
	expiresInDays int,
) (domain.Invitation, error) {
	log := slogx.FromContext(ctx)

	if tenantID == "" || inviterID == "" || role == "" || maxUses < 1 {
		return domain.Invitation{}, ErrInvalidInvitationRequest
	}
	if expiresInDays < 1 {
		return domain.Invitation{}, ErrInvalidInvitationRequest
	}

	now := s.now()
	inv := domain.Invitation{
		TenantID:  tenantID,
		Type:      domain.InvitationTypeQR,
		Role:      role,
		InviterID: inviterID,
		MaxUses:   maxUses,
		Status:    domain.InvitationPending,
		ExpiresAt: now.Add(time.Duration(expiresInDays) * 24 * time.Hour),
	}

	created, err := s.insertWithFreshCredentials(ctx, inv, now)
	if err != nil {
		return domain.Invitation{}, err
	}

	log.Info("bulk invitation created",
		slog.String("invitation_id", created.ID),
		slog.String("tenant_id", created.TenantID),
		slog.Int("max_uses", created.MaxUses),
		slog.Time("expires_at", created.ExpiresAt),
	)
	return created, nil
}

// insertWithFreshCredentials generates a code/token pair and inserts,
// regenerating on a uniqueness collision up to maxGenerationAttempts times.
func (s *InvitationService) insertWithFreshCredentials(
	ctx context.Context,
	inv domain.Invitation,
	now time.Time,
) (domain.Invitation, error) {
	log := slogx.FromContext(ctx)

	for attempt := 1; attempt <= maxGenerationAttempts; attempt++ {
		token, err := s.Codes.Token()
		if err != nil {
			return domain.Invitation{}, fmt.Errorf("generate invitation token: %w", err)
		}

		inv.ID = idx.New().String()
		inv.Code = s.Codes.Code()
		inv.Token = token
		inv.CreatedAt = now
		inv.UpdatedAt = now

		err = s.Store.Invitations().CreateInvitation(ctx, inv)
		if err == nil {
			return inv, nil
		}
		if !errors.Is(err, store.ErrAlreadyExists) {
			return domain.Invitation{}, fmt.Errorf("create invitation: %w", err)
		}

		log.Warn("invitation credential collision, regenerating",
			slog.Int("attempt", attempt),
		)
	}

	log.Error("invitation credential generation exhausted",
		slog.String("tenant_id", inv.TenantID),
		slog.Int("attempts", maxGenerationAttempts),
	)
	return domain.Invitation{}, ErrGenerationExhausted
}

// RedeemByCode consumes one use of the invitation identified by code. Failed
// redemption is a soft outcome in the result, not an error; errors are
// reserved for the store misbehaving.
//
// An expired invitation encountered here is transitioned to EXPIRED on the
// spot, independent of the periodic sweep, so the caller's feedback and the
// stored status agree immediately.
func (s *InvitationService) RedeemByCode(
	ctx context.Context,
	code, userID string,
) (RedemptionResult, error) {
	log := slogx.FromContext(ctx)

	inv, err := s.Store.Invitations().GetInvitationByCode(ctx, codegen.NormalizeCode(code))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return RedemptionResult{Valid: false, Reason: ReasonInvalid}, nil
		}
		return RedemptionResult{}, fmt.Errorf("lookup invitation: %w", err)
	}

	if inv.Status != domain.InvitationPending {
		return RedemptionResult{Valid: false, Reason: ReasonNotPending}, nil
	}

	now := s.now()
	if now.After(inv.ExpiresAt) {
		// Lazy expiry at read time; the sweep exists for housekeeping but
		// redemption must not depend on it having run.
		if _, err := s.Store.Invitations().MarkInvitationExpired(ctx, inv.ID, now); err != nil {
			return RedemptionResult{}, fmt.Errorf("expire invitation: %w", err)
		}
		log.Info("invitation lazily expired on redemption",
			slog.String("invitation_id", inv.ID),
		)
		return RedemptionResult{Valid: false, Reason: ReasonExpired}, nil
	}

	if inv.Exhausted() {
		// A pending invitation should never be exhausted; the conditional
		// update below flips status at quota.
		return RedemptionResult{Valid: false, Reason: ReasonExhausted}, nil
	}

	// The conditional update is the only write; racing redeemers of the last
	// use resolve here, and the loser reads zero rows affected.
	ok, err := s.Store.Invitations().ConsumeInvitation(ctx, inv.ID, userID, now)
	if err != nil {
		return RedemptionResult{}, fmt.Errorf("consume invitation: %w", err)
	}
	if !ok {
		return RedemptionResult{Valid: false, Reason: ReasonExhausted}, nil
	}

	updated, err := s.Store.Invitations().GetInvitationByID(ctx, inv.ID, inv.TenantID)
	if err != nil {
		return RedemptionResult{}, fmt.Errorf("reload invitation: %w", err)
	}

	log.Info("invitation redeemed",
		slog.String("invitation_id", updated.ID),
		slog.String("tenant_id", updated.TenantID),
		slog.String("user_id", userID),
		slog.Int("current_uses", updated.CurrentUses),
		slog.Int("max_uses", updated.MaxUses),
	)
	return RedemptionResult{Valid: true, Invitation: &updated}, nil
}

// RedeemByToken is the read-only link-preview variant: it returns the
// invitation for a pending, unexpired token and never touches usage counters.
// Consumption happens later through RedeemByCode once the user authenticates.
func (s *InvitationService) RedeemByToken(ctx context.Context, token string) (domain.Invitation, error) {
	inv, err := s.Store.Invitations().GetInvitationByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Invitation{}, ErrInvitationNotFound
		}
		return domain.Invitation{}, fmt.Errorf("lookup invitation: %w", err)
	}

	if inv.Status != domain.InvitationPending || s.now().After(inv.ExpiresAt) {
		return domain.Invitation{}, ErrInvitationNotFound
	}
	return inv, nil
}

// PreviewByCode returns the public projection for a pending, unexpired code.
// Read-only; used by the unauthenticated "what am I joining" UI.
func (s *InvitationService) PreviewByCode(ctx context.Context, code string) (InvitationPreview, error) {
	inv, err := s.Store.Invitations().GetInvitationByCode(ctx, codegen.NormalizeCode(code))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return InvitationPreview{}, ErrInvitationNotFound
		}
		return InvitationPreview{}, fmt.Errorf("lookup invitation: %w", err)
	}

	if inv.Status != domain.InvitationPending || s.now().After(inv.ExpiresAt) {
		return InvitationPreview{}, ErrInvitationNotFound
	}
	return InvitationPreview{TenantID: inv.TenantID, Role: inv.Role}, nil
}

// CancelInvitation transitions a non-terminal invitation to CANCELLED,
// scoped by tenant.
func (s *InvitationService) CancelInvitation(
	ctx context.Context,
	id, tenantID string,
) (domain.Invitation, error) {
	log := slogx.FromContext(ctx)

	ok, err := s.Store.Invitations().CancelInvitation(ctx, id, tenantID, s.now())
	if err != nil {
		return domain.Invitation{}, fmt.Errorf("cancel invitation: %w", err)
	}
	if !ok {
		// Distinguish a missing row from a terminal one.
		if _, err := s.Store.Invitations().GetInvitationByID(ctx, id, tenantID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.Invitation{}, ErrInvitationNotFound
			}
			return domain.Invitation{}, fmt.Errorf("lookup invitation: %w", err)
		}
		return domain.Invitation{}, ErrInvitationNotCancelable
	}

	inv, err := s.Store.Invitations().GetInvitationByID(ctx, id, tenantID)
	if err != nil {
		return domain.Invitation{}, fmt.Errorf("reload invitation: %w", err)
	}

	log.Info("invitation cancelled",
		slog.String("invitation_id", inv.ID),
		slog.String("tenant_id", inv.TenantID),
	)
	return inv, nil
}

// SweepExpired bulk-transitions every overdue PENDING invitation to EXPIRED
// and returns the count. Idempotent; runs from the housekeeping worker.
func (s *InvitationService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.Store.Invitations().SweepExpiredInvitations(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("sweep expired invitations: %w", err)
	}
	return n, nil
}

// ListByTenant returns the tenant's invitations newest first, optionally
// filtered by status.
func (s *InvitationService) ListByTenant(
	ctx context.Context,
	tenantID string,
	status *domain.InvitationStatus,
) ([]domain.Invitation, error) {
	return s.Store.Invitations().ListInvitationsByTenant(ctx, tenantID, status)
}

// notify sends the invitation to its email contact when a mailer is wired.
// Fire and forget: failure is logged, never returned.
func (s *InvitationService) notify(ctx context.Context, inv domain.Invitation) {
	if s.Mailer == nil || inv.Email == "" {
		return
	}

	log := slogx.FromContext(ctx)
	if err := s.Mailer.SendInvitation(ctx, inv.Email, inv); err != nil {
		log.Warn("invitation email delivery failed",
			slog.String("invitation_id", inv.ID),
			slog.Any("error", err),
		)
	}
}

func inferType(p CreateInvitationParams) domain.InvitationType {
	switch {
	case p.Email != "":
		return domain.InvitationTypeEmail
	case p.Phone != "":
		return domain.InvitationTypePhone
	case p.Link:
		return domain.InvitationTypeLink
	default:
		return domain.InvitationTypeCode
	}
}
