package service

import (
	"context"

	"github.com/shiftlane/onboard/internal/onboard/domain"
)

// OnboardingService is the facade the public join flows go through. It
// composes the two lifecycles:
//
//   - join by code: PreviewInvite before authentication, AcceptInvite after;
//   - join by link: PreviewInviteLink renders the invite read-only, the
//     actual consumption still happens through AcceptInvite;
//   - request to join: RequestToJoin when the user holds no invitation, with
//     tenant admins reviewing through JoinRequestService.
type OnboardingService struct {
	Invitations  *InvitationService
	JoinRequests *JoinRequestService
}

// PreviewInvite returns the public tenant/role projection for a code.
func (s *OnboardingService) PreviewInvite(ctx context.Context, code string) (InvitationPreview, error) {
	return s.Invitations.PreviewByCode(ctx, code)
}

// PreviewInviteLink resolves a share-link token read-only. It never spends a
// use; the link is just a richer preview than the code projection.
func (s *OnboardingService) PreviewInviteLink(ctx context.Context, token string) (domain.Invitation, error) {
	return s.Invitations.RedeemByToken(ctx, token)
}

// AcceptInvite consumes one use of the code for the authenticated user.
func (s *OnboardingService) AcceptInvite(ctx context.Context, code, userID string) (RedemptionResult, error) {
	return s.Invitations.RedeemByCode(ctx, code, userID)
}

// RequestToJoin files a membership request for a user with no invitation.
func (s *OnboardingService) RequestToJoin(
	ctx context.Context,
	tenantID, userID, requestedRole, message string,
) (domain.JoinRequest, error) {
	return s.JoinRequests.Create(ctx, tenantID, userID, requestedRole, message)
}
