package domain

import "time"

// InvitationStatus tracks where an invitation sits in its lifecycle.
// ACCEPTED, EXPIRED and CANCELLED are terminal.
type InvitationStatus string

const (
	InvitationPending   InvitationStatus = "pending"
	InvitationAccepted  InvitationStatus = "accepted"
	InvitationExpired   InvitationStatus = "expired"
	InvitationCancelled InvitationStatus = "cancelled"
)

// Terminal reports whether no further transition may leave this status.
func (s InvitationStatus) Terminal() bool {
	return s == InvitationAccepted || s == InvitationExpired || s == InvitationCancelled
}

// InvitationType records which contact channel the invitation was issued
// through. It is derived from the contact field supplied at creation; QR is
// used for multi-use bulk codes that carry no contact at all.
type InvitationType string

const (
	InvitationTypeEmail InvitationType = "email"
	InvitationTypePhone InvitationType = "phone"
	InvitationTypeCode  InvitationType = "code"
	InvitationTypeLink  InvitationType = "link"
	InvitationTypeQR    InvitationType = "qr"
)

// Invitation is a tenant-owned invite into an organization. The code is a
// short human-shareable credential; the token is a high-entropy bearer value
// embedded in share links. Rows are never deleted, only status-transitioned.
//
// On multi-use invitations AcceptedByUserID holds the most recent redeemer;
// earlier redeemers are not recorded at this level.
type Invitation struct {
	ID       string
	TenantID string

	Code  string // 8 chars, globally unique
	Token string // 64 lowercase hex chars, globally unique

	Type      InvitationType
	Role      string
	StoreID   string // optional store assignment within the tenant
	Email     string
	Phone     string
	Message   string
	InviterID string

	MaxUses     int
	CurrentUses int

	Status           InvitationStatus
	ExpiresAt        time.Time
	AcceptedAt       *time.Time
	AcceptedByUserID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Exhausted reports whether the usage quota has been fully consumed.
func (i Invitation) Exhausted() bool {
	return i.CurrentUses >= i.MaxUses
}
