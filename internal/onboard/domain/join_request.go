package domain

import "time"

// JoinRequestStatus tracks the review state of a membership request.
// Every status other than PENDING is terminal; a reviewed request is never
// re-opened.
type JoinRequestStatus string

const (
	JoinRequestPending   JoinRequestStatus = "pending"
	JoinRequestApproved  JoinRequestStatus = "approved"
	JoinRequestRejected  JoinRequestStatus = "rejected"
	JoinRequestCancelled JoinRequestStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s JoinRequestStatus) Terminal() bool {
	return s != JoinRequestPending
}

// JoinRequest is a user-initiated request to join a tenant without an
// invitation in hand. At most one PENDING request may exist per
// (tenant, user) pair at any time.
type JoinRequest struct {
	ID       string
	TenantID string
	UserID   string

	RequestedRole string
	Message       string

	Status JoinRequestStatus

	ReviewedByUserID string
	ReviewedAt       *time.Time
	AssignedRole     string
	AssignedStoreID  string
	RejectionReason  string

	CreatedAt time.Time
	UpdatedAt time.Time
}
