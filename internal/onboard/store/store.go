package store

import (
	"context"
	"errors"
	"time"

	"github.com/shiftlane/onboard/internal/onboard/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and a transaction entry point for multi-step operations that must
// be atomic.
type Store interface {
	Invitations() Invitations
	JoinRequests() JoinRequests

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Invitations interface {
	// CreateInvitation inserts a new invitation. Returns ErrAlreadyExists when
	// the code or token collides with an existing row so the caller can
	// regenerate and retry.
	CreateInvitation(ctx context.Context, inv domain.Invitation) error

	// GetInvitationByCode looks up by the normalized (upper-cased) code.
	GetInvitationByCode(ctx context.Context, code string) (domain.Invitation, error)

	// GetInvitationByToken looks up by the link token.
	GetInvitationByToken(ctx context.Context, token string) (domain.Invitation, error)

	// GetInvitationByID is tenant-scoped; an id that exists under a different
	// tenant yields ErrNotFound.
	GetInvitationByID(ctx context.Context, id, tenantID string) (domain.Invitation, error)

	// ListInvitationsByTenant returns the tenant's invitations newest first,
	// optionally filtered by status.
	ListInvitationsByTenant(ctx context.Context, tenantID string, status *domain.InvitationStatus) ([]domain.Invitation, error)

	// ConsumeInvitation atomically spends one use of a PENDING invitation:
	// increments current_uses, records the redeemer, and flips the status to
	// ACCEPTED when the quota is exhausted by this use. All of that happens in
	// a single conditional update guarded by "status = pending AND
	// current_uses < max_uses", so concurrent redeemers can never overshoot
	// max_uses. Returns false when the guard matched no row.
	ConsumeInvitation(ctx context.Context, id, userID string, now time.Time) (bool, error)

	// MarkInvitationExpired transitions a PENDING invitation to EXPIRED.
	// Returns false when the invitation was not pending.
	MarkInvitationExpired(ctx context.Context, id string, now time.Time) (bool, error)

	// CancelInvitation transitions a non-terminal invitation to CANCELLED,
	// scoped by tenant. Returns false when no non-terminal row matched.
	CancelInvitation(ctx context.Context, id, tenantID string, now time.Time) (bool, error)

	// SweepExpiredInvitations bulk-transitions every PENDING invitation whose
	// expiry has passed to EXPIRED and returns the number of rows affected.
	// Idempotent.
	SweepExpiredInvitations(ctx context.Context, now time.Time) (int64, error)
}

// JoinRequestReview carries the outcome a reviewer applies to a pending
// join request. Status must be APPROVED or REJECTED.
type JoinRequestReview struct {
	ID               string
	TenantID         string
	Status           domain.JoinRequestStatus
	ReviewedByUserID string
	ReviewedAt       time.Time
	AssignedRole     string
	AssignedStoreID  string
	RejectionReason  string
}

type JoinRequests interface {
	// CreateJoinRequest inserts a new PENDING request. Returns ErrAlreadyExists
	// when a PENDING request already exists for the same (tenant, user) pair;
	// the store enforces this with a constraint, not a read-then-insert.
	CreateJoinRequest(ctx context.Context, r domain.JoinRequest) error

	// GetJoinRequestByID is tenant-scoped.
	GetJoinRequestByID(ctx context.Context, id, tenantID string) (domain.JoinRequest, error)

	// ListJoinRequestsByTenant returns the tenant's requests newest first,
	// optionally filtered by status.
	ListJoinRequestsByTenant(ctx context.Context, tenantID string, status *domain.JoinRequestStatus) ([]domain.JoinRequest, error)

	// ListJoinRequestsByUser returns every request the user has made across
	// tenants, newest first.
	ListJoinRequestsByUser(ctx context.Context, userID string) ([]domain.JoinRequest, error)

	// ReviewJoinRequest applies an approval or rejection to a PENDING request
	// in a single conditional update. Returns false when the request was not
	// pending (already reviewed) so the caller can distinguish that from a
	// missing row via a follow-up read.
	ReviewJoinRequest(ctx context.Context, review JoinRequestReview) (bool, error)
}
