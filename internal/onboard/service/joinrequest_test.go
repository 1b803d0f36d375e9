package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shiftlane/onboard/internal/onboard/domain"
	"github.com/shiftlane/onboard/internal/onboard/store/drivers/sqlite"
)

func newTestJoinRequestService(t *testing.T) *JoinRequestService {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())

	return &JoinRequestService{Store: st}
}

func TestCreateJoinRequest(t *testing.T) {
	ctx := context.Background()
	svc := newTestJoinRequestService(t)

	req, err := svc.Create(ctx, "tenant-1", "user-1", "cashier", "worked here last summer")
	require.NoError(t, err)
	require.Equal(t, domain.JoinRequestPending, req.Status)
	require.Equal(t, "cashier", req.RequestedRole)
	require.NotEmpty(t, req.ID)

	t.Run("rejects missing fields", func(t *testing.T) {
		_, err := svc.Create(ctx, "tenant-1", "", "cashier", "")
		require.ErrorIs(t, err, ErrInvalidJoinRequest)
	})

	t.Run("duplicate pending is rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, "tenant-1", "user-1", "bartender", "")
		require.ErrorIs(t, err, ErrDuplicatePending)
	})

	t.Run("same user may ask a different tenant", func(t *testing.T) {
		_, err := svc.Create(ctx, "tenant-2", "user-1", "cashier", "")
		require.NoError(t, err)
	})
}

func TestApproveJoinRequest(t *testing.T) {
	ctx := context.Background()
	svc := newTestJoinRequestService(t)

	req, err := svc.Create(ctx, "tenant-1", "user-1", "cashier", "")
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, req.ID, "tenant-1", "admin-1", "bartender", "store-7")
	require.NoError(t, err)
	require.Equal(t, domain.JoinRequestApproved, approved.Status)
	require.Equal(t, "bartender", approved.AssignedRole)
	require.Equal(t, "store-7", approved.AssignedStoreID)
	require.Equal(t, "admin-1", approved.ReviewedByUserID)
	require.NotNil(t, approved.ReviewedAt)

	t.Run("second review fails and leaves the first outcome intact", func(t *testing.T) {
		_, err := svc.Reject(ctx, req.ID, "tenant-1", "admin-2", "changed my mind")
		require.ErrorIs(t, err, ErrAlreadyReviewed)

		stored, err := svc.Store.JoinRequests().GetJoinRequestByID(ctx, req.ID, "tenant-1")
		require.NoError(t, err)
		require.Equal(t, domain.JoinRequestApproved, stored.Status)
		require.Equal(t, "admin-1", stored.ReviewedByUserID)
		require.Empty(t, stored.RejectionReason)
	})

	t.Run("approve requires an assigned role", func(t *testing.T) {
		other, err := svc.Create(ctx, "tenant-1", "user-2", "cashier", "")
		require.NoError(t, err)

		_, err = svc.Approve(ctx, other.ID, "tenant-1", "admin-1", "", "")
		require.ErrorIs(t, err, ErrInvalidJoinRequest)
	})
}

func TestRejectJoinRequest(t *testing.T) {
	ctx := context.Background()
	svc := newTestJoinRequestService(t)

	req, err := svc.Create(ctx, "tenant-1", "user-1", "cashier", "")
	require.NoError(t, err)

	rejected, err := svc.Reject(ctx, req.ID, "tenant-1", "admin-1", "no openings")
	require.NoError(t, err)
	require.Equal(t, domain.JoinRequestRejected, rejected.Status)
	require.Equal(t, "no openings", rejected.RejectionReason)

	t.Run("rejection frees the user to ask again", func(t *testing.T) {
		again, err := svc.Create(ctx, "tenant-1", "user-1", "cashier", "second try")
		require.NoError(t, err)
		require.Equal(t, domain.JoinRequestPending, again.Status)
	})
}

func TestReviewJoinRequestScoping(t *testing.T) {
	ctx := context.Background()
	svc := newTestJoinRequestService(t)

	req, err := svc.Create(ctx, "tenant-1", "user-1", "cashier", "")
	require.NoError(t, err)

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := svc.Approve(ctx, "missing", "tenant-1", "admin-1", "cashier", "")
		require.ErrorIs(t, err, ErrJoinRequestNotFound)
	})

	t.Run("other tenants cannot review", func(t *testing.T) {
		_, err := svc.Approve(ctx, req.ID, "tenant-2", "admin-1", "cashier", "")
		require.ErrorIs(t, err, ErrJoinRequestNotFound)
	})
}

func TestConcurrentReviewersSingleWinner(t *testing.T) {
	ctx := context.Background()
	svc := newTestJoinRequestService(t)

	req, err := svc.Create(ctx, "tenant-1", "user-1", "cashier", "")
	require.NoError(t, err)

	const reviewers = 6
	errs := make([]error, reviewers)

	var wg sync.WaitGroup
	for i := 0; i < reviewers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, errs[i] = svc.Approve(ctx, req.ID, "tenant-1", "admin-1", "cashier", "")
			} else {
				_, errs[i] = svc.Reject(ctx, req.ID, "tenant-1", "admin-2", "beaten to it")
			}
		}(i)
	}
	wg.Wait()

	wins := 0
	for i := 0; i < reviewers; i++ {
		if errs[i] == nil {
			wins++
			continue
		}
		require.ErrorIs(t, errs[i], ErrAlreadyReviewed)
	}
	require.Equal(t, 1, wins, "exactly one reviewer may settle the request")
}

func TestJoinRequestListing(t *testing.T) {
	ctx := context.Background()
	svc := newTestJoinRequestService(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, user := range []string{"user-1", "user-2", "user-3"} {
		tick := base.Add(time.Duration(i) * time.Minute)
		svc.Now = func() time.Time { return tick }
		_, err := svc.Create(ctx, "tenant-1", user, "cashier", "")
		require.NoError(t, err)
	}
	svc.Now = nil

	_, err := svc.Create(ctx, "tenant-2", "user-1", "manager", "")
	require.NoError(t, err)

	t.Run("by tenant newest first", func(t *testing.T) {
		reqs, err := svc.ListByTenant(ctx, "tenant-1", nil)
		require.NoError(t, err)
		require.Len(t, reqs, 3)
		require.Equal(t, "user-3", reqs[0].UserID)
		require.Equal(t, "user-1", reqs[2].UserID)
	})

	t.Run("by tenant filtered by status", func(t *testing.T) {
		approved := domain.JoinRequestApproved
		reqs, err := svc.ListByTenant(ctx, "tenant-1", &approved)
		require.NoError(t, err)
		require.Empty(t, reqs)
	})

	t.Run("by user spans tenants", func(t *testing.T) {
		reqs, err := svc.ListByUser(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, reqs, 2)
	})
}
