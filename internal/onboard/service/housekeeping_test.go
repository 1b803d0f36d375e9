package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shiftlane/onboard/internal/onboard/domain"
)

func TestHousekeepingSweepsOnStartup(t *testing.T) {
	ctx := context.Background()
	invitations := newTestInvitationService(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	invitations.Now = func() time.Time { return base }

	inv, err := invitations.CreateInvitation(ctx, CreateInvitationParams{
		TenantID: "tenant-1", InviterID: "admin-1", Role: "cashier",
	})
	require.NoError(t, err)

	invitations.Now = func() time.Time { return base.Add(14 * 24 * time.Hour) }

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hk := NewHousekeepingService(invitations, logger, time.Hour)
	hk.Start()
	t.Cleanup(hk.Stop)

	require.Eventually(t, func() bool {
		got, err := invitations.Store.Invitations().GetInvitationByID(ctx, inv.ID, inv.TenantID)
		return err == nil && got.Status == domain.InvitationExpired
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHousekeepingDefaultsInterval(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hk := NewHousekeepingService(nil, logger, 0)
	require.Equal(t, time.Hour, hk.Interval)
}

func TestHousekeepingStopWaitsForWorker(t *testing.T) {
	invitations := newTestInvitationService(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hk := NewHousekeepingService(invitations, logger, 10*time.Millisecond)
	hk.Start()

	time.Sleep(50 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		hk.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}
