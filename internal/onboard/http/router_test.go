package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shiftlane/onboard/internal/onboard/service"
	"github.com/shiftlane/onboard/internal/onboard/store/drivers/sqlite"
	"github.com/shiftlane/onboard/pkg/codegen"
	"github.com/shiftlane/onboard/pkg/httpx"
)

const (
	testSecret = "router-test-secret"
	testIssuer = "test-issuer"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	invitations := &service.InvitationService{Store: st, Codes: codegen.New()}
	joinRequests := &service.JoinRequestService{Store: st}

	r := NewRouter([]byte(testSecret), testIssuer, "test", st, logger)
	r.InvitationService = invitations
	r.JoinRequestService = joinRequests
	r.OnboardingService = &service.OnboardingService{
		Invitations:  invitations,
		JoinRequests: joinRequests,
	}
	r.ApplyRoutes()
	return r
}

func bearer(t *testing.T, userID, tenantID string, admin bool) string {
	t.Helper()
	token, err := httpx.SignToken([]byte(testSecret), testIssuer, userID, tenantID, admin, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func doJSON(t *testing.T, r *Router, method, path, authz string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestInvitationEndpointsRequireAdmin(t *testing.T) {
	r := newTestRouter(t)

	t.Run("no token", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/invitations", "", CreateInvitationRequest{Role: "cashier"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("non-admin token", func(t *testing.T) {
		authz := bearer(t, "user-1", "tenant-1", false)
		rec := doJSON(t, r, http.MethodPost, "/v1/invitations", authz, CreateInvitationRequest{Role: "cashier"})
		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestInvitationLifecycleOverHTTP(t *testing.T) {
	r := newTestRouter(t)
	admin := bearer(t, "admin-1", "tenant-1", true)

	rec := doJSON(t, r, http.MethodPost, "/v1/invitations", admin, CreateInvitationRequest{
		Role:  "cashier",
		Email: "new.hire@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	inv := decode[InvitationResponse](t, rec)
	require.Equal(t, "tenant-1", inv.TenantID)
	require.Equal(t, "email", inv.Type)
	require.Len(t, inv.Code, codegen.CodeLength)

	t.Run("public preview needs no token", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/v1/join/"+inv.Code, "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		preview := decode[InvitationPreviewResponse](t, rec)
		require.Equal(t, "tenant-1", preview.TenantID)
		require.Equal(t, "cashier", preview.Role)
	})

	t.Run("link preview resolves the token", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/v1/join/link/"+inv.Token, "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		got := decode[InvitationResponse](t, rec)
		require.Equal(t, inv.ID, got.ID)
	})

	t.Run("redeem needs a token", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/join/"+inv.Code, "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("authenticated redeem consumes the code", func(t *testing.T) {
		user := bearer(t, "user-1", "", false)
		rec := doJSON(t, r, http.MethodPost, "/v1/join/"+inv.Code, user, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		res := decode[RedemptionResponse](t, rec)
		require.True(t, res.Valid)
		require.Equal(t, "accepted", res.Invitation.Status)
		require.Equal(t, "user-1", res.Invitation.AcceptedBy)
	})

	t.Run("spent code reports a soft failure", func(t *testing.T) {
		user := bearer(t, "user-2", "", false)
		rec := doJSON(t, r, http.MethodPost, "/v1/join/"+inv.Code, user, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		res := decode[RedemptionResponse](t, rec)
		require.False(t, res.Valid)
		require.Equal(t, "not_pending", res.Reason)
	})

	t.Run("list reflects the accepted invitation", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/v1/invitations?status=accepted", admin, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		list := decode[InvitationListResponse](t, rec)
		require.Len(t, list.Invitations, 1)
		require.Equal(t, inv.ID, list.Invitations[0].ID)
	})
}

func TestCancelInvitationOverHTTP(t *testing.T) {
	r := newTestRouter(t)
	admin := bearer(t, "admin-1", "tenant-1", true)

	rec := doJSON(t, r, http.MethodPost, "/v1/invitations", admin, CreateInvitationRequest{Role: "cashier"})
	require.Equal(t, http.StatusCreated, rec.Code)
	inv := decode[InvitationResponse](t, rec)

	rec = doJSON(t, r, http.MethodDelete, "/v1/invitations/"+inv.ID, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	cancelled := decode[InvitationResponse](t, rec)
	require.Equal(t, "cancelled", cancelled.Status)

	t.Run("cancelling again conflicts", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodDelete, "/v1/invitations/"+inv.ID, admin, nil)
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodDelete, "/v1/invitations/does-not-exist", admin, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("other tenant cannot cancel", func(t *testing.T) {
		other := bearer(t, "admin-9", "tenant-9", true)
		rec := doJSON(t, r, http.MethodPost, "/v1/invitations", admin, CreateInvitationRequest{Role: "cashier"})
		require.Equal(t, http.StatusCreated, rec.Code)
		fresh := decode[InvitationResponse](t, rec)

		rec = doJSON(t, r, http.MethodDelete, "/v1/invitations/"+fresh.ID, other, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestBulkInvitationOverHTTP(t *testing.T) {
	r := newTestRouter(t)
	admin := bearer(t, "admin-1", "tenant-1", true)

	rec := doJSON(t, r, http.MethodPost, "/v1/invitations/bulk", admin, CreateBulkInvitationRequest{
		Role:          "bartender",
		MaxUses:       2,
		ExpiresInDays: 30,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	inv := decode[InvitationResponse](t, rec)
	require.Equal(t, "qr", inv.Type)
	require.Equal(t, 2, inv.MaxUses)

	for i, user := range []string{"user-1", "user-2"} {
		rec := doJSON(t, r, http.MethodPost, "/v1/join/"+inv.Code, bearer(t, user, "", false), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		res := decode[RedemptionResponse](t, rec)
		require.True(t, res.Valid)
		require.Equal(t, i+1, res.Invitation.CurrentUses)
	}

	t.Run("rejects a zero quota", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/invitations/bulk", admin, CreateBulkInvitationRequest{
			Role:          "bartender",
			MaxUses:       0,
			ExpiresInDays: 30,
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestJoinRequestFlowOverHTTP(t *testing.T) {
	r := newTestRouter(t)
	user := bearer(t, "user-1", "", false)
	admin := bearer(t, "admin-1", "tenant-1", true)

	rec := doJSON(t, r, http.MethodPost, "/v1/join-requests", user, CreateJoinRequestRequest{
		TenantID: "tenant-1",
		Role:     "cashier",
		Message:  "let me in",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[JoinRequestResponse](t, rec)
	require.Equal(t, "pending", created.Status)

	t.Run("duplicate pending conflicts", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/join-requests", user, CreateJoinRequestRequest{
			TenantID: "tenant-1",
			Role:     "bartender",
		})
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("requester sees it under mine", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/v1/join-requests/mine", user, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		list := decode[JoinRequestListResponse](t, rec)
		require.Len(t, list.JoinRequests, 1)
		require.Equal(t, created.ID, list.JoinRequests[0].ID)
	})

	t.Run("admin review surface lists pending", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/v1/join-requests?status=pending", admin, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		list := decode[JoinRequestListResponse](t, rec)
		require.Len(t, list.JoinRequests, 1)
	})

	t.Run("approval assigns the role", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/join-requests/"+created.ID+"/approve", admin, ReviewJoinRequestRequest{
			Role:    "bartender",
			StoreID: "store-7",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		approved := decode[JoinRequestResponse](t, rec)
		require.Equal(t, "approved", approved.Status)
		require.Equal(t, "bartender", approved.AssignedRole)
		require.Equal(t, "admin-1", approved.ReviewedBy)
	})

	t.Run("second review conflicts", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/join-requests/"+created.ID+"/reject", admin, ReviewJoinRequestRequest{
			Reason: "too late",
		})
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("review is admin only", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/join-requests/"+created.ID+"/approve", user, ReviewJoinRequestRequest{Role: "cashier"})
		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestHealthEndpoints(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	health := decode[HealthResponse](t, rec)
	require.Equal(t, "ok", health.Status)

	rec = doJSON(t, r, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
