package sqlite

import (
	"context"
	"database/sql"

	"github.com/shiftlane/onboard/internal/onboard/domain"
	"github.com/shiftlane/onboard/internal/onboard/store"
)

type joinRequestsRepo struct {
	db dbtx
}

const joinRequestColumns = `id, tenant_id, user_id, requested_role, message, status,
	reviewed_by_user_id, reviewed_at, assigned_role, assigned_store_id,
	rejection_reason, created_at, updated_at`

func (r *joinRequestsRepo) CreateJoinRequest(ctx context.Context, req domain.JoinRequest) error {
	// The partial unique index on (tenant_id, user_id) WHERE status='pending'
	// rejects a second pending request atomically; no prior existence check.
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO join_requests (
			id, tenant_id, user_id, requested_role, message, status,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID,
		req.TenantID,
		req.UserID,
		req.RequestedRole,
		mapStringNull(req.Message),
		string(req.Status),
		req.CreatedAt,
		req.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *joinRequestsRepo) GetJoinRequestByID(ctx context.Context, id, tenantID string) (domain.JoinRequest, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+joinRequestColumns+` FROM join_requests WHERE id = ? AND tenant_id = ?`,
		id, tenantID)
	return scanJoinRequest(row)
}

func (r *joinRequestsRepo) ListJoinRequestsByTenant(
	ctx context.Context,
	tenantID string,
	status *domain.JoinRequestStatus,
) ([]domain.JoinRequest, error) {
	query := `SELECT ` + joinRequestColumns + ` FROM join_requests WHERE tenant_id = ?`
	args := []any{tenantID}
	if status != nil {
		query += ` AND status = ?`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at DESC`

	return r.queryList(ctx, query, args...)
}

func (r *joinRequestsRepo) ListJoinRequestsByUser(ctx context.Context, userID string) ([]domain.JoinRequest, error) {
	return r.queryList(ctx,
		`SELECT `+joinRequestColumns+` FROM join_requests WHERE user_id = ? ORDER BY created_at DESC`,
		userID)
}

func (r *joinRequestsRepo) queryList(ctx context.Context, query string, args ...any) ([]domain.JoinRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.JoinRequest
	for rows.Next() {
		req, err := scanJoinRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// ReviewJoinRequest applies the outcome only while the request is still
// pending. Zero rows affected means a reviewer already got there first.
func (r *joinRequestsRepo) ReviewJoinRequest(ctx context.Context, review store.JoinRequestReview) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE join_requests
		SET status = ?,
			reviewed_by_user_id = ?,
			reviewed_at = ?,
			assigned_role = ?,
			assigned_store_id = ?,
			rejection_reason = ?,
			updated_at = ?
		WHERE id = ? AND tenant_id = ? AND status = 'pending'`,
		string(review.Status),
		review.ReviewedByUserID,
		review.ReviewedAt,
		mapStringNull(review.AssignedRole),
		mapStringNull(review.AssignedStoreID),
		mapStringNull(review.RejectionReason),
		review.ReviewedAt,
		review.ID,
		review.TenantID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func scanJoinRequest(row scanner) (domain.JoinRequest, error) {
	var (
		req             domain.JoinRequest
		message         sql.NullString
		status          string
		reviewedBy      sql.NullString
		reviewedAt      sql.NullTime
		assignedRole    sql.NullString
		assignedStoreID sql.NullString
		rejectionReason sql.NullString
	)

	err := row.Scan(
		&req.ID,
		&req.TenantID,
		&req.UserID,
		&req.RequestedRole,
		&message,
		&status,
		&reviewedBy,
		&reviewedAt,
		&assignedRole,
		&assignedStoreID,
		&rejectionReason,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return domain.JoinRequest{}, mapNotFound(err)
	}

	req.Message = mapNullString(message)
	req.Status = domain.JoinRequestStatus(status)
	req.ReviewedByUserID = mapNullString(reviewedBy)
	req.ReviewedAt = mapNullTimePtr(reviewedAt)
	req.AssignedRole = mapNullString(assignedRole)
	req.AssignedStoreID = mapNullString(assignedStoreID)
	req.RejectionReason = mapNullString(rejectionReason)
	return req, nil
}
