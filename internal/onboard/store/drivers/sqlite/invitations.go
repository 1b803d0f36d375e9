package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/shiftlane/onboard/internal/onboard/domain"
)

type invitationsRepo struct {
	db dbtx
}

const invitationColumns = `id, tenant_id, code, token, invitation_type, role, store_id,
	email, phone, message, inviter_id, max_uses, current_uses, status,
	expires_at, accepted_at, accepted_by_user_id, created_at, updated_at`

func (r *invitationsRepo) CreateInvitation(ctx context.Context, inv domain.Invitation) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO invitations (
			id, tenant_id, code, token, invitation_type, role, store_id,
			email, phone, message, inviter_id, max_uses, current_uses, status,
			expires_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID,
		inv.TenantID,
		inv.Code,
		inv.Token,
		string(inv.Type),
		inv.Role,
		mapStringNull(inv.StoreID),
		mapStringNull(inv.Email),
		mapStringNull(inv.Phone),
		mapStringNull(inv.Message),
		inv.InviterID,
		inv.MaxUses,
		inv.CurrentUses,
		string(inv.Status),
		inv.ExpiresAt,
		inv.CreatedAt,
		inv.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *invitationsRepo) GetInvitationByCode(ctx context.Context, code string) (domain.Invitation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE code = ?`, code)
	return scanInvitation(row)
}

func (r *invitationsRepo) GetInvitationByToken(ctx context.Context, token string) (domain.Invitation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE token = ?`, token)
	return scanInvitation(row)
}

func (r *invitationsRepo) GetInvitationByID(ctx context.Context, id, tenantID string) (domain.Invitation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE id = ? AND tenant_id = ?`,
		id, tenantID)
	return scanInvitation(row)
}

func (r *invitationsRepo) ListInvitationsByTenant(
	ctx context.Context,
	tenantID string,
	status *domain.InvitationStatus,
) ([]domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE tenant_id = ?`
	args := []any{tenantID}
	if status != nil {
		query += ` AND status = ?`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// ConsumeInvitation is the single conditional update that makes redemption
// safe under concurrency: the "status = pending AND current_uses < max_uses"
// guard means two redeemers racing for the last use can never both win.
func (r *invitationsRepo) ConsumeInvitation(ctx context.Context, id, userID string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE invitations
		SET current_uses = current_uses + 1,
			status = CASE WHEN current_uses + 1 >= max_uses THEN 'accepted' ELSE status END,
			accepted_at = ?,
			accepted_by_user_id = ?,
			updated_at = ?
		WHERE id = ? AND status = 'pending' AND current_uses < max_uses`,
		now, userID, now, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *invitationsRepo) MarkInvitationExpired(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE invitations
		SET status = 'expired', updated_at = ?
		WHERE id = ? AND status = 'pending'`,
		now, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *invitationsRepo) CancelInvitation(ctx context.Context, id, tenantID string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE invitations
		SET status = 'cancelled', updated_at = ?
		WHERE id = ? AND tenant_id = ?
		  AND status NOT IN ('accepted', 'expired', 'cancelled')`,
		now, id, tenantID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *invitationsRepo) SweepExpiredInvitations(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE invitations
		SET status = 'expired', updated_at = ?
		WHERE status = 'pending' AND expires_at < ?`,
		now, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInvitation(row scanner) (domain.Invitation, error) {
	var (
		inv        domain.Invitation
		invType    string
		status     string
		storeID    sql.NullString
		email      sql.NullString
		phone      sql.NullString
		message    sql.NullString
		acceptedAt sql.NullTime
		acceptedBy sql.NullString
	)

	err := row.Scan(
		&inv.ID,
		&inv.TenantID,
		&inv.Code,
		&inv.Token,
		&invType,
		&inv.Role,
		&storeID,
		&email,
		&phone,
		&message,
		&inv.InviterID,
		&inv.MaxUses,
		&inv.CurrentUses,
		&status,
		&inv.ExpiresAt,
		&acceptedAt,
		&acceptedBy,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return domain.Invitation{}, mapNotFound(err)
	}

	inv.Type = domain.InvitationType(invType)
	inv.Status = domain.InvitationStatus(status)
	inv.StoreID = mapNullString(storeID)
	inv.Email = mapNullString(email)
	inv.Phone = mapNullString(phone)
	inv.Message = mapNullString(message)
	inv.AcceptedAt = mapNullTimePtr(acceptedAt)
	inv.AcceptedByUserID = mapNullString(acceptedBy)
	return inv, nil
}
