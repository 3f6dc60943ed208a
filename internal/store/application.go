package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/renterra-solution/tenancy-lifecycle-service/internal/crypto"
	"github.com/renterra-solution/tenancy-lifecycle-service/internal/model"
)

const applicationSelect = `
	SELECT id, property_id, full_name, phone, encrypted_email, email_iv,
	       status, tenant_id, submitted_at, decided_at
	FROM applications`

func scanApplication(row rowScanner) (*model.Application, error) {
	a := &model.Application{}
	err := row.Scan(&a.ID, &a.PropertyID, &a.FullName, &a.Phone,
		&a.EncryptedEmail, &a.EmailIV,
		&a.Status, &a.TenantID, &a.SubmittedAt, &a.DecidedAt)
	if err != nil {
		return nil, err
	}
	if len(a.EncryptedEmail) > 0 && len(a.EmailIV) > 0 {
		email, err := crypto.Decrypt(a.EncryptedEmail, a.EmailIV)
		if err != nil {
			return nil, err
		}
		a.Email = email
	}
	return a, nil
}

// ApplicationByID reads and row-locks an intake application so the approval
// decision cannot race a competing attachment.
func (t *Tx) ApplicationByID(ctx context.Context, id uuid.UUID) (*model.Application, error) {
	a, err := scanApplication(t.tx.QueryRowContext(ctx, applicationSelect+` WHERE id = $1 FOR UPDATE`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (t *Tx) ApproveApplication(ctx context.Context, id, tenantID uuid.UUID) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE applications
		SET status = 'approved', tenant_id = $2, decided_at = now()
		WHERE id = $1 AND status = 'pending'`, id, tenantID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RejectPendingApplications closes out every competing pending application for
// the property the moment one is approved.
func (t *Tx) RejectPendingApplications(ctx context.Context, propertyID, except uuid.UUID) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE applications
		SET status = 'rejected', decided_at = now()
		WHERE property_id = $1 AND status = 'pending' AND id <> $2`,
		propertyID, except)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
