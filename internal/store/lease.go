package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/renterra-solution/tenancy-lifecycle-service/internal/model"
)

const leaseSelect = `
	SELECT id, property_id, tenant_id, status, payment_status, start_date,
	       end_date, next_due_date, amount, frequency, deposit, service_charge,
	       created_at, updated_at
	FROM leases`

func scanLease(row rowScanner) (*model.Lease, error) {
	l := &model.Lease{}
	err := row.Scan(&l.ID, &l.PropertyID, &l.TenantID, &l.Status, &l.PaymentStatus,
		&l.StartDate, &l.EndDate, &l.NextDueDate, &l.Amount, &l.Frequency,
		&l.Deposit, &l.ServiceCharge, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// ActiveLeasesByTenant row-locks every active lease the tenant holds; the
// cleanup read-then-write sequence depends on that lock.
func (t *Tx) ActiveLeasesByTenant(ctx context.Context, tenantID uuid.UUID) ([]*model.Lease, error) {
	rows, err := t.tx.QueryContext(ctx,
		leaseSelect+` WHERE tenant_id = $1 AND status = 'active' ORDER BY created_at FOR UPDATE`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Lease
	for rows.Next() {
		l, err := scanLease(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (t *Tx) ActiveLeaseByProperty(ctx context.Context, propertyID uuid.UUID) (*model.Lease, error) {
	l, err := scanLease(t.tx.QueryRowContext(ctx,
		leaseSelect+` WHERE property_id = $1 AND status = 'active' ORDER BY created_at DESC LIMIT 1`, propertyID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return l, err
}

func (t *Tx) InsertLease(ctx context.Context, l *model.Lease) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	now := time.Now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO leases (id, property_id, tenant_id, status, payment_status,
			start_date, end_date, next_due_date, amount, frequency, deposit,
			service_charge, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		l.ID, l.PropertyID, l.TenantID, l.Status, l.PaymentStatus,
		l.StartDate, l.EndDate, l.NextDueDate, l.Amount, l.Frequency,
		l.Deposit, l.ServiceCharge, l.CreatedAt, l.UpdatedAt)
	return err
}

// UpdateLeaseTerms rewrites the commercial terms of an existing lease in
// place. Status and identity are untouched; renewals depend on that.
func (t *Tx) UpdateLeaseTerms(ctx context.Context, l *model.Lease) error {
	l.UpdatedAt = time.Now().UTC()
	res, err := t.tx.ExecContext(ctx, `
		UPDATE leases
		SET start_date = $2, end_date = $3, next_due_date = $4, amount = $5,
		    frequency = $6, updated_at = $7
		WHERE id = $1 AND status = 'active'`,
		l.ID, l.StartDate, l.EndDate, l.NextDueDate, l.Amount, l.Frequency, l.UpdatedAt)
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

func (t *Tx) DeactivateLease(ctx context.Context, id uuid.UUID, payment model.PaymentStatus) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE leases SET status = 'inactive', payment_status = $2, updated_at = now()
		WHERE id = $1 AND status = 'active'`, id, payment)
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
