package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/renterra-solution/tenancy-lifecycle-service/internal/model"
)

// TxOps is the row-operation surface a single open transaction exposes to the
// workflows. Threading it as an explicit parameter keeps the transactional
// boundary visible in every signature.
type TxOps interface {
	// LockTenant takes the per-tenant advisory lock inside the current
	// transaction; held until commit or rollback.
	LockTenant(ctx context.Context, tenantID uuid.UUID) error

	// PropertyByID reads a property with a row lock (SELECT ... FOR UPDATE).
	PropertyByID(ctx context.Context, id uuid.UUID) (*model.Property, error)
	SetPropertyStatus(ctx context.Context, id uuid.UUID, status model.PropertyStatus) error

	AccountByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
	AccountByPhoneRole(ctx context.Context, phone string, role model.AccountRole) (*model.Account, error)
	AccountsByPhone(ctx context.Context, phone string) ([]*model.Account, error)
	InsertAccount(ctx context.Context, a *model.Account) error

	ActiveLeasesByTenant(ctx context.Context, tenantID uuid.UUID) ([]*model.Lease, error)
	ActiveLeaseByProperty(ctx context.Context, propertyID uuid.UUID) (*model.Lease, error)
	InsertLease(ctx context.Context, l *model.Lease) error
	UpdateLeaseTerms(ctx context.Context, l *model.Lease) error
	DeactivateLease(ctx context.Context, id uuid.UUID, payment model.PaymentStatus) error

	AssignmentByID(ctx context.Context, id uuid.UUID) (*model.Assignment, error)
	ActiveAssignment(ctx context.Context, propertyID, tenantID uuid.UUID) (*model.Assignment, error)
	InsertAssignment(ctx context.Context, a *model.Assignment) error
	DeactivateAssignments(ctx context.Context, propertyID, tenantID uuid.UUID) error

	AppendHistory(ctx context.Context, h *model.HistoryRecord) error

	ApplicationByID(ctx context.Context, id uuid.UUID) (*model.Application, error)
	ApproveApplication(ctx context.Context, id, tenantID uuid.UUID) error
	RejectPendingApplications(ctx context.Context, propertyID, except uuid.UUID) (int64, error)

	// Read-only drift detection, shared by the reconciliation job and the
	// consistency health check.
	TenantsWithDuplicateActiveLeases(ctx context.Context) ([]uuid.UUID, error)
	OccupiedPropertiesWithoutLease(ctx context.Context) ([]uuid.UUID, error)
	NonOccupiedPropertiesWithLease(ctx context.Context) ([]uuid.UUID, error)
	MismatchedActivePairs(ctx context.Context) ([]model.PairMismatch, error)
}

// Tx implements TxOps over one *sql.Tx. It remembers which properties had
// their status written so the store can drop their cache entries after
// commit.
type Tx struct {
	tx      *sql.Tx
	touched []uuid.UUID
}

var _ TxOps = (*Tx)(nil)

func (t *Tx) lockKey(ctx context.Context, key string) error {
	if _, err := t.tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, lockID(key)); err != nil {
		return fmt.Errorf("advisory lock %q: %w", key, err)
	}
	return nil
}

// LockTenant implements the per-tenant serialization the concurrency model
// requires when the tenant identity is only known mid-transaction.
func (t *Tx) LockTenant(ctx context.Context, tenantID uuid.UUID) error {
	return t.lockKey(ctx, tenantID.String())
}

func (t *Tx) TenantsWithDuplicateActiveLeases(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT tenant_id FROM leases
		WHERE status = 'active'
		GROUP BY tenant_id
		HAVING COUNT(*) > 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (t *Tx) OccupiedPropertiesWithoutLease(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT p.id FROM properties p
		WHERE p.status = 'occupied'
		  AND NOT EXISTS (
			SELECT 1 FROM leases l
			WHERE l.property_id = p.id AND l.status = 'active')`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (t *Tx) NonOccupiedPropertiesWithLease(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT DISTINCT p.id FROM properties p
		JOIN leases l ON l.property_id = p.id AND l.status = 'active'
		WHERE p.status <> 'occupied'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (t *Tx) MismatchedActivePairs(ctx context.Context) ([]model.PairMismatch, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT l.property_id, l.tenant_id, 'assignment' AS missing
		FROM leases l
		WHERE l.status = 'active'
		  AND NOT EXISTS (
			SELECT 1 FROM assignments a
			WHERE a.property_id = l.property_id AND a.tenant_id = l.tenant_id
			  AND a.status = 'active')
		UNION ALL
		SELECT a.property_id, a.tenant_id, 'lease' AS missing
		FROM assignments a
		WHERE a.status = 'active'
		  AND NOT EXISTS (
			SELECT 1 FROM leases l
			WHERE l.property_id = a.property_id AND l.tenant_id = a.tenant_id
			  AND l.status = 'active')`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PairMismatch
	for rows.Next() {
		var m model.PairMismatch
		if err := rows.Scan(&m.PropertyID, &m.TenantID, &m.Missing); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanIDs(rows *sql.Rows) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
