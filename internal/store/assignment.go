package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/renterra-solution/tenancy-lifecycle-service/internal/model"
)

const assignmentSelect = `
	SELECT id, property_id, tenant_id, status, created_at, updated_at
	FROM assignments`

func scanAssignment(row rowScanner) (*model.Assignment, error) {
	a := &model.Assignment{}
	err := row.Scan(&a.ID, &a.PropertyID, &a.TenantID, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (t *Tx) AssignmentByID(ctx context.Context, id uuid.UUID) (*model.Assignment, error) {
	a, err := scanAssignment(t.tx.QueryRowContext(ctx, assignmentSelect+` WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (t *Tx) ActiveAssignment(ctx context.Context, propertyID, tenantID uuid.UUID) (*model.Assignment, error) {
	a, err := scanAssignment(t.tx.QueryRowContext(ctx,
		assignmentSelect+` WHERE property_id = $1 AND tenant_id = $2 AND status = 'active'
		ORDER BY created_at DESC LIMIT 1`, propertyID, tenantID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (t *Tx) InsertAssignment(ctx context.Context, a *model.Assignment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO assignments (id, property_id, tenant_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.PropertyID, a.TenantID, a.Status, a.CreatedAt, a.UpdatedAt)
	return err
}

// DeactivateAssignments closes every active assignment for the pair. Written
// plural for the same reason cleanup tolerates duplicate leases: corrupted
// data may hold more than one.
func (t *Tx) DeactivateAssignments(ctx context.Context, propertyID, tenantID uuid.UUID) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE assignments SET status = 'inactive', updated_at = now()
		WHERE property_id = $1 AND tenant_id = $2 AND status = 'active'`,
		propertyID, tenantID)
	return err
}
