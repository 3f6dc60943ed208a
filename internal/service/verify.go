package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/renterra-solution/tenancy-lifecycle-service/internal/model"
	"github.com/renterra-solution/tenancy-lifecycle-service/internal/monitoring"
	"github.com/renterra-solution/tenancy-lifecycle-service/internal/store"
)

// verifyAttachment re-reads the just-written rows within the same transaction
// and asserts the attachment invariants hold. A violation is a defect in the
// write path, never user error: it aborts the enclosing transaction and fires
// the alert hook. Repair is deliberately not attempted here; that is the
// reconciliation job's territory, out-of-band from user-facing writes.
func (e *Engine) verifyAttachment(ctx context.Context, tx store.TxOps, propertyID, tenantID uuid.UUID, applicationID *uuid.UUID) error {
	assignment, err := tx.ActiveAssignment(ctx, propertyID, tenantID)
	if err != nil {
		return err
	}
	if assignment == nil {
		return e.violation(propertyID, tenantID, "assignment_active", "no active assignment for pair")
	}

	lease, err := tx.ActiveLeaseByProperty(ctx, propertyID)
	if err != nil {
		return err
	}
	if lease == nil {
		return e.violation(propertyID, tenantID, "lease_active", "no active lease for property")
	}
	if lease.TenantID != tenantID {
		return e.violation(propertyID, tenantID, "lease_tenant", "active lease belongs to a different tenant")
	}

	prop, err := tx.PropertyByID(ctx, propertyID)
	if err != nil {
		return err
	}
	if prop == nil || prop.Status != model.PropertyOccupied {
		return e.violation(propertyID, tenantID, "property_occupied", "property status is not occupied")
	}

	if applicationID != nil {
		app, err := tx.ApplicationByID(ctx, *applicationID)
		if err != nil {
			return err
		}
		if app == nil || app.Status != model.ApplicationApproved || app.TenantID == nil || *app.TenantID != tenantID {
			return e.violation(propertyID, tenantID, "application_approved", "application not approved and linked to tenant")
		}
	}
	return nil
}

func (e *Engine) violation(propertyID, tenantID uuid.UUID, check, detail string) error {
	monitoring.InvariantViolations.Inc()
	monitoring.AlertInvariant(check, map[string]string{
		"property_id": propertyID.String(),
		"tenant_id":   tenantID.String(),
		"detail":      detail,
	})
	return invariantf("consistency check %s failed: %s", check, detail)
}
