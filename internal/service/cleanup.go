package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/renterra-solution/tenancy-lifecycle-service/internal/model"
	"github.com/renterra-solution/tenancy-lifecycle-service/internal/store"
)

// cleanupActiveLeases deactivates the tenant's active leases and their
// assignments, restores each vacated property to vacant, and appends a
// move-out record per lease. It is the single primitive behind both the
// attachment pre-step (keep nil, reason "reassigned") and reconciliation's
// duplicate repair (keep the surviving lease, reason "data_cleanup").
//
// There should be at most one active lease per tenant, but the routine
// tolerates and corrects more than one. It never commits on its own and is
// idempotent: with no intervening attachment a second call finds nothing to
// clean.
func (e *Engine) cleanupActiveLeases(ctx context.Context, tx store.TxOps, tenantID uuid.UUID, keep *uuid.UUID, reason string) (int, error) {
	leases, err := tx.ActiveLeasesByTenant(ctx, tenantID)
	if err != nil {
		return 0, err
	}

	cleaned := 0
	for _, lease := range leases {
		if keep != nil && lease.ID == *keep {
			continue
		}

		if err := tx.DeactivateLease(ctx, lease.ID, model.PaymentOwing); err != nil {
			return cleaned, err
		}
		if err := tx.DeactivateAssignments(ctx, lease.PropertyID, tenantID); err != nil {
			return cleaned, err
		}

		prop, err := tx.PropertyByID(ctx, lease.PropertyID)
		if err != nil {
			return cleaned, err
		}
		if prop != nil && prop.Status == model.PropertyOccupied {
			if err := tx.SetPropertyStatus(ctx, lease.PropertyID, model.PropertyVacant); err != nil {
				return cleaned, err
			}
		}

		if err := tx.AppendHistory(ctx, &model.HistoryRecord{
			PropertyID: lease.PropertyID,
			TenantID:   tenantID,
			EventType:  model.EventMoveOut,
			Reason:     reason,
		}); err != nil {
			return cleaned, err
		}

		log.Info().
			Str("tenant_id", tenantID.String()).
			Str("property_id", lease.PropertyID.String()).
			Str("lease_id", lease.ID.String()).
			Str("reason", reason).
			Msg("deactivated lease")
		cleaned++
	}
	return cleaned, nil
}
