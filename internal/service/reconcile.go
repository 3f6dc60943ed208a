package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/renterra-solution/tenancy-lifecycle-service/internal/model"
	"github.com/renterra-solution/tenancy-lifecycle-service/internal/monitoring"
	"github.com/renterra-solution/tenancy-lifecycle-service/internal/store"
)

// ReconcileDetail records one applied (or attempted) fix.
type ReconcileDetail struct {
	Kind       string     `json:"kind"`
	TenantID   *uuid.UUID `json:"tenant_id,omitempty"`
	PropertyID *uuid.UUID `json:"property_id,omitempty"`
	Action     string     `json:"action"`
}

// ReconcileReport summarizes a reconciliation run.
type ReconcileReport struct {
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
	IssuesFound int               `json:"issues_found"`
	IssuesFixed int               `json:"issues_fixed"`
	Details     []ReconcileDetail `json:"details,omitempty"`
}

// Reconcile is the read/repair pass over the whole store. Pass one
// deactivates surplus active leases per tenant, keeping the most recently
// created; pass two vacates occupied properties that have no active lease.
// The job only corrects status fields, never fabricates a lease or
// assignment, and every fix runs in its own short transaction so a failure
// partway through leaves earlier fixes committed. Safe to run repeatedly and
// concurrently with live traffic.
func (e *Engine) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	timer := prometheus.NewTimer(monitoring.WorkflowDuration.WithLabelValues("reconcile"))
	defer timer.ObserveDuration()

	report := &ReconcileReport{StartedAt: time.Now().UTC()}

	var dupTenants []uuid.UUID
	var orphanProps []uuid.UUID
	err := e.store.InTx(ctx, func(tx store.TxOps) error {
		var err error
		if dupTenants, err = tx.TenantsWithDuplicateActiveLeases(ctx); err != nil {
			return err
		}
		orphanProps, err = tx.OccupiedPropertiesWithoutLease(ctx)
		return err
	})
	if err != nil {
		return nil, classify(err)
	}

	for _, tenantID := range dupTenants {
		tenantID := tenantID
		var cleaned int
		err := e.store.InLockedTx(ctx, tenantID.String(), func(tx store.TxOps) error {
			leases, err := tx.ActiveLeasesByTenant(ctx, tenantID)
			if err != nil {
				return err
			}
			if len(leases) <= 1 {
				// Fixed by live traffic between detection and repair.
				return nil
			}
			keep := leases[0]
			for _, l := range leases[1:] {
				if l.CreatedAt.After(keep.CreatedAt) {
					keep = l
				}
			}
			cleaned, err = e.cleanupActiveLeases(ctx, tx, tenantID, &keep.ID, ReasonDataCleanup)
			return err
		})
		if err != nil {
			report.IssuesFound++
			report.Details = append(report.Details, ReconcileDetail{
				Kind: "duplicate_active_lease", TenantID: &tenantID, Action: "fix_failed",
			})
			monitoring.ReconcileIssues.WithLabelValues("duplicate_active_lease", "failed").Inc()
			log.Error().Err(err).Str("tenant_id", tenantID.String()).Msg("duplicate lease repair failed")
			continue
		}
		if cleaned == 0 {
			continue
		}
		report.IssuesFound += cleaned
		report.IssuesFixed += cleaned
		report.Details = append(report.Details, ReconcileDetail{
			Kind: "duplicate_active_lease", TenantID: &tenantID, Action: "deactivated",
		})
		monitoring.ReconcileIssues.WithLabelValues("duplicate_active_lease", "fixed").Add(float64(cleaned))
	}

	for _, propertyID := range orphanProps {
		propertyID := propertyID
		fixed := false
		err := e.store.InTx(ctx, func(tx store.TxOps) error {
			prop, err := tx.PropertyByID(ctx, propertyID)
			if err != nil {
				return err
			}
			if prop == nil || prop.Status != model.PropertyOccupied {
				return nil
			}
			lease, err := tx.ActiveLeaseByProperty(ctx, propertyID)
			if err != nil {
				return err
			}
			if lease != nil {
				return nil
			}
			if err := tx.SetPropertyStatus(ctx, propertyID, model.PropertyVacant); err != nil {
				return err
			}
			fixed = true
			return nil
		})
		if err != nil {
			report.IssuesFound++
			report.Details = append(report.Details, ReconcileDetail{
				Kind: "occupied_without_lease", PropertyID: &propertyID, Action: "fix_failed",
			})
			monitoring.ReconcileIssues.WithLabelValues("occupied_without_lease", "failed").Inc()
			log.Error().Err(err).Str("property_id", propertyID.String()).Msg("orphaned property repair failed")
			continue
		}
		if !fixed {
			continue
		}
		report.IssuesFound++
		report.IssuesFixed++
		report.Details = append(report.Details, ReconcileDetail{
			Kind: "occupied_without_lease", PropertyID: &propertyID, Action: "set_vacant",
		})
		monitoring.ReconcileIssues.WithLabelValues("occupied_without_lease", "fixed").Inc()
	}

	report.FinishedAt = time.Now().UTC()
	log.Info().
		Int("issues_found", report.IssuesFound).
		Int("issues_fixed", report.IssuesFixed).
		Msg("reconciliation run complete")
	return report, nil
}
