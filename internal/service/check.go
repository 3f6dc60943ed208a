package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/renterra-solution/tenancy-lifecycle-service/internal/store"
)

// Violation is one detected invariant breach.
type Violation struct {
	Kind       string     `json:"kind"`
	TenantID   *uuid.UUID `json:"tenant_id,omitempty"`
	PropertyID *uuid.UUID `json:"property_id,omitempty"`
	Detail     string     `json:"detail"`
}

// ConsistencyReport is the result of a read-only invariant scan.
type ConsistencyReport struct {
	CheckedAt  time.Time   `json:"checked_at"`
	Healthy    bool        `json:"healthy"`
	Violations []Violation `json:"violations,omitempty"`
}

// CheckConsistency scans the whole store for invariant violations without
// writing anything. It reports more than Reconcile repairs: pairs whose lease
// and assignment disagree and non-occupied properties carrying an active
// lease are surfaced for operator attention but never auto-fixed, because
// correcting them would mean guessing at occupancy.
func (e *Engine) CheckConsistency(ctx context.Context) (*ConsistencyReport, error) {
	report := &ConsistencyReport{CheckedAt: time.Now().UTC()}

	err := e.store.InTx(ctx, func(tx store.TxOps) error {
		dups, err := tx.TenantsWithDuplicateActiveLeases(ctx)
		if err != nil {
			return err
		}
		for _, id := range dups {
			id := id
			report.Violations = append(report.Violations, Violation{
				Kind: "duplicate_active_lease", TenantID: &id,
				Detail: "tenant holds more than one active lease",
			})
		}

		orphans, err := tx.OccupiedPropertiesWithoutLease(ctx)
		if err != nil {
			return err
		}
		for _, id := range orphans {
			id := id
			report.Violations = append(report.Violations, Violation{
				Kind: "occupied_without_lease", PropertyID: &id,
				Detail: "property marked occupied with no active lease",
			})
		}

		stale, err := tx.NonOccupiedPropertiesWithLease(ctx)
		if err != nil {
			return err
		}
		for _, id := range stale {
			id := id
			report.Violations = append(report.Violations, Violation{
				Kind: "active_lease_not_occupied", PropertyID: &id,
				Detail: "property has an active lease but is not marked occupied",
			})
		}

		mismatches, err := tx.MismatchedActivePairs(ctx)
		if err != nil {
			return err
		}
		for _, m := range mismatches {
			m := m
			report.Violations = append(report.Violations, Violation{
				Kind: "lease_assignment_mismatch", PropertyID: &m.PropertyID, TenantID: &m.TenantID,
				Detail: "active " + m.Missing + " missing for pair",
			})
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	report.Healthy = len(report.Violations) == 0
	return report, nil
}
