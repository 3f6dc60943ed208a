package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/renterra-solution/tenancy-lifecycle-service/internal/model"
	"github.com/renterra-solution/tenancy-lifecycle-service/internal/monitoring"
	"github.com/renterra-solution/tenancy-lifecycle-service/internal/store"
)

// RenewInput carries the replacement lease terms.
type RenewInput struct {
	StartDate string
	EndDate   string
	Amount    int64
	Frequency string
}

// Renew replaces the terms of the active lease behind an assignment in place.
// The lease row keeps its identity and the assignment is untouched, which is
// what preserves the at-most-one-active invariants. A renewal audit record
// notes the prior and new terms. Failure leaves the prior terms intact.
func (e *Engine) Renew(ctx context.Context, assignmentID uuid.UUID, in RenewInput) (*model.Lease, error) {
	timer := prometheus.NewTimer(monitoring.WorkflowDuration.WithLabelValues("renew"))
	defer timer.ObserveDuration()

	if in.EndDate == "" {
		return nil, validationf("end date is required for renewal")
	}
	start, end, freq, err := LeaseTerms{
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Amount:    in.Amount,
		Frequency: in.Frequency,
	}.parse()
	if err != nil {
		return nil, err
	}

	var renewed *model.Lease
	err = e.store.InTx(ctx, func(tx store.TxOps) error {
		assignment, err := tx.AssignmentByID(ctx, assignmentID)
		if err != nil {
			return err
		}
		if assignment == nil {
			return preconditionf("assignment not found")
		}
		if assignment.Status != model.AssignmentActive {
			return preconditionf("assignment is not active")
		}
		if err := tx.LockTenant(ctx, assignment.TenantID); err != nil {
			return err
		}

		lease, err := tx.ActiveLeaseByProperty(ctx, assignment.PropertyID)
		if err != nil {
			return err
		}
		if lease == nil || lease.TenantID != assignment.TenantID {
			return preconditionf("no active lease for this assignment")
		}

		prior := fmt.Sprintf("%d/%s from %s", lease.Amount, lease.Frequency, lease.StartDate.Format(dateLayout))

		lease.StartDate = start
		lease.EndDate = end
		lease.Amount = in.Amount
		lease.Frequency = freq
		lease.NextDueDate = model.NextDueDate(start, freq)
		if err := tx.UpdateLeaseTerms(ctx, lease); err != nil {
			return err
		}

		if err := tx.AppendHistory(ctx, &model.HistoryRecord{
			PropertyID: assignment.PropertyID,
			TenantID:   assignment.TenantID,
			EventType:  model.EventRenewal,
			Reason:     "renewal",
			Comment: fmt.Sprintf("was %s, now %d/%s from %s to %s",
				prior, in.Amount, freq, in.StartDate, in.EndDate),
		}); err != nil {
			return err
		}

		renewed = lease
		return nil
	})
	if err != nil {
		err = classify(err)
		if kindOf(err) != KindPrecondition {
			log.Error().Err(err).Str("assignment_id", assignmentID.String()).Msg("renewal failed")
		}
		return nil, err
	}

	e.enqueue(Notification{AccountID: renewed.TenantID, Kind: "lease_renewed", Params: map[string]string{
		"amount": fmt.Sprint(renewed.Amount), "frequency": string(renewed.Frequency),
	}})
	return renewed, nil
}
