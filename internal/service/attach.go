package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/renterra-solution/tenancy-lifecycle-service/internal/model"
	"github.com/renterra-solution/tenancy-lifecycle-service/internal/monitoring"
	"github.com/renterra-solution/tenancy-lifecycle-service/internal/store"
)

const dateLayout = "2006-01-02"

// Audit reasons distinguish a normal reassignment move-out from an automatic
// repair in the history ledger.
const (
	ReasonReassigned  = "reassigned"
	ReasonDataCleanup = "data_cleanup"
)

// TenantProfile is the direct-entry tenant source. Phone is the
// person-stable identifier used for account matching.
type TenantProfile struct {
	FullName string
	Phone    string
	Email    string
}

// LeaseTerms carries the commercial terms of a new lease as submitted.
// Dates arrive as strings and are validated before any write.
type LeaseTerms struct {
	StartDate     string
	EndDate       string
	Amount        int64
	Frequency     string
	Deposit       int64
	ServiceCharge int64
}

func (t LeaseTerms) parse() (start time.Time, end *time.Time, freq model.PaymentFrequency, err error) {
	if t.Amount <= 0 {
		return start, nil, "", validationf("amount must be positive")
	}
	freq, ferr := model.ParseFrequency(t.Frequency)
	if ferr != nil {
		return start, nil, "", validationf("unrecognized payment frequency %q", t.Frequency)
	}
	start, perr := time.Parse(dateLayout, t.StartDate)
	if perr != nil {
		return start, nil, "", validationf("start date %q is not a valid date (want YYYY-MM-DD)", t.StartDate)
	}
	if t.EndDate != "" {
		e, perr := time.Parse(dateLayout, t.EndDate)
		if perr != nil {
			return start, nil, "", validationf("end date %q is not a valid date (want YYYY-MM-DD)", t.EndDate)
		}
		if !e.After(start) {
			return start, nil, "", validationf("end date must be after start date")
		}
		end = &e
	}
	return start, end, freq, nil
}

// AttachInput carries everything Attach needs: the acting administrator, the
// target property, exactly one tenant source and the lease terms.
type AttachInput struct {
	ActorID       uuid.UUID
	PropertyID    uuid.UUID
	Profile       *TenantProfile
	ApplicationID *uuid.UUID
	Terms         LeaseTerms
}

func (in AttachInput) validate() error {
	if in.ActorID == uuid.Nil {
		return validationf("actor is required")
	}
	if in.PropertyID == uuid.Nil {
		return validationf("property is required")
	}
	if (in.Profile == nil) == (in.ApplicationID == nil) {
		return validationf("exactly one tenant source (profile or application) is required")
	}
	if in.Profile != nil {
		if in.Profile.Phone == "" {
			return validationf("tenant phone is required")
		}
		if in.Profile.FullName == "" {
			return validationf("tenant name is required")
		}
	}
	return nil
}

// lockKey picks the advisory-lock key known before the transaction opens:
// the person-stable phone for direct entry, the application id otherwise.
// Once the tenant account is resolved inside the transaction, its id is
// locked as well.
func (in AttachInput) lockKey() string {
	if in.Profile != nil {
		return "tenant-phone:" + in.Profile.Phone
	}
	return "application:" + in.ApplicationID.String()
}

// AttachResult identifies the records a successful attachment produced.
type AttachResult struct {
	TenantID   uuid.UUID `json:"tenant_id"`
	PropertyID uuid.UUID `json:"property_id"`
	LeaseID    uuid.UUID `json:"lease_id"`
	CleanedUp  int       `json:"cleaned_up"`
}

// Attach creates the lease, assignment and audit trail binding a tenant to a
// property, transactionally. Any pre-existing active tenancy for the tenant
// is cleaned up first inside the same transaction; the consistency verifier
// runs last and aborts the transaction on any violation. Notifications go out
// only after commit and are best-effort.
func (e *Engine) Attach(ctx context.Context, in AttachInput) (*AttachResult, error) {
	timer := prometheus.NewTimer(monitoring.WorkflowDuration.WithLabelValues("attach"))
	defer timer.ObserveDuration()

	if err := in.validate(); err != nil {
		monitoring.Attachments.WithLabelValues("validation_rejected").Inc()
		return nil, err
	}
	start, end, freq, err := in.Terms.parse()
	if err != nil {
		monitoring.Attachments.WithLabelValues("validation_rejected").Inc()
		return nil, err
	}

	res := &AttachResult{PropertyID: in.PropertyID}
	var notes []Notification

	err = e.store.InLockedTx(ctx, in.lockKey(), func(tx store.TxOps) error {
		prop, err := tx.PropertyByID(ctx, in.PropertyID)
		if err != nil {
			return err
		}
		if prop == nil {
			return preconditionf("property not found")
		}
		if prop.OwnerID != in.ActorID {
			return preconditionf("property is not owned by the acting administrator")
		}
		if !prop.Status.Attachable() {
			if prop.Status == model.PropertyOccupied {
				return preconditionf("property is already occupied")
			}
			return preconditionf("property is not available for a new tenancy")
		}

		profile := in.Profile
		var app *model.Application
		if in.ApplicationID != nil {
			app, err = tx.ApplicationByID(ctx, *in.ApplicationID)
			if err != nil {
				return err
			}
			if app == nil {
				return preconditionf("application not found")
			}
			if app.PropertyID != in.PropertyID {
				return preconditionf("application is for a different property")
			}
			if app.Status != model.ApplicationPending {
				return preconditionf("application is not pending")
			}
			profile = &TenantProfile{FullName: app.FullName, Phone: app.Phone, Email: app.Email}
		}

		tenant, err := e.resolveTenant(ctx, tx, profile)
		if err != nil {
			return err
		}
		if err := tx.LockTenant(ctx, tenant.ID); err != nil {
			return err
		}

		cleaned, err := e.cleanupActiveLeases(ctx, tx, tenant.ID, nil, ReasonReassigned)
		if err != nil {
			return err
		}
		res.CleanedUp = cleaned

		lease := &model.Lease{
			PropertyID:    in.PropertyID,
			TenantID:      tenant.ID,
			Status:        model.LeaseActive,
			PaymentStatus: model.PaymentOwing,
			StartDate:     start,
			EndDate:       end,
			NextDueDate:   model.NextDueDate(start, freq),
			Amount:        in.Terms.Amount,
			Frequency:     freq,
			Deposit:       in.Terms.Deposit,
			ServiceCharge: in.Terms.ServiceCharge,
		}
		if err := tx.InsertLease(ctx, lease); err != nil {
			return err
		}
		if err := tx.InsertAssignment(ctx, &model.Assignment{
			PropertyID: in.PropertyID,
			TenantID:   tenant.ID,
			Status:     model.AssignmentActive,
		}); err != nil {
			return err
		}
		if err := tx.AppendHistory(ctx, &model.HistoryRecord{
			PropertyID: in.PropertyID,
			TenantID:   tenant.ID,
			EventType:  model.EventMoveIn,
			Reason:     "attached",
			Comment:    fmt.Sprintf("lease %d/%s starting %s", lease.Amount, lease.Frequency, in.Terms.StartDate),
		}); err != nil {
			return err
		}
		if err := tx.SetPropertyStatus(ctx, in.PropertyID, model.PropertyOccupied); err != nil {
			return err
		}

		var appID *uuid.UUID
		if app != nil {
			if err := tx.ApproveApplication(ctx, app.ID, tenant.ID); err != nil {
				return err
			}
			if _, err := tx.RejectPendingApplications(ctx, in.PropertyID, app.ID); err != nil {
				return err
			}
			appID = &app.ID
		}

		if err := e.verifyAttachment(ctx, tx, in.PropertyID, tenant.ID, appID); err != nil {
			return err
		}

		res.TenantID = tenant.ID
		res.LeaseID = lease.ID
		notes = []Notification{
			{AccountID: tenant.ID, Kind: "tenancy_started", Params: map[string]string{
				"property": prop.Label, "amount": fmt.Sprint(lease.Amount), "frequency": string(lease.Frequency),
			}},
			{AccountID: prop.OwnerID, Kind: "tenant_attached", Params: map[string]string{
				"property": prop.Label, "tenant": profile.FullName,
			}},
		}
		return nil
	})
	if err != nil {
		err = classify(err)
		switch kindOf(err) {
		case KindPrecondition:
			monitoring.Attachments.WithLabelValues("precondition_rejected").Inc()
		case KindInvariant:
			monitoring.Attachments.WithLabelValues("invariant_violation").Inc()
			log.Error().Err(err).
				Str("property_id", in.PropertyID.String()).
				Msg("attachment aborted by consistency verifier")
		default:
			monitoring.Attachments.WithLabelValues("error").Inc()
			log.Error().Err(err).
				Str("property_id", in.PropertyID.String()).
				Msg("attachment failed")
		}
		return nil, err
	}

	monitoring.Attachments.WithLabelValues("attached").Inc()
	for _, n := range notes {
		e.enqueue(n)
	}
	return res, nil
}
