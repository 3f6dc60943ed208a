package model

import (
	"time"

	"github.com/google/uuid"
)

// Property represents the properties table. Status is mutated only by the
// attachment, cleanup and reconciliation workflows; OCCUPIED in particular is
// never set by any other code path.
type Property struct {
	ID        uuid.UUID      `json:"id"`
	OwnerID   uuid.UUID      `json:"owner_id"`
	Label     string         `json:"label"`
	Address   string         `json:"address"`
	Status    PropertyStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Account represents the accounts table. One natural person may hold several
// role accounts (owner, tenant); they share the same PersonRef and are matched
// by phone, the person-stable identifier.
type Account struct {
	ID             uuid.UUID   `json:"id"`
	PersonRef      uuid.UUID   `json:"person_ref"`
	FullName       string      `json:"full_name"`
	Phone          string      `json:"phone"`
	Email          string      `json:"email"` // plaintext, transient; stored encrypted
	EncryptedEmail []byte      `json:"-"`
	EmailIV        []byte      `json:"-"`
	Role           AccountRole `json:"role"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Lease represents the leases table. Amount is in minor currency units.
// Leases are deactivated, never deleted.
type Lease struct {
	ID            uuid.UUID        `json:"id"`
	PropertyID    uuid.UUID        `json:"property_id"`
	TenantID      uuid.UUID        `json:"tenant_id"`
	Status        LeaseStatus      `json:"status"`
	PaymentStatus PaymentStatus    `json:"payment_status"`
	StartDate     time.Time        `json:"start_date"`
	EndDate       *time.Time       `json:"end_date,omitempty"`
	NextDueDate   time.Time        `json:"next_due_date"`
	Amount        int64            `json:"amount"`
	Frequency     PaymentFrequency `json:"frequency"`
	Deposit       int64            `json:"deposit"`
	ServiceCharge int64            `json:"service_charge"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Assignment represents the assignments table. It shadows the lease's
// occupancy relationship and is kept in lock-step with the lease status by the
// same transaction.
type Assignment struct {
	ID         uuid.UUID        `json:"id"`
	PropertyID uuid.UUID        `json:"property_id"`
	TenantID   uuid.UUID        `json:"tenant_id"`
	Status     AssignmentStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// HistoryRecord represents the history_records table. Append-only; one record
// per occupancy transition.
type HistoryRecord struct {
	ID         uuid.UUID    `json:"id"`
	PropertyID uuid.UUID    `json:"property_id"`
	TenantID   uuid.UUID    `json:"tenant_id"`
	EventType  HistoryEvent `json:"event_type"`
	Reason     string       `json:"reason"`
	Comment    string       `json:"comment,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// Application represents the applications table. Once approved and consumed by
// an attachment it is linked to the resulting tenant account and never
// reopened.
type Application struct {
	ID             uuid.UUID         `json:"id"`
	PropertyID     uuid.UUID         `json:"property_id"`
	FullName       string            `json:"full_name"`
	Phone          string            `json:"phone"`
	Email          string            `json:"email"` // plaintext, transient; stored encrypted
	EncryptedEmail []byte            `json:"-"`
	EmailIV        []byte            `json:"-"`
	Status         ApplicationStatus `json:"status"`
	TenantID       *uuid.UUID        `json:"tenant_id,omitempty"`
	SubmittedAt    time.Time         `json:"submitted_at"`
	DecidedAt      *time.Time        `json:"decided_at,omitempty"`
}

// PairMismatch is a property/tenant pair whose active lease and assignment
// rows disagree. Missing names the side that is absent.
type PairMismatch struct {
	PropertyID uuid.UUID `json:"property_id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	Missing    string    `json:"missing"` // "lease" or "assignment"
}
