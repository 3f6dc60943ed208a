package model

import "fmt"

// PropertyStatus is the occupancy status of a property.
type PropertyStatus string

const (
	PropertyVacant            PropertyStatus = "vacant"
	PropertyOccupied          PropertyStatus = "occupied"
	PropertyInactive          PropertyStatus = "inactive"
	PropertyReadyForMarketing PropertyStatus = "ready_for_marketing"
)

// Attachable reports whether a property in this status may receive a new
// tenant.
func (s PropertyStatus) Attachable() bool {
	return s == PropertyVacant || s == PropertyReadyForMarketing
}

// LeaseStatus is the lifecycle status of a lease.
type LeaseStatus string

const (
	LeaseActive   LeaseStatus = "active"
	LeaseInactive LeaseStatus = "inactive"
)

// PaymentStatus tracks whether a lease is paid up.
type PaymentStatus string

const (
	PaymentPaid  PaymentStatus = "paid"
	PaymentOwing PaymentStatus = "owing"
)

// AssignmentStatus mirrors LeaseStatus for the occupancy shadow record.
type AssignmentStatus string

const (
	AssignmentActive   AssignmentStatus = "active"
	AssignmentInactive AssignmentStatus = "inactive"
)

// HistoryEvent is the kind of occupancy transition an audit record describes.
type HistoryEvent string

const (
	EventMoveIn  HistoryEvent = "move_in"
	EventMoveOut HistoryEvent = "move_out"
	EventRenewal HistoryEvent = "renewal"
)

// ApplicationStatus is the intake decision state.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

// AccountRole marks which role an account plays for its person.
type AccountRole string

const (
	RoleTenant AccountRole = "tenant"
	RoleOwner  AccountRole = "owner"
	RoleAdmin  AccountRole = "admin"
)

// ParsePropertyStatus validates a stored or user-supplied property status.
func ParsePropertyStatus(s string) (PropertyStatus, error) {
	switch PropertyStatus(s) {
	case PropertyVacant, PropertyOccupied, PropertyInactive, PropertyReadyForMarketing:
		return PropertyStatus(s), nil
	}
	return "", fmt.Errorf("unknown property status %q", s)
}
