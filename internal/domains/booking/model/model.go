package model

import (
	"time"

	"roost/shared/model"
)

const (
	TableName  = "bookings"
	EntityName = "booking"

	FieldID          = "id"
	FieldPropertyID  = "property_id"
	FieldRequesterID = "requester_id"
	FieldStartDate   = "start_date"
	FieldEndDate     = "end_date"
	FieldGuests      = "guests"
	FieldStatus      = "status"
	FieldTotalCents  = "total_cents"
	FieldCurrency    = "currency"
	FieldVersion     = "version"
)

// Booking lifecycle statuses. Completed and canceled are terminal.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCanceled  = "canceled"
)

// Lifecycle actions accepted by the state machine.
const (
	ActionConfirm  = "confirm"
	ActionCancel   = "cancel"
	ActionComplete = "complete"
)

// ActiveStatuses are the statuses that occupy a property's calendar. A
// canceled booking frees its dates.
var ActiveStatuses = []string{StatusPending, StatusConfirmed, StatusCompleted}

type Booking struct {
	ID          string    `db:"id"`
	PropertyID  string    `db:"property_id"`
	RequesterID string    `db:"requester_id"`
	StartDate   time.Time `db:"start_date"`
	EndDate     time.Time `db:"end_date"`
	Guests      int64     `db:"guests"`
	Status      string    `db:"status"`
	TotalCents  int64     `db:"total_cents"`
	Currency    string    `db:"currency"`
	Version     int64     `db:"version"`
	model.Metadata
}

// IsTerminal reports whether the booking can never change status again.
func (b *Booking) IsTerminal() bool {
	return b.Status == StatusCompleted || b.Status == StatusCanceled
}

// Actor is the authenticated identity a transition is evaluated against.
// System is set for internally triggered transitions (settlement completion,
// post-stay sweep), which bypass role guards.
type Actor struct {
	ID     string
	Role   string
	System bool
}

// SystemActor marks transitions the engine triggers on its own behalf.
func SystemActor() Actor {
	return Actor{ID: "system", System: true}
}
