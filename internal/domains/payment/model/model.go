package model

import (
	"time"

	"roost/shared/model"
)

const (
	TableName  = "payments"
	EntityName = "payment"

	FieldID             = "id"
	FieldBookingID      = "booking_id"
	FieldIdempotencyKey = "idempotency_key"
	FieldMethod         = "method"
	FieldAmountCents    = "amount_cents"
	FieldCurrency       = "currency"
	FieldStatus         = "status"
	FieldProviderRef    = "provider_ref"
	FieldProcessedAt    = "processed_at"
	FieldFailureReason  = "failure_reason"
)

// Payment statuses. Completed and failed are terminal.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Settlement outcomes reported by the payment provider.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

type Payment struct {
	ID             string     `db:"id"`
	BookingID      string     `db:"booking_id"`
	IdempotencyKey string     `db:"idempotency_key"`
	Method         string     `db:"method"`
	AmountCents    int64      `db:"amount_cents"`
	Currency       string     `db:"currency"`
	Status         string     `db:"status"`
	ProviderRef    string     `db:"provider_ref"`
	ProcessedAt    *time.Time `db:"processed_at"`
	FailureReason  string     `db:"failure_reason"`
	model.Metadata
}

// IsTerminal reports whether the payment has already settled.
func (p *Payment) IsTerminal() bool {
	return p.Status == StatusCompleted || p.Status == StatusFailed
}
