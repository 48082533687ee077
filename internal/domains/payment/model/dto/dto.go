package dto

import (
	"github.com/google/uuid"

	"roost/internal/domains/payment/model"
	"roost/shared"
	"roost/shared/constant"
	gDto "roost/shared/dto"
	gModel "roost/shared/model"
	"roost/shared/timezone"
)

type PayRequest struct {
	BookingID      string `json:"booking_id"      validate:"required,uuid"`
	IdempotencyKey string `json:"idempotency_key" validate:"required,max=100"`
	Method         string `json:"method"          validate:"required,oneof=card bank_transfer wallet"`
	AmountCents    int64  `json:"amount_cents"    validate:"required,gt=0"`
	Currency       string `json:"currency"        validate:"required,len=3"`
	PaymentToken   string `json:"payment_token"   validate:"required"`
}

func (p *PayRequest) ToModel(requester string) model.Payment {
	return model.Payment{
		ID:             uuid.NewString(),
		BookingID:      p.BookingID,
		IdempotencyKey: p.IdempotencyKey,
		Method:         p.Method,
		AmountCents:    p.AmountCents,
		Currency:       p.Currency,
		Status:         model.StatusPending,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  requester,
			ModifiedBy: requester,
		},
	}
}

// GatewayCallbackRequest is the asynchronous settlement notification from the
// payment provider. PaymentID is the engine's reference, echoed back from the
// charge request.
type GatewayCallbackRequest struct {
	PaymentID   string `json:"payment_id"   validate:"required,uuid"`
	ProviderRef string `json:"provider_ref" validate:"required,max=100"`
	Outcome     string `json:"outcome"      validate:"required,oneof=completed failed"`
	Reason      string `json:"reason"       validate:"omitempty,max=255"`
}

type PaymentResponse struct {
	ID             string `json:"id"`
	BookingID      string `json:"booking_id"`
	IdempotencyKey string `json:"idempotency_key"`
	Method         string `json:"method"`
	AmountCents    int64  `json:"amount_cents"`
	Currency       string `json:"currency"`
	Status         string `json:"status"`
	ProviderRef    string `json:"provider_ref,omitempty"`
	ProcessedAt    string `json:"processed_at,omitempty"`
	FailureReason  string `json:"failure_reason,omitempty"`
	gDto.Metadata
}

func (r *PaymentResponse) FromModel(model model.Payment) {
	r.ID = model.ID
	r.BookingID = model.BookingID
	r.IdempotencyKey = model.IdempotencyKey
	r.Method = model.Method
	r.AmountCents = model.AmountCents
	r.Currency = model.Currency
	r.Status = model.Status
	r.ProviderRef = model.ProviderRef
	r.FailureReason = model.FailureReason

	if model.ProcessedAt != nil {
		r.ProcessedAt = model.ProcessedAt.Format(constant.DateFormat)
	}

	r.Metadata.FromModel(model.Metadata)
}

type GetPaymentsResponse struct {
	Payments  []PaymentResponse `json:"payments"`
	TotalPage int               `json:"total_page"`
	TotalData int               `json:"total_data"`
}

func (r *GetPaymentsResponse) FromModels(models []model.Payment, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Payments = make([]PaymentResponse, len(models))
	for i, mod := range models {
		r.Payments[i].FromModel(mod)
	}
}

// Receipt is the settlement record archived to object storage.
type Receipt struct {
	PaymentID   string `json:"payment_id"`
	BookingID   string `json:"booking_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Method      string `json:"method"`
	ProviderRef string `json:"provider_ref"`
	SettledAt   string `json:"settled_at"`
}

// PaymentEvent is the payload published to the payment events topic.
type PaymentEvent struct {
	PaymentID   string `json:"payment_id"`
	BookingID   string `json:"booking_id"`
	Status      string `json:"status"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	OccurredAt  string `json:"occurred_at"`
}
