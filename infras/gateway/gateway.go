package gateway

//go:generate go run go.uber.org/mock/mockgen -source=./gateway.go -destination=./mocks/gateway_mock.go -package=mocks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"roost/config"
	"roost/infras/otel"
	"roost/shared/constant"
	"roost/shared/failure"
)

const (
	chargePath = "/v1/charges"

	otelAttrAmount   = "amount"
	otelAttrCurrency = "currency"
)

// ChargeRequest is the charge instruction sent to the payment provider.
type ChargeRequest struct {
	AmountCents    int64  `json:"amount_cents"`
	Currency       string `json:"currency"`
	PaymentToken   string `json:"payment_token"`
	IdempotencyKey string `json:"idempotency_key"`
}

// ChargeResult is the provider's verdict on a charge attempt.
type ChargeResult struct {
	ProviderRef string `json:"provider_ref"`
	Approved    bool   `json:"approved"`
	Reason      string `json:"reason,omitempty"`
}

// PaymentGateway charges guests through the external payment provider.
type PaymentGateway interface {
	Charge(ctx context.Context, request ChargeRequest) (*ChargeResult, error)
}

type gatewayImpl struct {
	config *config.Config
	client *http.Client
	otel   otel.Otel
}

func (g *gatewayImpl) Charge(ctx context.Context, request ChargeRequest) (result *ChargeResult, err error) {
	ctx, scope := g.otel.NewScope(ctx, constant.OtelExternalScopeName, constant.OtelExternalScopeName+".Charge")
	defer scope.End()
	defer scope.TraceIfError(err)

	scope.SetAttributes(map[string]any{
		otelAttrAmount:   request.AmountCents,
		otelAttrCurrency: request.Currency,
	})

	payload, err := json.Marshal(request)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal charge request")

		return nil, fmt.Errorf("failed to marshal charge request: %w", err)
	}

	url := g.config.Gateway.Endpoint + chargePath

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build charge request: %w", err)
	}

	req.Header.Set(constant.RequestHeaderContentType, constant.ContentTypeJSON)
	req.Header.Set(constant.RequestHeaderAPIKey, g.config.Gateway.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("Payment provider unreachable")

		if errors.Is(err, context.DeadlineExceeded) {
			return nil, failure.Timeout("payment provider did not respond in time")
		}

		return nil, fmt.Errorf("failed to reach payment provider: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusInternalServerError {
		log.Error().Int("status", resp.StatusCode).Msg("Payment provider returned server error")

		return nil, failure.Timeout("payment provider is unavailable")
	}

	result = &ChargeResult{}
	if err = json.NewDecoder(resp.Body).Decode(result); err != nil {
		log.Error().Err(err).Msg("Failed to decode charge response")

		return nil, fmt.Errorf("failed to decode charge response: %w", err)
	}

	return result, nil
}

func New(config *config.Config, otel otel.Otel) PaymentGateway {
	timeout := time.Duration(config.Gateway.TimeoutSeconds) * time.Second

	return &gatewayImpl{
		config: config,
		client: &http.Client{Timeout: timeout},
		otel:   otel,
	}
}
